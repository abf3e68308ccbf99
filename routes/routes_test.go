package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"secrettime-backend/config"
	"secrettime-backend/metrics"
	"secrettime-backend/models"
	"secrettime-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.GetLogger().SetLevel(logrus.WarnLevel)

	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "routes_test.db")
	cfg.ExportDir = t.TempDir()

	db, err := config.ConnectDB(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = config.CloseDB(db) })
	if err := models.Migrate(db, cfg.Policy, cfg.Catalog); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	registry := prometheus.NewRegistry()
	return SetupRouter(cfg, services.New(db, cfg, metrics.New(registry)), registry)
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRecordEndpointStatusCodes(t *testing.T) {
	r := newTestRouter(t)

	visit := gin.H{"name": "Amy", "contactMethod": "whatsapp", "date": "2024-03-01", "price": "1,880"}
	if w := do(r, http.MethodPost, "/api/records", visit); w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body)
	}

	w := do(r, http.MethodPost, "/api/records", visit)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d %s", w.Code, w.Body)
	}
	var conflict struct {
		Details struct {
			Candidates []models.Customer `json:"candidates"`
		} `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &conflict); err != nil || len(conflict.Details.Candidates) != 1 {
		t.Fatalf("conflict body = %s", w.Body)
	}

	unmatched := gin.H{"name": "Bob", "contactMethod": "Phone", "date": "2024-03-01", "price": "12345"}
	if w := do(r, http.MethodPost, "/api/records", unmatched); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unmatched price: %d %s", w.Code, w.Body)
	}

	if w := do(r, http.MethodPost, "/api/records", gin.H{"name": "Bob"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: %d", w.Code)
	}
}

func TestLookupEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/treatments/match?price=880", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("match: %d", w.Code)
	}
	var match struct {
		Found   bool              `json:"found"`
		Matches []json.RawMessage `json:"matches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &match); err != nil || !match.Found || len(match.Matches) == 0 {
		t.Fatalf("match body = %s", w.Body)
	}

	w = do(r, http.MethodGet, "/api/treatments/match?price=3", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"found":false`) {
		t.Fatalf("no match: %d %s", w.Code, w.Body)
	}

	if w := do(r, http.MethodGet, "/api/customers/"+uuid.NewString(), nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown customer: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/customers/not-a-uuid", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	do(r, http.MethodPost, "/api/records", gin.H{"name": "Amy", "contactMethod": "Phone", "date": "2024-03-01", "price": "580"})

	w := do(r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "salon_treatments_recorded_total") {
		t.Fatalf("metrics: %d", w.Code)
	}
}
