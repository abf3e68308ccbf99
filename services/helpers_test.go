package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"secrettime-backend/config"
	"secrettime-backend/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	einxelName  = "Einxel Plus膠原修復針"
	packageName = "組合療程：Einxel Plus膠原修復針 6次包套"
	retouchName = "補脫療程"
	tenSpots    = "熱能氣化 - 10粒"
	hydration   = "超聲波注水護理"
	plasma      = "等離子抗菌消炎細胞機"
)

func newTestServices(t *testing.T, opts ...func(*config.Config)) (*Services, *gorm.DB) {
	t.Helper()
	config.GetLogger().SetLevel(logrus.WarnLevel)

	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "secret_time_test.db")
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := config.ConnectDB(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = config.CloseDB(db) })

	if err := models.Migrate(db, cfg.Policy, cfg.Catalog); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db, cfg, nil), db
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func mustRecord(t *testing.T, svc *Services, in RecordInput) *RecordResult {
	t.Helper()
	res, err := svc.Records.Record(context.Background(), in)
	if err != nil {
		t.Fatalf("record %+v: %v", in, err)
	}
	return res
}

func visit(name, date string, price int64) RecordInput {
	return RecordInput{Name: name, ContactMethod: "WhatsApp", TreatmentDate: day(date), Price: money(price)}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
