package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	"secrettime-backend/config"
	"secrettime-backend/metrics"
	"secrettime-backend/models"
	"secrettime-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ParsedLine is one accepted import line.
type ParsedLine struct {
	LineNo        int             `json:"lineNo"`
	Date          time.Time       `json:"date"`
	Name          string          `json:"name"`
	ContactMethod string          `json:"contactMethod"`
	Price         decimal.Decimal `json:"price"`
}

type LineError struct {
	LineNo int    `json:"lineNo"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// ParseErrors reports every rejected line of an import at once.
type ParseErrors []LineError

func (e ParseErrors) Error() string {
	if len(e) == 1 {
		return fmt.Sprintf("line %d: %s", e[0].LineNo, e[0].Reason)
	}
	return fmt.Sprintf("%d lines rejected, first at line %d: %s", len(e), e[0].LineNo, e[0].Reason)
}

// ParseImport reads "[date] name contact price" lines. Fields are separated by
// whitespace or commas; a line without a date takes the previous line's date.
// Names may contain spaces. Blank lines and lines starting with # are skipped.
func ParseImport(r io.Reader, policy config.Policy) ([]ParsedLine, error) {
	var (
		lines    []ParsedLine
		errs     ParseErrors
		lastDate time.Time
		lineNo   int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		reject := func(format string, args ...any) {
			errs = append(errs, LineError{LineNo: lineNo, Text: text, Reason: fmt.Sprintf(format, args...)})
		}

		fields := strings.FieldsFunc(text, func(r rune) bool {
			return unicode.IsSpace(r) || r == ',' || r == '，'
		})

		date := lastDate
		if len(fields) > 0 && utils.LooksLikeDate(fields[0]) {
			d, err := utils.ParseDate(fields[0])
			if err != nil {
				reject("%s", err.Error())
				continue
			}
			date = utils.DateOnly(d)
			fields = fields[1:]
		}
		if len(fields) < 3 {
			reject("want [date] name contact price")
			continue
		}
		if date.IsZero() {
			reject("no date on this line or any line before it")
			continue
		}
		lastDate = date

		n := len(fields)
		contact, ok := policy.NormalizeContactMethod(fields[n-2])
		if !ok {
			reject("unknown contact method %q", fields[n-2])
			continue
		}
		price, err := utils.ParseAmount(fields[n-1])
		if err != nil {
			reject("%s", err.Error())
			continue
		}
		if !price.IsPositive() {
			reject("price must be greater than zero")
			continue
		}

		lines = append(lines, ParsedLine{
			LineNo:        lineNo,
			Date:          date,
			Name:          strings.Join(fields[:n-2], " "),
			ContactMethod: contact,
			Price:         price,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return lines, nil
}

type ImportResult struct {
	Record           models.ImportRecord `json:"record"`
	CustomersCreated int                 `json:"customersCreated"`
}

type ImportService struct {
	db      *gorm.DB
	mu      *sync.Mutex
	rules   *RuleEngine
	metrics metrics.SalonMetrics
	now     func() time.Time
}

func NewImportService(db *gorm.DB, mu *sync.Mutex, rules *RuleEngine, m metrics.SalonMetrics) *ImportService {
	if m == nil {
		m = metrics.Noop()
	}
	return &ImportService{
		db:      db,
		mu:      mu,
		rules:   rules,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Import parses r and commits every line or none. Parse failures write nothing;
// later failures leave the audit record marked failed.
func (s *ImportService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	lines, err := ParseImport(r, s.rules.Policy())
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, invalid(ErrInvalidInput, "import contains no records")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.db.WithContext(ctx)
	record := models.ImportRecord{
		ImportDate:  s.now(),
		RecordCount: len(lines),
		Status:      models.ImportPending,
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create import record: %w", err)
	}

	created := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		n, err := s.commit(tx, record.ID, lines)
		if err != nil {
			return err
		}
		created = n
		return tx.Model(&record).Update("status", models.ImportSuccess).Error
	})
	if err != nil {
		s.fail(db, &record, err)
		return nil, err
	}

	record.Status = models.ImportSuccess
	s.metrics.IncImport(string(models.ImportSuccess))
	s.metrics.ObserveImportRows(len(lines))
	config.GetLogger().WithFields(logrus.Fields{
		"importId":  record.ID,
		"rows":      len(lines),
		"customers": created,
	}).Info("import committed")
	return &ImportResult{Record: record, CustomersCreated: created}, nil
}

func (s *ImportService) fail(db *gorm.DB, record *models.ImportRecord, cause error) {
	s.metrics.IncImport(string(models.ImportFailed))
	record.Status = models.ImportFailed
	record.ErrorMessage = cause.Error()

	var lineErrs ParseErrors
	if !errors.As(cause, &lineErrs) && !IsValidation(cause) {
		config.LogError(config.GetLogger(), "services", "ImportService.Import", "commit import", record.ID, cause)
	}
	if err := db.Model(record).Updates(map[string]interface{}{
		"status":        models.ImportFailed,
		"error_message": record.ErrorMessage,
	}).Error; err != nil {
		config.LogError(config.GetLogger(), "services", "ImportService.Import", "mark import failed", record.ID, err)
	}
}

// commit stages the lines, validates all of them, then copies them into customer_treatments.
func (s *ImportService) commit(tx *gorm.DB, importID uuid.UUID, lines []ParsedLine) (int, error) {
	staging := make([]models.ImportStagingRow, 0, len(lines))
	for _, l := range lines {
		staging = append(staging, models.ImportStagingRow{
			ImportID:      importID,
			LineNo:        l.LineNo,
			TreatmentDate: l.Date,
			Name:          l.Name,
			ContactMethod: l.ContactMethod,
			Price:         l.Price,
		})
	}
	if err := tx.CreateInBatches(&staging, 100).Error; err != nil {
		return 0, fmt.Errorf("failed to stage import rows: %w", err)
	}

	var staged []models.ImportStagingRow
	if err := tx.Where("import_id = ?", importID).Order("line_no ASC").Find(&staged).Error; err != nil {
		return 0, fmt.Errorf("failed to read staged rows: %w", err)
	}

	nextPackage, err := nextPackageID(tx)
	if err != nil {
		return 0, err
	}

	var (
		errs      ParseErrors
		rows      = make([]models.CustomerTreatment, 0, len(staged))
		customers = make(map[string]uuid.UUID)
		created   int
		policy    = s.rules.Policy()
	)
	for _, row := range staged {
		text := fmt.Sprintf("%s %s %s %s", row.TreatmentDate.Format("2006-01-02"), row.Name, row.ContactMethod, row.Price.String())

		match, err := s.importMatch(tx, row.Price)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				errs = append(errs, LineError{LineNo: row.LineNo, Text: text, Reason: ve.Error()})
				continue
			}
			return 0, err
		}

		key := row.Name + "\x00" + row.ContactMethod
		customerID, ok := customers[key]
		if !ok {
			existing, err := s.rules.checkDuplicate(tx, row.Name, row.ContactMethod)
			if err != nil {
				return 0, err
			}
			if len(existing) > 0 {
				customerID = existing[0].ID
			} else {
				customer := models.Customer{Name: row.Name, ContactMethod: row.ContactMethod}
				if err := tx.Create(&customer).Error; err != nil {
					return 0, fmt.Errorf("failed to create customer from line %d: %w", row.LineNo, err)
				}
				customerID = customer.ID
				created++
			}
			customers[key] = customerID
		}

		id := importID
		ct := models.CustomerTreatment{
			CustomerID:            customerID,
			TreatmentID:           match.Treatment.ID,
			TreatmentDate:         row.TreatmentDate,
			IsPeak:                match.IsPeak,
			NeckTreatment:         match.NeckPrice,
			Price:                 row.Price,
			RemainingRetouchCount: 1,
			ImportID:              &id,
		}
		if match.Treatment.HasRemainingSessions {
			pkg := nextPackage
			nextPackage++
			ct.PackageID = &pkg
			ct.RemainingSessions = policy.PackageSessions - 1
		}
		rows = append(rows, ct)
	}
	if len(errs) > 0 {
		return 0, errs
	}

	if err := tx.CreateInBatches(&rows, 100).Error; err != nil {
		return 0, fmt.Errorf("failed to insert import rows: %w", err)
	}
	for _, ct := range rows {
		s.metrics.IncTreatmentRecorded(string(ct.Kind()))
	}
	if err := tx.Where("import_id = ?", importID).Delete(&models.ImportStagingRow{}).Error; err != nil {
		return 0, fmt.Errorf("failed to clear staged rows: %w", err)
	}
	return created, nil
}

// importMatch takes the only treatment a price can legitimately stand for.
func (s *ImportService) importMatch(tx *gorm.DB, price decimal.Decimal) (*TreatmentMatch, error) {
	matches, err := s.rules.matchTreatment(tx, price)
	if err != nil {
		return nil, err
	}
	var legit []TreatmentMatch
	for _, m := range matches {
		if !m.Coincidental {
			legit = append(legit, m)
		}
	}
	switch {
	case len(matches) == 0:
		return nil, invalid(ErrNoPriceMatch, "%s", price.String())
	case len(legit) == 0:
		return nil, invalid(ErrNeckNotAllowed, "%s", price.String())
	case len(legit) > 1:
		return nil, &ValidationError{Err: ErrAmbiguousPrice, Detail: price.String(), Candidates: legit}
	}
	return &legit[0], nil
}

// ListImports returns the audit records, newest first.
func (s *ImportService) ListImports(ctx context.Context) ([]models.ImportRecord, error) {
	records := []models.ImportRecord{}
	if err := s.db.WithContext(ctx).Order("import_date DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	return records, nil
}

// DeleteImport removes a batch and every treatment row it created.
// Customers created by the batch are kept.
func (s *ImportService) DeleteImport(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.ImportRecord
		if err := tx.Take(&record, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to load import %s: %w", id, err)
		}

		if err := tx.Exec(`
			UPDATE customer_treatments SET retouch_parent_id = NULL
			WHERE retouch_parent_id IN (SELECT id FROM customer_treatments WHERE import_id = ?)
		`, id).Error; err != nil {
			return fmt.Errorf("failed to detach retouches: %w", err)
		}
		res := tx.Where("import_id = ?", id).Delete(&models.CustomerTreatment{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete import rows: %w", res.Error)
		}
		removed = res.RowsAffected
		if err := tx.Where("import_id = ?", id).Delete(&models.ImportStagingRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete staged rows: %w", err)
		}
		if err := tx.Delete(&record).Error; err != nil {
			return fmt.Errorf("failed to delete import record: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// SweepStaleImports marks pending imports older than olderThan as failed.
func (s *ImportService) SweepStaleImports(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	db := s.db.WithContext(ctx)
	var swept int64
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("import_id IN (?)",
			tx.Model(&models.ImportRecord{}).Select("id").
				Where("status = ? AND import_date < ?", models.ImportPending, cutoff),
		).Delete(&models.ImportStagingRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear stale staged rows: %w", err)
		}
		res := tx.Model(&models.ImportRecord{}).
			Where("status = ? AND import_date < ?", models.ImportPending, cutoff).
			Updates(map[string]interface{}{
				"status":        models.ImportFailed,
				"error_message": "import did not finish",
			})
		if res.Error != nil {
			return fmt.Errorf("failed to sweep stale imports: %w", res.Error)
		}
		swept = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		s.metrics.AddImports(string(models.ImportFailed), int(swept))
		config.GetLogger().WithField("imports", swept).Warn("marked stale imports as failed")
	}
	return swept, nil
}
