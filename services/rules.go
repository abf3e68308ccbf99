package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"secrettime-backend/config"
	"secrettime-backend/metrics"
	"secrettime-backend/models"
	"secrettime-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TreatmentMatch is one catalog entry a charged price can stand for.
type TreatmentMatch struct {
	Treatment models.Treatment `json:"treatment"`
	IsPeak    bool             `json:"isPeak"`
	// NeckPrice is set only when the price includes the add-on surcharge and
	// the treatment is the one the add-on is sold with.
	NeckPrice bool `json:"neckPrice"`
	// Coincidental marks a price reached only by adding the surcharge to a
	// treatment that cannot take the add-on.
	Coincidental bool `json:"coincidental"`
}

// PackageStatus describes a customer's newest prepaid package. RecordID and
// TreatmentDate belong to the purchase row.
type PackageStatus struct {
	RecordID          uuid.UUID `json:"recordId"`
	PackageID         int       `json:"packageId"`
	RemainingSessions int       `json:"remainingSessions"`
	TreatmentID       uuid.UUID `json:"treatmentId"`
	TreatmentDate     time.Time `json:"treatmentDate"`
}

// RuleEngine answers the pricing and eligibility questions. Its read methods
// return an empty slice or nil for "no answer"; errors are storage failures.
type RuleEngine struct {
	db      *gorm.DB
	policy  config.Policy
	metrics metrics.SalonMetrics
}

func NewRuleEngine(db *gorm.DB, policy config.Policy, m metrics.SalonMetrics) *RuleEngine {
	if m == nil {
		m = metrics.Noop()
	}
	return &RuleEngine{db: db, policy: policy, metrics: m}
}

func (r *RuleEngine) Policy() config.Policy {
	return r.policy
}

// Treatments lists the catalog in display order.
func (r *RuleEngine) Treatments(ctx context.Context) ([]models.Treatment, error) {
	return r.treatments(r.db.WithContext(ctx))
}

func (r *RuleEngine) treatments(tx *gorm.DB) ([]models.Treatment, error) {
	var treatments []models.Treatment
	if err := tx.Order("sort_order ASC, name ASC").Find(&treatments).Error; err != nil {
		return nil, fmt.Errorf("failed to load treatments: %w", err)
	}
	return treatments, nil
}

func (r *RuleEngine) treatmentByName(tx *gorm.DB, name string) (*models.Treatment, error) {
	var t models.Treatment
	if err := tx.Where("name = ?", name).Take(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// MatchTreatment returns the treatments whose peak price, non-peak price, or
// either plus the add-on surcharge equals price. Add-on-eligible and exact
// matches come first, each group in catalog order.
func (r *RuleEngine) MatchTreatment(ctx context.Context, price decimal.Decimal) ([]TreatmentMatch, error) {
	return r.matchTreatment(r.db.WithContext(ctx), price)
}

func (r *RuleEngine) matchTreatment(tx *gorm.DB, price decimal.Decimal) ([]TreatmentMatch, error) {
	matches, err := r.candidates(tx, price)
	if err != nil {
		return nil, err
	}

	switch {
	case len(matches) == 0:
		r.metrics.IncPriceMatch("not_found")
		return matches, nil
	case len(matches) > 1 && r.policy.StrictSingleMatch:
		matches = matches[:1]
	}
	if len(matches) == 1 {
		r.metrics.IncPriceMatch("single")
	} else {
		r.metrics.IncPriceMatch("multiple")
	}
	return matches, nil
}

// candidates returns every match for price, ignoring StrictSingleMatch.
func (r *RuleEngine) candidates(tx *gorm.DB, price decimal.Decimal) ([]TreatmentMatch, error) {
	treatments, err := r.treatments(tx)
	if err != nil {
		return nil, err
	}

	var direct, coincidental []TreatmentMatch
	for _, t := range treatments {
		m, ok := r.matchOne(t, price)
		if !ok {
			continue
		}
		if m.Coincidental {
			coincidental = append(coincidental, m)
		} else {
			direct = append(direct, m)
		}
	}
	return append(append([]TreatmentMatch{}, direct...), coincidental...), nil
}

func (r *RuleEngine) matchOne(t models.Treatment, price decimal.Decimal) (TreatmentMatch, bool) {
	m := TreatmentMatch{Treatment: t}
	switch {
	case price.Equal(t.PeakPrice):
		m.IsPeak = true
		return m, true
	case price.Equal(t.NonPeakPrice):
		return m, true
	}

	if !r.policy.NeckSurcharge.IsPositive() {
		return m, false
	}
	switch {
	case price.Equal(t.PeakPrice.Add(r.policy.NeckSurcharge)):
		m.IsPeak = true
	case price.Equal(t.NonPeakPrice.Add(r.policy.NeckSurcharge)):
	default:
		return m, false
	}
	m.NeckPrice = t.Name == r.policy.NeckTreatment
	m.Coincidental = !m.NeckPrice
	return m, true
}

// CheckDuplicate returns customers with exactly this name and contact method, oldest first.
func (r *RuleEngine) CheckDuplicate(ctx context.Context, name, contact string) ([]models.Customer, error) {
	return r.checkDuplicate(r.db.WithContext(ctx), name, contact)
}

func (r *RuleEngine) checkDuplicate(tx *gorm.DB, name, contact string) ([]models.Customer, error) {
	var customers []models.Customer
	err := tx.Where("name = ? AND contact_method = ?", name, contact).
		Order("created_at ASC").
		Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate customer: %w", err)
	}
	return customers, nil
}

// SuggestNames returns distinct customer names starting with prefix, alphabetically.
// Prefixes shorter than two characters yield nothing.
func (r *RuleEngine) SuggestNames(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	names := []string{}
	if utf8.RuneCountInString(prefix) < 2 {
		return names, nil
	}
	err := r.db.WithContext(ctx).Model(&models.Customer{}).
		Where(`name LIKE ? ESCAPE '\'`, utils.EscapeLike(prefix)+"%").
		Distinct().
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to suggest names: %w", err)
	}
	return names, nil
}

// AvailableMonths lists every YYYY-MM holding a treatment or an expense, newest first.
func (r *RuleEngine) AvailableMonths(ctx context.Context) ([]string, error) {
	months := []string{}
	err := r.db.WithContext(ctx).Raw(`
		SELECT strftime('%Y-%m', treatment_date) AS month FROM customer_treatments
		UNION
		SELECT strftime('%Y-%m', expense_date) AS month FROM expenses
		ORDER BY month DESC
	`).Scan(&months).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list months: %w", err)
	}
	return months, nil
}

// RemainingSessions reports the customer's most recently bought package of the
// package treatment and the sessions left on it. It returns nil for any other
// treatment and when there is no package.
func (r *RuleEngine) RemainingSessions(ctx context.Context, customerID uuid.UUID, treatmentName string) (*PackageStatus, error) {
	return r.remainingSessions(r.db.WithContext(ctx), customerID, treatmentName)
}

func (r *RuleEngine) remainingSessions(tx *gorm.DB, customerID uuid.UUID, treatmentName string) (*PackageStatus, error) {
	if treatmentName != r.policy.PackageTreatment {
		return nil, nil
	}

	var purchases []models.CustomerTreatment
	err := tx.Where("customer_id = ? AND package_id IS NOT NULL AND price > 0", customerID).
		Where("treatment_id = (SELECT id FROM treatments WHERE name = ?)", treatmentName).
		Order("treatment_date DESC, package_id DESC").
		Limit(1).
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load package purchase: %w", err)
	}
	if len(purchases) == 0 {
		return nil, nil
	}
	purchase := purchases[0]

	// Sessions may be entered out of date order, so the lowest counter of the
	// package is the current one.
	var remaining int
	err = tx.Model(&models.CustomerTreatment{}).
		Select("MIN(remaining_sessions)").
		Where("customer_id = ? AND package_id = ?", customerID, *purchase.PackageID).
		Scan(&remaining).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load package sessions: %w", err)
	}

	return &PackageStatus{
		RecordID:          purchase.ID,
		PackageID:         *purchase.PackageID,
		RemainingSessions: remaining,
		TreatmentID:       purchase.TreatmentID,
		TreatmentDate:     purchase.TreatmentDate,
	}, nil
}

// CheckRetouchEligibility finds the paid source treatment in [date-window, date)
// that has not granted a retouch yet, most recent first. Nil means not eligible.
func (r *RuleEngine) CheckRetouchEligibility(ctx context.Context, customerID uuid.UUID, date time.Time) (*models.CustomerTreatment, error) {
	return r.checkRetouchEligibility(r.db.WithContext(ctx), customerID, date)
}

func (r *RuleEngine) checkRetouchEligibility(tx *gorm.DB, customerID uuid.UUID, date time.Time) (*models.CustomerTreatment, error) {
	if len(r.policy.RetouchSources) == 0 {
		return nil, nil
	}
	end := utils.DateOnly(date)
	start := end.AddDate(0, 0, -r.policy.RetouchWindowDays)

	var sources []models.CustomerTreatment
	err := tx.Table("customer_treatments AS ct").
		Select("ct.*").
		Joins("JOIN treatments t ON t.id = ct.treatment_id").
		Where("ct.customer_id = ? AND t.name IN ? AND ct.price > 0", customerID, r.policy.RetouchSources).
		Where("ct.treatment_date >= ? AND ct.treatment_date < ?", start, end).
		Where("NOT EXISTS (SELECT 1 FROM customer_treatments rt WHERE rt.retouch_parent_id = ct.id)").
		Order("ct.treatment_date DESC, ct.created_at DESC").
		Limit(1).
		Find(&sources).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check retouch eligibility: %w", err)
	}
	if len(sources) == 0 {
		r.metrics.IncRetouchCheck("not_eligible")
		return nil, nil
	}
	r.metrics.IncRetouchCheck("eligible")
	return &sources[0], nil
}
