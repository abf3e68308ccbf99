package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"secrettime-backend/config"
	"secrettime-backend/metrics"
	"secrettime-backend/models"
	"secrettime-backend/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecordInput is one visit as entered at the counter.
type RecordInput struct {
	// Either an existing customer or a name and contact method.
	CustomerID    *uuid.UUID `json:"customerId"`
	Name          string     `json:"name" validate:"required_without=CustomerID,max=100"`
	ContactMethod string     `json:"contactMethod" validate:"required_without=CustomerID,max=50"`
	UniqueMark    string     `json:"uniqueMark" validate:"max=20"`

	TreatmentDate time.Time       `json:"treatmentDate" validate:"required"`
	Price         decimal.Decimal `json:"price"`

	// TreatmentName picks one candidate when the price matches several.
	TreatmentName string `json:"treatmentName"`
	// IsPeak overrides the tier derived from the price.
	IsPeak *bool `json:"isPeak"`

	Retouch        bool `json:"retouch"`
	PackageSession bool `json:"packageSession"`
}

type RecordResult struct {
	Record           models.CustomerTreatment `json:"record"`
	Customer         models.Customer          `json:"customer"`
	Treatment        models.Treatment         `json:"treatment"`
	Kind             models.RecordKind        `json:"kind"`
	CustomerCreated  bool                     `json:"customerCreated"`
	PackageCompleted bool                     `json:"packageCompleted"`
}

type RecordService struct {
	db       *gorm.DB
	mu       *sync.Mutex
	rules    *RuleEngine
	metrics  metrics.SalonMetrics
	validate *validator.Validate
}

func NewRecordService(db *gorm.DB, mu *sync.Mutex, rules *RuleEngine, m metrics.SalonMetrics) *RecordService {
	if m == nil {
		m = metrics.Noop()
	}
	return &RecordService{
		db:       db,
		mu:       mu,
		rules:    rules,
		metrics:  m,
		validate: validator.New(),
	}
}

// Record stores one visit. It resolves the customer, then grants a retouch,
// draws a package session or charges by price. Nothing is written on error.
func (s *RecordService) Record(ctx context.Context, in RecordInput) (*RecordResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, invalid(ErrInvalidInput, "%s", err.Error())
	}
	if in.Retouch && in.PackageSession {
		return nil, invalid(ErrInvalidInput, "a visit cannot be both a retouch and a package session")
	}
	if in.Price.IsNegative() {
		return nil, invalid(ErrInvalidInput, "price cannot be negative")
	}
	in.TreatmentDate = utils.DateOnly(in.TreatmentDate)

	s.mu.Lock()
	defer s.mu.Unlock()

	var result *RecordResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, created, err := s.resolveCustomer(tx, in)
		if err != nil {
			return err
		}

		var res *RecordResult
		switch {
		case in.Retouch:
			res, err = s.grantRetouch(tx, customer, in)
		case in.PackageSession:
			res, err = s.drawSession(tx, customer, in)
		default:
			res, err = s.charge(tx, customer, in)
		}
		if err != nil {
			return err
		}
		res.Customer = *customer
		res.CustomerCreated = created
		res.Kind = res.Record.Kind()
		result = res
		return nil
	})
	if err != nil {
		var dup *DuplicateCustomerError
		if !IsValidation(err) && !errors.As(err, &dup) {
			config.LogError(config.GetLogger(), "services", "Record", "record treatment", in, err)
		}
		return nil, err
	}

	s.metrics.IncTreatmentRecorded(string(result.Kind))
	return result, nil
}

func (s *RecordService) resolveCustomer(tx *gorm.DB, in RecordInput) (*models.Customer, bool, error) {
	if in.CustomerID != nil {
		var customer models.Customer
		if err := tx.Take(&customer, "id = ?", *in.CustomerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, false, invalid(ErrUnknownCustomer, "%s", in.CustomerID.String())
			}
			return nil, false, fmt.Errorf("failed to load customer: %w", err)
		}
		return &customer, false, nil
	}

	policy := s.rules.Policy()
	name := strings.TrimSpace(in.Name)
	contact, ok := policy.NormalizeContactMethod(in.ContactMethod)
	if !ok {
		return nil, false, invalid(ErrInvalidInput, "unknown contact method %q", in.ContactMethod)
	}

	storedName := name
	mark := strings.TrimSpace(in.UniqueMark)
	if mark != "" {
		storedName = utils.ComposeMarkedName(name, mark)
	}

	existing, err := s.rules.checkDuplicate(tx, storedName, contact)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		return nil, false, &DuplicateCustomerError{Name: storedName, ContactMethod: contact, Candidates: existing}
	}

	customer := models.Customer{Name: storedName, ContactMethod: contact, UniqueMark: mark}
	if err := tx.Create(&customer).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create customer: %w", err)
	}
	return &customer, true, nil
}

// charge books a paid visit, minting a package when the treatment is sold as one.
func (s *RecordService) charge(tx *gorm.DB, customer *models.Customer, in RecordInput) (*RecordResult, error) {
	if !in.Price.IsPositive() {
		return nil, invalid(ErrZeroPrice, "use the retouch or package session option for free visits")
	}

	match, err := s.pickMatch(tx, in)
	if err != nil {
		return nil, err
	}

	policy := s.rules.Policy()
	record := models.CustomerTreatment{
		CustomerID:            customer.ID,
		TreatmentID:           match.Treatment.ID,
		TreatmentDate:         in.TreatmentDate,
		IsPeak:                match.IsPeak,
		NeckTreatment:         match.NeckPrice,
		Price:                 in.Price,
		RemainingRetouchCount: 1,
	}
	if match.Treatment.HasRemainingSessions {
		packageID, err := nextPackageID(tx)
		if err != nil {
			return nil, err
		}
		record.PackageID = &packageID
		record.RemainingSessions = policy.PackageSessions - 1
	}

	if err := tx.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create treatment record: %w", err)
	}
	return &RecordResult{Record: record, Treatment: match.Treatment}, nil
}

func (s *RecordService) pickMatch(tx *gorm.DB, in RecordInput) (*TreatmentMatch, error) {
	name := strings.TrimSpace(in.TreatmentName)

	// A named treatment is looked up among all candidates, strict mode or not.
	var (
		matches []TreatmentMatch
		err     error
	)
	if name != "" {
		matches, err = s.rules.candidates(tx, in.Price)
	} else {
		matches, err = s.rules.matchTreatment(tx, in.Price)
	}
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, invalid(ErrNoPriceMatch, "%s", in.Price.String())
	}

	var chosen *TreatmentMatch
	if name != "" {
		for i := range matches {
			if matches[i].Treatment.Name == name {
				chosen = &matches[i]
				break
			}
		}
		if chosen == nil {
			return nil, &ValidationError{
				Err:        ErrNoPriceMatch,
				Detail:     fmt.Sprintf("%s is not charged %s", name, in.Price.String()),
				Candidates: matches,
			}
		}
	} else {
		var legit []int
		for i := range matches {
			if !matches[i].Coincidental {
				legit = append(legit, i)
			}
		}
		switch len(legit) {
		case 0:
			return nil, &ValidationError{Err: ErrNeckNotAllowed, Detail: in.Price.String(), Candidates: matches}
		case 1:
			chosen = &matches[legit[0]]
		default:
			return nil, &ValidationError{Err: ErrAmbiguousPrice, Detail: in.Price.String(), Candidates: matches}
		}
	}

	if chosen.Coincidental {
		return nil, invalid(ErrNeckNotAllowed, "%s", chosen.Treatment.Name)
	}
	if in.IsPeak != nil && *in.IsPeak != chosen.IsPeak {
		m, ok := s.matchTier(chosen.Treatment, in.Price, *in.IsPeak)
		if !ok {
			return nil, invalid(ErrNoPriceMatch, "%s is not the %s price of %s", in.Price.String(), tierName(*in.IsPeak), chosen.Treatment.Name)
		}
		chosen = m
	}
	return chosen, nil
}

// matchTier checks price against one tier of t, with or without the add-on.
func (s *RecordService) matchTier(t models.Treatment, price decimal.Decimal, peak bool) (*TreatmentMatch, bool) {
	policy := s.rules.Policy()
	base := t.NonPeakPrice
	if peak {
		base = t.PeakPrice
	}
	m := &TreatmentMatch{Treatment: t, IsPeak: peak}
	switch {
	case price.Equal(base):
		return m, true
	case price.Equal(base.Add(policy.NeckSurcharge)) && t.Name == policy.NeckTreatment:
		m.NeckPrice = true
		return m, true
	}
	return nil, false
}

func tierName(peak bool) string {
	if peak {
		return "peak"
	}
	return "non-peak"
}

// drawSession books a prepaid session against the customer's latest package.
func (s *RecordService) drawSession(tx *gorm.DB, customer *models.Customer, in RecordInput) (*RecordResult, error) {
	policy := s.rules.Policy()
	name := strings.TrimSpace(in.TreatmentName)
	if name == "" {
		name = policy.PackageTreatment
	}
	if name != policy.PackageTreatment {
		return nil, invalid(ErrInvalidInput, "%s is not sold as a package", name)
	}
	if !in.Price.IsZero() {
		return nil, invalid(ErrInvalidInput, "package sessions are prepaid; price must be 0")
	}

	status, err := s.rules.remainingSessions(tx, customer.ID, name)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, invalid(ErrNoActivePackage, "%s", customer.Name)
	}
	if status.RemainingSessions <= 0 {
		return nil, invalid(ErrPackageExhausted, "package %d", status.PackageID)
	}
	if in.TreatmentDate.Before(status.TreatmentDate) {
		return nil, invalid(ErrInvalidInput, "package %d was bought on %s, after %s",
			status.PackageID, status.TreatmentDate.Format("2006-01-02"), in.TreatmentDate.Format("2006-01-02"))
	}

	treatment, err := s.rules.treatmentByName(tx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load package treatment: %w", err)
	}

	packageID := status.PackageID
	record := models.CustomerTreatment{
		CustomerID:            customer.ID,
		TreatmentID:           treatment.ID,
		TreatmentDate:         in.TreatmentDate,
		IsPeak:                in.IsPeak != nil && *in.IsPeak,
		PackageID:             &packageID,
		RemainingSessions:     status.RemainingSessions - 1,
		Price:                 decimal.Zero,
		RemainingRetouchCount: 1,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create package session: %w", err)
	}
	return &RecordResult{
		Record:           record,
		Treatment:        *treatment,
		PackageCompleted: record.RemainingSessions == 0,
	}, nil
}

// grantRetouch books a free follow-up and consumes the grantor's credit.
func (s *RecordService) grantRetouch(tx *gorm.DB, customer *models.Customer, in RecordInput) (*RecordResult, error) {
	if !in.Price.IsZero() {
		return nil, invalid(ErrInvalidInput, "retouches are free; price must be 0")
	}

	grantor, err := s.rules.checkRetouchEligibility(tx, customer.ID, in.TreatmentDate)
	if err != nil {
		return nil, err
	}
	if grantor == nil {
		return nil, invalid(ErrNotEligible, "%s on %s", customer.Name, in.TreatmentDate.Format("2006-01-02"))
	}

	treatment, err := s.rules.treatmentByName(tx, s.rules.Policy().RetouchTreatment)
	if err != nil {
		return nil, fmt.Errorf("failed to load retouch treatment: %w", err)
	}

	if err := tx.Model(&models.CustomerTreatment{}).
		Where("id = ?", grantor.ID).
		Update("remaining_retouch_count", 0).Error; err != nil {
		return nil, fmt.Errorf("failed to consume retouch credit: %w", err)
	}

	parentID := grantor.ID
	record := models.CustomerTreatment{
		CustomerID:            customer.ID,
		TreatmentID:           treatment.ID,
		TreatmentDate:         in.TreatmentDate,
		IsPeak:                in.IsPeak != nil && *in.IsPeak,
		Price:                 decimal.Zero,
		RetouchParentID:       &parentID,
		RemainingRetouchCount: 0,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create retouch: %w", err)
	}
	return &RecordResult{Record: record, Treatment: *treatment}, nil
}

func nextPackageID(tx *gorm.DB) (int, error) {
	var maxID int
	if err := tx.Model(&models.CustomerTreatment{}).
		Select("COALESCE(MAX(package_id), 0)").
		Scan(&maxID).Error; err != nil {
		return 0, fmt.Errorf("failed to mint package id: %w", err)
	}
	return maxID + 1, nil
}
