package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"secrettime-backend/config"
	"secrettime-backend/models"
	"secrettime-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CustomerSummary is a customer row with lifetime totals.
type CustomerSummary struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	ContactMethod string          `json:"contactMethod"`
	UniqueMark    string          `json:"uniqueMark"`
	Visits        int             `json:"visits"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
}

// HistoryEntry is one visit of a customer with the treatment name resolved.
type HistoryEntry struct {
	models.CustomerTreatment
	TreatmentName string            `json:"treatmentName"`
	Kind          models.RecordKind `json:"kind"`
	// RetouchAvailable is set on paid source visits whose free follow-up is unused.
	RetouchAvailable bool `json:"retouchAvailable"`
}

type CustomerUpdate struct {
	Name          string `json:"name"`
	ContactMethod string `json:"contactMethod"`
	UniqueMark    string `json:"uniqueMark"`
}

type CustomerService struct {
	db    *gorm.DB
	mu    *sync.Mutex
	rules *RuleEngine
}

func NewCustomerService(db *gorm.DB, mu *sync.Mutex, rules *RuleEngine) *CustomerService {
	return &CustomerService{db: db, mu: mu, rules: rules}
}

// List returns customers alphabetically, optionally filtered by a name fragment.
func (s *CustomerService) List(ctx context.Context, search string) ([]CustomerSummary, error) {
	query := s.db.WithContext(ctx).
		Table("customers AS c").
		Select(`c.id, c.name, c.contact_method, c.unique_mark,
			COUNT(ct.id) AS visits,
			COALESCE(SUM(ct.price), 0) AS total_spent`).
		Joins("LEFT JOIN customer_treatments ct ON ct.customer_id = c.id").
		Group("c.id, c.name, c.contact_method, c.unique_mark").
		Order("c.name ASC, c.created_at ASC")

	if search = strings.TrimSpace(search); search != "" {
		query = query.Where(`c.name LIKE ? ESCAPE '\'`, "%"+utils.EscapeLike(search)+"%")
	}

	summaries := []CustomerSummary{}
	if err := query.Scan(&summaries).Error; err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return summaries, nil
}

func (s *CustomerService) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).Take(&customer, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load customer %s: %w", id, err)
	}
	return &customer, nil
}

// History returns every visit of the customer, newest first.
func (s *CustomerService) History(ctx context.Context, id uuid.UUID) ([]HistoryEntry, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	treatments, err := s.rules.treatments(db)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(treatments))
	for _, t := range treatments {
		names[t.ID] = t.Name
	}

	var records []models.CustomerTreatment
	if err := db.Where("customer_id = ?", id).
		Order("treatment_date DESC, created_at DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	policy := s.rules.Policy()
	history := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		name := names[r.TreatmentID]
		history = append(history, HistoryEntry{
			CustomerTreatment: r,
			TreatmentName:     name,
			Kind:              r.Kind(),
			RetouchAvailable:  policy.IsRetouchSource(name) && r.Price.IsPositive() && r.RemainingRetouchCount > 0,
		})
	}
	return history, nil
}

// Update renames a customer or changes the contact method, keeping (name, contact) unique.
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, in CustomerUpdate) (*models.Customer, error) {
	contact, ok := s.rules.Policy().NormalizeContactMethod(in.ContactMethod)
	if !ok {
		return nil, invalid(ErrInvalidInput, "unknown contact method %q", in.ContactMethod)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid(ErrInvalidInput, "name is required")
	}
	mark := strings.TrimSpace(in.UniqueMark)

	s.mu.Lock()
	defer s.mu.Unlock()

	var customer models.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&customer, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to load customer %s: %w", id, err)
		}

		// Callers may send the stored "name(mark)" back unchanged.
		stored := utils.ComposeMarkedName(utils.BaseName(name, mark), mark)

		existing, err := s.rules.checkDuplicate(tx, stored, contact)
		if err != nil {
			return err
		}
		others := existing[:0]
		for _, c := range existing {
			if c.ID != customer.ID {
				others = append(others, c)
			}
		}
		if len(others) > 0 {
			return &DuplicateCustomerError{Name: stored, ContactMethod: contact, Candidates: others}
		}

		customer.Name = stored
		customer.ContactMethod = contact
		customer.UniqueMark = mark
		customer.UpdatedAt = time.Now().UTC()
		if err := tx.Model(&customer).Select("name", "contact_method", "unique_mark", "updated_at").
			Updates(&customer).Error; err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// Delete removes a customer and the whole treatment history.
func (s *CustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.Take(&customer, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to load customer %s: %w", id, err)
		}

		if err := tx.Exec(`
			UPDATE customer_treatments SET retouch_parent_id = NULL
			WHERE retouch_parent_id IN (SELECT id FROM customer_treatments WHERE customer_id = ?)
		`, id).Error; err != nil {
			return fmt.Errorf("failed to detach retouches: %w", err)
		}
		if err := tx.Where("customer_id = ?", id).Delete(&models.CustomerTreatment{}).Error; err != nil {
			return fmt.Errorf("failed to delete treatment history: %w", err)
		}
		if err := tx.Delete(&customer).Error; err != nil {
			return fmt.Errorf("failed to delete customer: %w", err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		config.LogError(config.GetLogger(), "services", "CustomerService.Delete", "delete customer", id, err)
	}
	return err
}
