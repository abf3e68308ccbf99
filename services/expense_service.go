package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"secrettime-backend/models"
	"secrettime-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseInput carries the amount as typed so "1,200" and "$300" are accepted.
type ExpenseInput struct {
	Date        time.Time `json:"date"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
}

// ExpenseRow is an expense with the net income of its day.
type ExpenseRow struct {
	models.Expense
	NetIncome decimal.Decimal `json:"netIncome"`
}

type ExpenseService struct {
	db    *gorm.DB
	mu    *sync.Mutex
	rules *RuleEngine
}

func NewExpenseService(db *gorm.DB, mu *sync.Mutex, rules *RuleEngine) *ExpenseService {
	return &ExpenseService{db: db, mu: mu, rules: rules}
}

func (s *ExpenseService) parse(in ExpenseInput) (*models.Expense, error) {
	if in.Date.IsZero() {
		return nil, invalid(ErrInvalidInput, "date is required")
	}
	category := strings.TrimSpace(in.Category)
	if !s.rules.Policy().ValidExpenseCategory(category) {
		return nil, invalid(ErrInvalidInput, "unknown expense category %q", in.Category)
	}
	amount, err := utils.ParseAmount(in.Amount)
	if err != nil {
		return nil, invalid(ErrInvalidInput, "%s", err.Error())
	}
	if !amount.IsPositive() {
		return nil, invalid(ErrInvalidInput, "amount must be greater than zero")
	}
	return &models.Expense{
		ExpenseDate: utils.DateOnly(in.Date),
		Category:    category,
		Amount:      amount,
		Description: strings.TrimSpace(in.Description),
	}, nil
}

func (s *ExpenseService) Create(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	expense, err := s.parse(in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.WithContext(ctx).Create(expense).Error; err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	return expense, nil
}

func (s *ExpenseService) Update(ctx context.Context, id uuid.UUID, in ExpenseInput) (*models.Expense, error) {
	changes, err := s.parse(in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var expense models.Expense
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&expense, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to load expense %s: %w", id, err)
		}
		expense.ExpenseDate = changes.ExpenseDate
		expense.Category = changes.Category
		expense.Amount = changes.Amount
		expense.Description = changes.Description
		if err := tx.Save(&expense).Error; err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Expense{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete expense: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("expense %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// List returns expenses newest first, for one YYYY-MM month or all when month is empty.
// NetIncome is the treatment income of the expense's day minus all expenses of that day.
func (s *ExpenseService) List(ctx context.Context, month string) ([]ExpenseRow, error) {
	db := s.db.WithContext(ctx)
	query := db.Order("expense_date DESC, created_at DESC")
	if month != "" {
		start, err := utils.ParseMonth(month)
		if err != nil {
			return nil, invalid(ErrInvalidInput, "%s", err.Error())
		}
		query = query.Where("expense_date >= ? AND expense_date < ?", start, start.AddDate(0, 1, 0))
	}

	var expenses []models.Expense
	if err := query.Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	rows := make([]ExpenseRow, 0, len(expenses))
	if len(expenses) == 0 {
		return rows, nil
	}

	spent := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		day := e.ExpenseDate.Format("2006-01-02")
		spent[day] = spent[day].Add(e.Amount)
	}

	earliest := expenses[len(expenses)-1].ExpenseDate
	latest := expenses[0].ExpenseDate
	var income []struct {
		Day   string
		Total decimal.Decimal
	}
	if err := db.Model(&models.CustomerTreatment{}).
		Select("date(treatment_date) AS day, COALESCE(SUM(price), 0) AS total").
		Where("treatment_date >= ? AND treatment_date < ?", earliest, latest.AddDate(0, 0, 1)).
		Group("day").
		Scan(&income).Error; err != nil {
		return nil, fmt.Errorf("failed to load daily income: %w", err)
	}
	earned := make(map[string]decimal.Decimal, len(income))
	for _, i := range income {
		earned[i.Day] = i.Total
	}

	for _, e := range expenses {
		day := e.ExpenseDate.Format("2006-01-02")
		rows = append(rows, ExpenseRow{
			Expense:   e,
			NetIncome: earned[day].Sub(spent[day]),
		})
	}
	return rows, nil
}
