package services

import (
	"context"
	"fmt"
	"time"

	"secrettime-backend/models"
	"secrettime-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const topCustomerLimit = 10

type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

type CustomerRank struct {
	CustomerID uuid.UUID       `json:"customerId"`
	Name       string          `json:"name"`
	Visits     int             `json:"visits"`
	Total      decimal.Decimal `json:"total"`
}

type TreatmentShare struct {
	Name    string          `json:"name"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Snapshot is everything the dashboard shows for one month.
type Snapshot struct {
	Month         string           `json:"month"`
	IncomeTrend   []MonthTotal     `json:"incomeTrend"`
	ExpenseTrend  []MonthTotal     `json:"expenseTrend"`
	TopCustomers  []CustomerRank   `json:"topCustomers"`
	Distribution  []TreatmentShare `json:"distribution"`
	MonthIncome   decimal.Decimal  `json:"monthIncome"`
	MonthExpenses decimal.Decimal  `json:"monthExpenses"`
	NetIncome     decimal.Decimal  `json:"netIncome"`
}

// ReportService only reads, so it never takes the store mutex.
type ReportService struct {
	db    *gorm.DB
	rules *RuleEngine
}

func NewReportService(db *gorm.DB, rules *RuleEngine) *ReportService {
	return &ReportService{db: db, rules: rules}
}

// Snapshot builds the dashboard for month (YYYY-MM). An empty month means the
// latest month with data, or the current month when there is none.
func (s *ReportService) Snapshot(ctx context.Context, month string) (*Snapshot, error) {
	if month == "" {
		months, err := s.rules.AvailableMonths(ctx)
		if err != nil {
			return nil, err
		}
		if len(months) > 0 {
			month = months[0]
		} else {
			month = time.Now().UTC().Format(utils.MonthLayout)
		}
	}
	start, err := utils.ParseMonth(month)
	if err != nil {
		return nil, invalid(ErrInvalidInput, "%s", err.Error())
	}
	end := start.AddDate(0, 1, 0)

	snap := &Snapshot{Month: month}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var rows []MonthTotal
		err := s.db.WithContext(gctx).Model(&models.CustomerTreatment{}).
			Select("strftime('%Y-%m', treatment_date) AS month, COALESCE(SUM(price), 0) AS total").
			Group("month").
			Order("month ASC").
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("failed to load income trend: %w", err)
		}
		snap.IncomeTrend = rows
		return nil
	})

	g.Go(func() error {
		var rows []MonthTotal
		err := s.db.WithContext(gctx).Model(&models.Expense{}).
			Select("strftime('%Y-%m', expense_date) AS month, COALESCE(SUM(amount), 0) AS total").
			Group("month").
			Order("month ASC").
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("failed to load expense trend: %w", err)
		}
		snap.ExpenseTrend = rows
		return nil
	})

	g.Go(func() error {
		var rows []CustomerRank
		err := s.db.WithContext(gctx).Table("customer_treatments AS ct").
			Select("c.id AS customer_id, c.name, COUNT(ct.id) AS visits, COALESCE(SUM(ct.price), 0) AS total").
			Joins("JOIN customers c ON c.id = ct.customer_id").
			Where("ct.treatment_date >= ? AND ct.treatment_date < ?", start, end).
			Group("c.id, c.name").
			Order("total DESC, visits DESC, c.name ASC").
			Limit(topCustomerLimit).
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("failed to load top customers: %w", err)
		}
		snap.TopCustomers = rows
		return nil
	})

	g.Go(func() error {
		var rows []TreatmentShare
		err := s.db.WithContext(gctx).Table("customer_treatments AS ct").
			Select("t.name, COUNT(ct.id) AS count, COALESCE(SUM(ct.price), 0) AS revenue").
			Joins("JOIN treatments t ON t.id = ct.treatment_id").
			Where("ct.treatment_date >= ? AND ct.treatment_date < ?", start, end).
			Group("t.id, t.name, t.sort_order").
			Order("count DESC, t.sort_order ASC").
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("failed to load treatment distribution: %w", err)
		}
		snap.Distribution = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.MonthIncome = totalFor(snap.IncomeTrend, month)
	snap.MonthExpenses = totalFor(snap.ExpenseTrend, month)
	snap.NetIncome = snap.MonthIncome.Sub(snap.MonthExpenses)
	return snap, nil
}

// SnapshotAsync runs Snapshot in the background.
func (s *ReportService) SnapshotAsync(ctx context.Context, month string) *Task[*Snapshot] {
	return Go(ctx, func(ctx context.Context) (*Snapshot, error) {
		return s.Snapshot(ctx, month)
	})
}

func totalFor(rows []MonthTotal, month string) decimal.Decimal {
	for _, r := range rows {
		if r.Month == month {
			return r.Total
		}
	}
	return decimal.Zero
}
