package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"secrettime-backend/config"
	"secrettime-backend/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	expenseSheet  = "Expenses"
	customerSheet = "Customers"
)

// ExportService dumps expenses and customer summaries to a spreadsheet.
type ExportService struct {
	db        *gorm.DB
	customers *CustomerService
}

func NewExportService(db *gorm.DB, customers *CustomerService) *ExportService {
	return &ExportService{db: db, customers: customers}
}

// ExportFileName is the workbook name for an export taken at now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("secret_time_%s.xlsx", now.Format("20060102_150405"))
}

// ExportAll writes a timestamped workbook into dir and returns its path.
func (s *ExportService) ExportAll(ctx context.Context, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	path := filepath.Join(dir, ExportFileName(now))
	if err := s.WriteWorkbook(ctx, path); err != nil {
		return "", err
	}
	config.GetLogger().WithField("path", path).Info("export written")
	return path, nil
}

// ExportAsync runs ExportAll in the background.
func (s *ExportService) ExportAsync(ctx context.Context, dir string, now time.Time) *Task[string] {
	return Go(ctx, func(ctx context.Context) (string, error) {
		return s.ExportAll(ctx, dir, now)
	})
}

func (s *ExportService) WriteWorkbook(ctx context.Context, path string) error {
	var expenses []models.Expense
	if err := s.db.WithContext(ctx).Order("expense_date DESC, created_at DESC").Find(&expenses).Error; err != nil {
		return fmt.Errorf("failed to load expenses for export: %w", err)
	}
	summaries, err := s.customers.List(ctx, "")
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", expenseSheet); err != nil {
		return fmt.Errorf("failed to name expense sheet: %w", err)
	}
	rows := make([][]interface{}, 0, len(expenses))
	for _, e := range expenses {
		amount, _ := e.Amount.Float64()
		rows = append(rows, []interface{}{e.ExpenseDate.Format("2006-01-02"), e.Category, amount, e.Description})
	}
	if err := writeSheet(f, expenseSheet, []string{"Date", "Category", "Amount", "Description"}, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(customerSheet); err != nil {
		return fmt.Errorf("failed to add customer sheet: %w", err)
	}
	rows = rows[:0]
	for _, c := range summaries {
		total, _ := c.TotalSpent.Float64()
		rows = append(rows, []interface{}{c.Name, c.ContactMethod, c.UniqueMark, c.Visits, total})
	}
	if err := writeSheet(f, customerSheet, []string{"Name", "Contact", "Mark", "Visits", "Total Spent"}, rows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headings []string, rows [][]interface{}) error {
	for col, h := range headings {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write %s heading: %w", sheet, err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
