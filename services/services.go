package services

import (
	"sync"

	"secrettime-backend/config"
	"secrettime-backend/metrics"

	"gorm.io/gorm"
)

// Services wires every service to one store and one write mutex.
type Services struct {
	Rules     *RuleEngine
	Records   *RecordService
	Customers *CustomerService
	Expenses  *ExpenseService
	Imports   *ImportService
	Reports   *ReportService
	Exports   *ExportService
}

func New(db *gorm.DB, cfg *config.Config, m metrics.SalonMetrics) *Services {
	if m == nil {
		m = metrics.Noop()
	}
	mu := &sync.Mutex{}
	rules := NewRuleEngine(db, cfg.Policy, m)
	customers := NewCustomerService(db, mu, rules)

	return &Services{
		Rules:     rules,
		Records:   NewRecordService(db, mu, rules, m),
		Customers: customers,
		Expenses:  NewExpenseService(db, mu, rules),
		Imports:   NewImportService(db, mu, rules, m),
		Reports:   NewReportService(db, rules),
		Exports:   NewExportService(db, customers),
	}
}
