// services/scheduler.go
package services

import (
	"context"
	"time"

	"secrettime-backend/config"

	"github.com/robfig/cron/v3"
)

const (
	importSweepSchedule = "@every 15m"
	staleImportAge      = time.Hour
)

// Scheduler runs the nightly export and the stale import sweep.
type Scheduler struct {
	cron           *cron.Cron
	exports        *ExportService
	imports        *ImportService
	exportDir      string
	exportSchedule string
}

func NewScheduler(cfg *config.Config, exports *ExportService, imports *ImportService) *Scheduler {
	logger := cron.PrintfLogger(config.GetLogger())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		exports:        exports,
		imports:        imports,
		exportDir:      cfg.ExportDir,
		exportSchedule: cfg.ExportSchedule,
	}
}

func (s *Scheduler) StartScheduler() error {
	if s.exportSchedule != "" {
		if _, err := s.cron.AddFunc(s.exportSchedule, s.RunNightlyExport); err != nil {
			return err
		}
	}
	if _, err := s.cron.AddFunc(importSweepSchedule, s.SweepImports); err != nil {
		return err
	}

	s.cron.Start()
	config.GetLogger().WithField("exportSchedule", s.exportSchedule).Info("Scheduler started")
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) RunNightlyExport() {
	log := config.GetLogger()
	log.Info("Starting nightly export...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	path, err := s.exports.ExportAll(ctx, s.exportDir, time.Now())
	if err != nil {
		config.LogError(log, "services", "RunNightlyExport", "nightly export", s.exportDir, err)
		return
	}
	log.WithField("path", path).Info("Nightly export completed")
}

func (s *Scheduler) SweepImports() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.imports.SweepStaleImports(ctx, staleImportAge); err != nil {
		config.LogError(config.GetLogger(), "services", "SweepImports", "sweep stale imports", nil, err)
	}
}
