package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"secrettime-backend/config"
	"secrettime-backend/models"
	"secrettime-backend/services"
)

func main() {
	var (
		out = flag.String("out", "", "Workbook path (default: timestamped file in export_dir)")
		db  = flag.String("db", "", "Database path (overrides db_path)")
	)
	flag.Parse()

	log := config.GetLogger()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	config.SetLogLevel(cfg.LogLevel)
	if *db != "" {
		cfg.DBPath = *db
	}

	conn, err := config.ConnectDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer config.CloseDB(conn)
	if err := models.Migrate(conn, cfg.Policy, cfg.Catalog); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}

	svc := services.New(conn, cfg, nil)
	ctx := context.Background()

	path := *out
	if path == "" {
		path, err = svc.Exports.ExportAll(ctx, cfg.ExportDir, time.Now())
	} else {
		err = svc.Exports.WriteWorkbook(ctx, path)
	}
	if err != nil {
		log.WithError(err).Fatal("Export failed")
	}
	fmt.Println(path)
}
