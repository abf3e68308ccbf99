package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"secrettime-backend/config"
	"secrettime-backend/models"
	"secrettime-backend/services"
)

func main() {
	var (
		file = flag.String("file", "", "Import file (reads stdin when empty)")
		db   = flag.String("db", "", "Database path (overrides db_path)")
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

	var in io.Reader = os.Stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.WithError(err).Fatal("Failed to open import file")
		}
		defer f.Close()
		in = f
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
	result, err := svc.Imports.Import(context.Background(), in)
	if err != nil {
		var lineErrs services.ParseErrors
		if errors.As(err, &lineErrs) {
			fmt.Fprintf(os.Stderr, "Import rejected, %d line(s) need fixing:\n", len(lineErrs))
			for _, le := range lineErrs {
				fmt.Fprintf(os.Stderr, "  line %d: %s\n    %s\n", le.LineNo, le.Reason, le.Text)
			}
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d records (batch %s), %d new customers\n",
		result.Record.RecordCount, result.Record.ID, result.CustomersCreated)
}
