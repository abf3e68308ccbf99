package config

import (
	"path/filepath"
	"testing"
)

func TestConnectDBReturnsIndependentHandles(t *testing.T) {
	dir := t.TempDir()
	open := func(name string) *Config {
		cfg := Default()
		cfg.DBPath = filepath.Join(dir, name)
		return cfg
	}

	first, err := ConnectDB(open("first.db"))
	if err != nil {
		t.Fatalf("connect first: %v", err)
	}
	defer CloseDB(first)
	second, err := ConnectDB(open("second.db"))
	if err != nil {
		t.Fatalf("connect second: %v", err)
	}
	defer CloseDB(second)

	if err := first.Exec("CREATE TABLE marker (id INTEGER)").Error; err != nil {
		t.Fatal(err)
	}
	if !first.Migrator().HasTable("marker") {
		t.Fatal("first store lost its table")
	}
	if second.Migrator().HasTable("marker") {
		t.Fatal("second store sees the first store's table")
	}

	var fk int
	if err := second.Raw("PRAGMA foreign_keys").Scan(&fk).Error; err != nil || fk != 1 {
		t.Fatalf("foreign_keys = %d, %v", fk, err)
	}
}
