package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds everything the backend needs at startup.
type Config struct {
	DBPath         string         `mapstructure:"db_path"`
	ListenAddr     string         `mapstructure:"listen_addr"`
	LogLevel       string         `mapstructure:"log_level"`
	ExportDir      string         `mapstructure:"export_dir"`
	ExportSchedule string         `mapstructure:"export_schedule"`
	AllowedOrigins []string       `mapstructure:"allowed_origins"`
	Tracing        bool           `mapstructure:"tracing"`
	Policy         Policy         `mapstructure:"policy"`
	Catalog        []CatalogEntry `mapstructure:"catalog"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		DBPath:         "secret_time.db",
		ListenAddr:     "127.0.0.1:8080",
		LogLevel:       "info",
		ExportDir:      "exports",
		ExportSchedule: "0 23 * * *",
		AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		Policy:         DefaultPolicy(),
		Catalog:        DefaultCatalog(),
	}
}

// Load reads .env, an optional config.yaml and SECRETTIME_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		GetLogger().Info("No .env file found")
	}

	cfg := Default()
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("SECRETTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("export_dir", cfg.ExportDir)
	v.SetDefault("export_schedule", cfg.ExportSchedule)
	v.SetDefault("allowed_origins", cfg.AllowedOrigins)
	v.SetDefault("tracing", cfg.Tracing)
	v.SetDefault("policy.strict_single_match", cfg.Policy.StrictSingleMatch)

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the rule engine cannot work with.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must be set")
	}
	p := c.Policy
	if p.PackageSessions < 1 {
		return fmt.Errorf("policy.package_sessions must be positive, got %d", p.PackageSessions)
	}
	if p.RetouchWindowDays < 1 {
		return fmt.Errorf("policy.retouch_window_days must be positive, got %d", p.RetouchWindowDays)
	}
	if p.NeckSurcharge.IsNegative() {
		return errors.New("policy.neck_surcharge must not be negative")
	}
	names := make(map[string]bool, len(c.Catalog))
	for _, e := range c.Catalog {
		if e.Name == "" {
			return errors.New("catalog entry without a name")
		}
		if names[e.Name] {
			return fmt.Errorf("catalog entry %q listed twice", e.Name)
		}
		names[e.Name] = true
	}
	for _, required := range []string{p.NeckTreatment, p.PackageTreatment, p.RetouchTreatment} {
		if !names[required] {
			return fmt.Errorf("policy refers to %q which is not in the catalog", required)
		}
	}
	return nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decodeHook turns YAML/env scalars into decimals and comma lists into slices.
func decodeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to == decimalType {
		switch v := data.(type) {
		case string:
			return decimal.NewFromString(strings.TrimSpace(v))
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case float64:
			return decimal.NewFromFloat(v), nil
		}
		return data, nil
	}
	if from.Kind() == reflect.String && to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.String {
		raw := data.(string)
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
	return data, nil
}
