// Package config loads settings for the server and the hp CLI. Values come
// from built-in defaults, then an optional TOML file, then the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pocket-survival/internal/models"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Supported DATA_BACKEND values.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendSheets = "sheets"
)

var validBackends = []string{BackendSQLite, BackendFile, BackendMemory, BackendSheets}

type Config struct {
	Port           string `toml:"port"`
	DataBackend    string `toml:"data_backend"`
	DBPath         string `toml:"db_path"`
	CSVPath        string `toml:"csv_path"`
	MultiUser      bool   `toml:"multi_user"`
	DefaultCeiling string `toml:"default_ceiling"`
	Timezone       string `toml:"timezone"`
	TemplateDir    string `toml:"template_dir"`
	StaticDir      string `toml:"static_dir"`
	SecureCookie   bool   `toml:"secure_cookie"`
	LogLevel       string `toml:"log_level"`

	AMQPURL      string `toml:"amqp_url,omitempty"`
	AMQPExchange string `toml:"amqp_exchange,omitempty"`

	GoogleSpreadsheetID      string `toml:"google_spreadsheet_id,omitempty"`
	GoogleSheetName          string `toml:"google_sheet_name,omitempty"`
	GoogleServiceAccountFile string `toml:"google_service_account_file,omitempty"`
	// Secrets are read from the environment only.
	GoogleServiceAccountJSON string `toml:"-"`
	AdminUser                string `toml:"-"`
	AdminPassword            string `toml:"-"`
}

// Default returns the built-in configuration: a single-user SQLite ledger
// with a 5000 ceiling.
func Default() Config {
	return Config{
		Port:            "8080",
		DataBackend:     BackendSQLite,
		DBPath:          "./data/survival.db",
		CSVPath:         "./data/expenses.csv",
		DefaultCeiling:  "5000",
		Timezone:        "Local",
		TemplateDir:     "web/templates",
		StaticDir:       "web/static",
		LogLevel:        "info",
		AMQPExchange:    "pocket-survival",
		GoogleSheetName: "Expenses",
	}
}

// Dir returns the XDG config directory for pocket-survival.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pocket-survival")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pocket-survival")
}

// Path returns HP_CONFIG when set, otherwise config.toml under Dir.
func Path() string {
	if p := os.Getenv("HP_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.toml")
}

// Load reads .env (if present), the TOML file at Path and the environment.
// A missing TOML file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg, err := LoadFile(Default(), Path())
	if err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}

// LoadFile decodes the TOML file at path over base.
func LoadFile(base Config, path string) (Config, error) {
	cfg := base
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// ApplyEnv overrides cfg with any variables lookup finds.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("PORT", &cfg.Port)
	str("DATA_BACKEND", &cfg.DataBackend)
	str("DB_PATH", &cfg.DBPath)
	str("CSV_PATH", &cfg.CSVPath)
	boolean("MULTI_USER", &cfg.MultiUser)
	str("DEFAULT_CEILING", &cfg.DefaultCeiling)
	str("TIMEZONE", &cfg.Timezone)
	str("TEMPLATE_DIR", &cfg.TemplateDir)
	str("STATIC_DIR", &cfg.StaticDir)
	boolean("SECURE_COOKIE", &cfg.SecureCookie)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("AMQP_URL", &cfg.AMQPURL)
	str("AMQP_EXCHANGE", &cfg.AMQPExchange)
	str("GOOGLE_SPREADSHEET_ID", &cfg.GoogleSpreadsheetID)
	str("GOOGLE_SHEET_NAME", &cfg.GoogleSheetName)
	str("GOOGLE_SERVICE_ACCOUNT_FILE", &cfg.GoogleServiceAccountFile)
	str("GOOGLE_SERVICE_ACCOUNT_JSON", &cfg.GoogleServiceAccountJSON)
	str("ADMIN_USER", &cfg.AdminUser)
	str("ADMIN_PASSWORD", &cfg.AdminPassword)
}

// Validate checks every setting and reports all problems at once.
func (c Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	known := false
	for _, b := range validBackends {
		if c.DataBackend == b {
			known = true
		}
	}
	if !known {
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.DBPath == "" {
			problems = append(problems, "DB_PATH cannot be empty when using the sqlite backend")
		}
	case BackendFile:
		if c.CSVPath == "" {
			problems = append(problems, "CSV_PATH cannot be empty when using the file backend")
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			problems = append(problems, "GOOGLE_SPREADSHEET_ID is required when using the sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			problems = append(problems, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sheets backend")
		}
	}

	if c.MultiUser && c.DataBackend != BackendSQLite && c.DataBackend != BackendMemory {
		problems = append(problems, fmt.Sprintf("multi-user mode needs the sqlite or memory backend, not '%s'", c.DataBackend))
	}

	if _, err := c.Ceiling(); err != nil {
		problems = append(problems, fmt.Sprintf("invalid default ceiling '%s': %v", c.DefaultCeiling, err))
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Ceiling parses DefaultCeiling.
func (c Config) Ceiling() (decimal.Decimal, error) {
	return models.ParseCeiling(c.DefaultCeiling)
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Addr is the listen address for Port.
func (c Config) Addr() string { return ":" + c.Port }
