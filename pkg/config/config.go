package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	xdgAppName = "qplan"
	configFile = "config.yaml"

	// DefaultSpreadsheet is the title of the shared planning spreadsheet.
	DefaultSpreadsheet = "Quarterly Planning Data"
)

type Config struct {
	Spreadsheet SpreadsheetConfig `mapstructure:"spreadsheet"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Server      ServerConfig      `mapstructure:"server"`
	Capacity    CapacityConfig    `mapstructure:"capacity"`
	Pending     PendingConfig     `mapstructure:"pending"`
	Departments []string          `mapstructure:"departments"`
	Clients     []string          `mapstructure:"clients"`
}

type SpreadsheetConfig struct {
	// Title is used to look the spreadsheet up through Drive when ID is empty.
	Title          string `mapstructure:"title"`
	ID             string `mapstructure:"id"`
	JiraSheet      string `mapstructure:"jira_sheet"`
	AnalyticsSheet string `mapstructure:"analytics_sheet"`
}

type CredentialsConfig struct {
	// ServiceAccount is a path to a service-account JSON key. When set it
	// takes precedence over the interactive OAuth flow.
	ServiceAccount string `mapstructure:"service_account"`
	ClientSecrets  string `mapstructure:"client_secrets"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// CapacityConfig holds the default head count and working days per team.
type CapacityConfig struct {
	People int `mapstructure:"people"`
	Days   int `mapstructure:"days"`
}

type PendingConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

func Default() *Config {
	return &Config{
		Spreadsheet: SpreadsheetConfig{
			Title:          DefaultSpreadsheet,
			JiraSheet:      "csv",
			AnalyticsSheet: "Analytics",
		},
		Server:   ServerConfig{Addr: ":8501"},
		Capacity: CapacityConfig{People: 5, Days: 21},
		Pending:  PendingConfig{TTL: 24 * time.Hour},
		Departments: []string{
			"Data Platform", "BI", "ML", "DA", "DE", "Data Ops", "WAS",
		},
		Clients: []string{
			"Data Department", "Partners", "Global Admin Panel", "Betting", "Casino", "Finance Core",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	d := Default()
	viper.SetDefault("spreadsheet.title", d.Spreadsheet.Title)
	viper.SetDefault("spreadsheet.id", d.Spreadsheet.ID)
	viper.SetDefault("spreadsheet.jira_sheet", d.Spreadsheet.JiraSheet)
	viper.SetDefault("spreadsheet.analytics_sheet", d.Spreadsheet.AnalyticsSheet)
	viper.SetDefault("credentials.service_account", d.Credentials.ServiceAccount)
	viper.SetDefault("credentials.client_secrets", d.Credentials.ClientSecrets)
	viper.SetDefault("server.addr", d.Server.Addr)
	viper.SetDefault("capacity.people", d.Capacity.People)
	viper.SetDefault("capacity.days", d.Capacity.Days)
	viper.SetDefault("pending.ttl", d.Pending.TTL)
	viper.SetDefault("departments", d.Departments)
	viper.SetDefault("clients", d.Clients)
}

// Load unmarshals the global viper state into a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Spreadsheet.Title == "" && c.Spreadsheet.ID == "" {
		errs = append(errs, errors.New("spreadsheet.title or spreadsheet.id must be set"))
	}
	if len(c.Departments) == 0 {
		errs = append(errs, errors.New("departments must not be empty"))
	}
	if len(c.Clients) == 0 {
		errs = append(errs, errors.New("clients must not be empty"))
	}
	if c.Capacity.People < 1 || c.Capacity.People > 100 {
		errs = append(errs, fmt.Errorf("capacity.people must be between 1 and 100, got %d", c.Capacity.People))
	}
	if c.Capacity.Days < 1 || c.Capacity.Days > 60 {
		errs = append(errs, fmt.Errorf("capacity.days must be between 1 and 60, got %d", c.Capacity.Days))
	}
	if c.Pending.TTL <= 0 {
		errs = append(errs, fmt.Errorf("pending.ttl must be positive, got %s", c.Pending.TTL))
	}
	return errors.Join(errs...)
}

// Dir returns the per-user config directory, honouring XDG_CONFIG_HOME.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, xdgAppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Save persists a single key to the config file, keeping whatever else the
// file already holds.
func Save(path, key string, value any) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
