// Package config loads gestionale settings through viper.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// DefaultYAML is used when no config file is found on disk.
const DefaultYAML = `
database:
  path: gestionale.db
  password: ""
postgres:
  url: ""
  timeout: 300
log:
  level: info
  format: console
  time_format: "2006-01-02T15:04:05Z07:00"
  output: stderr
server:
  port: "8080"
alerts:
  giorni_incassi: 7
  giorni_pagamenti: 3
  giorni_anticipi: 5
  soglia_fido: "0.90"
license:
  file: licenze.json
  secret: "GESTIONALE-STUDIO-2024-SECRET"
  modules:
    - BANCHE
    - BILANCIO
    - CIRCOLARI
    - TODO
circolari:
  dir: circolari
security:
  master_password: ""
  password_suffix: ".pwd"
`

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	License   LicenseConfig   `mapstructure:"license"`
	Circolari CircolariConfig `mapstructure:"circolari"`
	Security  SecurityConfig  `mapstructure:"security"`
}

type DatabaseConfig struct {
	Path     string `mapstructure:"path"`
	Password string `mapstructure:"password"`
}

type PostgresConfig struct {
	URL     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
	Output     string `mapstructure:"output"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// AlertsConfig holds the lookahead windows (in days) and the fido usage threshold.
type AlertsConfig struct {
	GiorniIncassi   int    `mapstructure:"giorni_incassi"`
	GiorniPagamenti int    `mapstructure:"giorni_pagamenti"`
	GiorniAnticipi  int    `mapstructure:"giorni_anticipi"`
	SogliaFido      string `mapstructure:"soglia_fido"`
}

type LicenseConfig struct {
	File    string   `mapstructure:"file"`
	Secret  string   `mapstructure:"secret"`
	Modules []string `mapstructure:"modules"`
}

type CircolariConfig struct {
	Dir string `mapstructure:"dir"`
}

type SecurityConfig struct {
	MasterPassword string `mapstructure:"master_password"`
	PasswordSuffix string `mapstructure:"password_suffix"`
}

// Init points viper at the config file (or the default search path) and
// falls back to DefaultYAML when nothing is found.
func Init(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.SetConfigName(".gestionale")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("GESTIONALE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewBufferString(DefaultYAML)); err != nil {
			return fmt.Errorf("failed to load embedded configuration: %w", err)
		}
	}
	return nil
}

// Load unmarshals the viper state into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration described by DefaultYAML.
func Default() *Config {
	v := viper.New()
	v.SetConfigType("yaml")
	_ = v.ReadConfig(bytes.NewBufferString(DefaultYAML))
	cfg, err := Load(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.License.Secret == "" {
		return fmt.Errorf("license.secret is required")
	}
	if c.Alerts.GiorniIncassi < 0 || c.Alerts.GiorniPagamenti < 0 || c.Alerts.GiorniAnticipi < 0 {
		return fmt.Errorf("alerts windows must not be negative")
	}
	if _, err := decimal.NewFromString(c.Alerts.SogliaFido); err != nil {
		return fmt.Errorf("alerts.soglia_fido: %w", err)
	}
	return nil
}

// SogliaFido returns the fido usage ratio above which an alert fires.
func (c *Config) SogliaFido() decimal.Decimal {
	return decimal.RequireFromString(c.Alerts.SogliaFido)
}

// PasswordFile is the path of the encryption marker stored next to the database.
func (c *Config) PasswordFile() string {
	suffix := c.Security.PasswordSuffix
	if suffix == "" {
		suffix = ".pwd"
	}
	return c.Database.Path + suffix
}

// CircolariDir resolves the archive directory relative to the database location.
func (c *Config) CircolariDir() string {
	if filepath.IsAbs(c.Circolari.Dir) {
		return c.Circolari.Dir
	}
	return filepath.Join(filepath.Dir(c.Database.Path), c.Circolari.Dir)
}

// LoggerConfig maps the log section onto logger.LogConfig.
func (c *Config) LoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		TimeFormat: c.Log.TimeFormat,
		Output:     c.Log.Output,
	}
}
