// Package config provides Viper-based configuration loading for the dice server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/diceengine/internal/dice"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode selects the frontends to run: "all", "telnet", or "grpc".
	Mode string `mapstructure:"mode"`
}

// ServesTelnet reports whether the Telnet frontend runs in this mode.
func (s ServerConfig) ServesTelnet() bool { return s.Mode == "all" || s.Mode == "telnet" }

// ServesGRPC reports whether the gRPC frontend runs in this mode.
func (s ServerConfig) ServesGRPC() bool { return s.Mode == "all" || s.Mode == "grpc" }

// DiceConfig holds the expression engine limits and analysis defaults.
type DiceConfig struct {
	MaxExprLen           int `mapstructure:"max_expr_len"`
	MaxTotalDice         int `mapstructure:"max_total_dice"`
	MaxDicePerTerm       int `mapstructure:"max_dice_per_term"`
	MaxSides             int `mapstructure:"max_sides"`
	MaxExactCombinations int `mapstructure:"max_exact_combinations"`
	MaxDistSize          int `mapstructure:"max_dist_size"`
	// DefaultSamples is used for Monte Carlo analysis when a request names none.
	DefaultSamples int `mapstructure:"default_samples"`
	// Seed makes rolls reproducible when non-zero. Zero selects crypto/rand.
	Seed uint64 `mapstructure:"seed"`
	// PresetsDir holds hit-point formula presets (*.yaml). Empty disables presets.
	PresetsDir string `mapstructure:"presets_dir"`
}

// Limits converts the configured limits for the engine.
//
// Postcondition: The returned Limits carries exactly the configured values.
func (d DiceConfig) Limits() dice.Limits {
	return dice.Limits{
		MaxExprLen:           d.MaxExprLen,
		MaxTotalDice:         d.MaxTotalDice,
		MaxDicePerTerm:       d.MaxDicePerTerm,
		MaxSides:             d.MaxSides,
		MaxExactCombinations: d.MaxExactCombinations,
		MaxDistSize:          d.MaxDistSize,
	}
}

// Source builds the randomness source selected by Seed.
func (d DiceConfig) Source() dice.Source {
	if d.Seed == 0 {
		return dice.NewCryptoSource()
	}
	return dice.NewSeededSource(d.Seed, d.Seed^0x9e3779b97f4a7c15)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int `mapstructure:"max_sessions"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// GRPCConfig holds the gRPC listener settings.
type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// MCPConfig holds the implementation metadata advertised by the MCP server.
type MCPConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// HistoryConfig selects the roll history backend.
type HistoryConfig struct {
	// Driver is one of "memory", "sqlite", or "postgres".
	Driver string `mapstructure:"driver"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `mapstructure:"sqlite_path"`
	// Capacity bounds the number of entries kept by the memory driver.
	Capacity int `mapstructure:"capacity"`
	// DefaultLimit is the number of entries returned when a caller asks for none.
	DefaultLimit int `mapstructure:"default_limit"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout", or a file path. Empty means stderr.
	Output string `mapstructure:"output"`
}

// TelemetryConfig toggles OpenTelemetry metrics and tracing.
type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	// Metrics enables the in-process meter provider.
	Metrics bool `mapstructure:"metrics"`
	// MetricsInterval is how often collected metrics are written to the log.
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
	// Tracing exports spans over OTLP/HTTP to OTLPEndpoint.
	Tracing      bool   `mapstructure:"tracing"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Dice      DiceConfig      `mapstructure:"dice"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telnet    TelnetConfig    `mapstructure:"telnet"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	History   HistoryConfig   `mapstructure:"history"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDice(c.Dice); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateHistory(c.History); err != nil {
		errs = append(errs, err.Error())
	}
	if c.History.Driver == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Server.ServesTelnet() {
		if err := validateTelnet(c.Telnet); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Server.ServesGRPC() {
		if err := validateGRPC(c.GRPC); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateTelemetry(c.Telemetry); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	validModes := map[string]bool{"all": true, "telnet": true, "grpc": true}
	if !validModes[s.Mode] {
		return fmt.Errorf("server.mode must be one of [all, telnet, grpc], got %q", s.Mode)
	}
	return nil
}

func validateDice(d DiceConfig) error {
	var errs []string
	if err := d.Limits().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if d.DefaultSamples < dice.MinSamples || d.DefaultSamples > dice.MaxSamples {
		errs = append(errs, fmt.Sprintf("dice.default_samples must be %d-%d, got %d",
			dice.MinSamples, dice.MaxSamples, d.DefaultSamples))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHistory(h HistoryConfig) error {
	var errs []string
	validDrivers := map[string]bool{"memory": true, "sqlite": true, "postgres": true}
	if !validDrivers[h.Driver] {
		errs = append(errs, fmt.Sprintf("history.driver must be one of [memory, sqlite, postgres], got %q", h.Driver))
	}
	if h.Driver == "sqlite" && h.SQLitePath == "" {
		errs = append(errs, "history.sqlite_path must not be empty for the sqlite driver")
	}
	if h.Capacity < 1 {
		errs = append(errs, fmt.Sprintf("history.capacity must be >= 1, got %d", h.Capacity))
	}
	if h.DefaultLimit < 1 {
		errs = append(errs, fmt.Sprintf("history.default_limit must be >= 1, got %d", h.DefaultLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if t.Port < 1 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 1-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if t.MaxSessions < 0 {
		errs = append(errs, "telnet.max_sessions must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGRPC(g GRPCConfig) error {
	var errs []string
	if g.Host == "" {
		errs = append(errs, "grpc.host must not be empty")
	}
	if g.Port < 1 || g.Port > 65535 {
		errs = append(errs, fmt.Sprintf("grpc.port must be 1-65535, got %d", g.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateTelemetry(t TelemetryConfig) error {
	var errs []string
	if (t.Metrics || t.Tracing) && t.ServiceName == "" {
		errs = append(errs, "telemetry.service_name must not be empty when telemetry is enabled")
	}
	if t.Metrics && t.MetricsInterval <= 0 {
		errs = append(errs, "telemetry.metrics_interval must be positive when metrics are enabled")
	}
	if t.Tracing && t.OTLPEndpoint == "" {
		errs = append(errs, "telemetry.otlp_endpoint must not be empty when tracing is enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// ErrNoConfigFile is returned by Load when path is empty.
var ErrNoConfigFile = errors.New("config file path must not be empty")

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, ErrNoConfigFile
	}
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadDefaults builds a Config from defaults and DICE_ environment overrides
// only. Command-line tools use it when no file is given.
//
// Postcondition: Returns a valid Config or a non-nil error.
func LoadDefaults() (Config, error) {
	return LoadFromViper(newViper())
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with DICE_ prefix
	v.SetEnvPrefix("DICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "all")

	lim := dice.DefaultLimits()
	v.SetDefault("dice.max_expr_len", lim.MaxExprLen)
	v.SetDefault("dice.max_total_dice", lim.MaxTotalDice)
	v.SetDefault("dice.max_dice_per_term", lim.MaxDicePerTerm)
	v.SetDefault("dice.max_sides", lim.MaxSides)
	v.SetDefault("dice.max_exact_combinations", lim.MaxExactCombinations)
	v.SetDefault("dice.max_dist_size", lim.MaxDistSize)
	v.SetDefault("dice.default_samples", dice.DefaultSamples)
	v.SetDefault("dice.seed", 0)
	v.SetDefault("dice.presets_dir", "configs/hp")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dice")
	v.SetDefault("database.password", "dice")
	v.SetDefault("database.name", "dice")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "5m")
	v.SetDefault("telnet.write_timeout", "30s")
	v.SetDefault("telnet.max_sessions", 64)

	v.SetDefault("grpc.host", "127.0.0.1")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("mcp.name", "diceengine")
	v.SetDefault("mcp.version", "v1.0.0")

	v.SetDefault("history.driver", "memory")
	v.SetDefault("history.sqlite_path", "dice-history.db")
	v.SetDefault("history.capacity", 1000)
	v.SetDefault("history.default_limit", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("telemetry.service_name", "diceengine")
	v.SetDefault("telemetry.metrics", false)
	v.SetDefault("telemetry.metrics_interval", "1m")
	v.SetDefault("telemetry.tracing", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
}
