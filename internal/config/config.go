package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"norne/internal/backtest"
	"norne/internal/calendar"
	"norne/internal/domain"
	"norne/internal/strategy"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for norne.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Backtest BacktestConfig `yaml:"backtest"`
	Universe UniverseConfig `yaml:"universe"`
	Strategy StrategyConfig `yaml:"strategy"`
	Search   SearchConfig   `yaml:"search"`
	Market   MarketConfig   `yaml:"market"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`

	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BacktestConfig holds the run parameters shared by backtests and searches.
type BacktestConfig struct {
	Start          string  `yaml:"start"`
	End            string  `yaml:"end"`
	InitialCapital float64 `yaml:"initial_capital"`
	Allocation     float64 `yaml:"allocation"`
	Exchange       string  `yaml:"exchange"`
	FillMode       string  `yaml:"fill_mode"`
	RFAnnual       float64 `yaml:"rf_annual"`

	// Calendar selects the trading calendar: "weekday", "sqlite" or
	// "alpaca".
	Calendar string `yaml:"calendar"`
}

// Price sources for the universe.
const (
	SourceCSV     = "csv"
	SourceParquet = "parquet"
	SourceAlpaca  = "alpaca"
)

// Calendar sources.
const (
	CalendarWeekday = "weekday"
	CalendarSQLite  = "sqlite"
	CalendarAlpaca  = "alpaca"
)

// UniverseConfig lists the instruments to load and where their prices
// come from.
type UniverseConfig struct {
	Source      string             `yaml:"source"`
	Dir         string             `yaml:"dir"`
	Instruments []InstrumentConfig `yaml:"instruments"`
}

// InstrumentConfig is one universe member. File is relative to the
// universe dir for the csv source; an empty exchange inherits the
// backtest's.
type InstrumentConfig struct {
	ID       string `yaml:"id" json:"id"`
	File     string `yaml:"file" json:"file,omitempty"`
	Exchange string `yaml:"exchange" json:"exchange,omitempty"`
}

// StrategyConfig selects a registered strategy and its parameters.
type StrategyConfig struct {
	Type            string `yaml:"type" json:"type"`
	strategy.Params `yaml:",inline"`
}

// SearchConfig defines a parameter search.
type SearchConfig struct {
	Parameter  string    `yaml:"parameter"`
	Candidates []float64 `yaml:"candidates"`
	Workers    int       `yaml:"workers"`
}

// MarketConfig points at the market index and risk-free yield exports used
// for CAPM.
type MarketConfig struct {
	IndexFile string `yaml:"index_file"`
	YieldFile string `yaml:"yield_file"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/norne.db",
		},
		Server: Server{
			Host:     "0.0.0.0",
			Port:     8080,
			GRPCPort: 9090,
		},
		Alpaca: Alpaca{
			BaseURL:         "https://paper-api.alpaca.markets",
			DataURL:         "https://data.alpaca.markets",
			Feed:            "iex",
			RateLimitPerMin: 200,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Backtest: BacktestConfig{
			InitialCapital: 1_000_000,
			Allocation:     0.1,
			Exchange:       string(domain.ExchangeOSE),
			FillMode:       string(calendar.FillAlign),
			RFAnnual:       0.03,
			Calendar:       CalendarWeekday,
		},
		Universe: UniverseConfig{
			Source: SourceCSV,
			Dir:    "data/raw",
		},
		Strategy: StrategyConfig{
			Type:   "threshold",
			Params: strategy.Params{Entry: 2},
		},
		Search: SearchConfig{
			Parameter:  "entry",
			Candidates: []float64{0, 1, 2, 3},
			Workers:    1,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// ResolvePath returns flagPath when set, otherwise $NORNE_CONFIG.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return os.Getenv("NORNE_CONFIG")
}

// Load reads the YAML configuration file at the given path over the
// defaults, and then applies environment variable overrides. An empty path
// loads the defaults alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority, the names the SDK reads).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks the backtest section eagerly, before any data is loaded.
// Problems are reported as *backtest.ConfigError.
func (c *Config) Validate() error {
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	if _, err := calendar.ParseFillMode(c.Backtest.FillMode); err != nil {
		return &backtest.ConfigError{Field: "fill_mode", Value: c.Backtest.FillMode, Reason: err.Error()}
	}
	switch c.Backtest.Calendar {
	case "", CalendarWeekday, CalendarSQLite, CalendarAlpaca:
	default:
		return &backtest.ConfigError{Field: "calendar", Value: c.Backtest.Calendar, Reason: "must be weekday, sqlite or alpaca"}
	}
	switch c.Universe.Source {
	case "", SourceCSV, SourceParquet, SourceAlpaca:
	default:
		return &backtest.ConfigError{Field: "universe.source", Value: c.Universe.Source, Reason: "must be csv, parquet or alpaca"}
	}
	if c.Search.Workers < 0 {
		return &backtest.ConfigError{Field: "search.workers", Value: c.Search.Workers, Reason: "must not be negative"}
	}
	return nil
}

// EngineConfig converts the backtest section into an engine configuration.
func (c *Config) EngineConfig() (backtest.Config, error) {
	start, err := parseDate("start", c.Backtest.Start)
	if err != nil {
		return backtest.Config{}, err
	}
	end, err := parseDate("end", c.Backtest.End)
	if err != nil {
		return backtest.Config{}, err
	}
	ec := backtest.Config{
		Start:          start,
		End:            end,
		InitialCapital: c.Backtest.InitialCapital,
		Allocation:     c.Backtest.Allocation,
	}
	if err := ec.Validate(); err != nil {
		return backtest.Config{}, err
	}
	return ec, nil
}

// Exchange returns the instrument's exchange, falling back to the
// backtest's.
func (c *Config) Exchange(in InstrumentConfig) domain.Exchange {
	if in.Exchange != "" {
		return domain.Exchange(strings.ToUpper(in.Exchange))
	}
	return domain.Exchange(strings.ToUpper(c.Backtest.Exchange))
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, &backtest.ConfigError{Field: field, Value: s, Reason: "want YYYY-MM-DD"}
	}
	return t, nil
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	var ce *backtest.ConfigError
	return errors.As(err, &ce)
}
