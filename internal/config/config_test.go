package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"norne/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "norne.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ALPACA_API_KEY", "ALPACA_API_SECRET", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
		"DATA_DIR", "SQLITE_PATH", "LOG_LEVEL", "NORNE_CONFIG",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/norne/data"
  sqlite_path: "/tmp/norne/norne.db"
server:
  host: "127.0.0.1"
  port: 8081
  grpc_port: 9091
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
logging:
  level: "debug"
  format: "text"
backtest:
  start: "2020-01-01"
  end: "2024-12-31"
  initial_capital: 100000
  allocation: 0.5
  exchange: "OSE"
  fill_mode: "raw"
universe:
  source: csv
  dir: "data/raw"
  instruments:
    - id: EQNR
      file: "EQNR Stock Price History.csv"
    - id: AAPL
      exchange: xnas
strategy:
  type: threshold
  windows: [50, 100, 200]
  entry: 2
  exit: 0
search:
  parameter: entry
  candidates: [1, 2]
  workers: 4
market:
  index_file: "OBX.csv"
  yield_file: "NO10Y.csv"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/norne/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/norne/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/norne/norne.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/norne/norne.db")
	}

	// -- Server --
	if cfg.Server.Port != 8081 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8081)
	}
	if cfg.Server.GRPCPort != 9091 {
		t.Errorf("Server.GRPCPort = %d, want %d", cfg.Server.GRPCPort, 9091)
	}

	// -- Alpaca (unset keys keep defaults) --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.Feed != "iex" {
		t.Errorf("Alpaca.Feed = %q, want %q", cfg.Alpaca.Feed, "iex")
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}

	// -- Backtest --
	if cfg.Backtest.Allocation != 0.5 {
		t.Errorf("Backtest.Allocation = %f, want %f", cfg.Backtest.Allocation, 0.5)
	}
	if cfg.Backtest.RFAnnual != 0.03 {
		t.Errorf("Backtest.RFAnnual = %f, want default %f", cfg.Backtest.RFAnnual, 0.03)
	}

	// -- Universe --
	if len(cfg.Universe.Instruments) != 2 {
		t.Fatalf("len(Universe.Instruments) = %d, want 2", len(cfg.Universe.Instruments))
	}
	if got := cfg.Exchange(cfg.Universe.Instruments[0]); got != domain.ExchangeOSE {
		t.Errorf("Exchange(EQNR) = %q, want %q", got, domain.ExchangeOSE)
	}
	if got := cfg.Exchange(cfg.Universe.Instruments[1]); got != domain.ExchangeNASDAQ {
		t.Errorf("Exchange(AAPL) = %q, want %q", got, domain.ExchangeNASDAQ)
	}

	// -- Strategy --
	if cfg.Strategy.Type != "threshold" {
		t.Errorf("Strategy.Type = %q, want %q", cfg.Strategy.Type, "threshold")
	}
	if len(cfg.Strategy.Windows) != 3 || cfg.Strategy.Windows[2] != 200 {
		t.Errorf("Strategy.Windows = %v, want [50 100 200]", cfg.Strategy.Windows)
	}
	if cfg.Strategy.Exit == nil || *cfg.Strategy.Exit != 0 {
		t.Errorf("Strategy.Exit = %v, want 0", cfg.Strategy.Exit)
	}

	// -- Search --
	if len(cfg.Search.Candidates) != 2 {
		t.Errorf("Search.Candidates = %v, want [1 2]", cfg.Search.Candidates)
	}
	if cfg.Search.Workers != 4 {
		t.Errorf("Search.Workers = %d, want %d", cfg.Search.Workers, 4)
	}

	// -- Market --
	if cfg.Market.YieldFile != "NO10Y.csv" {
		t.Errorf("Market.YieldFile = %q, want %q", cfg.Market.YieldFile, "NO10Y.csv")
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	ec, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig() returned error: %v", err)
	}
	if want := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC); !ec.End.Equal(want) {
		t.Errorf("EngineConfig().End = %v, want %v", ec.End, want)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q (env override)", cfg.Logging.Level, "warn")
	}

	// The SDK's canonical names win.
	t.Setenv("APCA_API_KEY_ID", "apca-key")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Alpaca.APIKey != "apca-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (APCA override)", cfg.Alpaca.APIKey, "apca-key")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
	if cfg.Backtest.InitialCapital != 1_000_000 {
		t.Errorf("Backtest.InitialCapital = %f, want %f", cfg.Backtest.InitialCapital, 1_000_000.0)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("NORNE_CONFIG", "/etc/norne.yaml")
	if got := ResolvePath("local.yaml"); got != "local.yaml" {
		t.Errorf("ResolvePath(flag) = %q, want %q", got, "local.yaml")
	}
	if got := ResolvePath(""); got != "/etc/norne.yaml" {
		t.Errorf("ResolvePath(\"\") = %q, want %q", got, "/etc/norne.yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"allocation zero", func(c *Config) { c.Backtest.Allocation = 0 }},
		{"allocation above one", func(c *Config) { c.Backtest.Allocation = 1.5 }},
		{"unknown fill mode", func(c *Config) { c.Backtest.FillMode = "ffill" }},
		{"bad start", func(c *Config) { c.Backtest.Start = "01/02/2020" }},
		{"end before start", func(c *Config) { c.Backtest.Start, c.Backtest.End = "2024-01-02", "2024-01-01" }},
		{"unknown calendar", func(c *Config) { c.Backtest.Calendar = "nyse" }},
		{"unknown source", func(c *Config) { c.Universe.Source = "s3" }},
		{"negative workers", func(c *Config) { c.Search.Workers = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !IsConfigError(err) {
				t.Errorf("Validate() = %v, want a config error", err)
			}
		})
	}
}

func TestExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "norne.example.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if got := len(cfg.Universe.Instruments); got != 5 {
		t.Errorf("len(Universe.Instruments) = %d, want 5", got)
	}
	if cfg.Strategy.Type != "threshold" || len(cfg.Strategy.Windows) != 3 {
		t.Errorf("Strategy = %+v, want threshold with 3 windows", cfg.Strategy)
	}
	if cfg.Search.Workers != 4 {
		t.Errorf("Search.Workers = %d, want 4", cfg.Search.Workers)
	}
}
