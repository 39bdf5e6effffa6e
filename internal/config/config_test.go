package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
exchange:
  name: binance
  api_key: key
  api_secret: secret
trading:
  symbols: [BTCUSDT, ETHUSDT]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Exchange.QuoteAsset != "USDT" {
		t.Errorf("expected default quote asset USDT, got %q", cfg.Exchange.QuoteAsset)
	}
	if cfg.Trading.Interval != "5m" || cfg.Trading.CandleLimit != 100 {
		t.Errorf("unexpected candle defaults: %+v", cfg.Trading)
	}
	if cfg.Trading.CycleSeconds != 60 || cfg.Trading.EntryThreshold != 55 {
		t.Errorf("unexpected cycle defaults: %+v", cfg.Trading)
	}
	if cfg.Trading.MaxPositionSizePercent != 5 || cfg.Trading.MinNotionalUSD != 10 {
		t.Errorf("unexpected sizing defaults: %+v", cfg.Trading)
	}
	if cfg.Server.Port != 8080 || cfg.Storage.Path != "bot.db" || cfg.Logging.Level != "info" {
		t.Errorf("unexpected infra defaults: %+v", cfg)
	}
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
exchange:
  api_key: key
  api_secret: secret
  quote_asset: USDC
trading:
  symbols: [BTCUSDC]
  cycle_seconds: 30
  entry_threshold: 70
  max_position_size_percent: 2.5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Exchange.QuoteAsset != "USDC" {
		t.Errorf("expected USDC, got %q", cfg.Exchange.QuoteAsset)
	}
	if cfg.Trading.CycleSeconds != 30 || cfg.Trading.EntryThreshold != 70 {
		t.Errorf("explicit values overwritten: %+v", cfg.Trading)
	}
	if cfg.Trading.MaxPositionSizePercent != 2.5 {
		t.Errorf("expected 2.5, got %f", cfg.Trading.MaxPositionSizePercent)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing api key", func(c *Config) { c.Exchange.APIKey = "" }, true},
		{"missing api secret", func(c *Config) { c.Exchange.APISecret = "" }, true},
		{"no symbols", func(c *Config) { c.Trading.Symbols = nil }, true},
		{"blank symbol", func(c *Config) { c.Trading.Symbols = []string{"BTCUSDT", ""} }, true},
		{"position size too large", func(c *Config) { c.Trading.MaxPositionSizePercent = 150 }, true},
		{"negative stop loss", func(c *Config) { c.Trading.StopLossPercent = -1 }, true},
		{"threshold out of range", func(c *Config) { c.Trading.EntryThreshold = 101 }, true},
		{"zero cycle", func(c *Config) { c.Trading.CycleSeconds = 0 }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{}
			cfg.Exchange.APIKey = "key"
			cfg.Exchange.APISecret = "secret"
			cfg.Trading.Symbols = []string{"BTCUSDT"}
			cfg.applyDefaults()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
