package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Trading  TradingConfig  `yaml:"trading"`
	Discord  DiscordConfig  `yaml:"discord"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
}

type ExchangeConfig struct {
	Name         string `yaml:"name"`
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	RESTEndpoint string `yaml:"rest_endpoint"`
	QuoteAsset   string `yaml:"quote_asset"`
}

type TradingConfig struct {
	Symbols                []string `yaml:"symbols"`
	Interval               string   `yaml:"interval"`
	CandleLimit            int      `yaml:"candle_limit"`
	CycleSeconds           int      `yaml:"cycle_seconds"`
	MaxPositionSizePercent float64  `yaml:"max_position_size_percent"`
	StopLossPercent        float64  `yaml:"stop_loss_percent"`
	TakeProfitPercent      float64  `yaml:"take_profit_percent"`
	MinNotionalUSD         float64  `yaml:"min_notional_usd"`
	EntryThreshold         int      `yaml:"entry_threshold"`
	HeatFloor              int      `yaml:"heat_floor"`
}

type DiscordConfig struct {
	WebhookTrading      string `yaml:"webhook_trading"`
	WebhookErrors       string `yaml:"webhook_errors"`
	WebhookDailySummary string `yaml:"webhook_daily_summary"`
	DailySummaryTime    string `yaml:"daily_summary_time"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Exchange.QuoteAsset == "" {
		c.Exchange.QuoteAsset = "USDT"
	}
	if c.Trading.Interval == "" {
		c.Trading.Interval = "5m"
	}
	if c.Trading.CandleLimit == 0 {
		c.Trading.CandleLimit = 100
	}
	if c.Trading.CycleSeconds == 0 {
		c.Trading.CycleSeconds = 60
	}
	if c.Trading.MaxPositionSizePercent == 0 {
		c.Trading.MaxPositionSizePercent = 5
	}
	if c.Trading.StopLossPercent == 0 {
		c.Trading.StopLossPercent = 2
	}
	if c.Trading.TakeProfitPercent == 0 {
		c.Trading.TakeProfitPercent = 4
	}
	if c.Trading.MinNotionalUSD == 0 {
		c.Trading.MinNotionalUSD = 10
	}
	if c.Trading.EntryThreshold == 0 {
		c.Trading.EntryThreshold = 55
	}
	if c.Trading.HeatFloor == 0 {
		c.Trading.HeatFloor = 10
	}
	if c.Discord.DailySummaryTime == "" {
		c.Discord.DailySummaryTime = "10:00"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "bot.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate reports configuration faults that must abort startup.
func (c *Config) Validate() error {
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return fmt.Errorf("exchange api_key and api_secret are required")
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols must not be empty")
	}
	for _, s := range c.Trading.Symbols {
		if s == "" {
			return fmt.Errorf("trading.symbols contains an empty symbol")
		}
	}
	if c.Trading.MaxPositionSizePercent <= 0 || c.Trading.MaxPositionSizePercent > 100 {
		return fmt.Errorf("trading.max_position_size_percent must be in (0, 100], got %.2f", c.Trading.MaxPositionSizePercent)
	}
	if c.Trading.StopLossPercent <= 0 || c.Trading.TakeProfitPercent <= 0 {
		return fmt.Errorf("stop_loss_percent and take_profit_percent must be positive")
	}
	if c.Trading.EntryThreshold < 0 || c.Trading.EntryThreshold > 100 {
		return fmt.Errorf("trading.entry_threshold must be in [0, 100], got %d", c.Trading.EntryThreshold)
	}
	if c.Trading.CycleSeconds < 1 {
		return fmt.Errorf("trading.cycle_seconds must be at least 1, got %d", c.Trading.CycleSeconds)
	}
	return nil
}
