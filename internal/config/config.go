// Package config
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

/*
YAML config example:
db_conn_str: "host=localhost port=5432 user=postgres dbname=finpipe sslmode=disable"
mode: "signals"
symbols: ["AAPL", "MSFT", "SPY"]
fred_series: ["FEDFUNDS", "CPIAUCSL", "UNRATE"]
initial_capital: 10000
commission_per_trade: 1.0
strategy: "rsi-reversion"
telegram_token: "..."
telegram_chat_id: "..."
*/

type Config struct {
	DBConnStr           string        `yaml:"db_conn_str"`
	DBMaxOpen           int           `yaml:"db_max_open"`
	DBMaxIdle           int           `yaml:"db_max_idle"`
	Mode                string        `yaml:"mode"`
	Symbols             []string      `yaml:"symbols"`
	FredSeries          []string      `yaml:"fred_series"`
	From                time.Time     `yaml:"from"`
	To                  time.Time     `yaml:"to"`
	Strategy            string        `yaml:"strategy"`
	InitialCapital      float64       `yaml:"initial_capital"`
	CommissionPerTrade  float64       `yaml:"commission_per_trade"`
	TelegramToken       string        `yaml:"telegram_token"`
	TelegramChatID      string        `yaml:"telegram_chat_id"`
	NotificationRetries int           `yaml:"notification_retries"`
	NotificationDelay   time.Duration `yaml:"notification_delay"`
	SignalConfigPath    string        `yaml:"signal_config_path"`
	StrategyConfigPath  string        `yaml:"strategy_config_path"`
}

// Validate checks the loaded configuration for usable values.
func (c *Config) Validate() error {
	switch c.Mode {
	case "fetch", "indicators", "signals", "backtest", "alerts":
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital)
	}
	if c.CommissionPerTrade < 0 {
		return fmt.Errorf("commission per trade cannot be negative, got %v", c.CommissionPerTrade)
	}
	if !c.To.IsZero() && !c.From.IsZero() && c.To.Before(c.From) {
		return fmt.Errorf("date range end %s precedes start %s",
			c.To.Format("2006-01-02"), c.From.Format("2006-01-02"))
	}
	return nil
}

// MustLoadConfig parses flags, optionally replaced wholesale by a YAML file,
// and exits the process on invalid input.
func MustLoadConfig() Config {
	mode := flag.String("mode", "signals", "Mode: fetch, indicators, signals, backtest or alerts")
	symbolsFlag := flag.String("symbols", "SPY", "Comma-separated list of symbols")
	fredFlag := flag.String("fred-series", "", "Comma-separated list of FRED series ids to fetch")
	from := flag.String("from", time.Now().AddDate(-2, 0, 0).Format("2006-01-02"), "Start date (YYYY-MM-DD)")
	to := flag.String("to", time.Now().Format("2006-01-02"), "End date (YYYY-MM-DD)")
	strategyName := flag.String("strategy", "", "Strategy name for backtest mode")
	initialCapital := flag.Float64("initial-capital", 10000.0, "Starting capital for backtests")
	commission := flag.Float64("commission", 0.0, "Fixed commission per trade")
	telegramToken := flag.String("telegram-token", "", "Telegram bot token for notifications")
	telegramChatID := flag.String("telegram-chat", "", "Telegram chat ID for notifications")
	notificationRetries := flag.Int("notification-retries", 3, "Number of notification send attempts")
	notificationDelay := flag.Duration("notification-delay", 5*time.Second, "Delay between notification retries (e.g., 5s)")
	signalConfigPath := flag.String("signal-config", "", "Path to YAML signal threshold overrides")
	strategyConfigPath := flag.String("strategy-config", "", "Path to YAML strategy definitions")
	configFile := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			log.Fatalf("Failed to read config file: %v", err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			log.Fatalf("Failed to parse config file: %v", err)
		}
		applyDefaults(&fileCfg)
		if err := fileCfg.Validate(); err != nil {
			log.Fatalf("Invalid config file: %v", err)
		}
		return fileCfg
	}

	fromTime, err := time.Parse("2006-01-02", *from)
	if err != nil {
		log.Fatalf("Invalid -from date: %v", err)
	}
	toTime, err := time.Parse("2006-01-02", *to)
	if err != nil {
		log.Fatalf("Invalid -to date: %v", err)
	}

	cfg := Config{
		DBConnStr:           os.Getenv("DB_CONN_STR"),
		DBMaxOpen:           10,
		DBMaxIdle:           5,
		Mode:                *mode,
		Symbols:             splitList(*symbolsFlag),
		FredSeries:          splitList(*fredFlag),
		From:                fromTime,
		To:                  toTime,
		Strategy:            *strategyName,
		InitialCapital:      *initialCapital,
		CommissionPerTrade:  *commission,
		TelegramToken:       *telegramToken,
		TelegramChatID:      *telegramChatID,
		NotificationRetries: *notificationRetries,
		NotificationDelay:   *notificationDelay,
		SignalConfigPath:    *signalConfigPath,
		StrategyConfigPath:  *strategyConfigPath,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.DBMaxOpen == 0 {
		cfg.DBMaxOpen = 10
	}
	if cfg.DBMaxIdle == 0 {
		cfg.DBMaxIdle = 5
	}
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = 10000.0
	}
	if cfg.NotificationRetries == 0 {
		cfg.NotificationRetries = 3
	}
	if cfg.NotificationDelay == 0 {
		cfg.NotificationDelay = 5 * time.Second
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
