package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/finpipe/finpipe/internal/alert"
	"github.com/finpipe/finpipe/internal/backtest"
	"github.com/finpipe/finpipe/internal/config"
	"github.com/finpipe/finpipe/internal/db"
	"github.com/finpipe/finpipe/internal/db/conf"
	"github.com/finpipe/finpipe/internal/fetch"
	"github.com/finpipe/finpipe/internal/indicator"
	"github.com/finpipe/finpipe/internal/notifier"
	"github.com/finpipe/finpipe/internal/pattern"
	"github.com/finpipe/finpipe/internal/price"
	sig "github.com/finpipe/finpipe/internal/signal"
	"github.com/finpipe/finpipe/internal/strategy"
)

func main() {
	cfg := config.MustLoadConfig()
	log.Println("Starting finpipe in mode:", cfg.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Printf("Received signal %v, shutting down...", s)
		cancel()
	}()

	storage, cleanup, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer cleanup()

	notif := buildNotifier(cfg)

	switch cfg.Mode {
	case "fetch":
		err = runFetch(ctx, cfg, storage)
	case "indicators":
		err = runIndicators(ctx, cfg, storage)
	case "signals":
		err = runSignals(ctx, cfg, storage, notif)
	case "backtest":
		err = runBacktest(ctx, cfg, storage)
	case "alerts":
		err = runAlerts(ctx, cfg, storage, notif)
	default:
		log.Fatalf("Unknown mode: %s", cfg.Mode)
	}
	if err != nil {
		log.Fatalf("Mode %s failed: %v", cfg.Mode, err)
	}
}

// openStorage connects to Postgres when a connection string is configured and
// falls back to the in-memory store otherwise.
func openStorage(cfg config.Config) (db.Storage, func(), error) {
	if cfg.DBConnStr == "" {
		log.Println("No DB connection string, using in-memory storage")
		return db.NewMemoryStorage(), func() {}, nil
	}

	dbConfig, err := conf.NewConfig(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create DB config: %w", err)
	}
	storage, err := db.New(*dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Println("Connected to Postgres")
	return storage, func() { dbConfig.DB.Close() }, nil
}

func buildNotifier(cfg config.Config) notifier.Notifier {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == "" {
		return nil
	}
	return &notifier.Retrier{
		N:       notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID),
		Retries: cfg.NotificationRetries,
		Delay:   cfg.NotificationDelay,
	}
}

// yahooRange maps a configured date range onto the chart API's range labels.
func yahooRange(from, to time.Time) string {
	if from.IsZero() || to.IsZero() {
		return "2y"
	}
	years := to.Sub(from).Hours() / (24 * 365)
	switch {
	case years <= 1:
		return "1y"
	case years <= 2:
		return "2y"
	case years <= 5:
		return "5y"
	case years <= 10:
		return "10y"
	default:
		return "max"
	}
}

func runFetch(ctx context.Context, cfg config.Config, storage db.Storage) error {
	yahoo := fetch.NewYahooClient()
	period := yahooRange(cfg.From, cfg.To)

	for _, symbol := range cfg.Symbols {
		points, err := yahoo.FetchPrices(ctx, symbol, period)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", symbol, err)
		}
		if err := storage.SaveSymbol(ctx, symbolRecord(symbol)); err != nil {
			return err
		}
		if err := storage.SavePrices(ctx, points); err != nil {
			return fmt.Errorf("save prices for %s: %w", symbol, err)
		}
		log.Printf("runFetch | Stored %d bars for %s", len(points), symbol)
	}

	if len(cfg.FredSeries) > 0 {
		fred := fetch.NewFredClient()
		for _, series := range cfg.FredSeries {
			points, err := fred.FetchSeries(ctx, series)
			if err != nil {
				return fmt.Errorf("fetch FRED %s: %w", series, err)
			}
			if err := storage.SaveMacroPoints(ctx, points); err != nil {
				return fmt.Errorf("save macro %s: %w", series, err)
			}
			log.Printf("runFetch | Stored %d observations for %s", len(points), series)
		}
	}
	return nil
}

func symbolRecord(ticker string) price.Symbol {
	return price.Symbol{Symbol: ticker, AssetClass: "equity", Currency: "USD"}
}

func runIndicators(ctx context.Context, cfg config.Config, storage db.Storage) error {
	for _, symbol := range cfg.Symbols {
		prices, err := storage.GetPrices(ctx, symbol)
		if err != nil {
			return fmt.Errorf("load prices for %s: %w", symbol, err)
		}
		if len(prices) == 0 {
			log.Printf("runIndicators | No prices stored for %s, skipping", symbol)
			continue
		}

		values := indicator.All(prices)
		if err := storage.SaveIndicatorValues(ctx, values); err != nil {
			return fmt.Errorf("save indicators for %s: %w", symbol, err)
		}
		log.Printf("runIndicators | Computed %d indicator values for %s over %d bars",
			len(values), symbol, len(prices))
	}
	return nil
}

func loadSignalConfig(path string) (sig.Config, error) {
	if path == "" {
		return sig.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sig.Config{}, fmt.Errorf("failed to read signal config: %w", err)
	}
	cfg := sig.DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return sig.Config{}, fmt.Errorf("failed to parse signal config: %w", err)
	}
	return cfg, nil
}

func runSignals(ctx context.Context, cfg config.Config, storage db.Storage, notif notifier.Notifier) error {
	sigCfg, err := loadSignalConfig(cfg.SignalConfigPath)
	if err != nil {
		return err
	}
	engine := sig.NewEngineWithConfig(sigCfg)

	for _, symbol := range cfg.Symbols {
		prices, err := storage.GetPrices(ctx, symbol)
		if err != nil {
			return fmt.Errorf("load prices for %s: %w", symbol, err)
		}
		if len(prices) == 0 {
			log.Printf("runSignals | No prices stored for %s, skipping", symbol)
			continue
		}

		values, err := storage.GetIndicatorValues(ctx, symbol)
		if err != nil {
			return fmt.Errorf("load indicators for %s: %w", symbol, err)
		}
		if len(values) == 0 {
			values = indicator.All(prices)
		}

		signals := engine.Generate(symbol, values, prices)
		if err := storage.SaveSignals(ctx, signals); err != nil {
			return fmt.Errorf("save signals for %s: %w", symbol, err)
		}
		log.Printf("runSignals | Generated %d signals for %s", len(signals), symbol)

		// candlestick annotations over the most recent bars, log only
		tail := prices
		if len(tail) > 10 {
			tail = tail[len(tail)-10:]
		}
		for _, m := range pattern.Detect(tail) {
			log.Printf("runSignals | Pattern %s (%s, strength %.2f) on %s at %s",
				m.Name, m.Direction, m.Strength, m.Symbol, m.Date.Format("2006-01-02"))
		}

		if notif != nil {
			for _, s := range signals {
				if err := notif.SendWithRetry(notifier.FormatSignal(s)); err != nil {
					log.Printf("runSignals | Notification failed: %v", err)
				}
			}
		}
	}
	return nil
}

// strategyFile is the YAML shape of -strategy-config.
type strategyFile struct {
	Strategies []strategy.Strategy `yaml:"strategies"`
}

func loadStrategy(ctx context.Context, cfg config.Config, storage db.Storage) (*strategy.Strategy, error) {
	if cfg.StrategyConfigPath != "" {
		data, err := os.ReadFile(cfg.StrategyConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read strategy config: %w", err)
		}
		var file strategyFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse strategy config: %w", err)
		}
		for _, s := range file.Strategies {
			id, err := storage.SaveStrategy(ctx, s)
			if err != nil {
				return nil, err
			}
			log.Printf("loadStrategy | Registered strategy %q (id %d)", s.Name, id)
		}
	}
	if cfg.Strategy == "" {
		return nil, fmt.Errorf("backtest mode requires -strategy")
	}
	return storage.GetStrategy(ctx, cfg.Strategy)
}

func runBacktest(ctx context.Context, cfg config.Config, storage db.Storage) error {
	strat, err := loadStrategy(ctx, cfg, storage)
	if err != nil {
		return err
	}

	engine := backtest.NewEngine(backtest.Config{
		InitialCapital:     cfg.InitialCapital,
		CommissionPerTrade: cfg.CommissionPerTrade,
	})

	for _, symbol := range cfg.Symbols {
		prices, err := storage.GetPricesRange(ctx, symbol, cfg.From, cfg.To)
		if err != nil {
			return fmt.Errorf("load prices for %s: %w", symbol, err)
		}
		if len(prices) == 0 {
			log.Printf("runBacktest | No prices stored for %s, skipping", symbol)
			continue
		}

		values, err := storage.GetIndicatorValues(ctx, symbol)
		if err != nil {
			return fmt.Errorf("load indicators for %s: %w", symbol, err)
		}
		if len(values) == 0 {
			values = indicator.All(prices)
		}

		result := engine.Run(strat, symbol, prices, values)
		runID, err := storage.SaveResult(ctx, result)
		if err != nil {
			return fmt.Errorf("save backtest for %s: %w", symbol, err)
		}

		m := result.Metrics
		log.Printf("runBacktest | %s on %s (run %d): return %.2f%%, %d trades, win rate %.1f%%, max drawdown %.2f%%, sharpe %.2f",
			strat.Name, symbol, runID, m.TotalReturn, m.TotalTrades, m.WinRate, m.MaxDrawdown, m.SharpeRatio)
	}
	return nil
}

func runAlerts(ctx context.Context, cfg config.Config, storage db.Storage, notif notifier.Notifier) error {
	priceAlerts, err := storage.GetActivePriceAlerts(ctx)
	if err != nil {
		return fmt.Errorf("load price alerts: %w", err)
	}
	for _, a := range priceAlerts {
		latest, err := storage.GetLatestPrice(ctx, a.Symbol)
		if err != nil {
			return fmt.Errorf("load latest price for %s: %w", a.Symbol, err)
		}
		if latest == nil {
			continue
		}
		if alert.CheckPrice(&a, latest.Close) {
			if err := storage.MarkPriceAlertTriggered(ctx, a.ID); err != nil {
				return err
			}
			msg := notifier.FormatPriceAlert(a, latest.Close)
			log.Printf("runAlerts | %s", msg)
			if notif != nil {
				if err := notif.SendWithRetry(msg); err != nil {
					log.Printf("runAlerts | Notification failed: %v", err)
				}
			}
		}
	}

	indAlerts, err := storage.GetActiveIndicatorAlerts(ctx)
	if err != nil {
		return fmt.Errorf("load indicator alerts: %w", err)
	}
	for _, a := range indAlerts {
		latest, err := storage.GetLatestPrice(ctx, a.Symbol)
		if err != nil {
			return fmt.Errorf("load latest price for %s: %w", a.Symbol, err)
		}
		if latest == nil {
			continue
		}
		today, err := storage.GetLatestIndicatorValues(ctx, a.Symbol)
		if err != nil {
			return fmt.Errorf("load latest indicators for %s: %w", a.Symbol, err)
		}

		fired, value := alert.CheckIndicator(&a, latest.Close, today)
		if fired {
			if err := storage.MarkIndicatorAlertTriggered(ctx, a.ID, value); err != nil {
				return err
			}
			msg := notifier.FormatIndicatorAlert(a, value)
			log.Printf("runAlerts | %s", msg)
			if notif != nil {
				if err := notif.SendWithRetry(msg); err != nil {
					log.Printf("runAlerts | Notification failed: %v", err)
				}
			}
		}
	}
	return nil
}
