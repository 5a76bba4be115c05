// tradewire-record captures live bars and market trades for a set of symbols
// into Parquet files under the configured data directory. Flushes happen on
// a timer and on shutdown, so an interrupted run loses at most one interval.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"tradewire/internal/config"
	"tradewire/internal/store"
	"tradewire/internal/tradeapi"
	"tradewire/internal/util"
	"tradewire/pkg/tradewire"
)

// capture buffers streamed records between flushes.
type capture struct {
	store *store.ParquetStore
	tf    tradeapi.TimeFrame

	mu     sync.Mutex
	bars   []tradeapi.Bar
	trades []tradeapi.MarketTrade
}

func (c *capture) addBars(bars []tradeapi.Bar) {
	c.mu.Lock()
	c.bars = append(c.bars, bars...)
	c.mu.Unlock()
}

func (c *capture) addTrades(trades []tradeapi.MarketTrade) {
	c.mu.Lock()
	c.trades = append(c.trades, trades...)
	c.mu.Unlock()
}

func (c *capture) flush(ctx context.Context) error {
	c.mu.Lock()
	bars, trades := c.bars, c.trades
	c.bars, c.trades = nil, nil
	c.mu.Unlock()

	if err := c.store.WriteBars(ctx, c.tf, bars); err != nil {
		return err
	}
	return c.store.WriteTrades(ctx, trades)
}

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (optional)")
		symbolsArg = flag.String("symbols", "", "comma-separated symbols")
		tfArg      = flag.String("timeframe", "M1", "bar timeframe to record")
		interval   = flag.Duration("flush", 30*time.Second, "flush interval")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	if cfg.Storage.DataDir == "" {
		fmt.Fprintln(os.Stderr, "no data dir configured, set storage.data_dir or DATA_DIR")
		os.Exit(1)
	}
	symbols := splitSymbols(*symbolsArg)
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "no symbols given, use -symbols")
		os.Exit(1)
	}
	tf := parseTimeframe(*tfArg)
	if tf == tradeapi.TimeFrameUnspecified {
		fmt.Fprintln(os.Stderr, "unrecognised timeframe:", *tfArg)
		os.Exit(1)
	}

	buf := &capture{store: store.NewParquetStore(cfg.Storage.DataDir), tf: tf}

	client, err := tradewire.New(cfg, logger)
	if err != nil {
		logger.Error("dialing venue", "error", err)
		os.Exit(1)
	}
	defer client.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		logger.Error("starting session", "error", err)
		os.Exit(1)
	}

	client.OnBars(func(ev *tradeapi.BarsEvent) { buf.addBars(ev.Bars) })
	client.OnLatestTrades(func(ev *tradeapi.LatestTradesEvent) { buf.addTrades(ev.Trades) })

	for _, sym := range symbols {
		client.SubscribeBars(sym, tf)
		client.SubscribeLatestTrades(sym)
	}
	logger.Info("recording", "symbols", len(symbols),
		"timeframe", tf.String(), "data_dir", cfg.Storage.DataDir)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := buf.flush(ctx); err != nil {
				logger.Error("flush failed", "error", err)
			}
		case <-ctx.Done():
			// Final flush with a fresh context; ctx is already cancelled.
			if err := buf.flush(context.Background()); err != nil {
				logger.Error("final flush failed", "error", err)
			}
			logger.Info("recorder stopped")
			return
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv(), nil
	}
	return config.Load(path)
}

func splitSymbols(arg string) []string {
	var out []string
	for _, s := range strings.Split(arg, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseTimeframe(s string) tradeapi.TimeFrame {
	switch strings.ToUpper(s) {
	case "M1":
		return tradeapi.TimeFrameM1
	case "M5":
		return tradeapi.TimeFrameM5
	case "M15":
		return tradeapi.TimeFrameM15
	case "M30":
		return tradeapi.TimeFrameM30
	case "H1":
		return tradeapi.TimeFrameH1
	case "H4":
		return tradeapi.TimeFrameH4
	case "D1":
		return tradeapi.TimeFrameD1
	case "W1":
		return tradeapi.TimeFrameW1
	case "MN1":
		return tradeapi.TimeFrameMN1
	default:
		return tradeapi.TimeFrameUnspecified
	}
}
