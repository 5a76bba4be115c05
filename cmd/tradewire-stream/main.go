// tradewire-stream subscribes to live market data for a set of symbols and
// prints the events it receives. Useful for watching a feed and for checking
// connectivity and entitlements.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tradewire/internal/config"
	"tradewire/internal/tradeapi"
	"tradewire/internal/util"
	"tradewire/pkg/tradewire"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (optional)")
		symbolsArg = flag.String("symbols", "", "comma-separated symbols, e.g. SBER@MISX,GAZP@MISX")
		withBook   = flag.Bool("orderbook", false, "also subscribe to order books")
		withTrades = flag.Bool("trades", false, "also subscribe to market trades")
		barsTF     = flag.String("bars", "", "also subscribe to bars at this timeframe (M1, M5, H1, D1)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	symbols := splitSymbols(*symbolsArg)
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "no symbols given, use -symbols")
		os.Exit(1)
	}

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

	client.OnQuote(func(ev *tradeapi.QuoteEvent) {
		for _, q := range ev.Quotes {
			logger.Info("quote", "symbol", q.Symbol,
				"bid", q.Bid, "ask", q.Ask, "last", q.Last)
		}
	})
	client.OnOrderBook(func(ev *tradeapi.OrderBookEvent) {
		logger.Info("orderbook", "symbol", ev.Symbol, "levels", len(ev.OrderBook.Rows))
	})
	client.OnLatestTrades(func(ev *tradeapi.LatestTradesEvent) {
		for _, t := range ev.Trades {
			logger.Info("trade", "symbol", t.Symbol,
				"price", t.Price, "size", t.Size, "side", t.Side.String())
		}
	})
	client.OnBars(func(ev *tradeapi.BarsEvent) {
		for _, b := range ev.Bars {
			logger.Info("bar", "symbol", b.Symbol, "time", b.Timestamp,
				"open", b.Open, "close", b.Close, "volume", b.Volume)
		}
	})

	client.SubscribeQuote(symbols)
	for _, sym := range symbols {
		if *withBook {
			client.SubscribeOrderBook(sym)
		}
		if *withTrades {
			client.SubscribeLatestTrades(sym)
		}
		if tf := parseTimeframe(*barsTF); tf != tradeapi.TimeFrameUnspecified {
			client.SubscribeBars(sym, tf)
		}
	}

	logger.Info("streaming, ctrl-c to stop", "symbols", len(symbols))
	<-ctx.Done()
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
