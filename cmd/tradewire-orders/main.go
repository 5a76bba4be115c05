// tradewire-orders watches own-order and own-trade events for an account and
// journals them to SQLite. With -list it prints the journal instead of
// streaming; with -cancel it withdraws one order and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tradewire/internal/config"
	"tradewire/internal/store"
	"tradewire/internal/tradeapi"
	"tradewire/internal/util"
	"tradewire/pkg/tradewire"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (optional)")
		accountID  = flag.String("account", "", "account id (default: first account of the token)")
		list       = flag.Bool("list", false, "print the local order journal and exit")
		cancelID   = flag.String("cancel", "", "cancel this order id and exit")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	var journal *store.SQLiteJournal
	if cfg.Storage.SQLitePath != "" {
		journal, err = store.NewSQLiteJournal(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Error("opening order journal", "error", err)
			os.Exit(1)
		}
		defer journal.Close()
	}

	if *list {
		if journal == nil {
			fmt.Fprintln(os.Stderr, "no journal configured, set storage.sqlite_path or SQLITE_PATH")
			os.Exit(1)
		}
		printJournal(journal)
		return
	}

	client, err := tradewire.New(cfg, logger)
	if err != nil {
		logger.Error("dialing venue", "error", err)
		os.Exit(1)
	}
	defer client.Stop()
	if journal != nil {
		client.SetJournal(journal)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		logger.Error("starting session", "error", err)
		os.Exit(1)
	}

	account := *accountID
	if account == "" {
		ids := client.AccountIDs()
		if len(ids) == 0 {
			logger.Error("token grants no accounts and -account not given")
			os.Exit(1)
		}
		account = ids[0]
	}

	if *cancelID != "" {
		state, err := client.CancelOrder(ctx, account, *cancelID)
		if err != nil {
			logger.Error("cancelling order", "order_id", *cancelID, "error", err)
			os.Exit(1)
		}
		fmt.Printf("order %s: %s\n", state.OrderID, state.Status)
		return
	}

	client.OnOrder(func(ev *tradeapi.OrderEvent) {
		logger.Info("order update",
			"order_id", ev.Order.OrderID,
			"symbol", ev.Order.Order.Symbol,
			"status", ev.Order.Status.String(),
			"filled", ev.Order.FilledQty)
	})
	client.OnTrade(func(ev *tradeapi.TradeEvent) {
		logger.Info("execution",
			"order_id", ev.Trade.OrderID,
			"symbol", ev.Trade.Symbol,
			"price", ev.Trade.Price,
			"size", ev.Trade.Size)
	})
	client.OnPortfolio(func(ev *tradeapi.PortfolioEvent) {
		logger.Info("portfolio", "equity", ev.Equity, "cash", ev.Cash,
			"positions", len(ev.Positions))
	})
	client.OnResponse(func(ev *tradeapi.ResponseEvent) {
		if !ev.Success {
			logger.Warn("subscription command rejected",
				"request_id", ev.RequestID, "message", ev.Message)
		}
	})

	if err := client.SubscribeOrderTrade(ctx, account, tradeapi.DataTypeAll); err != nil {
		logger.Error("subscribing to order/trade events", "error", err)
		os.Exit(1)
	}
	logger.Info("watching order/trade events, ctrl-c to stop", "account", account)
	<-ctx.Done()
}

func printJournal(journal *store.SQLiteJournal) {
	entries, err := journal.Entries(context.Background(), 100)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reading journal:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Printf("%s  %-12s %-4s %10.2f @ %10.2f  %-16s %s\n",
			e.UpdatedAt.Format("2006-01-02 15:04:05"),
			e.Symbol, e.Side, e.Quantity, e.LimitPrice, e.Status, e.OrderID)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv(), nil
	}
	return config.Load(path)
}
