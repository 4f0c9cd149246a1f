package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/bot"
	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/dispatcher"
	"github.com/rxtech-lab/argo-autotrader/internal/events"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/risk"
	"github.com/rxtech-lab/argo-autotrader/internal/strategy"
	tradingprovider "github.com/rxtech-lab/argo-autotrader/internal/trading/provider"
	"github.com/rxtech-lab/argo-autotrader/internal/version"
	"github.com/rxtech-lab/argo-autotrader/pkg/marketdata/provider"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const statusInterval = time.Minute

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the YAML configuration file",
		Value:   "config.yaml",
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "autotrader",
		Usage:   "Run configured trading strategies behind risk checks",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Start the bot and trade until interrupted",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Simulate fills instead of placing orders (overrides the config file)",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Log level: debug, info, warn or error (overrides the config file)",
					},
				},
				Action: runAction,
			},
			{
				Name:  "validate",
				Usage: "Check the configuration file and strategy parameters",
				Flags: []cli.Flag{configFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return validateAction(cmd.String("config"), out)
				},
			},
			{
				Name:  "version",
				Usage: "Print the autotrader version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, err := fmt.Fprintln(out, version.GetVersion())

					return err
				},
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the configuration file",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					schema, err := config.Schema()
					if err != nil {
						return fmt.Errorf("failed to generate schema: %w", err)
					}

					_, err = fmt.Fprintln(out, schema)

					return err
				},
			},
		},
	}
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	if !cmd.IsSet("dry-run") && !cmd.IsSet("log-level") {
		return cfg, nil
	}

	if cmd.IsSet("dry-run") {
		cfg.Trading.DryRun = cmd.Bool("dry-run")
	}

	if cmd.IsSet("log-level") {
		cfg.Logging.Level = cmd.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLog, err := logger.NewLoggerWithConfig(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = appLog.Sync() }()

	trader, err := newBot(cfg, appLog)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLog.Info("Starting autotrader",
		zap.Bool("dry_run", cfg.Trading.DryRun),
		zap.Int("strategies", len(cfg.Strategies)),
	)

	eventsC, cancelEvents := trader.Events(events.DefaultBuffer)
	defer cancelEvents()

	go logEvents(appLog, eventsC)
	go reportStatus(ctx, appLog, trader)

	if err := trader.Run(ctx); err != nil {
		return fmt.Errorf("bot stopped with error: %w", err)
	}

	return nil
}

// newBot wires the strategies, risk manager, dispatcher and feed together.
func newBot(cfg config.Config, appLog *logger.Logger) (*bot.Bot, error) {
	registry, err := strategy.BuildRegistry(cfg.StrategyConfigs(), appLog)
	if err != nil {
		// invalid strategies are skipped; the rest still trade
		appLog.Warn("Some strategies were not loaded", zap.Error(err))
	}

	if len(registry.All()) == 0 {
		return nil, fmt.Errorf("no valid strategies configured")
	}

	riskManager, err := risk.NewManager(cfg.RiskManagement, appLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create risk manager: %w", err)
	}

	var client dispatcher.ExecutionClient

	if !cfg.Trading.DryRun {
		providerConfig := tradingprovider.NewBinanceProviderConfig(cfg.Venue.APIKey, cfg.Venue.SecretKey)
		providerConfig.BaseURL = cfg.Venue.BaseURL

		venue, err := tradingprovider.NewExecutionClient(tradingprovider.ProviderFor(cfg.Venue.Testnet), providerConfig, appLog)
		if err != nil {
			return nil, fmt.Errorf("failed to create execution client: %w", err)
		}

		client = venue
	}

	orders, err := dispatcher.New(cfg.DispatcherConfig(), client, riskManager, appLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	feed, err := provider.NewBinanceFeed(provider.DefaultBinanceStreamConfig(), appLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create market data feed: %w", err)
	}

	return bot.New(cfg.BotConfig(), registry, riskManager, orders, feed, appLog)
}

func logEvents(appLog *logger.Logger, eventsC <-chan events.Event) {
	for event := range eventsC {
		appLog.Debug("Bot event",
			zap.String("kind", string(event.Kind)),
			zap.String("strategy", event.StrategyName),
			zap.String("symbol", event.Symbol),
			zap.String("message", event.Message),
		)
	}
}

func reportStatus(ctx context.Context, appLog *logger.Logger, trader *bot.Bot) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := trader.Status()
			appLog.Info("Bot status",
				zap.Bool("running", status.Running),
				zap.Duration("uptime", status.Uptime),
				zap.Int("orders", status.Stats.TotalOrders),
				zap.String("balance", status.Account.Balance.String()),
				zap.Bool("risk_limits_breached", status.RiskLimitsBreached),
			)
		}
	}
}

func validateAction(path string, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	registry, err := strategy.BuildRegistry(cfg.StrategyConfigs(), logger.NewNop())
	if err != nil {
		return fmt.Errorf("invalid strategy configuration: %w", err)
	}

	if _, err := risk.NewManager(cfg.RiskManagement, logger.NewNop()); err != nil {
		return fmt.Errorf("invalid risk limits: %w", err)
	}

	mode := "live"
	if cfg.Trading.DryRun {
		mode = "dry-run"
	}

	_, err = fmt.Fprintf(out, "configuration OK: %d strategies on %d symbols (%s)\n",
		len(registry.All()), len(registry.Symbols()), mode)

	return err
}
