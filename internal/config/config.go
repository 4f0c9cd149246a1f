package config

import (
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-autotrader/internal/bot"
	"github.com/rxtech-lab/argo-autotrader/internal/dispatcher"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/internal/version"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the configuration file.
const (
	EnvAPIKey    = "AUTOTRADER_API_KEY"
	EnvSecretKey = "AUTOTRADER_SECRET_KEY"
	EnvDryRun    = "AUTOTRADER_DRY_RUN"
	EnvLogLevel  = "AUTOTRADER_LOG_LEVEL"
)

// Config is the autotrader configuration file.
type Config struct {
	Version        string                   `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"description=Autotrader release this file was written for"`
	Venue          VenueConfig              `yaml:"venue" json:"venue" jsonschema:"description=Exchange connection settings"`
	Trading        TradingConfig            `yaml:"trading" json:"trading" jsonschema:"description=Order execution settings"`
	RiskManagement types.RiskLimits         `yaml:"risk_management" json:"risk_management" jsonschema:"description=Risk limits applied to every signal"`
	Strategies     map[string]StrategyEntry `yaml:"strategies" json:"strategies" jsonschema:"description=Strategy instances keyed by name"`
	Logging        logger.Config            `yaml:"logging" json:"logging" jsonschema:"description=Logging settings"`
}

// VenueConfig holds the exchange credentials. They are only required for
// live trading.
type VenueConfig struct {
	APIKey    string `yaml:"api_key" json:"api_key" jsonschema:"description=Exchange API key"`
	SecretKey string `yaml:"secret_key" json:"secret_key" jsonschema:"description=Exchange secret key"`
	BaseURL   string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"description=Override for the REST endpoint" validate:"omitempty,url"`
	Testnet   bool   `yaml:"testnet" json:"testnet" jsonschema:"description=Use the exchange testnet"`
}

type TradingConfig struct {
	DryRun              bool            `yaml:"dry_run" json:"dry_run" jsonschema:"description=Simulate fills instead of placing orders,default=true"`
	InitialBalance      decimal.Decimal `yaml:"initial_balance" json:"initial_balance" jsonschema:"description=Starting quote balance for dry runs,default=10000" validate:"gt=0"`
	OrderTimeoutSeconds int             `yaml:"order_timeout_seconds" json:"order_timeout_seconds" jsonschema:"description=Cancel orders still open after this many seconds (0 disables),default=30" validate:"gte=0"`
	RetryAttempts       int             `yaml:"retry_attempts" json:"retry_attempts" jsonschema:"description=Retries for transient venue errors,default=3" validate:"gte=0,lte=10"`
	RetryDelayMs        int             `yaml:"retry_delay_ms" json:"retry_delay_ms" jsonschema:"description=Delay before the first retry in milliseconds,default=1000" validate:"gte=0"`
	PollIntervalSeconds int             `yaml:"poll_interval_seconds" json:"poll_interval_seconds" jsonschema:"description=How often open orders are checked,default=2" validate:"gt=0"`
	OrdersPerSecond     float64         `yaml:"orders_per_second" json:"orders_per_second" jsonschema:"description=Venue submission rate (0 is unlimited),default=10" validate:"gte=0"`
	WorkerBuffer        int             `yaml:"worker_buffer" json:"worker_buffer" jsonschema:"description=Snapshots queued per strategy before dropping,default=64" validate:"gt=0"`
}

// StrategyEntry is one strategy instance. The instance name is the map key.
type StrategyEntry struct {
	Symbol     string             `yaml:"symbol" json:"symbol" jsonschema:"description=Symbol the strategy trades" validate:"required"`
	Enabled    bool               `yaml:"enabled" json:"enabled" jsonschema:"description=Whether the strategy is active,default=true"`
	Kind       types.StrategyKind `yaml:"strategy_type" json:"strategy_type" jsonschema:"description=Strategy algorithm,enum=dca,enum=grid,enum=momentum" validate:"required,oneof=dca grid momentum"`
	Parameters types.Parameters   `yaml:"parameters" json:"parameters" jsonschema:"description=Strategy specific parameters"`
}

// Default returns the configuration used for every value the file omits.
func Default() Config {
	return Config{
		Trading: TradingConfig{
			DryRun:              true,
			InitialBalance:      decimal.NewFromInt(10000),
			OrderTimeoutSeconds: 30,
			RetryAttempts:       3,
			RetryDelayMs:        1000,
			PollIntervalSeconds: 2,
			OrdersPerSecond:     10,
			WorkerBuffer:        64,
		},
		RiskManagement: types.DefaultRiskLimits(),
		Strategies:     map[string]StrategyEntry{},
		Logging:        logger.DefaultConfig(),
	}
}

// Load reads .env (if present), the YAML file at path and the AUTOTRADER_*
// environment overrides, then validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to load .env file", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Parse decodes YAML on top of the defaults. It does not validate.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if cfg.Strategies == nil {
		cfg.Strategies = map[string]StrategyEntry{}
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIKey); ok {
		c.Venue.APIKey = v
	}

	if v, ok := lookup(EnvSecretKey); ok {
		c.Venue.SecretKey = v
	}

	if v, ok := lookup(EnvDryRun); ok && strings.TrimSpace(v) != "" {
		dryRun, err := cast.ToBoolE(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid %s", EnvDryRun)
		}

		c.Trading.DryRun = dryRun
	}

	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}

	return nil
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	err := version.CheckConfigCompatibility(version.GetVersion(), c.Version)

	v := types.Validator()

	if e := v.Struct(c.Venue); e != nil {
		err = multierr.Append(err, errors.Wrap(errors.ErrCodeInvalidConfiguration, "venue", e))
	}

	if e := v.Struct(c.Trading); e != nil {
		err = multierr.Append(err, errors.Wrap(errors.ErrCodeInvalidConfiguration, "trading", e))
	}

	if e := c.RiskManagement.Validate(); e != nil {
		err = multierr.Append(err, e)
	}

	if e := v.Struct(c.Logging); e != nil {
		err = multierr.Append(err, errors.Wrap(errors.ErrCodeInvalidConfiguration, "logging", e))
	}

	for _, name := range c.strategyNames() {
		if e := v.Struct(c.Strategies[name]); e != nil {
			err = multierr.Append(err, errors.Wrapf(errors.ErrCodeInvalidConfiguration, e, "strategy %s", name))
		}
	}

	if !c.Trading.DryRun && (c.Venue.APIKey == "" || c.Venue.SecretKey == "") {
		err = multierr.Append(err, errors.New(errors.ErrCodeMissingParameter, "live trading requires venue api_key and secret_key"))
	}

	return err
}

func (c Config) strategyNames() []string {
	names := make([]string, 0, len(c.Strategies))
	for name := range c.Strategies {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// StrategyConfigs returns the strategy instances sorted by name.
func (c Config) StrategyConfigs() []types.StrategyConfig {
	names := c.strategyNames()
	configs := make([]types.StrategyConfig, 0, len(names))

	for _, name := range names {
		entry := c.Strategies[name]
		configs = append(configs, types.StrategyConfig{
			Name:       name,
			Symbol:     strings.ToUpper(entry.Symbol),
			Enabled:    entry.Enabled,
			Kind:       entry.Kind,
			Parameters: entry.Parameters.Clone(),
		})
	}

	return configs
}

// DispatcherConfig maps the trading section onto the dispatcher.
func (c Config) DispatcherConfig() dispatcher.Config {
	cfg := dispatcher.DefaultConfig()
	cfg.DryRun = c.Trading.DryRun
	cfg.InitialBalance = c.Trading.InitialBalance
	cfg.OrderTimeout = time.Duration(c.Trading.OrderTimeoutSeconds) * time.Second
	cfg.PollInterval = time.Duration(c.Trading.PollIntervalSeconds) * time.Second
	cfg.OrdersPerSecond = c.Trading.OrdersPerSecond
	cfg.Retry.MaxRetries = c.Trading.RetryAttempts
	cfg.Retry.Delay = time.Duration(c.Trading.RetryDelayMs) * time.Millisecond

	return cfg
}

// BotConfig maps the trading section onto the orchestrator.
func (c Config) BotConfig() bot.Config {
	cfg := bot.DefaultConfig()
	cfg.DryRun = c.Trading.DryRun
	cfg.WorkerBuffer = c.Trading.WorkerBuffer

	return cfg
}
