package strategy

import (
	"testing"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type RegistryTestSuite struct {
	suite.Suite
	logs *observer.ObservedLogs
	log  *logger.Logger
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) SetupTest() {
	core, logs := observer.New(zapcore.DebugLevel)
	suite.logs = logs
	suite.log = &logger.Logger{Logger: zap.New(core)}
}

func configs() []types.StrategyConfig {
	return []types.StrategyConfig{
		{Name: "dca-btc", Symbol: "BTCUSDT", Enabled: true, Kind: types.StrategyKindDCA, Parameters: nil},
		{Name: "grid-btc", Symbol: "BTCUSDT", Enabled: false, Kind: types.StrategyKindGrid, Parameters: nil},
		{Name: "momentum-eth", Symbol: "ETHUSDT", Enabled: true, Kind: types.StrategyKindMomentum, Parameters: nil},
	}
}

// ==============================
// Factory
// ==============================

func (suite *RegistryTestSuite) TestNewBuildsEveryKind() {
	for _, cfg := range configs() {
		s, err := New(cfg, suite.log)
		suite.Require().NoError(err)
		suite.Equal(cfg.Kind, s.Kind())
		suite.Equal(cfg.Name, s.Name())
		suite.Equal(cfg.Enabled, s.IsEnabled())
	}
}

func (suite *RegistryTestSuite) TestNewRejectsUnknownKind() {
	_, err := New(types.StrategyConfig{Name: "x", Symbol: "BTCUSDT", Kind: "arbitrage"}, suite.log)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedStrategy))

	_, err = New(types.StrategyConfig{Name: "x", Kind: types.StrategyKindDCA}, suite.log)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))
}

// ==============================
// Registry
// ==============================

func (suite *RegistryTestSuite) TestBuildRegistrySkipsInvalidConfigs() {
	cfgs := append(configs(),
		types.StrategyConfig{Name: "broken", Symbol: "BTCUSDT", Enabled: true, Kind: types.StrategyKindDCA,
			Parameters: types.Parameters{DCAIntervalHours: 0}},
		types.StrategyConfig{Name: "dca-btc", Symbol: "BTCUSDT", Enabled: true, Kind: types.StrategyKindDCA},
	)

	registry, err := BuildRegistry(cfgs, suite.log)
	suite.Error(err)
	suite.Len(multierr.Errors(err), 2)
	suite.Len(registry.All(), 3)

	_, getErr := registry.Get("broken")
	suite.True(errors.HasCode(getErr, errors.ErrCodeStrategyNotFound))
	suite.Equal(2, suite.logs.FilterMessage("Skipping strategy with invalid configuration").Len())
}

func (suite *RegistryTestSuite) TestRouteReturnsEnabledStrategiesForSymbol() {
	registry, err := BuildRegistry(configs(), suite.log)
	suite.Require().NoError(err)

	suite.Equal([]string{"BTCUSDT", "ETHUSDT"}, registry.Symbols())

	routed := registry.Route("BTCUSDT")
	suite.Require().Len(routed, 1)
	suite.Equal("dca-btc", routed[0].Name())

	suite.Require().NoError(registry.Enable("grid-btc"))
	suite.Len(registry.Route("BTCUSDT"), 2)

	suite.Require().NoError(registry.Disable("dca-btc", "venue rejected credentials"))
	routed = registry.Route("BTCUSDT")
	suite.Require().Len(routed, 1)
	suite.Equal("grid-btc", routed[0].Name())

	suite.Empty(registry.Route("XRPUSDT"))
}

func (suite *RegistryTestSuite) TestStatusesCarryDisableReasonAndLastSignal() {
	registry, err := BuildRegistry(configs(), suite.log)
	suite.Require().NoError(err)

	suite.Require().NoError(registry.Disable("momentum-eth", "unrecoverable venue error"))
	registry.MarkSignal("dca-btc", testStart)

	statuses := registry.Statuses()
	suite.Require().Len(statuses, 3)

	suite.Equal("dca-btc", statuses[0].Name)
	suite.True(statuses[0].LastSignalAt.IsSome())
	suite.Equal(testStart, statuses[0].LastSignalAt.Unwrap())
	suite.Equal("warming_up", statuses[0].State)

	suite.Equal("momentum-eth", statuses[2].Name)
	suite.False(statuses[2].Enabled)
	suite.Equal("unrecoverable venue error", statuses[2].DisabledReason)
	suite.True(statuses[2].LastSignalAt.IsNone())
}

func (suite *RegistryTestSuite) TestRegisterDuplicate() {
	registry := NewRegistry(suite.log)

	s, err := New(configs()[0], suite.log)
	suite.Require().NoError(err)
	suite.Require().NoError(registry.Register(s))

	err = registry.Register(s)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyAlreadyExists))
}

func (suite *RegistryTestSuite) TestUpdateParameters() {
	registry, err := BuildRegistry(configs(), suite.log)
	suite.Require().NoError(err)

	suite.Require().NoError(registry.UpdateParameters("dca-btc", types.Parameters{DCAInvestmentAmount: 250}))

	s, err := registry.Get("dca-btc")
	suite.Require().NoError(err)
	suite.Equal(250.0, s.GetParameters()[DCAInvestmentAmount])

	err = registry.UpdateParameters("missing", types.Parameters{})
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))

	suite.Error(registry.UpdateParameters("dca-btc", types.Parameters{DCAInvestmentAmount: -1}))
	suite.Equal(250.0, s.GetParameters()[DCAInvestmentAmount])
}
