package bot

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/dispatcher"
	"github.com/rxtech-lab/argo-autotrader/internal/events"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/risk"
	"github.com/rxtech-lab/argo-autotrader/internal/strategy"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/mocks"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

var testStart = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func snapshot(symbol string, price float64, at time.Time) types.MarketSnapshot {
	return types.MarketSnapshot{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(price),
		Volume24h: decimal.NewFromInt(1000),
		High24h:   decimal.NewFromFloat(price),
		Low24h:    decimal.NewFromFloat(price),
		Timestamp: at,
	}
}

// series yields snapshots in order, calling before(i) ahead of every
// snapshot after the first. It ends early when ctx is cancelled.
func series(ctx context.Context, snapshots []types.MarketSnapshot, before func(i int)) iter.Seq2[types.MarketSnapshot, error] {
	return func(yield func(types.MarketSnapshot, error) bool) {
		for i, s := range snapshots {
			if ctx.Err() != nil {
				return
			}

			if i > 0 && before != nil {
				before(i)
			}

			if !yield(s, nil) {
				return
			}
		}
	}
}

func dcaConfig(name string, params types.Parameters) types.StrategyConfig {
	merged := types.Parameters{
		strategy.DCAInvestmentAmount: 100,
		strategy.DCAIntervalHours:    1,
		strategy.DCAMaxInvestment:    300,
		strategy.DCATrendFilter:      false,
	}
	for k, v := range params {
		merged[k] = v
	}

	return types.StrategyConfig{
		Name:       name,
		Symbol:     "BTCUSDT",
		Enabled:    true,
		Kind:       types.StrategyKindDCA,
		Parameters: merged,
	}
}

type BotTestSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	feed       *mocks.MockMarketFeed
	registry   *strategy.Registry
	risk       *risk.Manager
	dispatcher *dispatcher.Dispatcher
	bot        *Bot
}

func TestBotSuite(t *testing.T) {
	suite.Run(t, new(BotTestSuite))
}

func (suite *BotTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.feed = mocks.NewMockMarketFeed(suite.ctrl)
	suite.registry = strategy.NewRegistry(logger.NewNop())

	manager, err := risk.NewManager(types.DefaultRiskLimits(), logger.NewNop())
	suite.Require().NoError(err)
	suite.risk = manager
}

func (suite *BotTestSuite) build(dryRun bool, client dispatcher.ExecutionClient, configs ...types.StrategyConfig) {
	for _, cfg := range configs {
		s, err := strategy.New(cfg, logger.NewNop())
		suite.Require().NoError(err)
		suite.Require().NoError(suite.registry.Register(s))
	}

	cfg := dispatcher.DefaultConfig()
	cfg.DryRun = dryRun
	cfg.OrdersPerSecond = 0

	orders, err := dispatcher.New(cfg, client, suite.risk, logger.NewNop())
	suite.Require().NoError(err)
	suite.dispatcher = orders

	botConfig := DefaultConfig()
	botConfig.DryRun = dryRun

	b, err := New(botConfig, suite.registry, suite.risk, orders, suite.feed, logger.NewNop())
	suite.Require().NoError(err)
	suite.bot = b
}

func (suite *BotTestSuite) expectFeed(symbol string, snapshots []types.MarketSnapshot, before func(i int)) {
	suite.feed.EXPECT().Subscribe(gomock.Any(), symbol).DoAndReturn(
		func(ctx context.Context, _ string) iter.Seq2[types.MarketSnapshot, error] {
			return series(ctx, snapshots, before)
		})
}

// waitFor blocks the feed until cond holds so the next snapshot sees the
// effect of the previous one.
func (suite *BotTestSuite) waitFor(cond func() bool) func(int) {
	return func(int) {
		deadline := time.Now().Add(2 * time.Second)
		for !cond() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
	}
}

func drain(ch <-chan events.Event) map[events.Kind][]events.Event {
	out := map[events.Kind][]events.Event{}
	for e := range ch {
		out[e.Kind] = append(out[e.Kind], e)
	}

	return out
}

// ==============================
// Construction
// ==============================

func (suite *BotTestSuite) TestNewRequiresCollaborators() {
	_, err := New(DefaultConfig(), nil, suite.risk, nil, suite.feed, logger.NewNop())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

// ==============================
// Run
// ==============================

func (suite *BotTestSuite) TestDryRunTradesUntilFeedEnds() {
	suite.build(true, nil, dcaConfig("dca-btc", nil))

	snapshots := []types.MarketSnapshot{
		snapshot("BTCUSDT", 100, testStart),
		snapshot("BTCUSDT", 100, testStart.Add(time.Hour)),
		snapshot("BTCUSDT", 100, testStart.Add(2*time.Hour)),
		snapshot("BTCUSDT", 100, testStart.Add(3*time.Hour)),
	}
	suite.expectFeed("BTCUSDT", snapshots, nil)

	stream, cancel := suite.bot.Events(256)
	defer cancel()

	suite.Require().NoError(suite.bot.Run(context.Background()))

	status := suite.bot.Status()
	suite.False(status.Running)
	suite.True(status.DryRun)
	suite.Zero(status.Uptime)
	suite.Len(status.Orders, 3)

	for _, order := range status.Orders {
		suite.Equal(types.OrderStatusFilled, order.Status)
		suite.Equal("dca-btc", order.StrategyName)
	}

	suite.Equal("3", status.Account.Position("BTCUSDT").Quantity.String())
	suite.Equal("9700", status.Account.Balance.String())
	suite.Equal(3, status.Stats.TotalOrders)
	suite.Equal(3, status.Stats.FilledOrders)
	suite.False(status.RiskLimitsBreached)

	suite.Require().Len(status.Strategies, 1)
	suite.True(status.Strategies[0].LastSignalAt.IsSome())
	suite.Equal(testStart.Add(2*time.Hour), status.Strategies[0].LastSignalAt.Unwrap())

	got := drain(stream)
	suite.Len(got[events.KindSignal], 3)
	suite.Len(got[events.KindOrder], 9)
	suite.Empty(got[events.KindSignalRejected])
}

func (suite *BotTestSuite) TestRunStopsOnContextCancel() {
	suite.build(true, nil, dcaConfig("dca-btc", nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suite.feed.EXPECT().Subscribe(gomock.Any(), "BTCUSDT").DoAndReturn(
		func(ctx context.Context, _ string) iter.Seq2[types.MarketSnapshot, error] {
			return func(yield func(types.MarketSnapshot, error) bool) {
				if !yield(snapshot("BTCUSDT", 100, testStart), nil) {
					return
				}

				<-ctx.Done()
			}
		})

	done := make(chan error, 1)

	go func() { done <- suite.bot.Run(ctx) }()

	suite.Eventually(func() bool {
		return suite.bot.Status().Running && suite.bot.Status().Stats.FilledOrders == 1
	}, 2*time.Second, time.Millisecond)

	cancel()

	select {
	case err := <-done:
		suite.NoError(err)
	case <-time.After(2 * time.Second):
		suite.Fail("bot did not stop")
	}

	suite.Error(suite.bot.Run(context.Background()), "a bot runs once")
}

func (suite *BotTestSuite) TestFeedErrorsAreSkipped() {
	suite.build(true, nil, dcaConfig("dca-btc", nil))

	suite.feed.EXPECT().Subscribe(gomock.Any(), "BTCUSDT").DoAndReturn(
		func(context.Context, string) iter.Seq2[types.MarketSnapshot, error] {
			return func(yield func(types.MarketSnapshot, error) bool) {
				if !yield(types.MarketSnapshot{}, errors.New(errors.ErrCodeMarketDataStreamFailed, "disconnected")) {
					return
				}

				if !yield(snapshot("BTCUSDT", -1, testStart), nil) {
					return
				}

				yield(snapshot("BTCUSDT", 100, testStart), nil)
			}
		})

	suite.Require().NoError(suite.bot.Run(context.Background()))
	suite.Equal(1, suite.bot.Status().Stats.FilledOrders)
}

func (suite *BotTestSuite) TestRiskRejectionIsReportedToStrategy() {
	suite.build(true, nil, dcaConfig("dca-btc", types.Parameters{
		strategy.DCAInvestmentAmount: 20000,
		strategy.DCAMaxInvestment:    100000,
	}))
	suite.expectFeed("BTCUSDT", []types.MarketSnapshot{snapshot("BTCUSDT", 100, testStart)}, nil)

	stream, cancel := suite.bot.Events(16)
	defer cancel()

	suite.Require().NoError(suite.bot.Run(context.Background()))

	got := drain(stream)
	suite.Require().Len(got[events.KindSignalRejected], 1)
	suite.Equal(string(risk.ReasonMaxPositionSize), got[events.KindSignalRejected][0].Message)
	suite.Empty(suite.bot.Status().Orders)
}

func (suite *BotTestSuite) TestStopLossClosesPosition() {
	suite.build(true, nil, dcaConfig("dca-btc", types.Parameters{strategy.DCAIntervalHours: 24}))

	snapshots := []types.MarketSnapshot{
		snapshot("BTCUSDT", 100, testStart),
		snapshot("BTCUSDT", 94, testStart.Add(time.Hour)),
	}
	suite.expectFeed("BTCUSDT", snapshots, suite.waitFor(func() bool {
		return suite.dispatcher.Stats().FilledOrders == 1
	}))

	suite.Require().NoError(suite.bot.Run(context.Background()))

	status := suite.bot.Status()
	suite.Require().Len(status.Orders, 2)

	closing := status.Orders[1]
	suite.Equal(types.RiskManagerStrategyName, closing.StrategyName)
	suite.Equal(types.SignalReasonStopLoss, closing.Reason)
	suite.Equal(types.OrderSideSell, closing.Side)
	suite.True(closing.Protective)

	suite.False(status.Account.Position("BTCUSDT").IsOpen())
	suite.Equal("-6", status.Account.RealizedPnL.String())
	suite.Equal(1, status.Stats.LosingTrades)
}

func (suite *BotTestSuite) TestUnrecoverableVenueErrorDisablesStrategy() {
	client := mocks.NewMockExecutionClient(suite.ctrl)
	client.EXPECT().GetAccountInfo(gomock.Any()).Return(types.NewAccountState(decimal.NewFromInt(10000)), nil)
	client.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).
		Return("", errors.New(errors.ErrCodeVenueUnrecoverable, "invalid symbol"))

	suite.build(false, client, dcaConfig("dca-btc", nil))

	snapshots := []types.MarketSnapshot{
		snapshot("BTCUSDT", 100, testStart),
		snapshot("BTCUSDT", 100, testStart.Add(time.Hour)),
	}
	suite.expectFeed("BTCUSDT", snapshots, suite.waitFor(func() bool {
		return !suite.bot.Status().Strategies[0].Enabled
	}))

	stream, cancel := suite.bot.Events(64)
	defer cancel()

	suite.Require().NoError(suite.bot.Run(context.Background()))

	status := suite.bot.Status()
	suite.False(status.Strategies[0].Enabled)
	suite.Contains(status.Strategies[0].DisabledReason, "invalid symbol")
	suite.Equal(1, status.Stats.RejectedOrders)

	got := drain(stream)
	suite.Len(got[events.KindStrategyDisabled], 1)
	suite.Len(got[events.KindSignal], 1, "a disabled strategy receives no more data")
}

func (suite *BotTestSuite) TestAnalysisErrorsDoNotStopTheBot() {
	mock := mocks.NewMockStrategy(suite.ctrl)
	mock.EXPECT().Name().Return("mock").AnyTimes()
	mock.EXPECT().Symbol().Return("ETHUSDT").AnyTimes()
	mock.EXPECT().Kind().Return(types.StrategyKindMomentum).AnyTimes()
	mock.EXPECT().IsEnabled().Return(true).AnyTimes()
	mock.EXPECT().State().Return("active").AnyTimes()

	signal := types.StrategySignal{
		ID:             "signal-1",
		StrategyName:   "mock",
		Symbol:         "ETHUSDT",
		Action:         types.SignalActionBuy,
		Quantity:       decimal.NewFromInt(1),
		Price:          optional.None[decimal.Decimal](),
		ReferencePrice: decimal.NewFromInt(2000),
		Confidence:     0.7,
		Reason:         types.SignalReasonStrategy,
		Timestamp:      testStart,
	}

	gomock.InOrder(
		mock.EXPECT().Analyze(gomock.Any()).
			Return(optional.None[types.StrategySignal](), errors.New(errors.ErrCodeIndicatorCalculation, "bad data")),
		mock.EXPECT().Analyze(gomock.Any()).Return(optional.Some(signal), nil),
	)

	suite.build(true, nil)
	suite.Require().NoError(suite.registry.Register(mock))

	suite.expectFeed("ETHUSDT", []types.MarketSnapshot{
		snapshot("ETHUSDT", 2000, testStart),
		snapshot("ETHUSDT", 2000, testStart.Add(time.Minute)),
	}, nil)

	suite.Require().NoError(suite.bot.Run(context.Background()))

	status := suite.bot.Status()
	suite.Require().Len(status.Orders, 1)
	suite.Equal("mock", status.Orders[0].StrategyName)
	suite.Equal("1", status.Account.Position("ETHUSDT").Quantity.String())
}

// ==============================
// Operator controls
// ==============================

func (suite *BotTestSuite) TestReloadRiskLimits() {
	suite.build(true, nil)

	invalid := types.DefaultRiskLimits()
	invalid.MaxPositions = 0
	err := suite.bot.ReloadRiskLimits(invalid)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidRiskLimits))

	limits := types.DefaultRiskLimits()
	limits.MaxPositions = 2
	suite.Require().NoError(suite.bot.ReloadRiskLimits(limits))
	suite.Equal(2, suite.risk.Limits().MaxPositions)
}

func (suite *BotTestSuite) TestStrategyControls() {
	suite.build(true, nil, dcaConfig("dca-btc", nil))

	err := suite.bot.UpdateStrategyParameters("missing", types.Parameters{})
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))

	suite.Require().NoError(suite.bot.UpdateStrategyParameters("dca-btc", types.Parameters{
		strategy.DCAInvestmentAmount: 250,
	}))

	s, err := suite.registry.Get("dca-btc")
	suite.Require().NoError(err)
	suite.EqualValues(250, s.GetParameters()[strategy.DCAInvestmentAmount])

	suite.Require().NoError(suite.bot.DisableStrategy("dca-btc", "maintenance"))

	status := suite.bot.Status()
	suite.False(status.Strategies[0].Enabled)
	suite.Equal("maintenance", status.Strategies[0].DisabledReason)

	suite.Require().NoError(suite.bot.EnableStrategy("dca-btc"))
	suite.True(suite.bot.Status().Strategies[0].Enabled)
}
