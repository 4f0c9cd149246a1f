package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MomentumTestSuite struct {
	suite.Suite
}

func TestMomentumSuite(t *testing.T) {
	suite.Run(t, new(MomentumTestSuite))
}

func (suite *MomentumTestSuite) newMomentum(params types.Parameters) *MomentumStrategy {
	s, err := NewMomentum(types.StrategyConfig{
		Name:       "momentum-sol",
		Symbol:     "SOLUSDT",
		Enabled:    true,
		Kind:       types.StrategyKindMomentum,
		Parameters: params,
	}, logger.NewNop())
	suite.Require().NoError(err)

	return s
}

// valley declines in a choppy way and then recovers the same way. Its
// histogram turns positive on tick 42 with RSI close to 40.
func valley() []float64 {
	prices := make([]float64, 0, 70)
	prices = append(prices, 200)

	for i := 1; i < 40; i++ {
		step := 1.5
		if i%2 == 1 {
			step = -(2 + 0.04*float64(i))
		}

		prices = append(prices, prices[len(prices)-1]+step)
	}

	for i := 1; i <= 30; i++ {
		step := -0.5
		if i%2 == 1 {
			step = 2.5
		}

		prices = append(prices, prices[len(prices)-1]+step)
	}

	return prices
}

// peak is the mirror image of valley.
func peak() []float64 {
	prices := valley()
	for i, p := range prices {
		prices[i] = 400 - p
	}

	return prices
}

type firstSignal struct {
	index  int
	signal types.StrategySignal
}

// run feeds prices and returns the first emitted signal. spikeAt sets a volume
// spike on that tick; -1 disables it.
func (suite *MomentumTestSuite) run(s *MomentumStrategy, prices []float64, spikeAt int) (firstSignal, bool) {
	for i, price := range prices {
		snap := snapshot("SOLUSDT", price, testStart.Add(time.Duration(i)*time.Hour))
		if i == spikeAt {
			snap.Volume24h = decimal.NewFromInt(5000)
		}

		signal, err := s.Analyze(snap)
		suite.Require().NoError(err)

		if signal.IsSome() {
			return firstSignal{index: i, signal: signal.Unwrap()}, true
		}
	}

	return firstSignal{}, false
}

// ==============================
// Signals
// ==============================

func (suite *MomentumTestSuite) TestBuyOnBullishCrossover() {
	s := suite.newMomentum(types.Parameters{MomentumMinConfidence: 0})

	first, ok := suite.run(s, valley(), -1)
	suite.Require().True(ok)
	suite.GreaterOrEqual(first.index, 40, "no signal while the decline accelerates")
	suite.Equal(types.SignalActionBuy, first.signal.Action)
	suite.True(first.signal.Price.IsNone(), "momentum trades at market")
	suite.Less(first.signal.Metadata["rsi"].(float64), 70.0)
	suite.Positive(first.signal.Metadata["histogram"].(float64))

	expectedQty := decimal.NewFromInt(100).DivRound(first.signal.ReferencePrice, quantityPrecision)
	suite.True(expectedQty.Equal(first.signal.Quantity))
}

func (suite *MomentumTestSuite) TestSellOnBearishCrossover() {
	s := suite.newMomentum(types.Parameters{MomentumMinConfidence: 0})

	first, ok := suite.run(s, peak(), -1)
	suite.Require().True(ok)
	suite.GreaterOrEqual(first.index, 40)
	suite.Equal(types.SignalActionSell, first.signal.Action)
	suite.Greater(first.signal.Metadata["rsi"].(float64), 30.0)
	suite.Negative(first.signal.Metadata["histogram"].(float64))
}

func (suite *MomentumTestSuite) TestConfidenceThresholdSuppressesSignal() {
	baseline, ok := suite.run(suite.newMomentum(types.Parameters{MomentumMinConfidence: 0}), valley(), -1)
	suite.Require().True(ok)

	suite.Equal(42, baseline.index)
	suite.Equal(types.SignalActionBuy, baseline.signal.Action)
	suite.InDelta(40, baseline.signal.Metadata["rsi"].(float64), 0.5)

	confidence := baseline.signal.Confidence
	suite.Require().Positive(confidence)
	suite.Require().Less(confidence, 1.0)

	// a threshold at the candidate's confidence still lets it through
	atThreshold, ok := suite.run(suite.newMomentum(types.Parameters{MomentumMinConfidence: confidence}), valley(), -1)
	suite.Require().True(ok)
	suite.Equal(baseline.index, atThreshold.index)

	strict := suite.newMomentum(types.Parameters{MomentumMinConfidence: math.Nextafter(confidence, 2)})
	prices := valley()[:baseline.index+1]

	first, ok := suite.run(strict, prices, -1)
	suite.False(ok, "signal at tick %d with confidence %v passed threshold %v", first.index, first.signal.Confidence, confidence)
}

func (suite *MomentumTestSuite) TestVolumeSpikeRaisesConfidence() {
	baseline, ok := suite.run(suite.newMomentum(types.Parameters{MomentumMinConfidence: 0}), valley(), -1)
	suite.Require().True(ok)

	spiked, ok := suite.run(suite.newMomentum(types.Parameters{MomentumMinConfidence: 0}), valley(), baseline.index)
	suite.Require().True(ok)
	suite.Equal(baseline.index, spiked.index)
	suite.InDelta(math.Min(1, baseline.signal.Confidence+0.1), spiked.signal.Confidence, 1e-9)
}

func (suite *MomentumTestSuite) TestNoSignalWhileWarmingUp() {
	s := suite.newMomentum(types.Parameters{MomentumMinConfidence: 0})
	suite.Equal(35, s.Window())

	for i, price := range valley()[:34] {
		signal, err := s.Analyze(snapshot("SOLUSDT", price, testStart.Add(time.Duration(i)*time.Hour)))
		suite.Require().NoError(err)
		suite.True(signal.IsNone())
	}

	suite.Equal("warming_up 34/35", s.State())
}

// ==============================
// Confidence
// ==============================

func (suite *MomentumTestSuite) TestConfidenceComponents() {
	// full MACD score, RSI 25 scores 0.5, trend fully aligned
	suite.InDelta(0.4+0.15+0.3, momentumConfidence(true, 100, 0.5, 25, 101, 99), 1e-9)
	// the same inputs give a bearish signal only the MACD share
	suite.InDelta(0.4, momentumConfidence(false, 100, -0.5, 25, 101, 99), 1e-9)
	// small histogram scores proportionally
	suite.InDelta(0.4*0.2+0.3*0.2+0.3, momentumConfidence(false, 100, -0.1, 60, 101, 102), 1e-9)
}

// ==============================
// Parameters
// ==============================

func (suite *MomentumTestSuite) TestWindowFollowsParameters() {
	s := suite.newMomentum(types.Parameters{
		MomentumFastPeriod:   3,
		MomentumSlowPeriod:   5,
		MomentumSignalPeriod: 2,
		MomentumRSIPeriod:    14,
	})
	suite.Equal(15, s.Window())

	suite.Require().NoError(s.UpdateParameters(types.Parameters{MomentumSignalPeriod: 20}))
	suite.Equal(25, s.Window())
}

func (suite *MomentumTestSuite) TestCrossParameterRules() {
	s := suite.newMomentum(nil)

	err := s.ValidateParameters(types.Parameters{MomentumFastPeriod: 30, MomentumSlowPeriod: 26})
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))

	err = s.UpdateParameters(types.Parameters{MomentumRSIOversold: 80})
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))
	suite.Equal(30.0, s.GetParameters()[MomentumRSIOversold])

	err = s.ValidateParameters(types.Parameters{"unknown": 1})
	suite.Error(err)
	suite.Contains(err.Error(), "unknown")
}
