package strategy

import (
	"fmt"
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/indicator"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	MomentumFastPeriod    = "fast_period"
	MomentumSlowPeriod    = "slow_period"
	MomentumSignalPeriod  = "signal_period"
	MomentumRSIPeriod     = "rsi_period"
	MomentumRSIOversold   = "rsi_oversold"
	MomentumRSIOverbought = "rsi_overbought"
	MomentumMinConfidence = "min_confidence"
	MomentumPositionSize  = "position_size"
)

var momentumSchema = paramSchema{
	integer(MomentumFastPeriod, 12, 1, 100),
	integer(MomentumSlowPeriod, 26, 1, 100),
	integer(MomentumSignalPeriod, 9, 1, 100),
	integer(MomentumRSIPeriod, 14, 1, 100),
	number(MomentumRSIOversold, 30, 0, 100),
	number(MomentumRSIOverbought, 70, 0, 100),
	number(MomentumMinConfidence, 0.6, 0, 1),
	positive(MomentumPositionSize, 100),
}

const (
	macdWeight  = 0.4
	rsiWeight   = 0.3
	trendWeight = 0.3
	// histogramSaturation is the histogram size, in percent of price, that
	// scores a full MACD contribution
	histogramSaturation = 0.5
	volumeSpikeRatio    = 1.5
	volumeSpikeBonus    = 0.1
)

// MomentumStrategy trades MACD histogram crossovers filtered by RSI.
type MomentumStrategy struct {
	*base

	fastPeriod    int
	slowPeriod    int
	signalPeriod  int
	rsiPeriod     int
	oversold      float64
	overbought    float64
	minConfidence float64
	positionSize  decimal.Decimal

	window  int
	prices  []float64
	volumes []float64
}

// NewMomentum creates a momentum strategy from its configuration.
func NewMomentum(cfg types.StrategyConfig, log *logger.Logger) (*MomentumStrategy, error) {
	params, err := resolveMomentum(cfg.Parameters)
	if err != nil {
		return nil, err
	}

	s := &MomentumStrategy{
		base:          newBase(cfg, types.StrategyKindMomentum, momentumSchema, log),
		fastPeriod:    0,
		slowPeriod:    0,
		signalPeriod:  0,
		rsiPeriod:     0,
		oversold:      0,
		overbought:    0,
		minConfidence: 0,
		positionSize:  decimal.Zero,
		window:        0,
		prices:        nil,
		volumes:       nil,
	}
	s.apply(params)

	return s, nil
}

// resolveMomentum adds the cross-parameter rules to the schema checks.
func resolveMomentum(params types.Parameters) (types.Parameters, error) {
	resolved, err := momentumSchema.resolve(params)
	if err != nil {
		return nil, err
	}

	if intParam(resolved, MomentumFastPeriod) >= intParam(resolved, MomentumSlowPeriod) {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "%s must be less than %s", MomentumFastPeriod, MomentumSlowPeriod)
	}

	if floatParam(resolved, MomentumRSIOversold) >= floatParam(resolved, MomentumRSIOverbought) {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "%s must be less than %s", MomentumRSIOversold, MomentumRSIOverbought)
	}

	return resolved, nil
}

func (s *MomentumStrategy) apply(params types.Parameters) {
	s.params = params
	s.fastPeriod = intParam(params, MomentumFastPeriod)
	s.slowPeriod = intParam(params, MomentumSlowPeriod)
	s.signalPeriod = intParam(params, MomentumSignalPeriod)
	s.rsiPeriod = intParam(params, MomentumRSIPeriod)
	s.oversold = floatParam(params, MomentumRSIOversold)
	s.overbought = floatParam(params, MomentumRSIOverbought)
	s.minConfidence = floatParam(params, MomentumMinConfidence)
	s.positionSize = decimalParam(params, MomentumPositionSize)
	s.window = max(indicator.MACDMinLength(s.slowPeriod, s.signalPeriod), s.rsiPeriod+1)

	if len(s.prices) > s.window {
		s.prices = append([]float64(nil), s.prices[len(s.prices)-s.window:]...)
		s.volumes = append([]float64(nil), s.volumes[len(s.volumes)-s.window:]...)
	}
}

// Window is the number of prices kept and needed before signals are produced.
func (s *MomentumStrategy) Window() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.window
}

// Analyze implements Strategy.
func (s *MomentumStrategy) Analyze(snapshot types.MarketSnapshot) (optional.Option[types.StrategySignal], error) {
	if err := s.checkSnapshot(snapshot); err != nil {
		return optional.None[types.StrategySignal](), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	price := snapshot.Price.InexactFloat64()
	s.prices = appendBounded(s.prices, price, s.window)
	s.volumes = appendBounded(s.volumes, snapshot.Volume24h.InexactFloat64(), s.window)

	if len(s.prices) < s.window {
		return optional.None[types.StrategySignal](), nil
	}

	macd, err := indicator.MACD(s.prices, s.fastPeriod, s.slowPeriod, s.signalPeriod)
	if err != nil {
		return optional.None[types.StrategySignal](), errors.Wrap(errors.ErrCodeIndicatorCalculation, "failed to calculate MACD", err)
	}

	rsi, err := indicator.RSI(s.prices, s.rsiPeriod)
	if err != nil {
		return optional.None[types.StrategySignal](), errors.Wrap(errors.ErrCodeIndicatorCalculation, "failed to calculate RSI", err)
	}

	fastSMA, err := indicator.SMA(s.prices, s.fastPeriod)
	if err != nil {
		return optional.None[types.StrategySignal](), err
	}

	slowSMA, err := indicator.SMA(s.prices, s.slowPeriod)
	if err != nil {
		return optional.None[types.StrategySignal](), err
	}

	prev, hist := macd.PreviousHistogram(), macd.LastHistogram()

	var action types.SignalAction

	switch {
	case prev < 0 && hist > 0 && rsi < s.overbought:
		action = types.SignalActionBuy
	case prev > 0 && hist < 0 && rsi > s.oversold:
		action = types.SignalActionSell
	default:
		return optional.None[types.StrategySignal](), nil
	}

	bullish := action == types.SignalActionBuy
	confidence := momentumConfidence(bullish, price, hist, rsi, fastSMA, slowSMA)

	if s.volumeSpike() {
		confidence += volumeSpikeBonus
	}

	confidence = clamp(confidence, 0, 1)

	if confidence < s.minConfidence {
		s.log.Debug("Momentum candidate below minimum confidence",
			zap.String("action", string(action)),
			zap.Float64("confidence", confidence),
			zap.Float64("min_confidence", s.minConfidence),
		)

		return optional.None[types.StrategySignal](), nil
	}

	signal := s.newSignal(
		snapshot,
		action,
		s.positionSize.DivRound(snapshot.Price, quantityPrecision),
		optional.None[decimal.Decimal](),
		confidence,
		map[string]any{
			"macd":      macd.LastLine(),
			"histogram": hist,
			"rsi":       rsi,
			"fast_sma":  fastSMA,
			"slow_sma":  slowSMA,
		},
	)

	return optional.Some(signal), nil
}

// momentumConfidence weighs histogram size, RSI distance from 50 and trend
// alignment, each scored in [0, 1] in the direction of the signal.
func momentumConfidence(bullish bool, price, hist, rsi, fastSMA, slowSMA float64) float64 {
	macdScore := 0.0
	if price > 0 {
		macdScore = clamp(math.Abs(hist)/price*100/histogramSaturation, 0, 1)
	}

	rsiScore := (50 - rsi) / 50
	if !bullish {
		rsiScore = -rsiScore
	}

	rsiScore = clamp(rsiScore, 0, 1)

	trendScore := 0.0
	if (price > slowSMA) == bullish {
		trendScore += 0.5
	}

	if (fastSMA > slowSMA) == bullish {
		trendScore += 0.5
	}

	return macdWeight*macdScore + rsiWeight*rsiScore + trendWeight*trendScore
}

// volumeSpike reports whether the latest volume exceeds the average of the
// earlier ones by volumeSpikeRatio.
func (s *MomentumStrategy) volumeSpike() bool {
	if len(s.volumes) < 2 {
		return false
	}

	earlier := s.volumes[:len(s.volumes)-1]

	avg, err := indicator.SMA(earlier, len(earlier))
	if err != nil || avg <= 0 {
		return false
	}

	return s.volumes[len(s.volumes)-1] > avg*volumeSpikeRatio
}

// UpdateParameters implements Strategy.
func (s *MomentumStrategy) UpdateParameters(params types.Parameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved, err := resolveMomentum(s.merged(params))
	if err != nil {
		return err
	}

	s.apply(resolved)

	return nil
}

// ValidateParameters implements Strategy.
func (s *MomentumStrategy) ValidateParameters(params types.Parameters) error {
	_, err := resolveMomentum(params)

	return err
}

// State implements Strategy.
func (s *MomentumStrategy) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.prices) < s.window {
		return fmt.Sprintf("warming_up %d/%d", len(s.prices), s.window)
	}

	return "active"
}
