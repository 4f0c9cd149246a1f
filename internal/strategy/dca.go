package strategy

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/indicator"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DCAInvestmentAmount = "investment_amount"
	DCAIntervalHours    = "interval_hours"
	DCAMaxInvestment    = "max_investment"
	DCALookbackPeriod   = "lookback_period"
	DCATrendFilter      = "trend_filter"
)

var dcaSchema = paramSchema{
	positive(DCAInvestmentAmount, 100),
	integer(DCAIntervalHours, 24, 1, 168),
	positive(DCAMaxInvestment, 10000),
	integer(DCALookbackPeriod, 20, 5, 100),
	boolean(DCATrendFilter, true),
}

// DCAStrategy buys a fixed quote amount every interval until the cumulative
// investment cap is reached.
type DCAStrategy struct {
	*base

	investmentAmount decimal.Decimal
	interval         time.Duration
	maxInvestment    decimal.Decimal
	lookback         int
	trendFilter      bool

	prices      []float64
	invested    decimal.Decimal
	lastSignal  time.Time
	hasSignaled bool
	// exhausted is terminal until the parameters are updated
	exhausted bool
	// reserved maps signal id to the investment counted for it
	reserved map[string]decimal.Decimal
}

// NewDCA creates a DCA strategy from its configuration.
func NewDCA(cfg types.StrategyConfig, log *logger.Logger) (*DCAStrategy, error) {
	params, err := dcaSchema.resolve(cfg.Parameters)
	if err != nil {
		return nil, err
	}

	s := &DCAStrategy{
		base:             newBase(cfg, types.StrategyKindDCA, dcaSchema, log),
		investmentAmount: decimal.Zero,
		interval:         0,
		maxInvestment:    decimal.Zero,
		lookback:         0,
		trendFilter:      false,
		prices:           nil,
		invested:         decimal.Zero,
		lastSignal:       time.Time{},
		hasSignaled:      false,
		exhausted:        false,
		reserved:         map[string]decimal.Decimal{},
	}
	s.apply(params)

	return s, nil
}

func (s *DCAStrategy) apply(params types.Parameters) {
	s.params = params
	s.investmentAmount = decimalParam(params, DCAInvestmentAmount)
	s.interval = durationHours(intParam(params, DCAIntervalHours))
	s.maxInvestment = decimalParam(params, DCAMaxInvestment)
	s.lookback = intParam(params, DCALookbackPeriod)
	s.trendFilter = boolParam(params, DCATrendFilter)

	if len(s.prices) > s.lookback {
		s.prices = append([]float64(nil), s.prices[len(s.prices)-s.lookback:]...)
	}
}

// Analyze implements Strategy.
func (s *DCAStrategy) Analyze(snapshot types.MarketSnapshot) (optional.Option[types.StrategySignal], error) {
	if err := s.checkSnapshot(snapshot); err != nil {
		return optional.None[types.StrategySignal](), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	price := snapshot.Price.InexactFloat64()
	s.prices = appendBounded(s.prices, price, s.lookback)

	if s.exhausted {
		return optional.None[types.StrategySignal](), nil
	}

	if s.hasSignaled && snapshot.Timestamp.Sub(s.lastSignal) < s.interval {
		return optional.None[types.StrategySignal](), nil
	}

	if s.invested.Add(s.investmentAmount).GreaterThan(s.maxInvestment) {
		s.exhausted = true
		s.log.Info("Maximum investment reached, no further buys until parameters change",
			zap.String("invested", s.invested.String()),
			zap.String("max_investment", s.maxInvestment.String()),
		)

		return optional.None[types.StrategySignal](), nil
	}

	warm := len(s.prices) >= s.lookback

	avg, err := indicator.SMA(s.prices, len(s.prices))
	if err != nil {
		return optional.None[types.StrategySignal](), err
	}

	if s.trendFilter && warm && price > avg {
		return optional.None[types.StrategySignal](), nil
	}

	s.invested = s.invested.Add(s.investmentAmount)
	s.lastSignal = snapshot.Timestamp
	s.hasSignaled = true

	signal := s.newSignal(
		snapshot,
		types.SignalActionBuy,
		s.investmentAmount.DivRound(snapshot.Price, quantityPrecision),
		optional.Some(snapshot.Price),
		dcaConfidence(price, avg, warm),
		map[string]any{
			"investment_amount": s.investmentAmount.String(),
			"interval_hours":    s.interval.Hours(),
			"total_invested":    s.invested.String(),
		},
	)
	s.reserved[signal.ID] = s.investmentAmount

	return optional.Some(signal), nil
}

// dcaConfidence is higher the further price sits below its recent mean.
func dcaConfidence(price, avg float64, warm bool) float64 {
	if !warm || avg <= 0 {
		return 0.5
	}

	ratio := price / avg

	switch {
	case ratio < 0.95:
		return 0.8
	case ratio < 0.98:
		return 0.6
	default:
		return 0.4
	}
}

// OnOrderUpdate releases the unfilled share of the investment once the order
// for a signal is resolved without a full fill.
func (s *DCAStrategy) OnOrderUpdate(order types.Order) {
	if !order.Status.IsTerminal() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	amount, ok := s.reserved[order.SignalID]
	if !ok {
		return
	}

	delete(s.reserved, order.SignalID)

	if order.Status == types.OrderStatusFilled || !order.Quantity.IsPositive() {
		return
	}

	unfilled := amount.Mul(order.RemainingQuantity()).Div(order.Quantity)
	s.invested = decimal.Max(decimal.Zero, s.invested.Sub(unfilled))
}

// OnSignalRejected releases the investment counted for a rejected signal.
func (s *DCAStrategy) OnSignalRejected(signal types.StrategySignal, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, ok := s.reserved[signal.ID]
	if !ok {
		return
	}

	delete(s.reserved, signal.ID)
	s.invested = decimal.Max(decimal.Zero, s.invested.Sub(amount))
	s.log.Debug("Signal rejected, investment released", zap.String("reason", reason), zap.String("amount", amount.String()))
}

// UpdateParameters implements Strategy. A successful update clears the
// exhausted state.
func (s *DCAStrategy) UpdateParameters(params types.Parameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved, err := s.schema.resolve(s.merged(params))
	if err != nil {
		return err
	}

	s.apply(resolved)
	s.exhausted = false

	return nil
}

// ValidateParameters implements Strategy.
func (s *DCAStrategy) ValidateParameters(params types.Parameters) error {
	_, err := dcaSchema.resolve(params)

	return err
}

// State implements Strategy.
func (s *DCAStrategy) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.exhausted:
		return "exhausted"
	case len(s.prices) < s.lookback:
		return "warming_up"
	default:
		return "active"
	}
}

// Invested returns the cumulative investment counted so far.
func (s *DCAStrategy) Invested() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.invested
}
