// Package risk is the admission gate between strategies and the dispatcher.
package risk

import (
	"fmt"
	"maps"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
	// ActionCloseOnly rejects the signal because a global limit is breached.
	// Until the limits recover only protective closes reach the venue.
	ActionCloseOnly Action = "CLOSE_ONLY"
)

type Reason string

const (
	ReasonNone                Reason = ""
	ReasonDailyLossLimit      Reason = "DAILY_LOSS_LIMIT"
	ReasonMaxDrawdown         Reason = "MAX_DRAWDOWN"
	ReasonInvalidSignal       Reason = "INVALID_SIGNAL"
	ReasonNoPosition          Reason = "NO_POSITION"
	ReasonMaxPositionSize     Reason = "MAX_POSITION_SIZE"
	ReasonMaxPositions        Reason = "MAX_POSITIONS"
	ReasonInsufficientBalance Reason = "INSUFFICIENT_BALANCE"
)

// Decision is the outcome of evaluating one signal.
type Decision struct {
	Action  Action `json:"action"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// Approved reports whether the signal may become an order.
func (d Decision) Approved() bool {
	return d.Action == ActionApprove
}

// RejectionError carries a refused decision through error returns.
type RejectionError struct {
	Decision Decision
}

func (e *RejectionError) Error() string {
	if e.Decision.Message == "" {
		return string(e.Decision.Reason)
	}

	return fmt.Sprintf("%s: %s", e.Decision.Reason, e.Decision.Message)
}

func approve() Decision {
	return Decision{Action: ActionApprove, Reason: ReasonNone, Message: ""}
}

func reject(reason Reason, format string, args ...any) Decision {
	return Decision{Action: ActionReject, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Manager evaluates signals against the current limits. Limits are replaced
// as a whole on reload, so an evaluation never sees a half-updated set.
type Manager struct {
	limits atomic.Pointer[types.RiskLimits]
	log    *logger.Logger
}

// NewManager creates a manager with validated limits.
func NewManager(limits types.RiskLimits, log *logger.Logger) (*Manager, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNop()
	}

	m := &Manager{
		limits: atomic.Pointer[types.RiskLimits]{},
		log:    log.Named("risk"),
	}
	m.limits.Store(&limits)

	return m, nil
}

// Limits returns the limits in effect.
func (m *Manager) Limits() types.RiskLimits {
	return *m.limits.Load()
}

// Reload validates limits and swaps them in. Invalid limits leave the current
// ones untouched.
func (m *Manager) Reload(limits types.RiskLimits) error {
	if err := limits.Validate(); err != nil {
		return err
	}

	m.limits.Store(&limits)
	m.log.Info("Risk limits reloaded",
		zap.String("max_daily_loss", limits.MaxDailyLoss.String()),
		zap.String("max_position_size", limits.MaxPositionSize.String()),
		zap.Int("max_positions", limits.MaxPositions),
		zap.String("stop_loss_percentage", limits.StopLossPercentage.String()),
		zap.String("take_profit_percentage", limits.TakeProfitPercentage.String()),
		zap.String("max_drawdown_percentage", limits.MaxDrawdownPercentage.String()),
	)

	return nil
}

// CheckRiskLimits reports whether the account is inside the global limits.
func (m *Manager) CheckRiskLimits(account types.AccountState) bool {
	return m.globalBreach(*m.limits.Load(), account).Approved()
}

func (m *Manager) globalBreach(limits types.RiskLimits, account types.AccountState) Decision {
	if account.DailyLoss.GreaterThanOrEqual(limits.MaxDailyLoss) {
		return Decision{
			Action:  ActionCloseOnly,
			Reason:  ReasonDailyLossLimit,
			Message: fmt.Sprintf("daily loss %s reached limit %s", account.DailyLoss.String(), limits.MaxDailyLoss.String()),
		}
	}

	if drawdown := account.DrawdownPercentage(); drawdown.GreaterThanOrEqual(limits.MaxDrawdownPercentage) {
		return Decision{
			Action:  ActionCloseOnly,
			Reason:  ReasonMaxDrawdown,
			Message: fmt.Sprintf("drawdown %s%% reached limit %s%%", drawdown.StringFixed(2), limits.MaxDrawdownPercentage.String()),
		}
	}

	return approve()
}

// CheckSignalRisk reports whether signal may be admitted.
func (m *Manager) CheckSignalRisk(signal types.StrategySignal, account types.AccountState) bool {
	return m.Evaluate(signal, account).Approved()
}

// Evaluate runs every admission check in order and returns the first failure.
// A signal is admitted whole or not at all.
func (m *Manager) Evaluate(signal types.StrategySignal, account types.AccountState) Decision {
	limits := *m.limits.Load()

	if breach := m.globalBreach(limits, account); !breach.Approved() {
		return breach
	}

	if err := signal.Validate(); err != nil {
		return reject(ReasonInvalidSignal, "%v", err)
	}

	position := account.Position(signal.Symbol)
	price := signal.ExecutionPrice()
	current := position.Quantity.Add(position.PendingQuantity)

	var delta decimal.Decimal

	switch signal.Action {
	case types.SignalActionBuy:
		delta = signal.Quantity
	case types.SignalActionSell:
		delta = signal.Quantity.Neg()
	case types.SignalActionClose:
		if !position.IsOpen() {
			return reject(ReasonNoPosition, "no open %s position to close", signal.Symbol)
		}

		delta = position.Quantity.Neg()
	}

	resulting := current.Add(delta)
	notional := resulting.Abs().Mul(price)

	if notional.GreaterThan(limits.MaxPositionSize) && resulting.Abs().GreaterThan(current.Abs()) {
		return reject(ReasonMaxPositionSize, "%s position notional %s would exceed limit %s",
			signal.Symbol, notional.StringFixed(2), limits.MaxPositionSize.String())
	}

	if current.IsZero() && signal.Action != types.SignalActionClose && account.OpenPositionCount() >= limits.MaxPositions {
		return reject(ReasonMaxPositions, "%d open positions reached limit %d", account.OpenPositionCount(), limits.MaxPositions)
	}

	if signal.Action == types.SignalActionBuy {
		cost := signal.Quantity.Mul(price)
		if cost.GreaterThan(account.Available()) {
			return reject(ReasonInsufficientBalance, "buy notional %s exceeds available balance %s",
				cost.StringFixed(2), account.Available().StringFixed(2))
		}
	}

	return approve()
}

// ProtectiveCloses returns a close signal for every open position whose
// unrealized return breaches the stop-loss or take-profit percentage. The
// signals skip admission checks but still go through the dispatcher.
func (m *Manager) ProtectiveCloses(account types.AccountState) []types.StrategySignal {
	limits := *m.limits.Load()

	var closes []types.StrategySignal

	for _, symbol := range slices.Sorted(maps.Keys(account.Positions)) {
		position := account.Positions[symbol]
		if !position.IsOpen() {
			continue
		}

		pnl := position.UnrealizedPnLPercentage()

		var reason string

		switch {
		case limits.StopLossPercentage.IsPositive() && pnl.LessThanOrEqual(limits.StopLossPercentage.Neg()):
			reason = types.SignalReasonStopLoss
		case limits.TakeProfitPercentage.IsPositive() && pnl.GreaterThanOrEqual(limits.TakeProfitPercentage):
			reason = types.SignalReasonTakeProfit
		default:
			continue
		}

		m.log.Info("Protective close triggered",
			zap.String("symbol", symbol),
			zap.String("reason", reason),
			zap.String("pnl_percentage", pnl.StringFixed(2)),
		)

		closes = append(closes, types.StrategySignal{
			ID:             uuid.NewString(),
			StrategyName:   types.RiskManagerStrategyName,
			Symbol:         symbol,
			Action:         types.SignalActionClose,
			Quantity:       position.Quantity.Abs(),
			Price:          optional.None[decimal.Decimal](),
			ReferencePrice: position.MarkPrice(),
			Confidence:     1,
			Reason:         reason,
			Metadata: map[string]any{
				"pnl_percentage": pnl.InexactFloat64(),
				"entry_price":    position.AvgEntryPrice.String(),
			},
			Timestamp:  account.UpdatedAt,
			Protective: true,
		})
	}

	return closes
}
