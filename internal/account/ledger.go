// Package account keeps the in-memory account: cash, reservations, positions
// and the realized and daily profit/loss the risk manager reads.
//
// A Ledger is not safe for concurrent use. The dispatcher owns it and calls it
// only while holding its own lock, so order state and account state change
// together.
package account

import (
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const tradingDayLayout = "2006-01-02"

// FillResult describes what a fill did to the account.
type FillResult struct {
	// RealizedPnL is the profit/loss realized by the closing part of the fill
	RealizedPnL decimal.Decimal
	// Closed is the quantity of the existing position the fill closed
	Closed decimal.Decimal
	// IsNewPosition is true when the fill opened a position on a flat symbol
	IsNewPosition bool
	Position      types.Position
}

type Ledger struct {
	state types.AccountState
	log   *logger.Logger
}

// NewLedger creates a ledger holding balance in cash.
func NewLedger(balance decimal.Decimal, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.NewNop()
	}

	return &Ledger{
		state: types.NewAccountState(balance),
		log:   log.Named("ledger"),
	}
}

// Snapshot returns a deep copy of the account state.
func (l *Ledger) Snapshot() types.AccountState {
	return l.state.Clone()
}

// SyncBalance replaces the cash balance with the venue's figure.
func (l *Ledger) SyncBalance(balance decimal.Decimal, at time.Time) {
	l.state.Balance = balance
	l.state.UpdatedAt = at
	l.updatePeak()
}

// Position returns the position of symbol, empty when none is held.
func (l *Ledger) Position(symbol string) types.Position {
	return l.position(symbol)
}

func (l *Ledger) position(symbol string) types.Position {
	p, ok := l.state.Positions[symbol]
	if !ok {
		return types.Position{
			Symbol:          symbol,
			Quantity:        decimal.Zero,
			PendingQuantity: decimal.Zero,
			AvgEntryPrice:   decimal.Zero,
			LastPrice:       decimal.Zero,
			RealizedPnL:     decimal.Zero,
		}
	}

	return p
}

// Reserve holds the notional of a new order: cash for buys and pending
// quantity for both sides.
func (l *Ledger) Reserve(order types.Order) {
	p := l.position(order.Symbol)
	p.PendingQuantity = p.PendingQuantity.Add(order.Quantity.Mul(order.Side.Sign()))

	if p.LastPrice.IsZero() {
		p.LastPrice = order.ReferencePrice
	}

	l.state.Positions[order.Symbol] = p

	if order.Side == types.OrderSideBuy {
		l.state.Reserved = l.state.Reserved.Add(order.Quantity.Mul(order.ExecutionPrice()))
	}

	l.state.UpdatedAt = order.UpdatedAt
}

// Release frees what is still held for the unfilled part of order. It is
// called once, when the order reaches a terminal state.
func (l *Ledger) Release(order types.Order) {
	remaining := order.RemainingQuantity()
	if !remaining.IsPositive() {
		return
	}

	p := l.position(order.Symbol)
	p.PendingQuantity = p.PendingQuantity.Sub(remaining.Mul(order.Side.Sign()))
	l.store(p)

	if order.Side == types.OrderSideBuy {
		l.state.Reserved = decimal.Max(decimal.Zero, l.state.Reserved.Sub(remaining.Mul(order.ExecutionPrice())))
	}

	l.state.UpdatedAt = order.UpdatedAt
}

// ApplyFill books an execution of quantity at price for order. The
// reservation made for that quantity is released, cash moves by the traded
// notional and the position is netted: fills on the same side average into
// the entry price, fills on the opposite side realize profit/loss and may flip
// the position.
func (l *Ledger) ApplyFill(order types.Order, quantity, price decimal.Decimal, at time.Time) (FillResult, error) {
	if !quantity.IsPositive() || !price.IsPositive() {
		return FillResult{}, errors.Newf(errors.ErrCodeInvalidFill, "fill for order %s needs positive quantity and price, got %s @ %s",
			order.ID, quantity.String(), price.String())
	}

	sign := order.Side.Sign()
	notional := quantity.Mul(price)

	p := l.position(order.Symbol)
	p.PendingQuantity = p.PendingQuantity.Sub(quantity.Mul(sign))

	if order.Side == types.OrderSideBuy {
		l.state.Reserved = decimal.Max(decimal.Zero, l.state.Reserved.Sub(quantity.Mul(order.ExecutionPrice())))
		l.state.Balance = l.state.Balance.Sub(notional)
	} else {
		l.state.Balance = l.state.Balance.Add(notional)
	}

	result := FillResult{
		RealizedPnL:   decimal.Zero,
		Closed:        decimal.Zero,
		IsNewPosition: p.Quantity.IsZero(),
		Position:      types.Position{},
	}

	held := p.Quantity.Abs()

	switch {
	case p.Quantity.IsZero() || p.Quantity.Sign() == sign.Sign():
		p.AvgEntryPrice = held.Mul(p.AvgEntryPrice).Add(notional).Div(held.Add(quantity))
		p.Quantity = p.Quantity.Add(quantity.Mul(sign))
	default:
		closed := decimal.Min(held, quantity)
		// a long gains when price rises above entry, a short when it falls
		pnl := price.Sub(p.AvgEntryPrice).Mul(closed).Mul(decimal.NewFromInt(int64(p.Quantity.Sign())))

		result.Closed = closed
		result.RealizedPnL = pnl
		l.realize(&p, pnl)

		p.Quantity = p.Quantity.Add(quantity.Mul(sign))

		switch {
		case p.Quantity.IsZero():
			p.AvgEntryPrice = decimal.Zero
		case quantity.GreaterThan(held):
			// flipped: the excess opens a position at the fill price
			p.AvgEntryPrice = price
		}
	}

	p.LastPrice = price
	l.store(p)
	l.state.UpdatedAt = at
	l.updatePeak()

	result.Position = l.position(order.Symbol)

	l.log.Debug("Fill applied",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("quantity", quantity.String()),
		zap.String("price", price.String()),
		zap.String("position", result.Position.Quantity.String()),
		zap.String("realized_pnl", result.RealizedPnL.String()),
	)

	return result, nil
}

func (l *Ledger) realize(p *types.Position, pnl decimal.Decimal) {
	p.RealizedPnL = p.RealizedPnL.Add(pnl)
	l.state.RealizedPnL = l.state.RealizedPnL.Add(pnl)
	l.state.DailyRealizedPnL = l.state.DailyRealizedPnL.Add(pnl)

	if pnl.IsNegative() {
		l.state.DailyLoss = l.state.DailyLoss.Add(pnl.Neg())
	}
}

// store keeps p, dropping symbols with neither exposure nor history.
func (l *Ledger) store(p types.Position) {
	if p.Quantity.IsZero() && p.PendingQuantity.IsZero() && p.RealizedPnL.IsZero() {
		delete(l.state.Positions, p.Symbol)

		return
	}

	l.state.Positions[p.Symbol] = p
}

// MarkToMarket records the latest price of symbol and updates the equity peak.
func (l *Ledger) MarkToMarket(symbol string, price decimal.Decimal, at time.Time) {
	if p, ok := l.state.Positions[symbol]; ok {
		p.LastPrice = price
		l.state.Positions[symbol] = p
	}

	l.state.UpdatedAt = at
	l.updatePeak()
}

func (l *Ledger) updatePeak() {
	if equity := l.state.Equity(); equity.GreaterThan(l.state.PeakEquity) {
		l.state.PeakEquity = equity
	}
}

// RollDay resets the daily counters when at falls on a later UTC day than the
// current trading day. The first call only records the day.
func (l *Ledger) RollDay(at time.Time) bool {
	day := at.UTC().Format(tradingDayLayout)

	switch {
	case l.state.TradingDay == "":
		l.state.TradingDay = day

		return false
	case day <= l.state.TradingDay:
		return false
	}

	l.log.Info("New trading day, resetting daily counters",
		zap.String("previous_day", l.state.TradingDay),
		zap.String("trading_day", day),
		zap.String("daily_loss", l.state.DailyLoss.String()),
		zap.String("daily_realized_pnl", l.state.DailyRealizedPnL.String()),
	)
	l.ResetDaily(day)

	return true
}

// ResetDaily clears the daily loss and daily realized profit/loss.
func (l *Ledger) ResetDaily(day string) {
	l.state.TradingDay = day
	l.state.DailyLoss = decimal.Zero
	l.state.DailyRealizedPnL = decimal.Zero
}
