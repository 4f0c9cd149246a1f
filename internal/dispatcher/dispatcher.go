// Package dispatcher turns admitted signals into tracked orders. It owns the
// order book and the account ledger and changes both under a single lock, so
// a status change and its account effect are never observed apart.
package dispatcher

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-autotrader/internal/account"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/risk"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// cancelTimeout bounds venue cancels issued after the dispatcher context ends.
const cancelTimeout = 10 * time.Second

type Config struct {
	// DryRun fills every order immediately at its limit or reference price
	// without contacting the venue
	DryRun bool
	// OrderTimeout cancels orders still in flight after this long; zero disables it
	OrderTimeout time.Duration
	// PollInterval is how often the watchdog checks timeouts and venue status
	PollInterval time.Duration
	Retry        RetryPolicy
	// OrdersPerSecond limits venue submissions; zero means unlimited
	OrdersPerSecond float64
	Burst           int
	InitialBalance  decimal.Decimal
}

// DefaultConfig returns a dry-run configuration.
func DefaultConfig() Config {
	return Config{
		DryRun:          true,
		OrderTimeout:    30 * time.Second,
		PollInterval:    2 * time.Second,
		Retry:           DefaultRetryPolicy(),
		OrdersPerSecond: 10,
		Burst:           1,
		InitialBalance:  decimal.NewFromInt(10000),
	}
}

// UpdateHandler receives every order state change. err is set when the
// change was caused by a venue failure.
type UpdateHandler func(order types.Order, err error)

type inFlightKey struct {
	strategy string
	symbol   string
}

type update struct {
	order types.Order
	err   error
}

type Dispatcher struct {
	mu       sync.Mutex
	cfg      Config
	client   ExecutionClient
	risk     *risk.Manager
	ledger   *account.Ledger
	orders   map[string]*types.Order
	inFlight map[inFlightKey]string
	stats    types.TradeStats
	closed   bool
	handlers []UpdateHandler
	// placing holds the abort func of every placement still retrying
	placing map[string]context.CancelFunc

	limiter *rate.Limiter
	wg      sync.WaitGroup
	ctx     context.Context
	stop    context.CancelFunc
	now     func() time.Time
	log     *logger.Logger
}

// New creates a dispatcher. client may be nil in dry-run mode.
func New(cfg Config, client ExecutionClient, riskManager *risk.Manager, log *logger.Logger) (*Dispatcher, error) {
	if riskManager == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "dispatcher requires a risk manager")
	}

	if !cfg.DryRun && client == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "live trading requires an execution client")
	}

	if log == nil {
		log = logger.NewNop()
	}

	limit := rate.Inf
	if cfg.OrdersPerSecond > 0 {
		limit = rate.Limit(cfg.OrdersPerSecond)
	}

	ctx, stop := context.WithCancel(context.Background())

	return &Dispatcher{
		mu:       sync.Mutex{},
		cfg:      cfg,
		client:   client,
		risk:     riskManager,
		ledger:   account.NewLedger(cfg.InitialBalance, log),
		orders:   map[string]*types.Order{},
		inFlight: map[inFlightKey]string{},
		stats:    types.TradeStats{},
		closed:   false,
		handlers: nil,
		placing:  map[string]context.CancelFunc{},
		limiter:  rate.NewLimiter(limit, max(1, cfg.Burst)),
		wg:       sync.WaitGroup{},
		ctx:      ctx,
		stop:     stop,
		now:      time.Now,
		log:      log.Named("dispatcher"),
	}, nil
}

// OnUpdate registers a handler for order state changes. Handlers run outside
// the dispatcher lock and may call back into the dispatcher.
func (d *Dispatcher) OnUpdate(handler UpdateHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers = append(d.handlers, handler)
}

func (d *Dispatcher) notify(updates ...update) {
	if len(updates) == 0 {
		return
	}

	d.mu.Lock()
	handlers := slices.Clone(d.handlers)
	d.mu.Unlock()

	for _, u := range updates {
		for _, handler := range handlers {
			handler(u.order, u.err)
		}
	}
}

// SyncAccount replaces the ledger's cash balance with the venue's. It is a
// no-op in dry-run mode.
func (d *Dispatcher) SyncAccount(ctx context.Context) error {
	if d.cfg.DryRun {
		return nil
	}

	info, err := d.client.GetAccountInfo(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeOrderFailed, "failed to load account from venue", err)
	}

	d.mu.Lock()
	d.ledger.SyncBalance(info.Balance, d.now())
	d.mu.Unlock()

	d.log.Info("Account synchronized with venue", zap.String("balance", info.Balance.String()))

	return nil
}

// Submit admits signal and creates its order. Admission checks run under the
// dispatcher lock in this order: shutdown, one order in flight per strategy
// and symbol, risk evaluation (skipped for protective closes), reservation.
// In dry-run mode the returned order is already filled; otherwise it is
// CREATED and placed in the background.
func (d *Dispatcher) Submit(ctx context.Context, signal types.StrategySignal) (types.Order, error) {
	if err := ctx.Err(); err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeOrderFailed, "submit cancelled", err)
	}

	d.mu.Lock()

	order, err := d.admit(signal)
	if err != nil {
		d.mu.Unlock()

		return types.Order{}, err
	}

	created := order.Clone()

	if !d.cfg.DryRun {
		d.wg.Add(1)
	}

	d.mu.Unlock()

	d.notify(update{order: created, err: nil})

	if d.cfg.DryRun {
		return d.simulate(created.ID)
	}

	go d.place(created.ID)

	return created, nil
}

func (d *Dispatcher) admit(signal types.StrategySignal) (*types.Order, error) {
	if d.closed {
		return nil, errors.New(errors.ErrCodeDispatcherShutdown, "dispatcher is shut down")
	}

	key := inFlightKey{strategy: signal.StrategyName, symbol: signal.Symbol}
	if id, ok := d.inFlight[key]; ok {
		return nil, errors.Newf(errors.ErrCodeOrderInFlight, "strategy %s already has order %s in flight for %s",
			signal.StrategyName, id, signal.Symbol)
	}

	if signal.Protective {
		if err := signal.Validate(); err != nil {
			return nil, err
		}
	} else if decision := d.risk.Evaluate(signal, d.ledger.Snapshot()); !decision.Approved() {
		return nil, errors.Wrap(errors.ErrCodeRiskRejected, "signal rejected by risk manager", &risk.RejectionError{Decision: decision})
	}

	order, err := d.buildOrder(signal)
	if err != nil {
		return nil, err
	}

	d.orders[order.ID] = order
	d.inFlight[key] = order.ID
	d.ledger.Reserve(*order)
	d.stats.TotalOrders++

	d.log.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("strategy", order.StrategyName),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("type", string(order.Type)),
		zap.String("quantity", order.Quantity.String()),
		zap.String("price", order.ExecutionPrice().String()),
		zap.Bool("protective", order.Protective),
	)

	return order, nil
}

// buildOrder maps a signal to an order. A close takes the side and size from
// the position net of orders already pending against it.
func (d *Dispatcher) buildOrder(signal types.StrategySignal) (*types.Order, error) {
	side := types.OrderSideBuy
	quantity := signal.Quantity

	switch signal.Action {
	case types.SignalActionBuy:
	case types.SignalActionSell:
		side = types.OrderSideSell
	case types.SignalActionClose:
		position := d.ledger.Position(signal.Symbol)

		closable := position.Quantity.Add(position.PendingQuantity)
		if closable.IsZero() || closable.Sign() != position.Quantity.Sign() {
			return nil, errors.Newf(errors.ErrCodePositionNotFound, "no %s exposure left to close", signal.Symbol)
		}

		if closable.IsPositive() {
			side = types.OrderSideSell
		}

		quantity = closable.Abs()
		if signal.Quantity.IsPositive() && signal.Quantity.LessThan(quantity) {
			quantity = signal.Quantity
		}
	}

	orderType := types.OrderTypeMarket
	if signal.Price.IsSome() {
		orderType = types.OrderTypeLimit
	}

	now := d.now()
	order := &types.Order{
		ID:               uuid.NewString(),
		VenueOrderID:     "",
		StrategyName:     signal.StrategyName,
		SignalID:         signal.ID,
		Symbol:           signal.Symbol,
		Side:             side,
		Type:             orderType,
		Quantity:         quantity,
		Price:            signal.Price,
		ReferencePrice:   signal.ReferencePrice,
		Status:           types.OrderStatusCreated,
		FilledQuantity:   decimal.Zero,
		AverageFillPrice: decimal.Zero,
		Attempts:         0,
		Reason:           signal.Reason,
		Protective:       signal.Protective,
		Metadata:         maps.Clone(signal.Metadata),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	return order, nil
}

// simulate acknowledges and fully fills a dry-run order.
func (d *Dispatcher) simulate(id string) (types.Order, error) {
	d.mu.Lock()

	order := d.orders[id]
	if err := transition(order, types.OrderStatusSubmitted, d.now()); err != nil {
		d.mu.Unlock()

		return types.Order{}, err
	}

	order.VenueOrderID = "dry-run-" + order.ID
	order.Attempts = 1
	updates := []update{{order: order.Clone(), err: nil}}

	filled, err := d.fillLocked(order, order.Quantity, order.ExecutionPrice())
	if err == nil {
		updates = append(updates, filled)
	}

	result := order.Clone()
	d.mu.Unlock()

	d.notify(updates...)

	return result, err
}

// place submits a live order through the rate limiter and retry policy.
func (d *Dispatcher) place(id string) {
	defer d.wg.Done()

	d.mu.Lock()

	order, ok := d.orders[id]
	if !ok || order.Status != types.OrderStatusCreated {
		d.mu.Unlock()

		return
	}

	request := types.OrderRequest{
		ClientOrderID: order.ID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Type:          order.Type,
		Quantity:      order.Quantity,
		Price:         order.Price,
	}

	placeCtx, abort := context.WithCancel(d.ctx)
	defer abort()

	d.placing[id] = abort
	d.mu.Unlock()

	venueID, attempts, placeErr := d.placeWithRetry(placeCtx, request)

	d.mu.Lock()

	delete(d.placing, id)
	order.Attempts = attempts

	var updates []update

	cancelAtVenue := false

	switch {
	case order.Status != types.OrderStatusCreated:
		// cancelled locally while the placement was running
		if placeErr == nil {
			order.VenueOrderID = venueID
			cancelAtVenue = true
		}
	case placeErr != nil && d.closed:
		if u, err := d.terminateLocked(order, types.OrderStatusCancelled, "shutdown"); err == nil {
			updates = append(updates, u)
		}
	case placeErr != nil:
		if u, err := d.terminateLocked(order, types.OrderStatusRejected, placeErr.Error()); err == nil {
			u.err = placeErr
			updates = append(updates, u)
		}
	default:
		order.VenueOrderID = venueID
		if err := transition(order, types.OrderStatusSubmitted, d.now()); err == nil {
			updates = append(updates, update{order: order.Clone(), err: nil})
		}
	}

	symbol := order.Symbol
	d.mu.Unlock()

	if placeErr != nil {
		d.logPlacementFailure(request, attempts, placeErr)
	}

	if cancelAtVenue {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(d.ctx), cancelTimeout)
		defer cancel()

		if _, err := d.client.CancelOrder(ctx, symbol, venueID); err != nil {
			d.log.Warn("Failed to cancel order placed after local cancellation",
				zap.String("order_id", id),
				zap.String("venue_order_id", venueID),
				zap.Error(err),
			)
		}
	}

	d.notify(updates...)
}

func (d *Dispatcher) logPlacementFailure(request types.OrderRequest, attempts int, err error) {
	fields := []zap.Field{
		zap.String("order_id", request.ClientOrderID),
		zap.String("symbol", request.Symbol),
		zap.Int("attempts", attempts),
		zap.Error(err),
	}

	if errors.HasCode(err, errors.ErrCodeVenueUnrecoverable) {
		d.log.Error("Order rejected by venue, unrecoverable", fields...)

		return
	}

	d.log.Warn("Order placement failed", fields...)
}

// placeWithRetry places request until it succeeds, fails permanently or the
// order stops being placeable. ctx only bounds the waits; the venue call runs
// on the dispatcher context so an accepted order is never left unreported.
func (d *Dispatcher) placeWithRetry(ctx context.Context, request types.OrderRequest) (string, int, error) {
	policy := d.cfg.Retry

	for attempt := 1; ; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return "", attempt - 1, errors.Wrap(errors.ErrCodeOrderFailed, "order placement aborted", err)
		}

		if !d.placeable(request.ClientOrderID) {
			return "", attempt - 1, errors.Newf(errors.ErrCodeOrderFailed, "order %s is no longer placeable", request.ClientOrderID)
		}

		venueID, err := d.client.PlaceOrder(d.ctx, request)
		if err == nil {
			return venueID, attempt, nil
		}

		if !policy.IsTransient(err) || attempt > policy.MaxRetries {
			return "", attempt, err
		}

		wait := policy.Backoff(attempt)
		d.log.Warn("Transient placement failure, retrying",
			zap.String("order_id", request.ClientOrderID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()

			return "", attempt, errors.Wrap(errors.ErrCodeOrderFailed, "order placement aborted", ctx.Err())
		case <-timer.C:
		}
	}
}

// placeable reports whether the order is still waiting for its first
// acknowledgement and the dispatcher still accepts work.
func (d *Dispatcher) placeable(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	order, ok := d.orders[id]

	return ok && !d.closed && order.Status == types.OrderStatusCreated
}

// ApplyFill books an execution of quantity at price for an order.
func (d *Dispatcher) ApplyFill(orderID string, quantity, price decimal.Decimal) (types.Order, error) {
	d.mu.Lock()

	order, err := d.lookup(orderID)
	if err != nil {
		d.mu.Unlock()

		return types.Order{}, err
	}

	u, err := d.fillLocked(order, quantity, price)
	result := order.Clone()
	d.mu.Unlock()

	if err != nil {
		return result, err
	}

	d.notify(u)

	return result, nil
}

// ApplyReport reconciles an order with a venue report. The report carries
// the cumulative executed quantity, so repeated reports are idempotent.
func (d *Dispatcher) ApplyReport(report types.ExecutionReport) (types.Order, error) {
	d.mu.Lock()

	order, err := d.lookup(report.OrderID)
	if err != nil && report.VenueOrderID != "" {
		order, err = d.lookupVenue(report.VenueOrderID)
	}

	if err != nil {
		d.mu.Unlock()

		return types.Order{}, err
	}

	updates, err := d.applyReportLocked(order, report)
	result := order.Clone()
	d.mu.Unlock()

	d.notify(updates...)

	return result, err
}

func (d *Dispatcher) applyReportLocked(order *types.Order, report types.ExecutionReport) ([]update, error) {
	var updates []update

	if order.VenueOrderID == "" {
		order.VenueOrderID = report.VenueOrderID
	}

	if order.Status.IsTerminal() {
		return nil, nil
	}

	if report.Status == types.OrderStatusSubmitted && order.Status == types.OrderStatusCreated {
		if err := transition(order, types.OrderStatusSubmitted, d.now()); err != nil {
			return nil, err
		}

		updates = append(updates, update{order: order.Clone(), err: nil})
	}

	if delta := report.CumulativeQuantity.Sub(order.FilledQuantity); delta.IsPositive() {
		u, err := d.fillLocked(order, delta, reportFillPrice(*order, report, delta))
		if err != nil {
			return updates, err
		}

		updates = append(updates, u)
	}

	switch report.Status {
	case types.OrderStatusCancelled, types.OrderStatusRejected:
		if !order.Status.IsTerminal() {
			u, err := d.terminateLocked(order, report.Status, report.Reason)
			if err != nil {
				return updates, err
			}

			updates = append(updates, u)
		}
	case types.OrderStatusFilled:
		if !order.Status.IsTerminal() {
			d.log.Warn("Venue reports order filled but executed quantity is short",
				zap.String("order_id", order.ID),
				zap.String("filled", order.FilledQuantity.String()),
				zap.String("reported", report.CumulativeQuantity.String()),
			)
		}
	case types.OrderStatusCreated, types.OrderStatusSubmitted, types.OrderStatusPartiallyFilled:
	}

	return updates, nil
}

// reportFillPrice derives the price of the newly executed quantity from the
// cumulative average, falling back to the order's execution price.
func reportFillPrice(order types.Order, report types.ExecutionReport, delta decimal.Decimal) decimal.Decimal {
	if report.AveragePrice.IsPositive() {
		total := report.CumulativeQuantity.Mul(report.AveragePrice)
		prior := order.FilledQuantity.Mul(order.AverageFillPrice)

		if price := total.Sub(prior).Div(delta); price.IsPositive() {
			return price
		}
	}

	return order.ExecutionPrice()
}

func (d *Dispatcher) fillLocked(order *types.Order, quantity, price decimal.Decimal) (update, error) {
	if order.Status.IsTerminal() {
		return update{}, errors.Newf(errors.ErrCodeInvalidTransition, "order %s is already %s", order.ID, order.Status)
	}

	if !quantity.IsPositive() || quantity.GreaterThan(order.RemainingQuantity()) {
		return update{}, errors.Newf(errors.ErrCodeInvalidFill, "fill of %s for order %s exceeds remaining %s",
			quantity.String(), order.ID, order.RemainingQuantity().String())
	}

	now := d.now()

	if order.Status == types.OrderStatusCreated {
		if err := transition(order, types.OrderStatusSubmitted, now); err != nil {
			return update{}, err
		}
	}

	result, err := d.ledger.ApplyFill(*order, quantity, price, now)
	if err != nil {
		return update{}, err
	}

	filled := order.FilledQuantity.Add(quantity)
	order.AverageFillPrice = order.AverageFillPrice.Mul(order.FilledQuantity).Add(quantity.Mul(price)).Div(filled)
	order.FilledQuantity = filled

	next := types.OrderStatusPartiallyFilled
	if filled.Equal(order.Quantity) {
		next = types.OrderStatusFilled
	}

	if err := transition(order, next, now); err != nil {
		return update{}, err
	}

	if result.Closed.IsPositive() {
		switch result.RealizedPnL.Sign() {
		case 1:
			d.stats.WinningTrades++
		case -1:
			d.stats.LosingTrades++
		}
	}

	if next == types.OrderStatusFilled {
		d.stats.FilledOrders++
		d.finish(order)
	}

	d.log.Info("Order fill applied",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("status", string(order.Status)),
		zap.String("quantity", quantity.String()),
		zap.String("price", price.String()),
		zap.String("filled", order.FilledQuantity.String()),
		zap.String("average_price", order.AverageFillPrice.String()),
		zap.String("realized_pnl", result.RealizedPnL.String()),
	)

	return update{order: order.Clone(), err: nil}, nil
}

// terminateLocked moves order to a terminal non-filled status and releases
// what the ledger still holds for it.
func (d *Dispatcher) terminateLocked(order *types.Order, status types.OrderStatus, reason string) (update, error) {
	if err := transition(order, status, d.now()); err != nil {
		return update{}, err
	}

	if reason != "" {
		order.Reason = reason
	}

	switch status {
	case types.OrderStatusCancelled:
		d.stats.CancelledOrders++
	case types.OrderStatusRejected:
		d.stats.RejectedOrders++
	case types.OrderStatusCreated, types.OrderStatusSubmitted, types.OrderStatusPartiallyFilled, types.OrderStatusFilled:
	}

	d.finish(order)

	return update{order: order.Clone(), err: nil}, nil
}

// finish releases the order's remaining reservation and frees its in-flight slot.
func (d *Dispatcher) finish(order *types.Order) {
	d.ledger.Release(*order)

	if abort, ok := d.placing[order.ID]; ok {
		abort()
	}

	key := inFlightKey{strategy: order.StrategyName, symbol: order.Symbol}
	if d.inFlight[key] == order.ID {
		delete(d.inFlight, key)
	}
}

func (d *Dispatcher) lookup(id string) (*types.Order, error) {
	order, ok := d.orders[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found", id)
	}

	return order, nil
}

func (d *Dispatcher) lookupVenue(venueOrderID string) (*types.Order, error) {
	for _, order := range d.orders {
		if order.VenueOrderID == venueOrderID {
			return order, nil
		}
	}

	return nil, errors.Newf(errors.ErrCodeOrderNotFound, "no order with venue id %s", venueOrderID)
}

// Cancel cancels an in-flight order.
func (d *Dispatcher) Cancel(ctx context.Context, orderID string) error {
	return d.cancel(ctx, orderID, "cancelled")
}

func (d *Dispatcher) cancel(ctx context.Context, orderID, reason string) error {
	d.mu.Lock()

	order, err := d.lookup(orderID)
	if err != nil {
		d.mu.Unlock()

		return err
	}

	if order.Status.IsTerminal() {
		d.mu.Unlock()

		return errors.Newf(errors.ErrCodeInvalidTransition, "order %s is already %s", orderID, order.Status)
	}

	// orders the venue has not acknowledged are cancelled locally; a placement
	// that completes later cancels at the venue
	if d.cfg.DryRun || order.Status == types.OrderStatusCreated || order.VenueOrderID == "" {
		u, err := d.terminateLocked(order, types.OrderStatusCancelled, reason)
		d.mu.Unlock()

		if err == nil {
			d.notify(u)
		}

		return err
	}

	symbol, venueID := order.Symbol, order.VenueOrderID
	d.mu.Unlock()

	if _, err := d.client.CancelOrder(ctx, symbol, venueID); err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to cancel order %s", orderID)
	}

	var (
		report    types.ExecutionReport
		hasReport bool
	)

	// fills may have raced the cancel
	if querier, ok := d.client.(StatusQuerier); ok {
		r, err := querier.QueryOrder(ctx, symbol, venueID)
		if err != nil {
			d.log.Warn("Failed to query order after cancel", zap.String("order_id", orderID), zap.Error(err))
		} else {
			report, hasReport = r, true
		}
	}

	d.mu.Lock()

	var updates []update

	if hasReport {
		report.OrderID = orderID
		if report.Status == types.OrderStatusCancelled {
			report.Reason = reason
		}

		updates, err = d.applyReportLocked(order, report)
		if err != nil {
			d.log.Warn("Failed to apply report after cancel", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	if !order.Status.IsTerminal() {
		if u, err := d.terminateLocked(order, types.OrderStatusCancelled, reason); err == nil {
			updates = append(updates, u)
		}
	}

	d.mu.Unlock()

	d.notify(updates...)

	return nil
}

// Run is the order watchdog: it cancels orders older than the order timeout
// and polls the venue for the state of acknowledged orders until ctx ends.
func (d *Dispatcher) Run(ctx context.Context) error {
	interval := d.cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

func (d *Dispatcher) sweep(ctx context.Context) {
	d.mu.Lock()

	now := d.now()

	var expired, polled []types.Order

	for _, order := range d.orders {
		if !order.Status.IsInFlight() {
			continue
		}

		switch {
		case d.cfg.OrderTimeout > 0 && now.Sub(order.CreatedAt) >= d.cfg.OrderTimeout:
			expired = append(expired, order.Clone())
		case order.Status != types.OrderStatusCreated && order.VenueOrderID != "":
			polled = append(polled, order.Clone())
		}
	}

	d.mu.Unlock()

	for _, order := range expired {
		d.log.Info("Order timed out, cancelling",
			zap.String("order_id", order.ID),
			zap.String("strategy", order.StrategyName),
			zap.Duration("age", now.Sub(order.CreatedAt)),
		)

		if err := d.cancel(ctx, order.ID, "timeout"); err != nil && !errors.HasCode(err, errors.ErrCodeInvalidTransition) {
			d.log.Warn("Failed to cancel timed out order", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	querier, ok := d.client.(StatusQuerier)
	if !ok || d.cfg.DryRun {
		return
	}

	for _, order := range polled {
		report, err := querier.QueryOrder(ctx, order.Symbol, order.VenueOrderID)
		if err != nil {
			d.log.Warn("Failed to query order status", zap.String("order_id", order.ID), zap.Error(err))

			continue
		}

		report.OrderID = order.ID
		if _, err := d.ApplyReport(report); err != nil {
			d.log.Warn("Failed to apply order report", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
}

// MarkPrice marks positions in symbol to price and resets the daily counters
// when at starts a new UTC day. It reports whether the day rolled over.
func (d *Dispatcher) MarkPrice(symbol string, price decimal.Decimal, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	rolled := d.ledger.RollDay(at)
	d.ledger.MarkToMarket(symbol, price, at)

	return rolled
}

// Account returns a snapshot of the account.
func (d *Dispatcher) Account() types.AccountState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.ledger.Snapshot()
}

// Order returns a snapshot of one order.
func (d *Dispatcher) Order(id string) (types.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	order, err := d.lookup(id)
	if err != nil {
		return types.Order{}, err
	}

	return order.Clone(), nil
}

// Orders returns snapshots of all orders, oldest first.
func (d *Dispatcher) Orders() []types.Order {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]types.Order, 0, len(d.orders))
	for _, order := range d.orders {
		out = append(out, order.Clone())
	}

	slices.SortFunc(out, func(a, b types.Order) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return compareStrings(a.ID, b.ID)
	})

	return out
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Stats returns the order outcome counters.
func (d *Dispatcher) Stats() types.TradeStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stats
}

// Shutdown stops admitting signals, cancels every in-flight order and waits
// for running placements until ctx ends.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()

		return nil
	}

	d.closed = true
	ids := slices.Sorted(maps.Values(d.inFlight))

	for _, abort := range d.placing {
		abort()
	}
	d.mu.Unlock()

	var errs error

	for _, id := range ids {
		if err := d.cancel(ctx, id, "shutdown"); err != nil && !errors.HasCode(err, errors.ErrCodeInvalidTransition) {
			errs = multierr.Append(errs, err)
		}
	}

	done := make(chan struct{})

	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		errs = multierr.Append(errs, errors.Wrap(errors.ErrCodeOrderTimeout, "order placements still running at shutdown", ctx.Err()))
	}

	d.stop()
	d.log.Info("Dispatcher stopped", zap.Int("cancelled_orders", len(ids)))

	return errs
}
