// Package bot wires market data, strategies, the risk manager and the order
// dispatcher into a running trading bot.
package bot

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/dispatcher"
	"github.com/rxtech-lab/argo-autotrader/internal/events"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/risk"
	"github.com/rxtech-lab/argo-autotrader/internal/strategy"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// MarketFeed streams snapshots for one symbol until ctx ends. Errors are
// yielded without ending the stream.
type MarketFeed interface {
	Subscribe(ctx context.Context, symbol string) iter.Seq2[types.MarketSnapshot, error]
}

type Config struct {
	DryRun bool
	// WorkerBuffer is the number of snapshots queued per strategy before new
	// ones are dropped
	WorkerBuffer int
	// ShutdownTimeout bounds cancelling in-flight orders on shutdown
	ShutdownTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		DryRun:          true,
		WorkerBuffer:    64,
		ShutdownTimeout: 10 * time.Second,
	}
}

type worker struct {
	strategy strategy.Strategy
	queue    chan types.MarketSnapshot
}

type Bot struct {
	cfg        Config
	registry   *strategy.Registry
	risk       *risk.Manager
	dispatcher *dispatcher.Dispatcher
	feed       MarketFeed
	events     *events.Stream
	log        *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
	workers   map[string]*worker

	breached atomic.Bool
	now      func() time.Time
}

func New(
	cfg Config,
	registry *strategy.Registry,
	riskManager *risk.Manager,
	orders *dispatcher.Dispatcher,
	feed MarketFeed,
	log *logger.Logger,
) (*Bot, error) {
	if registry == nil || riskManager == nil || orders == nil || feed == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "bot requires a registry, risk manager, dispatcher and market feed")
	}

	if log == nil {
		log = logger.NewNop()
	}

	if cfg.WorkerBuffer <= 0 {
		cfg.WorkerBuffer = DefaultConfig().WorkerBuffer
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	b := &Bot{
		cfg:        cfg,
		registry:   registry,
		risk:       riskManager,
		dispatcher: orders,
		feed:       feed,
		events:     events.NewStream(log),
		log:        log.Named("bot"),
		mu:         sync.RWMutex{},
		running:    false,
		startedAt:  time.Time{},
		workers:    map[string]*worker{},
		breached:   atomic.Bool{},
		now:        time.Now,
	}

	orders.OnUpdate(b.onOrderUpdate)

	return b, nil
}

// Run trades until ctx ends or every feed stops, then cancels in-flight
// orders. A bot runs once.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.running || !b.startedAt.IsZero() {
		b.mu.Unlock()

		return errors.New(errors.ErrCodeStrategyRuntimeError, "bot has already been started")
	}

	b.running = true
	b.startedAt = b.now()

	for _, s := range b.registry.All() {
		b.workers[s.Name()] = &worker{strategy: s, queue: make(chan types.MarketSnapshot, b.cfg.WorkerBuffer)}
	}

	workers := b.workers
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
		b.events.Close()
	}()

	if err := b.dispatcher.SyncAccount(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var workersWG, feedsWG, watchdogWG sync.WaitGroup

	for _, w := range workers {
		workersWG.Add(1)

		go func() {
			defer workersWG.Done()
			b.runWorker(runCtx, w)
		}()
	}

	watchdogWG.Add(1)

	go func() {
		defer watchdogWG.Done()

		if err := b.dispatcher.Run(runCtx); err != nil {
			b.log.Warn("Order watchdog stopped", zap.Error(err))
		}
	}()

	symbols := b.registry.Symbols()
	for _, symbol := range symbols {
		feedsWG.Add(1)

		go func() {
			defer feedsWG.Done()
			b.consume(runCtx, symbol)
		}()
	}

	b.log.Info("Trading bot started",
		zap.Strings("symbols", symbols),
		zap.Int("strategies", len(workers)),
		zap.Bool("dry_run", b.cfg.DryRun),
	)

	feedsDone := make(chan struct{})

	go func() {
		feedsWG.Wait()
		close(feedsDone)
	}()

	select {
	case <-runCtx.Done():
		<-feedsDone
	case <-feedsDone:
		b.log.Warn("All market data feeds ended")
	}

	// feeds are the only senders, so queues can close; workers drain what is left
	for _, w := range workers {
		close(w.queue)
	}

	workersWG.Wait()
	cancel()
	watchdogWG.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.ShutdownTimeout)
	defer cancelShutdown()

	err := b.dispatcher.Shutdown(shutdownCtx)
	if err != nil {
		b.log.Error("Dispatcher shutdown incomplete", zap.Error(err))
	}

	stats := b.dispatcher.Stats()
	b.log.Info("Trading bot stopped",
		zap.Duration("uptime", b.now().Sub(b.startedAt)),
		zap.Int("total_orders", stats.TotalOrders),
		zap.Int("filled_orders", stats.FilledOrders),
		zap.Float64("win_rate", stats.WinRate()),
	)

	return err
}

func (b *Bot) consume(ctx context.Context, symbol string) {
	for snapshot, err := range b.feed.Subscribe(ctx, symbol) {
		if err != nil {
			b.log.Warn("Market data error", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		if err := snapshot.Validate(); err != nil {
			b.log.Warn("Discarding invalid snapshot", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		b.onSnapshot(ctx, snapshot)
	}
}

// onSnapshot marks the account, enforces protective closes and fans the
// snapshot out to the symbol's strategies.
func (b *Bot) onSnapshot(ctx context.Context, snapshot types.MarketSnapshot) {
	if b.dispatcher.MarkPrice(snapshot.Symbol, snapshot.Price, snapshot.Timestamp) {
		b.events.Publish(events.Notice(events.KindTradingDayRolled, "", "",
			snapshot.Timestamp.UTC().Format(time.DateOnly), b.now()))
	}

	account := b.dispatcher.Account()
	b.checkLimits(account)

	for _, signal := range b.risk.ProtectiveCloses(account) {
		if signal.Symbol != snapshot.Symbol {
			continue
		}

		b.events.Publish(events.SignalEvent(events.KindSignal, signal, signal.Reason, b.now()))

		if _, err := b.dispatcher.Submit(ctx, signal); err != nil {
			if errors.HasAnyCode(err, errors.ErrCodeOrderInFlight, errors.ErrCodeDispatcherShutdown) {
				b.log.Debug("Protective close already pending", zap.String("symbol", signal.Symbol))

				continue
			}

			b.log.Warn("Failed to submit protective close", zap.String("symbol", signal.Symbol), zap.Error(err))
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.registry.Route(snapshot.Symbol) {
		w, ok := b.workers[s.Name()]
		if !ok {
			continue
		}

		select {
		case w.queue <- snapshot:
		default:
			b.log.Warn("Strategy worker is behind, dropping snapshot",
				zap.String("strategy", s.Name()),
				zap.String("symbol", snapshot.Symbol),
				zap.Time("timestamp", snapshot.Timestamp),
			)
		}
	}
}

func (b *Bot) checkLimits(account types.AccountState) {
	if b.risk.CheckRiskLimits(account) {
		if b.breached.CompareAndSwap(true, false) {
			b.log.Info("Account back within risk limits")
		}

		return
	}

	if b.breached.CompareAndSwap(false, true) {
		b.log.Warn("Risk limits breached, only closing signals are admitted",
			zap.String("daily_loss", account.DailyLoss.String()),
			zap.String("drawdown_percentage", account.DrawdownPercentage().StringFixed(2)),
		)
		b.events.Publish(events.Notice(events.KindRiskLimitsHit, "", "", "only closing signals are admitted", b.now()))
	}
}

func (b *Bot) runWorker(ctx context.Context, w *worker) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-w.queue:
			if !ok {
				return
			}

			b.evaluate(ctx, w.strategy, snapshot)
		}
	}
}

func (b *Bot) evaluate(ctx context.Context, s strategy.Strategy, snapshot types.MarketSnapshot) {
	if !s.IsEnabled() {
		return
	}

	result, err := s.Analyze(snapshot)
	if err != nil {
		b.log.Warn("Strategy analysis failed",
			zap.String("strategy", s.Name()),
			zap.String("symbol", snapshot.Symbol),
			zap.Error(err),
		)

		return
	}

	if result.IsNone() {
		return
	}

	signal := result.Unwrap()
	b.registry.MarkSignal(s.Name(), signal.Timestamp)
	b.events.Publish(events.SignalEvent(events.KindSignal, signal, "", b.now()))

	b.log.Info("Signal generated",
		zap.String("strategy", signal.StrategyName),
		zap.String("symbol", signal.Symbol),
		zap.String("action", string(signal.Action)),
		zap.String("quantity", signal.Quantity.String()),
		zap.String("price", signal.ExecutionPrice().String()),
		zap.Float64("confidence", signal.Confidence),
	)

	if _, err := b.dispatcher.Submit(ctx, signal); err != nil {
		b.reject(s, signal, err)
	}
}

// reject reports a signal the dispatcher refused back to its strategy.
func (b *Bot) reject(s strategy.Strategy, signal types.StrategySignal, err error) {
	reason := err.Error()

	fields := []zap.Field{
		zap.String("strategy", signal.StrategyName),
		zap.String("symbol", signal.Symbol),
		zap.String("action", string(signal.Action)),
	}

	var rejection *risk.RejectionError
	if errors.As(err, &rejection) {
		reason = string(rejection.Decision.Reason)
		fields = append(fields, zap.String("message", rejection.Decision.Message))
	}

	fields = append(fields, zap.String("reason", reason))

	switch {
	case errors.HasCode(err, errors.ErrCodeRiskRejected):
		b.log.Info("Signal rejected by risk manager", fields...)
	case errors.HasAnyCode(err, errors.ErrCodeOrderInFlight, errors.ErrCodeDispatcherShutdown):
		b.log.Debug("Signal not submitted", fields...)
	default:
		b.log.Warn("Signal could not be submitted", append(fields, zap.Error(err))...)
	}

	b.events.Publish(events.SignalEvent(events.KindSignalRejected, signal, reason, b.now()))

	if observer, ok := s.(strategy.OrderObserver); ok {
		observer.OnSignalRejected(signal, reason)
	}
}

// onOrderUpdate forwards dispatcher order changes to the event stream and the
// originating strategy. Unrecoverable venue errors disable the strategy.
func (b *Bot) onOrderUpdate(order types.Order, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}

	b.events.Publish(events.OrderEvent(order, message, b.now()))

	s, getErr := b.registry.Get(order.StrategyName)
	if getErr != nil {
		return
	}

	if observer, ok := s.(strategy.OrderObserver); ok {
		observer.OnOrderUpdate(order)
	}

	switch {
	case err == nil:
	case errors.HasCode(err, errors.ErrCodeVenueUnrecoverable):
		if disableErr := b.registry.Disable(order.StrategyName, err.Error()); disableErr == nil {
			b.log.Error("Strategy disabled after unrecoverable venue error",
				zap.String("strategy", order.StrategyName),
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
			b.events.Publish(events.Notice(events.KindStrategyDisabled, order.StrategyName, order.Symbol, err.Error(), b.now()))
		}
	case errors.HasCode(err, errors.ErrCodeInsufficientBalance):
		b.log.Warn("Venue reported insufficient balance",
			zap.String("strategy", order.StrategyName),
			zap.String("order_id", order.ID),
		)
	}
}

// Status returns a snapshot of the bot, its strategies, orders and account.
func (b *Bot) Status() types.BotStatus {
	b.mu.RLock()
	running, startedAt := b.running, b.startedAt
	b.mu.RUnlock()

	var uptime time.Duration
	if running {
		uptime = b.now().Sub(startedAt)
	}

	account := b.dispatcher.Account()

	return types.BotStatus{
		Running:            running,
		DryRun:             b.cfg.DryRun,
		StartedAt:          startedAt,
		Uptime:             uptime,
		Strategies:         b.registry.Statuses(),
		Orders:             b.dispatcher.Orders(),
		Account:            account,
		Stats:              b.dispatcher.Stats(),
		RiskLimitsBreached: !b.risk.CheckRiskLimits(account),
	}
}

// ReloadRiskLimits replaces the risk limits as a whole.
func (b *Bot) ReloadRiskLimits(limits types.RiskLimits) error {
	return b.risk.Reload(limits)
}

// UpdateStrategyParameters merges params into a strategy's parameters.
func (b *Bot) UpdateStrategyParameters(name string, params types.Parameters) error {
	return b.registry.UpdateParameters(name, params)
}

func (b *Bot) EnableStrategy(name string) error {
	return b.registry.Enable(name)
}

func (b *Bot) DisableStrategy(name, reason string) error {
	return b.registry.Disable(name, reason)
}

// Events subscribes to the bot's event stream. Call cancel to unsubscribe.
func (b *Bot) Events(buffer int) (<-chan events.Event, func()) {
	return b.events.Subscribe(buffer)
}
