// Package events fans signal and order events out to subscribers.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"go.uber.org/zap"
)

type Kind string

const (
	KindSignal           Kind = "signal"
	KindSignalRejected   Kind = "signal_rejected"
	KindOrder            Kind = "order"
	KindStrategyDisabled Kind = "strategy_disabled"
	KindRiskLimitsHit    Kind = "risk_limits_breached"
	KindTradingDayRolled Kind = "trading_day_rolled"
)

// DefaultBuffer is the subscriber channel capacity used when none is given.
const DefaultBuffer = 256

// Event is one entry of the stream. Signal and Order are set according to Kind.
type Event struct {
	Kind         Kind                                  `json:"kind"`
	Timestamp    time.Time                             `json:"timestamp"`
	StrategyName string                                `json:"strategy_name,omitempty"`
	Symbol       string                                `json:"symbol,omitempty"`
	Signal       optional.Option[types.StrategySignal] `json:"signal"`
	Order        optional.Option[types.Order]          `json:"order"`
	Message      string                                `json:"message,omitempty"`
}

// SignalEvent builds a KindSignal or KindSignalRejected event.
func SignalEvent(kind Kind, signal types.StrategySignal, message string, at time.Time) Event {
	return Event{
		Kind:         kind,
		Timestamp:    at,
		StrategyName: signal.StrategyName,
		Symbol:       signal.Symbol,
		Signal:       optional.Some(signal),
		Order:        optional.None[types.Order](),
		Message:      message,
	}
}

// OrderEvent builds a KindOrder event.
func OrderEvent(order types.Order, message string, at time.Time) Event {
	return Event{
		Kind:         KindOrder,
		Timestamp:    at,
		StrategyName: order.StrategyName,
		Symbol:       order.Symbol,
		Signal:       optional.None[types.StrategySignal](),
		Order:        optional.Some(order),
		Message:      message,
	}
}

// Notice builds an event that carries only a message.
func Notice(kind Kind, strategyName, symbol, message string, at time.Time) Event {
	return Event{
		Kind:         kind,
		Timestamp:    at,
		StrategyName: strategyName,
		Symbol:       symbol,
		Signal:       optional.None[types.StrategySignal](),
		Order:        optional.None[types.Order](),
		Message:      message,
	}
}

// Stream is a bounded, non-blocking fan-out. A subscriber that does not keep
// up loses events instead of stalling the publisher.
type Stream struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	nextID  uint64
	closed  bool
	dropped atomic.Uint64
	log     *logger.Logger
}

func NewStream(log *logger.Logger) *Stream {
	if log == nil {
		log = logger.NewNop()
	}

	return &Stream{
		mu:      sync.RWMutex{},
		subs:    map[uint64]chan Event{},
		nextID:  0,
		closed:  false,
		dropped: atomic.Uint64{},
		log:     log.Named("events"),
	}
}

// Subscribe registers a subscriber with the given channel capacity. The
// returned cancel function unsubscribes and closes the channel; it is safe
// to call more than once.
func (s *Stream) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	ch := make(chan Event, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(ch)

		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	return ch, func() { s.unsubscribe(id) }
}

func (s *Stream) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// Publish delivers e to every subscriber with room in its buffer.
func (s *Stream) Publish(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}

	for id, ch := range s.subs {
		select {
		case ch <- e:
		default:
			if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
				s.log.Warn("Event subscriber is full, dropping events",
					zap.Uint64("subscriber", id),
					zap.String("kind", string(e.Kind)),
					zap.Uint64("dropped_total", n),
				)
			}
		}
	}
}

// Dropped is the number of deliveries skipped because a subscriber was full.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true

	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
