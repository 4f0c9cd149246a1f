// Package strategy implements the signal-generating strategies and the
// registry that routes market data to them.
package strategy

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// quantityPrecision is the number of decimals strategies size orders with.
const quantityPrecision = 8

// Strategy turns market snapshots into candidate signals. Analyze only reads
// the snapshot and the strategy's own state; it never sees the account.
type Strategy interface {
	Name() string
	Symbol() string
	Kind() types.StrategyKind
	IsEnabled() bool
	SetEnabled(enabled bool)
	// Analyze evaluates one snapshot and returns at most one signal.
	Analyze(snapshot types.MarketSnapshot) (optional.Option[types.StrategySignal], error)
	// UpdateParameters merges params into the current set, validates the result
	// and applies it only if every parameter is valid.
	UpdateParameters(params types.Parameters) error
	GetParameters() types.Parameters
	ValidateParameters(params types.Parameters) error
	// State is a short description of the internal state for status output.
	State() string
}

// OrderObserver is implemented by strategies that track the orders created
// from their signals.
type OrderObserver interface {
	OnOrderUpdate(order types.Order)
	OnSignalRejected(signal types.StrategySignal, reason string)
}

// base carries what every strategy variant shares. mu guards the variant's
// private state; the variant locks it in every exported method.
type base struct {
	mu      sync.Mutex
	name    string
	symbol  string
	kind    types.StrategyKind
	enabled atomic.Bool
	params  types.Parameters
	schema  paramSchema
	log     *logger.Logger
}

func newBase(cfg types.StrategyConfig, kind types.StrategyKind, schema paramSchema, log *logger.Logger) *base {
	if log == nil {
		log = logger.NewNop()
	}

	b := &base{
		mu:      sync.Mutex{},
		name:    cfg.Name,
		symbol:  cfg.Symbol,
		kind:    kind,
		enabled: atomic.Bool{},
		params:  nil,
		schema:  schema,
		log: &logger.Logger{Logger: log.Logger.Named("strategy").With(
			zap.String("strategy", cfg.Name),
			zap.String("symbol", cfg.Symbol),
			zap.String("kind", string(kind)),
		)},
	}
	b.enabled.Store(cfg.Enabled)

	return b
}

func (b *base) Name() string { return b.name }

func (b *base) Symbol() string { return b.symbol }

func (b *base) Kind() types.StrategyKind { return b.kind }

func (b *base) IsEnabled() bool { return b.enabled.Load() }

func (b *base) SetEnabled(enabled bool) { b.enabled.Store(enabled) }

// GetParameters returns a copy of the resolved parameters, defaults included.
func (b *base) GetParameters() types.Parameters {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.params.Clone()
}

// checkSnapshot rejects snapshots that are malformed or for another symbol.
func (b *base) checkSnapshot(snapshot types.MarketSnapshot) error {
	if snapshot.Symbol != b.symbol {
		return errors.Newf(errors.ErrCodeInvalidSnapshot, "strategy %s trades %s, got snapshot for %s", b.name, b.symbol, snapshot.Symbol)
	}

	return snapshot.Validate()
}

// merged overlays updates on the current parameters.
func (b *base) merged(updates types.Parameters) types.Parameters {
	merged := b.params.Clone()
	for key, value := range updates {
		merged[key] = value
	}

	return merged
}

func (b *base) newSignal(snapshot types.MarketSnapshot, action types.SignalAction, quantity decimal.Decimal,
	price optional.Option[decimal.Decimal], confidence float64, metadata map[string]any,
) types.StrategySignal {
	return types.StrategySignal{
		ID:             uuid.NewString(),
		StrategyName:   b.name,
		Symbol:         b.symbol,
		Action:         action,
		Quantity:       quantity,
		Price:          price,
		ReferencePrice: snapshot.Price,
		Confidence:     clamp(confidence, 0, 1),
		Reason:         types.SignalReasonStrategy,
		Metadata:       metadata,
		Timestamp:      snapshot.Timestamp,
		Protective:     false,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// appendBounded appends v and keeps at most size trailing elements.
func appendBounded(values []float64, v float64, size int) []float64 {
	values = append(values, v)
	if len(values) > size {
		values = append(values[:0], values[len(values)-size:]...)
	}

	return values
}

func durationHours(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}
