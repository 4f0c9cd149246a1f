package strategy

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type entry struct {
	strategy       Strategy
	lastSignalAt   optional.Option[time.Time]
	disabledReason string
}

// Registry holds the strategy instances by name and routes market data to
// them by symbol.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	log     *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNop()
	}

	return &Registry{
		mu:      sync.RWMutex{},
		entries: map[string]*entry{},
		log:     log.Named("registry"),
	}
}

// BuildRegistry creates every configured strategy. Invalid configurations are
// logged and skipped; their errors are returned together with the registry of
// the valid ones.
func BuildRegistry(configs []types.StrategyConfig, log *logger.Logger) (*Registry, error) {
	registry := NewRegistry(log)

	var errs error

	for _, cfg := range configs {
		s, err := New(cfg, log)
		if err == nil {
			err = registry.Register(s)
		}

		if err != nil {
			registry.log.Error("Skipping strategy with invalid configuration",
				zap.String("strategy", cfg.Name),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)

			continue
		}

		registry.log.Info("Strategy registered",
			zap.String("strategy", cfg.Name),
			zap.String("symbol", cfg.Symbol),
			zap.String("kind", string(cfg.Kind)),
			zap.Bool("enabled", cfg.Enabled),
		)
	}

	return registry, errs
}

// Register adds a strategy. Names must be unique.
func (r *Registry) Register(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[s.Name()]; ok {
		return errors.Newf(errors.ErrCodeStrategyAlreadyExists, "strategy %s already registered", s.Name())
	}

	r.entries[s.Name()] = &entry{
		strategy:       s,
		lastSignalAt:   optional.None[time.Time](),
		disabledReason: "",
	}

	return nil
}

// Get returns the strategy with the given name.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", name)
	}

	return e.strategy, nil
}

// All returns every registered strategy ordered by name.
func (r *Registry) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Strategy, 0, len(r.entries))
	for _, name := range slices.Sorted(maps.Keys(r.entries)) {
		out = append(out, r.entries[name].strategy)
	}

	return out
}

// Route returns the enabled strategies trading symbol, ordered by name.
func (r *Registry) Route(symbol string) []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Strategy

	for _, name := range slices.Sorted(maps.Keys(r.entries)) {
		s := r.entries[name].strategy
		if s.Symbol() == symbol && s.IsEnabled() {
			out = append(out, s)
		}
	}

	return out
}

// Symbols returns the distinct symbols of the registered strategies.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := map[string]struct{}{}
	for _, e := range r.entries {
		set[e.strategy.Symbol()] = struct{}{}
	}

	return slices.Sorted(maps.Keys(set))
}

// Disable stops routing data to a strategy and records why.
func (r *Registry) Disable(name, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", name)
	}

	e.strategy.SetEnabled(false)
	e.disabledReason = reason
	r.log.Warn("Strategy disabled", zap.String("strategy", name), zap.String("reason", reason))

	return nil
}

// Enable resumes routing data to a strategy.
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", name)
	}

	e.strategy.SetEnabled(true)
	e.disabledReason = ""

	return nil
}

// UpdateParameters forwards a parameter update to the named strategy.
func (r *Registry) UpdateParameters(name string, params types.Parameters) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}

	if err := s.UpdateParameters(params); err != nil {
		return err
	}

	r.log.Info("Strategy parameters updated", zap.String("strategy", name), zap.Any("parameters", s.GetParameters()))

	return nil
}

// MarkSignal records when a strategy last produced a signal.
func (r *Registry) MarkSignal(name string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		e.lastSignalAt = optional.Some(at)
	}
}

// Statuses returns the status of every strategy ordered by name.
func (r *Registry) Statuses() []types.StrategyStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.StrategyStatus, 0, len(r.entries))

	for _, name := range slices.Sorted(maps.Keys(r.entries)) {
		e := r.entries[name]
		out = append(out, types.StrategyStatus{
			Name:           name,
			Symbol:         e.strategy.Symbol(),
			Kind:           e.strategy.Kind(),
			Enabled:        e.strategy.IsEnabled(),
			State:          e.strategy.State(),
			LastSignalAt:   e.lastSignalAt,
			DisabledReason: e.disabledReason,
		})
	}

	return out
}
