package types

import (
	"maps"
	"time"

	"github.com/moznion/go-optional"
)

// StrategyKind tags the algorithm a strategy instance runs.
type StrategyKind string

const (
	StrategyKindDCA      StrategyKind = "dca"
	StrategyKindGrid     StrategyKind = "grid"
	StrategyKindMomentum StrategyKind = "momentum"
)

// Parameters holds named strategy parameters. Values are numbers, strings or bools.
type Parameters map[string]any

// Clone returns a shallow copy of the parameters.
func (p Parameters) Clone() Parameters {
	if p == nil {
		return Parameters{}
	}

	return maps.Clone(p)
}

// StrategyConfig describes one configured strategy instance.
type StrategyConfig struct {
	Name       string       `yaml:"name" json:"name" jsonschema:"description=Unique strategy instance name" validate:"required"`
	Symbol     string       `yaml:"symbol" json:"symbol" jsonschema:"description=Symbol the strategy trades" validate:"required"`
	Enabled    bool         `yaml:"enabled" json:"enabled" jsonschema:"description=Whether the strategy is active"`
	Kind       StrategyKind `yaml:"strategy_type" json:"strategy_type" jsonschema:"description=Strategy algorithm,enum=dca,enum=grid,enum=momentum" validate:"required,oneof=dca grid momentum"`
	Parameters Parameters   `yaml:"parameters" json:"parameters" jsonschema:"description=Strategy specific parameters"`
}

// StrategyStatus is the operator-facing view of a strategy instance.
type StrategyStatus struct {
	Name           string                     `yaml:"name" json:"name"`
	Symbol         string                     `yaml:"symbol" json:"symbol"`
	Kind           StrategyKind               `yaml:"kind" json:"kind"`
	Enabled        bool                       `yaml:"enabled" json:"enabled"`
	State          string                     `yaml:"state" json:"state"`
	LastSignalAt   optional.Option[time.Time] `yaml:"last_signal_at" json:"last_signal_at"`
	DisabledReason string                     `yaml:"disabled_reason,omitempty" json:"disabled_reason,omitempty"`
}
