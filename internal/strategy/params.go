package strategy

import (
	"maps"
	"math"
	"slices"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/multierr"
)

type paramKind int

const (
	paramNumber paramKind = iota
	paramInt
	paramBool
)

// paramSpec declares one legal parameter. Numeric values must satisfy
// Min <= v <= Max, or Min < v when MinExclusive is set.
type paramSpec struct {
	Key          string
	Kind         paramKind
	Default      any
	Min          float64
	Max          float64
	MinExclusive bool
}

type paramSchema []paramSpec

func number(key string, def, minimum, maximum float64) paramSpec {
	return paramSpec{Key: key, Kind: paramNumber, Default: def, Min: minimum, Max: maximum, MinExclusive: false}
}

func positive(key string, def float64) paramSpec {
	return paramSpec{Key: key, Kind: paramNumber, Default: def, Min: 0, Max: math.Inf(1), MinExclusive: true}
}

func integer(key string, def, minimum, maximum int) paramSpec {
	return paramSpec{Key: key, Kind: paramInt, Default: def, Min: float64(minimum), Max: float64(maximum), MinExclusive: false}
}

func boolean(key string, def bool) paramSpec {
	return paramSpec{Key: key, Kind: paramBool, Default: def, Min: 0, Max: 0, MinExclusive: false}
}

// resolve validates params against the schema and returns the full set with
// defaults filled in and values coerced to float64, int or bool. Every
// violation is reported, not just the first.
func (s paramSchema) resolve(params types.Parameters) (types.Parameters, error) {
	var errs error

	known := make(map[string]struct{}, len(s))
	for _, spec := range s {
		known[spec.Key] = struct{}{}
	}

	for _, key := range slices.Sorted(maps.Keys(params)) {
		if _, ok := known[key]; !ok {
			errs = multierr.Append(errs, errors.Newf(errors.ErrCodeUnknownParameter, "unknown parameter %q", key))
		}
	}

	resolved := make(types.Parameters, len(s))

	for _, spec := range s {
		raw, ok := params[spec.Key]
		if !ok || raw == nil {
			raw = spec.Default
		}

		value, err := spec.coerce(raw)
		if err != nil {
			errs = multierr.Append(errs, err)

			continue
		}

		resolved[spec.Key] = value
	}

	if errs != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy parameters", errs)
	}

	return resolved, nil
}

func (p paramSpec) coerce(raw any) (any, error) {
	if p.Kind == paramBool {
		v, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidType, err, "parameter %q must be a bool", p.Key)
		}

		return v, nil
	}

	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidType, err, "parameter %q must be a number", p.Key)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be finite", p.Key)
	}

	if p.Kind == paramInt && v != math.Trunc(v) {
		return nil, errors.Newf(errors.ErrCodeInvalidType, "parameter %q must be an integer, got %v", p.Key, v)
	}

	if p.MinExclusive && v <= p.Min {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be greater than %v, got %v", p.Key, p.Min, v)
	}

	if !p.MinExclusive && v < p.Min {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be at least %v, got %v", p.Key, p.Min, v)
	}

	if v > p.Max {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be at most %v, got %v", p.Key, p.Max, v)
	}

	if p.Kind == paramInt {
		return int(v), nil
	}

	return v, nil
}

// Resolved parameters only hold the coerced types, so the accessors below
// cannot fail.

func floatParam(p types.Parameters, key string) float64 {
	return cast.ToFloat64(p[key])
}

func intParam(p types.Parameters, key string) int {
	return cast.ToInt(p[key])
}

func boolParam(p types.Parameters, key string) bool {
	return cast.ToBool(p[key])
}

func decimalParam(p types.Parameters, key string) decimal.Decimal {
	return decimal.NewFromFloat(floatParam(p, key))
}
