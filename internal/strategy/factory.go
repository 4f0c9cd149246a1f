package strategy

import (
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// New builds the strategy variant named by cfg.Kind.
func New(cfg types.StrategyConfig, log *logger.Logger) (Strategy, error) {
	if cfg.Name == "" {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "strategy name is required")
	}

	if cfg.Symbol == "" {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "strategy %s: symbol is required", cfg.Name)
	}

	var (
		s   Strategy
		err error
	)

	switch cfg.Kind {
	case types.StrategyKindDCA:
		s, err = NewDCA(cfg, log)
	case types.StrategyKindGrid:
		s, err = NewGrid(cfg, log)
	case types.StrategyKindMomentum:
		s, err = NewMomentum(cfg, log)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "strategy %s: unsupported strategy type %q", cfg.Name, cfg.Kind)
	}

	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "strategy %s", cfg.Name)
	}

	return s, nil
}
