package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	GridSpacing       = "grid_spacing"
	GridPositionSize  = "position_size"
	GridMaxLevels     = "max_levels"
	GridMaxInvestment = "max_investment"
)

var gridSchema = paramSchema{
	number(GridSpacing, 1.0, 0.1, 50),
	positive(GridPositionSize, 100),
	integer(GridMaxLevels, 10, 1, 50),
	positive(GridMaxInvestment, 5000),
}

type GridLevelState string

const (
	GridLevelEmpty  GridLevelState = "EMPTY"
	GridLevelOpen   GridLevelState = "OPEN"
	GridLevelFilled GridLevelState = "FILLED"
)

// GridLevel is one pre-planned price. Index counts outward from the base,
// starting at 1. Only armed Empty levels may emit signals.
type GridLevel struct {
	Index    int             `json:"index" yaml:"index"`
	Side     types.OrderSide `json:"side" yaml:"side"`
	Price    decimal.Decimal `json:"price" yaml:"price"`
	State    GridLevelState  `json:"state" yaml:"state"`
	Armed    bool            `json:"armed" yaml:"armed"`
	OrderRef string          `json:"order_ref" yaml:"order_ref"`
	// Quantity is the filled quantity for buy levels and the quantity to sell
	// for armed sell levels.
	Quantity decimal.Decimal `json:"quantity" yaml:"quantity"`
}

type gridKey struct {
	side  types.OrderSide
	index int
}

// GridStrategy trades a fixed ladder of levels around the first observed price.
type GridStrategy struct {
	*base

	spacing       decimal.Decimal
	positionSize  decimal.Decimal
	maxLevels     int
	maxInvestment decimal.Decimal

	initialized bool
	generation  int
	basePrice   decimal.Decimal
	prevPrice   decimal.Decimal
	buyLevels   []GridLevel
	sellLevels  []GridLevel
	invested    decimal.Decimal
	// pending maps signal id to the level it was emitted for
	pending map[string]gridKey
}

// NewGrid creates a grid strategy from its configuration.
func NewGrid(cfg types.StrategyConfig, log *logger.Logger) (*GridStrategy, error) {
	params, err := gridSchema.resolve(cfg.Parameters)
	if err != nil {
		return nil, err
	}

	s := &GridStrategy{
		base:          newBase(cfg, types.StrategyKindGrid, gridSchema, log),
		spacing:       decimal.Zero,
		positionSize:  decimal.Zero,
		maxLevels:     0,
		maxInvestment: decimal.Zero,
		initialized:   false,
		generation:    0,
		basePrice:     decimal.Zero,
		prevPrice:     decimal.Zero,
		buyLevels:     nil,
		sellLevels:    nil,
		invested:      decimal.Zero,
		pending:       map[string]gridKey{},
	}
	s.apply(params)

	return s, nil
}

func (s *GridStrategy) apply(params types.Parameters) {
	s.params = params
	s.spacing = decimalParam(params, GridSpacing)
	s.positionSize = decimalParam(params, GridPositionSize)
	s.maxLevels = intParam(params, GridMaxLevels)
	s.maxInvestment = decimalParam(params, GridMaxInvestment)
}

// initialize anchors the base price and lays out the ladder. Each level is
// exactly spacing percent away from its neighbour nearer the base.
func (s *GridStrategy) initialize(base decimal.Decimal) {
	step := s.spacing.Div(decimal.NewFromInt(100))
	down := decimal.NewFromInt(1).Sub(step)
	up := decimal.NewFromInt(1).Add(step)

	s.basePrice = base
	s.buyLevels = make([]GridLevel, s.maxLevels)
	s.sellLevels = make([]GridLevel, s.maxLevels)

	buyPrice, sellPrice := base, base
	for i := 0; i < s.maxLevels; i++ {
		buyPrice = buyPrice.Mul(down)
		sellPrice = sellPrice.Mul(up)

		s.buyLevels[i] = GridLevel{
			Index: i + 1, Side: types.OrderSideBuy, Price: buyPrice,
			State: GridLevelEmpty, Armed: true, OrderRef: "", Quantity: decimal.Zero,
		}
		s.sellLevels[i] = GridLevel{
			Index: i + 1, Side: types.OrderSideSell, Price: sellPrice,
			State: GridLevelEmpty, Armed: false, OrderRef: "", Quantity: decimal.Zero,
		}
	}

	s.initialized = true
	s.log.Info("Grid initialized",
		zap.String("base_price", base.String()),
		zap.Int("levels", s.maxLevels),
		zap.String("spacing_pct", s.spacing.String()),
		zap.Int("generation", s.generation),
	)
}

func (s *GridStrategy) level(key gridKey) *GridLevel {
	levels := s.buyLevels
	if key.side == types.OrderSideSell {
		levels = s.sellLevels
	}

	if key.index < 1 || key.index > len(levels) {
		return nil
	}

	return &levels[key.index-1]
}

func (s *GridStrategy) mirror(key gridKey) *GridLevel {
	side := types.OrderSideSell
	if key.side == types.OrderSideSell {
		side = types.OrderSideBuy
	}

	return s.level(gridKey{side: side, index: key.index})
}

// Analyze implements Strategy.
func (s *GridStrategy) Analyze(snapshot types.MarketSnapshot) (optional.Option[types.StrategySignal], error) {
	if err := s.checkSnapshot(snapshot); err != nil {
		return optional.None[types.StrategySignal](), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	price := snapshot.Price
	if !s.initialized {
		s.initialize(price)
		s.prevPrice = price

		return optional.None[types.StrategySignal](), nil
	}

	prev := s.prevPrice
	s.prevPrice = price

	if lvl := s.crossedBuy(prev, price); lvl != nil {
		if s.invested.Add(s.positionSize).GreaterThan(s.maxInvestment) {
			s.log.Debug("Grid buy level crossed but investment cap reached",
				zap.Int("level", lvl.Index),
				zap.String("invested", s.invested.String()),
			)

			return optional.None[types.StrategySignal](), nil
		}

		s.invested = s.invested.Add(s.positionSize)
		quantity := s.positionSize.DivRound(lvl.Price, quantityPrecision)

		return optional.Some(s.emit(snapshot, lvl, types.SignalActionBuy, quantity)), nil
	}

	if lvl := s.crossedSell(prev, price); lvl != nil {
		return optional.Some(s.emit(snapshot, lvl, types.SignalActionSell, lvl.Quantity)), nil
	}

	return optional.None[types.StrategySignal](), nil
}

// crossedBuy returns the armed empty buy level nearest the previous price
// that the price fell through.
func (s *GridStrategy) crossedBuy(prev, price decimal.Decimal) *GridLevel {
	for i := range s.buyLevels {
		lvl := &s.buyLevels[i]
		if lvl.Armed && lvl.State == GridLevelEmpty && prev.GreaterThan(lvl.Price) && price.LessThanOrEqual(lvl.Price) {
			return lvl
		}
	}

	return nil
}

// crossedSell returns the armed empty sell level nearest the previous price
// that the price rose through.
func (s *GridStrategy) crossedSell(prev, price decimal.Decimal) *GridLevel {
	for i := range s.sellLevels {
		lvl := &s.sellLevels[i]
		if lvl.Armed && lvl.State == GridLevelEmpty && lvl.Quantity.IsPositive() &&
			prev.LessThan(lvl.Price) && price.GreaterThanOrEqual(lvl.Price) {
			return lvl
		}
	}

	return nil
}

func (s *GridStrategy) emit(snapshot types.MarketSnapshot, lvl *GridLevel, action types.SignalAction, quantity decimal.Decimal) types.StrategySignal {
	signal := s.newSignal(
		snapshot,
		action,
		quantity,
		optional.Some(lvl.Price.Round(quantityPrecision)),
		gridConfidence(snapshot.Price, s.basePrice),
		map[string]any{
			"grid_level":      lvl.Index,
			"grid_side":       string(lvl.Side),
			"grid_generation": s.generation,
			"position_size":   s.positionSize.String(),
			"total_invested":  s.invested.String(),
		},
	)

	lvl.State = GridLevelOpen
	lvl.OrderRef = signal.ID
	s.pending[signal.ID] = gridKey{side: lvl.Side, index: lvl.Index}

	return signal
}

// gridConfidence grows with the distance of price from the base.
func gridConfidence(price, base decimal.Decimal) float64 {
	if !base.IsPositive() {
		return 0.5
	}

	deviation := price.Sub(base).Abs().Div(base).InexactFloat64()

	switch {
	case deviation > 0.05:
		return 0.9
	case deviation > 0.02:
		return 0.7
	default:
		return 0.5
	}
}

// OnOrderUpdate moves the level of the order along Open -> Filled, arming the
// mirror level on fill. Orders that end without any fill return the level to
// Empty.
func (s *GridStrategy) OnOrderUpdate(order types.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.pending[order.SignalID]
	if !ok {
		return
	}

	lvl := s.level(key)
	if lvl == nil {
		delete(s.pending, order.SignalID)

		return
	}

	lvl.OrderRef = order.ID

	if !order.Status.IsTerminal() {
		return
	}

	delete(s.pending, order.SignalID)

	if order.FilledQuantity.IsPositive() {
		s.markFilled(key, lvl, order)

		return
	}

	s.release(key, lvl)
}

func (s *GridStrategy) markFilled(key gridKey, lvl *GridLevel, order types.Order) {
	lvl.State = GridLevelFilled
	lvl.Quantity = order.FilledQuantity

	if key.side == types.OrderSideBuy && order.Status != types.OrderStatusFilled {
		unfilled := s.positionSize.Mul(order.RemainingQuantity()).Div(order.Quantity)
		s.invested = decimal.Max(decimal.Zero, s.invested.Sub(unfilled))
	}

	mirror := s.mirror(key)
	if mirror == nil || mirror.State != GridLevelEmpty {
		return
	}

	mirror.Armed = true
	if mirror.Side == types.OrderSideSell {
		mirror.Quantity = order.FilledQuantity
	}

	s.log.Info("Grid level filled, mirror armed",
		zap.String("side", string(key.side)),
		zap.Int("level", key.index),
		zap.String("mirror_price", mirror.Price.String()),
	)
}

func (s *GridStrategy) release(key gridKey, lvl *GridLevel) {
	lvl.State = GridLevelEmpty
	lvl.OrderRef = ""

	if key.side == types.OrderSideBuy {
		s.invested = decimal.Max(decimal.Zero, s.invested.Sub(s.positionSize))
	}
}

// OnSignalRejected returns the level of a rejected signal to Empty.
func (s *GridStrategy) OnSignalRejected(signal types.StrategySignal, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.pending[signal.ID]
	if !ok {
		return
	}

	delete(s.pending, signal.ID)

	if lvl := s.level(key); lvl != nil {
		s.release(key, lvl)
		s.log.Debug("Grid signal rejected, level reset", zap.Int("level", key.index), zap.String("reason", reason))
	}
}

// UpdateParameters implements Strategy. A successful update re-initializes the
// grid at the next observed price; reports for orders of the previous grid
// are ignored.
func (s *GridStrategy) UpdateParameters(params types.Parameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved, err := s.schema.resolve(s.merged(params))
	if err != nil {
		return err
	}

	s.apply(resolved)
	s.initialized = false
	s.generation++
	s.buyLevels = nil
	s.sellLevels = nil
	s.pending = map[string]gridKey{}

	return nil
}

// ValidateParameters implements Strategy.
func (s *GridStrategy) ValidateParameters(params types.Parameters) error {
	_, err := gridSchema.resolve(params)

	return err
}

// State implements Strategy.
func (s *GridStrategy) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return "awaiting_base_price"
	}

	open, filled := 0, 0

	for _, levels := range [][]GridLevel{s.buyLevels, s.sellLevels} {
		for _, lvl := range levels {
			switch lvl.State {
			case GridLevelOpen:
				open++
			case GridLevelFilled:
				filled++
			case GridLevelEmpty:
			}
		}
	}

	return fmt.Sprintf("base=%s open=%d filled=%d", s.basePrice.String(), open, filled)
}

// Levels returns copies of the buy and sell ladders, nearest to base first.
func (s *GridStrategy) Levels() (buy []GridLevel, sell []GridLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]GridLevel(nil), s.buyLevels...), append([]GridLevel(nil), s.sellLevels...)
}

// BasePrice returns the anchored base price, zero before the first tick.
func (s *GridStrategy) BasePrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.basePrice
}
