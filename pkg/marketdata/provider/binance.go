package provider

import (
	"context"
	"iter"
	"strings"
	"sync"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/internal/utils"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BinanceWsTickerEvent is the rolling 24h ticker pushed for a symbol.
type BinanceWsTickerEvent struct {
	Symbol     string
	Time       int64
	LastPrice  string
	HighPrice  string
	LowPrice   string
	BaseVolume string
}

// WsTickerHandler receives ticker events.
type WsTickerHandler func(event *BinanceWsTickerEvent)

// WsErrorHandler receives websocket errors.
type WsErrorHandler func(err error)

// BinanceWebSocketService abstracts the Binance websocket API for testing.
// doneC is closed when the connection ends; closing stopC ends it.
type BinanceWebSocketService interface {
	WsTickerServe(symbol string, handler WsTickerHandler, errHandler WsErrorHandler) (doneC chan struct{}, stopC chan struct{}, err error)
}

// realBinanceWebSocketService wraps the package level websocket functions.
type realBinanceWebSocketService struct{}

func (realBinanceWebSocketService) WsTickerServe(symbol string, handler WsTickerHandler, errHandler WsErrorHandler) (chan struct{}, chan struct{}, error) {
	return binance.WsMarketStatServe(symbol, func(event *binance.WsMarketStatEvent) {
		handler(&BinanceWsTickerEvent{
			Symbol:     event.Symbol,
			Time:       event.Time,
			LastPrice:  event.LastPrice,
			HighPrice:  event.HighPrice,
			LowPrice:   event.LowPrice,
			BaseVolume: event.BaseVolume,
		})
	}, func(err error) {
		errHandler(err)
	})
}

// BinanceFeed streams market snapshots from the Binance 24h ticker and
// reconnects when the websocket drops.
type BinanceFeed struct {
	ws     BinanceWebSocketService
	config BinanceStreamConfig
	log    *logger.Logger
}

// NewBinanceFeed creates a feed on the public Binance websocket.
func NewBinanceFeed(config BinanceStreamConfig, log *logger.Logger) (*BinanceFeed, error) {
	return NewBinanceFeedWithWebSocket(realBinanceWebSocketService{}, config, log)
}

// NewBinanceFeedWithWebSocket creates a feed on a custom websocket service.
func NewBinanceFeedWithWebSocket(ws BinanceWebSocketService, config BinanceStreamConfig, log *logger.Logger) (*BinanceFeed, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNop()
	}

	return &BinanceFeed{
		ws:     ws,
		config: config,
		log:    log.Named("feed"),
	}, nil
}

// Subscribe returns an iterator over snapshots for symbol. Connection and
// parse failures are yielded as errors and the stream carries on; it ends when
// ctx is cancelled, the consumer stops, or MaxReconnects consecutive
// connections fail.
func (f *BinanceFeed) Subscribe(ctx context.Context, symbol string) iter.Seq2[types.MarketSnapshot, error] {
	return func(yield func(types.MarketSnapshot, error) bool) {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			yield(types.MarketSnapshot{}, errors.New(errors.ErrCodeMissingParameter, "no symbol provided"))

			return
		}

		failures := 0

		for ctx.Err() == nil {
			received, cont := f.serve(ctx, symbol, yield)
			if !cont {
				return
			}

			if received {
				failures = 0
			}

			failures++
			if f.config.MaxReconnects > 0 && failures > f.config.MaxReconnects {
				yield(types.MarketSnapshot{}, errors.Newf(errors.ErrCodeMarketDataStreamFailed,
					"giving up on %s after %d reconnect attempts", symbol, f.config.MaxReconnects))

				return
			}

			delay := f.config.backoff(failures)
			f.log.Warn("Reconnecting market data stream",
				zap.String("symbol", symbol),
				zap.Int("attempt", failures),
				zap.Duration("delay", delay),
			)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()

				return
			case <-timer.C:
			}
		}
	}
}

// serve runs one websocket connection. received reports whether any event
// arrived; cont is false when the consumer or ctx ended the stream.
func (f *BinanceFeed) serve(ctx context.Context, symbol string, yield func(types.MarketSnapshot, error) bool) (received bool, cont bool) {
	events := make(chan BinanceWsTickerEvent)
	errs := make(chan error, 1)
	quit := make(chan struct{})

	doneC, stopC, err := f.ws.WsTickerServe(symbol, func(event *BinanceWsTickerEvent) {
		select {
		case events <- *event:
		case <-quit:
		}
	}, func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	if err != nil {
		return false, yield(types.MarketSnapshot{}, errors.Wrapf(errors.ErrCodeMarketDataStreamFailed, err, "failed to start websocket for %s", symbol))
	}

	stop := sync.OnceFunc(func() {
		close(quit)
		close(stopC)
	})
	defer stop()

	f.log.Info("Market data stream connected", zap.String("symbol", symbol))

	for {
		select {
		case <-ctx.Done():
			return received, false
		case event := <-events:
			received = true

			snapshot, err := convertWsTickerToSnapshot(event)
			if !yield(snapshot, err) {
				return received, false
			}
		case err := <-errs:
			if !yield(types.MarketSnapshot{}, errors.Wrapf(errors.ErrCodeMarketDataStreamFailed, err, "websocket error on %s", symbol)) {
				return received, false
			}
		case <-doneC:
			select {
			case err := <-errs:
				if !yield(types.MarketSnapshot{}, errors.Wrapf(errors.ErrCodeMarketDataStreamFailed, err, "websocket error on %s", symbol)) {
					return received, false
				}
			default:
			}

			return received, true
		}
	}
}

// convertWsTickerToSnapshot converts a Binance ticker to a market snapshot.
func convertWsTickerToSnapshot(event BinanceWsTickerEvent) (types.MarketSnapshot, error) {
	snapshot := types.MarketSnapshot{
		Symbol:    event.Symbol,
		Timestamp: time.UnixMilli(event.Time).UTC(),
	}

	fields := []struct {
		value  string
		target *decimal.Decimal
	}{
		{event.LastPrice, &snapshot.Price},
		{event.BaseVolume, &snapshot.Volume24h},
		{event.HighPrice, &snapshot.High24h},
		{event.LowPrice, &snapshot.Low24h},
	}

	for _, field := range fields {
		v, err := utils.ParseDecimal(field.value)
		if err != nil {
			return types.MarketSnapshot{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid ticker for %s", event.Symbol)
		}

		*field.target = v
	}

	return snapshot, nil
}
