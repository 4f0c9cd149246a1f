package tradingprovider

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/internal/utils"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// BinanceDecimalPrecision is a default decimal precision used as a fallback.
	// 8 decimals allows for satoshi-level precision (0.00000001 BTC) for BTC-like assets.
	// Production systems should use symbol-specific precision from Binance exchange info (e.g. LOT_SIZE, PRICE_FILTER).
	BinanceDecimalPrecision = 8
	DefaultQuoteAsset       = "USDT"
)

// Binance API error codes the client distinguishes.
const (
	binanceCodeDisconnected       = -1001
	binanceCodeTooManyRequests    = -1003
	binanceCodeTimeout            = -1007
	binanceCodeTooManyOrders      = -1015
	binanceCodeIllegalParameters  = -1100
	binanceCodeMandatoryParameter = -1102
	binanceCodeInvalidSymbol      = -1121
	binanceCodeNewOrderRejected   = -2010
	binanceCodeCancelRejected     = -2011
	binanceCodeNoSuchOrder        = -2013
	binanceCodeBadAPIKeyFormat    = -2014
	binanceCodeRejectedMBXKey     = -2015
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// CancelOrderService interface for canceling orders.
type CancelOrderService interface {
	Symbol(symbol string) CancelOrderService
	OrderID(orderID int64) CancelOrderService
	Do(ctx context.Context) (*binance.CancelOrderResponse, error)
}

// GetOrderService interface for querying a single order.
type GetOrderService interface {
	Symbol(symbol string) GetOrderService
	OrderID(orderID int64) GetOrderService
	Do(ctx context.Context) (*binance.Order, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetAccountService() GetAccountService
	NewCancelOrderService() CancelOrderService
	NewGetOrderService() GetOrderService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewCancelOrderService() CancelOrderService {
	return &realCancelOrderService{service: r.client.NewCancelOrderService()}
}

func (r *realBinanceClient) NewGetOrderService() GetOrderService {
	return &realGetOrderService{service: r.client.NewGetOrderService()}
}

// Real service wrappers

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realCancelOrderService struct {
	service *binance.CancelOrderService
}

func (s *realCancelOrderService) Symbol(symbol string) CancelOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOrderService) OrderID(orderID int64) CancelOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetOrderService struct {
	service *binance.GetOrderService
}

func (s *realGetOrderService) Symbol(symbol string) GetOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realGetOrderService) OrderID(orderID int64) GetOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realGetOrderService) Do(ctx context.Context) (*binance.Order, error) {
	return s.service.Do(ctx)
}

// BinanceExecutionClient places, cancels and queries spot orders on Binance.
// It is stateless - all data is fetched directly from the Binance API.
type BinanceExecutionClient struct {
	client           BinanceClient
	decimalPrecision int32
	quoteAsset       string
	now              func() time.Time
	log              *logger.Logger
}

// NewBinanceExecutionClient creates a new Binance execution client.
// If useTestnet is true, connects to Binance Testnet (https://testnet.binance.vision/).
// If config.BaseURL is set, it takes precedence over useTestnet.
func NewBinanceExecutionClient(config BinanceProviderConfig, useTestnet bool, log *logger.Logger) (*BinanceExecutionClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if useTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)

	// Set custom base URL if provided (takes precedence over useTestnet)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return newBinanceExecutionClientWithClient(&realBinanceClient{client: client}, config, log), nil
}

// newBinanceExecutionClientWithClient creates a client around a custom BinanceClient.
// This is used for testing with mock clients.
func newBinanceExecutionClientWithClient(client BinanceClient, config BinanceProviderConfig, log *logger.Logger) *BinanceExecutionClient {
	if log == nil {
		log = logger.NewNop()
	}

	quoteAsset := config.QuoteAsset
	if quoteAsset == "" {
		quoteAsset = DefaultQuoteAsset
	}

	return &BinanceExecutionClient{
		client:           client,
		decimalPrecision: config.DecimalPrecision,
		quoteAsset:       quoteAsset,
		now:              time.Now,
		log:              log.Named("binance"),
	}
}

// PlaceOrder places a single order on Binance and returns the venue order id.
// The request's ClientOrderID is sent as newClientOrderId so retries of the
// same order are deduplicated by the venue.
func (b *BinanceExecutionClient) PlaceOrder(ctx context.Context, request types.OrderRequest) (string, error) {
	var side binance.SideType

	switch request.Side {
	case types.OrderSideBuy:
		side = binance.SideTypeBuy
	case types.OrderSideSell:
		side = binance.SideTypeSell
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", request.Side)
	}

	var orderType binance.OrderType

	switch request.Type {
	case types.OrderTypeMarket:
		orderType = binance.OrderTypeMarket
	case types.OrderTypeLimit:
		orderType = binance.OrderTypeLimit
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order type: %s", request.Type)
	}

	if !request.Quantity.IsPositive() {
		return "", errors.New(errors.ErrCodeInvalidParameter, "order quantity must be greater than zero")
	}

	quantity := utils.RoundToDecimalPrecision(request.Quantity, b.decimalPrecision)
	if !quantity.IsPositive() {
		return "", errors.Newf(errors.ErrCodeInvalidParameter,
			"order quantity %s is too small after rounding to %d decimal places",
			request.Quantity, b.decimalPrecision)
	}

	orderService := b.client.NewCreateOrderService().
		Symbol(request.Symbol).
		Side(side).
		Type(orderType).
		Quantity(quantity.String())

	if request.ClientOrderID != "" {
		orderService = orderService.NewClientOrderID(request.ClientOrderID)
	}

	// For limit orders, add price and time in force
	if orderType == binance.OrderTypeLimit {
		if request.Price.IsNone() {
			return "", errors.New(errors.ErrCodeInvalidParameter, "limit order requires a price")
		}

		orderService = orderService.
			Price(utils.FormatDecimal(request.Price.Unwrap(), b.decimalPrecision)).
			TimeInForce(binance.TimeInForceTypeGTC)
	}

	response, err := orderService.Do(ctx)
	if err != nil {
		return "", classifyError(err, "failed to place order on Binance")
	}

	if response == nil {
		return "", errors.New(errors.ErrCodeVenueRejected, "empty order response from Binance")
	}

	b.log.Debug("Order placed",
		zap.String("client_order_id", request.ClientOrderID),
		zap.Int64("venue_order_id", response.OrderID),
		zap.String("status", string(response.Status)),
	)

	return strconv.FormatInt(response.OrderID, 10), nil
}

// CancelOrder cancels an open order. It returns false when Binance no longer
// knows the order as open.
func (b *BinanceExecutionClient) CancelOrder(ctx context.Context, symbol string, venueOrderID string) (bool, error) {
	orderID, err := parseVenueOrderID(venueOrderID)
	if err != nil {
		return false, err
	}

	_, err = b.client.NewCancelOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		if isAPIErrorCode(err, binanceCodeCancelRejected, binanceCodeNoSuchOrder) {
			return false, nil
		}

		return false, classifyError(err, "failed to cancel order on Binance")
	}

	return true, nil
}

// QueryOrder reports the execution state of an order.
func (b *BinanceExecutionClient) QueryOrder(ctx context.Context, symbol string, venueOrderID string) (types.ExecutionReport, error) {
	orderID, err := parseVenueOrderID(venueOrderID)
	if err != nil {
		return types.ExecutionReport{}, err
	}

	order, err := b.client.NewGetOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		if isAPIErrorCode(err, binanceCodeNoSuchOrder) {
			return types.ExecutionReport{}, errors.Wrapf(errors.ErrCodeOrderNotFound, err, "order %s not found on Binance", venueOrderID)
		}

		return types.ExecutionReport{}, classifyError(err, "failed to query order on Binance")
	}

	if order == nil {
		return types.ExecutionReport{}, errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found on Binance", venueOrderID)
	}

	return convertBinanceOrderToReport(order)
}

// GetAccountInfo returns the quote asset balance as account cash.
func (b *BinanceExecutionClient) GetAccountInfo(ctx context.Context) (types.AccountState, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.AccountState{}, classifyError(err, "failed to get account info from Binance")
	}

	state := types.NewAccountState(decimal.Zero)
	if account == nil {
		return state, nil
	}

	for _, balance := range account.Balances {
		if !strings.EqualFold(balance.Asset, b.quoteAsset) {
			continue
		}

		free, err := utils.ParseDecimal(balance.Free)
		if err != nil {
			return types.AccountState{}, err
		}

		locked, err := utils.ParseDecimal(balance.Locked)
		if err != nil {
			return types.AccountState{}, err
		}

		state = types.NewAccountState(free.Add(locked))
	}

	state.UpdatedAt = b.now()

	return state, nil
}

// CheckConnection verifies connectivity and authentication.
func (b *BinanceExecutionClient) CheckConnection(ctx context.Context) error {
	_, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return classifyError(err, "failed to connect to Binance API")
	}

	return nil
}

// Helper functions

func parseVenueOrderID(venueOrderID string) (int64, error) {
	id, err := strconv.ParseInt(venueOrderID, 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order ID format", err)
	}

	return id, nil
}

func isAPIErrorCode(err error, codes ...int64) bool {
	var apiErr *common.APIError
	if !stderrors.As(err, &apiErr) {
		return false
	}

	for _, code := range codes {
		if apiErr.Code == code {
			return true
		}
	}

	return false
}

// classifyError maps a Binance failure onto the venue error codes: network
// trouble and throttling are transient, bad symbols and credentials are
// unrecoverable, the rest is a plain rejection.
func classifyError(err error, message string) error {
	var apiErr *common.APIError
	if !stderrors.As(err, &apiErr) {
		return errors.Wrap(errors.ErrCodeNetwork, message, err)
	}

	switch apiErr.Code {
	case binanceCodeDisconnected, binanceCodeTimeout:
		return errors.Wrap(errors.ErrCodeNetwork, message, err)
	case binanceCodeTooManyRequests, binanceCodeTooManyOrders:
		return errors.Wrap(errors.ErrCodeRateLimited, message, err)
	case binanceCodeInvalidSymbol, binanceCodeIllegalParameters, binanceCodeMandatoryParameter,
		binanceCodeBadAPIKeyFormat, binanceCodeRejectedMBXKey:
		return errors.Wrap(errors.ErrCodeVenueUnrecoverable, message, err)
	case binanceCodeNewOrderRejected:
		if strings.Contains(strings.ToLower(apiErr.Message), "insufficient balance") {
			return errors.Wrap(errors.ErrCodeInsufficientBalance, message, err)
		}

		if strings.Contains(strings.ToLower(apiErr.Message), "market is closed") {
			return errors.Wrap(errors.ErrCodeMarketClosed, message, err)
		}

		return errors.Wrap(errors.ErrCodeVenueRejected, message, err)
	default:
		return errors.Wrap(errors.ErrCodeVenueRejected, message, err)
	}
}

// mapBinanceOrderStatus maps Binance order status to our OrderStatus type.
func mapBinanceOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePendingCancel:
		return types.OrderStatusSubmitted
	case binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartiallyFilled
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusSubmitted
	}
}

// convertBinanceOrderToReport converts a Binance order to an execution report.
func convertBinanceOrderToReport(order *binance.Order) (types.ExecutionReport, error) {
	executed, err := utils.ParseDecimal(order.ExecutedQuantity)
	if err != nil {
		return types.ExecutionReport{}, err
	}

	quote, err := utils.ParseDecimal(order.CummulativeQuoteQuantity)
	if err != nil {
		return types.ExecutionReport{}, err
	}

	report := types.ExecutionReport{
		OrderID:            order.ClientOrderID,
		VenueOrderID:       strconv.FormatInt(order.OrderID, 10),
		Status:             mapBinanceOrderStatus(order.Status),
		CumulativeQuantity: executed,
		AveragePrice:       utils.AveragePrice(quote, executed),
		Reason:             "",
	}

	switch order.Status {
	case binance.OrderStatusTypeExpired:
		report.Reason = "expired"
	case binance.OrderStatusTypeCanceled:
		report.Reason = "cancelled on venue"
	case binance.OrderStatusTypeRejected:
		report.Reason = "rejected by venue"
	}

	return report, nil
}
