package tradingprovider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	apperrors "github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Mock implementations for testing

// mockBinanceClient implements BinanceClient interface for testing
type mockBinanceClient struct {
	createOrderService *mockCreateOrderService
	getAccountService  *mockGetAccountService
	cancelOrderService *mockCancelOrderService
	getOrderService    *mockGetOrderService
}

func newMockBinanceClient() *mockBinanceClient {
	return &mockBinanceClient{
		createOrderService: &mockCreateOrderService{},
		getAccountService:  &mockGetAccountService{},
		cancelOrderService: &mockCancelOrderService{},
		getOrderService:    &mockGetOrderService{},
	}
}

func (m *mockBinanceClient) NewCreateOrderService() CreateOrderService {
	return m.createOrderService
}

func (m *mockBinanceClient) NewGetAccountService() GetAccountService {
	return m.getAccountService
}

func (m *mockBinanceClient) NewCancelOrderService() CancelOrderService {
	return m.cancelOrderService
}

func (m *mockBinanceClient) NewGetOrderService() GetOrderService {
	return m.getOrderService
}

// mockCreateOrderService implements CreateOrderService
type mockCreateOrderService struct {
	response      *binance.CreateOrderResponse
	err           error
	calls         int
	symbol        string
	side          binance.SideType
	orderTyp      binance.OrderType
	quantity      string
	price         string
	tif           binance.TimeInForceType
	clientOrderID string
}

func (m *mockCreateOrderService) Symbol(symbol string) CreateOrderService {
	m.symbol = symbol
	return m
}

func (m *mockCreateOrderService) Side(side binance.SideType) CreateOrderService {
	m.side = side
	return m
}

func (m *mockCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	m.orderTyp = orderType
	return m
}

func (m *mockCreateOrderService) Quantity(quantity string) CreateOrderService {
	m.quantity = quantity
	return m
}

func (m *mockCreateOrderService) Price(price string) CreateOrderService {
	m.price = price
	return m
}

func (m *mockCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	m.tif = tif
	return m
}

func (m *mockCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	m.clientOrderID = id
	return m
}

func (m *mockCreateOrderService) Do(_ context.Context) (*binance.CreateOrderResponse, error) {
	m.calls++
	return m.response, m.err
}

// mockGetAccountService implements GetAccountService
type mockGetAccountService struct {
	account *binance.Account
	err     error
}

func (m *mockGetAccountService) Do(_ context.Context) (*binance.Account, error) {
	return m.account, m.err
}

// mockCancelOrderService implements CancelOrderService
type mockCancelOrderService struct {
	response *binance.CancelOrderResponse
	err      error
	symbol   string
	orderID  int64
}

func (m *mockCancelOrderService) Symbol(symbol string) CancelOrderService {
	m.symbol = symbol
	return m
}

func (m *mockCancelOrderService) OrderID(orderID int64) CancelOrderService {
	m.orderID = orderID
	return m
}

func (m *mockCancelOrderService) Do(_ context.Context) (*binance.CancelOrderResponse, error) {
	return m.response, m.err
}

// mockGetOrderService implements GetOrderService
type mockGetOrderService struct {
	order   *binance.Order
	err     error
	symbol  string
	orderID int64
}

func (m *mockGetOrderService) Symbol(symbol string) GetOrderService {
	m.symbol = symbol
	return m
}

func (m *mockGetOrderService) OrderID(orderID int64) GetOrderService {
	m.orderID = orderID
	return m
}

func (m *mockGetOrderService) Do(_ context.Context) (*binance.Order, error) {
	return m.order, m.err
}

type BinanceTradingTestSuite struct {
	suite.Suite
	mock   *mockBinanceClient
	client *BinanceExecutionClient
}

func TestBinanceTradingSuite(t *testing.T) {
	suite.Run(t, new(BinanceTradingTestSuite))
}

func (suite *BinanceTradingTestSuite) SetupTest() {
	suite.mock = newMockBinanceClient()
	suite.client = newBinanceExecutionClientWithClient(suite.mock, NewBinanceProviderConfig("key", "secret"), nil)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func apiError(code int64, message string) error {
	return &common.APIError{Code: code, Message: message}
}

func marketBuy(quantity string) types.OrderRequest {
	return types.OrderRequest{
		ClientOrderID: "4b0c6f7e-51c8-4d5c-9e55-0b9f3c3c1a11",
		Symbol:        "BTCUSDT",
		Side:          types.OrderSideBuy,
		Type:          types.OrderTypeMarket,
		Quantity:      d(quantity),
		Price:         optional.None[decimal.Decimal](),
	}
}

// ============================================================================
// Construction
// ============================================================================

func (suite *BinanceTradingTestSuite) TestNewBinanceExecutionClient() {
	client, err := NewBinanceExecutionClient(NewBinanceProviderConfig("key", "secret"), false, nil)
	suite.NoError(err)
	suite.NotNil(client)
	suite.NotNil(client.client)
	suite.Equal("USDT", client.quoteAsset)
}

func (suite *BinanceTradingTestSuite) TestNewBinanceExecutionClient_InvalidConfig() {
	_, err := NewBinanceExecutionClient(BinanceProviderConfig{}, false, nil)
	suite.Error(err)
}

// ============================================================================
// Order status mapping
// ============================================================================

func (suite *BinanceTradingTestSuite) TestMapBinanceOrderStatus() {
	tests := []struct {
		status   binance.OrderStatusType
		expected types.OrderStatus
	}{
		{binance.OrderStatusTypeNew, types.OrderStatusSubmitted},
		{binance.OrderStatusTypePendingCancel, types.OrderStatusSubmitted},
		{binance.OrderStatusTypePartiallyFilled, types.OrderStatusPartiallyFilled},
		{binance.OrderStatusTypeFilled, types.OrderStatusFilled},
		{binance.OrderStatusTypeCanceled, types.OrderStatusCancelled},
		{binance.OrderStatusTypeExpired, types.OrderStatusCancelled},
		{binance.OrderStatusTypeRejected, types.OrderStatusRejected},
		{binance.OrderStatusType("UNKNOWN"), types.OrderStatusSubmitted},
	}

	for _, tt := range tests {
		suite.Equal(tt.expected, mapBinanceOrderStatus(tt.status), string(tt.status))
	}
}

// ============================================================================
// PlaceOrder
// ============================================================================

func (suite *BinanceTradingTestSuite) TestPlaceOrder_MarketBuy() {
	suite.mock.createOrderService.response = &binance.CreateOrderResponse{OrderID: 12345, Status: binance.OrderStatusTypeNew}

	venueID, err := suite.client.PlaceOrder(context.Background(), marketBuy("0.123456789"))
	suite.NoError(err)
	suite.Equal("12345", venueID)

	svc := suite.mock.createOrderService
	suite.Equal("BTCUSDT", svc.symbol)
	suite.Equal(binance.SideTypeBuy, svc.side)
	suite.Equal(binance.OrderTypeMarket, svc.orderTyp)
	suite.Equal("0.12345678", svc.quantity)
	suite.Equal("4b0c6f7e-51c8-4d5c-9e55-0b9f3c3c1a11", svc.clientOrderID)
	suite.Empty(svc.price)
}

func (suite *BinanceTradingTestSuite) TestPlaceOrder_LimitSell() {
	suite.mock.createOrderService.response = &binance.CreateOrderResponse{OrderID: 7}

	request := marketBuy("2")
	request.Side = types.OrderSideSell
	request.Type = types.OrderTypeLimit
	request.Price = optional.Some(d("50000.50"))

	venueID, err := suite.client.PlaceOrder(context.Background(), request)
	suite.NoError(err)
	suite.Equal("7", venueID)

	svc := suite.mock.createOrderService
	suite.Equal(binance.SideTypeSell, svc.side)
	suite.Equal(binance.OrderTypeLimit, svc.orderTyp)
	suite.Equal("50000.5", svc.price)
	suite.Equal(binance.TimeInForceTypeGTC, svc.tif)
}

func (suite *BinanceTradingTestSuite) TestPlaceOrder_InvalidRequests() {
	tests := []struct {
		name   string
		mutate func(r *types.OrderRequest)
	}{
		{name: "unsupported side", mutate: func(r *types.OrderRequest) { r.Side = "HOLD" }},
		{name: "unsupported type", mutate: func(r *types.OrderRequest) { r.Type = "STOP" }},
		{name: "zero quantity", mutate: func(r *types.OrderRequest) { r.Quantity = decimal.Zero }},
		{name: "dust quantity", mutate: func(r *types.OrderRequest) { r.Quantity = d("0.000000001") }},
		{name: "limit without price", mutate: func(r *types.OrderRequest) { r.Type = types.OrderTypeLimit }},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.SetupTest()

			request := marketBuy("1")
			tt.mutate(&request)

			_, err := suite.client.PlaceOrder(context.Background(), request)
			suite.Error(err)
			suite.True(apperrors.HasCode(err, apperrors.ErrCodeInvalidParameter))
			suite.Zero(suite.mock.createOrderService.calls)
		})
	}
}

func (suite *BinanceTradingTestSuite) TestPlaceOrder_ErrorClassification() {
	tests := []struct {
		name     string
		err      error
		expected apperrors.ErrorCode
	}{
		{name: "network", err: errors.New("dial tcp: connection refused"), expected: apperrors.ErrCodeNetwork},
		{name: "disconnected", err: apiError(-1001, "Internal error; unable to process your request."), expected: apperrors.ErrCodeNetwork},
		{name: "rate limited", err: apiError(-1003, "Too many requests"), expected: apperrors.ErrCodeRateLimited},
		{name: "too many orders", err: apiError(-1015, "Too many new orders"), expected: apperrors.ErrCodeRateLimited},
		{name: "invalid symbol", err: apiError(-1121, "Invalid symbol."), expected: apperrors.ErrCodeVenueUnrecoverable},
		{name: "bad api key", err: apiError(-2015, "Invalid API-key, IP, or permissions for action."), expected: apperrors.ErrCodeVenueUnrecoverable},
		{name: "insufficient balance", err: apiError(-2010, "Account has insufficient balance for requested action."), expected: apperrors.ErrCodeInsufficientBalance},
		{name: "market closed", err: apiError(-2010, "Market is closed."), expected: apperrors.ErrCodeMarketClosed},
		{name: "other rejection", err: apiError(-2010, "Order would trigger immediately."), expected: apperrors.ErrCodeVenueRejected},
		{name: "unknown code", err: apiError(-1013, "Filter failure: LOT_SIZE"), expected: apperrors.ErrCodeVenueRejected},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.SetupTest()
			suite.mock.createOrderService.err = tt.err

			_, err := suite.client.PlaceOrder(context.Background(), marketBuy("1"))
			suite.Error(err)
			suite.Equal(tt.expected, apperrors.GetCode(err))
			suite.ErrorIs(err, tt.err)
		})
	}
}

// ============================================================================
// CancelOrder
// ============================================================================

func (suite *BinanceTradingTestSuite) TestCancelOrder() {
	suite.mock.cancelOrderService.response = &binance.CancelOrderResponse{Status: binance.OrderStatusTypeCanceled}

	cancelled, err := suite.client.CancelOrder(context.Background(), "BTCUSDT", "12345")
	suite.NoError(err)
	suite.True(cancelled)
	suite.Equal("BTCUSDT", suite.mock.cancelOrderService.symbol)
	suite.Equal(int64(12345), suite.mock.cancelOrderService.orderID)
}

func (suite *BinanceTradingTestSuite) TestCancelOrder_AlreadyClosed() {
	suite.mock.cancelOrderService.err = apiError(-2011, "Unknown order sent.")

	cancelled, err := suite.client.CancelOrder(context.Background(), "BTCUSDT", "12345")
	suite.NoError(err)
	suite.False(cancelled)
}

func (suite *BinanceTradingTestSuite) TestCancelOrder_InvalidOrderID() {
	_, err := suite.client.CancelOrder(context.Background(), "BTCUSDT", "not-a-number")
	suite.Error(err)
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeInvalidParameter))
}

func (suite *BinanceTradingTestSuite) TestCancelOrder_APIError() {
	suite.mock.cancelOrderService.err = errors.New("timeout")

	_, err := suite.client.CancelOrder(context.Background(), "BTCUSDT", "12345")
	suite.Error(err)
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeNetwork))
}

// ============================================================================
// QueryOrder
// ============================================================================

func (suite *BinanceTradingTestSuite) TestQueryOrder_PartiallyFilled() {
	suite.mock.getOrderService.order = &binance.Order{
		Symbol:                   "BTCUSDT",
		OrderID:                  12345,
		ClientOrderID:            "local-1",
		ExecutedQuantity:         "0.30000000",
		CummulativeQuoteQuantity: "31.50000000",
		Status:                   binance.OrderStatusTypePartiallyFilled,
	}

	report, err := suite.client.QueryOrder(context.Background(), "BTCUSDT", "12345")
	suite.NoError(err)
	suite.Equal("local-1", report.OrderID)
	suite.Equal("12345", report.VenueOrderID)
	suite.Equal(types.OrderStatusPartiallyFilled, report.Status)
	suite.True(report.CumulativeQuantity.Equal(d("0.3")))
	suite.True(report.AveragePrice.Equal(d("105")))
	suite.Equal(int64(12345), suite.mock.getOrderService.orderID)
}

func (suite *BinanceTradingTestSuite) TestQueryOrder_Expired() {
	suite.mock.getOrderService.order = &binance.Order{
		OrderID:          1,
		ExecutedQuantity: "0",
		Status:           binance.OrderStatusTypeExpired,
	}

	report, err := suite.client.QueryOrder(context.Background(), "BTCUSDT", "1")
	suite.NoError(err)
	suite.Equal(types.OrderStatusCancelled, report.Status)
	suite.Equal("expired", report.Reason)
	suite.True(report.AveragePrice.IsZero())
}

func (suite *BinanceTradingTestSuite) TestQueryOrder_NotFound() {
	suite.mock.getOrderService.err = apiError(-2013, "Order does not exist.")

	_, err := suite.client.QueryOrder(context.Background(), "BTCUSDT", "1")
	suite.Error(err)
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeOrderNotFound))
}

func (suite *BinanceTradingTestSuite) TestQueryOrder_MalformedQuantity() {
	suite.mock.getOrderService.order = &binance.Order{OrderID: 1, ExecutedQuantity: "n/a"}

	_, err := suite.client.QueryOrder(context.Background(), "BTCUSDT", "1")
	suite.Error(err)
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeInvalidType))
}

// ============================================================================
// GetAccountInfo
// ============================================================================

func (suite *BinanceTradingTestSuite) TestGetAccountInfo() {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.client.now = func() time.Time { return at }

	suite.mock.getAccountService.account = &binance.Account{
		Balances: []binance.Balance{
			{Asset: "BTC", Free: "0.5", Locked: "0"},
			{Asset: "USDT", Free: "1000.25", Locked: "250"},
		},
	}

	account, err := suite.client.GetAccountInfo(context.Background())
	suite.NoError(err)
	suite.True(account.Balance.Equal(d("1250.25")))
	suite.True(account.PeakEquity.Equal(d("1250.25")))
	suite.Empty(account.Positions)
	suite.Equal(at, account.UpdatedAt)
}

func (suite *BinanceTradingTestSuite) TestGetAccountInfo_NoQuoteBalance() {
	suite.mock.getAccountService.account = &binance.Account{Balances: []binance.Balance{{Asset: "ETH", Free: "3"}}}

	account, err := suite.client.GetAccountInfo(context.Background())
	suite.NoError(err)
	suite.True(account.Balance.IsZero())
}

func (suite *BinanceTradingTestSuite) TestGetAccountInfo_APIError() {
	suite.mock.getAccountService.err = apiError(-2014, "API-key format invalid.")

	_, err := suite.client.GetAccountInfo(context.Background())
	suite.Error(err)
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeVenueUnrecoverable))
	suite.Error(suite.client.CheckConnection(context.Background()))
}
