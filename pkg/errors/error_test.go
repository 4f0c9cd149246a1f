package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

// transientVenueCodes mirrors the dispatcher's default retry set.
var transientVenueCodes = []ErrorCode{ErrCodeNetwork, ErrCodeRateLimited}

func (suite *ErrorTestSuite) TestVenueFailureFormatting() {
	timeout := errors.New("i/o timeout")

	err := Wrapf(ErrCodeNetwork, timeout, "failed to place order %s", "ord-1")
	suite.Equal("[700] failed to place order ord-1: i/o timeout", err.Error())
	suite.Same(timeout, err.Unwrap())

	rejected := Newf(ErrCodeVenueRejected, "venue rejected %s", "BTCUSDT")
	suite.Equal("[702] venue rejected BTCUSDT", rejected.Error())
	suite.Nil(rejected.Unwrap())
}

func (suite *ErrorTestSuite) TestTransientClassification() {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{name: "network", err: New(ErrCodeNetwork, "connection reset"), transient: true},
		{name: "rate limited", err: Wrap(ErrCodeRateLimited, "too many requests", errors.New("429")), transient: true},
		{name: "rejected", err: New(ErrCodeVenueRejected, "filter failure"), transient: false},
		{name: "insufficient balance", err: New(ErrCodeInsufficientBalance, "balance too low"), transient: false},
		{name: "unrecoverable", err: New(ErrCodeVenueUnrecoverable, "invalid symbol"), transient: false},
		{name: "market closed", err: New(ErrCodeMarketClosed, "market is closed"), transient: false},
		{name: "plain error", err: errors.New("boom"), transient: false},
		{name: "nil", err: nil, transient: false},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.Equal(tt.transient, HasAnyCode(tt.err, transientVenueCodes...))
		})
	}

	suite.False(HasAnyCode(New(ErrCodeNetwork, "reset")), "no codes never match")
}

func (suite *ErrorTestSuite) TestOutermostCodeWins() {
	venue := New(ErrCodeInsufficientBalance, "account has insufficient balance")
	order := Wrapf(ErrCodeOrderFailed, venue, "failed to cancel order %s", "ord-7")

	suite.Equal(ErrCodeOrderFailed, GetCode(order))
	suite.True(HasCode(order, ErrCodeOrderFailed))
	suite.False(HasCode(order, ErrCodeInsufficientBalance))

	// the venue error stays reachable through the chain
	var inner *Error
	suite.Require().True(As(order.Unwrap(), &inner))
	suite.Equal(ErrCodeInsufficientBalance, inner.Code)
	suite.True(Is(order, venue))
}

func (suite *ErrorTestSuite) TestCodeSurvivesStandardWrapping() {
	err := fmt.Errorf("strategy dca: %w", New(ErrCodeUnknownParameter, "unknown parameter grid_levels"))

	suite.Equal(ErrCodeUnknownParameter, GetCode(err))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain")))
	suite.Equal(ErrCodeUnknown, GetCode(nil))
}

func (suite *ErrorTestSuite) TestCodeRanges() {
	ranges := []struct {
		name  string
		codes []ErrorCode
		lo    ErrorCode
		hi    ErrorCode
	}{
		{"validation", []ErrorCode{ErrCodeInvalidParameter, ErrCodeInvalidConfiguration, ErrCodeMissingParameter, ErrCodeUnknownParameter, ErrCodeInvalidType, ErrCodeInvalidPeriod, ErrCodeInvalidSignal, ErrCodeInvalidSnapshot, ErrCodeInvalidRiskLimits}, 100, 199},
		{"data", []ErrorCode{ErrCodeDataNotFound, ErrCodeInsufficientData}, 200, 299},
		{"indicator", []ErrorCode{ErrCodeIndicatorCalculation}, 300, 399},
		{"strategy", []ErrorCode{ErrCodeStrategyNotFound, ErrCodeStrategyConfigError, ErrCodeStrategyRuntimeError, ErrCodeUnsupportedStrategy, ErrCodeStrategyAlreadyExists, ErrCodeStrategyDisabled}, 400, 499},
		{"risk", []ErrorCode{ErrCodeRiskRejected, ErrCodeRiskLimitHit}, 500, 599},
		{"order", []ErrorCode{ErrCodeOrderFailed, ErrCodeOrderNotFound, ErrCodeOrderInFlight, ErrCodeInvalidTransition, ErrCodeInvalidFill, ErrCodeDispatcherShutdown, ErrCodePositionNotFound, ErrCodeOrderTimeout}, 600, 699},
		{"venue", []ErrorCode{ErrCodeNetwork, ErrCodeRateLimited, ErrCodeVenueRejected, ErrCodeInsufficientBalance, ErrCodeVenueUnrecoverable, ErrCodeMarketClosed}, 700, 799},
		{"market data", []ErrorCode{ErrCodeMarketDataStreamFailed, ErrCodeMarketDataParseFailed}, 800, 899},
	}

	seen := map[ErrorCode]string{}

	for _, r := range ranges {
		for _, code := range r.codes {
			suite.GreaterOrEqual(code, r.lo, "%s code %d", r.name, code)
			suite.LessOrEqual(code, r.hi, "%s code %d", r.name, code)

			prev, dup := seen[code]
			suite.False(dup, "code %d used by %s and %s", code, prev, r.name)
			seen[code] = r.name
		}
	}
}

func (suite *ErrorTestSuite) TestInsufficientData() {
	err := NewInsufficientDataErrorf(27, 12, "ETHUSDT", "MACD needs %d prices, got %d", 27, 12)
	suite.Equal("MACD needs 27 prices, got 12", err.Error())
	suite.Equal("ETHUSDT", err.Symbol)

	wrapped := Wrap(ErrCodeStrategyRuntimeError, "momentum analysis failed", err)
	suite.True(IsInsufficientDataError(wrapped))
	suite.Equal(ErrCodeStrategyRuntimeError, GetCode(wrapped))

	suite.True(IsInsufficientDataError(NewInsufficientDataError(14, 3, "", "RSI warming up")))
	suite.False(IsInsufficientDataError(New(ErrCodeInsufficientData, "coded only")))
	suite.False(IsInsufficientDataError(nil))
}
