package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102
	ErrCodeUnknownParameter     ErrorCode = 103
	ErrCodeInvalidType          ErrorCode = 104
	ErrCodeInvalidPeriod        ErrorCode = 105
	ErrCodeInvalidSignal        ErrorCode = 106
	ErrCodeInvalidSnapshot      ErrorCode = 107
	ErrCodeInvalidRiskLimits    ErrorCode = 108

	// Data errors (200-299)
	ErrCodeDataNotFound     ErrorCode = 200
	ErrCodeInsufficientData ErrorCode = 201

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 300

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound      ErrorCode = 400
	ErrCodeStrategyConfigError   ErrorCode = 401
	ErrCodeStrategyRuntimeError  ErrorCode = 402
	ErrCodeUnsupportedStrategy   ErrorCode = 403
	ErrCodeStrategyAlreadyExists ErrorCode = 404
	ErrCodeStrategyDisabled      ErrorCode = 405

	// Risk errors (500-599)
	ErrCodeRiskRejected ErrorCode = 500
	ErrCodeRiskLimitHit ErrorCode = 501

	// Order errors (600-699)
	ErrCodeOrderFailed        ErrorCode = 600
	ErrCodeOrderNotFound      ErrorCode = 601
	ErrCodeOrderInFlight      ErrorCode = 602
	ErrCodeInvalidTransition  ErrorCode = 603
	ErrCodeInvalidFill        ErrorCode = 604
	ErrCodeDispatcherShutdown ErrorCode = 605
	ErrCodePositionNotFound   ErrorCode = 606
	ErrCodeOrderTimeout       ErrorCode = 607

	// Venue errors (700-799)
	ErrCodeNetwork             ErrorCode = 700
	ErrCodeRateLimited         ErrorCode = 701
	ErrCodeVenueRejected       ErrorCode = 702
	ErrCodeInsufficientBalance ErrorCode = 703
	ErrCodeVenueUnrecoverable  ErrorCode = 704
	ErrCodeMarketClosed        ErrorCode = 705

	// Market data errors (800-899)
	ErrCodeMarketDataStreamFailed ErrorCode = 800
	ErrCodeMarketDataParseFailed  ErrorCode = 801
)
