package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Trading Errors. None of these are fatal: the tick is skipped or the trade is not applied.
	ErrInsufficientFunds   = errors.New("insufficient funds for operation")
	ErrInsufficientAsset   = errors.New("insufficient asset quantity for operation")
	ErrCooldownActive      = errors.New("trade cooldown active")
	ErrPositionOpen        = errors.New("a position is already open")
	ErrNoPosition          = errors.New("no open position")
	ErrUpstreamUnavailable = errors.New("upstream market data unavailable")

	// Exchange Specific Errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")

	// Journal Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrWriteFailed  = errors.New("journal write failed")
)
