package nyxcord

import (
	"github.com/nyxcord/nyxcord/internal/nyxerr"
)

// Err is the unified error type returned across the client; use Category
// to branch without naming every leaf kind.
type Err = nyxerr.Err

// ErrorCategory mirrors nyxerr.Category for callers that don't want to
// import the internal package directly.
type ErrorCategory = nyxerr.Category

const (
	ErrTransport = nyxerr.Transport
	ErrProtocol  = nyxerr.Protocol
	ErrApi       = nyxerr.Api
	ErrRateLimit = nyxerr.RateLimit
	ErrState     = nyxerr.State
)

type TransportError = nyxerr.TransportError
type ProtocolError = nyxerr.ProtocolError
type ApiError = nyxerr.ApiError
type RateLimitError = nyxerr.RateLimitError
type StateError = nyxerr.StateError
