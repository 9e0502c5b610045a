// Package nyxerr defines the closed error taxonomy shared by every subsystem:
// transport, protocol, API, rate-limit, and state errors all wrap into a
// single Err type so callers can branch on category without naming every
// leaf kind.
package nyxerr

import (
	"fmt"
	"time"
)

// Category is one of the five closed error kinds.
type Category int

const (
	Transport Category = iota
	Protocol
	Api
	RateLimit
	State
)

func (c Category) String() string {
	switch c {
	case Transport:
		return "transport"
	case Protocol:
		return "protocol"
	case Api:
		return "api"
	case RateLimit:
		return "rate_limit"
	case State:
		return "state"
	default:
		return "unknown"
	}
}

// Err is the unified error type. Exactly one of the leaf fields is set,
// matching the category.
type Err struct {
	category  Category
	Transport *TransportError
	Protocol  *ProtocolError
	Api       *ApiError
	RateLimit *RateLimitError
	State     *StateError
}

func (e *Err) Category() Category {
	return e.category
}

func (e *Err) Error() string {
	switch e.category {
	case Transport:
		return e.Transport.Error()
	case Protocol:
		return e.Protocol.Error()
	case Api:
		return e.Api.Error()
	case RateLimit:
		return e.RateLimit.Error()
	case State:
		return e.State.Error()
	default:
		return "nyxerr: unknown error"
	}
}

func (e *Err) Unwrap() error {
	switch e.category {
	case Transport:
		return e.Transport
	case Protocol:
		return e.Protocol
	case Api:
		return e.Api
	case RateLimit:
		return e.RateLimit
	case State:
		return e.State
	default:
		return nil
	}
}

func FromTransport(err *TransportError) *Err { return &Err{category: Transport, Transport: err} }
func FromProtocol(err *ProtocolError) *Err    { return &Err{category: Protocol, Protocol: err} }
func FromApi(err *ApiError) *Err              { return &Err{category: Api, Api: err} }
func FromRateLimit(err *RateLimitError) *Err  { return &Err{category: RateLimit, RateLimit: err} }
func FromState(err *StateError) *Err          { return &Err{category: State, State: err} }

// TransportKind distinguishes the transport-level failure modes.
type TransportKind int

const (
	TransportIO TransportKind = iota
	TransportTimeout
	TransportCanceled
	TransportOther
)

type TransportError struct {
	Kind    TransportKind
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("transport error: %s", e.Message)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ProtocolError covers every way the wire protocol itself was violated.
type ProtocolError struct {
	Json                  error
	InvalidPayload        string
	InvalidRouteTemplate  string
	MissingRouteParam     string
	UnexpectedOpcodeWant  int
	UnexpectedOpcodeGot   int
	unexpectedOpcodeIsSet bool
	UnsupportedVersion    int
	unsupportedIsSet      bool
}

func NewJsonError(err error) *ProtocolError { return &ProtocolError{Json: err} }

func NewInvalidPayload(msg string) *ProtocolError { return &ProtocolError{InvalidPayload: msg} }

func NewInvalidRouteTemplate(msg string) *ProtocolError {
	return &ProtocolError{InvalidRouteTemplate: msg}
}

func NewMissingRouteParam(name string) *ProtocolError { return &ProtocolError{MissingRouteParam: name} }

func NewUnexpectedOpcode(want, got int) *ProtocolError {
	return &ProtocolError{UnexpectedOpcodeWant: want, UnexpectedOpcodeGot: got, unexpectedOpcodeIsSet: true}
}

func NewUnsupportedVersion(v int) *ProtocolError {
	return &ProtocolError{UnsupportedVersion: v, unsupportedIsSet: true}
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Json != nil:
		return fmt.Sprintf("protocol error: json decode: %v", e.Json)
	case e.InvalidPayload != "":
		return fmt.Sprintf("protocol error: invalid payload: %s", e.InvalidPayload)
	case e.InvalidRouteTemplate != "":
		return fmt.Sprintf("protocol error: invalid route template: %s", e.InvalidRouteTemplate)
	case e.MissingRouteParam != "":
		return fmt.Sprintf("protocol error: missing route parameter: %s", e.MissingRouteParam)
	case e.unexpectedOpcodeIsSet:
		return fmt.Sprintf("protocol error: unexpected opcode: want %d got %d", e.UnexpectedOpcodeWant, e.UnexpectedOpcodeGot)
	case e.unsupportedIsSet:
		return fmt.Sprintf("protocol error: unsupported protocol version: %d", e.UnsupportedVersion)
	default:
		return "protocol error"
	}
}

func (e *ProtocolError) Unwrap() error { return e.Json }

// ApiError is a non-2xx REST response with an optional server-supplied code.
type ApiError struct {
	Status  int
	Code    *int64
	Message string
}

func (e *ApiError) Error() string {
	if e.Code != nil {
		return fmt.Sprintf("api error %d (code %d): %s", e.Status, *e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// RateLimitError carries the information needed to retry or surface a 429.
type RateLimitError struct {
	RetryAfter time.Duration
	Bucket     string
	Global     bool
}

func (e *RateLimitError) Error() string {
	if e.Global {
		return fmt.Sprintf("rate limit error: global, retry after %s", e.RetryAfter)
	}
	return fmt.Sprintf("rate limit error: bucket %q, retry after %s", e.Bucket, e.RetryAfter)
}

// StateKind enumerates the fixed set of state-machine violations.
type StateKind int

const (
	NotConnected StateKind = iota
	AlreadyRunning
	Closed
	Missing
	InvalidTransition
)

type StateError struct {
	Kind         StateKind
	MissingWhat  string
	FromState    string
	ToState      string
}

func NewNotConnected() *StateError    { return &StateError{Kind: NotConnected} }
func NewAlreadyRunning() *StateError  { return &StateError{Kind: AlreadyRunning} }
func NewClosed() *StateError          { return &StateError{Kind: Closed} }
func NewMissing(what string) *StateError {
	return &StateError{Kind: Missing, MissingWhat: what}
}
func NewInvalidTransition(from, to string) *StateError {
	return &StateError{Kind: InvalidTransition, FromState: from, ToState: to}
}

func (e *StateError) Error() string {
	switch e.Kind {
	case NotConnected:
		return "state error: not connected"
	case AlreadyRunning:
		return "state error: already running"
	case Closed:
		return "state error: closed"
	case Missing:
		return fmt.Sprintf("state error: missing %s", e.MissingWhat)
	case InvalidTransition:
		return fmt.Sprintf("state error: invalid transition from %s to %s", e.FromState, e.ToState)
	default:
		return "state error"
	}
}
