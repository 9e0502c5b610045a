package gateway

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync"
	"time"

	"nhooyr.io/websocket"

	json "github.com/nyxcord/nyxcord/internal/json"
	"github.com/nyxcord/nyxcord/internal/nyxerr"
)

// Logger is the minimal pluggable logging seam the gateway accepts.
type Logger interface {
	Debug(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(...interface{}) {}
func (noopLogger) Warn(...interface{})  {}
func (noopLogger) Error(...interface{}) {}

// State is the session's connection lifecycle state.
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateWaitingHello
	StateIdentifying
	StateResuming
	StateReady
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateWaitingHello:
		return "waiting_hello"
	case StateIdentifying:
		return "identifying"
	case StateResuming:
		return "resuming"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ResumeState is captured on READY, its Sequence advances with every later
// dispatch, and it is carried across reconnects until the server indicates
// resume is no longer possible.
type ResumeState struct {
	SessionID string
	Sequence  uint64
}

// Conn is the subset of *websocket.Conn the session depends on, so tests can
// substitute a fake transport.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens a gateway transport connection.
type Dialer interface {
	Dial(ctx context.Context, urlStr string) (Conn, error)
}

type defaultDialer struct{}

func (defaultDialer) Dial(ctx context.Context, urlStr string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, urlStr, nil)
	if err != nil {
		return nil, nyxerr.FromTransport(&nyxerr.TransportError{Kind: nyxerr.TransportIO, Message: "gateway dial", Cause: err})
	}
	c.SetReadLimit(-1)
	return c, nil
}

// Config configures a Session.
type Config struct {
	URL               string
	Token             string
	ProtocolVersion   int
	Compression       Mode
	CommandsPerMinute int
	ReservedSlots     int
	QueueSize         int
	ReconnectBase     time.Duration
	ReconnectMax      time.Duration
	Logger            Logger
	Dialer            Dialer
}

func (c *Config) setDefaults() {
	if c.ProtocolVersion == 0 {
		c.ProtocolVersion = 10
	}
	if c.CommandsPerMinute == 0 {
		c.CommandsPerMinute = 120
	}
	if c.ReservedSlots == 0 {
		c.ReservedSlots = 3
	}
	if c.QueueSize == 0 {
		c.QueueSize = 512
	}
	if c.ReconnectBase == 0 {
		c.ReconnectBase = time.Second
	}
	if c.ReconnectMax == 0 {
		c.ReconnectMax = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
	if c.Dialer == nil {
		c.Dialer = defaultDialer{}
	}
}

// Session is one persistent gateway connection: handshake, heartbeats,
// reconnection with backoff, and resume.
type Session struct {
	cfg     Config
	limiter *OutboundLimiter
	logger  Logger

	mu                sync.RWMutex
	state             State
	resume            *ResumeState
	reconnectAttempts int

	dispatches chan Dispatch
	shutdown   chan struct{}
	closeOnce  sync.Once
	done       chan struct{}
}

func NewSession(cfg Config) *Session {
	cfg.setDefaults()
	return &Session{
		cfg:        cfg,
		limiter:    NewOutboundLimiter(cfg.CommandsPerMinute, cfg.ReservedSlots),
		logger:     cfg.Logger,
		state:      StateUnconnected,
		dispatches: make(chan Dispatch, cfg.QueueSize),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Dispatches is the ingest side of the event pipeline: the gateway bridge
// producer, consumed by a single worker goroutine elsewhere.
func (s *Session) Dispatches() <-chan Dispatch {
	return s.dispatches
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Open spawns the runner goroutine. It is not safe to call twice.
func (s *Session) Open(ctx context.Context) {
	s.setState(StateConnecting)
	go s.run(ctx)
}

// Close signals shutdown and waits for the runner to exit or ctx to be done.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.shutdown) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) isShuttingDown() bool {
	select {
	case <-s.shutdown:
		return true
	default:
		return false
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.dispatches)

	for !s.isShuttingDown() {
		err := s.runOnce(ctx)
		s.setState(StateDisconnected)
		if s.isShuttingDown() {
			return
		}
		if err != nil {
			s.logger.Warn("gateway: connection ended:", err)
		}

		delay := s.backoff()
		if sleepErr := sleepUntil(ctx, time.Now().Add(delay)); sleepErr != nil {
			return
		}
	}
}

func (s *Session) backoff() time.Duration {
	s.mu.Lock()
	attempt := s.reconnectAttempts
	s.reconnectAttempts++
	s.mu.Unlock()

	exp := attempt
	if exp > 10 {
		exp = 10
	}
	d := time.Duration(float64(s.cfg.ReconnectBase) * math.Pow(2, float64(exp)))
	if d > s.cfg.ReconnectMax {
		return s.cfg.ReconnectMax
	}
	return d
}

func (s *Session) resetBackoff() {
	s.mu.Lock()
	s.reconnectAttempts = 0
	s.mu.Unlock()
}

// runOnce drives one connection attempt end to end: dial, handshake,
// heartbeat + read pump, until the connection ends or shutdown is signaled.
func (s *Session) runOnce(ctx context.Context) error {
	s.setState(StateConnecting)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	dialURL, err := s.buildURL()
	if err != nil {
		return err
	}

	conn, err := s.cfg.Dialer.Dial(connCtx, dialURL)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	s.limiter.mu.Lock()
	s.limiter.windowStart = time.Now()
	s.limiter.remaining = s.limiter.perMinute
	s.limiter.mu.Unlock()

	decomp := newDecompressor(s.cfg.Compression)

	s.setState(StateWaitingHello)
	p, err := s.readPayload(connCtx, conn, decomp)
	if err != nil {
		return err
	}
	if p.Op != OpHello {
		return nyxerr.FromProtocol(nyxerr.NewUnexpectedOpcode(int(OpHello), int(p.Op)))
	}
	var hello helloData
	if err := json.Unmarshal(p.Data, &hello); err != nil || hello.HeartbeatInterval <= 0 {
		return nyxerr.FromProtocol(nyxerr.NewInvalidPayload("hello: missing heartbeat_interval"))
	}
	interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond

	s.mu.RLock()
	resumeState := s.resume
	s.mu.RUnlock()

	if resumeState != nil {
		s.setState(StateResuming)
		if err := s.sendResume(connCtx, conn, *resumeState); err != nil {
			return err
		}
	} else {
		s.setState(StateIdentifying)
		if err := s.sendIdentify(connCtx, conn); err != nil {
			return err
		}
	}

	var (
		seqMu        sync.Mutex
		lastSeq      uint64
		awaitingAck  bool
		ackMu        sync.Mutex
	)

	heartbeatDone := make(chan error, 1)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ackMu.Lock()
				wasAwaiting := awaitingAck
				awaitingAck = true
				ackMu.Unlock()
				if wasAwaiting {
					heartbeatDone <- nyxerr.FromState(nyxerr.NewInvalidTransition("ready", "disconnected"))
					return
				}
				if err := s.sendHeartbeat(connCtx, conn, &seqMu, &lastSeq); err != nil {
					heartbeatDone <- err
					return
				}
			case <-connCtx.Done():
				heartbeatDone <- nil
				return
			}
		}
	}()

	type readResult struct {
		p   Payload
		err error
	}
	reads := make(chan readResult, 1)
	go func() {
		for {
			p, err := s.readPayload(connCtx, conn, decomp)
			select {
			case reads <- readResult{p: p, err: err}:
			case <-connCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		var p Payload
		select {
		case err := <-heartbeatDone:
			return err
		case <-s.shutdown:
			return nil
		case r := <-reads:
			if r.err != nil {
				return r.err
			}
			p = r.p
		}

		switch p.Op {
		case OpDispatch:
			if p.Sequence != nil {
				seqMu.Lock()
				lastSeq = *p.Sequence
				seqMu.Unlock()
				s.mu.Lock()
				if s.resume != nil {
					s.resume.Sequence = *p.Sequence
				}
				s.mu.Unlock()
			}
			d, err := decodeDispatch(p)
			if err != nil {
				return err
			}
			if d.Kind == EventReady {
				if ready, ok := d.Event.(*ReadyDispatch); ok {
					s.mu.Lock()
					s.resume = &ResumeState{SessionID: ready.SessionID, Sequence: d.Sequence}
					s.mu.Unlock()
					s.resetBackoff()
				}
				s.setState(StateReady)
			}
			if d.Kind == EventResumed {
				s.setState(StateReady)
				s.resetBackoff()
			}
			select {
			case s.dispatches <- d:
			case <-connCtx.Done():
				return nil
			}

		case OpHeartbeat:
			if err := s.sendHeartbeat(connCtx, conn, &seqMu, &lastSeq); err != nil {
				return err
			}

		case OpHeartbeatAck:
			ackMu.Lock()
			awaitingAck = false
			ackMu.Unlock()

		case OpReconnect:
			return nil

		case OpInvalidSession:
			var canResume invalidSessionData
			_ = json.Unmarshal(p.Data, &canResume)
			if !bool(canResume) {
				s.mu.Lock()
				s.resume = nil
				s.mu.Unlock()
			}
			return nil

		default:
			s.logger.Debug("gateway: unhandled opcode", p.Op)
		}
	}
}

func (s *Session) buildURL() (string, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", nyxerr.FromProtocol(nyxerr.NewInvalidPayload("gateway url: " + err.Error()))
	}
	q := u.Query()
	q.Set("v", strconv.Itoa(s.cfg.ProtocolVersion))
	q.Set("encoding", "json")
	if v, ok := s.cfg.Compression.QueryValue(); ok {
		q.Set("compress", v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Session) readPayload(ctx context.Context, conn Conn, decomp decompressor) (Payload, error) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return Payload{}, nyxerr.FromTransport(&nyxerr.TransportError{Kind: nyxerr.TransportIO, Message: "gateway read", Cause: err})
		}
		doc, ok, err := decomp.decode(typ == websocket.MessageText, data)
		if err != nil {
			return Payload{}, err
		}
		if !ok {
			continue
		}
		var p Payload
		if err := json.Unmarshal(doc, &p); err != nil {
			return Payload{}, nyxerr.FromProtocol(nyxerr.NewJsonError(err))
		}
		return p, nil
	}
}

func (s *Session) writeJSON(ctx context.Context, conn Conn, kind CommandKind, v interface{}) error {
	if err := s.limiter.Acquire(ctx, kind); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nyxerr.FromProtocol(nyxerr.NewJsonError(err))
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		return nyxerr.FromTransport(&nyxerr.TransportError{Kind: nyxerr.TransportIO, Message: "gateway write", Cause: err})
	}
	return nil
}

func (s *Session) sendIdentify(ctx context.Context, conn Conn) error {
	perPayload := s.cfg.Compression == ModeZlibPayload
	payload := newIdentifyPayload(s.cfg.Token, perPayload)
	return s.writeJSON(ctx, conn, CommandInternal, Payload{
		Op:   OpIdentify,
		Data: mustMarshal(payload),
	})
}

func (s *Session) sendResume(ctx context.Context, conn Conn, r ResumeState) error {
	payload := resumePayload{Token: s.cfg.Token, SessionID: r.SessionID, Sequence: r.Sequence}
	return s.writeJSON(ctx, conn, CommandInternal, Payload{
		Op:   OpResume,
		Data: mustMarshal(payload),
	})
}

func (s *Session) sendHeartbeat(ctx context.Context, conn Conn, seqMu *sync.Mutex, lastSeq *uint64) error {
	seqMu.Lock()
	seq := *lastSeq
	seqMu.Unlock()
	return s.writeJSON(ctx, conn, CommandInternal, Payload{Op: OpHeartbeat, Data: mustMarshal(seq)})
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("gateway: marshal invariant violated: %v", err))
	}
	return b
}
