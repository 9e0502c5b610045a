// Package gateway implements the persistent WebSocket session: opcode
// framing, compression, heartbeating, session resumption, reconnect
// backoff, and the outbound command limiter.
package gateway

import (
	json "github.com/nyxcord/nyxcord/internal/json"
)

// Opcode is the small closed set of gateway frame opcodes.
type Opcode int

const (
	OpDispatch       Opcode = 0
	OpHeartbeat      Opcode = 1
	OpIdentify       Opcode = 2
	OpResume         Opcode = 6
	OpReconnect      Opcode = 7
	OpInvalidSession Opcode = 9
	OpHello          Opcode = 10
	OpHeartbeatAck   Opcode = 11
)

// Payload is the wire envelope every gateway frame decodes to:
// { op, s?, t?, d? }.
type Payload struct {
	Op        Opcode          `json:"op"`
	Sequence  *uint64         `json:"s,omitempty"`
	EventType *string         `json:"t,omitempty"`
	Data      json.RawMessage `json:"d,omitempty"`
}

// helloData is the decoded payload of an Op 10 frame.
type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// invalidSessionData is the decoded payload of an Op 9 frame.
type invalidSessionData bool

// identifyProperties describes the client environment sent with Identify.
type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// identifyPayload is the Op 2 outbound frame body.
type identifyPayload struct {
	Token      string             `json:"token"`
	Properties identifyProperties `json:"properties"`
	Compress   bool               `json:"compress"`
}

// resumePayload is the Op 6 outbound frame body.
type resumePayload struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  uint64 `json:"seq"`
}

func newIdentifyPayload(token string, perPayloadCompress bool) identifyPayload {
	return identifyPayload{
		Token: token,
		Properties: identifyProperties{
			OS:      "linux",
			Browser: "nyxcord",
			Device:  "nyxcord",
		},
		Compress: perPayloadCompress,
	}
}
