package nyxcord

import (
	"github.com/sirupsen/logrus"

	"github.com/nyxcord/nyxcord/events"
	"github.com/nyxcord/nyxcord/gateway"
	"github.com/nyxcord/nyxcord/internal/httd"
)

// LogrusLogger adapts *logrus.Logger to the Debug/Warn/Error shape every
// subsystem's Logger interface expects, so one logger can be handed to the
// REST client, the gateway session, and the event pipeline alike.
type LogrusLogger struct {
	*logrus.Logger
}

// NewLogrusLogger wraps an existing *logrus.Logger, or logrus's
// package-level standard logger if nil, for use as the shared Logger across the
// HTTP client, gateway session, and event pipeline.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogrusLogger{Logger: l}
}

var (
	_ httd.Logger    = (*LogrusLogger)(nil)
	_ gateway.Logger = (*LogrusLogger)(nil)
	_ events.Logger  = (*LogrusLogger)(nil)
)

// Logger installs a shared logrus-backed logger across the builder's HTTP,
// gateway, and event-pipeline sub-configs.
func (b *ClientBuilder) Logger(l *logrus.Logger) *ClientBuilder {
	adapter := NewLogrusLogger(l)
	b.httpCfg.Logger = adapter
	b.httpCfgSet = true
	b.gatewayCfg.Logger = adapter
	b.gatewayCfgSet = true
	b.eventsCfg.Logger = adapter
	return b
}
