package nyxcord

import (
	"github.com/nyxcord/nyxcord/cache"
	"github.com/nyxcord/nyxcord/events"
	"github.com/nyxcord/nyxcord/gateway"
	"github.com/nyxcord/nyxcord/internal/httd"
	"github.com/nyxcord/nyxcord/internal/nyxerr"
)

// DefaultGatewayURL is used when ClientBuilder.GatewayURL is left unset.
const DefaultGatewayURL = "wss://gateway.discord.gg"

// ClientBuilder assembles a Client from fluent configuration. Build takes
// the bot token from the first of Token, the HTTP sub-config, or the
// gateway sub-config that is set, and errors if none is.
type ClientBuilder struct {
	token       string
	gatewayURL  string
	compression gateway.Mode
	httpBaseURL string
	cachePolicy cache.Policy
	httpCfg     httd.Config
	gatewayCfg  gateway.Config
	eventsCfg   events.Config

	httpCfgSet    bool
	gatewayCfgSet bool
}

// NewClientBuilder returns a builder with the default cache policy (every
// kind enabled, auto-update on).
func NewClientBuilder() *ClientBuilder {
	return &ClientBuilder{cachePolicy: cache.DefaultPolicy()}
}

func (b *ClientBuilder) Token(token string) *ClientBuilder {
	b.token = token
	return b
}

func (b *ClientBuilder) GatewayURL(url string) *ClientBuilder {
	b.gatewayURL = url
	return b
}

func (b *ClientBuilder) Compression(mode gateway.Mode) *ClientBuilder {
	b.compression = mode
	return b
}

func (b *ClientBuilder) HTTPBaseURL(url string) *ClientBuilder {
	b.httpBaseURL = url
	return b
}

func (b *ClientBuilder) CachePolicy(policy cache.Policy) *ClientBuilder {
	b.cachePolicy = policy
	return b
}

// HTTPConfig lets a caller supply a fully assembled httd.Config (e.g. a
// custom *http.Client, retry policy, or logger); its BotToken may serve as
// the resolved token if Token was never called.
func (b *ClientBuilder) HTTPConfig(cfg httd.Config) *ClientBuilder {
	b.httpCfg = cfg
	b.httpCfgSet = true
	return b
}

// GatewayConfig lets a caller supply a fully assembled gateway.Config; its
// Token may serve as the resolved token if Token was never called.
func (b *ClientBuilder) GatewayConfig(cfg gateway.Config) *ClientBuilder {
	b.gatewayCfg = cfg
	b.gatewayCfgSet = true
	return b
}

func (b *ClientBuilder) EventPipelineConfig(cfg events.Config) *ClientBuilder {
	b.eventsCfg = cfg
	return b
}

// resolveToken picks exactly one of the three admissible sources, in the
// order: explicit builder token, HTTP sub-config, gateway sub-config.
func (b *ClientBuilder) resolveToken() (string, error) {
	if b.token != "" {
		return b.token, nil
	}
	if b.httpCfgSet && b.httpCfg.BotToken != "" {
		return b.httpCfg.BotToken, nil
	}
	if b.gatewayCfgSet && b.gatewayCfg.Token != "" {
		return b.gatewayCfg.Token, nil
	}
	return "", nyxerr.FromState(nyxerr.NewMissing("token"))
}

// Build validates configuration and constructs a Client in the Idle state;
// callers must still call Open to start the gateway and cache updater.
func (b *ClientBuilder) Build() (*Client, error) {
	token, err := b.resolveToken()
	if err != nil {
		return nil, err
	}

	httpCfg := b.httpCfg
	httpCfg.BotToken = token
	if b.httpBaseURL != "" {
		httpCfg.BaseURL = b.httpBaseURL
	}
	httpClient, err := httd.NewClient(httpCfg)
	if err != nil {
		return nil, err
	}

	gatewayCfg := b.gatewayCfg
	gatewayCfg.Token = token
	if b.gatewayURL != "" {
		gatewayCfg.URL = b.gatewayURL
	} else if gatewayCfg.URL == "" {
		gatewayCfg.URL = DefaultGatewayURL
	}
	if b.compression != gateway.ModeNone {
		gatewayCfg.Compression = b.compression
	}
	session := gateway.NewSession(gatewayCfg)

	eventsCfg := b.eventsCfg
	pipeline := events.NewPipeline(eventsCfg)

	store := cache.NewStore(b.cachePolicy)

	return &Client{
		http:        httpClient,
		gateway:     session,
		store:       store,
		pipeline:    pipeline,
		cachePolicy: b.cachePolicy,
	}, nil
}
