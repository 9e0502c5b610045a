package nyxcord

import (
	"testing"

	"github.com/nyxcord/nyxcord/gateway"
	"github.com/nyxcord/nyxcord/internal/httd"
)

func TestBuilderMissingTokenErrors(t *testing.T) {
	_, err := NewClientBuilder().Build()
	if err == nil {
		t.Fatalf("expected a missing-token error")
	}
}

func TestBuilderResolvesExplicitToken(t *testing.T) {
	c, err := NewClientBuilder().Token("abc").Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if c.State() != Idle {
		t.Fatalf("got state %v want Idle", c.State())
	}
}

func TestBuilderResolvesTokenFromHTTPConfig(t *testing.T) {
	_, err := NewClientBuilder().HTTPConfig(httd.Config{BotToken: "from-http"}).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
}

func TestBuilderResolvesTokenFromGatewayConfig(t *testing.T) {
	_, err := NewClientBuilder().GatewayConfig(gateway.Config{Token: "from-gateway"}).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
}

func TestBuilderExplicitTokenTakesPriority(t *testing.T) {
	b := NewClientBuilder().Token("explicit").HTTPConfig(httd.Config{BotToken: "from-http"})
	token, err := b.resolveToken()
	if err != nil {
		t.Fatalf("resolveToken: %v", err)
	}
	if token != "explicit" {
		t.Fatalf("got %q want explicit", token)
	}
}
