package types

import "testing"

func TestChannelDispatchKnown(t *testing.T) {
	raw := []byte(`{"type":0,"id":"1","guild_id":"2","name":"general","nsfw":false,"permission_overwrites":[]}`)
	var c Channel
	if err := c.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !c.Known || c.Kind != ChannelTypeGuildText {
		t.Fatalf("expected known guild text channel, got %+v", c)
	}
	if c.GuildText == nil || c.GuildText.Name != "general" {
		t.Fatalf("unexpected payload: %+v", c.GuildText)
	}
}

func TestChannelDispatchAnnouncementKnown(t *testing.T) {
	raw := []byte(`{"type":5,"id":"1","guild_id":"2","name":"news","nsfw":false,"permission_overwrites":[]}`)
	var c Channel
	if err := c.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !c.Known || c.Kind != ChannelTypeGuildAnnouncement {
		t.Fatalf("expected known guild announcement channel, got %+v", c)
	}
	if c.GuildAnnouncement == nil || c.GuildAnnouncement.Name != "news" {
		t.Fatalf("unexpected payload: %+v", c.GuildAnnouncement)
	}
}

func TestChannelDispatchUnknownPreservesRaw(t *testing.T) {
	raw := []byte(`{"type":777,"id":"1","foo":"bar"}`)
	var c Channel
	if err := c.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Known {
		t.Fatal("expected unknown channel kind")
	}
	if c.RawKind != 777 {
		t.Fatalf("got raw kind %d want 777", c.RawKind)
	}
	out, err := c.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != string(raw) {
		t.Fatalf("expected lossless round trip, got %s want %s", out, raw)
	}
}

func TestPermissionOverwriteDispatchKnown(t *testing.T) {
	raw := []byte(`{"id":"5","type":0,"allow":"1024","deny":"0"}`)
	var o PermissionOverwrite
	if err := o.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !o.Known || o.Kind != PermissionOverwriteTypeRole {
		t.Fatalf("expected known role overwrite, got %+v", o)
	}
	if o.Role.Allow != 1024 {
		t.Fatalf("got allow %d want 1024", o.Role.Allow)
	}
}
