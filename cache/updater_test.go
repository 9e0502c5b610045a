package cache

import (
	"testing"

	"github.com/nyxcord/nyxcord/gateway"
	json "github.com/nyxcord/nyxcord/internal/json"
	"github.com/nyxcord/nyxcord/types"
)

func TestUpdaterAppliesGuildCreate(t *testing.T) {
	s := NewStore(DefaultPolicy())
	u := NewUpdater(s, nil)

	u.apply(gateway.Dispatch{
		Known: true,
		Kind:  gateway.EventGuildCreate,
		Event: &gateway.GuildDispatch{ID: 1, OwnerID: 2, Name: "guild"},
	})

	g, ok := s.Guild(1)
	if !ok || g.Name != "guild" {
		t.Fatalf("expected guild 1 to be cached, got %+v ok=%v", g, ok)
	}
}

func TestUpdaterIgnoresUnknownDispatch(t *testing.T) {
	s := NewStore(DefaultPolicy())
	u := NewUpdater(s, nil)

	u.apply(gateway.Dispatch{Known: false, Kind: gateway.EventGuildCreate})

	if _, ok := s.Guild(1); ok {
		t.Fatalf("unknown dispatches must not reach the store")
	}
}

func TestUpdaterGuildDeleteClearsGuild(t *testing.T) {
	s := NewStore(DefaultPolicy())
	u := NewUpdater(s, nil)
	s.UpsertGuild(&Guild{ID: 1})

	u.apply(gateway.Dispatch{
		Known: true,
		Kind:  gateway.EventGuildDelete,
		Event: &gateway.GuildDeleteDispatch{ID: 1},
	})

	if _, ok := s.Guild(1); ok {
		t.Fatalf("expected guild to be removed")
	}
}

func TestUpdaterRoleCreateAndDelete(t *testing.T) {
	s := NewStore(DefaultPolicy())
	u := NewUpdater(s, nil)

	roleDispatch := &gateway.RoleDispatch{GuildID: 1}
	roleDispatch.Role.ID = 10
	roleDispatch.Role.Permissions = types.PermViewChannel
	roleDispatch.Role.Position = 3

	u.apply(gateway.Dispatch{Known: true, Kind: gateway.EventGuildRoleCreate, Event: roleDispatch})

	role, ok := s.Role(1, 10)
	if !ok || role.Permissions != types.PermViewChannel || role.Position != 3 {
		t.Fatalf("got role %+v ok=%v", role, ok)
	}

	u.apply(gateway.Dispatch{
		Known: true,
		Kind:  gateway.EventGuildRoleDelete,
		Event: &gateway.GuildRoleDeleteDispatch{GuildID: 1, RoleID: 10},
	})

	if _, ok := s.Role(1, 10); ok {
		t.Fatalf("expected role to be removed")
	}
}

// TestUpdaterMemberUpdateRetainsRolesWhenOmitted covers the add/update rule:
// an update that omits roles must not clear previously cached roles.
func TestUpdaterMemberUpdateRetainsRolesWhenOmitted(t *testing.T) {
	s := NewStore(DefaultPolicy())
	u := NewUpdater(s, nil)

	u.apply(gateway.Dispatch{
		Known: true,
		Kind:  gateway.EventGuildMemberAdd,
		Event: &gateway.MemberDispatch{
			GuildID:  1,
			User:     &types.PartialUser{ID: 7},
			Roles:    []types.Snowflake{100, 200},
			RolesSet: true,
		},
	})

	u.apply(gateway.Dispatch{
		Known: true,
		Kind:  gateway.EventGuildMemberUpdate,
		Event: &gateway.MemberDispatch{
			GuildID:  1,
			User:     &types.PartialUser{ID: 7},
			RolesSet: false,
		},
	})

	m, ok := s.Member(1, 7)
	if !ok {
		t.Fatalf("expected member to be cached")
	}
	if len(m.RoleIDs) != 2 || m.RoleIDs[0] != 100 || m.RoleIDs[1] != 200 {
		t.Fatalf("got roles %v, expected roles to be retained", m.RoleIDs)
	}
}

func TestUpdaterMemberUpdateClearsRolesWhenExplicitlyEmpty(t *testing.T) {
	s := NewStore(DefaultPolicy())
	u := NewUpdater(s, nil)

	u.apply(gateway.Dispatch{
		Known: true,
		Kind:  gateway.EventGuildMemberAdd,
		Event: &gateway.MemberDispatch{
			GuildID:  1,
			User:     &types.PartialUser{ID: 7},
			Roles:    []types.Snowflake{100},
			RolesSet: true,
		},
	})

	u.apply(gateway.Dispatch{
		Known: true,
		Kind:  gateway.EventGuildMemberUpdate,
		Event: &gateway.MemberDispatch{
			GuildID:  1,
			User:     &types.PartialUser{ID: 7},
			Roles:    nil,
			RolesSet: true,
		},
	})

	m, ok := s.Member(1, 7)
	if !ok {
		t.Fatalf("expected member to be cached")
	}
	if len(m.RoleIDs) != 0 {
		t.Fatalf("got roles %v, expected explicit empty list to clear roles", m.RoleIDs)
	}
}

func TestUpdaterMemberRemove(t *testing.T) {
	s := NewStore(DefaultPolicy())
	u := NewUpdater(s, nil)
	s.UpsertMember(&Member{GuildID: 1, UserID: 7})

	u.apply(gateway.Dispatch{
		Known: true,
		Kind:  gateway.EventGuildMemberRemove,
		Event: &gateway.GuildMemberRemoveDispatch{GuildID: 1, User: types.PartialUser{ID: 7}},
	})

	if _, ok := s.Member(1, 7); ok {
		t.Fatalf("expected member to be removed")
	}
}

func TestMemberUserIDFallsBackToExtraUser(t *testing.T) {
	m := &gateway.MemberDispatch{
		Extra: map[string]json.RawMessage{
			"user": json.RawMessage(`{"id":"42"}`),
		},
	}
	id, ok := memberUserID(m)
	if !ok || id != 42 {
		t.Fatalf("got id=%v ok=%v want 42,true", id, ok)
	}
}

func TestMemberUserIDFallsBackToExtraUserID(t *testing.T) {
	m := &gateway.MemberDispatch{
		Extra: map[string]json.RawMessage{
			"user_id": json.RawMessage(`"99"`),
		},
	}
	id, ok := memberUserID(m)
	if !ok || id != 99 {
		t.Fatalf("got id=%v ok=%v want 99,true", id, ok)
	}
}

func TestMemberUserIDMissingEverywhere(t *testing.T) {
	m := &gateway.MemberDispatch{}
	if _, ok := memberUserID(m); ok {
		t.Fatalf("expected no resolvable user id")
	}
}

func TestUpdaterChannelCreateExtractsGuildOverwrites(t *testing.T) {
	s := NewStore(DefaultPolicy())
	u := NewUpdater(s, nil)

	raw := json.RawMessage(`{"type":0,"id":"5","guild_id":"1","permission_overwrites":[{"id":"1","type":0,"allow":"0","deny":"0"}]}`)
	var c types.Channel
	if err := c.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal channel: %v", err)
	}

	u.apply(gateway.Dispatch{Known: true, Kind: gateway.EventChannelCreate, Event: &c})

	ch, ok := s.Channel(5)
	if !ok {
		t.Fatalf("expected channel to be cached")
	}
	if ch.GuildID == nil || *ch.GuildID != 1 {
		t.Fatalf("got guild id %v want 1", ch.GuildID)
	}
	if len(ch.Overwrites) != 1 {
		t.Fatalf("got %d overwrites want 1", len(ch.Overwrites))
	}
}
