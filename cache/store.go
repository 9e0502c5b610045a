package cache

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/nyxcord/nyxcord/types"
)

// grouped maps a group key (e.g. a guild id) to a secondary mapping from
// entity key to entity, matching the data model's grouped-cache shape.
// Clearing a group (e.g. on GUILD_DELETE) is a single top-level delete.
type grouped[K comparable, V any] struct {
	groups *xsync.MapOf[types.Snowflake, *xsync.MapOf[K, V]]
}

func newGrouped[K comparable, V any]() *grouped[K, V] {
	return &grouped[K, V]{groups: xsync.NewMapOf[types.Snowflake, *xsync.MapOf[K, V]]()}
}

func (g *grouped[K, V]) set(group types.Snowflake, key K, value V) {
	m, _ := g.groups.LoadOrCompute(group, func() *xsync.MapOf[K, V] {
		return xsync.NewMapOf[K, V]()
	})
	m.Store(key, value)
}

func (g *grouped[K, V]) get(group types.Snowflake, key K) (V, bool) {
	var zero V
	m, ok := g.groups.Load(group)
	if !ok {
		return zero, false
	}
	return m.Load(key)
}

func (g *grouped[K, V]) delete(group types.Snowflake, key K) {
	if m, ok := g.groups.Load(group); ok {
		m.Delete(key)
	}
}

func (g *grouped[K, V]) clearGroup(group types.Snowflake) {
	g.groups.Delete(group)
}

func (g *grouped[K, V]) group(group types.Snowflake) (*xsync.MapOf[K, V], bool) {
	return g.groups.Load(group)
}

// Store is the full cache: five entity tables gated by Policy.
type Store struct {
	policy Policy

	guilds   *xsync.MapOf[types.Snowflake, *Guild]
	channels *xsync.MapOf[types.Snowflake, *Channel]
	users    *xsync.MapOf[types.Snowflake, *User]
	roles    *grouped[types.Snowflake, *Role]
	members  *grouped[types.Snowflake, *Member]
}

func NewStore(policy Policy) *Store {
	return &Store{
		policy:   policy,
		guilds:   xsync.NewMapOf[types.Snowflake, *Guild](),
		channels: xsync.NewMapOf[types.Snowflake, *Channel](),
		users:    xsync.NewMapOf[types.Snowflake, *User](),
		roles:    newGrouped[types.Snowflake, *Role](),
		members:  newGrouped[types.Snowflake, *Member](),
	}
}

func (s *Store) UpsertGuild(g *Guild) {
	if !s.policy.Guilds {
		return
	}
	s.guilds.Store(g.ID, g)
}

func (s *Store) RemoveGuild(id types.Snowflake) {
	s.guilds.Delete(id)
	s.roles.clearGroup(id)
	s.members.clearGroup(id)
}

func (s *Store) Guild(id types.Snowflake) (*Guild, bool) {
	if !s.policy.Guilds {
		return nil, false
	}
	return s.guilds.Load(id)
}

func (s *Store) UpsertChannel(c *Channel) {
	if !s.policy.Channels {
		return
	}
	s.channels.Store(c.ID, c)
}

func (s *Store) RemoveChannel(id types.Snowflake) {
	s.channels.Delete(id)
}

func (s *Store) Channel(id types.Snowflake) (*Channel, bool) {
	if !s.policy.Channels {
		return nil, false
	}
	return s.channels.Load(id)
}

func (s *Store) UpsertUser(u *User) {
	if !s.policy.Users {
		return
	}
	s.users.Store(u.ID, u)
}

func (s *Store) User(id types.Snowflake) (*User, bool) {
	if !s.policy.Users {
		return nil, false
	}
	return s.users.Load(id)
}

func (s *Store) UpsertRole(r *Role) {
	if !s.policy.Roles {
		return
	}
	s.roles.set(r.GuildID, r.ID, r)
}

func (s *Store) RemoveRole(guildID, roleID types.Snowflake) {
	s.roles.delete(guildID, roleID)
}

func (s *Store) Role(guildID, roleID types.Snowflake) (*Role, bool) {
	if !s.policy.Roles {
		return nil, false
	}
	return s.roles.get(guildID, roleID)
}

// Roles returns every cached role of a guild, unordered.
func (s *Store) Roles(guildID types.Snowflake) []*Role {
	if !s.policy.Roles {
		return nil
	}
	m, ok := s.roles.group(guildID)
	if !ok {
		return nil
	}
	var out []*Role
	m.Range(func(_ types.Snowflake, v *Role) bool {
		out = append(out, v)
		return true
	})
	return out
}

func (s *Store) UpsertMember(m *Member) {
	if !s.policy.Members {
		return
	}
	s.members.set(m.GuildID, m.UserID, m)
}

func (s *Store) RemoveMember(guildID, userID types.Snowflake) {
	s.members.delete(guildID, userID)
}

func (s *Store) Member(guildID, userID types.Snowflake) (*Member, bool) {
	if !s.policy.Members {
		return nil, false
	}
	return s.members.get(guildID, userID)
}
