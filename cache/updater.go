package cache

import (
	"context"

	"github.com/nyxcord/nyxcord/events"
	"github.com/nyxcord/nyxcord/gateway"
	json "github.com/nyxcord/nyxcord/internal/json"
	"github.com/nyxcord/nyxcord/types"
)

// Updater subscribes to the event pipeline's listener bus and keeps a Store
// current. It tolerates lag silently (the collector resumes with the next
// available dispatch) and never surfaces malformed payloads to the caller.
type Updater struct {
	store     *Store
	collector *events.Collector
}

func NewUpdater(store *Store, collector *events.Collector) *Updater {
	return &Updater{store: store, collector: collector}
}

// Run drains the collector until ctx is done or the collector's source
// closes.
func (u *Updater) Run(ctx context.Context) {
	for {
		d, err := u.collector.Next(ctx)
		if err != nil {
			return
		}
		u.apply(d)
	}
}

func (u *Updater) apply(d gateway.Dispatch) {
	if !d.Known {
		return
	}

	switch d.Kind {
	case gateway.EventGuildCreate, gateway.EventGuildUpdate:
		if g, ok := d.Event.(*gateway.GuildDispatch); ok {
			u.store.UpsertGuild(&Guild{ID: g.ID, OwnerID: g.OwnerID, Name: g.Name})
		}

	case gateway.EventGuildDelete:
		if g, ok := d.Event.(*gateway.GuildDeleteDispatch); ok {
			u.store.RemoveGuild(g.ID)
		}

	case gateway.EventChannelCreate, gateway.EventChannelUpdate:
		if c, ok := d.Event.(*types.Channel); ok {
			u.upsertChannel(c)
		}

	case gateway.EventChannelDelete:
		if c, ok := d.Event.(*types.Channel); ok {
			if id, ok := channelID(c); ok {
				u.store.RemoveChannel(id)
			}
		}

	case gateway.EventGuildMemberAdd, gateway.EventGuildMemberUpdate:
		if m, ok := d.Event.(*gateway.MemberDispatch); ok {
			u.upsertMember(m)
		}

	case gateway.EventGuildMemberRemove:
		if m, ok := d.Event.(*gateway.GuildMemberRemoveDispatch); ok {
			u.store.RemoveMember(m.GuildID, m.User.ID)
		}

	case gateway.EventGuildRoleCreate, gateway.EventGuildRoleUpdate:
		if r, ok := d.Event.(*gateway.RoleDispatch); ok {
			u.store.UpsertRole(&Role{
				GuildID:     r.GuildID,
				ID:          r.Role.ID,
				Permissions: r.Role.Permissions,
				Position:    r.Role.Position,
			})
		}

	case gateway.EventGuildRoleDelete:
		if r, ok := d.Event.(*gateway.GuildRoleDeleteDispatch); ok {
			u.store.RemoveRole(r.GuildID, r.RoleID)
		}
	}
}

func (u *Updater) upsertChannel(c *types.Channel) {
	id, ok := channelID(c)
	if !ok {
		return
	}
	var guildID *types.Snowflake
	var overwrites []types.PermissionOverwrite
	if c.GuildText != nil {
		guildID = &c.GuildText.GuildID
		overwrites = c.GuildText.Overwrites
	} else if c.GuildVoice != nil {
		guildID = &c.GuildVoice.GuildID
		overwrites = c.GuildVoice.Overwrites
	} else if c.GuildCategory != nil {
		guildID = &c.GuildCategory.GuildID
		overwrites = c.GuildCategory.Overwrites
	} else if c.GuildAnnouncement != nil {
		guildID = &c.GuildAnnouncement.GuildID
		overwrites = c.GuildAnnouncement.Overwrites
	} else if c.GuildLinkExtended != nil {
		guildID = &c.GuildLinkExtended.GuildID
	}
	u.store.UpsertChannel(&Channel{ID: id, GuildID: guildID, Overwrites: overwrites})
}

func channelID(c *types.Channel) (types.Snowflake, bool) {
	switch {
	case c.GuildText != nil:
		return c.GuildText.ID, true
	case c.DM != nil:
		return c.DM.ID, true
	case c.GroupDM != nil:
		return c.GroupDM.ID, true
	case c.GuildVoice != nil:
		return c.GuildVoice.ID, true
	case c.GuildCategory != nil:
		return c.GuildCategory.ID, true
	case c.GuildAnnouncement != nil:
		return c.GuildAnnouncement.ID, true
	case c.GuildLinkExtended != nil:
		return c.GuildLinkExtended.ID, true
	default:
		return 0, false
	}
}

// upsertMember applies the add/update rule: if the payload omits roles,
// retain previously cached roles rather than clearing them.
func (u *Updater) upsertMember(m *gateway.MemberDispatch) {
	userID, ok := memberUserID(m)
	if !ok {
		return
	}

	roles := m.Roles
	if !m.RolesSet {
		if existing, ok := u.store.Member(m.GuildID, userID); ok {
			roles = existing.RoleIDs
		}
	}

	u.store.UpsertMember(&Member{GuildID: m.GuildID, UserID: userID, RoleIDs: roles})
}

// memberUserID resolves the acting user's id with the reference
// implementation's fallback chain: the typed user.id field, then
// extra["user"]["id"], then extra["user_id"].
func memberUserID(m *gateway.MemberDispatch) (types.Snowflake, bool) {
	if m.User != nil {
		return m.User.ID, true
	}

	if raw, ok := m.Extra["user"]; ok {
		var u struct {
			ID types.Snowflake `json:"id"`
		}
		if err := json.Unmarshal(raw, &u); err == nil && u.ID != 0 {
			return u.ID, true
		}
	}

	if raw, ok := m.Extra["user_id"]; ok {
		var id types.Snowflake
		if err := json.Unmarshal(raw, &id); err == nil && id != 0 {
			return id, true
		}
	}

	return 0, false
}
