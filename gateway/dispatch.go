package gateway

import (
	json "github.com/nyxcord/nyxcord/internal/json"
	"github.com/nyxcord/nyxcord/internal/nyxerr"
	"github.com/nyxcord/nyxcord/types"
)

// EventKind is the closed set of known dispatch event names. Any event_type
// not in this set decodes to Unknown rather than failing.
type EventKind string

const (
	EventReady                      EventKind = "READY"
	EventResumed                    EventKind = "RESUMED"
	EventChannelCreate              EventKind = "CHANNEL_CREATE"
	EventChannelUpdate              EventKind = "CHANNEL_UPDATE"
	EventChannelDelete              EventKind = "CHANNEL_DELETE"
	EventChannelPinsUpdate          EventKind = "CHANNEL_PINS_UPDATE"
	EventGuildCreate                EventKind = "GUILD_CREATE"
	EventGuildUpdate                EventKind = "GUILD_UPDATE"
	EventGuildDelete                EventKind = "GUILD_DELETE"
	EventGuildBanAdd                EventKind = "GUILD_BAN_ADD"
	EventGuildBanRemove             EventKind = "GUILD_BAN_REMOVE"
	EventGuildEmojisUpdate          EventKind = "GUILD_EMOJIS_UPDATE"
	EventGuildStickersUpdate        EventKind = "GUILD_STICKERS_UPDATE"
	EventGuildIntegrationsUpdate    EventKind = "GUILD_INTEGRATIONS_UPDATE"
	EventGuildMemberAdd             EventKind = "GUILD_MEMBER_ADD"
	EventGuildMemberRemove          EventKind = "GUILD_MEMBER_REMOVE"
	EventGuildMemberUpdate          EventKind = "GUILD_MEMBER_UPDATE"
	EventGuildRoleCreate            EventKind = "GUILD_ROLE_CREATE"
	EventGuildRoleUpdate            EventKind = "GUILD_ROLE_UPDATE"
	EventGuildRoleDelete            EventKind = "GUILD_ROLE_DELETE"
	EventGuildScheduledEventCreate  EventKind = "GUILD_SCHEDULED_EVENT_CREATE"
	EventGuildScheduledEventUpdate  EventKind = "GUILD_SCHEDULED_EVENT_UPDATE"
	EventGuildScheduledEventDelete  EventKind = "GUILD_SCHEDULED_EVENT_DELETE"
	EventInviteCreate               EventKind = "INVITE_CREATE"
	EventInviteDelete               EventKind = "INVITE_DELETE"
	EventMessageCreate              EventKind = "MESSAGE_CREATE"
	EventMessageUpdate              EventKind = "MESSAGE_UPDATE"
	EventMessageDelete              EventKind = "MESSAGE_DELETE"
	EventMessageDeleteBulk          EventKind = "MESSAGE_DELETE_BULK"
	EventMessageReactionAdd         EventKind = "MESSAGE_REACTION_ADD"
	EventMessageReactionRemove      EventKind = "MESSAGE_REACTION_REMOVE"
	EventMessageReactionRemoveAll   EventKind = "MESSAGE_REACTION_REMOVE_ALL"
	EventMessageReactionRemoveEmoji EventKind = "MESSAGE_REACTION_REMOVE_EMOJI"
	EventPresenceUpdate             EventKind = "PRESENCE_UPDATE"
	EventTypingStart                EventKind = "TYPING_START"
	EventUserUpdate                 EventKind = "USER_UPDATE"
	EventVoiceStateUpdate           EventKind = "VOICE_STATE_UPDATE"
	EventVoiceServerUpdate          EventKind = "VOICE_SERVER_UPDATE"
	EventWebhooksUpdate             EventKind = "WEBHOOKS_UPDATE"
	EventInteractionCreate          EventKind = "INTERACTION_CREATE"
)

// Dispatch is a decoded Op-0 frame: the sequence number attached by the
// server, the event kind, and the typed (or Unknown) payload.
type Dispatch struct {
	Sequence uint64
	Kind     EventKind
	Known    bool
	Event    interface{}
}

// UnknownDispatch preserves event_type and the raw payload for any event
// outside the closed set, so the pipeline survives server-side additions.
type UnknownDispatch struct {
	EventType string
	Raw       json.RawMessage
}

// --- typed payloads ------------------------------------------------------
//
// Every known payload struct decodes its strongly-typed fields plus a full
// copy of the decoded object into Extra, so no server field is lost even
// though Extra duplicates the named fields (the same simplification used
// by the tagged union types in package types, kept consistent here rather
// than reflecting per struct to exclude named fields).

type ReadyDispatch struct {
	SessionID string                      `json:"session_id"`
	User      types.PartialUser           `json:"user"`
	Extra     map[string]json.RawMessage  `json:"-"`
}

type ResumedDispatch struct {
	Extra map[string]json.RawMessage `json:"-"`
}

type ChannelPinsUpdateDispatch struct {
	GuildID   *types.Snowflake `json:"guild_id,omitempty"`
	ChannelID types.Snowflake  `json:"channel_id"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type GuildDispatch struct {
	ID      types.Snowflake `json:"id"`
	OwnerID types.Snowflake `json:"owner_id"`
	Name    string          `json:"name"`
	Extra   map[string]json.RawMessage `json:"-"`
}

type GuildDeleteDispatch struct {
	ID    types.Snowflake            `json:"id"`
	Extra map[string]json.RawMessage `json:"-"`
}

type GuildBanDispatch struct {
	GuildID types.Snowflake            `json:"guild_id"`
	User    types.PartialUser          `json:"user"`
	Extra   map[string]json.RawMessage `json:"-"`
}

type GuildEmojisUpdateDispatch struct {
	GuildID types.Snowflake            `json:"guild_id"`
	Extra   map[string]json.RawMessage `json:"-"`
}

type GuildStickersUpdateDispatch struct {
	GuildID types.Snowflake            `json:"guild_id"`
	Extra   map[string]json.RawMessage `json:"-"`
}

type GuildIntegrationsUpdateDispatch struct {
	GuildID types.Snowflake            `json:"guild_id"`
	Extra   map[string]json.RawMessage `json:"-"`
}

// MemberDispatch backs both GUILD_MEMBER_ADD and GUILD_MEMBER_UPDATE.
// RolesSet distinguishes an omitted roles field (retain cached roles) from
// an explicit empty list (clear them) per the cache updater's contract.
type MemberDispatch struct {
	GuildID  types.Snowflake            `json:"guild_id"`
	User     *types.PartialUser         `json:"user,omitempty"`
	Roles    []types.Snowflake          `json:"roles,omitempty"`
	RolesSet bool                       `json:"-"`
	Extra    map[string]json.RawMessage `json:"-"`
}

type GuildMemberRemoveDispatch struct {
	GuildID types.Snowflake            `json:"guild_id"`
	User    types.PartialUser          `json:"user"`
	Extra   map[string]json.RawMessage `json:"-"`
}

type RoleDispatch struct {
	GuildID types.Snowflake `json:"guild_id"`
	Role    struct {
		ID          types.Snowflake     `json:"id"`
		Permissions types.Permissions   `json:"permissions"`
		Position    int                 `json:"position"`
	} `json:"role"`
	Extra map[string]json.RawMessage `json:"-"`
}

type GuildRoleDeleteDispatch struct {
	GuildID types.Snowflake            `json:"guild_id"`
	RoleID  types.Snowflake            `json:"role_id"`
	Extra   map[string]json.RawMessage `json:"-"`
}

type ScheduledEventDispatch struct {
	ID      types.Snowflake            `json:"id"`
	GuildID types.Snowflake            `json:"guild_id"`
	Extra   map[string]json.RawMessage `json:"-"`
}

type InviteCreateDispatch struct {
	Code      string                     `json:"code"`
	ChannelID types.Snowflake            `json:"channel_id"`
	GuildID   *types.Snowflake           `json:"guild_id,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type InviteDeleteDispatch struct {
	Code      string                     `json:"code"`
	ChannelID types.Snowflake            `json:"channel_id"`
	GuildID   *types.Snowflake           `json:"guild_id,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type MessageDispatch struct {
	ID        types.Snowflake            `json:"id"`
	ChannelID types.Snowflake            `json:"channel_id"`
	GuildID   *types.Snowflake           `json:"guild_id,omitempty"`
	Author    *types.PartialUser         `json:"author,omitempty"`
	Content   string                     `json:"content"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type MessageDeleteDispatch struct {
	ID        types.Snowflake            `json:"id"`
	ChannelID types.Snowflake            `json:"channel_id"`
	GuildID   *types.Snowflake           `json:"guild_id,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type MessageDeleteBulkDispatch struct {
	IDs       []types.Snowflake          `json:"ids"`
	ChannelID types.Snowflake            `json:"channel_id"`
	GuildID   *types.Snowflake           `json:"guild_id,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type MessageReactionDispatch struct {
	UserID    types.Snowflake            `json:"user_id"`
	ChannelID types.Snowflake            `json:"channel_id"`
	MessageID types.Snowflake            `json:"message_id"`
	GuildID   *types.Snowflake           `json:"guild_id,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type MessageReactionRemoveAllDispatch struct {
	ChannelID types.Snowflake            `json:"channel_id"`
	MessageID types.Snowflake            `json:"message_id"`
	GuildID   *types.Snowflake           `json:"guild_id,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type MessageReactionRemoveEmojiDispatch struct {
	ChannelID types.Snowflake            `json:"channel_id"`
	MessageID types.Snowflake            `json:"message_id"`
	GuildID   *types.Snowflake           `json:"guild_id,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type PresenceUpdateDispatch struct {
	User    types.PartialUser          `json:"user"`
	GuildID *types.Snowflake           `json:"guild_id,omitempty"`
	Status  string                     `json:"status"`
	Extra   map[string]json.RawMessage `json:"-"`
}

type TypingStartDispatch struct {
	ChannelID types.Snowflake            `json:"channel_id"`
	GuildID   *types.Snowflake           `json:"guild_id,omitempty"`
	UserID    types.Snowflake            `json:"user_id"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type UserUpdateDispatch struct {
	User  types.PartialUser          `json:"user"`
	Extra map[string]json.RawMessage `json:"-"`
}

// embed the user fields flat since USER_UPDATE's payload IS the user object.
func (d *UserUpdateDispatch) UnmarshalJSON(b []byte) error {
	var u types.PartialUser
	if err := json.Unmarshal(b, &u); err != nil {
		return err
	}
	d.User = u
	return nil
}

type VoiceStateUpdateDispatch struct {
	GuildID   *types.Snowflake           `json:"guild_id,omitempty"`
	ChannelID *types.Snowflake           `json:"channel_id,omitempty"`
	UserID    types.Snowflake            `json:"user_id"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type VoiceServerUpdateDispatch struct {
	Token   string                     `json:"token"`
	GuildID types.Snowflake            `json:"guild_id"`
	Extra   map[string]json.RawMessage `json:"-"`
}

type WebhooksUpdateDispatch struct {
	GuildID   types.Snowflake            `json:"guild_id"`
	ChannelID types.Snowflake            `json:"channel_id"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type InteractionCreateDispatch struct {
	ID        types.Snowflake            `json:"id"`
	GuildID   *types.Snowflake           `json:"guild_id,omitempty"`
	ChannelID *types.Snowflake           `json:"channel_id,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

// withExtra is implemented by every typed payload except the ones (Channel)
// that already own their own Extra handling via tagged-union decode.
type withExtra interface {
	setExtra(map[string]json.RawMessage)
}

func (d *ReadyDispatch) setExtra(e map[string]json.RawMessage)                      { d.Extra = e }
func (d *ResumedDispatch) setExtra(e map[string]json.RawMessage)                    { d.Extra = e }
func (d *ChannelPinsUpdateDispatch) setExtra(e map[string]json.RawMessage)          { d.Extra = e }
func (d *GuildDispatch) setExtra(e map[string]json.RawMessage)                      { d.Extra = e }
func (d *GuildDeleteDispatch) setExtra(e map[string]json.RawMessage)                { d.Extra = e }
func (d *GuildBanDispatch) setExtra(e map[string]json.RawMessage)                   { d.Extra = e }
func (d *GuildEmojisUpdateDispatch) setExtra(e map[string]json.RawMessage)          { d.Extra = e }
func (d *GuildStickersUpdateDispatch) setExtra(e map[string]json.RawMessage)        { d.Extra = e }
func (d *GuildIntegrationsUpdateDispatch) setExtra(e map[string]json.RawMessage)    { d.Extra = e }
func (d *GuildMemberRemoveDispatch) setExtra(e map[string]json.RawMessage)          { d.Extra = e }
func (d *RoleDispatch) setExtra(e map[string]json.RawMessage)                       { d.Extra = e }
func (d *GuildRoleDeleteDispatch) setExtra(e map[string]json.RawMessage)            { d.Extra = e }
func (d *ScheduledEventDispatch) setExtra(e map[string]json.RawMessage)             { d.Extra = e }
func (d *InviteCreateDispatch) setExtra(e map[string]json.RawMessage)               { d.Extra = e }
func (d *InviteDeleteDispatch) setExtra(e map[string]json.RawMessage)               { d.Extra = e }
func (d *MessageDispatch) setExtra(e map[string]json.RawMessage)                    { d.Extra = e }
func (d *MessageDeleteDispatch) setExtra(e map[string]json.RawMessage)              { d.Extra = e }
func (d *MessageDeleteBulkDispatch) setExtra(e map[string]json.RawMessage)          { d.Extra = e }
func (d *MessageReactionDispatch) setExtra(e map[string]json.RawMessage)            { d.Extra = e }
func (d *MessageReactionRemoveAllDispatch) setExtra(e map[string]json.RawMessage)   { d.Extra = e }
func (d *MessageReactionRemoveEmojiDispatch) setExtra(e map[string]json.RawMessage) { d.Extra = e }
func (d *PresenceUpdateDispatch) setExtra(e map[string]json.RawMessage)             { d.Extra = e }
func (d *TypingStartDispatch) setExtra(e map[string]json.RawMessage)                { d.Extra = e }
func (d *UserUpdateDispatch) setExtra(e map[string]json.RawMessage)                 { d.Extra = e }
func (d *VoiceStateUpdateDispatch) setExtra(e map[string]json.RawMessage)           { d.Extra = e }
func (d *VoiceServerUpdateDispatch) setExtra(e map[string]json.RawMessage)          { d.Extra = e }
func (d *WebhooksUpdateDispatch) setExtra(e map[string]json.RawMessage)             { d.Extra = e }
func (d *InteractionCreateDispatch) setExtra(e map[string]json.RawMessage)          { d.Extra = e }

func decodeWithExtra(raw json.RawMessage, out withExtra) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return err
	}
	extra := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &extra); err != nil {
		return err
	}
	out.setExtra(extra)
	return nil
}

func decodeMember(raw json.RawMessage) (interface{}, error) {
	d := &MemberDispatch{}
	if err := decodeWithExtra(raw, d); err != nil {
		return nil, err
	}
	_, d.RolesSet = d.Extra["roles"]
	return d, nil
}

func decodeChannelLike(raw json.RawMessage) (interface{}, error) {
	c := &types.Channel{}
	if err := c.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return c, nil
}

// decoders maps each known event kind to a function producing its typed
// payload from the raw "d" field.
var decoders = map[EventKind]func(raw json.RawMessage) (interface{}, error){
	EventReady:                      func(r json.RawMessage) (interface{}, error) { d := &ReadyDispatch{}; return d, decodeWithExtra(r, d) },
	EventResumed:                    func(r json.RawMessage) (interface{}, error) { d := &ResumedDispatch{}; return d, decodeWithExtra(r, d) },
	EventChannelCreate:              decodeChannelLike,
	EventChannelUpdate:              decodeChannelLike,
	EventChannelDelete:              decodeChannelLike,
	EventChannelPinsUpdate:          func(r json.RawMessage) (interface{}, error) { d := &ChannelPinsUpdateDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildCreate:                func(r json.RawMessage) (interface{}, error) { d := &GuildDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildUpdate:                func(r json.RawMessage) (interface{}, error) { d := &GuildDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildDelete:                func(r json.RawMessage) (interface{}, error) { d := &GuildDeleteDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildBanAdd:                func(r json.RawMessage) (interface{}, error) { d := &GuildBanDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildBanRemove:             func(r json.RawMessage) (interface{}, error) { d := &GuildBanDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildEmojisUpdate:          func(r json.RawMessage) (interface{}, error) { d := &GuildEmojisUpdateDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildStickersUpdate:        func(r json.RawMessage) (interface{}, error) { d := &GuildStickersUpdateDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildIntegrationsUpdate:    func(r json.RawMessage) (interface{}, error) { d := &GuildIntegrationsUpdateDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildMemberAdd:             decodeMember,
	EventGuildMemberUpdate:          decodeMember,
	EventGuildMemberRemove:          func(r json.RawMessage) (interface{}, error) { d := &GuildMemberRemoveDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildRoleCreate:            func(r json.RawMessage) (interface{}, error) { d := &RoleDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildRoleUpdate:            func(r json.RawMessage) (interface{}, error) { d := &RoleDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildRoleDelete:            func(r json.RawMessage) (interface{}, error) { d := &GuildRoleDeleteDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildScheduledEventCreate:  func(r json.RawMessage) (interface{}, error) { d := &ScheduledEventDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildScheduledEventUpdate:  func(r json.RawMessage) (interface{}, error) { d := &ScheduledEventDispatch{}; return d, decodeWithExtra(r, d) },
	EventGuildScheduledEventDelete:  func(r json.RawMessage) (interface{}, error) { d := &ScheduledEventDispatch{}; return d, decodeWithExtra(r, d) },
	EventInviteCreate:               func(r json.RawMessage) (interface{}, error) { d := &InviteCreateDispatch{}; return d, decodeWithExtra(r, d) },
	EventInviteDelete:               func(r json.RawMessage) (interface{}, error) { d := &InviteDeleteDispatch{}; return d, decodeWithExtra(r, d) },
	EventMessageCreate:              func(r json.RawMessage) (interface{}, error) { d := &MessageDispatch{}; return d, decodeWithExtra(r, d) },
	EventMessageUpdate:              func(r json.RawMessage) (interface{}, error) { d := &MessageDispatch{}; return d, decodeWithExtra(r, d) },
	EventMessageDelete:              func(r json.RawMessage) (interface{}, error) { d := &MessageDeleteDispatch{}; return d, decodeWithExtra(r, d) },
	EventMessageDeleteBulk:          func(r json.RawMessage) (interface{}, error) { d := &MessageDeleteBulkDispatch{}; return d, decodeWithExtra(r, d) },
	EventMessageReactionAdd:         func(r json.RawMessage) (interface{}, error) { d := &MessageReactionDispatch{}; return d, decodeWithExtra(r, d) },
	EventMessageReactionRemove:      func(r json.RawMessage) (interface{}, error) { d := &MessageReactionDispatch{}; return d, decodeWithExtra(r, d) },
	EventMessageReactionRemoveAll:   func(r json.RawMessage) (interface{}, error) { d := &MessageReactionRemoveAllDispatch{}; return d, decodeWithExtra(r, d) },
	EventMessageReactionRemoveEmoji: func(r json.RawMessage) (interface{}, error) { d := &MessageReactionRemoveEmojiDispatch{}; return d, decodeWithExtra(r, d) },
	EventPresenceUpdate:             func(r json.RawMessage) (interface{}, error) { d := &PresenceUpdateDispatch{}; return d, decodeWithExtra(r, d) },
	EventTypingStart:                func(r json.RawMessage) (interface{}, error) { d := &TypingStartDispatch{}; return d, decodeWithExtra(r, d) },
	EventUserUpdate:                 func(r json.RawMessage) (interface{}, error) { d := &UserUpdateDispatch{}; return d, decodeWithExtra(r, d) },
	EventVoiceStateUpdate:           func(r json.RawMessage) (interface{}, error) { d := &VoiceStateUpdateDispatch{}; return d, decodeWithExtra(r, d) },
	EventVoiceServerUpdate:          func(r json.RawMessage) (interface{}, error) { d := &VoiceServerUpdateDispatch{}; return d, decodeWithExtra(r, d) },
	EventWebhooksUpdate:             func(r json.RawMessage) (interface{}, error) { d := &WebhooksUpdateDispatch{}; return d, decodeWithExtra(r, d) },
	EventInteractionCreate:          func(r json.RawMessage) (interface{}, error) { d := &InteractionCreateDispatch{}; return d, decodeWithExtra(r, d) },
}

// decodeDispatch turns an Op-0 Payload into a Dispatch. Known kinds that
// fail to decode are a protocol error (surfaced, never dropped); unknown
// kinds always succeed, preserving event_type and the raw payload.
func decodeDispatch(p Payload) (Dispatch, error) {
	var seq uint64
	if p.Sequence != nil {
		seq = *p.Sequence
	}
	eventType := ""
	if p.EventType != nil {
		eventType = *p.EventType
	}

	kind := EventKind(eventType)
	decode, known := decoders[kind]
	if !known {
		return Dispatch{
			Sequence: seq,
			Kind:     kind,
			Known:    false,
			Event:    &UnknownDispatch{EventType: eventType, Raw: p.Data},
		}, nil
	}

	event, err := decode(p.Data)
	if err != nil {
		return Dispatch{}, nyxerr.FromProtocol(nyxerr.NewInvalidPayload("dispatch " + eventType + ": " + err.Error()))
	}
	return Dispatch{Sequence: seq, Kind: kind, Known: true, Event: event}, nil
}
