package types

import (
	json "github.com/nyxcord/nyxcord/internal/json"
)

// PartialUser is the minimal user shape embedded in channel recipient lists.
type PartialUser struct {
	ID       Snowflake `json:"id"`
	Username string    `json:"username"`
	Bot      bool      `json:"bot"`
}

// --- Channel -----------------------------------------------------------

type GuildTextChannel struct {
	ID         Snowflake              `json:"id"`
	GuildID    Snowflake              `json:"guild_id"`
	Name       string                 `json:"name"`
	Topic      Nullable[string]       `json:"topic"`
	NSFW       bool                   `json:"nsfw"`
	Overwrites []PermissionOverwrite  `json:"permission_overwrites"`
}

type DMChannel struct {
	ID            Snowflake         `json:"id"`
	LastMessageID Nullable[Snowflake] `json:"last_message_id"`
	Recipients    []PartialUser     `json:"recipients"`
}

type GroupDMChannel struct {
	ID         Snowflake     `json:"id"`
	Name       string        `json:"name"`
	Recipients []PartialUser `json:"recipients"`
}

type GuildVoiceChannel struct {
	ID         Snowflake             `json:"id"`
	GuildID    Snowflake             `json:"guild_id"`
	Name       string                `json:"name"`
	Bitrate    int                   `json:"bitrate"`
	UserLimit  int                   `json:"user_limit"`
	Overwrites []PermissionOverwrite `json:"permission_overwrites"`
}

type GuildCategoryChannel struct {
	ID         Snowflake             `json:"id"`
	GuildID    Snowflake             `json:"guild_id"`
	Name       string                `json:"name"`
	Overwrites []PermissionOverwrite `json:"permission_overwrites"`
}

// GuildLinkExtendedChannel is carried over from original_source even though
// the distilled spec never names it; it is the guild-directory/link channel
// kind (tag 15).
type GuildLinkExtendedChannel struct {
	ID      Snowflake `json:"id"`
	GuildID Snowflake `json:"guild_id"`
	Name    string    `json:"name"`
}

// Channel is a tagged union over the known channel kinds. Exactly one of
// the typed fields is populated when Known is true; Raw always holds the
// original payload bytes so re-serialization is lossless even for known
// kinds, and Extra holds the full decoded object (including fields also
// surfaced as named struct fields — trading a little duplication for
// guaranteed losslessness without per-kind reflection over struct tags).
type Channel struct {
	Kind    ChannelType
	Known   bool
	RawKind int

	GuildText         *GuildTextChannel
	DM                *DMChannel
	GroupDM           *GroupDMChannel
	GuildVoice        *GuildVoiceChannel
	GuildCategory     *GuildCategoryChannel
	GuildAnnouncement *GuildTextChannel
	GuildLinkExtended *GuildLinkExtendedChannel

	Raw   json.RawMessage
	Extra map[string]json.RawMessage
}

func (c *Channel) UnmarshalJSON(data []byte) error {
	c.Raw = append(json.RawMessage(nil), data...)

	var tag struct {
		Type int `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	extra := map[string]json.RawMessage{}
	_ = json.Unmarshal(data, &extra)
	c.Extra = extra
	c.RawKind = tag.Type
	c.Kind = ChannelType(tag.Type)

	switch c.Kind {
	case ChannelTypeGuildText:
		c.GuildText = &GuildTextChannel{}
		c.Known = true
		return json.Unmarshal(data, c.GuildText)
	case ChannelTypeDM:
		c.DM = &DMChannel{}
		c.Known = true
		return json.Unmarshal(data, c.DM)
	case ChannelTypeGroupDM:
		c.GroupDM = &GroupDMChannel{}
		c.Known = true
		return json.Unmarshal(data, c.GroupDM)
	case ChannelTypeGuildVoice:
		c.GuildVoice = &GuildVoiceChannel{}
		c.Known = true
		return json.Unmarshal(data, c.GuildVoice)
	case ChannelTypeGuildCategory:
		c.GuildCategory = &GuildCategoryChannel{}
		c.Known = true
		return json.Unmarshal(data, c.GuildCategory)
	case ChannelTypeGuildAnnouncement:
		c.GuildAnnouncement = &GuildTextChannel{}
		c.Known = true
		return json.Unmarshal(data, c.GuildAnnouncement)
	case ChannelTypeGuildLinkExtended:
		c.GuildLinkExtended = &GuildLinkExtendedChannel{}
		c.Known = true
		return json.Unmarshal(data, c.GuildLinkExtended)
	default:
		c.Known = false
		return nil
	}
}

func (c Channel) MarshalJSON() ([]byte, error) {
	if c.Raw != nil {
		return c.Raw, nil
	}
	var v interface{}
	switch {
	case c.GuildText != nil:
		v = c.GuildText
	case c.DM != nil:
		v = c.DM
	case c.GroupDM != nil:
		v = c.GroupDM
	case c.GuildVoice != nil:
		v = c.GuildVoice
	case c.GuildCategory != nil:
		v = c.GuildCategory
	case c.GuildAnnouncement != nil:
		v = c.GuildAnnouncement
	case c.GuildLinkExtended != nil:
		v = c.GuildLinkExtended
	default:
		return json.Marshal(map[string]interface{}{"type": c.RawKind})
	}
	return marshalWithTag(v, c.RawKind)
}

// marshalWithTag marshals v then re-inserts the integer "type" tag, matching
// the reference implementation's serialize_with_tag behavior.
func marshalWithTag(v interface{}, tag int) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	tagBytes, err := json.Marshal(tag)
	if err != nil {
		return nil, err
	}
	m["type"] = tagBytes
	return json.Marshal(m)
}

func marshalWithStringTag(v interface{}, tag string) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	tagBytes, err := json.Marshal(tag)
	if err != nil {
		return nil, err
	}
	m["type"] = tagBytes
	return json.Marshal(m)
}

// --- PermissionOverwrite -------------------------------------------------

type RolePermissionOverwrite struct {
	ID    Snowflake   `json:"id"`
	Allow Permissions `json:"allow"`
	Deny  Permissions `json:"deny"`
}

type MemberPermissionOverwrite struct {
	ID    Snowflake   `json:"id"`
	Allow Permissions `json:"allow"`
	Deny  Permissions `json:"deny"`
}

type PermissionOverwrite struct {
	Kind    PermissionOverwriteType
	Known   bool
	RawKind int

	Role   *RolePermissionOverwrite
	Member *MemberPermissionOverwrite

	Raw json.RawMessage
}

func (o *PermissionOverwrite) UnmarshalJSON(data []byte) error {
	o.Raw = append(json.RawMessage(nil), data...)
	var tag struct {
		Type int `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	o.RawKind = tag.Type
	o.Kind = PermissionOverwriteType(tag.Type)
	switch o.Kind {
	case PermissionOverwriteTypeRole:
		o.Role = &RolePermissionOverwrite{}
		o.Known = true
		return json.Unmarshal(data, o.Role)
	case PermissionOverwriteTypeMember:
		o.Member = &MemberPermissionOverwrite{}
		o.Known = true
		return json.Unmarshal(data, o.Member)
	default:
		o.Known = false
		return nil
	}
}

func (o PermissionOverwrite) MarshalJSON() ([]byte, error) {
	if o.Raw != nil {
		return o.Raw, nil
	}
	if o.Role != nil {
		return marshalWithTag(o.Role, o.RawKind)
	}
	if o.Member != nil {
		return marshalWithTag(o.Member, o.RawKind)
	}
	return json.Marshal(map[string]interface{}{"type": o.RawKind})
}

// ID returns the overwrite's subject id regardless of which variant matched.
func (o PermissionOverwrite) ID() Snowflake {
	if o.Role != nil {
		return o.Role.ID
	}
	if o.Member != nil {
		return o.Member.ID
	}
	return 0
}

// --- Integration ---------------------------------------------------------

type TwitchIntegration struct {
	ID   Snowflake `json:"id"`
	Name string    `json:"name"`
}

type YouTubeIntegration struct {
	ID   Snowflake `json:"id"`
	Name string    `json:"name"`
}

type BotIntegration struct {
	ID            Snowflake `json:"id"`
	Name          string    `json:"name"`
	ApplicationID Snowflake `json:"application_id"`
}

type GuildSubscriptionIntegration struct {
	ID   Snowflake `json:"id"`
	Name string    `json:"name"`
}

type Integration struct {
	Kind    IntegrationType
	Known   bool
	RawKind string

	Twitch            *TwitchIntegration
	YouTube           *YouTubeIntegration
	Bot               *BotIntegration
	GuildSubscription *GuildSubscriptionIntegration

	Raw json.RawMessage
}

func (i *Integration) UnmarshalJSON(data []byte) error {
	i.Raw = append(json.RawMessage(nil), data...)
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	i.RawKind = tag.Type
	i.Kind = IntegrationType(tag.Type)
	switch i.Kind {
	case IntegrationTypeTwitch:
		i.Twitch = &TwitchIntegration{}
		i.Known = true
		return json.Unmarshal(data, i.Twitch)
	case IntegrationTypeYouTube:
		i.YouTube = &YouTubeIntegration{}
		i.Known = true
		return json.Unmarshal(data, i.YouTube)
	case IntegrationTypeDiscord:
		i.Bot = &BotIntegration{}
		i.Known = true
		return json.Unmarshal(data, i.Bot)
	case IntegrationTypeGuildSubscription:
		i.GuildSubscription = &GuildSubscriptionIntegration{}
		i.Known = true
		return json.Unmarshal(data, i.GuildSubscription)
	default:
		i.Known = false
		return nil
	}
}

func (i Integration) MarshalJSON() ([]byte, error) {
	if i.Raw != nil {
		return i.Raw, nil
	}
	switch {
	case i.Twitch != nil:
		return marshalWithStringTag(i.Twitch, i.RawKind)
	case i.YouTube != nil:
		return marshalWithStringTag(i.YouTube, i.RawKind)
	case i.Bot != nil:
		return marshalWithStringTag(i.Bot, i.RawKind)
	case i.GuildSubscription != nil:
		return marshalWithStringTag(i.GuildSubscription, i.RawKind)
	default:
		return json.Marshal(map[string]interface{}{"type": i.RawKind})
	}
}

// --- Webhook ---------------------------------------------------------

type IncomingWebhook struct {
	ID        Snowflake        `json:"id"`
	ChannelID Snowflake        `json:"channel_id"`
	Token     Nullable[string] `json:"token"`
}

type ChannelFollowerWebhook struct {
	ID            Snowflake           `json:"id"`
	ChannelID     Snowflake           `json:"channel_id"`
	SourceGuildID Nullable[Snowflake] `json:"source_guild_id"`
}

type ApplicationWebhook struct {
	ID            Snowflake           `json:"id"`
	ChannelID     Snowflake           `json:"channel_id"`
	ApplicationID Nullable[Snowflake] `json:"application_id"`
}

type Webhook struct {
	Kind    WebhookType
	Known   bool
	RawKind int

	Incoming       *IncomingWebhook
	ChannelFollower *ChannelFollowerWebhook
	Application    *ApplicationWebhook

	Raw json.RawMessage
}

func (w *Webhook) UnmarshalJSON(data []byte) error {
	w.Raw = append(json.RawMessage(nil), data...)
	var tag struct {
		Type int `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	w.RawKind = tag.Type
	w.Kind = WebhookType(tag.Type)
	switch w.Kind {
	case WebhookTypeIncoming:
		w.Incoming = &IncomingWebhook{}
		w.Known = true
		return json.Unmarshal(data, w.Incoming)
	case WebhookTypeChannelFollower:
		w.ChannelFollower = &ChannelFollowerWebhook{}
		w.Known = true
		return json.Unmarshal(data, w.ChannelFollower)
	case WebhookTypeApplication:
		w.Application = &ApplicationWebhook{}
		w.Known = true
		return json.Unmarshal(data, w.Application)
	default:
		w.Known = false
		return nil
	}
}

func (w Webhook) MarshalJSON() ([]byte, error) {
	if w.Raw != nil {
		return w.Raw, nil
	}
	switch {
	case w.Incoming != nil:
		return marshalWithTag(w.Incoming, w.RawKind)
	case w.ChannelFollower != nil:
		return marshalWithTag(w.ChannelFollower, w.RawKind)
	case w.Application != nil:
		return marshalWithTag(w.Application, w.RawKind)
	default:
		return json.Marshal(map[string]interface{}{"type": w.RawKind})
	}
}
