package types

import "strconv"

// Permissions is a named bit set over a 64-bit word. ADMINISTRATOR is
// semantically absorbing: any composition that includes it is treated as
// "all" by the permission-composition algorithm in package cache.
type Permissions uint64

const (
	PermCreateInstantInvite Permissions = 1 << iota
	PermKickMembers
	PermBanMembers
	PermAdministrator
	PermManageChannels
	PermManageGuild
	PermAddReactions
	PermViewAuditLog
	PermPrioritySpeaker
	PermStream
	PermViewChannel
	PermSendMessages
	PermSendTTSMessages
	PermManageMessages
	PermEmbedLinks
	PermAttachFiles
	PermReadMessageHistory
	PermMentionEveryone
	PermUseExternalEmojis
	PermViewGuildInsights
	PermConnect
	PermSpeak
	PermMuteMembers
	PermDeafenMembers
	PermMoveMembers
	PermUseVAD
	PermChangeNickname
	PermManageNicknames
	PermManageRoles
	PermManageWebhooks
	PermManageGuildExpressions
	PermUseApplicationCommands
	PermRequestToSpeak
	PermManageEvents
	PermManageThreads
	PermCreatePublicThreads
	PermCreatePrivateThreads
	PermUseExternalStickers
	PermSendMessagesInThreads
	PermUseEmbeddedActivities
	PermModerateMembers
	PermViewCreatorMonetizationAnalytics
	PermUseSoundboard
	PermCreateGuildExpressions
	PermCreateEvents
	PermUseExternalSounds
	PermSendVoiceMessages
	// bit 47 intentionally unused, carried over from the platform's own gap
	_
	PermSendPolls
	PermUseExternalApps
	PermPinMessages
	PermBypassSlowmode
)

// PermissionAll is the sentinel returned whenever composition short-circuits
// (owner bypass or ADMINISTRATOR present): all 64 bits set, including bits
// that have no named permission.
const PermissionAll Permissions = ^Permissions(0)

func (p Permissions) Has(bit Permissions) bool {
	return p&bit == bit
}

// HasPermission implements the spec's has_permission helper: ADMINISTRATOR
// in the set always satisfies any requirement, otherwise the requirement
// must be fully contained.
func (p Permissions) HasPermission(required Permissions) bool {
	if p.Has(PermAdministrator) {
		return true
	}
	return p&required == required
}

func (p Permissions) Union(other Permissions) Permissions {
	return p | other
}

func (p Permissions) Intersect(other Permissions) Permissions {
	return p & other
}

func (p Permissions) Difference(other Permissions) Permissions {
	return p &^ other
}

func (p Permissions) Contains(other Permissions) bool {
	return p&other == other
}

// Added returns the bits present in other but not in p.
func (p Permissions) Added(other Permissions) Permissions {
	return other &^ p
}

// Removed returns the bits present in p but not in other.
func (p Permissions) Removed(other Permissions) Permissions {
	return p &^ other
}

func (p Permissions) String() string {
	return strconv.FormatUint(uint64(p), 10)
}

// MarshalJSON always emits the decimal string form.
func (p Permissions) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON number.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		v, err := strconv.ParseUint(string(data[1:len(data)-1]), 10, 64)
		if err != nil {
			return err
		}
		*p = Permissions(v)
		return nil
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return err
	}
	*p = Permissions(v)
	return nil
}
