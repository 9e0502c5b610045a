package cache

import (
	"github.com/nyxcord/nyxcord/internal/nyxerr"
	"github.com/nyxcord/nyxcord/types"
)

// ComputePermissions resolves a member's effective permissions in a
// channel: guild-level roles, then channel overwrites applied in a fixed
// order (everyone, then roles union, then the member overwrite), with
// ADMINISTRATOR absorbing at either stage.
func ComputePermissions(s *Store, guildID, userID, channelID types.Snowflake) (types.Permissions, error) {
	guild, ok := s.Guild(guildID)
	if !ok {
		return 0, nyxerr.FromState(nyxerr.NewMissing("guild"))
	}
	member, ok := s.Member(guildID, userID)
	if !ok {
		return 0, nyxerr.FromState(nyxerr.NewMissing("member"))
	}

	base := guildPermissions(s, guild, member)
	if base.Has(types.PermAdministrator) {
		return types.PermissionAll, nil
	}

	channel, ok := s.Channel(channelID)
	if !ok {
		return 0, nyxerr.FromState(nyxerr.NewMissing("channel"))
	}

	return channelPermissions(base, channel, member), nil
}

// guildPermissions implements the guild-permissions stage: owner is
// all-powerful; otherwise union the everyone role with every role the
// member holds.
func guildPermissions(s *Store, guild *Guild, member *Member) types.Permissions {
	if member.UserID == guild.OwnerID {
		return types.PermissionAll
	}

	var perms types.Permissions
	if everyone, ok := s.Role(guild.ID, guild.ID); ok {
		perms = perms.Union(everyone.Permissions)
	}
	for _, roleID := range member.RoleIDs {
		if role, ok := s.Role(guild.ID, roleID); ok {
			perms = perms.Union(role.Permissions)
		}
	}
	return perms
}

// channelPermissions applies overwrites in the fixed order the protocol
// requires: everyone, then the union of matching role overwrites, then the
// member overwrite.
func channelPermissions(base types.Permissions, channel *Channel, member *Member) types.Permissions {
	p := base

	memberRoles := make(map[types.Snowflake]bool, len(member.RoleIDs))
	for _, r := range member.RoleIDs {
		memberRoles[r] = true
	}

	for _, ow := range channel.Overwrites {
		if !ow.Known || ow.Role == nil {
			continue
		}
		if ow.Role.ID == member.GuildID {
			p = (p &^ ow.Role.Deny) | ow.Role.Allow
		}
	}

	var allowR, denyR types.Permissions
	for _, ow := range channel.Overwrites {
		if !ow.Known || ow.Role == nil {
			continue
		}
		if ow.Role.ID != member.GuildID && memberRoles[ow.Role.ID] {
			allowR = allowR.Union(ow.Role.Allow)
			denyR = denyR.Union(ow.Role.Deny)
		}
	}
	p = (p &^ denyR) | allowR

	for _, ow := range channel.Overwrites {
		if !ow.Known || ow.Member == nil {
			continue
		}
		if ow.Member.ID == member.UserID {
			p = (p &^ ow.Member.Deny) | ow.Member.Allow
		}
	}

	return p
}

// HasPermission reports whether required is satisfied by set, with
// ADMINISTRATOR treated as absorbing.
func HasPermission(set, required types.Permissions) bool {
	return set.Has(types.PermAdministrator) || set.Contains(required)
}
