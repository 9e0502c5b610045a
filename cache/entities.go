// Package cache holds the minimal entity shapes the runtime mirrors from
// gateway dispatches, plus the updater that keeps them current and the
// permission composition algorithm that reads them.
package cache

import "github.com/nyxcord/nyxcord/types"

// Guild is the minimal cached guild shape.
type Guild struct {
	ID      types.Snowflake
	OwnerID types.Snowflake
	Name    string
}

// Channel is the minimal cached channel shape. GuildID is nil for DM/group
// channels. Overwrites is ordered as received.
type Channel struct {
	ID         types.Snowflake
	GuildID    *types.Snowflake
	Overwrites []types.PermissionOverwrite
}

// Role is keyed by (GuildID, ID); the everyone role shares its guild's id.
type Role struct {
	GuildID     types.Snowflake
	ID          types.Snowflake
	Permissions types.Permissions
	Position    int
}

// Member is keyed by (GuildID, UserID).
type Member struct {
	GuildID types.Snowflake
	UserID  types.Snowflake
	RoleIDs []types.Snowflake
}

// User is the minimal cached user shape.
type User struct {
	ID  types.Snowflake
	Bot bool
}
