package cache

// Policy is the per-kind admission policy: a disabled kind silently drops
// attempted inserts and reads from it return not-found. AutoUpdate governs
// whether the updater goroutine is spawned at all.
type Policy struct {
	AutoUpdate bool
	Guilds     bool
	Channels   bool
	Roles      bool
	Members    bool
	Users      bool
}

// DefaultPolicy enables every kind and auto-update.
func DefaultPolicy() Policy {
	return Policy{AutoUpdate: true, Guilds: true, Channels: true, Roles: true, Members: true, Users: true}
}
