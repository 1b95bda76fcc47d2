package models

// AccessLevel represents the configured default access tier for a command
// within a guild
type AccessLevel string

const (
	AccessPublic     AccessLevel = "public"
	AccessAdminOnly  AccessLevel = "admin_only"
	AccessRestricted AccessLevel = "restricted"
)

// IsValid checks whether the access level is one of the known tiers
func (a AccessLevel) IsValid() bool {
	switch a {
	case AccessPublic, AccessAdminOnly, AccessRestricted:
		return true
	}
	return false
}

// CommandPolicy represents the access tier configured for a command in a
// guild. A missing row means the command's built-in default applies.
type CommandPolicy struct {
	GuildID       int64       `db:"guild_id"`
	Command       string      `db:"command"`
	DefaultAccess AccessLevel `db:"default_access"`
}

// CommandRoleGrant authorizes a role to use a command whose policy is
// restricted. Presence of the row implies the grant.
type CommandRoleGrant struct {
	GuildID int64  `db:"guild_id"`
	Command string `db:"command"`
	RoleID  int64  `db:"role_id"`
}
