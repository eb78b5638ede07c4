package trip

// Named permissions that can be granted to a trip member.
const (
	PermEdit          = "edit"
	PermDelete        = "delete"
	PermInvite        = "invite"
	PermManageMembers = "manage_members"
	PermView          = "view"
)

// Permissions is the capability set attached to a membership. It is stored as
// a JSONB document but kept as a fixed-shape struct so the permission set is
// covered at compile time.
type Permissions struct {
	Edit          bool `json:"edit"`
	Delete        bool `json:"delete"`
	Invite        bool `json:"invite"`
	ManageMembers bool `json:"manage_members"`
	View          bool `json:"view"`
}

// FullPermissions grants every capability. Applied to trip creators.
func FullPermissions() Permissions {
	return Permissions{
		Edit:          true,
		Delete:        true,
		Invite:        true,
		ManageMembers: true,
		View:          true,
	}
}

// DefaultPermissions returns the default capability set for a role, used when
// a member is added without an explicit permission set.
func DefaultPermissions(role Role) Permissions {
	if role == RoleOrganizer {
		return FullPermissions()
	}
	// Participants and viewers start out read-only.
	return Permissions{View: true}
}

// Has reports whether the named permission is granted. Unknown names are
// never granted.
func (p Permissions) Has(name string) bool {
	switch name {
	case PermEdit:
		return p.Edit
	case PermDelete:
		return p.Delete
	case PermInvite:
		return p.Invite
	case PermManageMembers:
		return p.ManageMembers
	case PermView:
		return p.View
	default:
		return false
	}
}
