package trip

import "time"

// Status is the lifecycle state of a trip. No transition graph is enforced;
// any member with edit permission can set any value.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Role is a member's role within a trip.
type Role string

const (
	RoleOrganizer   Role = "organizer"
	RoleParticipant Role = "participant"
	RoleViewer      Role = "viewer"
)

// ActivityType classifies entries in a trip's activity log.
type ActivityType string

const (
	ActivityCreated           ActivityType = "created"
	ActivityUpdated           ActivityType = "updated"
	ActivityMemberAdded       ActivityType = "member_added"
	ActivityMemberRemoved     ActivityType = "member_removed"
	ActivityMemberRoleChanged ActivityType = "member_role_changed"
	ActivityCommentAdded      ActivityType = "comment_added"
)

// Trip is a planned trip shared between members.
type Trip struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	StartDate   *time.Time             `json:"start_date"`
	EndDate     *time.Time             `json:"end_date"`
	Status      Status                 `json:"status"`
	TripData    map[string]interface{} `json:"trip_data"`
	CreatedBy   string                 `json:"created_by"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Member is a user's membership in a trip. Visibility of a trip is based
// solely on holding a membership; capabilities come from the permission set.
type Member struct {
	ID          string      `json:"id"`
	TripID      string      `json:"trip_id"`
	UserID      string      `json:"user_id"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Activity is one append-only audit record. UserID is the acting user and may
// be nil for rows whose actor account was since deleted.
type Activity struct {
	ID        string                 `json:"id"`
	TripID    string                 `json:"trip_id"`
	UserID    *string                `json:"user_id"`
	Type      ActivityType           `json:"activity_type"`
	Data      map[string]interface{} `json:"activity_data"`
	CreatedAt time.Time              `json:"created_at"`
}

// UserInfo is the public identity snapshot attached to enriched members.
type UserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// MemberDetail is a Member with the referenced user's public identity.
type MemberDetail struct {
	*Member
	User *UserInfo `json:"user,omitempty"`
}

// CreateTripInput holds the fields required to create a new trip.
type CreateTripInput struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	StartDate   *time.Time             `json:"start_date"`
	EndDate     *time.Time             `json:"end_date"`
	TripData    map[string]interface{} `json:"trip_data"`
}

// UpdateTripInput holds the fields that can be updated on a trip.
// All fields are optional; only non-nil fields are applied.
type UpdateTripInput struct {
	Title       *string                 `json:"title"`
	Description *string                 `json:"description"`
	StartDate   *time.Time              `json:"start_date"`
	EndDate     *time.Time              `json:"end_date"`
	Status      *Status                 `json:"status"`
	TripData    *map[string]interface{} `json:"trip_data"`
}

// changes returns the set fields of the patch keyed by column name, used as
// the payload of the "updated" activity entry.
func (in UpdateTripInput) changes() map[string]interface{} {
	out := map[string]interface{}{}
	if in.Title != nil {
		out["title"] = *in.Title
	}
	if in.Description != nil {
		out["description"] = *in.Description
	}
	if in.StartDate != nil {
		out["start_date"] = in.StartDate.Format("2006-01-02")
	}
	if in.EndDate != nil {
		out["end_date"] = in.EndDate.Format("2006-01-02")
	}
	if in.Status != nil {
		out["status"] = string(*in.Status)
	}
	if in.TripData != nil {
		out["trip_data"] = *in.TripData
	}
	return out
}

// AddMemberInput holds the fields for adding a member to a trip. When
// Permissions is nil the role's default set is applied; when supplied it
// replaces the default entirely.
type AddMemberInput struct {
	UserID      string       `json:"user_id"`
	Role        Role         `json:"role"`
	Permissions *Permissions `json:"permissions"`
}

// ActivityEntry describes the audit record a mutating store call must append
// in the same transaction as the mutation itself.
type ActivityEntry struct {
	ActorID string
	Type    ActivityType
	Data    map[string]interface{}
}
