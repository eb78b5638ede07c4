package user

import "time"

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username,omitempty"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile holds the user's display-facing details, kept in a separate table.
type Profile struct {
	UserID            string                 `json:"user_id"`
	DisplayName       string                 `json:"display_name,omitempty"`
	AvatarURL         string                 `json:"avatar_url,omitempty"`
	Bio               string                 `json:"bio,omitempty"`
	TravelPreferences map[string]interface{} `json:"travel_preferences"`
	PrivacySettings   map[string]interface{} `json:"privacy_settings"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// PublicInfo is the projection of a user safe to show to other trip members.
type PublicInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// CreateUserInput holds the fields required to register a new user.
type CreateUserInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileInput holds optional fields for a partial profile update.
type UpdateProfileInput struct {
	DisplayName       *string                 `json:"display_name"`
	AvatarURL         *string                 `json:"avatar_url"`
	Bio               *string                 `json:"bio"`
	TravelPreferences *map[string]interface{} `json:"travel_preferences"`
	PrivacySettings   *map[string]interface{} `json:"privacy_settings"`
}
