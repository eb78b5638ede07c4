package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Errors surfaced by the store.
var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

const uniqueViolation = "23505"

// Store provides database operations for users and profiles.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a user store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = `id, email, username, password_hash, is_active, is_verified, created_at`

func scanUser(scan func(dest ...any) error) (*User, error) {
	u := &User{}
	var username *string
	err := scan(&u.ID, &u.Email, &username, &u.PasswordHash, &u.IsActive, &u.IsVerified, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if username != nil {
		u.Username = *username
	}
	return u, nil
}

// Create registers a new user with a bcrypt-hashed password and a default
// profile whose display name falls back to the email's local part. Both
// inserts run in one transaction.
func (s *Store) Create(ctx context.Context, in CreateUserInput) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	var username *string
	if in.Username != "" {
		username = &in.Username
	}

	displayName := in.Username
	if displayName == "" {
		displayName = strings.SplitN(in.Email, "@", 2)[0]
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	u, err := scanUser(func(dest ...any) error {
		return tx.QueryRow(ctx,
			fmt.Sprintf(`INSERT INTO users (email, username, password_hash, is_active, is_verified)
			 VALUES ($1, $2, $3, true, false)
			 RETURNING %s`, userColumns),
			in.Email, username, string(hash),
		).Scan(dest...)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return nil, ErrUsernameTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO user_profiles (user_id, display_name) VALUES ($1, $2)`,
		u.ID, displayName,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing user creation: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns), id,
		).Scan(dest...)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting user by id: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email address.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns), email,
		).Scan(dest...)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// GetProfile retrieves a user's profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{}
	var displayName, avatarURL, bio *string
	var prefsJSON, privacyJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, display_name, avatar_url, bio, travel_preferences, privacy_settings, updated_at
		 FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &displayName, &avatarURL, &bio, &prefsJSON, &privacyJSON, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting user profile: %w", err)
	}

	if displayName != nil {
		p.DisplayName = *displayName
	}
	if avatarURL != nil {
		p.AvatarURL = *avatarURL
	}
	if bio != nil {
		p.Bio = *bio
	}
	p.TravelPreferences = map[string]interface{}{}
	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &p.TravelPreferences); err != nil {
			return nil, fmt.Errorf("unmarshalling travel_preferences: %w", err)
		}
	}
	p.PrivacySettings = map[string]interface{}{}
	if len(privacyJSON) > 0 {
		if err := json.Unmarshal(privacyJSON, &p.PrivacySettings); err != nil {
			return nil, fmt.Errorf("unmarshalling privacy_settings: %w", err)
		}
	}
	return p, nil
}

// UpdateProfile performs a partial update on the user's profile.
func (s *Store) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*Profile, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	add := func(col string, val any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if in.DisplayName != nil {
		add("display_name", *in.DisplayName)
	}
	if in.AvatarURL != nil {
		add("avatar_url", *in.AvatarURL)
	}
	if in.Bio != nil {
		add("bio", *in.Bio)
	}
	if in.TravelPreferences != nil {
		prefsJSON, err := json.Marshal(*in.TravelPreferences)
		if err != nil {
			return nil, fmt.Errorf("marshalling travel_preferences: %w", err)
		}
		add("travel_preferences", prefsJSON)
	}
	if in.PrivacySettings != nil {
		privacyJSON, err := json.Marshal(*in.PrivacySettings)
		if err != nil {
			return nil, fmt.Errorf("marshalling privacy_settings: %w", err)
		}
		add("privacy_settings", privacyJSON)
	}

	if len(setClauses) == 0 {
		return s.GetProfile(ctx, userID)
	}

	add("updated_at", time.Now().UTC())
	args = append(args, userID)

	query := fmt.Sprintf(`UPDATE user_profiles SET %s WHERE user_id = $%d`,
		strings.Join(setClauses, ", "), argIdx)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetProfile(ctx, userID)
}

// GetPublicInfo returns the public projection of a user, joining in profile
// details when a profile row exists.
func (s *Store) GetPublicInfo(ctx context.Context, userID string) (*PublicInfo, error) {
	info := &PublicInfo{}
	var username, displayName, avatarURL *string
	err := s.pool.QueryRow(ctx,
		`SELECT u.id, u.email, u.username, p.display_name, p.avatar_url
		 FROM users u
		 LEFT JOIN user_profiles p ON p.user_id = u.id
		 WHERE u.id = $1`, userID,
	).Scan(&info.ID, &info.Email, &username, &displayName, &avatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting public user info: %w", err)
	}

	if username != nil {
		info.Username = *username
	}
	if displayName != nil {
		info.DisplayName = *displayName
	}
	if avatarURL != nil {
		info.AvatarURL = *avatarURL
	}
	return info, nil
}

// Exists reports whether a user with the given id exists.
func (s *Store) Exists(ctx context.Context, userID string) (bool, error) {
	var found bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return found, nil
}

// CheckPassword verifies a plaintext password against the user's stored hash.
func CheckPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
