package trip

import (
	"context"
	"errors"
	"strings"
)

// Outcome errors surfaced to the HTTP layer.
var (
	ErrTripNotFound     = errors.New("trip not found")
	ErrMemberNotFound   = errors.New("trip member not found")
	ErrForbidden        = errors.New("no permission for this trip")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyMember    = errors.New("user is already a member of this trip")
	ErrCreatorImmutable = errors.New("the trip creator cannot be removed")
)

// Validation errors returned by the Service layer.
var (
	ErrTitleRequired = errors.New("title is required")
	ErrTitleTooLong  = errors.New("title must be at most 200 characters")
	ErrDescTooLong   = errors.New("description must be at most 1000 characters")
	ErrDateRange     = errors.New("end_date must not be before start_date")
	ErrRoleInvalid   = errors.New("role must be one of: organizer, participant, viewer")
	ErrStatusInvalid = errors.New("status must be one of: planning, active, completed, cancelled")
)

const defaultPageSize = 100

// Store is the persistence contract the service drives. Every mutating method
// runs as one atomic transaction and appends the given activity entry inside
// it. Absent rows are reported with ErrTripNotFound / ErrMemberNotFound; a
// duplicate (trip_id, user_id) membership is reported with ErrAlreadyMember.
type Store interface {
	CreateTrip(ctx context.Context, in CreateTripInput, creatorID string, perms Permissions) (*Trip, error)
	GetTrip(ctx context.Context, tripID string) (*Trip, error)
	ListByUser(ctx context.Context, userID string, skip, limit int) ([]*Trip, error)
	UpdateTrip(ctx context.Context, tripID string, patch UpdateTripInput, entry ActivityEntry) (*Trip, error)
	DeleteTrip(ctx context.Context, tripID string) error

	GetMember(ctx context.Context, tripID, userID string) (*Member, error)
	ListMembers(ctx context.Context, tripID string) ([]*Member, error)
	CountMembers(ctx context.Context, tripID string) (int, error)
	AddMember(ctx context.Context, tripID string, in AddMemberInput, perms Permissions, entry ActivityEntry) (*Member, error)
	RemoveMember(ctx context.Context, tripID, userID string, entry ActivityEntry) error

	ListActivities(ctx context.Context, tripID string, skip, limit int) ([]*Activity, error)
}

// Directory is the identity-store contract used to check invited users and to
// attach public user info to member responses.
type Directory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	PublicInfo(ctx context.Context, userID string) (*UserInfo, error)
}

// Service implements the membership and permission rules over trips.
type Service struct {
	store Store
	dir   Directory
}

// NewService creates a Service over the given store and user directory.
func NewService(store Store, dir Directory) *Service {
	return &Service{store: store, dir: dir}
}

// CreateTrip creates a trip owned by actorID. The creator becomes an
// organizer with the full permission set and a "created" activity is logged.
// Creation needs no permission beyond authentication.
func (s *Service) CreateTrip(ctx context.Context, in CreateTripInput, actorID string) (*Trip, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	if in.TripData == nil {
		in.TripData = map[string]interface{}{}
	}
	return s.store.CreateTrip(ctx, in, actorID, FullPermissions())
}

// UserTrips returns the trips the user holds a membership in, newest first.
func (s *Service) UserTrips(ctx context.Context, userID string, skip, limit int) ([]*Trip, error) {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	return s.store.ListByUser(ctx, userID, skip, limit)
}

// TripByID returns the trip only when the user holds a membership in it.
// Non-members get ErrTripNotFound: membership is access, and the existence of
// a trip is not confirmed to outsiders.
func (s *Service) TripByID(ctx context.Context, tripID, userID string) (*Trip, error) {
	if _, err := s.member(ctx, tripID, userID); err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return s.store.GetTrip(ctx, tripID)
}

// UpdateTrip applies a partial update when the actor holds edit permission.
// A missing trip and a missing edit permission are deliberately
// indistinguishable (both ErrTripNotFound) so that updates never leak whether
// a trip exists.
func (s *Service) UpdateTrip(ctx context.Context, tripID string, patch UpdateTripInput, actorID string) (*Trip, error) {
	if err := validateUpdate(patch); err != nil {
		return nil, err
	}
	ok, err := s.hasPermission(ctx, tripID, actorID, PermEdit)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTripNotFound
	}
	return s.store.UpdateTrip(ctx, tripID, patch, ActivityEntry{
		ActorID: actorID,
		Type:    ActivityUpdated,
		Data:    patch.changes(),
	})
}

// DeleteTrip deletes the trip when the actor holds delete permission. It
// returns false both when permission is denied and when the trip is absent.
// Member and activity rows go with the trip via the store's cascade rules.
func (s *Service) DeleteTrip(ctx context.Context, tripID, actorID string) (bool, error) {
	ok, err := s.hasPermission(ctx, tripID, actorID, PermDelete)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := s.store.DeleteTrip(ctx, tripID); err != nil {
		if errors.Is(err, ErrTripNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AddMember invites a user to the trip. Requires invite permission
// (ErrForbidden), an existing target user (ErrUserNotFound) and no existing
// membership for the pair (ErrAlreadyMember). Explicit permissions replace
// the role default entirely.
func (s *Service) AddMember(ctx context.Context, tripID string, in AddMemberInput, actorID string) (*MemberDetail, error) {
	if in.Role == "" {
		in.Role = RoleParticipant
	}
	if !validRole(in.Role) {
		return nil, ErrRoleInvalid
	}

	ok, err := s.hasPermission(ctx, tripID, actorID, PermInvite)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	exists, err := s.dir.Exists(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	// Precheck for a friendlier error; a concurrent add racing past this is
	// still caught by the store's uniqueness constraint.
	if _, err := s.member(ctx, tripID, in.UserID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, ErrMemberNotFound) {
		return nil, err
	}

	perms := DefaultPermissions(in.Role)
	if in.Permissions != nil {
		perms = *in.Permissions
	}

	m, err := s.store.AddMember(ctx, tripID, in, perms, ActivityEntry{
		ActorID: actorID,
		Type:    ActivityMemberAdded,
		Data: map[string]interface{}{
			"added_user_id": in.UserID,
			"role":          string(in.Role),
		},
	})
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, m), nil
}

// RemoveMember removes a membership. Requires manage_members permission
// (ErrForbidden). The trip creator can never be removed, whatever their
// current role (ErrCreatorImmutable). Returns false when no such membership
// exists.
func (s *Service) RemoveMember(ctx context.Context, tripID, targetUserID, actorID string) (bool, error) {
	ok, err := s.hasPermission(ctx, tripID, actorID, PermManageMembers)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrForbidden
	}

	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil && !errors.Is(err, ErrTripNotFound) {
		return false, err
	}
	if t != nil && t.CreatedBy == targetUserID {
		return false, ErrCreatorImmutable
	}

	err = s.store.RemoveMember(ctx, tripID, targetUserID, ActivityEntry{
		ActorID: actorID,
		Type:    ActivityMemberRemoved,
		Data:    map[string]interface{}{"removed_user_id": targetUserID},
	})
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// TripMembers lists the trip's members, oldest membership first, each with
// the referenced user's public info attached. The actor must hold any
// membership in the trip; unlike UpdateTrip this check reports ErrForbidden.
func (s *Service) TripMembers(ctx context.Context, tripID, actorID string) ([]*MemberDetail, error) {
	if _, err := s.member(ctx, tripID, actorID); err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, tripID)
	if err != nil {
		return nil, err
	}
	out := make([]*MemberDetail, 0, len(members))
	for _, m := range members {
		out = append(out, s.enrich(ctx, m))
	}
	return out, nil
}

// TripActivities returns the trip's activity log, newest first. Gated the
// same way as TripMembers: any membership grants access.
func (s *Service) TripActivities(ctx context.Context, tripID, actorID string, skip, limit int) ([]*Activity, error) {
	if _, err := s.member(ctx, tripID, actorID); err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	return s.store.ListActivities(ctx, tripID, skip, limit)
}

// RoleInTrip returns the user's role in the trip, or "" when the user holds
// no membership. Ungated; used to annotate responses.
func (s *Service) RoleInTrip(ctx context.Context, tripID, userID string) (Role, error) {
	m, err := s.member(ctx, tripID, userID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return "", nil
		}
		return "", err
	}
	return m.Role, nil
}

// MemberCount returns the number of members in the trip. Ungated; used to
// annotate responses.
func (s *Service) MemberCount(ctx context.Context, tripID string) (int, error) {
	return s.store.CountMembers(ctx, tripID)
}

func (s *Service) member(ctx context.Context, tripID, userID string) (*Member, error) {
	return s.store.GetMember(ctx, tripID, userID)
}

// hasPermission reports whether the user's membership in the trip grants the
// named permission. No membership means no permission.
func (s *Service) hasPermission(ctx context.Context, tripID, userID, perm string) (bool, error) {
	m, err := s.member(ctx, tripID, userID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.Permissions.Has(perm), nil
}

// enrich attaches the member's public user info. A lookup miss leaves the
// member un-enriched rather than failing the whole response.
func (s *Service) enrich(ctx context.Context, m *Member) *MemberDetail {
	d := &MemberDetail{Member: m}
	if info, err := s.dir.PublicInfo(ctx, m.UserID); err == nil && info != nil {
		d.User = info
	}
	return d
}

func validRole(r Role) bool {
	switch r {
	case RoleOrganizer, RoleParticipant, RoleViewer:
		return true
	}
	return false
}

func validStatus(st Status) bool {
	switch st {
	case StatusPlanning, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// validateCreate checks that all required fields are present and valid.
func validateCreate(in CreateTripInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	if len(in.Title) > 200 {
		return ErrTitleTooLong
	}
	if len(in.Description) > 1000 {
		return ErrDescTooLong
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return ErrDateRange
	}
	return nil
}

// validateUpdate checks that any provided fields are valid. The date-range
// rule only applies when both ends are present in the patch; a single-ended
// patch is validated against nothing, matching partial-update semantics.
func validateUpdate(in UpdateTripInput) error {
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return ErrTitleRequired
		}
		if len(*in.Title) > 200 {
			return ErrTitleTooLong
		}
	}
	if in.Description != nil && len(*in.Description) > 1000 {
		return ErrDescTooLong
	}
	if in.Status != nil && !validStatus(*in.Status) {
		return ErrStatusInvalid
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return ErrDateRange
	}
	return nil
}
