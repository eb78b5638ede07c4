package trip

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
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

// PGStore is the PostgreSQL-backed Store. Every mutating method wraps its
// writes and the accompanying activity insert in one transaction.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const tripColumns = `id, title, description, start_date, end_date, status,
	trip_data, created_by, created_at, updated_at`

const memberColumns = `id, trip_id, user_id, role, permissions, created_at`

const activityColumns = `id, trip_id, user_id, activity_type, activity_data, created_at`

// row is the subset of pgx.Row / pgx.Rows used by the scan helpers.
type row interface {
	Scan(dest ...any) error
}

func scanTrip(r row) (*Trip, error) {
	var t Trip
	var dataJSON []byte
	err := r.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.StartDate,
		&t.EndDate,
		&t.Status,
		&dataJSON,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.TripData = map[string]interface{}{}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &t.TripData); err != nil {
			return nil, fmt.Errorf("unmarshalling trip_data: %w", err)
		}
	}
	return &t, nil
}

func scanMember(r row) (*Member, error) {
	var m Member
	var permsJSON []byte
	err := r.Scan(&m.ID, &m.TripID, &m.UserID, &m.Role, &permsJSON, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(permsJSON) > 0 {
		if err := json.Unmarshal(permsJSON, &m.Permissions); err != nil {
			return nil, fmt.Errorf("unmarshalling permissions: %w", err)
		}
	}
	return &m, nil
}

func scanActivity(r row) (*Activity, error) {
	var a Activity
	var dataJSON []byte
	err := r.Scan(&a.ID, &a.TripID, &a.UserID, &a.Type, &dataJSON, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Data = map[string]interface{}{}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &a.Data); err != nil {
			return nil, fmt.Errorf("unmarshalling activity_data: %w", err)
		}
	}
	return &a, nil
}

// insertActivity appends one audit record inside the caller's transaction.
func insertActivity(ctx context.Context, tx pgx.Tx, tripID string, entry ActivityEntry) error {
	dataJSON, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("marshalling activity_data: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO trip_activities (trip_id, user_id, activity_type, activity_data)
		 VALUES ($1, $2, $3, $4)`,
		tripID, entry.ActorID, entry.Type, dataJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// CreateTrip inserts the trip, its creator's organizer membership and the
// "created" activity in one transaction.
func (s *PGStore) CreateTrip(ctx context.Context, in CreateTripInput, creatorID string, perms Permissions) (*Trip, error) {
	dataJSON, err := json.Marshal(in.TripData)
	if err != nil {
		return nil, fmt.Errorf("marshalling trip_data: %w", err)
	}
	permsJSON, err := json.Marshal(perms)
	if err != nil {
		return nil, fmt.Errorf("marshalling permissions: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`INSERT INTO trips
		(title, description, start_date, end_date, status, trip_data, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, tripColumns)

	t, err := scanTrip(tx.QueryRow(ctx, query,
		in.Title, in.Description, in.StartDate, in.EndDate, StatusPlanning, dataJSON, creatorID,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting trip: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO trip_members (trip_id, user_id, role, permissions)
		 VALUES ($1, $2, $3, $4)`,
		t.ID, creatorID, RoleOrganizer, permsJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting creator membership: %w", err)
	}

	entry := ActivityEntry{
		ActorID: creatorID,
		Type:    ActivityCreated,
		Data:    map[string]interface{}{"title": t.Title},
	}
	if err := insertActivity(ctx, tx, t.ID, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing trip creation: %w", err)
	}
	return t, nil
}

// GetTrip retrieves a trip by id.
func (s *PGStore) GetTrip(ctx context.Context, tripID string) (*Trip, error) {
	query := fmt.Sprintf(`SELECT %s FROM trips WHERE id = $1`, tripColumns)
	t, err := scanTrip(s.pool.QueryRow(ctx, query, tripID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("getting trip: %w", err)
	}
	return t, nil
}

// ListByUser returns trips the user is a member of, newest first.
func (s *PGStore) ListByUser(ctx context.Context, userID string, skip, limit int) ([]*Trip, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM trips t
		 JOIN trip_members tm ON tm.trip_id = t.id
		 WHERE tm.user_id = $1
		 ORDER BY t.created_at DESC
		 OFFSET $2 LIMIT $3`,
		qualify(tripColumns, "t"))

	rows, err := s.pool.Query(ctx, query, userID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}
	defer rows.Close()

	var trips []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trip: %w", err)
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// UpdateTrip applies a partial update and appends the "updated" activity in
// one transaction.
func (s *PGStore) UpdateTrip(ctx context.Context, tripID string, patch UpdateTripInput, entry ActivityEntry) (*Trip, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	add := func(col string, val any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.StartDate != nil {
		add("start_date", *patch.StartDate)
	}
	if patch.EndDate != nil {
		add("end_date", *patch.EndDate)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.TripData != nil {
		dataJSON, err := json.Marshal(*patch.TripData)
		if err != nil {
			return nil, fmt.Errorf("marshalling trip_data: %w", err)
		}
		add("trip_data", dataJSON)
	}

	if len(setClauses) == 0 {
		return s.GetTrip(ctx, tripID)
	}

	add("updated_at", time.Now().UTC())
	args = append(args, tripID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`UPDATE trips SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, tripColumns)

	t, err := scanTrip(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("updating trip: %w", err)
	}

	if err := insertActivity(ctx, tx, tripID, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing trip update: %w", err)
	}
	return t, nil
}

// DeleteTrip removes the trip row. Member and activity rows are removed by
// the schema's ON DELETE CASCADE rules.
func (s *PGStore) DeleteTrip(ctx context.Context, tripID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, tripID)
	if err != nil {
		return fmt.Errorf("deleting trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTripNotFound
	}
	return nil
}

// GetMember retrieves the membership for a (trip, user) pair.
func (s *PGStore) GetMember(ctx context.Context, tripID, userID string) (*Member, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM trip_members WHERE trip_id = $1 AND user_id = $2`, memberColumns)
	m, err := scanMember(s.pool.QueryRow(ctx, query, tripID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("getting trip member: %w", err)
	}
	return m, nil
}

// ListMembers returns the trip's members, oldest membership first.
func (s *PGStore) ListMembers(ctx context.Context, tripID string) ([]*Member, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM trip_members WHERE trip_id = $1 ORDER BY created_at`, memberColumns)
	rows, err := s.pool.Query(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("listing trip members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trip member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CountMembers returns the number of members in the trip.
func (s *PGStore) CountMembers(ctx context.Context, tripID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM trip_members WHERE trip_id = $1`, tripID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting trip members: %w", err)
	}
	return n, nil
}

// AddMember inserts the membership and the "member_added" activity in one
// transaction. The (trip_id, user_id) unique constraint catches the race
// where two adds for the same pair arrive concurrently; the loser gets
// ErrAlreadyMember.
func (s *PGStore) AddMember(ctx context.Context, tripID string, in AddMemberInput, perms Permissions, entry ActivityEntry) (*Member, error) {
	permsJSON, err := json.Marshal(perms)
	if err != nil {
		return nil, fmt.Errorf("marshalling permissions: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`INSERT INTO trip_members (trip_id, user_id, role, permissions)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`, memberColumns)

	m, err := scanMember(tx.QueryRow(ctx, query, tripID, in.UserID, in.Role, permsJSON))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("inserting trip member: %w", err)
	}

	if err := insertActivity(ctx, tx, tripID, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing member addition: %w", err)
	}
	return m, nil
}

// RemoveMember deletes the membership and appends the "member_removed"
// activity in one transaction.
func (s *PGStore) RemoveMember(ctx context.Context, tripID, userID string, entry ActivityEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM trip_members WHERE trip_id = $1 AND user_id = $2`, tripID, userID)
	if err != nil {
		return fmt.Errorf("deleting trip member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	if err := insertActivity(ctx, tx, tripID, entry); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing member removal: %w", err)
	}
	return nil
}

// ListActivities returns the trip's activity log, newest first.
func (s *PGStore) ListActivities(ctx context.Context, tripID string, skip, limit int) ([]*Activity, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM trip_activities
		 WHERE trip_id = $1
		 ORDER BY created_at DESC, id DESC
		 OFFSET $2 LIMIT $3`, activityColumns)

	rows, err := s.pool.Query(ctx, query, tripID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	var activities []*Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// qualify prefixes each column in a comma-separated list with a table alias.
func qualify(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
