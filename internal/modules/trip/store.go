package trip

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shuttle/internal/types"
)

var ErrTripConflict = errors.New("rider already has an active trip")

// Store persists trips. Create must refuse a second active trip for the
// same rider; the service's per-rider lock makes that unreachable, the
// store check is the backstop.
type Store interface {
	Create(ctx context.Context, t *Trip) error
	// ActiveByRider returns the rider's active trip, nil when none.
	ActiveByRider(ctx context.Context, riderID types.ID) (*Trip, error)
	ActiveOnRoute(ctx context.Context, routeID types.ID) ([]*Trip, error)
	// Close persists a terminal status and the tap-off fields. Only an
	// active trip may be closed.
	Close(ctx context.Context, t *Trip) error
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, t *Trip) error {
	// The partial unique index on (rider_id) WHERE status = 'active'
	// enforces the one-active-trip invariant at the schema level.
	_, err := s.db.Exec(ctx, `
		INSERT INTO trips (id, rider_id, route_id, tap_on_stop_id, tap_on_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(t.ID), string(t.RiderID), string(t.RouteID),
		string(t.TapOnStopID), t.TapOnAt, string(t.Status),
	)
	return err
}

func (s *PGStore) ActiveByRider(ctx context.Context, riderID types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, rider_id, route_id, tap_on_stop_id, tap_on_at, tap_off_stop_id, tap_off_at, status
		FROM trips
		WHERE rider_id = $1 AND status = 'active'`, string(riderID),
	)
	t, err := scanTrip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (s *PGStore) ActiveOnRoute(ctx context.Context, routeID types.ID) ([]*Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, rider_id, route_id, tap_on_stop_id, tap_on_at, tap_off_stop_id, tap_off_at, status
		FROM trips
		WHERE route_id = $1 AND status = 'active'`, string(routeID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PGStore) Close(ctx context.Context, t *Trip) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE trips
		SET status = $1, tap_off_stop_id = $2, tap_off_at = $3
		WHERE id = $4 AND status = 'active'`,
		string(t.Status), stopIDPtr(t.TapOffStopID), t.TapOffAt, string(t.ID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTripConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*Trip, error) {
	var t Trip
	var tapOffStop *string
	var tapOffAt *time.Time
	err := row.Scan(&t.ID, &t.RiderID, &t.RouteID, &t.TapOnStopID, &t.TapOnAt, &tapOffStop, &tapOffAt, &t.Status)
	if err != nil {
		return nil, err
	}
	if tapOffStop != nil {
		id := types.ID(*tapOffStop)
		t.TapOffStopID = &id
	}
	t.TapOffAt = tapOffAt
	return &t, nil
}

func stopIDPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	v := string(*id)
	return &v
}
