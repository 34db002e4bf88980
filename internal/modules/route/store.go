package route

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shuttle/internal/types"
)

// Store is the route repository consumed by the engine and the admin
// surface. Implementations: PGStore, MemoryStore.
type Store interface {
	GetRoute(ctx context.Context, id types.ID) (*Route, error)
	ListRoutes(ctx context.Context) ([]*Route, error)
	CreateRoute(ctx context.Context, r *Route) error
	CreateStop(ctx context.Context, name string) (types.ID, error)
	// AddStop appends a catalog stop to a route and returns the identity of
	// the stop on that route. The position must extend the route.
	AddStop(ctx context.Context, routeID, stopID types.ID, positionM int64) (types.ID, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) GetRoute(ctx context.Context, id types.ID) (*Route, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, base_fare, rate_per_km
		FROM routes
		WHERE id = $1`, string(id),
	)
	var r Route
	err := row.Scan(&r.ID, &r.Name, &r.BaseFare, &r.RatePerKm)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadStops(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PGStore) loadStops(ctx context.Context, r *Route) error {
	rows, err := s.db.Query(ctx, `
		SELECT rs.id, st.name, rs.position_m
		FROM route_stops rs
		JOIN stops st ON st.id = rs.stop_id
		WHERE rs.route_id = $1
		ORDER BY rs.position_m`, string(r.ID),
	)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var st Stop
		if err := rows.Scan(&st.ID, &st.Name, &st.PositionM); err != nil {
			return err
		}
		r.Stops = append(r.Stops, st)
	}
	return rows.Err()
}

func (s *PGStore) ListRoutes(ctx context.Context) ([]*Route, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, base_fare, rate_per_km FROM routes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Route
	for rows.Next() {
		var r Route
		if err := rows.Scan(&r.ID, &r.Name, &r.BaseFare, &r.RatePerKm); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, r := range out {
		if err := s.loadStops(ctx, r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PGStore) CreateRoute(ctx context.Context, r *Route) error {
	if r.Name == "" || r.BaseFare < 0 || r.RatePerKm < 0 {
		return ErrInvalidRoute
	}
	if r.ID == "" {
		r.ID = types.NewID()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO routes (id, name, base_fare, rate_per_km)
		VALUES ($1, $2, $3, $4)`,
		string(r.ID), r.Name, int64(r.BaseFare), int64(r.RatePerKm),
	)
	return err
}

func (s *PGStore) CreateStop(ctx context.Context, name string) (types.ID, error) {
	if name == "" {
		return "", ErrInvalidRoute
	}
	id := types.NewID()
	_, err := s.db.Exec(ctx, `INSERT INTO stops (id, name) VALUES ($1, $2)`, string(id), name)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PGStore) AddStop(ctx context.Context, routeID, stopID types.ID, positionM int64) (types.ID, error) {
	if positionM < 0 {
		return "", ErrInvalidRoute
	}
	id := types.NewID()
	// The insert-time guard keeps positions strictly increasing in stop
	// order without a second round trip.
	tag, err := s.db.Exec(ctx, `
		INSERT INTO route_stops (id, route_id, stop_id, position_m)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (
			SELECT 1 FROM route_stops
			WHERE route_id = $2 AND position_m >= $4
		)`,
		string(id), string(routeID), string(stopID), positionM,
	)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		return "", ErrInvalidRoute
	}
	return id, nil
}
