package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"shuttle/internal/types"
)

// Store persists driving sessions and the shuttle registry.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id types.ID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	ListRunning(ctx context.Context) ([]*Session, error)

	CreateShuttle(ctx context.Context, sh *Shuttle) error
	GetShuttle(ctx context.Context, id types.ID) (*Shuttle, error)
	ListShuttles(ctx context.Context) ([]*Shuttle, error)
}

// ShuttleClaims is the mutual exclusion on a shuttle: at most one running
// session may hold a shuttle at a time, across all API instances.
type ShuttleClaims interface {
	// Claim returns false when another session already holds the shuttle.
	Claim(ctx context.Context, shuttleID, sessionID types.ID) (bool, error)
	Release(ctx context.Context, shuttleID types.ID) error
}

const (
	claimKeyPrefix = "session:shuttle:%s"
	// A claim outliving its session by this much means the instance died
	// without releasing; let it lapse rather than strand the shuttle.
	claimTTL = 24 * time.Hour
)

// RedisClaims implements ShuttleClaims with SETNX.
type RedisClaims struct {
	redis *redis.Client
}

func NewRedisClaims(redis *redis.Client) *RedisClaims {
	return &RedisClaims{redis: redis}
}

func (c *RedisClaims) Claim(ctx context.Context, shuttleID, sessionID types.ID) (bool, error) {
	return c.redis.SetNX(ctx, claimKey(shuttleID), string(sessionID), claimTTL).Result()
}

func (c *RedisClaims) Release(ctx context.Context, shuttleID types.ID) error {
	return c.redis.Del(ctx, claimKey(shuttleID)).Err()
}

func claimKey(shuttleID types.ID) string {
	return fmt.Sprintf(claimKeyPrefix, string(shuttleID))
}

// PGStore persists sessions and shuttles in Postgres.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, sess *Session) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, shuttle_id, route_id, driver_id, cursor, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sess.ID, sess.ShuttleID, sess.RouteID, sess.DriverID, sess.Cursor, sess.Status, sess.StartedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, shuttle_id, route_id, driver_id, cursor, status, started_at, ended_at
		FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (s *PGStore) Update(ctx context.Context, sess *Session) error {
	_, err := s.db.Exec(ctx, `
		UPDATE sessions SET cursor = $1, status = $2, ended_at = $3 WHERE id = $4`,
		sess.Cursor, sess.Status, sess.EndedAt, sess.ID,
	)
	return err
}

func (s *PGStore) ListRunning(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, shuttle_id, route_id, driver_id, cursor, status, started_at, ended_at
		FROM sessions WHERE status = 'running' ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *PGStore) CreateShuttle(ctx context.Context, sh *Shuttle) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO shuttles (id, name, capacity) VALUES ($1, $2, $3)`,
		sh.ID, sh.Name, sh.Capacity,
	)
	return err
}

func (s *PGStore) GetShuttle(ctx context.Context, id types.ID) (*Shuttle, error) {
	var sh Shuttle
	err := s.db.QueryRow(ctx, `
		SELECT id, name, capacity FROM shuttles WHERE id = $1`, id,
	).Scan(&sh.ID, &sh.Name, &sh.Capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func (s *PGStore) ListShuttles(ctx context.Context) ([]*Shuttle, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, capacity FROM shuttles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Shuttle
	for rows.Next() {
		var sh Shuttle
		if err := rows.Scan(&sh.ID, &sh.Name, &sh.Capacity); err != nil {
			return nil, err
		}
		out = append(out, &sh)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	err := row.Scan(
		&sess.ID, &sess.ShuttleID, &sess.RouteID, &sess.DriverID,
		&sess.Cursor, &sess.Status, &sess.StartedAt, &sess.EndedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
