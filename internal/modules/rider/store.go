package rider

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shuttle/internal/types"
)

type Store interface {
	Create(ctx context.Context, r *Rider) error
	Get(ctx context.Context, id types.ID) (*Rider, error)
	GetByUsername(ctx context.Context, username string) (*Rider, error)
	List(ctx context.Context) ([]*Rider, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, r *Rider) error {
	if r.Username == "" {
		return ErrInvalidRider
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO riders (id, username, email, created_at)
		VALUES ($1, $2, $3, $4)`,
		r.ID, r.Username, r.Email, r.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUsernameTaken
	}
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Rider, error) {
	return s.scanOne(s.db.QueryRow(ctx, `
		SELECT id, username, email, created_at FROM riders WHERE id = $1`, id))
}

func (s *PGStore) GetByUsername(ctx context.Context, username string) (*Rider, error) {
	return s.scanOne(s.db.QueryRow(ctx, `
		SELECT id, username, email, created_at FROM riders WHERE username = $1`, username))
}

func (s *PGStore) List(ctx context.Context) ([]*Rider, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, username, email, created_at FROM riders ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Rider
	for rows.Next() {
		var r Rider
		if err := rows.Scan(&r.ID, &r.Username, &r.Email, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PGStore) scanOne(row pgx.Row) (*Rider, error) {
	var r Rider
	err := row.Scan(&r.ID, &r.Username, &r.Email, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
