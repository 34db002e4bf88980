package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shuttle/internal/types"
)

// Store persists wallets and their transaction logs. Append must apply the
// balance effect and record the transaction as one atomic unit.
type Store interface {
	Balance(ctx context.Context, riderID types.ID) (types.Money, error)
	// Append records tx and moves the wallet balance by tx.Amount. With
	// requireFunds set it fails with ErrInsufficientFunds instead of taking
	// the balance negative.
	Append(ctx context.Context, tx Transaction, requireFunds bool) error
	Transactions(ctx context.Context, riderID types.ID) ([]Transaction, error)
	AllTransactions(ctx context.Context) ([]Transaction, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Balance(ctx context.Context, riderID types.ID) (types.Money, error) {
	row := s.db.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE rider_id = $1`, string(riderID))
	var balance int64
	err := row.Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return types.Money(balance), nil
}

func (s *PGStore) Append(ctx context.Context, t Transaction, requireFunds bool) error {
	dbtx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer dbtx.Rollback(ctx)

	if _, err := dbtx.Exec(ctx, `
		INSERT INTO wallets (rider_id, balance) VALUES ($1, 0)
		ON CONFLICT (rider_id) DO NOTHING`, string(t.RiderID),
	); err != nil {
		return err
	}

	// Single conditional update keeps the funds check and the balance move
	// atomic.
	tag, err := dbtx.Exec(ctx, `
		UPDATE wallets
		SET balance = balance + $1
		WHERE rider_id = $2 AND (NOT $3::bool OR balance + $1 >= 0)`,
		int64(t.Amount), string(t.RiderID), requireFunds,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}

	if _, err := dbtx.Exec(ctx, `
		INSERT INTO transactions (id, rider_id, kind, amount, reason, trip_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(t.ID), string(t.RiderID), string(t.Kind),
		int64(t.Amount), t.Reason, tripIDPtr(t.TripID), t.CreatedAt,
	); err != nil {
		return err
	}
	return dbtx.Commit(ctx)
}

func (s *PGStore) Transactions(ctx context.Context, riderID types.ID) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, rider_id, kind, amount, reason, trip_id, created_at
		FROM transactions
		WHERE rider_id = $1
		ORDER BY created_at DESC, id DESC`, string(riderID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *PGStore) AllTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, rider_id, kind, amount, reason, trip_id, created_at
		FROM transactions
		ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		var t Transaction
		var tripID *string
		var createdAt time.Time
		if err := rows.Scan(&t.ID, &t.RiderID, &t.Kind, &t.Amount, &t.Reason, &tripID, &createdAt); err != nil {
			return nil, err
		}
		if tripID != nil {
			id := types.ID(*tripID)
			t.TripID = &id
		}
		t.CreatedAt = createdAt
		out = append(out, t)
	}
	return out, rows.Err()
}

func tripIDPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	v := string(*id)
	return &v
}
