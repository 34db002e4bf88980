package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shuttle/internal/types"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBadAmount         = errors.New("amount must be positive")
	ErrConflict          = errors.New("wallet update conflict")
)

// Events receives ledger appends. Implementations must be fast; publishing
// is best-effort.
type Events interface {
	TransactionAppended(ctx context.Context, tx Transaction)
}

type Service struct {
	store  Store
	events Events
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, events Events, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, events: events, logger: logger, now: time.Now}
}

// Credit adds funds to the rider's wallet. Always succeeds for a positive
// amount.
func (s *Service) Credit(ctx context.Context, riderID types.ID, amount types.Money, reason string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrBadAmount
	}
	tx := Transaction{
		ID:        types.NewID(),
		RiderID:   riderID,
		Kind:      KindCredit,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: s.now(),
	}
	if err := s.store.Append(ctx, tx, false); err != nil {
		return Transaction{}, err
	}
	s.record(ctx, tx)
	return tx, nil
}

// Debit charges the rider. Fails with ErrInsufficientFunds when the balance
// cannot cover the amount; the ledger is untouched in that case.
func (s *Service) Debit(ctx context.Context, riderID types.ID, amount types.Money, reason string, tripID *types.ID) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrBadAmount
	}
	tx := Transaction{
		ID:        types.NewID(),
		RiderID:   riderID,
		Kind:      KindDebit,
		Amount:    -amount,
		Reason:    reason,
		TripID:    tripID,
		CreatedAt: s.now(),
	}
	if err := s.store.Append(ctx, tx, true); err != nil {
		return Transaction{}, err
	}
	s.record(ctx, tx)
	return tx, nil
}

// DebitUpTo charges as much of amount as the balance covers, draining the
// wallet to zero on a shortfall. It never rejects: forced closures and the
// documented tap-off shortfall policy depend on every trip reaching a
// terminal ledger state.
func (s *Service) DebitUpTo(ctx context.Context, riderID types.ID, amount types.Money, reason string, tripID *types.ID) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrBadAmount
	}
	for attempt := 0; attempt < 5; attempt++ {
		balance, err := s.store.Balance(ctx, riderID)
		if err != nil {
			return Transaction{}, err
		}
		charge := amount
		if balance < charge {
			if balance < 0 {
				balance = 0
			}
			charge = balance
			reason = fmt.Sprintf("%s (shortfall %s of %s)", reason, (amount - charge).String(), amount.String())
		}
		tx := Transaction{
			ID:        types.NewID(),
			RiderID:   riderID,
			Kind:      KindDebit,
			Amount:    -charge,
			Reason:    reason,
			TripID:    tripID,
			CreatedAt: s.now(),
		}
		err = s.store.Append(ctx, tx, true)
		if errors.Is(err, ErrInsufficientFunds) {
			// Balance moved under us; re-read and retry.
			continue
		}
		if err != nil {
			return Transaction{}, err
		}
		s.record(ctx, tx)
		return tx, nil
	}
	return Transaction{}, ErrConflict
}

// Adjust is the administrative override: signed, and allowed to take the
// balance negative to record a debt.
func (s *Service) Adjust(ctx context.Context, riderID types.ID, amount types.Money, reason string) (Transaction, error) {
	if amount == 0 {
		return Transaction{}, ErrBadAmount
	}
	tx := Transaction{
		ID:        types.NewID(),
		RiderID:   riderID,
		Kind:      KindAdjustment,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: s.now(),
	}
	if err := s.store.Append(ctx, tx, false); err != nil {
		return Transaction{}, err
	}
	s.record(ctx, tx)
	return tx, nil
}

func (s *Service) Balance(ctx context.Context, riderID types.ID) (types.Money, error) {
	return s.store.Balance(ctx, riderID)
}

// History returns the rider's transactions, newest first.
func (s *Service) History(ctx context.Context, riderID types.ID) ([]Transaction, error) {
	return s.store.Transactions(ctx, riderID)
}

// Ledger returns every transaction in the system, newest first. Admin
// audit view.
func (s *Service) Ledger(ctx context.Context) ([]Transaction, error) {
	return s.store.AllTransactions(ctx)
}

func (s *Service) record(ctx context.Context, tx Transaction) {
	s.logger.Info("ledger append",
		zap.String("rider_id", string(tx.RiderID)),
		zap.String("kind", string(tx.Kind)),
		zap.String("amount", tx.Amount.String()),
		zap.String("reason", tx.Reason),
	)
	if s.events != nil {
		s.events.TransactionAppended(ctx, tx)
	}
}
