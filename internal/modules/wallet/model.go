// Package wallet implements the append-only ledger behind each rider's
// balance.
package wallet

import (
	"time"

	"shuttle/internal/types"
)

type Kind string

const (
	KindCredit     Kind = "credit"
	KindDebit      Kind = "debit"
	KindAdjustment Kind = "admin_adjustment"
)

type Wallet struct {
	RiderID types.ID
	Balance types.Money
}

// Transaction is one immutable ledger entry. Amount is signed: credits are
// positive, debits negative, adjustments either. The ledger is append-only;
// a wallet's balance is always the sum of its transaction amounts.
type Transaction struct {
	ID        types.ID
	RiderID   types.ID
	Kind      Kind
	Amount    types.Money
	Reason    string
	TripID    *types.ID
	CreatedAt time.Time
}
