// Package trip implements the tap-on/tap-off state machine: it resolves
// tap events into trip transitions and ledger effects.
package trip

import (
	"time"

	"shuttle/internal/types"
)

type Status string

const (
	StatusActive       Status = "active"
	StatusCompleted    Status = "completed"
	StatusForcedClosed Status = "forced_closed"
)

// Trip is one rider's journey between a tap-on and a terminal state. A
// rider has at most one active trip at any time.
type Trip struct {
	ID           types.ID
	RiderID      types.ID
	RouteID      types.ID
	TapOnStopID  types.ID
	TapOnAt      time.Time
	TapOffStopID *types.ID
	TapOffAt     *time.Time
	Status       Status
}

// Outcome of a single tap event, as reported to the driver surface.
type Outcome string

const (
	OutcomeTappedOn  Outcome = "tapped_on"
	OutcomeTappedOff Outcome = "tapped_off"
	OutcomeIgnored   Outcome = "ignored"
)

type TapResult struct {
	Outcome Outcome
	// Trip the outcome applies to: the new trip for tapped_on, the closed
	// trip for tapped_off, the untouched trip for ignored.
	Trip *Trip
	// ForcedClosed is the stale trip closed at max fare before this tap-on
	// was evaluated, when that happened.
	ForcedClosed *Trip
	// Charged is the amount actually debited by this tap event (which may
	// be less than the fare under the drain-to-zero policy).
	Charged types.Money
	// Balance after the event.
	Balance types.Money
}
