// Package route holds the route/stop aggregate the fare and trip engines
// operate on.
package route

import (
	"errors"

	"shuttle/internal/types"
)

var (
	ErrNotFound     = errors.New("route not found")
	ErrInvalidRoute = errors.New("invalid route definition")
)

// Stop is one stop on a route, positioned by cumulative distance (metres)
// from the route's origin.
type Stop struct {
	ID        types.ID
	Name      string
	PositionM int64
}

type Route struct {
	ID   types.ID
	Name string
	// BaseFare is charged on every trip; RatePerKm is cents per kilometre.
	BaseFare  types.Money
	RatePerKm types.Money
	Stops     []Stop
}

// StopByID looks the stop up on this route's sequence.
func (r *Route) StopByID(id types.ID) (Stop, bool) {
	for _, s := range r.Stops {
		if s.ID == id {
			return s, true
		}
	}
	return Stop{}, false
}

func (r *Route) First() Stop { return r.Stops[0] }
func (r *Route) Last() Stop  { return r.Stops[len(r.Stops)-1] }

// Validate enforces the structural invariants: at least one stop,
// non-negative fares, and positions strictly increasing in stop order.
func (r *Route) Validate() error {
	if r.Name == "" || len(r.Stops) == 0 {
		return ErrInvalidRoute
	}
	if r.BaseFare < 0 || r.RatePerKm < 0 {
		return ErrInvalidRoute
	}
	for i, s := range r.Stops {
		if s.PositionM < 0 {
			return ErrInvalidRoute
		}
		if i > 0 && s.PositionM <= r.Stops[i-1].PositionM {
			return ErrInvalidRoute
		}
	}
	return nil
}
