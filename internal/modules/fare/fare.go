// Package fare computes trip fares from a route's tariff and the distance
// between two of its stops. All functions are pure.
package fare

import (
	"errors"

	"shuttle/internal/modules/route"
	"shuttle/internal/types"
)

var ErrInvalidStop = errors.New("stop is not on route")

// Compute returns base fare plus per-distance charge between two stops on
// the route, rounded half-up to the cent. Direction-agnostic.
func Compute(r *route.Route, fromID, toID types.ID) (types.Money, error) {
	from, ok := r.StopByID(fromID)
	if !ok {
		return 0, ErrInvalidStop
	}
	to, ok := r.StopByID(toID)
	if !ok {
		return 0, ErrInvalidStop
	}
	return forDistance(r, absDiff(from.PositionM, to.PositionM)), nil
}

// Max is the fare over the full span of the route. Charged on forced
// closures.
func Max(r *route.Route) types.Money {
	return forDistance(r, absDiff(r.Last().PositionM, r.First().PositionM))
}

func forDistance(r *route.Route, metres int64) types.Money {
	return r.BaseFare + r.RatePerKm.PerKm(metres)
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
