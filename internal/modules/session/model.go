package session

import (
	"errors"
	"time"

	"shuttle/internal/types"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrShuttleBusy  = errors.New("shuttle is already in a running session")
	ErrSessionEnded = errors.New("session has ended")
	// ErrEndOfRoute reports that the shuttle is already at the final stop.
	// The cursor is clamped; drivers see it as a notice, not a failure.
	ErrEndOfRoute = errors.New("already at the final stop")
)

type Status string

const (
	StatusRunning Status = "running"
	StatusEnded   Status = "ended"
)

// Shuttle is a vehicle in the fleet. Assignment to a route happens
// through a Session, not on the shuttle itself.
type Shuttle struct {
	ID       types.ID
	Name     string
	Capacity int
}

// Session is one driver's run of a shuttle along a route. Cursor indexes
// into the route's ordered stop list; it only ever moves forward.
type Session struct {
	ID        types.ID
	ShuttleID types.ID
	RouteID   types.ID
	DriverID  types.ID
	Cursor    int
	Status    Status
	StartedAt time.Time
	EndedAt   *time.Time
}
