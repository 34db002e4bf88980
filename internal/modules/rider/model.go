package rider

import (
	"errors"
	"time"

	"shuttle/internal/types"
)

var (
	ErrNotFound      = errors.New("rider not found")
	ErrUsernameTaken = errors.New("username already registered")
	ErrInvalidRider  = errors.New("rider needs a username")
)

// Rider is a passenger identity. Authentication lives elsewhere; drivers
// identify riders by username at the door.
type Rider struct {
	ID        types.ID
	Username  string
	Email     string
	CreatedAt time.Time
}
