package types

import "github.com/google/uuid"

// ID identifies an entity (rider, route, stop, trip, session, transaction).
type ID string

func NewID() ID {
	return ID(uuid.NewString())
}
