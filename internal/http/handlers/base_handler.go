package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shuttle/internal/modules/fare"
	"shuttle/internal/modules/rider"
	"shuttle/internal/modules/route"
	"shuttle/internal/modules/session"
	"shuttle/internal/modules/trip"
	"shuttle/internal/modules/wallet"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeEngineError maps module errors onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body; the real error is in the logs.
func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		writeError(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, route.ErrNotFound),
		errors.Is(err, rider.ErrNotFound),
		errors.Is(err, session.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrShuttleBusy),
		errors.Is(err, session.ErrSessionEnded),
		errors.Is(err, rider.ErrUsernameTaken),
		errors.Is(err, trip.ErrTripConflict),
		errors.Is(err, wallet.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, fare.ErrInvalidStop),
		errors.Is(err, trip.ErrNoActiveTrip),
		errors.Is(err, route.ErrInvalidRoute),
		errors.Is(err, rider.ErrInvalidRider),
		errors.Is(err, wallet.ErrBadAmount):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
