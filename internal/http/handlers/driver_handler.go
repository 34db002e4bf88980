package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shuttle/internal/modules/rider"
	"shuttle/internal/modules/session"
	"shuttle/internal/modules/trip"
	"shuttle/internal/types"
)

// DriverHandler is the driver's console: start driving, advance along the
// route, tap riders on and off, end the shift.
type DriverHandler struct {
	sessions *session.Service
	riders   rider.Store
}

func NewDriverHandler(sessions *session.Service, riders rider.Store) *DriverHandler {
	return &DriverHandler{sessions: sessions, riders: riders}
}

type startSessionRequest struct {
	ShuttleID string `json:"shuttle_id" binding:"required"`
	RouteID   string `json:"route_id" binding:"required"`
	DriverID  string `json:"driver_id" binding:"required"`
}

type sessionResponse struct {
	ID        string     `json:"id"`
	ShuttleID string     `json:"shuttle_id"`
	RouteID   string     `json:"route_id"`
	DriverID  string     `json:"driver_id"`
	Cursor    int        `json:"cursor"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Notice    string     `json:"notice,omitempty"`
}

func (h *DriverHandler) Start(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := h.sessions.Start(c.Request.Context(),
		types.ID(req.ShuttleID), types.ID(req.RouteID), types.ID(req.DriverID))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toSessionResponse(sess, ""))
}

func (h *DriverHandler) Next(c *gin.Context) {
	sess, err := h.sessions.Next(c.Request.Context(), types.ID(c.Param("id")))
	if errors.Is(err, session.ErrEndOfRoute) {
		// Not a failure: the cursor stays clamped at the final stop.
		writeJSON(c, http.StatusOK, toSessionResponse(sess, err.Error()))
		return
	}
	if err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toSessionResponse(sess, ""))
}

type tapRequest struct {
	Username string `json:"username" binding:"required"`
}

type tapResponse struct {
	Outcome      string        `json:"outcome"`
	Trip         *tripResponse `json:"trip,omitempty"`
	ForcedClosed *tripResponse `json:"forced_closed,omitempty"`
	ChargedCents int64         `json:"charged_cents"`
	Charged      string        `json:"charged"`
	BalanceCents int64         `json:"balance_cents"`
	Balance      string        `json:"balance"`
}

type tripResponse struct {
	ID           string     `json:"id"`
	RiderID      string     `json:"rider_id"`
	RouteID      string     `json:"route_id"`
	TapOnStopID  string     `json:"tap_on_stop_id"`
	TapOnAt      time.Time  `json:"tap_on_at"`
	TapOffStopID *string    `json:"tap_off_stop_id,omitempty"`
	TapOffAt     *time.Time `json:"tap_off_at,omitempty"`
	Status       string     `json:"status"`
}

// Tap is the single entry point for rider taps: the engine decides
// whether it is a boarding or an alighting.
func (h *DriverHandler) Tap(c *gin.Context) {
	var req tapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	r, err := h.riders.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	res, err := h.sessions.Tap(c.Request.Context(), types.ID(c.Param("id")), r.ID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTapResponse(res))
}

type endSessionResponse struct {
	Session      sessionResponse `json:"session"`
	ForcedClosed []*tripResponse `json:"forced_closed"`
}

func (h *DriverHandler) End(c *gin.Context) {
	id := types.ID(c.Param("id"))
	closed, err := h.sessions.End(c.Request.Context(), id)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	out := endSessionResponse{
		Session:      toSessionResponse(sess, ""),
		ForcedClosed: make([]*tripResponse, 0, len(closed)),
	}
	for _, t := range closed {
		out.ForcedClosed = append(out.ForcedClosed, toTripResponse(t))
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *DriverHandler) Get(c *gin.Context) {
	sess, err := h.sessions.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toSessionResponse(sess, ""))
}

func (h *DriverHandler) CurrentStop(c *gin.Context) {
	stop, err := h.sessions.CurrentStop(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"id":         string(stop.ID),
		"name":       stop.Name,
		"position_m": stop.PositionM,
	})
}

func toSessionResponse(s *session.Session, notice string) sessionResponse {
	return sessionResponse{
		ID:        string(s.ID),
		ShuttleID: string(s.ShuttleID),
		RouteID:   string(s.RouteID),
		DriverID:  string(s.DriverID),
		Cursor:    s.Cursor,
		Status:    string(s.Status),
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Notice:    notice,
	}
}

func toTripResponse(t *trip.Trip) *tripResponse {
	if t == nil {
		return nil
	}
	out := &tripResponse{
		ID:          string(t.ID),
		RiderID:     string(t.RiderID),
		RouteID:     string(t.RouteID),
		TapOnStopID: string(t.TapOnStopID),
		TapOnAt:     t.TapOnAt,
		TapOffAt:    t.TapOffAt,
		Status:      string(t.Status),
	}
	if t.TapOffStopID != nil {
		s := string(*t.TapOffStopID)
		out.TapOffStopID = &s
	}
	return out
}

func toTapResponse(res trip.TapResult) tapResponse {
	return tapResponse{
		Outcome:      string(res.Outcome),
		Trip:         toTripResponse(res.Trip),
		ForcedClosed: toTripResponse(res.ForcedClosed),
		ChargedCents: int64(res.Charged),
		Charged:      res.Charged.String(),
		BalanceCents: int64(res.Balance),
		Balance:      res.Balance.String(),
	}
}
