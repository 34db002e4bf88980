package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shuttle/internal/modules/rider"
	"shuttle/internal/modules/route"
	"shuttle/internal/modules/session"
	"shuttle/internal/modules/trip"
	"shuttle/internal/modules/wallet"
	"shuttle/internal/types"
)

// AdminHandler covers the back office: route and shuttle setup, wallet
// adjustments, and the full ledger.
type AdminHandler struct {
	routes   route.Store
	shuttles session.Store
	riders   rider.Store
	wallets  *wallet.Service
	trips    *trip.Service
	sessions *session.Service
}

type AdminDeps struct {
	Routes   route.Store
	Shuttles session.Store
	Riders   rider.Store
	Wallets  *wallet.Service
	Trips    *trip.Service
	Sessions *session.Service
}

func NewAdminHandler(deps AdminDeps) *AdminHandler {
	return &AdminHandler{
		routes:   deps.Routes,
		shuttles: deps.Shuttles,
		riders:   deps.Riders,
		wallets:  deps.Wallets,
		trips:    deps.Trips,
		sessions: deps.Sessions,
	}
}

type createRouteRequest struct {
	Name           string              `json:"name" binding:"required"`
	BaseFareCents  int64               `json:"base_fare_cents"`
	RatePerKmCents int64               `json:"rate_per_km_cents"`
	Stops          []createStopRequest `json:"stops" binding:"required,min=1"`
}

type createStopRequest struct {
	Name      string `json:"name" binding:"required"`
	PositionM int64  `json:"position_m"`
}

type routeResponse struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	BaseFareCents  int64          `json:"base_fare_cents"`
	RatePerKmCents int64          `json:"rate_per_km_cents"`
	Stops          []stopResponse `json:"stops"`
}

type stopResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PositionM int64  `json:"position_m"`
}

func (h *AdminHandler) CreateRoute(c *gin.Context) {
	var req createRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()
	r := &route.Route{
		Name:      req.Name,
		BaseFare:  types.Money(req.BaseFareCents),
		RatePerKm: types.Money(req.RatePerKmCents),
	}
	if err := h.routes.CreateRoute(ctx, r); err != nil {
		writeEngineError(c, err)
		return
	}
	for _, st := range req.Stops {
		stopID, err := h.routes.CreateStop(ctx, st.Name)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		if _, err := h.routes.AddStop(ctx, r.ID, stopID, st.PositionM); err != nil {
			writeEngineError(c, err)
			return
		}
	}
	created, err := h.routes.GetRoute(ctx, r.ID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toRouteResponse(created))
}

func (h *AdminHandler) GetRoute(c *gin.Context) {
	r, err := h.routes.GetRoute(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRouteResponse(r))
}

func (h *AdminHandler) ListRoutes(c *gin.Context) {
	rs, err := h.routes.ListRoutes(c.Request.Context())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	out := make([]routeResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRouteResponse(r))
	}
	writeJSON(c, http.StatusOK, gin.H{"routes": out})
}

type createShuttleRequest struct {
	Name     string `json:"name" binding:"required"`
	Capacity int    `json:"capacity"`
}

func (h *AdminHandler) CreateShuttle(c *gin.Context) {
	var req createShuttleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	sh := &session.Shuttle{ID: types.NewID(), Name: req.Name, Capacity: req.Capacity}
	if err := h.shuttles.CreateShuttle(c.Request.Context(), sh); err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toShuttleResponse(sh))
}

func (h *AdminHandler) ListShuttles(c *gin.Context) {
	shs, err := h.shuttles.ListShuttles(c.Request.Context())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	out := make([]gin.H, 0, len(shs))
	for _, sh := range shs {
		out = append(out, toShuttleResponse(sh))
	}
	writeJSON(c, http.StatusOK, gin.H{"shuttles": out})
}

func (h *AdminHandler) ListRiders(c *gin.Context) {
	rs, err := h.riders.List(c.Request.Context())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	out := make([]riderResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRiderResponse(r))
	}
	writeJSON(c, http.StatusOK, gin.H{"riders": out})
}

type adjustRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
}

// Adjust applies a signed correction to a rider's wallet. Unlike rider
// debits it may push the balance negative.
func (h *AdminHandler) Adjust(c *gin.Context) {
	r, err := h.riders.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.wallets.Adjust(c.Request.Context(), r.ID, types.Money(req.AmountCents), req.Reason)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toTransactionResponse(tx))
}

// Ledger returns the full append-only transaction log.
func (h *AdminHandler) Ledger(c *gin.Context) {
	txs, err := h.wallets.Ledger(c.Request.Context())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(c, http.StatusOK, gin.H{"transactions": out})
}

// ActiveTrip shows a rider's open trip, if any.
func (h *AdminHandler) ActiveTrip(c *gin.Context) {
	r, err := h.riders.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	t, err := h.trips.ActiveTrip(c.Request.Context(), r.ID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if t == nil {
		writeJSON(c, http.StatusOK, gin.H{"trip": nil})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"trip": toTripResponse(t)})
}

func (h *AdminHandler) ListRunningSessions(c *gin.Context) {
	ss, err := h.sessions.ListRunning(c.Request.Context())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	out := make([]sessionResponse, 0, len(ss))
	for _, s := range ss {
		out = append(out, toSessionResponse(s, ""))
	}
	writeJSON(c, http.StatusOK, gin.H{"sessions": out})
}

func toRouteResponse(r *route.Route) routeResponse {
	out := routeResponse{
		ID:             string(r.ID),
		Name:           r.Name,
		BaseFareCents:  int64(r.BaseFare),
		RatePerKmCents: int64(r.RatePerKm),
		Stops:          make([]stopResponse, 0, len(r.Stops)),
	}
	for _, st := range r.Stops {
		out.Stops = append(out.Stops, stopResponse{
			ID:        string(st.ID),
			Name:      st.Name,
			PositionM: st.PositionM,
		})
	}
	return out
}

func toShuttleResponse(sh *session.Shuttle) gin.H {
	return gin.H{"id": string(sh.ID), "name": sh.Name, "capacity": sh.Capacity}
}
