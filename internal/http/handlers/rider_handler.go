package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shuttle/internal/modules/rider"
	"shuttle/internal/types"
)

type RiderHandler struct {
	riders rider.Store
	now    func() time.Time
}

func NewRiderHandler(riders rider.Store) *RiderHandler {
	return &RiderHandler{riders: riders, now: time.Now}
}

type registerRiderRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
}

type riderResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *RiderHandler) Register(c *gin.Context) {
	var req registerRiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	r := &rider.Rider{
		ID:        types.NewID(),
		Username:  req.Username,
		Email:     req.Email,
		CreatedAt: h.now(),
	}
	if err := h.riders.Create(c.Request.Context(), r); err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toRiderResponse(r))
}

func (h *RiderHandler) Get(c *gin.Context) {
	r, err := h.riders.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRiderResponse(r))
}

func toRiderResponse(r *rider.Rider) riderResponse {
	return riderResponse{ID: string(r.ID), Username: r.Username, Email: r.Email}
}
