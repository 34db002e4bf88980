package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shuttle/internal/modules/rider"
	"shuttle/internal/modules/wallet"
	"shuttle/internal/types"
)

// WalletHandler exposes a rider's balance, top-ups, and ride history.
type WalletHandler struct {
	wallets *wallet.Service
	riders  rider.Store
}

func NewWalletHandler(wallets *wallet.Service, riders rider.Store) *WalletHandler {
	return &WalletHandler{wallets: wallets, riders: riders}
}

type balanceResponse struct {
	RiderID      string `json:"rider_id"`
	BalanceCents int64  `json:"balance_cents"`
	Balance      string `json:"balance"`
}

func (h *WalletHandler) Balance(c *gin.Context) {
	r, err := h.resolve(c)
	if err != nil {
		return
	}
	bal, err := h.wallets.Balance(c.Request.Context(), r.ID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, balanceResponse{
		RiderID:      string(r.ID),
		BalanceCents: int64(bal),
		Balance:      bal.String(),
	})
}

type topUpRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

func (h *WalletHandler) TopUp(c *gin.Context) {
	r, err := h.resolve(c)
	if err != nil {
		return
	}
	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.wallets.Credit(c.Request.Context(), r.ID, types.Money(req.AmountCents), "top-up")
	if err != nil {
		writeEngineError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toTransactionResponse(tx))
}

type transactionResponse struct {
	ID          string    `json:"id"`
	RiderID     string    `json:"rider_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Amount      string    `json:"amount"`
	Reason      string    `json:"reason"`
	TripID      *string   `json:"trip_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *WalletHandler) History(c *gin.Context) {
	r, err := h.resolve(c)
	if err != nil {
		return
	}
	txs, err := h.wallets.History(c.Request.Context(), r.ID)
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

// Rides is the rider's ride history: trip-linked debits, newest first.
func (h *WalletHandler) Rides(c *gin.Context) {
	r, err := h.resolve(c)
	if err != nil {
		return
	}
	txs, err := h.wallets.History(c.Request.Context(), r.ID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	out := make([]transactionResponse, 0)
	for _, tx := range txs {
		if tx.Kind == wallet.KindDebit && tx.TripID != nil {
			out = append(out, toTransactionResponse(tx))
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"rides": out})
}

// resolve loads the rider from the :username path segment, writing the
// error response itself on failure.
func (h *WalletHandler) resolve(c *gin.Context) (*rider.Rider, error) {
	r, err := h.riders.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeEngineError(c, err)
		return nil, err
	}
	return r, nil
}

func toTransactionResponse(tx wallet.Transaction) transactionResponse {
	out := transactionResponse{
		ID:          string(tx.ID),
		RiderID:     string(tx.RiderID),
		Kind:        string(tx.Kind),
		AmountCents: int64(tx.Amount),
		Amount:      tx.Amount.String(),
		Reason:      tx.Reason,
		CreatedAt:   tx.CreatedAt,
	}
	if tx.TripID != nil {
		s := string(*tx.TripID)
		out.TripID = &s
	}
	return out
}
