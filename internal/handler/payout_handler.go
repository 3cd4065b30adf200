package handler

import (
	"tourhub/internal/middleware"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type PayoutHandler struct {
	svc *service.PayoutService
}

func NewPayoutHandler(svc *service.PayoutService) *PayoutHandler {
	return &PayoutHandler{svc: svc}
}

// PayoutRequestBody carries the amount in currency units.
type PayoutRequestBody struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Destination string  `json:"destination"`
}

func (h *PayoutHandler) Request(c *gin.Context) {
	var req PayoutRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.svc.Request(c.Request.Context(), actorOf(c), service.PayoutRequest{
		AmountCents: toCents(req.Amount),
		Destination: req.Destination,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "Payout processed", p)
}

func (h *PayoutHandler) List(c *gin.Context) {
	p := parsePage(c)
	res, err := h.svc.List(middleware.GetUserID(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Payouts retrieved", res, p.Meta(res.Total))
}

func (h *PayoutHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Payout statistics retrieved", stats)
}

func (h *PayoutHandler) Ledger(c *gin.Context) {
	p := parsePage(c)
	entries, total, err := h.svc.Ledger(middleware.GetUserID(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Ledger retrieved", entries, p.Meta(total))
}
