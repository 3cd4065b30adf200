package handler

import (
	"tourhub/internal/middleware"
	"tourhub/internal/repository"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	svc *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func paymentFilter(c *gin.Context) (repository.PaymentFilter, error) {
	from, err := parseDate(strPtr(c.Query("from")))
	if err != nil {
		return repository.PaymentFilter{}, err
	}
	to, err := parseDate(strPtr(c.Query("to")))
	if err != nil {
		return repository.PaymentFilter{}, err
	}
	return repository.PaymentFilter{
		Status: c.Query("status"),
		Kind:   c.Query("type"),
		From:   from,
		To:     to,
	}, nil
}

func (h *PaymentHandler) History(c *gin.Context) {
	f, err := paymentFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	p := parsePage(c)
	list, total, err := h.svc.UserHistory(middleware.GetUserID(c), f, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Payment history retrieved", list, p.Meta(total))
}

func (h *PaymentHandler) HostEarnings(c *gin.Context) {
	e, err := h.svc.HostEarnings(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Earnings retrieved", e)
}

func (h *PaymentHandler) List(c *gin.Context) {
	f, err := paymentFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	f.UserID = queryUint(c, "userId")
	p := parsePage(c)
	res, err := h.svc.List(f, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Payments retrieved", res, p.Meta(res.Total))
}
