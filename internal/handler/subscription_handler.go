package handler

import (
	"tourhub/internal/domain"
	"tourhub/internal/middleware"
	"tourhub/internal/repository"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	svc      *service.SubscriptionService
	payments *service.PaymentService
}

func NewSubscriptionHandler(svc *service.SubscriptionService, payments *service.PaymentService) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, payments: payments}
}

// PlanRequest carries the price in currency units. A null blog_limit with unlimited_blogs removes the cap.
type PlanRequest struct {
	Name           *string  `json:"name"`
	Description    *string  `json:"description"`
	Price          *float64 `json:"price" binding:"omitempty,gte=0"`
	Currency       *string  `json:"currency"`
	DurationMonths *int     `json:"duration_months" binding:"omitempty,min=1"`
	TourLimit      *int     `json:"tour_limit" binding:"omitempty,min=1"`
	BlogLimit      *int     `json:"blog_limit" binding:"omitempty,min=0"`
	UnlimitedBlogs *bool    `json:"unlimited_blogs"`
	Features       []string `json:"features"`
	IsActive       *bool    `json:"is_active"`
}

func (r PlanRequest) input() service.PlanInput {
	return service.PlanInput{
		Name:           r.Name,
		Description:    r.Description,
		PriceCents:     centsPtr(r.Price),
		Currency:       r.Currency,
		DurationMonths: r.DurationMonths,
		TourLimit:      r.TourLimit,
		BlogLimit:      r.BlogLimit,
		UnlimitedBlogs: r.UnlimitedBlogs,
		Features:       r.Features,
		IsActive:       r.IsActive,
	}
}

type SubscribeRequest struct {
	PlanID uint `json:"plan_id" binding:"required"`
}

type AdminSubscriptionRequest struct {
	Status          *string `json:"status"`
	ExtendDays      *int    `json:"extend_days" binding:"omitempty,min=1"`
	AdjustTourLimit *int    `json:"adjust_tour_limit"`
	AdjustBlogLimit *int    `json:"adjust_blog_limit"`
	AdminNotes      *string `json:"admin_notes"`
}

func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	activeOnly := middleware.GetRole(c) != domain.RoleAdmin || c.Query("all") != "true"
	plans, err := h.svc.ListPlans(activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Plans retrieved", plans)
}

func (h *SubscriptionHandler) GetPlan(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetPlan(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Plan retrieved", p)
}

func (h *SubscriptionHandler) CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.svc.CreatePlan(req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "Plan created successfully", p)
}

func (h *SubscriptionHandler) UpdatePlan(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.svc.UpdatePlan(id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Plan updated successfully", p)
}

func (h *SubscriptionHandler) DeletePlan(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePlan(id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Plan deleted successfully", nil)
}

func (h *SubscriptionHandler) InitializePlans(c *gin.Context) {
	plans, created, err := h.svc.InitializePlans()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Plans initialized", gin.H{"plans": plans, "created": created})
}

func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.svc.Subscribe(c.Request.Context(), actorOf(c), req.PlanID)
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "Subscription activated"
	if res.Checkout != nil {
		msg = "Subscription created, complete the payment to activate it"
	}
	respondCreated(c, msg, res)
}

func (h *SubscriptionHandler) InitiatePayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	co, err := h.payments.InitiateSubscriptionPayment(c.Request.Context(), actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Checkout session created", co)
}

func (h *SubscriptionHandler) MySubscription(c *gin.Context) {
	cur, err := h.svc.MySubscription(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Subscription retrieved", cur)
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	sub, err := h.svc.Cancel(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Subscription cancelled", sub)
}

func (h *SubscriptionHandler) List(c *gin.Context) {
	p := parsePage(c)
	list, total, err := h.svc.List(repository.SubscriptionFilter{
		Status: c.Query("status"),
		PlanID: queryUint(c, "planId"),
		HostID: queryUint(c, "hostId"),
	}, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Subscriptions retrieved", list, p.Meta(total))
}

func (h *SubscriptionHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sub, err := h.svc.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Subscription retrieved", sub)
}

func (h *SubscriptionHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AdminSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	sub, err := h.svc.Update(c.Request.Context(), id, service.AdminSubscriptionUpdate{
		Status:          req.Status,
		ExtendDays:      req.ExtendDays,
		AdjustTourLimit: req.AdjustTourLimit,
		AdjustBlogLimit: req.AdjustBlogLimit,
		AdminNotes:      req.AdminNotes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Subscription updated", sub)
}

func (h *SubscriptionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Subscription deleted", nil)
}

func (h *SubscriptionHandler) Overview(c *gin.Context) {
	o, err := h.svc.Overview()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Subscription overview retrieved", o)
}
