package handler

import (
	"tourhub/internal/middleware"
	"tourhub/internal/repository"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	svc      *service.BookingService
	payments *service.PaymentService
}

func NewBookingHandler(svc *service.BookingService, payments *service.PaymentService) *BookingHandler {
	return &BookingHandler{svc: svc, payments: payments}
}

type CreateBookingRequest struct {
	TourID          uint     `json:"tour_id" binding:"required"`
	NumberOfPeople  int      `json:"number_of_people" binding:"required,min=1"`
	TotalAmount     *float64 `json:"total_amount" binding:"omitempty,gt=0"`
	PaymentMethod   string   `json:"payment_method" binding:"omitempty,oneof=ONLINE COD"`
	SpecialRequests string   `json:"special_requests" binding:"max=1000"`
}

type UpdateBookingRequest struct {
	NumberOfPeople  *int    `json:"number_of_people" binding:"omitempty,min=1"`
	SpecialRequests *string `json:"special_requests" binding:"omitempty,max=1000"`
}

type BookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func bookingFilter(c *gin.Context) repository.BookingFilter {
	return repository.BookingFilter{
		TourID:        queryUint(c, "tourId"),
		Status:        c.Query("status"),
		PaymentStatus: c.Query("paymentStatus"),
	}
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	b, err := h.svc.Create(c.Request.Context(), actorOf(c), service.CreateBookingInput{
		TourID:           req.TourID,
		NumberOfPeople:   req.NumberOfPeople,
		TotalAmountCents: centsPtr(req.TotalAmount),
		PaymentMethod:    req.PaymentMethod,
		SpecialRequests:  req.SpecialRequests,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "Booking created successfully", b)
}

func (h *BookingHandler) List(c *gin.Context) {
	f := bookingFilter(c)
	f.UserID = queryUint(c, "userId")
	f.HostID = queryUint(c, "hostId")
	p := parsePage(c)
	list, total, err := h.svc.List(f, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Bookings retrieved", list, p.Meta(total))
}

func (h *BookingHandler) MyBookings(c *gin.Context) {
	p := parsePage(c)
	list, total, err := h.svc.MyBookings(middleware.GetUserID(c), bookingFilter(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Bookings retrieved", list, p.Meta(total))
}

func (h *BookingHandler) HostBookings(c *gin.Context) {
	p := parsePage(c)
	list, total, err := h.svc.HostBookings(middleware.GetUserID(c), bookingFilter(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Bookings retrieved", list, p.Meta(total))
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	b, err := h.svc.Get(actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Booking retrieved", b)
}

func (h *BookingHandler) PaymentInfo(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	info, err := h.svc.PaymentInfo(actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Payment info retrieved", info)
}

func (h *BookingHandler) InitiatePayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	co, err := h.payments.InitiateBookingPayment(c.Request.Context(), actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Checkout session created", co)
}

func (h *BookingHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	b, err := h.svc.Update(c.Request.Context(), actorOf(c), id, service.UpdateBookingInput{
		NumberOfPeople:  req.NumberOfPeople,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Booking updated successfully", b)
}

func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req BookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	b, err := h.svc.UpdateStatus(c.Request.Context(), actorOf(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Booking status updated", b)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	b, err := h.svc.Cancel(c.Request.Context(), actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Booking cancelled successfully", b)
}

func (h *BookingHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Booking deleted successfully", nil)
}

func (h *BookingHandler) HostStats(c *gin.Context) {
	stats, err := h.svc.HostStats(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Booking statistics retrieved", stats)
}

func (h *BookingHandler) UserStats(c *gin.Context) {
	stats, err := h.svc.UserStats(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Booking statistics retrieved", stats)
}
