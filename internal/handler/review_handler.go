package handler

import (
	"strconv"

	"tourhub/internal/middleware"
	"tourhub/internal/repository"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	svc *service.ReviewService
}

func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

type CreateReviewRequest struct {
	BookingID uint   `json:"booking_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Comment   string `json:"comment" binding:"max=2000"`
}

type UpdateReviewRequest struct {
	Rating     *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Comment    *string `json:"comment" binding:"omitempty,max=2000"`
	IsApproved *bool   `json:"is_approved"`
}

func reviewFilter(c *gin.Context) repository.ReviewFilter {
	f := repository.ReviewFilter{}
	if r, err := strconv.Atoi(c.Query("rating")); err == nil {
		f.Rating = &r
	}
	return f
}

func (h *ReviewHandler) Create(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	r, err := h.svc.Create(c.Request.Context(), actorOf(c), service.CreateReviewInput{
		BookingID: req.BookingID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "Review created successfully", r)
}

func (h *ReviewHandler) List(c *gin.Context) {
	f := reviewFilter(c)
	f.TourID = queryUint(c, "tourId")
	f.HostID = queryUint(c, "hostId")
	f.TouristID = queryUint(c, "touristId")
	f.IsApproved = queryBool(c, "isApproved")
	p := parsePage(c)
	list, total, err := h.svc.List(f, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Reviews retrieved", list, p.Meta(total))
}

func (h *ReviewHandler) TourReviews(c *gin.Context) {
	id, ok := parseID(c, "tourId")
	if !ok {
		return
	}
	p := parsePage(c)
	res, err := h.svc.TourReviews(id, reviewFilter(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Tour reviews retrieved", res, p.Meta(res.Total))
}

func (h *ReviewHandler) HostReviews(c *gin.Context) {
	id, ok := parseID(c, "hostId")
	if !ok {
		return
	}
	p := parsePage(c)
	res, err := h.svc.HostReviews(id, reviewFilter(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Host reviews retrieved", res, p.Meta(res.Total))
}

func (h *ReviewHandler) MyReviews(c *gin.Context) {
	p := parsePage(c)
	list, total, err := h.svc.MyReviews(middleware.GetUserID(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Reviews retrieved", list, p.Meta(total))
}

func (h *ReviewHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	r, err := h.svc.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Review retrieved", r)
}

func (h *ReviewHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	r, err := h.svc.Update(c.Request.Context(), actorOf(c), id, service.UpdateReviewInput{
		Rating:     req.Rating,
		Comment:    req.Comment,
		IsApproved: req.IsApproved,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Review updated successfully", r)
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Review deleted successfully", nil)
}

func (h *ReviewHandler) Summary(c *gin.Context) {
	s, err := h.svc.Summary()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Review summary retrieved", s)
}
