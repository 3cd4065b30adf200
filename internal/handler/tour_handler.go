package handler

import (
	"time"

	"tourhub/internal/apperr"
	"tourhub/internal/middleware"
	"tourhub/internal/repository"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type TourHandler struct {
	svc *service.TourService
}

func NewTourHandler(svc *service.TourService) *TourHandler {
	return &TourHandler{svc: svc}
}

// TourRequest is shared by create and update. Prices are in currency units.
type TourRequest struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	DestinationID *uint    `json:"destination_id"`
	Destination   *string  `json:"destination"`
	City          *string  `json:"city"`
	Country       *string  `json:"country"`
	StartDate     *string  `json:"start_date"`
	EndDate       *string  `json:"end_date"`
	Duration      *int     `json:"duration" binding:"omitempty,min=1"`
	Price         *float64 `json:"price" binding:"omitempty,gt=0"`
	MaxGroupSize  *int     `json:"max_group_size" binding:"omitempty,min=1"`
	Category      *string  `json:"category"`
	Difficulty    *string  `json:"difficulty"`
	Included      []string `json:"included"`
	Excluded      []string `json:"excluded"`
	Itinerary     *string  `json:"itinerary"`
	MeetingPoint  *string  `json:"meeting_point"`
	IsActive      *bool    `json:"is_active"`
	IsFeatured    *bool    `json:"is_featured"`
}

func (r *TourRequest) input() (service.TourInput, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return service.TourInput{}, err
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return service.TourInput{}, err
	}
	return service.TourInput{
		Title:         r.Title,
		Description:   r.Description,
		DestinationID: r.DestinationID,
		Destination:   r.Destination,
		City:          r.City,
		Country:       r.Country,
		StartDate:     start,
		EndDate:       end,
		Duration:      r.Duration,
		PriceCents:    centsPtr(r.Price),
		MaxGroupSize:  r.MaxGroupSize,
		Category:      r.Category,
		Difficulty:    r.Difficulty,
		Included:      r.Included,
		Excluded:      r.Excluded,
		Itinerary:     r.Itinerary,
		MeetingPoint:  r.MeetingPoint,
		IsActive:      r.IsActive,
		IsFeatured:    r.IsFeatured,
	}, nil
}

// parseDate accepts RFC 3339 timestamps or plain dates.
func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.BadRequestf("Invalid date %q (use YYYY-MM-DD)", *s)
}

func (h *TourHandler) tourFilter(c *gin.Context) (repository.TourFilter, error) {
	from, err := parseDate(strPtr(c.Query("startDate")))
	if err != nil {
		return repository.TourFilter{}, err
	}
	to, err := parseDate(strPtr(c.Query("endDate")))
	if err != nil {
		return repository.TourFilter{}, err
	}
	return repository.TourFilter{
		Search:     c.Query("searchTerm"),
		Category:   c.Query("category"),
		Difficulty: c.Query("difficulty"),
		City:       c.Query("city"),
		Country:    c.Query("country"),
		MinPrice:   queryCents(c, "minPrice"),
		MaxPrice:   queryCents(c, "maxPrice"),
		Featured:   queryBool(c, "isFeatured"),
		StartFrom:  from,
		StartTo:    to,
	}, nil
}

func strPtr(s string) *string { return &s }

func (h *TourHandler) Create(c *gin.Context) {
	var req TourRequest
	if err := bindBody(c, &req); err != nil {
		bindError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err)
		return
	}
	images, closeFiles, err := formFiles(c, "images")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFiles()
	t, err := h.svc.Create(c.Request.Context(), actorOf(c), in, images)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "Tour created successfully", t)
}

func (h *TourHandler) List(c *gin.Context) {
	f, err := h.tourFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	p := parsePage(c)
	tours, total, err := h.svc.List(f, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Tours retrieved", tours, p.Meta(total))
}

func (h *TourHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Tour retrieved", t)
}

func (h *TourHandler) MyTours(c *gin.Context) {
	f, err := h.tourFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	p := parsePage(c)
	tours, total, err := h.svc.HostTours(middleware.GetUserID(c), f, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Tours retrieved", tours, p.Meta(total))
}

func (h *TourHandler) MyTour(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.HostTour(middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Tour retrieved", t)
}

func (h *TourHandler) HostStats(c *gin.Context) {
	stats, err := h.svc.HostStats(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Tour statistics retrieved", stats)
}

func (h *TourHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req TourRequest
	if err := bindBody(c, &req); err != nil {
		bindError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err)
		return
	}
	images, closeFiles, err := formFiles(c, "images")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFiles()
	t, err := h.svc.Update(c.Request.Context(), actorOf(c), id, in, images)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Tour updated successfully", t)
}

func (h *TourHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Tour deleted successfully", nil)
}

func (h *TourHandler) Complete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.Complete(c.Request.Context(), actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Tour completed successfully", gin.H{"completed_bookings": n})
}
