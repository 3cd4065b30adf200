package handler

import (
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type DestinationHandler struct {
	svc *service.DestinationService
}

func NewDestinationHandler(svc *service.DestinationService) *DestinationHandler {
	return &DestinationHandler{svc: svc}
}

type DestinationRequest struct {
	Name        *string `json:"name"`
	Country     *string `json:"country"`
	Description *string `json:"description"`
}

func (r DestinationRequest) input() service.DestinationInput {
	return service.DestinationInput{Name: r.Name, Country: r.Country, Description: r.Description}
}

func (h *DestinationHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Query("searchTerm"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Destinations retrieved", list)
}

func (h *DestinationHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := h.svc.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Destination retrieved", d)
}

func (h *DestinationHandler) Create(c *gin.Context) {
	h.save(c, 0)
}

func (h *DestinationHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.save(c, id)
}

func (h *DestinationHandler) save(c *gin.Context, id uint) {
	var req DestinationRequest
	if err := bindBody(c, &req); err != nil {
		bindError(c, err)
		return
	}
	image, closeFiles, err := formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFiles()
	if id == 0 {
		d, err := h.svc.Create(c.Request.Context(), req.input(), image)
		if err != nil {
			respondError(c, err)
			return
		}
		respondCreated(c, "Destination created successfully", d)
		return
	}
	d, err := h.svc.Update(c.Request.Context(), id, req.input(), image)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Destination updated successfully", d)
}

func (h *DestinationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Destination deleted successfully", nil)
}
