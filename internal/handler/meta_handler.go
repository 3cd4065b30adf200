package handler

import (
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type MetaHandler struct {
	svc *service.MetaService
}

func NewMetaHandler(svc *service.MetaService) *MetaHandler {
	return &MetaHandler{svc: svc}
}

// Dashboard returns the statistics for the caller's role.
func (h *MetaHandler) Dashboard(c *gin.Context) {
	data, err := h.svc.Dashboard(actorOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Dashboard data retrieved", data)
}
