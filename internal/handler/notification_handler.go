package handler

import (
	"strconv"

	"tourhub/internal/middleware"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > maxPageSize {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, unread, err := h.svc.List(userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Notifications retrieved", gin.H{"notifications": list, "unread": unread})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Notification marked as read", nil)
}
