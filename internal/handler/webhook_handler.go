package handler

import (
	"io"
	"net/http"

	"tourhub/internal/apperr"
	"tourhub/internal/logger"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	payments        *service.PaymentService
	signatureHeader string
}

func NewWebhookHandler(payments *service.PaymentService, signatureHeader string) *WebhookHandler {
	return &WebhookHandler{payments: payments, signatureHeader: signatureHeader}
}

// Handle verifies and settles one provider event. Any 5xx makes the provider redeliver.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid body")
		return
	}
	if len(body) > maxWebhookBody {
		respondFail(c, http.StatusRequestEntityTooLarge, "Webhook payload too large")
		return
	}
	sig := c.GetHeader(h.signatureHeader)
	if sig == "" {
		respondFail(c, http.StatusBadRequest, "Missing webhook signature")
		return
	}
	if err := h.payments.HandleWebhook(c.Request.Context(), body, sig); err != nil {
		status := apperr.StatusOf(err)
		if status < http.StatusInternalServerError {
			respondError(c, err)
			return
		}
		logger.For("webhook").WithError(err).Error("webhook processing failed")
		respondFail(c, http.StatusInternalServerError, "Webhook processing failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
