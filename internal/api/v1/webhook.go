package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/service"
)

// SignatureHeader carries the payment provider's signed-payload signature
const SignatureHeader = "Signature"

type WebhookHandler struct {
	service service.WebhookService
	log     *logger.Logger
}

func NewWebhookHandler(service service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, log: log}
}

// HandlePaymentEvent receives one signed payment provider event. The provider
// only needs the 200 acknowledgement; processing detail stays internal.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	ctx := c.Request.Context()

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	outcome, err := h.service.ProcessEvent(ctx, payload, c.GetHeader(SignatureHeader))
	if err != nil {
		h.log.Errorw("failed to process payment event", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": outcome.Received})
}
