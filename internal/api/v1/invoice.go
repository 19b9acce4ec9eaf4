package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hoststack/hoststack/internal/api/dto"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/service"
)

type InvoiceHandler struct {
	service service.SweepService
	log     *logger.Logger
}

func NewInvoiceHandler(service service.SweepService, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: service, log: log}
}

// MarkPaid records a confirmed renewal payment against an invoice and
// advances the subscription's billing anchor.
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	ctx := c.Request.Context()

	inv, err := h.service.MarkInvoicePaid(ctx, c.Param("id"))
	if err != nil {
		h.log.Errorw("failed to mark invoice paid", "invoice_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponse(inv))
}
