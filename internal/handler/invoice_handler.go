package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/response"
)

type invoiceService interface {
	Draft(ctx context.Context) (*models.InvoiceDraft, error)
	SendToFinance(ctx context.Context, senderID string) (*models.Invoice, error)
	List(ctx context.Context, page, pageSize int) ([]models.Invoice, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) (*models.Invoice, error)
	PDF(ctx context.Context, id string) ([]byte, *models.Invoice, error)
}

// InvoiceHandler exposes invoice endpoints.
type InvoiceHandler struct {
	invoices invoiceService
}

// NewInvoiceHandler constructs InvoiceHandler.
func NewInvoiceHandler(invoices invoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

type updateInvoiceStatusRequest struct {
	Status models.InvoiceStatus `json:"status" binding:"required"`
}

// Draft godoc
// @Summary Preview today's invoice without persisting it
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /invoices/draft [get]
func (h *InvoiceHandler) Draft(c *gin.Context) {
	draft, err := h.invoices.Draft(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Send godoc
// @Summary Generate today's invoice and notify finance
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /invoices [post]
func (h *InvoiceHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	invoice, err := h.invoices.SendToFinance(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}

// List godoc
// @Summary List invoices, newest first
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} response.Envelope
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	invoices, pagination, err := h.invoices.List(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, pagination)
}

// Get godoc
// @Summary Get a single invoice
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// UpdateStatus godoc
// @Summary Mark an invoice paid or unpaid
// @Tags Invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Param payload body updateInvoiceStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Router /invoices/{id}/status [put]
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	var req updateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	invoice, err := h.invoices.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// PDF godoc
// @Summary Download an invoice as PDF
// @Tags Invoices
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /invoices/{id}/pdf [get]
func (h *InvoiceHandler) PDF(c *gin.Context) {
	payload, invoice, err := h.invoices.PDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Blob(c, "application/pdf", fmt.Sprintf("%s.pdf", invoice.InvoiceNumber), payload)
}
