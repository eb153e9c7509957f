package handler

import (
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/invoicelens/invoice-scan/dto"
	"github.com/invoicelens/invoice-scan/service"
)

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	maxFileSize    int64
}

func NewInvoiceHandler(invoiceService *service.InvoiceService, maxFileSize int64) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		maxFileSize:    maxFileSize,
	}
}

func (h *InvoiceHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1/invoices")
	api.POST("/upload", h.Upload)
	api.GET("", h.List)
	api.GET("/:id", h.Get)
	api.PUT("/:id", h.Update)
	api.DELETE("/:id", h.Delete)
}

// Upload handles POST /api/v1/invoices/upload
func (h *InvoiceHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "No file provided", err)
		return
	}
	if fileHeader.Size > h.maxFileSize {
		h.sendError(c, http.StatusRequestEntityTooLarge, "File exceeds the upload size limit", nil)
		return
	}
	if !allowedUpload(fileHeader.Filename) {
		h.sendError(c, http.StatusBadRequest, "Unsupported file type, expected an image or PDF", nil)
		return
	}

	log.Printf("Received upload %s (%d bytes)", fileHeader.Filename, fileHeader.Size)

	response, err := h.invoiceService.ProcessUpload(c.Request.Context(), fileHeader)
	if err != nil {
		if errors.Is(err, dto.ErrUnreadableImage) {
			h.sendError(c, http.StatusUnprocessableEntity, "Document could not be read", err)
			return
		}
		h.sendError(c, http.StatusInternalServerError, "Failed to process invoice", err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// List handles GET /api/v1/invoices, optionally filtered with ?status=
func (h *InvoiceHandler) List(c *gin.Context) {
	records, err := h.invoiceService.ListInvoices(c.Request.Context(), c.Query("status"))
	if err != nil {
		if errors.Is(err, dto.ErrInvalidStatus) {
			h.sendError(c, http.StatusBadRequest, "Unknown status filter", err)
			return
		}
		h.sendError(c, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// Get handles GET /api/v1/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	record, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, dto.ErrRecordNotFound) {
			h.sendError(c, http.StatusNotFound, "Invoice not found", err)
			return
		}
		h.sendError(c, http.StatusInternalServerError, "Failed to load invoice", err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// Update handles PUT /api/v1/invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	var req dto.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	record, err := h.invoiceService.UpdateInvoice(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, dto.ErrRecordNotFound):
			h.sendError(c, http.StatusNotFound, "Invoice not found", err)
		case errors.Is(err, dto.ErrInvalidStatus):
			h.sendError(c, http.StatusBadRequest, "Unknown invoice status", err)
		default:
			h.sendError(c, http.StatusInternalServerError, "Failed to update invoice", err)
		}
		return
	}

	c.JSON(http.StatusOK, record)
}

// Delete handles DELETE /api/v1/invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, dto.ErrRecordNotFound) {
			h.sendError(c, http.StatusNotFound, "Invoice not found", err)
			return
		}
		h.sendError(c, http.StatusInternalServerError, "Failed to delete invoice", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func allowedUpload(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp":
		return true
	}
	return false
}

// sendError sends a structured error response
func (h *InvoiceHandler) sendError(c *gin.Context, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = err.Error()
		log.Printf("Error: %s - %v", message, err)
	}

	c.JSON(statusCode, dto.ErrorResponse{
		Error:   "INVOICE_REQUEST_FAILED",
		Message: errorMsg,
		Code:    statusCode,
	})
}
