package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// UpdateInvoiceRequest carries user corrections to a persisted record.
// Pointer fields distinguish "leave unchanged" (nil) from "set". Edits never
// replay the extraction engine.
type UpdateInvoiceRequest struct {
	InvoiceNumber *string          `json:"invoice_number,omitempty"`
	Vendor        *string          `json:"vendor,omitempty"`
	VendorAddress *string          `json:"vendor_address,omitempty"`
	VendorEmail   *string          `json:"vendor_email,omitempty"`
	VendorPhone   *string          `json:"vendor_phone,omitempty"`
	InvoiceDate   *time.Time       `json:"invoice_date,omitempty"`
	DueDate       *time.Time       `json:"due_date,omitempty"`
	PurchaseOrder *string          `json:"purchase_order,omitempty"`
	Subtotal      *decimal.Decimal `json:"subtotal,omitempty"`
	Tax           *decimal.Decimal `json:"tax,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	Status        *string          `json:"status,omitempty"`
	LineItems     []LineItemRow    `json:"line_items,omitempty"`
}
