package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineHint is an optional per-line vertical position supplied by the
// recognition engine alongside the raw text.
type LineHint struct {
	Text string  `json:"text"`
	Y    float64 `json:"y"`
}

// RecognizedText is the output of the recognition boundary: the raw text
// block plus whatever line positions the recognizer could provide.
type RecognizedText struct {
	Text           string     `json:"text"`
	Lines          []LineHint `json:"lines,omitempty"`
	MeanConfidence float64    `json:"mean_confidence"`
}

// Line is one normalized line of recognized text. Index is reading order,
// top to bottom. YPos is nil when the recognizer gave no positions.
type Line struct {
	Index int
	Text  string
	YPos  *float64
}

// FieldName identifies one extractable invoice field.
type FieldName string

const (
	FieldVendorName    FieldName = "vendor"
	FieldVendorAddress FieldName = "vendor_address"
	FieldVendorEmail   FieldName = "vendor_email"
	FieldVendorPhone   FieldName = "vendor_phone"
	FieldInvoiceNumber FieldName = "invoice_number"
	FieldInvoiceDate   FieldName = "invoice_date"
	FieldDueDate       FieldName = "due_date"
	FieldPurchaseOrder FieldName = "purchase_order"
	FieldSubtotal      FieldName = "subtotal"
	FieldTax           FieldName = "tax"
	FieldDiscount      FieldName = "discount"
	FieldTotal         FieldName = "total"
	FieldCurrency      FieldName = "currency"
)

// FieldCandidate is a provisional, confidence-scored value for one field.
// Text always holds the raw matched token; Date and Amount are set when the
// field is typed. Multiple candidates may exist per field; at most one wins.
type FieldCandidate struct {
	Field      FieldName
	Text       string
	Date       *time.Time
	Amount     *decimal.Decimal
	Confidence float64
	SourceLine int
	MatcherID  string
}

// LineItemRow is one parsed row of the line-item table.
type LineItemRow struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"rate"`
	LineTotal   decimal.Decimal `json:"amount"`
	SourceLine  int             `json:"source_line"`
}

// FlagKind enumerates the advisory conditions the engine can raise.
type FlagKind string

const (
	FlagAmountMismatch      FlagKind = "amount_mismatch"
	FlagMissingTotal        FlagKind = "missing_total"
	FlagAmbiguousVendor     FlagKind = "ambiguous_vendor"
	FlagNoLineItemsDetected FlagKind = "no_line_items_detected"
	FlagAmbiguousDate       FlagKind = "ambiguous_date"
)

// ReconciliationFlag is advisory only; it never blocks record creation.
type ReconciliationFlag struct {
	Kind   FlagKind `json:"kind"`
	Detail string   `json:"detail"`
}

// ExtractedInvoice is the engine's output. It is immutable after return:
// downstream edits produce a new persisted record version, never a mutation
// of this value. Nil pointers mean "unknown", which is distinct from zero —
// a missing discount is not the same thing as a discount of 0.00.
type ExtractedInvoice struct {
	Vendor        *string          `json:"vendor"`
	VendorAddress *string          `json:"vendor_address"`
	VendorEmail   *string          `json:"vendor_email"`
	VendorPhone   *string          `json:"vendor_phone"`
	InvoiceNumber *string          `json:"invoice_number"`
	InvoiceDate   *time.Time       `json:"invoice_date"`
	DueDate       *time.Time       `json:"due_date"`
	PurchaseOrder *string          `json:"purchase_order"`
	Items         []LineItemRow    `json:"items"`
	Subtotal      *decimal.Decimal `json:"subtotal"`
	Tax           *decimal.Decimal `json:"tax"`
	Discount      *decimal.Decimal `json:"discount"`
	Total         *decimal.Decimal `json:"total"`
	Currency      string           `json:"currency"`
	RawText       string           `json:"raw_text"`

	Confidence map[FieldName]float64 `json:"confidence"`
	Flags      []ReconciliationFlag  `json:"flags"`
}
