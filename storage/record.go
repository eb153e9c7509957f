package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoicelens/invoice-scan/dto"
)

// LineItems stores the parsed line-item rows as a JSON column. A dedicated
// child table buys nothing here: rows are always read and written with their
// invoice and never queried on their own.
type LineItems []dto.LineItemRow

func (li LineItems) Value() (driver.Value, error) {
	if len(li) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(li)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (li *LineItems) Scan(value interface{}) error {
	if value == nil {
		*li = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported line items column type %T", value)
	}
	return json.Unmarshal(b, li)
}

// Flags stores the engine's advisory flags alongside the record so the
// review UI can show why a field needs a second look.
type Flags []dto.ReconciliationFlag

func (f Flags) Value() (driver.Value, error) {
	if len(f) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *Flags) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported flags column type %T", value)
	}
	return json.Unmarshal(b, f)
}

// InvoiceRecord is the persisted form of one processed upload. Nullable
// columns mirror the engine's nil-means-unknown convention; a NULL subtotal
// was never recognized, a 0.00 subtotal was.
type InvoiceRecord struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Filename  string
	ImagePath string
	Status    string `gorm:"index"`

	Vendor        *string
	VendorAddress *string
	VendorEmail   *string
	VendorPhone   *string
	InvoiceNumber *string `gorm:"index"`
	InvoiceDate   *time.Time
	DueDate       *time.Time
	PurchaseOrder *string

	Subtotal *decimal.Decimal `gorm:"type:numeric(12,2)"`
	Tax      *decimal.Decimal `gorm:"type:numeric(12,2)"`
	Discount *decimal.Decimal `gorm:"type:numeric(12,2)"`
	Total    *decimal.Decimal `gorm:"type:numeric(12,2)"`
	Currency string

	LineItems LineItems `gorm:"type:jsonb"`
	Flags     Flags     `gorm:"type:jsonb"`
	RawText   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (InvoiceRecord) TableName() string {
	return "invoice_records"
}
