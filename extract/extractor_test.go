package extract

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/invoicelens/invoice-scan/dto"
)

const sampleInvoice = `Acme Supplies
123 Main Street
acme@supplies.com
Invoice #INV-2024-001
Date: 2024-01-15
Widget 2 10.00 20.00
Subtotal: 20.00
Tax: 2.00
Total: 22.00`

func hasFlag(flags []dto.ReconciliationFlag, kind dto.FlagKind) bool {
	for _, f := range flags {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

func TestExtractFullInvoice(t *testing.T) {
	inv := NewExtractor(DefaultOptions()).Extract(sampleInvoice, nil)

	if assert.NotNil(t, inv.Vendor) {
		assert.Equal(t, "Acme Supplies", *inv.Vendor)
	}
	if assert.NotNil(t, inv.VendorAddress) {
		assert.Equal(t, "123 Main Street", *inv.VendorAddress)
	}
	if assert.NotNil(t, inv.VendorEmail) {
		assert.Equal(t, "acme@supplies.com", *inv.VendorEmail)
	}
	if assert.NotNil(t, inv.InvoiceNumber) {
		assert.Equal(t, "INV-2024-001", *inv.InvoiceNumber)
	}
	// No phone appears anywhere in the document; unknown must stay nil
	// rather than being guessed from invoice-number or date digits.
	assert.Nil(t, inv.VendorPhone)
	if assert.NotNil(t, inv.InvoiceDate) {
		assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *inv.InvoiceDate)
	}

	if assert.Len(t, inv.Items, 1) {
		assert.Equal(t, "Widget", inv.Items[0].Description)
		assert.Equal(t, "2", inv.Items[0].Quantity.StringFixed(0))
		assert.Equal(t, "10.00", inv.Items[0].UnitPrice.StringFixed(2))
		assert.Equal(t, "20.00", inv.Items[0].LineTotal.StringFixed(2))
	}

	assert.Equal(t, "20.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "2.00", inv.Tax.StringFixed(2))
	assert.Nil(t, inv.Discount)
	assert.Equal(t, "22.00", inv.Total.StringFixed(2))
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, sampleInvoice, inv.RawText)
	assert.Empty(t, inv.Flags)
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor(DefaultOptions())
	a := e.Extract(sampleInvoice, nil)
	b := e.Extract(sampleInvoice, nil)
	assert.True(t, reflect.DeepEqual(a, b))
}

func TestExtractDerivesMissingTotal(t *testing.T) {
	text := "Acme Supplies\nInvoice #INV-2024-001\nSubtotal: 20.00\nTax: 2.00"
	inv := NewExtractor(DefaultOptions()).Extract(text, nil)

	if assert.NotNil(t, inv.Total) {
		assert.Equal(t, "22.00", inv.Total.StringFixed(2))
	}
	assert.Nil(t, inv.Discount)
	assert.True(t, hasFlag(inv.Flags, dto.FlagMissingTotal))
}

func TestExtractEmptyText(t *testing.T) {
	inv := NewExtractor(DefaultOptions()).Extract("", nil)

	assert.Nil(t, inv.Vendor)
	assert.Nil(t, inv.InvoiceNumber)
	assert.Nil(t, inv.InvoiceDate)
	assert.Nil(t, inv.Subtotal)
	assert.Nil(t, inv.Total)
	assert.Empty(t, inv.Items)
	assert.Equal(t, "USD", inv.Currency)
	assert.True(t, hasFlag(inv.Flags, dto.FlagAmbiguousVendor))
	assert.True(t, hasFlag(inv.Flags, dto.FlagNoLineItemsDetected))
	assert.True(t, hasFlag(inv.Flags, dto.FlagMissingTotal))
}

func TestExtractAmbiguousDateFlagged(t *testing.T) {
	text := "Acme Supplies\nInvoice #INV-500\nDate: 03/04/2024\nTotal: 22.00"

	inv := NewExtractor(DefaultOptions()).Extract(text, nil)
	if assert.NotNil(t, inv.InvoiceDate) {
		assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), *inv.InvoiceDate)
	}
	assert.True(t, hasFlag(inv.Flags, dto.FlagAmbiguousDate))

	dayFirst := NewExtractor(Options{DateOrder: DayFirst, DefaultCurrency: "EUR"}).Extract(text, nil)
	if assert.NotNil(t, dayFirst.InvoiceDate) {
		assert.Equal(t, time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC), *dayFirst.InvoiceDate)
	}
}

func TestExtractDueDateSeparateFromInvoiceDate(t *testing.T) {
	text := "Acme Supplies\nInvoice #INV-77\nDate: 2024-01-15\nDue Date: 2024-02-14\nTotal: 22.00"
	inv := NewExtractor(DefaultOptions()).Extract(text, nil)

	if assert.NotNil(t, inv.InvoiceDate) {
		assert.Equal(t, time.January, inv.InvoiceDate.Month())
	}
	if assert.NotNil(t, inv.DueDate) {
		assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), *inv.DueDate)
	}
}
