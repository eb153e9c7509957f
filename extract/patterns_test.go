package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/invoicelens/invoice-scan/dto"
)

func candidatesFor(text string, opts Options) []dto.FieldCandidate {
	lines := Tokenize(text, nil)
	ctx := matchContext{lineCount: len(lines), opts: opts}
	return generateCandidates(lines, ctx, defaultMatchers())
}

func bestFor(t *testing.T, text string, field dto.FieldName) *dto.FieldCandidate {
	t.Helper()
	m := defaultMatchers()
	return bestCandidate(candidatesFor(text, DefaultOptions()), field, matcherRank(m))
}

func TestInvoiceNumberPatterns(t *testing.T) {
	cases := map[string]string{
		"Invoice #INV-2024-001":     "INV-2024-001",
		"INVOICE NUMBER: A-99812":   "A-99812",
		"Inv No. 445ties":           "445TIES",
		"inv# 77812":                "77812",
		"Ref # 2024-INVOICE-000042": "2024-INVOICE-000042",
	}

	for text, want := range cases {
		c := bestFor(t, text, dto.FieldInvoiceNumber)
		if assert.NotNil(t, c, text) {
			assert.Equal(t, want, c.Text, text)
		}
	}
}

func TestInvoiceNumberRejectsLabelWords(t *testing.T) {
	// "Date" after the label is a stray word, not a number.
	assert.Nil(t, bestFor(t, "Invoice Date", dto.FieldInvoiceNumber))
}

func TestDatePatterns(t *testing.T) {
	c := bestFor(t, "Date: 2024-01-15", dto.FieldInvoiceDate)
	if assert.NotNil(t, c) && assert.NotNil(t, c.Date) {
		assert.Equal(t, "2024-01-15", c.Date.Format("2006-01-02"))
		assert.Equal(t, "date_iso", c.MatcherID)
	}

	c = bestFor(t, "Issued January 15, 2024", dto.FieldInvoiceDate)
	if assert.NotNil(t, c) && assert.NotNil(t, c.Date) {
		assert.Equal(t, "2024-01-15", c.Date.Format("2006-01-02"))
	}

	// Day over 12 pins the reading regardless of locale order.
	c = bestFor(t, "Due Date: 31/01/2024", dto.FieldDueDate)
	if assert.NotNil(t, c) && assert.NotNil(t, c.Date) {
		assert.Equal(t, "2024-01-31", c.Date.Format("2006-01-02"))
	}
}

func TestAmbiguousNumericDateFollowsConfiguredOrder(t *testing.T) {
	mdy := candidatesFor("Date: 03/04/2024", Options{DateOrder: MonthFirst, DefaultCurrency: "USD"})
	dmy := candidatesFor("Date: 03/04/2024", Options{DateOrder: DayFirst, DefaultCurrency: "USD"})

	rank := matcherRank(defaultMatchers())
	cm := bestCandidate(mdy, dto.FieldInvoiceDate, rank)
	cd := bestCandidate(dmy, dto.FieldInvoiceDate, rank)

	assert.Equal(t, "2024-03-04", cm.Date.Format("2006-01-02"))
	assert.Equal(t, "2024-04-03", cd.Date.Format("2006-01-02"))
	assert.Equal(t, "date_numeric_ambiguous", cm.MatcherID)
}

func TestISODateOutranksNumericDate(t *testing.T) {
	text := "Date: 2024-01-15\nShipped 02/01/2024"
	c := bestFor(t, text, dto.FieldInvoiceDate)

	assert.Equal(t, "date_iso", c.MatcherID)
	assert.Equal(t, "2024-01-15", c.Date.Format("2006-01-02"))
}

func TestLabeledAmountPatterns(t *testing.T) {
	c := bestFor(t, "Grand Total: $1,234.56", dto.FieldTotal)
	if assert.NotNil(t, c) && assert.NotNil(t, c.Amount) {
		assert.Equal(t, "1234.56", c.Amount.StringFixed(2))
	}

	c = bestFor(t, "Sales Tax (10%): 2.00", dto.FieldTax)
	if assert.NotNil(t, c) && assert.NotNil(t, c.Amount) {
		assert.Equal(t, "2.00", c.Amount.StringFixed(2))
	}

	// "Subtotal" must never feed the total matcher.
	assert.Nil(t, bestFor(t, "Subtotal: 20.00", dto.FieldTotal))
	assert.NotNil(t, bestFor(t, "Subtotal: 20.00", dto.FieldSubtotal))
}

func TestEmailAndPhonePatterns(t *testing.T) {
	c := bestFor(t, "billing@acme-supplies.com", dto.FieldVendorEmail)
	if assert.NotNil(t, c) {
		assert.Equal(t, "billing@acme-supplies.com", c.Text)
	}

	c = bestFor(t, "Phone: (555) 123-4567", dto.FieldVendorPhone)
	if assert.NotNil(t, c) {
		assert.Equal(t, "(555) 123-4567", c.Text)
		assert.GreaterOrEqual(t, c.Confidence, 0.9)
	}

	// Digit runs on price lines are not phone numbers.
	assert.Nil(t, bestFor(t, "Widget  2  10.00  20.00", dto.FieldVendorPhone))

	// Nor are the digits inside invoice numbers and dates.
	assert.Nil(t, bestFor(t, "Invoice #INV-2024-001", dto.FieldVendorPhone))
	assert.Nil(t, bestFor(t, "Date: 2024-01-15", dto.FieldVendorPhone))
	assert.Nil(t, bestFor(t, "P.O. # 8754-2211", dto.FieldVendorPhone))
}

func TestPurchaseOrderPattern(t *testing.T) {
	c := bestFor(t, "P.O. #PO-4512", dto.FieldPurchaseOrder)
	if assert.NotNil(t, c) {
		assert.Equal(t, "PO-4512", c.Text)
	}

	c = bestFor(t, "Purchase Order Number: 8754", dto.FieldPurchaseOrder)
	if assert.NotNil(t, c) {
		assert.Equal(t, "8754", c.Text)
	}
}

func TestCurrencyPattern(t *testing.T) {
	c := bestFor(t, "Total: €99.00", dto.FieldCurrency)
	if assert.NotNil(t, c) {
		assert.Equal(t, "EUR", c.Text)
	}

	c = bestFor(t, "Amount due 250.00 GBP", dto.FieldCurrency)
	if assert.NotNil(t, c) {
		assert.Equal(t, "GBP", c.Text)
	}
}

func TestParseAmountToken(t *testing.T) {
	d, cur, ok := parseAmountToken("$1,234.56")
	assert.True(t, ok)
	assert.Equal(t, "1234.56", d.StringFixed(2))
	assert.Equal(t, "USD", cur)

	d, cur, ok = parseAmountToken("EUR 42")
	assert.True(t, ok)
	assert.Equal(t, "42", d.StringFixed(0))
	assert.Equal(t, "EUR", cur)

	_, _, ok = parseAmountToken("no numbers here")
	assert.False(t, ok)
}
