package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/invoicelens/invoice-scan/dto"
)

func detectItemsFor(text string) ([]dto.LineItemRow, []dto.ReconciliationFlag) {
	lines := Tokenize(text, nil)
	ctx := matchContext{lineCount: len(lines), opts: DefaultOptions()}
	cands := generateCandidates(lines, ctx, defaultMatchers())
	return detectLineItems(lines, 0, cands)
}

func TestParseItemRowThreeColumns(t *testing.T) {
	row, ok := parseItemRow(dto.Line{Index: 3, Text: "Widget  2  10.00  20.00"})

	assert.True(t, ok)
	assert.Equal(t, "Widget", row.Description)
	assert.Equal(t, "2", row.Quantity.StringFixed(0))
	assert.Equal(t, "10.00", row.UnitPrice.StringFixed(2))
	assert.Equal(t, "20.00", row.LineTotal.StringFixed(2))
	assert.Equal(t, 3, row.SourceLine)
}

func TestParseItemRowTwoColumnsDerivesQuantity(t *testing.T) {
	row, ok := parseItemRow(dto.Line{Text: "Consulting hours  150.00  300.00"})

	assert.True(t, ok)
	assert.Equal(t, "Consulting hours", row.Description)
	assert.Equal(t, "2", row.Quantity.StringFixed(0))
	assert.Equal(t, "150.00", row.UnitPrice.StringFixed(2))
}

func TestParseItemRowSingleColumn(t *testing.T) {
	row, ok := parseItemRow(dto.Line{Text: "Delivery fee 10.00"})

	assert.True(t, ok)
	assert.Equal(t, "Delivery fee", row.Description)
	assert.Equal(t, "1", row.Quantity.StringFixed(0))
	assert.Equal(t, "10.00", row.UnitPrice.StringFixed(2))
	assert.Equal(t, "10.00", row.LineTotal.StringFixed(2))
}

func TestParseItemRowFractionalQuantity(t *testing.T) {
	row, ok := parseItemRow(dto.Line{Text: "Consulting  1.5  100.00  150.00"})

	assert.True(t, ok)
	assert.Equal(t, "1.5", row.Quantity.StringFixed(1))
	assert.Equal(t, "100.00", row.UnitPrice.StringFixed(2))
	assert.Equal(t, "150.00", row.LineTotal.StringFixed(2))

	// Same row without the quantity column derives the same fraction.
	row, ok = parseItemRow(dto.Line{Text: "Consulting  100.00  150.00"})
	assert.True(t, ok)
	assert.Equal(t, "1.5", row.Quantity.StringFixed(1))
}

func TestDetectLineItemsFractionalQuantityConsistent(t *testing.T) {
	items, flags := detectItemsFor("Consulting  1.5  100.00  150.00\nSubtotal: 150.00")

	assert.Len(t, items, 1)
	assert.Empty(t, flags)
}

func TestParseItemRowRejectsBareNumbers(t *testing.T) {
	_, ok := parseItemRow(dto.Line{Text: "20.00"})
	assert.False(t, ok)
}

func TestDetectLineItemsStopsAtTotals(t *testing.T) {
	items, flags := detectItemsFor(
		"Description  Qty  Rate  Amount\n" +
			"Widget  2  10.00  20.00\n" +
			"Gadget  1  5.50  5.50\n" +
			"Subtotal: 25.50\n" +
			"Tax: 2.55\n" +
			"Total: 28.05")

	assert.Len(t, items, 2)
	assert.Equal(t, "Widget", items[0].Description)
	assert.Equal(t, "Gadget", items[1].Description)
	assert.Empty(t, flags)
}

func TestDetectLineItemsFlagsInconsistentRow(t *testing.T) {
	items, flags := detectItemsFor("Widget  2  10.00  25.00\nSubtotal: 25.00")

	// The row is kept; the inconsistency is advisory.
	assert.Len(t, items, 1)
	if assert.Len(t, flags, 1) {
		assert.Equal(t, dto.FlagAmountMismatch, flags[0].Kind)
		assert.Contains(t, flags[0].Detail, "Widget")
	}
}

func TestDetectLineItemsNoneFound(t *testing.T) {
	items, flags := detectItemsFor("Total: 22.00")

	assert.Empty(t, items)
	if assert.Len(t, flags, 1) {
		assert.Equal(t, dto.FlagNoLineItemsDetected, flags[0].Kind)
	}
}
