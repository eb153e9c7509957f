package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/invoicelens/invoice-scan/dto"
)

func resolveTotalsFor(text string) totalsResult {
	lines := Tokenize(text, nil)
	ctx := matchContext{lineCount: len(lines), opts: DefaultOptions()}
	m := defaultMatchers()
	cands := generateCandidates(lines, ctx, m)
	return resolveTotals(lines, cands, ctx, matcherRank(m))
}

func TestTotalsAllFourConsistent(t *testing.T) {
	res := resolveTotalsFor("Subtotal: 100.00\nTax: 10.00\nDiscount: 5.00\nTotal: 105.00")

	assert.Equal(t, "100.00", res.subtotal.StringFixed(2))
	assert.Equal(t, "10.00", res.tax.StringFixed(2))
	assert.Equal(t, "5.00", res.discount.StringFixed(2))
	assert.Equal(t, "105.00", res.total.StringFixed(2))
	assert.Empty(t, res.flags)
}

func TestTotalsAllFourMismatchFlagged(t *testing.T) {
	res := resolveTotalsFor("Subtotal: 100.00\nTax: 10.00\nDiscount: 5.00\nTotal: 175.00")

	// Recognized values are kept; the inconsistency is advisory.
	assert.Equal(t, "175.00", res.total.StringFixed(2))
	if assert.Len(t, res.flags, 1) {
		assert.Equal(t, dto.FlagAmountMismatch, res.flags[0].Kind)
	}
}

func TestTotalsMissingTotalDerived(t *testing.T) {
	res := resolveTotalsFor("Subtotal: 20.00\nTax: 2.00")

	if assert.NotNil(t, res.total) {
		assert.Equal(t, "22.00", res.total.StringFixed(2))
	}
	assert.Nil(t, res.discount)
	if assert.Len(t, res.flags, 1) {
		assert.Equal(t, dto.FlagMissingTotal, res.flags[0].Kind)
	}
}

func TestTotalsMissingSubtotalDerived(t *testing.T) {
	res := resolveTotalsFor("Tax: 10.00\nDiscount: 5.00\nTotal: 105.00")

	if assert.NotNil(t, res.subtotal) {
		assert.Equal(t, "100.00", res.subtotal.StringFixed(2))
	}
	assert.Empty(t, res.flags)
}

func TestTotalsMissingTaxDerived(t *testing.T) {
	res := resolveTotalsFor("Subtotal: 100.00\nTotal: 110.00")

	if assert.NotNil(t, res.tax) {
		assert.Equal(t, "10.00", res.tax.StringFixed(2))
	}
}

func TestTotalsImpliedDiscountRecovered(t *testing.T) {
	res := resolveTotalsFor("Subtotal: 100.00\nTax: 10.00\nTotal: 95.00")

	if assert.NotNil(t, res.discount) {
		assert.Equal(t, "15.00", res.discount.StringFixed(2))
	}
}

func TestTotalsAbsentDiscountStaysNil(t *testing.T) {
	res := resolveTotalsFor("Subtotal: 20.00\nTax: 2.00\nTotal: 22.00")

	// Books balance without a discount: nil, not zero.
	assert.Nil(t, res.discount)
	assert.Empty(t, res.flags)
}

func TestTotalsTooLittleEvidence(t *testing.T) {
	res := resolveTotalsFor("Total: 22.00")

	assert.Nil(t, res.subtotal)
	assert.Nil(t, res.tax)
	assert.Equal(t, "22.00", res.total.StringFixed(2))
	if assert.Len(t, res.flags, 1) {
		assert.Equal(t, dto.FlagMissingTotal, res.flags[0].Kind)
	}
}

func TestTotalsLabelOnPrecedingLine(t *testing.T) {
	res := resolveTotalsFor("Subtotal\n$20.00\nTax\n$2.00\nTotal\n$22.00")

	if assert.NotNil(t, res.subtotal) {
		assert.Equal(t, "20.00", res.subtotal.StringFixed(2))
	}
	if assert.NotNil(t, res.tax) {
		assert.Equal(t, "2.00", res.tax.StringFixed(2))
	}
	if assert.NotNil(t, res.total) {
		assert.Equal(t, "22.00", res.total.StringFixed(2))
	}
	assert.Equal(t, "USD", res.currency)
	assert.Empty(t, res.flags)
}

func TestTotalsCurrencyFromAmountText(t *testing.T) {
	res := resolveTotalsFor("Subtotal: €100.00\nTax: €10.00\nTotal: €110.00")

	assert.Equal(t, "EUR", res.currency)
}
