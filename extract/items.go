package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/invoicelens/invoice-scan/dto"
)

var (
	itemNumberRe  = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	hasLetterRe   = regexp.MustCompile(`[A-Za-z]`)
	tableHeaderRe = regexp.MustCompile(`(?i)\b(description|item|qty|quantity|rate|price|amount|unit)\b`)
)

// detectLineItems parses the tabular region between the header block and the
// first totals-keyword line. The totals boundary keeps subtotal/tax/total
// lines from being misread as items. Zero rows is not an error: it yields an
// empty list plus a NoLineItemsDetected flag.
func detectLineItems(lines []dto.Line, headerEnd int, cands []dto.FieldCandidate) ([]dto.LineItemRow, []dto.ReconciliationFlag) {
	var items []dto.LineItemRow
	var flags []dto.ReconciliationFlag

	stop := totalsStart(lines, headerEnd)
	skip := fieldLines(cands)

	for _, line := range lines {
		if line.Index < headerEnd || line.Index >= stop {
			continue
		}
		if skip[line.Index] || isTableHeader(line.Text) {
			continue
		}
		if emailRe.MatchString(line.Text) {
			continue
		}

		row, ok := parseItemRow(line)
		if !ok {
			continue
		}
		items = append(items, row)

		// lineTotal must agree with quantity*unitPrice within
		// max(0.01, 1%); violations are flagged, never discarded.
		expected := row.Quantity.Mul(row.UnitPrice)
		if row.LineTotal.Sub(expected).Abs().GreaterThan(tolerance(row.LineTotal)) {
			flags = append(flags, dto.ReconciliationFlag{
				Kind: dto.FlagAmountMismatch,
				Detail: fmt.Sprintf("line item %q: %s x %s = %s, document says %s",
					row.Description, row.Quantity, row.UnitPrice, expected, row.LineTotal),
			})
		}
	}

	if len(items) == 0 {
		flags = append(flags, dto.ReconciliationFlag{
			Kind:   dto.FlagNoLineItemsDetected,
			Detail: "no tabular line-item region found",
		})
	}
	return items, flags
}

// totalsStart finds the first totals-keyword line at or after the header
// block.
func totalsStart(lines []dto.Line, headerEnd int) int {
	for _, line := range lines {
		if line.Index < headerEnd {
			continue
		}
		if subtotalLabelRe.MatchString(line.Text) || totalLabelRe.MatchString(line.Text) ||
			taxLabelRe.MatchString(line.Text) || discountLabelRe.MatchString(line.Text) {
			return line.Index
		}
	}
	return len(lines)
}

// fieldLines marks lines already claimed by invoice-number, date, purchase
// order, or contact candidates; those are field lines, not items.
func fieldLines(cands []dto.FieldCandidate) map[int]bool {
	claimed := make(map[int]bool)
	for _, c := range cands {
		switch c.Field {
		case dto.FieldInvoiceNumber, dto.FieldInvoiceDate, dto.FieldDueDate,
			dto.FieldPurchaseOrder, dto.FieldVendorEmail, dto.FieldVendorPhone:
			claimed[c.SourceLine] = true
		}
	}
	return claimed
}

func isTableHeader(text string) bool {
	return len(tableHeaderRe.FindAllString(text, -1)) >= 2 && !itemNumberRe.MatchString(text)
}

// parseItemRow splits one line into description + numeric columns. The last
// numeric token is the line total, the second-to-last the unit price, and a
// small leading integer the quantity. A single numeric token is taken as the
// line total with quantity 1 and the unit price derived from it.
func parseItemRow(line dto.Line) (dto.LineItemRow, bool) {
	locs := itemNumberRe.FindAllStringIndex(line.Text, -1)
	if len(locs) == 0 {
		return dto.LineItemRow{}, false
	}

	desc := strings.Trim(line.Text[:locs[0][0]], " \t-:|$€£₹")
	if !hasLetterRe.MatchString(desc) {
		return dto.LineItemRow{}, false
	}

	var nums []decimal.Decimal
	for _, loc := range locs {
		tok := strings.ReplaceAll(line.Text[loc[0]:loc[1]], ",", "")
		d, err := decimal.NewFromString(tok)
		if err != nil {
			return dto.LineItemRow{}, false
		}
		nums = append(nums, d)
	}

	row := dto.LineItemRow{Description: desc, SourceLine: line.Index}
	n := len(nums)
	switch {
	case n >= 3:
		row.LineTotal = nums[n-1]
		row.UnitPrice = nums[n-2]
		row.Quantity = nums[n-3]
		if !row.Quantity.IsInteger() || row.Quantity.GreaterThan(decimal.NewFromInt(10000)) || row.Quantity.IsZero() {
			row.Quantity = deriveQuantity(row.LineTotal, row.UnitPrice)
		}
	case n == 2:
		row.LineTotal = nums[1]
		row.UnitPrice = nums[0]
		row.Quantity = deriveQuantity(row.LineTotal, row.UnitPrice)
	default:
		row.LineTotal = nums[0]
		row.Quantity = decimal.NewFromInt(1)
		row.UnitPrice = nums[0]
	}
	return row, true
}

// deriveQuantity recovers a missing or unparseable quantity column from the
// total and unit price. Fractional quantities are legitimate (1.5 hours of
// consulting), so any positive ratio that reconciles total = qty*unit within
// tolerance is accepted; otherwise it defaults to 1.
func deriveQuantity(total, unit decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if unit.IsZero() {
		return one
	}
	q := total.DivRound(unit, 4)
	if q.IsPositive() && q.Mul(unit).Sub(total).Abs().LessThanOrEqual(tolerance(total)) {
		return q
	}
	return one
}

// tolerance is the allowed deviation before two amounts are considered
// inconsistent: 0.01 currency units or 1%, whichever is larger.
func tolerance(amount decimal.Decimal) decimal.Decimal {
	cent := decimal.New(1, -2)
	pct := amount.Abs().Mul(decimal.New(1, -2))
	if pct.GreaterThan(cent) {
		return pct
	}
	return cent
}
