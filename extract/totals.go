package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/invoicelens/invoice-scan/dto"
)

type totalsResult struct {
	subtotal *decimal.Decimal
	tax      *decimal.Decimal
	discount *decimal.Decimal
	total    *decimal.Decimal
	currency string
	conf     map[dto.FieldName]float64
	flags    []dto.ReconciliationFlag
}

var totalsLabels = []struct {
	field dto.FieldName
	re    *regexp.Regexp
}{
	{dto.FieldSubtotal, subtotalLabelRe},
	{dto.FieldTax, taxLabelRe},
	{dto.FieldDiscount, discountLabelRe},
	{dto.FieldTotal, totalLabelRe},
}

// resolveTotals picks the highest-confidence amount for each of
// subtotal/tax/discount/total and cross-checks the arithmetic identity
// total = subtotal + tax - discount. Unknown stays nil — never zero, since
// zero is itself a meaningful value downstream.
func resolveTotals(lines []dto.Line, cands []dto.FieldCandidate, ctx matchContext, rank map[string]int) totalsResult {
	res := totalsResult{conf: map[dto.FieldName]float64{}}

	all := append(append([]dto.FieldCandidate(nil), cands...), carriedLabelCandidates(lines, ctx)...)

	pick := func(field dto.FieldName) *decimal.Decimal {
		c := bestCandidate(all, field, rank)
		if c == nil || c.Amount == nil {
			return nil
		}
		res.conf[field] = c.Confidence
		if res.currency == "" {
			if _, cur, ok := parseAmountToken(c.Text); ok && cur != "" {
				res.currency = cur
			}
		}
		v := *c.Amount
		return &v
	}

	res.subtotal = pick(dto.FieldSubtotal)
	res.tax = pick(dto.FieldTax)
	res.discount = pick(dto.FieldDiscount)
	res.total = pick(dto.FieldTotal)

	reconcile(&res)
	return res
}

// carriedLabelCandidates handles the split layout where a totals label sits
// alone on one line and its amount on the next. The candidate scores lower
// than a same-line match.
func carriedLabelCandidates(lines []dto.Line, ctx matchContext) []dto.FieldCandidate {
	var out []dto.FieldCandidate
	for i := 0; i+1 < len(lines); i++ {
		line, next := lines[i], lines[i+1]
		if hasLetterReOutsideCurrency(next.Text) {
			continue
		}
		amount, _, ok := parseAmountToken(next.Text)
		if !ok {
			continue
		}
		for _, lbl := range totalsLabels {
			if !lbl.re.MatchString(line.Text) {
				continue
			}
			// Same-line matcher already covers labels followed by an amount.
			rest := percentRe.ReplaceAllString(line.Text[lbl.re.FindStringIndex(line.Text)[1]:], "")
			if _, _, sameLine := parseAmountToken(rest); sameLine {
				continue
			}
			a := amount
			out = append(out, dto.FieldCandidate{
				Field:      lbl.field,
				Text:       strings.TrimSpace(next.Text),
				Amount:     &a,
				Confidence: clamp(0.72 + bottomBoost(next, ctx)),
				SourceLine: next.Index,
				MatcherID:  "amount_" + string(lbl.field),
			})
		}
	}
	return out
}

func hasLetterReOutsideCurrency(text string) bool {
	stripped := currencyCodeRe.ReplaceAllString(text, "")
	return hasLetterRe.MatchString(stripped)
}

// reconcile applies the derivation rule: with at least three of the four
// terms known, the missing one is solved from total = subtotal + tax -
// discount instead of being trusted from a possibly misread digit — unless
// the recognized total already agrees with the derived one, in which case
// the genuine source value is kept. A nil discount counts as zero for the
// arithmetic only; the field itself stays nil, because "no discount" and
// "discount of 0.00" are different facts downstream. With too little
// evidence, values are kept as-is and a MissingTotal flag is raised; nothing
// is invented for fields nobody saw.
func reconcile(res *totalsResult) {
	missing := 0
	for _, v := range []*decimal.Decimal{res.subtotal, res.tax, res.total} {
		if v == nil {
			missing++
		}
	}
	if missing >= 2 {
		known := 3 - missing
		if res.discount != nil {
			known++
		}
		res.flags = append(res.flags, dto.ReconciliationFlag{
			Kind:   dto.FlagMissingTotal,
			Detail: fmt.Sprintf("only %d of subtotal/tax/discount/total recognized", known),
		})
		return
	}

	discount := decimal.Zero
	if res.discount != nil {
		discount = *res.discount
	}

	switch {
	case res.total == nil:
		derived := res.subtotal.Add(*res.tax).Sub(discount)
		res.total = &derived
		res.conf[dto.FieldTotal] = 0.80
		res.flags = append(res.flags, dto.ReconciliationFlag{
			Kind:   dto.FlagMissingTotal,
			Detail: fmt.Sprintf("total not recognized; derived %s from subtotal + tax - discount", derived),
		})
	case res.subtotal == nil:
		derived := res.total.Sub(*res.tax).Add(discount)
		if derived.IsNegative() {
			res.flags = append(res.flags, dto.ReconciliationFlag{
				Kind:   dto.FlagAmountMismatch,
				Detail: fmt.Sprintf("implied subtotal %s is negative; leaving it unset", derived),
			})
			return
		}
		res.subtotal = &derived
		res.conf[dto.FieldSubtotal] = 0.80
	case res.tax == nil:
		derived := res.total.Sub(*res.subtotal).Add(discount)
		if derived.IsNegative() {
			res.flags = append(res.flags, dto.ReconciliationFlag{
				Kind:   dto.FlagAmountMismatch,
				Detail: fmt.Sprintf("implied tax %s is negative; leaving it unset", derived),
			})
			return
		}
		res.tax = &derived
		res.conf[dto.FieldTax] = 0.80
	case res.discount != nil:
		derived := res.subtotal.Add(*res.tax).Sub(*res.discount)
		if res.total.Sub(derived).Abs().GreaterThan(tolerance(*res.total)) {
			res.flags = append(res.flags, dto.ReconciliationFlag{
				Kind: dto.FlagAmountMismatch,
				Detail: fmt.Sprintf("total %s does not match subtotal %s + tax %s - discount %s = %s",
					res.total, res.subtotal, res.tax, res.discount, derived),
			})
		}
	default: // only the discount is unaccounted for
		implied := res.subtotal.Add(*res.tax).Sub(*res.total)
		if implied.Abs().LessThanOrEqual(tolerance(*res.total)) {
			// Books already balance without a discount; an absent discount
			// stays nil rather than being coerced to zero.
			return
		}
		if implied.IsNegative() {
			res.flags = append(res.flags, dto.ReconciliationFlag{
				Kind: dto.FlagAmountMismatch,
				Detail: fmt.Sprintf("total %s exceeds subtotal %s + tax %s",
					res.total, res.subtotal, res.tax),
			})
			return
		}
		res.discount = &implied
		res.conf[dto.FieldDiscount] = 0.80
	}
}
