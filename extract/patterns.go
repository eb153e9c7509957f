package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoicelens/invoice-scan/dto"
)

// matchContext carries document-level information a matcher may use for
// positional scoring.
type matchContext struct {
	lineCount int
	maxY      float64
	opts      Options
}

// A matcher is a pure function from one line to zero or more candidates.
// Matchers are declared in priority order; the declaration index breaks
// confidence ties during final selection.
type matcher struct {
	id    string
	match func(line dto.Line, ctx matchContext) []dto.FieldCandidate
}

var (
	invoiceLabelRe = regexp.MustCompile(`(?i)\binvoice\b\s*(?:no\.?|number|num\.?)?\s*[:#]?\s*#?\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,})`)
	invAbbrevRe    = regexp.MustCompile(`(?i)\binv\b\.?\s*(?:no\.?)?\s*[:#]?\s*#?\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,})`)
	hashNumberRe   = regexp.MustCompile(`#\s*([A-Za-z0-9-]{5,})`)
	poLabelRe      = regexp.MustCompile(`(?i)\b(?:p\.?\s*o\.?|purchase\s+order)\s*(?:no\.?|number)?\s*[:#]?\s*#?\s*([A-Za-z0-9][A-Za-z0-9-]{1,})`)

	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)
	textDateRe    = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`)

	// One decimal separator at most, optional thousands separators,
	// optional currency symbol or code.
	amountRe     = regexp.MustCompile(`(?:([$€£₹])\s*|\b(USD|EUR|GBP|INR|CAD|AUD)\b\s*)?([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]+(?:\.[0-9]{1,2})?)\b`)
	centAmountRe = regexp.MustCompile(`\b\d+\.\d{2}\b`)
	percentRe    = regexp.MustCompile(`\d+(?:\.\d+)?\s*%`)

	subtotalLabelRe = regexp.MustCompile(`(?i)\bsub\s*-?\s*total\b`)
	taxLabelRe      = regexp.MustCompile(`(?i)\b(?:sales\s+tax|tax|vat|gst)\b`)
	discountLabelRe = regexp.MustCompile(`(?i)\bdiscount\b`)
	totalLabelRe    = regexp.MustCompile(`(?i)\b(?:grand\s+total|total\s+due|amount\s+due|balance\s+due|total)\b`)

	emailRe      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe      = regexp.MustCompile(`\+?\(?\d[\d\s().-]{5,}\d`)
	phoneLabelRe = regexp.MustCompile(`(?i)\b(?:tel|phone|ph|mobile|fax|call)\b`)

	currencyCodeRe = regexp.MustCompile(`\b(USD|EUR|GBP|INR|CAD|AUD)\b`)
	hasDigitRe     = regexp.MustCompile(`\d`)

	monthsByPrefix = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}

	currencyBySymbol = map[string]string{
		"$": "USD",
		"€": "EUR",
		"£": "GBP",
		"₹": "INR",
	}
)

// defaultMatchers returns the pattern library: field name to ordered
// matchers, tried on every line. All matching lines are scored, not just the
// first, so conflict resolution can happen later over the full candidate set.
func defaultMatchers() []matcher {
	return []matcher{
		{id: "invoice_label", match: matchInvoiceNumber(invoiceLabelRe, 0.90)},
		{id: "invoice_abbrev", match: matchInvoiceNumber(invAbbrevRe, 0.80)},
		{id: "invoice_hash", match: matchInvoiceNumber(hashNumberRe, 0.60)},
		{id: "purchase_order", match: matchPurchaseOrder},
		{id: "date_iso", match: matchISODate},
		{id: "date_text", match: matchTextDate},
		{id: "date_numeric", match: matchNumericDate},
		{id: "amount_subtotal", match: matchLabeledAmount(subtotalLabelRe, dto.FieldSubtotal)},
		{id: "amount_tax", match: matchLabeledAmount(taxLabelRe, dto.FieldTax)},
		{id: "amount_discount", match: matchLabeledAmount(discountLabelRe, dto.FieldDiscount)},
		{id: "amount_total", match: matchLabeledAmount(totalLabelRe, dto.FieldTotal)},
		{id: "email", match: matchEmail},
		{id: "phone", match: matchPhone},
		{id: "currency", match: matchCurrency},
	}
}

func matchInvoiceNumber(re *regexp.Regexp, base float64) func(dto.Line, matchContext) []dto.FieldCandidate {
	return func(line dto.Line, ctx matchContext) []dto.FieldCandidate {
		m := re.FindStringSubmatch(line.Text)
		if len(m) < 2 {
			return nil
		}
		value := strings.Trim(m[1], ".,:;")
		// A number without digits is a stray word like "Date" after the label.
		if !hasDigitRe.MatchString(value) {
			return nil
		}
		// A bare date after "Invoice" is a date line, not a number.
		if isoDateRe.MatchString(value) && len(value) == 10 {
			return nil
		}
		return []dto.FieldCandidate{{
			Field:      dto.FieldInvoiceNumber,
			Text:       strings.ToUpper(value),
			Confidence: clamp(base + topBoost(line, ctx)),
			SourceLine: line.Index,
		}}
	}
}

func matchPurchaseOrder(line dto.Line, ctx matchContext) []dto.FieldCandidate {
	m := poLabelRe.FindStringSubmatch(line.Text)
	if len(m) < 2 {
		return nil
	}
	value := strings.Trim(m[1], ".,:;")
	if !hasDigitRe.MatchString(value) {
		return nil
	}
	return []dto.FieldCandidate{{
		Field:      dto.FieldPurchaseOrder,
		Text:       strings.ToUpper(value),
		Confidence: 0.85,
		SourceLine: line.Index,
	}}
}

// dateCandidate classifies a parsed date by the labels on its line: "due"
// routes it to the due date, anything else is the invoice date. An explicit
// "date" label raises confidence slightly.
func dateCandidate(line dto.Line, t time.Time, text string, conf float64) []dto.FieldCandidate {
	lower := strings.ToLower(line.Text)
	field := dto.FieldInvoiceDate
	if strings.Contains(lower, "due") {
		field = dto.FieldDueDate
	}
	if strings.Contains(lower, "date") || strings.Contains(lower, "due") {
		conf += 0.04
	}
	return []dto.FieldCandidate{{
		Field:      field,
		Text:       text,
		Date:       &t,
		Confidence: clamp(conf),
		SourceLine: line.Index,
	}}
}

func matchISODate(line dto.Line, ctx matchContext) []dto.FieldCandidate {
	m := isoDateRe.FindStringSubmatch(line.Text)
	if len(m) < 4 {
		return nil
	}
	t, ok := makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	if !ok {
		return nil
	}
	return dateCandidate(line, t, m[0], 0.95)
}

func matchTextDate(line dto.Line, ctx matchContext) []dto.FieldCandidate {
	m := textDateRe.FindStringSubmatch(line.Text)
	if len(m) < 4 {
		return nil
	}
	month, ok := monthsByPrefix[strings.ToLower(m[1])]
	if !ok {
		return nil
	}
	t, ok := makeDate(atoi(m[3]), int(month), atoi(m[2]))
	if !ok {
		return nil
	}
	return dateCandidate(line, t, m[0], 0.88)
}

func matchNumericDate(line dto.Line, ctx matchContext) []dto.FieldCandidate {
	m := numericDateRe.FindStringSubmatch(line.Text)
	if len(m) < 4 {
		return nil
	}
	a, b, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
	if year < 100 {
		year += 2000
	}

	day, month := a, b
	ambiguous := false
	switch {
	case a > 12 && b <= 12:
		day, month = a, b
	case b > 12 && a <= 12:
		day, month = b, a
	case a <= 12 && b <= 12:
		// Both readings valid: fall back to the configured order and let
		// the orchestrator flag the ambiguity.
		ambiguous = true
		if ctx.opts.DateOrder == MonthFirst {
			day, month = b, a
		}
	default:
		return nil
	}

	t, ok := makeDate(year, month, day)
	if !ok {
		return nil
	}

	conf := 0.62
	if ambiguous {
		conf = 0.55
	}
	cands := dateCandidate(line, t, m[0], conf)
	if ambiguous {
		cands[0].MatcherID = "date_numeric_ambiguous"
	}
	return cands
}

func matchLabeledAmount(labelRe *regexp.Regexp, field dto.FieldName) func(dto.Line, matchContext) []dto.FieldCandidate {
	return func(line dto.Line, ctx matchContext) []dto.FieldCandidate {
		loc := labelRe.FindStringIndex(line.Text)
		if loc == nil {
			return nil
		}
		// Only an amount after the label counts as label-adjacent. Rate
		// annotations like "(10%)" are not amounts.
		rest := percentRe.ReplaceAllString(line.Text[loc[1]:], "")
		amount, _, ok := parseAmountToken(rest)
		if !ok {
			return nil
		}
		return []dto.FieldCandidate{{
			Field:      field,
			Text:       strings.TrimSpace(rest),
			Amount:     &amount,
			Confidence: clamp(0.85 + bottomBoost(line, ctx)),
			SourceLine: line.Index,
		}}
	}
}

func matchEmail(line dto.Line, ctx matchContext) []dto.FieldCandidate {
	m := emailRe.FindString(line.Text)
	if m == "" {
		return nil
	}
	return []dto.FieldCandidate{{
		Field:      dto.FieldVendorEmail,
		Text:       m,
		Confidence: clamp(0.92 + topBoost(line, ctx)),
		SourceLine: line.Index,
	}}
}

func matchPhone(line dto.Line, ctx matchContext) []dto.FieldCandidate {
	labeled := phoneLabelRe.MatchString(line.Text)
	// Unlabeled digit runs on lines carrying cent amounts, dates, or labeled
	// invoice/PO numbers are prices and identifiers, not phone numbers.
	if !labeled && (centAmountRe.MatchString(line.Text) || isoDateRe.MatchString(line.Text) ||
		invoiceLabelRe.MatchString(line.Text) || invAbbrevRe.MatchString(line.Text) ||
		hashNumberRe.MatchString(line.Text) || poLabelRe.MatchString(line.Text)) {
		return nil
	}
	m := phoneRe.FindString(line.Text)
	if m == "" {
		return nil
	}
	digits := countDigits(m)
	if digits < 7 || digits > 15 {
		return nil
	}
	if numericDateRe.MatchString(m) {
		return nil
	}
	conf := 0.65
	if labeled {
		conf = 0.90
	}
	return []dto.FieldCandidate{{
		Field:      dto.FieldVendorPhone,
		Text:       strings.TrimSpace(m),
		Confidence: clamp(conf + topBoost(line, ctx)),
		SourceLine: line.Index,
	}}
}

func matchCurrency(line dto.Line, ctx matchContext) []dto.FieldCandidate {
	if m := currencyCodeRe.FindString(line.Text); m != "" {
		return []dto.FieldCandidate{{
			Field:      dto.FieldCurrency,
			Text:       m,
			Confidence: 0.90,
			SourceLine: line.Index,
		}}
	}
	// Fixed order keeps the result stable on lines with several symbols.
	for _, sym := range []string{"$", "€", "£", "₹"} {
		if strings.Contains(line.Text, sym) {
			code := currencyBySymbol[sym]
			return []dto.FieldCandidate{{
				Field:      dto.FieldCurrency,
				Text:       code,
				Confidence: 0.70,
				SourceLine: line.Index,
			}}
		}
	}
	return nil
}

// parseAmountToken reads the first monetary token in s. Returns the exact
// decimal value and the currency code when a symbol or code preceded it.
func parseAmountToken(s string) (decimal.Decimal, string, bool) {
	m := amountRe.FindStringSubmatch(s)
	if len(m) < 4 || m[3] == "" {
		return decimal.Decimal{}, "", false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[3], ",", ""))
	if err != nil {
		return decimal.Decimal{}, "", false
	}
	currency := m[2]
	if currency == "" && m[1] != "" {
		currency = currencyBySymbol[m[1]]
	}
	return d, currency, true
}

// Position scoring. With y hints the ratio uses real coordinates; without
// them the line index stands in.
func positionRatio(line dto.Line, ctx matchContext) float64 {
	if line.YPos != nil && ctx.maxY > 0 {
		return *line.YPos / ctx.maxY
	}
	if ctx.lineCount <= 1 {
		return 0
	}
	return float64(line.Index) / float64(ctx.lineCount-1)
}

func topBoost(line dto.Line, ctx matchContext) float64 {
	if positionRatio(line, ctx) <= 0.34 {
		return 0.05
	}
	return 0
}

func bottomBoost(line dto.Line, ctx matchContext) float64 {
	if positionRatio(line, ctx) >= 0.66 {
		return 0.08
	}
	return 0
}

func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1900 || year > 2200 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); reject those.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

func countDigits(s string) int {
	n := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			n++
		}
	}
	return n
}

func clamp(f float64) float64 {
	if f > 0.99 {
		return 0.99
	}
	return f
}
