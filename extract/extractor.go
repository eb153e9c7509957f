// Package extract turns the raw text block produced by a recognition engine
// into a structured invoice with typed, validated fields. The engine is a
// pure, synchronous computation: no I/O, no shared state, no randomness, so
// identical input always yields an identical result and one Extractor can
// serve any number of goroutines. Extraction failure is data, not an
// exception — unresolved or contradictory fields surface as flags on the
// returned invoice, never as errors.
package extract

import (
	"fmt"
	"strings"

	"github.com/invoicelens/invoice-scan/dto"
)

// phase models the orchestrator's sequential states. There are no branching
// retries: each step's output feeds the next, and a step that finds nothing
// sets flags but never aborts the pipeline.
type phase int

const (
	phaseStart phase = iota
	phaseHeaderResolved
	phaseItemsResolved
	phaseTotalsResolved
	phaseMerged
	phaseDone
)

// Extractor runs the extraction pipeline. It is immutable after
// construction.
type Extractor struct {
	opts     Options
	matchers []matcher
	rank     map[string]int
}

func NewExtractor(opts Options) *Extractor {
	if opts.DateOrder == "" {
		opts.DateOrder = MonthFirst
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "USD"
	}
	m := defaultMatchers()
	return &Extractor{
		opts:     opts,
		matchers: m,
		rank:     matcherRank(m),
	}
}

// Extract is a total function over its input: it always terminates in time
// proportional to the line count and always produces an ExtractedInvoice,
// even for empty text (whose fields are mostly nil and whose flags enumerate
// everything unresolved).
func (e *Extractor) Extract(rawText string, hints []dto.LineHint) dto.ExtractedInvoice {
	lines := Tokenize(rawText, hints)
	ctx := matchContext{lineCount: len(lines), maxY: maxHintY(hints), opts: e.opts}
	cands := generateCandidates(lines, ctx, e.matchers)

	inv := dto.ExtractedInvoice{
		RawText:    rawText,
		Confidence: map[dto.FieldName]float64{},
	}

	var header headerResult
	var items []dto.LineItemRow
	var itemFlags []dto.ReconciliationFlag
	var totals totalsResult

	for st := phaseStart; st != phaseDone; {
		switch st {
		case phaseStart:
			header = resolveHeader(lines, cands)
			st = phaseHeaderResolved
		case phaseHeaderResolved:
			items, itemFlags = detectLineItems(lines, header.end, cands)
			st = phaseItemsResolved
		case phaseItemsResolved:
			totals = resolveTotals(lines, cands, ctx, e.rank)
			st = phaseTotalsResolved
		case phaseTotalsResolved:
			e.merge(&inv, cands, header, items, totals)
			st = phaseMerged
		case phaseMerged:
			inv.Flags = append(inv.Flags, header.flags...)
			inv.Flags = append(inv.Flags, itemFlags...)
			inv.Flags = append(inv.Flags, totals.flags...)
			st = phaseDone
		}
	}

	return inv
}

func (e *Extractor) merge(inv *dto.ExtractedInvoice, cands []dto.FieldCandidate, header headerResult, items []dto.LineItemRow, totals totalsResult) {
	inv.Vendor = header.vendor
	inv.VendorAddress = header.address
	inv.VendorEmail = header.email
	inv.VendorPhone = header.phone
	for f, c := range header.conf {
		inv.Confidence[f] = c
	}

	if c := bestCandidate(cands, dto.FieldInvoiceNumber, e.rank); c != nil {
		v := strings.TrimRight(c.Text, "-/")
		inv.InvoiceNumber = &v
		inv.Confidence[dto.FieldInvoiceNumber] = c.Confidence
	}
	if c := bestCandidate(cands, dto.FieldInvoiceDate, e.rank); c != nil && c.Date != nil {
		d := *c.Date
		inv.InvoiceDate = &d
		inv.Confidence[dto.FieldInvoiceDate] = c.Confidence
		e.flagAmbiguousDate(inv, c)
	}
	if c := bestCandidate(cands, dto.FieldDueDate, e.rank); c != nil && c.Date != nil {
		d := *c.Date
		inv.DueDate = &d
		inv.Confidence[dto.FieldDueDate] = c.Confidence
		e.flagAmbiguousDate(inv, c)
	}
	if c := bestCandidate(cands, dto.FieldPurchaseOrder, e.rank); c != nil {
		v := c.Text
		inv.PurchaseOrder = &v
		inv.Confidence[dto.FieldPurchaseOrder] = c.Confidence
	}

	if inv.VendorEmail == nil {
		if c := bestCandidate(cands, dto.FieldVendorEmail, e.rank); c != nil {
			v := c.Text
			inv.VendorEmail = &v
			inv.Confidence[dto.FieldVendorEmail] = c.Confidence
		}
	}
	if inv.VendorPhone == nil {
		if c := bestCandidate(cands, dto.FieldVendorPhone, e.rank); c != nil {
			v := c.Text
			inv.VendorPhone = &v
			inv.Confidence[dto.FieldVendorPhone] = c.Confidence
		}
	}

	inv.Items = items
	inv.Subtotal = totals.subtotal
	inv.Tax = totals.tax
	inv.Discount = totals.discount
	inv.Total = totals.total
	for f, c := range totals.conf {
		inv.Confidence[f] = c
	}

	inv.Currency = e.opts.DefaultCurrency
	switch {
	case totals.currency != "":
		inv.Currency = totals.currency
		inv.Confidence[dto.FieldCurrency] = 0.85
	default:
		if c := bestCandidate(cands, dto.FieldCurrency, e.rank); c != nil {
			inv.Currency = c.Text
			inv.Confidence[dto.FieldCurrency] = c.Confidence
		}
	}
}

func (e *Extractor) flagAmbiguousDate(inv *dto.ExtractedInvoice, c *dto.FieldCandidate) {
	if c.MatcherID != "date_numeric_ambiguous" {
		return
	}
	inv.Flags = append(inv.Flags, dto.ReconciliationFlag{
		Kind: dto.FlagAmbiguousDate,
		Detail: fmt.Sprintf("%q read as %s using %s order; the other reading is also valid",
			c.Text, c.Date.Format("2006-01-02"), e.opts.DateOrder),
	})
}

func maxHintY(hints []dto.LineHint) float64 {
	max := 0.0
	for _, h := range hints {
		if h.Y > max {
			max = h.Y
		}
	}
	return max
}
