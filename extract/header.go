package extract

import (
	"regexp"
	"strings"

	"github.com/invoicelens/invoice-scan/dto"
)

// maxHeaderLines bounds how far down the header block may reach when no
// invoice-number or date line appears early.
const maxHeaderLines = 8

var titleCaseRe = regexp.MustCompile(`^[A-Z][A-Za-z&.,'-]*(?:\s+(?:[A-Z][A-Za-z&.,'-]*|of|and|the)){0,4}$`)

type headerResult struct {
	vendor  *string
	address *string
	email   *string
	phone   *string
	end     int // index of the first line after the header block
	conf    map[dto.FieldName]float64
	flags   []dto.ReconciliationFlag
}

// resolveHeader applies the fixed-order positional policy: the block of
// lines before the first invoice-number/date line is the header; within it,
// the first line that is neither an email nor a phone number becomes the
// vendor name, later such lines concatenate into the address, and the first
// email and phone lines claim those fields. The order dependence is
// deliberate and must stay exactly as is: downstream record matching relies
// on it being deterministic.
func resolveHeader(lines []dto.Line, cands []dto.FieldCandidate) headerResult {
	res := headerResult{conf: map[dto.FieldName]float64{}}

	end := headerEnd(lines, cands)
	res.end = end

	var addressParts []string
	for _, line := range lines[:end] {
		switch {
		case res.email == nil && emailRe.MatchString(line.Text):
			v := emailRe.FindString(line.Text)
			res.email = &v
			res.conf[dto.FieldVendorEmail] = 0.90
		case res.phone == nil && isPhoneLine(line.Text):
			v := strings.TrimSpace(phoneRe.FindString(line.Text))
			res.phone = &v
			res.conf[dto.FieldVendorPhone] = 0.80
		case res.vendor == nil:
			v := line.Text
			res.vendor = &v
			res.conf[dto.FieldVendorName] = 0.80
		default:
			addressParts = append(addressParts, line.Text)
		}
	}
	if len(addressParts) > 0 {
		addr := strings.Join(addressParts, ", ")
		res.address = &addr
		res.conf[dto.FieldVendorAddress] = 0.70
	}

	if res.vendor == nil {
		if v, conf, ok := vendorFallback(lines, cands); ok {
			res.vendor = &v
			res.conf[dto.FieldVendorName] = conf
		} else {
			res.flags = append(res.flags, dto.ReconciliationFlag{
				Kind:   dto.FlagAmbiguousVendor,
				Detail: "no usable vendor line in the header block or the document body",
			})
		}
	}

	return res
}

// headerEnd finds the first line carrying an invoice-number or date
// candidate; everything before it is the header block, capped at
// maxHeaderLines.
func headerEnd(lines []dto.Line, cands []dto.FieldCandidate) int {
	end := len(lines)
	for _, c := range cands {
		switch c.Field {
		case dto.FieldInvoiceNumber, dto.FieldInvoiceDate, dto.FieldDueDate:
			if c.SourceLine < end {
				end = c.SourceLine
			}
		}
	}
	if end > maxHeaderLines {
		end = maxHeaderLines
	}
	if end > len(lines) {
		end = len(lines)
	}
	return end
}

func isPhoneLine(text string) bool {
	m := phoneRe.FindString(text)
	if m == "" {
		return false
	}
	d := countDigits(m)
	return d >= 7 && d <= 15
}

// vendorFallback picks the highest-confidence vendor-name-like line from the
// whole document: short, title case, matching no other field. Earlier lines
// score higher. Used only when the header block gave nothing.
func vendorFallback(lines []dto.Line, cands []dto.FieldCandidate) (string, float64, bool) {
	claimed := make(map[int]bool)
	for _, c := range cands {
		claimed[c.SourceLine] = true
	}

	bestConf := 0.0
	bestText := ""
	for _, line := range lines {
		if claimed[line.Index] || len(line.Text) > 40 {
			continue
		}
		if emailRe.MatchString(line.Text) || isPhoneLine(line.Text) || hasDigitRe.MatchString(line.Text) {
			continue
		}
		if !titleCaseRe.MatchString(line.Text) {
			continue
		}
		conf := 0.50
		if len(lines) > 1 {
			conf -= 0.2 * float64(line.Index) / float64(len(lines)-1)
		}
		if conf > bestConf {
			bestConf = conf
			bestText = line.Text
		}
	}
	if bestText == "" {
		return "", 0, false
	}
	return bestText, bestConf, true
}
