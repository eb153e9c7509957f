package extract

import "github.com/invoicelens/invoice-scan/dto"

// generateCandidates applies every matcher to every line. Purely generative:
// no shared state is touched, and identical input always yields an identical
// candidate multiset in identical order (line-major, then matcher order).
func generateCandidates(lines []dto.Line, ctx matchContext, matchers []matcher) []dto.FieldCandidate {
	var out []dto.FieldCandidate
	for _, line := range lines {
		for _, m := range matchers {
			for _, c := range m.match(line, ctx) {
				if c.MatcherID == "" {
					c.MatcherID = m.id
				}
				out = append(out, c)
			}
		}
	}
	return out
}

// matcherRank maps matcher id to declaration index for deterministic
// tie-breaking.
func matcherRank(matchers []matcher) map[string]int {
	rank := make(map[string]int, len(matchers))
	for i, m := range matchers {
		rank[m.id] = i
	}
	// Variant id produced by the numeric date matcher.
	rank["date_numeric_ambiguous"] = rank["date_numeric"]
	return rank
}

// bestCandidate selects the winner for one field by (confidence desc,
// matcher priority asc, source line asc). Explicit tuple ordering over the
// whole candidate set avoids any hidden first-match bias.
func bestCandidate(cands []dto.FieldCandidate, field dto.FieldName, rank map[string]int) *dto.FieldCandidate {
	var best *dto.FieldCandidate
	for i := range cands {
		c := &cands[i]
		if c.Field != field {
			continue
		}
		if best == nil || better(c, best, rank) {
			best = c
		}
	}
	return best
}

func better(a, b *dto.FieldCandidate, rank map[string]int) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if rank[a.MatcherID] != rank[b.MatcherID] {
		return rank[a.MatcherID] < rank[b.MatcherID]
	}
	return a.SourceLine < b.SourceLine
}
