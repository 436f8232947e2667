package qualify

import (
	"strings"
)

// maxQuoteAudit bounds the offending quote length kept in failure records.
const maxQuoteAudit = 80

// ValidateEvidence checks every snippet's quote for exact (case-sensitive,
// unmodified) substring containment in its named source's raw text. Snippets
// that fail are recorded as failures with a truncated quote but never
// silently dropped from the audit trail; snippets naming an unknown source
// fail as well.
func ValidateEvidence(snippets []EvidenceSnippet, sources map[string]string) (valid []EvidenceSnippet, failures []EvidenceFailure) {
	for _, s := range snippets {
		source, ok := sources[s.ContentID]
		if !ok || s.Quote == "" || !strings.Contains(source, s.Quote) {
			failures = append(failures, EvidenceFailure{
				ContentID: s.ContentID,
				Quote:     truncateQuote(s.Quote),
			})
			continue
		}
		valid = append(valid, s)
	}
	return valid, failures
}

// ClassifyCoverage computes the evidence-coverage tier from valid snippets
// only. This is the single shared definition of the tier thresholds:
//
//	strong: >=6 snippets spanning >=3 distinct sources and >=3 dimensions
//	medium: >=3 snippets spanning >=2 sources and >=2 dimensions
//	weak:   >=1 valid snippet
//	none:   otherwise
func ClassifyCoverage(valid []EvidenceSnippet) string {
	if len(valid) == 0 {
		return CoverageNone
	}

	sources := make(map[string]struct{})
	dimensions := make(map[string]struct{})
	for _, s := range valid {
		sources[s.ContentID] = struct{}{}
		dimensions[s.Dimension] = struct{}{}
	}

	switch {
	case len(valid) >= 6 && len(sources) >= 3 && len(dimensions) >= 3:
		return CoverageStrong
	case len(valid) >= 3 && len(sources) >= 2 && len(dimensions) >= 2:
		return CoverageMedium
	default:
		return CoverageWeak
	}
}

// reviewReason builds the manual-review reason string listing up to the
// first two failures.
func reviewReason(failures []EvidenceFailure) string {
	if len(failures) == 0 {
		return ""
	}
	shown := failures
	if len(shown) > 2 {
		shown = shown[:2]
	}
	parts := make([]string, 0, len(shown))
	for _, f := range shown {
		parts = append(parts, f.ContentID+": "+f.Quote)
	}
	return "evidence validation failed for " + strings.Join(parts, "; ")
}

func truncateQuote(q string) string {
	if len(q) <= maxQuoteAudit {
		return q
	}
	return q[:maxQuoteAudit]
}
