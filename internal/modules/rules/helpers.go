package rules

import (
	"regexp"
	"strconv"
	"strings"
)

// Shared text extraction helpers. Every rule relies on these rather than
// duplicating regex plumbing.

var (
	moneyPattern    = regexp.MustCompile(`\$\s?([\d,]+(?:\.\d{1,2})?)`)
	dayCountPattern = regexp.MustCompile(`(\d+)\s*(?:calendar\s+|business\s+)?days?`)
)

// FindMatches returns the substrings of text matched by the pattern.
func FindMatches(pattern *regexp.Regexp, text string) []string {
	return pattern.FindAllString(text, -1)
}

// ParseAmount converts a matched money string like "$1,234.56" or "1,234"
// to a float64.
func ParseAmount(s string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// AmountNear extracts the dollar amount belonging to a keyword: the match in
// the same sentence within window characters of any keyword occurrence
// (case-insensitive, either side), nearest first. In "earnest money of
// $10,000 toward the purchase price of $500,000" the "purchase price" lookup
// resolves to the $500,000 beside it, not the earlier amount that also sits
// in the window. Returns false when no amount qualifies.
func AmountNear(text, keyword string, window int) (float64, bool) {
	best, ok := nearestMatch(text, keyword, window, moneyPattern.FindAllStringSubmatchIndex(text, -1))
	if !ok {
		return 0, false
	}
	return ParseAmount(text[best[0]:best[1]])
}

// DaysNear extracts the day count belonging to a keyword, with the same
// same-sentence nearest-match semantics as AmountNear. Returns false when
// none qualifies.
func DaysNear(text, keyword string, window int) (int, bool) {
	lower := strings.ToLower(text)
	best, ok := nearestMatch(text, keyword, window, dayCountPattern.FindAllStringSubmatchIndex(lower, -1))
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(lower[best[2]:best[3]])
	if err != nil {
		return 0, false
	}
	return n, true
}

// percentPattern matches values like "95%", "96.5 %".
var percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s?%`)

// PercentNear extracts the percentage belonging to a keyword, with the same
// same-sentence nearest-match semantics as AmountNear. Returns false when
// none qualifies.
func PercentNear(text, keyword string, window int) (float64, bool) {
	lower := strings.ToLower(text)
	best, ok := nearestMatch(text, keyword, window, percentPattern.FindAllStringSubmatchIndex(lower, -1))
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(lower[best[2]:best[3]], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// nearestMatch picks the pattern match belonging to the keyword: same
// sentence, within window characters, smallest gap. On equal gaps the match
// following the keyword wins, since contract prose states a value after its
// label.
func nearestMatch(text, keyword string, window int, matches [][]int) ([]int, bool) {
	lower := strings.ToLower(text)
	kw := strings.ToLower(keyword)

	keywordSpans := keywordOffsets(lower, kw)
	if len(keywordSpans) == 0 {
		return nil, false
	}

	var (
		best      []int
		bestDist  int
		bestAfter bool
	)
	for _, m := range matches {
		start, end := m[0], m[1]
		for _, ks := range keywordSpans {
			ke := ks + len(kw)
			d := spanDistance(start, end, ks, ke)
			if d > window || !sameSentence(text, start, end, ks, ke) {
				continue
			}
			after := start >= ks
			if best != nil {
				if d > bestDist {
					continue
				}
				if d == bestDist && (bestAfter || !after) {
					continue
				}
			}
			best = m
			bestDist = d
			bestAfter = after
		}
	}
	return best, best != nil
}

// sentenceBreaks marks the characters that end a sentence for the purpose of
// pairing a keyword with its value. Decimal points inside a matched amount
// never fall in the gap between spans, so they do not split.
const sentenceBreaks = ".!?;\n"

// sameSentence reports whether no sentence break separates spans
// [aStart,aEnd) and [bStart,bEnd).
func sameSentence(text string, aStart, aEnd, bStart, bEnd int) bool {
	gapStart, gapEnd := aEnd, bStart
	if bEnd <= aStart {
		gapStart, gapEnd = bEnd, aStart
	}
	if gapStart >= gapEnd {
		return true
	}
	return !strings.ContainsAny(text[gapStart:gapEnd], sentenceBreaks)
}

// containsAnyFold reports whether s contains any of the keywords,
// case-insensitively.
func containsAnyFold(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// keywordOffsets returns every index at which kw occurs in lower.
func keywordOffsets(lower, kw string) []int {
	var offsets []int
	from := 0
	for {
		i := strings.Index(lower[from:], kw)
		if i < 0 {
			return offsets
		}
		offsets = append(offsets, from+i)
		from += i + len(kw)
	}
}

// spanDistance returns the character gap between spans [aStart,aEnd) and
// [bStart,bEnd); overlapping spans have distance 0.
func spanDistance(aStart, aEnd, bStart, bEnd int) int {
	if aEnd <= bStart {
		return bStart - aEnd
	}
	if bEnd <= aStart {
		return aStart - bEnd
	}
	return 0
}
