package states

import (
	"sort"
	"strings"

	"github.com/dealsentry/dealsentry/internal/modules/rules"
)

// StateInfo describes one supported state.
type StateInfo struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Requirements []string `json:"requirements"`

	factory func() []rules.Rule
}

// registry is the closed set of supported states. Factories build fresh rule
// instances per call so callers can configure them independently.
var registry = map[string]StateInfo{
	"CA": {Code: "CA", Name: "California", Requirements: californiaRequirements, factory: CaliforniaRules},
	"TX": {Code: "TX", Name: "Texas", Requirements: texasRequirements, factory: TexasRules},
	"FL": {Code: "FL", Name: "Florida", Requirements: floridaRequirements, factory: FloridaRules},
	"NY": {Code: "NY", Name: "New York", Requirements: newYorkRequirements, factory: NewYorkRules},
}

// IsSupported reports whether the state code has a registered rule set.
// Codes are matched case-insensitively.
func IsSupported(code string) bool {
	_, ok := registry[strings.ToUpper(code)]
	return ok
}

// SupportedCodes returns the registered state codes in alphabetical order.
func SupportedCodes() []string {
	codes := make([]string, 0, len(registry))
	for c := range registry {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Info returns the registry entry for a state code.
func Info(code string) (StateInfo, bool) {
	info, ok := registry[strings.ToUpper(code)]
	return info, ok
}

// List returns all registry entries in alphabetical code order.
func List() []StateInfo {
	out := make([]StateInfo, 0, len(registry))
	for _, c := range SupportedCodes() {
		out = append(out, registry[c])
	}
	return out
}

// CreateRules builds a fresh rule set for the state. Unsupported codes yield
// nil; the caller decides how to surface that.
func CreateRules(code string) []rules.Rule {
	info, ok := registry[strings.ToUpper(code)]
	if !ok {
		return nil
	}
	return info.factory()
}

// CreateMultiStateRules builds the union of rule sets for several states,
// deduplicated by rule ID in first-seen order. Unsupported codes are skipped.
func CreateMultiStateRules(codes ...string) []rules.Rule {
	seen := make(map[string]struct{})
	var out []rules.Rule
	for _, code := range codes {
		for _, r := range CreateRules(code) {
			if _, dup := seen[r.ID()]; dup {
				continue
			}
			seen[r.ID()] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
