package rules

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// Disclosure rule family: required-but-missing disclosures, completeness
// against a required set, HOA document coverage and disclosure age.

// DisclosureMissingRule emits one MISSING flag per disclosure that is
// required but not provided. Severity derives from the disclosure name:
// statutory forms are critical, property-condition forms high, others medium.
type DisclosureMissingRule struct {
	BaseRule
}

// NewDisclosureMissingRule creates the missing disclosure rule.
func NewDisclosureMissingRule() *DisclosureMissingRule {
	return &DisclosureMissingRule{
		BaseRule: NewBaseRule(
			"DISCLOSURE",
			"Missing Disclosures",
			"Flags required disclosures that have not been provided",
			CategoryDisclosure,
			domain.SeverityMedium,
		),
	}
}

// statutoryDisclosures are forms whose absence is critical.
var statutoryDisclosures = []string{
	"lead-based paint",
	"lead based paint",
	"transfer disclosure",
	"seller disclosure",
	"natural hazard",
}

// disclosureSeverity derives a severity from a disclosure name.
func disclosureSeverity(name string) domain.Severity {
	lower := strings.ToLower(name)
	for _, s := range statutoryDisclosures {
		if strings.Contains(lower, s) {
			return domain.SeverityCritical
		}
	}
	if strings.Contains(lower, "condition") || strings.Contains(lower, "property") {
		return domain.SeverityHigh
	}
	return domain.SeverityMedium
}

// Evaluate implements Rule.
func (r *DisclosureMissingRule) Evaluate(ctx *Context) Result {
	var flags []domain.RiskFlag
	for _, d := range ctx.Contract.Disclosures {
		if d.Required && !d.Provided {
			flags = append(flags, r.Flag("MISSING",
				fmt.Sprintf("Required disclosure %q has not been provided", d.Name),
				disclosureSeverity(d.Name)))
		}
	}
	return r.ResultFrom(flags)
}

// DisclosureCompletenessRule matches a configurable required set against the
// provided disclosure names (case-insensitive substring both ways).
type DisclosureCompletenessRule struct {
	BaseRule
	required []string
}

// defaultRequiredDisclosures is the baseline required set applied in every
// state; state rules add their own statutory forms.
var defaultRequiredDisclosures = []string{"lead-based paint"}

// NewDisclosureCompletenessRule creates the completeness rule with the
// default required set.
func NewDisclosureCompletenessRule() *DisclosureCompletenessRule {
	return &DisclosureCompletenessRule{
		BaseRule: NewBaseRule(
			"DISCLOSURE_COMPLETENESS",
			"Disclosure Completeness",
			"Checks the provided disclosures against the required set",
			CategoryDisclosure,
			domain.SeverityHigh,
		),
		required: defaultRequiredDisclosures,
	}
}

// SetRequired replaces the required disclosure set.
func (r *DisclosureCompletenessRule) SetRequired(names []string) {
	r.required = names
}

// Evaluate implements Rule.
func (r *DisclosureCompletenessRule) Evaluate(ctx *Context) Result {
	var missing []string
	for _, want := range r.required {
		if !ctx.HasProvidedDisclosure(want) {
			missing = append(missing, want)
		}
	}
	if len(missing) == 0 {
		return r.Pass()
	}
	return r.Fail(r.Flag("INCOMPLETE",
		fmt.Sprintf("Required disclosures not provided: %s", strings.Join(missing, ", ")),
		r.SeverityFor(ctx.State)))
}

// HOADisclosureRule checks HOA document coverage when the property is in an
// HOA. HOA presence is detected via contract text or any disclosure name
// containing "hoa" or "association".
type HOADisclosureRule struct {
	BaseRule
}

// NewHOADisclosureRule creates the HOA disclosure rule.
func NewHOADisclosureRule() *HOADisclosureRule {
	return &HOADisclosureRule{
		BaseRule: NewBaseRule(
			"HOA_DISCLOSURE",
			"HOA Disclosures",
			"Checks HOA document coverage for properties in an association",
			CategoryDisclosure,
			domain.SeverityHigh,
		),
	}
}

// hoaRequiredDocs maps local flag codes to the HOA documents they cover.
var hoaRequiredDocs = []struct {
	local string
	name  string
}{
	{"MISSING_DOCS", "HOA documents"},
	{"MISSING_CCRS", "CC&Rs"},
	{"MISSING_FINANCIALS", "HOA financial statements"},
	{"MISSING_ASSESSMENTS", "special assessments"},
}

// Evaluate implements Rule.
func (r *HOADisclosureRule) Evaluate(ctx *Context) Result {
	inHOA := ctx.ContainsAny("hoa", "homeowners association", "homeowner's association")
	if !inHOA {
		for _, d := range ctx.Contract.Disclosures {
			lower := strings.ToLower(d.Name)
			if strings.Contains(lower, "hoa") || strings.Contains(lower, "association") {
				inHOA = true
				break
			}
		}
	}
	if !inHOA {
		return r.Pass()
	}

	sev := r.SeverityFor(ctx.State)
	var flags []domain.RiskFlag
	for _, doc := range hoaRequiredDocs {
		if !ctx.HasProvidedDisclosure(doc.name) {
			flags = append(flags, r.Flag(doc.local,
				fmt.Sprintf("HOA property is missing %s", doc.name), sev))
		}
	}

	return r.ResultFrom(flags)
}

// DisclosureAgeRule parses disclosure dates from the contract text and flags
// forms older than the allowed age.
type DisclosureAgeRule struct {
	BaseRule
}

// NewDisclosureAgeRule creates the disclosure age rule.
// Threshold: max_age_days (default 180); escalates to high past 365 days.
func NewDisclosureAgeRule() *DisclosureAgeRule {
	return &DisclosureAgeRule{
		BaseRule: NewBaseRule(
			"DISCLOSURE_AGE",
			"Disclosure Age",
			"Flags disclosures dated too far in the past",
			CategoryDisclosure,
			domain.SeverityMedium,
		),
	}
}

var (
	datedPattern = regexp.MustCompile(`(?i)(?:dated|as of)\s+(\d{1,2}/\d{1,2}/\d{4})`)
	asOfPattern  = regexp.MustCompile(`(?i)(?:dated|as of)\s+([A-Z][a-z]+ \d{1,2}, \d{4})`)
)

// disclosureDates extracts parseable dates from the text.
func disclosureDates(text string) []time.Time {
	var dates []time.Time
	for _, m := range datedPattern.FindAllStringSubmatch(text, -1) {
		if t, err := time.Parse("1/2/2006", m[1]); err == nil {
			dates = append(dates, t)
		}
	}
	for _, m := range asOfPattern.FindAllStringSubmatch(text, -1) {
		if t, err := time.Parse("January 2, 2006", m[1]); err == nil {
			dates = append(dates, t)
		}
	}
	return dates
}

// Evaluate implements Rule.
func (r *DisclosureAgeRule) Evaluate(ctx *Context) Result {
	dates := disclosureDates(ctx.Text)
	if len(dates) == 0 {
		return r.Pass()
	}

	maxAge := time.Duration(r.Threshold("max_age_days", 180)) * 24 * time.Hour
	yearAge := 365 * 24 * time.Hour

	var flags []domain.RiskFlag
	for _, d := range dates {
		age := ctx.Now.Sub(d)
		if age <= maxAge {
			continue
		}
		sev := r.SeverityFor(ctx.State)
		if age > yearAge {
			sev = domain.SeverityHigh
		}
		flags = append(flags, r.Flag("OUTDATED",
			fmt.Sprintf("Disclosure dated %s is %d days old", d.Format("01/02/2006"), int(age.Hours()/24)),
			sev))
	}

	return r.ResultFrom(flags)
}
