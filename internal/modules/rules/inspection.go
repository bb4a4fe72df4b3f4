package rules

import (
	"fmt"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// Inspection rule family: contingency presence, timeline, required
// inspection types and repair terms.

// hasInspectionContingency reports whether the text carries an inspection
// contingency clause.
func hasInspectionContingency(ctx *Context) bool {
	return ctx.ContainsAny("inspection contingency", "inspection period", "due diligence period") ||
		(ctx.Contains("inspection") && ctx.Contains("contingency"))
}

// InspectionContingencyRule checks that the buyer retains an inspection
// contingency.
type InspectionContingencyRule struct {
	BaseRule
}

// NewInspectionContingencyRule creates the inspection contingency rule.
func NewInspectionContingencyRule() *InspectionContingencyRule {
	return &InspectionContingencyRule{
		BaseRule: NewBaseRule(
			"INSPECTION_CONTINGENCY",
			"Inspection Contingency",
			"Checks that the buyer retains an inspection contingency",
			CategoryInspection,
			domain.SeverityCritical,
		),
	}
}

// Evaluate implements Rule.
func (r *InspectionContingencyRule) Evaluate(ctx *Context) Result {
	sev := r.SeverityFor(ctx.State)

	if ctx.Contains("waive") && ctx.Contains("inspection") {
		return r.Fail(r.Flag("WAIVED",
			"Inspection contingency appears to be waived", sev))
	}

	if hasInspectionContingency(ctx) {
		return r.Pass()
	}

	if ctx.ContainsAny("as-is", "as is, where is", "as-is where-is") {
		return r.Fail(r.Flag("AS_IS",
			"Property is sold as-is with no inspection contingency", domain.SeverityHigh))
	}

	if ctx.IsCash() {
		return r.Pass()
	}

	return r.Fail(r.Flag("MISSING",
		"No inspection contingency found", sev))
}

// InspectionTimelineRule checks the inspection window length.
type InspectionTimelineRule struct {
	BaseRule
}

// NewInspectionTimelineRule creates the inspection timeline rule.
// Thresholds: min_days (default 7), max_days (default 17).
func NewInspectionTimelineRule() *InspectionTimelineRule {
	return &InspectionTimelineRule{
		BaseRule: NewBaseRule(
			"INSPECTION_TIMELINE",
			"Inspection Timeline",
			"Checks that the inspection window is within the typical range",
			CategoryTimeline,
			domain.SeverityMedium,
		),
	}
}

// Evaluate implements Rule.
func (r *InspectionTimelineRule) Evaluate(ctx *Context) Result {
	// Nothing to time when there is no inspection contingency at all;
	// the contingency rule covers that case.
	if !hasInspectionContingency(ctx) {
		return r.Pass()
	}

	sev := r.SeverityFor(ctx.State)

	days, ok := DaysNear(ctx.Text, "inspection", 80)
	if !ok {
		return r.Fail(r.Flag("NO_TIMELINE",
			"Inspection contingency has no stated timeline", sev))
	}

	minDays := int(r.Threshold("min_days", 7))
	maxDays := int(r.Threshold("max_days", 17))

	if days < minDays {
		return r.Fail(r.Flag("TOO_SHORT",
			fmt.Sprintf("Inspection window of %d days is shorter than the typical %d days", days, minDays), sev))
	}
	if days > maxDays {
		return r.Fail(r.Flag("TOO_LONG",
			fmt.Sprintf("Inspection window of %d days exceeds the typical %d days", days, maxDays), sev))
	}

	return r.Pass()
}

// RequiredInspectionsRule flags the absence of home and pest inspections
// when the contract carries no general inspection contingency to cover them.
type RequiredInspectionsRule struct {
	BaseRule
}

// NewRequiredInspectionsRule creates the required inspections rule.
func NewRequiredInspectionsRule() *RequiredInspectionsRule {
	return &RequiredInspectionsRule{
		BaseRule: NewBaseRule(
			"REQUIRED_INSPECTIONS",
			"Required Inspections",
			"Checks for home and pest inspection coverage",
			CategoryInspection,
			domain.SeverityMedium,
		),
	}
}

// Evaluate implements Rule.
func (r *RequiredInspectionsRule) Evaluate(ctx *Context) Result {
	// A general inspection contingency covers specific inspections.
	if hasInspectionContingency(ctx) {
		return r.Pass()
	}

	sev := r.SeverityFor(ctx.State)
	var flags []domain.RiskFlag

	if !ctx.Contains("home inspection") {
		flags = append(flags, r.Flag("NO_HOME_INSPECTION",
			"No home inspection is mentioned", sev))
	}
	if !ctx.Contains("pest inspection") {
		flags = append(flags, r.Flag("NO_PEST_INSPECTION",
			"No pest inspection is mentioned", sev))
	}

	return r.ResultFrom(flags)
}

// InspectionRepairsRule checks repair negotiation terms.
type InspectionRepairsRule struct {
	BaseRule
}

// NewInspectionRepairsRule creates the inspection repair terms rule.
func NewInspectionRepairsRule() *InspectionRepairsRule {
	return &InspectionRepairsRule{
		BaseRule: NewBaseRule(
			"INSPECTION_REPAIRS",
			"Inspection Repair Terms",
			"Checks repair caps, seller responsibility and credit options",
			CategoryInspection,
			domain.SeverityMedium,
		),
	}
}

// Evaluate implements Rule.
func (r *InspectionRepairsRule) Evaluate(ctx *Context) Result {
	// Applicable only when repairs are actually discussed.
	if !ctx.Contains("repair") {
		return r.Pass()
	}

	var flags []domain.RiskFlag

	if ctx.ContainsAny("seller not responsible", "seller shall not be responsible", "no obligation to repair") {
		flags = append(flags, r.Flag("SELLER_NOT_RESPONSIBLE",
			"Seller disclaims responsibility for repairs", domain.SeverityHigh))
	}
	if !ctx.ContainsAny("repair cap", "maximum repair", "up to $", "not to exceed") {
		flags = append(flags, r.Flag("NO_REPAIR_CAP",
			"Repair obligations carry no dollar cap", domain.SeverityLow))
	}
	if !ctx.ContainsAny("credit", "closing cost credit", "repair credit") {
		flags = append(flags, r.Flag("NO_CREDIT_OPTION",
			"No repair credit option is provided", domain.SeverityLow))
	}

	return r.ResultFrom(flags)
}
