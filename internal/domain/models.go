// Package domain contains the core entities of the deal risk analysis
// service. The domain layer is pure: no infrastructure dependencies.
package domain

import "time"

// ContractStatus is the lifecycle status of a contract.
type ContractStatus string

const (
	StatusDraft     ContractStatus = "draft"
	StatusSubmitted ContractStatus = "submitted"
	StatusReviewed  ContractStatus = "reviewed"
	StatusArchived  ContractStatus = "archived"
)

// ClauseType categorizes a contract clause.
type ClauseType string

const (
	ClauseStandard ClauseType = "standard"
	ClauseUnusual  ClauseType = "unusual"
	ClauseCustom   ClauseType = "custom"
)

// MediaType is the media type of an attached document.
type MediaType string

const (
	MediaPDF   MediaType = "pdf"
	MediaDoc   MediaType = "doc"
	MediaOther MediaType = "other"
)

// Clause is a semantically distinct provision in a contract's text.
type Clause struct {
	Text    string     `json:"text"`
	Type    ClauseType `json:"type"`
	Flagged bool       `json:"flagged"`
}

// Disclosure is a named form required to be provided to the buyer.
type Disclosure struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Provided bool   `json:"provided"`
}

// Addendum is a supplementary document attached to the main contract.
type Addendum struct {
	Name     string `json:"name"`
	Included bool   `json:"included"`
}

// Document is a reference to an uploaded contract document.
type Document struct {
	URL        string    `json:"url"`
	MediaType  MediaType `json:"media_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Contract is a residential purchase contract with its child collections.
// A contract exclusively owns its clauses, disclosures, addenda and documents.
type Contract struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	UserID         string         `json:"user_id"`
	OrganizationID string         `json:"organization_id"`
	State          string         `json:"state"` // two-letter state code, may be empty
	Status         ContractStatus `json:"status"`
	ContractText   string         `json:"contract_text"` // raw text supplied by the caller, may be empty
	Clauses        []Clause       `json:"clauses"`
	Disclosures    []Disclosure   `json:"disclosures"`
	Addenda        []Addendum     `json:"addenda"`
	Documents      []Document     `json:"documents"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Severity is the four-value ordered severity of a risk flag.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordering position of a severity (low < medium < high < critical).
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether the severity belongs to the fixed four-value set.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// RiskFlag is a coded, severity-tagged finding produced by a rule.
// Two flags are the same iff their codes match. Codes are uppercase ASCII
// in the form {RULE_ID}_{LOCAL_CODE} and are stable across versions.
type RiskFlag struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// RiskScore is the current numeric risk score for a contract.
// Score is always clamped to [0,100] before storage; higher = safer.
type RiskScore struct {
	ContractID   string             `json:"contract_id"`
	Score        int                `json:"score"`
	CalculatedAt time.Time          `json:"calculated_at"`
	Flags        []RiskFlag         `json:"flags"`
	Breakdown    map[string]float64 `json:"breakdown,omitempty"`
}

// RiskHistoryEntry is one historical score observation for a contract.
type RiskHistoryEntry struct {
	AnalyzedAt time.Time  `json:"analyzed_at"`
	Score      int        `json:"score"`
	Flags      []RiskFlag `json:"flags"`
}

// HistoryCap is the maximum number of history entries retained per contract.
// Oldest entries are evicted first.
const HistoryCap = 100

// RiskHistory is the bounded, append-ordered score history of one contract.
type RiskHistory struct {
	ContractID string             `json:"contract_id"`
	Entries    []RiskHistoryEntry `json:"entries"`
}

// RiskAnalysis is the end-to-end result of analyzing one contract.
type RiskAnalysis struct {
	ContractID   string     `json:"contract_id"`
	Summary      string     `json:"summary"`
	Score        *RiskScore `json:"score"`
	Explanations []string   `json:"explanations"`
}

// RecommendationPriority orders recommendations: immediate < soon < optional.
type RecommendationPriority string

const (
	PriorityImmediate RecommendationPriority = "immediate"
	PrioritySoon      RecommendationPriority = "soon"
	PriorityOptional  RecommendationPriority = "optional"
)

// Rank returns the sort position of a priority (immediate first).
func (p RecommendationPriority) Rank() int {
	switch p {
	case PriorityImmediate:
		return 0
	case PrioritySoon:
		return 1
	case PriorityOptional:
		return 2
	default:
		return 3
	}
}

// Recommendation is a prioritized action derived from a flag or score band.
type Recommendation struct {
	Priority RecommendationPriority `json:"priority"`
	Action   string                 `json:"action"`
	FlagCode string                 `json:"flag_code,omitempty"`
}

// TrendDirection is the three-way classification of the latest score change.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendWorsening TrendDirection = "worsening"
	TrendStable    TrendDirection = "stable"
	TrendNew       TrendDirection = "new"
)

// Trend summarizes the score movement of a contract.
type Trend struct {
	ContractID    string         `json:"contract_id"`
	CurrentScore  int            `json:"current_score"`
	PreviousScore int            `json:"previous_score"`
	ScoreChange   int            `json:"score_change"`
	Direction     TrendDirection `json:"direction"`
	HistoryCount  int            `json:"history_count"`
}

// FlagChanges is the flag-set diff between the two most recent history entries.
// Flag objects are preserved, not just codes.
type FlagChanges struct {
	New      []RiskFlag `json:"new"`
	Resolved []RiskFlag `json:"resolved"`
}

// HistoryStatistics aggregates history entries over a time window.
type HistoryStatistics struct {
	AverageScore int     `json:"average_score"`
	MinScore     int     `json:"min_score"`
	MaxScore     int     `json:"max_score"`
	Volatility   float64 `json:"volatility"` // stddev rounded to 2 decimals
	EntryCount   int     `json:"entry_count"`
}

// ClampScore clamps a raw score into the valid [0,100] range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
