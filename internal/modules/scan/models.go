// Package scan drives document scans: a job wrapper around rule evaluation
// with step-wise progress, per-step error capture, and retry.
package scan

import (
	"time"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// Type selects the scan depth.
type Type string

const (
	TypeBasic    Type = "basic"
	TypeAdvanced Type = "advanced"
	TypeCustom   Type = "custom"
)

// Valid reports whether the scan type is one of the known values.
func (t Type) Valid() bool {
	switch t {
	case TypeBasic, TypeAdvanced, TypeCustom:
		return true
	}
	return false
}

// Status is the scan state machine position.
// Transitions: pending -> running -> completed | failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Options toggles individual scan steps. A skipped step reports no findings
// and no errors.
type Options struct {
	SkipClauseExtraction bool   `json:"skip_clause_extraction"`
	SkipRiskDetection    bool   `json:"skip_risk_detection"`
	SkipUnusualClauses   bool   `json:"skip_unusual_clauses"`
	SkipStateRules       bool   `json:"skip_state_rules"`
	State                string `json:"state,omitempty"`
}

// Request creates a new scan.
type Request struct {
	ContractID  string  `json:"contract_id,omitempty"`
	DocumentURL string  `json:"document_url"`
	RequestedBy string  `json:"requested_by"`
	Type        Type    `json:"scan_type"`
	Options     Options `json:"options"`
}

// Scan is the persisted job record.
type Scan struct {
	ID          string            `json:"id"`
	ContractID  string            `json:"contract_id,omitempty"`
	DocumentURL string            `json:"document_url"`
	RequestedBy string            `json:"requested_by"`
	Type        Type              `json:"scan_type"`
	Status      Status            `json:"status"`
	Progress    int               `json:"progress"`
	Message     string            `json:"message"`
	Score       *int              `json:"score,omitempty"`
	Findings    []domain.RiskFlag `json:"findings"`
	Errors      []string          `json:"errors,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Result is the outcome of one scan execution.
type Result struct {
	ID          string            `json:"id"`
	ScanID      string            `json:"scan_id"`
	Findings    []domain.RiskFlag `json:"findings"`
	Score       int               `json:"score"`
	CompletedAt time.Time         `json:"completed_at"`
	Errors      []string          `json:"errors,omitempty"`
}

// Progress is one step update emitted while a scan runs.
type Progress struct {
	ScanID    string    `json:"scan_id"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}
