package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dealsentry/dealsentry/internal/clients/ai"
	"github.com/dealsentry/dealsentry/internal/domain"
)

// AIClient is the slice of the gateway client the orchestrator consumes.
type AIClient interface {
	Call(ctx context.Context, req ai.Request) (*ai.Response, error)
}

// riskExplanationsPayload is the expected JSON shape of the risk
// explanations prompt response.
type riskExplanationsPayload struct {
	Risks []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
	} `json:"risks"`
}

// unusualClausesPayload is the expected JSON shape of the unusual clauses
// prompt response.
type unusualClausesPayload struct {
	Items []struct {
		Text   string `json:"text"`
		Reason string `json:"reason"`
	} `json:"items"`
}

// aiSignals is what AI augmentation contributes to an analysis. A failed
// call or parse yields the zero value.
type aiSignals struct {
	flags          []domain.RiskFlag
	unusualClauses []string
}

// fetchAISignals issues both prompts. Gateway errors and parse failures are
// logged and degrade to an empty signal set; they never fail the analysis.
func (s *Service) fetchAISignals(ctx context.Context, contractID, text string) aiSignals {
	var signals aiSignals

	resp, err := s.aiClient.Call(ctx, ai.Request{Prompt: riskExplanationsPrompt(text)})
	if err == nil && resp.Error == "" {
		var payload riskExplanationsPayload
		if decodeAIPayload(resp, &payload) {
			for _, risk := range payload.Risks {
				sev := domain.Severity(strings.ToLower(risk.Severity))
				if !sev.Valid() {
					sev = domain.SeverityMedium
				}
				code := strings.ToUpper(strings.TrimSpace(risk.Code))
				if code == "" || risk.Description == "" {
					continue
				}
				signals.flags = append(signals.flags, domain.RiskFlag{
					Code:        code,
					Description: risk.Description,
					Severity:    sev,
				})
			}
		}
	} else {
		s.logAIFailure(contractID, "risk explanations", resp, err)
	}

	resp, err = s.aiClient.Call(ctx, ai.Request{Prompt: unusualClausesPrompt(text)})
	if err == nil && resp.Error == "" {
		var payload unusualClausesPayload
		if decodeAIPayload(resp, &payload) {
			for _, item := range payload.Items {
				if item.Text != "" {
					signals.unusualClauses = append(signals.unusualClauses, item.Text)
				}
			}
		}
	} else {
		s.logAIFailure(contractID, "unusual clauses", resp, err)
	}

	return signals
}

func (s *Service) logAIFailure(contractID, prompt string, resp *ai.Response, err error) {
	evt := s.log.Warn().Str("contract_id", contractID).Str("prompt", prompt)
	if err != nil {
		evt = evt.Err(err)
	} else if resp != nil && resp.Error != "" {
		evt = evt.Str("gateway_error", resp.Error)
	}
	evt.Msg("AI augmentation unavailable, continuing without signals")
}

// decodeAIPayload decodes the gateway response into v: the structured
// Parsed field when present, otherwise the raw text as JSON, otherwise the
// first {...} substring of the raw text. A failed parse reports false.
func decodeAIPayload(resp *ai.Response, v interface{}) bool {
	if resp.Parsed != nil {
		data, err := json.Marshal(resp.Parsed)
		if err == nil && json.Unmarshal(data, v) == nil {
			return true
		}
	}
	raw := strings.TrimSpace(resp.Raw)
	if raw == "" {
		return false
	}
	if json.Unmarshal([]byte(raw), v) == nil {
		return true
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(raw[start:end+1]), v) == nil
}

func riskExplanationsPrompt(text string) string {
	return fmt.Sprintf(`You are a real estate contract risk analyst. Review the purchase contract below and identify risks not covered by standard contingency checks.

Respond with JSON only, in this exact shape:
{"risks": [{"code": "UPPER_SNAKE_CODE", "description": "...", "severity": "low|medium|high|critical"}]}

Contract:
%s`, text)
}

func unusualClausesPrompt(text string) string {
	return fmt.Sprintf(`You are a real estate contract reviewer. List clauses in the contract below that are unusual for a standard residential purchase agreement.

Respond with JSON only, in this exact shape:
{"items": [{"text": "the clause text", "reason": "why it is unusual"}]}

Contract:
%s`, text)
}
