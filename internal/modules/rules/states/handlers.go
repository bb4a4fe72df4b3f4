package states

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/rules"
	"github.com/dealsentry/dealsentry/internal/server/respond"
)

// Handler exposes the state rule HTTP surface.
type Handler struct {
	contracts domain.ContractRepository
	log       zerolog.Logger
}

// NewHandler creates a state rules handler.
func NewHandler(contracts domain.ContractRepository, log zerolog.Logger) *Handler {
	return &Handler{
		contracts: contracts,
		log:       log.With().Str("handler", "state_rules").Logger(),
	}
}

// RegisterRoutes registers the state rule routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/state-rules", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/{contractId}/apply", h.HandleApply)
		r.Post("/{contractId}/validate", h.HandleValidate)
		r.Get("/{contractId}/compliance-report", h.HandleComplianceReport)
	})
}

// HandleList handles GET /state-rules: the supported state registry.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, List())
}

// loadRuleContext loads the contract and builds its rule context, writing
// the error response itself on failure.
func (h *Handler) loadRuleContext(w http.ResponseWriter, r *http.Request) (*rules.Context, bool) {
	id := chi.URLParam(r, "contractId")

	contract, err := h.contracts.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrContractNotFound) {
			respond.Error(w, http.StatusNotFound, "CONTRACT_NOT_FOUND", "Contract not found")
			return nil, false
		}
		h.log.Error().Err(err).Str("contract_id", id).Msg("Failed to load contract")
		respond.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to load contract")
		return nil, false
	}
	return rules.NewContext(contract), true
}

// HandleApply handles POST /state-rules/{contractId}/apply: evaluates the
// contract's state rule set and returns per-rule results.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.loadRuleContext(w, r)
	if !ok {
		return
	}
	if ctx.State == "" {
		respond.Error(w, http.StatusBadRequest, "VALIDATION", "Contract has no state code")
		return
	}
	if !IsSupported(ctx.State) {
		respond.ErrorDetails(w, http.StatusUnprocessableEntity, "UNSUPPORTED_STATE",
			fmt.Sprintf("State %q has no rule set", ctx.State),
			map[string]interface{}{"supported": SupportedCodes()})
		return
	}

	engine := rules.NewEngine(h.log)
	engine.RegisterAll(CreateRules(ctx.State))
	results := engine.Evaluate(ctx)

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"state":   ctx.State,
		"results": results,
		"flags":   rules.AggregateFlags(results),
		"summary": rules.Summarize(results),
	})
}

// HandleValidate handles POST /state-rules/{contractId}/validate: pass/fail
// per statutory requirement without the full flag payload.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.loadRuleContext(w, r)
	if !ok {
		return
	}
	if ctx.State == "" || !IsSupported(ctx.State) {
		respond.Error(w, http.StatusBadRequest, "VALIDATION", "Contract has no supported state code")
		return
	}

	engine := rules.NewEngine(h.log)
	engine.RegisterAll(CreateRules(ctx.State))
	results := engine.Evaluate(ctx)

	checks := make([]map[string]interface{}, 0, len(results))
	valid := true
	for _, res := range results {
		if !res.Passed {
			valid = false
		}
		checks = append(checks, map[string]interface{}{
			"rule_id":   res.RuleID,
			"rule_name": res.RuleName,
			"passed":    res.Passed,
		})
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"state":  ctx.State,
		"valid":  valid,
		"checks": checks,
	})
}

// HandleComplianceReport handles GET /state-rules/{contractId}/compliance-report.
func (h *Handler) HandleComplianceReport(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.loadRuleContext(w, r)
	if !ok {
		return
	}
	if ctx.State == "" || !IsSupported(ctx.State) {
		respond.Error(w, http.StatusBadRequest, "VALIDATION", "Contract has no supported state code")
		return
	}
	info, _ := Info(ctx.State)

	engine := rules.NewEngine(h.log)
	engine.RegisterAll(CreateRules(ctx.State))
	results := engine.Evaluate(ctx)
	summary := rules.Summarize(results)

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"state":        info.Code,
		"state_name":   info.Name,
		"requirements": info.Requirements,
		"results":      results,
		"pass_rate":    summary.PassRate,
		"flags":        rules.AggregateFlags(results),
		"compliant":    summary.Failed == 0,
	})
}
