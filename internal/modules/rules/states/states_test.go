package states

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/rules"
)

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("CA"))
	assert.True(t, IsSupported("ny"))
	assert.True(t, IsSupported("Tx"))
	assert.False(t, IsSupported("ZZ"))
	assert.False(t, IsSupported(""))
}

func TestSupportedCodes(t *testing.T) {
	assert.Equal(t, []string{"CA", "FL", "NY", "TX"}, SupportedCodes())
}

func TestInfo(t *testing.T) {
	info, ok := Info("ca")
	require.True(t, ok)
	assert.Equal(t, "CA", info.Code)
	assert.Equal(t, "California", info.Name)
	assert.NotEmpty(t, info.Requirements)

	_, ok = Info("ZZ")
	assert.False(t, ok)
}

func TestCreateRules_Deterministic(t *testing.T) {
	for _, code := range SupportedCodes() {
		first := CreateRules(code)
		second := CreateRules(code)

		require.NotEmpty(t, first, "state %s must have rules", code)
		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].ID(), second[i].ID())
		}
	}
}

func TestCreateRules_Unsupported(t *testing.T) {
	assert.Nil(t, CreateRules("ZZ"))
}

func TestCreateRules_FreshInstances(t *testing.T) {
	first := CreateRules("CA")
	second := CreateRules("CA")

	first[0].Configure(rules.Config{Enabled: false})

	assert.False(t, first[0].IsEnabled(""))
	assert.True(t, second[0].IsEnabled(""))
}

func TestCreateMultiStateRules_Dedup(t *testing.T) {
	combined := CreateMultiStateRules("CA", "CA", "ZZ", "NY")

	seen := make(map[string]int)
	for _, r := range combined {
		seen[r.ID()]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "rule %s duplicated", id)
	}
	assert.Len(t, combined, len(CreateRules("CA"))+len(CreateRules("NY")))
}

func evaluateState(t *testing.T, code string, contract *domain.Contract) []domain.RiskFlag {
	t.Helper()
	engine := rules.NewEngine(zerolog.Nop())
	engine.RegisterAll(CreateRules(code))
	return rules.AggregateFlags(engine.Evaluate(rules.NewContext(contract)))
}

func TestCaliforniaRules_AllDisclosuresProvided(t *testing.T) {
	contract := &domain.Contract{
		State:        "CA",
		ContractText: "Financing contingency of 21 days. Inspection contingency of 10 days.",
		Disclosures: []domain.Disclosure{
			{Name: "TDS", Required: true, Provided: true},
			{Name: "NHD", Required: true, Provided: true},
			{Name: "Lead-Based Paint Disclosure", Required: true, Provided: true},
		},
	}

	assert.Empty(t, evaluateState(t, "CA", contract))
}

func TestCaliforniaRules_MissingTDS(t *testing.T) {
	contract := &domain.Contract{State: "CA", ContractText: "Standard purchase terms."}

	flags := evaluateState(t, "CA", contract)

	codes := make([]string, 0, len(flags))
	for _, f := range flags {
		codes = append(codes, f.Code)
	}
	assert.Contains(t, codes, "CA_TDS_MISSING")
	assert.Contains(t, codes, "CA_NHD_MISSING")
}

func TestNewYorkRules_CoopWithoutBoardApproval(t *testing.T) {
	contract := &domain.Contract{
		State:        "NY",
		ContractText: "Purchase of co-op apartment 4B, subject to attorney review. Credit in lieu of PCDS accepted.",
	}

	flags := evaluateState(t, "NY", contract)

	require.Len(t, flags, 1)
	assert.Equal(t, "NY_BOARD_APPROVAL_NO_BOARD_CONTINGENCY", flags[0].Code)
	assert.Equal(t, domain.SeverityCritical, flags[0].Severity)
}

func TestNewYorkRules_CoopWithBoardApproval(t *testing.T) {
	contract := &domain.Contract{
		State:        "NY",
		ContractText: "Purchase of co-op apartment 4B contingent on board approval, subject to attorney review. Credit in lieu of PCDS accepted.",
	}

	assert.Empty(t, evaluateState(t, "NY", contract))
}

func TestNewYorkRules_MansionTax(t *testing.T) {
	contract := &domain.Contract{
		State:        "NY",
		ContractText: "The purchase price is $1,250,000, subject to attorney review. Credit in lieu of PCDS accepted.",
	}

	flags := evaluateState(t, "NY", contract)

	require.Len(t, flags, 1)
	assert.Equal(t, "NY_MANSION_TAX_NOT_ADDRESSED", flags[0].Code)
}

func TestTexasRules_OptionPeriod(t *testing.T) {
	base := "Survey attached. Title policy to be paid by seller. "
	disclosures := []domain.Disclosure{{Name: "Seller's Disclosure Notice", Required: true, Provided: true}}

	contract := &domain.Contract{
		State:        "TX",
		ContractText: base + "Option period of 7 days for an option fee of $200.",
		Disclosures:  disclosures,
	}
	assert.Empty(t, evaluateState(t, "TX", contract))

	contract.ContractText = base + "Option period of 15 days for an option fee of $200."
	flags := evaluateState(t, "TX", contract)
	require.Len(t, flags, 1)
	assert.Equal(t, "TX_OPTION_PERIOD_TOO_LONG", flags[0].Code)
	assert.Equal(t, domain.SeverityLow, flags[0].Severity)

	contract.ContractText = base + "Closing within 30 days."
	flags = evaluateState(t, "TX", contract)
	require.Len(t, flags, 1)
	assert.Equal(t, "TX_OPTION_PERIOD_MISSING", flags[0].Code)
	assert.Equal(t, domain.SeverityHigh, flags[0].Severity)
}

func TestFloridaRules_CoastalWithoutMitigation(t *testing.T) {
	contract := &domain.Contract{
		State:        "FL",
		ContractText: "Coastal property with radon notice and energy efficiency brochure attached. Flood zone X per FEMA.",
		Disclosures: []domain.Disclosure{
			{Name: "Seller's Property Disclosure", Required: true, Provided: true},
		},
	}

	flags := evaluateState(t, "FL", contract)

	require.Len(t, flags, 1)
	assert.Equal(t, "FL_WIND_NO_MITIGATION", flags[0].Code)
}
