package domain

import "context"

// ContractRepository is the port through which the core loads contracts.
// Implementations must be safe for concurrent use.
type ContractRepository interface {
	// FindByID returns the contract with its child collections, or
	// ErrContractNotFound.
	FindByID(ctx context.Context, id string) (*Contract, error)
	FindAll(ctx context.Context) ([]Contract, error)
	Create(ctx context.Context, c *Contract) error
	Update(ctx context.Context, c *Contract) error
	// DeleteByID reports whether a contract was actually removed.
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// RiskScoreRepository persists the current risk score per contract.
type RiskScoreRepository interface {
	// FindByContractID returns the current score or ErrScoreNotFound.
	FindByContractID(ctx context.Context, contractID string) (*RiskScore, error)
	// Upsert inserts or replaces the current score for the contract.
	Upsert(ctx context.Context, score *RiskScore) error
	DeleteByContractID(ctx context.Context, contractID string) error
}

// RiskHistoryRepository persists the append-only score history per contract.
// Append order must be preserved by FindByContractID.
type RiskHistoryRepository interface {
	Append(ctx context.Context, contractID string, entry RiskHistoryEntry) error
	// FindByContractID returns entries oldest-first. A contract with no
	// entries yields an empty slice, not an error.
	FindByContractID(ctx context.Context, contractID string) ([]RiskHistoryEntry, error)
	// TrimToCap drops the oldest entries beyond HistoryCap.
	TrimToCap(ctx context.Context, contractID string) error
	DeleteByContractID(ctx context.Context, contractID string) error
}
