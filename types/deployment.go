package types

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// ArchiveSuffix is appended to a symbol to name its archived predecessor.
const ArchiveSuffix = "-prev"

// ArchiveName returns the registry name under which the predecessor of symbol is archived.
func ArchiveName(symbol string) string {
	return symbol + ArchiveSuffix
}

// DeploymentRecord is a named deployment persisted across runs.
type DeploymentRecord struct {
	Name    string          `json:"name" validate:"required"`
	Address common.Address  `json:"address" validate:"required"`
	ABI     json.RawMessage `json:"abi,omitempty"`
	// Predecessor is the registry name of the archived record this one superseded.
	Predecessor     string      `json:"predecessor,omitempty"`
	TransactionHash common.Hash `json:"transactionHash,omitempty"`
}

// MigrationKind is the outcome of the migration decision.
type MigrationKind string

const (
	MigrationFreshInstall MigrationKind = "fresh-install"
	MigrationNoop         MigrationKind = "no-op"
	MigrationMigrate      MigrationKind = "migrate"
	MigrationSkip         MigrationKind = "skip"
)

// MigrationPlan is derived from ledger state on every run and never persisted.
type MigrationPlan struct {
	Kind      MigrationKind
	Symbol    string
	Vault     common.Address
	Previous  common.Address
	Candidate common.Address
	// Index is the withdrawal queue position the candidate takes over.
	Index uint64
	// Trust and Enqueue are the fresh-install steps still missing on the vault.
	Trust   bool
	Enqueue bool
	Reason  string
}
