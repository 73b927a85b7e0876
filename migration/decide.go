package migration

import (
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sc1-labs/vaultops/types"
)

// Reasons attached to no-op and skip plans.
const (
	ReasonUpToDate         = "candidate is the current deployment"
	ReasonNothingToMigrate = "nothing to migrate"
	ReasonVaultMismatch    = "previous deployment does not match vault"
	ReasonAlreadyMigrated  = "already migrated"
)

// Snapshot is the ledger and registry state a migration decision is made on. It is gathered
// after the registry bookkeeping of the run.
type Snapshot struct {
	Symbol    string
	Vault     common.Address
	Candidate common.Address

	// HadCurrent is false when the registry held no record for Symbol before this run.
	HadCurrent bool
	// Previous is the archived predecessor, nil when there is none.
	Previous *types.DeploymentRecord
	// PreviousVault is the vault the previous strategy points back to.
	PreviousVault common.Address

	PreviousTrusted  bool
	CandidateTrusted bool
	Queue            []common.Address
}

// Decide computes the migration plan of a snapshot. It performs no I/O.
func Decide(s Snapshot) types.MigrationPlan {
	plan := types.MigrationPlan{
		Symbol:    s.Symbol,
		Vault:     s.Vault,
		Candidate: s.Candidate,
	}

	if !s.HadCurrent {
		plan.Trust = !s.CandidateTrusted
		plan.Enqueue = !slices.Contains(s.Queue, s.Candidate)
		plan.Kind = types.MigrationFreshInstall

		return plan
	}

	if s.Previous == nil {
		plan.Kind = types.MigrationNoop
		plan.Reason = ReasonNothingToMigrate

		return plan
	}
	plan.Previous = s.Previous.Address

	if s.Previous.Address == s.Candidate {
		plan.Kind = types.MigrationNoop
		plan.Reason = ReasonUpToDate

		return plan
	}
	if s.PreviousVault != s.Vault {
		plan.Kind = types.MigrationSkip
		plan.Reason = ReasonVaultMismatch

		return plan
	}
	if s.CandidateTrusted && !s.PreviousTrusted {
		plan.Kind = types.MigrationSkip
		plan.Reason = ReasonAlreadyMigrated

		return plan
	}

	plan.Kind = types.MigrationMigrate
	plan.Index = uint64(len(s.Queue))
	if i := slices.Index(s.Queue, s.Previous.Address); i >= 0 {
		plan.Index = uint64(i)
	}

	return plan
}
