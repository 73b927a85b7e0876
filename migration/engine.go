// Package migration moves vaults from one strategy deployment to the next.
//
// Every run reads the registry and the ledger, derives a plan with Decide and carries it out.
// Nothing about a migration is persisted besides the registry records, so a run interrupted at
// any point is resumed by running again.
package migration

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/go-playground/validator/v10"

	"github.com/sc1-labs/vaultops/internal/metrics"
	"github.com/sc1-labs/vaultops/registry"
	"github.com/sc1-labs/vaultops/sdk"
	"github.com/sc1-labs/vaultops/sdk/evm"
	"github.com/sc1-labs/vaultops/types"
)

// Inspector reads the vault and strategy views a decision depends on.
type Inspector interface {
	IsTrusted(ctx context.Context, vault, strategy common.Address) (bool, error)
	WithdrawalQueue(ctx context.Context, vault common.Address) ([]common.Address, error)
	Owner(ctx context.Context, contract common.Address) (common.Address, error)
	IsManager(ctx context.Context, strategy, account common.Address) (bool, error)
	StrategyVault(ctx context.Context, strategy common.Address) (common.Address, error)
	Implementation(ctx context.Context, factory common.Address) (common.Address, error)
}

// Submitter sends privileged calls and knows the signer addresses.
type Submitter interface {
	sdk.Submitter
	Address(role types.Role) (common.Address, error)
}

var (
	_ Inspector = (*evm.Inspector)(nil)
	_ Submitter = (*evm.Submitter)(nil)
)

// StrategyConfig is one entry of the configured strategy list.
type StrategyConfig struct {
	Symbol string `json:"symbol" validate:"required"`
	// Chain is the network the strategy is deployed on. Runs on other networks ignore it.
	Chain string `json:"chain" validate:"required"`
	Skip  bool   `json:"skip,omitempty"`
}

// Config holds the run-wide settings of an Engine.
type Config struct {
	// Chain is the network of this run, compared against StrategyConfig.Chain.
	Chain string `validate:"required"`
	// Live networks only get proposals; elsewhere the delay is skipped and proposals are executed.
	Live bool
	// Manager and Team are granted the manager role on every strategy the deployer owns.
	Manager common.Address `validate:"required"`
	Team    common.Address

	Strategies []StrategyConfig `validate:"dive"`
}

// Engine carries out strategy migrations against one vault.
type Engine struct {
	cfg       Config
	registry  registry.Registry
	inspector Inspector
	submitter Submitter
	timelock  sdk.TimelockExecutor
	traveler  evm.TimeTraveler
}

// NewEngine validates cfg and creates an Engine. traveler may be nil on live networks.
func NewEngine(
	cfg Config,
	reg registry.Registry,
	inspector Inspector,
	submitter Submitter,
	timelock sdk.TimelockExecutor,
	traveler evm.TimeTraveler,
) (*Engine, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid migration config: %w", err)
	}
	if !cfg.Live && traveler == nil {
		return nil, errors.New("a time traveler is required on networks that are not live")
	}

	return &Engine{
		cfg:       cfg,
		registry:  reg,
		inspector: inspector,
		submitter: submitter,
		timelock:  timelock,
		traveler:  traveler,
	}, nil
}

// Run migrates every configured strategy of this run's chain to its candidate deployment.
// Candidates are keyed by symbol. It stops at the first error.
func (e *Engine) Run(ctx context.Context, vault common.Address, candidates map[string]types.DeploymentRecord) error {
	lggr := sdk.LoggerFrom(ctx)

	for _, strat := range e.cfg.Strategies {
		if strat.Skip || strat.Chain != e.cfg.Chain {
			continue
		}

		candidate, ok := candidates[strat.Symbol]
		if !ok {
			lggr.Warnf("no candidate deployment for %s, skipping", strat.Symbol)
			continue
		}
		if candidate.Name == "" {
			candidate.Name = strat.Symbol
		}

		if _, err := e.PlanAndExecute(ctx, vault, candidate); err != nil {
			return fmt.Errorf("%s: %w", strat.Symbol, err)
		}
	}

	return nil
}

// PlanAndExecute brings the vault in line with candidate, whose Name is the strategy symbol.
// It returns the plan it carried out.
func (e *Engine) PlanAndExecute(
	ctx context.Context, vault common.Address, candidate types.DeploymentRecord,
) (types.MigrationPlan, error) {
	lggr := sdk.LoggerFrom(ctx)

	if err := e.initStrategy(ctx, vault, candidate); err != nil {
		return types.MigrationPlan{}, err
	}

	hadCurrent, err := e.archive(ctx, candidate)
	if err != nil {
		return types.MigrationPlan{}, err
	}

	snapshot, err := e.snapshot(ctx, vault, candidate, hadCurrent)
	if err != nil {
		return types.MigrationPlan{}, err
	}

	plan := Decide(snapshot)
	metrics.MigrationDecisions.WithLabelValues(string(plan.Kind)).Inc()

	switch plan.Kind {
	case types.MigrationFreshInstall:
		lggr.Infof("new deployment of %s at %s", plan.Symbol, plan.Candidate.Hex())
		if err = e.install(ctx, plan); err == nil {
			err = e.registry.Save(ctx, candidate)
		}
	case types.MigrationMigrate:
		lggr.Infof("%s migrating %s to %s at queue index %d",
			plan.Symbol, plan.Previous.Hex(), plan.Candidate.Hex(), plan.Index)
		err = e.migrate(ctx, plan)
	case types.MigrationSkip:
		if plan.Reason == ReasonAlreadyMigrated {
			lggr.Infof("%s: %s", plan.Symbol, plan.Reason)
		} else {
			lggr.Warnf("%s: %s", plan.Symbol, plan.Reason)
		}
	case types.MigrationNoop:
		lggr.Infof("%s: %s", plan.Symbol, plan.Reason)
	}

	return plan, err
}

// archive updates the registry for candidate. A current record at a different address is
// archived before the candidate replaces it. It reports whether a current record existed.
// A candidate without a current record is saved only once it is installed.
func (e *Engine) archive(ctx context.Context, candidate types.DeploymentRecord) (bool, error) {
	lggr := sdk.LoggerFrom(ctx)
	symbol := candidate.Name

	current, err := e.registry.Get(ctx, symbol)
	if errors.Is(err, registry.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if current.Address == candidate.Address {
		return true, nil
	}

	archived := current
	archived.Name = types.ArchiveName(symbol)
	if err := e.registry.Save(ctx, archived); err != nil {
		return true, err
	}
	lggr.Infof("archived %s at %s as %s", symbol, current.Address.Hex(), archived.Name)

	candidate.Predecessor = archived.Name

	return true, e.registry.Save(ctx, candidate)
}

func (e *Engine) snapshot(
	ctx context.Context, vault common.Address, candidate types.DeploymentRecord, hadCurrent bool,
) (Snapshot, error) {
	s := Snapshot{
		Symbol:     candidate.Name,
		Vault:      vault,
		Candidate:  candidate.Address,
		HadCurrent: hadCurrent,
	}

	var err error
	if s.CandidateTrusted, err = e.inspector.IsTrusted(ctx, vault, candidate.Address); err != nil {
		return Snapshot{}, err
	}
	if s.Queue, err = e.inspector.WithdrawalQueue(ctx, vault); err != nil {
		return Snapshot{}, err
	}
	if !hadCurrent {
		return s, nil
	}

	previous, err := e.registry.Get(ctx, types.ArchiveName(candidate.Name))
	if errors.Is(err, registry.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	s.Previous = &previous
	if previous.Address == candidate.Address {
		return s, nil
	}

	if s.PreviousVault, err = e.inspector.StrategyVault(ctx, previous.Address); err != nil {
		return Snapshot{}, err
	}
	if s.PreviousTrusted, err = e.inspector.IsTrusted(ctx, vault, previous.Address); err != nil {
		return Snapshot{}, err
	}

	return s, nil
}

// install trusts and enqueues a strategy that has no predecessor.
func (e *Engine) install(ctx context.Context, plan types.MigrationPlan) error {
	if plan.Trust {
		if err := e.send(ctx, plan.Vault, evm.VaultABI, evm.MethodTrustStrategy, types.RoleManager, plan.Candidate); err != nil {
			return err
		}
	}
	if plan.Enqueue {
		sdk.LoggerFrom(ctx).Infof("pushToWithdrawalQueue %s", plan.Candidate.Hex())
		if err := e.send(ctx, plan.Vault, evm.VaultABI, evm.MethodPushToWithdrawalQueue, types.RoleManager, plan.Candidate); err != nil {
			return err
		}
	}

	return nil
}

// migrate proposes migrateStrategy to the timelock, and executes it when the network is not live.
func (e *Engine) migrate(ctx context.Context, plan types.MigrationPlan) error {
	action, err := e.timelock.Schedule(ctx, plan.Vault, evm.VaultABI, evm.MethodMigrateStrategy,
		plan.Previous, plan.Candidate, new(big.Int).SetUint64(plan.Index))
	if err != nil {
		return err
	}

	return e.settle(ctx, action)
}

// settle executes action right away on networks that are not live. On live networks the
// action is left for execute-scheduled.
func (e *Engine) settle(ctx context.Context, action types.ScheduledAction) error {
	lggr := sdk.LoggerFrom(ctx)

	if e.cfg.Live {
		lggr.Infof("%s pending in timelock %s: id=%s, execute after %s",
			action.Method, action.Timelock.Hex(), action.ID.Hex(), action.Delay)

		return nil
	}

	lggr.Infof("fast forwarding %s", action.Delay)
	if err := evm.FastForward(ctx, e.traveler, action); err != nil {
		return fmt.Errorf("fast forward: %w", err)
	}

	receipt, err := e.timelock.ExecuteScheduled(ctx, action)
	if err != nil {
		return err
	}

	return checkReceipt(receipt, action.Method)
}

func (e *Engine) send(
	ctx context.Context, to common.Address, contractABI *abi.ABI, method string, role types.Role, args ...any,
) error {
	call, err := evm.NewCall(to, contractABI, role, method, args...)
	if err != nil {
		return err
	}

	receipt, err := e.submitter.Submit(ctx, call)
	if err != nil {
		return err
	}

	return checkReceipt(receipt, method)
}

func checkReceipt(receipt *gethtypes.Receipt, method string) error {
	if !evm.IsSuccess(receipt) {
		return fmt.Errorf("%s reverted in %s", method, receipt.TxHash.Hex())
	}

	return nil
}
