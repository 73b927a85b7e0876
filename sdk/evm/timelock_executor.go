package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/sc1-labs/vaultops/internal/metrics"
	"github.com/sc1-labs/vaultops/internal/utils/safecast"
	"github.com/sc1-labs/vaultops/sdk"
	"github.com/sc1-labs/vaultops/types"
)

var _ sdk.TimelockExecutor = (*TimelockExecutor)(nil)

// TimelockExecutor proposes calls to a TimelockController and executes them once their delay
// elapsed. Both steps go through the Submitter.
type TimelockExecutor struct {
	TimelockInspector
	submitter *Submitter
	timelock  common.Address

	proposer types.Role
	executor types.Role
	salt     common.Hash
	delay    *types.Duration
}

// TimelockOption configures a TimelockExecutor.
type TimelockOption func(*TimelockExecutor)

// WithSalt sets the salt of every proposal. Proposals of the same call with the same salt share
// an operation id, which is what makes re-running a schedule idempotent.
func WithSalt(salt common.Hash) TimelockOption {
	return func(t *TimelockExecutor) {
		t.salt = salt
	}
}

// WithDelay overrides the timelock's minimum delay. The ledger rejects delays below it.
func WithDelay(delay types.Duration) TimelockOption {
	return func(t *TimelockExecutor) {
		t.delay = &delay
	}
}

// WithRoles sets the signer roles holding the proposer and executor permissions.
func WithRoles(proposer, executor types.Role) TimelockOption {
	return func(t *TimelockExecutor) {
		t.proposer = proposer
		t.executor = executor
	}
}

// NewTimelockExecutor creates a new TimelockExecutor for the timelock at address timelock.
func NewTimelockExecutor(submitter *Submitter, timelock common.Address, opts ...TimelockOption) *TimelockExecutor {
	t := &TimelockExecutor{
		TimelockInspector: *NewTimelockInspector(submitter.Backend()),
		submitter:         submitter,
		timelock:          timelock,
		proposer:          types.RoleDeployer,
		executor:          types.RoleDeployer,
		salt:              ZeroHash,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Address returns the timelock this executor proposes to.
func (t *TimelockExecutor) Address() common.Address {
	return t.timelock
}

// Salt returns the salt used for proposals.
func (t *TimelockExecutor) Salt() common.Hash {
	return t.salt
}

// Schedule proposes target.method(args...) to the timelock. When the same operation was
// already proposed, its handle is returned and nothing is sent.
func (t *TimelockExecutor) Schedule(
	ctx context.Context, target common.Address, contractABI *abi.ABI, method string, args ...any,
) (types.ScheduledAction, error) {
	lggr := sdk.LoggerFrom(ctx)

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return types.ScheduledAction{}, fmt.Errorf("pack %s: %w", method, err)
	}

	delay, err := t.resolveDelay(ctx)
	if err != nil {
		return types.ScheduledAction{}, err
	}

	action := types.ScheduledAction{
		Timelock:    t.timelock,
		Target:      target,
		Value:       big.NewInt(0),
		Data:        data,
		Predecessor: ZeroHash,
		Salt:        t.salt,
		Delay:       delay,
		Method:      method,
	}
	if action.ID, err = HashOperation(action.Target, action.Value, action.Data, action.Predecessor, action.Salt); err != nil {
		return types.ScheduledAction{}, err
	}

	exists, err := t.IsOperation(ctx, t.timelock, action.ID)
	if err != nil {
		return types.ScheduledAction{}, err
	}
	if exists {
		lggr.Infof("%s on %s already proposed to timelock %s: id=%s", method, target.Hex(), t.timelock.Hex(), action.ID.Hex())
		metrics.TimelockActions.WithLabelValues(method, "reused").Inc()

		return action, nil
	}

	call, err := NewCall(t.timelock, TimelockABI, t.proposer, methodSchedule, packSchedule(action)...)
	if err != nil {
		return types.ScheduledAction{}, err
	}
	call.Method = methodSchedule + ":" + method

	receipt, err := t.submitter.Submit(ctx, call)
	if err != nil {
		return types.ScheduledAction{}, fmt.Errorf("schedule %s on %s: %w", method, target.Hex(), err)
	}
	if !IsSuccess(receipt) {
		metrics.TimelockActions.WithLabelValues(method, "rejected").Inc()
		return types.ScheduledAction{}, fmt.Errorf("schedule %s on %s reverted in %s", method, target.Hex(), receipt.TxHash.Hex())
	}
	action.ProposeTx = receipt.TxHash

	metrics.TimelockActions.WithLabelValues(method, "proposed").Inc()
	lggr.Infof("proposed %s on %s to timelock %s: id=%s delay=%s tx=%s",
		method, target.Hex(), t.timelock.Hex(), action.ID.Hex(), action.Delay, receipt.TxHash.Hex())

	return action, nil
}

// ExecuteScheduled executes a proposed action. Readiness is not checked beforehand: an early
// execution is refused by the ledger and returned as an ExecutionError, see IsNotReadyRevert.
// A confirmed revert of the scheduled call is returned as a receipt with failed status.
func (t *TimelockExecutor) ExecuteScheduled(ctx context.Context, action types.ScheduledAction) (*gethtypes.Receipt, error) {
	lggr := sdk.LoggerFrom(ctx)

	call, err := NewCall(action.Timelock, TimelockABI, t.executor, methodExecute, packExecute(action)...)
	if err != nil {
		return nil, err
	}
	call.Value = valueOrZero(action.Value)
	call.Method = methodExecute + ":" + action.Method

	receipt, err := t.submitter.Submit(ctx, call)
	if err != nil {
		if IsNotReadyRevert(err) {
			metrics.TimelockActions.WithLabelValues(action.Method, "not_ready").Inc()
			lggr.Warnf("operation %s is not ready for execution", action.ID.Hex())
		}

		return nil, err
	}

	stage := "executed"
	if !IsSuccess(receipt) {
		stage = "reverted"
	}
	metrics.TimelockActions.WithLabelValues(action.Method, stage).Inc()
	lggr.Infof("%s operation %s (%s on %s) in %s", stage, action.ID.Hex(), action.Method, action.Target.Hex(), receipt.TxHash.Hex())

	return receipt, nil
}

// ActionFromReceipt rebuilds the handle of a proposal from its receipt using this executor's salt.
func (t *TimelockExecutor) ActionFromReceipt(receipt *gethtypes.Receipt) (types.ScheduledAction, error) {
	return ActionFromReceipt(receipt, t.salt)
}

func (t *TimelockExecutor) resolveDelay(ctx context.Context) (types.Duration, error) {
	if t.delay != nil {
		return *t.delay, nil
	}

	minDelay, err := t.GetMinDelay(ctx, t.timelock)
	if err != nil {
		return types.Duration{}, err
	}
	secs, err := safecast.Uint64ToInt64(minDelay)
	if err != nil {
		return types.Duration{}, fmt.Errorf("min delay: %w", err)
	}

	return types.NewDuration(time.Duration(secs) * time.Second), nil
}
