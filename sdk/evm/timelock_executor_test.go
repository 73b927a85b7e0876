package evm_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sc1-labs/vaultops/internal/testutils/chaintest"
	sdkerrors "github.com/sc1-labs/vaultops/sdk/errors"
	"github.com/sc1-labs/vaultops/sdk/evm"
	"github.com/sc1-labs/vaultops/types"
)

var testTimelock = common.HexToAddress("0x7100000000000000000000000000000000000001")

const testMinDelay = time.Hour

type timelockFixture struct {
	ledger   *chaintest.Ledger
	deployer *bind.TransactOpts
	manager  common.Address
	executor *evm.TimelockExecutor
}

func newTimelockFixture(t *testing.T, opts ...evm.TimelockOption) timelockFixture {
	t.Helper()

	f := timelockFixture{
		ledger:   chaintest.NewLedger(),
		deployer: chaintest.NewSigner(t),
		manager:  common.HexToAddress("0x4d00000000000000000000000000000000000001"),
	}
	f.ledger.DeployTimelock(testTimelock, testMinDelay)
	f.ledger.DeployStrategy(testStrategy, chaintest.Strategy{Owner: testTimelock})

	submitter := evm.NewSubmitter(f.ledger, &chaintest.StaticOracle{Price: gwei(1)},
		map[types.Role]*bind.TransactOpts{types.RoleDeployer: f.deployer},
		evm.SubmitterConfig{ChainID: chaintest.ChainID, MaxTxTime: 50 * time.Millisecond, PollInterval: 5 * time.Millisecond})
	f.executor = evm.NewTimelockExecutor(submitter, testTimelock, opts...)

	return f
}

func (f timelockFixture) schedule(t *testing.T) types.ScheduledAction {
	t.Helper()

	action, err := f.executor.Schedule(chaintest.Context(t), testStrategy, evm.StrategyABI, evm.MethodSetManager, f.manager, true)
	require.NoError(t, err)

	return action
}

func TestTimelockExecutor_Schedule(t *testing.T) {
	t.Parallel()

	f := newTimelockFixture(t)
	ctx := chaintest.Context(t)
	action := f.schedule(t)

	data, err := evm.StrategyABI.Pack(evm.MethodSetManager, f.manager, true)
	require.NoError(t, err)
	id, err := evm.HashOperation(testStrategy, big.NewInt(0), data, evm.ZeroHash, evm.ZeroHash)
	require.NoError(t, err)

	assert.Equal(t, id, action.ID)
	assert.Equal(t, testTimelock, action.Timelock)
	assert.Equal(t, testMinDelay, action.Delay.Duration)
	assert.Equal(t, evm.MethodSetManager, action.Method)
	assert.NotEqual(t, common.Hash{}, action.ProposeTx)

	wantTS := uint64(f.ledger.Now().Add(testMinDelay).Unix()) //nolint:gosec
	assert.Equal(t, wantTS, f.ledger.OperationTimestamp(testTimelock, id))

	pending, err := f.executor.IsOperationPending(ctx, testTimelock, id)
	require.NoError(t, err)
	assert.True(t, pending)
	ready, err := f.executor.IsOperationReady(ctx, testTimelock, id)
	require.NoError(t, err)
	assert.False(t, ready)

	receipt, err := f.ledger.TransactionReceipt(ctx, action.ProposeTx)
	require.NoError(t, err)
	fromReceipt, err := f.executor.ActionFromReceipt(receipt)
	require.NoError(t, err)
	assert.Equal(t, action.ID, fromReceipt.ID)
	assert.Equal(t, action.Data, fromReceipt.Data)
	assert.Equal(t, action.Delay, fromReceipt.Delay)
	assert.Equal(t, action.Method, fromReceipt.Method)

	// nothing reaches the strategy before execution
	assert.False(t, f.ledger.StrategyState(testStrategy).Managers[f.manager])
}

func TestTimelockExecutor_Schedule_ReusesExistingOperation(t *testing.T) {
	t.Parallel()

	f := newTimelockFixture(t)
	first := f.schedule(t)
	second := f.schedule(t)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, common.Hash{}, second.ProposeTx)
	assert.Len(t, f.ledger.Sent(), 1)
}

func TestTimelockExecutor_Schedule_SaltChangesOperation(t *testing.T) {
	t.Parallel()

	salt := common.HexToHash("0x01")
	f := newTimelockFixture(t, evm.WithSalt(salt))
	action := f.schedule(t)

	assert.Equal(t, salt, f.executor.Salt())
	assert.Equal(t, salt, action.Salt)

	unsalted, err := evm.HashOperation(action.Target, action.Value, action.Data, action.Predecessor, evm.ZeroHash)
	require.NoError(t, err)
	assert.NotEqual(t, unsalted, action.ID)

	receipt, err := f.ledger.TransactionReceipt(chaintest.Context(t), action.ProposeTx)
	require.NoError(t, err)
	_, err = evm.ActionFromReceipt(receipt, evm.ZeroHash)
	require.ErrorContains(t, err, "does not match salt")
}

func TestTimelockExecutor_Schedule_DelayBelowMinimum(t *testing.T) {
	t.Parallel()

	f := newTimelockFixture(t, evm.WithDelay(types.NewDuration(time.Minute)))
	_, err := f.executor.Schedule(chaintest.Context(t), testStrategy, evm.StrategyABI, evm.MethodSetManager, f.manager, true)

	var execErr *evm.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Error(), "insufficient delay")
	assert.Empty(t, f.ledger.Sent())
}

func TestTimelockExecutor_ExecuteScheduled(t *testing.T) {
	t.Parallel()

	f := newTimelockFixture(t)
	ctx := chaintest.Context(t)
	action := f.schedule(t)

	_, err := f.executor.ExecuteScheduled(ctx, action)
	require.Error(t, err)
	assert.True(t, evm.IsNotReadyRevert(err))

	require.NoError(t, evm.FastForward(ctx, f.ledger, action))

	receipt, err := f.executor.ExecuteScheduled(ctx, action)
	require.NoError(t, err)
	assert.True(t, evm.IsSuccess(receipt))

	done, err := f.executor.IsOperationDone(ctx, testTimelock, action.ID)
	require.NoError(t, err)
	assert.True(t, done)
	assert.True(t, f.ledger.StrategyState(testStrategy).Managers[f.manager])

	calls := f.ledger.CallsTo(evm.MethodSetManager)
	require.Len(t, calls, 1)
	assert.Equal(t, testTimelock, calls[0].Via)

	// a done operation is not executable again
	_, err = f.executor.ExecuteScheduled(ctx, action)
	assert.True(t, evm.IsNotReadyRevert(err))
}

func TestActionFromReceipt_NoEvent(t *testing.T) {
	t.Parallel()

	f := newSubmitterFixture(t, evm.SubmitterConfig{})
	receipt, err := f.submitter.Submit(chaintest.Context(t), f.setManagerCall(t, types.RoleDeployer))
	require.NoError(t, err)

	_, err = evm.ActionFromReceipt(receipt, evm.ZeroHash)
	require.ErrorIs(t, err, sdkerrors.ErrActionNotFound)
}

func TestTimelockInspector_MinDelay(t *testing.T) {
	t.Parallel()

	f := newTimelockFixture(t)
	delay, err := f.executor.GetMinDelay(chaintest.Context(t), testTimelock)
	require.NoError(t, err)
	assert.Equal(t, uint64(3600), delay)

	ts, err := f.executor.GetTimestamp(chaintest.Context(t), testTimelock, common.HexToHash("0xabc"))
	require.NoError(t, err)
	assert.Zero(t, ts)
}
