package chaintest

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	abiutil "github.com/sc1-labs/vaultops/internal/utils/abi"
	"github.com/sc1-labs/vaultops/sdk/evm"
)

const (
	revertNotOwner         = "Ownable: caller is not the owner"
	revertNotManager       = "caller is not a manager"
	revertNotTrusted       = "strategy not trusted"
	revertAlreadyQueued    = "strategy already in queue"
	revertAlreadyScheduled = "TimelockController: operation already scheduled"
	revertInsufficientWait = "TimelockController: insufficient delay"
	revertNotReady         = "TimelockController: operation is not ready"
	revertMissingDep       = "TimelockController: missing dependency"
	revertUnderlying       = "TimelockController: underlying transaction reverted"
)

// Vault is the emulated state of a vault.
type Vault struct {
	Owner    common.Address
	Managers map[common.Address]bool
	Trusted  map[common.Address]bool
	Queue    []common.Address
}

// Strategy is the emulated state of a strategy.
type Strategy struct {
	Owner    common.Address
	Managers map[common.Address]bool
	Vault    common.Address
}

// Beacon is the emulated state of a vault factory and its upgradeable beacon.
type Beacon struct {
	Owner          common.Address
	Implementation common.Address
}

// Timelock is the emulated state of a TimelockController. Timestamps follow OpenZeppelin:
// 0 unknown, 1 done, otherwise the earliest execution time.
type Timelock struct {
	MinDelay   time.Duration
	Timestamps map[common.Hash]uint64
}

// revertError mirrors the error geth returns for a reverted call.
type revertError struct {
	reason string
	data   []byte
}

func newRevertError(reason string) *revertError {
	data, err := abiutil.Encode(`[{"type":"string"}]`, reason)
	if err != nil {
		panic(err)
	}

	return &revertError{reason: reason, data: append([]byte{0x08, 0xc3, 0x79, 0xa0}, data...)}
}

func (e *revertError) Error() string {
	return "execution reverted: " + e.reason
}

// ErrorData implements rpc.DataError.
func (e *revertError) ErrorData() any {
	return hexutil.Encode(e.data)
}

// DeployVault places a vault at addr.
func (l *Ledger) DeployVault(addr common.Address, v Vault) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v.Managers == nil {
		v.Managers = make(map[common.Address]bool)
	}
	if v.Trusted == nil {
		v.Trusted = make(map[common.Address]bool)
	}
	l.vaults[addr] = &v
}

// DeployStrategy places a strategy at addr.
func (l *Ledger) DeployStrategy(addr common.Address, s Strategy) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s.Managers == nil {
		s.Managers = make(map[common.Address]bool)
	}
	l.strategies[addr] = &s
}

// DeployBeacon places a beacon at addr.
func (l *Ledger) DeployBeacon(addr common.Address, b Beacon) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.beacons[addr] = &b
}

// DeployTimelock places a timelock at addr.
func (l *Ledger) DeployTimelock(addr common.Address, minDelay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timelocks[addr] = &Timelock{MinDelay: minDelay, Timestamps: make(map[common.Hash]uint64)}
}

// VaultState returns a copy of the vault at addr.
func (l *Ledger) VaultState(addr common.Address) Vault {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.vaults[addr]

	return Vault{
		Owner:    v.Owner,
		Managers: cloneFlags(v.Managers),
		Trusted:  cloneFlags(v.Trusted),
		Queue:    slices.Clone(v.Queue),
	}
}

// StrategyState returns a copy of the strategy at addr.
func (l *Ledger) StrategyState(addr common.Address) Strategy {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.strategies[addr]

	return Strategy{Owner: s.Owner, Managers: cloneFlags(s.Managers), Vault: s.Vault}
}

// BeaconState returns a copy of the beacon at addr.
func (l *Ledger) BeaconState(addr common.Address) Beacon {
	l.mu.Lock()
	defer l.mu.Unlock()

	return *l.beacons[addr]
}

// OperationTimestamp returns the timelock timestamp of an operation.
func (l *Ledger) OperationTimestamp(timelock common.Address, id common.Hash) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.timelocks[timelock].Timestamps[id]
}

func cloneFlags(m map[common.Address]bool) map[common.Address]bool {
	out := make(map[common.Address]bool, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

// exec runs a call against the emulated contracts. State only changes when commit is set and
// the call succeeds.
func (l *Ledger) exec(from, to common.Address, data []byte, commit bool) ([]byte, []*gethtypes.Log, error) {
	switch {
	case l.vaults[to] != nil:
		return l.execVault(from, to, data, commit)
	case l.strategies[to] != nil:
		return l.execStrategy(from, to, data, commit)
	case l.beacons[to] != nil:
		return l.execBeacon(from, to, data, commit)
	case l.timelocks[to] != nil:
		return l.execTimelock(from, to, data, commit)
	default:
		return nil, nil, nil
	}
}

func decodeCall(contractABI *abi.ABI, data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("execution reverted")
	}
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("execution reverted: %w", err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("execution reverted: %w", err)
	}

	return method, args, nil
}

func (l *Ledger) record(from, to common.Address, method string, args []any) {
	call := MinedCall{From: from, To: to, Method: method, Args: args}
	if l.timelocks[from] != nil {
		call.Via = from
	}
	l.calls = append(l.calls, call)
}

func (l *Ledger) execVault(from, to common.Address, data []byte, commit bool) ([]byte, []*gethtypes.Log, error) {
	v := l.vaults[to]
	method, args, err := decodeCall(evm.VaultABI, data)
	if err != nil {
		return nil, nil, err
	}

	switch method.Name {
	case evm.MethodGetStrategyData:
		ret, err := method.Outputs.Pack(v.Trusted[args[0].(common.Address)], big.NewInt(0))
		return ret, nil, err
	case evm.MethodGetWithdrawalQueue:
		ret, err := method.Outputs.Pack(slices.Clone(v.Queue))
		return ret, nil, err
	case evm.MethodOwner:
		ret, err := method.Outputs.Pack(v.Owner)
		return ret, nil, err
	case evm.MethodMigrateStrategy:
		prev, next, index := args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)
		if from != v.Owner {
			return nil, nil, newRevertError(revertNotOwner)
		}
		if !v.Trusted[prev] {
			return nil, nil, newRevertError(revertNotTrusted)
		}
		if commit {
			v.Trusted[prev] = false
			v.Trusted[next] = true
			if index.IsUint64() && index.Uint64() < uint64(len(v.Queue)) {
				v.Queue[index.Uint64()] = next
			} else {
				v.Queue = append(v.Queue, next)
			}
		}
	case evm.MethodTrustStrategy:
		if from != v.Owner && !v.Managers[from] {
			return nil, nil, newRevertError(revertNotManager)
		}
		if commit {
			v.Trusted[args[0].(common.Address)] = true
		}
	case evm.MethodPushToWithdrawalQueue:
		strategy := args[0].(common.Address)
		if from != v.Owner && !v.Managers[from] {
			return nil, nil, newRevertError(revertNotManager)
		}
		if slices.Contains(v.Queue, strategy) {
			return nil, nil, newRevertError(revertAlreadyQueued)
		}
		if commit {
			v.Queue = append(v.Queue, strategy)
		}
	case evm.MethodTransferOwnership:
		if from != v.Owner {
			return nil, nil, newRevertError(revertNotOwner)
		}
		if commit {
			v.Owner = args[0].(common.Address)
		}
	}
	if commit {
		l.record(from, to, method.Name, args)
	}

	return nil, nil, nil
}

func (l *Ledger) execStrategy(from, to common.Address, data []byte, commit bool) ([]byte, []*gethtypes.Log, error) {
	s := l.strategies[to]
	method, args, err := decodeCall(evm.StrategyABI, data)
	if err != nil {
		return nil, nil, err
	}

	switch method.Name {
	case evm.MethodOwner:
		ret, err := method.Outputs.Pack(s.Owner)
		return ret, nil, err
	case evm.MethodIsManager:
		ret, err := method.Outputs.Pack(s.Managers[args[0].(common.Address)])
		return ret, nil, err
	case evm.MethodVault:
		ret, err := method.Outputs.Pack(s.Vault)
		return ret, nil, err
	}

	if from != s.Owner {
		return nil, nil, newRevertError(revertNotOwner)
	}
	if !commit {
		return nil, nil, nil
	}
	switch method.Name {
	case evm.MethodSetManager:
		s.Managers[args[0].(common.Address)] = args[1].(bool)
	case evm.MethodSetVault:
		s.Vault = args[0].(common.Address)
	case evm.MethodTransferOwnership:
		s.Owner = args[0].(common.Address)
	}
	l.record(from, to, method.Name, args)

	return nil, nil, nil
}

func (l *Ledger) execBeacon(from, to common.Address, data []byte, commit bool) ([]byte, []*gethtypes.Log, error) {
	b := l.beacons[to]
	method, args, err := decodeCall(evm.BeaconABI, data)
	if err != nil {
		return nil, nil, err
	}

	if method.Name == evm.MethodImplementation {
		ret, err := method.Outputs.Pack(b.Implementation)
		return ret, nil, err
	}
	if from != b.Owner {
		return nil, nil, newRevertError(revertNotOwner)
	}
	if commit {
		b.Implementation = args[0].(common.Address)
		l.record(from, to, method.Name, args)
	}

	return nil, nil, nil
}

func (l *Ledger) execTimelock(from, to common.Address, data []byte, commit bool) ([]byte, []*gethtypes.Log, error) {
	tl := l.timelocks[to]
	method, args, err := decodeCall(evm.TimelockABI, data)
	if err != nil {
		return nil, nil, err
	}
	now := uint64(l.now.Unix()) //nolint:gosec

	boolView := func(v bool) ([]byte, []*gethtypes.Log, error) {
		ret, err := method.Outputs.Pack(v)
		return ret, nil, err
	}

	switch method.Name {
	case "getMinDelay":
		ret, err := method.Outputs.Pack(big.NewInt(int64(tl.MinDelay / time.Second)))
		return ret, nil, err
	case "getTimestamp":
		ret, err := method.Outputs.Pack(new(big.Int).SetUint64(tl.Timestamps[args[0].([32]byte)]))
		return ret, nil, err
	case "hashOperation":
		id, err := operationID(args)
		if err != nil {
			return nil, nil, err
		}
		ret, err := method.Outputs.Pack([32]byte(id))
		return ret, nil, err
	case "isOperation":
		return boolView(tl.Timestamps[args[0].([32]byte)] > 0)
	case "isOperationPending":
		return boolView(tl.Timestamps[args[0].([32]byte)] > 1)
	case "isOperationReady":
		ts := tl.Timestamps[args[0].([32]byte)]
		return boolView(ts > 1 && ts <= now)
	case "isOperationDone":
		return boolView(tl.Timestamps[args[0].([32]byte)] == 1)
	case "schedule":
		return l.schedule(from, to, tl, method, args, now, commit)
	case "execute":
		return l.execute(from, to, tl, method, args, now, commit)
	}

	return nil, nil, nil
}

func operationID(args []any) (common.Hash, error) {
	return evm.HashOperation(
		args[0].(common.Address), args[1].(*big.Int), args[2].([]byte), args[3].([32]byte), args[4].([32]byte),
	)
}

func (l *Ledger) schedule(
	from, addr common.Address, tl *Timelock, method *abi.Method, args []any, now uint64, commit bool,
) ([]byte, []*gethtypes.Log, error) {
	id, err := operationID(args)
	if err != nil {
		return nil, nil, err
	}
	delay := args[5].(*big.Int)
	if tl.Timestamps[id] > 0 {
		return nil, nil, newRevertError(revertAlreadyScheduled)
	}
	if delay.Cmp(big.NewInt(int64(tl.MinDelay/time.Second))) < 0 {
		return nil, nil, newRevertError(revertInsufficientWait)
	}
	if !commit {
		return nil, nil, nil
	}

	tl.Timestamps[id] = now + delay.Uint64()
	event := evm.TimelockABI.Events["CallScheduled"]
	logData, err := event.Inputs.NonIndexed().Pack(args[0], args[1], args[2], args[3], delay)
	if err != nil {
		return nil, nil, err
	}
	l.record(from, addr, method.Name, args)

	return nil, []*gethtypes.Log{{
		Address: addr,
		Topics:  []common.Hash{event.ID, id, common.BigToHash(big.NewInt(0))},
		Data:    logData,
	}}, nil
}

func (l *Ledger) execute(
	from, addr common.Address, tl *Timelock, method *abi.Method, args []any, now uint64, commit bool,
) ([]byte, []*gethtypes.Log, error) {
	id, err := operationID(args)
	if err != nil {
		return nil, nil, err
	}
	ts := tl.Timestamps[id]
	if ts <= 1 || ts > now {
		return nil, nil, newRevertError(revertNotReady)
	}
	if pred := common.Hash(args[3].([32]byte)); pred != (common.Hash{}) && tl.Timestamps[pred] != 1 {
		return nil, nil, newRevertError(revertMissingDep)
	}

	target, payload := args[0].(common.Address), args[2].([]byte)
	if _, _, err := l.exec(addr, target, payload, false); err != nil {
		return nil, nil, newRevertError(revertUnderlying)
	}
	if !commit {
		return nil, nil, nil
	}

	_, logs, err := l.exec(addr, target, payload, true)
	if err != nil {
		return nil, nil, newRevertError(revertUnderlying)
	}
	tl.Timestamps[id] = 1
	l.record(from, addr, method.Name, args)

	return nil, logs, nil
}
