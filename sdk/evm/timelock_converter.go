package evm

import (
	"fmt"
	"math/big"
	"time"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sc1-labs/vaultops/internal/utils/abi"
	sdkerrors "github.com/sc1-labs/vaultops/sdk/errors"
	"github.com/sc1-labs/vaultops/types"
)

var ZeroHash = common.Hash{}

const (
	methodSchedule = "schedule"
	methodExecute  = "execute"
	eventScheduled = "CallScheduled"

	operationEncoding = `[{"type":"address"},{"type":"uint256"},{"type":"bytes"},{"type":"bytes32"},{"type":"bytes32"}]`
)

// HashOperation computes the TimelockController operation id of a single call:
// keccak256(abi.encode(target, value, data, predecessor, salt)).
func HashOperation(
	target common.Address, value *big.Int, data []byte, predecessor common.Hash, salt common.Hash,
) (common.Hash, error) {
	if value == nil {
		value = big.NewInt(0)
	}
	encoded, err := abi.Encode(operationEncoding, target, value, data, [32]byte(predecessor), [32]byte(salt))
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(encoded), nil
}

// packSchedule returns the schedule arguments of action.
func packSchedule(action types.ScheduledAction) []any {
	return []any{
		action.Target,
		valueOrZero(action.Value),
		action.Data,
		[32]byte(action.Predecessor),
		[32]byte(action.Salt),
		new(big.Int).SetUint64(action.Delay.WholeSeconds()),
	}
}

// packExecute returns the execute arguments of action.
func packExecute(action types.ScheduledAction) []any {
	return []any{
		action.Target,
		valueOrZero(action.Value),
		action.Data,
		[32]byte(action.Predecessor),
		[32]byte(action.Salt),
	}
}

// ActionFromReceipt rebuilds the handle of an action from the receipt of its proposal.
// The salt is not part of the event and has to be supplied.
func ActionFromReceipt(receipt *gethtypes.Receipt, salt common.Hash) (types.ScheduledAction, error) {
	event := TimelockABI.Events[eventScheduled]
	for _, log := range receipt.Logs {
		if len(log.Topics) < 2 || log.Topics[0] != event.ID {
			continue
		}

		values, err := TimelockABI.Unpack(eventScheduled, log.Data)
		if err != nil {
			return types.ScheduledAction{}, fmt.Errorf("unpack %s: %w", eventScheduled, err)
		}
		if len(values) != 5 { //nolint:mnd
			return types.ScheduledAction{}, fmt.Errorf("unpack %s: got %d values", eventScheduled, len(values))
		}

		target, _ := values[0].(common.Address)
		value, _ := values[1].(*big.Int)
		data, _ := values[2].([]byte)
		predecessor, _ := values[3].([32]byte)
		delay, _ := values[4].(*big.Int)

		action := types.ScheduledAction{
			Timelock:    log.Address,
			Target:      target,
			Value:       value,
			Data:        data,
			Predecessor: predecessor,
			Salt:        salt,
			Delay:       types.NewDuration(time.Duration(delay.Int64()) * time.Second),
			ID:          log.Topics[1],
			ProposeTx:   receipt.TxHash,
			Method:      methodName(data),
		}

		id, err := HashOperation(action.Target, action.Value, action.Data, action.Predecessor, salt)
		if err != nil {
			return types.ScheduledAction{}, err
		}
		if id != action.ID {
			return types.ScheduledAction{}, fmt.Errorf("operation %s does not match salt %s", action.ID.Hex(), salt.Hex())
		}

		return action, nil
	}

	return types.ScheduledAction{}, sdkerrors.ErrActionNotFound
}

// methodName resolves the selector of data against the known contracts.
func methodName(data []byte) string {
	if len(data) < selectorSize {
		return ""
	}
	for _, contractABI := range []*gethabi.ABI{VaultABI, StrategyABI, BeaconABI, TimelockABI} {
		if m, err := contractABI.MethodById(data[:selectorSize]); err == nil {
			return m.Name
		}
	}

	return ""
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}

	return v
}
