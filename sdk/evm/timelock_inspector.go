package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sc1-labs/vaultops/sdk"
)

const (
	methodGetMinDelay        = "getMinDelay"
	methodGetTimestamp       = "getTimestamp"
	methodIsOperation        = "isOperation"
	methodIsOperationPending = "isOperationPending"
	methodIsOperationReady   = "isOperationReady"
	methodIsOperationDone    = "isOperationDone"
)

var _ sdk.TimelockInspector = (*TimelockInspector)(nil)

// TimelockInspector reads the state of a TimelockController.
type TimelockInspector struct {
	client bind.ContractCaller
}

// NewTimelockInspector creates a new TimelockInspector
func NewTimelockInspector(client bind.ContractCaller) *TimelockInspector {
	return &TimelockInspector{
		client: client,
	}
}

// GetMinDelay returns the minimum delay of the timelock in seconds.
func (tm TimelockInspector) GetMinDelay(ctx context.Context, timelock common.Address) (uint64, error) {
	out, err := callView(ctx, tm.client, timelock, TimelockABI, methodGetMinDelay)
	if err != nil {
		return 0, err
	}

	return uint256(out, methodGetMinDelay)
}

// GetTimestamp returns the earliest execution time of an operation, 1 once it is done and 0 when unknown.
func (tm TimelockInspector) GetTimestamp(ctx context.Context, timelock common.Address, opID [32]byte) (uint64, error) {
	out, err := callView(ctx, tm.client, timelock, TimelockABI, methodGetTimestamp, opID)
	if err != nil {
		return 0, err
	}

	return uint256(out, methodGetTimestamp)
}

func (tm TimelockInspector) IsOperation(ctx context.Context, timelock common.Address, opID [32]byte) (bool, error) {
	return tm.boolView(ctx, timelock, methodIsOperation, opID)
}

func (tm TimelockInspector) IsOperationPending(ctx context.Context, timelock common.Address, opID [32]byte) (bool, error) {
	return tm.boolView(ctx, timelock, methodIsOperationPending, opID)
}

func (tm TimelockInspector) IsOperationReady(ctx context.Context, timelock common.Address, opID [32]byte) (bool, error) {
	return tm.boolView(ctx, timelock, methodIsOperationReady, opID)
}

func (tm TimelockInspector) IsOperationDone(ctx context.Context, timelock common.Address, opID [32]byte) (bool, error) {
	return tm.boolView(ctx, timelock, methodIsOperationDone, opID)
}

func (tm TimelockInspector) boolView(ctx context.Context, timelock common.Address, method string, opID [32]byte) (bool, error) {
	out, err := callView(ctx, tm.client, timelock, TimelockABI, method, opID)
	if err != nil {
		return false, err
	}

	return unpackOne[bool](out, method)
}
