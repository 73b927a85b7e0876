package sdk

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// TimelockInspector reads the state of a timelock contract.
type TimelockInspector interface {
	GetMinDelay(ctx context.Context, timelock common.Address) (uint64, error)
	IsOperation(ctx context.Context, timelock common.Address, opID [32]byte) (bool, error)
	IsOperationPending(ctx context.Context, timelock common.Address, opID [32]byte) (bool, error)
	IsOperationReady(ctx context.Context, timelock common.Address, opID [32]byte) (bool, error)
	IsOperationDone(ctx context.Context, timelock common.Address, opID [32]byte) (bool, error)
}
