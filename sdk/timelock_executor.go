package sdk

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/sc1-labs/vaultops/types"
)

// TimelockExecutor proposes privileged calls to a timelock and executes them once their delay elapsed.
type TimelockExecutor interface {
	TimelockInspector
	Schedule(
		ctx context.Context, target common.Address, contractABI *abi.ABI, method string, args ...any,
	) (types.ScheduledAction, error)
	ExecuteScheduled(ctx context.Context, action types.ScheduledAction) (*gethtypes.Receipt, error)
}
