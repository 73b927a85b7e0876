package evm

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/sc1-labs/vaultops/sdk"
	"github.com/sc1-labs/vaultops/types"
)

// TimeTraveler advances the clock of a local ledger. Live networks have none.
type TimeTraveler interface {
	IncreaseTime(ctx context.Context, d time.Duration) error
}

// RPCTimeTraveler advances hardhat and anvil nodes with evm_increaseTime and evm_mine.
type RPCTimeTraveler struct {
	client *rpc.Client
}

// NewRPCTimeTraveler creates a new RPCTimeTraveler.
func NewRPCTimeTraveler(client *rpc.Client) *RPCTimeTraveler {
	return &RPCTimeTraveler{client: client}
}

func (r *RPCTimeTraveler) IncreaseTime(ctx context.Context, d time.Duration) error {
	secs := types.NewDuration(d).WholeSeconds()
	if err := r.client.CallContext(ctx, nil, "evm_increaseTime", secs); err != nil {
		return fmt.Errorf("evm_increaseTime: %w", err)
	}
	if err := r.client.CallContext(ctx, nil, "evm_mine"); err != nil {
		return fmt.Errorf("evm_mine: %w", err)
	}
	sdk.LoggerFrom(ctx).Debugf("advanced ledger time by %ds", secs)

	return nil
}

// FastForward moves past the delay of action so it becomes executable.
func FastForward(ctx context.Context, traveler TimeTraveler, action types.ScheduledAction) error {
	return traveler.IncreaseTime(ctx, action.Delay.Duration+time.Second)
}
