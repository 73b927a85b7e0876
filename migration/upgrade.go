package migration

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sc1-labs/vaultops/sdk"
	"github.com/sc1-labs/vaultops/sdk/evm"
)

// UpgradeVaults points the vault beacon at impl through the timelock. Nothing is proposed
// when the factory already hands out impl.
func (e *Engine) UpgradeVaults(ctx context.Context, factory, beacon, impl common.Address) error {
	lggr := sdk.LoggerFrom(ctx)

	current, err := e.inspector.Implementation(ctx, factory)
	if err != nil {
		return err
	}
	if current == impl {
		lggr.Infof("reusing vault implementation %s", impl.Hex())
		return nil
	}

	lggr.Infof("scheduling upgradeTo %s on beacon %s", impl.Hex(), beacon.Hex())
	action, err := e.timelock.Schedule(ctx, beacon, evm.BeaconABI, evm.MethodUpgradeTo, impl)
	if err != nil {
		return err
	}

	return e.settle(ctx, action)
}
