package migration

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sc1-labs/vaultops/sdk"
	"github.com/sc1-labs/vaultops/sdk/evm"
	"github.com/sc1-labs/vaultops/types"
)

// initStrategy grants the manager role to the manager and team accounts and points the
// strategy at vault. Strategies the deployer does not own are left alone.
func (e *Engine) initStrategy(ctx context.Context, vault common.Address, candidate types.DeploymentRecord) error {
	lggr := sdk.LoggerFrom(ctx)
	strategy := candidate.Address

	deployer, err := e.submitter.Address(types.RoleDeployer)
	if err != nil {
		return err
	}
	owner, err := e.inspector.Owner(ctx, strategy)
	if err != nil {
		return err
	}
	if owner != deployer {
		lggr.Infof("deployer is not the owner of %s, skipping role checks", candidate.Name)
		return nil
	}

	for _, account := range []common.Address{e.cfg.Manager, e.cfg.Team} {
		if account == (common.Address{}) {
			continue
		}
		isManager, err := e.inspector.IsManager(ctx, strategy, account)
		if err != nil {
			return err
		}
		if isManager {
			continue
		}
		if err := e.send(ctx, strategy, evm.StrategyABI, evm.MethodSetManager, types.RoleDeployer, account, true); err != nil {
			return err
		}
	}

	current, err := e.inspector.StrategyVault(ctx, strategy)
	if err != nil {
		return err
	}
	if current != vault {
		return e.send(ctx, strategy, evm.StrategyABI, evm.MethodSetVault, types.RoleDeployer, vault)
	}

	return nil
}
