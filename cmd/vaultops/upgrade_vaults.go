package vaultops

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	sdkerrors "github.com/sc1-labs/vaultops/sdk/errors"
	"github.com/sc1-labs/vaultops/types"
)

func buildUpgradeVaultsCmd(root *rootOptions) *cobra.Command {
	var (
		factory  string
		beacon   string
		impl     string
		timelock string
	)

	cmd := &cobra.Command{
		Use:   "upgrade-vaults",
		Short: "Point the vault beacon at a new implementation through the timelock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg, cleanup, err := root.setup(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			c, err := dial(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			var addrs [3]common.Address
			for i, ref := range []string{factory, beacon, impl} {
				if addrs[i], err = c.resolve(ctx, ref); err != nil {
					return err
				}
			}

			signers, err := cfg.Signers()
			if err != nil {
				return err
			}
			deployer, ok := signers[types.RoleDeployer]
			if !ok {
				return sdkerrors.NewMissingSignerError(types.RoleDeployer)
			}

			// the upgrade grants no roles, the deployer stands in as manager
			r, err := c.newRunner(ctx, timelock, nil, deployer.From)
			if err != nil {
				return err
			}

			return r.engine.UpgradeVaults(ctx, addrs[0], addrs[1], addrs[2])
		},
	}

	cmd.Flags().StringVar(&factory, "factory", "ScionVaultFactory", "Vault factory address or deployment name")
	cmd.Flags().StringVar(&beacon, "beacon", "UpgradeableBeacon", "Beacon address or deployment name")
	cmd.Flags().StringVar(&impl, "impl", "VaultUpgradable", "Implementation address or deployment name")
	cmd.Flags().StringVar(&timelock, "timelock", defaultTimelock, "Timelock address or deployment name")

	return cmd
}
