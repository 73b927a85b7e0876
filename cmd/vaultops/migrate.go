package vaultops

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/sc1-labs/vaultops/config"
	"github.com/sc1-labs/vaultops/types"
)

const (
	defaultVault    = "USDC-Vault-0.2"
	defaultTimelock = "ScionTimelock"
)

func buildMigrateCmd(root *rootOptions) *cobra.Command {
	var (
		vault      string
		timelock   string
		candidates map[string]string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move the vault to the candidate deployment of every configured strategy",
		Long: `Each candidate is given as SYMBOL=ADDRESS. The previous deployment of a symbol is archived
in the registry and migrated through the timelock. On networks that are not live the timelock
delay is skipped and the migration executed right away.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg, cleanup, err := root.setup(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if cfg.StrategiesFile == "" {
				return fmt.Errorf("%s is required", config.KeyStrategiesFile)
			}
			if cfg.ManagerKey == nil {
				return fmt.Errorf("%s is required", config.KeyManagerKey)
			}
			strategies, err := config.LoadStrategies(cfg.StrategiesFile)
			if err != nil {
				return err
			}

			records := make(map[string]types.DeploymentRecord, len(candidates))
			for symbol, addr := range candidates {
				if !common.IsHexAddress(addr) {
					return fmt.Errorf("candidate %s: invalid address %q", symbol, addr)
				}
				records[symbol] = types.DeploymentRecord{Name: symbol, Address: common.HexToAddress(addr)}
			}

			r, err := dialRunner(ctx, cfg, timelock, strategies,
				crypto.PubkeyToAddress(cfg.ManagerKey.PublicKey))
			if err != nil {
				return err
			}
			defer r.Close()

			vaultAddr, err := r.resolve(ctx, vault)
			if err != nil {
				return err
			}

			return r.engine.Run(ctx, vaultAddr, records)
		},
	}

	cmd.Flags().StringVar(&vault, "vault", defaultVault, "Vault address or deployment name")
	cmd.Flags().StringVar(&timelock, "timelock", defaultTimelock, "Timelock address or deployment name")
	cmd.Flags().StringToStringVar(&candidates, "candidate", nil, "Candidate deployment as SYMBOL=ADDRESS, repeatable")

	return cmd
}
