package vaultops

import (
	"github.com/spf13/cobra"

	"github.com/sc1-labs/vaultops/types"
)

func buildGasPriceCmd(root *rootOptions) *cobra.Command {
	var tier string

	cmd := &cobra.Command{
		Use:   "gas-price",
		Short: "Print the fee quotes of every source and the price the submitter would use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			feeTier, err := types.ParseFeeTier(tier)
			if err != nil {
				return err
			}

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

			if key, ok := c.oracle.ChainKey(cfg.ChainID); ok {
				printf(cmd, "fee services route chain %d as %q\n", cfg.ChainID, key)
			} else {
				printf(cmd, "no fee service covers chain %d, using the node suggestion\n", cfg.ChainID)
			}
			for _, q := range c.oracle.Quotes(ctx, cfg.ChainID) {
				printf(cmd, "%-10s %-7s %s\n", q.Source, q.Tier, q.Price)
			}

			price, err := c.oracle.GetFeePrice(ctx, cfg.ChainID, feeTier)
			if err != nil {
				return err
			}
			printf(cmd, "%s price: %s wei\n", feeTier, price)

			return nil
		},
	}

	cmd.Flags().StringVar(&tier, "tier", string(types.FeeTierNormal), "Fee tier: slow, normal or fast")

	return cmd
}
