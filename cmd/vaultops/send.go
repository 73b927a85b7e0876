package vaultops

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/sc1-labs/vaultops/sdk/evm"
	"github.com/sc1-labs/vaultops/types"
)

func buildSendCmd(root *rootOptions) *cobra.Command {
	var (
		to       string
		data     string
		value    string
		role     string
		tier     string
		gasLimit uint64
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Submit a raw call, replacing it with higher fees until it confirms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			feeTier, err := types.ParseFeeTier(tier)
			if err != nil {
				return err
			}
			calldata, err := hexutil.Decode(data)
			if err != nil && data != "" {
				return err
			}
			amount, ok := new(big.Int).SetString(value, 10)
			if !ok {
				return errors.New("invalid value")
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

			target, err := c.resolve(ctx, to)
			if err != nil {
				return err
			}
			submitter, err := c.submitter()
			if err != nil {
				return err
			}

			receipt, err := submitter.Submit(ctx, types.Call{
				To:       target,
				Data:     calldata,
				Value:    amount,
				Method:   "send",
				Role:     types.Role(role),
				Tier:     feeTier,
				GasLimit: gasLimit,
			})
			if err != nil {
				return reportExecutionError(cmd, err)
			}

			printf(cmd, "tx %s mined in block %s, status %d\n", receipt.TxHash.Hex(), receipt.BlockNumber, receipt.Status)
			if !evm.IsSuccess(receipt) {
				return errors.New("transaction reverted")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target address or deployment name")
	cmd.Flags().StringVar(&data, "data", "", "Hex calldata")
	cmd.Flags().StringVar(&value, "value", "0", "Value in wei")
	cmd.Flags().StringVar(&role, "role", string(types.RoleDeployer), "Signer role: deployer or manager")
	cmd.Flags().StringVar(&tier, "tier", string(types.FeeTierNormal), "Fee tier of the first attempt")
	cmd.Flags().Uint64Var(&gasLimit, "gas-limit", 0, "Gas limit, estimated when zero")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
