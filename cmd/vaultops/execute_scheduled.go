package vaultops

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/sc1-labs/vaultops/sdk/evm"
)

func buildExecuteScheduledCmd(root *rootOptions) *cobra.Command {
	var (
		proposeTx string
		salt      string
		timelock  string
	)

	cmd := &cobra.Command{
		Use:   "execute-scheduled",
		Short: "Execute a timelock proposal once its delay elapsed",
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

			timelockAddr, err := c.resolve(ctx, timelock)
			if err != nil {
				return err
			}
			submitter, err := c.submitter()
			if err != nil {
				return err
			}
			executor := evm.NewTimelockExecutor(submitter, timelockAddr, evm.WithSalt(common.HexToHash(salt)))

			receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(proposeTx))
			if err != nil {
				return fmt.Errorf("proposal receipt: %w", err)
			}
			action, err := executor.ActionFromReceipt(receipt)
			if err != nil {
				return err
			}
			if action.Timelock != timelockAddr {
				return fmt.Errorf("proposal was made to %s, not %s", action.Timelock.Hex(), timelockAddr.Hex())
			}

			receipt, err = executor.ExecuteScheduled(ctx, action)
			if evm.IsNotReadyRevert(err) {
				ts, tsErr := executor.GetTimestamp(ctx, timelockAddr, action.ID)
				if tsErr == nil && ts > 1 {
					return fmt.Errorf("operation %s is not ready before %d: %w", action.ID.Hex(), ts, err)
				}
			}
			if err != nil {
				return reportExecutionError(cmd, err)
			}

			printf(cmd, "executed %s on %s in %s\n", action.Method, action.Target.Hex(), receipt.TxHash.Hex())
			if !evm.IsSuccess(receipt) {
				return errors.New("execution reverted")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&proposeTx, "tx", "", "Hash of the transaction that proposed the operation")
	cmd.Flags().StringVar(&salt, "salt", evm.ZeroHash.Hex(), "Salt the operation was proposed with")
	cmd.Flags().StringVar(&timelock, "timelock", defaultTimelock, "Timelock address or deployment name")
	_ = cmd.MarkFlagRequired("tx")

	return cmd
}
