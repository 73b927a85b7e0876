package vaultops

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sc1-labs/vaultops/sdk/evm"
)

// reportExecutionError writes the revert details of a refused call to stderr as JSON and
// returns err unchanged.
func reportExecutionError(cmd *cobra.Command, err error) error {
	var execErr *evm.ExecutionError
	if !errors.As(err, &execErr) {
		return err
	}

	b, jsonErr := json.MarshalIndent(execErr, "", "  ")
	if jsonErr != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), string(b))

	return err
}
