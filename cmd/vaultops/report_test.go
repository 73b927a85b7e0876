package vaultops

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sc1-labs/vaultops/sdk/evm"
)

func TestReportExecutionError(t *testing.T) {
	t.Parallel()

	execErr := &evm.ExecutionError{
		To:                  common.HexToAddress("0x0a"),
		DecodedRevertReason: "caller is not a manager",
		OriginalError:       errors.New("execution reverted"),
	}

	tests := []struct {
		name       string
		err        error
		wantStderr string
	}{
		{name: "wrapped execution error", err: fmt.Errorf("estimate gas: %w", execErr), wantStderr: `"revertReason": "caller is not a manager"`},
		{name: "other error", err: errors.New("dial tcp: connection refused")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stderr bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetErr(&stderr)

			err := reportExecutionError(cmd, tt.err)
			require.ErrorIs(t, err, tt.err)
			if tt.wantStderr == "" {
				assert.Empty(t, stderr.String())
				return
			}
			assert.Contains(t, stderr.String(), tt.wantStderr)
		})
	}
}
