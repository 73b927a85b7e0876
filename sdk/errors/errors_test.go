package sdkerrors

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sc1-labs/vaultops/types"
)

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err      error
		expected string
	}{
		{NewMissingSignerError(types.RoleManager), `missing signer for role "manager"`},
		{NewMissingAddressError("USDC-Vault-0.2"), "missing address for USDC-Vault-0.2"},
		{
			NewReplacementsExhaustedError(
				common.HexToAddress("0x1"), 7, []common.Hash{common.HexToHash("0x2")}, time.Second,
			),
			"transaction from 0x0000000000000000000000000000000000000001 with nonce 7 not confirmed after 1 attempts (1s): " +
				"0x0000000000000000000000000000000000000000000000000000000000000002",
		},
		{NewBroadcastError("transfer", errors.New("boom")), "broadcast transfer: boom"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.err.Error())
	}
}

func TestBroadcastError_Unwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection refused")
	err := NewBroadcastError("transfer", inner)

	require.ErrorIs(t, err, inner)
}
