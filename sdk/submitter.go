package sdk

import (
	"context"
	"math/big"

	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/sc1-labs/vaultops/types"
)

// FeeOracle returns the gas price to use for a fee tier on a chain.
type FeeOracle interface {
	GetFeePrice(ctx context.Context, chainID uint64, tier types.FeeTier) (*big.Int, error)
}

// Submitter signs, broadcasts and confirms privileged calls. A confirmed revert is returned as a
// receipt with a failed status, not as an error.
type Submitter interface {
	Submit(ctx context.Context, call types.Call) (*gethtypes.Receipt, error)
}
