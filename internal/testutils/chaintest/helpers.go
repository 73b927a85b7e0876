package chaintest

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sc1-labs/vaultops/sdk"
	"github.com/sc1-labs/vaultops/types"
)

// Context returns a context carrying a no-op logger.
func Context(t *testing.T) context.Context {
	t.Helper()

	return sdk.WithLogger(context.Background(), zap.NewNop().Sugar())
}

// NewSigner generates a key and returns its transactor for ChainID.
func NewSigner(t *testing.T) *bind.TransactOpts {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(ChainID))
	require.NoError(t, err)

	return auth
}

var _ sdk.FeeOracle = (*StaticOracle)(nil)

// StaticOracle returns the same price for every tier and counts its calls.
type StaticOracle struct {
	Price *big.Int
	Err   error

	mu    sync.Mutex
	calls int
}

func (o *StaticOracle) GetFeePrice(context.Context, uint64, types.FeeTier) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.Err != nil {
		return nil, o.Err
	}

	return new(big.Int).Set(o.Price), nil
}

// Calls returns how often GetFeePrice was called.
func (o *StaticOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.calls
}
