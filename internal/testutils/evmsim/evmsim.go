// package evmsim implements a simulated EVM chain for testing purposes.
package evmsim

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"

	"github.com/sc1-labs/vaultops/internal/utils/safecast"
	"github.com/sc1-labs/vaultops/sdk/evm"
)

const (
	// DefaultGasLimit is the default gas limit for each block in the simulated chain
	DefaultGasLimit = uint64(8000000)

	// DefaultBalance is the default balance for each account in the simulated chain
	DefaultBalance = 1e18

	// SimulatedChainID is the chain ID used for the simulated chain. EVM Simulated chains always use 1337
	//
	// https://pkg.go.dev/github.com/ethereum/go-ethereum/ethclient/simulated#NewBackend
	SimulatedChainID = evm.SimulatedEVMChainID
)

var _ evm.TimeTraveler = (*SimulatedChain)(nil)

// SimulatedChain represents a simulated chain with a backend and a list of signers.
type SimulatedChain struct {
	Backend *simulated.Backend
	Signers []*Signer
}

// Signer represents a signer with a private key.
type Signer struct {
	PrivateKey *ecdsa.PrivateKey
}

// NewTransactOpts creates a new transact options with the signer's private key.
func (s *Signer) NewTransactOpts(t *testing.T) *bind.TransactOpts {
	t.Helper()

	auth, err := bind.NewKeyedTransactorWithChainID(s.PrivateKey, big.NewInt(SimulatedChainID))
	require.NoError(t, err)

	return auth
}

// Address extracts the address from the signer's private key.
func (s *Signer) Address(t *testing.T) common.Address {
	t.Helper()

	publicKeyECDSA, ok := s.PrivateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		t.Fatal("error casting public key from crypto to ecdsa")
	}

	return crypto.PubkeyToAddress(*publicKeyECDSA)
}

// NewSimulatedChain creates a new simulated chain with the given number of funded signers.
func NewSimulatedChain(t *testing.T, numSigners uint64) SimulatedChain {
	t.Helper()

	n, err := safecast.Uint64ToInt(numSigners)
	require.NoError(t, err)

	signers := make([]*Signer, 0, n)
	for i := 0; i < n; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)

		signers = append(signers, &Signer{PrivateKey: key})
	}

	genesisAlloc := gethTypes.GenesisAlloc{}
	for _, s := range signers {
		genesisAlloc[s.Address(t)] = gethTypes.Account{
			Balance: big.NewInt(DefaultBalance),
		}
	}

	sim := simulated.NewBackend(genesisAlloc,
		simulated.WithBlockGasLimit(DefaultGasLimit),
	)
	t.Cleanup(func() {
		_ = sim.Close()
	})

	return SimulatedChain{
		Backend: sim,
		Signers: signers,
	}
}

// IncreaseTime advances the chain clock and mines a block.
func (s *SimulatedChain) IncreaseTime(_ context.Context, d time.Duration) error {
	if err := s.Backend.AdjustTime(d); err != nil {
		return err
	}
	s.Backend.Commit()

	return nil
}

// CommitOnSend wraps the chain client so that a block is mined right after the nth and every
// later transaction. Earlier transactions stay pending, which lets tests exercise replacements.
func (s *SimulatedChain) CommitOnSend(nth int) *CommittingBackend {
	return &CommittingBackend{Client: s.Backend.Client(), sim: s.Backend, nth: nth}
}

// CommittingBackend is an evm.Backend that mines blocks on send once a threshold is reached.
type CommittingBackend struct {
	simulated.Client
	sim *simulated.Backend

	mu   sync.Mutex
	nth  int
	sent int
}

var _ evm.Backend = (*CommittingBackend)(nil)

func (b *CommittingBackend) SendTransaction(ctx context.Context, tx *gethTypes.Transaction) error {
	if err := b.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent++
	if b.sent >= b.nth {
		b.sim.Commit()
	}

	return nil
}

// Sent returns the number of transactions accepted so far.
func (b *CommittingBackend) Sent() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sent
}
