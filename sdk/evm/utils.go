package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

const (
	// SimulatedEVMChainID is the chain ID used for simulated chains.
	SimulatedEVMChainID = 1337

	receiptStatusSuccess = gethtypes.ReceiptStatusSuccessful
)

// Backend is the ledger RPC surface the engines use. It is satisfied by *ethclient.Client
// and by the simulated backend client.
type Backend interface {
	ethereum.ContractCaller
	ethereum.GasEstimator
	ethereum.TransactionSender

	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// IsSuccess reports whether a receipt is a confirmed, successful execution.
func IsSuccess(r *gethtypes.Receipt) bool {
	return r != nil && r.Status == receiptStatusSuccess
}
