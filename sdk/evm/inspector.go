package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Inspector reads the vault, strategy and beacon views the migration flow decides on.
type Inspector struct {
	client bind.ContractCaller
}

// NewInspector creates a new Inspector.
func NewInspector(client bind.ContractCaller) *Inspector {
	return &Inspector{client: client}
}

// IsTrusted reports the vault's trust flag for strategy.
func (i *Inspector) IsTrusted(ctx context.Context, vault, strategy common.Address) (bool, error) {
	out, err := callView(ctx, i.client, vault, VaultABI, MethodGetStrategyData, strategy)
	if err != nil {
		return false, err
	}

	return unpackOne[bool](out, MethodGetStrategyData)
}

// WithdrawalQueue returns the vault's ordered withdrawal queue.
func (i *Inspector) WithdrawalQueue(ctx context.Context, vault common.Address) ([]common.Address, error) {
	out, err := callView(ctx, i.client, vault, VaultABI, MethodGetWithdrawalQueue)
	if err != nil {
		return nil, err
	}

	return unpackOne[[]common.Address](out, MethodGetWithdrawalQueue)
}

// Owner returns the owner of an Ownable contract.
func (i *Inspector) Owner(ctx context.Context, contract common.Address) (common.Address, error) {
	out, err := callView(ctx, i.client, contract, StrategyABI, MethodOwner)
	if err != nil {
		return common.Address{}, err
	}

	return unpackOne[common.Address](out, MethodOwner)
}

// IsManager reports whether account is a manager of strategy.
func (i *Inspector) IsManager(ctx context.Context, strategy, account common.Address) (bool, error) {
	out, err := callView(ctx, i.client, strategy, StrategyABI, MethodIsManager, account)
	if err != nil {
		return false, err
	}

	return unpackOne[bool](out, MethodIsManager)
}

// StrategyVault returns the vault a strategy points back to.
func (i *Inspector) StrategyVault(ctx context.Context, strategy common.Address) (common.Address, error) {
	out, err := callView(ctx, i.client, strategy, StrategyABI, MethodVault)
	if err != nil {
		return common.Address{}, err
	}

	return unpackOne[common.Address](out, MethodVault)
}

// Implementation returns the implementation a factory or beacon currently hands out.
func (i *Inspector) Implementation(ctx context.Context, factory common.Address) (common.Address, error) {
	out, err := callView(ctx, i.client, factory, BeaconABI, MethodImplementation)
	if err != nil {
		return common.Address{}, err
	}

	return unpackOne[common.Address](out, MethodImplementation)
}

func callView(
	ctx context.Context, client bind.ContractCaller, addr common.Address, contractABI *abi.ABI, method string, args ...any,
) ([]any, error) {
	contract := bind.NewBoundContract(addr, *contractABI, client, nil, nil)

	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, addr.Hex(), err)
	}

	return out, nil
}

// unpackOne returns the first output of a view call as T.
func unpackOne[T any](out []any, method string) (T, error) {
	var zero T
	if len(out) == 0 {
		return zero, fmt.Errorf("%s returned no values", method)
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s returned %T, want %T", method, out[0], zero)
	}

	return v, nil
}

// uint256 converts an unpacked uint256 output to uint64.
func uint256(out []any, method string) (uint64, error) {
	v, err := unpackOne[*big.Int](out, method)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s returned %s, overflows uint64", method, v)
	}

	return v.Uint64(), nil
}
