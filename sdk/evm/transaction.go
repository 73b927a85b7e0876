package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sc1-labs/vaultops/types"
)

// NewCall packs method and args against contractABI into a call signed by role.
func NewCall(
	to common.Address,
	contractABI *abi.ABI,
	role types.Role,
	method string,
	args ...any,
) (types.Call, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return types.Call{}, fmt.Errorf("pack %s: %w", method, err)
	}

	return types.Call{
		To:     to,
		Data:   data,
		Value:  big.NewInt(0),
		Method: method,
		Role:   role,
		Tier:   types.FeeTierNormal,
	}, nil
}

// callValue returns the value of a call, defaulting to zero.
func callValue(call types.Call) *big.Int {
	if call.Value == nil {
		return big.NewInt(0)
	}

	return call.Value
}
