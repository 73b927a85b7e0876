// Package abi packs and unpacks values the way Solidity's abi.encode and abi.decode do.
package abi

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// parsed argument lists, keyed by their JSON definition
var arguments sync.Map

// Encode is abi.encode of values laid out by abiStr, a JSON argument list such as
// `[{"type":"address"},{"type":"uint256"}]`.
func Encode(abiStr string, values ...any) ([]byte, error) {
	args, err := parseArguments(abiStr)
	if err != nil {
		return nil, err
	}

	return args.Pack(values...)
}

// Decode is abi.decode of data laid out by abiStr.
func Decode(abiStr string, data []byte) ([]any, error) {
	args, err := parseArguments(abiStr)
	if err != nil {
		return nil, err
	}

	return args.Unpack(data)
}

func parseArguments(abiStr string) (abi.Arguments, error) {
	if cached, ok := arguments.Load(abiStr); ok {
		return cached.(abi.Arguments), nil //nolint:forcetypeassert
	}

	var fields []abi.ArgumentMarshaling
	if err := json.Unmarshal([]byte(abiStr), &fields); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}

	args := make(abi.Arguments, 0, len(fields))
	for i, f := range fields {
		typ, err := abi.NewType(f.Type, f.InternalType, f.Components)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args = append(args, abi.Argument{Name: f.Name, Type: typ, Indexed: f.Indexed})
	}
	arguments.Store(abiStr, args)

	return args, nil
}
