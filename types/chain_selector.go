package types //nolint:revive,nolintlint // allow pkg name 'types'

import (
	"errors"
	"fmt"

	chainsel "github.com/smartcontractkit/chain-selectors"
)

// ChainSelector is a unique identifier for a chain.
//
// These values are defined in the chain-selectors dependency.
// https://github.com/smartcontractkit/chain-selectors
type ChainSelector uint64

// ErrChainNotFound is returned when a selector or EVM chain id is unknown to chain-selectors.
var ErrChainNotFound = errors.New("chain not found")

// ChainSelectorFromEVMChainID resolves the selector of an EVM chain id.
func ChainSelectorFromEVMChainID(chainID uint64) (ChainSelector, error) {
	sel, err := chainsel.SelectorFromChainId(chainID)
	if err != nil {
		return 0, fmt.Errorf("%w for evm chain id %d", ErrChainNotFound, chainID)
	}

	return ChainSelector(sel), nil
}

// EVMChainID returns the EVM chain id for the selector.
func (s ChainSelector) EVMChainID() (uint64, error) {
	chain, ok := chainsel.ChainBySelector(uint64(s))
	if !ok {
		return 0, fmt.Errorf("%w for selector %d", ErrChainNotFound, s)
	}

	return chain.EvmChainID, nil
}

// Name returns the chain-selectors name of the chain, or the numeric selector when unknown.
func (s ChainSelector) Name() string {
	chain, ok := chainsel.ChainBySelector(uint64(s))
	if !ok || chain.Name == "" {
		return fmt.Sprintf("%d", uint64(s))
	}

	return chain.Name
}
