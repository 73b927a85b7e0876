package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ScheduledAction is the handle of a call proposed to a timelock.
// The action lives on chain; the handle only carries what is needed to locate and execute it.
type ScheduledAction struct {
	Timelock    common.Address `json:"timelock"`
	Target      common.Address `json:"target"`
	Value       *big.Int       `json:"value"`
	Data        []byte         `json:"data"`
	Predecessor common.Hash    `json:"predecessor"`
	Salt        common.Hash    `json:"salt"`
	Delay       Duration       `json:"delay"`
	ID          common.Hash    `json:"id"`
	ProposeTx   common.Hash    `json:"proposeTx,omitempty"`
	Method      string         `json:"method,omitempty"`
}
