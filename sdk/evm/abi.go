package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Method names of the vault contract.
const (
	MethodGetStrategyData       = "getStrategyData"
	MethodGetWithdrawalQueue    = "getWithdrawalQueue"
	MethodMigrateStrategy       = "migrateStrategy"
	MethodTrustStrategy         = "trustStrategy"
	MethodPushToWithdrawalQueue = "pushToWithdrawalQueue"
	MethodTransferOwnership     = "transferOwnership"
	MethodOwner                 = "owner"
)

// Method names of the strategy contract.
const (
	MethodIsManager  = "isManager"
	MethodVault      = "vault"
	MethodSetManager = "setManager"
	MethodSetVault   = "setVault"
)

// Method names of the vault factory and its upgradeable beacon.
const (
	MethodImplementation = "implementation"
	MethodUpgradeTo      = "upgradeTo"
)

const vaultABIJSON = `[
{"type":"function","name":"getStrategyData","stateMutability":"view","inputs":[{"name":"strategy","type":"address"}],"outputs":[{"name":"trusted","type":"bool"},{"name":"debt","type":"uint256"}]},
{"type":"function","name":"getWithdrawalQueue","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"migrateStrategy","stateMutability":"nonpayable","inputs":[{"name":"old","type":"address"},{"name":"new","type":"address"},{"name":"index","type":"uint256"}],"outputs":[]},
{"type":"function","name":"trustStrategy","stateMutability":"nonpayable","inputs":[{"name":"strategy","type":"address"}],"outputs":[]},
{"type":"function","name":"pushToWithdrawalQueue","stateMutability":"nonpayable","inputs":[{"name":"strategy","type":"address"}],"outputs":[]},
{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]}
]`

const strategyABIJSON = `[
{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"isManager","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"vault","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"setManager","stateMutability":"nonpayable","inputs":[{"name":"manager","type":"address"},{"name":"enabled","type":"bool"}],"outputs":[]},
{"type":"function","name":"setVault","stateMutability":"nonpayable","inputs":[{"name":"vault","type":"address"}],"outputs":[]},
{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]}
]`

const timelockABIJSON = `[
{"type":"function","name":"schedule","stateMutability":"nonpayable","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"predecessor","type":"bytes32"},{"name":"salt","type":"bytes32"},{"name":"delay","type":"uint256"}],"outputs":[]},
{"type":"function","name":"execute","stateMutability":"payable","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"payload","type":"bytes"},{"name":"predecessor","type":"bytes32"},{"name":"salt","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"getMinDelay","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"hashOperation","stateMutability":"pure","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"predecessor","type":"bytes32"},{"name":"salt","type":"bytes32"}],"outputs":[{"name":"","type":"bytes32"}]},
{"type":"function","name":"isOperation","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"isOperationPending","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"isOperationReady","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"isOperationDone","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"getTimestamp","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"event","name":"CallScheduled","anonymous":false,"inputs":[{"name":"id","type":"bytes32","indexed":true},{"name":"index","type":"uint256","indexed":true},{"name":"target","type":"address","indexed":false},{"name":"value","type":"uint256","indexed":false},{"name":"data","type":"bytes","indexed":false},{"name":"predecessor","type":"bytes32","indexed":false},{"name":"delay","type":"uint256","indexed":false}]},
{"type":"error","name":"TimelockUnexpectedOperationState","inputs":[{"name":"operationId","type":"bytes32"},{"name":"expectedStates","type":"bytes32"}]},
{"type":"error","name":"TimelockInsufficientDelay","inputs":[{"name":"delay","type":"uint256"},{"name":"minDelay","type":"uint256"}]},
{"type":"event","name":"CallExecuted","anonymous":false,"inputs":[{"name":"id","type":"bytes32","indexed":true},{"name":"index","type":"uint256","indexed":true},{"name":"target","type":"address","indexed":false},{"name":"value","type":"uint256","indexed":false},{"name":"data","type":"bytes","indexed":false}]}
]`

const beaconABIJSON = `[
{"type":"function","name":"implementation","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"upgradeTo","stateMutability":"nonpayable","inputs":[{"name":"newImplementation","type":"address"}],"outputs":[]}
]`

var (
	// VaultABI is the subset of the vault interface the migration flow drives.
	VaultABI = mustParseABI(vaultABIJSON)
	// StrategyABI is the subset of the strategy interface used by the post-init checks.
	StrategyABI = mustParseABI(strategyABIJSON)
	// TimelockABI is the OpenZeppelin TimelockController interface.
	TimelockABI = mustParseABI(timelockABIJSON)
	// BeaconABI covers both the vault factory and the upgradeable beacon behind it.
	BeaconABI = mustParseABI(beaconABIJSON)
)

func mustParseABI(def string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}

	return &parsed
}
