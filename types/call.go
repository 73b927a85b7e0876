package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Role names an operator-controlled signer.
type Role string

const (
	RoleDeployer Role = "deployer"
	RoleManager  Role = "manager"
)

// Call is a privileged contract call ready to be signed and broadcast.
type Call struct {
	To     common.Address
	Data   []byte
	Value  *big.Int
	Method string
	Role   Role

	// Tier selects the fee tier used for the first attempt. Defaults to FeeTierNormal.
	Tier FeeTier
	// GasLimit skips gas estimation when non-zero.
	GasLimit uint64
	// FixedGasPrice skips the fee oracle for the first attempt when set.
	FixedGasPrice *big.Int
}

// Attempt is one broadcast variant of a PendingCall.
type Attempt struct {
	Hash     common.Hash
	GasPrice *big.Int
	SentAt   time.Time
}

// PendingCall tracks the lifetime of a Call from first broadcast to confirmation.
// All attempts share the same (From, Nonce) pair; only the most recent one is live.
type PendingCall struct {
	Call
	From         common.Address
	Nonce        uint64
	GasPrice     *big.Int
	SubmittedAt  time.Time
	Replacements int
	Attempts     []Attempt
}

// Latest returns the most recently broadcast attempt.
func (p *PendingCall) Latest() Attempt {
	return p.Attempts[len(p.Attempts)-1]
}

// Hashes returns the hashes of every attempt, oldest first.
func (p *PendingCall) Hashes() []common.Hash {
	hashes := make([]common.Hash, 0, len(p.Attempts))
	for _, a := range p.Attempts {
		hashes = append(hashes, a.Hash)
	}

	return hashes
}
