package sdkerrors

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sc1-labs/vaultops/types"
)

var (
	// ErrNoFeePrice is returned when neither the fee services nor the ledger produced a price.
	ErrNoFeePrice = errors.New("no fee price available")

	// ErrActionNotFound is returned when a receipt carries no CallScheduled event.
	ErrActionNotFound = errors.New("scheduled action not found in receipt")

	// ErrNonceConsumed is returned when a nonce was mined by a transaction none of our attempts match.
	ErrNonceConsumed = errors.New("nonce consumed by another transaction")
)

// MissingSignerError is returned when no key is configured for a signer role. It is fatal.
type MissingSignerError struct {
	Role types.Role
}

func (e *MissingSignerError) Error() string {
	return fmt.Sprintf("missing signer for role %q", e.Role)
}

func NewMissingSignerError(role types.Role) *MissingSignerError {
	return &MissingSignerError{Role: role}
}

// MissingAddressError is returned when a required address mapping is absent. It is fatal.
type MissingAddressError struct {
	Name string
}

func (e *MissingAddressError) Error() string {
	return "missing address for " + e.Name
}

func NewMissingAddressError(name string) *MissingAddressError {
	return &MissingAddressError{Name: name}
}

// ReplacementsExhaustedError is returned when a call did not confirm after the maximum
// number of fee-bumped replacements.
type ReplacementsExhaustedError struct {
	From     common.Address
	Nonce    uint64
	Attempts []common.Hash
	Waited   time.Duration
}

func (e *ReplacementsExhaustedError) Error() string {
	hashes := make([]string, 0, len(e.Attempts))
	for _, h := range e.Attempts {
		hashes = append(hashes, h.Hex())
	}

	return fmt.Sprintf("transaction from %s with nonce %d not confirmed after %d attempts (%s): %s",
		e.From.Hex(), e.Nonce, len(e.Attempts), e.Waited, strings.Join(hashes, ", "))
}

func NewReplacementsExhaustedError(
	from common.Address, nonce uint64, attempts []common.Hash, waited time.Duration,
) *ReplacementsExhaustedError {
	return &ReplacementsExhaustedError{From: from, Nonce: nonce, Attempts: attempts, Waited: waited}
}

// BroadcastError wraps a broadcast failure that survived all retries.
type BroadcastError struct {
	Method string
	Err    error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast %s: %v", e.Method, e.Err)
}

func (e *BroadcastError) Unwrap() error {
	return e.Err
}

func NewBroadcastError(method string, err error) *BroadcastError {
	return &BroadcastError{Method: method, Err: err}
}
