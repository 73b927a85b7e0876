// Package chaintest implements an in-memory ledger for tests. It satisfies evm.Backend, keeps a
// transaction pool with replace-by-fee semantics and emulates the vault, strategy, beacon and
// timelock contracts by decoding calldata.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/sc1-labs/vaultops/internal/utils/safecast"
	"github.com/sc1-labs/vaultops/sdk/evm"
)

const (
	// ChainID of every Ledger.
	ChainID = 1337

	callGas = 100_000
)

var _ evm.Backend = (*Ledger)(nil)
var _ evm.TimeTraveler = (*Ledger)(nil)

// MinedCall is a mutating call that succeeded, including calls performed by a timelock.
type MinedCall struct {
	From   common.Address
	To     common.Address
	Method string
	Args   []any
	// Via is the timelock that performed the call, zero for direct calls.
	Via common.Address
}

// Ledger is an in-memory evm.Backend. Transactions priced at or above MinGasPrice are mined
// right away when AutoMine is set; the rest wait in the pool until Mine is called.
type Ledger struct {
	mu sync.Mutex

	signer   gethtypes.Signer
	now      time.Time
	block    uint64
	nonces   map[common.Address]uint64
	pool     map[common.Address]map[uint64]*gethtypes.Transaction
	receipts map[common.Hash]*gethtypes.Receipt

	// AutoMine mines every accepted transaction that meets MinGasPrice.
	AutoMine bool
	// MinGasPrice is the lowest price a transaction is mined at.
	MinGasPrice *big.Int
	// Suggestion is returned by SuggestGasPrice. A nil value makes it fail.
	Suggestion *big.Int

	sendErrs []error
	sent     []*gethtypes.Transaction
	calls    []MinedCall

	vaults     map[common.Address]*Vault
	strategies map[common.Address]*Strategy
	beacons    map[common.Address]*Beacon
	timelocks  map[common.Address]*Timelock
}

// NewLedger creates an empty auto-mining ledger.
func NewLedger() *Ledger {
	return &Ledger{
		signer:      gethtypes.LatestSignerForChainID(big.NewInt(ChainID)),
		now:         time.Unix(1_700_000_000, 0),
		block:       1,
		nonces:      make(map[common.Address]uint64),
		pool:        make(map[common.Address]map[uint64]*gethtypes.Transaction),
		receipts:    make(map[common.Hash]*gethtypes.Receipt),
		AutoMine:    true,
		MinGasPrice: big.NewInt(1),
		Suggestion:  big.NewInt(1_000_000_000),
		vaults:      make(map[common.Address]*Vault),
		strategies:  make(map[common.Address]*Strategy),
		beacons:     make(map[common.Address]*Beacon),
		timelocks:   make(map[common.Address]*Timelock),
	}
}

// SetMinGasPrice changes the mining threshold.
func (l *Ledger) SetMinGasPrice(p *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.MinGasPrice = p
}

// FailNextSends makes the next SendTransaction calls return errs in order.
func (l *Ledger) FailNextSends(errs ...error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendErrs = append(l.sendErrs, errs...)
}

// Sent returns every transaction accepted into the pool, replaced ones included.
func (l *Ledger) Sent() []*gethtypes.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]*gethtypes.Transaction(nil), l.sent...)
}

// Calls returns the successful mutating calls in execution order.
func (l *Ledger) Calls() []MinedCall {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]MinedCall(nil), l.calls...)
}

// CallsTo returns the successful calls of method, direct or through a timelock.
func (l *Ledger) CallsTo(method string) []MinedCall {
	var out []MinedCall
	for _, c := range l.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}

	return out
}

// Now returns the ledger clock.
func (l *Ledger) Now() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.now
}

// IncreaseTime advances the ledger clock and mines a block.
func (l *Ledger) IncreaseTime(_ context.Context, d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = l.now.Add(d)
	l.mineLocked()

	return nil
}

// Mine mines every pending transaction meeting MinGasPrice.
func (l *Ledger) Mine() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mineLocked()
}

func (l *Ledger) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(ChainID), nil
}

func (l *Ledger) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	nonce := l.nonces[account]
	for {
		if _, ok := l.pool[account][nonce]; !ok {
			return nonce, nil
		}
		nonce++
	}
}

func (l *Ledger) NonceAt(_ context.Context, account common.Address, _ *big.Int) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.nonces[account], nil
}

func (l *Ledger) SuggestGasPrice(context.Context) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Suggestion == nil {
		return nil, errors.New("gas price suggestion unavailable")
	}

	return new(big.Int).Set(l.Suggestion), nil
}

func (l *Ledger) HeaderByNumber(context.Context, *big.Int) (*gethtypes.Header, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts, err := safecast.Int64ToUint64(l.now.Unix())
	if err != nil {
		return nil, err
	}

	return &gethtypes.Header{
		Number: new(big.Int).SetUint64(l.block),
		Time:   ts,
	}, nil
}

func (l *Ledger) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isContract(account) {
		return []byte{0x60, 0x80}, nil
	}

	return nil, nil
}

func (l *Ledger) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if msg.To == nil {
		return nil, errors.New("contract creation not supported")
	}

	ret, _, err := l.exec(msg.From, *msg.To, msg.Data, false)

	return ret, err
}

func (l *Ledger) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if msg.To == nil {
		return 0, errors.New("contract creation not supported")
	}
	if _, _, err := l.exec(msg.From, *msg.To, msg.Data, false); err != nil {
		return 0, err
	}

	return callGas, nil
}

func (l *Ledger) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.sendErrs) > 0 {
		err := l.sendErrs[0]
		l.sendErrs = l.sendErrs[1:]
		if err != nil {
			return err
		}
	}

	from, err := gethtypes.Sender(l.signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if tx.Nonce() < l.nonces[from] {
		return errors.New("nonce too low")
	}

	if l.pool[from] == nil {
		l.pool[from] = make(map[uint64]*gethtypes.Transaction)
	}
	if prev, ok := l.pool[from][tx.Nonce()]; ok {
		if prev.Hash() == tx.Hash() {
			return errors.New("already known")
		}
		// geth requires a 10% price bump to replace
		minPrice := new(big.Int).Div(new(big.Int).Mul(prev.GasPrice(), big.NewInt(110)), big.NewInt(100))
		if tx.GasPrice().Cmp(minPrice) < 0 {
			return errors.New("replacement transaction underpriced")
		}
	}
	l.pool[from][tx.Nonce()] = tx
	l.sent = append(l.sent, tx)

	if l.AutoMine {
		l.mineLocked()
	}

	return nil
}

func (l *Ledger) TransactionReceipt(_ context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	receipt, ok := l.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}

	return receipt, nil
}

// mineLocked mines, per sender, the contiguous run of pool transactions starting at the
// confirmed nonce that meet MinGasPrice.
func (l *Ledger) mineLocked() {
	senders := make([]common.Address, 0, len(l.pool))
	for from := range l.pool {
		senders = append(senders, from)
	}
	sort.Slice(senders, func(i, j int) bool { return senders[i].Cmp(senders[j]) < 0 })

	for _, from := range senders {
		for {
			tx, ok := l.pool[from][l.nonces[from]]
			if !ok || tx.GasPrice().Cmp(l.MinGasPrice) < 0 {
				break
			}
			delete(l.pool[from], tx.Nonce())
			l.nonces[from]++
			l.applyTx(from, tx)
		}
	}
	l.block++
}

func (l *Ledger) applyTx(from common.Address, tx *gethtypes.Transaction) {
	receipt := &gethtypes.Receipt{
		Type:              tx.Type(),
		Status:            gethtypes.ReceiptStatusSuccessful,
		TxHash:            tx.Hash(),
		BlockNumber:       new(big.Int).SetUint64(l.block),
		GasUsed:           callGas,
		CumulativeGasUsed: callGas,
		EffectiveGasPrice: tx.GasPrice(),
	}

	if tx.To() != nil {
		_, logs, err := l.exec(from, *tx.To(), tx.Data(), true)
		if err != nil {
			receipt.Status = gethtypes.ReceiptStatusFailed
		} else {
			for i, log := range logs {
				log.TxHash = tx.Hash()
				log.BlockNumber = l.block
				log.Index = uint(i)
			}
			receipt.Logs = logs
		}
	}
	l.receipts[tx.Hash()] = receipt
}

func (l *Ledger) isContract(addr common.Address) bool {
	_, v := l.vaults[addr]
	_, s := l.strategies[addr]
	_, b := l.beacons[addr]
	_, t := l.timelocks[addr]

	return v || s || b || t
}
