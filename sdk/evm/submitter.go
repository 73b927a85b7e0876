package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/sc1-labs/vaultops/internal/metrics"
	"github.com/sc1-labs/vaultops/sdk"
	sdkerrors "github.com/sc1-labs/vaultops/sdk/errors"
	"github.com/sc1-labs/vaultops/types"
)

const (
	DefaultMaxTxTime           = 3 * time.Minute
	DefaultFeeBumpMultiplier   = 1.11
	DefaultMaxReplacements     = 3
	DefaultPollInterval        = 2 * time.Second
	DefaultMaxBroadcastRetries = 5
	DefaultBroadcastBackoff    = 500 * time.Millisecond

	// receiptResolveRounds bounds the receipt lookups once the nonce is known to be mined.
	receiptResolveRounds = 3
)

var (
	errPendingDeadline = errors.New("transaction still pending at deadline")
	errUnderpriced     = errors.New("replacement transaction underpriced")
	errNonceTooLow     = errors.New("nonce too low")
)

// SubmitterConfig holds the timing and retry policy of a Submitter. Zero values take the
// defaults, except MaxReplacements where only nil does.
type SubmitterConfig struct {
	ChainID             uint64        `validate:"required"`
	MaxTxTime           time.Duration `validate:"gte=0"`
	FeeBumpMultiplier   float64       `validate:"omitempty,gt=1"`
	MaxReplacements     *int          `validate:"omitempty,gte=0"`
	PollInterval        time.Duration `validate:"gte=0"`
	MaxBroadcastRetries uint64
	BroadcastBackoff    time.Duration `validate:"gte=0"`
}

// Replacements returns a MaxReplacements setting of n. Zero disables fee bumping.
func Replacements(n int) *int {
	return &n
}

func (c SubmitterConfig) withDefaults() SubmitterConfig {
	if c.MaxTxTime == 0 {
		c.MaxTxTime = DefaultMaxTxTime
	}
	if c.FeeBumpMultiplier == 0 {
		c.FeeBumpMultiplier = DefaultFeeBumpMultiplier
	}
	if c.MaxReplacements == nil {
		c.MaxReplacements = Replacements(DefaultMaxReplacements)
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollInterval > c.MaxTxTime {
		c.PollInterval = c.MaxTxTime
	}
	if c.MaxBroadcastRetries == 0 {
		c.MaxBroadcastRetries = DefaultMaxBroadcastRetries
	}
	if c.BroadcastBackoff == 0 {
		c.BroadcastBackoff = DefaultBroadcastBackoff
	}

	return c
}

// Precheck decides whether a transaction is needed at all.
type Precheck func(ctx context.Context) (bool, error)

var _ sdk.Submitter = (*Submitter)(nil)

// Submitter signs and broadcasts privileged calls and replaces them at the same nonce with a
// higher gas price when they do not confirm within MaxTxTime.
type Submitter struct {
	backend Backend
	oracle  sdk.FeeOracle
	signers map[types.Role]*bind.TransactOpts
	cfg     SubmitterConfig
	chain   string

	// one mutex per signer address
	locks sync.Map
	now   func() time.Time
}

// NewSubmitter creates a Submitter. Every role that will submit calls needs a signer.
func NewSubmitter(
	backend Backend, oracle sdk.FeeOracle, signers map[types.Role]*bind.TransactOpts, cfg SubmitterConfig,
) *Submitter {
	return &Submitter{
		backend: backend,
		oracle:  oracle,
		signers: signers,
		cfg:     cfg.withDefaults(),
		chain:   strconv.FormatUint(cfg.ChainID, 10),
		now:     time.Now,
	}
}

// Backend returns the ledger the Submitter broadcasts to.
func (s *Submitter) Backend() Backend {
	return s.backend
}

// Signer returns the transactor of role.
func (s *Submitter) Signer(role types.Role) (*bind.TransactOpts, error) {
	auth, ok := s.signers[role]
	if !ok || auth == nil {
		return nil, sdkerrors.NewMissingSignerError(role)
	}

	return auth, nil
}

// Address returns the account of role.
func (s *Submitter) Address(role types.Role) (common.Address, error) {
	auth, err := s.Signer(role)
	if err != nil {
		return common.Address{}, err
	}

	return auth.From, nil
}

// Submit broadcasts call and blocks until one of its attempts confirms. A confirmed revert is
// returned as a receipt with a failed status and no error.
func (s *Submitter) Submit(ctx context.Context, call types.Call) (*gethtypes.Receipt, error) {
	auth, err := s.Signer(call.Role)
	if err != nil {
		return nil, err
	}
	if call.Tier == "" {
		call.Tier = types.FeeTierNormal
	}

	unlock := s.lock(auth.From)
	defer unlock()

	nonce, err := s.backend.PendingNonceAt(ctx, auth.From)
	if err != nil {
		return nil, fmt.Errorf("read nonce of %s: %w", auth.From.Hex(), err)
	}

	price := call.FixedGasPrice
	if price == nil {
		price, err = s.oracle.GetFeePrice(ctx, s.cfg.ChainID, call.Tier)
		if err != nil {
			return nil, err
		}
	}

	if call.GasLimit == 0 {
		gas, estimateErr := s.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  auth.From,
			To:    &call.To,
			Value: callValue(call),
			Data:  call.Data,
		})
		if estimateErr != nil {
			return nil, BuildExecutionError(estimateErr, call.To, call.Data)
		}
		call.GasLimit = gas
	}

	pending := &types.PendingCall{
		Call:        call,
		From:        auth.From,
		Nonce:       nonce,
		GasPrice:    new(big.Int).Set(price),
		SubmittedAt: s.now(),
	}

	return s.drive(ctx, auth, pending)
}

// SubmitWhen submits call only when precheck reports a transaction is needed. It returns a nil
// receipt and no error otherwise.
func (s *Submitter) SubmitWhen(ctx context.Context, precheck Precheck, call types.Call) (*gethtypes.Receipt, error) {
	needed, err := precheck(ctx)
	if err != nil {
		return nil, err
	}
	if !needed {
		sdk.LoggerFrom(ctx).Infof("%s on %s: no transaction needed", call.Method, call.To.Hex())
		return nil, nil
	}

	return s.Submit(ctx, call)
}

// SimulationPrecheck simulates call as its signer. A revert whose reason contains one of benign
// means no transaction is needed; any other revert is returned as an ExecutionError.
func (s *Submitter) SimulationPrecheck(call types.Call, benign ...string) Precheck {
	return func(ctx context.Context) (bool, error) {
		from, err := s.Address(call.Role)
		if err != nil {
			return false, err
		}

		_, err = s.backend.CallContract(ctx, ethereum.CallMsg{
			From:  from,
			To:    &call.To,
			Value: callValue(call),
			Data:  call.Data,
		}, nil)
		if err == nil {
			return true, nil
		}

		execErr := BuildExecutionError(err, call.To, call.Data)
		for _, reason := range benign {
			if strings.Contains(execErr.DecodedRevertReason, reason) {
				return false, nil
			}
		}

		return false, execErr
	}
}

// drive runs the Pending(#1) -> Pending(#n) -> Confirmed cycle of one (signer, nonce) pair.
func (s *Submitter) drive(ctx context.Context, auth *bind.TransactOpts, p *types.PendingCall) (*gethtypes.Receipt, error) {
	lggr := sdk.LoggerFrom(ctx)

	for {
		err := s.broadcast(ctx, auth, p)
		switch {
		case err == nil:
		case errors.Is(err, errUnderpriced):
			// the pool holds a variant we cannot outbid yet
			if p.Replacements >= *s.cfg.MaxReplacements {
				return nil, s.exhausted(p)
			}
			s.bump(ctx, p)

			continue
		case errors.Is(err, errNonceTooLow):
			return s.resolveMinedNonce(ctx, p)
		default:
			return nil, err
		}

		receipt, err := s.waitForReceipt(ctx, p)
		if err == nil {
			return s.confirmed(ctx, p, receipt), nil
		}
		if !errors.Is(err, errPendingDeadline) {
			return nil, err
		}

		confirmedNonce, err := s.backend.NonceAt(ctx, p.From, nil)
		if err != nil {
			return nil, fmt.Errorf("read confirmed nonce of %s: %w", p.From.Hex(), err)
		}
		if confirmedNonce > p.Nonce {
			return s.resolveMinedNonce(ctx, p)
		}

		if p.Replacements >= *s.cfg.MaxReplacements {
			return nil, s.exhausted(p)
		}
		lggr.Warnf("%s on %s not confirmed after %s (nonce %d, hash %s), replacing",
			p.Method, p.To.Hex(), s.cfg.MaxTxTime, p.Nonce, p.Latest().Hash.Hex())
		s.bump(ctx, p)
	}
}

func (s *Submitter) bump(ctx context.Context, p *types.PendingCall) {
	next := BumpGasPrice(p.GasPrice, s.cfg.FeeBumpMultiplier)
	sdk.LoggerFrom(ctx).Infof("bumping gas price of %s nonce %d from %s to %s", p.Method, p.Nonce, p.GasPrice, next)
	p.GasPrice = next
	p.Replacements++
	metrics.TxReplacements.WithLabelValues(s.chain, p.Method).Inc()
}

func (s *Submitter) exhausted(p *types.PendingCall) error {
	metrics.TxOutcomes.WithLabelValues(s.chain, p.Method, "exhausted").Inc()
	return sdkerrors.NewReplacementsExhaustedError(p.From, p.Nonce, p.Hashes(), s.now().Sub(p.SubmittedAt))
}

// broadcast signs the current variant of p and sends it, retrying transient failures.
func (s *Submitter) broadcast(ctx context.Context, auth *bind.TransactOpts, p *types.PendingCall) error {
	lggr := sdk.LoggerFrom(ctx)

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    p.Nonce,
		GasPrice: p.GasPrice,
		Gas:      p.GasLimit,
		To:       &p.To,
		Value:    callValue(p.Call),
		Data:     p.Data,
	})
	signed, err := auth.Signer(auth.From, tx)
	if err != nil {
		return fmt.Errorf("sign %s: %w", p.Method, err)
	}

	op := func() error {
		sendErr := s.backend.SendTransaction(ctx, signed)
		switch classifyBroadcastError(sendErr) {
		case broadcastOK, broadcastKnown:
			return nil
		case broadcastTransient:
			lggr.Warnf("broadcast of %s (nonce %d) failed, retrying: %v", p.Method, p.Nonce, sendErr)
			return sendErr
		case broadcastUnderpriced:
			return backoff.Permanent(fmt.Errorf("%w: %w", errUnderpriced, sendErr))
		case broadcastNonceTooLow:
			return backoff.Permanent(fmt.Errorf("%w: %w", errNonceTooLow, sendErr))
		default:
			return backoff.Permanent(sdkerrors.NewBroadcastError(p.Method, sendErr))
		}
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.cfg.BroadcastBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, s.cfg.MaxBroadcastRetries), ctx)
	if err = backoff.Retry(op, policy); err != nil {
		var broadcastErr *sdkerrors.BroadcastError
		if errors.As(err, &broadcastErr) || errors.Is(err, errUnderpriced) || errors.Is(err, errNonceTooLow) {
			return err
		}

		return sdkerrors.NewBroadcastError(p.Method, err)
	}

	p.Attempts = append(p.Attempts, types.Attempt{
		Hash:     signed.Hash(),
		GasPrice: new(big.Int).Set(p.GasPrice),
		SentAt:   s.now(),
	})
	metrics.TxAttempts.WithLabelValues(s.chain, p.Method).Inc()
	lggr.Infof("sent %s to %s as %s: nonce=%d gasPrice=%s gas=%d hash=%s attempt=%d",
		p.Method, p.To.Hex(), p.Role, p.Nonce, p.GasPrice, p.GasLimit, signed.Hash().Hex(), len(p.Attempts))

	return nil
}

// waitForReceipt polls every attempt of p until one confirms or MaxTxTime elapses.
func (s *Submitter) waitForReceipt(ctx context.Context, p *types.PendingCall) (*gethtypes.Receipt, error) {
	deadline := time.NewTimer(s.cfg.MaxTxTime)
	defer deadline.Stop()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if receipt := s.lookupReceipt(ctx, p); receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			if receipt := s.lookupReceipt(ctx, p); receipt != nil {
				return receipt, nil
			}

			return nil, errPendingDeadline
		case <-ticker.C:
		}
	}
}

// lookupReceipt returns the receipt of whichever attempt of p was mined, newest first.
// Only one attempt per nonce can be mined.
func (s *Submitter) lookupReceipt(ctx context.Context, p *types.PendingCall) *gethtypes.Receipt {
	for i := len(p.Attempts) - 1; i >= 0; i-- {
		hash := p.Attempts[i].Hash
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		if err != nil {
			if !errors.Is(err, ethereum.NotFound) {
				sdk.LoggerFrom(ctx).Debugf("receipt lookup of %s failed: %v", hash.Hex(), err)
			}

			continue
		}
		if receipt != nil {
			return receipt
		}
	}

	return nil
}

// resolveMinedNonce is reached once the ledger mined p's nonce. It returns the receipt of the
// attempt that was mined, or ErrNonceConsumed when none of them was.
func (s *Submitter) resolveMinedNonce(ctx context.Context, p *types.PendingCall) (*gethtypes.Receipt, error) {
	for round := 0; round < receiptResolveRounds; round++ {
		if receipt := s.lookupReceipt(ctx, p); receipt != nil {
			return s.confirmed(ctx, p, receipt), nil
		}
		if round == receiptResolveRounds-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}
	metrics.TxOutcomes.WithLabelValues(s.chain, p.Method, "nonce_consumed").Inc()

	return nil, fmt.Errorf("%w: %s nonce %d", sdkerrors.ErrNonceConsumed, p.From.Hex(), p.Nonce)
}

func (s *Submitter) confirmed(ctx context.Context, p *types.PendingCall, receipt *gethtypes.Receipt) *gethtypes.Receipt {
	outcome := "success"
	if !IsSuccess(receipt) {
		outcome = "reverted"
	}
	metrics.TxOutcomes.WithLabelValues(s.chain, p.Method, outcome).Inc()
	metrics.TxConfirmLatency.WithLabelValues(s.chain).Observe(s.now().Sub(p.SubmittedAt).Seconds())

	sdk.LoggerFrom(ctx).Infof("%s on %s %s in block %v: hash=%s nonce=%d replacements=%d",
		p.Method, p.To.Hex(), outcome, receipt.BlockNumber, receipt.TxHash.Hex(), p.Nonce, p.Replacements)

	return receipt
}

func (s *Submitter) lock(addr common.Address) func() {
	v, _ := s.locks.LoadOrStore(addr, &sync.Mutex{})
	mu := v.(*sync.Mutex) //nolint:forcetypeassert
	mu.Lock()

	return mu.Unlock
}

// BumpGasPrice returns price × multiplier rounded half up, and always at least price+1.
func BumpGasPrice(price *big.Int, multiplier float64) *big.Int {
	m, ok := new(big.Rat).SetString(strconv.FormatFloat(multiplier, 'f', -1, 64))
	if !ok {
		m = new(big.Rat).SetFloat64(multiplier)
	}
	r := new(big.Rat).Mul(new(big.Rat).SetInt(price), m)

	// floor((2n + d) / 2d)
	num := new(big.Int).Mul(r.Num(), big.NewInt(2))
	num.Add(num, r.Denom())
	den := new(big.Int).Mul(r.Denom(), big.NewInt(2))
	bumped := num.Quo(num, den)

	if bumped.Cmp(price) <= 0 {
		return new(big.Int).Add(price, big.NewInt(1))
	}

	return bumped
}

type broadcastClass int

const (
	broadcastOK broadcastClass = iota
	broadcastKnown
	broadcastTransient
	broadcastUnderpriced
	broadcastNonceTooLow
	broadcastFatal
)

var transientBroadcastMarkers = []string{
	"timeout",
	"connection refused",
	"connection reset",
	"eof",
	"too many requests",
	"429",
	"502",
	"503",
	"temporarily unavailable",
}

func classifyBroadcastError(err error) broadcastClass {
	if err == nil {
		return broadcastOK
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already known"), strings.Contains(msg, "known transaction"):
		return broadcastKnown
	case strings.Contains(msg, "replacement transaction underpriced"):
		return broadcastUnderpriced
	case strings.Contains(msg, "nonce too low"), strings.Contains(msg, "nonce has already been used"):
		return broadcastNonceTooLow
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return broadcastTransient
	}
	for _, marker := range transientBroadcastMarkers {
		if strings.Contains(msg, marker) {
			return broadcastTransient
		}
	}

	return broadcastFatal
}
