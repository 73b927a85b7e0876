package gasprice

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sc1-labs/vaultops/internal/metrics"
	"github.com/sc1-labs/vaultops/sdk"
	sdkerrors "github.com/sc1-labs/vaultops/sdk/errors"
	"github.com/sc1-labs/vaultops/types"
)

// DefaultSourceTimeout bounds every fee-service request.
const DefaultSourceTimeout = 1600 * time.Millisecond

// NativeSuggester is the ledger's own gas price suggestion.
type NativeSuggester interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

var _ sdk.FeeOracle = (*Oracle)(nil)

// Oracle reduces independent fee-estimation services to one price per tier.
type Oracle struct {
	sources   []Source
	native    NativeSuggester
	timeout   time.Duration
	chainKeys map[uint64]string
	now       func() time.Time
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithSourceTimeout overrides DefaultSourceTimeout.
func WithSourceTimeout(d time.Duration) Option {
	return func(o *Oracle) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithChainKey routes chainID to key, overriding the built-in table.
func WithChainKey(chainID uint64, key string) Option {
	return func(o *Oracle) {
		o.chainKeys[chainID] = key
	}
}

// NewOracle creates an Oracle querying sources and falling back to native.
func NewOracle(native NativeSuggester, sources []Source, opts ...Option) *Oracle {
	o := &Oracle{
		sources:   sources,
		native:    native,
		timeout:   DefaultSourceTimeout,
		chainKeys: make(map[uint64]string),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// ChainKey returns the routing key the sources are queried with for chainID. Keys set with
// WithChainKey take precedence over the built-in table.
func (o *Oracle) ChainKey(chainID uint64) (string, bool) {
	if key, ok := o.chainKeys[chainID]; ok {
		return key, true
	}

	return ChainKey(chainID)
}

// GetFeePrice returns the highest price any source reports for tier. When every source is
// absent it returns the ledger's suggestion; when that fails too the error is returned.
func (o *Oracle) GetFeePrice(ctx context.Context, chainID uint64, tier types.FeeTier) (*big.Int, error) {
	lggr := sdk.LoggerFrom(ctx)

	var best *big.Int
	for _, q := range o.Quotes(ctx, chainID) {
		if q.Tier != tier {
			continue
		}
		if best == nil || q.Price.Cmp(best) > 0 {
			best = q.Price
		}
	}
	if best != nil {
		return new(big.Int).Set(best), nil
	}

	metrics.FeeNativeFallbacks.WithLabelValues(strconv.FormatUint(chainID, 10)).Inc()
	price, err := o.native.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: native suggestion: %w", sdkerrors.ErrNoFeePrice, err)
	}
	if price == nil || price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: native suggestion was %v", sdkerrors.ErrNoFeePrice, price)
	}
	lggr.Debugf("no fee source answered for chain %d tier %s, using native price %s", chainID, tier, price)

	return price, nil
}

// Quotes queries every source concurrently and returns the quotes of those that answered in
// time. Failed sources are logged and left out.
func (o *Oracle) Quotes(ctx context.Context, chainID uint64) []types.FeeQuote {
	key, ok := o.ChainKey(chainID)
	if !ok || len(o.sources) == 0 {
		return nil
	}
	lggr := sdk.LoggerFrom(ctx)

	results := make([][]types.FeeQuote, len(o.sources))

	var g errgroup.Group
	for i, src := range o.sources {
		i := i
		src := src
		g.Go(func() error {
			quotes, err := o.fetch(ctx, src, key)
			if err != nil {
				lggr.Warnf("fee source %s unavailable for %s: %v", src.Name(), key, err)
				return nil
			}
			results[i] = quotes

			return nil
		})
	}
	_ = g.Wait() // goroutines never fail

	var quotes []types.FeeQuote
	for _, r := range results {
		quotes = append(quotes, r...)
	}

	return quotes
}

func (o *Oracle) fetch(ctx context.Context, src Source, key string) ([]types.FeeQuote, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type result struct {
		prices map[types.FeeTier]*big.Int
		err    error
	}
	// buffered so a source that ignores ctx does not leak a blocked goroutine
	done := make(chan result, 1)

	start := time.Now()
	go func() {
		prices, err := src.Fetch(ctx, key)
		done <- result{prices: prices, err: err}
	}()

	var prices map[types.FeeTier]*big.Int
	var err error
	select {
	case r := <-done:
		prices, err = r.prices, r.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	metrics.FeeSourceLatency.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())
	if err == nil && len(prices) == 0 {
		err = errors.New("empty response")
	}
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.FeeSourceRequests.WithLabelValues(src.Name(), outcome).Inc()

		return nil, err
	}
	metrics.FeeSourceRequests.WithLabelValues(src.Name(), "ok").Inc()

	fetchedAt := o.now()
	quotes := make([]types.FeeQuote, 0, len(prices))
	for _, tier := range types.FeeTiers {
		price, ok := prices[tier]
		if !ok || price == nil || price.Sign() <= 0 {
			continue
		}
		quotes = append(quotes, types.FeeQuote{
			Source:    src.Name(),
			Tier:      tier,
			Price:     price,
			FetchedAt: fetchedAt,
		})
	}

	return quotes, nil
}
