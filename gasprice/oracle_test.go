package gasprice

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/sc1-labs/vaultops/sdk/errors"
	"github.com/sc1-labs/vaultops/types"
)

const testChainID = 1285

type stubSource struct {
	name   string
	prices map[types.FeeTier]*big.Int
	err    error
	delay  time.Duration
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Fetch(ctx context.Context, _ string) (map[types.FeeTier]*big.Int, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return s.prices, s.err
}

type stubNative struct {
	price *big.Int
	err   error
}

func (n stubNative) SuggestGasPrice(context.Context) (*big.Int, error) {
	return n.price, n.err
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func TestOracle_GetFeePrice(t *testing.T) {
	t.Parallel()

	native := stubNative{price: gwei(5)}

	tests := []struct {
		name    string
		sources []Source
		native  stubNative
		tier    types.FeeTier
		want    *big.Int
		wantErr error
	}{
		{
			name: "maximum of all present values",
			sources: []Source{
				stubSource{name: "a", prices: map[types.FeeTier]*big.Int{types.FeeTierFast: gwei(64), types.FeeTierNormal: gwei(70)}},
				stubSource{name: "b", prices: map[types.FeeTier]*big.Int{types.FeeTierFast: gwei(68), types.FeeTierNormal: gwei(63)}},
			},
			native: native,
			tier:   types.FeeTierFast,
			want:   gwei(68),
		},
		{
			name: "tier picked independently",
			sources: []Source{
				stubSource{name: "a", prices: map[types.FeeTier]*big.Int{types.FeeTierFast: gwei(64), types.FeeTierNormal: gwei(70)}},
				stubSource{name: "b", prices: map[types.FeeTier]*big.Int{types.FeeTierFast: gwei(68), types.FeeTierNormal: gwei(63)}},
			},
			native: native,
			tier:   types.FeeTierNormal,
			want:   gwei(70),
		},
		{
			name: "failing source is absent",
			sources: []Source{
				stubSource{name: "a", err: errors.New("http status 404")},
				stubSource{name: "b", prices: map[types.FeeTier]*big.Int{types.FeeTierSlow: gwei(2)}},
			},
			native: native,
			tier:   types.FeeTierSlow,
			want:   gwei(2),
		},
		{
			name: "source missing the tier is absent for that tier",
			sources: []Source{
				stubSource{name: "a", prices: map[types.FeeTier]*big.Int{types.FeeTierSlow: gwei(2)}},
			},
			native: native,
			tier:   types.FeeTierFast,
			want:   gwei(5),
		},
		{
			name: "all sources fail falls back to native",
			sources: []Source{
				stubSource{name: "a", err: errors.New("boom")},
				stubSource{name: "b", err: errors.New("unauthorized")},
			},
			native: native,
			tier:   types.FeeTierFast,
			want:   gwei(5),
		},
		{
			name: "native failure is a hard error",
			sources: []Source{
				stubSource{name: "a", err: errors.New("boom")},
			},
			native:  stubNative{err: errors.New("rpc down")},
			tier:    types.FeeTierNormal,
			wantErr: sdkerrors.ErrNoFeePrice,
		},
		{
			name:    "zero native price is a hard error",
			native:  stubNative{price: big.NewInt(0)},
			tier:    types.FeeTierNormal,
			wantErr: sdkerrors.ErrNoFeePrice,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := NewOracle(tt.native, tt.sources)
			got, err := o.GetFeePrice(testContext(t), testChainID, tt.tier)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOracle_GetFeePrice_UnroutedChainUsesNative(t *testing.T) {
	t.Parallel()

	src := stubSource{name: "a", prices: map[types.FeeTier]*big.Int{types.FeeTierFast: gwei(100)}}
	o := NewOracle(stubNative{price: gwei(1)}, []Source{src})

	got, err := o.GetFeePrice(testContext(t), 1337, types.FeeTierFast)
	require.NoError(t, err)
	assert.Equal(t, gwei(1), got)

	o = NewOracle(stubNative{price: gwei(1)}, []Source{src}, WithChainKey(1337, "movr"))
	got, err = o.GetFeePrice(testContext(t), 1337, types.FeeTierFast)
	require.NoError(t, err)
	assert.Equal(t, gwei(100), got)
}

func TestOracle_ChainKey(t *testing.T) {
	t.Parallel()

	o := NewOracle(stubNative{price: gwei(1)}, nil, WithChainKey(1337, "movr"), WithChainKey(250, "fantom"))

	tests := []struct {
		name    string
		chainID uint64
		want    string
		wantOK  bool
	}{
		{name: "built-in", chainID: 43114, want: "avax", wantOK: true},
		{name: "added", chainID: 1337, want: "movr", wantOK: true},
		{name: "overridden", chainID: 250, want: "fantom", wantOK: true},
		{name: "unrouted", chainID: 31337, wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := o.ChainKey(tt.chainID)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOracle_SlowSourceIsBoundedByTimeout(t *testing.T) {
	t.Parallel()

	o := NewOracle(stubNative{price: gwei(1)}, []Source{
		stubSource{name: "slow", delay: 5 * time.Second, prices: map[types.FeeTier]*big.Int{types.FeeTierFast: gwei(99)}},
		stubSource{name: "quick", prices: map[types.FeeTier]*big.Int{types.FeeTierFast: gwei(3)}},
	}, WithSourceTimeout(50*time.Millisecond))

	start := time.Now()
	got, err := o.GetFeePrice(testContext(t), testChainID, types.FeeTierFast)
	require.NoError(t, err)

	assert.Equal(t, gwei(3), got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestOracle_ReturnedPriceIsACopy(t *testing.T) {
	t.Parallel()

	shared := gwei(10)
	o := NewOracle(stubNative{}, []Source{
		stubSource{name: "a", prices: map[types.FeeTier]*big.Int{types.FeeTierNormal: shared}},
	})

	got, err := o.GetFeePrice(testContext(t), testChainID, types.FeeTierNormal)
	require.NoError(t, err)
	got.Add(got, big.NewInt(1))

	assert.Equal(t, gwei(10), shared)
}

// The three scenarios of the live services, replayed against local servers.
func TestOracle_HTTPSources(t *testing.T) {
	t.Parallel()

	slow404 := func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(300 * time.Millisecond):
			w.WriteHeader(http.StatusNotFound)
		case <-r.Context().Done():
		}
	}
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}
	}

	tests := []struct {
		name     string
		debank   http.HandlerFunc
		owlracle http.HandlerFunc
		tier     types.FeeTier
		want     *big.Int
	}{
		{
			name:     "both apis fail",
			debank:   slow404,
			owlracle: serve(owlracleAPIError),
			tier:     types.FeeTierFast,
			want:     gwei(7),
		},
		{
			name:     "one api fails",
			debank:   serve(debankMock),
			owlracle: slow404,
			tier:     types.FeeTierFast,
			want:     big.NewInt(64_000_000_000),
		},
		{
			name:     "highest fast price",
			debank:   serve(debankMock),
			owlracle: serve(owlracleMock),
			tier:     types.FeeTierFast,
			want:     big.NewInt(67_930_108_231),
		},
		{
			name:     "highest normal price",
			debank:   serve(debankMock),
			owlracle: serve(owlracleMock),
			tier:     types.FeeTierNormal,
			want:     big.NewInt(63_384_299_915),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			debankSrv := httptest.NewServer(tt.debank)
			t.Cleanup(debankSrv.Close)
			owlSrv := httptest.NewServer(tt.owlracle)
			t.Cleanup(owlSrv.Close)

			o := NewOracle(stubNative{price: gwei(7)}, []Source{
				NewDebank(WithBaseURL(debankSrv.URL)),
				NewOwlracle("key", WithBaseURL(owlSrv.URL)),
			}, WithSourceTimeout(1600*time.Millisecond))

			got, err := o.GetFeePrice(testContext(t), testChainID, tt.tier)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Positive(t, got.Sign())
		})
	}
}

func TestOracle_Quotes(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2022, 3, 31, 0, 34, 45, 0, time.UTC)
	o := NewOracle(stubNative{}, []Source{
		stubSource{name: "a", prices: map[types.FeeTier]*big.Int{types.FeeTierSlow: gwei(1), types.FeeTierFast: gwei(3)}},
		stubSource{name: "b", err: errors.New("down")},
	})
	o.now = func() time.Time { return fixed }

	quotes := o.Quotes(testContext(t), testChainID)
	assert.Equal(t, []types.FeeQuote{
		{Source: "a", Tier: types.FeeTierSlow, Price: gwei(1), FetchedAt: fixed},
		{Source: "a", Tier: types.FeeTierFast, Price: gwei(3), FetchedAt: fixed},
	}, quotes)
}
