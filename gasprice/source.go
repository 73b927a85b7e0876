package gasprice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/sc1-labs/vaultops/types"
)

// Source is an external fee-estimation service.
type Source interface {
	Name() string
	// Fetch returns one price in wei per tier the service reports for the chain key.
	Fetch(ctx context.Context, chainKey string) (map[types.FeeTier]*big.Int, error)
}

// SourceOption configures an HTTP backed Source.
type SourceOption func(*httpSource)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(c *http.Client) SourceOption {
	return func(s *httpSource) {
		s.client = c
	}
}

// WithBaseURL points the source at another host, used for tests and self-hosted mirrors.
func WithBaseURL(url string) SourceOption {
	return func(s *httpSource) {
		s.baseURL = url
	}
}

// WithRateLimit caps the request rate sent to the service.
func WithRateLimit(rps float64, burst int) SourceOption {
	return func(s *httpSource) {
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpSource struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

func newHTTPSource(defaultBaseURL string, opts ...SourceOption) httpSource {
	s := httpSource{
		client:  http.DefaultClient,
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// getJSON issues a GET and decodes a 200 response into out, keeping numbers as json.Number.
func (s httpSource) getJSON(ctx context.Context, url string, out any) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// parseUnits converts a decimal string scaled by 10^decimals into an integer, truncating any
// precision beyond the unit. parseUnits("67.930108231", 9) is 67930108231.
func parseUnits(n json.Number, decimals int) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(n.String())
	if !ok {
		return nil, fmt.Errorf("invalid number %q", n)
	}
	if r.Sign() <= 0 {
		return nil, fmt.Errorf("non-positive price %q", n)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))

	v := new(big.Int).Quo(r.Num(), r.Denom())
	if v.Sign() == 0 {
		return nil, fmt.Errorf("price %q rounds to zero", n)
	}

	return v, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}

	return string(b)
}
