package gasprice

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"

	"github.com/sc1-labs/vaultops/types"
)

const DebankBaseURL = "https://api.debank.com"

type debankTier struct {
	Price json.Number `json:"price"`
}

type debankResponse struct {
	Data      map[string]debankTier `json:"data"`
	ErrorCode json.Number           `json:"error_code"`
}

// Debank reads gas_price_dict_v2, which reports prices in wei.
type Debank struct {
	httpSource
}

var _ Source = (*Debank)(nil)

func NewDebank(opts ...SourceOption) *Debank {
	return &Debank{httpSource: newHTTPSource(DebankBaseURL, opts...)}
}

func (d *Debank) Name() string { return "debank" }

func (d *Debank) Fetch(ctx context.Context, chainKey string) (map[types.FeeTier]*big.Int, error) {
	endpoint := fmt.Sprintf("%s/chain/gas_price_dict_v2?chain=%s", d.baseURL, url.QueryEscape(chainKey))

	var resp debankResponse
	if err := d.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if code := resp.ErrorCode.String(); code != "" && code != "0" {
		return nil, fmt.Errorf("debank error code %s", code)
	}

	prices := make(map[types.FeeTier]*big.Int, len(types.FeeTiers))
	for _, tier := range types.FeeTiers {
		entry, ok := resp.Data[string(tier)]
		if !ok || entry.Price == "" {
			continue
		}
		price, err := parseUnits(entry.Price, 0)
		if err != nil {
			return nil, fmt.Errorf("debank %s price: %w", tier, err)
		}
		prices[tier] = price
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("debank returned no prices for %s", chainKey)
	}

	return prices, nil
}
