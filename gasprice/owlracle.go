package gasprice

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"

	"github.com/sc1-labs/vaultops/types"
)

const OwlracleBaseURL = "https://owlracle.info"

// gweiDecimals converts owlracle's gwei prices to wei.
const gweiDecimals = 9

type owlracleSpeed struct {
	Acceptance json.Number `json:"acceptance"`
	GasPrice   json.Number `json:"gasPrice"`
}

type owlracleResponse struct {
	Speeds []owlracleSpeed `json:"speeds"`

	// Error payload, e.g. {"status":401,"error":"Unauthorized","message":"Could not find your api key."}
	Status  json.Number `json:"status"`
	Error   string      `json:"error"`
	Message string      `json:"message"`
}

// Owlracle reads the /gas endpoint. Speeds are ordered by acceptance: the first is the
// slow tier, the second the normal tier and the last the fast tier.
type Owlracle struct {
	httpSource
	apiKey string
}

var _ Source = (*Owlracle)(nil)

func NewOwlracle(apiKey string, opts ...SourceOption) *Owlracle {
	return &Owlracle{httpSource: newHTTPSource(OwlracleBaseURL, opts...), apiKey: apiKey}
}

func (o *Owlracle) Name() string { return "owlracle" }

func (o *Owlracle) Fetch(ctx context.Context, chainKey string) (map[types.FeeTier]*big.Int, error) {
	endpoint := fmt.Sprintf("%s/%s/gas?apikey=%s", o.baseURL, url.PathEscape(chainKey), url.QueryEscape(o.apiKey))

	var resp owlracleResponse
	if err := o.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("owlracle %s: %s: %s", resp.Status, resp.Error, resp.Message)
	}
	if len(resp.Speeds) < 2 {
		return nil, fmt.Errorf("owlracle returned %d speeds", len(resp.Speeds))
	}

	picks := map[types.FeeTier]owlracleSpeed{
		types.FeeTierSlow:   resp.Speeds[0],
		types.FeeTierNormal: resp.Speeds[1],
		types.FeeTierFast:   resp.Speeds[len(resp.Speeds)-1],
	}

	prices := make(map[types.FeeTier]*big.Int, len(picks))
	for tier, speed := range picks {
		price, err := parseUnits(speed.GasPrice, gweiDecimals)
		if err != nil {
			return nil, fmt.Errorf("owlracle %s price: %w", tier, err)
		}
		prices[tier] = price
	}

	return prices, nil
}
