package types

import (
	"fmt"
	"math/big"
	"time"
)

// FeeTier is a named urgency level mapping to a suggested gas price.
type FeeTier string

const (
	FeeTierSlow   FeeTier = "slow"
	FeeTierNormal FeeTier = "normal"
	FeeTierFast   FeeTier = "fast"
)

// FeeTiers lists every tier, slowest first.
var FeeTiers = []FeeTier{FeeTierSlow, FeeTierNormal, FeeTierFast}

// ParseFeeTier validates a tier name. The empty string maps to FeeTierNormal.
func ParseFeeTier(s string) (FeeTier, error) {
	switch FeeTier(s) {
	case "":
		return FeeTierNormal, nil
	case FeeTierSlow, FeeTierNormal, FeeTierFast:
		return FeeTier(s), nil
	default:
		return "", fmt.Errorf("invalid fee tier: %q", s)
	}
}

// FeeQuote is a single price reported by one fee-estimation source.
type FeeQuote struct {
	Source    string
	Tier      FeeTier
	Price     *big.Int
	FetchedAt time.Time
}
