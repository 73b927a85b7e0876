package gasprice

// chainKeys maps EVM chain ids to the chain key both fee services route on.
var chainKeys = map[uint64]string{
	1:     "eth",
	10:    "op",
	56:    "bsc",
	137:   "poly",
	250:   "ftm",
	1284:  "glmr",
	1285:  "movr",
	42161: "arb",
	43114: "avax",
}

// ChainKey returns the fee-service routing key of a chain, or false when no external
// service covers it.
func ChainKey(chainID uint64) (string, bool) {
	key, ok := chainKeys[chainID]
	return key, ok
}
