package domain

// RuntimeSettings is the single-row operator-tunable override table. A zero
// value field means "no override, use the environment default" except
// where a field is documented otherwise.
type RuntimeSettings struct {
	SolPerTrade           *float64
	MaxPaperPositions     *int
	MaxMicroPositions     *int
	MicroSnipeSOL         *float64
	PruneThresholdMin5    *int
	PruneThresholdMin15   *int
	RealTradingEnabled    *bool
	CopyTradingEnabled    *bool
	MirrorSellEnabled     *bool
}

// TrackedWallet is a wallet mirrored by the copy trader.
type TrackedWallet struct {
	Address    string
	Label      string
	Multiplier float64
	MaxSOL     float64
	Enabled    bool
}
