// Package providers defines the external data-provider contracts the core
// depends on. Per SPEC_FULL.md / spec.md §1, concrete HTTP clients to price,
// security, holder, and swap-aggregator APIs are out of scope; the core
// consumes only these typed interfaces and tolerates provider-specific
// failures (spec §7).
package providers

import (
	"context"

	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
)

// MintRPC parses a token's mint account from the chain.
type MintRPC interface {
	GetMintInfo(ctx context.Context, rpcURL, mint string) (domain.MintInfo, error)
}

// Quote is the result of a swap-quote simulation.
type Quote struct {
	Error          error
	InputAmount    decimal.Decimal
	OutputAmount   decimal.Decimal
	PriceImpactPct float64
}

// SwapQuote simulates a swap without executing it, used for the PRE_SCAN
// sell simulation.
type SwapQuote interface {
	Quote(ctx context.Context, input, output string, amount decimal.Decimal, slippageBps int) (Quote, error)
}

// SwapResult is the structured outcome of an on-chain swap attempt.
type SwapResult struct {
	Error          error
	TxHash         string
	Input          decimal.Decimal
	Output         decimal.Decimal
	FeeSOL         decimal.Decimal
	PriceImpactPct float64
	Success        bool
	Retryable      bool
}

// SwapExecutor buys and sells tokens on-chain. The core depends only on
// this contract; mint parsing, instruction building, and signing happen
// behind it.
type SwapExecutor interface {
	BuyToken(ctx context.Context, mint string, solLamports uint64, slippageBps int) (SwapResult, error)
	SellToken(ctx context.Context, mint string, rawAmount uint64, slippageBps int) (SwapResult, error)
}

// TokenInfoRecord is the general-purpose token metadata/market fetch.
type TokenInfoRecord struct {
	Name        *string
	Symbol      *string
	Price       decimal.Decimal
	MarketCap   decimal.Decimal
	Liquidity   decimal.Decimal
	Volume5m    decimal.Decimal
	Volume1h    decimal.Decimal
	Volume24h   decimal.Decimal
	Buys5m      int
	Sells5m     int
	Buys1h      int
	Sells1h     int
	Buys24h     int
	Sells24h    int
	HolderCount int
	APIError    bool
}

type TokenInfoProvider interface {
	GetTokenInfo(ctx context.Context, mint string) (TokenInfoRecord, error)
}

type SecurityProvider interface {
	GetSecurity(ctx context.Context, mint string) (domain.TokenSecurity, error)
}

type HoldersProvider interface {
	GetTopHolders(ctx context.Context, mint string, limit int) ([]domain.TopHolderRow, int, error) // rows, smartWalletCount
}

type AltDexPriceProvider interface {
	GetAltDexPrice(ctx context.Context, mint string) (decimal.Decimal, error)
}

type AggregatorProvider interface {
	GetAggregatorPrice(ctx context.Context, mint string) (decimal.Decimal, error)
	IsHoneypot(ctx context.Context, mint string) (bool, error)
}

type Candle struct {
	Open, High, Low, Close, Volume float64
	Timestamp                      int64
}

type CandlesProvider interface {
	GetCandles(ctx context.Context, mint string, interval string, limit int) ([]Candle, error)
}

// WalletBalance queries a wallet's SOL and SPL token balances.
type WalletBalance interface {
	GetSOLBalance(ctx context.Context, wallet string) (decimal.Decimal, error)
	GetTokenBalance(ctx context.Context, wallet, mint string) (rawAmount uint64, decimals uint8, err error)
}
