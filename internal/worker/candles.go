package worker

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"solsentinel/internal/providers"
)

// computeVolatility derives a percentage volatility figure from a candle
// series: the standard deviation of consecutive-close percentage returns,
// grounded on the teacher's talib.Rsi usage over a dynamic full-series
// period (trader-go/pkg/formulas/rsi.go). Returns 0 when fewer than two
// candles are available.
func computeVolatility(candles []providers.Candle) float64 {
	if len(candles) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev <= 0 {
			continue
		}
		returns = append(returns, (candles[i].Close-prev)/prev*100)
	}
	if len(returns) == 0 {
		return 0
	}

	period := len(returns)
	stddev := talib.StdDev(returns, period, 1)
	last := stddev[len(stddev)-1]
	if math.IsNaN(last) {
		return 0
	}
	return last
}
