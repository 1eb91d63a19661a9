package analysis

import (
	"liquidity-matrix-bot/internal/market"
)

// LiquidityZone summarizes the liquidity extremes of a candle window.
type LiquidityZone struct {
	RecentLow  float64
	RecentHigh float64
	LastClose  float64
}

// ComputeLiquidityZone reduces a window to its recent low, recent high and
// last close. Returns nil for an empty window.
func ComputeLiquidityZone(candles []market.Candle) *LiquidityZone {
	if len(candles) == 0 {
		return nil
	}

	zone := &LiquidityZone{
		RecentLow:  candles[0].Low,
		RecentHigh: candles[0].High,
		LastClose:  candles[len(candles)-1].Close,
	}

	for _, c := range candles[1:] {
		if c.Low < zone.RecentLow {
			zone.RecentLow = c.Low
		}
		if c.High > zone.RecentHigh {
			zone.RecentHigh = c.High
		}
	}

	return zone
}
