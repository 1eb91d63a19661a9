package analysis

import (
	"math"

	"liquidity-matrix-bot/internal/market"
)

// ClusterSide indicates which side of price a stop cluster sits on.
type ClusterSide string

const (
	ClusterBuy  ClusterSide = "BUY"  // lows concentrate, protective stops likely below
	ClusterSell ClusterSide = "SELL" // highs concentrate, protective stops likely above
	ClusterNone ClusterSide = "NONE"
)

// RetailCluster describes a price band where recent highs or lows
// concentrate, used as a proxy for resting retail stop orders.
type RetailCluster struct {
	Side  ClusterSide
	Price float64
	Count int
	Band  float64
}

// ClusterDetector finds stop-cluster bands in recent 5-minute candles.
type ClusterDetector struct {
	band            float64 // full width of the price band
	lookbackMinutes int
}

// NewClusterDetector creates a cluster detector. Non-positive parameters
// fall back to defaults (band 0.15, lookback 200 minutes).
func NewClusterDetector(band float64, lookbackMinutes int) *ClusterDetector {
	if band <= 0 {
		band = 0.15
	}
	if lookbackMinutes <= 0 {
		lookbackMinutes = 200
	}
	return &ClusterDetector{
		band:            band,
		lookbackMinutes: lookbackMinutes,
	}
}

// Detect runs a density scan over the highs and lows of the most recent
// lookback window. A side qualifies when its densest band holds at least
// max(3, 8% of the sample) values; highs take priority when both qualify.
// The scan is O(n²) over a few dozen candles, which is fine at this size.
func (cd *ClusterDetector) Detect(candles []market.Candle) RetailCluster {
	window := market.Window(candles, cd.lookbackMinutes/5)
	if len(window) == 0 {
		return RetailCluster{Side: ClusterNone, Band: cd.band}
	}

	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, c := range window {
		highs[i] = c.High
		lows[i] = c.Low
	}

	minCount := math.Max(3, 0.08*float64(len(window)))

	highPrice, highCount := cd.densestBand(highs)
	if float64(highCount) >= minCount {
		return RetailCluster{Side: ClusterSell, Price: highPrice, Count: highCount, Band: cd.band}
	}

	lowPrice, lowCount := cd.densestBand(lows)
	if float64(lowCount) >= minCount {
		return RetailCluster{Side: ClusterBuy, Price: lowPrice, Count: lowCount, Band: cd.band}
	}

	return RetailCluster{Side: ClusterNone, Band: cd.band}
}

// densestBand returns the value whose surrounding band holds the most
// members of the set, with the tie going to the earliest value scanned.
func (cd *ClusterDetector) densestBand(values []float64) (float64, int) {
	half := cd.band / 2

	bestPrice := 0.0
	bestCount := 0
	for _, v := range values {
		count := 0
		for _, other := range values {
			if math.Abs(other-v) <= half {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestPrice = v
		}
	}

	return bestPrice, bestCount
}
