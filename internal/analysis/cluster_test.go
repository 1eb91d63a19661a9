package analysis

import (
	"testing"

	"liquidity-matrix-bot/internal/market"
)

// candlesFromHighsLows builds one candle per high/low pair with a thin body
// between them.
func candlesFromHighsLows(highs, lows []float64) []market.Candle {
	candles := make([]market.Candle, len(highs))
	for i := range highs {
		mid := (highs[i] + lows[i]) / 2
		candles[i] = market.Candle{Open: mid, High: highs[i], Low: lows[i], Close: mid}
	}
	return candles
}

// scatteredLevels returns n levels spaced wider than the band so no two
// fall in the same cluster.
func scatteredLevels(base float64, n int) []float64 {
	levels := make([]float64, n)
	for i := range levels {
		levels[i] = base + float64(i)*0.5
	}
	return levels
}

// TestDetectSellCluster tests that five highs inside a 0.15 band over a
// 40-candle window report a SELL cluster at the densest level.
func TestDetectSellCluster(t *testing.T) {
	detector := NewClusterDetector(0.15, 200)

	highs := scatteredLevels(1930, 40)
	// Five highs concentrated around 1950.0; the first is the band centre
	// that covers all of them
	highs[10] = 1950.0
	highs[14] = 1950.05
	highs[20] = 1949.95
	highs[27] = 1950.02
	highs[33] = 1949.98
	lows := scatteredLevels(1900, 40)

	cluster := detector.Detect(candlesFromHighsLows(highs, lows))

	if cluster.Side != ClusterSell {
		t.Fatalf("Expected SELL cluster, got %s", cluster.Side)
	}
	if cluster.Price != 1950.0 {
		t.Errorf("Expected cluster price 1950.0, got %f", cluster.Price)
	}
	if cluster.Count != 5 {
		t.Errorf("Expected cluster count 5, got %d", cluster.Count)
	}
}

// TestDetectBuyCluster tests that concentrated lows report a BUY cluster
// when the highs stay scattered.
func TestDetectBuyCluster(t *testing.T) {
	detector := NewClusterDetector(0.15, 200)

	highs := scatteredLevels(1960, 40)
	lows := scatteredLevels(1900, 40)
	lows[5] = 1925.0
	lows[12] = 1925.04
	lows[19] = 1924.96
	lows[26] = 1925.02

	cluster := detector.Detect(candlesFromHighsLows(highs, lows))

	if cluster.Side != ClusterBuy {
		t.Fatalf("Expected BUY cluster, got %s", cluster.Side)
	}
	if cluster.Price != 1925.0 {
		t.Errorf("Expected cluster price 1925.0, got %f", cluster.Price)
	}
}

// TestSellClusterTakesPriority tests that a qualifying high cluster wins
// even when the lows also concentrate.
func TestSellClusterTakesPriority(t *testing.T) {
	detector := NewClusterDetector(0.15, 200)

	highs := scatteredLevels(1960, 40)
	highs[3] = 1975.0
	highs[9] = 1975.03
	highs[15] = 1974.97
	highs[21] = 1975.01
	lows := scatteredLevels(1900, 40)
	lows[4] = 1925.0
	lows[10] = 1925.03
	lows[16] = 1924.97
	lows[22] = 1925.01

	cluster := detector.Detect(candlesFromHighsLows(highs, lows))

	if cluster.Side != ClusterSell {
		t.Errorf("Expected the SELL side to take priority, got %s", cluster.Side)
	}
}

// TestNoClusterWhenScattered tests that evenly spread extremes yield no
// cluster.
func TestNoClusterWhenScattered(t *testing.T) {
	detector := NewClusterDetector(0.15, 200)

	candles := candlesFromHighsLows(scatteredLevels(1960, 40), scatteredLevels(1900, 40))

	cluster := detector.Detect(candles)

	if cluster.Side != ClusterNone {
		t.Errorf("Expected no cluster for scattered extremes, got %s", cluster.Side)
	}
}

// TestClusterBelowThreshold tests that three concentrated highs in a
// 40-candle window miss the 8% threshold.
func TestClusterBelowThreshold(t *testing.T) {
	detector := NewClusterDetector(0.15, 200)

	highs := scatteredLevels(1960, 40)
	highs[10] = 1990.0
	highs[20] = 1990.05
	highs[30] = 1989.95
	lows := scatteredLevels(1900, 40)

	cluster := detector.Detect(candlesFromHighsLows(highs, lows))

	if cluster.Side != ClusterNone {
		t.Errorf("Expected no cluster below the density threshold, got %s", cluster.Side)
	}
}

// TestClusterEmptySeries tests the empty input edge case.
func TestClusterEmptySeries(t *testing.T) {
	detector := NewClusterDetector(0.15, 200)

	cluster := detector.Detect(nil)

	if cluster.Side != ClusterNone {
		t.Errorf("Expected no cluster for an empty series, got %s", cluster.Side)
	}
}
