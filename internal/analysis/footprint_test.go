package analysis

import (
	"testing"

	"liquidity-matrix-bot/internal/market"
)

// candlesWithVolumes builds green candles carrying the given volumes.
func candlesWithVolumes(volumes ...float64) []market.Candle {
	candles := make([]market.Candle, len(volumes))
	for i, v := range volumes {
		candles[i] = market.Candle{Open: 100, High: 102, Low: 99, Close: 101, Volume: v}
	}
	return candles
}

// TestDetectFootprint tests that a newest volume above 1.5x the preceding
// mean raises the footprint flag.
func TestDetectFootprint(t *testing.T) {
	detector := NewFootprintDetector(7, 1.5)

	// Preceding mean 100, newest 160 > 150
	signal := detector.Detect(candlesWithVolumes(100, 100, 100, 100, 100, 100, 160))

	if !signal.Footprint {
		t.Fatal("Expected a footprint for a 1.6x volume spike")
	}
	if signal.MeanVolume != 100 {
		t.Errorf("Expected mean volume 100, got %f", signal.MeanVolume)
	}
	if signal.Volume != 160 {
		t.Errorf("Expected newest volume 160, got %f", signal.Volume)
	}
	if !signal.DirectionAgreement {
		t.Error("Expected direction agreement between two green candles")
	}
}

// TestNoFootprintBelowRatio tests that a spike at or under the ratio does
// not qualify.
func TestNoFootprintBelowRatio(t *testing.T) {
	detector := NewFootprintDetector(7, 1.5)

	// Newest 150 is exactly mean*ratio, which is not a spike
	signal := detector.Detect(candlesWithVolumes(100, 100, 100, 100, 100, 100, 150))

	if signal.Footprint {
		t.Error("Expected no footprint at exactly the spike ratio")
	}
}

// TestFootprintInsufficientCandles tests that fewer than six candles yield
// no signal.
func TestFootprintInsufficientCandles(t *testing.T) {
	detector := NewFootprintDetector(7, 1.5)

	signal := detector.Detect(candlesWithVolumes(100, 100, 100, 100, 500))

	if signal.Footprint {
		t.Error("Expected no footprint for an undersized window")
	}
	if signal.Volume != 0 {
		t.Errorf("Expected a zero signal, got volume %f", signal.Volume)
	}
}

// TestFootprintWithoutVolumeData tests that a window of zero volumes yields
// no signal.
func TestFootprintWithoutVolumeData(t *testing.T) {
	detector := NewFootprintDetector(7, 1.5)

	signal := detector.Detect(candlesWithVolumes(0, 0, 0, 0, 0, 0, 0))

	if signal.Footprint {
		t.Error("Expected no footprint without volume data")
	}
}

// TestFootprintDirectionDisagreement tests that opposing candle colours
// clear the agreement flag without blocking the footprint.
func TestFootprintDirectionDisagreement(t *testing.T) {
	detector := NewFootprintDetector(7, 1.5)

	candles := candlesWithVolumes(100, 100, 100, 100, 100, 100, 200)
	// Turn the previous candle red
	candles[5].Open = 101
	candles[5].Close = 100

	signal := detector.Detect(candles)

	if !signal.Footprint {
		t.Fatal("Expected the footprint despite direction disagreement")
	}
	if signal.DirectionAgreement {
		t.Error("Expected no direction agreement between a red and a green candle")
	}
}
