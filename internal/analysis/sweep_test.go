package analysis

import (
	"testing"

	"liquidity-matrix-bot/internal/market"
)

// flatCandles builds a series of identical non-signalling candles.
func flatCandles(n int) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{Open: 1905, High: 1906, Low: 1904, Close: 1905.5}
	}
	return candles
}

// TestDetectBullishSweep tests a low piercing both neighbours with a long
// lower wick, confirmed by a green candle.
func TestDetectBullishSweep(t *testing.T) {
	detector := NewSweepDetector(12, 0.4)

	candles := flatCandles(14)
	// Sweep candle: low 1900 pierces the 1904 neighbours, lower wick is
	// 4 of a 5 range
	candles[11] = market.Candle{Open: 1904, High: 1905, Low: 1900, Close: 1904.5}
	// Green confirmation closing back inside the range
	candles[12] = market.Candle{Open: 1904, High: 1906.5, Low: 1903.5, Close: 1906}

	result := detector.Detect(candles)

	if !result.Signal {
		t.Fatal("Expected a sweep signal, got none")
	}
	if result.Direction != SweepBullish {
		t.Errorf("Expected bullish direction, got %s", result.Direction)
	}
	if result.SweepCandle.Low != 1900 {
		t.Errorf("Expected sweep candle low 1900, got %f", result.SweepCandle.Low)
	}
	if result.ConfirmCandle.Close != 1906 {
		t.Errorf("Expected confirm candle close 1906, got %f", result.ConfirmCandle.Close)
	}
}

// TestDetectBearishSweep tests the mirrored case: a high piercing both
// neighbours with a long upper wick, confirmed by a red candle.
func TestDetectBearishSweep(t *testing.T) {
	detector := NewSweepDetector(12, 0.4)

	candles := flatCandles(14)
	// Sweep candle: high 1910 pierces the 1906 neighbours, upper wick is
	// 4 of a 5 range
	candles[11] = market.Candle{Open: 1906, High: 1910, Low: 1905, Close: 1905.5}
	// Red confirmation closing back inside the range
	candles[12] = market.Candle{Open: 1906, High: 1906.2, Low: 1903.8, Close: 1904}

	result := detector.Detect(candles)

	if !result.Signal {
		t.Fatal("Expected a sweep signal, got none")
	}
	if result.Direction != SweepBearish {
		t.Errorf("Expected bearish direction, got %s", result.Direction)
	}
	if result.SweepCandle.High != 1910 {
		t.Errorf("Expected sweep candle high 1910, got %f", result.SweepCandle.High)
	}
}

// TestOldestSweepWins tests that with two qualifying sweeps in the window
// the older one is reported.
func TestOldestSweepWins(t *testing.T) {
	detector := NewSweepDetector(12, 0.4)

	candles := flatCandles(14)
	// Older sweep at index 3
	candles[3] = market.Candle{Open: 1904, High: 1905, Low: 1899, Close: 1904.5}
	candles[4] = market.Candle{Open: 1904, High: 1906, Low: 1903.5, Close: 1906}
	// Fresher sweep at index 9
	candles[9] = market.Candle{Open: 1904, High: 1905, Low: 1898, Close: 1904.5}
	candles[10] = market.Candle{Open: 1904, High: 1906, Low: 1903.5, Close: 1906}

	result := detector.Detect(candles)

	if !result.Signal {
		t.Fatal("Expected a sweep signal, got none")
	}
	if result.SweepCandle.Low != 1899 {
		t.Errorf("Expected the older sweep (low 1899) to win, got low %f", result.SweepCandle.Low)
	}
}

// TestNoSweepWithoutConfirmation tests that a pierce without a reversal
// candle yields no signal.
func TestNoSweepWithoutConfirmation(t *testing.T) {
	detector := NewSweepDetector(12, 0.4)

	candles := flatCandles(14)
	candles[11] = market.Candle{Open: 1904, High: 1905, Low: 1900, Close: 1904.5}
	// Red candle after a bullish pierce: no confirmation
	candles[12] = market.Candle{Open: 1904, High: 1904.5, Low: 1903, Close: 1903.2}

	result := detector.Detect(candles)

	if result.Signal {
		t.Errorf("Expected no signal without a confirmation candle, got %s", result.Direction)
	}
}

// TestNoSweepOnShallowWick tests that a pierce whose wick is a small share
// of the range is rejected.
func TestNoSweepOnShallowWick(t *testing.T) {
	detector := NewSweepDetector(12, 0.4)

	candles := flatCandles(14)
	// Low pierces the neighbours but the body covers most of the range:
	// lower wick is 0.5 of an 8 range
	candles[11] = market.Candle{Open: 1911, High: 1911.5, Low: 1903.5, Close: 1904}
	candles[12] = market.Candle{Open: 1904, High: 1906.5, Low: 1903.8, Close: 1906}

	result := detector.Detect(candles)

	if result.Signal {
		t.Errorf("Expected no signal for a shallow wick, got %s", result.Direction)
	}
}

// TestSweepInsufficientData tests that a series shorter than lookback+2
// yields no signal.
func TestSweepInsufficientData(t *testing.T) {
	detector := NewSweepDetector(12, 0.4)

	result := detector.Detect(flatCandles(13))

	if result.Signal {
		t.Error("Expected no signal for an undersized series")
	}
}
