package analysis

import (
	"testing"

	"liquidity-matrix-bot/internal/market"
)

// TestComputeLiquidityZone tests the extremes and last close of a window.
func TestComputeLiquidityZone(t *testing.T) {
	candles := []market.Candle{
		{Open: 1905, High: 1910, Low: 1900, Close: 1908},
		{Open: 1908, High: 1915, Low: 1906, Close: 1912},
		{Open: 1912, High: 1913, Low: 1898, Close: 1902},
	}

	zone := ComputeLiquidityZone(candles)

	if zone == nil {
		t.Fatal("Expected a zone, got nil")
	}
	if zone.RecentLow != 1898 {
		t.Errorf("Expected recent low 1898, got %f", zone.RecentLow)
	}
	if zone.RecentHigh != 1915 {
		t.Errorf("Expected recent high 1915, got %f", zone.RecentHigh)
	}
	if zone.LastClose != 1902 {
		t.Errorf("Expected last close 1902, got %f", zone.LastClose)
	}
}

// TestComputeLiquidityZoneEmpty tests the empty window edge case.
func TestComputeLiquidityZoneEmpty(t *testing.T) {
	if zone := ComputeLiquidityZone(nil); zone != nil {
		t.Errorf("Expected nil zone for an empty window, got %+v", zone)
	}
}
