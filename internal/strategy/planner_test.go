package strategy

import (
	"math"
	"strings"
	"testing"

	"liquidity-matrix-bot/internal/analysis"
	"liquidity-matrix-bot/internal/market"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func xau() Instrument {
	return DefaultInstruments()[0]
}

func btc() Instrument {
	return DefaultInstruments()[1]
}

func bullishSweep(low, confirmOpen, confirmClose float64) analysis.SweepResult {
	return analysis.SweepResult{
		Signal:        true,
		Direction:     analysis.SweepBullish,
		SweepCandle:   market.Candle{Open: confirmOpen, High: confirmOpen + 1, Low: low, Close: confirmOpen + 0.5},
		ConfirmCandle: market.Candle{Open: confirmOpen, High: confirmClose + 0.5, Low: confirmOpen - 0.5, Close: confirmClose},
	}
}

func bearishSweep(high, confirmOpen, confirmClose float64) analysis.SweepResult {
	return analysis.SweepResult{
		Signal:        true,
		Direction:     analysis.SweepBearish,
		SweepCandle:   market.Candle{Open: confirmOpen, High: high, Low: confirmOpen - 1, Close: confirmOpen - 0.5},
		ConfirmCandle: market.Candle{Open: confirmOpen, High: confirmOpen + 0.5, Low: confirmClose - 0.5, Close: confirmClose},
	}
}

func noCluster() analysis.RetailCluster {
	return analysis.RetailCluster{Side: analysis.ClusterNone, Band: 0.15}
}

// TestBuildLongPlan tests the long side: entry at the midpoint, stop beyond
// the sweep low, target at four times the risk.
func TestBuildLongPlan(t *testing.T) {
	builder := NewPlanBuilder(4)

	// Sweep low 1900, confirmation 1904 -> 1906: midpoint 1903 stays
	// under the 1903.8 cap
	sweep := bullishSweep(1900, 1904, 1906)

	plan := builder.Build(xau(), sweep, nil, noCluster(), analysis.FootprintSignal{})

	if plan.Side != SideLong {
		t.Fatalf("Expected LONG side, got %s", plan.Side)
	}
	if !almostEqual(plan.Entry, 1903) {
		t.Errorf("Expected entry 1903, got %f", plan.Entry)
	}
	if !almostEqual(plan.StopLoss, 1898) {
		t.Errorf("Expected stop loss 1898 (sweep low minus 20 pips), got %f", plan.StopLoss)
	}
	if !almostEqual(plan.TakeProfit, 1923) {
		t.Errorf("Expected take profit 1923 at 4R, got %f", plan.TakeProfit)
	}
	if !almostEqual(plan.TakeProfit1, 1913) {
		t.Errorf("Expected TP1 at the midpoint 1913, got %f", plan.TakeProfit1)
	}
	if !(plan.StopLoss < plan.Entry && plan.Entry < plan.TakeProfit) {
		t.Error("Expected stop < entry < target for a long plan")
	}
}

// TestBuildLongPlanEntryCap tests that a midpoint above the confirmation
// open minus the buffer is capped.
func TestBuildLongPlanEntryCap(t *testing.T) {
	builder := NewPlanBuilder(4)

	// Midpoint (1910+1900)/2 = 1905 exceeds the 1904 - 0.2 cap
	sweep := bullishSweep(1900, 1904, 1910)

	plan := builder.Build(xau(), sweep, nil, noCluster(), analysis.FootprintSignal{})

	if !almostEqual(plan.Entry, 1903.8) {
		t.Errorf("Expected entry capped at 1903.8, got %f", plan.Entry)
	}
}

// TestBuildShortPlan tests the short side with the fixed-stop instrument.
func TestBuildShortPlan(t *testing.T) {
	builder := NewPlanBuilder(4)

	// Sweep high 65000, confirmation 64800 -> 64600: midpoint 64800 sits
	// under the 64825 floor and is raised to it
	sweep := bearishSweep(65000, 64800, 64600)

	plan := builder.Build(btc(), sweep, nil, analysis.RetailCluster{Side: analysis.ClusterNone, Band: 150}, analysis.FootprintSignal{})

	if plan.Side != SideShort {
		t.Fatalf("Expected SHORT side, got %s", plan.Side)
	}
	if !almostEqual(plan.Entry, 64825) {
		t.Errorf("Expected entry floored at 64825, got %f", plan.Entry)
	}
	if !almostEqual(plan.StopLoss, 65350) {
		t.Errorf("Expected stop loss 65350 (sweep high plus fixed 350), got %f", plan.StopLoss)
	}
	if !almostEqual(plan.TakeProfit, 62725) {
		t.Errorf("Expected take profit 62725 at 4R, got %f", plan.TakeProfit)
	}
	if !(plan.TakeProfit < plan.Entry && plan.Entry < plan.StopLoss) {
		t.Error("Expected target < entry < stop for a short plan")
	}
	if !(plan.TakeProfit < plan.TakeProfit1 && plan.TakeProfit1 < plan.Entry) {
		t.Error("Expected TP1 strictly between entry and target")
	}
}

// TestAntiClusterNudge tests that an entry inside a hunted stop band is
// displaced one full band beyond the cluster price plus one tick.
func TestAntiClusterNudge(t *testing.T) {
	builder := NewPlanBuilder(4)

	sweep := bullishSweep(1900, 1904, 1906)
	cluster := analysis.RetailCluster{Side: analysis.ClusterBuy, Price: 1903.05, Count: 4, Band: 0.15}

	plan := builder.Build(xau(), sweep, nil, cluster, analysis.FootprintSignal{})

	// 1903.05 - 0.15 - 0.01
	if !almostEqual(plan.Entry, 1902.89) {
		t.Errorf("Expected nudged entry 1902.89, got %f", plan.Entry)
	}
	if plan.Entry > cluster.Price-cluster.Band {
		t.Error("Expected the nudged entry at least one band below the cluster price")
	}
	if !strings.Contains(plan.Logic, "nudged") {
		t.Errorf("Expected the plan logic to mention the nudge, got %q", plan.Logic)
	}
}

// TestConfidenceScoring tests the additive score for each evidence
// combination, including the 0.95 cap.
func TestConfidenceScoring(t *testing.T) {
	builder := NewPlanBuilder(4)
	sweep := bullishSweep(1900, 1904, 1906)

	// Pattern only, no competing cluster: 0.5 + 0.2 + 0.1
	plan := builder.Build(xau(), sweep, nil, noCluster(), analysis.FootprintSignal{})
	if !almostEqual(plan.Confidence, 0.8) {
		t.Errorf("Expected confidence 0.8, got %f", plan.Confidence)
	}

	// Competing buy-side cluster drops the no-cluster bonus
	cluster := analysis.RetailCluster{Side: analysis.ClusterBuy, Price: 1890, Count: 4, Band: 0.15}
	plan = builder.Build(xau(), sweep, nil, cluster, analysis.FootprintSignal{})
	if !almostEqual(plan.Confidence, 0.7) {
		t.Errorf("Expected confidence 0.7 with a competing cluster, got %f", plan.Confidence)
	}

	// All evidence present hits the cap exactly
	plan = builder.Build(xau(), sweep, nil, noCluster(), analysis.FootprintSignal{Footprint: true, Volume: 200, MeanVolume: 100})
	if !almostEqual(plan.Confidence, 0.95) {
		t.Errorf("Expected confidence capped at 0.95, got %f", plan.Confidence)
	}
}

// TestConfidenceDeterministic tests that identical inputs always score the
// same.
func TestConfidenceDeterministic(t *testing.T) {
	builder := NewPlanBuilder(4)
	sweep := bullishSweep(1900, 1904, 1906)

	first := builder.Build(xau(), sweep, nil, noCluster(), analysis.FootprintSignal{})
	second := builder.Build(xau(), sweep, nil, noCluster(), analysis.FootprintSignal{})

	if first.Confidence != second.Confidence {
		t.Errorf("Expected deterministic confidence, got %f then %f", first.Confidence, second.Confidence)
	}
}

// TestPlanRounding tests that prices are rounded to the instrument
// precision.
func TestPlanRounding(t *testing.T) {
	builder := NewPlanBuilder(4)

	// Midpoint (1903.3331 + 1900.0001)/2 = 1901.6666
	sweep := bullishSweep(1900.0001, 1904, 1903.3331)

	plan := builder.Build(xau(), sweep, nil, noCluster(), analysis.FootprintSignal{})

	if !almostEqual(plan.Entry, 1901.667) {
		t.Errorf("Expected entry rounded to 1901.667, got %f", plan.Entry)
	}
}

// TestPlanLogicIncludesZone tests that the session range appears in the
// plan logic when a zone is provided.
func TestPlanLogicIncludesZone(t *testing.T) {
	builder := NewPlanBuilder(4)
	sweep := bullishSweep(1900, 1904, 1906)
	zone := &analysis.LiquidityZone{RecentLow: 1898.5, RecentHigh: 1920.25, LastClose: 1906}

	plan := builder.Build(xau(), sweep, zone, noCluster(), analysis.FootprintSignal{})

	if !strings.Contains(plan.Logic, "1898.50-1920.25") {
		t.Errorf("Expected the session range in the logic, got %q", plan.Logic)
	}
	if plan.ID == "" {
		t.Error("Expected a generated plan ID")
	}
}
