package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"liquidity-matrix-bot/internal/analysis"
)

// PlanSide is the direction of a trade plan.
type PlanSide string

const (
	SideLong  PlanSide = "LONG"
	SideShort PlanSide = "SHORT"
)

// TradePlan is an advisory entry/stop/target proposal. It is immutable once
// built; only the setup tracker clears it.
type TradePlan struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        PlanSide  `json:"side"`
	Entry       float64   `json:"entry"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfit  float64   `json:"take_profit"`
	TakeProfit1 float64   `json:"take_profit_1"`
	Confidence  float64   `json:"confidence"`
	Logic       string    `json:"logic"`
	CreatedAt   time.Time `json:"created_at"`
}

// Confidence weights. The score is a deterministic additive heuristic,
// never a draw.
const (
	confidenceBase      = 0.5
	confidencePattern   = 0.2
	confidenceFootprint = 0.15
	confidenceNoCluster = 0.1
	confidenceCap       = 0.95
)

// PlanBuilder turns a sweep detection plus its secondary evidence into a
// fully parameterized TradePlan.
type PlanBuilder struct {
	rewardRisk float64
}

// NewPlanBuilder creates a plan builder. A non-positive reward/risk ratio
// falls back to the default of 4.
func NewPlanBuilder(rewardRisk float64) *PlanBuilder {
	if rewardRisk <= 0 {
		rewardRisk = 4
	}
	return &PlanBuilder{rewardRisk: rewardRisk}
}

// Build synthesizes a plan from a confirmed sweep. It is only called after
// the sweep detector fired, so a plan is always produced.
//
// The entry candidate is the midpoint between the confirmation close and
// the sweep extreme, capped a buffer beyond the confirmation open so the
// entry is never worse than the confirmation itself. When a stop cluster
// sits on the entry side within one band of the candidate, the entry is
// displaced a full band beyond the cluster price plus one tick, so the plan
// never rests inside a band that was just hunted.
func (pb *PlanBuilder) Build(
	inst Instrument,
	sweep analysis.SweepResult,
	zone *analysis.LiquidityZone,
	cluster analysis.RetailCluster,
	footprint analysis.FootprintSignal,
) *TradePlan {
	confirm := sweep.ConfirmCandle

	side := SideShort
	if confirm.IsBullish() {
		side = SideLong
	}

	var entry, stopLoss, takeProfit float64
	nudged := false

	if side == SideLong {
		extreme := sweep.SweepCandle.Low
		entry = (confirm.Close + extreme) / 2
		if cap := confirm.Open - inst.EntryBuffer; entry > cap {
			entry = cap
		}
		if cluster.Side == analysis.ClusterBuy && math.Abs(entry-cluster.Price) <= cluster.Band {
			entry = cluster.Price - cluster.Band - inst.Tick
			nudged = true
		}
		stopLoss = extreme - inst.StopDistance()
		takeProfit = entry + (entry-stopLoss)*pb.rewardRisk
	} else {
		extreme := sweep.SweepCandle.High
		entry = (confirm.Close + extreme) / 2
		if floor := confirm.Open + inst.EntryBuffer; entry < floor {
			entry = floor
		}
		if cluster.Side == analysis.ClusterSell && math.Abs(entry-cluster.Price) <= cluster.Band {
			entry = cluster.Price + cluster.Band + inst.Tick
			nudged = true
		}
		stopLoss = extreme + inst.StopDistance()
		takeProfit = entry - (stopLoss-entry)*pb.rewardRisk
	}

	plan := &TradePlan{
		ID:          uuid.NewString(),
		Symbol:      inst.Symbol,
		Side:        side,
		Entry:       inst.Round(entry),
		StopLoss:    inst.Round(stopLoss),
		TakeProfit:  inst.Round(takeProfit),
		TakeProfit1: inst.Round((entry + takeProfit) / 2),
		Confidence:  pb.confidence(side, cluster, footprint),
		Logic:       planLogic(side, zone, cluster, footprint, nudged),
		CreatedAt:   time.Now().UTC(),
	}

	return plan
}

// confidence applies the additive scoring: base 0.5, +0.2 for the pattern,
// +0.15 for a volume footprint, +0.1 when no cluster competes on the entry
// side, clamped to [0, 0.95].
func (pb *PlanBuilder) confidence(side PlanSide, cluster analysis.RetailCluster, footprint analysis.FootprintSignal) float64 {
	score := confidenceBase + confidencePattern

	if footprint.Footprint {
		score += confidenceFootprint
	}

	entrySide := analysis.ClusterBuy
	if side == SideShort {
		entrySide = analysis.ClusterSell
	}
	if cluster.Side != entrySide {
		score += confidenceNoCluster
	}

	if score > confidenceCap {
		score = confidenceCap
	}
	if score < 0 {
		score = 0
	}

	return score
}

func planLogic(side PlanSide, zone *analysis.LiquidityZone, cluster analysis.RetailCluster, footprint analysis.FootprintSignal, nudged bool) string {
	direction := "below recent lows with bullish confirmation"
	if side == SideShort {
		direction = "above recent highs with bearish confirmation"
	}

	logic := fmt.Sprintf("Liquidity sweep %s", direction)
	if zone != nil {
		logic += fmt.Sprintf(" (session range %.2f-%.2f)", zone.RecentLow, zone.RecentHigh)
	}
	if footprint.Footprint {
		logic += fmt.Sprintf("; volume footprint %.0f vs mean %.0f", footprint.Volume, footprint.MeanVolume)
	}
	if nudged {
		logic += fmt.Sprintf("; entry nudged beyond %s stop cluster at %.2f", cluster.Side, cluster.Price)
	}

	return logic
}
