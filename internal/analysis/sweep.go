package analysis

import (
	"liquidity-matrix-bot/internal/market"
)

// SweepDirection is the reversal direction implied by a liquidity sweep.
type SweepDirection string

const (
	SweepBullish SweepDirection = "bullish" // stops run below recent lows, price reversing up
	SweepBearish SweepDirection = "bearish" // stops run above recent highs, price reversing down
)

// SweepResult is the outcome of a sweep scan. When Signal is false the
// remaining fields are zero values.
type SweepResult struct {
	Signal        bool
	Direction     SweepDirection
	SweepCandle   market.Candle
	ConfirmCandle market.Candle
}

// SweepDetector scans a candle window for a false breakout followed by a
// reversal confirmation.
type SweepDetector struct {
	lookback  int     // interior candles considered
	wickRatio float64 // minimum sweep-side wick share of the candle range
}

// NewSweepDetector creates a sweep detector. Non-positive parameters fall
// back to defaults (lookback 12, wick ratio 0.4).
func NewSweepDetector(lookback int, wickRatio float64) *SweepDetector {
	if lookback <= 0 {
		lookback = 12
	}
	if wickRatio <= 0 {
		wickRatio = 0.4
	}
	return &SweepDetector{
		lookback:  lookback,
		wickRatio: wickRatio,
	}
}

// Detect scans the newest lookback+1 candles for a sweep. A series shorter
// than lookback+2 yields no signal. Interior candles are tested oldest to
// newest and the first qualifying sweep wins, so the oldest match in the
// window is reported even when a fresher one exists.
func (sd *SweepDetector) Detect(candles []market.Candle) SweepResult {
	if len(candles) < sd.lookback+2 {
		return SweepResult{}
	}

	window := candles[len(candles)-(sd.lookback+1):]

	for i := 1; i < len(window)-1; i++ {
		c := window[i]
		next := window[i+1]

		if c.Range() <= 0 {
			continue
		}

		// Bullish: low pierces both neighbours, sharp lower-wick rejection,
		// green confirmation.
		if c.Low < window[i-1].Low && c.Low < next.Low {
			if c.LowerWick()/c.Range() > sd.wickRatio && next.IsBullish() {
				return SweepResult{
					Signal:        true,
					Direction:     SweepBullish,
					SweepCandle:   c,
					ConfirmCandle: next,
				}
			}
		}

		// Bearish mirror: high pierces both neighbours, upper-wick
		// rejection, red confirmation.
		if c.High > window[i-1].High && c.High > next.High {
			if c.UpperWick()/c.Range() > sd.wickRatio && next.IsBearish() {
				return SweepResult{
					Signal:        true,
					Direction:     SweepBearish,
					SweepCandle:   c,
					ConfirmCandle: next,
				}
			}
		}
	}

	return SweepResult{}
}
