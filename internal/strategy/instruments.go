package strategy

import (
	"math"
)

// Instrument carries the per-symbol scaling a plan needs: pip size, stop
// distance, tick, rounding precision and the stop-cluster band width.
type Instrument struct {
	Symbol      string  // feed symbol, e.g. "XAU/USD"
	Key         string  // short key used for tracker slots, e.g. "XAU"
	PipSize     float64 // quote-currency value of one pip
	StopPips    float64 // stop distance in pips (pip-scaled instruments)
	FixedStop   float64 // stop distance in quote currency; overrides pips when > 0
	Tick        float64 // minimal price increment
	EntryBuffer float64 // buffer beyond the confirmation open for entry capping
	ClusterBand float64 // stop-cluster band width for this price scale
	Precision   int     // decimals for plan price rounding
}

// StopDistance returns the stop-loss distance in quote currency.
func (i Instrument) StopDistance() float64 {
	if i.FixedStop > 0 {
		return i.FixedStop
	}
	return i.StopPips * i.PipSize
}

// Round rounds a price to the instrument's precision.
func (i Instrument) Round(v float64) float64 {
	pow := math.Pow(10, float64(i.Precision))
	return math.Round(v*pow) / pow
}

// DefaultInstruments returns the two instruments the bot watches out of
// the box. Stop distances and bands are tunable through configuration.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{
			Symbol:      "XAU/USD",
			Key:         "XAU",
			PipSize:     0.1,
			StopPips:    20,
			Tick:        0.01,
			EntryBuffer: 0.2,
			ClusterBand: 0.15,
			Precision:   3,
		},
		{
			Symbol:      "BTC/USD",
			Key:         "BTC",
			FixedStop:   350,
			Tick:        1,
			EntryBuffer: 25,
			ClusterBand: 150,
			Precision:   2,
		},
	}
}
