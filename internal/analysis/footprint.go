package analysis

import (
	"liquidity-matrix-bot/internal/market"
)

// FootprintSignal reports an abnormal volume spike on the newest candle.
// DirectionAgreement is supplementary evidence, never a gating condition.
type FootprintSignal struct {
	Footprint          bool
	Volume             float64
	MeanVolume         float64
	DirectionAgreement bool
}

// FootprintDetector flags volume spikes against the recent mean.
type FootprintDetector struct {
	window     int     // candles considered, newest included
	spikeRatio float64 // newest volume must exceed mean * ratio
}

// NewFootprintDetector creates a footprint detector. Non-positive
// parameters fall back to defaults (window 7, ratio 1.5).
func NewFootprintDetector(window int, spikeRatio float64) *FootprintDetector {
	if window <= 0 {
		window = 7
	}
	if spikeRatio <= 0 {
		spikeRatio = 1.5
	}
	return &FootprintDetector{
		window:     window,
		spikeRatio: spikeRatio,
	}
}

// Detect compares the newest candle's volume against the mean of the
// preceding candles in the window. Fewer than 6 candles, or a window
// without volume data, yields no footprint.
func (fd *FootprintDetector) Detect(candles []market.Candle) FootprintSignal {
	window := market.Window(candles, fd.window)
	if len(window) < 6 {
		return FootprintSignal{}
	}

	newest := window[len(window)-1]
	prev := window[len(window)-2]

	sum := 0.0
	for _, c := range window[:len(window)-1] {
		sum += c.Volume
	}
	mean := sum / float64(len(window)-1)

	if mean <= 0 {
		return FootprintSignal{}
	}

	agreement := (newest.IsBullish() && prev.IsBullish()) ||
		(newest.IsBearish() && prev.IsBearish())

	return FootprintSignal{
		Footprint:          newest.Volume > mean*fd.spikeRatio,
		Volume:             newest.Volume,
		MeanVolume:         mean,
		DirectionAgreement: agreement,
	}
}
