package market

import (
	"testing"
)

// TestCandleWicks tests the wick measurements against the body.
func TestCandleWicks(t *testing.T) {
	// Green candle: body 1904 -> 1904.5, low 1900, high 1905
	c := Candle{Open: 1904, High: 1905, Low: 1900, Close: 1904.5}

	if !c.IsBullish() {
		t.Error("Expected a green candle")
	}
	if c.LowerWick() != 4 {
		t.Errorf("Expected lower wick 4, got %f", c.LowerWick())
	}
	if c.UpperWick() != 0.5 {
		t.Errorf("Expected upper wick 0.5, got %f", c.UpperWick())
	}
	if c.Range() != 5 {
		t.Errorf("Expected range 5, got %f", c.Range())
	}
	if c.Body() != 0.5 {
		t.Errorf("Expected body 0.5, got %f", c.Body())
	}
}

// TestWindow tests the newest-n slice helper.
func TestWindow(t *testing.T) {
	candles := []Candle{{Close: 1}, {Close: 2}, {Close: 3}}

	w := Window(candles, 2)
	if len(w) != 2 || w[0].Close != 2 {
		t.Errorf("Expected the newest 2 candles starting at close 2, got %+v", w)
	}

	if len(Window(candles, 10)) != 3 {
		t.Error("Expected the whole series when shorter than the window")
	}
	if Window(candles, 0) != nil {
		t.Error("Expected nil for a non-positive window")
	}
}

// TestLast tests the newest-candle helper.
func TestLast(t *testing.T) {
	if _, ok := Last(nil); ok {
		t.Error("Expected no candle from an empty series")
	}

	c, ok := Last([]Candle{{Close: 1}, {Close: 2}})
	if !ok || c.Close != 2 {
		t.Errorf("Expected the newest candle (close 2), got %+v", c)
	}
}
