package database

import "time"

// PlanAlert is a row in the plan_alerts history table, one per triggered
// setup alert.
type PlanAlert struct {
	ID           int64     `json:"id"`
	PlanID       string    `json:"plan_id"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Entry        float64   `json:"entry"`
	StopLoss     float64   `json:"stop_loss"`
	TakeProfit   float64   `json:"take_profit"`
	TakeProfit1  float64   `json:"take_profit_1"`
	Confidence   float64   `json:"confidence"`
	TriggerPrice float64   `json:"trigger_price"`
	Logic        string    `json:"logic"`
	TriggeredAt  time.Time `json:"triggered_at"`
}
