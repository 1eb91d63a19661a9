package database

import (
	"context"
	"fmt"
	"time"
)

// Repository provides access to the alert history store.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck verifies database connectivity
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// CreatePlanAlert records a triggered plan alert.
func (r *Repository) CreatePlanAlert(ctx context.Context, alert *PlanAlert) error {
	query := `
		INSERT INTO plan_alerts (plan_id, symbol, side, entry, stop_loss, take_profit, take_profit_1, confidence, trigger_price, logic, triggered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := r.db.Pool.QueryRow(ctx, query,
		alert.PlanID, alert.Symbol, alert.Side,
		alert.Entry, alert.StopLoss, alert.TakeProfit, alert.TakeProfit1,
		alert.Confidence, alert.TriggerPrice, alert.Logic, alert.TriggeredAt,
	).Scan(&alert.ID)
	if err != nil {
		return fmt.Errorf("failed to create plan alert: %w", err)
	}

	return nil
}

// GetRecentPlanAlerts returns the newest alerts, most recent first.
func (r *Repository) GetRecentPlanAlerts(ctx context.Context, limit int) ([]*PlanAlert, error) {
	query := `
		SELECT id, plan_id, symbol, side, entry, stop_loss, take_profit, take_profit_1, confidence, trigger_price, logic, triggered_at
		FROM plan_alerts
		ORDER BY triggered_at DESC
		LIMIT $1`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*PlanAlert
	for rows.Next() {
		alert := &PlanAlert{}
		err := rows.Scan(
			&alert.ID, &alert.PlanID, &alert.Symbol, &alert.Side,
			&alert.Entry, &alert.StopLoss, &alert.TakeProfit, &alert.TakeProfit1,
			&alert.Confidence, &alert.TriggerPrice, &alert.Logic, &alert.TriggeredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// CountPlanAlertsOn counts alerts recorded on the given calendar day in loc.
// The tracker restores its daily budget from this after a restart.
func (r *Repository) CountPlanAlertsOn(ctx context.Context, day time.Time, loc *time.Location) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)

	query := `SELECT COUNT(*) FROM plan_alerts WHERE triggered_at >= $1 AND triggered_at < $2`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plan alerts: %w", err)
	}

	return count, nil
}
