// Package bot wires the detectors, plan builder and setup tracker into the
// two scheduled jobs: the pre-session liquidity snapshot and the periodic
// monitoring cycle. It is the single writer of all mutable setup state.
package bot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"liquidity-matrix-bot/config"
	"liquidity-matrix-bot/internal/analysis"
	"liquidity-matrix-bot/internal/database"
	"liquidity-matrix-bot/internal/market"
	"liquidity-matrix-bot/internal/notification"
	"liquidity-matrix-bot/internal/strategy"
	"liquidity-matrix-bot/internal/tracker"
)

// CycleStatus summarizes the last monitoring run for the status API.
type CycleStatus struct {
	Time      time.Time `json:"time"`
	InSession bool      `json:"in_session"`
	Scanned   int       `json:"scanned"`
	Skipped   int       `json:"skipped"`
	Armed     int       `json:"armed"`
}

// Engine runs the scan-detect-plan-track pipeline for every instrument.
type Engine struct {
	cfg    *config.Config
	logger zerolog.Logger

	feed   market.Feed
	stream *market.PriceStream // optional, nil when streaming is off

	instruments []strategy.Instrument
	sweeps      *analysis.SweepDetector
	footprints  *analysis.FootprintDetector
	clusters    map[string]*analysis.ClusterDetector // keyed by instrument key
	planner     *strategy.PlanBuilder
	tracker     *tracker.Tracker

	notifier *notification.Manager               // optional
	repo     *database.Repository                // optional
	state    *database.RedisSetupStateRepository // optional

	location *time.Location

	mu         sync.RWMutex
	lastCycle  CycleStatus
	wasSession bool
}

// New builds the engine and its tracker. notifier, repo and state may be
// nil; the corresponding side effects are skipped.
func New(
	cfg *config.Config,
	feed market.Feed,
	stream *market.PriceStream,
	instruments []strategy.Instrument,
	notifier *notification.Manager,
	repo *database.Repository,
	state *database.RedisSetupStateRepository,
	logger zerolog.Logger,
) *Engine {
	loc, err := time.LoadLocation(cfg.SessionConfig.Timezone)
	if err != nil {
		loc = time.UTC
	}

	e := &Engine{
		cfg:         cfg,
		logger:      logger.With().Str("component", "engine").Logger(),
		feed:        feed,
		stream:      stream,
		instruments: instruments,
		sweeps:      analysis.NewSweepDetector(cfg.StrategyConfig.SweepLookback, cfg.StrategyConfig.WickRatio),
		footprints:  analysis.NewFootprintDetector(cfg.StrategyConfig.FootprintWindow, cfg.StrategyConfig.VolumeSpikeRatio),
		clusters:    make(map[string]*analysis.ClusterDetector, len(instruments)),
		planner:     strategy.NewPlanBuilder(cfg.StrategyConfig.RewardRisk),
		notifier:    notifier,
		repo:        repo,
		state:       state,
		location:    loc,
	}

	for _, inst := range instruments {
		e.clusters[inst.Key] = analysis.NewClusterDetector(inst.ClusterBand, cfg.StrategyConfig.ClusterLookbackMin)
	}

	e.tracker = tracker.New(tracker.Config{
		EntryTolerance: cfg.StrategyConfig.EntryTolerance,
		DailyAlertCap:  cfg.StrategyConfig.DailyAlertCap,
		SessionStart:   cfg.SessionConfig.SessionStart,
		SessionEnd:     cfg.SessionConfig.SessionEnd,
		Location:       loc,
	}, e.handleTriggered, logger)

	return e
}

// Location returns the session timezone.
func (e *Engine) Location() *time.Location {
	return e.location
}

// Tracker exposes the setup tracker for the status API.
func (e *Engine) Tracker() *tracker.Tracker {
	return e.tracker
}

// LastCycle returns the most recent monitoring cycle summary.
func (e *Engine) LastCycle() CycleStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastCycle
}

// Restore re-arms any setups persisted before a restart and seeds the
// daily alert budget. Called once at startup, before the scheduler runs.
func (e *Engine) Restore(ctx context.Context) {
	if e.state == nil {
		return
	}

	for _, inst := range e.instruments {
		persisted, err := e.state.LoadSetup(ctx, inst.Key)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", inst.Symbol).Msg("failed to restore setup")
			continue
		}
		if persisted == nil || persisted.Plan == nil {
			continue
		}
		e.tracker.RestoreSetup(inst.Key, tracker.Setup{Plan: persisted.Plan, ArmedAt: persisted.ArmedAt})
		e.logger.Info().
			Str("symbol", persisted.Plan.Symbol).
			Str("side", string(persisted.Plan.Side)).
			Msg("restored armed setup")
	}

	if budget, err := e.state.LoadBudget(ctx); err == nil && budget != nil {
		e.tracker.RestoreBudget(tracker.DailyBudget{Count: budget.Count, Date: budget.Date})
		return
	}

	// No Redis budget; fall back to counting today's alerts in Postgres.
	if e.repo != nil {
		now := time.Now().In(e.location)
		if count, err := e.repo.CountPlanAlertsOn(ctx, now, e.location); err == nil {
			e.tracker.RestoreBudget(tracker.DailyBudget{Count: count, Date: now.Format("2006-01-02")})
		}
	}
}

// RunPreSession sends the pre-session liquidity snapshot for every
// instrument. Fetch failures surface as advisory alerts, never aborts.
func (e *Engine) RunPreSession(ctx context.Context) {
	now := time.Now().In(e.location)
	e.logger.Info().Str("local_time", now.Format("15:04")).Msg("pre-session snapshot")

	if e.notifier != nil {
		if err := e.notifier.SendPreSession(now.Format("15:04")); err != nil {
			e.logger.Warn().Err(err).Msg("pre-session notification failed")
		}
	}

	for _, inst := range e.instruments {
		candles, err := e.feed.GetSeries(ctx, inst.Symbol, "15min", e.cfg.StrategyConfig.SeriesSize15m)
		if err != nil {
			e.logger.Error().Err(err).Str("symbol", inst.Symbol).Msg("pre-session fetch failed")
			if e.notifier != nil {
				e.notifier.SendError("Pre-session error", err.Error())
			}
			continue
		}

		zone := analysis.ComputeLiquidityZone(candles)
		if zone == nil {
			continue
		}

		if e.notifier != nil {
			if err := e.notifier.SendLiquiditySnapshot(inst.Symbol, zone); err != nil {
				e.logger.Warn().Err(err).Str("symbol", inst.Symbol).Msg("snapshot notification failed")
			}
		}
	}
}

// RunMonitorCycle scans every instrument once. Outside the session window
// it only expires leftover setups; inside it runs detection, arming and
// trigger evaluation. Any single instrument's failure is recoverable.
func (e *Engine) RunMonitorCycle(ctx context.Context) {
	now := time.Now()
	status := CycleStatus{Time: now, InSession: e.tracker.InSession(now)}

	if !status.InSession {
		e.mu.Lock()
		wasSession := e.wasSession
		e.wasSession = false
		e.mu.Unlock()

		if wasSession {
			e.tracker.EndSession()
			e.clearPersistedSetups(ctx)
		}
		e.logger.Debug().Msg("outside session hours")
		e.storeStatus(status)
		return
	}

	e.mu.Lock()
	e.wasSession = true
	e.mu.Unlock()

	for _, inst := range e.instruments {
		if e.scanInstrument(ctx, inst) {
			status.Scanned++
		} else {
			status.Skipped++
		}
	}

	status.Armed = len(e.tracker.ArmedSetups())
	e.storeStatus(status)
	e.persistState(ctx)
}

// scanInstrument runs one instrument through the pipeline. Returns false
// when a feed error forced a skip.
func (e *Engine) scanInstrument(ctx context.Context, inst strategy.Instrument) bool {
	series15, err := e.feed.GetSeries(ctx, inst.Symbol, "15min", e.cfg.StrategyConfig.SeriesSize15m)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", inst.Symbol).Msg("skipping instrument this cycle")
		return false
	}

	zone := analysis.ComputeLiquidityZone(series15)
	sweep := e.sweeps.Detect(series15)

	if sweep.Signal {
		series5, err := e.feed.GetSeries(ctx, inst.Symbol, "5min", e.cfg.StrategyConfig.SeriesSize5m)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", inst.Symbol).Msg("5m fetch failed, skipping plan")
			return false
		}

		cluster := e.clusters[inst.Key].Detect(series5)
		footprint := e.footprints.Detect(series5)

		plan := e.planner.Build(inst, sweep, zone, cluster, footprint)
		if e.tracker.Arm(inst.Key, plan) {
			e.logger.Info().
				Str("symbol", plan.Symbol).
				Str("side", string(plan.Side)).
				Float64("entry", plan.Entry).
				Float64("confidence", plan.Confidence).
				Msg("setup armed")
		}
	}

	price, ok := e.currentPrice(ctx, inst.Symbol)
	if !ok {
		return true // scan succeeded, only the trigger check is skipped
	}
	e.tracker.Evaluate(inst.Key, price)

	return true
}

// currentPrice prefers the websocket quote and falls back to REST.
func (e *Engine) currentPrice(ctx context.Context, symbol string) (float64, bool) {
	maxAge := time.Duration(e.cfg.SessionConfig.MonitorInterval) * time.Minute
	if e.stream != nil {
		if price, ok := e.stream.LastPrice(symbol, maxAge); ok {
			return price, true
		}
	}

	price, err := e.feed.GetCurrentPrice(ctx, symbol)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("current price unavailable")
		return 0, false
	}
	return price, true
}

// handleTriggered delivers the alert and records it. Notify and persist
// failures are logged and swallowed; the tracker state is never rolled
// back.
func (e *Engine) handleTriggered(plan *strategy.TradePlan, price float64) {
	if e.notifier != nil {
		if err := e.notifier.SendPlanAlert(plan, price); err != nil {
			e.logger.Error().Err(err).Str("symbol", plan.Symbol).Msg("plan alert delivery failed")
		}
	}

	if e.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		alert := &database.PlanAlert{
			PlanID:       plan.ID,
			Symbol:       plan.Symbol,
			Side:         string(plan.Side),
			Entry:        plan.Entry,
			StopLoss:     plan.StopLoss,
			TakeProfit:   plan.TakeProfit,
			TakeProfit1:  plan.TakeProfit1,
			Confidence:   plan.Confidence,
			TriggerPrice: price,
			Logic:        plan.Logic,
			TriggeredAt:  time.Now().UTC(),
		}
		if err := e.repo.CreatePlanAlert(ctx, alert); err != nil {
			e.logger.Error().Err(err).Str("symbol", plan.Symbol).Msg("failed to record plan alert")
		}
	}
}

// persistState mirrors armed setups and the budget into Redis after a
// cycle so a restart resumes mid-session.
func (e *Engine) persistState(ctx context.Context) {
	if e.state == nil {
		return
	}

	armed := e.tracker.ArmedSetups()
	for _, inst := range e.instruments {
		setup, ok := armed[inst.Key]
		if !ok {
			e.state.ClearSetup(ctx, inst.Key)
			continue
		}
		e.state.SaveSetup(ctx, inst.Key, &database.PersistedSetup{
			Plan:    setup.Plan,
			ArmedAt: setup.ArmedAt,
		})
	}

	budget := e.tracker.Budget()
	e.state.SaveBudget(ctx, &database.PersistedBudget{Count: budget.Count, Date: budget.Date})
}

func (e *Engine) clearPersistedSetups(ctx context.Context) {
	if e.state == nil {
		return
	}
	for _, inst := range e.instruments {
		e.state.ClearSetup(ctx, inst.Key)
	}
}

func (e *Engine) storeStatus(status CycleStatus) {
	e.mu.Lock()
	e.lastCycle = status
	e.mu.Unlock()
}
