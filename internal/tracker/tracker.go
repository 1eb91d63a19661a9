// Package tracker owns the per-instrument setup lifecycle: a slot is EMPTY
// until a plan arms it, ARMED until price touches the entry zone or the
// session ends, and returns to EMPTY after the trigger alert fires. All
// writes come from the monitoring cycle; the read lock exists for the
// status API.
package tracker

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"liquidity-matrix-bot/internal/strategy"
)

// State of an instrument slot.
type State string

const (
	StateEmpty State = "EMPTY"
	StateArmed State = "ARMED"
)

// Config holds tracker tuning. Zero values fall back to defaults.
type Config struct {
	EntryTolerance float64        // relative distance to count as a touch, default 0.001
	DailyAlertCap  int            // plan alerts per calendar day, default 5
	SessionStart   string         // "HH:MM" local to Location
	SessionEnd     string         // "HH:MM" local to Location
	Location       *time.Location // session timezone
}

// DailyBudget caps plan alerts per calendar day and resets on rollover.
type DailyBudget struct {
	Count int    `json:"count"`
	Date  string `json:"date"` // "2006-01-02" in the session timezone
}

// Setup is one armed slot.
type Setup struct {
	Plan    *strategy.TradePlan `json:"plan"`
	ArmedAt time.Time           `json:"armed_at"`
}

// AlertFunc is invoked when an armed plan triggers.
type AlertFunc func(plan *strategy.TradePlan, price float64)

// Tracker holds at most one armed plan per instrument.
type Tracker struct {
	mu sync.RWMutex

	cfg          Config
	logger       zerolog.Logger
	setups       map[string]*Setup
	budget       DailyBudget
	onTriggered  AlertFunc
	sessionStart int // minutes since midnight
	sessionEnd   int

	// injectable clock for tests
	now func() time.Time
}

// New creates a tracker. onTriggered fires on ARMED -> TRIGGERED; the slot
// clears immediately after.
func New(cfg Config, onTriggered AlertFunc, logger zerolog.Logger) *Tracker {
	if cfg.EntryTolerance <= 0 {
		cfg.EntryTolerance = 0.001
	}
	if cfg.DailyAlertCap <= 0 {
		cfg.DailyAlertCap = 5
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	t := &Tracker{
		cfg:          cfg,
		logger:       logger.With().Str("component", "tracker").Logger(),
		setups:       make(map[string]*Setup),
		onTriggered:  onTriggered,
		sessionStart: parseClock(cfg.SessionStart, 17*60),
		sessionEnd:   parseClock(cfg.SessionEnd, 22*60),
		now:          time.Now,
	}
	return t
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string, fallback int) int {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return fallback
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return fallback
	}
	return h*60 + m
}

// InSession reports whether t falls inside the configured trading window.
func (tr *Tracker) InSession(t time.Time) bool {
	local := t.In(tr.cfg.Location)
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= tr.sessionStart && minutes <= tr.sessionEnd
}

// Arm stores a plan for the instrument. An already-armed slot is replaced:
// the newest plan wins, so an opposite-direction detection expires the old
// plan as a side effect. Outside the session window arming is refused.
func (tr *Tracker) Arm(key string, plan *strategy.TradePlan) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	now := tr.now()
	if !tr.InSession(now) {
		return false
	}

	if prev, ok := tr.setups[key]; ok {
		tr.logger.Info().
			Str("symbol", plan.Symbol).
			Str("old_side", string(prev.Plan.Side)).
			Str("new_side", string(plan.Side)).
			Msg("replacing armed setup")
	}

	tr.setups[key] = &Setup{Plan: plan, ArmedAt: now}
	return true
}

// Evaluate checks the latest price against the armed plan for the
// instrument. When the price is within the entry tolerance the alert fires,
// the daily budget is consumed and the slot clears. Once the budget is
// exhausted plans stay armed but triggering is suppressed until the date
// rolls over. Outside the session window nothing transitions.
func (tr *Tracker) Evaluate(key string, price float64) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	now := tr.now()
	if !tr.InSession(now) {
		return
	}

	setup, ok := tr.setups[key]
	if !ok {
		return
	}

	plan := setup.Plan
	if plan.Entry == 0 {
		return
	}
	if math.Abs(price-plan.Entry)/plan.Entry > tr.cfg.EntryTolerance {
		return
	}

	tr.rollBudget(now)
	if tr.budget.Count >= tr.cfg.DailyAlertCap {
		tr.logger.Warn().
			Str("symbol", plan.Symbol).
			Int("count", tr.budget.Count).
			Msg("daily alert budget exhausted, trigger suppressed")
		return
	}

	tr.budget.Count++
	delete(tr.setups, key)

	tr.logger.Info().
		Str("symbol", plan.Symbol).
		Str("side", string(plan.Side)).
		Float64("price", price).
		Float64("entry", plan.Entry).
		Msg("setup triggered")

	if tr.onTriggered != nil {
		tr.onTriggered(plan, price)
	}
}

// EndSession expires every armed slot without triggering. The engine calls
// it once when the session window closes.
func (tr *Tracker) EndSession() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for key, setup := range tr.setups {
		tr.logger.Info().Str("symbol", setup.Plan.Symbol).Msg("session over, expiring setup")
		delete(tr.setups, key)
	}
}

// StateOf returns the lifecycle state of an instrument slot.
func (tr *Tracker) StateOf(key string) State {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	if _, ok := tr.setups[key]; ok {
		return StateArmed
	}
	return StateEmpty
}

// Armed returns a copy of the armed plan for the instrument, or nil.
func (tr *Tracker) Armed(key string) *strategy.TradePlan {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	setup, ok := tr.setups[key]
	if !ok {
		return nil
	}
	plan := *setup.Plan
	return &plan
}

// ArmedSetups returns copies of all armed setups keyed by instrument.
func (tr *Tracker) ArmedSetups() map[string]Setup {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make(map[string]Setup, len(tr.setups))
	for key, setup := range tr.setups {
		plan := *setup.Plan
		out[key] = Setup{Plan: &plan, ArmedAt: setup.ArmedAt}
	}
	return out
}

// Budget returns the current daily budget state, rolling it first so the
// reported date is always today's.
func (tr *Tracker) Budget() DailyBudget {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.rollBudget(tr.now())
	return tr.budget
}

// RestoreBudget seeds the budget after a restart. A stale date is ignored
// on the next roll.
func (tr *Tracker) RestoreBudget(b DailyBudget) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.budget = b
}

// RestoreSetup re-arms a slot from persisted state, bypassing the session
// gate; restoration happens at startup before any cycle runs.
func (tr *Tracker) RestoreSetup(key string, setup Setup) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.setups[key] = &Setup{Plan: setup.Plan, ArmedAt: setup.ArmedAt}
}

func (tr *Tracker) rollBudget(now time.Time) {
	today := now.In(tr.cfg.Location).Format("2006-01-02")
	if tr.budget.Date != today {
		tr.budget = DailyBudget{Date: today}
	}
}

// SessionWindow describes the configured window as a display string.
func (tr *Tracker) SessionWindow() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d %s",
		tr.sessionStart/60, tr.sessionStart%60,
		tr.sessionEnd/60, tr.sessionEnd%60,
		tr.cfg.Location)
}
