package usage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lkarlslund/usageguard/pkg/logscan"
	"github.com/lkarlslund/usageguard/pkg/pricing"
	"github.com/lkarlslund/usageguard/pkg/state"
	"github.com/lkarlslund/usageguard/pkg/transcript"
	"github.com/lkarlslund/usageguard/pkg/window"
)

var ErrPersist = errors.New("usage state not persisted")

// mtimeSlack widens the modified-since filter to cover coarse filesystem
// timestamp granularity.
const mtimeSlack = time.Second

type Phase string

const (
	PhaseNoCache Phase = "no-cache"
	PhaseActive  Phase = "active-window"
	PhaseExpired Phase = "expired-window"
)

func PhaseOf(st *state.State, now time.Time) Phase {
	switch {
	case st == nil || (!st.HasWindow() && st.LastUpdated == nil):
		return PhaseNoCache
	case window.IsExpired(st, now):
		return PhaseExpired
	default:
		return PhaseActive
	}
}

type Settings struct {
	ProjectsDir string
	WindowHours int
	Limits      Limits
	Pricing     pricing.Table
}

type parseFunc func(path string, offset int64, win transcript.Window, seen map[string]struct{}, table pricing.Table) (transcript.Result, error)

type Aggregator struct {
	store    state.Store
	settings Settings
	parse    parseFunc
}

func NewAggregator(store state.Store, settings Settings) *Aggregator {
	return &Aggregator{store: store, settings: settings, parse: transcript.ParseFrom}
}

// Current folds every new log line into the persisted state and returns the
// resulting snapshot. Per-file read failures are absorbed; the only error
// returned is a failed save, alongside an otherwise valid snapshot.
func (a *Aggregator) Current(now time.Time) (Snapshot, error) {
	now = now.UTC()
	st := a.store.Load()
	if st == nil {
		st = state.New()
	}
	st.Normalize()

	phase := PhaseOf(st, now)
	if window.IsExpired(st, now) {
		if phase == PhaseExpired {
			slog.Info("usage window expired, resetting", "window_end", st.WindowEnd.Format(time.RFC3339), "cost", st.AccumulatedCost)
		}
		st = state.New()
	}

	var files []string
	if st.LastUpdated != nil {
		files = logscan.DiscoverModifiedSince(a.settings.ProjectsDir, st.LastUpdated.Add(-mtimeSlack))
	} else {
		files = logscan.DiscoverAll(a.settings.ProjectsDir)
	}

	if !st.HasWindow() {
		st.SetWindow(window.Boundaries(now, a.settings.WindowHours))
	}
	win := transcript.Window{Start: *st.WindowStart, End: *st.WindowEnd}

	seen := st.SeenSet()
	var (
		newCost    float64
		newRecords int
		scanned    int
	)
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			slog.Debug("log file vanished before scan", "path", path, "error", err)
			continue
		}
		stored := st.FileOffsets[path]
		start, skip := logscan.Plan(info.Size(), info.ModTime(), stored, st.FileMtimes[path])
		if skip {
			continue
		}
		if start < stored {
			slog.Info("log file truncated, rescanning", "path", path, "size", info.Size(), "offset", stored)
		}
		res, err := a.parse(path, start, win, seen, a.settings.Pricing)
		scanned++
		if err != nil {
			slog.Warn("log file scan aborted", "path", path, "offset", stored, "error", err)
			continue
		}
		st.FileOffsets[path] = res.Offset
		st.FileMtimes[path] = info.ModTime()
		newCost += res.Cost
		newRecords += res.Records
		for _, id := range res.RequestIDs {
			seen[id] = struct{}{}
			st.SeenRequestIDs = append(st.SeenRequestIDs, id)
		}
		if !res.LatestTimestamp.IsZero() && (st.LastActivity == nil || res.LatestTimestamp.After(*st.LastActivity)) {
			ts := res.LatestTimestamp
			st.LastActivity = &ts
		}
	}

	st.AccumulatedCost += newCost
	st.TotalRequests += newRecords
	st.LastUpdated = &now
	slog.Debug("usage scan complete", "phase", phase, "candidates", len(files), "scanned", scanned, "new_cost", newCost, "new_requests", newRecords)

	snap := a.snapshot(st, now)
	if err := a.store.Save(st); err != nil {
		return snap, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return snap, nil
}

// Evaluate is Current with every failure, including panics, translated into
// a non-blocking snapshot.
func (a *Aggregator) Evaluate(now time.Time) (snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("usage evaluation panicked, allowing", "panic", r)
			snap = a.failOpen(now, fmt.Errorf("panic: %v", r))
		}
	}()
	s, err := a.Current(now)
	if err != nil {
		slog.Warn("usage evaluation failed, allowing", "error", err)
		return a.failOpen(now, err)
	}
	return s
}

func (a *Aggregator) snapshot(st *state.State, now time.Time) Snapshot {
	status, pct := a.settings.Limits.Classify(st.AccumulatedCost)
	snap := Snapshot{
		Cost:             st.AccumulatedCost,
		WindowStart:      *st.WindowStart,
		WindowEnd:        *st.WindowEnd,
		RemainingSeconds: int64(window.Remaining(*st.WindowEnd, now) / time.Second),
		TotalRequests:    st.TotalRequests,
		Status:           status,
		ThresholdPct:     pct,
		MaxCost:          a.settings.Limits.MaxCostUSD,
		LastActivity:     st.LastActivity,
	}
	snap.Message = renderMessage(snap)
	return snap
}

func (a *Aggregator) failOpen(now time.Time, err error) Snapshot {
	var maxCost float64
	hours := 0
	if a != nil {
		maxCost = a.settings.Limits.MaxCostUSD
		hours = a.settings.WindowHours
	}
	start, end := window.Boundaries(now, hours)
	return Snapshot{
		WindowStart:      start,
		WindowEnd:        end,
		RemainingSeconds: int64(window.Remaining(end, now) / time.Second),
		Status:           StatusOK,
		MaxCost:          maxCost,
		Message:          "Usage guard unavailable: " + err.Error(),
	}
}
