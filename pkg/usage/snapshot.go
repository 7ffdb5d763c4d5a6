package usage

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusBlocked Status = "blocked"
)

type Limits struct {
	MaxCostUSD          float64
	WarningThresholdPct float64
	BlockThresholdPct   float64
}

// Classify checks the block threshold first so it wins even when it is
// configured at or below the warning threshold.
func (l Limits) Classify(cost float64) (Status, float64) {
	pct := 0.0
	if l.MaxCostUSD > 0 {
		pct = cost / l.MaxCostUSD * 100
	}
	switch {
	case pct >= l.BlockThresholdPct:
		return StatusBlocked, pct
	case pct >= l.WarningThresholdPct:
		return StatusWarning, pct
	default:
		return StatusOK, pct
	}
}

type Snapshot struct {
	Cost             float64    `json:"cost"`
	WindowStart      time.Time  `json:"window_start"`
	WindowEnd        time.Time  `json:"window_end"`
	RemainingSeconds int64      `json:"window_remaining_seconds"`
	TotalRequests    int        `json:"total_requests"`
	Status           Status     `json:"status"`
	ThresholdPct     float64    `json:"threshold_pct"`
	MaxCost          float64    `json:"max_cost"`
	Message          string     `json:"message"`
	LastActivity     *time.Time `json:"last_activity,omitempty"`
}

// ResetClock is the window end rendered the way the messages show it.
func (s Snapshot) ResetClock() string {
	return s.WindowEnd.UTC().Format("2006-01-02T15:04") + "Z"
}

func (s Snapshot) RemainingMinutes() int64 {
	return s.RemainingSeconds / 60
}

func formatRemaining(seconds int64) string {
	return fmt.Sprintf("%dh%02dm", seconds/3600, (seconds%3600)/60)
}

func renderMessage(s Snapshot) string {
	remaining := formatRemaining(s.RemainingSeconds)
	switch s.Status {
	case StatusBlocked:
		return fmt.Sprintf("USAGE GUARD: Budget exhausted (%.0f%% of $%.2f). Window resets in %s (at %s). All tool calls are blocked until then.",
			s.ThresholdPct, s.MaxCost, remaining, s.ResetClock())
	case StatusWarning:
		return fmt.Sprintf("USAGE GUARD WARNING: %.0f%% of budget used ($%.2f / $%.2f). Window resets in %s.",
			s.ThresholdPct, s.Cost, s.MaxCost, remaining)
	default:
		return fmt.Sprintf("Usage: $%.2f / $%.2f (%.0f%%) | Window resets in %s",
			s.Cost, s.MaxCost, s.ThresholdPct, remaining)
	}
}
