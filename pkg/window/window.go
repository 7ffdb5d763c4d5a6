package window

import (
	"time"

	"github.com/lkarlslund/usageguard/pkg/state"
)

const DefaultHours = 5

func IsExpired(st *state.State, now time.Time) bool {
	if st == nil || st.WindowEnd == nil {
		return true
	}
	return !now.Before(*st.WindowEnd)
}

// Boundaries floors now to its UTC hour so resets land on the same bounds
// regardless of when in the hour they happen.
func Boundaries(now time.Time, hours int) (time.Time, time.Time) {
	if hours <= 0 {
		hours = DefaultHours
	}
	start := now.UTC().Truncate(time.Hour)
	return start, start.Add(time.Duration(hours) * time.Hour)
}

func Remaining(end, now time.Time) time.Duration {
	d := end.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
