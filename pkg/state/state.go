package state

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// Version is bumped whenever the persisted layout changes. Older files are
// discarded, never migrated.
const Version = 1

type State struct {
	Version         int                  `json:"version"`
	WindowStart     *time.Time           `json:"window_start"`
	WindowEnd       *time.Time           `json:"window_end"`
	AccumulatedCost float64              `json:"accumulated_cost"`
	TotalRequests   int                  `json:"total_requests"`
	LastActivity    *time.Time           `json:"last_activity"`
	FileOffsets     map[string]int64     `json:"file_offsets"`
	FileMtimes      map[string]time.Time `json:"file_mtimes"`
	SeenRequestIDs  []string             `json:"seen_request_ids"`
	LastUpdated     *time.Time           `json:"last_updated"`
}

func New() *State {
	return &State{
		Version:        Version,
		FileOffsets:    map[string]int64{},
		FileMtimes:     map[string]time.Time{},
		SeenRequestIDs: []string{},
	}
}

// Normalize makes the state safe to mutate and deterministic to encode.
func (s *State) Normalize() {
	if s.FileOffsets == nil {
		s.FileOffsets = map[string]int64{}
	}
	if s.FileMtimes == nil {
		s.FileMtimes = map[string]time.Time{}
	}
	ids := lo.Uniq(lo.Compact(s.SeenRequestIDs))
	sort.Strings(ids)
	s.SeenRequestIDs = ids
	if s.AccumulatedCost < 0 {
		s.AccumulatedCost = 0
	}
	if s.TotalRequests < 0 {
		s.TotalRequests = 0
	}
}

func (s *State) SeenSet() map[string]struct{} {
	out := make(map[string]struct{}, len(s.SeenRequestIDs))
	for _, id := range s.SeenRequestIDs {
		out[id] = struct{}{}
	}
	return out
}

func (s *State) HasWindow() bool {
	return s.WindowStart != nil && s.WindowEnd != nil
}

func (s *State) SetWindow(start, end time.Time) {
	start, end = start.UTC(), end.UTC()
	s.WindowStart = &start
	s.WindowEnd = &end
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := *s
	out.WindowStart = cloneTime(s.WindowStart)
	out.WindowEnd = cloneTime(s.WindowEnd)
	out.LastActivity = cloneTime(s.LastActivity)
	out.LastUpdated = cloneTime(s.LastUpdated)
	out.FileOffsets = make(map[string]int64, len(s.FileOffsets))
	for k, v := range s.FileOffsets {
		out.FileOffsets[k] = v
	}
	out.FileMtimes = make(map[string]time.Time, len(s.FileMtimes))
	for k, v := range s.FileMtimes {
		out.FileMtimes[k] = v
	}
	out.SeenRequestIDs = append([]string{}, s.SeenRequestIDs...)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
