// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package waymirror

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// searchWindow is one expanding-window stage of the timestamp fallback.
type searchWindow struct {
	// Hours is the half-width of the window around the primary timestamp
	Hours int
	// StepHours is the spacing between candidate timestamps
	StepHours int
}

// defaultWindows expand from a quarter day out to a week, coarsening the
// step as the window grows.
func defaultWindows() []searchWindow {
	windows := make([]searchWindow, 0, 4)
	for _, h := range []int{6, 24, 72, 168} {
		step := h / 12
		if step < 1 {
			step = 1
		}
		windows = append(windows, searchWindow{Hours: h, StepHours: step})
	}
	return windows
}

// TimeframeResolver finds a nearby capture when a resource is absent at the
// primary timestamp. Candidates are generated across expanding windows,
// closest offsets first; a bounded number per window is tried before
// escalating to the next.
type TimeframeResolver struct {
	windows      []searchWindow
	maxPerWindow int
}

// NewTimeframeResolver returns a resolver with the default window schedule
// (±6h, ±24h, ±72h, ±168h) trying at most 10 candidates per window.
func NewTimeframeResolver() *TimeframeResolver {
	return &TimeframeResolver{
		windows:      defaultWindows(),
		maxPerWindow: 10,
	}
}

// Candidates generates the candidate timestamps of one window, sorted by
// ascending absolute distance from t0. The primary timestamp itself is
// excluded. Equal distances are ordered earlier-capture-first, so identical
// inputs always produce identical candidate order.
func (r *TimeframeResolver) Candidates(t0 time.Time, w searchWindow) []time.Time {
	var candidates []time.Time
	for offset := -w.Hours; offset <= w.Hours; offset += w.StepHours {
		if offset == 0 {
			continue
		}
		candidates = append(candidates, t0.Add(time.Duration(offset)*time.Hour))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		di := absDuration(candidates[i].Sub(t0))
		dj := absDuration(candidates[j].Sub(t0))
		if di != dj {
			return di < dj
		}
		return candidates[i].Before(candidates[j])
	})
	return candidates
}

// Resolve sweeps the window schedule around t0, calling try for each
// candidate until one reports success. try returns (true, nil) on success
// and (false, nil) to continue; a non-nil error aborts the sweep. Exhausting
// every window returns ErrSnapshotNotFound.
func (r *TimeframeResolver) Resolve(ctx context.Context, t0 time.Time, try func(time.Time) (bool, error)) (time.Time, error) {
	for _, w := range r.windows {
		candidates := r.Candidates(t0, w)
		if len(candidates) > r.maxPerWindow {
			candidates = candidates[:r.maxPerWindow]
		}
		for _, ts := range candidates {
			if err := ctx.Err(); err != nil {
				return time.Time{}, err
			}
			found, err := try(ts)
			if err != nil {
				return time.Time{}, err
			}
			if found {
				return ts, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("no capture within ±%dh of %s: %w",
		r.windows[len(r.windows)-1].Hours, t0.Format(TimestampLayout), ErrSnapshotNotFound)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
