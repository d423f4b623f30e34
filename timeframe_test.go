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
	"errors"
	"testing"
	"time"
)

func TestCandidatesOrdering(t *testing.T) {
	r := NewTimeframeResolver()
	t0, _ := ParseTimestamp("20080215120000")

	for _, w := range defaultWindows() {
		candidates := r.Candidates(t0, w)
		if len(candidates) == 0 {
			t.Fatalf("window %+v produced no candidates", w)
		}

		prev := time.Duration(-1)
		for i, c := range candidates {
			if c.Equal(t0) {
				t.Errorf("window %+v includes the primary timestamp", w)
			}
			d := absDuration(c.Sub(t0))
			if d < prev {
				t.Errorf("window %+v candidate %d out of order: %v after %v", w, i, d, prev)
			}
			prev = d
		}
	}
}

func TestCandidatesTieBreakEarlierFirst(t *testing.T) {
	r := NewTimeframeResolver()
	t0, _ := ParseTimestamp("20080215120000")

	candidates := r.Candidates(t0, searchWindow{Hours: 6, StepHours: 1})
	// First pair is the ±1h tie; the earlier capture must come first.
	if !candidates[0].Before(t0) {
		t.Errorf("first candidate %v should be before primary", candidates[0])
	}
	if !candidates[1].After(t0) {
		t.Errorf("second candidate %v should be after primary", candidates[1])
	}
	if absDuration(candidates[0].Sub(t0)) != absDuration(candidates[1].Sub(t0)) {
		t.Error("first two candidates should be equidistant")
	}
}

func TestCandidatesDeterministic(t *testing.T) {
	r := NewTimeframeResolver()
	t0, _ := ParseTimestamp("20080215120000")
	w := searchWindow{Hours: 24, StepHours: 2}

	a := r.Candidates(t0, w)
	b := r.Candidates(t0, w)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Fatalf("candidate %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestResolveFindsNearestCapture(t *testing.T) {
	r := NewTimeframeResolver()
	t0, _ := ParseTimestamp("20080215120000")
	available := t0.Add(3 * time.Hour)

	var tried []time.Time
	ts, err := r.Resolve(context.Background(), t0, func(c time.Time) (bool, error) {
		tried = append(tried, c)
		return c.Equal(available), nil
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ts.Equal(available) {
		t.Errorf("resolved %v, want %v", ts, available)
	}
	// Everything tried before the hit must be at least as close to t0.
	for _, c := range tried[:len(tried)-1] {
		if absDuration(c.Sub(t0)) > 3*time.Hour {
			t.Errorf("tried %v before a closer candidate", c)
		}
	}
}

func TestResolveExhaustionReturnsNotFound(t *testing.T) {
	r := NewTimeframeResolver()
	t0, _ := ParseTimestamp("20080215120000")

	_, err := r.Resolve(context.Background(), t0, func(time.Time) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestResolveBoundedPerWindow(t *testing.T) {
	r := NewTimeframeResolver()
	t0, _ := ParseTimestamp("20080215120000")

	count := 0
	_, _ = r.Resolve(context.Background(), t0, func(time.Time) (bool, error) {
		count++
		return false, nil
	})
	max := r.maxPerWindow * len(r.windows)
	if count > max {
		t.Errorf("tried %d candidates, window cap allows at most %d", count, max)
	}
}

func TestResolveRespectsCancellation(t *testing.T) {
	r := NewTimeframeResolver()
	t0, _ := ParseTimestamp("20080215120000")

	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	_, err := r.Resolve(ctx, t0, func(time.Time) (bool, error) {
		count++
		if count == 2 {
			cancel()
		}
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if count > 2 {
		t.Errorf("resolver kept trying after cancellation: %d attempts", count)
	}
}

func TestResolveAbortsOnError(t *testing.T) {
	r := NewTimeframeResolver()
	t0, _ := ParseTimestamp("20080215120000")

	boom := errors.New("backend exploded")
	_, err := r.Resolve(context.Background(), t0, func(time.Time) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
}
