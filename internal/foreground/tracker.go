// Package foreground implements the session tracker: a streaming state
// machine that turns 5-second-cadence "which app owns the foreground
// window" samples into merged, clipped, filtered usage intervals.
package foreground

import (
	"sort"
	"sync"
	"time"

	"github.com/nuscape/windows-agent/internal/batch"
)

const (
	// SampleInterval is the nominal sampling cadence. The agentrt sampler
	// calls SampleTick on runtimeconfig.Config.SampleInterval, which
	// defaults to the same 5s.
	SampleInterval = 5 * time.Second

	minSessionMs = 5_000
	mergeGapMs   = 10_000
	maxSessionMs = 8 * 60 * 60 * 1000
)

// active is the in-progress foreground session, if any.
type active struct {
	pkg       string
	startedAt time.Time
	lastSeen  time.Time
}

// completedSession is a raw (pre-merge) finalized interval.
type completedSession struct {
	pkg   string
	start time.Time
	end   time.Time
}

// Tracker holds the session state machine described in spec §4.G. It is
// safe for concurrent use: Sample is called by the sampler goroutine,
// Drain by the collector goroutine.
type Tracker struct {
	mu        sync.Mutex
	current   *active
	completed []completedSession
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{}
}

// Sample applies one observation of the current foreground package (or
// none) at time now, per the transition table in spec §4.G.
func (t *Tracker) Sample(pkg string, ok bool, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.current == nil && !ok:
		// (None, None) -> no-op.
	case t.current == nil && ok:
		t.current = &active{pkg: pkg, startedAt: now, lastSeen: now}
	case t.current != nil && ok && t.current.pkg == pkg:
		t.current.lastSeen = now
	case t.current != nil && ok:
		t.finalizeLocked()
		t.current = &active{pkg: pkg, startedAt: now, lastSeen: now}
	case t.current != nil && !ok:
		t.finalizeLocked()
	}
}

// finalizeLocked closes out the current active session, pushing it onto
// completed if it meets the minimum duration. Must be called with mu
// held.
func (t *Tracker) finalizeLocked() {
	a := t.current
	t.current = nil
	if a == nil {
		return
	}
	end := a.lastSeen
	if a.startedAt.After(end) {
		end = a.startedAt
	}
	if end.Sub(a.startedAt) >= minSessionMs*time.Millisecond {
		t.completed = append(t.completed, completedSession{pkg: a.pkg, start: a.startedAt, end: end})
	}
}

// Drain returns merged UsageSession values for completed intervals within
// [now-window, now], finalizing a stale active session first if it has
// gone silent for longer than the merge gap. Drained sessions are
// consumed: they are removed from the internal completed list so a
// faster-than-window collector cycle cannot re-deliver them (spec §9,
// "post-drain retention" open question, resolved toward consumption).
func (t *Tracker) Drain(window time.Duration, now time.Time) []batch.UsageSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-window)

	if t.current != nil && now.Sub(t.current.lastSeen) > mergeGapMs*time.Millisecond {
		t.finalizeLocked()
	}

	var kept []completedSession
	var drained []completedSession
	for _, c := range t.completed {
		if c.end.Before(cutoff) {
			continue // older than the cutoff: discarded entirely
		}
		drained = append(drained, c)
	}
	t.completed = kept // everything returned this round is consumed

	return mergeAndConvert(drained)
}

// mergeAndConvert sorts by start, merges adjacent same-package intervals
// separated by at most the merge gap, drops sub-minimum intervals, and
// clips over-long ones, per spec §4.G "Merge".
func mergeAndConvert(raw []completedSession) []batch.UsageSession {
	if len(raw) == 0 {
		return nil
	}

	sorted := make([]completedSession, len(raw))
	copy(sorted, raw)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start.Before(sorted[j].start) })

	merged := make([]completedSession, 0, len(sorted))
	for _, s := range sorted {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.pkg == s.pkg && s.start.Sub(last.end) <= mergeGapMs*time.Millisecond {
				if s.end.After(last.end) {
					last.end = s.end
				}
				continue
			}
		}
		merged = append(merged, s)
	}

	var out []batch.UsageSession
	for _, m := range merged {
		totalMs := m.end.Sub(m.start).Milliseconds()
		if totalMs < minSessionMs {
			continue
		}
		if totalMs > maxSessionMs {
			m.end = m.start.Add(maxSessionMs * time.Millisecond)
			totalMs = maxSessionMs
		}
		out = append(out, batch.UsageSession{
			Package:     m.pkg,
			WindowStart: m.start,
			WindowEnd:   m.end,
			TotalMs:     uint64(totalMs),
			Foreground:  true,
		})
	}
	return out
}
