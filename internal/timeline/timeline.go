// Package timeline turns raw upstream schedule records into an ordered,
// non-overlapping programme timeline for one channel.
package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/mkaindl/epggen/internal/ustvgo"
)

// Entry is one normalized programme. Start and End are absolute instants;
// Start < End always holds after Build.
type Entry struct {
	Title string
	Desc  string
	Start time.Time
	End   time.Time
}

// Policy controls normalization decisions that are not dictated by the data.
type Policy struct {
	// DefaultDuration is assigned to a trailing record with no end.
	DefaultDuration time.Duration
	// Window bounds the timeline forward from the reference instant.
	Window time.Duration
	// PreferDescribed resolves overlaps in favor of the entry that has a
	// description. When false, the earlier start always wins.
	PreferDescribed bool
}

// DefaultPolicy matches the documented defaults: 30 minute fallback
// duration, 48 hour window, description-preferring overlap resolution.
func DefaultPolicy() Policy {
	return Policy{
		DefaultDuration: 30 * time.Minute,
		Window:          48 * time.Hour,
		PreferDescribed: true,
	}
}

// Build normalizes raw records into a timeline relative to now.
// Empty input yields an empty timeline.
func Build(records []ustvgo.Program, now time.Time, p Policy) []Entry {
	if p.DefaultDuration <= 0 {
		p.DefaultDuration = 30 * time.Minute
	}
	if p.Window <= 0 {
		p.Window = 48 * time.Hour
	}
	now = now.UTC()
	horizon := now.Add(p.Window)

	// Extract candidates; records without a title or start are unusable.
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		if rec.Name == "" || rec.StartTimestamp == 0 {
			continue
		}
		e := Entry{
			Title: rec.Name,
			Desc:  rec.Description,
			Start: time.Unix(rec.StartTimestamp, 0).UTC(),
		}
		if rec.EndTimestamp > 0 {
			e.End = time.Unix(rec.EndTimestamp, 0).UTC()
			if !e.End.After(e.Start) {
				// Malformed explicit end; treat as open-ended.
				e.End = time.Time{}
			}
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Start.Before(entries[j].Start)
	})

	entries = resolveOverlaps(entries, p)
	entries = fillEnds(entries, p)
	entries = clipToWindow(entries, now, horizon)
	return entries
}

// resolveOverlaps walks the sorted list and drops the loser of each
// overlapping pair.
func resolveOverlaps(entries []Entry, p Policy) []Entry {
	kept := entries[:0]
	for _, cand := range entries {
		if len(kept) == 0 {
			kept = append(kept, cand)
			continue
		}
		last := &kept[len(kept)-1]
		if !overlaps(*last, cand) {
			kept = append(kept, cand)
			continue
		}
		if prefer(cand, *last, p) {
			*last = cand
		}
	}
	return kept
}

// overlaps reports whether b intrudes on a. When a has no explicit end yet,
// only an identical start counts as overlap; a's end will later be clamped
// to b's start.
func overlaps(a, b Entry) bool {
	if a.Start.Equal(b.Start) {
		return true
	}
	if a.End.IsZero() {
		return false
	}
	return b.Start.Before(a.End)
}

// prefer reports whether challenger should replace incumbent.
func prefer(challenger, incumbent Entry, p Policy) bool {
	if p.PreferDescribed {
		cd, id := challenger.Desc != "", incumbent.Desc != ""
		if cd != id {
			return cd
		}
	}
	// Tie-break: earlier start wins; equal starts keep the incumbent.
	return challenger.Start.Before(incumbent.Start)
}

// fillEnds derives missing ends from the successor's start, or the default
// duration for the trailing record.
func fillEnds(entries []Entry, p Policy) []Entry {
	for i := range entries {
		if !entries[i].End.IsZero() {
			// An explicit end may still run into the successor; clamp it.
			if i+1 < len(entries) && entries[i].End.After(entries[i+1].Start) {
				entries[i].End = entries[i+1].Start
			}
			continue
		}
		if i+1 < len(entries) {
			entries[i].End = entries[i+1].Start
		} else {
			entries[i].End = entries[i].Start.Add(p.DefaultDuration)
		}
	}
	return entries
}

// clipToWindow drops fully-past entries, trims the one straddling now, and
// bounds the timeline to the forward horizon.
func clipToWindow(entries []Entry, now, horizon time.Time) []Entry {
	kept := entries[:0]
	for _, e := range entries {
		if !e.End.After(now) {
			continue // fully in the past
		}
		if e.Start.Compare(horizon) >= 0 {
			continue // beyond the window
		}
		if e.Start.Before(now) {
			e.Start = now
		}
		if e.End.After(horizon) {
			e.End = horizon
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// Validate checks the timeline invariant: every entry has Start < End and
// entries are strictly ordered without overlap.
func Validate(entries []Entry) error {
	for i, e := range entries {
		if !e.Start.Before(e.End) {
			return fmt.Errorf("entry %d (%q): start %v is not before end %v", i, e.Title, e.Start, e.End)
		}
		if i > 0 {
			prev := entries[i-1]
			if e.Start.Before(prev.End) {
				return fmt.Errorf("entry %d (%q) overlaps previous (%q)", i, e.Title, prev.Title)
			}
			if !prev.Start.Before(e.Start) {
				return fmt.Errorf("entry %d (%q): duplicate or unordered start", i, e.Title)
			}
		}
	}
	return nil
}
