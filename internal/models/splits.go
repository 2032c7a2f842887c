package models

import (
	"sort"
	"time"
)

// DefaultSplitDedupWindowDays is the window within which repeated split flags
// with the same factor collapse to the first occurrence. Upstream sources
// sometimes repeat a split flag across several adjacent trading days.
const DefaultSplitDedupWindowDays = 14

// SplitResolution names which branch the split-ambiguity heuristic chose.
type SplitResolution string

const (
	ResolutionWithSplits    SplitResolution = "with_splits"
	ResolutionWithoutSplits SplitResolution = "without_splits"
)

// SplitEvent is a stock split or reverse split derived from a price row's
// split factor. Factor is multiplicative: quantity scales by Factor, per-unit
// cost by 1/Factor. Factor is always > 0 and never 1.
type SplitEvent struct {
	Date   time.Time `json:"date"`
	Factor float64   `json:"factor"`
}

// ExtractSplitEvents pulls split events out of a price series. Rows with a
// split factor of 0 or 1 carry no event. Events with the same factor dated
// within windowDays of an already kept event are suppressed as near
// duplicates; windowDays <= 0 selects the default window.
func ExtractSplitEvents(rows []PriceRow, windowDays int) []SplitEvent {
	if windowDays <= 0 {
		windowDays = DefaultSplitDedupWindowDays
	}
	window := time.Duration(windowDays) * 24 * time.Hour

	var events []SplitEvent
	for _, r := range rows {
		if r.SplitFactor > 0 && r.SplitFactor != 1 {
			events = append(events, SplitEvent{Date: r.Date, Factor: r.SplitFactor})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

	var kept []SplitEvent
	for _, ev := range events {
		dup := false
		for _, k := range kept {
			if k.Factor == ev.Factor && ev.Date.Sub(k.Date) <= window {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, ev)
		}
	}
	return kept
}
