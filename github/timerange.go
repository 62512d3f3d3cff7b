/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package github

import (
	"fmt"
	"strings"
	"time"
)

// TimeRange is the merged-at window a fetch filters on.
type TimeRange struct {
	Start time.Time
	End   time.Time
	// Spec is the original specification string, kept for display.
	Spec string
}

// Contains reports whether t falls within the window (inclusive).
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && !t.After(tr.End)
}

// ParseTimeRange parses a time range specification relative to now.
// Accepted forms: "1w", "1m", "6m", "1y", "custom:START", "custom:START:END"
// (dates as YYYY-MM-DD or RFC 3339), or a bare ISO date meaning "since then".
func ParseTimeRange(spec string, now time.Time) (TimeRange, error) {
	tr := TimeRange{End: now, Spec: spec}

	switch spec {
	case "1w":
		tr.Start = now.AddDate(0, 0, -7)
		return tr, nil
	case "1m":
		tr.Start = now.AddDate(0, 0, -30)
		return tr, nil
	case "6m":
		tr.Start = now.AddDate(0, 0, -180)
		return tr, nil
	case "1y":
		tr.Start = now.AddDate(0, 0, -365)
		return tr, nil
	}

	if rest, ok := strings.CutPrefix(spec, "custom:"); ok {
		start, end, err := parseCustomRange(rest, now)
		if err != nil {
			return tr, fmt.Errorf("invalid custom date format, use 'custom:START' or 'custom:START:END' with YYYY-MM-DD or RFC 3339 dates: %w", err)
		}
		tr.Start, tr.End = start, end
		if tr.End.Before(tr.Start) {
			return tr, fmt.Errorf("time range end %s precedes start %s", tr.End.Format(time.DateOnly), tr.Start.Format(time.DateOnly))
		}
		return tr, nil
	}

	// A bare date means "from then until now".
	start, _, err := parseDate(spec)
	if err != nil {
		return tr, fmt.Errorf("invalid time range %q: use '1w', '1m', '6m', '1y', 'custom:START[:END]', or an ISO date", spec)
	}
	tr.Start = start
	return tr, nil
}

// parseCustomRange parses START or START:END. RFC 3339 starts contain colons
// themselves, so the separator is found by trying each colon until both sides
// parse as dates.
func parseCustomRange(rest string, now time.Time) (start, end time.Time, err error) {
	// The whole string as a single start date, ending now.
	if t, _, err := parseDate(rest); err == nil {
		return t, now, nil
	}
	for i := range len(rest) {
		if rest[i] != ':' {
			continue
		}
		s, _, errStart := parseDate(rest[:i])
		e, endDateOnly, errEnd := parseDate(rest[i+1:])
		if errStart != nil || errEnd != nil {
			continue
		}
		// An end date without a time means the whole day.
		if endDateOnly {
			e = e.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return s, e, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("cannot parse %q", rest)
}

// parseDate accepts YYYY-MM-DD or RFC 3339, reporting which form matched.
func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	return t, false, err
}
