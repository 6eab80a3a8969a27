// Package progress derives an internship's completion percentage from attendance.
package progress

import (
	"math"
	"strings"
	"time"

	"internship/internal/identity"
	"internship/internal/model"
)

// MaxRangeDays is the longest internship range accepted. Longer ranges, usually a
// mistyped year, are treated as invalid.
const MaxRangeDays = 3660

// ParseDate accepts an ISO calendar date, optionally followed by a time part.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(model.DateLayout) {
		return time.Time{}, false
	}
	d, err := time.Parse(model.DateLayout, s[:len(model.DateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Range resolves the inclusive internship date range, preferring the top-level fields.
func Range(r model.Request) (start, end time.Time, ok bool) {
	startRaw := firstNonEmpty(r.StartDate, r.Details.StartDate)
	endRaw := firstNonEmpty(r.EndDate, r.Details.EndDate)
	start, okStart := ParseDate(startRaw)
	end, okEnd := ParseDate(endRaw)
	if !okStart || !okEnd || end.Before(start) || spanDays(start, end) > MaxRangeDays {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// Days enumerates every calendar date of the inclusive range as YYYY-MM-DD. It returns nil
// for an empty range or one longer than MaxRangeDays.
func Days(start, end time.Time) []string {
	n := spanDays(start, end)
	if n <= 0 || n > MaxRangeDays {
		return nil
	}
	out := make([]string, 0, n)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(model.DateLayout))
	}
	return out
}

// spanDays counts the calendar dates of the inclusive range. Dates parse at UTC midnight.
func spanDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Calculate returns the share of the internship's days covered by distinct attendance days,
// as an integer percentage in [0, 100]. Requests that have not started yield 0. idCandidates and
// nameCandidates extend the request's own identity values.
func Calculate(r model.Request, checkins []model.CheckinEntry, idCandidates, nameCandidates []string) int {
	if r.Status != model.StatusInProgress && r.Status != model.StatusCompleted {
		return 0
	}
	start, end, ok := Range(r)
	if !ok {
		return 0
	}
	days := Days(start, end)
	if len(days) == 0 {
		return 0
	}
	inRange := make(map[string]bool, len(days))
	for _, d := range days {
		inRange[d] = true
	}

	ids := identity.Merge(identity.RequestIDs(r), idCandidates)
	names := identity.Merge(identity.RequestNames(r), nameCandidates)
	if len(ids) == 0 && len(names) == 0 {
		return 0
	}

	matched := make(map[string]struct{})
	for _, c := range checkins {
		d, ok := ParseDate(c.Date)
		if !ok {
			continue
		}
		key := d.Format(model.DateLayout)
		if !inRange[key] {
			continue
		}
		if contains(ids, identity.Normalize(c.StudentID)) || contains(names, identity.Normalize(c.StudentName)) {
			matched[key] = struct{}{}
		}
	}

	pct := int(math.Round(100 * float64(len(matched)) / float64(len(days))))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func contains(set []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
