package status

import (
	"strings"
	"time"

	"github.com/TPI-Manager/TPI-Manager/internal/models"
)

// absoluteLayouts are tried in order when a time field carries a date
// component. Unparsable values are treated as absent.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Result carries the derived lifecycle fields of a time-bounded record.
// TimeToStart and TimeRemaining are in whole seconds; nil means unknown.
type Result struct {
	Status        models.RecordStatus
	TimeToStart   *int64
	TimeRemaining *int64
}

// Evaluator derives record status from its day and time window.
//
// DayGateAbsolute controls whether the weekday restriction also applies to
// records whose start/end are absolute timestamps (one-off events). The
// portal historically disagreed with itself here; the gate is applied
// uniformly by default and can be relaxed through configuration.
type Evaluator struct {
	DayGateAbsolute bool
}

// NewEvaluator returns an evaluator with the chosen weekday-gate policy.
func NewEvaluator(dayGateAbsolute bool) Evaluator {
	return Evaluator{DayGateAbsolute: dayGateAbsolute}
}

// Evaluate computes the lifecycle of a record at the given instant.
func (e Evaluator) Evaluate(now time.Time, days []string, startRaw, endRaw string) Result {
	start := resolveInstant(now, startRaw)
	end := resolveInstant(now, endRaw)

	gated := e.DayGateAbsolute || !bothAbsolute(startRaw, endRaw)
	if gated && len(days) > 0 && !containsDay(days, now.Weekday().String()) {
		return Result{Status: models.StatusInactive}
	}

	switch {
	case start != nil && now.Before(*start):
		toStart := secondsUntil(now, *start)
		res := Result{Status: models.StatusUpcoming, TimeToStart: &toStart}
		if end != nil {
			remaining := secondsUntil(now, *end)
			res.TimeRemaining = &remaining
		}
		return res

	case end != nil && now.After(*end):
		zero := int64(0)
		return Result{Status: models.StatusExpired, TimeToStart: &zero, TimeRemaining: &zero}

	default:
		zero := int64(0)
		res := Result{Status: models.StatusActive, TimeToStart: &zero}
		if end != nil {
			remaining := secondsUntil(now, *end)
			res.TimeRemaining = &remaining
		}
		return res
	}
}

// Apply annotates the record in place with its derived fields.
func (e Evaluator) Apply(now time.Time, rec *models.Record) {
	if rec == nil {
		return
	}
	res := e.Evaluate(now, rec.Days, rec.StartTime, rec.EndTime)
	rec.Status = res.Status
	rec.TimeToStart = res.TimeToStart
	rec.TimeRemaining = res.TimeRemaining
}

// resolveInstant turns a raw time field into an instant. Bare "HH:MM" is
// combined with the current calendar date in the evaluation zone; anything
// containing a date separator parses as an absolute timestamp. Malformed
// values resolve to nil rather than erroring: a record with a broken time
// field behaves as if the field were absent.
func resolveInstant(now time.Time, raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if isAbsolute(raw) {
		for _, layout := range absoluteLayouts {
			if ts, err := time.ParseInLocation(layout, raw, now.Location()); err == nil {
				return &ts
			}
		}
		return nil
	}

	clock, err := time.Parse("15:04", raw)
	if err != nil {
		return nil
	}
	ts := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
	return &ts
}

func isAbsolute(raw string) bool {
	return strings.ContainsAny(raw, "-/TZ") || strings.Count(raw, ":") > 1
}

// AbsoluteEnd reports whether the raw end value is a one-off timestamp
// rather than a recurring daily clock time. Cleanup only retires records
// whose window can never open again.
func AbsoluteEnd(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw != "" && isAbsolute(raw)
}

func bothAbsolute(startRaw, endRaw string) bool {
	start := strings.TrimSpace(startRaw)
	end := strings.TrimSpace(endRaw)
	if start == "" && end == "" {
		return false
	}
	if start != "" && !isAbsolute(start) {
		return false
	}
	if end != "" && !isAbsolute(end) {
		return false
	}
	return true
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if strings.EqualFold(strings.TrimSpace(d), day) {
			return true
		}
	}
	return false
}

func secondsUntil(now, target time.Time) int64 {
	secs := int64(target.Sub(now) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
