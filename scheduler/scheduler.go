// Package scheduler replays dose schedules and deducts the doses that came
// due since each schedule's watermark. The app has no background daemon;
// the run is triggered on startup and on demand so stock catches up even
// after days of not opening the app.
package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"medtrack/database"
	"medtrack/inventory"
	"medtrack/model"
)

// Doses further back than this are not replayed. A watermark that old means
// the data is stale enough that back-deduction would only distort stock.
const maxReplayDays = 370

// RunResult reports what one schedule contributed to a deduction run.
type RunResult struct {
	ScheduleID    int64  `json:"scheduleId"`
	MedicationID  int64  `json:"medicationId"`
	DosesDue      int    `json:"dosesDue"`
	UnitsDeducted int    `json:"unitsDeducted"`
	Skipped       string `json:"skipped,omitempty"`
}

// RunDeductions processes every schedule whose medication has auto-deduction
// enabled. A schedule without a watermark is baselined to now instead of
// back-deducting an unknown span. Insufficient stock is logged and the
// watermark still advances; replaying unaffordable doses forever would
// block all later ones.
func RunDeductions(conn *sqlx.DB, opts inventory.Options, now time.Time) ([]RunResult, error) {
	schedules, err := database.ListAutoDeductionSchedules(conn)
	if err != nil {
		return nil, err
	}

	results := make([]RunResult, 0, len(schedules))
	for i := range schedules {
		s := &schedules[i]
		res := RunResult{ScheduleID: s.ID, MedicationID: s.MedicationID}

		if s.LastDeduction == "" {
			if err := database.SetLastDeduction(conn, s.ID, database.FormatDateTime(now)); err != nil {
				return nil, err
			}
			res.Skipped = "no watermark, baselined to now"
			results = append(results, res)
			continue
		}

		since, err := time.ParseInLocation(database.DateTimeLayout, s.LastDeduction, now.Location())
		if err != nil {
			log.Printf("WARN: [Scheduler] Schedule %d has unparsable watermark %q, baselining to now", s.ID, s.LastDeduction)
			if err := database.SetLastDeduction(conn, s.ID, database.FormatDateTime(now)); err != nil {
				return nil, err
			}
			res.Skipped = "unparsable watermark, baselined to now"
			results = append(results, res)
			continue
		}
		if cutoff := now.AddDate(0, 0, -maxReplayDays); since.Before(cutoff) {
			since = cutoff
		}

		due, err := DueDoses(s, since, now)
		if err != nil {
			log.Printf("WARN: [Scheduler] Schedule %d skipped: %v", s.ID, err)
			res.Skipped = err.Error()
			results = append(results, res)
			continue
		}
		res.DosesDue = len(due)
		if len(due) == 0 {
			results = append(results, res)
			continue
		}

		units := len(due) * s.UnitsPerDose
		reason := fmt.Sprintf("scheduled doses (%d due since %s)", len(due), s.LastDeduction)
		dr, err := inventory.Deduct(conn, s.MedicationID, units, reason, opts, now)
		switch {
		case errors.Is(err, inventory.ErrInsufficientStock):
			log.Printf("WARN: [Scheduler] Medication %d has insufficient stock for %d scheduled units", s.MedicationID, units)
			res.Skipped = "insufficient stock"
		case err != nil:
			return nil, err
		default:
			res.UnitsDeducted = dr.TotalDeducted
		}

		last := due[len(due)-1]
		if err := database.SetLastDeduction(conn, s.ID, database.FormatDateTime(last)); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// DueDoses returns the dose times of a schedule in (since, now], oldest
// first.
func DueDoses(s *model.MedicationSchedule, since, now time.Time) ([]time.Time, error) {
	times, err := parseTimesOfDay(s.TimesOfDay)
	if err != nil {
		return nil, fmt.Errorf("schedule %d: %w", s.ID, err)
	}

	var weekdaySet map[int]bool
	anchor := time.Time{}
	switch s.ScheduleType {
	case model.ScheduleTypeDaily:
	case model.ScheduleTypeWeekdays:
		weekdaySet, err = parseWeekdays(s.Weekdays)
		if err != nil {
			return nil, fmt.Errorf("schedule %d: %w", s.ID, err)
		}
	case model.ScheduleTypeInterval:
		if s.IntervalDays < 1 {
			return nil, fmt.Errorf("schedule %d: interval_days must be >= 1", s.ID)
		}
		anchor, err = anchorDate(s, since, now)
		if err != nil {
			return nil, fmt.Errorf("schedule %d: %w", s.ID, err)
		}
	default:
		return nil, fmt.Errorf("schedule %d: unknown schedule type %q", s.ID, s.ScheduleType)
	}

	var due []time.Time
	day := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, now.Location())
	for !day.After(now) {
		if doseDay(s, day, weekdaySet, anchor) {
			for _, tod := range times {
				dose := day.Add(tod)
				if dose.After(since) && !dose.After(now) {
					due = append(due, dose)
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return due, nil
}

func doseDay(s *model.MedicationSchedule, day time.Time, weekdaySet map[int]bool, anchor time.Time) bool {
	switch s.ScheduleType {
	case model.ScheduleTypeDaily:
		return true
	case model.ScheduleTypeWeekdays:
		return weekdaySet[mondayIndexed(day.Weekday())]
	case model.ScheduleTypeInterval:
		days := int(day.Sub(anchor).Hours() / 24)
		return days >= 0 && days%s.IntervalDays == 0
	}
	return false
}

// anchorDate fixes the day grid of an interval schedule to its creation
// date so the cadence survives missed runs.
func anchorDate(s *model.MedicationSchedule, since, now time.Time) (time.Time, error) {
	raw := s.CreatedAt
	if raw == "" {
		raw = database.FormatDateTime(since)
	}
	t, err := time.ParseInLocation(database.DateTimeLayout, raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable created_at %q", raw)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), nil
}

// parseTimesOfDay decodes ["08:00","20:00"] into offsets from midnight.
func parseTimesOfDay(raw string) ([]time.Duration, error) {
	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("unparsable times_of_day %q: %w", raw, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("times_of_day is empty")
	}
	offsets := make([]time.Duration, 0, len(entries))
	for _, e := range entries {
		t, err := time.Parse("15:04", e)
		if err != nil {
			return nil, fmt.Errorf("invalid time of day %q: %w", e, err)
		}
		offsets = append(offsets, time.Duration(t.Hour())*time.Hour+time.Duration(t.Minute())*time.Minute)
	}
	return offsets, nil
}

// parseWeekdays decodes [0,2,4] (Monday=0) into a lookup set.
func parseWeekdays(raw string) (map[int]bool, error) {
	var days []int
	if err := json.Unmarshal([]byte(raw), &days); err != nil {
		return nil, fmt.Errorf("unparsable weekdays %q: %w", raw, err)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("weekdays is empty")
	}
	set := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("weekday %d out of range", d)
		}
		set[d] = true
	}
	return set, nil
}

func mondayIndexed(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// DailyUsage returns the average units per day a schedule consumes. Used
// by order planning.
func DailyUsage(s *model.MedicationSchedule) (float64, error) {
	times, err := parseTimesOfDay(s.TimesOfDay)
	if err != nil {
		return 0, err
	}
	perDoseDay := float64(len(times) * s.UnitsPerDose)

	switch s.ScheduleType {
	case model.ScheduleTypeDaily:
		return perDoseDay, nil
	case model.ScheduleTypeInterval:
		if s.IntervalDays < 1 {
			return 0, fmt.Errorf("schedule %d: interval_days must be >= 1", s.ID)
		}
		return perDoseDay / float64(s.IntervalDays), nil
	case model.ScheduleTypeWeekdays:
		set, err := parseWeekdays(s.Weekdays)
		if err != nil {
			return 0, err
		}
		return perDoseDay * float64(len(set)) / 7, nil
	}
	return 0, fmt.Errorf("schedule %d: unknown schedule type %q", s.ID, s.ScheduleType)
}
