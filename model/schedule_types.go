package model

// Schedule types for automatic deduction.
const (
	ScheduleTypeDaily    = "daily"
	ScheduleTypeInterval = "interval"
	ScheduleTypeWeekdays = "weekdays"
)

// MedicationSchedule describes when and how much of a medication is taken.
// TimesOfDay and Weekdays are stored as JSON arrays, e.g. ["08:00","20:00"]
// and [0,2,4] (Monday=0).
type MedicationSchedule struct {
	ID            int64  `db:"id" json:"id"`
	MedicationID  int64  `db:"medication_id" json:"medicationId"`
	ScheduleType  string `db:"schedule_type" json:"scheduleType"`
	TimesOfDay    string `db:"times_of_day" json:"timesOfDay"`
	IntervalDays  int    `db:"interval_days" json:"intervalDays"`
	Weekdays      string `db:"weekdays" json:"weekdays"`
	UnitsPerDose  int    `db:"units_per_dose" json:"unitsPerDose"`
	LastDeduction string `db:"last_deduction" json:"lastDeduction"`
	CreatedAt     string `db:"created_at" json:"createdAt"`
}
