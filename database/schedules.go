package database

import (
	"fmt"

	"medtrack/model"
)

const scheduleColumns = `
	id, medication_id, schedule_type, times_of_day, interval_days,
	weekdays, units_per_dose, last_deduction, created_at`

// InsertSchedule creates a dose schedule.
func InsertSchedule(dbtx DBTX, s *model.MedicationSchedule) (int64, error) {
	res, err := dbtx.Exec(`
		INSERT INTO medication_schedules (
			medication_id, schedule_type, times_of_day, interval_days,
			weekdays, units_per_dose, last_deduction, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.MedicationID, s.ScheduleType, s.TimesOfDay, s.IntervalDays,
		s.Weekdays, s.UnitsPerDose, s.LastDeduction, s.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert schedule for medication %d: %w", s.MedicationID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read schedule id: %w", err)
	}
	return id, nil
}

// ListSchedulesForMedication returns the dose schedules of one medication.
func ListSchedulesForMedication(dbtx DBTX, medicationID int64) ([]model.MedicationSchedule, error) {
	var schedules []model.MedicationSchedule
	err := dbtx.Select(&schedules, `
		SELECT `+scheduleColumns+`
		FROM medication_schedules
		WHERE medication_id = ?`, medicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules for medication %d: %w", medicationID, err)
	}
	return schedules, nil
}

// ListAutoDeductionSchedules returns all schedules whose medication has
// auto-deduction enabled.
func ListAutoDeductionSchedules(dbtx DBTX) ([]model.MedicationSchedule, error) {
	var schedules []model.MedicationSchedule
	err := dbtx.Select(&schedules, `
		SELECT s.id, s.medication_id, s.schedule_type, s.times_of_day,
		       s.interval_days, s.weekdays, s.units_per_dose,
		       s.last_deduction, s.created_at
		FROM medication_schedules s
		JOIN medications m ON m.id = s.medication_id
		WHERE m.auto_deduction_enabled = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-deduction schedules: %w", err)
	}
	return schedules, nil
}

// SetLastDeduction moves the schedule's deduction watermark.
func SetLastDeduction(dbtx DBTX, scheduleID int64, lastDeduction string) error {
	_, err := dbtx.Exec(`
		UPDATE medication_schedules
		SET last_deduction = ?
		WHERE id = ?`, lastDeduction, scheduleID)
	if err != nil {
		return fmt.Errorf("failed to set last deduction for schedule %d: %w", scheduleID, err)
	}
	return nil
}
