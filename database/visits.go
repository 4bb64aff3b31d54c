package database

import (
	"database/sql"
	"fmt"

	"medtrack/model"
)

// InsertVisit records a physician visit.
func InsertVisit(dbtx DBTX, v *model.PhysicianVisit) (int64, error) {
	res, err := dbtx.Exec(`
		INSERT INTO physician_visits (physician_name, visit_date, notes, created_at)
		VALUES (?, ?, ?, ?)`,
		v.PhysicianName, v.VisitDate, v.Notes, v.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert visit on %s: %w", v.VisitDate, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read visit id: %w", err)
	}
	return id, nil
}

// ListVisits returns all visits, soonest first.
func ListVisits(dbtx DBTX) ([]model.PhysicianVisit, error) {
	var visits []model.PhysicianVisit
	err := dbtx.Select(&visits, `
		SELECT id, physician_name, visit_date, notes, created_at
		FROM physician_visits
		ORDER BY visit_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

// GetNextVisitDate returns the first visit on or after the given date
// (YYYY-MM-DD), or "" when none is planned.
func GetNextVisitDate(dbtx DBTX, from string) (string, error) {
	var date string
	err := dbtx.Get(&date, `
		SELECT visit_date
		FROM physician_visits
		WHERE visit_date >= ?
		ORDER BY visit_date ASC
		LIMIT 1`, from)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get next visit date: %w", err)
	}
	return date, nil
}
