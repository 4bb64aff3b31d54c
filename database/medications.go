package database

import (
	"database/sql"
	"fmt"

	"medtrack/model"
)

const medicationColumns = `
	id, name, active_ingredient, dosage, physician_name, min_threshold,
	safety_margin_days, auto_deduction_enabled, inventory_mode,
	created_at, updated_at`

// GetMedicationByID returns one medication or nil when absent.
func GetMedicationByID(dbtx DBTX, id int64) (*model.Medication, error) {
	var m model.Medication
	err := dbtx.Get(&m, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medication %d: %w", id, err)
	}
	return &m, nil
}

// ListMedications returns all medications ordered by name.
func ListMedications(dbtx DBTX) ([]model.Medication, error) {
	var meds []model.Medication
	err := dbtx.Select(&meds, `
		SELECT `+medicationColumns+`
		FROM medications
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return meds, nil
}

// GetMedicationByName returns one medication or nil when absent. Imports
// match on the exact name of the master export.
func GetMedicationByName(dbtx DBTX, name string) (*model.Medication, error) {
	var m model.Medication
	err := dbtx.Get(&m, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE name = ?`, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medication %q: %w", name, err)
	}
	return &m, nil
}

// InsertMedication creates a medication and its legacy stock row.
func InsertMedication(dbtx DBTX, m *model.Medication) (int64, error) {
	res, err := dbtx.Exec(`
		INSERT INTO medications (
			name, active_ingredient, dosage, physician_name, min_threshold,
			safety_margin_days, auto_deduction_enabled, inventory_mode,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.ActiveIngredient, m.Dosage, m.PhysicianName, m.MinThreshold,
		m.SafetyMarginDays, m.AutoDeductionEnabled, m.InventoryMode,
		m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert medication %s: %w", m.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read medication id: %w", err)
	}
	if _, err := dbtx.Exec(`
		INSERT INTO legacy_stock (medication_id, current_count, last_updated)
		VALUES (?, 0, ?)`, id, m.CreatedAt); err != nil {
		return 0, fmt.Errorf("failed to create legacy stock for medication %d: %w", id, err)
	}
	return id, nil
}

// SetInventoryMode stores the authoritative stock representation choice.
func SetInventoryMode(dbtx DBTX, medicationID int64, mode, updatedAt string) error {
	_, err := dbtx.Exec(`
		UPDATE medications
		SET inventory_mode = ?, updated_at = ?
		WHERE id = ?`, mode, updatedAt, medicationID)
	if err != nil {
		return fmt.Errorf("failed to set inventory mode for medication %d: %w", medicationID, err)
	}
	return nil
}
