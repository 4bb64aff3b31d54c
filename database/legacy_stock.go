package database

import (
	"database/sql"
	"fmt"

	"medtrack/model"
)

// GetLegacyStock returns the aggregate counter for a medication, creating
// a zero row lazily so every medication always has one.
func GetLegacyStock(dbtx DBTX, medicationID int64) (*model.LegacyStock, error) {
	var s model.LegacyStock
	err := dbtx.Get(&s, `
		SELECT medication_id, current_count, last_updated
		FROM legacy_stock
		WHERE medication_id = ?`, medicationID)
	if err == sql.ErrNoRows {
		if _, err := dbtx.Exec(`
			INSERT INTO legacy_stock (medication_id, current_count, last_updated)
			VALUES (?, 0, '')`, medicationID); err != nil {
			return nil, fmt.Errorf("failed to create legacy stock row for medication %d: %w", medicationID, err)
		}
		return &model.LegacyStock{MedicationID: medicationID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get legacy stock for medication %d: %w", medicationID, err)
	}
	return &s, nil
}

// SetLegacyCount writes the counter back.
func SetLegacyCount(dbtx DBTX, medicationID int64, count int, updatedAt string) error {
	_, err := dbtx.Exec(`
		UPDATE legacy_stock
		SET current_count = ?, last_updated = ?
		WHERE medication_id = ?`, count, updatedAt, medicationID)
	if err != nil {
		return fmt.Errorf("failed to set legacy count for medication %d: %w", medicationID, err)
	}
	return nil
}
