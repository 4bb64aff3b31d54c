package database

import (
	"fmt"

	"github.com/google/uuid"

	"medtrack/model"
)

// InsertInventoryLog appends one audit entry. Every stock mutation goes
// through here; manual corrections must carry a reason in Notes.
func InsertInventoryLog(dbtx DBTX, l *model.InventoryLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO inventory_logs (
			id, medication_id, timestamp, previous_count, adjustment,
			new_count, notes
		) VALUES (
			:id, :medication_id, :timestamp, :previous_count, :adjustment,
			:new_count, :notes
		)`
	if _, err := dbtx.NamedExec(q, l); err != nil {
		return fmt.Errorf("failed to insert inventory log for medication %d: %w", l.MedicationID, err)
	}
	return nil
}

// ListInventoryLogs returns the audit trail for a medication, newest first.
func ListInventoryLogs(dbtx DBTX, medicationID int64, limit int) ([]model.InventoryLog, error) {
	var logs []model.InventoryLog
	err := dbtx.Select(&logs, `
		SELECT id, medication_id, timestamp, previous_count, adjustment,
		       new_count, notes
		FROM inventory_logs
		WHERE medication_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`, medicationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory logs for medication %d: %w", medicationID, err)
	}
	return logs, nil
}
