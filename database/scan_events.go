package database

import (
	"database/sql"
	"fmt"

	"medtrack/model"
)

const scanEventColumns = `
	id, medication_id, gtin, national_number, national_number_type,
	country_code, checksum_valid, serial_number, batch_number, expiry_date,
	raw_payload, scanned_at`

// InsertScanEvent persists one scan. The UNIQUE index on
// (gtin, serial_number) makes the duplicate check atomic with the insert,
// so two near-simultaneous scans of a cloned label cannot both succeed;
// the caller translates the constraint error.
func InsertScanEvent(dbtx DBTX, e *model.ScanEvent) error {
	const q = `
		INSERT INTO scan_events (
			id, medication_id, gtin, national_number, national_number_type,
			country_code, checksum_valid, serial_number, batch_number,
			expiry_date, raw_payload, scanned_at
		) VALUES (
			:id, :medication_id, :gtin, :national_number, :national_number_type,
			:country_code, :checksum_valid, :serial_number, :batch_number,
			:expiry_date, :raw_payload, :scanned_at
		)`
	if _, err := dbtx.NamedExec(q, e); err != nil {
		return fmt.Errorf("failed to insert scan event for serial %s: %w", e.SerialNumber, err)
	}
	return nil
}

// GetScanEventBySerial looks up an earlier scan of the same label, used to
// report details alongside a duplicate-scan rejection.
func GetScanEventBySerial(dbtx DBTX, gtin, serial string) (*model.ScanEvent, error) {
	var e model.ScanEvent
	err := dbtx.Get(&e, `
		SELECT `+scanEventColumns+`
		FROM scan_events
		WHERE gtin = ? AND serial_number = ?`, gtin, serial)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan event for serial %s: %w", serial, err)
	}
	return &e, nil
}

// GetScanEventByID returns one scan event or nil when absent.
func GetScanEventByID(dbtx DBTX, id string) (*model.ScanEvent, error) {
	var e model.ScanEvent
	err := dbtx.Get(&e, `
		SELECT `+scanEventColumns+`
		FROM scan_events
		WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan event %s: %w", id, err)
	}
	return &e, nil
}
