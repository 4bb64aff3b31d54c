package database

import (
	"database/sql"
	"fmt"

	"medtrack/model"
)

const packageRecordColumns = `
	p.id, p.medication_id, p.scan_event_id, p.current_units, p.original_units,
	p.status, p.opened_at, p.consumed_at,
	COALESCE(s.expiry_date, '') AS expiry_date,
	COALESCE(s.serial_number, '') AS serial_number`

// InsertPackageRecord creates the owned stock record for an accepted scan.
func InsertPackageRecord(dbtx DBTX, medicationID int64, scanEventID string, units int) (int64, error) {
	res, err := dbtx.Exec(`
		INSERT INTO package_records (
			medication_id, scan_event_id, current_units, original_units, status
		) VALUES (?, ?, ?, ?, ?)`,
		medicationID, scanEventID, units, units, model.PackageStatusSealed)
	if err != nil {
		return 0, fmt.Errorf("failed to insert package record for scan %s: %w", scanEventID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read package record id: %w", err)
	}
	return id, nil
}

// GetPackageByID returns one package record or nil when absent.
func GetPackageByID(dbtx DBTX, id int64) (*model.PackageRecord, error) {
	var p model.PackageRecord
	err := dbtx.Get(&p, `
		SELECT `+packageRecordColumns+`
		FROM package_records p
		LEFT JOIN scan_events s ON s.id = p.scan_event_id
		WHERE p.id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get package record %d: %w", id, err)
	}
	return &p, nil
}

// GetDeductiblePackages returns the sealed and open packages of a
// medication in First-Expire-First-Out order: expiry ascending, packages
// without a parsable date last, scan time as the tie breaker.
func GetDeductiblePackages(dbtx DBTX, medicationID int64) ([]model.PackageRecord, error) {
	var pkgs []model.PackageRecord
	err := dbtx.Select(&pkgs, `
		SELECT `+packageRecordColumns+`
		FROM package_records p
		JOIN scan_events s ON s.id = p.scan_event_id
		WHERE p.medication_id = ?
		  AND p.status IN (?, ?)
		ORDER BY
			CASE WHEN s.expiry_date = '' THEN 1 ELSE 0 END,
			s.expiry_date ASC,
			s.scanned_at ASC`,
		medicationID, model.PackageStatusSealed, model.PackageStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list deductible packages for medication %d: %w", medicationID, err)
	}
	return pkgs, nil
}

// UpdatePackageState writes units, status and the status timestamps back.
func UpdatePackageState(dbtx DBTX, p *model.PackageRecord) error {
	_, err := dbtx.Exec(`
		UPDATE package_records
		SET current_units = ?, status = ?, opened_at = ?, consumed_at = ?
		WHERE id = ?`,
		p.CurrentUnits, p.Status, p.OpenedAt, p.ConsumedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update package record %d: %w", p.ID, err)
	}
	return nil
}

// MarkPackageExpired performs the lazy status transition. A package does
// not un-expire, so the update is unconditional once the date has passed.
func MarkPackageExpired(dbtx DBTX, packageID int64) error {
	_, err := dbtx.Exec(`
		UPDATE package_records SET status = ? WHERE id = ?`,
		model.PackageStatusExpired, packageID)
	if err != nil {
		return fmt.Errorf("failed to mark package %d expired: %w", packageID, err)
	}
	return nil
}

// SumActivePackageUnits totals the remaining units over sealed and open
// packages of a medication.
func SumActivePackageUnits(dbtx DBTX, medicationID int64) (int, error) {
	var total sql.NullInt64
	err := dbtx.Get(&total, `
		SELECT SUM(current_units)
		FROM package_records
		WHERE medication_id = ? AND status IN (?, ?)`,
		medicationID, model.PackageStatusSealed, model.PackageStatusOpen)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to sum package units for medication %d: %w", medicationID, err)
	}
	return int(total.Int64), nil
}

// ListExpiringPackages returns sealed/open packages whose expiry date falls
// on or before the given cutoff (YYYY-MM-DD), soonest first.
func ListExpiringPackages(dbtx DBTX, cutoff string) ([]model.PackageRecord, error) {
	var pkgs []model.PackageRecord
	err := dbtx.Select(&pkgs, `
		SELECT `+packageRecordColumns+`
		FROM package_records p
		JOIN scan_events s ON s.id = p.scan_event_id
		WHERE p.status IN (?, ?)
		  AND s.expiry_date != ''
		  AND s.expiry_date <= ?
		ORDER BY s.expiry_date ASC, s.scanned_at ASC`,
		model.PackageStatusSealed, model.PackageStatusOpen, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring packages: %w", err)
	}
	return pkgs, nil
}

// ConsumePackagesForReconciliation zeroes out the active packages of a
// medication when the user confirms a switch back to legacy counting.
func ConsumePackagesForReconciliation(dbtx DBTX, medicationID int64, consumedAt string) error {
	_, err := dbtx.Exec(`
		UPDATE package_records
		SET current_units = 0, status = ?, consumed_at = ?
		WHERE medication_id = ? AND status IN (?, ?)`,
		model.PackageStatusConsumed, consumedAt,
		medicationID, model.PackageStatusSealed, model.PackageStatusOpen)
	if err != nil {
		return fmt.Errorf("failed to consume packages for medication %d: %w", medicationID, err)
	}
	return nil
}
