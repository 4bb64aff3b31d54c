package database

import (
	"database/sql"
	"fmt"

	"medtrack/model"
)

const packageDefinitionColumns = `
	id, medication_id, package_size, quantity, gtin,
	national_number, national_number_type`

// GetDefinitionByGtin finds the package-size definition for a product code.
func GetDefinitionByGtin(dbtx DBTX, gtin string) (*model.PackageDefinition, error) {
	var d model.PackageDefinition
	err := dbtx.Get(&d, `
		SELECT `+packageDefinitionColumns+`
		FROM package_definitions
		WHERE gtin = ?`, gtin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get package definition for gtin %s: %w", gtin, err)
	}
	return &d, nil
}

// GetDefinitionByNationalNumber is the fallback lookup when a scan carries
// a national number but the GTIN is not registered yet.
func GetDefinitionByNationalNumber(dbtx DBTX, number, numberType string) (*model.PackageDefinition, error) {
	var d model.PackageDefinition
	err := dbtx.Get(&d, `
		SELECT `+packageDefinitionColumns+`
		FROM package_definitions
		WHERE national_number = ? AND national_number_type = ?`, number, numberType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get package definition for %s %s: %w", numberType, number, err)
	}
	return &d, nil
}

// ListDefinitionsForMedication returns the registered package sizes,
// smallest first, for order fitting.
func ListDefinitionsForMedication(dbtx DBTX, medicationID int64) ([]model.PackageDefinition, error) {
	var defs []model.PackageDefinition
	err := dbtx.Select(&defs, `
		SELECT `+packageDefinitionColumns+`
		FROM package_definitions
		WHERE medication_id = ?
		ORDER BY quantity ASC`, medicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list package definitions for medication %d: %w", medicationID, err)
	}
	return defs, nil
}

// UpsertPackageDefinition inserts or refreshes a definition keyed by GTIN.
func UpsertPackageDefinition(dbtx DBTX, d *model.PackageDefinition) error {
	const q = `
		INSERT INTO package_definitions (
			medication_id, package_size, quantity, gtin,
			national_number, national_number_type
		) VALUES (
			:medication_id, :package_size, :quantity, :gtin,
			:national_number, :national_number_type
		)
		ON CONFLICT(gtin) DO UPDATE SET
			medication_id = excluded.medication_id,
			package_size = excluded.package_size,
			quantity = excluded.quantity,
			national_number = excluded.national_number,
			national_number_type = excluded.national_number_type`
	if _, err := dbtx.NamedExec(q, d); err != nil {
		return fmt.Errorf("failed to upsert package definition for gtin %s: %w", d.Gtin, err)
	}
	return nil
}
