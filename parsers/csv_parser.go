// Package parsers reads pharmacy master CSV exports. The exports come from
// Windows tooling and arrive Windows-1252 encoded with semicolon delimiters.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"medtrack/model"
)

// Column layout of the master export. A header line is detected by a
// non-numeric quantity column and skipped.
const (
	colName = iota
	colActiveIngredient
	colDosage
	colPhysician
	colNationalNumber
	colNationalNumberType
	colPackageSize
	colQuantity
	colGtin
	colCurrentCount
	columnCount
)

// ParseMedicationCSV extracts master rows from a Windows-1252 CSV export.
// Rows with an unusable quantity are skipped rather than failing the whole
// import; the pharmacy exports routinely carry trailer lines.
func ParseMedicationCSV(r io.Reader) ([]model.MedicationImportRow, error) {
	decoded := transform.NewReader(r, charmap.Windows1252.NewDecoder())

	reader := csv.NewReader(decoded)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []model.MedicationImportRow
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV line %d: %w", line+1, err)
		}
		line++

		if len(record) < columnCount {
			continue
		}

		quantity, err := strconv.Atoi(strings.TrimSpace(record[colQuantity]))
		if err != nil {
			// Header or trailer line.
			continue
		}
		currentCount, _ := strconv.Atoi(strings.TrimSpace(record[colCurrentCount]))

		name := strings.TrimSpace(record[colName])
		if name == "" {
			continue
		}

		rows = append(rows, model.MedicationImportRow{
			Name:               name,
			ActiveIngredient:   strings.TrimSpace(record[colActiveIngredient]),
			Dosage:             strings.TrimSpace(record[colDosage]),
			PhysicianName:      strings.TrimSpace(record[colPhysician]),
			NationalNumber:     strings.TrimSpace(record[colNationalNumber]),
			NationalNumberType: strings.TrimSpace(record[colNationalNumberType]),
			PackageSize:        strings.TrimSpace(record[colPackageSize]),
			Quantity:           quantity,
			Gtin:               strings.TrimSpace(record[colGtin]),
			CurrentCount:       currentCount,
		})
	}
	return rows, nil
}
