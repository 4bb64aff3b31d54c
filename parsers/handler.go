package parsers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"medtrack/config"
	"medtrack/database"
	"medtrack/model"
)

// ImportResult summarizes one import run.
type ImportResult struct {
	Files               []string `json:"files"`
	RowsRead            int      `json:"rowsRead"`
	MedicationsCreated  int      `json:"medicationsCreated"`
	MedicationsMatched  int      `json:"medicationsMatched"`
	DefinitionsUpserted int      `json:"definitionsUpserted"`
	CountsUpdated       int      `json:"countsUpdated"`
}

// ImportCSVHandler imports every *.csv file in the configured import
// folder: medications are created or matched by name, package definitions
// upserted by GTIN, and legacy counts overwritten with the export's count.
func ImportCSVHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		folder := config.GetConfig().CSVImportFolderPath
		if folder == "" {
			http.Error(w, "csvImportFolderPath is not configured", http.StatusPreconditionFailed)
			return
		}

		result, err := ImportFolder(conn, folder, time.Now())
		if err != nil {
			log.Printf("Error importing CSV folder %s: %v", folder, err)
			http.Error(w, "import failed: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// ImportFolder parses and applies every CSV file in the folder inside one
// transaction so a broken file cannot leave a half-applied import.
func ImportFolder(conn *sqlx.DB, folder string, now time.Time) (*ImportResult, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read import folder %s: %w", folder, err)
	}

	result := &ImportResult{}
	var rows []model.MedicationImportRow
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		fileRows, err := ParseMedicationCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		result.Files = append(result.Files, entry.Name())
		rows = append(rows, fileRows...)
	}
	result.RowsRead = len(rows)
	if len(rows) == 0 {
		return result, nil
	}

	tx, err := conn.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	nowStamp := database.FormatDateTime(now)
	for _, row := range rows {
		med, err := database.GetMedicationByName(tx, row.Name)
		if err != nil {
			return nil, err
		}
		if med == nil {
			m := &model.Medication{
				Name:                 row.Name,
				ActiveIngredient:     row.ActiveIngredient,
				Dosage:               row.Dosage,
				PhysicianName:        row.PhysicianName,
				SafetyMarginDays:     30,
				AutoDeductionEnabled: true,
				InventoryMode:        model.InventoryModeLegacy,
				CreatedAt:            nowStamp,
				UpdatedAt:            nowStamp,
			}
			id, err := database.InsertMedication(tx, m)
			if err != nil {
				return nil, err
			}
			m.ID = id
			med = m
			result.MedicationsCreated++
		} else {
			result.MedicationsMatched++
		}

		if row.Gtin != "" && row.Quantity > 0 {
			def := &model.PackageDefinition{
				MedicationID:       med.ID,
				PackageSize:        row.PackageSize,
				Quantity:           row.Quantity,
				Gtin:               row.Gtin,
				NationalNumber:     row.NationalNumber,
				NationalNumberType: row.NationalNumberType,
			}
			if err := database.UpsertPackageDefinition(tx, def); err != nil {
				return nil, err
			}
			result.DefinitionsUpserted++
		}

		if row.CurrentCount > 0 {
			if _, err := database.GetLegacyStock(tx, med.ID); err != nil {
				return nil, err
			}
			if err := database.SetLegacyCount(tx, med.ID, row.CurrentCount, nowStamp); err != nil {
				return nil, err
			}
			result.CountsUpdated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	log.Printf("INFO: [Import] %d rows from %d files (%d new medications, %d definitions)",
		result.RowsRead, len(result.Files), result.MedicationsCreated, result.DefinitionsUpserted)
	return result, nil
}
