package scanner

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"medtrack/barcode"
	"medtrack/config"
	"medtrack/database"
	"medtrack/model"
)

type scanRequest struct {
	Barcode string `json:"barcode"`
}

// ScanHandler accepts a raw payload from the camera/scanner UI and returns
// the stored scan event. Parse failures ask for a rescan; duplicate serials
// are surfaced with the details of the earlier scan and never retried.
func ScanHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Barcode == "" {
			http.Error(w, "barcode payload is required", http.StatusBadRequest)
			return
		}

		cfg := config.GetConfig()
		opts := Options{RejectInvalidChecksum: cfg.RejectInvalidChecksum}

		result, err := ParseScan(conn, req.Barcode, opts, time.Now())
		if err != nil {
			writeScanError(w, conn, req.Barcode, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func writeScanError(w http.ResponseWriter, conn *sqlx.DB, raw string, err error) {
	switch {
	case errors.Is(err, barcode.ErrMalformedPayload):
		http.Error(w, "unreadable code, please rescan", http.StatusBadRequest)
	case errors.Is(err, ErrInvalidChecksum):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrUnknownProduct):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrDuplicateSerial):
		writeDuplicateDetails(w, conn, raw)
	default:
		log.Printf("Error processing scan: %v", err)
		http.Error(w, "failed to process scan", http.StatusInternalServerError)
	}
}

// writeDuplicateDetails re-tokenizes the payload to locate the earlier scan
// so the UI can show when and for which medication it was recorded.
func writeDuplicateDetails(w http.ResponseWriter, conn *sqlx.DB, raw string) {
	resp := map[string]interface{}{
		"error": "package already in inventory",
	}
	if pc, err := barcode.Tokenize(raw); err == nil {
		code, _ := pc.ProductCode()
		if prev, err := database.GetScanEventBySerial(conn, code, pc.Serial()); err == nil && prev != nil {
			details := map[string]interface{}{
				"scannedAt":    prev.ScannedAt,
				"serialNumber": prev.SerialNumber,
			}
			if med, err := database.GetMedicationByID(conn, prev.MedicationID); err == nil && med != nil {
				details["medication"] = med.Name
			}
			resp["details"] = details
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	json.NewEncoder(w).Encode(resp)
}

// RegisterPackageHandler upserts a package-size definition so future scans
// of that product code can be matched to a medication.
func RegisterPackageHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		var def model.PackageDefinition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			http.Error(w, "invalid package definition: "+err.Error(), http.StatusBadRequest)
			return
		}
		if def.MedicationID == 0 || def.Quantity <= 0 || def.Gtin == "" {
			http.Error(w, "medicationId, quantity and gtin are required", http.StatusBadRequest)
			return
		}

		if err := database.UpsertPackageDefinition(conn, &def); err != nil {
			log.Printf("Error upserting package definition: %v", err)
			http.Error(w, "failed to save package definition", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(def)
	}
}
