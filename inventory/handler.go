package inventory

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"medtrack/config"
	"medtrack/database"
)

type deductRequest struct {
	MedicationID int64  `json:"medicationId"`
	Units        int    `json:"units"`
	Reason       string `json:"reason"`
}

// DeductHandler applies a manual deduction ("took 2 tablets").
func DeductHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		var req deductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.MedicationID == 0 || req.Units <= 0 {
			http.Error(w, "medicationId and positive units are required", http.StatusBadRequest)
			return
		}

		cfg := config.GetConfig()
		opts := Options{ClampLegacyToZero: cfg.ClampLegacyToZero}

		result, err := Deduct(conn, req.MedicationID, req.Units, req.Reason, opts, time.Now())
		if err != nil {
			if errors.Is(err, ErrInsufficientStock) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			log.Printf("Error deducting from medication %d: %v", req.MedicationID, err)
			http.Error(w, "failed to deduct stock", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

type adjustRequest struct {
	PackageID int64  `json:"packageId"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
}

// AdjustPackageHandler corrects a package count after a physical recount.
func AdjustPackageHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		var req adjustRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.PackageID == 0 || req.Reason == "" {
			http.Error(w, "packageId and reason are required", http.StatusBadRequest)
			return
		}

		pkg, err := AdjustPackage(conn, req.PackageID, req.Delta, req.Reason, time.Now())
		if err != nil {
			if errors.Is(err, ErrPackageNotAdjustable) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			log.Printf("Error adjusting package %d: %v", req.PackageID, err)
			http.Error(w, "failed to adjust package", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(pkg)
	}
}

type modeRequest struct {
	MedicationID int64  `json:"medicationId"`
	Mode         string `json:"mode"`
	Confirm      bool   `json:"confirm"`
}

// SetModeHandler switches a medication's inventory mode after confirmation.
func SetModeHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		var req modeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.MedicationID == 0 || req.Mode == "" {
			http.Error(w, "medicationId and mode are required", http.StatusBadRequest)
			return
		}

		summary, err := SetInventoryMode(conn, req.MedicationID, req.Mode, req.Confirm, time.Now())
		if err != nil {
			if errors.Is(err, ErrConfirmationRequired) {
				http.Error(w, err.Error(), http.StatusPreconditionRequired)
				return
			}
			log.Printf("Error switching inventory mode for medication %d: %v", req.MedicationID, err)
			http.Error(w, "failed to switch inventory mode", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	}
}

// ExpiringHandler lists packages expiring within ?days= (default from config).
func ExpiringHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := config.GetConfig().ExpiryWarningDays
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "days must be a non-negative integer", http.StatusBadRequest)
				return
			}
			days = n
		}

		pkgs, err := ListExpiring(conn, days, time.Now())
		if err != nil {
			log.Printf("Error listing expiring packages: %v", err)
			http.Error(w, "failed to list expiring packages", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(pkgs)
	}
}

// LogsHandler returns a medication's audit trail, newest first.
func LogsHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicationID, err := strconv.ParseInt(r.URL.Query().Get("medicationId"), 10, 64)
		if err != nil || medicationID == 0 {
			http.Error(w, "medicationId is required", http.StatusBadRequest)
			return
		}
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}

		logs, err := database.ListInventoryLogs(conn, medicationID, limit)
		if err != nil {
			log.Printf("Error listing inventory logs: %v", err)
			http.Error(w, "failed to list inventory logs", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(logs)
	}
}

// StockHandler reports a medication's combined stock position.
func StockHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicationID, err := strconv.ParseInt(r.URL.Query().Get("medicationId"), 10, 64)
		if err != nil || medicationID == 0 {
			http.Error(w, "medicationId is required", http.StatusBadRequest)
			return
		}

		legacy, err := database.GetLegacyStock(conn, medicationID)
		if err != nil {
			log.Printf("Error reading legacy stock: %v", err)
			http.Error(w, "failed to read stock", http.StatusInternalServerError)
			return
		}
		packages, err := database.GetDeductiblePackages(conn, medicationID)
		if err != nil {
			log.Printf("Error reading packages: %v", err)
			http.Error(w, "failed to read stock", http.StatusInternalServerError)
			return
		}
		packageUnits := 0
		for _, p := range packages {
			packageUnits += p.CurrentUnits
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"medicationId": medicationID,
			"legacyCount":  legacy.CurrentCount,
			"packageUnits": packageUnits,
			"total":        legacy.CurrentCount + packageUnits,
			"packages":     packages,
		})
	}
}
