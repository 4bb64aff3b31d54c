package scheduler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"medtrack/config"
	"medtrack/database"
	"medtrack/inventory"
	"medtrack/model"
)

// RunHandler triggers a catch-up deduction run.
func RunHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		cfg := config.GetConfig()
		results, err := RunDeductions(conn, inventory.Options{ClampLegacyToZero: cfg.ClampLegacyToZero}, time.Now())
		if err != nil {
			log.Printf("Error running scheduled deductions: %v", err)
			http.Error(w, "failed to run scheduled deductions", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(results)
	}
}

// CreateScheduleHandler stores a new dose schedule after validating it
// against the schedule grammar.
func CreateScheduleHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		var s model.MedicationSchedule
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			http.Error(w, "invalid schedule: "+err.Error(), http.StatusBadRequest)
			return
		}
		if s.MedicationID == 0 || s.UnitsPerDose <= 0 {
			http.Error(w, "medicationId and positive unitsPerDose are required", http.StatusBadRequest)
			return
		}
		if s.Weekdays == "" {
			s.Weekdays = "[]"
		}
		if s.IntervalDays == 0 {
			s.IntervalDays = 1
		}
		s.CreatedAt = database.FormatDateTime(time.Now())

		// A dry run against the parser catches malformed JSON fields early.
		if _, err := DueDoses(&s, time.Now(), time.Now()); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		id, err := database.InsertSchedule(conn, &s)
		if err != nil {
			log.Printf("Error inserting schedule: %v", err)
			http.Error(w, "failed to save schedule", http.StatusInternalServerError)
			return
		}
		s.ID = id

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s)
	}
}

// ListSchedulesHandler returns the schedules of one medication.
func ListSchedulesHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicationID, err := strconv.ParseInt(r.URL.Query().Get("medicationId"), 10, 64)
		if err != nil || medicationID == 0 {
			http.Error(w, "medicationId is required", http.StatusBadRequest)
			return
		}

		schedules, err := database.ListSchedulesForMedication(conn, medicationID)
		if err != nil {
			log.Printf("Error listing schedules: %v", err)
			http.Error(w, "failed to list schedules", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(schedules)
	}
}
