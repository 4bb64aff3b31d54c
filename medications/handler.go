// Package medications exposes the master-data endpoints.
package medications

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"medtrack/database"
	"medtrack/model"
)

// CreateHandler stores a new medication. The legacy stock row is created
// with it so every medication has a counter from day one.
func CreateHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		var m model.Medication
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			http.Error(w, "invalid medication: "+err.Error(), http.StatusBadRequest)
			return
		}
		if m.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		switch m.InventoryMode {
		case "":
			m.InventoryMode = model.InventoryModeLegacy
		case model.InventoryModeLegacy, model.InventoryModePackages, model.InventoryModeHybrid:
		default:
			http.Error(w, "unknown inventory mode "+m.InventoryMode, http.StatusBadRequest)
			return
		}
		if m.SafetyMarginDays == 0 {
			m.SafetyMarginDays = 30
		}
		now := database.FormatDateTime(time.Now())
		m.CreatedAt = now
		m.UpdatedAt = now

		id, err := database.InsertMedication(conn, &m)
		if err != nil {
			log.Printf("Error inserting medication: %v", err)
			http.Error(w, "failed to save medication", http.StatusInternalServerError)
			return
		}
		m.ID = id

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m)
	}
}

// ListHandler returns all medications, or one when ?id= is given.
func ListHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if v := r.URL.Query().Get("id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				http.Error(w, "id must be numeric", http.StatusBadRequest)
				return
			}
			med, err := database.GetMedicationByID(conn, id)
			if err != nil {
				log.Printf("Error getting medication %d: %v", id, err)
				http.Error(w, "failed to get medication", http.StatusInternalServerError)
				return
			}
			if med == nil {
				http.Error(w, "medication not found", http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(med)
			return
		}

		meds, err := database.ListMedications(conn)
		if err != nil {
			log.Printf("Error listing medications: %v", err)
			http.Error(w, "failed to list medications", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(meds)
	}
}

// DefinitionsHandler lists the package definitions of one medication.
func DefinitionsHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicationID, err := strconv.ParseInt(r.URL.Query().Get("medicationId"), 10, 64)
		if err != nil || medicationID == 0 {
			http.Error(w, "medicationId is required", http.StatusBadRequest)
			return
		}

		defs, err := database.ListDefinitionsForMedication(conn, medicationID)
		if err != nil {
			log.Printf("Error listing package definitions: %v", err)
			http.Error(w, "failed to list package definitions", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(defs)
	}
}
