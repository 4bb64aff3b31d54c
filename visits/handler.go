// Package visits tracks physician appointments, the anchor of order
// planning.
package visits

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"medtrack/database"
	"medtrack/model"
)

// CreateHandler records a planned or past physician visit.
func CreateHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		var v model.PhysicianVisit
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			http.Error(w, "invalid visit: "+err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := time.Parse(database.DateLayout, v.VisitDate); err != nil {
			http.Error(w, "visitDate must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		v.CreatedAt = database.FormatDateTime(time.Now())

		id, err := database.InsertVisit(conn, &v)
		if err != nil {
			log.Printf("Error inserting visit: %v", err)
			http.Error(w, "failed to save visit", http.StatusInternalServerError)
			return
		}
		v.ID = id

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
}

// ListHandler returns all visits, soonest first.
func ListHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visits, err := database.ListVisits(conn)
		if err != nil {
			log.Printf("Error listing visits: %v", err)
			http.Error(w, "failed to list visits", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(visits)
	}
}
