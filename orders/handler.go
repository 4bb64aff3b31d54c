package orders

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
)

// CandidatesHandler returns the proposed order lines for the next visit.
func CandidatesHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		candidates, err := GenerateCandidates(conn, time.Now())
		if err != nil {
			log.Printf("Error generating order candidates: %v", err)
			http.Error(w, "failed to generate order candidates", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(candidates)
	}
}
