package automation

import (
	"encoding/json"
	"log"
	"net/http"

	"medtrack/config"
	"medtrack/model"
)

type submitRequest struct {
	Candidates []model.OrderCandidate `json:"candidates"`
}

// SubmitOrderHandler sends the reviewed order lines to the pharmacy portal.
// The UI posts the candidate list back after the user edited it; nothing is
// ordered unseen.
func SubmitOrderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Candidates) == 0 {
			http.Error(w, "candidates are required", http.StatusBadRequest)
			return
		}

		cfg := config.GetConfig()
		confirmation, err := SubmitOrder(cfg.PortalUserID, cfg.PortalPassword, req.Candidates)
		if err != nil {
			log.Printf("Error submitting order: %v", err)
			http.Error(w, "order submission failed: "+err.Error(), http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"confirmation": confirmation})
	}
}
