package main

import (
	"encoding/json"
	"log"
	"net/http"

	"medtrack/config"
)

// configHandler reads (GET) or replaces (POST) the app configuration. The
// portal password is blanked on read and preserved when posted back empty.
func configHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg := config.GetConfig()
		cfg.PortalPassword = ""
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cfg)

	case http.MethodPost:
		var newCfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
			http.Error(w, "invalid config: "+err.Error(), http.StatusBadRequest)
			return
		}
		if newCfg.PortalPassword == "" {
			newCfg.PortalPassword = config.GetConfig().PortalPassword
		}
		if err := config.SaveConfig(newCfg); err != nil {
			log.Printf("Error saving config: %v", err)
			http.Error(w, "failed to save config", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}
