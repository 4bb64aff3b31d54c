package main

import (
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"medtrack/config"
	"medtrack/inventory"
	"medtrack/loader"
	"medtrack/scheduler"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Println("Connecting to database...")
	// _txlock=immediate takes the write lock at Beginx, so concurrent
	// deductions queue on the busy timeout instead of failing on upgrade.
	dbConn, err := sqlx.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer dbConn.Close()
	log.Println("Database connection successful.")

	if err := loader.InitDatabase(dbConn); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	log.Println("Database initialization complete.")

	// Catch up on doses that came due while the app was closed.
	opts := inventory.Options{ClampLegacyToZero: cfg.ClampLegacyToZero}
	if results, err := scheduler.RunDeductions(dbConn, opts, time.Now()); err != nil {
		log.Printf("WARN: Startup deduction run failed: %v", err)
	} else {
		log.Printf("Startup deduction run processed %d schedules.", len(results))
	}

	mux := http.NewServeMux()
	SetupRoutes(mux, dbConn)

	log.Printf("Listening on %s ...", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
