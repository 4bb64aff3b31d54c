package main

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"medtrack/automation"
	"medtrack/inventory"
	"medtrack/medications"
	"medtrack/orders"
	"medtrack/parsers"
	"medtrack/scanner"
	"medtrack/scheduler"
	"medtrack/visits"
)

func SetupRoutes(mux *http.ServeMux, dbConn *sqlx.DB) {

	mux.HandleFunc("/api/scan", scanner.ScanHandler(dbConn))
	mux.HandleFunc("/api/packages/register", scanner.RegisterPackageHandler(dbConn))

	mux.HandleFunc("/api/medications", medications.ListHandler(dbConn))
	mux.HandleFunc("/api/medications/create", medications.CreateHandler(dbConn))
	mux.HandleFunc("/api/medications/definitions", medications.DefinitionsHandler(dbConn))

	mux.HandleFunc("/api/inventory/stock", inventory.StockHandler(dbConn))
	mux.HandleFunc("/api/inventory/deduct", inventory.DeductHandler(dbConn))
	mux.HandleFunc("/api/inventory/adjust", inventory.AdjustPackageHandler(dbConn))
	mux.HandleFunc("/api/inventory/mode", inventory.SetModeHandler(dbConn))
	mux.HandleFunc("/api/inventory/expiring", inventory.ExpiringHandler(dbConn))
	mux.HandleFunc("/api/inventory/logs", inventory.LogsHandler(dbConn))

	mux.HandleFunc("/api/schedules", scheduler.ListSchedulesHandler(dbConn))
	mux.HandleFunc("/api/schedules/create", scheduler.CreateScheduleHandler(dbConn))
	mux.HandleFunc("/api/schedules/run", scheduler.RunHandler(dbConn))

	mux.HandleFunc("/api/visits", visits.ListHandler(dbConn))
	mux.HandleFunc("/api/visits/create", visits.CreateHandler(dbConn))

	mux.HandleFunc("/api/orders/candidates", orders.CandidatesHandler(dbConn))
	mux.HandleFunc("/api/orders/submit", automation.SubmitOrderHandler())

	mux.HandleFunc("/api/import/csv", parsers.ImportCSVHandler(dbConn))

	mux.HandleFunc("/api/config", configHandler)
}
