// Package loader bootstraps the sqlite schema.
package loader

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS medications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	active_ingredient TEXT NOT NULL DEFAULT '',
	dosage TEXT NOT NULL DEFAULT '',
	physician_name TEXT NOT NULL DEFAULT '',
	min_threshold INTEGER NOT NULL DEFAULT 0,
	safety_margin_days INTEGER NOT NULL DEFAULT 30,
	auto_deduction_enabled INTEGER NOT NULL DEFAULT 1,
	inventory_mode TEXT NOT NULL DEFAULT 'legacy',
	created_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS legacy_stock (
	medication_id INTEGER PRIMARY KEY REFERENCES medications(id),
	current_count INTEGER NOT NULL DEFAULT 0,
	last_updated TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS package_definitions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	medication_id INTEGER NOT NULL REFERENCES medications(id),
	package_size TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL,
	gtin TEXT NOT NULL DEFAULT '',
	national_number TEXT NOT NULL DEFAULT '',
	national_number_type TEXT NOT NULL DEFAULT '',
	UNIQUE(gtin)
);

CREATE TABLE IF NOT EXISTS scan_events (
	id TEXT PRIMARY KEY,
	medication_id INTEGER NOT NULL REFERENCES medications(id),
	gtin TEXT NOT NULL DEFAULT '',
	national_number TEXT NOT NULL DEFAULT '',
	national_number_type TEXT NOT NULL DEFAULT '',
	country_code TEXT NOT NULL DEFAULT '',
	checksum_valid INTEGER NOT NULL DEFAULT 0,
	serial_number TEXT NOT NULL,
	batch_number TEXT NOT NULL DEFAULT '',
	expiry_date TEXT NOT NULL DEFAULT '',
	raw_payload TEXT NOT NULL DEFAULT '',
	scanned_at TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_scan_events_gtin_serial
	ON scan_events(gtin, serial_number);

CREATE TABLE IF NOT EXISTS package_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	medication_id INTEGER NOT NULL REFERENCES medications(id),
	scan_event_id TEXT NOT NULL REFERENCES scan_events(id),
	current_units INTEGER NOT NULL,
	original_units INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'sealed',
	opened_at TEXT NOT NULL DEFAULT '',
	consumed_at TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS ix_package_records_medication
	ON package_records(medication_id, status);

CREATE TABLE IF NOT EXISTS inventory_logs (
	id TEXT PRIMARY KEY,
	medication_id INTEGER NOT NULL REFERENCES medications(id),
	timestamp TEXT NOT NULL DEFAULT '',
	previous_count INTEGER NOT NULL,
	adjustment INTEGER NOT NULL,
	new_count INTEGER NOT NULL,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS medication_schedules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	medication_id INTEGER NOT NULL REFERENCES medications(id),
	schedule_type TEXT NOT NULL DEFAULT 'daily',
	times_of_day TEXT NOT NULL DEFAULT '[]',
	interval_days INTEGER NOT NULL DEFAULT 1,
	weekdays TEXT NOT NULL DEFAULT '[]',
	units_per_dose INTEGER NOT NULL DEFAULT 1,
	last_deduction TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS physician_visits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	physician_name TEXT NOT NULL DEFAULT '',
	visit_date TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT ''
);
`

// InitDatabase applies the schema. All statements are idempotent, so this
// runs at every startup.
func InitDatabase(db *sqlx.DB) error {
	log.Println("Applying database schema...")
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
