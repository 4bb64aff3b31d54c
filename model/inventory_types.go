package model

// Package record status values. Transitions are monotonic:
// sealed -> open -> consumed; any status -> expired (checked lazily on read).
const (
	PackageStatusSealed   = "sealed"
	PackageStatusOpen     = "open"
	PackageStatusConsumed = "consumed"
	PackageStatusExpired  = "expired"
)

// Inventory modes. The mode decides which stock representations a
// deduction touches.
const (
	InventoryModeLegacy   = "legacy"
	InventoryModePackages = "packages"
	InventoryModeHybrid   = "hybrid"
)

// PackageRecord tracks the remaining content of one scanned package.
type PackageRecord struct {
	ID            int64  `db:"id" json:"id"`
	MedicationID  int64  `db:"medication_id" json:"medicationId"`
	ScanEventID   string `db:"scan_event_id" json:"scanEventId"`
	CurrentUnits  int    `db:"current_units" json:"currentUnits"`
	OriginalUnits int    `db:"original_units" json:"originalUnits"`
	Status        string `db:"status" json:"status"`
	OpenedAt      string `db:"opened_at" json:"openedAt"`
	ConsumedAt    string `db:"consumed_at" json:"consumedAt"`
	ExpiryDate    string `db:"expiry_date" json:"expiryDate"`
	SerialNumber  string `db:"serial_number" json:"serialNumber"`
}

// LegacyStock is the aggregate counter kept for every medication.
type LegacyStock struct {
	MedicationID int64  `db:"medication_id" json:"medicationId"`
	CurrentCount int    `db:"current_count" json:"currentCount"`
	LastUpdated  string `db:"last_updated" json:"lastUpdated"`
}

// InventoryLog is the audit trail for every stock mutation.
type InventoryLog struct {
	ID            string `db:"id" json:"id"`
	MedicationID  int64  `db:"medication_id" json:"medicationId"`
	Timestamp     string `db:"timestamp" json:"timestamp"`
	PreviousCount int    `db:"previous_count" json:"previousCount"`
	Adjustment    int    `db:"adjustment" json:"adjustment"`
	NewCount      int    `db:"new_count" json:"newCount"`
	Notes         string `db:"notes" json:"notes"`
}

// PackageDeduction reports what a single package contributed to a deduction.
type PackageDeduction struct {
	PackageID    int64  `json:"packageId"`
	SerialNumber string `json:"serialNumber"`
	Amount       int    `json:"amount"`
	Remaining    int    `json:"remaining"`
}

// DeductionResult reports where a deduction was taken from.
type DeductionResult struct {
	MedicationID   int64              `json:"medicationId"`
	Requested      int                `json:"requested"`
	TotalDeducted  int                `json:"totalDeducted"`
	LegacyDeducted int                `json:"legacyDeducted"`
	Packages       []PackageDeduction `json:"packages"`
	Notes          []string           `json:"notes"`
}

// ReconciliationSummary is returned by an inventory-mode switch so the UI
// can show the before/after totals.
type ReconciliationSummary struct {
	MedicationID int64  `json:"medicationId"`
	OldMode      string `json:"oldMode"`
	NewMode      string `json:"newMode"`
	LegacyBefore int    `json:"legacyBefore"`
	LegacyAfter  int    `json:"legacyAfter"`
	PackageUnits int    `json:"packageUnits"`
	TotalBefore  int    `json:"totalBefore"`
	TotalAfter   int    `json:"totalAfter"`
}
