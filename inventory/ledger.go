// Package inventory is the single entry point for stock depletion and
// adjustment. Every medication carries two stock representations, the
// legacy aggregate counter and scanned package records; the medication's
// inventory mode decides which of them a deduction touches.
package inventory

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"medtrack/database"
	"medtrack/model"
)

var (
	// ErrInsufficientStock means the requested amount exceeds what legacy
	// and packages hold together. The deduction is never partially
	// applied: a half-committed deduction would corrupt the audit trail.
	ErrInsufficientStock = errors.New("insufficient stock for requested deduction")

	// ErrConfirmationRequired guards the one-time reconciliation of an
	// inventory-mode switch, which must never happen silently.
	ErrConfirmationRequired = errors.New("inventory mode switch requires explicit confirmation")

	// ErrPackageNotAdjustable is returned for manual adjustments against
	// consumed or expired packages; their status does not move backwards.
	ErrPackageNotAdjustable = errors.New("package is consumed or expired and cannot be adjusted")
)

// Options carries the deduction policy.
type Options struct {
	// ClampLegacyToZero lets a LEGACY-mode deduction that overshoots the
	// counter clamp at zero instead of failing. Off by default.
	ClampLegacyToZero bool
}

// Deduct removes units from a medication's stock. In HYBRID mode the
// legacy counter drains first (untracked units are assumed oldest), then
// packages deplete First-Expire-First-Out. The whole walk runs in one
// transaction: on insufficient stock nothing is committed.
func Deduct(conn *sqlx.DB, medicationID int64, units int, reason string, opts Options, now time.Time) (*model.DeductionResult, error) {
	if units <= 0 {
		return nil, fmt.Errorf("deduction units must be positive, got %d", units)
	}

	tx, err := conn.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin deduction transaction: %w", err)
	}
	defer tx.Rollback()

	med, err := database.GetMedicationByID(tx, medicationID)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, fmt.Errorf("medication %d not found", medicationID)
	}

	legacy, err := database.GetLegacyStock(tx, medicationID)
	if err != nil {
		return nil, err
	}

	result := &model.DeductionResult{
		MedicationID: medicationID,
		Requested:    units,
	}
	remaining := units
	legacyBefore := legacy.CurrentCount
	nowStamp := database.FormatDateTime(now)

	// Legacy drains first except in pure package mode.
	if med.InventoryMode == model.InventoryModeLegacy || med.InventoryMode == model.InventoryModeHybrid {
		take := remaining
		if take > legacy.CurrentCount {
			take = legacy.CurrentCount
		}
		if take > 0 {
			legacy.CurrentCount -= take
			remaining -= take
			result.LegacyDeducted = take
			result.Notes = append(result.Notes, fmt.Sprintf("deducted %d from legacy count", take))
		}
	}

	packagesBefore := 0
	if med.InventoryMode == model.InventoryModePackages || med.InventoryMode == model.InventoryModeHybrid {
		packagesBefore, err = deductFromPackages(tx, medicationID, &remaining, result, now)
		if err != nil {
			return nil, err
		}
	}

	if remaining > 0 {
		if med.InventoryMode == model.InventoryModeLegacy && opts.ClampLegacyToZero {
			result.Notes = append(result.Notes,
				fmt.Sprintf("legacy count clamped to zero, %d units short", remaining))
		} else {
			return nil, fmt.Errorf("%w: medication %d needs %d more units",
				ErrInsufficientStock, medicationID, remaining)
		}
	}

	result.TotalDeducted = units - remaining

	if result.LegacyDeducted > 0 || (med.InventoryMode == model.InventoryModeLegacy && opts.ClampLegacyToZero) {
		if err := database.SetLegacyCount(tx, medicationID, legacy.CurrentCount, nowStamp); err != nil {
			return nil, err
		}
	}

	totalBefore := legacyBefore + packagesBefore
	logEntry := &model.InventoryLog{
		MedicationID:  medicationID,
		Timestamp:     nowStamp,
		PreviousCount: totalBefore,
		Adjustment:    -result.TotalDeducted,
		NewCount:      totalBefore - result.TotalDeducted,
		Notes:         deductionNotes(reason, result),
	}
	if err := database.InsertInventoryLog(tx, logEntry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit deduction: %w", err)
	}
	return result, nil
}

// deductFromPackages walks the FEFO-ordered packages, transitioning sealed
// ones to open on first touch and consuming those that reach zero. Expired
// packages are transitioned lazily and skipped; they never rejoin the
// eligible set. Returns the eligible unit total before deduction.
func deductFromPackages(tx *sqlx.Tx, medicationID int64, remaining *int, result *model.DeductionResult, now time.Time) (int, error) {
	pkgs, err := database.GetDeductiblePackages(tx, medicationID)
	if err != nil {
		return 0, err
	}

	today := database.FormatDate(now)
	nowStamp := database.FormatDateTime(now)

	eligible := pkgs[:0]
	available := 0
	for i := range pkgs {
		p := &pkgs[i]
		if p.ExpiryDate != "" && p.ExpiryDate < today {
			if err := database.MarkPackageExpired(tx, p.ID); err != nil {
				return 0, err
			}
			result.Notes = append(result.Notes,
				fmt.Sprintf("package %s expired %s, excluded", p.SerialNumber, p.ExpiryDate))
			continue
		}
		available += p.CurrentUnits
		eligible = append(eligible, *p)
	}

	for i := range eligible {
		if *remaining == 0 {
			break
		}
		p := &eligible[i]
		if p.CurrentUnits == 0 {
			continue
		}
		if p.Status == model.PackageStatusSealed {
			p.Status = model.PackageStatusOpen
			p.OpenedAt = nowStamp
			result.Notes = append(result.Notes, fmt.Sprintf("opened package %s", p.SerialNumber))
		}
		take := *remaining
		if take > p.CurrentUnits {
			take = p.CurrentUnits
		}
		p.CurrentUnits -= take
		*remaining -= take
		if p.CurrentUnits == 0 {
			p.Status = model.PackageStatusConsumed
			p.ConsumedAt = nowStamp
		}
		if err := database.UpdatePackageState(tx, p); err != nil {
			return 0, err
		}
		result.Packages = append(result.Packages, model.PackageDeduction{
			PackageID:    p.ID,
			SerialNumber: p.SerialNumber,
			Amount:       take,
			Remaining:    p.CurrentUnits,
		})
	}

	return available, nil
}

func deductionNotes(reason string, result *model.DeductionResult) string {
	if reason == "" {
		reason = "deduction"
	}
	notes := reason
	if result.LegacyDeducted > 0 {
		notes += fmt.Sprintf(" (legacy: %d", result.LegacyDeducted)
		for _, p := range result.Packages {
			notes += fmt.Sprintf(", package %s: %d", p.SerialNumber, p.Amount)
		}
		notes += ")"
	} else if len(result.Packages) > 0 {
		notes += " ("
		for i, p := range result.Packages {
			if i > 0 {
				notes += ", "
			}
			notes += fmt.Sprintf("package %s: %d", p.SerialNumber, p.Amount)
		}
		notes += ")"
	}
	return notes
}

// AdjustPackage sets a package's remaining units directly, bypassing FEFO.
// Used for physical-count corrections; the delta is clamped to
// [0, original_units] and the change is always logged with its reason.
func AdjustPackage(conn *sqlx.DB, packageID int64, delta int, reason string, now time.Time) (*model.PackageRecord, error) {
	if reason == "" {
		return nil, fmt.Errorf("package adjustment requires a reason")
	}

	tx, err := conn.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin adjustment transaction: %w", err)
	}
	defer tx.Rollback()

	pkg, err := database.GetPackageByID(tx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, fmt.Errorf("package %d not found", packageID)
	}

	today := database.FormatDate(now)
	nowStamp := database.FormatDateTime(now)
	if pkg.ExpiryDate != "" && pkg.ExpiryDate < today && pkg.Status != model.PackageStatusExpired {
		if err := database.MarkPackageExpired(tx, pkg.ID); err != nil {
			return nil, err
		}
		pkg.Status = model.PackageStatusExpired
	}
	if pkg.Status == model.PackageStatusConsumed || pkg.Status == model.PackageStatusExpired {
		return nil, fmt.Errorf("%w: package %d is %s", ErrPackageNotAdjustable, packageID, pkg.Status)
	}

	before := pkg.CurrentUnits
	after := before + delta
	if after < 0 {
		after = 0
	}
	if after > pkg.OriginalUnits {
		after = pkg.OriginalUnits
	}

	pkg.CurrentUnits = after
	switch {
	case after == 0:
		pkg.Status = model.PackageStatusConsumed
		pkg.ConsumedAt = nowStamp
	case pkg.Status == model.PackageStatusSealed && after < pkg.OriginalUnits:
		pkg.Status = model.PackageStatusOpen
		pkg.OpenedAt = nowStamp
	}

	if err := database.UpdatePackageState(tx, pkg); err != nil {
		return nil, err
	}

	logEntry := &model.InventoryLog{
		MedicationID:  pkg.MedicationID,
		Timestamp:     nowStamp,
		PreviousCount: before,
		Adjustment:    after - before,
		NewCount:      after,
		Notes:         fmt.Sprintf("manual adjustment of package %s: %s", pkg.SerialNumber, reason),
	}
	if err := database.InsertInventoryLog(tx, logEntry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit package adjustment: %w", err)
	}
	return pkg, nil
}

// SetInventoryMode switches the authoritative stock representation and
// performs the one-time reconciliation: back to LEGACY folds all active
// package units into the counter and consumes the packages; to PACKAGES
// zeroes the counter on the assumption the units were physically moved
// into tracked packages; to HYBRID both representations stay live.
func SetInventoryMode(conn *sqlx.DB, medicationID int64, newMode string, confirm bool, now time.Time) (*model.ReconciliationSummary, error) {
	switch newMode {
	case model.InventoryModeLegacy, model.InventoryModePackages, model.InventoryModeHybrid:
	default:
		return nil, fmt.Errorf("unknown inventory mode %q", newMode)
	}

	tx, err := conn.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin mode-switch transaction: %w", err)
	}
	defer tx.Rollback()

	med, err := database.GetMedicationByID(tx, medicationID)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, fmt.Errorf("medication %d not found", medicationID)
	}

	legacy, err := database.GetLegacyStock(tx, medicationID)
	if err != nil {
		return nil, err
	}
	packageUnits, err := database.SumActivePackageUnits(tx, medicationID)
	if err != nil {
		return nil, err
	}

	summary := &model.ReconciliationSummary{
		MedicationID: medicationID,
		OldMode:      med.InventoryMode,
		NewMode:      newMode,
		LegacyBefore: legacy.CurrentCount,
		LegacyAfter:  legacy.CurrentCount,
		PackageUnits: packageUnits,
		TotalBefore:  legacy.CurrentCount + packageUnits,
		TotalAfter:   legacy.CurrentCount + packageUnits,
	}

	if med.InventoryMode == newMode {
		return summary, nil
	}
	if !confirm {
		return nil, ErrConfirmationRequired
	}

	nowStamp := database.FormatDateTime(now)

	switch newMode {
	case model.InventoryModeLegacy:
		summary.LegacyAfter = legacy.CurrentCount + packageUnits
		summary.TotalAfter = summary.LegacyAfter
		if err := database.ConsumePackagesForReconciliation(tx, medicationID, nowStamp); err != nil {
			return nil, err
		}
		if err := database.SetLegacyCount(tx, medicationID, summary.LegacyAfter, nowStamp); err != nil {
			return nil, err
		}
	case model.InventoryModePackages:
		summary.LegacyAfter = 0
		summary.TotalAfter = packageUnits
		if err := database.SetLegacyCount(tx, medicationID, 0, nowStamp); err != nil {
			return nil, err
		}
	case model.InventoryModeHybrid:
		// Both representations stay authoritative; nothing to fold.
	}

	if err := database.SetInventoryMode(tx, medicationID, newMode, nowStamp); err != nil {
		return nil, err
	}

	logEntry := &model.InventoryLog{
		MedicationID:  medicationID,
		Timestamp:     nowStamp,
		PreviousCount: summary.TotalBefore,
		Adjustment:    summary.TotalAfter - summary.TotalBefore,
		NewCount:      summary.TotalAfter,
		Notes:         fmt.Sprintf("inventory mode switch %s -> %s", summary.OldMode, newMode),
	}
	if err := database.InsertInventoryLog(tx, logEntry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit mode switch: %w", err)
	}

	log.Printf("INFO: [Inventory] Medication %d mode %s -> %s (total %d -> %d)",
		medicationID, summary.OldMode, newMode, summary.TotalBefore, summary.TotalAfter)
	return summary, nil
}

// ListExpiring returns sealed and open packages expiring within daysAhead
// days, soonest first. Already-expired packages are included so the
// dashboard can show them; they are excluded from deduction separately.
func ListExpiring(conn *sqlx.DB, daysAhead int, now time.Time) ([]model.PackageRecord, error) {
	cutoff := database.FormatDate(now.AddDate(0, 0, daysAhead))
	return database.ListExpiringPackages(conn, cutoff)
}

// TotalStock returns legacy count plus active package units.
func TotalStock(dbtx database.DBTX, medicationID int64) (int, error) {
	legacy, err := database.GetLegacyStock(dbtx, medicationID)
	if err != nil {
		return 0, err
	}
	packages, err := database.SumActivePackageUnits(dbtx, medicationID)
	if err != nil {
		return 0, err
	}
	return legacy.CurrentCount + packages, nil
}
