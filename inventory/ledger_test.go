package inventory

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/database"
	"medtrack/loader"
	"medtrack/model"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, loader.InitDatabase(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestMedication(t *testing.T, db *sqlx.DB, mode string, legacyCount int) int64 {
	t.Helper()
	id, err := database.InsertMedication(db, &model.Medication{
		Name:          fmt.Sprintf("Med-%s", uuid.NewString()[:8]),
		InventoryMode: mode,
	})
	require.NoError(t, err)
	if legacyCount > 0 {
		require.NoError(t, database.SetLegacyCount(db, id, legacyCount, database.FormatDateTime(testNow)))
	}
	return id
}

// addPackage inserts a scan event plus its sealed package record. Scan time
// increases with every call so FEFO tie breaking is deterministic.
var scanSeq int

func addPackage(t *testing.T, db *sqlx.DB, medID int64, expiry string, units int) int64 {
	t.Helper()
	scanSeq++
	event := &model.ScanEvent{
		ID:           uuid.NewString(),
		MedicationID: medID,
		Gtin:         "04150138327077",
		SerialNumber: fmt.Sprintf("SER%06d", scanSeq),
		ExpiryDate:   expiry,
		ScannedAt:    database.FormatDateTime(testNow.Add(time.Duration(scanSeq) * time.Second)),
	}
	require.NoError(t, database.InsertScanEvent(db, event))
	pkgID, err := database.InsertPackageRecord(db, medID, event.ID, units)
	require.NoError(t, err)
	return pkgID
}

func legacyCount(t *testing.T, db *sqlx.DB, medID int64) int {
	t.Helper()
	s, err := database.GetLegacyStock(db, medID)
	require.NoError(t, err)
	return s.CurrentCount
}

func TestDeductHybridDrainsLegacyFirst(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeHybrid, 30)
	pkgID := addPackage(t, db, medID, "2027-01-31", 50)

	result, err := Deduct(db, medID, 40, "evening dose", Options{}, testNow)
	require.NoError(t, err)

	assert.Equal(t, 40, result.TotalDeducted)
	assert.Equal(t, 30, result.LegacyDeducted)
	require.Len(t, result.Packages, 1)
	assert.Equal(t, pkgID, result.Packages[0].PackageID)
	assert.Equal(t, 10, result.Packages[0].Amount)
	assert.Equal(t, 40, result.Packages[0].Remaining)

	assert.Zero(t, legacyCount(t, db, medID))

	pkg, err := database.GetPackageByID(db, pkgID)
	require.NoError(t, err)
	assert.Equal(t, 40, pkg.CurrentUnits)
	assert.Equal(t, model.PackageStatusOpen, pkg.Status)
	assert.NotEmpty(t, pkg.OpenedAt)

	logs, err := database.ListInventoryLogs(db, medID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 80, logs[0].PreviousCount)
	assert.Equal(t, -40, logs[0].Adjustment)
	assert.Equal(t, 40, logs[0].NewCount)
}

func TestDeductFEFOOrder(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModePackages, 0)
	june := addPackage(t, db, medID, "2027-06-30", 10)
	january := addPackage(t, db, medID, "2027-01-31", 10)
	addPackage(t, db, medID, "2027-12-31", 10)

	result, err := Deduct(db, medID, 15, "dose", Options{}, testNow)
	require.NoError(t, err)

	require.Len(t, result.Packages, 2)
	assert.Equal(t, january, result.Packages[0].PackageID)
	assert.Equal(t, 10, result.Packages[0].Amount)
	assert.Equal(t, june, result.Packages[1].PackageID)
	assert.Equal(t, 5, result.Packages[1].Amount)

	pkg, err := database.GetPackageByID(db, january)
	require.NoError(t, err)
	assert.Equal(t, model.PackageStatusConsumed, pkg.Status)
	assert.Zero(t, pkg.CurrentUnits)
	assert.NotEmpty(t, pkg.ConsumedAt)

	pkg, err = database.GetPackageByID(db, june)
	require.NoError(t, err)
	assert.Equal(t, model.PackageStatusOpen, pkg.Status)
	assert.Equal(t, 5, pkg.CurrentUnits)
}

func TestDeductUnknownExpirySortsLast(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModePackages, 0)
	unknown := addPackage(t, db, medID, "", 10)
	dated := addPackage(t, db, medID, "2030-01-01", 10)

	result, err := Deduct(db, medID, 12, "dose", Options{}, testNow)
	require.NoError(t, err)

	require.Len(t, result.Packages, 2)
	assert.Equal(t, dated, result.Packages[0].PackageID)
	assert.Equal(t, unknown, result.Packages[1].PackageID)
}

func TestDeductInsufficientStockRollsBack(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeHybrid, 5)
	pkgID := addPackage(t, db, medID, "2027-01-31", 3)

	_, err := Deduct(db, medID, 10, "dose", Options{}, testNow)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Nothing was committed.
	assert.Equal(t, 5, legacyCount(t, db, medID))
	pkg, err := database.GetPackageByID(db, pkgID)
	require.NoError(t, err)
	assert.Equal(t, 3, pkg.CurrentUnits)
	assert.Equal(t, model.PackageStatusSealed, pkg.Status)

	logs, err := database.ListInventoryLogs(db, medID, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestDeductSkipsExpiredPackages(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModePackages, 0)
	expired := addPackage(t, db, medID, "2024-01-01", 10)
	fresh := addPackage(t, db, medID, "2030-01-01", 10)

	result, err := Deduct(db, medID, 5, "dose", Options{}, testNow)
	require.NoError(t, err)

	require.Len(t, result.Packages, 1)
	assert.Equal(t, fresh, result.Packages[0].PackageID)

	pkg, err := database.GetPackageByID(db, expired)
	require.NoError(t, err)
	assert.Equal(t, model.PackageStatusExpired, pkg.Status)
	assert.Equal(t, 10, pkg.CurrentUnits, "expired units are never deducted")
}

func TestDeductLegacyClampPolicy(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeLegacy, 5)

	_, err := Deduct(db, medID, 10, "dose", Options{}, testNow)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, legacyCount(t, db, medID))

	result, err := Deduct(db, medID, 10, "dose", Options{ClampLegacyToZero: true}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalDeducted)
	assert.Zero(t, legacyCount(t, db, medID))
}

func TestDeductLegacyModeIgnoresPackages(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeLegacy, 20)
	pkgID := addPackage(t, db, medID, "2030-01-01", 50)

	result, err := Deduct(db, medID, 10, "dose", Options{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 10, result.LegacyDeducted)
	assert.Empty(t, result.Packages)

	pkg, err := database.GetPackageByID(db, pkgID)
	require.NoError(t, err)
	assert.Equal(t, 50, pkg.CurrentUnits)
}

func TestDeductRejectsNonPositiveUnits(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeLegacy, 20)

	_, err := Deduct(db, medID, 0, "dose", Options{}, testNow)
	assert.Error(t, err)
	_, err = Deduct(db, medID, -3, "dose", Options{}, testNow)
	assert.Error(t, err)
}

func TestAdjustPackageClamps(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModePackages, 0)
	pkgID := addPackage(t, db, medID, "2030-01-01", 50)

	// Upward past the original clamps at the original.
	pkg, err := AdjustPackage(db, pkgID, 100, "recount", testNow)
	require.NoError(t, err)
	assert.Equal(t, 50, pkg.CurrentUnits)

	pkg, err = AdjustPackage(db, pkgID, -20, "recount", testNow)
	require.NoError(t, err)
	assert.Equal(t, 30, pkg.CurrentUnits)
	assert.Equal(t, model.PackageStatusOpen, pkg.Status)

	// Downward past zero clamps at zero and consumes.
	pkg, err = AdjustPackage(db, pkgID, -999, "recount", testNow)
	require.NoError(t, err)
	assert.Zero(t, pkg.CurrentUnits)
	assert.Equal(t, model.PackageStatusConsumed, pkg.Status)

	_, err = AdjustPackage(db, pkgID, 10, "recount", testNow)
	assert.ErrorIs(t, err, ErrPackageNotAdjustable)

	logs, err := database.ListInventoryLogs(db, medID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 3, "every adjustment is logged")
}

func TestAdjustPackageRequiresReason(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModePackages, 0)
	pkgID := addPackage(t, db, medID, "2030-01-01", 50)

	_, err := AdjustPackage(db, pkgID, -5, "", testNow)
	assert.Error(t, err)
}

func TestSetInventoryModeToLegacyFoldsPackages(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeHybrid, 30)
	pkgID := addPackage(t, db, medID, "2027-01-31", 50)

	_, err := SetInventoryMode(db, medID, model.InventoryModeLegacy, false, testNow)
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	summary, err := SetInventoryMode(db, medID, model.InventoryModeLegacy, true, testNow)
	require.NoError(t, err)
	assert.Equal(t, model.InventoryModeHybrid, summary.OldMode)
	assert.Equal(t, 30, summary.LegacyBefore)
	assert.Equal(t, 50, summary.PackageUnits)
	assert.Equal(t, 80, summary.LegacyAfter)
	assert.Equal(t, 80, summary.TotalAfter)

	assert.Equal(t, 80, legacyCount(t, db, medID))
	pkg, err := database.GetPackageByID(db, pkgID)
	require.NoError(t, err)
	assert.Equal(t, model.PackageStatusConsumed, pkg.Status)
	assert.Zero(t, pkg.CurrentUnits)

	med, err := database.GetMedicationByID(db, medID)
	require.NoError(t, err)
	assert.Equal(t, model.InventoryModeLegacy, med.InventoryMode)
}

func TestSetInventoryModeToPackagesZeroesLegacy(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeLegacy, 30)

	summary, err := SetInventoryMode(db, medID, model.InventoryModePackages, true, testNow)
	require.NoError(t, err)
	assert.Zero(t, summary.LegacyAfter)
	assert.Zero(t, legacyCount(t, db, medID))
}

func TestSetInventoryModeNoopWithoutConfirm(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeHybrid, 10)

	// Same mode never needs confirmation and changes nothing.
	summary, err := SetInventoryMode(db, medID, model.InventoryModeHybrid, false, testNow)
	require.NoError(t, err)
	assert.Equal(t, summary.TotalBefore, summary.TotalAfter)

	_, err = SetInventoryMode(db, medID, "bogus", true, testNow)
	assert.Error(t, err)
}

// newFileTestDB opens a file-backed database with the production DSN
// options so multiple connections contend like in the running app.
func newFileTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medtrack_test.db")
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	require.NoError(t, err)
	require.NoError(t, loader.InitDatabase(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDeductConcurrentNeverOverdraws(t *testing.T) {
	db := newFileTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeLegacy, 5)

	const workers = 10
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Deduct(db, medID, 1, "dose", Options{}, testNow)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		default:
			require.ErrorIs(t, err, ErrInsufficientStock)
			rejected++
		}
	}

	// Exactly the available units were handed out, the rest were refused.
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, rejected)
	assert.Zero(t, legacyCount(t, db, medID))

	logs, err := database.ListInventoryLogs(db, medID, workers)
	require.NoError(t, err)
	require.Len(t, logs, 5)
	for _, l := range logs {
		assert.Equal(t, -1, l.Adjustment)
	}
}

func TestListExpiring(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModePackages, 0)
	soon := addPackage(t, db, medID, "2026-03-20", 10)
	addPackage(t, db, medID, "2027-01-01", 10)
	addPackage(t, db, medID, "", 10)

	pkgs, err := ListExpiring(db, 30, testNow)
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, soon, pkgs[0].ID)
}
