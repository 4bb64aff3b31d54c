package scanner

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/barcode"
	"medtrack/database"
	"medtrack/loader"
	"medtrack/model"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, loader.InitDatabase(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestMedication(t *testing.T, db *sqlx.DB, mode string) int64 {
	t.Helper()
	id, err := database.InsertMedication(db, &model.Medication{
		Name:          "Ibuprofen 400mg",
		InventoryMode: mode,
	})
	require.NoError(t, err)
	return id
}

func registerDefinition(t *testing.T, db *sqlx.DB, medID int64, gtin string, quantity int) {
	t.Helper()
	require.NoError(t, database.UpsertPackageDefinition(db, &model.PackageDefinition{
		MedicationID:       medID,
		PackageSize:        "N2",
		Quantity:           quantity,
		Gtin:               gtin,
		NationalNumber:     "13832707",
		NationalNumberType: model.NationalNumberDEPZN,
	}))
}

func TestParseScanHybridCreatesPackage(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeHybrid)
	registerDefinition(t, db, medID, "04150138327077", 50)

	raw := "010415013832707721100251263204341727013110403751B"
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	result, err := ParseScan(db, raw, Options{}, now)
	require.NoError(t, err)

	assert.Equal(t, medID, result.Event.MedicationID)
	assert.Equal(t, "04150138327077", result.Event.Gtin)
	assert.Equal(t, "13832707", result.Event.NationalNumber)
	assert.Equal(t, model.NationalNumberDEPZN, result.Event.NationalNumberType)
	assert.Equal(t, "DE", result.Event.CountryCode)
	assert.True(t, result.Event.ChecksumValid)
	assert.Equal(t, "10025126320434", result.Event.SerialNumber)
	assert.Equal(t, "403751B", result.Event.BatchNumber)
	assert.Equal(t, "2027-01-31", result.Event.ExpiryDate)
	assert.Equal(t, raw, result.Event.RawPayload)
	assert.Empty(t, result.Warnings)

	require.NotNil(t, result.Package)
	assert.Equal(t, 50, result.Package.CurrentUnits)
	assert.Equal(t, 50, result.Package.OriginalUnits)
	assert.Equal(t, model.PackageStatusSealed, result.Package.Status)

	stored, err := database.GetPackageByID(db, result.Package.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "2027-01-31", stored.ExpiryDate)
}

func TestParseScanLegacyModeSkipsPackage(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeLegacy)
	registerDefinition(t, db, medID, "04150138327077", 50)

	result, err := ParseScan(db, "0104150138327077\x1d21SERIAL0001", Options{}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, result.Package)

	units, err := database.SumActivePackageUnits(db, medID)
	require.NoError(t, err)
	assert.Zero(t, units)
}

func TestParseScanDuplicateSerial(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeHybrid)
	registerDefinition(t, db, medID, "04150138327077", 50)

	raw := "0104150138327077\x1d21SERIAL0001"
	_, err := ParseScan(db, raw, Options{}, time.Now())
	require.NoError(t, err)

	_, err = ParseScan(db, raw, Options{}, time.Now())
	assert.ErrorIs(t, err, ErrDuplicateSerial)

	// Only the first package made it in.
	units, err := database.SumActivePackageUnits(db, medID)
	require.NoError(t, err)
	assert.Equal(t, 50, units)
}

func TestParseScanPPNSerialScopedToProduct(t *testing.T) {
	db := newTestDB(t)
	medA := newTestMedication(t, db, model.InventoryModeLegacy)
	medB := newTestMedication(t, db, model.InventoryModeLegacy)

	// PPN-coded labels carry no GTIN; the lookup falls back to the PZN.
	require.NoError(t, database.UpsertPackageDefinition(db, &model.PackageDefinition{
		MedicationID:       medA,
		Quantity:           20,
		Gtin:               "04150123456731",
		NationalNumber:     "12345673",
		NationalNumberType: model.NationalNumberDEPZN,
	}))
	require.NoError(t, database.UpsertPackageDefinition(db, &model.PackageDefinition{
		MedicationID:       medB,
		Quantity:           20,
		Gtin:               "04150063137280",
		NationalNumber:     "06313728",
		NationalNumberType: model.NationalNumberDEPZN,
	}))

	first, err := ParseScan(db, "9N111234567342\x1dSSHAREDSERIAL01", Options{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, medA, first.Event.MedicationID)
	assert.Equal(t, "111234567342", first.Event.Gtin, "the PPN is stored as the product code")
	assert.Equal(t, "SHAREDSERIAL01", first.Event.SerialNumber)

	// A different PPN-coded product may reuse the same serial.
	second, err := ParseScan(db, "9N110631372840\x1dSSHAREDSERIAL01", Options{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, medB, second.Event.MedicationID)
	assert.Equal(t, "110631372840", second.Event.Gtin)

	// The same product with the same serial is still a duplicate.
	_, err = ParseScan(db, "9N111234567342\x1dSSHAREDSERIAL01", Options{}, time.Now())
	assert.ErrorIs(t, err, ErrDuplicateSerial)
}

func TestParseScanUnknownProduct(t *testing.T) {
	db := newTestDB(t)
	newTestMedication(t, db, model.InventoryModeHybrid)

	_, err := ParseScan(db, "0107612345678900\x1d21SERIAL0001", Options{}, time.Now())
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestParseScanChecksumPolicy(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeLegacy)
	registerDefinition(t, db, medID, "04150138327076", 50)

	raw := "0104150138327076\x1d21SERIAL0001"

	_, err := ParseScan(db, raw, Options{RejectInvalidChecksum: true}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidChecksum)

	result, err := ParseScan(db, raw, Options{}, time.Now())
	require.NoError(t, err)
	assert.False(t, result.Event.ChecksumValid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "checksum")
}

func TestParseScanMissingSerial(t *testing.T) {
	db := newTestDB(t)

	_, err := ParseScan(db, "0104150138327077", Options{}, time.Now())
	assert.ErrorIs(t, err, barcode.ErrMalformedPayload)
}

func TestParseScanUnreadableExpiryWarns(t *testing.T) {
	db := newTestDB(t)
	medID := newTestMedication(t, db, model.InventoryModeLegacy)
	registerDefinition(t, db, medID, "04150138327077", 50)

	// Month 13 cannot be parsed; the scan still goes through.
	result, err := ParseScan(db, "0104150138327077"+"17271301"+"\x1d21SERIAL0002", Options{}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, result.Event.ExpiryDate)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "expiry")
}

func TestParseExpiry(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"270131", "2027-01-31", false},
		{"270600", "2027-06-30", false}, // day 00 -> last day of month
		{"240200", "2024-02-29", false}, // leap year
		{"990101", "1999-01-01", false}, // 50-99 -> 1900s
		{"490101", "2049-01-01", false},
		{"500101", "1950-01-01", false},
		{"", "", false},
		{"271301", "", true}, // month 13
		{"270230", "", true}, // Feb 30
		{"27013", "", true},  // too short
		{"27A131", "", true}, // non-numeric
	}
	for _, tc := range cases {
		got, err := ParseExpiry(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}
