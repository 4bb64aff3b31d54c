package orders

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func TestGenerateCandidatesCoversUntilNextVisit(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	medID, err := database.InsertMedication(db, &model.Medication{
		Name:             "Ibuprofen 400mg",
		SafetyMarginDays: 10,
		InventoryMode:    model.InventoryModeLegacy,
	})
	require.NoError(t, err)
	require.NoError(t, database.SetLegacyCount(db, medID, 5, database.FormatDateTime(now)))

	_, err = database.InsertSchedule(db, &model.MedicationSchedule{
		MedicationID: medID,
		ScheduleType: model.ScheduleTypeDaily,
		TimesOfDay:   `["08:00"]`,
		Weekdays:     `[]`,
		IntervalDays: 1,
		UnitsPerDose: 1,
	})
	require.NoError(t, err)

	require.NoError(t, database.UpsertPackageDefinition(db, &model.PackageDefinition{
		MedicationID:   medID,
		PackageSize:    "N2",
		Quantity:       20,
		Gtin:           "04150138327077",
		NationalNumber: "12345673",
	}))

	// Visit in 20 days; coverage is 20 + 10 safety margin = 30 days.
	_, err = database.InsertVisit(db, &model.PhysicianVisit{
		PhysicianName: "Dr. Weber",
		VisitDate:     database.FormatDate(now.AddDate(0, 0, 20)),
	})
	require.NoError(t, err)

	candidates, err := GenerateCandidates(db, now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, medID, c.MedicationID)
	assert.Equal(t, 5, c.CurrentStock)
	assert.InDelta(t, 1.0, c.DailyUsage, 1e-9)
	assert.Equal(t, 30, c.DaysToCover)
	assert.Equal(t, 25, c.UnitsNeeded) // 30 days x 1/day - 5 in stock
	assert.Equal(t, "N2", c.PackageSize)
	assert.Equal(t, "12345673", c.NationalNumber)
	assert.Equal(t, 2, c.PackageCount) // ceil(25 / 20)
}

func TestGenerateCandidatesSkipsCoveredMedications(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	medID, err := database.InsertMedication(db, &model.Medication{
		Name:             "Metformin",
		SafetyMarginDays: 10,
		InventoryMode:    model.InventoryModeLegacy,
	})
	require.NoError(t, err)
	require.NoError(t, database.SetLegacyCount(db, medID, 500, database.FormatDateTime(now)))

	_, err = database.InsertSchedule(db, &model.MedicationSchedule{
		MedicationID: medID,
		ScheduleType: model.ScheduleTypeDaily,
		TimesOfDay:   `["08:00"]`,
		Weekdays:     `[]`,
		IntervalDays: 1,
		UnitsPerDose: 1,
	})
	require.NoError(t, err)

	candidates, err := GenerateCandidates(db, now)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestGenerateCandidatesThresholdBreach(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	// No schedule, no projected usage, but the stock sits below the
	// minimum threshold.
	medID, err := database.InsertMedication(db, &model.Medication{
		Name:          "Notfallspray",
		MinThreshold:  2,
		InventoryMode: model.InventoryModeLegacy,
	})
	require.NoError(t, err)
	require.NoError(t, database.SetLegacyCount(db, medID, 1, database.FormatDateTime(now)))

	candidates, err := GenerateCandidates(db, now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 2, candidates[0].UnitsNeeded)
	assert.Zero(t, candidates[0].PackageCount, "no package definition registered")
}

func TestGenerateCandidatesCountsPackageStock(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	medID, err := database.InsertMedication(db, &model.Medication{
		Name:             "Ramipril",
		SafetyMarginDays: 0,
		InventoryMode:    model.InventoryModeHybrid,
	})
	require.NoError(t, err)
	require.NoError(t, database.SetLegacyCount(db, medID, 10, database.FormatDateTime(now)))

	event := &model.ScanEvent{
		ID:           "scan-1",
		MedicationID: medID,
		Gtin:         "04150138327077",
		SerialNumber: "SER000001",
		ExpiryDate:   "2030-01-01",
		ScannedAt:    database.FormatDateTime(now),
	}
	require.NoError(t, database.InsertScanEvent(db, event))
	_, err = database.InsertPackageRecord(db, medID, event.ID, 50)
	require.NoError(t, err)

	_, err = database.InsertSchedule(db, &model.MedicationSchedule{
		MedicationID: medID,
		ScheduleType: model.ScheduleTypeDaily,
		TimesOfDay:   `["08:00","20:00"]`,
		Weekdays:     `[]`,
		IntervalDays: 1,
		UnitsPerDose: 1,
	})
	require.NoError(t, err)

	// 30-day default horizon x 2/day = 60 needed, 60 in stock across both
	// representations: nothing to order.
	candidates, err := GenerateCandidates(db, now)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
