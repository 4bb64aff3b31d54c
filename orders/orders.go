// Package orders proposes prescription orders: enough units to last until
// the next physician visit plus the medication's safety margin.
package orders

import (
	"log"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"medtrack/database"
	"medtrack/inventory"
	"medtrack/model"
	"medtrack/scheduler"
)

// Horizon used when no future visit is planned.
const defaultCoverageDays = 30

// GenerateCandidates computes one order line per medication whose stock
// will not cover the span until the next visit plus its safety margin.
// Medications at or below their minimum threshold are proposed even when
// the usage projection alone would not require it.
func GenerateCandidates(conn *sqlx.DB, now time.Time) ([]model.OrderCandidate, error) {
	meds, err := database.ListMedications(conn)
	if err != nil {
		return nil, err
	}

	nextVisit, err := database.GetNextVisitDate(conn, database.FormatDate(now))
	if err != nil {
		return nil, err
	}

	var candidates []model.OrderCandidate
	for i := range meds {
		med := &meds[i]

		stock, err := inventory.TotalStock(conn, med.ID)
		if err != nil {
			return nil, err
		}

		usage, err := dailyUsage(conn, med.ID)
		if err != nil {
			log.Printf("WARN: [Orders] Skipping medication %d: %v", med.ID, err)
			continue
		}

		days := coverageDays(nextVisit, med.SafetyMarginDays, now)
		needed := int(math.Ceil(usage*float64(days))) - stock
		if needed <= 0 && stock > med.MinThreshold {
			continue
		}
		if needed < 0 {
			needed = 0
		}
		if needed == 0 && stock <= med.MinThreshold {
			// Threshold breach with no projected usage still restocks
			// one threshold's worth.
			needed = med.MinThreshold - stock + 1
		}

		candidate := model.OrderCandidate{
			MedicationID:   med.ID,
			MedicationName: med.Name,
			CurrentStock:   stock,
			DailyUsage:     usage,
			DaysToCover:    days,
			UnitsNeeded:    needed,
		}
		fitPackages(conn, &candidate)
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// dailyUsage sums the average consumption of all schedules of a medication.
func dailyUsage(conn *sqlx.DB, medicationID int64) (float64, error) {
	schedules, err := database.ListSchedulesForMedication(conn, medicationID)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for i := range schedules {
		u, err := scheduler.DailyUsage(&schedules[i])
		if err != nil {
			return 0, err
		}
		total += u
	}
	return total, nil
}

func coverageDays(nextVisit string, safetyMarginDays int, now time.Time) int {
	days := defaultCoverageDays
	if nextVisit != "" {
		if visit, err := time.ParseInLocation(database.DateLayout, nextVisit, now.Location()); err == nil {
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			days = int(visit.Sub(today).Hours() / 24)
			if days < 0 {
				days = 0
			}
		}
	}
	return days + safetyMarginDays
}

// fitPackages rounds the needed units up into the largest registered
// package size; the pharmacy dispenses whole packages.
func fitPackages(conn *sqlx.DB, c *model.OrderCandidate) {
	defs, err := database.ListDefinitionsForMedication(conn, c.MedicationID)
	if err != nil {
		log.Printf("WARN: [Orders] Failed to list package definitions for medication %d: %v", c.MedicationID, err)
		return
	}
	if len(defs) == 0 || c.UnitsNeeded == 0 {
		return
	}
	// Definitions come quantity ascending; the largest wastes fewest
	// part-packages.
	def := defs[len(defs)-1]
	c.PackageSize = def.PackageSize
	c.NationalNumber = def.NationalNumber
	c.PackageCount = (c.UnitsNeeded + def.Quantity - 1) / def.Quantity
}
