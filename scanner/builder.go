// Package scanner turns tokenized barcode payloads into persisted scan
// events and package records.
package scanner

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"medtrack/barcode"
	"medtrack/database"
	"medtrack/model"
)

var (
	// ErrDuplicateSerial means this exact package was scanned before.
	// Always a hard reject: a repeated serial is either a double scan or
	// a cloned label, and neither may silently increase stock.
	ErrDuplicateSerial = errors.New("serial number already recorded for this product")

	// ErrInvalidChecksum is returned only when the configuration demands
	// hard rejection of failed check digits.
	ErrInvalidChecksum = errors.New("product code failed checksum validation")

	// ErrUnknownProduct means no package definition matches the scanned
	// product code, so original units cannot be derived.
	ErrUnknownProduct = errors.New("no package definition for scanned product code")
)

// Options carries the scan-acceptance policy.
type Options struct {
	// RejectInvalidChecksum turns checksum failures from a logged warning
	// into a hard reject. Scanners misread single digits in the field, so
	// the default is to accept and flag.
	RejectInvalidChecksum bool
}

// Result is a successful scan with the stock it produced.
type Result struct {
	Event    *model.ScanEvent        `json:"event"`
	Package  *model.PackageRecord    `json:"package,omitempty"`
	Identity barcode.ProductIdentity `json:"identity"`
	Warnings []string                `json:"warnings,omitempty"`
}

// ParseScan is the single entry point from the scanner UI: tokenize the
// payload, extract the product identity, enforce the scan invariants and
// persist the event. When the medication tracks packages, a sealed package
// record is created with the units of the matched package definition.
func ParseScan(conn *sqlx.DB, raw string, opts Options, now time.Time) (*Result, error) {
	pc, err := barcode.Tokenize(raw)
	if err != nil {
		return nil, err
	}

	identity := extractIdentity(pc)

	serial := pc.Serial()
	if !validSerial(serial) {
		return nil, fmt.Errorf("%w: serial number missing or not 1-20 alphanumeric chars", barcode.ErrMalformedPayload)
	}
	batch := pc.Batch()
	if len(batch) > 20 {
		batch = batch[:20]
	}

	var warnings []string
	if !identity.ChecksumValid {
		if opts.RejectInvalidChecksum {
			return nil, fmt.Errorf("%w: %s", ErrInvalidChecksum, identity.Gtin)
		}
		log.Printf("WARN: [Scanner] Accepting product code %s with failed checksum", identity.Gtin)
		warnings = append(warnings, "product code failed checksum validation")
	}

	expiry, err := ParseExpiry(pc.Expiry())
	if err != nil {
		log.Printf("WARN: [Scanner] Unparsable expiry %q on serial %s: %v", pc.Expiry(), serial, err)
		warnings = append(warnings, "expiry date unreadable")
		expiry = ""
	}

	tx, err := conn.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin scan transaction: %w", err)
	}
	defer tx.Rollback()

	def, err := findDefinition(tx, identity)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, identity.Gtin)
	}

	event := &model.ScanEvent{
		ID:                 uuid.NewString(),
		MedicationID:       def.MedicationID,
		Gtin:               identity.Gtin,
		NationalNumber:     identity.NationalNumber,
		NationalNumberType: identity.NationalNumberType,
		CountryCode:        identity.CountryCode,
		ChecksumValid:      identity.ChecksumValid,
		SerialNumber:       serial,
		BatchNumber:        batch,
		ExpiryDate:         expiry,
		RawPayload:         raw,
		ScannedAt:          database.FormatDateTime(now),
	}

	if err := database.InsertScanEvent(tx, event); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: gtin %s serial %s", ErrDuplicateSerial, identity.Gtin, serial)
		}
		return nil, err
	}

	result := &Result{Event: event, Identity: identity, Warnings: warnings}

	med, err := database.GetMedicationByID(tx, def.MedicationID)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, fmt.Errorf("package definition %d references missing medication %d", def.ID, def.MedicationID)
	}

	if med.InventoryMode == model.InventoryModePackages || med.InventoryMode == model.InventoryModeHybrid {
		if def.Quantity <= 0 {
			return nil, fmt.Errorf("package definition for gtin %s has no unit count", identity.Gtin)
		}
		pkgID, err := database.InsertPackageRecord(tx, med.ID, event.ID, def.Quantity)
		if err != nil {
			return nil, err
		}
		result.Package = &model.PackageRecord{
			ID:            pkgID,
			MedicationID:  med.ID,
			ScanEventID:   event.ID,
			CurrentUnits:  def.Quantity,
			OriginalUnits: def.Quantity,
			Status:        model.PackageStatusSealed,
			ExpiryDate:    expiry,
			SerialNumber:  serial,
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit scan: %w", err)
	}
	return result, nil
}

func extractIdentity(pc *barcode.ParsedCode) barcode.ProductIdentity {
	if gtin, ok := pc.Get(barcode.AIGtin); ok {
		return barcode.ExtractIdentity(gtin)
	}
	ppn, _ := pc.Get(barcode.DIPPN)
	return barcode.ExtractIdentityFromPPN(ppn)
}

// findDefinition matches the scan to a registered package: GTIN first,
// then the national number extracted from it.
func findDefinition(dbtx database.DBTX, identity barcode.ProductIdentity) (*model.PackageDefinition, error) {
	if identity.Gtin != "" {
		def, err := database.GetDefinitionByGtin(dbtx, identity.Gtin)
		if err != nil || def != nil {
			return def, err
		}
	}
	if identity.NationalNumber != "" {
		return database.GetDefinitionByNationalNumber(dbtx, identity.NationalNumber, identity.NationalNumberType)
	}
	return nil, nil
}

func validSerial(s string) bool {
	if len(s) < 1 || len(s) > 20 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		default:
			return false
		}
	}
	return true
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// ParseExpiry converts a YYMMDD expiry into YYYY-MM-DD. Day 00 means
// "unknown day" and becomes the last day of the month so FEFO ordering
// errs on the late side. Years 00-49 map to 2000s, 50-99 to 1900s.
func ParseExpiry(yymmdd string) (string, error) {
	if yymmdd == "" {
		return "", nil
	}
	if len(yymmdd) != 6 {
		return "", fmt.Errorf("expiry %q is not YYMMDD", yymmdd)
	}
	for _, r := range yymmdd {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("expiry %q is not numeric", yymmdd)
		}
	}
	year := int(yymmdd[0]-'0')*10 + int(yymmdd[1]-'0')
	if year < 50 {
		year += 2000
	} else {
		year += 1900
	}
	month := int(yymmdd[2]-'0')*10 + int(yymmdd[3]-'0')
	if month < 1 || month > 12 {
		return "", fmt.Errorf("expiry %q has invalid month", yymmdd)
	}
	day := int(yymmdd[4]-'0')*10 + int(yymmdd[5]-'0')
	if day == 0 {
		// time.Date day 0 of the next month = last day of this month.
		day = time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day {
		return "", fmt.Errorf("expiry %q has invalid day", yymmdd)
	}
	return t.Format(database.DateLayout), nil
}
