package model

// National number types embedded in an NTIN/PPN product code.
const (
	NationalNumberDEPZN    = "DE_PZN"
	NationalNumberFRCIP13  = "FR_CIP13"
	NationalNumberBECNK    = "BE_CNK"
	NationalNumberATPharma = "AT_PHARMANUMMER"
	NationalNumberGtinOnly = "GTIN_ONLY"
)

// ScanEvent is one physical package scan. Rows are never deleted; lifecycle
// changes happen on the associated package record instead.
type ScanEvent struct {
	ID                 string `db:"id" json:"id"`
	MedicationID       int64  `db:"medication_id" json:"medicationId"`
	Gtin               string `db:"gtin" json:"gtin"` // GTIN/NTIN, or PPN on PPN-coded labels
	NationalNumber     string `db:"national_number" json:"nationalNumber"`
	NationalNumberType string `db:"national_number_type" json:"nationalNumberType"`
	CountryCode        string `db:"country_code" json:"countryCode"`
	ChecksumValid      bool   `db:"checksum_valid" json:"checksumValid"`
	SerialNumber       string `db:"serial_number" json:"serialNumber"`
	BatchNumber        string `db:"batch_number" json:"batchNumber"`
	ExpiryDate         string `db:"expiry_date" json:"expiryDate"` // YYYY-MM-DD, "" when unreadable
	RawPayload         string `db:"raw_payload" json:"rawPayload"`
	ScannedAt          string `db:"scanned_at" json:"scannedAt"`
}
