package model

// MedicationImportRow is one line of a pharmacy master CSV export.
type MedicationImportRow struct {
	Name               string
	ActiveIngredient   string
	Dosage             string
	PhysicianName      string
	NationalNumber     string
	NationalNumberType string
	PackageSize        string
	Quantity           int
	Gtin               string
	CurrentCount       int
}
