package model

// Medication is the master record for one tracked medication.
type Medication struct {
	ID                   int64  `db:"id" json:"id"`
	Name                 string `db:"name" json:"name"`
	ActiveIngredient     string `db:"active_ingredient" json:"activeIngredient"`
	Dosage               string `db:"dosage" json:"dosage"`
	PhysicianName        string `db:"physician_name" json:"physicianName"`
	MinThreshold         int    `db:"min_threshold" json:"minThreshold"`
	SafetyMarginDays     int    `db:"safety_margin_days" json:"safetyMarginDays"`
	AutoDeductionEnabled bool   `db:"auto_deduction_enabled" json:"autoDeductionEnabled"`
	InventoryMode        string `db:"inventory_mode" json:"inventoryMode"`
	CreatedAt            string `db:"created_at" json:"createdAt"`
	UpdatedAt            string `db:"updated_at" json:"updatedAt"`
}

// PackageDefinition maps a product code to its units per package.
// PackageSize is the pharmacy norm size (N1, N2, N3) or a custom label.
type PackageDefinition struct {
	ID                 int64  `db:"id" json:"id"`
	MedicationID       int64  `db:"medication_id" json:"medicationId"`
	PackageSize        string `db:"package_size" json:"packageSize"`
	Quantity           int    `db:"quantity" json:"quantity"`
	Gtin               string `db:"gtin" json:"gtin"`
	NationalNumber     string `db:"national_number" json:"nationalNumber"`
	NationalNumberType string `db:"national_number_type" json:"nationalNumberType"`
}
