package model

// PhysicianVisit is a recorded or planned physician appointment. Order
// planning covers the span until the next visit.
type PhysicianVisit struct {
	ID            int64  `db:"id" json:"id"`
	PhysicianName string `db:"physician_name" json:"physicianName"`
	VisitDate     string `db:"visit_date" json:"visitDate"` // YYYY-MM-DD
	Notes         string `db:"notes" json:"notes"`
	CreatedAt     string `db:"created_at" json:"createdAt"`
}

// OrderCandidate is one line of a proposed prescription order.
type OrderCandidate struct {
	MedicationID   int64  `json:"medicationId"`
	MedicationName string `json:"medicationName"`
	CurrentStock   int    `json:"currentStock"`
	DailyUsage     float64 `json:"dailyUsage"`
	DaysToCover    int    `json:"daysToCover"`
	UnitsNeeded    int    `json:"unitsNeeded"`
	PackageSize    string `json:"packageSize"`
	PackageCount   int    `json:"packageCount"`
	NationalNumber string `json:"nationalNumber"`
}
