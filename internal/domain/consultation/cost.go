package consultation

import "github.com/shopspring/decimal"

// Hourly rates in pounds. A patient's first visit is charged at the lower
// rate; every visit after that at the repeat rate.
var (
	FirstVisitRate = decimal.NewFromInt(15)
	RepeatRate     = decimal.NewFromInt(25)
)

// Tariff prices consultations from a snapshot of the ledger.
type Tariff struct{}

// Quote returns the cost of a visit of the given length for the patient,
// priced against a snapshot that already includes the visit being quoted.
// With one recorded visit the patient is new; with more they are returning.
func (Tariff) Quote(patientID, durationHours int, snapshot []*Consultation) decimal.Decimal {
	visits := 0
	for _, c := range snapshot {
		if c.Patient.PatientID == patientID {
			visits++
		}
	}
	rate := FirstVisitRate
	if visits > 1 {
		rate = RepeatRate
	}
	return rate.Mul(decimal.NewFromInt(int64(durationHours)))
}

// FormatCost renders a cost with two decimal places, e.g. "45.00".
func FormatCost(cost decimal.Decimal) string {
	return cost.StringFixed(2)
}
