// Package consultation implements the clinic's booking engine: slot
// availability, substitute selection, cost calculation and the consultation
// ledger itself.
package consultation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/domain/roster"
)

// Patient is the person a consultation is booked for. Patients exist only as
// embedded consultation data; the numeric ID groups a patient's visit history
// for repeat-rate pricing.
type Patient struct {
	roster.Person
	PatientID int `json:"patient_id"`
}

// Consultation is one booked visit. Doctor and Patient are embedded by value:
// a booking keeps the details it was made with even if the roster entry is
// later removed or edited.
type Consultation struct {
	ID            string          `json:"id"`
	Doctor        roster.Doctor   `json:"doctor"`
	Patient       Patient         `json:"patient"`
	Start         time.Time       `json:"start"`
	DurationHours int             `json:"duration_hours"`
	Cost          decimal.Decimal `json:"cost"`
	Notes         string          `json:"notes"`
	Attachments   []string        `json:"attachments,omitempty"`
}

// End returns the instant the consultation finishes.
func (c *Consultation) End() time.Time {
	return c.Start.Add(time.Duration(c.DurationHours) * time.Hour)
}

// NewID returns a fresh consultation identifier: the first eight characters
// of a random UUID.
func NewID() string {
	return uuid.New().String()[:8]
}
