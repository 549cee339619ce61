package consultation

import (
	"testing"
	"time"

	"github.com/clinic/clinic/internal/domain/roster"
)

func testDoctor(license, specialisation string) *roster.Doctor {
	return &roster.Doctor{
		Person: roster.Person{
			Name:    "Amelia",
			Surname: "Watson",
			DOB:     time.Date(1980, 3, 14, 0, 0, 0, 0, time.UTC),
			Mobile:  "0712345678",
		},
		LicenseNo:      license,
		Specialisation: specialisation,
	}
}

func at(hour int) time.Time {
	return time.Date(2026, 9, 1, hour, 0, 0, 0, time.UTC)
}

func booking(id string, doctor *roster.Doctor, start time.Time, hours int) *Consultation {
	return &Consultation{
		ID:            id,
		Doctor:        *doctor,
		Patient:       Patient{PatientID: 1},
		Start:         start,
		DurationHours: hours,
	}
}

func TestIsAvailable(t *testing.T) {
	doc := testDoctor("GMC1001", "Cardiology")
	other := testDoctor("GMC2002", "Dermatology")
	other.Surname = "Holmes"
	existing := []*Consultation{booking("aaaa0001", doc, at(10), 2)}

	tests := []struct {
		name   string
		doctor *roster.Doctor
		start  time.Time
		want   bool
	}{
		{"same start clashes", doc, at(10), false},
		{"inside booking clashes", doc, at(11), false},
		{"at booking end is free", doc, at(12), true},
		{"before booking is free", doc, at(9), true},
		{"other doctor is free", other, at(10), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAvailable(tt.doctor, tt.start, existing); got != tt.want {
				t.Errorf("IsAvailable(%s) = %v, want %v", tt.start.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestIsAvailableMatchesByLicenseOnly(t *testing.T) {
	original := testDoctor("GMC1001", "Cardiology")
	existing := []*Consultation{booking("aaaa0001", original, at(10), 2)}

	// Same license re-registered under a different name, lowercase license.
	renamed := testDoctor("gmc1001", "Cardiology")
	renamed.Name = "Irene"
	renamed.Surname = "Adler"

	if IsAvailable(renamed, at(10), existing) {
		t.Error("exact-start clash missed for the renamed license holder")
	}
	if IsAvailable(renamed, at(11), existing) {
		t.Error("inside-booking clash missed for the renamed license holder")
	}
	if !HasOverlap(renamed, at(11), 2, existing, "") {
		t.Error("interval overlap missed for the renamed license holder")
	}
	if got := CountBookings(renamed, existing); got != 1 {
		t.Errorf("CountBookings = %d, want 1 for the same license", got)
	}
}

func TestIsAvailableExcluding(t *testing.T) {
	doc := testDoctor("GMC1001", "Cardiology")
	existing := []*Consultation{booking("aaaa0001", doc, at(10), 2)}

	if IsAvailable(doc, at(10), existing) {
		t.Fatal("expected clash without exclusion")
	}
	if !IsAvailableExcluding(doc, at(10), existing, "aaaa0001") {
		t.Error("expected the excluded booking not to clash with itself")
	}
}

func TestHasOverlap(t *testing.T) {
	doc := testDoctor("GMC1001", "Cardiology")
	existing := []*Consultation{booking("aaaa0001", doc, at(10), 2)}

	tests := []struct {
		name    string
		start   time.Time
		hours   int
		exclude string
		want    bool
	}{
		{"interval straddling booking", at(9), 2, "", true},
		{"interval ending at booking start", at(8), 2, "", false},
		{"interval starting at booking end", at(12), 1, "", false},
		{"enclosing interval", at(9), 4, "", true},
		{"self excluded", at(10), 2, "aaaa0001", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasOverlap(doc, tt.start, tt.hours, existing, tt.exclude)
			if got != tt.want {
				t.Errorf("HasOverlap = %v, want %v", got, tt.want)
			}
		})
	}
}
