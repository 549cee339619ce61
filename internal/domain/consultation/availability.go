package consultation

import (
	"time"

	"github.com/clinic/clinic/internal/domain/roster"
)

// IsAvailable reports whether the doctor is free to start a consultation at
// the given instant. Bookings are matched by license number alone, so a
// record made under an earlier roster entry still blocks the license holder's
// slot. A start clashes with an existing booking when it equals the booking's
// start or falls strictly inside it; starting exactly when an earlier booking
// ends is allowed.
func IsAvailable(doctor *roster.Doctor, start time.Time, existing []*Consultation) bool {
	return isAvailableExcluding(doctor, start, existing, "")
}

// IsAvailableExcluding is IsAvailable with one booking ignored, used when
// editing: the record being moved must not clash with itself.
func IsAvailableExcluding(doctor *roster.Doctor, start time.Time, existing []*Consultation, excludeID string) bool {
	return isAvailableExcluding(doctor, start, existing, excludeID)
}

func isAvailableExcluding(doctor *roster.Doctor, start time.Time, existing []*Consultation, excludeID string) bool {
	for _, c := range existing {
		if excludeID != "" && c.ID == excludeID {
			continue
		}
		if !c.Doctor.SameLicense(doctor.LicenseNo) {
			continue
		}
		if start.Equal(c.Start) {
			return false
		}
		if start.After(c.Start) && start.Before(c.End()) {
			return false
		}
	}
	return true
}

// HasOverlap reports whether the interval [start, start+duration) intersects
// any of the doctor's existing bookings, ignoring the one with excludeID.
// Used when rescheduling or extending a consultation, where the new interval
// as a whole must be free rather than just its start.
func HasOverlap(doctor *roster.Doctor, start time.Time, durationHours int, existing []*Consultation, excludeID string) bool {
	end := start.Add(time.Duration(durationHours) * time.Hour)
	for _, c := range existing {
		if excludeID != "" && c.ID == excludeID {
			continue
		}
		if !c.Doctor.SameLicense(doctor.LicenseNo) {
			continue
		}
		if start.Before(c.End()) && c.Start.Before(end) {
			return true
		}
	}
	return false
}
