package roster

import (
	"sort"
	"strings"
	"time"
)

// Person holds the demographic fields shared by doctors and patients.
type Person struct {
	Name    string    `json:"name"`
	Surname string    `json:"surname"`
	DOB     time.Time `json:"dob"`
	Mobile  string    `json:"mobile"`
}

// FullName returns "Name Surname".
func (p Person) FullName() string {
	return p.Name + " " + p.Surname
}

// Doctor is one roster entry. The medical license number is the unique
// identifier; license matching is case-insensitive everywhere.
type Doctor struct {
	Person
	LicenseNo      string `json:"license_no"`
	Specialisation string `json:"specialisation"`
}

// Equal reports whether two doctors are the same entry: full name plus
// license number.
func (d *Doctor) Equal(other *Doctor) bool {
	if other == nil {
		return false
	}
	return d.FullName() == other.FullName() && strings.EqualFold(d.LicenseNo, other.LicenseNo)
}

// SameLicense reports whether the doctor holds the given license number.
func (d *Doctor) SameLicense(license string) bool {
	return strings.EqualFold(d.LicenseNo, license)
}

// SortBySurname orders doctors alphabetically by surname, case-insensitive.
// The default display order for the roster.
func SortBySurname(doctors []*Doctor) {
	sort.SliceStable(doctors, func(i, j int) bool {
		return strings.ToLower(doctors[i].Surname) < strings.ToLower(doctors[j].Surname)
	})
}
