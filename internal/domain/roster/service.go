package roster

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// MaxDoctors is the clinic's roster capacity.
const MaxDoctors = 10

var (
	ErrRosterFull       = errors.New("roster is at capacity")
	ErrDuplicateLicense = errors.New("duplicate medical license number")
	ErrDoctorNotFound   = errors.New("doctor not found")
)

var (
	nameRe           = regexp.MustCompile(`^[a-zA-Z]+$`)
	specialisationRe = regexp.MustCompile(`^[a-zA-Z ]+$`)
	licenseRe        = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	mobileRe         = regexp.MustCompile(`^[0-9]{10}$`)
)

// Service owns the in-memory doctor roster and keeps it consistent with the
// store: every mutation rewrites the persisted roster wholesale. The calling
// form layer validates field formats before invoking the service; the checks
// here re-verify them as preconditions.
type Service struct {
	mu      sync.Mutex
	store   DoctorStore
	doctors []*Doctor
}

func NewService(store DoctorStore) *Service {
	return &Service{store: store}
}

// Load replaces the in-memory roster with the persisted one. Called once at
// startup.
func (s *Service) Load(ctx context.Context) error {
	doctors, err := s.store.LoadDoctors(ctx)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	s.mu.Lock()
	s.doctors = doctors
	s.mu.Unlock()
	return nil
}

// Add validates the doctor, enforces the capacity and unique-license
// invariants, and persists the grown roster. The stored name and surname are
// capitalized. On a save failure the in-memory roster is left unchanged.
func (s *Service) Add(ctx context.Context, d *Doctor) error {
	if err := validateDoctor(d); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.doctors) >= MaxDoctors {
		return ErrRosterFull
	}
	for _, existing := range s.doctors {
		if existing.SameLicense(d.LicenseNo) {
			return fmt.Errorf("%w: %s", ErrDuplicateLicense, d.LicenseNo)
		}
	}

	d.Name = capitalize(d.Name)
	d.Surname = capitalize(d.Surname)

	next := append(append([]*Doctor(nil), s.doctors...), d)
	if err := s.store.SaveDoctors(ctx, next); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	s.doctors = next
	return nil
}

// Remove deletes the doctor holding the given license and persists the
// shrunk roster. Existing consultations keep their own embedded copy of the
// doctor's data, so removal does not cascade. Returns the removed entry.
func (s *Service) Remove(ctx context.Context, license string) (*Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, d := range s.doctors {
		if d.SameLicense(license) {
			idx = i
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, license)
	}

	removed := s.doctors[idx]
	next := append(append([]*Doctor(nil), s.doctors[:idx]...), s.doctors[idx+1:]...)
	if err := s.store.SaveDoctors(ctx, next); err != nil {
		return nil, fmt.Errorf("save roster: %w", err)
	}
	s.doctors = next
	return removed, nil
}

// Get returns the doctor holding the given license.
func (s *Service) Get(license string) (*Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.doctors {
		if d.SameLicense(license) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, license)
}

// All returns a copy of the roster in insertion order.
func (s *Service) All() []*Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Doctor(nil), s.doctors...)
}

// List returns a copy of the roster sorted by surname.
func (s *Service) List() []*Doctor {
	doctors := s.All()
	SortBySurname(doctors)
	return doctors
}

// Count returns the number of doctors in the roster.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doctors)
}

func validateDoctor(d *Doctor) error {
	switch {
	case !nameRe.MatchString(d.Name):
		return fmt.Errorf("name must contain letters only")
	case !nameRe.MatchString(d.Surname):
		return fmt.Errorf("surname must contain letters only")
	case !specialisationRe.MatchString(d.Specialisation):
		return fmt.Errorf("specialisation must contain letters only")
	case !licenseRe.MatchString(d.LicenseNo):
		return fmt.Errorf("license number must be alphanumeric")
	case !mobileRe.MatchString(d.Mobile):
		return fmt.Errorf("mobile number must be 10 digits")
	case d.DOB.IsZero():
		return fmt.Errorf("date of birth is required")
	}
	return nil
}

func capitalize(s string) string {
	return strings.ToUpper(s[:1]) + s[1:]
}
