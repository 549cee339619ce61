package consultation

import (
	"errors"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/clinic/clinic/internal/domain/roster"
)

// ErrNoSubstitute is returned when the requested doctor is busy and no other
// doctor on the roster can take the slot.
var ErrNoSubstitute = errors.New("no substitute doctor available")

// SelectionPolicy picks one doctor from a non-empty candidate pool. The
// candidates all share the requested slot's availability; the policy only
// breaks the tie.
type SelectionPolicy interface {
	Pick(candidates []*roster.Doctor) *roster.Doctor
}

// RandomPolicy picks a candidate uniformly at random.
type RandomPolicy struct {
	rng *rand.Rand
}

func NewRandomPolicy() *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *RandomPolicy) Pick(candidates []*roster.Doctor) *roster.Doctor {
	return candidates[p.rng.Intn(len(candidates))]
}

// LeastLoadedPolicy picks the candidate with the fewest booked consultations,
// breaking ties by license number ascending so the choice is deterministic.
type LeastLoadedPolicy struct {
	Load func(doctor *roster.Doctor) int
}

func (p LeastLoadedPolicy) Pick(candidates []*roster.Doctor) *roster.Doctor {
	sorted := append([]*roster.Doctor(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := p.Load(sorted[i]), p.Load(sorted[j])
		if li != lj {
			return li < lj
		}
		return strings.ToLower(sorted[i].LicenseNo) < strings.ToLower(sorted[j].LicenseNo)
	})
	return sorted[0]
}

// Selector finds a stand-in when the requested doctor cannot take a slot.
type Selector struct {
	policy SelectionPolicy
}

func NewSelector(policy SelectionPolicy) *Selector {
	return &Selector{policy: policy}
}

// FindSubstitute returns a doctor who can cover the slot in place of the
// requested one. The candidate pool is every other roster doctor who is
// either free at the start time or has no bookings at all. Candidates sharing
// the requested doctor's specialisation are preferred: if any exist, the
// policy chooses among them only.
func (s *Selector) FindSubstitute(requested *roster.Doctor, all []*roster.Doctor, existing []*Consultation, start time.Time) (*roster.Doctor, error) {
	var candidates []*roster.Doctor
	for _, d := range all {
		if d.Equal(requested) {
			continue
		}
		if IsAvailable(d, start, existing) {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoSubstitute
	}

	var sameSpec []*roster.Doctor
	for _, d := range candidates {
		if strings.EqualFold(d.Specialisation, requested.Specialisation) {
			sameSpec = append(sameSpec, d)
		}
	}
	if len(sameSpec) > 0 {
		candidates = sameSpec
	}
	return s.policy.Pick(candidates), nil
}

// CountBookings returns how many of the given consultations belong to the
// doctor's license.
func CountBookings(doctor *roster.Doctor, existing []*Consultation) int {
	n := 0
	for _, c := range existing {
		if c.Doctor.SameLicense(doctor.LicenseNo) {
			n++
		}
	}
	return n
}
