package consultation

import (
	"errors"
	"testing"

	"github.com/clinic/clinic/internal/domain/roster"
)

func leastLoaded(existing []*Consultation) *Selector {
	return NewSelector(LeastLoadedPolicy{
		Load: func(d *roster.Doctor) int { return CountBookings(d, existing) },
	})
}

func TestFindSubstitutePrefersSameSpecialisation(t *testing.T) {
	requested := testDoctor("GMC1001", "Cardiology")
	sameSpec := testDoctor("GMC2002", "Cardiology")
	sameSpec.Surname = "Holmes"
	otherSpec := testDoctor("GMC3003", "Dermatology")
	otherSpec.Surname = "Adler"

	existing := []*Consultation{booking("aaaa0001", requested, at(10), 1)}
	all := []*roster.Doctor{requested, otherSpec, sameSpec}

	got, err := leastLoaded(existing).FindSubstitute(requested, all, existing, at(10))
	if err != nil {
		t.Fatalf("FindSubstitute: %v", err)
	}
	if !got.Equal(sameSpec) {
		t.Errorf("selected %s, want the cardiologist %s", got.FullName(), sameSpec.FullName())
	}
}

func TestFindSubstituteNeverReturnsRequested(t *testing.T) {
	requested := testDoctor("GMC1001", "Cardiology")
	other := testDoctor("GMC2002", "Dermatology")
	other.Surname = "Holmes"
	all := []*roster.Doctor{requested, other}

	got, err := leastLoaded(nil).FindSubstitute(requested, all, nil, at(10))
	if err != nil {
		t.Fatalf("FindSubstitute: %v", err)
	}
	if got.Equal(requested) {
		t.Error("substitute must not be the requested doctor")
	}
}

func TestFindSubstituteNoneAvailable(t *testing.T) {
	requested := testDoctor("GMC1001", "Cardiology")
	busy := testDoctor("GMC2002", "Cardiology")
	busy.Surname = "Holmes"
	existing := []*Consultation{
		booking("aaaa0001", requested, at(10), 1),
		booking("aaaa0002", busy, at(10), 1),
	}
	all := []*roster.Doctor{requested, busy}

	_, err := leastLoaded(existing).FindSubstitute(requested, all, existing, at(10))
	if !errors.Is(err, ErrNoSubstitute) {
		t.Errorf("got %v, want ErrNoSubstitute", err)
	}
}

func TestLeastLoadedPolicyBreaksTiesByLicense(t *testing.T) {
	a := testDoctor("GMC2002", "Cardiology")
	b := testDoctor("GMC1001", "Cardiology")
	b.Surname = "Holmes"

	policy := LeastLoadedPolicy{Load: func(*roster.Doctor) int { return 0 }}
	if got := policy.Pick([]*roster.Doctor{a, b}); !got.Equal(b) {
		t.Errorf("tie broken to %s, want lowest license GMC1001", got.LicenseNo)
	}
}

func TestLeastLoadedPolicyPicksLowestLoad(t *testing.T) {
	busy := testDoctor("GMC1001", "Cardiology")
	idle := testDoctor("GMC2002", "Cardiology")
	idle.Surname = "Holmes"

	loads := map[string]int{"GMC1001": 3, "GMC2002": 1}
	policy := LeastLoadedPolicy{Load: func(d *roster.Doctor) int { return loads[d.LicenseNo] }}
	if got := policy.Pick([]*roster.Doctor{busy, idle}); !got.Equal(idle) {
		t.Errorf("picked %s, want the least loaded GMC2002", got.LicenseNo)
	}
}

func TestRandomPolicyPicksFromCandidates(t *testing.T) {
	a := testDoctor("GMC1001", "Cardiology")
	b := testDoctor("GMC2002", "Cardiology")
	b.Surname = "Holmes"
	candidates := []*roster.Doctor{a, b}

	policy := NewRandomPolicy()
	for i := 0; i < 20; i++ {
		got := policy.Pick(candidates)
		if !got.Equal(a) && !got.Equal(b) {
			t.Fatalf("picked a doctor outside the candidate pool: %s", got.FullName())
		}
	}
}
