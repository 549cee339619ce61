package consultation

import (
	"testing"
)

func TestQuoteFirstVisit(t *testing.T) {
	visit := booking("aaaa0001", testDoctor("GMC1001", "Cardiology"), at(10), 3)
	snapshot := []*Consultation{visit}

	got := Tariff{}.Quote(1, 3, snapshot)
	if FormatCost(got) != "45.00" {
		t.Errorf("first visit of 3h = %s, want 45.00", FormatCost(got))
	}
}

func TestQuoteRepeatVisit(t *testing.T) {
	doc := testDoctor("GMC1001", "Cardiology")
	first := booking("aaaa0001", doc, at(10), 3)
	second := booking("aaaa0002", doc, at(14), 2)
	snapshot := []*Consultation{first, second}

	got := Tariff{}.Quote(1, 2, snapshot)
	if FormatCost(got) != "50.00" {
		t.Errorf("repeat visit of 2h = %s, want 50.00", FormatCost(got))
	}
}

func TestQuoteCountsOnlyThePatient(t *testing.T) {
	doc := testDoctor("GMC1001", "Cardiology")
	otherPatient := booking("aaaa0001", doc, at(10), 1)
	otherPatient.Patient.PatientID = 99
	mine := booking("aaaa0002", doc, at(12), 2)
	snapshot := []*Consultation{otherPatient, mine}

	got := Tariff{}.Quote(1, 2, snapshot)
	if FormatCost(got) != "30.00" {
		t.Errorf("got %s, want the first-visit rate 30.00", FormatCost(got))
	}
}

func TestQuoteIsIdempotent(t *testing.T) {
	doc := testDoctor("GMC1001", "Cardiology")
	first := booking("aaaa0001", doc, at(10), 3)
	second := booking("aaaa0002", doc, at(14), 2)
	snapshot := []*Consultation{first, second}

	a := Tariff{}.Quote(1, 2, snapshot)
	b := Tariff{}.Quote(1, 2, snapshot)
	if !a.Equal(b) {
		t.Errorf("repeated quotes differ: %s vs %s", FormatCost(a), FormatCost(b))
	}
}
