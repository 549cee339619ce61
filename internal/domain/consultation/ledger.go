package consultation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/domain/roster"
)

var (
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrSlotConflict         = errors.New("doctor is not available at that time")
)

// UpdateFields carries the editable consultation fields. Nil pointers leave
// the stored value unchanged; a non-nil Attachments slice replaces the list.
type UpdateFields struct {
	Start         *time.Time
	DurationHours *int
	Notes         *string
	Attachments   []string
}

// Ledger owns the in-memory consultation list and keeps it consistent with
// the record store. Every mutation validates the slot, reprices affected
// records, persists the whole ledger and only then commits in memory, so a
// failed save leaves both memory and disk on the previous state.
type Ledger struct {
	mu        sync.Mutex
	store     RecordStore
	purger    AttachmentPurger
	tariff    Tariff
	log       zerolog.Logger
	records   []*Consultation
	listeners []Listener
}

func NewLedger(store RecordStore, purger AttachmentPurger, log zerolog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		purger: purger,
		log:    log.With().Str("component", "ledger").Logger(),
	}
}

// Load replaces the in-memory ledger with the persisted one. Called once at
// startup.
func (l *Ledger) Load(ctx context.Context) error {
	records, err := l.store.LoadConsultations(ctx)
	if err != nil {
		return fmt.Errorf("load consultations: %w", err)
	}
	l.mu.Lock()
	l.records = records
	l.mu.Unlock()
	return nil
}

// AddListener registers a callback invoked after every committed mutation.
func (l *Ledger) AddListener(fn Listener) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// Add books the consultation. The doctor must be free at the start time; the
// cost is computed from the patient's visit count with this booking included,
// then the grown ledger is persisted. An empty ID is filled in.
func (l *Ledger) Add(ctx context.Context, c *Consultation) error {
	if c.DurationHours < 1 {
		return fmt.Errorf("duration must be at least one hour")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !IsAvailable(&c.Doctor, c.Start, l.records) {
		return fmt.Errorf("%w: %s at %s", ErrSlotConflict, c.Doctor.FullName(), c.Start.Format(time.RFC3339))
	}
	if c.ID == "" {
		c.ID = NewID()
	}

	next := append(append([]*Consultation(nil), l.records...), c)
	c.Cost = l.tariff.Quote(c.Patient.PatientID, c.DurationHours, next)

	if err := l.store.SaveConsultations(ctx, next); err != nil {
		return fmt.Errorf("save consultations: %w", err)
	}
	l.records = next
	l.notify(Event{Type: EventAdded, Record: c})
	return nil
}

// Update edits the consultation with the given ID. A changed start or
// duration must leave the new interval clear of the doctor's other bookings,
// and the cost is recomputed against the current ledger. Returns the updated
// record.
func (l *Ledger) Update(ctx context.Context, id string, fields UpdateFields) (*Consultation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrConsultationNotFound, id)
	}

	updated := *l.records[idx]
	if fields.Start != nil {
		updated.Start = *fields.Start
	}
	if fields.DurationHours != nil {
		if *fields.DurationHours < 1 {
			return nil, fmt.Errorf("duration must be at least one hour")
		}
		updated.DurationHours = *fields.DurationHours
	}
	if fields.Notes != nil {
		updated.Notes = *fields.Notes
	}
	if fields.Attachments != nil {
		updated.Attachments = append([]string(nil), fields.Attachments...)
	}

	if HasOverlap(&updated.Doctor, updated.Start, updated.DurationHours, l.records, id) {
		return nil, fmt.Errorf("%w: %s at %s", ErrSlotConflict, updated.Doctor.FullName(), updated.Start.Format(time.RFC3339))
	}

	next := append([]*Consultation(nil), l.records...)
	next[idx] = &updated
	updated.Cost = l.tariff.Quote(updated.Patient.PatientID, updated.DurationHours, next)

	if err := l.store.SaveConsultations(ctx, next); err != nil {
		return nil, fmt.Errorf("save consultations: %w", err)
	}
	l.records = next
	l.notify(Event{Type: EventUpdated, Record: &updated})
	return &updated, nil
}

// Remove deletes the consultation and persists the shrunk ledger, then purges
// the record's stored attachments. A purge failure is logged rather than
// returned: the booking is already gone.
func (l *Ledger) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrConsultationNotFound, id)
	}

	removed := l.records[idx]
	next := append(append([]*Consultation(nil), l.records[:idx]...), l.records[idx+1:]...)
	if err := l.store.SaveConsultations(ctx, next); err != nil {
		return fmt.Errorf("save consultations: %w", err)
	}
	l.records = next

	if l.purger != nil && len(removed.Attachments) > 0 {
		if err := l.purger.RemoveAll(removed.ID); err != nil {
			l.log.Warn().Err(err).Str("consultation_id", removed.ID).Msg("failed to purge attachments")
		}
	}
	l.notify(Event{Type: EventRemoved, Record: removed})
	return nil
}

// Get returns a copy of the consultation with the given ID.
func (l *Ledger) Get(id string) (*Consultation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrConsultationNotFound, id)
	}
	c := *l.records[idx]
	return &c, nil
}

// All returns a snapshot of the ledger in insertion order.
func (l *Ledger) All() []*Consultation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Consultation(nil), l.records...)
}

// FindByPatientID returns copies of the patient's consultations, most useful
// for prefilling a repeat booking with known demographics.
func (l *Ledger) FindByPatientID(patientID int) []*Consultation {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Consultation
	for _, c := range l.records {
		if c.Patient.PatientID == patientID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}

// CountByDoctor returns the doctor's booking count, the load figure used by
// the least-loaded selection policy.
func (l *Ledger) CountByDoctor(doctor *roster.Doctor) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return CountBookings(doctor, l.records)
}

// Quote prices a prospective booking without committing it.
func (l *Ledger) Quote(patientID, durationHours int) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	prospective := append(append([]*Consultation(nil), l.records...), &Consultation{
		Patient:       Patient{PatientID: patientID},
		DurationHours: durationHours,
	})
	return l.tariff.Quote(patientID, durationHours, prospective)
}

func (l *Ledger) indexOf(id string) int {
	for i, c := range l.records {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) notify(ev Event) {
	for _, fn := range l.listeners {
		fn(ev)
	}
}
