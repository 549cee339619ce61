package consultation

import "context"

// RecordStore persists the consultation ledger wholesale. Implementations
// encrypt at rest; the ledger never sees ciphertext.
type RecordStore interface {
	LoadConsultations(ctx context.Context) ([]*Consultation, error)
	SaveConsultations(ctx context.Context, records []*Consultation) error
}

// AttachmentPurger removes a consultation's stored attachment files. Purging
// is best-effort cleanup after the ledger entry is gone; failures are logged,
// not returned.
type AttachmentPurger interface {
	RemoveAll(consultationID string) error
}

// EventType identifies a ledger mutation.
type EventType int

const (
	EventAdded EventType = iota
	EventUpdated
	EventRemoved
)

// Event describes one committed ledger mutation.
type Event struct {
	Type   EventType
	Record *Consultation
}

// Listener receives ledger events after each successful mutation, on the
// mutating goroutine.
type Listener func(Event)
