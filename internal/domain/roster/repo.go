package roster

import "context"

// DoctorStore persists the full roster as one durable record. Loading a
// missing or unreadable record yields an empty roster rather than an error;
// save failures are surfaced to the caller.
type DoctorStore interface {
	LoadDoctors(ctx context.Context) ([]*Doctor, error)
	SaveDoctors(ctx context.Context, doctors []*Doctor) error
}
