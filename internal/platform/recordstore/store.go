// Package recordstore persists the roster and the consultation ledger as
// encrypted JSON files under the clinic's data directory.
package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/consultation"
	"github.com/clinic/clinic/internal/domain/roster"
	"github.com/clinic/clinic/internal/platform/crypt"
)

const (
	doctorsFile       = "doctors.dat"
	consultationsFile = "consultations.dat"
)

// Store reads and writes the clinic's two data files. Each save rewrites the
// whole file through a temp-and-rename so a crash mid-write never leaves a
// truncated ciphertext behind.
type Store struct {
	dir string
	enc *crypt.Encryptor
	log zerolog.Logger
}

var _ roster.DoctorStore = (*Store)(nil)
var _ consultation.RecordStore = (*Store)(nil)

func New(dir string, enc *crypt.Encryptor, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		dir: dir,
		enc: enc,
		log: log.With().Str("component", "recordstore").Logger(),
	}, nil
}

// LoadDoctors returns the persisted roster. A missing or unreadable file is
// logged and treated as an empty roster so the clinic can always start.
func (s *Store) LoadDoctors(_ context.Context) ([]*roster.Doctor, error) {
	var doctors []*roster.Doctor
	if !s.load(doctorsFile, &doctors) {
		return nil, nil
	}
	return doctors, nil
}

// SaveDoctors rewrites the persisted roster.
func (s *Store) SaveDoctors(_ context.Context, doctors []*roster.Doctor) error {
	return s.save(doctorsFile, doctors)
}

// LoadConsultations returns the persisted ledger, empty when the file is
// missing or unreadable.
func (s *Store) LoadConsultations(_ context.Context) ([]*consultation.Consultation, error) {
	var records []*consultation.Consultation
	if !s.load(consultationsFile, &records) {
		return nil, nil
	}
	return records, nil
}

// SaveConsultations rewrites the persisted ledger.
func (s *Store) SaveConsultations(_ context.Context, records []*consultation.Consultation) error {
	return s.save(consultationsFile, records)
}

func (s *Store) load(name string, out any) bool {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("file", name).Msg("unreadable data file, starting empty")
		}
		return false
	}

	plain, err := s.enc.Open(data)
	if err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("cannot decrypt data file, starting empty")
		return false
	}
	if err := json.Unmarshal(plain, out); err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("corrupt data file, starting empty")
		return false
	}
	return true
}

func (s *Store) save(name string, v any) error {
	plain, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	sealed, err := s.enc.Seal(plain)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
