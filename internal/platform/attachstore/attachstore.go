// Package attachstore keeps consultation image attachments encrypted on
// disk, one directory per consultation, and decrypts them on demand.
package attachstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/crypt"
)

// Store writes sealed attachment files under root/<consultationID>/ with
// randomized names. References handed back to callers are relative to root so
// the ledger stays portable across data directories.
type Store struct {
	root string
	enc  *crypt.Encryptor
	log  zerolog.Logger
}

func New(root string, enc *crypt.Encryptor, log zerolog.Logger) *Store {
	return &Store{
		root: root,
		enc:  enc,
		log:  log.With().Str("component", "attachstore").Logger(),
	}
}

// StoreEncrypted seals the file at srcPath into the consultation's directory
// and returns the reference to hand to the ledger.
func (s *Store) StoreEncrypted(consultationID, srcPath string) (string, error) {
	plain, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	sealed, err := s.enc.Seal(plain)
	if err != nil {
		return "", fmt.Errorf("encrypt attachment: %w", err)
	}

	dir := filepath.Join(s.root, consultationID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create attachment dir: %w", err)
	}

	name := uuid.New().String()[:8] + filepath.Ext(srcPath)
	if err := os.WriteFile(filepath.Join(dir, name), sealed, 0o600); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return filepath.ToSlash(filepath.Join(consultationID, name)), nil
}

// ReadDecrypted returns the plaintext of a stored attachment.
func (s *Store) ReadDecrypted(ref string) ([]byte, error) {
	sealed, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(ref)))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	plain, err := s.enc.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("decrypt attachment: %w", err)
	}
	return plain, nil
}

// Delete removes a single stored attachment file.
func (s *Store) Delete(ref string) error {
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(ref))); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// RemoveAll deletes every file in the consultation's directory, then the
// directory itself. The directory holds no subdirectories, so the final
// removal is not recursive.
func (s *Store) RemoveAll(consultationID string) error {
	dir := filepath.Join(s.root, consultationID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list attachment dir: %w", err)
	}
	for _, entry := range entries {
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("delete attachment %s: %w", entry.Name(), err)
		}
	}
	if err := os.Remove(dir); err != nil {
		return fmt.Errorf("delete attachment dir: %w", err)
	}
	return nil
}

// DecodedImage is one successfully decrypted attachment, paired with the
// reference it was read from.
type DecodedImage struct {
	Ref  string
	Data []byte
}

// DecodeResult is the outcome of decrypting a consultation's attachments.
// Skipped counts files that could not be read or decrypted.
type DecodeResult struct {
	Images  []DecodedImage
	Skipped int
}

// DecodeAsync decrypts the referenced attachments on a background goroutine
// and delivers the result on the returned channel. progress, when non-nil, is
// called after each file with the running and total counts.
func (s *Store) DecodeAsync(refs []string, progress func(done, total int)) <-chan DecodeResult {
	out := make(chan DecodeResult, 1)
	go func() {
		defer close(out)
		var result DecodeResult
		for i, ref := range refs {
			plain, err := s.ReadDecrypted(ref)
			if err != nil {
				s.log.Warn().Err(err).Str("ref", ref).Msg("skipping unreadable attachment")
				result.Skipped++
			} else {
				result.Images = append(result.Images, DecodedImage{Ref: ref, Data: plain})
			}
			if progress != nil {
				progress(i+1, len(refs))
			}
		}
		out <- result
	}()
	return out
}
