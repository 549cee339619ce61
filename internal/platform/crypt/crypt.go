// Package crypt provides the symmetric encryption used for the clinic's
// persisted record files and image attachments: AES-256-GCM with the nonce
// prepended to the ciphertext, keyed by a passphrase stretched with
// PBKDF2-HMAC-SHA256.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize = 32

	// Iterations is the PBKDF2 iteration count applied to the passphrase.
	Iterations = 4096
)

// DeriveKey stretches a passphrase and salt into a 32-byte AES-256 key.
func DeriveKey(passphrase, salt string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(salt), Iterations, keySize, sha256.New)
}

// Encryptor seals and opens byte blobs with AES-256-GCM.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor from a 32-byte key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("crypt: key must be %d bytes, got %d", keySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypt: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypt: create GCM: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// Seal encrypts data and returns the nonce prepended to the ciphertext.
func (e *Encryptor) Seal(data []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypt: generate nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, so the result is nonce + ciphertext.
	return e.aead.Seal(nonce, nonce, data, nil), nil
}

// Open extracts the nonce from the front of data and decrypts the remainder.
func (e *Encryptor) Open(data []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("crypt: ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypt: open: %w", err)
	}
	return plaintext, nil
}
