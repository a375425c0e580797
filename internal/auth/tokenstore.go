// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth stores the OAuth bearer token the gateway presents.
//
// The OAuth redirect flow itself lives outside this client; login hands
// a finished token to the store and logout clears it. The token is
// encrypted at rest with AES-256-GCM under a key derived from a random
// keyfile, both written with 0600 permissions.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/sagedesk/sage-tui/internal/util"
)

const (
	// keySize is the AES-256 key length.
	keySize = 32

	// saltSize is the PBKDF2 salt length.
	saltSize = 32

	// secretSize is the random keyfile payload length.
	secretSize = 32

	// pbkdf2Iterations follows the OWASP recommendation for PBKDF2-SHA-256.
	pbkdf2Iterations = 600000

	tokenFile = "token.enc"
	keyFile   = "token.key"
)

var (
	// ErrCorruptToken indicates the stored token failed authentication,
	// either through tampering or a lost keyfile.
	ErrCorruptToken = errors.New("stored token is corrupt")
)

// Store persists a single bearer token under dir. It satisfies the
// gateway's TokenSource.
type Store struct {
	dir string
}

// DefaultDir returns the token directory under the user's home.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".sage"), nil
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// =============================================================================
// TOKEN ACCESS
// =============================================================================

// Token returns the stored token, or empty with no error when the user
// has not logged in. Decryption failure is an error so a tampered file
// is surfaced instead of silently treated as logged-out.
func (s *Store) Token() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, tokenFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	key, err := s.loadKey()
	if err != nil {
		return "", err
	}
	defer zeroBytes(key)

	plaintext, err := decrypt(key, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptToken, err)
	}
	return string(plaintext), nil
}

// Save encrypts and stores the token, creating the keyfile on first use.
func (s *Store) Save(token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return err
	}
	defer zeroBytes(key)

	ciphertext, err := encrypt(key, []byte(token))
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	if err := util.AtomicWriteFile(filepath.Join(s.dir, tokenFile), ciphertext, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Exists reports whether a token is stored, without decrypting it.
func (s *Store) Exists() bool {
	_, err := os.Stat(filepath.Join(s.dir, tokenFile))
	return err == nil
}

// Clear removes the stored token. The gateway calls this indirectly when
// the server reports the token invalid; logout calls it directly.
func (s *Store) Clear() error {
	err := os.Remove(filepath.Join(s.dir, tokenFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// =============================================================================
// KEY MATERIAL
// =============================================================================

// loadOrCreateKey derives the AES key from the keyfile, creating a fresh
// random keyfile when none exists.
func (s *Store) loadOrCreateKey() ([]byte, error) {
	key, err := s.loadKey()
	if err == nil {
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	secret := make([]byte, secretSize+saltSize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}
	if err := util.AtomicWriteFile(filepath.Join(s.dir, keyFile), secret, 0600); err != nil {
		return nil, fmt.Errorf("failed to write keyfile: %w", err)
	}
	return deriveKey(secret), nil
}

// loadKey reads the keyfile and derives the AES key. The os.IsNotExist
// result of the read is preserved for the caller.
func (s *Store) loadKey() ([]byte, error) {
	secret, err := os.ReadFile(filepath.Join(s.dir, keyFile))
	if err != nil {
		return nil, err
	}
	if len(secret) != secretSize+saltSize {
		return nil, errors.New("keyfile has unexpected size")
	}
	return deriveKey(secret), nil
}

func deriveKey(secret []byte) []byte {
	return pbkdf2.Key(secret[:secretSize], secret[secretSize:], pbkdf2Iterations, keySize, sha256.New)
}

// zeroBytes clears key material so it does not linger in crash dumps.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// =============================================================================
// AES-256-GCM
// =============================================================================

// encrypt seals plaintext as nonce|ciphertext|tag.
func encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt opens a nonce|ciphertext|tag blob.
func decrypt(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	return gcm.Open(nil, data[:gcm.NonceSize()], data[gcm.NonceSize():], nil)
}
