package persistence

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	sealSalt       = "FormDBSalt"
	sealIterations = 100000
	sealKeyLen     = 32
	sealNonceLen   = 12
)

// ErrSealed is returned when a sealed snapshot cannot be opened with the key
// derived from its identifier.
var ErrSealed = errors.New("persistence: cannot open sealed snapshot")

// SealedStore encrypts snapshots before handing them to the wrapped store.
// The AES-256-GCM key is derived from the identifier with PBKDF2-SHA256; the
// stored value is base64(nonce || ciphertext).
type SealedStore struct {
	next Store
	rand io.Reader
}

func NewSealedStore(next Store) *SealedStore {
	return &SealedStore{next: next, rand: rand.Reader}
}

func sealKey(identifier string) []byte {
	return pbkdf2.Key([]byte(identifier), []byte(sealSalt), sealIterations, sealKeyLen, sha256.New)
}

func sealCipher(identifier string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(sealKey(identifier))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s *SealedStore) Save(ctx context.Context, identifier string, data []byte) error {
	if err := checkIdentifier(identifier); err != nil {
		return err
	}
	aead, err := sealCipher(identifier)
	if err != nil {
		return fmt.Errorf("persistence: seal: %w", err)
	}
	nonce := make([]byte, sealNonceLen)
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return fmt.Errorf("persistence: seal nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, data, nil)
	encoded := base64.StdEncoding.EncodeToString(sealed)
	return s.next.Save(ctx, identifier, []byte(encoded))
}

func (s *SealedStore) Load(ctx context.Context, identifier string) ([]byte, error) {
	encoded, err := s.next.Load(ctx, identifier)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil || len(raw) < sealNonceLen {
		return nil, ErrSealed
	}
	aead, err := sealCipher(identifier)
	if err != nil {
		return nil, fmt.Errorf("persistence: seal: %w", err)
	}
	plain, err := aead.Open(nil, raw[:sealNonceLen], raw[sealNonceLen:], nil)
	if err != nil {
		return nil, ErrSealed
	}
	return plain, nil
}

func (s *SealedStore) Clear(ctx context.Context, identifier string) error {
	return s.next.Clear(ctx, identifier)
}
