package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltKey holds the argon2 salt next to sealed values. It is stored in clear.
const SaltKey = "_sealed_salt"

const (
	saltSize     = 16
	kdfTime      = 1
	kdfMemoryKB  = 64 * 1024
	kdfThreads   = 4
	sealedKeyLen = chacha20poly1305.KeySize
)

// ErrSealedKey is returned for an unusable encryption key.
var ErrSealedKey = errors.New("invalid sealed storage key")

// Sealed encrypts every value with XChaCha20-Poly1305 before it reaches the inner
// backend. The storage key is bound as associated data, so a ciphertext moved to another
// key fails to open.
//
// Values that fail to decrypt are omitted from Get results, which the session layer
// treats like a missing field.
type Sealed struct {
	inner Backend
	aead  cipher.AEAD
}

// NewSealed wraps inner with a raw 32-byte key.
func NewSealed(inner Backend, key []byte) (*Sealed, error) {
	if inner == nil {
		return nil, errors.New("nil inner backend")
	}
	if len(key) != sealedKeyLen {
		return nil, ErrSealedKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealedKey, err)
	}
	return &Sealed{inner: inner, aead: aead}, nil
}

// OpenSealed derives the key from passphrase with argon2id. The salt is read from
// [SaltKey] in inner, or generated and stored there on first use.
func OpenSealed(ctx context.Context, inner Backend, passphrase string) (*Sealed, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", ErrSealedKey)
	}
	if inner == nil {
		return nil, errors.New("nil inner backend")
	}

	got, err := inner.Get(ctx, SaltKey)
	if err != nil {
		return nil, err
	}

	var salt []byte
	if encoded, ok := got[SaltKey]; ok {
		salt, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil || len(salt) != saltSize {
			return nil, fmt.Errorf("%w: stored salt is malformed", ErrSealedKey)
		}
	} else {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, err
		}
		if err := inner.Apply(ctx, Batch{Set: map[string]string{
			SaltKey: base64.RawStdEncoding.EncodeToString(salt),
		}}); err != nil {
			return nil, err
		}
	}

	return NewSealed(inner, DeriveKey(passphrase, salt))
}

// DeriveKey stretches passphrase into a sealed-storage key.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemoryKB, kdfThreads, sealedKeyLen)
}

// Get decrypts the present subset of keys.
func (s *Sealed) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	raw, err := s.inner.Get(ctx, keys...)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		plain, ok := s.open(k, v)
		if !ok {
			continue
		}
		out[k] = plain
	}
	return out, nil
}

// Apply encrypts every value in Set and forwards the batch.
func (s *Sealed) Apply(ctx context.Context, batch Batch) error {
	if batch.Empty() {
		return nil
	}

	sealed := Batch{
		Set:    make(map[string]string, len(batch.Set)),
		Delete: batch.Delete,
	}
	for k, v := range batch.Set {
		enc, err := s.seal(k, v)
		if err != nil {
			return err
		}
		sealed.Set[k] = enc
	}
	return s.inner.Apply(ctx, sealed)
}

// Close closes the inner backend.
func (s *Sealed) Close() error {
	return s.inner.Close()
}

func (s *Sealed) seal(key, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *Sealed) open(key, value string) (string, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", false
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return "", false
	}
	return string(plain), true
}
