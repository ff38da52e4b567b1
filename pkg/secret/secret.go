// Package secret seals short values (API tokens) before they reach durable storage.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "sealed:v1:"
	nonceSize    = 24
)

// ErrOpen is returned when a sealed value cannot be decrypted with the configured passphrase.
var ErrOpen = errors.New("secret: unable to open sealed value")

// Box seals and opens values with NaCl secretbox. A Box built from an empty passphrase is a
// passthrough, so installations without STORE_SECRET keep plain values.
type Box struct {
	key     *[32]byte
	enabled bool
}

// NewBox derives a key from the passphrase.
func NewBox(passphrase string) *Box {
	if passphrase == "" {
		return &Box{}
	}
	sum := sha256.Sum256([]byte(passphrase))
	return &Box{key: &sum, enabled: true}
}

// Enabled reports whether values are sealed.
func (b *Box) Enabled() bool {
	return b != nil && b.enabled
}

// Seal encrypts plain.
func (b *Box) Seal(plain string) (string, error) {
	if !b.Enabled() {
		return plain, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secret: read nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, b.key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal. Values without the sealed prefix are returned as-is.
func (b *Box) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if !b.Enabled() {
		return "", ErrOpen
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil || len(raw) < nonceSize {
		return "", ErrOpen
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, b.key)
	if !ok {
		return "", ErrOpen
	}
	return string(plain), nil
}
