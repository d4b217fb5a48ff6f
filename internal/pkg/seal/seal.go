// Package seal encrypts captured browser sessions at rest with AES-256-GCM.
// Ciphertexts are bound to a Scope through GCM additional data, so a
// session sealed for one target cannot be opened as another.
package seal

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Purpose identifies what a sealed payload contains.
type Purpose string

// PurposeSessionState scopes sealing to captured browser sessions.
const PurposeSessionState Purpose = "session_state"

// Scope is the additional data a payload is bound to.
type Scope struct {
	// Target is the configured target name.
	Target string
	// Purpose is the payload kind.
	Purpose Purpose
}

// Sealer encrypts and decrypts payloads for a scope.
type Sealer interface {
	Seal(plaintext []byte, scope Scope) ([]byte, error)
	Open(ciphertext []byte, scope Scope) ([]byte, error)
}

// KeyProvider provides raw AES keys. Keys must be 32 bytes.
type KeyProvider interface {
	Key(scope Scope) ([]byte, error)
}

// ErrInvalidKeyEncoding is returned by ParseKey for undecodable input.
var ErrInvalidKeyEncoding = errors.New("seal: key must be base64")

// ParseKey decodes a base64 (standard or URL alphabet, padded or not) key
// and checks its length.
func ParseKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		key, err := enc.DecodeString(encoded)
		if err != nil {
			continue
		}
		if len(key) != aesKeyLen {
			return nil, fmt.Errorf("seal: key is %d bytes, want %d: %w", len(key), aesKeyLen, ErrInvalidKeyLength)
		}
		return key, nil
	}
	return nil, ErrInvalidKeyEncoding
}

// New returns an AES-GCM sealer for a base64 key, or a Plain sealer when
// the key is empty.
func New(encodedKey string) (Sealer, error) {
	if strings.TrimSpace(encodedKey) == "" {
		return Plain{}, nil
	}
	key, err := ParseKey(encodedKey)
	if err != nil {
		return nil, err
	}
	return NewAESGCM(StaticKeyProvider{KeyBytes: key}), nil
}

// Plain stores payloads unencrypted.
type Plain struct{}

// Seal returns a copy of plaintext.
func (Plain) Seal(plaintext []byte, _ Scope) ([]byte, error) {
	return append([]byte(nil), plaintext...), nil
}

// Open returns a copy of ciphertext, refusing payloads that were sealed.
func (Plain) Open(ciphertext []byte, _ Scope) ([]byte, error) {
	if IsSealed(ciphertext) {
		return nil, ErrKeyRequired
	}
	return append([]byte(nil), ciphertext...), nil
}
