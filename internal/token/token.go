// Package token encodes opaque single-use links as an id plus a secret.
// Only the secret's hash is kept server-side.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	idSize     = 16
	secretSize = 32
	rawSize    = idSize + secretSize
)

// ErrMalformed reports a string that is not an encoded token.
var ErrMalformed = errors.New("malformed token")

// ID names a token record.
type ID [idSize]byte

// Secret is the random half of a token.
type Secret [secretSize]byte

// NewID returns a random ID.
func NewID() (ID, error) {
	var id ID
	_, err := rand.Read(id[:])
	return id, err
}

func (id ID) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// ParseID decodes the String form of an ID.
func ParseID(s string) (ID, error) {
	var id ID
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != idSize {
		return id, ErrMalformed
	}
	copy(id[:], raw)
	return id, nil
}

// NewSecret returns a random secret.
func NewSecret() (Secret, error) {
	var s Secret
	_, err := rand.Read(s[:])
	return s, err
}

// Hash is what gets stored in place of the secret.
func (s Secret) Hash() [32]byte {
	return sha256.Sum256(s[:])
}

// Encode joins id and secret into one URL-safe string.
func Encode(id ID, secret Secret) string {
	var raw [rawSize]byte
	copy(raw[:idSize], id[:])
	copy(raw[idSize:], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// Decode splits a string produced by Encode.
func Decode(tok string) (ID, Secret, error) {
	var (
		id     ID
		secret Secret
	)
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != rawSize {
		return id, secret, ErrMalformed
	}
	copy(id[:], raw[:idSize])
	copy(secret[:], raw[idSize:])
	return id, secret, nil
}

// New returns a fresh encoded token with its id and secret hash.
func New() (tok string, id ID, hash [32]byte, err error) {
	if id, err = NewID(); err != nil {
		return "", id, hash, err
	}
	secret, err := NewSecret()
	if err != nil {
		return "", id, hash, err
	}
	return Encode(id, secret), id, secret.Hash(), nil
}
