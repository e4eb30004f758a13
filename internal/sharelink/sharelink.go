// Package sharelink seals song ids into opaque, tamper-proof share tokens.
package sharelink

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrInvalidToken is returned for tokens that were not produced by this sealer's key.
var ErrInvalidToken = errors.New("invalid share token")

// Sealer encrypts and authenticates share tokens with a symmetric key.
type Sealer struct {
	key    [32]byte
	random io.Reader
}

// NewSealer derives a key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("share secret is required")
	}
	return &Sealer{key: sha256.Sum256([]byte(secret)), random: rand.Reader}, nil
}

// Seal returns a URL-safe token carrying songID.
func (s *Sealer) Seal(songID string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.random, nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(songID), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open recovers the song id from a token produced by Seal.
func (s *Sealer) Open(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrInvalidToken
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok || len(plain) == 0 {
		return "", ErrInvalidToken
	}
	return string(plain), nil
}
