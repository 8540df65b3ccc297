// Package cryptoutil holds the PBKDF2-SHA256 secret hashing and random token
// generation shared by the OAuth confidential-client secret check (§4.3) and
// the Personal Access Token scheme (§4.4). Grounded on golang.org/x/crypto,
// already a direct dependency of the teacher's apiserver module.
package cryptoutil

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	PBKDF2Iterations = 100000
	PBKDF2SaltLen    = 16
	PBKDF2HashLen    = 32
)

// PBKDF2Hash holds the raw salt and hash bytes; Encode renders the stored
// "hex(salt):hex(hash)" form.
type PBKDF2Hash struct {
	Salt []byte
	Hash []byte
}

// HashSecret derives a PBKDF2-SHA256 hash of secret with a fresh random salt.
func HashSecret(secret string) (PBKDF2Hash, error) {
	salt := make([]byte, PBKDF2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return PBKDF2Hash{}, fmt.Errorf("generate salt: %w", err)
	}
	hash := pbkdf2.Key([]byte(secret), salt, PBKDF2Iterations, PBKDF2HashLen, sha256.New)
	return PBKDF2Hash{Salt: salt, Hash: hash}, nil
}

// VerifySecret re-derives the hash from secret and salt and compares in
// constant time against the stored hash.
func VerifySecret(secret string, stored PBKDF2Hash) bool {
	candidate := pbkdf2.Key([]byte(secret), stored.Salt, PBKDF2Iterations, PBKDF2HashLen, sha256.New)
	return subtle.ConstantTimeCompare(candidate, stored.Hash) == 1
}

// Encode renders a PBKDF2Hash as "hex(salt):hex(hash)" for storage in a
// single text column.
func (h PBKDF2Hash) Encode() string {
	return hex.EncodeToString(h.Salt) + ":" + hex.EncodeToString(h.Hash)
}

// DecodePBKDF2Hash parses the "hex(salt):hex(hash)" storage form.
func DecodePBKDF2Hash(s string) (PBKDF2Hash, error) {
	if len(s) < PBKDF2SaltLen*2+1 {
		return PBKDF2Hash{}, fmt.Errorf("malformed hash")
	}
	sep := -1
	for i, c := range s {
		if c == ':' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return PBKDF2Hash{}, fmt.Errorf("malformed hash: no separator")
	}
	salt, err := hex.DecodeString(s[:sep])
	if err != nil {
		return PBKDF2Hash{}, err
	}
	hash, err := hex.DecodeString(s[sep+1:])
	if err != nil {
		return PBKDF2Hash{}, err
	}
	return PBKDF2Hash{Salt: salt, Hash: hash}, nil
}

// RandomToken returns n cryptographically random bytes, URL-safe-base64
// encoded with no padding (used for authorization codes, refresh token
// secrets, PAT secrets and prefixes).
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RandomBytes returns n raw random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// SHA256Hex hashes a token value for indexed lookup (refresh tokens are
// stored as SHA-256 of the secret, per §3/§9).
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// S256Challenge computes the PKCE S256 code_challenge for a verifier:
// URL-safe-base64-no-pad(SHA-256(verifier)).
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
