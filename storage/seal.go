package storage

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/text/unicode/norm"
)

const (
	// scrypt parameters for deriving the master key from the secret.
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32

	scryptSalt = "apiconfig token storage"
	hkdfInfo   = "apiconfig token storage v1"

	// sealedPrefix marks sealed values so clear values from an unencrypted
	// store are detected instead of failing to authenticate.
	sealedPrefix = "sealed:v1:"
)

var errNotSealed = errors.New("value is not encrypted")

// sealer encrypts values with XChaCha20-Poly1305. The storage key is bound
// as additional data so a value cannot be moved to another key. A nil
// sealer passes values through unchanged.
type sealer struct {
	aead cipher.AEAD
}

// newSealer derives a key from secret. An empty secret returns nil.
func newSealer(secret string) (*sealer, error) {
	if secret == "" {
		return nil, nil
	}

	master, err := scrypt.Key([]byte(norm.NFKC.String(secret)), []byte(scryptSalt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("deriving storage key: %w", err)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("expanding storage key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return &sealer{aead: aead}, nil
}

func (s *sealer) seal(plain []byte, key string) ([]byte, error) {
	if s == nil {
		return plain, nil
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	out := append([]byte(sealedPrefix), s.aead.Seal(nonce, nonce, plain, []byte(key))...)
	return out, nil
}

func (s *sealer) open(data []byte, key string) ([]byte, error) {
	if s == nil {
		return data, nil
	}

	if len(data) < len(sealedPrefix) || string(data[:len(sealedPrefix)]) != sealedPrefix {
		return nil, errNotSealed
	}
	data = data[len(sealedPrefix):]

	ns := s.aead.NonceSize()
	if len(data) < ns+s.aead.Overhead() {
		return nil, errors.New("sealed value too short")
	}

	plain, err := s.aead.Open(nil, data[:ns], data[ns:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("opening sealed value: %w", err)
	}
	return plain, nil
}
