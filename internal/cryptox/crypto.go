// Package cryptox seals secret values before they reach the key-value store.
//
// Values are encrypted with AES-256-GCM under a key derived from an operator
// passphrase with argon2id. Sealed values carry a short prefix so values
// written before sealing was enabled can still be read back.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const sealedPrefix = "enc:v1:"

// SaltSize is the argon2id salt length in bytes.
const SaltSize = 16

var ErrMalformed = errors.New("malformed sealed value")

// Sealer turns plaintext secret values into their stored form and back.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// DeriveKey stretches passphrase into a 32-byte AES key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// AESSealer implements Sealer with AES-GCM.
type AESSealer struct {
	aead cipher.AEAD
}

// NewAESSealer builds a sealer from a passphrase and salt. The derived key is
// wiped once the cipher has been initialised.
func NewAESSealer(passphrase string, salt []byte) (*AESSealer, error) {
	key := DeriveKey([]byte(passphrase), salt)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESSealer{aead: aead}, nil
}

func (s *AESSealer) Seal(plaintext string) (string, error) {
	nonce := common.GenerateRandByteArray(s.aead.NonceSize())
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *AESSealer) Open(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}

	raw, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrMalformed
	}

	plaintext, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(plaintext), nil
}

// PlainSealer stores values as-is. Used when no passphrase is configured.
type PlainSealer struct{}

func (PlainSealer) Seal(plaintext string) (string, error) { return plaintext, nil }

func (PlainSealer) Open(stored string) (string, error) {
	if strings.HasPrefix(stored, sealedPrefix) {
		return "", fmt.Errorf("%w: value is sealed but no passphrase is configured", ErrMalformed)
	}
	return stored, nil
}
