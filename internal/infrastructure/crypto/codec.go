// Package crypto holds the field codecs applied to personal data before it is
// written to the document store.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

// FieldCodec transforms individual document fields on their way to and from
// storage.
type FieldCodec interface {
	Encode(plain string) (string, error)
	Decode(stored string) (string, error)
	// Index returns a deterministic key for an email so it can be looked up
	// and kept unique without decrypting every document.
	Index(email string) string
}

// NewFieldCodec selects the codec once at startup. With encryption disabled
// fields are stored as given.
func NewFieldCodec(encrypt bool, base64Key string) (FieldCodec, error) {
	if !encrypt {
		return PlainCodec{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	return NewAESGCMCodec(key)
}

// PlainCodec stores fields in clear text. Meant for development databases.
type PlainCodec struct{}

func (PlainCodec) Encode(plain string) (string, error)  { return plain, nil }
func (PlainCodec) Decode(stored string) (string, error) { return stored, nil }
func (PlainCodec) Index(email string) string            { return domain.NormalizeEmail(email) }

// AESGCMCodec encrypts fields with AES-256-GCM and indexes emails with
// HMAC-SHA256. Both keys are derived from one master key.
type AESGCMCodec struct {
	aead     cipher.AEAD
	indexKey []byte
}

var ErrKeySize = errors.New("encryption key must be 32 bytes")

func NewAESGCMCodec(master []byte) (*AESGCMCodec, error) {
	if len(master) != 32 {
		return nil, ErrKeySize
	}

	encKey, err := derive(master, "identity/field-encryption")
	if err != nil {
		return nil, err
	}
	indexKey, err := derive(master, "identity/email-index")
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &AESGCMCodec{aead: aead, indexKey: indexKey}, nil
}

func derive(master []byte, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

// Encode seals plain as base64(nonce || ciphertext). Empty values stay empty.
func (c *AESGCMCodec) Encode(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	payload := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.RawStdEncoding.EncodeToString(payload), nil
}

func (c *AESGCMCodec) Decode(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}
	payload, err := base64.RawStdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	n := c.aead.NonceSize()
	if len(payload) < n {
		return "", errors.New("sealed value is too short")
	}
	plain, err := c.aead.Open(nil, payload[:n], payload[n:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt sealed value: %w", err)
	}
	return string(plain), nil
}

func (c *AESGCMCodec) Index(email string) string {
	mac := hmac.New(sha256.New, c.indexKey)
	mac.Write([]byte(domain.NormalizeEmail(email)))
	return hex.EncodeToString(mac.Sum(nil))
}
