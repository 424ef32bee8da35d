package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"

	"github.com/akulinich/clipshare/internal/errs"
)

// PayloadCipher encrypts item payloads with AES-256-CBC under a single
// server-wide key. A fresh random IV is generated per encryption, so
// identical plaintexts never produce equal ciphertexts.
//
// CBC carries no authentication: a tampered ciphertext/iv pair is only
// detected when the padding check fails, so decryption errors must always
// abort the operation, never be ignored.
type PayloadCipher struct {
	key []byte // 32 bytes, read-only after construction
}

// NewPayloadCipher builds a cipher from a hex-encoded 256-bit key.
// The key is configured out-of-band; an absent or wrong-length key is a
// startup failure (errs.ErrConfiguration), not a per-request one.
func NewPayloadCipher(hexKey string) (*PayloadCipher, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("encryption key is not set: %w", errs.ErrConfiguration)
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", errs.ErrConfiguration)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d: %w", len(key), errs.ErrConfiguration)
	}
	return &PayloadCipher{key: key}, nil
}

// Encrypt encrypts plaintext with a fresh random 16-byte IV and returns
// both ciphertext and IV hex-encoded. The IV must be stored alongside the
// ciphertext and passed back verbatim to Decrypt.
func (c *PayloadCipher) Encrypt(plaintext string) (ctHex, ivHex string, err error) {
	iv, err := RandBytes(aes.BlockSize)
	if err != nil {
		return "", "", err
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", "", err
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	return hex.EncodeToString(ct), hex.EncodeToString(iv), nil
}

// Decrypt reverses Encrypt. Any malformed input or ciphertext/iv mismatch
// yields errs.ErrDecryption; garbage is never returned silently.
func (c *PayloadCipher) Decrypt(ctHex, ivHex string) (string, error) {
	ct, err := hex.DecodeString(ctHex)
	if err != nil {
		return "", fmt.Errorf("ciphertext is not valid hex: %w", errs.ErrDecryption)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("iv is not valid hex: %w", errs.ErrDecryption)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("iv must be %d bytes, got %d: %w", aes.BlockSize, len(iv), errs.ErrDecryption)
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a block multiple: %w", len(ct), errs.ErrDecryption)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)

	pt, err = pkcs7Unpad(pt, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, fmt.Errorf("bad padded length %d: %w", len(b), errs.ErrDecryption)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, fmt.Errorf("bad padding byte: %w", errs.ErrDecryption)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("inconsistent padding: %w", errs.ErrDecryption)
		}
	}
	return b[:len(b)-n], nil
}
