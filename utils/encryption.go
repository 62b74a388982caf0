package utils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	encryptionKeyLength = 32
	ivLength            = aes.BlockSize

	// MaskedUnavailable is rendered when an id number cannot be recovered.
	MaskedUnavailable = "****"
)

var ErrMissingEncryptionKey = errors.New("ENCRYPTION_KEY is not set")

// Encryptor seals sensitive identifiers with AES-256-CBC.
// Ciphertexts are "hex(iv):hex(data)" with a fresh IV per call.
type Encryptor struct {
	block cipher.Block
}

// NewEncryptor derives the AES key from configuration: the value is padded
// with '0' and cut to 32 bytes, which is how existing ciphertexts were keyed.
// A hex looking key is used as raw characters too, never decoded.
func NewEncryptor(key string) (*Encryptor, error) {
	if key == "" {
		return nil, ErrMissingEncryptionKey
	}

	padded := key
	if len(padded) < encryptionKeyLength {
		padded += strings.Repeat("0", encryptionKeyLength-len(padded))
	}
	raw := []byte(padded[:encryptionKeyLength])

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return &Encryptor{block: block}, nil
}

func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	data := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(e.block, iv).CryptBlocks(out, data)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reports false on any failure. Callers treat that as
// "unavailable", never as an empty value.
func (e *Encryptor) Decrypt(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	ivHex, dataHex, found := strings.Cut(text, ":")
	if !found {
		return "", false
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivLength {
		return "", false
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", false
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(e.block, iv).CryptBlocks(out, data)

	plain, ok := pkcs7Unpad(out, aes.BlockSize)
	if !ok || !utf8.Valid(plain) {
		return "", false
	}
	return string(plain), true
}

// MaskIDNumber reveals only the last four characters.
func MaskIDNumber(value string) string {
	if len(value) < 4 {
		return MaskedUnavailable
	}
	return "***" + value[len(value)-4:]
}

// MaskIPAddress keeps the first two octets of an IPv4 address and the first
// half of anything else.
func MaskIPAddress(ip string) string {
	if ip == "" {
		return "N/A"
	}
	if parts := strings.Split(ip, "."); len(parts) == 4 {
		return parts[0] + "." + parts[1] + ".x.x"
	}
	return ip[:len(ip)/2] + "..."
}

func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
