package utils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	enc, err := NewEncryptor("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	return enc
}

func TestNewEncryptorRequiresKey(t *testing.T) {
	if _, err := NewEncryptor(""); !errors.Is(err, ErrMissingEncryptionKey) {
		t.Fatalf("expected ErrMissingEncryptionKey, got %v", err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := newTestEncryptor(t)

	for _, plain := range []string{"1", "12345678901", "A1234567890BCD", "ünïcødé id", strings.Repeat("9", 64)} {
		sealed, err := enc.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plain, err)
		}
		_, dataHex, _ := strings.Cut(sealed, ":")
		data, err := hex.DecodeString(dataHex)
		if err != nil {
			t.Fatalf("ciphertext %q is not hex: %v", sealed, err)
		}
		if len(plain) >= 4 && bytes.Contains(data, []byte(plain)) {
			t.Fatalf("ciphertext %q leaks plaintext", sealed)
		}
		got, ok := enc.Decrypt(sealed)
		if !ok {
			t.Fatalf("Decrypt(%q) failed", sealed)
		}
		if got != plain {
			t.Fatalf("round trip mismatch: want %q got %q", plain, got)
		}
	}
}

// sealLegacy builds a ciphertext the way stored id numbers were written before:
// the configured key padded with '0', cut to 32 bytes and used as raw bytes.
func sealLegacy(t *testing.T, key, plain string) string {
	t.Helper()
	padded := (key + strings.Repeat("0", 32))[:32]
	block, err := aes.NewCipher([]byte(padded))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	iv := bytes.Repeat([]byte{0x42}, aes.BlockSize)
	data := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out)
}

func TestDecryptReadsLegacyCiphertexts(t *testing.T) {
	keys := map[string]string{
		"short":   "s3cret",
		"exact":   "0123456789abcdef0123456789abcdef",
		"long":    "0123456789abcdef0123456789abcdef-and-more",
		"hex":     strings.Repeat("ab", 32),
		"hex-mix": "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
	}
	for name, key := range keys {
		t.Run(name, func(t *testing.T) {
			enc, err := NewEncryptor(key)
			if err != nil {
				t.Fatalf("NewEncryptor: %v", err)
			}
			got, ok := enc.Decrypt(sealLegacy(t, key, "12345678901"))
			if !ok || got != "12345678901" {
				t.Fatalf("expected legacy ciphertext to decrypt, got %q ok=%v", got, ok)
			}
		})
	}
}

func TestEncryptUsesFreshIV(t *testing.T) {
	enc := newTestEncryptor(t)

	a, _ := enc.Encrypt("12345678901")
	b, _ := enc.Encrypt("12345678901")
	if a == b {
		t.Fatal("two encryptions of the same value produced identical ciphertexts")
	}
	ivA, _, _ := strings.Cut(a, ":")
	ivB, _, _ := strings.Cut(b, ":")
	if ivA == ivB {
		t.Fatal("iv reused across calls")
	}
	if len(ivA) != 32 {
		t.Fatalf("expected 16 byte hex iv, got %q", ivA)
	}
}

func TestEncryptEmpty(t *testing.T) {
	enc := newTestEncryptor(t)
	sealed, err := enc.Encrypt("")
	if err != nil || sealed != "" {
		t.Fatalf("expected empty result, got %q, %v", sealed, err)
	}
}

func TestDecryptFailures(t *testing.T) {
	enc := newTestEncryptor(t)
	other, err := NewEncryptor(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	sealed, _ := enc.Encrypt("12345678901")

	cases := map[string]string{
		"empty":         "",
		"no separator":  "deadbeef",
		"bad iv hex":    "zz:00",
		"short iv":      "00ff:" + strings.Repeat("00", 16),
		"bad data hex":  strings.Repeat("00", 16) + ":xyz",
		"partial block": strings.Repeat("00", 16) + ":" + strings.Repeat("00", 5),
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if got, ok := enc.Decrypt(input); ok {
				t.Fatalf("expected failure, got %q", got)
			}
		})
	}

	if got, ok := other.Decrypt(sealed); ok && got == "12345678901" {
		t.Fatal("decrypt with a different key recovered the plaintext")
	}
}

func TestMaskIDNumber(t *testing.T) {
	masked := MaskIDNumber("12345678")
	if !strings.HasSuffix(masked, "5678") {
		t.Fatalf("expected suffix 5678, got %q", masked)
	}
	if strings.ContainsAny(strings.TrimSuffix(masked, "5678"), "0123456789") {
		t.Fatalf("mask reveals more than four characters: %q", masked)
	}
	if got := MaskIDNumber("123"); got != MaskedUnavailable {
		t.Fatalf("short values must be fully masked, got %q", got)
	}
}

func TestMaskIPAddress(t *testing.T) {
	cases := map[string]string{
		"192.0.2.10":  "192.0.x.x",
		"":            "N/A",
		"2001:db8::1": "2001:...",
	}
	for in, want := range cases {
		if got := MaskIPAddress(in); got != want {
			t.Errorf("MaskIPAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHashValueIsStable(t *testing.T) {
	if HashValue("abc") != HashValue("abc") {
		t.Fatal("hash not deterministic")
	}
	if HashValue("abc") == HashValue("abd") {
		t.Fatal("distinct inputs collided")
	}
}
