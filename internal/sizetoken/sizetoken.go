// Package sizetoken produces and parses the size-authorization tokens the
// upload API expects. The format is the classic OpenSSL salted envelope:
// base64("Salted__" + 8-byte salt + AES-256-CBC ciphertext), with the key
// and IV derived from a fixed passphrase via the MD5-based EVP_BytesToKey
// scheme. The service validates the claimed file size by decrypting the
// token server-side, so the output must match this format byte for byte.
package sizetoken

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5" //nolint:gosec // EVP_BytesToKey compatibility requires MD5
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// passphrase is baked into the service's web client; all uploads use it.
const passphrase = "ZYP*G-KaPdSgVkYp3s6v9y=v?E(H+TTT"

// saltMarker prefixes every encrypted payload, as in `openssl enc -salt`.
const saltMarker = "Salted__"

const (
	saltLen = 8
	keyLen  = 32
	ivLen   = 16
)

// ErrFormat reports a token that is not a valid salted envelope: bad
// base64, missing marker, truncated ciphertext, or invalid padding.
var ErrFormat = errors.New("sizetoken: malformed token")

// deriveKeyIV implements EVP_BytesToKey with MD5 and one iteration:
// D_1 = MD5(passphrase || salt), D_n = MD5(D_{n-1} || passphrase || salt),
// concatenated until n bytes are available.
func deriveKeyIV(passphrase, salt []byte, n int) ([]byte, error) {
	if len(salt) != saltLen {
		return nil, fmt.Errorf("sizetoken: salt must be %d bytes, got %d", saltLen, len(salt))
	}

	data := append(append([]byte{}, passphrase...), salt...)

	digest := md5.Sum(data) //nolint:gosec // format compatibility
	derived := digest[:]

	for len(derived) < n {
		digest = md5.Sum(append(digest[:], data...)) //nolint:gosec // format compatibility
		derived = append(derived, digest[:]...)
	}

	return derived[:n], nil
}

// Encrypt wraps message in the salted envelope using a fresh random salt.
// The same message encrypts to a different token on every call.
func Encrypt(message []byte) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("sizetoken: reading salt: %w", err)
	}

	block, iv, err := cipherFor(salt)
	if err != nil {
		return "", err
	}

	padded := pad(message, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	envelope := make([]byte, 0, len(saltMarker)+saltLen+len(ciphertext))
	envelope = append(envelope, saltMarker...)
	envelope = append(envelope, salt...)
	envelope = append(envelope, ciphertext...)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt unwraps a token produced by Encrypt (or by the service).
// Returns ErrFormat for anything that is not a valid envelope.
func Decrypt(token string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	if len(raw) < len(saltMarker)+saltLen || string(raw[:len(saltMarker)]) != saltMarker {
		return nil, fmt.Errorf("%w: missing salt marker", ErrFormat)
	}

	salt := raw[len(saltMarker) : len(saltMarker)+saltLen]
	ciphertext := raw[len(saltMarker)+saltLen:]

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d not a multiple of the block size", ErrFormat, len(ciphertext))
	}

	block, iv, err := cipherFor(salt)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpad(plaintext, aes.BlockSize)
}

// cipherFor derives the key/IV pair for the given salt and builds the block cipher.
func cipherFor(salt []byte) (cipher.Block, []byte, error) {
	keyIV, err := deriveKeyIV([]byte(passphrase), salt, keyLen+ivLen)
	if err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(keyIV[:keyLen])
	if err != nil {
		return nil, nil, fmt.Errorf("sizetoken: creating cipher: %w", err)
	}

	return block, keyIV[keyLen:], nil
}

// pad applies PKCS#7 padding. Always adds at least one byte.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding, failing with ErrFormat when the padding
// bytes are inconsistent.
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: invalid padded length %d", ErrFormat, len(data))
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("%w: invalid padding byte %d", ErrFormat, n)
	}

	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: inconsistent padding", ErrFormat)
		}
	}

	return data[:len(data)-n], nil
}
