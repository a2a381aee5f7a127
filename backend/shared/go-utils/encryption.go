package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// Ciphertext layout, base64url encoded as one string:
//
//	[nonce(12 bytes) || ciphertext || tag(16 bytes)]

// Encrypt encrypts the provided plaintext with AES-256-GCM.
// The encryptionKey must be exactly 32 bytes (256 bits).
func Encrypt(encryptionKey []byte, text string) (string, error) {
	if len(encryptionKey) != 32 {
		return "", errors.New("encryption key must be 32 bytes for AES-256")
	}
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext := []byte(text)

	// GCM standard 12-byte nonce
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// Seal appends ciphertext + 16-byte tag
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	// Combine [nonce || ciphertext+tag] into one blob
	data := append(nonce, ciphertext...)

	return base64.URLEncoding.EncodeToString(data), nil
}

// Decrypt decrypts data produced by the GCM-based Encrypt function above.
// It expects a single URL-safe Base64 string containing [nonce||ciphertext||tag].
func Decrypt(encryptionKey []byte, encoded string) (string, error) {
	if len(encryptionKey) != 32 {
		return "", errors.New("encryption key must be 32 bytes for AES-256")
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.New("malformed ciphertext (too short for nonce)")
	}
	nonce := raw[:nonceSize]
	ciphertextAndTag := raw[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertextAndTag, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptOptional leaves empty values empty.
func EncryptOptional(encryptionKey []byte, text string) (string, error) {
	if text == "" {
		return "", nil
	}
	return Encrypt(encryptionKey, text)
}

// DecryptOptional is the inverse of EncryptOptional.
func DecryptOptional(encryptionKey []byte, encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	return Decrypt(encryptionKey, encoded)
}
