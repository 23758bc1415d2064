// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"bytes"
	"crypto/aes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// EncryptedPrefix marks ciphertext tokens written into documents
	EncryptedPrefix = "ENC:"

	pbkdf2Iterations = 100000
	derivedKeyLength = 32
	encryptionKeyLen = 6
)

// ValidateEncryptionKey checks that key is exactly six ASCII digits
func ValidateEncryptionKey(key string) error {
	if key == "" {
		return NewEncryptionKeyError("encryption key is required for the encrypt method")
	}
	if len(key) != encryptionKeyLen {
		return NewEncryptionKeyError(fmt.Sprintf("encryption key must be %d digits", encryptionKeyLen))
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return NewEncryptionKeyError(fmt.Sprintf("encryption key must be %d digits", encryptionKeyLen))
		}
	}
	return nil
}

// DeriveKey stretches a passphrase into an AES-256 key with PBKDF2-HMAC-SHA256
func DeriveKey(passphrase, salt string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(salt), pbkdf2Iterations, derivedKeyLength, sha256.New)
}

// EncryptDeterministic encrypts text block by block so equal inputs under the
// same key give equal tokens.
func EncryptDeterministic(key []byte, text string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	size := block.BlockSize()
	padded := pkcs7Pad([]byte(text), size)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += size {
		block.Encrypt(out[i:i+size], padded[i:i+size])
	}

	return EncryptedPrefix + base64.URLEncoding.EncodeToString(out), nil
}

// DecryptDeterministic reverses EncryptDeterministic
func DecryptDeterministic(key []byte, token string) (string, error) {
	if !strings.HasPrefix(token, EncryptedPrefix) {
		return "", fmt.Errorf("token is missing %q prefix", EncryptedPrefix)
	}
	data, err := base64.URLEncoding.DecodeString(strings.TrimPrefix(token, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode token: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	size := block.BlockSize()
	if len(data) == 0 || len(data)%size != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of %d", len(data), size)
	}

	out := make([]byte, len(data))
	for i := 0; i < len(data); i += size {
		block.Decrypt(out[i:i+size], data[i:i+size])
	}

	plain, err := pkcs7Unpad(out, size)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
