package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"strings"

	kerrors "github.com/PolarWolf314/keystash/internal/errors"

	"golang.org/x/crypto/nacl/secretbox"
)

// SealedSuffix is appended to the name of every encrypted cache artifact.
const SealedSuffix = ".sealed"

const secretboxNonceSize = 24

// Seal encrypts plaintext with key. AES keys use AES-GCM and XSalsa20-Poly1305
// keys use NaCl secretbox; the random nonce is prepended to the ciphertext.
func Seal(key SecretKey, plaintext []byte) ([]byte, error) {
	switch key.Algorithm {
	case AlgorithmXSalsa20Poly1305:
		boxKey, err := secretboxKey(key)
		if err != nil {
			return nil, err
		}
		var nonce [secretboxNonceSize]byte
		if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
			return nil, fmt.Errorf("failed on ReadFull method: %w", err)
		}
		return secretbox.Seal(nonce[:], plaintext, &nonce, boxKey), nil
	case AlgorithmAES, AlgorithmAES128, AlgorithmAES192, AlgorithmAES256:
		gcm, err := newGCM(key)
		if err != nil {
			return nil, err
		}
		nonce := make([]byte, gcm.NonceSize())
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, fmt.Errorf("failed on ReadFull method: %w", err)
		}
		return gcm.Seal(nonce, nonce, plaintext, nil), nil
	default:
		return nil, fmt.Errorf("%w: %s keys cannot be used for encryption", kerrors.ErrEncryptFailed, key.Algorithm)
	}
}

// Open decrypts ciphertext produced by Seal with the same key.
// Tampered or truncated input returns ErrDecryptFailed.
func Open(key SecretKey, ciphertext []byte) ([]byte, error) {
	switch key.Algorithm {
	case AlgorithmXSalsa20Poly1305:
		boxKey, err := secretboxKey(key)
		if err != nil {
			return nil, err
		}
		if len(ciphertext) < secretboxNonceSize+secretbox.Overhead {
			return nil, fmt.Errorf("%w: ciphertext too short", kerrors.ErrDecryptFailed)
		}
		var nonce [secretboxNonceSize]byte
		copy(nonce[:], ciphertext[:secretboxNonceSize])
		plaintext, ok := secretbox.Open(nil, ciphertext[secretboxNonceSize:], &nonce, boxKey)
		if !ok {
			return nil, fmt.Errorf("%w: secretbox authentication failed", kerrors.ErrDecryptFailed)
		}
		return plaintext, nil
	case AlgorithmAES, AlgorithmAES128, AlgorithmAES192, AlgorithmAES256:
		gcm, err := newGCM(key)
		if err != nil {
			return nil, err
		}
		nonceSize := gcm.NonceSize()
		if len(ciphertext) < nonceSize {
			return nil, fmt.Errorf("%w: ciphertext too short", kerrors.ErrDecryptFailed)
		}
		plaintext, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryptFailed, err)
		}
		return plaintext, nil
	default:
		return nil, fmt.Errorf("%w: %s keys cannot be used for decryption", kerrors.ErrDecryptFailed, key.Algorithm)
	}
}

// EncryptFiles encrypts each file with key, writing <file>.sealed next to it.
func EncryptFiles(key SecretKey, inputPaths []string) ([]string, error) {
	outputs := make([]string, 0, len(inputPaths))
	for _, inputPath := range inputPaths {
		plaintext, err := os.ReadFile(inputPath)
		if err != nil {
			return outputs, fmt.Errorf("failed to read artifact at %s: %w", inputPath, err)
		}

		ciphertext, err := Seal(key, plaintext)
		if err != nil {
			return outputs, fmt.Errorf("failed to encrypt %s: %w", inputPath, err)
		}

		outputPath := inputPath + SealedSuffix
		if err := os.WriteFile(outputPath, ciphertext, 0600); err != nil {
			return outputs, fmt.Errorf("failed to write to %s: %w", outputPath, err)
		}
		outputs = append(outputs, outputPath)
	}

	return outputs, nil
}

// DecryptFiles decrypts each <file>.sealed with key, writing the plaintext
// back to <file>.
func DecryptFiles(key SecretKey, inputPaths []string) ([]string, error) {
	outputs := make([]string, 0, len(inputPaths))
	for _, inputPath := range inputPaths {
		ciphertext, err := os.ReadFile(inputPath)
		if err != nil {
			return outputs, fmt.Errorf("failed to read sealed artifact at %s: %w", inputPath, err)
		}

		plaintext, err := Open(key, ciphertext)
		if err != nil {
			return outputs, fmt.Errorf("failed to decrypt %s: %w", inputPath, err)
		}

		outputPath := strings.TrimSuffix(inputPath, SealedSuffix)
		if err := os.WriteFile(outputPath, plaintext, 0600); err != nil {
			return outputs, fmt.Errorf("failed to write to %s: %w", outputPath, err)
		}
		outputs = append(outputs, outputPath)
	}

	return outputs, nil
}

func secretboxKey(key SecretKey) (*[32]byte, error) {
	if len(key.Material) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d bytes", kerrors.ErrInvalidKeyLength, len(key.Material))
	}
	var boxKey [32]byte
	copy(boxKey[:], key.Material)
	return &boxKey, nil
}

func newGCM(key SecretKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.Material)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidKeyLength, err)
	}
	return cipher.NewGCM(block)
}
