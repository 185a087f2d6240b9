// Package packaging builds the encrypted binary content package and the
// manifest the backend needs to commit it.
package packaging

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/packbridge/packbridge/core/backend"
)

const profileIdentifier = "ProfileVersion1"

// Manifest describes a built package: where the payload landed, its sizes,
// and the key material for the commit call.
type Manifest struct {
	PackageFile          string
	SetupFileName        string
	UnencryptedSize      int64
	EncryptedSize        int64
	Encryption           backend.FileEncryptionInfo
	InstallCommandLine   string
	UninstallCommandLine string
}

// Packager produces the binary content package from a setup script.
type Packager interface {
	BuildPackage(ctx context.Context, scriptDir, setupFileName, destDir string) (*Manifest, error)
}

// CryptoPackager encrypts the setup payload with AES-256-CBC and
// authenticates it with HMAC-SHA256 over IV and ciphertext.
type CryptoPackager struct{}

func (CryptoPackager) BuildPackage(ctx context.Context, scriptDir, setupFileName, destDir string) (*Manifest, error) {
	if setupFileName == "" {
		return nil, fmt.Errorf("setup file name required")
	}
	plaintext, err := os.ReadFile(filepath.Join(scriptDir, setupFileName))
	if err != nil {
		return nil, fmt.Errorf("read setup file: %w", err)
	}

	key := make([]byte, 32)
	macKey := make([]byte, 32)
	iv := make([]byte, aes.BlockSize)
	for _, buf := range [][]byte{key, macKey, iv} {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate key material: %w", err)
		}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	padded := pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	// MAC covers IV followed by ciphertext; the digest covers the plaintext.
	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	digest := sha256.Sum256(plaintext)

	body := make([]byte, 0, len(iv)+len(ciphertext))
	body = append(body, iv...)
	body = append(body, ciphertext...)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dest dir: %w", err)
	}
	packageFile := filepath.Join(destDir, setupFileName+".pkg")
	if err := os.WriteFile(packageFile, body, 0o600); err != nil {
		return nil, fmt.Errorf("write package: %w", err)
	}

	return &Manifest{
		PackageFile:     packageFile,
		SetupFileName:   setupFileName,
		UnencryptedSize: int64(len(plaintext)),
		EncryptedSize:   int64(len(body)),
		Encryption: backend.FileEncryptionInfo{
			EncryptionKey:        base64.StdEncoding.EncodeToString(key),
			MacKey:               base64.StdEncoding.EncodeToString(macKey),
			InitializationVector: base64.StdEncoding.EncodeToString(iv),
			Mac:                  base64.StdEncoding.EncodeToString(mac.Sum(nil)),
			ProfileIdentifier:    profileIdentifier,
			FileDigest:           base64.StdEncoding.EncodeToString(digest[:]),
			FileDigestAlgorithm:  "SHA256",
		},
		InstallCommandLine:   fmt.Sprintf("powershell.exe -ExecutionPolicy Bypass -File .\\%s", setupFileName),
		UninstallCommandLine: fmt.Sprintf("powershell.exe -ExecutionPolicy Bypass -File .\\%s -Uninstall", setupFileName),
	}, nil
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}
