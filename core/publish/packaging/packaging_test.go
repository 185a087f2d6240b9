package packaging

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildPackage(t *testing.T) {
	scriptDir := t.TempDir()
	destDir := filepath.Join(t.TempDir(), "out")
	payload := []byte("choco install acme.tool -y\n")
	if err := os.WriteFile(filepath.Join(scriptDir, "install.ps1"), payload, 0o600); err != nil {
		t.Fatalf("write setup: %v", err)
	}

	m, err := CryptoPackager{}.BuildPackage(context.Background(), scriptDir, "install.ps1", destDir)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.UnencryptedSize != int64(len(payload)) {
		t.Fatalf("unexpected unencrypted size: %d", m.UnencryptedSize)
	}

	body, err := os.ReadFile(m.PackageFile)
	if err != nil {
		t.Fatalf("read package: %v", err)
	}
	if int64(len(body)) != m.EncryptedSize {
		t.Fatalf("encrypted size mismatch: %d vs %d", len(body), m.EncryptedSize)
	}

	// Decrypt with the manifest key material and compare to the payload.
	key, _ := base64.StdEncoding.DecodeString(m.Encryption.EncryptionKey)
	macKey, _ := base64.StdEncoding.DecodeString(m.Encryption.MacKey)
	iv := body[:aes.BlockSize]
	ciphertext := body[aes.BlockSize:]

	mac := hmac.New(sha256.New, macKey)
	mac.Write(body)
	wantMac, _ := base64.StdEncoding.DecodeString(m.Encryption.Mac)
	if !hmac.Equal(mac.Sum(nil), wantMac) {
		t.Fatalf("mac mismatch")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	padding := int(plain[len(plain)-1])
	plain = plain[:len(plain)-padding]
	if string(plain) != string(payload) {
		t.Fatalf("decrypted payload mismatch: %q", plain)
	}

	digest := sha256.Sum256(payload)
	if m.Encryption.FileDigest != base64.StdEncoding.EncodeToString(digest[:]) {
		t.Fatalf("digest mismatch")
	}
}

func TestBuildPackageMissingSetup(t *testing.T) {
	_, err := CryptoPackager{}.BuildPackage(context.Background(), t.TempDir(), "missing.ps1", t.TempDir())
	if err == nil {
		t.Fatalf("expected error for missing setup file")
	}
}
