package backend

import (
	"fmt"
	"os"

	keyring "github.com/zalando/go-keyring"
)

// TokenSource supplies the bearer token for backend requests. The
// authentication handshake itself happens outside this engine; the engine
// only needs a current token per request.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken returns a fixed token value.
type StaticToken string

func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", fmt.Errorf("empty token")
	}
	return string(t), nil
}

// EnvToken reads the token from an environment variable on every request.
type EnvToken string

func (t EnvToken) Token() (string, error) {
	v := os.Getenv(string(t))
	if v == "" {
		return "", fmt.Errorf("environment variable %s is empty", string(t))
	}
	return v, nil
}

const (
	keyringService = "packbridge"
	keyringUser    = "bearer-token"
)

// KeyringToken reads the token stored by `packbridgectl login` from the
// operating system keyring.
type KeyringToken struct{}

func (KeyringToken) Token() (string, error) {
	v, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		return "", fmt.Errorf("read token from keyring: %w", err)
	}
	return v, nil
}

// StoreToken persists the bearer token in the operating system keyring.
func StoreToken(token string) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}
	return keyring.Set(keyringService, keyringUser, token)
}

// DeleteToken removes the stored bearer token.
func DeleteToken() error {
	return keyring.Delete(keyringService, keyringUser)
}
