package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	keychainService = "w3transfer"
	signerKeyRef    = keychainService + ".signer"

	// KeyEnvVar overrides the keychain entirely (CI, containers).
	KeyEnvVar = "W3TRANSFER_KEY"
)

// Errors.
var (
	ErrNoKey      = errors.New("no signing key imported")
	ErrInvalidKey = errors.New("invalid private key")
)

// Keystore keeps the local signing key in the OS keychain.
type Keystore struct {
	ring keyring.Keyring
}

// NewKeystore wraps an already opened keyring. Tests pass
// keyring.NewArrayKeyring.
func NewKeystore(ring keyring.Keyring) *Keystore {
	return &Keystore{ring: ring}
}

// DefaultKeystore returns a keystore backed by the OS keychain. fileDir is
// used by the encrypted-file fallback backend.
func DefaultKeystore(fileDir string) *Keystore {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.TerminalPrompt,
	}

	// Headless Linux has no secret service; allow the encrypted file backend.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		ring, _ = keyring.Open(keyring.Config{
			ServiceName:      keychainService,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          fileDir,
			FilePasswordFunc: keyring.TerminalPrompt,
		})
	}
	return &Keystore{ring: ring}
}

// Import validates hexKey, stores it and returns its address.
func (k *Keystore) Import(hexKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if k.ring == nil {
		return common.Address{}, fmt.Errorf("keychain not available")
	}
	err = k.ring.Set(keyring.Item{
		Key:   signerKeyRef,
		Data:  []byte(normaliseHexKey(hexKey)),
		Label: "w3transfer signing key",
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("keychain store: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// PrivateKey loads the signing key. The env var wins over the keychain.
func (k *Keystore) PrivateKey() (*ecdsa.PrivateKey, error) {
	hexKey := normaliseHexKey(os.Getenv(KeyEnvVar))
	if hexKey == "" {
		if k.ring == nil {
			return nil, ErrNoKey
		}
		item, err := k.ring.Get(signerKeyRef)
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNoKey
		}
		if err != nil {
			return nil, fmt.Errorf("keychain retrieve: %w", err)
		}
		hexKey = normaliseHexKey(string(item.Data))
	}

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// Address returns the address of the stored key.
func (k *Keystore) Address() (common.Address, error) {
	key, err := k.PrivateKey()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// Remove deletes the stored key. Removing a missing key is not an error.
func (k *Keystore) Remove() error {
	if k.ring == nil {
		return nil
	}
	err := k.ring.Remove(signerKeyRef)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

func normaliseHexKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
