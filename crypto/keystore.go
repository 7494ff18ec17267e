package crypto

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/google/uuid"
)

// ErrKeystoreExists is returned when CreateKeystore would overwrite a key.
var ErrKeystoreExists = errors.New("crypto: keystore already exists")

// KeystoreStrength selects the scrypt cost used to encrypt a key.
type KeystoreStrength int

const (
	KeystoreStandard KeystoreStrength = iota
	// KeystoreLight is cheap enough for tests and throwaway devnet keys.
	KeystoreLight
)

func (s KeystoreStrength) params() (int, int) {
	if s == KeystoreLight {
		return keystore.LightScryptN, keystore.LightScryptP
	}
	return keystore.StandardScryptN, keystore.StandardScryptP
}

// SaveToKeystore encrypts key into a v3 keystore file at path. The parent
// directory is created with 0700 permissions and the file is replaced
// atomically.
func SaveToKeystore(path string, key *PrivateKey, passphrase string, strength KeystoreStrength) error {
	if key == nil {
		return errors.New("crypto: nil private key")
	}
	if path == "" {
		return errors.New("crypto: empty keystore path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	n, p := strength.params()
	encoded, err := keystore.EncryptKey(&keystore.Key{
		Id:         id,
		Address:    key.PubKey().Address().Array(),
		PrivateKey: key.PrivateKey,
	}, passphrase, n, p)
	if err != nil {
		return fmt.Errorf("crypto: encrypt key: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// CreateKeystore generates a fresh key and stores it at path. It refuses to
// overwrite an existing file.
func CreateKeystore(path, passphrase string, strength KeystoreStrength) (*PrivateKey, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeystoreExists, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	key, err := GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := SaveToKeystore(path, key, passphrase, strength); err != nil {
		return nil, err
	}
	return key, nil
}

// LoadFromKeystore decrypts a v3 keystore file using the supplied passphrase.
func LoadFromKeystore(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, errors.New("crypto: empty keystore path")
	}

	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	decrypted, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt %s: %w", filepath.Base(path), err)
	}

	return &PrivateKey{PrivateKey: decrypted.PrivateKey}, nil
}
