package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
)

// WalletStorage persists named wallet profiles in a single JSON file.
type WalletStorage struct {
	path string
}

// NewWalletStorage opens the default wallet file under the user config dir,
// creating it on first use.
func NewWalletStorage() (*WalletStorage, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return NewWalletStorageAt(filepath.Join(home, ".config", "storefront", "wallets.json"))
}

// NewWalletStorageAt opens a wallet file at an explicit path.
func NewWalletStorageAt(path string) (*WalletStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create wallet directory: %w", err)
	}
	storage := &WalletStorage{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := storage.write(walletFile{Wallets: []WalletRecord{}}); err != nil {
			return nil, err
		}
	}
	return storage, nil
}

// SaveWallet stores a keypair under the given profile name, replacing any
// existing key with that name.
func (s *WalletStorage) SaveWallet(name string, privateKey solana.PrivateKey) error {
	file, err := s.read()
	if err != nil {
		return err
	}
	record := WalletRecord{
		Name:       name,
		PrivateKey: base64.StdEncoding.EncodeToString(privateKey),
		CreatedAt:  time.Now().UTC(),
	}
	replaced := false
	for i, existing := range file.Wallets {
		if existing.Name == name {
			record.CreatedAt = existing.CreatedAt
			file.Wallets[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		file.Wallets = append(file.Wallets, record)
	}
	return s.write(file)
}

// GetWallet loads the keypair stored under the given profile name.
func (s *WalletStorage) GetWallet(name string) (solana.PrivateKey, error) {
	file, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, record := range file.Wallets {
		if record.Name == name {
			return decodeKey(record)
		}
	}
	return nil, fmt.Errorf("no wallet named %q", name)
}

// GetAllWalletNames lists profile names in insertion order.
func (s *WalletStorage) GetAllWalletNames() ([]string, error) {
	file, err := s.read()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(file.Wallets))
	for _, record := range file.Wallets {
		names = append(names, record.Name)
	}
	return names, nil
}

// GetAllWallets returns every stored profile keyed by name.
func (s *WalletStorage) GetAllWallets() (map[string]solana.PrivateKey, error) {
	file, err := s.read()
	if err != nil {
		return nil, err
	}
	wallets := make(map[string]solana.PrivateKey, len(file.Wallets))
	for _, record := range file.Wallets {
		key, err := decodeKey(record)
		if err != nil {
			return nil, err
		}
		wallets[record.Name] = key
	}
	return wallets, nil
}

func decodeKey(record WalletRecord) (solana.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(record.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored key for %q: %w", record.Name, err)
	}
	if len(raw) != solana.PrivateKeyLength {
		return nil, fmt.Errorf("stored key for %q has invalid length %d", record.Name, len(raw))
	}
	return solana.PrivateKey(raw), nil
}

func (s *WalletStorage) read() (walletFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return walletFile{}, fmt.Errorf("failed to read wallet file: %w", err)
	}
	var file walletFile
	if err := json.Unmarshal(data, &file); err != nil {
		return walletFile{}, fmt.Errorf("failed to parse wallet file: %w", err)
	}
	return file, nil
}

func (s *WalletStorage) write(file walletFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode wallet file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write wallet file: %w", err)
	}
	return nil
}
