package storage

import "time"

// WalletRecord is one named wallet profile as stored on disk. The key
// material is base64 encoded inside a 0600 file.
type WalletRecord struct {
	Name       string    `json:"name"`
	PrivateKey string    `json:"private_key"`
	CreatedAt  time.Time `json:"created_at"`
}

type walletFile struct {
	Wallets []WalletRecord `json:"wallets"`
}
