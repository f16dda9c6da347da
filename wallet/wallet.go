package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gagliardetto/solana-go"
)

// ErrRejected is returned when the viewer declines a signature request.
var ErrRejected = errors.New("signature request declined")

// Keypair signs transactions with a locally held private key. It approves
// every request; wrap it in Interactive to put the viewer in the loop.
type Keypair struct {
	privateKey solana.PrivateKey
}

// NewKeypair wraps an existing private key.
func NewKeypair(privateKey solana.PrivateKey) *Keypair {
	return &Keypair{privateKey: privateKey}
}

// Generate creates a wallet with a fresh random keypair.
func Generate() *Keypair {
	return &Keypair{privateKey: solana.NewWallet().PrivateKey}
}

// Connected reports whether a usable key is loaded.
func (k *Keypair) Connected() bool {
	return len(k.privateKey) == solana.PrivateKeyLength
}

// PublicKey returns the wallet address.
func (k *Keypair) PublicKey() solana.PublicKey {
	return k.privateKey.PublicKey()
}

// PrivateKey exposes the raw key for storage and export.
func (k *Keypair) PrivateKey() solana.PrivateKey {
	return k.privateKey
}

// SignTransaction signs the transaction in place with the wallet key.
func (k *Keypair) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	if !k.Connected() {
		return errors.New("no private key loaded")
	}
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if k.privateKey.PublicKey().Equals(key) {
			return &k.privateKey
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// Interactive wraps a Keypair with a viewer approval step, the terminal
// equivalent of a wallet extension popup. Declining leaves the transaction
// unsigned.
type Interactive struct {
	*Keypair
	ask func(message string) (bool, error)
}

// NewInteractive puts a confirm prompt in front of every signature request.
func NewInteractive(keypair *Keypair) *Interactive {
	return &Interactive{
		Keypair: keypair,
		ask:     askConfirm,
	}
}

// SignTransaction asks for approval, then signs.
func (w *Interactive) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	message := fmt.Sprintf("Approve transaction with %d instruction(s)?", len(tx.Message.Instructions))
	approved, err := w.ask(message)
	if err != nil {
		return fmt.Errorf("failed to read approval: %w", err)
	}
	if !approved {
		return ErrRejected
	}
	return w.Keypair.SignTransaction(ctx, tx)
}

func askConfirm(message string) (bool, error) {
	approved := false
	prompt := &survey.Confirm{
		Message: message,
		Default: true,
	}
	if err := survey.AskOne(prompt, &approved); err != nil {
		return false, err
	}
	return approved, nil
}
