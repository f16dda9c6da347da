package wallet

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(t *testing.T, payer solana.PublicKey) *solana.Transaction {
	t.Helper()
	instruction := solana.NewInstruction(
		solana.NewWallet().PublicKey(),
		[]*solana.AccountMeta{solana.NewAccountMeta(solana.NewWallet().PublicKey(), true, false)},
		[]byte{1},
	)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		solana.Hash{3},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	return tx
}

func assertSignedBy(t *testing.T, tx *solana.Transaction, signer solana.PublicKey) {
	t.Helper()
	message, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(signer.Bytes()), message, tx.Signatures[0][:]))
}

func TestGenerateProducesConnectedWallet(t *testing.T) {
	keypair := Generate()
	assert.True(t, keypair.Connected())
	assert.False(t, keypair.PublicKey().IsZero())
	assert.NotEqual(t, keypair.PublicKey(), Generate().PublicKey())
}

func TestKeypairRoundTripsPrivateKey(t *testing.T) {
	original := Generate()
	restored := NewKeypair(original.PrivateKey())
	assert.Equal(t, original.PublicKey(), restored.PublicKey())
}

func TestKeypairSignsTransaction(t *testing.T) {
	keypair := Generate()
	tx := newTestTransaction(t, keypair.PublicKey())

	require.NoError(t, keypair.SignTransaction(context.Background(), tx))
	assertSignedBy(t, tx, keypair.PublicKey())
}

func TestKeypairWithoutKeyRefusesToSign(t *testing.T) {
	keypair := NewKeypair(nil)
	assert.False(t, keypair.Connected())

	tx := newTestTransaction(t, solana.NewWallet().PublicKey())
	err := keypair.SignTransaction(context.Background(), tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no private key loaded")
}

func TestInteractiveApprovalSigns(t *testing.T) {
	keypair := Generate()
	interactive := NewInteractive(keypair)
	var prompted string
	interactive.ask = func(message string) (bool, error) {
		prompted = message
		return true, nil
	}

	tx := newTestTransaction(t, keypair.PublicKey())
	require.NoError(t, interactive.SignTransaction(context.Background(), tx))
	assertSignedBy(t, tx, keypair.PublicKey())
	assert.Contains(t, prompted, "1 instruction(s)")
}

func TestInteractiveDeclineLeavesUnsigned(t *testing.T) {
	keypair := Generate()
	interactive := NewInteractive(keypair)
	interactive.ask = func(message string) (bool, error) { return false, nil }

	tx := newTestTransaction(t, keypair.PublicKey())
	err := interactive.SignTransaction(context.Background(), tx)
	require.ErrorIs(t, err, ErrRejected)
	assert.Empty(t, tx.Signatures)
}

func TestInteractivePromptFailure(t *testing.T) {
	keypair := Generate()
	interactive := NewInteractive(keypair)
	terminalGone := errors.New("stdin closed")
	interactive.ask = func(message string) (bool, error) { return false, terminalGone }

	tx := newTestTransaction(t, keypair.PublicKey())
	err := interactive.SignTransaction(context.Background(), tx)
	require.ErrorIs(t, err, terminalGone)
	assert.Contains(t, err.Error(), "failed to read approval")
	assert.Empty(t, tx.Signatures)
}
