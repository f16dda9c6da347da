package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWallet struct {
	connected bool
	publicKey solana.PublicKey
	signErr   error
	signCalls int
	lastTx    *solana.Transaction

	// blockSigning, when set, holds SignTransaction until released.
	blockSigning chan struct{}
	signingBegan chan struct{}
}

func (w *fakeWallet) Connected() bool            { return w.connected }
func (w *fakeWallet) PublicKey() solana.PublicKey { return w.publicKey }

func (w *fakeWallet) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	w.signCalls++
	w.lastTx = tx
	if w.signingBegan != nil {
		close(w.signingBegan)
	}
	if w.blockSigning != nil {
		<-w.blockSigning
	}
	return w.signErr
}

type fakeNetwork struct {
	blockhash    solana.Hash
	blockhashErr error
	signature    solana.Signature
	submitErr    error
	confirmation Confirmation
	confirmErr   error

	submitCalls int
	awaitCalls  int
}

func (n *fakeNetwork) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return n.blockhash, n.blockhashErr
}

func (n *fakeNetwork) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	n.submitCalls++
	if n.submitErr != nil {
		return solana.Signature{}, n.submitErr
	}
	return n.signature, nil
}

func (n *fakeNetwork) AwaitConfirmation(ctx context.Context, signature solana.Signature) (Confirmation, error) {
	n.awaitCalls++
	return n.confirmation, n.confirmErr
}

type recordingNotifier struct {
	successes []string
	failures  []string
}

func (r *recordingNotifier) Success(message string) { r.successes = append(r.successes, message) }
func (r *recordingNotifier) Failure(message string) { r.failures = append(r.failures, message) }

type fakeConnector struct{ calls int }

func (c *fakeConnector) RequestConnect() { c.calls++ }

func testInstructions() []solana.Instruction {
	instruction := solana.NewInstruction(
		solana.NewWallet().PublicKey(),
		[]*solana.AccountMeta{solana.NewAccountMeta(solana.NewWallet().PublicKey(), true, false)},
		[]byte{1, 2, 3},
	)
	return []solana.Instruction{instruction}
}

func testFixtures() (*fakeWallet, *fakeNetwork, *recordingNotifier, *int, Refetcher) {
	wallet := &fakeWallet{connected: true, publicKey: solana.NewWallet().PublicKey()}
	network := &fakeNetwork{
		blockhash:    solana.Hash{7},
		signature:    solana.Signature{42},
		confirmation: ConfirmationConfirmed,
	}
	notifier := &recordingNotifier{}
	refetches := 0
	refetcher := RefetchFunc(func(ctx context.Context) error {
		refetches++
		return nil
	})
	return wallet, network, notifier, &refetches, refetcher
}

func TestExecuteEmptySequenceIsSilent(t *testing.T) {
	wallet, network, notifier, refetches, refetcher := testFixtures()
	pipeline := New(wallet, network, refetcher, notifier)

	result := pipeline.Execute(context.Background(), nil)

	assert.Equal(t, StatusBuilt, result.Status)
	require.ErrorIs(t, result.Err, ErrPreconditionNotMet)
	// A tripped guard means the action was never available: no signing, no
	// network traffic, and nothing shown to the viewer.
	assert.Zero(t, wallet.signCalls)
	assert.Zero(t, network.submitCalls)
	assert.Empty(t, notifier.successes)
	assert.Empty(t, notifier.failures)
	assert.Zero(t, *refetches)
}

func TestExecuteDisconnectedWalletTriggersConnect(t *testing.T) {
	wallet, network, notifier, _, refetcher := testFixtures()
	wallet.connected = false
	connector := &fakeConnector{}
	pipeline := New(wallet, network, refetcher, notifier, WithConnector(connector))

	result := pipeline.Execute(context.Background(), testInstructions())

	require.ErrorIs(t, result.Err, ErrWalletUnavailable)
	assert.Equal(t, 1, connector.calls)
	assert.Zero(t, wallet.signCalls)
	assert.Zero(t, network.submitCalls)
}

func TestExecuteDisconnectedWithoutConnector(t *testing.T) {
	wallet, network, notifier, _, refetcher := testFixtures()
	wallet.connected = false
	pipeline := New(wallet, network, refetcher, notifier)

	result := pipeline.Execute(context.Background(), testInstructions())
	require.ErrorIs(t, result.Err, ErrWalletUnavailable)
}

func TestExecuteConfirmedAttempt(t *testing.T) {
	wallet, network, notifier, refetches, refetcher := testFixtures()
	pipeline := New(wallet, network, refetcher, notifier)

	result := pipeline.Execute(context.Background(), testInstructions())

	assert.Equal(t, StatusConfirmed, result.Status)
	assert.NoError(t, result.Err)
	assert.Equal(t, network.signature, result.Signature)
	assert.Equal(t, 1, wallet.signCalls)
	assert.Equal(t, 1, network.submitCalls)
	assert.Equal(t, 1, network.awaitCalls)

	// Exactly one refetch per confirmed settlement.
	assert.Equal(t, 1, *refetches)

	require.Len(t, notifier.successes, 1)
	assert.Contains(t, notifier.successes[0], result.Signature.String())
	assert.Empty(t, notifier.failures)

	// The signed transaction was assembled with the fresh blockhash and the
	// wallet as fee payer.
	require.NotNil(t, wallet.lastTx)
	assert.Equal(t, network.blockhash, wallet.lastTx.Message.RecentBlockhash)
	require.NotEmpty(t, wallet.lastTx.Message.AccountKeys)
	assert.Equal(t, wallet.publicKey, wallet.lastTx.Message.AccountKeys[0])
}

func TestExecuteSignRejected(t *testing.T) {
	wallet, network, notifier, refetches, refetcher := testFixtures()
	declined := errors.New("viewer declined")
	wallet.signErr = declined
	pipeline := New(wallet, network, refetcher, notifier)

	result := pipeline.Execute(context.Background(), testInstructions())

	assert.Equal(t, StatusSignFailed, result.Status)
	var rejected *SignRejectedError
	require.ErrorAs(t, result.Err, &rejected)
	require.ErrorIs(t, result.Err, declined)

	// Nothing reached the network and the snapshot stayed as it was.
	assert.Zero(t, network.submitCalls)
	assert.Zero(t, *refetches)
	require.Len(t, notifier.failures, 1)
	assert.Empty(t, notifier.successes)
}

func TestExecuteBlockhashFailure(t *testing.T) {
	wallet, network, notifier, _, refetcher := testFixtures()
	network.blockhashErr = errors.New("rpc unreachable")
	pipeline := New(wallet, network, refetcher, notifier)

	result := pipeline.Execute(context.Background(), testInstructions())

	assert.Equal(t, StatusSubmitFailed, result.Status)
	var submission *SubmissionError
	require.ErrorAs(t, result.Err, &submission)
	assert.Equal(t, solana.Signature{}, submission.Signature)
	assert.Zero(t, wallet.signCalls)
	require.Len(t, notifier.failures, 1)
}

func TestExecuteSubmitFailure(t *testing.T) {
	wallet, network, notifier, refetches, refetcher := testFixtures()
	network.submitErr = errors.New("blockhash not found")
	pipeline := New(wallet, network, refetcher, notifier)

	result := pipeline.Execute(context.Background(), testInstructions())

	assert.Equal(t, StatusSubmitFailed, result.Status)
	var submission *SubmissionError
	require.ErrorAs(t, result.Err, &submission)
	require.ErrorIs(t, result.Err, network.submitErr)
	assert.Zero(t, network.awaitCalls)
	assert.Zero(t, *refetches)
	require.Len(t, notifier.failures, 1)
}

func TestExecuteOnChainFailure(t *testing.T) {
	wallet, network, notifier, refetches, refetcher := testFixtures()
	network.confirmation = ConfirmationFailed
	network.confirmErr = errors.New("transaction failed on chain: custom program error 0x1")
	pipeline := New(wallet, network, refetcher, notifier)

	result := pipeline.Execute(context.Background(), testInstructions())

	assert.Equal(t, StatusSubmitFailed, result.Status)
	var submission *SubmissionError
	require.ErrorAs(t, result.Err, &submission)
	// The transaction was accepted, so the failure carries its signature.
	assert.Equal(t, network.signature, submission.Signature)
	assert.Zero(t, *refetches)
	require.Len(t, notifier.failures, 1)
	assert.Empty(t, notifier.successes)
}

func TestExecuteConfirmationTimeout(t *testing.T) {
	wallet, network, notifier, refetches, refetcher := testFixtures()
	network.confirmation = ConfirmationTimedOut
	pipeline := New(wallet, network, refetcher, notifier)

	result := pipeline.Execute(context.Background(), testInstructions())

	assert.Equal(t, StatusSubmitFailed, result.Status)
	var timeout *ConfirmationTimeoutError
	require.ErrorAs(t, result.Err, &timeout)
	assert.Equal(t, network.signature, timeout.Signature)
	assert.Equal(t, network.signature, result.Signature)

	// Timing out is uncertainty: the viewer is told the transaction may
	// still land, and no refetch pretends to know the outcome.
	require.Len(t, notifier.failures, 1)
	assert.Contains(t, notifier.failures[0], "may still land")
	assert.Zero(t, *refetches)
}

func TestExecuteRefetchFailureDoesNotDemoteConfirmation(t *testing.T) {
	wallet, network, notifier, _, _ := testFixtures()
	refetcher := RefetchFunc(func(ctx context.Context) error {
		return errors.New("indexer lagging")
	})
	pipeline := New(wallet, network, refetcher, notifier)

	result := pipeline.Execute(context.Background(), testInstructions())

	assert.Equal(t, StatusConfirmed, result.Status)
	assert.NoError(t, result.Err)
	require.Len(t, notifier.successes, 1)
	assert.Empty(t, notifier.failures)
}

func TestExecuteNilRefetcherAndNotifier(t *testing.T) {
	wallet, network, _, _, _ := testFixtures()
	pipeline := New(wallet, network, nil, nil)

	result := pipeline.Execute(context.Background(), testInstructions())
	assert.Equal(t, StatusConfirmed, result.Status)
}

func TestExecuteRejectsOverlappingAttempts(t *testing.T) {
	wallet, network, notifier, _, refetcher := testFixtures()
	wallet.blockSigning = make(chan struct{})
	wallet.signingBegan = make(chan struct{})
	pipeline := New(wallet, network, refetcher, notifier)

	var wg sync.WaitGroup
	wg.Add(1)
	var first Result
	go func() {
		defer wg.Done()
		first = pipeline.Execute(context.Background(), testInstructions())
	}()

	// Wait until the first attempt holds the in-flight slot, then try again.
	<-wallet.signingBegan
	second := pipeline.Execute(context.Background(), testInstructions())
	require.ErrorIs(t, second.Err, ErrAttemptInFlight)

	close(wallet.blockSigning)
	wg.Wait()
	assert.Equal(t, StatusConfirmed, first.Status)

	// The slot is free again once the attempt finished.
	wallet.blockSigning = nil
	wallet.signingBegan = nil
	third := pipeline.Execute(context.Background(), testInstructions())
	assert.Equal(t, StatusConfirmed, third.Status)
}
