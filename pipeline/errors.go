package pipeline

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Sentinel conditions callers branch on with errors.Is.
var (
	// ErrPreconditionNotMet marks a build whose guards tripped. Nothing was
	// signed or submitted and no failure is owed to the viewer.
	ErrPreconditionNotMet = errors.New("action preconditions not met")

	// ErrWalletUnavailable marks an attempt started without a connected
	// wallet. The connect flow was triggered instead of a transaction.
	ErrWalletUnavailable = errors.New("wallet not connected")

	// ErrAttemptInFlight marks a second Execute while one is still running.
	ErrAttemptInFlight = errors.New("another attempt is already in flight")
)

// SignRejectedError wraps a wallet refusal or signing failure. The attempt
// stopped before anything reached the network.
type SignRejectedError struct {
	Err error
}

func (e *SignRejectedError) Error() string {
	return fmt.Sprintf("signature request rejected: %v", e.Err)
}

func (e *SignRejectedError) Unwrap() error { return e.Err }

// SubmissionError wraps an RPC rejection or an on-chain failure of a
// submitted transaction. Signature is set when the transaction was accepted
// before failing.
type SubmissionError struct {
	Signature solana.Signature
	Err       error
}

func (e *SubmissionError) Error() string {
	if e.Signature == (solana.Signature{}) {
		return fmt.Sprintf("transaction submission failed: %v", e.Err)
	}
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ConfirmationTimeoutError reports that no confirmation was observed within
// the bounded window. The transaction may still land; this is uncertainty,
// not a failure verdict.
type ConfirmationTimeoutError struct {
	Signature solana.Signature
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("confirmation window elapsed for transaction %s, it may still land", e.Signature)
}
