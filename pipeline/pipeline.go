package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
)

// Wallet is the signing capability borrowed from the viewer.
type Wallet interface {
	Connected() bool
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// Network carries assembled transactions to the chain.
type Network interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	AwaitConfirmation(ctx context.Context, signature solana.Signature) (Confirmation, error)
}

// Confirmation is the three-way outcome of waiting on a signature.
type Confirmation int

const (
	ConfirmationConfirmed Confirmation = iota
	ConfirmationFailed
	ConfirmationTimedOut
)

// Refetcher re-reads the data snapshot an attempt was built from. Local
// state is never patched after a settlement; the refetched snapshot is the
// only ground truth.
type Refetcher interface {
	Refetch(ctx context.Context) error
}

// RefetchFunc adapts a function to the Refetcher interface.
type RefetchFunc func(ctx context.Context) error

func (f RefetchFunc) Refetch(ctx context.Context) error { return f(ctx) }

// Notifier surfaces terminal outcomes to the viewer.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// Connector is invoked when an attempt starts without a connected wallet.
type Connector interface {
	RequestConnect()
}

// Result is the final record of one attempt.
type Result struct {
	Status    Status
	Signature solana.Signature
	Err       error
}

// Pipeline runs one storefront action end to end: assemble, sign, submit,
// confirm, reconcile. One attempt at a time. It never retries on its own; a
// re-trigger after failure is a fresh run with a fresh blockhash, and the
// derived addresses come out identical because derivation is pure.
type Pipeline struct {
	wallet    Wallet
	network   Network
	refetcher Refetcher
	notifier  Notifier
	connector Connector
	inFlight  atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConnector wires the connect flow triggered when the wallet is
// unavailable.
func WithConnector(connector Connector) Option {
	return func(p *Pipeline) { p.connector = connector }
}

// New builds a pipeline around the given collaborators. Refetcher and
// notifier may be nil when the caller has no snapshot or no UI to keep
// current.
func New(wallet Wallet, network Network, refetcher Refetcher, notifier Notifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		wallet:    wallet,
		network:   network,
		refetcher: refetcher,
		notifier:  notifier,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs a single attempt over the given instruction sequence and
// returns once the attempt reaches a terminal state or is stopped by a
// precondition.
func (p *Pipeline) Execute(ctx context.Context, instructions []solana.Instruction) Result {
	// Guards that tripped during the build arrive here as an empty
	// sequence. Nothing to do and nothing to report to the viewer.
	if len(instructions) == 0 {
		return Result{Status: StatusBuilt, Err: ErrPreconditionNotMet}
	}
	if !p.wallet.Connected() {
		if p.connector != nil {
			p.connector.RequestConnect()
		}
		return Result{Status: StatusBuilt, Err: ErrWalletUnavailable}
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return Result{Status: StatusBuilt, Err: ErrAttemptInFlight}
	}
	defer p.inFlight.Store(false)

	// 1. Assemble with a fresh blockhash, wallet pays the fee
	// -------------------------------------------------------
	blockhash, err := p.network.LatestBlockhash(ctx)
	if err != nil {
		return p.failSubmit(solana.Signature{}, err)
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(p.wallet.PublicKey()))
	if err != nil {
		return p.failSubmit(solana.Signature{}, err)
	}

	// 2. Sign
	// -------
	if err := p.wallet.SignTransaction(ctx, tx); err != nil {
		p.notifyFailure(fmt.Sprintf("Signature request failed: %v", err))
		return Result{Status: StatusSignFailed, Err: &SignRejectedError{Err: err}}
	}

	// 3. Submit
	// ---------
	signature, err := p.network.Submit(ctx, tx)
	if err != nil {
		return p.failSubmit(solana.Signature{}, err)
	}

	// 4. Await confirmation, bounded
	// ------------------------------
	confirmation, confErr := p.network.AwaitConfirmation(ctx, signature)
	switch confirmation {
	case ConfirmationFailed:
		return p.failSubmit(signature, confErr)
	case ConfirmationTimedOut:
		p.notifyFailure(fmt.Sprintf("Transaction %s was not confirmed in time. It may still land, check before retrying.", signature))
		return Result{Status: StatusSubmitFailed, Signature: signature, Err: &ConfirmationTimeoutError{Signature: signature}}
	}

	// 5. Reconcile: exactly one refetch per confirmed settlement
	// ----------------------------------------------------------
	if p.refetcher != nil {
		if err := p.refetcher.Refetch(ctx); err != nil {
			log.Printf("Warning: snapshot refetch after confirmation failed: %v", err)
		}
	}
	p.notifySuccess(fmt.Sprintf("Transaction confirmed: %s", signature))
	return Result{Status: StatusConfirmed, Signature: signature}
}

func (p *Pipeline) failSubmit(signature solana.Signature, err error) Result {
	submissionErr := &SubmissionError{Signature: signature, Err: err}
	p.notifyFailure(submissionErr.Error())
	return Result{Status: StatusSubmitFailed, Signature: signature, Err: submissionErr}
}

func (p *Pipeline) notifySuccess(message string) {
	if p.notifier != nil {
		p.notifier.Success(message)
	}
}

func (p *Pipeline) notifyFailure(message string) {
	if p.notifier != nil {
		p.notifier.Failure(message)
	}
}
