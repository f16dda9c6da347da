package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Defaults for the confirmation wait. The window is finite so an attempt can
// never hang a session; an unconfirmed transaction is reported as uncertain
// rather than failed.
const (
	DefaultConfirmationTimeout = 30 * time.Second
	DefaultConfirmationDelay   = 2 * time.Second
)

// RPCNetwork implements Network over a Solana JSON-RPC endpoint.
type RPCNetwork struct {
	client              *rpc.Client
	commitment          rpc.CommitmentType
	confirmationStatus  rpc.ConfirmationStatusType
	confirmationTimeout time.Duration
	confirmationDelay   time.Duration
	skipPreflight       bool
}

// NetworkOption configures an RPCNetwork.
type NetworkOption func(*RPCNetwork)

// WithCommitment sets the commitment used for blockhash fetch and preflight.
func WithCommitment(commitment rpc.CommitmentType) NetworkOption {
	return func(n *RPCNetwork) { n.commitment = commitment }
}

// WithConfirmationStatus sets the level a signature must reach to count as
// confirmed.
func WithConfirmationStatus(status rpc.ConfirmationStatusType) NetworkOption {
	return func(n *RPCNetwork) { n.confirmationStatus = status }
}

// WithConfirmationTimeout bounds the wait for a confirmation.
func WithConfirmationTimeout(timeout time.Duration) NetworkOption {
	return func(n *RPCNetwork) { n.confirmationTimeout = timeout }
}

// WithConfirmationDelay sets the status poll interval.
func WithConfirmationDelay(delay time.Duration) NetworkOption {
	return func(n *RPCNetwork) { n.confirmationDelay = delay }
}

// WithSkipPreflight disables preflight simulation on submit.
func WithSkipPreflight(skip bool) NetworkOption {
	return func(n *RPCNetwork) { n.skipPreflight = skip }
}

// NewRPCNetwork creates a Network over the given RPC endpoint.
func NewRPCNetwork(endpoint string, opts ...NetworkOption) *RPCNetwork {
	network := &RPCNetwork{
		client:              rpc.New(endpoint),
		commitment:          rpc.CommitmentFinalized,
		confirmationStatus:  rpc.ConfirmationStatusConfirmed,
		confirmationTimeout: DefaultConfirmationTimeout,
		confirmationDelay:   DefaultConfirmationDelay,
	}
	for _, opt := range opts {
		opt(network)
	}
	return network
}

// LatestBlockhash fetches a fresh blockhash. Called once per attempt and
// never cached: an assembled transaction is only valid inside the blockhash
// window.
func (n *RPCNetwork) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	resp, err := n.client.GetLatestBlockhash(ctx, n.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to fetch latest blockhash: %w", err)
	}
	return resp.Value.Blockhash, nil
}

// Submit sends the signed transaction and returns its signature.
func (n *RPCNetwork) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	signature, err := n.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       n.skipPreflight,
		PreflightCommitment: n.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return signature, nil
}

// AwaitConfirmation polls the signature status until it reaches the target
// level, fails on chain, or the window elapses.
func (n *RPCNetwork) AwaitConfirmation(ctx context.Context, signature solana.Signature) (Confirmation, error) {
	ticker := time.NewTicker(n.confirmationDelay)
	defer ticker.Stop()
	deadline := time.After(n.confirmationTimeout)

	for {
		select {
		case <-ctx.Done():
			return ConfirmationTimedOut, ctx.Err()
		case <-deadline:
			return ConfirmationTimedOut, nil
		case <-ticker.C:
			resp, err := n.client.GetSignatureStatuses(ctx, true, signature)
			if err != nil {
				// Transient RPC trouble. Keep polling until the window closes.
				continue
			}
			if len(resp.Value) == 0 || resp.Value[0] == nil {
				continue
			}
			status := resp.Value[0]
			if status.Err != nil {
				return ConfirmationFailed, fmt.Errorf("transaction failed on chain: %v", status.Err)
			}
			if confirmationReached(status.ConfirmationStatus, n.confirmationStatus) {
				return ConfirmationConfirmed, nil
			}
		}
	}
}

func confirmationReached(current, target rpc.ConfirmationStatusType) bool {
	if current == rpc.ConfirmationStatusFinalized {
		return true
	}
	switch target {
	case rpc.ConfirmationStatusProcessed:
		return current == rpc.ConfirmationStatusProcessed || current == rpc.ConfirmationStatusConfirmed
	case rpc.ConfirmationStatusConfirmed:
		return current == rpc.ConfirmationStatusConfirmed
	default:
		return current == target
	}
}
