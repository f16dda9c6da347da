package auction_house

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
)

// Client reads protocol state over Solana JSON-RPC. Submission goes through
// the transaction pipeline, not through this client.
type Client struct {
	RpcClient *rpc.Client
}

// NewClient creates a read-only protocol client for the given RPC endpoint.
func NewClient(rpcEndpoint string) *Client {
	return &Client{
		RpcClient: rpc.New(rpcEndpoint),
	}
}

// FetchAuctionHouse loads and decodes the auction house config account. Used
// to cross-check the marketplace configuration the data layer reports.
func (c *Client) FetchAuctionHouse(ctx context.Context, address solana.PublicKey) (*AuctionHouse, error) {
	resp, err := c.RpcClient.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err == rpc.ErrNotFound {
		return nil, errors.Errorf("no auction house account at %s", address)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch auction house account")
	}
	if resp.Value == nil {
		return nil, errors.Errorf("no auction house account at %s", address)
	}
	return ParseAccount_AuctionHouse(resp.Value.Data.GetBinary())
}

// FetchSolBalance returns the wallet's lamport balance.
func (c *Client) FetchSolBalance(ctx context.Context, wallet solana.PublicKey) (uint64, error) {
	resp, err := c.RpcClient.GetBalance(ctx, wallet, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, errors.Wrap(err, "failed to fetch balance")
	}
	return resp.Value, nil
}

// FetchPurchaseReceipts returns every settled purchase the wallet took part
// in, as buyer or seller. The scan filters by account discriminator only and
// matches the wallet locally.
func (c *Client) FetchPurchaseReceipts(ctx context.Context, wallet solana.PublicKey) ([]*PurchaseReceipt, error) {
	accounts, err := c.fetchReceiptAccounts(ctx, Account_PurchaseReceipt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch purchase receipts")
	}
	receipts := make([]*PurchaseReceipt, 0, len(accounts))
	for _, account := range accounts {
		receipt, err := ParseAccount_PurchaseReceipt(account.Account.Data.GetBinary())
		if err != nil {
			fmt.Printf("Warning: skipping unparseable purchase receipt %s: %v\n", account.Pubkey, err)
			continue
		}
		if receipt.Buyer.Equals(wallet) || receipt.Seller.Equals(wallet) {
			receipts = append(receipts, receipt)
		}
	}
	return receipts, nil
}

// FetchListingReceipts returns the wallet's listing receipts, filled and
// canceled ones included.
func (c *Client) FetchListingReceipts(ctx context.Context, seller solana.PublicKey) ([]*ListingReceipt, error) {
	accounts, err := c.fetchReceiptAccounts(ctx, Account_ListingReceipt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch listing receipts")
	}
	receipts := make([]*ListingReceipt, 0, len(accounts))
	for _, account := range accounts {
		receipt, err := ParseAccount_ListingReceipt(account.Account.Data.GetBinary())
		if err != nil {
			fmt.Printf("Warning: skipping unparseable listing receipt %s: %v\n", account.Pubkey, err)
			continue
		}
		if receipt.Seller.Equals(seller) {
			receipts = append(receipts, receipt)
		}
	}
	return receipts, nil
}

// FetchBidReceipts returns the wallet's bid receipts.
func (c *Client) FetchBidReceipts(ctx context.Context, buyer solana.PublicKey) ([]*BidReceipt, error) {
	accounts, err := c.fetchReceiptAccounts(ctx, Account_BidReceipt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch bid receipts")
	}
	receipts := make([]*BidReceipt, 0, len(accounts))
	for _, account := range accounts {
		receipt, err := ParseAccount_BidReceipt(account.Account.Data.GetBinary())
		if err != nil {
			fmt.Printf("Warning: skipping unparseable bid receipt %s: %v\n", account.Pubkey, err)
			continue
		}
		if receipt.Buyer.Equals(buyer) {
			receipts = append(receipts, receipt)
		}
	}
	return receipts, nil
}

func (c *Client) fetchReceiptAccounts(ctx context.Context, discriminator [8]byte) (rpc.GetProgramAccountsResult, error) {
	return c.RpcClient.GetProgramAccountsWithOpts(ctx, ProgramID, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  discriminator[:],
				},
			},
		},
	})
}
