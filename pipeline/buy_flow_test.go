package pipeline

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-cli/auction_house"
)

// The buy path as the CLI runs it: the built instruction sequence handed to
// Execute whole, signed by the buyer, confirmed, reconciled once.
func TestExecuteBuySequenceEndToEnd(t *testing.T) {
	wallet, network, notifier, refetches, refetcher := testFixtures()
	buyer := wallet.publicKey

	creator := solana.NewWallet().PublicKey()
	treasuryMint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	house, _, err := auction_house.FindAuctionHouseAddress(creator, treasuryMint)
	require.NoError(t, err)
	feeAccount, _, err := auction_house.FindAuctionHouseFeeAddress(house)
	require.NoError(t, err)
	treasury, _, err := auction_house.FindAuctionHouseTreasuryAddress(house)
	require.NoError(t, err)
	marketplace := &auction_house.Marketplace{
		Subdomain:            "ghoulies",
		Name:                 "Boneyard Ghoulies",
		AuctionHouse:         house,
		Authority:            creator,
		TreasuryMint:         treasuryMint,
		FeeAccount:           feeAccount,
		Treasury:             treasury,
		SellerFeeBasisPoints: 200,
	}

	owner := solana.NewWallet().PublicKey()
	nft := &auction_house.Nft{
		Address:              solana.NewWallet().PublicKey(),
		MintAddress:          solana.NewWallet().PublicKey(),
		Name:                 "Ghoulie #42",
		Owner:                owner,
		TokenAccount:         solana.NewWallet().PublicKey(),
		SellerFeeBasisPoints: 500,
		Creators: []auction_house.Creator{
			{Address: solana.NewWallet().PublicKey(), Share: 100, Verified: true},
		},
	}
	tradeState, bump, err := auction_house.FindTradeStateAddress(owner, house, nft.TokenAccount, treasuryMint, nft.MintAddress, 2_500_000_000, 1)
	require.NoError(t, err)
	listing := &auction_house.Listing{
		AuctionHouse:   house,
		Seller:         owner,
		TradeState:     tradeState,
		TradeStateBump: bump,
		Price:          2_500_000_000,
		TokenSize:      1,
	}

	instructions, err := auction_house.Build(auction_house.Intent{
		Kind:        auction_house.IntentBuy,
		Marketplace: marketplace,
		Nft:         nft,
		Listing:     listing,
		Viewer:      buyer,
	})
	require.NoError(t, err)
	require.Len(t, instructions, 4)

	result := New(wallet, network, refetcher, notifier).Execute(context.Background(), instructions)

	assert.Equal(t, StatusConfirmed, result.Status)
	assert.NoError(t, result.Err)
	assert.Equal(t, network.signature, result.Signature)
	assert.Equal(t, 1, wallet.signCalls)
	assert.Equal(t, 1, network.submitCalls)
	assert.Equal(t, 1, network.awaitCalls)

	// Exactly one refetch per confirmed settlement.
	assert.Equal(t, 1, *refetches)

	// The signed transaction carries the whole sequence with the buyer
	// paying the fee.
	require.NotNil(t, wallet.lastTx)
	require.Len(t, wallet.lastTx.Message.Instructions, 4)
	assert.Equal(t, network.blockhash, wallet.lastTx.Message.RecentBlockhash)
	require.NotEmpty(t, wallet.lastTx.Message.AccountKeys)
	assert.Equal(t, buyer, wallet.lastTx.Message.AccountKeys[0])

	require.Len(t, notifier.successes, 1)
	assert.Contains(t, notifier.successes[0], result.Signature.String())
	assert.Empty(t, notifier.failures)
}
