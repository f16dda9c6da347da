package graph

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-cli/auction_house"
)

// Offers on a foreign auction house are not actionable on this marketplace
// and must not surface as accept candidates.
func TestSnapshotOffersForAuctionHouse(t *testing.T) {
	house := solana.NewWallet().PublicKey()
	foreignHouse := solana.NewWallet().PublicKey()

	first := auction_house.Offer{AuctionHouse: house, Buyer: solana.NewWallet().PublicKey(), Price: 1_000_000_000}
	foreign := auction_house.Offer{AuctionHouse: foreignHouse, Buyer: solana.NewWallet().PublicKey(), Price: 3_000_000_000}
	second := auction_house.Offer{AuctionHouse: house, Buyer: solana.NewWallet().PublicKey(), Price: 2_000_000_000}
	snapshot := &Snapshot{Offers: []auction_house.Offer{first, foreign, second}}

	offers := snapshot.OffersForAuctionHouse(house)
	require.Len(t, offers, 2)
	assert.Equal(t, first.Buyer, offers[0].Buyer)
	assert.Equal(t, second.Buyer, offers[1].Buyer)

	assert.Empty(t, snapshot.OffersForAuctionHouse(solana.NewWallet().PublicKey()))
}
