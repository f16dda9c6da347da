package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAddress() string { return solana.NewWallet().PublicKey().String() }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, WithBackoff(time.Millisecond))
}

type houseFixture struct {
	address      string
	authority    string
	treasuryMint string
	feeAccount   string
	treasury     string
}

func newHouseFixture() houseFixture {
	return houseFixture{
		address:      newTestAddress(),
		authority:    newTestAddress(),
		treasuryMint: newTestAddress(),
		feeAccount:   newTestAddress(),
		treasury:     newTestAddress(),
	}
}

func marketplaceJSON(fixture houseFixture) string {
	return fmt.Sprintf(`{"data": {"marketplace": {
		"subdomain": "ghoulies",
		"name": "Boneyard Ghoulies",
		"auctionHouse": {
			"address": %q,
			"authority": %q,
			"treasuryMint": %q,
			"auctionHouseFeeAccount": %q,
			"auctionHouseTreasury": %q,
			"sellerFeeBasisPoints": 200,
			"requiresSignOff": true
		}
	}}}`, fixture.address, fixture.authority, fixture.treasuryMint, fixture.feeAccount, fixture.treasury)
}

func TestMarketplaceQueryParses(t *testing.T) {
	fixture := newHouseFixture()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "marketplace(subdomain: $subdomain)")
		assert.Equal(t, "ghoulies", req.Variables["subdomain"])
		fmt.Fprint(w, marketplaceJSON(fixture))
	})

	marketplace, err := client.Marketplace(context.Background(), "ghoulies")
	require.NoError(t, err)

	assert.Equal(t, "ghoulies", marketplace.Subdomain)
	assert.Equal(t, "Boneyard Ghoulies", marketplace.Name)
	assert.Equal(t, fixture.address, marketplace.AuctionHouse.String())
	assert.Equal(t, fixture.authority, marketplace.Authority.String())
	assert.Equal(t, fixture.treasuryMint, marketplace.TreasuryMint.String())
	assert.Equal(t, fixture.feeAccount, marketplace.FeeAccount.String())
	assert.Equal(t, fixture.treasury, marketplace.Treasury.String())
	assert.Equal(t, uint16(200), marketplace.SellerFeeBasisPoints)
	assert.True(t, marketplace.RequiresSignOff)
}

func TestMarketplaceUnknownSubdomain(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"marketplace": null}}`)
	})

	_, err := client.Marketplace(context.Background(), "nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no marketplace for subdomain "nowhere"`)
}

type nftFixture struct {
	address      string
	mint         string
	owner        string
	tokenAccount string
	creator      string
	house        string
	listingState string
	buyer        string
	offerState   string
}

func newNftFixture() nftFixture {
	return nftFixture{
		address:      newTestAddress(),
		mint:         newTestAddress(),
		owner:        newTestAddress(),
		tokenAccount: newTestAddress(),
		creator:      newTestAddress(),
		house:        newTestAddress(),
		listingState: newTestAddress(),
		buyer:        newTestAddress(),
		offerState:   newTestAddress(),
	}
}

func nftJSON(fixture nftFixture) string {
	return fmt.Sprintf(`{"data": {"nft": {
		"address": %q,
		"mintAddress": %q,
		"name": "Ghoulie #4269",
		"sellerFeeBasisPoints": 500,
		"owner": {"address": %q, "associatedTokenAccountAddress": %q},
		"creators": [{"address": %q, "share": 100, "verified": true}],
		"listings": [{
			"address": %q,
			"tradeState": %q,
			"tradeStateBump": 252,
			"seller": %q,
			"auctionHouse": %q,
			"price": "2500000000",
			"createdAt": "2026-08-20T10:00:00Z"
		}],
		"offers": [{
			"address": %q,
			"tradeState": %q,
			"tradeStateBump": 251,
			"buyer": %q,
			"auctionHouse": %q,
			"price": "1000000000",
			"createdAt": "2026-08-21T09:30:00Z"
		}],
		"activities": [{
			"address": %q,
			"activityType": "purchase",
			"price": "3000000000",
			"createdAt": "not-a-timestamp",
			"wallets": [%q, %q]
		}]
	}}}`,
		fixture.address, fixture.mint,
		fixture.owner, fixture.tokenAccount,
		fixture.creator,
		newTestAddress(), fixture.listingState, fixture.owner, fixture.house,
		newTestAddress(), fixture.offerState, fixture.buyer, fixture.house,
		newTestAddress(), fixture.buyer, fixture.owner,
	)
}

func TestNftSnapshotParses(t *testing.T) {
	fixture := newNftFixture()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "nft(address: $address)")
		assert.Equal(t, fixture.address, req.Variables["address"])
		fmt.Fprint(w, nftJSON(fixture))
	})

	snapshot, err := client.NftSnapshot(context.Background(), fixture.address)
	require.NoError(t, err)

	require.NotNil(t, snapshot.Nft)
	assert.Equal(t, fixture.address, snapshot.Nft.Address.String())
	assert.Equal(t, fixture.mint, snapshot.Nft.MintAddress.String())
	assert.Equal(t, "Ghoulie #4269", snapshot.Nft.Name)
	assert.Equal(t, fixture.owner, snapshot.Nft.Owner.String())
	assert.Equal(t, fixture.tokenAccount, snapshot.Nft.TokenAccount.String())
	assert.Equal(t, uint16(500), snapshot.Nft.SellerFeeBasisPoints)
	require.Len(t, snapshot.Nft.Creators, 1)
	assert.Equal(t, fixture.creator, snapshot.Nft.Creators[0].Address.String())
	assert.Equal(t, uint8(100), snapshot.Nft.Creators[0].Share)
	assert.True(t, snapshot.Nft.Creators[0].Verified)

	require.Len(t, snapshot.Listings, 1)
	listing := snapshot.Listings[0]
	assert.Equal(t, fixture.owner, listing.Seller.String())
	assert.Equal(t, fixture.listingState, listing.TradeState.String())
	assert.Equal(t, uint8(252), listing.TradeStateBump)
	assert.Equal(t, uint64(2_500_000_000), listing.Price)
	assert.Equal(t, uint64(1), listing.TokenSize)
	assert.Equal(t, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC), listing.CreatedAt)

	require.Len(t, snapshot.Offers, 1)
	offer := snapshot.Offers[0]
	assert.Equal(t, fixture.buyer, offer.Buyer.String())
	assert.Equal(t, uint64(1_000_000_000), offer.Price)
	assert.Equal(t, uint64(1), offer.TokenSize)

	require.Len(t, snapshot.Activities, 1)
	activity := snapshot.Activities[0]
	assert.Equal(t, "purchase", activity.Kind)
	assert.Equal(t, uint64(3_000_000_000), activity.Price)
	assert.Len(t, activity.Wallets, 2)
	// A malformed timestamp degrades to the zero time, it never fails the
	// snapshot.
	assert.True(t, activity.CreatedAt.IsZero())

	assert.False(t, snapshot.FetchedAt.IsZero())

	house := solana.MustPublicKeyFromBase58(fixture.house)
	require.NotNil(t, snapshot.ListingForAuctionHouse(house))
	assert.Nil(t, snapshot.ListingForAuctionHouse(solana.NewWallet().PublicKey()))
	buyer := solana.MustPublicKeyFromBase58(fixture.buyer)
	require.NotNil(t, snapshot.OfferByBuyer(buyer))
	assert.Nil(t, snapshot.OfferByBuyer(solana.NewWallet().PublicKey()))
}

func TestNftSnapshotCacheServesWhileFresh(t *testing.T) {
	fixture := newNftFixture()
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, nftJSON(fixture))
	})

	first, err := client.NftSnapshot(context.Background(), fixture.address)
	require.NoError(t, err)
	second, err := client.NftSnapshot(context.Background(), fixture.address)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	// Reconciliation reads through and replaces the cached snapshot.
	third, err := client.RefetchNftSnapshot(context.Background(), fixture.address)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, int32(2), hits.Load())

	fourth, err := client.NftSnapshot(context.Background(), fixture.address)
	require.NoError(t, err)
	assert.Same(t, third, fourth)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNftSnapshotZeroTTLDisablesCache(t *testing.T) {
	fixture := newNftFixture()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, nftJSON(fixture))
	}))
	t.Cleanup(server.Close)
	client := NewClient(server.URL, WithCacheTTL(0))

	_, err := client.NftSnapshot(context.Background(), fixture.address)
	require.NoError(t, err)
	_, err = client.NftSnapshot(context.Background(), fixture.address)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNftSnapshotUnknownAddress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"nft": null}}`)
	})

	_, err := client.NftSnapshot(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no nft at address "missing"`)
}

func TestNftSnapshotRejectsMalformedAddress(t *testing.T) {
	fixture := newNftFixture()
	fixture.owner = "not-base58"
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, nftJSON(fixture))
	})

	_, err := client.NftSnapshot(context.Background(), fixture.address)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid owner address")
}

func TestQueryErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"errors": [{"message": "unknown subdomain"}]}`)
	})

	_, err := client.Marketplace(context.Background(), "ghoulies")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph query failed: unknown subdomain")
	// The indexer answered; repeating the same query cannot change the
	// outcome.
	assert.Equal(t, int32(1), hits.Load())
}

func TestServerErrorIsRetried(t *testing.T) {
	fixture := newHouseFixture()
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, marketplaceJSON(fixture))
	})

	marketplace, err := client.Marketplace(context.Background(), "ghoulies")
	require.NoError(t, err)
	assert.Equal(t, fixture.address, marketplace.AuctionHouse.String())
	assert.Equal(t, int32(2), hits.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)
	client := NewClient(server.URL, WithRetries(1), WithBackoff(time.Millisecond))

	_, err := client.Marketplace(context.Background(), "ghoulies")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph returned status 503")
	assert.Equal(t, int32(2), hits.Load())
}

func TestQueryStopsWhenContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	client := NewClient(server.URL, WithRetries(2), WithBackoff(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Marketplace(ctx, "ghoulies")
	require.ErrorIs(t, err, context.Canceled)
}
