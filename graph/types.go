package graph

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"storefront-cli/auction_house"
)

// Snapshot is one consistent read of an NFT together with its open orders.
// The builder treats it as immutable; after a settlement it is replaced
// whole by a refetch, never patched in place.
type Snapshot struct {
	Nft        *auction_house.Nft
	Listings   []auction_house.Listing
	Offers     []auction_house.Offer
	Activities []Activity
	FetchedAt  time.Time
}

// ListingForAuctionHouse returns the snapshot's listing on the given auction
// house, or nil when the NFT is not listed there.
func (s *Snapshot) ListingForAuctionHouse(auctionHouse solana.PublicKey) *auction_house.Listing {
	for i := range s.Listings {
		if s.Listings[i].AuctionHouse.Equals(auctionHouse) {
			return &s.Listings[i]
		}
	}
	return nil
}

// OfferByBuyer returns the buyer's standing offer, or nil.
func (s *Snapshot) OfferByBuyer(buyer solana.PublicKey) *auction_house.Offer {
	for i := range s.Offers {
		if s.Offers[i].Buyer.Equals(buyer) {
			return &s.Offers[i]
		}
	}
	return nil
}

// OffersForAuctionHouse returns the offers standing on the given auction
// house, in indexer order.
func (s *Snapshot) OffersForAuctionHouse(auctionHouse solana.PublicKey) []auction_house.Offer {
	var offers []auction_house.Offer
	for _, offer := range s.Offers {
		if offer.AuctionHouse.Equals(auctionHouse) {
			offers = append(offers, offer)
		}
	}
	return offers
}

// Activity is a display-only marketplace event.
type Activity struct {
	Kind      string
	Price     uint64
	Wallets   []string
	CreatedAt time.Time
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type marketplaceData struct {
	Marketplace *marketplaceNode `json:"marketplace"`
}

type marketplaceNode struct {
	Subdomain    string            `json:"subdomain"`
	Name         string            `json:"name"`
	AuctionHouse *auctionHouseNode `json:"auctionHouse"`
}

type auctionHouseNode struct {
	Address                string `json:"address"`
	Authority              string `json:"authority"`
	TreasuryMint           string `json:"treasuryMint"`
	AuctionHouseFeeAccount string `json:"auctionHouseFeeAccount"`
	AuctionHouseTreasury   string `json:"auctionHouseTreasury"`
	SellerFeeBasisPoints   uint16 `json:"sellerFeeBasisPoints"`
	RequiresSignOff        bool   `json:"requiresSignOff"`
}

type nftData struct {
	Nft *nftNode `json:"nft"`
}

type nftNode struct {
	Address              string         `json:"address"`
	MintAddress          string         `json:"mintAddress"`
	Name                 string         `json:"name"`
	SellerFeeBasisPoints uint16         `json:"sellerFeeBasisPoints"`
	Owner                *ownerNode     `json:"owner"`
	Creators             []creatorNode  `json:"creators"`
	Listings             []listingNode  `json:"listings"`
	Offers               []offerNode    `json:"offers"`
	Activities           []activityNode `json:"activities"`
}

type ownerNode struct {
	Address                       string `json:"address"`
	AssociatedTokenAccountAddress string `json:"associatedTokenAccountAddress"`
}

type creatorNode struct {
	Address  string `json:"address"`
	Share    uint8  `json:"share"`
	Verified bool   `json:"verified"`
}

type listingNode struct {
	Address        string `json:"address"`
	TradeState     string `json:"tradeState"`
	TradeStateBump uint8  `json:"tradeStateBump"`
	Seller         string `json:"seller"`
	AuctionHouse   string `json:"auctionHouse"`
	Price          string `json:"price"`
	CreatedAt      string `json:"createdAt"`
}

type offerNode struct {
	Address        string `json:"address"`
	TradeState     string `json:"tradeState"`
	TradeStateBump uint8  `json:"tradeStateBump"`
	Buyer          string `json:"buyer"`
	AuctionHouse   string `json:"auctionHouse"`
	Price          string `json:"price"`
	CreatedAt      string `json:"createdAt"`
}

type activityNode struct {
	Address      string   `json:"address"`
	ActivityType string   `json:"activityType"`
	Price        string   `json:"price"`
	CreatedAt    string   `json:"createdAt"`
	Wallets      []string `json:"wallets"`
}

// Wire values carry base58 strings and decimal lamport strings. Everything
// is parsed here at the boundary; a malformed record is the indexer's bug
// surfaced as an error, not a silent skip.

func (n *marketplaceNode) toMarketplace() (*auction_house.Marketplace, error) {
	if n.AuctionHouse == nil {
		return nil, errors.New("marketplace has no auction house configured")
	}
	house := n.AuctionHouse
	address, err := parseAddress("auction house", house.Address)
	if err != nil {
		return nil, err
	}
	authority, err := parseAddress("authority", house.Authority)
	if err != nil {
		return nil, err
	}
	treasuryMint, err := parseAddress("treasury mint", house.TreasuryMint)
	if err != nil {
		return nil, err
	}
	feeAccount, err := parseAddress("fee account", house.AuctionHouseFeeAccount)
	if err != nil {
		return nil, err
	}
	treasury, err := parseAddress("treasury", house.AuctionHouseTreasury)
	if err != nil {
		return nil, err
	}
	return &auction_house.Marketplace{
		Subdomain:            n.Subdomain,
		Name:                 n.Name,
		AuctionHouse:         address,
		Authority:            authority,
		TreasuryMint:         treasuryMint,
		FeeAccount:           feeAccount,
		Treasury:             treasury,
		SellerFeeBasisPoints: house.SellerFeeBasisPoints,
		RequiresSignOff:      house.RequiresSignOff,
	}, nil
}

func (n *nftNode) toSnapshot() (*Snapshot, error) {
	nft, err := n.toNft()
	if err != nil {
		return nil, err
	}
	listings := make([]auction_house.Listing, 0, len(n.Listings))
	for _, node := range n.Listings {
		listing, err := node.toListing()
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	offers := make([]auction_house.Offer, 0, len(n.Offers))
	for _, node := range n.Offers {
		offer, err := node.toOffer()
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	activities := make([]Activity, 0, len(n.Activities))
	for _, node := range n.Activities {
		price, err := parsePrice(node.Price)
		if err != nil {
			return nil, err
		}
		activities = append(activities, Activity{
			Kind:      node.ActivityType,
			Price:     price,
			Wallets:   node.Wallets,
			CreatedAt: parseTimestamp(node.CreatedAt),
		})
	}
	return &Snapshot{
		Nft:        nft,
		Listings:   listings,
		Offers:     offers,
		Activities: activities,
		FetchedAt:  time.Now(),
	}, nil
}

func (n *nftNode) toNft() (*auction_house.Nft, error) {
	address, err := parseAddress("nft", n.Address)
	if err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", n.MintAddress)
	if err != nil {
		return nil, err
	}
	if n.Owner == nil {
		return nil, errors.Errorf("nft %s has no owner record", n.Address)
	}
	owner, err := parseAddress("owner", n.Owner.Address)
	if err != nil {
		return nil, err
	}
	tokenAccount, err := parseAddress("owner token account", n.Owner.AssociatedTokenAccountAddress)
	if err != nil {
		return nil, err
	}
	creators := make([]auction_house.Creator, 0, len(n.Creators))
	for _, node := range n.Creators {
		creatorAddress, err := parseAddress("creator", node.Address)
		if err != nil {
			return nil, err
		}
		creators = append(creators, auction_house.Creator{
			Address:  creatorAddress,
			Share:    node.Share,
			Verified: node.Verified,
		})
	}
	return &auction_house.Nft{
		Address:              address,
		MintAddress:          mint,
		Name:                 n.Name,
		Owner:                owner,
		TokenAccount:         tokenAccount,
		SellerFeeBasisPoints: n.SellerFeeBasisPoints,
		Creators:             creators,
	}, nil
}

func (n *listingNode) toListing() (auction_house.Listing, error) {
	seller, err := parseAddress("seller", n.Seller)
	if err != nil {
		return auction_house.Listing{}, err
	}
	tradeState, err := parseAddress("listing trade state", n.TradeState)
	if err != nil {
		return auction_house.Listing{}, err
	}
	house, err := parseAddress("listing auction house", n.AuctionHouse)
	if err != nil {
		return auction_house.Listing{}, err
	}
	price, err := parsePrice(n.Price)
	if err != nil {
		return auction_house.Listing{}, err
	}
	return auction_house.Listing{
		AuctionHouse:   house,
		Seller:         seller,
		TradeState:     tradeState,
		TradeStateBump: n.TradeStateBump,
		Price:          price,
		TokenSize:      1,
		CreatedAt:      parseTimestamp(n.CreatedAt),
	}, nil
}

func (n *offerNode) toOffer() (auction_house.Offer, error) {
	buyer, err := parseAddress("buyer", n.Buyer)
	if err != nil {
		return auction_house.Offer{}, err
	}
	tradeState, err := parseAddress("offer trade state", n.TradeState)
	if err != nil {
		return auction_house.Offer{}, err
	}
	house, err := parseAddress("offer auction house", n.AuctionHouse)
	if err != nil {
		return auction_house.Offer{}, err
	}
	price, err := parsePrice(n.Price)
	if err != nil {
		return auction_house.Offer{}, err
	}
	return auction_house.Offer{
		AuctionHouse:   house,
		Buyer:          buyer,
		TradeState:     tradeState,
		TradeStateBump: n.TradeStateBump,
		Price:          price,
		TokenSize:      1,
		CreatedAt:      parseTimestamp(n.CreatedAt),
	}, nil
}

func parseAddress(field, value string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, errors.Wrapf(err, "invalid %s address %q", field, value)
	}
	return key, nil
}

func parsePrice(value string) (uint64, error) {
	if value == "" {
		return 0, nil
	}
	price, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid price %q", value)
	}
	return price, nil
}

// Timestamps are display-only; a malformed one renders as the zero time
// instead of failing the snapshot.
func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
