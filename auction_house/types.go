package auction_house

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Marketplace identifies the auction house instance a storefront trades on,
// as configured by the marketplace operator.
type Marketplace struct {
	Subdomain            string
	Name                 string
	AuctionHouse         solana.PublicKey
	Authority            solana.PublicKey
	TreasuryMint         solana.PublicKey
	FeeAccount           solana.PublicKey
	Treasury             solana.PublicKey
	SellerFeeBasisPoints uint16
	RequiresSignOff      bool
}

// Creator is one royalty recipient recorded in an NFT's metadata.
type Creator struct {
	Address  solana.PublicKey
	Share    uint8
	Verified bool
}

// Nft is the token being traded, as last observed by the data layer.
type Nft struct {
	Address              solana.PublicKey
	MintAddress          solana.PublicKey
	Name                 string
	Owner                solana.PublicKey
	TokenAccount         solana.PublicKey
	SellerFeeBasisPoints uint16
	Creators             []Creator
}

// Listing is a standing sell order posted to the auction house.
type Listing struct {
	AuctionHouse   solana.PublicKey
	Seller         solana.PublicKey
	TradeState     solana.PublicKey
	TradeStateBump uint8
	Price          uint64
	TokenSize      uint64
	CreatedAt      time.Time
}

// Offer is a standing public bid on an NFT. Any holder of the token can fill
// it, which is why the bid trade state is derived without a token account.
type Offer struct {
	AuctionHouse   solana.PublicKey
	Buyer          solana.PublicKey
	TradeState     solana.PublicKey
	TradeStateBump uint8
	Price          uint64
	TokenSize      uint64
	CreatedAt      time.Time
}
