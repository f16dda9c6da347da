package auction_house

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// AuctionHouse mirrors the on-chain auction house config account.
type AuctionHouse struct {
	AuctionHouseFeeAccount        solana.PublicKey
	AuctionHouseTreasury          solana.PublicKey
	TreasuryWithdrawalDestination solana.PublicKey
	FeeWithdrawalDestination      solana.PublicKey
	TreasuryMint                  solana.PublicKey
	Authority                     solana.PublicKey
	Creator                       solana.PublicKey
	Bump                          uint8
	TreasuryBump                  uint8
	FeePayerBump                  uint8
	SellerFeeBasisPoints          uint16
	RequiresSignOff               bool
	CanChangeSalePrice            bool
}

// ListingReceipt mirrors the receipt account written by
// print_listing_receipt. PurchaseReceipt is set once the listing fills,
// CanceledAt once it is withdrawn.
type ListingReceipt struct {
	TradeState      solana.PublicKey
	Bookkeeper      solana.PublicKey
	AuctionHouse    solana.PublicKey
	Seller          solana.PublicKey
	Metadata        solana.PublicKey
	PurchaseReceipt *solana.PublicKey `bin:"optional"`
	Price           uint64
	TokenSize       uint64
	Bump            uint8
	TradeStateBump  uint8
	CreatedAt       int64
	CanceledAt      *int64 `bin:"optional"`
}

// BidReceipt mirrors the receipt account written by print_bid_receipt.
type BidReceipt struct {
	TradeState      solana.PublicKey
	Bookkeeper      solana.PublicKey
	AuctionHouse    solana.PublicKey
	Buyer           solana.PublicKey
	Metadata        solana.PublicKey
	TokenAccount    *solana.PublicKey `bin:"optional"`
	PurchaseReceipt *solana.PublicKey `bin:"optional"`
	Price           uint64
	TokenSize       uint64
	Bump            uint8
	TradeStateBump  uint8
	CreatedAt       int64
	CanceledAt      *int64 `bin:"optional"`
}

// PurchaseReceipt mirrors the receipt account tying a filled listing and bid
// together.
type PurchaseReceipt struct {
	Bookkeeper   solana.PublicKey
	Buyer        solana.PublicKey
	Seller       solana.PublicKey
	AuctionHouse solana.PublicKey
	Metadata     solana.PublicKey
	TokenSize    uint64
	Price        uint64
	Bump         uint8
	CreatedAt    int64
}

// ParseAccount_AuctionHouse decodes an auction house config account,
// verifying the discriminator first.
func ParseAccount_AuctionHouse(data []byte) (*AuctionHouse, error) {
	body, err := stripDiscriminator(data, Account_AuctionHouse, "AuctionHouse")
	if err != nil {
		return nil, err
	}
	var account AuctionHouse
	if err := bin.NewBorshDecoder(body).Decode(&account); err != nil {
		return nil, errors.Wrap(err, "failed to decode AuctionHouse account")
	}
	return &account, nil
}

// ParseAccount_ListingReceipt decodes a listing receipt account.
func ParseAccount_ListingReceipt(data []byte) (*ListingReceipt, error) {
	body, err := stripDiscriminator(data, Account_ListingReceipt, "ListingReceipt")
	if err != nil {
		return nil, err
	}
	var account ListingReceipt
	if err := bin.NewBorshDecoder(body).Decode(&account); err != nil {
		return nil, errors.Wrap(err, "failed to decode ListingReceipt account")
	}
	return &account, nil
}

// ParseAccount_BidReceipt decodes a bid receipt account.
func ParseAccount_BidReceipt(data []byte) (*BidReceipt, error) {
	body, err := stripDiscriminator(data, Account_BidReceipt, "BidReceipt")
	if err != nil {
		return nil, err
	}
	var account BidReceipt
	if err := bin.NewBorshDecoder(body).Decode(&account); err != nil {
		return nil, errors.Wrap(err, "failed to decode BidReceipt account")
	}
	return &account, nil
}

// ParseAccount_PurchaseReceipt decodes a purchase receipt account.
func ParseAccount_PurchaseReceipt(data []byte) (*PurchaseReceipt, error) {
	body, err := stripDiscriminator(data, Account_PurchaseReceipt, "PurchaseReceipt")
	if err != nil {
		return nil, err
	}
	var account PurchaseReceipt
	if err := bin.NewBorshDecoder(body).Decode(&account); err != nil {
		return nil, errors.Wrap(err, "failed to decode PurchaseReceipt account")
	}
	return &account, nil
}

func stripDiscriminator(data []byte, discriminator [8]byte, name string) ([]byte, error) {
	if len(data) < 8 {
		return nil, errors.Errorf("account data too short for a %s account", name)
	}
	if !bytes.Equal(data[:8], discriminator[:]) {
		return nil, errors.Errorf("account data does not hold a %s account", name)
	}
	return data[8:], nil
}
