package auction_house

import (
	"encoding/binary"

	token_metadata "github.com/gagliardetto/metaplex-go/clients/token-metadata"
	"github.com/gagliardetto/solana-go"
)

// The derivations below are pure: the same inputs always yield the same
// address and bump, so builds can be repeated or retried without drift.

// FindAuctionHouseAddress derives the auction house config account for a
// creator and treasury mint pair.
func FindAuctionHouseAddress(creator, treasuryMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(prefixSeed),
		creator.Bytes(),
		treasuryMint.Bytes(),
	}, ProgramID)
}

// FindAuctionHouseFeeAddress derives the fee account the auction house pays
// transaction costs from.
func FindAuctionHouseFeeAddress(auctionHouse solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(prefixSeed),
		auctionHouse.Bytes(),
		[]byte(feePayerSeed),
	}, ProgramID)
}

// FindAuctionHouseTreasuryAddress derives the treasury that collects the
// marketplace fee on every sale.
func FindAuctionHouseTreasuryAddress(auctionHouse solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(prefixSeed),
		auctionHouse.Bytes(),
		[]byte(treasurySeed),
	}, ProgramID)
}

// FindEscrowPaymentAddress derives the per-wallet escrow account the program
// moves bid funds through.
func FindEscrowPaymentAddress(auctionHouse, wallet solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(prefixSeed),
		auctionHouse.Bytes(),
		wallet.Bytes(),
	}, ProgramID)
}

// FindTradeStateAddress derives the trade state PDA encoding one side of an
// order for a specific token account. Price and size are part of the seeds,
// so every distinct price produces a distinct trade state.
func FindTradeStateAddress(wallet, auctionHouse, tokenAccount, treasuryMint, tokenMint solana.PublicKey, price, size uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(prefixSeed),
		wallet.Bytes(),
		auctionHouse.Bytes(),
		tokenAccount.Bytes(),
		treasuryMint.Bytes(),
		tokenMint.Bytes(),
		uint64Seed(price),
		uint64Seed(size),
	}, ProgramID)
}

// FindPublicBidTradeStateAddress derives the trade state for a public bid.
// Public bids are not tied to a token account, any current holder can fill
// them, so the token account is absent from the seeds.
func FindPublicBidTradeStateAddress(wallet, auctionHouse, treasuryMint, tokenMint solana.PublicKey, price, size uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(prefixSeed),
		wallet.Bytes(),
		auctionHouse.Bytes(),
		treasuryMint.Bytes(),
		tokenMint.Bytes(),
		uint64Seed(price),
		uint64Seed(size),
	}, ProgramID)
}

// FindProgramAsSignerAddress derives the PDA the program signs token
// delegations with during settlement.
func FindProgramAsSignerAddress() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(prefixSeed),
		[]byte(signerSeed),
	}, ProgramID)
}

// FindListingReceiptAddress derives the receipt account indexers read
// listings from.
func FindListingReceiptAddress(sellerTradeState solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(listingReceiptSeed),
		sellerTradeState.Bytes(),
	}, ProgramID)
}

// FindBidReceiptAddress derives the receipt account indexers read bids from.
func FindBidReceiptAddress(buyerTradeState solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(bidReceiptSeed),
		buyerTradeState.Bytes(),
	}, ProgramID)
}

// FindPurchaseReceiptAddress derives the receipt account tying a filled
// listing and bid together.
func FindPurchaseReceiptAddress(sellerTradeState, buyerTradeState solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(purchaseReceiptSeed),
		sellerTradeState.Bytes(),
		buyerTradeState.Bytes(),
	}, ProgramID)
}

// FindMetadataAddress derives the token metadata account for a mint.
func FindMetadataAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(metadataSeed),
		token_metadata.ProgramID.Bytes(),
		mint.Bytes(),
	}, token_metadata.ProgramID)
}

// Price and size seeds are serialized as little-endian u64, matching the
// on-chain derivation.
func uint64Seed(value uint64) []byte {
	seed := make([]byte, 8)
	binary.LittleEndian.PutUint64(seed, value)
	return seed
}
