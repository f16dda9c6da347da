package auction_house

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
)

// Deployed Auction House program ID.
var ProgramID = solana.MustPublicKeyFromBase58("hausS13jsjafwWwGqZTUQRmWyvyxn9EQpqMwV1PBBmk")

// Seed strings defined by the on-chain program. Every derived account below
// is a PDA over some subset of these plus caller-supplied keys.
const (
	prefixSeed          = "auction_house"
	feePayerSeed        = "fee_payer"
	treasurySeed        = "treasury"
	signerSeed          = "signer"
	listingReceiptSeed  = "listing_receipt"
	bidReceiptSeed      = "bid_receipt"
	purchaseReceiptSeed = "purchase_receipt"
	metadataSeed        = "metadata"
)

// Anchor tags every instruction payload and account body with an 8-byte
// discriminator derived from the name the program was compiled with.
var (
	Instruction_PublicBuy            = instructionDiscriminator("public_buy")
	Instruction_Sell                 = instructionDiscriminator("sell")
	Instruction_ExecuteSale          = instructionDiscriminator("execute_sale")
	Instruction_Cancel               = instructionDiscriminator("cancel")
	Instruction_PrintListingReceipt  = instructionDiscriminator("print_listing_receipt")
	Instruction_PrintBidReceipt      = instructionDiscriminator("print_bid_receipt")
	Instruction_PrintPurchaseReceipt = instructionDiscriminator("print_purchase_receipt")
	Instruction_CancelListingReceipt = instructionDiscriminator("cancel_listing_receipt")
	Instruction_CancelBidReceipt     = instructionDiscriminator("cancel_bid_receipt")

	Account_AuctionHouse    = accountDiscriminator("AuctionHouse")
	Account_ListingReceipt  = accountDiscriminator("ListingReceipt")
	Account_BidReceipt      = accountDiscriminator("BidReceipt")
	Account_PurchaseReceipt = accountDiscriminator("PurchaseReceipt")
)

func instructionDiscriminator(name string) [8]byte {
	return anchorDiscriminator("global:" + name)
}

func accountDiscriminator(name string) [8]byte {
	return anchorDiscriminator("account:" + name)
}

func anchorDiscriminator(preimage string) [8]byte {
	sum := sha256.Sum256([]byte(preimage))
	var id [8]byte
	copy(id[:], sum[:8])
	return id
}
