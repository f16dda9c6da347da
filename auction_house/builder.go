package auction_house

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// IntentKind tags the storefront action being built.
type IntentKind int

const (
	IntentBuy IntentKind = iota
	IntentCancelListing
	IntentList
	IntentMakeOffer
	IntentCancelOffer
	IntentAcceptOffer
)

func (k IntentKind) String() string {
	switch k {
	case IntentBuy:
		return "buy"
	case IntentCancelListing:
		return "cancel listing"
	case IntentList:
		return "list"
	case IntentMakeOffer:
		return "make offer"
	case IntentCancelOffer:
		return "cancel offer"
	case IntentAcceptOffer:
		return "accept offer"
	default:
		return "unknown"
	}
}

// Intent carries everything the builder needs to produce the instruction
// sequence for one storefront action. Listing is set for Buy and
// CancelListing, Offer for CancelOffer and AcceptOffer, Price for List and
// MakeOffer.
type Intent struct {
	Kind        IntentKind
	Marketplace *Marketplace
	Nft         *Nft
	Listing     *Listing
	Offer       *Offer
	Price       uint64
	TokenSize   uint64
	Viewer      solana.PublicKey
}

// Build turns an intent into the ordered instruction sequence for one
// transaction. When a precondition does not hold, the action is simply not
// available to this viewer in this state, so Build returns an empty sequence
// and no error. It never emits a partial sequence.
func Build(intent Intent) ([]solana.Instruction, error) {
	switch intent.Kind {
	case IntentBuy:
		return buildBuy(intent)
	case IntentCancelListing:
		return buildCancelListing(intent)
	case IntentList:
		return buildList(intent)
	case IntentMakeOffer:
		return buildMakeOffer(intent)
	case IntentCancelOffer:
		return buildCancelOffer(intent)
	case IntentAcceptOffer:
		return buildAcceptOffer(intent)
	default:
		return nil, errors.Errorf("unknown intent kind %d", intent.Kind)
	}
}

func buildBuy(intent Intent) ([]solana.Instruction, error) {
	mkt, nft, listing := intent.Marketplace, intent.Nft, intent.Listing
	if mkt == nil || nft == nil || listing == nil {
		return nil, nil
	}
	if !listing.AuctionHouse.Equals(mkt.AuctionHouse) {
		return nil, nil
	}
	if intent.Viewer.Equals(nft.Owner) {
		return nil, nil
	}

	buyer := intent.Viewer
	price := listing.Price
	size := normalizeSize(listing.TokenSize)

	// 1. Derive every account the settlement touches
	// ----------------------------------------------
	escrowPaymentAccount, escrowPaymentBump, err := FindEscrowPaymentAddress(mkt.AuctionHouse, buyer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive escrow payment account")
	}
	buyerTradeState, tradeStateBump, err := FindPublicBidTradeStateAddress(buyer, mkt.AuctionHouse, mkt.TreasuryMint, nft.MintAddress, price, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive buyer trade state")
	}
	freeTradeState, freeTradeStateBump, err := FindTradeStateAddress(listing.Seller, mkt.AuctionHouse, nft.TokenAccount, mkt.TreasuryMint, nft.MintAddress, 0, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive free trade state")
	}
	programAsSigner, programAsSignerBump, err := FindProgramAsSignerAddress()
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive program as signer")
	}
	metadata, _, err := FindMetadataAddress(nft.MintAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive metadata account")
	}
	buyerReceiptTokenAccount, _, err := solana.FindAssociatedTokenAddress(buyer, nft.MintAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive buyer token account")
	}
	bidReceipt, bidReceiptBump, err := FindBidReceiptAddress(buyerTradeState)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive bid receipt")
	}
	listingReceipt, _, err := FindListingReceiptAddress(listing.TradeState)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive listing receipt")
	}
	purchaseReceipt, purchaseReceiptBump, err := FindPurchaseReceiptAddress(listing.TradeState, buyerTradeState)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive purchase receipt")
	}

	// 2. Bid at the listing price
	// ---------------------------
	buy, err := NewPublicBuyInstruction(tradeStateBump, escrowPaymentBump, price, size,
		buyer, buyer, buyer, mkt.TreasuryMint, nft.TokenAccount, metadata,
		escrowPaymentAccount, mkt.Authority, mkt.AuctionHouse, mkt.FeeAccount, buyerTradeState)
	if err != nil {
		return nil, err
	}
	printBid, err := NewPrintBidReceiptInstruction(bidReceiptBump, bidReceipt, buyer)
	if err != nil {
		return nil, err
	}

	// 3. Settle against the standing listing, routing royalties to creators
	// ---------------------------------------------------------------------
	sale, err := NewExecuteSaleInstruction(escrowPaymentBump, freeTradeStateBump, programAsSignerBump, price, size,
		buyer, listing.Seller, nft.TokenAccount, nft.MintAddress, metadata, mkt.TreasuryMint,
		escrowPaymentAccount, listing.Seller, buyerReceiptTokenAccount, mkt.Authority,
		mkt.AuctionHouse, mkt.FeeAccount, mkt.Treasury,
		buyerTradeState, listing.TradeState, freeTradeState, programAsSigner)
	if err != nil {
		return nil, err
	}
	sale, err = ExtendExecuteSale(sale, creatorAddresses(nft.Creators))
	if err != nil {
		return nil, err
	}
	printPurchase, err := NewPrintPurchaseReceiptInstruction(purchaseReceiptBump, purchaseReceipt, listingReceipt, bidReceipt, buyer)
	if err != nil {
		return nil, err
	}

	// The bid must exist before the sale executes, and both receipts must
	// exist before the purchase receipt references them.
	return []solana.Instruction{buy, printBid, sale, printPurchase}, nil
}

func buildCancelListing(intent Intent) ([]solana.Instruction, error) {
	mkt, nft, listing := intent.Marketplace, intent.Nft, intent.Listing
	if mkt == nil || nft == nil || listing == nil {
		return nil, nil
	}
	if !listing.AuctionHouse.Equals(mkt.AuctionHouse) {
		return nil, nil
	}
	if !intent.Viewer.Equals(listing.Seller) {
		return nil, nil
	}

	size := normalizeSize(listing.TokenSize)
	listingReceipt, _, err := FindListingReceiptAddress(listing.TradeState)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive listing receipt")
	}
	cancel, err := NewCancelInstruction(listing.Price, size,
		listing.Seller, nft.TokenAccount, nft.MintAddress,
		mkt.Authority, mkt.AuctionHouse, mkt.FeeAccount, listing.TradeState)
	if err != nil {
		return nil, err
	}
	cancelReceipt, err := NewCancelListingReceiptInstruction(listingReceipt)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{cancel, cancelReceipt}, nil
}

func buildList(intent Intent) ([]solana.Instruction, error) {
	mkt, nft := intent.Marketplace, intent.Nft
	if mkt == nil || nft == nil {
		return nil, nil
	}
	if !intent.Viewer.Equals(nft.Owner) {
		return nil, nil
	}
	// A zero price would collide with the free trade state the program
	// reserves for settlement.
	if intent.Price == 0 {
		return nil, nil
	}

	seller := nft.Owner
	size := normalizeSize(intent.TokenSize)

	sellerTradeState, tradeStateBump, err := FindTradeStateAddress(seller, mkt.AuctionHouse, nft.TokenAccount, mkt.TreasuryMint, nft.MintAddress, intent.Price, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive seller trade state")
	}
	freeTradeState, freeTradeStateBump, err := FindTradeStateAddress(seller, mkt.AuctionHouse, nft.TokenAccount, mkt.TreasuryMint, nft.MintAddress, 0, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive free trade state")
	}
	programAsSigner, programAsSignerBump, err := FindProgramAsSignerAddress()
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive program as signer")
	}
	metadata, _, err := FindMetadataAddress(nft.MintAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive metadata account")
	}
	listingReceipt, receiptBump, err := FindListingReceiptAddress(sellerTradeState)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive listing receipt")
	}

	sell, err := NewSellInstruction(tradeStateBump, freeTradeStateBump, programAsSignerBump, intent.Price, size,
		seller, nft.TokenAccount, metadata, mkt.Authority, mkt.AuctionHouse, mkt.FeeAccount,
		sellerTradeState, freeTradeState, programAsSigner)
	if err != nil {
		return nil, err
	}
	printListing, err := NewPrintListingReceiptInstruction(receiptBump, listingReceipt, seller)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{sell, printListing}, nil
}

func buildMakeOffer(intent Intent) ([]solana.Instruction, error) {
	mkt, nft := intent.Marketplace, intent.Nft
	if mkt == nil || nft == nil {
		return nil, nil
	}
	if intent.Viewer.Equals(nft.Owner) {
		return nil, nil
	}
	if intent.Price == 0 {
		return nil, nil
	}

	buyer := intent.Viewer
	size := normalizeSize(intent.TokenSize)

	escrowPaymentAccount, escrowPaymentBump, err := FindEscrowPaymentAddress(mkt.AuctionHouse, buyer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive escrow payment account")
	}
	buyerTradeState, tradeStateBump, err := FindPublicBidTradeStateAddress(buyer, mkt.AuctionHouse, mkt.TreasuryMint, nft.MintAddress, intent.Price, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive buyer trade state")
	}
	metadata, _, err := FindMetadataAddress(nft.MintAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive metadata account")
	}
	bidReceipt, bidReceiptBump, err := FindBidReceiptAddress(buyerTradeState)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive bid receipt")
	}

	buy, err := NewPublicBuyInstruction(tradeStateBump, escrowPaymentBump, intent.Price, size,
		buyer, buyer, buyer, mkt.TreasuryMint, nft.TokenAccount, metadata,
		escrowPaymentAccount, mkt.Authority, mkt.AuctionHouse, mkt.FeeAccount, buyerTradeState)
	if err != nil {
		return nil, err
	}
	printBid, err := NewPrintBidReceiptInstruction(bidReceiptBump, bidReceipt, buyer)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{buy, printBid}, nil
}

func buildCancelOffer(intent Intent) ([]solana.Instruction, error) {
	mkt, nft, offer := intent.Marketplace, intent.Nft, intent.Offer
	if mkt == nil || nft == nil || offer == nil {
		return nil, nil
	}
	if !offer.AuctionHouse.Equals(mkt.AuctionHouse) {
		return nil, nil
	}
	if !intent.Viewer.Equals(offer.Buyer) {
		return nil, nil
	}

	size := normalizeSize(offer.TokenSize)
	bidReceipt, _, err := FindBidReceiptAddress(offer.TradeState)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive bid receipt")
	}
	cancel, err := NewCancelInstruction(offer.Price, size,
		offer.Buyer, nft.TokenAccount, nft.MintAddress,
		mkt.Authority, mkt.AuctionHouse, mkt.FeeAccount, offer.TradeState)
	if err != nil {
		return nil, err
	}
	cancelReceipt, err := NewCancelBidReceiptInstruction(bidReceipt)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{cancel, cancelReceipt}, nil
}

func buildAcceptOffer(intent Intent) ([]solana.Instruction, error) {
	mkt, nft, offer := intent.Marketplace, intent.Nft, intent.Offer
	if mkt == nil || nft == nil || offer == nil {
		return nil, nil
	}
	if !offer.AuctionHouse.Equals(mkt.AuctionHouse) {
		return nil, nil
	}
	if !intent.Viewer.Equals(nft.Owner) {
		return nil, nil
	}

	seller := nft.Owner
	price := offer.Price
	size := normalizeSize(offer.TokenSize)

	// 1. Derive both sides of the fill
	// --------------------------------
	sellerTradeState, tradeStateBump, err := FindTradeStateAddress(seller, mkt.AuctionHouse, nft.TokenAccount, mkt.TreasuryMint, nft.MintAddress, price, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive seller trade state")
	}
	freeTradeState, freeTradeStateBump, err := FindTradeStateAddress(seller, mkt.AuctionHouse, nft.TokenAccount, mkt.TreasuryMint, nft.MintAddress, 0, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive free trade state")
	}
	programAsSigner, programAsSignerBump, err := FindProgramAsSignerAddress()
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive program as signer")
	}
	metadata, _, err := FindMetadataAddress(nft.MintAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive metadata account")
	}
	escrowPaymentAccount, escrowPaymentBump, err := FindEscrowPaymentAddress(mkt.AuctionHouse, offer.Buyer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive escrow payment account")
	}
	buyerReceiptTokenAccount, _, err := solana.FindAssociatedTokenAddress(offer.Buyer, nft.MintAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive buyer token account")
	}
	listingReceipt, listingReceiptBump, err := FindListingReceiptAddress(sellerTradeState)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive listing receipt")
	}
	bidReceipt, _, err := FindBidReceiptAddress(offer.TradeState)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive bid receipt")
	}
	purchaseReceipt, purchaseReceiptBump, err := FindPurchaseReceiptAddress(sellerTradeState, offer.TradeState)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive purchase receipt")
	}

	// 2. List at the offer price, then settle against the standing bid
	// ----------------------------------------------------------------
	sell, err := NewSellInstruction(tradeStateBump, freeTradeStateBump, programAsSignerBump, price, size,
		seller, nft.TokenAccount, metadata, mkt.Authority, mkt.AuctionHouse, mkt.FeeAccount,
		sellerTradeState, freeTradeState, programAsSigner)
	if err != nil {
		return nil, err
	}
	printListing, err := NewPrintListingReceiptInstruction(listingReceiptBump, listingReceipt, seller)
	if err != nil {
		return nil, err
	}
	sale, err := NewExecuteSaleInstruction(escrowPaymentBump, freeTradeStateBump, programAsSignerBump, price, size,
		offer.Buyer, seller, nft.TokenAccount, nft.MintAddress, metadata, mkt.TreasuryMint,
		escrowPaymentAccount, seller, buyerReceiptTokenAccount, mkt.Authority,
		mkt.AuctionHouse, mkt.FeeAccount, mkt.Treasury,
		offer.TradeState, sellerTradeState, freeTradeState, programAsSigner)
	if err != nil {
		return nil, err
	}
	sale, err = ExtendExecuteSale(sale, creatorAddresses(nft.Creators))
	if err != nil {
		return nil, err
	}
	printPurchase, err := NewPrintPurchaseReceiptInstruction(purchaseReceiptBump, purchaseReceipt, listingReceipt, bidReceipt, seller)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{sell, printListing, sale, printPurchase}, nil
}

func creatorAddresses(creators []Creator) []solana.PublicKey {
	addresses := make([]solana.PublicKey, len(creators))
	for i, creator := range creators {
		addresses[i] = creator.Address
	}
	return addresses
}

func normalizeSize(size uint64) uint64 {
	if size == 0 {
		return 1
	}
	return size
}
