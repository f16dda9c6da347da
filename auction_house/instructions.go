package auction_house

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Each constructor mirrors one program instruction: the Borsh argument
// payload prefixed by its discriminator, plus the account list in the exact
// order and with the exact writable/signer flags the program declares.
// Account order is part of the protocol contract and is never rearranged.

type publicBuyArgs struct {
	TradeStateBump    uint8
	EscrowPaymentBump uint8
	BuyerPrice        uint64
	TokenSize         uint64
}

type sellArgs struct {
	TradeStateBump      uint8
	FreeTradeStateBump  uint8
	ProgramAsSignerBump uint8
	BuyerPrice          uint64
	TokenSize           uint64
}

type executeSaleArgs struct {
	EscrowPaymentBump   uint8
	FreeTradeStateBump  uint8
	ProgramAsSignerBump uint8
	BuyerPrice          uint64
	TokenSize           uint64
}

type cancelArgs struct {
	BuyerPrice uint64
	TokenSize  uint64
}

type printReceiptArgs struct {
	ReceiptBump uint8
}

// NewPublicBuyInstruction posts a public bid at the given price, funding the
// bidder's escrow account as needed.
func NewPublicBuyInstruction(
	tradeStateBump uint8,
	escrowPaymentBump uint8,
	buyerPrice uint64,
	tokenSize uint64,
	wallet solana.PublicKey,
	paymentAccount solana.PublicKey,
	transferAuthority solana.PublicKey,
	treasuryMint solana.PublicKey,
	tokenAccount solana.PublicKey,
	metadata solana.PublicKey,
	escrowPaymentAccount solana.PublicKey,
	authority solana.PublicKey,
	auctionHouse solana.PublicKey,
	auctionHouseFeeAccount solana.PublicKey,
	buyerTradeState solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_PublicBuy, publicBuyArgs{
		TradeStateBump:    tradeStateBump,
		EscrowPaymentBump: escrowPaymentBump,
		BuyerPrice:        buyerPrice,
		TokenSize:         tokenSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode public_buy args")
	}
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(wallet, false, true),
		solana.NewAccountMeta(paymentAccount, true, false),
		solana.NewAccountMeta(transferAuthority, false, false),
		solana.NewAccountMeta(treasuryMint, false, false),
		solana.NewAccountMeta(tokenAccount, false, false),
		solana.NewAccountMeta(metadata, false, false),
		solana.NewAccountMeta(escrowPaymentAccount, true, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(auctionHouse, false, false),
		solana.NewAccountMeta(auctionHouseFeeAccount, true, false),
		solana.NewAccountMeta(buyerTradeState, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// NewSellInstruction posts a listing at the given price. The wallet signs at
// the transaction level as fee payer; the instruction itself marks it
// writable only, matching the program's declaration.
func NewSellInstruction(
	tradeStateBump uint8,
	freeTradeStateBump uint8,
	programAsSignerBump uint8,
	buyerPrice uint64,
	tokenSize uint64,
	wallet solana.PublicKey,
	tokenAccount solana.PublicKey,
	metadata solana.PublicKey,
	authority solana.PublicKey,
	auctionHouse solana.PublicKey,
	auctionHouseFeeAccount solana.PublicKey,
	sellerTradeState solana.PublicKey,
	freeSellerTradeState solana.PublicKey,
	programAsSigner solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_Sell, sellArgs{
		TradeStateBump:      tradeStateBump,
		FreeTradeStateBump:  freeTradeStateBump,
		ProgramAsSignerBump: programAsSignerBump,
		BuyerPrice:          buyerPrice,
		TokenSize:           tokenSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode sell args")
	}
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(wallet, true, false),
		solana.NewAccountMeta(tokenAccount, true, false),
		solana.NewAccountMeta(metadata, false, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(auctionHouse, false, false),
		solana.NewAccountMeta(auctionHouseFeeAccount, true, false),
		solana.NewAccountMeta(sellerTradeState, true, false),
		solana.NewAccountMeta(freeSellerTradeState, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(programAsSigner, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// NewExecuteSaleInstruction settles a matched listing and bid: token to the
// buyer, funds to the seller, fee to the treasury. Royalty creators are not
// part of the base account list, see ExtendExecuteSale.
func NewExecuteSaleInstruction(
	escrowPaymentBump uint8,
	freeTradeStateBump uint8,
	programAsSignerBump uint8,
	buyerPrice uint64,
	tokenSize uint64,
	buyer solana.PublicKey,
	seller solana.PublicKey,
	tokenAccount solana.PublicKey,
	tokenMint solana.PublicKey,
	metadata solana.PublicKey,
	treasuryMint solana.PublicKey,
	escrowPaymentAccount solana.PublicKey,
	sellerPaymentReceiptAccount solana.PublicKey,
	buyerReceiptTokenAccount solana.PublicKey,
	authority solana.PublicKey,
	auctionHouse solana.PublicKey,
	auctionHouseFeeAccount solana.PublicKey,
	auctionHouseTreasury solana.PublicKey,
	buyerTradeState solana.PublicKey,
	sellerTradeState solana.PublicKey,
	freeTradeState solana.PublicKey,
	programAsSigner solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_ExecuteSale, executeSaleArgs{
		EscrowPaymentBump:   escrowPaymentBump,
		FreeTradeStateBump:  freeTradeStateBump,
		ProgramAsSignerBump: programAsSignerBump,
		BuyerPrice:          buyerPrice,
		TokenSize:           tokenSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode execute_sale args")
	}
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(buyer, true, false),
		solana.NewAccountMeta(seller, true, false),
		solana.NewAccountMeta(tokenAccount, true, false),
		solana.NewAccountMeta(tokenMint, false, false),
		solana.NewAccountMeta(metadata, false, false),
		solana.NewAccountMeta(treasuryMint, false, false),
		solana.NewAccountMeta(escrowPaymentAccount, true, false),
		solana.NewAccountMeta(sellerPaymentReceiptAccount, true, false),
		solana.NewAccountMeta(buyerReceiptTokenAccount, true, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(auctionHouse, false, false),
		solana.NewAccountMeta(auctionHouseFeeAccount, true, false),
		solana.NewAccountMeta(auctionHouseTreasury, true, false),
		solana.NewAccountMeta(buyerTradeState, true, false),
		solana.NewAccountMeta(sellerTradeState, true, false),
		solana.NewAccountMeta(freeTradeState, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(programAsSigner, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// ExtendExecuteSale returns a copy of an execute_sale instruction whose
// account list is extended with one writable, non-signer entry per royalty
// creator, in metadata order. The program pays royalties to exactly the
// accounts passed this way. The base instruction is left untouched.
func ExtendExecuteSale(base solana.Instruction, creators []solana.PublicKey) (solana.Instruction, error) {
	data, err := base.Data()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read execute_sale data")
	}
	accounts := make([]*solana.AccountMeta, 0, len(base.Accounts())+len(creators))
	accounts = append(accounts, base.Accounts()...)
	for _, creator := range creators {
		accounts = append(accounts, solana.NewAccountMeta(creator, true, false))
	}
	return solana.NewInstruction(base.ProgramID(), accounts, data), nil
}

// NewCancelInstruction voids a trade state, either side of an order. The
// price and size must match the ones the trade state was derived with.
func NewCancelInstruction(
	buyerPrice uint64,
	tokenSize uint64,
	wallet solana.PublicKey,
	tokenAccount solana.PublicKey,
	tokenMint solana.PublicKey,
	authority solana.PublicKey,
	auctionHouse solana.PublicKey,
	auctionHouseFeeAccount solana.PublicKey,
	tradeState solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_Cancel, cancelArgs{
		BuyerPrice: buyerPrice,
		TokenSize:  tokenSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode cancel args")
	}
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(wallet, true, false),
		solana.NewAccountMeta(tokenAccount, true, false),
		solana.NewAccountMeta(tokenMint, false, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(auctionHouse, false, false),
		solana.NewAccountMeta(auctionHouseFeeAccount, true, false),
		solana.NewAccountMeta(tradeState, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// NewPrintListingReceiptInstruction writes the receipt account indexers pick
// a new listing up from. Must run in the same transaction as the sell.
func NewPrintListingReceiptInstruction(receiptBump uint8, receipt, bookkeeper solana.PublicKey) (solana.Instruction, error) {
	return newPrintReceiptInstruction(Instruction_PrintListingReceipt, "print_listing_receipt", receiptBump, receipt, bookkeeper)
}

// NewPrintBidReceiptInstruction writes the receipt account for a posted bid.
// Must run in the same transaction as the public_buy.
func NewPrintBidReceiptInstruction(receiptBump uint8, receipt, bookkeeper solana.PublicKey) (solana.Instruction, error) {
	return newPrintReceiptInstruction(Instruction_PrintBidReceipt, "print_bid_receipt", receiptBump, receipt, bookkeeper)
}

func newPrintReceiptInstruction(discriminator [8]byte, name string, receiptBump uint8, receipt, bookkeeper solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeInstructionData(discriminator, printReceiptArgs{ReceiptBump: receiptBump})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s args", name)
	}
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(receipt, true, false),
		solana.NewAccountMeta(bookkeeper, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
		solana.NewAccountMeta(solana.SysVarInstructionsPubkey, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// NewPrintPurchaseReceiptInstruction links the listing and bid receipts of a
// settled sale. Must run after the execute_sale in the same transaction.
func NewPrintPurchaseReceiptInstruction(purchaseReceiptBump uint8, purchaseReceipt, listingReceipt, bidReceipt, bookkeeper solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_PrintPurchaseReceipt, printReceiptArgs{ReceiptBump: purchaseReceiptBump})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode print_purchase_receipt args")
	}
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(purchaseReceipt, true, false),
		solana.NewAccountMeta(listingReceipt, true, false),
		solana.NewAccountMeta(bidReceipt, true, false),
		solana.NewAccountMeta(bookkeeper, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
		solana.NewAccountMeta(solana.SysVarInstructionsPubkey, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// NewCancelListingReceiptInstruction marks a listing receipt canceled so
// indexers drop the listing. Runs alongside the cancel instruction.
func NewCancelListingReceiptInstruction(receipt solana.PublicKey) (solana.Instruction, error) {
	return newCancelReceiptInstruction(Instruction_CancelListingReceipt, receipt)
}

// NewCancelBidReceiptInstruction marks a bid receipt canceled.
func NewCancelBidReceiptInstruction(receipt solana.PublicKey) (solana.Instruction, error) {
	return newCancelReceiptInstruction(Instruction_CancelBidReceipt, receipt)
}

func newCancelReceiptInstruction(discriminator [8]byte, receipt solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeInstructionData(discriminator, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode cancel receipt data")
	}
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(receipt, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarInstructionsPubkey, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}

func encodeInstructionData(discriminator [8]byte, args interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	encoder := bin.NewBorshEncoder(buf)
	if err := encoder.WriteBytes(discriminator[:], false); err != nil {
		return nil, err
	}
	if args != nil {
		if err := encoder.Encode(args); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
