package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"storefront-cli/auction_house"
	"storefront-cli/graph"
	"storefront-cli/pipeline"
)

// cliNotifier renders pipeline outcomes with the CLI styles.
type cliNotifier struct{}

func (cliNotifier) Success(message string) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("\n✅ %s", message)))
}

func (cliNotifier) Failure(message string) {
	fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ %s", message)))
}

// newPipeline wires a pipeline whose reconcile step re-reads the NFT the
// action touched, bypassing the snapshot cache.
func (s *session) newPipeline(nftAddress string) *pipeline.Pipeline {
	refetch := pipeline.RefetchFunc(func(ctx context.Context) error {
		_, err := s.graphClient.RefetchNftSnapshot(ctx, nftAddress)
		return err
	})
	return pipeline.New(s.wallet, s.network, refetch, cliNotifier{})
}

// runIntent builds the instruction sequence for one storefront action and
// drives it through the pipeline. A build whose preconditions do not hold is
// reported as unavailable, not as a failure.
func (s *session) runIntent(nftAddress string, intent auction_house.Intent) {
	instructions, err := auction_house.Build(intent)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to assemble transaction: %v", err)))
		return
	}
	if len(instructions) == 0 {
		fmt.Println(infoStyle.Render(fmt.Sprintf("\nAction %q is not available for this NFT right now.", intent.Kind)))
		return
	}

	result := s.newPipeline(nftAddress).Execute(context.Background(), instructions)
	if result.Status == pipeline.StatusConfirmed {
		fmt.Printf("   Transaction Signature: %s\n", result.Signature)
	}
}

func (s *session) handleShowNft() {
	address, ok := promptNftAddress()
	if !ok {
		return
	}
	snapshot := s.fetchSnapshot(address)
	if snapshot == nil {
		return
	}
	s.renderSnapshot(snapshot)
}

func (s *session) handleBuy() {
	address, ok := promptNftAddress()
	if !ok {
		return
	}
	snapshot := s.fetchSnapshot(address)
	if snapshot == nil {
		return
	}

	listing := snapshot.ListingForAuctionHouse(s.marketplace.AuctionHouse)
	if listing == nil {
		fmt.Println(infoStyle.Render("\nThis NFT is not listed on this marketplace."))
		return
	}
	fmt.Println(promptStyle.Render(fmt.Sprintf("\nBuying %s for %s SOL...", snapshot.Nft.Name, formatSol(listing.Price))))

	s.runIntent(address, auction_house.Intent{
		Kind:        auction_house.IntentBuy,
		Marketplace: s.marketplace,
		Nft:         snapshot.Nft,
		Listing:     listing,
		Viewer:      s.wallet.PublicKey(),
	})
}

func (s *session) handleList() {
	address, ok := promptNftAddress()
	if !ok {
		return
	}
	snapshot := s.fetchSnapshot(address)
	if snapshot == nil {
		return
	}

	price, ok := promptSolAmount("Listing price in SOL:")
	if !ok {
		return
	}
	fmt.Println(promptStyle.Render(fmt.Sprintf("\nListing %s for %s SOL...", snapshot.Nft.Name, formatSol(price))))

	s.runIntent(address, auction_house.Intent{
		Kind:        auction_house.IntentList,
		Marketplace: s.marketplace,
		Nft:         snapshot.Nft,
		Price:       price,
		Viewer:      s.wallet.PublicKey(),
	})
}

func (s *session) handleMakeOffer() {
	address, ok := promptNftAddress()
	if !ok {
		return
	}
	snapshot := s.fetchSnapshot(address)
	if snapshot == nil {
		return
	}

	price, ok := promptSolAmount("Offer amount in SOL:")
	if !ok {
		return
	}
	fmt.Println(promptStyle.Render(fmt.Sprintf("\nOffering %s SOL for %s...", formatSol(price), snapshot.Nft.Name)))

	s.runIntent(address, auction_house.Intent{
		Kind:        auction_house.IntentMakeOffer,
		Marketplace: s.marketplace,
		Nft:         snapshot.Nft,
		Price:       price,
		Viewer:      s.wallet.PublicKey(),
	})
}

func (s *session) handleAcceptOffer() {
	address, ok := promptNftAddress()
	if !ok {
		return
	}
	snapshot := s.fetchSnapshot(address)
	if snapshot == nil {
		return
	}
	offers := snapshot.OffersForAuctionHouse(s.marketplace.AuctionHouse)
	if len(offers) == 0 {
		fmt.Println(infoStyle.Render("\nThis NFT has no open offers on this marketplace."))
		return
	}

	labels := make([]string, len(offers))
	for i, offer := range offers {
		labels[i] = fmt.Sprintf("%s SOL from %s", formatSol(offer.Price), offer.Buyer)
	}
	choice := ""
	prompt := &survey.Select{
		Message: promptStyle.Render("Accept which offer?"),
		Options: labels,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return
	}
	var offer *auction_house.Offer
	for i, label := range labels {
		if label == choice {
			offer = &offers[i]
			break
		}
	}
	if offer == nil {
		return
	}
	fmt.Println(promptStyle.Render(fmt.Sprintf("\nAccepting %s SOL for %s...", formatSol(offer.Price), snapshot.Nft.Name)))

	s.runIntent(address, auction_house.Intent{
		Kind:        auction_house.IntentAcceptOffer,
		Marketplace: s.marketplace,
		Nft:         snapshot.Nft,
		Offer:       offer,
		Viewer:      s.wallet.PublicKey(),
	})
}

func (s *session) handleCancelListing() {
	address, ok := promptNftAddress()
	if !ok {
		return
	}
	snapshot := s.fetchSnapshot(address)
	if snapshot == nil {
		return
	}

	listing := snapshot.ListingForAuctionHouse(s.marketplace.AuctionHouse)
	if listing == nil {
		fmt.Println(infoStyle.Render("\nThis NFT is not listed on this marketplace."))
		return
	}
	fmt.Println(promptStyle.Render(fmt.Sprintf("\nCanceling the %s SOL listing...", formatSol(listing.Price))))

	s.runIntent(address, auction_house.Intent{
		Kind:        auction_house.IntentCancelListing,
		Marketplace: s.marketplace,
		Nft:         snapshot.Nft,
		Listing:     listing,
		Viewer:      s.wallet.PublicKey(),
	})
}

func (s *session) handleCancelOffer() {
	address, ok := promptNftAddress()
	if !ok {
		return
	}
	snapshot := s.fetchSnapshot(address)
	if snapshot == nil {
		return
	}

	offer := snapshot.OfferByBuyer(s.wallet.PublicKey())
	if offer == nil {
		fmt.Println(infoStyle.Render("\nYou have no open offer on this NFT."))
		return
	}
	fmt.Println(promptStyle.Render(fmt.Sprintf("\nWithdrawing your %s SOL offer...", formatSol(offer.Price))))

	s.runIntent(address, auction_house.Intent{
		Kind:        auction_house.IntentCancelOffer,
		Marketplace: s.marketplace,
		Nft:         snapshot.Nft,
		Offer:       offer,
		Viewer:      s.wallet.PublicKey(),
	})
}

func (s *session) handleMarketplaceInfo() {
	mkt := s.marketplace
	fmt.Println(titleStyle.Render(fmt.Sprintf("\n🏪 %s", mkt.Name)))
	fmt.Printf("   Subdomain:      %s\n", mkt.Subdomain)
	fmt.Printf("   Auction House:  %s\n", mkt.AuctionHouse)
	fmt.Printf("   Authority:      %s\n", mkt.Authority)
	fmt.Printf("   Treasury Mint:  %s\n", mkt.TreasuryMint)
	fmt.Printf("   Marketplace Fee: %.2f%%\n", float64(mkt.SellerFeeBasisPoints)/100)

	fmt.Println(promptStyle.Render("\nCross-checking against the on-chain account..."))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	onChain, err := s.chainClient.FetchAuctionHouse(ctx, mkt.AuctionHouse)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Could not read the auction house account: %v", err)))
		return
	}

	clean := true
	if onChain.SellerFeeBasisPoints != mkt.SellerFeeBasisPoints {
		clean = false
		fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  Fee mismatch: chain says %.2f%%, indexer says %.2f%%",
			float64(onChain.SellerFeeBasisPoints)/100, float64(mkt.SellerFeeBasisPoints)/100)))
	}
	if !onChain.Authority.Equals(mkt.Authority) {
		clean = false
		fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  Authority mismatch: chain says %s", onChain.Authority)))
	}
	if !onChain.TreasuryMint.Equals(mkt.TreasuryMint) {
		clean = false
		fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  Treasury mint mismatch: chain says %s", onChain.TreasuryMint)))
	}
	if clean {
		fmt.Println(infoStyle.Render("✅ On-chain account matches the indexer."))
	}
	if onChain.RequiresSignOff {
		fmt.Println(warningStyle.Render("⚠️  This auction house requires authority sign-off. Trades from this CLI will not settle without it."))
	}
}

func (s *session) handleTradingHistory() {
	fmt.Println(promptStyle.Render("\nScanning receipt accounts... This can take a while."))
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	me := s.wallet.PublicKey()
	purchases, err := s.chainClient.FetchPurchaseReceipts(ctx, me)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to load purchases: %v", err)))
		return
	}
	listings, err := s.chainClient.FetchListingReceipts(ctx, me)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to load listings: %v", err)))
		return
	}
	bids, err := s.chainClient.FetchBidReceipts(ctx, me)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to load bids: %v", err)))
		return
	}

	fmt.Println(titleStyle.Render("\n📜 Trading History"))
	if len(purchases)+len(listings)+len(bids) == 0 {
		fmt.Println(infoStyle.Render("No trades recorded for this wallet yet."))
		return
	}

	if len(purchases) > 0 {
		sort.Slice(purchases, func(i, j int) bool { return purchases[i].CreatedAt > purchases[j].CreatedAt })
		fmt.Println(infoStyle.Render(fmt.Sprintf("\nSettled trades (%d):", len(purchases))))
		for _, receipt := range truncate(purchases, 10) {
			side := "bought"
			if receipt.Seller.Equals(me) {
				side = "sold"
			}
			fmt.Printf("   %s  %-6s %s SOL  metadata %s\n",
				formatUnix(receipt.CreatedAt), side, formatSol(receipt.Price), receipt.Metadata)
		}
	}

	if len(listings) > 0 {
		sort.Slice(listings, func(i, j int) bool { return listings[i].CreatedAt > listings[j].CreatedAt })
		fmt.Println(infoStyle.Render(fmt.Sprintf("\nListings (%d):", len(listings))))
		for _, receipt := range truncate(listings, 10) {
			fmt.Printf("   %s  %-9s %s SOL  metadata %s\n",
				formatUnix(receipt.CreatedAt), listingState(receipt), formatSol(receipt.Price), receipt.Metadata)
		}
	}

	if len(bids) > 0 {
		sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt > bids[j].CreatedAt })
		fmt.Println(infoStyle.Render(fmt.Sprintf("\nOffers made (%d):", len(bids))))
		for _, receipt := range truncate(bids, 10) {
			fmt.Printf("   %s  %-9s %s SOL  metadata %s\n",
				formatUnix(receipt.CreatedAt), bidState(receipt), formatSol(receipt.Price), receipt.Metadata)
		}
	}
}

func (s *session) handleWalletManagement() {
	fmt.Println()
	menu := &survey.Select{
		Message: promptStyle.Render("Wallet Management:"),
		Options: []string{"View Address", "View Balance", "Send SOL", "Export Wallet (UNSAFE)", "Back to Main Menu"},
	}
	var choice string
	survey.AskOne(menu, &choice)

	switch choice {
	case "View Address":
		s.viewAddress()
	case "View Balance":
		s.viewBalance()
	case "Send SOL":
		s.sendSol()
	case "Export Wallet (UNSAFE)":
		s.exportWallet()
	case "Back to Main Menu":
		return
	}
}

func (s *session) viewAddress() {
	fmt.Println(titleStyle.Render("\n🔑 Your Current Wallet Address:"))
	fmt.Println(s.wallet.PublicKey().String())
}

func (s *session) viewBalance() {
	fmt.Println(promptStyle.Render("\nChecking balance... Please wait."))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	balanceLamports, err := s.chainClient.FetchSolBalance(ctx, s.wallet.PublicKey())
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to get balance: %v", err)))
		return
	}
	balanceSol := float64(balanceLamports) / float64(solana.LAMPORTS_PER_SOL)
	fmt.Println(titleStyle.Render("\n💰 Your Wallet Balance:"))
	fmt.Printf("   %.9f SOL\n", balanceSol)
}

func (s *session) sendSol() {
	fmt.Println(promptStyle.Render("\n💸 Send SOL"))
	recipientStr := ""
	addrPrompt := &survey.Input{Message: "Enter recipient address:"}
	survey.AskOne(addrPrompt, &recipientStr, survey.WithValidator(survey.Required))
	recipient, err := solana.PublicKeyFromBase58(strings.TrimSpace(recipientStr))
	if err != nil {
		fmt.Println(warningStyle.Render("Invalid recipient address."))
		return
	}
	amountLamports, ok := promptSolAmount("Enter amount of SOL to send:")
	if !ok {
		return
	}

	transfer, err := system.NewTransferInstruction(amountLamports, s.wallet.PublicKey(), recipient).ValidateAndBuild()
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to assemble transfer: %v", err)))
		return
	}

	fmt.Println(promptStyle.Render(fmt.Sprintf("\nSending %s SOL to %s...", formatSol(amountLamports), recipient)))
	// Plain transfers ride the same pipeline as trades. There is no
	// snapshot to reconcile afterwards.
	result := pipeline.New(s.wallet, s.network, nil, cliNotifier{}).
		Execute(context.Background(), []solana.Instruction{transfer})
	if result.Status == pipeline.StatusConfirmed {
		fmt.Printf("   Transaction Signature: %s\n", result.Signature)
	}
}

func (s *session) exportWallet() {
	fmt.Println(warningStyle.Render("\n⚠️ WARNING: EXPORTING YOUR PRIVATE KEY ⚠️"))
	fmt.Println(promptStyle.Render("Sharing your private key can result in the permanent loss of your funds."))
	confirm := false
	prompt := &survey.Confirm{Message: "Are you absolutely sure?", Default: false}
	survey.AskOne(prompt, &confirm)
	if !confirm {
		fmt.Println(promptStyle.Render("\nExport cancelled."))
		return
	}
	fmt.Println(titleStyle.Render("\n🔐 Your Private Key (Base58):"))
	fmt.Println(s.wallet.PrivateKey().String())
}

// fetchSnapshot loads the NFT with its open orders, rendering the failure
// when the lookup does not succeed.
func (s *session) fetchSnapshot(address string) *graph.Snapshot {
	fmt.Println(promptStyle.Render("\nLoading NFT... Please wait."))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	snapshot, err := s.graphClient.NftSnapshot(ctx, address)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to load NFT: %v", err)))
		return nil
	}
	return snapshot
}

func (s *session) renderSnapshot(snapshot *graph.Snapshot) {
	nft := snapshot.Nft
	fmt.Println(titleStyle.Render(fmt.Sprintf("\n🖼  %s", nft.Name)))
	fmt.Printf("   Mint:   %s\n", nft.MintAddress)
	owner := nft.Owner.String()
	if nft.Owner.Equals(s.wallet.PublicKey()) {
		owner += " (you)"
	}
	fmt.Printf("   Owner:  %s\n", owner)
	fmt.Printf("   Royalties: %.2f%% across %d creator(s)\n", float64(nft.SellerFeeBasisPoints)/100, len(nft.Creators))

	if listing := snapshot.ListingForAuctionHouse(s.marketplace.AuctionHouse); listing != nil {
		fmt.Println(infoStyle.Render(fmt.Sprintf("\n💰 Listed for %s SOL by %s", formatSol(listing.Price), listing.Seller)))
	} else {
		fmt.Println(promptStyle.Render("\nNot listed on this marketplace."))
	}

	if len(snapshot.Offers) > 0 {
		fmt.Println(infoStyle.Render("\n📨 Open offers:"))
		for _, offer := range snapshot.Offers {
			line := fmt.Sprintf("   %s SOL from %s", formatSol(offer.Price), offer.Buyer)
			if offer.Buyer.Equals(s.wallet.PublicKey()) {
				line += " (you)"
			}
			fmt.Println(line)
		}
	}

	if len(snapshot.Activities) > 0 {
		fmt.Println(infoStyle.Render("\n📊 Recent activity:"))
		for i, activity := range snapshot.Activities {
			if i == 10 {
				fmt.Printf("   ...and %d more\n", len(snapshot.Activities)-i)
				break
			}
			fmt.Printf("   %s  %-8s %s SOL\n", activity.CreatedAt.Format("2006-01-02 15:04"), activity.Kind, formatSol(activity.Price))
		}
	}
}

func promptNftAddress() (string, bool) {
	address := ""
	prompt := &survey.Input{Message: "Enter the NFT address:"}
	if err := survey.AskOne(prompt, &address, survey.WithValidator(survey.Required), survey.WithValidator(addressValidator)); err != nil {
		return "", false
	}
	return strings.TrimSpace(address), true
}

// addressValidator rejects input that is not a base58 public key before any
// network round trip happens.
func addressValidator(answer interface{}) error {
	value, ok := answer.(string)
	if !ok {
		return fmt.Errorf("expected a string")
	}
	if _, err := solana.PublicKeyFromBase58(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("not a valid address")
	}
	return nil
}

func promptSolAmount(message string) (uint64, bool) {
	amountStr := ""
	prompt := &survey.Input{Message: message}
	if err := survey.AskOne(prompt, &amountStr, survey.WithValidator(survey.Required)); err != nil {
		return 0, false
	}
	amountFloat, err := strconv.ParseFloat(strings.TrimSpace(amountStr), 64)
	if err != nil || amountFloat <= 0 {
		fmt.Println(warningStyle.Render("Invalid amount entered."))
		return 0, false
	}
	return uint64(amountFloat * float64(solana.LAMPORTS_PER_SOL)), true
}

func formatSol(lamports uint64) string {
	return strconv.FormatFloat(float64(lamports)/float64(solana.LAMPORTS_PER_SOL), 'f', -1, 64)
}

func formatUnix(ts int64) string {
	if ts == 0 {
		return "unknown time   "
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04")
}

func listingState(receipt *auction_house.ListingReceipt) string {
	switch {
	case receipt.PurchaseReceipt != nil:
		return "sold"
	case receipt.CanceledAt != nil:
		return "canceled"
	default:
		return "open"
	}
}

func bidState(receipt *auction_house.BidReceipt) string {
	switch {
	case receipt.PurchaseReceipt != nil:
		return "filled"
	case receipt.CanceledAt != nil:
		return "canceled"
	default:
		return "open"
	}
}

func truncate[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
