package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"

	"storefront-cli/auction_house"
	"storefront-cli/cmd"
	"storefront-cli/graph"
	"storefront-cli/pipeline"
	"storefront-cli/storage"
	"storefront-cli/wallet"
)

func main() {
	// Special handling for the 'api' command before Cobra takes over.
	if len(os.Args) > 1 && os.Args[1] == "api" {
		startApiServer()
	} else {
		cmd.Execute()
	}
}

// Shared clients for the API server. The graph client is shared so its
// snapshot cache works across requests.
var (
	apiGraph   *graph.Client
	apiChain   *auction_house.Client
	apiNetwork *pipeline.RPCNetwork
)

// --- API Handlers ---

func handleGetProfiles(w http.ResponseWriter, r *http.Request) {
	db, err := storage.NewWalletStorage()
	if err != nil {
		http.Error(w, "failed to open wallet storage", http.StatusInternalServerError)
		return
	}
	profiles, err := db.GetAllWalletNames()
	if err != nil {
		http.Error(w, "failed to get wallet profiles", http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []string{} // Return empty array instead of null
	}
	writeJSON(w, http.StatusOK, profiles)
}

func handleGetAddresses(w http.ResponseWriter, r *http.Request) {
	db, err := storage.NewWalletStorage()
	if err != nil {
		http.Error(w, "failed to open wallet storage", http.StatusInternalServerError)
		return
	}
	wallets, err := db.GetAllWallets()
	if err != nil {
		http.Error(w, "failed to get wallets", http.StatusInternalServerError)
		return
	}

	addresses := make(map[string]string)
	for name, key := range wallets {
		addresses[name] = key.PublicKey().String()
	}
	writeJSON(w, http.StatusOK, addresses)
}

type CreateProfileRequest struct {
	Profile string `json:"profile"`
}

func handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST method is allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Profile == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	db, err := storage.NewWalletStorage()
	if err != nil {
		http.Error(w, "failed to open wallet storage", http.StatusInternalServerError)
		return
	}

	keypair := wallet.Generate()
	if err := db.SaveWallet(req.Profile, keypair.PrivateKey()); err != nil {
		http.Error(w, fmt.Sprintf("Failed to save new %s wallet: %v", req.Profile, err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"profile":   req.Profile,
		"publicKey": keypair.PublicKey().String(),
	})
}

func handleGetBalance(w http.ResponseWriter, r *http.Request) {
	signer, ok := loadSigner(w, r.URL.Query().Get("profile"))
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	balance, err := apiChain.FetchSolBalance(ctx, signer.PublicKey())
	if err != nil {
		http.Error(w, "Failed to get balance", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"lamports": balance})
}

// MarketplaceView pairs the indexer's marketplace document with the on-chain
// auction house state it points at.
type MarketplaceView struct {
	Subdomain            string `json:"subdomain"`
	Name                 string `json:"name"`
	AuctionHouse         string `json:"auctionHouse"`
	Authority            string `json:"authority"`
	TreasuryMint         string `json:"treasuryMint"`
	SellerFeeBasisPoints uint16 `json:"sellerFeeBasisPoints"`

	OnChainSellerFee uint16 `json:"onChainSellerFee"`
	RequiresSignOff  bool   `json:"requiresSignOff"`
	MatchesIndexer   bool   `json:"matchesIndexer"`
}

func handleGetMarketplace(w http.ResponseWriter, r *http.Request) {
	subdomain := r.URL.Query().Get("subdomain")
	if subdomain == "" {
		subdomain = cmd.GetSubdomain()
	}
	if subdomain == "" {
		http.Error(w, "Missing 'subdomain' query parameter", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	marketplace, err := apiGraph.Marketplace(ctx, subdomain)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load marketplace: %v", err), http.StatusBadGateway)
		return
	}
	onChain, err := apiChain.FetchAuctionHouse(ctx, marketplace.AuctionHouse)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read auction house account: %v", err), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, MarketplaceView{
		Subdomain:            marketplace.Subdomain,
		Name:                 marketplace.Name,
		AuctionHouse:         marketplace.AuctionHouse.String(),
		Authority:            marketplace.Authority.String(),
		TreasuryMint:         marketplace.TreasuryMint.String(),
		SellerFeeBasisPoints: marketplace.SellerFeeBasisPoints,
		OnChainSellerFee:     onChain.SellerFeeBasisPoints,
		RequiresSignOff:      onChain.RequiresSignOff,
		MatchesIndexer: onChain.SellerFeeBasisPoints == marketplace.SellerFeeBasisPoints &&
			onChain.Authority.Equals(marketplace.Authority) &&
			onChain.TreasuryMint.Equals(marketplace.TreasuryMint),
	})
}

// NftView is the JSON shape of one NFT snapshot.
type NftView struct {
	Address              string         `json:"address"`
	Mint                 string         `json:"mint"`
	Name                 string         `json:"name"`
	Owner                string         `json:"owner"`
	SellerFeeBasisPoints uint16         `json:"sellerFeeBasisPoints"`
	Listings             []ListingView  `json:"listings"`
	Offers               []OfferView    `json:"offers"`
	Activities           []ActivityView `json:"activities"`
}

type ListingView struct {
	AuctionHouse string  `json:"auctionHouse"`
	Seller       string  `json:"seller"`
	PriceSol     float64 `json:"priceSol"`
	Lamports     uint64  `json:"lamports"`
}

type OfferView struct {
	AuctionHouse string  `json:"auctionHouse"`
	Buyer        string  `json:"buyer"`
	PriceSol     float64 `json:"priceSol"`
	Lamports     uint64  `json:"lamports"`
}

type ActivityView struct {
	Kind      string  `json:"kind"`
	PriceSol  float64 `json:"priceSol"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

func handleGetNft(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "Missing 'address' query parameter", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	snapshot, err := apiGraph.NftSnapshot(ctx, address)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load NFT: %v", err), http.StatusBadGateway)
		return
	}

	view := NftView{
		Address:              snapshot.Nft.Address.String(),
		Mint:                 snapshot.Nft.MintAddress.String(),
		Name:                 snapshot.Nft.Name,
		Owner:                snapshot.Nft.Owner.String(),
		SellerFeeBasisPoints: snapshot.Nft.SellerFeeBasisPoints,
		Listings:             []ListingView{},
		Offers:               []OfferView{},
		Activities:           []ActivityView{},
	}
	for _, listing := range snapshot.Listings {
		view.Listings = append(view.Listings, ListingView{
			AuctionHouse: listing.AuctionHouse.String(),
			Seller:       listing.Seller.String(),
			PriceSol:     lamportsToSol(listing.Price),
			Lamports:     listing.Price,
		})
	}
	for _, offer := range snapshot.Offers {
		view.Offers = append(view.Offers, OfferView{
			AuctionHouse: offer.AuctionHouse.String(),
			Buyer:        offer.Buyer.String(),
			PriceSol:     lamportsToSol(offer.Price),
			Lamports:     offer.Price,
		})
	}
	for _, activity := range snapshot.Activities {
		entry := ActivityView{Kind: activity.Kind, PriceSol: lamportsToSol(activity.Price)}
		if !activity.CreatedAt.IsZero() {
			entry.CreatedAt = activity.CreatedAt.UTC().Format(time.RFC3339)
		}
		view.Activities = append(view.Activities, entry)
	}
	writeJSON(w, http.StatusOK, view)
}

// TradeRequest is the shared body for the trading endpoints. PriceSol is
// required for list and offer, ignored elsewhere.
type TradeRequest struct {
	Profile   string  `json:"profile"`
	Subdomain string  `json:"subdomain,omitempty"`
	Nft       string  `json:"nft"`
	PriceSol  float64 `json:"priceSol,omitempty"`
}

func handleBuy(w http.ResponseWriter, r *http.Request) {
	handleTrade(w, r, auction_house.IntentBuy)
}

func handleList(w http.ResponseWriter, r *http.Request) {
	handleTrade(w, r, auction_house.IntentList)
}

func handleOffer(w http.ResponseWriter, r *http.Request) {
	handleTrade(w, r, auction_house.IntentMakeOffer)
}

func handleCancelListing(w http.ResponseWriter, r *http.Request) {
	handleTrade(w, r, auction_house.IntentCancelListing)
}

func handleCancelOffer(w http.ResponseWriter, r *http.Request) {
	handleTrade(w, r, auction_house.IntentCancelOffer)
}

// handleTrade runs one storefront action for a stored profile: resolve the
// marketplace and NFT, assemble the instruction sequence, and drive it
// through the pipeline with the profile key signing non-interactively.
func handleTrade(w http.ResponseWriter, r *http.Request, kind auction_house.IntentKind) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST method is allowed", http.StatusMethodNotAllowed)
		return
	}
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Nft == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	// Buys and cancels settle at the standing order's price; only list and
	// offer carry one, and a non-positive amount has no lamport value.
	if (kind == auction_house.IntentList || kind == auction_house.IntentMakeOffer) && req.PriceSol <= 0 {
		http.Error(w, "A positive 'priceSol' is required for this action", http.StatusBadRequest)
		return
	}
	signer, ok := loadSigner(w, req.Profile)
	if !ok {
		return
	}

	subdomain := req.Subdomain
	if subdomain == "" {
		subdomain = cmd.GetSubdomain()
	}
	if subdomain == "" {
		http.Error(w, "Missing marketplace subdomain", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()
	marketplace, err := apiGraph.Marketplace(ctx, subdomain)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load marketplace: %v", err), http.StatusBadGateway)
		return
	}
	snapshot, err := apiGraph.NftSnapshot(ctx, req.Nft)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load NFT: %v", err), http.StatusBadGateway)
		return
	}

	intent := auction_house.Intent{
		Kind:        kind,
		Marketplace: marketplace,
		Nft:         snapshot.Nft,
		Viewer:      signer.PublicKey(),
	}
	switch kind {
	case auction_house.IntentBuy, auction_house.IntentCancelListing:
		intent.Listing = snapshot.ListingForAuctionHouse(marketplace.AuctionHouse)
	case auction_house.IntentCancelOffer:
		intent.Offer = snapshot.OfferByBuyer(signer.PublicKey())
	case auction_house.IntentList, auction_house.IntentMakeOffer:
		intent.Price = uint64(req.PriceSol * float64(solana.LAMPORTS_PER_SOL))
	}

	instructions, err := auction_house.Build(intent)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to assemble transaction: %v", err), http.StatusInternalServerError)
		return
	}
	if len(instructions) == 0 {
		http.Error(w, fmt.Sprintf("Action %q is not available for this NFT in its current state", kind), http.StatusConflict)
		return
	}

	refetch := pipeline.RefetchFunc(func(ctx context.Context) error {
		_, err := apiGraph.RefetchNftSnapshot(ctx, req.Nft)
		return err
	})
	result := pipeline.New(signer, apiNetwork, refetch, logNotifier{}).Execute(ctx, instructions)
	if result.Status != pipeline.StatusConfirmed {
		message := result.Status.String()
		if result.Err != nil {
			message = result.Err.Error()
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"status": result.Status.String(),
			"error":  message,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":               result.Status.String(),
		"transactionSignature": result.Signature.String(),
	})
}

// HistoryView groups a wallet's receipt history by receipt type.
type HistoryView struct {
	Purchases []PurchaseReceiptView `json:"purchases"`
	Listings  []ListingReceiptView  `json:"listings"`
	Bids      []BidReceiptView      `json:"bids"`
}

type PurchaseReceiptView struct {
	Buyer     string  `json:"buyer"`
	Seller    string  `json:"seller"`
	Metadata  string  `json:"metadata"`
	PriceSol  float64 `json:"priceSol"`
	CreatedAt int64   `json:"createdAt"`
}

type ListingReceiptView struct {
	Seller    string  `json:"seller"`
	Metadata  string  `json:"metadata"`
	PriceSol  float64 `json:"priceSol"`
	State     string  `json:"state"`
	CreatedAt int64   `json:"createdAt"`
}

type BidReceiptView struct {
	Buyer     string  `json:"buyer"`
	Metadata  string  `json:"metadata"`
	PriceSol  float64 `json:"priceSol"`
	State     string  `json:"state"`
	CreatedAt int64   `json:"createdAt"`
}

func handleGetHistory(w http.ResponseWriter, r *http.Request) {
	signer, ok := loadSigner(w, r.URL.Query().Get("profile"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 90*time.Second)
	defer cancel()
	me := signer.PublicKey()

	purchases, err := apiChain.FetchPurchaseReceipts(ctx, me)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get purchase history: %v", err), http.StatusBadGateway)
		return
	}
	listings, err := apiChain.FetchListingReceipts(ctx, me)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get listing history: %v", err), http.StatusBadGateway)
		return
	}
	bids, err := apiChain.FetchBidReceipts(ctx, me)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get bid history: %v", err), http.StatusBadGateway)
		return
	}

	view := HistoryView{
		Purchases: []PurchaseReceiptView{},
		Listings:  []ListingReceiptView{},
		Bids:      []BidReceiptView{},
	}
	for _, receipt := range purchases {
		view.Purchases = append(view.Purchases, PurchaseReceiptView{
			Buyer:     receipt.Buyer.String(),
			Seller:    receipt.Seller.String(),
			Metadata:  receipt.Metadata.String(),
			PriceSol:  lamportsToSol(receipt.Price),
			CreatedAt: receipt.CreatedAt,
		})
	}
	for _, receipt := range listings {
		view.Listings = append(view.Listings, ListingReceiptView{
			Seller:    receipt.Seller.String(),
			Metadata:  receipt.Metadata.String(),
			PriceSol:  lamportsToSol(receipt.Price),
			State:     listingReceiptState(receipt),
			CreatedAt: receipt.CreatedAt,
		})
	}
	for _, receipt := range bids {
		view.Bids = append(view.Bids, BidReceiptView{
			Buyer:     receipt.Buyer.String(),
			Metadata:  receipt.Metadata.String(),
			PriceSol:  lamportsToSol(receipt.Price),
			State:     bidReceiptState(receipt),
			CreatedAt: receipt.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

// --- API Server ---

func startApiServer() {
	apiGraph = graph.NewClient(cmd.GetGraphEndpoint())
	apiChain = auction_house.NewClient(cmd.GetRpcEndpoint())
	apiNetwork = pipeline.NewRPCNetwork(cmd.GetRpcEndpoint(),
		pipeline.WithConfirmationTimeout(cmd.GetConfirmationTimeout()))

	http.HandleFunc("/api/profiles", handleGetProfiles)
	http.HandleFunc("/api/addresses", handleGetAddresses)
	http.HandleFunc("/api/create-profile", handleCreateProfile)
	http.HandleFunc("/api/balance", handleGetBalance)
	http.HandleFunc("/api/marketplace", handleGetMarketplace)
	http.HandleFunc("/api/nft", handleGetNft)
	http.HandleFunc("/api/buy", handleBuy)
	http.HandleFunc("/api/list", handleList)
	http.HandleFunc("/api/offer", handleOffer)
	http.HandleFunc("/api/cancel-listing", handleCancelListing)
	http.HandleFunc("/api/cancel-offer", handleCancelOffer)
	http.HandleFunc("/api/history", handleGetHistory)

	port := os.Getenv("STOREFRONT_API_PORT")
	if port == "" {
		port = "8088"
	}
	fmt.Printf("🚀 Storefront API listening on http://localhost:%s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

// --- Helpers ---

// logNotifier routes pipeline outcomes to the server log. API callers read
// the outcome from the response body instead.
type logNotifier struct{}

func (logNotifier) Success(message string) { log.Printf("pipeline: %s", message) }
func (logNotifier) Failure(message string) { log.Printf("pipeline: %s", message) }

// loadSigner opens wallet storage and loads the named profile key, writing
// the HTTP error itself when either step fails.
func loadSigner(w http.ResponseWriter, profileName string) (*wallet.Keypair, bool) {
	if profileName == "" {
		http.Error(w, "Missing 'profile' parameter", http.StatusBadRequest)
		return nil, false
	}
	db, err := storage.NewWalletStorage()
	if err != nil {
		http.Error(w, "failed to open wallet storage", http.StatusInternalServerError)
		return nil, false
	}
	privateKey, err := db.GetWallet(profileName)
	if err != nil {
		http.Error(w, fmt.Sprintf("Profile '%s' not found", profileName), http.StatusBadRequest)
		return nil, false
	}
	return wallet.NewKeypair(privateKey), true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func lamportsToSol(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL)
}

func listingReceiptState(receipt *auction_house.ListingReceipt) string {
	switch {
	case receipt.PurchaseReceipt != nil:
		return "sold"
	case receipt.CanceledAt != nil:
		return "canceled"
	default:
		return "open"
	}
}

func bidReceiptState(receipt *auction_house.BidReceipt) string {
	switch {
	case receipt.PurchaseReceipt != nil:
		return "filled"
	case receipt.CanceledAt != nil:
		return "canceled"
	default:
		return "open"
	}
}
