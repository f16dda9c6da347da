package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"storefront-cli/auction_house"
	"storefront-cli/graph"
	"storefront-cli/pipeline"
	"storefront-cli/storage"
	"storefront-cli/wallet"
)

var rootCmd = &cobra.Command{
	Use:   "storefront-cli",
	Short: "Storefront CLI lets you trade NFTs on an auction house marketplace.",
	Long:  `An interactive command-line storefront: browse listings, offers and trading activity for any marketplace, and buy, sell or bid against its auction house with a local wallet profile.`,
	Run:   run,
}

// run is the main entry point for the interactive CLI.
func run(cmd *cobra.Command, args []string) {
	myFigure := figure.NewFigure("STOREFRONT", "larry3d", true)
	fmt.Println(titleStyle.Render(myFigure.String()))
	fmt.Println(promptStyle.Render("A terminal storefront for on-chain marketplaces."))

	// The main application loop is wrapped in profile selection.
	for {
		signer, profileName, err := runProfileSelection()
		if err != nil {
			// This error is returned when the user chooses to exit.
			fmt.Println("Exiting Storefront CLI.")
			os.Exit(0)
		}
		runInteractive(signer, profileName)
	}
}

// runProfileSelection handles the UI for choosing or creating a wallet profile.
func runProfileSelection() (solana.PrivateKey, string, error) {
	db, err := storage.NewWalletStorage()
	if err != nil {
		panic(fmt.Sprintf("failed to open wallet storage: %v", err))
	}

	for {
		profiles, err := db.GetAllWalletNames()
		if err != nil {
			panic(fmt.Sprintf("failed to get wallet profiles: %v", err))
		}

		// First run: create a profile before showing the selection menu.
		if len(profiles) == 0 {
			fmt.Println(titleStyle.Render("🚀 Welcome! Let's create your first wallet profile."))
			handleCreateProfile(db)
			continue
		}

		options := append(profiles, "Create New Profile", "Exit")

		selection := ""
		prompt := &survey.Select{
			Message: promptStyle.Render("Choose a profile to continue:"),
			Options: options,
		}
		survey.AskOne(prompt, &selection)

		switch selection {
		case "Create New Profile":
			handleCreateProfile(db)
			// Loop again to show the new profile in the list.
			continue
		case "Exit":
			return nil, "", fmt.Errorf("user exited")
		default: // A profile was selected
			signer, err := db.GetWallet(selection)
			if err != nil {
				panic(fmt.Sprintf("failed to get wallet for profile '%s': %v", selection, err))
			}
			return signer, selection, nil
		}
	}
}

// handleCreateProfile prompts for a profile name and stores a fresh keypair
// under it.
func handleCreateProfile(db *storage.WalletStorage) {
	name := ""
	namePrompt := &survey.Input{Message: "Profile name:", Default: "trader"}
	survey.AskOne(namePrompt, &name, survey.WithValidator(survey.Required))
	name = strings.TrimSpace(name)

	fmt.Println(promptStyle.Render("\nCreating new wallet..."))
	keypair := wallet.Generate()
	if err := db.SaveWallet(name, keypair.PrivateKey()); err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("❌ Failed to save new wallet: %v", err)))
		return
	}
	fmt.Println(titleStyle.Render("\n✅ Profile Created!"))
	fmt.Println(promptStyle.Render("   Your wallet address:"), keypair.PublicKey().String())
	fmt.Println(promptStyle.Render("   Fund this address before trading."))
	fmt.Println(promptStyle.Render("\nPress Enter to continue..."))
	fmt.Scanln()
}

// session bundles everything a signed-in profile needs to browse and trade.
type session struct {
	profileName string
	wallet      *wallet.Interactive
	graphClient *graph.Client
	chainClient *auction_house.Client
	network     *pipeline.RPCNetwork
	marketplace *auction_house.Marketplace
}

func runInteractive(signer solana.PrivateKey, profileName string) {
	sess := &session{
		profileName: profileName,
		wallet:      wallet.NewInteractive(wallet.NewKeypair(signer)),
		graphClient: graph.NewClient(GetGraphEndpoint()),
		chainClient: auction_house.NewClient(GetRpcEndpoint()),
		network: pipeline.NewRPCNetwork(GetRpcEndpoint(),
			pipeline.WithConfirmationTimeout(GetConfirmationTimeout())),
	}

	marketplace, err := sess.loadMarketplace()
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Failed to load marketplace: %v", err)))
		return
	}
	sess.marketplace = marketplace

	fmt.Printf("\n---\n")
	fmt.Println(titleStyle.Render(fmt.Sprintf("🏪 %s", marketplace.Name)))
	fmt.Println(promptStyle.Render(fmt.Sprintf("Profile: %s", profileName)))
	fmt.Println(promptStyle.Render(fmt.Sprintf("Address: %s", signer.PublicKey())))
	fmt.Printf("---\n\n")

	menuOptions := []string{
		"Show NFT",
		"Buy Listed NFT",
		"List NFT for Sale",
		"Make Offer",
		"Accept Offer",
		"Cancel Listing",
		"Cancel Offer",
		"Marketplace Info",
		"Trading History",
		"Wallet Management",
		"Switch Profile",
	}

	for {
		menu := &survey.Select{
			Message:  promptStyle.Render("Choose an action:"),
			Options:  menuOptions,
			PageSize: len(menuOptions),
			Help:     "Use the arrow keys to navigate, and press Enter to select.",
		}

		var choice string
		if err := survey.AskOne(menu, &choice); err != nil {
			fmt.Println(warningStyle.Render(err.Error()))
			return
		}

		switch choice {
		// Browsing
		case "Show NFT":
			sess.handleShowNft()
		case "Marketplace Info":
			sess.handleMarketplaceInfo()
		case "Trading History":
			sess.handleTradingHistory()
		// Trading
		case "Buy Listed NFT":
			sess.handleBuy()
		case "List NFT for Sale":
			sess.handleList()
		case "Make Offer":
			sess.handleMakeOffer()
		case "Accept Offer":
			sess.handleAcceptOffer()
		case "Cancel Listing":
			sess.handleCancelListing()
		case "Cancel Offer":
			sess.handleCancelOffer()
		// Common actions
		case "Wallet Management":
			sess.handleWalletManagement()
		case "Switch Profile":
			return // Exit this interactive loop to go back to profile selection
		}
		fmt.Println()
	}
}

// loadMarketplace resolves the marketplace for the configured subdomain,
// prompting for one when the environment does not name it.
func (s *session) loadMarketplace() (*auction_house.Marketplace, error) {
	subdomain := GetSubdomain()
	if subdomain == "" {
		prompt := &survey.Input{Message: "Marketplace subdomain:"}
		if err := survey.AskOne(prompt, &subdomain, survey.WithValidator(survey.Required)); err != nil {
			return nil, err
		}
		subdomain = strings.TrimSpace(subdomain)
	}

	fmt.Println(promptStyle.Render("\nLoading marketplace... Please wait."))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.graphClient.Marketplace(ctx, subdomain)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
