package cmd

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"storefront-cli/pipeline"
)

var (
	rpcEndpoint         = "https://api.mainnet-beta.solana.com"
	graphEndpoint       = "https://graph.holaplex.com/v1"
	subdomain           = ""
	confirmationTimeout = pipeline.DefaultConfirmationTimeout
	configInitialized   = false
)

// loadConfig loads environment variables once and resolves every endpoint
// the CLI talks to.
func loadConfig() {
	if configInitialized {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, using defaults and ambient environment.")
	}

	if endpoint := os.Getenv("STOREFRONT_RPC_ENDPOINT"); endpoint != "" {
		rpcEndpoint = endpoint
	} else if heliusApiKey := os.Getenv("HELIUS_API_KEY"); heliusApiKey != "" {
		rpcEndpoint = fmt.Sprintf("https://mainnet.helius-rpc.com/?api-key=%s", heliusApiKey)
		log.Println("Info: Using Helius RPC endpoint.")
	}

	if endpoint := os.Getenv("STOREFRONT_GRAPH_ENDPOINT"); endpoint != "" {
		graphEndpoint = endpoint
	}

	subdomain = os.Getenv("STOREFRONT_SUBDOMAIN")

	if raw := os.Getenv("STOREFRONT_CONFIRM_TIMEOUT_SECONDS"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			confirmationTimeout = time.Duration(seconds) * time.Second
		} else {
			log.Printf("Warning: ignoring invalid STOREFRONT_CONFIRM_TIMEOUT_SECONDS %q", raw)
		}
	}

	configInitialized = true
}

// GetRpcEndpoint returns the Solana RPC endpoint, preferring a Helius key
// when one is configured.
func GetRpcEndpoint() string {
	loadConfig()
	return rpcEndpoint
}

// GetGraphEndpoint returns the marketplace indexer endpoint.
func GetGraphEndpoint() string {
	loadConfig()
	return graphEndpoint
}

// GetSubdomain returns the configured marketplace subdomain. Empty means the
// viewer is prompted for one.
func GetSubdomain() string {
	loadConfig()
	return subdomain
}

// GetConfirmationTimeout returns how long to wait for a submitted
// transaction before giving up on confirmation.
func GetConfirmationTimeout() time.Duration {
	loadConfig()
	return confirmationTimeout
}
