package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/proofhtf/proofhtf-api/internal/constants"
)

// Config carries every externally supplied setting. It is loaded once at
// process start and handed to the chain environment constructor; nothing
// reads the process environment after that.
type Config struct {
	Stage string
	Port  string

	// RPC endpoints
	NodeRPCURL   string
	WalletRPCURL string
	BundlerURL   string

	ChainID uint64

	// Deployed contract addresses
	ContractAddress       string
	EntryPointAddress     string
	AccountFactoryAddress string

	// Directory for client-local persistent state (signer key, session
	// record). One directory corresponds to one browser-profile equivalent.
	DataDir string

	// Session permission scope
	SessionPeriodAmountWei *big.Int
	SessionPeriodDuration  time.Duration
	SessionTTL             time.Duration

	// Gateway timing
	ReceiptPollInterval time.Duration
	ReceiptTimeout      time.Duration
}

// Load reads configuration from the environment, falling back to the Sepolia
// deployment defaults. A .env file is honored for local development.
func Load() (*Config, error) {
	// Ignore a missing .env; the stage decides whether env vars alone are
	// acceptable.
	_ = godotenv.Load()

	stage := os.Getenv("STAGE")
	if stage == "" {
		stage = constants.StageLocal
	}
	if !constants.IsValidStage(stage) {
		return nil, fmt.Errorf("invalid STAGE %q: must be one of %s, %s, %s",
			stage, constants.StageLocal, constants.StageDev, constants.StageProd)
	}

	nodeRPC := os.Getenv("NODE_RPC_URL")
	if nodeRPC == "" {
		return nil, fmt.Errorf("NODE_RPC_URL is required")
	}
	bundlerURL := os.Getenv("BUNDLER_URL")
	if bundlerURL == "" {
		return nil, fmt.Errorf("BUNDLER_URL is required")
	}
	// The factory has no canonical deployment to default to. A zero factory
	// address would make every account derivation fail as not-ready for the
	// life of the process, so a missing value must fail at startup instead.
	factoryAddress := os.Getenv("ACCOUNT_FACTORY_ADDRESS")
	if factoryAddress == "" {
		return nil, fmt.Errorf("ACCOUNT_FACTORY_ADDRESS is required")
	}
	walletRPC := os.Getenv("WALLET_RPC_URL")
	if walletRPC == "" {
		// The wallet provider is commonly reachable through the same
		// endpoint as the node in local setups.
		walletRPC = nodeRPC
	}

	chainID := uint64(constants.DefaultChainID)
	if v := os.Getenv("CHAIN_ID"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CHAIN_ID %q: %w", v, err)
		}
		chainID = parsed
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory for DATA_DIR: %w", err)
		}
		dataDir = home + "/.proofhtf"
	}

	periodAmount, ok := new(big.Int).SetString(
		getEnvWithDefault("SESSION_PERIOD_AMOUNT_WEI", constants.DefaultSessionPeriodAmountWei), 10)
	if !ok {
		return nil, fmt.Errorf("invalid SESSION_PERIOD_AMOUNT_WEI")
	}

	periodSeconds, err := getEnvSeconds("SESSION_PERIOD_SECONDS", constants.DefaultSessionPeriodSeconds)
	if err != nil {
		return nil, err
	}
	ttlSeconds, err := getEnvSeconds("SESSION_TTL_SECONDS", constants.DefaultSessionTTLSeconds)
	if err != nil {
		return nil, err
	}

	return &Config{
		Stage:                  stage,
		Port:                   getEnvWithDefault("PORT", "8080"),
		NodeRPCURL:             nodeRPC,
		WalletRPCURL:           walletRPC,
		BundlerURL:             bundlerURL,
		ChainID:                chainID,
		ContractAddress:        getEnvWithDefault("CONTRACT_ADDRESS", constants.DefaultContractAddress),
		EntryPointAddress:      getEnvWithDefault("ENTRYPOINT_ADDRESS", constants.DefaultEntryPointAddress),
		AccountFactoryAddress:  factoryAddress,
		DataDir:                dataDir,
		SessionPeriodAmountWei: periodAmount,
		SessionPeriodDuration:  periodSeconds,
		SessionTTL:             ttlSeconds,
		ReceiptPollInterval:    2 * time.Second,
		ReceiptTimeout:         3 * time.Minute,
	}, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int64) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(defaultSeconds) * time.Second, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return time.Duration(parsed) * time.Second, nil
}
