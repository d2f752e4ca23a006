package constants

// Deployment stages
const (
	StageLocal = "local"
	StageDev   = "dev"
	StageProd  = "prod"
)

// IsValidStage reports whether stage names a known deployment stage.
func IsValidStage(stage string) bool {
	switch stage {
	case StageLocal, StageDev, StageProd:
		return true
	}
	return false
}

// Client-local storage keys. Clearing a key resets the owning subsystem to
// its initial state.
const (
	// SignerStorageKey holds the hex-encoded session private key.
	SignerStorageKey = "session_private_key"

	// SessionStorageKey holds the serialized session record. The version
	// suffix is bumped whenever the record layout or the signer binding
	// changes, forcing stale grants to be re-requested.
	SessionStorageKey = "smartSession_v5"
)

// Chain defaults (Sepolia deployment).
const (
	DefaultChainID = 11155111

	// DefaultContractAddress is the deployed ProofHTF contract.
	DefaultContractAddress = "0x179BF34155cD129FeB3b2440f50418C4836e65D6"

	// DefaultEntryPointAddress is the ERC-4337 EntryPoint v0.6, deployed at
	// the same address on all major EVM chains.
	DefaultEntryPointAddress = "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"
)

// Session scope defaults: 0.1 ETH per 24h period, sessions valid for 24h.
const (
	DefaultSessionPeriodAmountWei = "100000000000000000"
	DefaultSessionPeriodSeconds   = 86400
	DefaultSessionTTLSeconds      = 86400
)
