package account

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"go.uber.org/zap"
)

// Implementation selects the account contract the factory deploys.
type Implementation string

// ImplementationHybrid is the hybrid EOA/passkey account implementation used
// for both the primary and the session smart account.
const ImplementationHybrid Implementation = "hybrid"

// ErrNotReady indicates the derivation inputs are incomplete (zero owner or
// unset factory). Callers poll readiness rather than treating this as fatal.
var ErrNotReady = errors.New("smart account inputs not ready")

// Handle is a derived smart account identity. It is not persisted; it is
// recomputed from (owner, implementation, salt) on demand, and the address is
// stable as long as those inputs are stable.
type Handle struct {
	Address  common.Address
	Owner    common.Address
	InitCode []byte
}

// Factory derives counterfactual smart account addresses. Results are cached
// by owner since derivation is a pure function of its inputs; the cache is
// invalidated only by constructing a new Factory with different parameters.
type Factory struct {
	factoryAddress common.Address
	implementation Implementation
	deploySalt     []byte

	mu     sync.Mutex
	cache  map[common.Address]*Handle
	logger *zap.Logger
}

// NewFactory creates a factory bound to an account-factory contract and a
// fixed deploy salt. The empty salt ("0x") keeps every owner's address stable
// forever.
func NewFactory(factoryAddress common.Address, impl Implementation, deploySalt []byte) *Factory {
	return &Factory{
		factoryAddress: factoryAddress,
		implementation: impl,
		deploySalt:     deploySalt,
		cache:          make(map[common.Address]*Handle),
		logger:         logger.Log,
	}
}

// Derive computes the smart account owned by the given address. Two distinct
// owners (connected wallet vs. local session signer) yield two distinct
// account identities; they must never be conflated.
func (f *Factory) Derive(owner common.Address) (*Handle, error) {
	if owner == (common.Address{}) || f.factoryAddress == (common.Address{}) {
		return nil, ErrNotReady
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.cache[owner]; ok {
		return h, nil
	}

	calldata := f.createAccountCalldata(owner)
	address := predictCreate2Address(f.factoryAddress, f.innerSalt(owner), crypto.Keccak256(calldata))

	initCode := make([]byte, 0, 20+len(calldata))
	initCode = append(initCode, f.factoryAddress.Bytes()...)
	initCode = append(initCode, calldata...)

	h := &Handle{
		Address:  address,
		Owner:    owner,
		InitCode: initCode,
	}
	f.cache[owner] = h

	f.logger.Debug("Derived smart account",
		zap.String("owner", owner.Hex()),
		zap.String("account", address.Hex()),
		zap.String("implementation", string(f.implementation)))
	return h, nil
}

// createAccountCalldata encodes createAccount(address owner, uint256 salt).
func (f *Factory) createAccountCalldata(owner common.Address) []byte {
	sel := crypto.Keccak256([]byte("createAccount(address,uint256)"))[:4]

	calldata := make([]byte, 0, 4+64)
	calldata = append(calldata, sel...)
	calldata = append(calldata, abiAddress(owner)...)
	calldata = append(calldata, abiUint256(f.saltInt())...)
	return calldata
}

// innerSalt follows the factory convention: the CREATE2 salt is
// keccak256(abi.encode(owner, deploySalt)).
func (f *Factory) innerSalt(owner common.Address) []byte {
	return crypto.Keccak256(abiAddress(owner), abiUint256(f.saltInt()))
}

func (f *Factory) saltInt() *big.Int {
	return new(big.Int).SetBytes(f.deploySalt)
}

// predictCreate2Address applies the CREATE2 formula:
// keccak256(0xff ++ deployer ++ salt ++ keccak256(initCode))[12:].
func predictCreate2Address(deployer common.Address, salt, initCodeHash []byte) common.Address {
	raw := make([]byte, 0, 1+20+32+32)
	raw = append(raw, 0xff)
	raw = append(raw, deployer.Bytes()...)
	raw = append(raw, salt...)
	raw = append(raw, initCodeHash...)
	return common.BytesToAddress(crypto.Keccak256(raw)[12:])
}

func abiAddress(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

func abiUint256(n *big.Int) []byte {
	buf := make([]byte, 32)
	n.FillBytes(buf)
	return buf
}

// String implements fmt.Stringer for log friendliness.
func (h *Handle) String() string {
	return fmt.Sprintf("smart-account %s (owner %s)", h.Address.Hex(), h.Owner.Hex())
}
