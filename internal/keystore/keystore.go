package keystore

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/proofhtf/proofhtf-api/internal/constants"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/proofhtf/proofhtf-api/internal/storage"
	"go.uber.org/zap"
)

// ErrStorageUnavailable indicates the persistent store could not be read or
// written. There is deliberately no fallback to an ephemeral key: a
// non-persisted signer would silently break session continuity on reload.
var ErrStorageUnavailable = errors.New("signer storage unavailable")

// LocalSigner is the locally held session key. The private key never leaves
// the process; only the derived address is shared with the wallet when
// requesting permissions.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// Address returns the signer's derived address.
func (s *LocalSigner) Address() common.Address {
	return s.address
}

// SignHash signs a 32-byte digest with the session key, returning a
// 65-byte [R || S || V] signature with V in {27, 28} as expected by
// on-chain ecrecover.
func (s *LocalSigner) SignHash(hash common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Store manages the lifecycle of the local session signer.
type Store struct {
	storage storage.Store
	logger  *zap.Logger
}

// NewStore creates a signer store on top of the given persistent storage.
func NewStore(st storage.Store) *Store {
	return &Store{
		storage: st,
		logger:  logger.Log,
	}
}

// GetOrCreateLocalSigner returns the persisted session signer, generating
// and persisting a fresh key on first use. Idempotent across restarts as
// long as the storage is not cleared.
func (s *Store) GetOrCreateLocalSigner() (*LocalSigner, error) {
	raw, ok, err := s.storage.Get(constants.SignerStorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if ok {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to decode stored session key: %w", err)
		}
		return newLocalSigner(key), nil
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}

	encoded := hexutil.Encode(crypto.FromECDSA(key))
	if err := s.storage.Set(constants.SignerStorageKey, []byte(encoded)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	signer := newLocalSigner(key)
	s.logger.Info("Generated new local session signer",
		zap.String("address", signer.address.Hex()))
	return signer, nil
}

// Clear removes the persisted key. The next GetOrCreateLocalSigner call
// generates a new identity; any session granted to the old key becomes
// unusable.
func (s *Store) Clear() error {
	if err := s.storage.Delete(constants.SignerStorageKey); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s.logger.Info("Cleared local session signer")
	return nil
}

func newLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}
