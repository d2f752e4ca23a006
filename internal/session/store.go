package session

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/proofhtf/proofhtf-api/internal/constants"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/proofhtf/proofhtf-api/internal/storage"
	"go.uber.org/zap"
)

// Grant is a time-boxed, amount-bounded spending authorization returned by
// the wallet. Context is opaque; it is replayed verbatim on delegated calls.
type Grant struct {
	Context           hexutil.Bytes
	DelegationManager common.Address

	// SignerAddress is the delegate the grant authorizes. It must equal the
	// local signer's derived address; a grant bound to any other principal
	// cannot be exercised and only fails later with a delegation mismatch
	// revert.
	SignerAddress common.Address

	PeriodAmount   *big.Int
	PeriodDuration uint64
	Expiry         int64
}

// Session is the persisted tuple binding a grant to the owner wallet and the
// session smart account address. Usable only while now < Expiry and only
// together with the local signer that requested it.
type Session struct {
	Grant                 Grant
	OwnerAddress          common.Address
	SessionAccountAddress common.Address
	Expiry                int64
}

// record is the stored JSON layout. Big-integer fields are stringified so
// the record survives JSON number precision limits.
type record struct {
	Context           hexutil.Bytes  `json:"context"`
	DelegationManager common.Address `json:"delegationManager"`
	SignerAddress     common.Address `json:"signerAddress"`
	PeriodAmount      string         `json:"periodAmount"`
	PeriodDuration    uint64         `json:"periodDuration"`
	GrantExpiry       int64          `json:"grantExpiry"`

	OwnerAddress          common.Address `json:"ownerAddress"`
	SessionAccountAddress common.Address `json:"sessionAccountAddress"`
	Expiry                int64          `json:"expiry"`
}

// Store persists the session record. The permission broker is the only
// writer; everything else reads or clears.
type Store struct {
	storage storage.Store
	now     func() time.Time
	logger  *zap.Logger
}

// NewStore creates a session store on top of the given persistent storage.
func NewStore(st storage.Store) *Store {
	return &Store{
		storage: st,
		now:     time.Now,
		logger:  logger.Log,
	}
}

// Save persists the session, replacing any previous record.
func (s *Store) Save(sess *Session) error {
	rec := record{
		Context:               sess.Grant.Context,
		DelegationManager:     sess.Grant.DelegationManager,
		SignerAddress:         sess.Grant.SignerAddress,
		PeriodAmount:          sess.Grant.PeriodAmount.String(),
		PeriodDuration:        sess.Grant.PeriodDuration,
		GrantExpiry:           sess.Grant.Expiry,
		OwnerAddress:          sess.OwnerAddress,
		SessionAccountAddress: sess.SessionAccountAddress,
		Expiry:                sess.Expiry,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := s.storage.Set(constants.SessionStorageKey, data); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	s.logger.Info("Session saved",
		zap.String("owner", sess.OwnerAddress.Hex()),
		zap.String("session_account", sess.SessionAccountAddress.Hex()),
		zap.Int64("expiry", sess.Expiry))
	return nil
}

// Load returns the stored session, or nil when none exists. An expired
// record is cleared and treated as "no session". The boundary is exclusive:
// a grant whose expiry second has arrived can no longer be redeemed, so the
// record is stale the moment now reaches Expiry.
func (s *Store) Load() (*Session, error) {
	data, ok, err := s.storage.Get(constants.SessionStorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt record is as unusable as a missing one; drop it.
		s.logger.Warn("Discarding unreadable session record", zap.Error(err))
		_ = s.storage.Delete(constants.SessionStorageKey)
		return nil, nil
	}

	if s.now().Unix() >= rec.Expiry {
		s.logger.Info("Session expired, clearing stale record",
			zap.Int64("expiry", rec.Expiry))
		if err := s.storage.Delete(constants.SessionStorageKey); err != nil {
			return nil, fmt.Errorf("failed to clear stale session: %w", err)
		}
		return nil, nil
	}

	amount, ok := new(big.Int).SetString(rec.PeriodAmount, 10)
	if !ok {
		s.logger.Warn("Discarding session with malformed period amount",
			zap.String("period_amount", rec.PeriodAmount))
		_ = s.storage.Delete(constants.SessionStorageKey)
		return nil, nil
	}

	return &Session{
		Grant: Grant{
			Context:           rec.Context,
			DelegationManager: rec.DelegationManager,
			SignerAddress:     rec.SignerAddress,
			PeriodAmount:      amount,
			PeriodDuration:    rec.PeriodDuration,
			Expiry:            rec.GrantExpiry,
		},
		OwnerAddress:          rec.OwnerAddress,
		SessionAccountAddress: rec.SessionAccountAddress,
		Expiry:                rec.Expiry,
	}, nil
}

// Clear removes the session record.
func (s *Store) Clear() error {
	if err := s.storage.Delete(constants.SessionStorageKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.logger.Info("Session cleared")
	return nil
}
