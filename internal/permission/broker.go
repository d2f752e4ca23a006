// Package permission runs the ERC-7715 grant flow: derive the session smart
// account, ask the wallet to authorize the local signer, and persist the
// resulting session. It is the only writer of the session store.
package permission

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	pkgerrors "github.com/pkg/errors"
	"github.com/proofhtf/proofhtf-api/internal/account"
	"github.com/proofhtf/proofhtf-api/internal/keystore"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/proofhtf/proofhtf-api/internal/session"
	"github.com/proofhtf/proofhtf-api/internal/wallet"
	"go.uber.org/zap"
)

// Scope is the spending bound requested from the wallet.
type Scope struct {
	ChainID        uint64
	PeriodAmount   *big.Int
	PeriodDuration uint64
	TTL            time.Duration
}

// Broker coordinates signer, account derivation, wallet, and session storage.
type Broker struct {
	signers  *keystore.Store
	accounts *account.Factory
	provider wallet.Provider
	sessions *session.Store
	scope    Scope

	now    func() time.Time
	logger *zap.Logger
}

// NewBroker wires the grant flow dependencies.
func NewBroker(signers *keystore.Store, accounts *account.Factory, provider wallet.Provider, sessions *session.Store, scope Scope) *Broker {
	return &Broker{
		signers:  signers,
		accounts: accounts,
		provider: provider,
		sessions: sessions,
		scope:    scope,
		now:      time.Now,
		logger:   logger.Log,
	}
}

// RequestSession performs the full grant flow for the connected owner. It
// blocks on the wallet prompt; a rejection surfaces as wallet.ErrUserRejected
// and is never retried here.
//
// The permission is always bound to the local signer's address. The session
// smart account address is derived for funding and bookkeeping, but it is the
// signer the wallet must authorize; binding the account address instead
// produces grants that can never be redeemed.
func (b *Broker) RequestSession(ctx context.Context, owner common.Address) (*session.Session, error) {
	signer, err := b.signers.GetOrCreateLocalSigner()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load local signer")
	}

	handle, err := b.accounts.Derive(signer.Address())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to derive session account")
	}

	expiry := b.now().Add(b.scope.TTL).Unix()

	b.logger.Info("Requesting session permission",
		zap.String("owner", owner.Hex()),
		zap.String("signer", signer.Address().Hex()),
		zap.String("session_account", handle.Address.Hex()),
		zap.Int64("expiry", expiry))

	granted, err := b.provider.RequestExecutionPermissions(ctx, []wallet.PermissionRequest{{
		ChainID: b.scope.ChainID,
		Expiry:  expiry,
		Signer: wallet.AccountSigner{
			Type: "account",
			Data: wallet.AccountSignerData{Address: signer.Address()},
		},
		Permission: wallet.Permission{
			Type: "native-token-periodic",
			Data: wallet.PermissionData{
				PeriodAmount:   (*hexutil.Big)(b.scope.PeriodAmount),
				PeriodDuration: b.scope.PeriodDuration,
			},
		},
		IsAdjustmentAllowed: true,
	}})
	if err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, "permission grant failed")
	}

	grant := granted[0]
	if len(grant.Context) == 0 {
		return nil, errors.New("wallet returned a grant without a permission context")
	}
	if grant.SignerMeta.DelegationManager == (common.Address{}) {
		return nil, errors.New("wallet returned a grant without a delegation manager")
	}

	grantExpiry := grant.Expiry
	if grantExpiry == 0 {
		grantExpiry = expiry
	}

	sess := &session.Session{
		Grant: session.Grant{
			Context:           grant.Context,
			DelegationManager: grant.SignerMeta.DelegationManager,
			SignerAddress:     signer.Address(),
			PeriodAmount:      new(big.Int).Set(b.scope.PeriodAmount),
			PeriodDuration:    b.scope.PeriodDuration,
			Expiry:            grantExpiry,
		},
		OwnerAddress:          owner,
		SessionAccountAddress: handle.Address,
		Expiry:                grantExpiry,
	}

	if err := b.sessions.Save(sess); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to persist session")
	}

	b.logger.Info("Session established",
		zap.String("session_account", handle.Address.Hex()),
		zap.String("delegation_manager", grant.SignerMeta.DelegationManager.Hex()))
	return sess, nil
}

// Revoke clears the stored session. The on-chain grant simply ages out.
func (b *Broker) Revoke() error {
	return b.sessions.Clear()
}
