// Package wallet is the boundary to the user's primary wallet. The provider
// exposes exactly the three capabilities the session layer needs: address
// discovery (used as a readiness probe), the ERC-7715 permission request, and
// hash signing for user operations sent from the primary smart account.
package wallet

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	pkgerrors "github.com/pkg/errors"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"go.uber.org/zap"
)

// ErrUserRejected indicates the user dismissed or declined the wallet prompt.
// Permission requests are never retried automatically after a rejection.
var ErrUserRejected = errors.New("user rejected wallet request")

// userRejectedCode is the EIP-1193 "user rejected request" error code.
const userRejectedCode = 4001

// AccountSigner names the delegate a permission is granted to. The address
// must be the local session signer's address, never a smart account address.
type AccountSigner struct {
	Type string            `json:"type"`
	Data AccountSignerData `json:"data"`
}

type AccountSignerData struct {
	Address common.Address `json:"address"`
}

// Permission is the requested spending bound.
type Permission struct {
	Type string         `json:"type"`
	Data PermissionData `json:"data"`
}

type PermissionData struct {
	PeriodAmount   *hexutil.Big `json:"periodAmount"`
	PeriodDuration uint64       `json:"periodDuration"`
}

// PermissionRequest is one entry of a wallet_requestExecutionPermissions
// call.
type PermissionRequest struct {
	ChainID             uint64        `json:"chainId"`
	Expiry              int64         `json:"expiry"`
	Signer              AccountSigner `json:"signer"`
	Permission          Permission    `json:"permission"`
	IsAdjustmentAllowed bool          `json:"isAdjustmentAllowed"`
}

// SignerMeta carries the contract coordinating delegated execution.
type SignerMeta struct {
	DelegationManager common.Address `json:"delegationManager"`
}

// GrantedPermission is one entry of the wallet's response. Context is an
// opaque delegation payload; it is stored verbatim and replayed on every
// delegated call.
type GrantedPermission struct {
	Context    hexutil.Bytes `json:"context"`
	SignerMeta SignerMeta    `json:"signerMeta"`
	Expiry     int64         `json:"expiry"`
}

// Provider is the wallet boundary consumed by the permission broker and the
// operation submitter.
type Provider interface {
	// RequestAddresses discovers the connected wallet's accounts. Also used
	// as a readiness probe before standard-path submissions.
	RequestAddresses(ctx context.Context) ([]common.Address, error)

	// RequestExecutionPermissions performs the ERC-7715 round trip. It
	// suspends until the user approves or rejects the wallet prompt;
	// rejection surfaces as ErrUserRejected.
	RequestExecutionPermissions(ctx context.Context, reqs []PermissionRequest) ([]GrantedPermission, error)

	// SignUserOperationHash asks the wallet to sign a user operation digest
	// for one of its accounts. The wallet must sign the raw 32-byte digest;
	// a provider that applies an EIP-191 personal-message prefix produces a
	// signature the entry point will reject during validation.
	SignUserOperationHash(ctx context.Context, account common.Address, hash common.Hash) ([]byte, error)
}

// RPCProvider talks to a wallet over JSON-RPC.
type RPCProvider struct {
	client *rpc.Client
	logger *zap.Logger
}

// NewRPCProvider connects to the wallet RPC endpoint.
func NewRPCProvider(url string) (*RPCProvider, error) {
	client, err := rpc.Dial(url)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to wallet RPC")
	}
	return &RPCProvider{
		client: client,
		logger: logger.Log,
	}, nil
}

func (p *RPCProvider) RequestAddresses(ctx context.Context) ([]common.Address, error) {
	var addresses []common.Address
	if err := p.client.CallContext(ctx, &addresses, "eth_requestAccounts"); err != nil {
		return nil, wrapWalletError(err, "failed to request wallet addresses")
	}
	return addresses, nil
}

func (p *RPCProvider) RequestExecutionPermissions(ctx context.Context, reqs []PermissionRequest) ([]GrantedPermission, error) {
	p.logger.Info("Requesting execution permissions",
		zap.Int("request_count", len(reqs)))

	var granted []GrantedPermission
	if err := p.client.CallContext(ctx, &granted, "wallet_requestExecutionPermissions", reqs); err != nil {
		return nil, wrapWalletError(err, "permission request failed")
	}
	if len(granted) == 0 {
		return nil, errors.New("wallet returned no granted permissions")
	}
	return granted, nil
}

func (p *RPCProvider) SignUserOperationHash(ctx context.Context, account common.Address, hash common.Hash) ([]byte, error) {
	var sig hexutil.Bytes
	if err := p.client.CallContext(ctx, &sig, "eth_sign", account, hash); err != nil {
		return nil, wrapWalletError(err, "wallet signing failed")
	}
	return sig, nil
}

// Close releases the underlying RPC connection.
func (p *RPCProvider) Close() {
	p.client.Close()
}

// wrapWalletError maps EIP-1193 user rejections onto ErrUserRejected and
// wraps everything else with context.
func wrapWalletError(err error, msg string) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return ErrUserRejected
	}
	if strings.Contains(strings.ToLower(err.Error()), "user rejected") {
		return ErrUserRejected
	}
	return pkgerrors.Wrap(err, msg)
}
