// Package submitter builds, signs, and submits user operations. Two paths
// exist: the standard path sends from the primary smart account with the
// wallet signing and a paymaster sponsoring gas, and the session path sends
// from the self-funded session account with the local signer signing under a
// delegated permission grant.
package submitter

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/proofhtf/proofhtf-api/internal/account"
	"github.com/proofhtf/proofhtf-api/internal/bundler"
	"github.com/proofhtf/proofhtf-api/internal/chainerrors"
	"github.com/proofhtf/proofhtf-api/internal/keystore"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/proofhtf/proofhtf-api/internal/permission"
	"github.com/proofhtf/proofhtf-api/internal/session"
	"github.com/proofhtf/proofhtf-api/internal/wallet"
	"go.uber.org/zap"
)

// ErrSessionEstablished is returned by SendUnderSession when no usable
// session existed and a new one was just granted. No operation was submitted;
// the caller retries the same call, which now runs under the fresh session.
var ErrSessionEstablished = errors.New("session established, retry the operation")

// gasHeadroomWei is the rough cost of one user operation. A session balance
// below value+headroom gets a warning but is still submitted; the entry point
// is the authority on prefund.
var gasHeadroomWei = big.NewInt(500_000_000_000_000)

// dummySignature pads the operation for gas estimation before the real
// signature exists. 65 bytes, the length of an ECDSA signature.
var dummySignature = hexutil.Bytes(make([]byte, 65))

// Result is the outcome of a confirmed submission.
type Result struct {
	UserOpHash common.Hash
	TxHash     common.Hash
	Success    bool
}

// InvalidateFunc receives the cache scopes a confirmed write affected.
type InvalidateFunc func(scopes ...string)

// Submitter owns user operation construction and submission. One operation
// at a time per account; callers must wait for a result before submitting the
// next from the same account, or risk nonce collisions.
type Submitter struct {
	provider wallet.Provider
	signers  *keystore.Store
	accounts *account.Factory
	sessions *session.Store
	broker   *permission.Broker
	bundler  *bundler.Client
	chainID  *big.Int

	onWrite InvalidateFunc
	logger  *zap.Logger
}

// NewSubmitter wires the submission dependencies. onWrite may be nil.
func NewSubmitter(provider wallet.Provider, signers *keystore.Store, accounts *account.Factory, sessions *session.Store, broker *permission.Broker, bc *bundler.Client, chainID *big.Int, onWrite InvalidateFunc) *Submitter {
	return &Submitter{
		provider: provider,
		signers:  signers,
		accounts: accounts,
		sessions: sessions,
		broker:   broker,
		bundler:  bc,
		chainID:  chainID,
		onWrite:  onWrite,
		logger:   logger.Log,
	}
}

// SendSingle submits one call on the standard path.
func (s *Submitter) SendSingle(ctx context.Context, call bundler.Call, invalidates ...string) (*Result, error) {
	return s.SendBatch(ctx, []bundler.Call{call}, invalidates...)
}

// SendBatch submits calls on the standard path as one atomic operation: all
// calls take effect together or none do. The wallet is re-probed for
// addresses first so a stale or disconnected wallet fails here instead of
// mid-flight.
func (s *Submitter) SendBatch(ctx context.Context, calls []bundler.Call, invalidates ...string) (*Result, error) {
	if len(calls) == 0 {
		return nil, pkgerrors.New("no calls to submit")
	}
	traceID := uuid.NewString()

	addresses, err := s.provider.RequestAddresses(ctx)
	if err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			return nil, chainerrors.PermissionDenied(err)
		}
		return nil, chainerrors.Classify(err, common.Address{})
	}
	if len(addresses) == 0 {
		return nil, chainerrors.Classify(pkgerrors.New("wallet has no accounts"), common.Address{})
	}
	owner := addresses[0]

	handle, err := s.accounts.Derive(owner)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "primary smart account not ready")
	}

	callData, err := bundler.ExecuteCallData(calls)
	if err != nil {
		return nil, err
	}

	op, err := s.prepare(ctx, handle, callData)
	if err != nil {
		return nil, chainerrors.Classify(err, handle.Address)
	}

	// Sponsored by default on the standard path. The paymaster result
	// carries the gas limits the sponsorship was quoted for.
	op.Signature = dummySignature
	sponsor, err := s.bundler.SponsorUserOperation(ctx, op)
	if err != nil {
		return nil, chainerrors.Classify(err, handle.Address)
	}
	op.PaymasterAndData = sponsor.PaymasterAndData
	if sponsor.CallGasLimit != nil {
		op.CallGasLimit = sponsor.CallGasLimit
		op.VerificationGasLimit = sponsor.VerificationGasLimit
		op.PreVerificationGas = sponsor.PreVerificationGas
	}

	hash := bundler.HashUserOp(op, s.bundler.EntryPoint(), s.chainID)
	sig, err := s.provider.SignUserOperationHash(ctx, owner, hash)
	if err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			return nil, chainerrors.PermissionDenied(err)
		}
		return nil, chainerrors.Classify(err, handle.Address)
	}
	op.Signature = sig

	s.logger.Info("Submitting standard operation",
		zap.String("trace_id", traceID),
		zap.String("sender", handle.Address.Hex()),
		zap.Int("call_count", len(calls)))

	return s.submit(ctx, op, handle.Address, traceID, invalidates)
}

// SendUnderSession submits calls from the session smart account without any
// wallet prompt. When no usable session exists, it runs the grant flow once
// and returns ErrSessionEstablished instead of submitting; the caller's retry
// is the submission.
func (s *Submitter) SendUnderSession(ctx context.Context, calls []bundler.Call, invalidates ...string) (*Result, error) {
	if len(calls) == 0 {
		return nil, pkgerrors.New("no calls to submit")
	}
	traceID := uuid.NewString()

	sess, err := s.sessions.Load()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load session")
	}
	if sess == nil {
		return nil, s.establishSession(ctx)
	}

	signer, err := s.signers.GetOrCreateLocalSigner()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load local signer")
	}

	// The grant authorizes exactly one signer. A mismatch means the key was
	// rotated after the grant; the session is unusable and is discarded.
	if signer.Address() != sess.Grant.SignerAddress {
		s.logger.Warn("Session bound to a different signer, discarding",
			zap.String("grant_signer", sess.Grant.SignerAddress.Hex()),
			zap.String("local_signer", signer.Address().Hex()))
		if err := s.sessions.Clear(); err != nil {
			return nil, err
		}
		return nil, chainerrors.SessionExpired("signer changed since the grant")
	}

	handle, err := s.accounts.Derive(signer.Address())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "session account not ready")
	}

	if err := s.checkSessionBalance(ctx, handle.Address, calls); err != nil {
		return nil, err
	}

	// Redemption runs through the delegation manager named by the grant,
	// replaying the opaque context with each call.
	redeem, err := bundler.RedeemDelegationsCallData(sess.Grant.Context, calls)
	if err != nil {
		return nil, err
	}
	callData, err := bundler.ExecuteCallData([]bundler.Call{{
		To:   sess.Grant.DelegationManager,
		Data: redeem,
	}})
	if err != nil {
		return nil, err
	}

	op, err := s.prepare(ctx, handle, callData)
	if err != nil {
		return nil, chainerrors.Classify(err, handle.Address)
	}

	// Self-funded path, no paymaster.
	op.Signature = dummySignature
	est, err := s.bundler.EstimateUserOperationGas(ctx, op)
	if err != nil {
		return nil, chainerrors.Classify(err, handle.Address)
	}
	op.CallGasLimit = est.CallGasLimit
	op.VerificationGasLimit = est.VerificationGasLimit
	op.PreVerificationGas = est.PreVerificationGas

	hash := bundler.HashUserOp(op, s.bundler.EntryPoint(), s.chainID)
	sig, err := signer.SignHash(hash)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "local signing failed")
	}
	op.Signature = sig

	s.logger.Info("Submitting session operation",
		zap.String("trace_id", traceID),
		zap.String("sender", handle.Address.Hex()),
		zap.String("delegation_manager", sess.Grant.DelegationManager.Hex()),
		zap.Int("call_count", len(calls)))

	return s.submit(ctx, op, handle.Address, traceID, invalidates)
}

// establishSession runs the grant flow for the connected owner and reports
// the two-phase outcome.
func (s *Submitter) establishSession(ctx context.Context) error {
	addresses, err := s.provider.RequestAddresses(ctx)
	if err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			return chainerrors.PermissionDenied(err)
		}
		return chainerrors.Classify(err, common.Address{})
	}
	if len(addresses) == 0 {
		return chainerrors.Classify(pkgerrors.New("wallet has no accounts"), common.Address{})
	}

	if _, err := s.broker.RequestSession(ctx, addresses[0]); err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			return chainerrors.PermissionDenied(err)
		}
		return chainerrors.Classify(err, common.Address{})
	}
	return ErrSessionEstablished
}

// checkSessionBalance enforces that the session account covers the value it
// is about to send, and warns when gas headroom looks thin.
func (s *Submitter) checkSessionBalance(ctx context.Context, sender common.Address, calls []bundler.Call) error {
	total := new(big.Int)
	for _, c := range calls {
		if c.Value != nil {
			total.Add(total, c.Value)
		}
	}
	if total.Sign() == 0 {
		return nil
	}

	balance, err := s.bundler.Balance(ctx, sender)
	if err != nil {
		return chainerrors.Classify(err, sender)
	}
	if balance.Cmp(total) < 0 {
		return chainerrors.Classify(
			pkgerrors.Errorf("insufficient funds: balance %s wei, need %s wei", balance, total),
			sender)
	}
	needed := new(big.Int).Add(total, gasHeadroomWei)
	if balance.Cmp(needed) < 0 {
		s.logger.Warn("Session balance may not cover value plus gas",
			zap.String("sender", sender.Hex()),
			zap.String("balance_wei", balance.String()),
			zap.String("needed_wei", needed.String()))
	}
	return nil
}

// prepare assembles the unsigned skeleton: sender, nonce, init code on first
// use, and a fee quote fetched fresh for this submission.
func (s *Submitter) prepare(ctx context.Context, handle *account.Handle, callData []byte) (*bundler.UserOperation, error) {
	nonce, err := s.bundler.GetNonce(ctx, handle.Address)
	if err != nil {
		return nil, err
	}

	var initCode hexutil.Bytes
	if nonce.Sign() == 0 {
		initCode = handle.InitCode
	}

	tiers, err := s.bundler.GetGasPriceTiers(ctx)
	if err != nil {
		return nil, err
	}

	return &bundler.UserOperation{
		Sender:               handle.Address,
		Nonce:                (*hexutil.Big)(nonce),
		InitCode:             initCode,
		CallData:             callData,
		CallGasLimit:         new(hexutil.Big),
		VerificationGasLimit: new(hexutil.Big),
		PreVerificationGas:   new(hexutil.Big),
		MaxFeePerGas:         tiers.Fast.MaxFeePerGas,
		MaxPriorityFeePerGas: tiers.Fast.MaxPriorityFeePerGas,
		PaymasterAndData:     hexutil.Bytes{},
	}, nil
}

// submit sends the signed operation, waits for inclusion, and classifies the
// outcome. Invalidation fires only on a confirmed successful receipt.
func (s *Submitter) submit(ctx context.Context, op *bundler.UserOperation, fundingAddress common.Address, traceID string, invalidates []string) (*Result, error) {
	opHash, err := s.bundler.SendUserOperation(ctx, op)
	if err != nil {
		return nil, chainerrors.Classify(err, fundingAddress)
	}

	receipt, err := s.bundler.WaitForReceipt(ctx, opHash)
	if err != nil {
		return nil, chainerrors.Classify(err, fundingAddress)
	}

	result := &Result{
		UserOpHash: opHash,
		TxHash:     receipt.Receipt.TransactionHash,
		Success:    receipt.Success,
	}

	if !receipt.Success {
		reason := receipt.Reason
		if reason == "" {
			reason = "execution reverted"
		}
		return result, chainerrors.Classify(pkgerrors.New(reason), fundingAddress)
	}

	s.logger.Info("Operation confirmed",
		zap.String("trace_id", traceID),
		zap.String("user_op_hash", opHash.Hex()),
		zap.String("tx_hash", result.TxHash.Hex()))

	if s.onWrite != nil && len(invalidates) > 0 {
		s.onWrite(invalidates...)
	}
	return result, nil
}
