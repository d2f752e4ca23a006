// Package bundler wraps the ERC-4337 JSON-RPC surface: gas quoting,
// sponsorship, submission, and receipt polling against a bundler endpoint,
// plus the entry point reads that submissions need.
package bundler

import (
	"context"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	pkgerrors "github.com/pkg/errors"
	"github.com/proofhtf/proofhtf-api/internal/chainerrors"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"go.uber.org/zap"
)

// Client talks to a bundler and, for entry point reads, to a regular node.
type Client struct {
	rpc        *rpc.Client
	node       *ethclient.Client
	entryPoint common.Address

	pollInterval time.Duration
	pollTimeout  time.Duration

	logger *zap.Logger
}

// NewClient connects to the bundler endpoint. node is used for entry point
// nonce reads and balance checks.
func NewClient(bundlerURL string, node *ethclient.Client, entryPoint common.Address, pollInterval, pollTimeout time.Duration) (*Client, error) {
	c, err := rpc.Dial(bundlerURL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to bundler")
	}
	return &Client{
		rpc:          c,
		node:         node,
		entryPoint:   entryPoint,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		logger:       logger.Log,
	}, nil
}

// EntryPoint returns the entry point address this client submits through.
func (c *Client) EntryPoint() common.Address {
	return c.entryPoint
}

// GetGasPriceTiers fetches a fresh fee quote. Callers must request a quote
// per submission rather than reusing an earlier one.
func (c *Client) GetGasPriceTiers(ctx context.Context) (*GasPriceTiers, error) {
	var tiers GasPriceTiers
	if err := c.rpc.CallContext(ctx, &tiers, "pimlico_getUserOperationGasPrice"); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to fetch gas price tiers")
	}
	return &tiers, nil
}

// EstimateUserOperationGas asks the bundler to estimate the three gas fields.
func (c *Client) EstimateUserOperationGas(ctx context.Context, op *UserOperation) (*GasEstimate, error) {
	var est GasEstimate
	if err := c.rpc.CallContext(ctx, &est, "eth_estimateUserOperationGas", op, c.entryPoint); err != nil {
		return nil, pkgerrors.Wrap(err, "gas estimation failed")
	}
	return &est, nil
}

// SponsorUserOperation requests paymaster sponsorship for the operation and
// returns the paymaster data plus sponsored gas limits.
func (c *Client) SponsorUserOperation(ctx context.Context, op *UserOperation) (*PaymasterResult, error) {
	var res PaymasterResult
	if err := c.rpc.CallContext(ctx, &res, "pm_sponsorUserOperation", op, c.entryPoint); err != nil {
		return nil, pkgerrors.Wrap(err, "sponsorship request failed")
	}
	return &res, nil
}

// SendUserOperation submits a signed operation and returns its hash.
func (c *Client) SendUserOperation(ctx context.Context, op *UserOperation) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendUserOperation", op, c.entryPoint); err != nil {
		return common.Hash{}, pkgerrors.Wrap(err, "failed to submit user operation")
	}
	c.logger.Info("User operation submitted",
		zap.String("user_op_hash", hash.Hex()),
		zap.String("sender", op.Sender.Hex()))
	return hash, nil
}

// GetUserOperationReceipt returns the receipt, or nil while the operation is
// still pending.
func (c *Client) GetUserOperationReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var receipt *Receipt
	if err := c.rpc.CallContext(ctx, &receipt, "eth_getUserOperationReceipt", hash); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to fetch user operation receipt")
	}
	return receipt, nil
}

// WaitForReceipt polls at a constant interval until the operation is included
// or the poll timeout elapses. Timing out does not mean the operation failed;
// it may confirm later, and the classified error says so.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	var receipt *Receipt
	operation := func() error {
		r, err := c.GetUserOperationReceipt(waitCtx, hash)
		if err != nil {
			return backoff.Permanent(err)
		}
		if r == nil {
			return pkgerrors.New("receipt not available yet")
		}
		receipt = r
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(c.pollInterval), waitCtx)
	if err := backoff.Retry(operation, policy); err != nil {
		if waitCtx.Err() != nil {
			return nil, chainerrors.NetworkTimeout(hash)
		}
		return nil, err
	}

	c.logger.Info("User operation included",
		zap.String("user_op_hash", hash.Hex()),
		zap.String("tx_hash", receipt.Receipt.TransactionHash.Hex()),
		zap.Bool("success", receipt.Success))
	return receipt, nil
}

// getNonceSelector is getNonce(address,uint192) on the entry point.
var getNonceSelector = crypto.Keccak256([]byte("getNonce(address,uint192)"))[:4]

// GetNonce reads the sender's next nonce from the entry point (key 0).
func (c *Client) GetNonce(ctx context.Context, sender common.Address) (*big.Int, error) {
	data := make([]byte, 0, 4+64)
	data = append(data, getNonceSelector...)
	data = append(data, abiAddress(sender)...)
	data = append(data, make([]byte, 32)...)

	out, err := c.node.CallContract(ctx, ethereum.CallMsg{
		To:   &c.entryPoint,
		Data: data,
	}, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read entry point nonce")
	}
	return new(big.Int).SetBytes(out), nil
}

// Balance reads the native balance of an address.
func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := c.node.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read balance")
	}
	return bal, nil
}

// Close releases the bundler RPC connection. The node client is owned by the
// caller and is not closed here.
func (c *Client) Close() {
	c.rpc.Close()
}
