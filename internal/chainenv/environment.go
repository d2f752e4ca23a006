// Package chainenv assembles the chain-facing dependency graph once at
// startup: node client, wallet provider, bundler client, signer and session
// stores, account factory, broker, reader, and submitter.
package chainenv

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	pkgerrors "github.com/pkg/errors"
	"github.com/proofhtf/proofhtf-api/internal/account"
	"github.com/proofhtf/proofhtf-api/internal/bundler"
	"github.com/proofhtf/proofhtf-api/internal/config"
	"github.com/proofhtf/proofhtf-api/internal/contract"
	"github.com/proofhtf/proofhtf-api/internal/keystore"
	"github.com/proofhtf/proofhtf-api/internal/permission"
	"github.com/proofhtf/proofhtf-api/internal/session"
	"github.com/proofhtf/proofhtf-api/internal/storage"
	"github.com/proofhtf/proofhtf-api/internal/submitter"
	"github.com/proofhtf/proofhtf-api/internal/wallet"
)

// Environment is the wired chain stack shared by all handlers.
type Environment struct {
	Node      *ethclient.Client
	Wallet    wallet.Provider
	Bundler   *bundler.Client
	Signers   *keystore.Store
	Sessions  *session.Store
	Accounts  *account.Factory
	Broker    *permission.Broker
	Reader    *contract.Reader
	Calls     *contract.Calls
	Submitter *submitter.Submitter

	ChainID         *big.Int
	ContractAddress common.Address
}

// New builds the environment from configuration. Every dependency failure is
// fatal to startup; nothing here degrades gracefully.
func New(cfg *config.Config) (*Environment, error) {
	node, err := ethclient.Dial(cfg.NodeRPCURL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to node RPC")
	}

	walletProvider, err := wallet.NewRPCProvider(cfg.WalletRPCURL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to wallet RPC")
	}

	entryPoint := common.HexToAddress(cfg.EntryPointAddress)
	bundlerClient, err := bundler.NewClient(cfg.BundlerURL, node, entryPoint, cfg.ReceiptPollInterval, cfg.ReceiptTimeout)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to bundler")
	}

	store, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to open local storage")
	}

	signers := keystore.NewStore(store)
	sessions := session.NewStore(store)

	accounts := account.NewFactory(
		common.HexToAddress(cfg.AccountFactoryAddress),
		account.ImplementationHybrid,
		nil)

	broker := permission.NewBroker(signers, accounts, walletProvider, sessions, permission.Scope{
		ChainID:        cfg.ChainID,
		PeriodAmount:   cfg.SessionPeriodAmountWei,
		PeriodDuration: uint64(cfg.SessionPeriodDuration.Seconds()),
		TTL:            cfg.SessionTTL,
	})

	contractAddress := common.HexToAddress(cfg.ContractAddress)
	reader := contract.NewReader(node, contractAddress)
	calls := contract.NewCalls(contractAddress)

	chainID := new(big.Int).SetUint64(cfg.ChainID)
	sub := submitter.NewSubmitter(
		walletProvider, signers, accounts, sessions, broker, bundlerClient, chainID,
		func(scopes ...string) { reader.Invalidate(scopes...) })

	return &Environment{
		Node:            node,
		Wallet:          walletProvider,
		Bundler:         bundlerClient,
		Signers:         signers,
		Sessions:        sessions,
		Accounts:        accounts,
		Broker:          broker,
		Reader:          reader,
		Calls:           calls,
		Submitter:       sub,
		ChainID:         chainID,
		ContractAddress: contractAddress,
	}, nil
}

// Close releases the network clients.
func (e *Environment) Close() {
	e.Bundler.Close()
	if p, ok := e.Wallet.(*wallet.RPCProvider); ok {
		p.Close()
	}
	e.Node.Close()
}
