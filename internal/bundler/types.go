package bundler

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// UserOperation is an ERC-4337 v0.6 user operation in the JSON shape
// bundlers accept: quantities as hex strings, byte fields as 0x-prefixed hex.
type UserOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *hexutil.Big   `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         *hexutil.Big   `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big   `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big   `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

// Call is one target invocation carried by a user operation.
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// GasPrices is one fee tier quoted by the bundler.
type GasPrices struct {
	MaxFeePerGas         *hexutil.Big `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big `json:"maxPriorityFeePerGas"`
}

// GasPriceTiers is the bundler's fee quote. Tiers are fetched immediately
// before each submission; a stale quote underprices the operation and strands
// it in the mempool.
type GasPriceTiers struct {
	Slow     GasPrices `json:"slow"`
	Standard GasPrices `json:"standard"`
	Fast     GasPrices `json:"fast"`
}

// GasEstimate is the bundler's gas estimation response.
type GasEstimate struct {
	CallGasLimit         *hexutil.Big `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big `json:"preVerificationGas"`
}

// PaymasterResult is the sponsorship data returned by pm_sponsorUserOperation.
type PaymasterResult struct {
	PaymasterAndData     hexutil.Bytes `json:"paymasterAndData"`
	CallGasLimit         *hexutil.Big  `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big  `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big  `json:"preVerificationGas"`
}

// Receipt is the subset of eth_getUserOperationReceipt the submitter needs.
type Receipt struct {
	UserOpHash    common.Hash    `json:"userOpHash"`
	Sender        common.Address `json:"sender"`
	Success       bool           `json:"success"`
	ActualGasUsed *hexutil.Big   `json:"actualGasUsed"`
	Reason        string         `json:"reason"`
	Receipt       struct {
		TransactionHash common.Hash  `json:"transactionHash"`
		BlockNumber     *hexutil.Big `json:"blockNumber"`
	} `json:"receipt"`
}

// PackUserOp ABI-encodes the operation for hashing. Dynamic byte fields enter
// as their keccak256 digests per the v0.6 entry point's getUserOpHash.
func PackUserOp(op *UserOperation) []byte {
	packed := make([]byte, 0, 10*32)
	packed = append(packed, abiAddress(op.Sender)...)
	packed = append(packed, abiBig(op.Nonce)...)
	packed = append(packed, crypto.Keccak256(op.InitCode)...)
	packed = append(packed, crypto.Keccak256(op.CallData)...)
	packed = append(packed, abiBig(op.CallGasLimit)...)
	packed = append(packed, abiBig(op.VerificationGasLimit)...)
	packed = append(packed, abiBig(op.PreVerificationGas)...)
	packed = append(packed, abiBig(op.MaxFeePerGas)...)
	packed = append(packed, abiBig(op.MaxPriorityFeePerGas)...)
	packed = append(packed, crypto.Keccak256(op.PaymasterAndData)...)
	return packed
}

// HashUserOp computes the digest the account signs:
// keccak256(abi.encode(keccak256(pack(op)), entryPoint, chainID)).
func HashUserOp(op *UserOperation, entryPoint common.Address, chainID *big.Int) common.Hash {
	inner := crypto.Keccak256(PackUserOp(op))

	outer := make([]byte, 0, 3*32)
	outer = append(outer, inner...)
	outer = append(outer, abiAddress(entryPoint)...)
	outer = append(outer, abiUint256(chainID)...)
	return crypto.Keccak256Hash(outer)
}

func abiAddress(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

func abiUint256(n *big.Int) []byte {
	buf := make([]byte, 32)
	if n != nil {
		n.FillBytes(buf)
	}
	return buf
}

func abiBig(n *hexutil.Big) []byte {
	if n == nil {
		return make([]byte, 32)
	}
	return abiUint256(n.ToInt())
}
