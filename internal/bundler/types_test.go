package bundler

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

var (
	testEntryPoint = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	testChainID    = big.NewInt(11155111)
)

func sampleOp() *UserOperation {
	return &UserOperation{
		Sender:               common.HexToAddress("0x4444444444444444444444444444444444444444"),
		Nonce:                (*hexutil.Big)(big.NewInt(7)),
		InitCode:             hexutil.Bytes{},
		CallData:             hexutil.Bytes{0xde, 0xad, 0xbe, 0xef},
		CallGasLimit:         (*hexutil.Big)(big.NewInt(100000)),
		VerificationGasLimit: (*hexutil.Big)(big.NewInt(200000)),
		PreVerificationGas:   (*hexutil.Big)(big.NewInt(50000)),
		MaxFeePerGas:         (*hexutil.Big)(big.NewInt(2000000000)),
		MaxPriorityFeePerGas: (*hexutil.Big)(big.NewInt(2000000000)),
		PaymasterAndData:     hexutil.Bytes{},
	}
}

func TestPackUserOpLayout(t *testing.T) {
	packed := PackUserOp(sampleOp())

	// Ten 32-byte words, dynamic fields hashed in place.
	require.Len(t, packed, 10*32)
	assert.Equal(t,
		common.LeftPadBytes(sampleOp().Sender.Bytes(), 32),
		packed[:32])
	assert.Equal(t,
		crypto.Keccak256([]byte{0xde, 0xad, 0xbe, 0xef}),
		packed[3*32:4*32])
}

func TestHashUserOpIsDeterministic(t *testing.T) {
	a := HashUserOp(sampleOp(), testEntryPoint, testChainID)
	b := HashUserOp(sampleOp(), testEntryPoint, testChainID)
	assert.Equal(t, a, b)
}

func TestHashUserOpVariesWithInputs(t *testing.T) {
	base := HashUserOp(sampleOp(), testEntryPoint, testChainID)

	bumped := sampleOp()
	bumped.Nonce = (*hexutil.Big)(big.NewInt(8))
	assert.NotEqual(t, base, HashUserOp(bumped, testEntryPoint, testChainID))

	assert.NotEqual(t, base, HashUserOp(sampleOp(), testEntryPoint, big.NewInt(1)))
	assert.NotEqual(t, base, HashUserOp(sampleOp(), common.Address{}, testChainID))
}

func TestExecuteCallDataSingle(t *testing.T) {
	data, err := ExecuteCallData([]Call{{
		To:    common.HexToAddress("0x179BF34155cD129FeB3b2440f50418C4836e65D6"),
		Value: big.NewInt(5),
		Data:  []byte{0x01},
	}})
	require.NoError(t, err)

	sel := crypto.Keccak256([]byte("execute(address,uint256,bytes)"))[:4]
	assert.Equal(t, sel, data[:4])
}

func TestExecuteCallDataBatch(t *testing.T) {
	calls := []Call{
		{To: common.HexToAddress("0x1111111111111111111111111111111111111111"), Data: []byte{0x01}},
		{To: common.HexToAddress("0x2222222222222222222222222222222222222222"), Data: []byte{0x02}},
	}
	data, err := ExecuteCallData(calls)
	require.NoError(t, err)

	sel := crypto.Keccak256([]byte("executeBatch(address[],uint256[],bytes[])"))[:4]
	assert.Equal(t, sel, data[:4])
}

func TestExecuteCallDataEmpty(t *testing.T) {
	_, err := ExecuteCallData(nil)
	assert.Error(t, err)
}

func TestRedeemDelegationsCallData(t *testing.T) {
	permissionContext := []byte{0xaa, 0xbb}
	data, err := RedeemDelegationsCallData(permissionContext, []Call{{
		To:    common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Value: big.NewInt(1000),
	}})
	require.NoError(t, err)

	sel := crypto.Keccak256([]byte("redeemDelegations(bytes[],bytes32[],bytes[])"))[:4]
	assert.Equal(t, sel, data[:4])
	// The opaque context is replayed verbatim inside the payload.
	assert.Contains(t, hexutil.Encode(data), "aabb")
}
