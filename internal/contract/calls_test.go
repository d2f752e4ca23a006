package contract

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

var testContract = common.HexToAddress("0x179BF34155cD129FeB3b2440f50418C4836e65D6")

func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

func TestRegisterUser(t *testing.T) {
	calls := NewCalls(testContract)

	call, err := calls.RegisterUser("Alice", RoleTutor)
	require.NoError(t, err)

	assert.Equal(t, testContract, call.To)
	assert.Nil(t, call.Value)
	assert.Equal(t, selector("registerUser(string,uint8)"), call.Data[:4])
}

func TestCreateCourse(t *testing.T) {
	calls := NewCalls(testContract)

	call, err := calls.CreateCourse("Intro to Solidity")
	require.NoError(t, err)
	assert.Equal(t, selector("createCourse(string)"), call.Data[:4])
}

func TestCreateExam(t *testing.T) {
	calls := NewCalls(testContract)

	questions := []Question{
		{
			Text:          "What is the zero address?",
			Options:       [4]string{"0x0", "0x1", "0xff", "none"},
			CorrectAnswer: 0,
		},
		{
			Text:          "How many wei in one ether?",
			Options:       [4]string{"1e6", "1e9", "1e18", "1e21"},
			CorrectAnswer: 2,
		},
	}

	call, err := calls.CreateExam(big.NewInt(1), "Basics", questions)
	require.NoError(t, err)
	// Options are a fixed string[4] per question.
	assert.Equal(t,
		selector("createExam(uint256,string,string[],string[4][],uint256[])"),
		call.Data[:4])
}

func TestCreateExamRequiresQuestions(t *testing.T) {
	calls := NewCalls(testContract)

	_, err := calls.CreateExam(big.NewInt(1), "Empty", nil)
	assert.Error(t, err)
}

func TestEnrollInCourse(t *testing.T) {
	calls := NewCalls(testContract)

	call, err := calls.EnrollInCourse(big.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, selector("enrollInCourse(uint256)"), call.Data[:4])
	// The argument is a single uint256 word.
	assert.Len(t, call.Data, 4+32)
	assert.Equal(t, int64(42), new(big.Int).SetBytes(call.Data[4:]).Int64())
}

func TestTakeExam(t *testing.T) {
	calls := NewCalls(testContract)

	call, err := calls.TakeExam(big.NewInt(3), []uint64{0, 2, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, selector("takeExam(uint256,uint256[])"), call.Data[:4])
}

func TestTip(t *testing.T) {
	recipient := common.HexToAddress("0x5555555555555555555555555555555555555555")
	call := Tip(recipient, big.NewInt(1000))

	assert.Equal(t, recipient, call.To)
	assert.Equal(t, int64(1000), call.Value.Int64())
	assert.Empty(t, call.Data)
}
