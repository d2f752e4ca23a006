package contract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	pkgerrors "github.com/pkg/errors"
	"github.com/proofhtf/proofhtf-api/internal/bundler"
)

// Role is the on-chain user role enum.
type Role uint8

const (
	RoleStudent Role = 0
	RoleTutor   Role = 1
)

// Question is one exam question as the contract stores it. Options is a
// fixed-size array; the ABI type is string[4] and shorter inputs are invalid.
type Question struct {
	Text          string
	Options       [4]string
	CorrectAnswer uint64
}

// Calls builds contract write invocations as bundler calls. It never submits;
// the submitter owns submission.
type Calls struct {
	contractAddress common.Address
}

// NewCalls binds the builder to the deployed contract.
func NewCalls(contractAddress common.Address) *Calls {
	return &Calls{contractAddress: contractAddress}
}

func (c *Calls) pack(method string, args ...interface{}) (bundler.Call, error) {
	courseAbi, err := parsedCourseABI()
	if err != nil {
		return bundler.Call{}, err
	}
	data, err := courseAbi.Pack(method, args...)
	if err != nil {
		return bundler.Call{}, pkgerrors.Wrapf(err, "failed to encode %s", method)
	}
	return bundler.Call{To: c.contractAddress, Data: data}, nil
}

// RegisterUser encodes registerUser(name, role).
func (c *Calls) RegisterUser(name string, role Role) (bundler.Call, error) {
	return c.pack("registerUser", name, uint8(role))
}

// CreateCourse encodes createCourse(title).
func (c *Calls) CreateCourse(title string) (bundler.Call, error) {
	return c.pack("createCourse", title)
}

// CreateExam encodes createExam with the question fields split into the
// parallel arrays the contract expects.
func (c *Calls) CreateExam(courseID *big.Int, title string, questions []Question) (bundler.Call, error) {
	if len(questions) == 0 {
		return bundler.Call{}, pkgerrors.New("an exam needs at least one question")
	}

	texts := make([]string, len(questions))
	options := make([][4]string, len(questions))
	answers := make([]*big.Int, len(questions))
	for i, q := range questions {
		texts[i] = q.Text
		options[i] = q.Options
		answers[i] = new(big.Int).SetUint64(q.CorrectAnswer)
	}
	return c.pack("createExam", courseID, title, texts, options, answers)
}

// EnrollInCourse encodes enrollInCourse(courseId).
func (c *Calls) EnrollInCourse(courseID *big.Int) (bundler.Call, error) {
	return c.pack("enrollInCourse", courseID)
}

// TakeExam encodes takeExam(examId, answers).
func (c *Calls) TakeExam(examID *big.Int, answers []uint64) (bundler.Call, error) {
	bigAnswers := make([]*big.Int, len(answers))
	for i, a := range answers {
		bigAnswers[i] = new(big.Int).SetUint64(a)
	}
	return c.pack("takeExam", examID, bigAnswers)
}

// Tip builds a plain native-value transfer to the recipient. Tips are not
// contract calls; they are the canonical session-path operation.
func Tip(recipient common.Address, amountWei *big.Int) bundler.Call {
	return bundler.Call{To: recipient, Value: amountWei}
}
