package contract

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	pkgerrors "github.com/pkg/errors"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"go.uber.org/zap"
)

// Course mirrors the contract's Course tuple.
type Course struct {
	CourseId  *big.Int       `abi:"courseId"`
	Title     string         `abi:"title"`
	Tutor     common.Address `abi:"tutor"`
	TutorName string         `abi:"tutorName"`
	IsActive  bool           `abi:"isActive"`
}

// Exam mirrors the contract's Exam tuple.
type Exam struct {
	ExamId        *big.Int       `abi:"examId"`
	CourseId      *big.Int       `abi:"courseId"`
	Title         string         `abi:"title"`
	QuestionCount *big.Int       `abi:"questionCount"`
	IsActive      bool           `abi:"isActive"`
	Creator       common.Address `abi:"creator"`
}

// ExamQuestions is the student-facing question set, without answers.
type ExamQuestions struct {
	Texts   []string
	Options [][4]string
}

// ExamResults is one student's completed attempt.
type ExamResults struct {
	RawScore    *big.Int
	Answers     []*big.Int
	IsCompleted bool
}

// ExamRevision is the post-completion revision view with correct answers.
type ExamRevision struct {
	Texts          []string
	Options        [][4]string
	CorrectAnswers []*big.Int
	StudentAnswers []*big.Int
	IsCorrect      []bool
	StudentScore   *big.Int
	MaxScore       *big.Int
}

// User mirrors the contract's user record.
type User struct {
	Name         string
	Role         Role
	IsRegistered bool
}

// Cache scopes used by write invalidation.
const (
	ScopeCourses = "courses"
	ScopeUsers   = "users"
	ScopeExams   = "exams"
)

// Reader performs view calls against the course contract. Results are cached
// per scope; a successful write invalidates only the scopes it touched
// instead of discarding everything.
type Reader struct {
	client          *ethclient.Client
	contractAddress common.Address

	mu     sync.Mutex
	cache  map[string]interface{}
	logger *zap.Logger
}

// NewReader creates a reader bound to the deployed contract.
func NewReader(client *ethclient.Client, contractAddress common.Address) *Reader {
	return &Reader{
		client:          client,
		contractAddress: contractAddress,
		cache:           make(map[string]interface{}),
		logger:          logger.Log,
	}
}

// Invalidate drops cached results for the given scopes. Called after a
// successful write with the scopes that write affected.
func (r *Reader) Invalidate(scopes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.cache {
		for _, scope := range scopes {
			if len(key) >= len(scope) && key[:len(scope)] == scope {
				delete(r.cache, key)
			}
		}
	}
	r.logger.Debug("Invalidated read cache", zap.Strings("scopes", scopes))
}

func (r *Reader) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	courseAbi, err := parsedCourseABI()
	if err != nil {
		return nil, err
	}
	data, err := courseAbi.Pack(method, args...)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to encode %s", method)
	}

	raw, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &r.contractAddress,
		Data: data,
	}, nil)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "%s call failed", method)
	}

	out, err := courseAbi.Unpack(method, raw)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to decode %s result", method)
	}
	return out, nil
}

func (r *Reader) cached(key string) (interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cache[key]
	return v, ok
}

func (r *Reader) store(key string, v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = v
}

// CourseCount returns courseCounter.
func (r *Reader) CourseCount(ctx context.Context) (*big.Int, error) {
	key := ScopeCourses + ":count"
	if v, ok := r.cached(key); ok {
		return v.(*big.Int), nil
	}
	out, err := r.call(ctx, "courseCounter")
	if err != nil {
		return nil, err
	}
	count := out[0].(*big.Int)
	r.store(key, count)
	return count, nil
}

// ExamCount returns examCounter.
func (r *Reader) ExamCount(ctx context.Context) (*big.Int, error) {
	key := ScopeExams + ":count"
	if v, ok := r.cached(key); ok {
		return v.(*big.Int), nil
	}
	out, err := r.call(ctx, "examCounter")
	if err != nil {
		return nil, err
	}
	count := out[0].(*big.Int)
	r.store(key, count)
	return count, nil
}

// GetCourse returns one course by id.
func (r *Reader) GetCourse(ctx context.Context, courseID *big.Int) (*Course, error) {
	key := fmt.Sprintf("%s:%s", ScopeCourses, courseID)
	if v, ok := r.cached(key); ok {
		return v.(*Course), nil
	}
	out, err := r.call(ctx, "getCourse", courseID)
	if err != nil {
		return nil, err
	}
	course := abi.ConvertType(out[0], new(Course)).(*Course)
	r.store(key, course)
	return course, nil
}

// GetTutorCourses returns the courses created by a tutor.
func (r *Reader) GetTutorCourses(ctx context.Context, tutor common.Address) ([]Course, error) {
	key := fmt.Sprintf("%s:tutor:%s", ScopeCourses, tutor.Hex())
	if v, ok := r.cached(key); ok {
		return v.([]Course), nil
	}
	out, err := r.call(ctx, "getTutorCourses", tutor)
	if err != nil {
		return nil, err
	}
	courses := *abi.ConvertType(out[0], new([]Course)).(*[]Course)
	r.store(key, courses)
	return courses, nil
}

// GetEnrolledCourses returns the courses a student is enrolled in.
func (r *Reader) GetEnrolledCourses(ctx context.Context, student common.Address) ([]Course, error) {
	key := fmt.Sprintf("%s:enrolled:%s", ScopeCourses, student.Hex())
	if v, ok := r.cached(key); ok {
		return v.([]Course), nil
	}
	out, err := r.call(ctx, "getEnrolledCourses", student)
	if err != nil {
		return nil, err
	}
	courses := *abi.ConvertType(out[0], new([]Course)).(*[]Course)
	r.store(key, courses)
	return courses, nil
}

// GetExam returns one exam by id.
func (r *Reader) GetExam(ctx context.Context, examID *big.Int) (*Exam, error) {
	key := fmt.Sprintf("%s:%s", ScopeExams, examID)
	if v, ok := r.cached(key); ok {
		return v.(*Exam), nil
	}
	out, err := r.call(ctx, "getExam", examID)
	if err != nil {
		return nil, err
	}
	exam := abi.ConvertType(out[0], new(Exam)).(*Exam)
	r.store(key, exam)
	return exam, nil
}

// GetExamQuestions returns the questions of an exam without the answers.
func (r *Reader) GetExamQuestions(ctx context.Context, examID *big.Int) (*ExamQuestions, error) {
	out, err := r.call(ctx, "getExamQuestions", examID)
	if err != nil {
		return nil, err
	}
	return &ExamQuestions{
		Texts:   *abi.ConvertType(out[0], new([]string)).(*[]string),
		Options: *abi.ConvertType(out[1], new([][4]string)).(*[][4]string),
	}, nil
}

// GetExamResults returns a student's completed attempt.
func (r *Reader) GetExamResults(ctx context.Context, examID *big.Int, student common.Address) (*ExamResults, error) {
	out, err := r.call(ctx, "getExamResults", examID, student)
	if err != nil {
		return nil, err
	}
	return &ExamResults{
		RawScore:    out[0].(*big.Int),
		Answers:     *abi.ConvertType(out[1], new([]*big.Int)).(*[]*big.Int),
		IsCompleted: out[2].(bool),
	}, nil
}

// GetPastExamForRevision returns the full revision view of a completed exam.
func (r *Reader) GetPastExamForRevision(ctx context.Context, examID *big.Int) (*ExamRevision, error) {
	out, err := r.call(ctx, "getPastExamForRevision", examID)
	if err != nil {
		return nil, err
	}
	return &ExamRevision{
		Texts:          *abi.ConvertType(out[0], new([]string)).(*[]string),
		Options:        *abi.ConvertType(out[1], new([][4]string)).(*[][4]string),
		CorrectAnswers: *abi.ConvertType(out[2], new([]*big.Int)).(*[]*big.Int),
		StudentAnswers: *abi.ConvertType(out[3], new([]*big.Int)).(*[]*big.Int),
		IsCorrect:      *abi.ConvertType(out[4], new([]bool)).(*[]bool),
		StudentScore:   out[5].(*big.Int),
		MaxScore:       out[6].(*big.Int),
	}, nil
}

// IsRegistered returns whether the address has registered.
func (r *Reader) IsRegistered(ctx context.Context, user common.Address) (bool, error) {
	key := fmt.Sprintf("%s:registered:%s", ScopeUsers, user.Hex())
	if v, ok := r.cached(key); ok {
		return v.(bool), nil
	}
	out, err := r.call(ctx, "registeredUsers", user)
	if err != nil {
		return false, err
	}
	registered := out[0].(bool)
	r.store(key, registered)
	return registered, nil
}

// GetUser returns the user record for an address.
func (r *Reader) GetUser(ctx context.Context, user common.Address) (*User, error) {
	key := fmt.Sprintf("%s:%s", ScopeUsers, user.Hex())
	if v, ok := r.cached(key); ok {
		return v.(*User), nil
	}
	out, err := r.call(ctx, "users", user)
	if err != nil {
		return nil, err
	}
	u := &User{
		Name:         out[0].(string),
		Role:         Role(out[1].(uint8)),
		IsRegistered: out[2].(bool),
	}
	r.store(key, u)
	return u, nil
}
