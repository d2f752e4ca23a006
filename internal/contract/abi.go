// Package contract is the typed boundary to the deployed course contract.
// Calls are encoded against the contract ABI with exact parameter order and
// types; reads are passed through without interpreting business semantics.
package contract

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	pkgerrors "github.com/pkg/errors"
)

// courseABI covers the write functions the submitter encodes and the view
// functions the reader decodes. Per-question options are a fixed string[4].
const courseABI = `[
	{"type":"function","name":"registerUser","stateMutability":"nonpayable","inputs":[
		{"name":"name","type":"string"},
		{"name":"role","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"createCourse","stateMutability":"nonpayable","inputs":[
		{"name":"title","type":"string"}],"outputs":[]},
	{"type":"function","name":"createExam","stateMutability":"nonpayable","inputs":[
		{"name":"courseId","type":"uint256"},
		{"name":"title","type":"string"},
		{"name":"questionTexts","type":"string[]"},
		{"name":"questionOptions","type":"string[4][]"},
		{"name":"correctAnswers","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"enrollInCourse","stateMutability":"nonpayable","inputs":[
		{"name":"courseId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"takeExam","stateMutability":"nonpayable","inputs":[
		{"name":"examId","type":"uint256"},
		{"name":"answers","type":"uint256[]"}],"outputs":[
		{"name":"","type":"uint256"}]},

	{"type":"function","name":"courseCounter","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"uint256"}]},
	{"type":"function","name":"examCounter","stateMutability":"view","inputs":[],"outputs":[
		{"name":"","type":"uint256"}]},
	{"type":"function","name":"getCourse","stateMutability":"view","inputs":[
		{"name":"courseId","type":"uint256"}],"outputs":[
		{"name":"","type":"tuple","components":[
			{"name":"courseId","type":"uint256"},
			{"name":"title","type":"string"},
			{"name":"tutor","type":"address"},
			{"name":"tutorName","type":"string"},
			{"name":"isActive","type":"bool"}]}]},
	{"type":"function","name":"getTutorCourses","stateMutability":"view","inputs":[
		{"name":"tutor","type":"address"}],"outputs":[
		{"name":"","type":"tuple[]","components":[
			{"name":"courseId","type":"uint256"},
			{"name":"title","type":"string"},
			{"name":"tutor","type":"address"},
			{"name":"tutorName","type":"string"},
			{"name":"isActive","type":"bool"}]}]},
	{"type":"function","name":"getEnrolledCourses","stateMutability":"view","inputs":[
		{"name":"student","type":"address"}],"outputs":[
		{"name":"","type":"tuple[]","components":[
			{"name":"courseId","type":"uint256"},
			{"name":"title","type":"string"},
			{"name":"tutor","type":"address"},
			{"name":"tutorName","type":"string"},
			{"name":"isActive","type":"bool"}]}]},
	{"type":"function","name":"getExam","stateMutability":"view","inputs":[
		{"name":"examId","type":"uint256"}],"outputs":[
		{"name":"","type":"tuple","components":[
			{"name":"examId","type":"uint256"},
			{"name":"courseId","type":"uint256"},
			{"name":"title","type":"string"},
			{"name":"questionCount","type":"uint256"},
			{"name":"isActive","type":"bool"},
			{"name":"creator","type":"address"}]}]},
	{"type":"function","name":"getExamQuestions","stateMutability":"view","inputs":[
		{"name":"examId","type":"uint256"}],"outputs":[
		{"name":"questionTexts","type":"string[]"},
		{"name":"questionOptions","type":"string[4][]"}]},
	{"type":"function","name":"getExamResults","stateMutability":"view","inputs":[
		{"name":"examId","type":"uint256"},
		{"name":"student","type":"address"}],"outputs":[
		{"name":"rawScore","type":"uint256"},
		{"name":"answers","type":"uint256[]"},
		{"name":"isCompleted","type":"bool"}]},
	{"type":"function","name":"getPastExamForRevision","stateMutability":"view","inputs":[
		{"name":"examId","type":"uint256"}],"outputs":[
		{"name":"questionTexts","type":"string[]"},
		{"name":"questionOptions","type":"string[4][]"},
		{"name":"correctAnswers","type":"uint256[]"},
		{"name":"studentAnswers","type":"uint256[]"},
		{"name":"isCorrect","type":"bool[]"},
		{"name":"studentScore","type":"uint256"},
		{"name":"maxScore","type":"uint256"}]},
	{"type":"function","name":"registeredUsers","stateMutability":"view","inputs":[
		{"name":"","type":"address"}],"outputs":[
		{"name":"","type":"bool"}]},
	{"type":"function","name":"users","stateMutability":"view","inputs":[
		{"name":"","type":"address"}],"outputs":[
		{"name":"name","type":"string"},
		{"name":"role","type":"uint8"},
		{"name":"isRegistered","type":"bool"}]}
]`

var (
	abiOnce   sync.Once
	parsedABI abi.ABI
	abiErr    error
)

// parsedCourseABI parses the ABI once; the JSON above is a constant so a
// parse failure is a programming error, not a runtime condition.
func parsedCourseABI() (abi.ABI, error) {
	abiOnce.Do(func() {
		parsedABI, abiErr = abi.JSON(strings.NewReader(courseABI))
	})
	if abiErr != nil {
		return abi.ABI{}, pkgerrors.Wrap(abiErr, "failed to parse course contract ABI")
	}
	return parsedABI, nil
}
