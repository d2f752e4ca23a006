package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proofhtf/proofhtf-api/internal/contract"
)

// ExamHandler serves exam reads and exam-related writes.
type ExamHandler struct {
	common *CommonServices
}

// NewExamHandler creates a new ExamHandler
func NewExamHandler(common *CommonServices) *ExamHandler {
	return &ExamHandler{common: common}
}

// QuestionInput is one question in an exam creation request. Exactly four
// options are required; the contract stores them as a fixed-size array.
type QuestionInput struct {
	Text          string   `json:"text" binding:"required"`
	Options       []string `json:"options" binding:"required"`
	CorrectAnswer uint64   `json:"correct_answer"`
}

// CreateExamRequest creates an exam under an existing course.
type CreateExamRequest struct {
	CourseID  string          `json:"course_id" binding:"required"`
	Title     string          `json:"title" binding:"required"`
	Questions []QuestionInput `json:"questions" binding:"required"`
}

// CreateExam submits exam creation on the standard path.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	courseID, ok := parseBigInt(c, req.CourseID)
	if !ok {
		return
	}

	questions := make([]contract.Question, len(req.Questions))
	for i, q := range req.Questions {
		if len(q.Options) != 4 {
			sendError(c, http.StatusBadRequest, "each question needs exactly 4 options", nil)
			return
		}
		if q.CorrectAnswer > 3 {
			sendError(c, http.StatusBadRequest, "correct_answer must be 0-3", nil)
			return
		}
		questions[i] = contract.Question{
			Text:          q.Text,
			Options:       [4]string{q.Options[0], q.Options[1], q.Options[2], q.Options[3]},
			CorrectAnswer: q.CorrectAnswer,
		}
	}

	env := h.common.env
	call, err := env.Calls.CreateExam(courseID, req.Title, questions)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "failed to encode exam creation", err)
		return
	}

	result, err := env.Submitter.SendSingle(c.Request.Context(), call, contract.ScopeExams)
	if err != nil {
		handleChainError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, OperationResponse{
		UserOpHash: result.UserOpHash.Hex(),
		TxHash:     result.TxHash.Hex(),
	})
}

// GetExam returns one exam by id.
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := parseBigInt(c, c.Param("exam_id"))
	if !ok {
		return
	}
	exam, err := h.common.env.Reader.GetExam(c.Request.Context(), examID)
	if err != nil {
		handleChainError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, exam)
}

// GetExamQuestions returns the question set without answers.
func (h *ExamHandler) GetExamQuestions(c *gin.Context) {
	examID, ok := parseBigInt(c, c.Param("exam_id"))
	if !ok {
		return
	}
	questions, err := h.common.env.Reader.GetExamQuestions(c.Request.Context(), examID)
	if err != nil {
		handleChainError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, questions)
}

// GetExamResults returns one student's completed attempt.
func (h *ExamHandler) GetExamResults(c *gin.Context) {
	examID, ok := parseBigInt(c, c.Param("exam_id"))
	if !ok {
		return
	}
	student, ok := parseAddress(c, c.Query("student"))
	if !ok {
		return
	}
	results, err := h.common.env.Reader.GetExamResults(c.Request.Context(), examID, student)
	if err != nil {
		handleChainError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, results)
}

// GetExamRevision returns the post-completion revision view.
func (h *ExamHandler) GetExamRevision(c *gin.Context) {
	examID, ok := parseBigInt(c, c.Param("exam_id"))
	if !ok {
		return
	}
	revision, err := h.common.env.Reader.GetPastExamForRevision(c.Request.Context(), examID)
	if err != nil {
		handleChainError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, revision)
}

// TakeExamRequest submits a student's answers.
type TakeExamRequest struct {
	Answers []uint64 `json:"answers" binding:"required"`
}

// TakeExam submits the attempt on the standard path.
func (h *ExamHandler) TakeExam(c *gin.Context) {
	examID, ok := parseBigInt(c, c.Param("exam_id"))
	if !ok {
		return
	}
	var req TakeExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	env := h.common.env
	call, err := env.Calls.TakeExam(examID, req.Answers)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "failed to encode exam submission", err)
		return
	}

	result, err := env.Submitter.SendSingle(c.Request.Context(), call, contract.ScopeExams)
	if err != nil {
		handleChainError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, OperationResponse{
		UserOpHash: result.UserOpHash.Hex(),
		TxHash:     result.TxHash.Hex(),
	})
}
