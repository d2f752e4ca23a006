package handlers

import (
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proofhtf/proofhtf-api/internal/bundler"
	"github.com/proofhtf/proofhtf-api/internal/contract"
)

// CourseHandler serves course reads and course-creating writes.
type CourseHandler struct {
	common *CommonServices
}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler(common *CommonServices) *CourseHandler {
	return &CourseHandler{common: common}
}

// CreateCourseRequest creates a course, registering the caller as a tutor in
// the same operation when needed.
type CreateCourseRequest struct {
	Title     string `json:"title" binding:"required"`
	TutorName string `json:"tutor_name"`
}

// CreateCourse submits the course creation on the standard path. When the
// acting account is not yet registered, registration and creation go out as
// one atomic batch: both land or neither does.
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	env := h.common.env
	ctx := c.Request.Context()

	createCall, err := env.Calls.CreateCourse(req.Title)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "failed to encode course creation", err)
		return
	}

	calls := []bundler.Call{createCall}

	// The primary smart account is the on-chain actor, so registration is
	// checked against it, not the wallet EOA.
	addresses, err := env.Wallet.RequestAddresses(ctx)
	if err != nil {
		handleChainError(c, err)
		return
	}
	if len(addresses) > 0 {
		if handle, err := env.Accounts.Derive(addresses[0]); err == nil {
			registered, err := env.Reader.IsRegistered(ctx, handle.Address)
			if err == nil && !registered {
				name := req.TutorName
				if name == "" {
					name = "Smart Account Tutor"
				}
				registerCall, err := env.Calls.RegisterUser(name, contract.RoleTutor)
				if err != nil {
					sendError(c, http.StatusInternalServerError, "failed to encode registration", err)
					return
				}
				calls = []bundler.Call{registerCall, createCall}
			}
		}
	}

	result, err := env.Submitter.SendBatch(ctx, calls, contract.ScopeCourses, contract.ScopeUsers)
	if err != nil {
		handleChainError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, OperationResponse{
		UserOpHash: result.UserOpHash.Hex(),
		TxHash:     result.TxHash.Hex(),
	})
}

// ListCourses returns all courses by walking the course counter.
func (h *CourseHandler) ListCourses(c *gin.Context) {
	env := h.common.env
	ctx := c.Request.Context()

	count, err := env.Reader.CourseCount(ctx)
	if err != nil {
		handleChainError(c, err)
		return
	}

	courses := make([]contract.Course, 0, count.Int64())
	one := big.NewInt(1)
	for id := big.NewInt(1); id.Cmp(count) <= 0; id = new(big.Int).Add(id, one) {
		course, err := env.Reader.GetCourse(ctx, id)
		if err != nil {
			handleChainError(c, err)
			return
		}
		courses = append(courses, *course)
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   courses,
	})
}

// GetCourse returns one course by id.
func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID, ok := parseBigInt(c, c.Param("course_id"))
	if !ok {
		return
	}
	course, err := h.common.env.Reader.GetCourse(c.Request.Context(), courseID)
	if err != nil {
		handleChainError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, course)
}

// ListTutorCourses returns the courses created by one tutor.
func (h *CourseHandler) ListTutorCourses(c *gin.Context) {
	tutor, ok := parseAddress(c, c.Param("address"))
	if !ok {
		return
	}
	courses, err := h.common.env.Reader.GetTutorCourses(c.Request.Context(), tutor)
	if err != nil {
		handleChainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   courses,
	})
}

// ListEnrolledCourses returns the courses a student is enrolled in.
func (h *CourseHandler) ListEnrolledCourses(c *gin.Context) {
	student, ok := parseAddress(c, c.Param("address"))
	if !ok {
		return
	}
	courses, err := h.common.env.Reader.GetEnrolledCourses(c.Request.Context(), student)
	if err != nil {
		handleChainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   courses,
	})
}

// Enroll enrolls the acting account in a course on the standard path.
func (h *CourseHandler) Enroll(c *gin.Context) {
	courseID, ok := parseBigInt(c, c.Param("course_id"))
	if !ok {
		return
	}

	env := h.common.env
	call, err := env.Calls.EnrollInCourse(courseID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "failed to encode enrollment", err)
		return
	}

	result, err := env.Submitter.SendSingle(c.Request.Context(), call, contract.ScopeCourses)
	if err != nil {
		handleChainError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, OperationResponse{
		UserOpHash: result.UserOpHash.Hex(),
		TxHash:     result.TxHash.Hex(),
	})
}

// parseBigInt validates a decimal id parameter.
func parseBigInt(c *gin.Context, raw string) (*big.Int, bool) {
	id, ok := new(big.Int).SetString(raw, 10)
	if !ok || id.Sign() <= 0 {
		sendError(c, http.StatusBadRequest, "invalid id", nil)
		return nil, false
	}
	return id, true
}
