package handlers

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/proofhtf/proofhtf-api/internal/chainenv"
	"github.com/proofhtf/proofhtf-api/internal/chainerrors"
	"github.com/proofhtf/proofhtf-api/internal/logger"
	"github.com/proofhtf/proofhtf-api/internal/submitter"
	"go.uber.org/zap"
)

// CommonServices holds the shared dependencies used across handlers.
type CommonServices struct {
	env *chainenv.Environment
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// OperationResponse reports a confirmed submission.
type OperationResponse struct {
	UserOpHash string `json:"user_op_hash"`
	TxHash     string `json:"tx_hash"`
}

// NewCommonServices creates a new instance of CommonServices
func NewCommonServices(env *chainenv.Environment) *CommonServices {
	return &CommonServices{env: env}
}

// sendError is a helper function that combines logging and error response
func sendError(c *gin.Context, statusCode int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// sendSuccess is a helper function that sends a success response
func sendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// handleChainError maps a classified chain failure onto an HTTP status. The
// two-phase session flow surfaces as 202: the session is now established and
// the client repeats the request.
func handleChainError(c *gin.Context, err error) {
	if errors.Is(err, submitter.ErrSessionEstablished) {
		c.JSON(http.StatusAccepted, SuccessResponse{
			Message: "session established, repeat the request to submit",
		})
		return
	}

	ce := chainerrors.Classify(err, common.Address{})

	status := http.StatusInternalServerError
	switch ce.Kind {
	case chainerrors.KindInsufficientFunds:
		status = http.StatusPaymentRequired
	case chainerrors.KindExecutionReverted:
		status = http.StatusConflict
	case chainerrors.KindPermissionDenied:
		status = http.StatusForbidden
	case chainerrors.KindSessionExpired:
		status = http.StatusUnauthorized
	case chainerrors.KindNetwork:
		status = http.StatusGatewayTimeout
	}

	logger.Error("Chain operation failed",
		zap.String("kind", string(ce.Kind)),
		zap.String("reason", string(ce.Reason)),
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)
	c.JSON(status, ErrorResponse{
		Error:  ce.Message,
		Kind:   string(ce.Kind),
		Reason: string(ce.Reason),
	})
}

// parseAddress validates a hex address path or query parameter.
func parseAddress(c *gin.Context, raw string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		sendError(c, http.StatusBadRequest, "invalid address", nil)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}
