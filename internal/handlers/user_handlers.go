package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proofhtf/proofhtf-api/internal/contract"
)

// UserHandler serves user registration and lookups.
type UserHandler struct {
	common *CommonServices
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(common *CommonServices) *UserHandler {
	return &UserHandler{common: common}
}

// RegisterUserRequest registers the acting account on chain.
type RegisterUserRequest struct {
	Name string `json:"name" binding:"required"`
	Role string `json:"role" binding:"required"`
}

// RegisterUser submits the registration on the standard path.
func (h *UserHandler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var role contract.Role
	switch req.Role {
	case "student":
		role = contract.RoleStudent
	case "tutor":
		role = contract.RoleTutor
	default:
		sendError(c, http.StatusBadRequest, "role must be student or tutor", nil)
		return
	}

	env := h.common.env
	call, err := env.Calls.RegisterUser(req.Name, role)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "failed to encode registration", err)
		return
	}

	result, err := env.Submitter.SendSingle(c.Request.Context(), call, contract.ScopeUsers)
	if err != nil {
		handleChainError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, OperationResponse{
		UserOpHash: result.UserOpHash.Hex(),
		TxHash:     result.TxHash.Hex(),
	})
}

// GetUser returns the on-chain user record for an address.
func (h *UserHandler) GetUser(c *gin.Context) {
	address, ok := parseAddress(c, c.Param("address"))
	if !ok {
		return
	}
	user, err := h.common.env.Reader.GetUser(c.Request.Context(), address)
	if err != nil {
		handleChainError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, user)
}

// GetSmartAccount returns the counterfactual smart account for an owner.
func (h *UserHandler) GetSmartAccount(c *gin.Context) {
	owner, ok := parseAddress(c, c.Param("address"))
	if !ok {
		return
	}
	handle, err := h.common.env.Accounts.Derive(owner)
	if err != nil {
		sendError(c, http.StatusServiceUnavailable, "smart account inputs not ready", err)
		return
	}
	sendSuccess(c, http.StatusOK, gin.H{
		"owner":   handle.Owner.Hex(),
		"address": handle.Address.Hex(),
	})
}
