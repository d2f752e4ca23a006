package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proofhtf/proofhtf-api/internal/session"
	"github.com/proofhtf/proofhtf-api/internal/wallet"
)

// SessionHandler exposes the session lifecycle: establish, inspect, revoke.
type SessionHandler struct {
	common *CommonServices
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(common *CommonServices) *SessionHandler {
	return &SessionHandler{common: common}
}

// SessionResponse describes the active session.
type SessionResponse struct {
	OwnerAddress          string `json:"owner_address"`
	SessionAccountAddress string `json:"session_account_address"`
	SignerAddress         string `json:"signer_address"`
	DelegationManager     string `json:"delegation_manager"`
	PeriodAmountWei       string `json:"period_amount_wei"`
	PeriodDurationSeconds uint64 `json:"period_duration_seconds"`
	Expiry                int64  `json:"expiry"`
}

// CreateSession runs the permission grant flow against the connected wallet.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	env := h.common.env

	addresses, err := env.Wallet.RequestAddresses(c.Request.Context())
	if err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			sendError(c, http.StatusForbidden, "wallet connection was rejected", err)
			return
		}
		handleChainError(c, err)
		return
	}
	if len(addresses) == 0 {
		sendError(c, http.StatusBadGateway, "wallet has no accounts", nil)
		return
	}

	sess, err := env.Broker.RequestSession(c.Request.Context(), addresses[0])
	if err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			sendError(c, http.StatusForbidden, "permission request was rejected", err)
			return
		}
		handleChainError(c, err)
		return
	}

	sendSuccess(c, http.StatusCreated, sessionResponse(sess))
}

// GetSession returns the active session, or 404 when none exists.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.common.env.Sessions.Load()
	if err != nil {
		sendError(c, http.StatusInternalServerError, "failed to load session", err)
		return
	}
	if sess == nil {
		sendError(c, http.StatusNotFound, "no active session", nil)
		return
	}
	sendSuccess(c, http.StatusOK, sessionResponse(sess))
}

// DeleteSession clears the stored session. With reset_signer=true the local
// signer key is discarded as well, giving the next session a new identity.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	env := h.common.env

	if err := env.Broker.Revoke(); err != nil {
		sendError(c, http.StatusInternalServerError, "failed to clear session", err)
		return
	}
	if c.Query("reset_signer") == "true" {
		if err := env.Signers.Clear(); err != nil {
			sendError(c, http.StatusInternalServerError, "failed to clear signer", err)
			return
		}
	}
	sendSuccess(c, http.StatusOK, SuccessResponse{Message: "session cleared"})
}

func sessionResponse(sess *session.Session) SessionResponse {
	return SessionResponse{
		OwnerAddress:          sess.OwnerAddress.Hex(),
		SessionAccountAddress: sess.SessionAccountAddress.Hex(),
		SignerAddress:         sess.Grant.SignerAddress.Hex(),
		DelegationManager:     sess.Grant.DelegationManager.Hex(),
		PeriodAmountWei:       sess.Grant.PeriodAmount.String(),
		PeriodDurationSeconds: sess.Grant.PeriodDuration,
		Expiry:                sess.Expiry,
	}
}
