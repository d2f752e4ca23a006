package handlers

import (
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proofhtf/proofhtf-api/internal/bundler"
	"github.com/proofhtf/proofhtf-api/internal/contract"
)

// TipHandler sends native-value tips from the session account. Tips are the
// canonical session-path operation: no wallet prompt once a session exists.
type TipHandler struct {
	common *CommonServices
}

// NewTipHandler creates a new TipHandler
func NewTipHandler(common *CommonServices) *TipHandler {
	return &TipHandler{common: common}
}

// TipRequest sends amount_wei to the recipient.
type TipRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	AmountWei string `json:"amount_wei" binding:"required"`
}

// SendTip submits the tip under the active session. Without a session the
// grant flow runs and a 202 tells the client to repeat the request.
func (h *TipHandler) SendTip(c *gin.Context) {
	var req TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	recipient, ok := parseAddress(c, req.Recipient)
	if !ok {
		return
	}
	amount, ok := new(big.Int).SetString(req.AmountWei, 10)
	if !ok || amount.Sign() <= 0 {
		sendError(c, http.StatusBadRequest, "invalid amount_wei", nil)
		return
	}

	result, err := h.common.env.Submitter.SendUnderSession(
		c.Request.Context(),
		[]bundler.Call{contract.Tip(recipient, amount)},
		contract.ScopeUsers)
	if err != nil {
		handleChainError(c, err)
		return
	}

	sendSuccess(c, http.StatusOK, OperationResponse{
		UserOpHash: result.UserOpHash.Hex(),
		TxHash:     result.TxHash.Hex(),
	})
}
