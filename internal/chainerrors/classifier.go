// Package chainerrors classifies the raw failures surfaced by the bundler,
// the entry point, and the wallet into actionable kinds. Raw messages are
// preserved alongside the classification so nothing is lost for debugging.
package chainerrors

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Kind is the coarse failure category.
type Kind string

const (
	// KindInsufficientFunds means the paying account cannot cover prefund or
	// value. The message names the exact address to top up.
	KindInsufficientFunds Kind = "insufficient_funds"

	// KindExecutionReverted means the target contract rejected the call.
	KindExecutionReverted Kind = "execution_reverted"

	// KindPermissionDenied means the user rejected a wallet prompt.
	KindPermissionDenied Kind = "permission_denied"

	// KindSessionExpired means the session is missing, expired, or bound to a
	// different signer; a new permission grant is required.
	KindSessionExpired Kind = "session_expired"

	// KindNetwork covers transport failures and receipt timeouts. The
	// operation may still land on chain; the caller must not assume failure.
	KindNetwork Kind = "network_error"

	// KindUnknown is everything not matched by a more specific rule.
	KindUnknown Kind = "unknown"
)

// Reason refines a Kind with the specific contract-level cause where one is
// recognizable from the revert payload.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonAlreadyRegistered Reason = "already_registered"
	ReasonNotATutor         Reason = "not_a_tutor"
	ReasonSpendingLimit     Reason = "spending_limit"
)

// ChainError is a classified failure.
type ChainError struct {
	Kind    Kind
	Reason  Reason
	Message string
	Raw     error
}

func (e *ChainError) Error() string {
	return e.Message
}

func (e *ChainError) Unwrap() error {
	return e.Raw
}

// Revert strings emitted by the course contract. Bundlers frequently return
// revert data hex-encoded rather than decoded, so both forms are matched.
var (
	alreadyRegisteredText = "already registered"
	alreadyRegisteredHex  = hex.EncodeToString([]byte("Already registered"))
	notATutorText         = "not a tutor"
	notATutorHex          = hex.EncodeToString([]byte("Not a tutor"))
)

// prefundMarkers identify entry point prefund failures. 0xb5863604 is the
// selector of the delegation manager's insufficient-balance revert.
var prefundMarkers = []string{
	"aa21",
	"didn't pay prefund",
	"prefund",
	"insufficient funds",
	"0xb5863604",
}

// Classify maps err onto a ChainError. fundingAddress is the account that
// would need topping up if the failure is funds-related; it may be the zero
// address when unknown.
func Classify(err error, fundingAddress common.Address) *ChainError {
	if err == nil {
		return nil
	}

	var ce *ChainError
	if errors.As(err, &ce) {
		return ce
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case containsAny(lower, alreadyRegisteredText, strings.ToLower(alreadyRegisteredHex)):
		return &ChainError{
			Kind:    KindExecutionReverted,
			Reason:  ReasonAlreadyRegistered,
			Message: "this account is already registered",
			Raw:     err,
		}

	case containsAny(lower, notATutorText, strings.ToLower(notATutorHex)):
		return &ChainError{
			Kind:    KindExecutionReverted,
			Reason:  ReasonNotATutor,
			Message: "this account is not registered as a tutor",
			Raw:     err,
		}

	case strings.Contains(lower, "period limit"):
		return &ChainError{
			Kind:    KindExecutionReverted,
			Reason:  ReasonSpendingLimit,
			Message: "session spending limit reached for the current period",
			Raw:     err,
		}

	case containsAny(lower, prefundMarkers...):
		m := "insufficient funds to cover the operation"
		if fundingAddress != (common.Address{}) {
			m = fmt.Sprintf("insufficient funds: send ETH to %s and retry", fundingAddress.Hex())
		}
		return &ChainError{
			Kind:    KindInsufficientFunds,
			Message: m,
			Raw:     err,
		}

	case strings.Contains(lower, "execution reverted") || strings.Contains(lower, "aa23"):
		return &ChainError{
			Kind:    KindExecutionReverted,
			Message: "transaction reverted on chain",
			Raw:     err,
		}

	case containsAny(lower, "timeout", "deadline exceeded", "connection refused", "no such host", "eof"):
		return &ChainError{
			Kind:    KindNetwork,
			Message: "network error while submitting the operation; it may still confirm",
			Raw:     err,
		}
	}

	return &ChainError{
		Kind:    KindUnknown,
		Message: msg,
		Raw:     err,
	}
}

// PermissionDenied builds the classification for a rejected wallet prompt.
func PermissionDenied(err error) *ChainError {
	return &ChainError{
		Kind:    KindPermissionDenied,
		Message: "wallet request was rejected",
		Raw:     err,
	}
}

// SessionExpired builds the classification for a missing or unusable session.
func SessionExpired(detail string) *ChainError {
	msg := "no active session; approve a new session in your wallet"
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, detail)
	}
	return &ChainError{
		Kind:    KindSessionExpired,
		Message: msg,
	}
}

// NetworkTimeout builds the classification for a receipt wait that gave up.
func NetworkTimeout(opHash common.Hash) *ChainError {
	return &ChainError{
		Kind:    KindNetwork,
		Message: fmt.Sprintf("timed out waiting for receipt of %s; the operation may still confirm", opHash.Hex()),
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
