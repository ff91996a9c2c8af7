package x402

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind separates bad requests from rejected payments.
type Kind int

const (
	KindMalformedInput Kind = iota + 1
	KindReplayRejected
	KindVerificationFailed
)

var (
	ErrMalformedInput     = errors.New("x402_malformed_payment_header")
	ErrReplayRejected     = errors.New("x402_replay_rejected")
	ErrVerificationFailed = errors.New("x402_verification_failed")

	// ErrDuplicateAttempt is returned by an AttemptStore when an insert hits
	// one of the (wallet, requestNonce) / (wallet, idempotencyKey) constraints.
	ErrDuplicateAttempt = errors.New("duplicate_payment_attempt")
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code(), e.Message)
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindMalformedInput:
		return ErrMalformedInput
	case KindReplayRejected:
		return ErrReplayRejected
	case KindVerificationFailed:
		return ErrVerificationFailed
	default:
		return nil
	}
}

// Code is the stable machine-readable code surfaced to clients.
func (e *Error) Code() string {
	if inner := e.Unwrap(); inner != nil {
		return inner.Error()
	}
	return "x402_error"
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMalformedInput:
		return http.StatusBadRequest
	case KindReplayRejected:
		return http.StatusConflict
	case KindVerificationFailed:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func malformed(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedInput, Message: fmt.Sprintf(format, args...)}
}

func replayRejected(format string, args ...any) *Error {
	return &Error{Kind: KindReplayRejected, Message: fmt.Sprintf(format, args...)}
}

func verificationFailed(format string, args ...any) *Error {
	return &Error{Kind: KindVerificationFailed, Message: fmt.Sprintf(format, args...)}
}
