package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v59/github"
)

// ErrorKind classifies a remote failure so callers can decide
// how to report it without string matching
type ErrorKind string

const (
	// KindAuth indicates the token was rejected or lacks access
	KindAuth ErrorKind = "auth"
	// KindNotFound indicates the repository, branch or file does not exist
	KindNotFound ErrorKind = "not_found"
	// KindRateLimit indicates the API quota is exhausted
	KindRateLimit ErrorKind = "rate_limit"
	// KindNetwork indicates a transport level failure (DNS, timeout, connection)
	KindNetwork ErrorKind = "network"
	// KindMalformed indicates the API returned a payload that could not be decoded
	KindMalformed ErrorKind = "malformed"
	// KindTooLarge indicates every content retrieval tier failed for a file
	KindTooLarge ErrorKind = "too_large"
)

// RemoteError is a classified error from the GitHub API
type RemoteError struct {
	Op         string
	Kind       ErrorKind
	Message    string
	StatusCode int
	// ResetAt is set for rate limit errors when the API reported a reset time
	ResetAt time.Time
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("github: %s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or KindNetwork when err is not
// a RemoteError (bare transport errors surface that way)
func KindOf(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindNetwork
}

// IsKind reports whether err carries the given classification
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// classify maps a go-github error or raw transport error to a RemoteError
func classify(op string, err error) *RemoteError {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &RemoteError{
			Op:         op,
			Kind:       KindRateLimit,
			Message:    "API rate limit exceeded",
			StatusCode: http.StatusForbidden,
			ResetAt:    rateErr.Rate.Reset.Time,
			Err:        err,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		re := &RemoteError{
			Op:         op,
			Kind:       KindRateLimit,
			Message:    "secondary rate limit exceeded",
			StatusCode: http.StatusForbidden,
			Err:        err,
		}
		if abuseErr.RetryAfter != nil {
			re.ResetAt = time.Now().Add(*abuseErr.RetryAfter)
		}
		return re
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return classifyStatus(op, respErr.Response.StatusCode, respErr.Message, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &RemoteError{Op: op, Kind: KindNetwork, Message: "request cancelled or timed out", Err: err}
	}

	return &RemoteError{Op: op, Kind: KindNetwork, Message: "request failed", Err: err}
}

// classifyStatus maps an HTTP status code to an ErrorKind
func classifyStatus(op string, status int, message string, err error) *RemoteError {
	re := &RemoteError{Op: op, Message: message, StatusCode: status, Err: err}
	switch {
	case status == http.StatusUnauthorized:
		re.Kind = KindAuth
	case status == http.StatusForbidden:
		// 403 covers both permission denial and rate limiting; the
		// typed rate limit errors are handled before we get here
		if strings.Contains(strings.ToLower(message), "rate limit") {
			re.Kind = KindRateLimit
		} else {
			re.Kind = KindAuth
		}
	case status == http.StatusNotFound:
		re.Kind = KindNotFound
	case status >= 500:
		re.Kind = KindNetwork
	default:
		re.Kind = KindMalformed
	}
	if re.Message == "" {
		re.Message = http.StatusText(status)
	}
	return re
}
