package publish

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Typed publish errors enabling structured classification without string
// parsing upstream.

// AuthError indicates the remote rejected our credentials. Permanent.
type AuthError struct {
	Op  string
	URL string
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("%s auth error for %s: %v", e.Op, e.URL, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError indicates the hosting repository does not exist. Permanent.
type NotFoundError struct {
	Op  string
	URL string
	Err error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found %s: %v", e.Op, e.URL, e.Err) }
func (e *NotFoundError) Unwrap() error { return e.Err }

// NetworkTimeoutError indicates the remote operation timed out. Transient,
// retried under the configured backoff policy.
type NetworkTimeoutError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out for %s: %v", e.Op, e.URL, e.Err)
}
func (e *NetworkTimeoutError) Unwrap() error { return e.Err }

// ErrEmptyOutput is returned when the output directory is missing or empty.
var ErrEmptyOutput = errors.New("output directory is missing or empty")

// ErrMissingDomainFile is returned when a domain is configured but the
// domain-mapping file is absent from the output.
var ErrMissingDomainFile = errors.New("domain configured but no CNAME file in output")

// classifyRemoteError wraps remote-operation failures into typed variants
// when possible; anything else stays as-is and is treated as transient.
func classifyRemoteError(op, url string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return &AuthError{Op: op, URL: url, Err: err}
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return &NotFoundError{Op: op, URL: url, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &NetworkTimeoutError{Op: op, URL: url, Err: err}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &NetworkTimeoutError{Op: op, URL: url, Err: err}
	}
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "auth"), strings.Contains(l, "access denied"), strings.Contains(l, "403"):
		return &AuthError{Op: op, URL: url, Err: err}
	case strings.Contains(l, "not found"), strings.Contains(l, "repository does not exist"):
		return &NotFoundError{Op: op, URL: url, Err: err}
	default:
		return err
	}
}

// isPermanent reports whether the error should not be retried.
func isPermanent(err error) bool {
	var ae *AuthError
	var nfe *NotFoundError
	return errors.As(err, &ae) || errors.As(err, &nfe)
}
