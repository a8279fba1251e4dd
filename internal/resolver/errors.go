package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category normalizes lookup failures so validators can tell an unreachable
// peer apart from a definitive answer.
type Category string

const (
	// CategoryNetwork means the peer could not be reached or timed out.
	CategoryNetwork Category = "network"

	// CategoryBadResponse means the peer answered with an unusable payload or status.
	CategoryBadResponse Category = "bad_response"

	// CategoryNotFound means the peer definitively reported the resource absent.
	CategoryNotFound Category = "not_found"
)

// LookupError wraps a failed resolver call with its category and target.
type LookupError struct {
	Category Category
	Target   string
	Message  string
	Cause    error
}

func (e *LookupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("lookup %s [%s]: %s: %v", e.Target, e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("lookup %s [%s]: %s", e.Target, e.Category, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}

// NewLookupError builds a categorized lookup failure.
func NewLookupError(category Category, target, message string, cause error) *LookupError {
	return &LookupError{Category: category, Target: target, Message: message, Cause: cause}
}

// CategoryOf extracts the failure category. Uncategorized transport errors
// and deadlines count as network failures; anything else is a bad response.
func CategoryOf(err error) Category {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return CategoryNetwork
	}
	return CategoryBadResponse
}

// IsNetwork reports whether err is a network-class lookup failure.
func IsNetwork(err error) bool {
	return err != nil && CategoryOf(err) == CategoryNetwork
}
