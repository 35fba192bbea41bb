package posclient

import (
	"errors"
	"fmt"
)

// RemoteError is a non-success response from the POS backend.
type RemoteError struct {
	// Op is the call that failed: "create" or "settle".
	Op         string `json:"op"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("failed to %s order: %d %s", e.Op, e.StatusCode, e.Message)
}

// Errors for calls made out of order. These are programming errors in the
// caller and are reported before any request is sent.
var (
	ErrSettleBeforeCreate = errors.New("settle requires the server id of a created order")
	ErrNotSettled         = errors.New("settle requires a settled document")
)

// IsRemote reports whether err is, or wraps, a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
