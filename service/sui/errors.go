package sui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrorKind classifies transport failures for the caller.
type ErrorKind int

const (
	ErrorConnectivity ErrorKind = iota
	ErrorTimeout
	ErrorNotFound
	ErrorRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorTimeout:
		return "timeout"
	case ErrorNotFound:
		return "not_found"
	case ErrorRateLimited:
		return "rate_limited"
	default:
		return "connectivity"
	}
}

// FetchError is the only error the interpretation engine surfaces for a
// failed fetch. Error() returns a message suitable for end users.
type FetchError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// ErrInvalidDigest is returned before any network call for malformed digests.
var ErrInvalidDigest = errors.New("invalid transaction digest")

var (
	rateLimitMarkers = []string{"too many requests", "rate limit"}
	notFoundMarkers  = []string{"could not find", "not found", "does not exist", "notexists"}
	timeoutMarkers   = []string{"timeout", "timed out", "deadline exceeded"}

	// Status codes must stand alone; digests and object IDs embed digit runs.
	rateLimitStatus = regexp.MustCompile(`\b429\b`)
	notFoundStatus  = regexp.MustCompile(`\b404\b`)
)

var kindMessages = map[ErrorKind]string{
	ErrorTimeout:      "the network is responding slowly; the transaction could not be fetched in time",
	ErrorNotFound:     "transaction not found; check the digest and network",
	ErrorRateLimited:  "the RPC provider is rate limiting requests; try again shortly",
	ErrorConnectivity: "could not connect to the RPC provider",
}

// Classify maps a transport error onto a FetchError by inspecting its text.
// Errors that are already classified are returned as-is.
func Classify(err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	msg := strings.ToLower(err.Error())
	kind := ErrorConnectivity
	switch {
	case containsAny(msg, rateLimitMarkers) || rateLimitStatus.MatchString(msg):
		kind = ErrorRateLimited
	case containsAny(msg, notFoundMarkers) || notFoundStatus.MatchString(msg):
		kind = ErrorNotFound
	case errors.Is(err, context.DeadlineExceeded) || containsAny(msg, timeoutMarkers):
		kind = ErrorTimeout
	}
	return &FetchError{Kind: kind, Message: kindMessages[kind], Cause: err}
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind ErrorKind) bool {
	fe := Classify(err)
	return fe != nil && fe.Kind == kind
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func invalidDigest(digest string, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidDigest, digest, reason)
}
