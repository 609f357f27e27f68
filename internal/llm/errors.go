package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Veraticus/pnl-categorizer/internal/common"
)

// ErrorKind classifies a pass 2 failure.
type ErrorKind string

// Provider failure kinds.
const (
	KindTimeout           ErrorKind = "timeout"
	KindRateLimit         ErrorKind = "rate_limit"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindInvalidCategory   ErrorKind = "invalid_category"
	KindHTTPStatus        ErrorKind = "http_status"
	KindTransport         ErrorKind = "transport"
)

// Parse failures returned by ParseCategorization.
var (
	ErrMalformedResponse = errors.New("malformed categorization response")
	ErrInvalidCategory   = errors.New("category not in allowed set")
)

// ProviderError is the typed failure of a pass 2 call.
type ProviderError struct {
	Err        error
	Kind       ErrorKind
	Provider   string
	StatusCode int
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is matches common.ErrProviderFailure for every kind and common.ErrRateLimit for rate limits.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case common.ErrProviderFailure:
		return true
	case common.ErrRateLimit:
		return e.Kind == KindRateLimit
	}
	return false
}

// Temporary reports whether repeating the call could succeed.
func (e *ProviderError) Temporary() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimit, KindTransport:
		return true
	case KindHTTPStatus:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func statusError(provider string, status int, body []byte) *ProviderError {
	kind := KindHTTPStatus
	if status == http.StatusTooManyRequests {
		kind = KindRateLimit
	}
	return &ProviderError{
		Kind:       kind,
		Provider:   provider,
		StatusCode: status,
		Err:        fmt.Errorf("API error: %s", truncateBody(body)),
	}
}

func transportError(provider string, err error) *ProviderError {
	kind := KindTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &ProviderError{Kind: kind, Provider: provider, Err: err}
}

func malformedError(provider string, err error) *ProviderError {
	return &ProviderError{Kind: KindMalformedResponse, Provider: provider, Err: err}
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
