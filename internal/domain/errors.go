package domain

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrTransport         = errors.New("network error")
	ErrNoAddressSelected = errors.New("no shipping address selected")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrStockIssues       = errors.New("some items exceed available stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrForbidden         = errors.New("admins only")
	ErrUpdateInProgress  = errors.New("an update for this item is already in progress")
	ErrSuperseded        = errors.New("superseded by a newer request")
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

// Is lets errors.Is match the auth and not-found sentinels by status.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// ValidationError is reported per field before any request is sent.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// UserMessage turns any store error into the human string the UI renders.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrTransport):
		return "Could not reach the server. Please try again."
	case errors.Is(err, ErrUnauthenticated):
		return "Please log in to continue."
	}
	return err.Error()
}
