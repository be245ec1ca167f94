package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey means the selected provider has no credential configured.
	ErrMissingAPIKey = errors.New("llm api key is not configured")

	// ErrUnknownProvider means the configured provider name is not supported.
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// ProviderError carries the upstream HTTP status so callers can decide
// between surfacing a client mistake, falling back, or failing hard.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.Status, e.Message)
}

func IsRateLimit(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Status == 429
}

func IsBadRequest(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Status == 400
}

func IsAuth(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return errors.Is(err, ErrMissingAPIKey)
	}
	return pe.Status == 401 || pe.Status == 403
}
