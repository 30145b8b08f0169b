package valuation

import "fmt"

// Error codes surfaced by the valuation domain.
const (
	CodeValidation   = "validation_error"
	CodeNetwork      = "network_error"
	CodeInvalidInput = "invalid_input"
)

// Reasons reported in a failed request state.
const (
	ReasonRequestFailed = "Failed to fetch vehicle valuation"
	ReasonTimeout       = "Valuation request timed out"
	ReasonNoAnalysis    = "No analysis data received from API"
)

// StatusError reports a non-2xx response from the valuation API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed: %d", e.StatusCode)
}
