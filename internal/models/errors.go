package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput signals that no usable text was found in the input.
	ErrEmptyInput = errors.New("no usable text in input")

	// ErrExtraction signals an unreadable, corrupted or encrypted file.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbedding signals a failure of the embedding function.
	ErrEmbedding = errors.New("embedding failed")

	// ErrUploadTooLarge signals a document over the configured size
	// limit, rejected before extraction is attempted.
	ErrUploadTooLarge = errors.New("document exceeds size limit")

	// ErrAuthentication signals a missing or provider-rejected credential.
	ErrAuthentication = errors.New("credential missing or rejected")

	// ErrRateLimit signals provider throttling.
	ErrRateLimit = errors.New("provider rate limit exceeded")

	// ErrModelNotFound signals an unsupported model name.
	ErrModelNotFound = errors.New("model not found")

	// ErrProviderTimeout signals a model call that exceeded its deadline.
	ErrProviderTimeout = errors.New("provider call timed out")

	// ErrParse signals undecodable structured output from the model.
	// It never propagates past the analyzer; callers degrade instead.
	ErrParse = errors.New("malformed model output")
)

// IngestionError wraps whatever step of ingestion failed. The cause is
// preserved for errors.Is/As.
type IngestionError struct {
	Cause error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed: %v", e.Cause)
}

func (e *IngestionError) Unwrap() error { return e.Cause }

// UserMessage maps provider-side failures to short renderable strings.
// Query and analysis callers embed these in the normal response shape
// instead of surfacing a transport error.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrAuthentication):
		return "Error: the API key is missing, invalid, or was rejected by the provider."
	case errors.Is(err, ErrRateLimit):
		return "Error: the provider is rate limiting requests. Please try again shortly."
	case errors.Is(err, ErrModelNotFound):
		return "Error: the requested model is not available for this API key."
	case errors.Is(err, ErrProviderTimeout):
		return "Error: the model did not respond in time. Please try again."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
