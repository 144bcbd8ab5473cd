package pipeline

// Validation error codes. Codes are the only detail exposed to callers;
// rejected prompt content never leaves the pipeline.
const (
	CodePromptTooLarge = "prompt_too_large"
	CodeEmptyDocument  = "empty_document"

	// injectionCodePrefix prefixes the guard's reason on injection rejections,
	// e.g. "prompt_injection:heuristic_match:instruction-override".
	injectionCodePrefix = "prompt_injection:"
)

// ValidationError rejects a request as malformed or disallowed. It maps to a
// client error at the transport layer, unlike dependency failures.
type ValidationError struct {
	Code string
}

func (e *ValidationError) Error() string {
	return e.Code
}

func newValidationError(code string) *ValidationError {
	return &ValidationError{Code: code}
}
