package types

import "errors"

// Kind enumerates the behavioral error categories used across the
// indexing pipeline. These are behavioral, not exception types: a
// single Go error value carries a Kind via KindError so callers can
// switch on it without string matching.
type Kind int

const (
	// KindInputInvalid marks a validation failure (malformed time
	// range, empty query, out-of-range score). Never retried.
	KindInputInvalid Kind = iota
	// KindNotFound marks a missing repository or collection.
	KindNotFound
	// KindTransientProviderError marks a retryable provider failure.
	KindTransientProviderError
	// KindRateLimited marks a 429-class provider failure.
	KindRateLimited
	// KindPermanentProviderError marks a non-retryable provider failure
	// (auth, bad key).
	KindPermanentProviderError
	// KindTimeout marks a provider future that did not resolve in time.
	KindTimeout
	// KindCancelled marks an operation aborted by the shared
	// cancellation flag.
	KindCancelled
	// KindInvariantViolation marks a broken internal invariant (batch
	// count mismatch, missing chunk_text when not reconstructable).
	// Always raised, never recovered locally.
	KindInvariantViolation
	// KindIOError marks a vector store, git, or filesystem I/O failure.
	KindIOError
	// KindFatal marks exhausted retries.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindInputInvalid:
		return "input_invalid"
	case KindNotFound:
		return "not_found"
	case KindTransientProviderError:
		return "transient"
	case KindRateLimited:
		return "rate_limit"
	case KindPermanentProviderError:
		return "permanent"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindInvariantViolation:
		return "invariant_violation"
	case KindIOError:
		return "io_error"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// KindError wraps an underlying error with its behavioral Kind.
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *KindError) Unwrap() error { return e.Err }

// NewKindError wraps err with the given Kind. Returns nil if err is nil.
func NewKindError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: err}
}

// ErrorKind extracts the Kind from err, or false if err does not carry one.
func ErrorKind(err error) (Kind, bool) {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind, true
	}
	return 0, false
}

// Sentinel errors for common error conditions.
var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProviderNotAvailable is returned when a provider is not available.
	ErrProviderNotAvailable = errors.New("provider not available")

	// ErrIndexNotFound is returned when the index doesn't exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrParseError is returned when parsing fails.
	ErrParseError = errors.New("parse error")

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrSearchFailed is returned when search fails.
	ErrSearchFailed = errors.New("search failed")

	// ErrStoreFailed is returned when store operation fails.
	ErrStoreFailed = errors.New("store operation failed")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("operation timed out")

	// ErrCancelled is returned when an operation is cancelled.
	ErrCancelled = errors.New("operation cancelled")

	// ErrInvariantViolation is returned when an internal invariant is
	// broken (batch count mismatch, missing chunk_text).
	ErrInvariantViolation = errors.New("invariant violation")
)
