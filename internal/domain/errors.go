package domain

import "errors"

// Error kinds surfaced by the mutation and refresh paths.
// Call sites wrap them with context; callers match with errors.Is.
var (
	// ErrValidation means the input was malformed. The caller can fix it.
	ErrValidation = errors.New("validation error")

	// ErrDuplicate means the owner already has a live bookmark with this URL.
	ErrDuplicate = errors.New("bookmark already exists")

	// ErrNotFoundOrForbidden means no row matched both id and owner.
	// A concurrent delete produces it too, so it is not fatal.
	ErrNotFoundOrForbidden = errors.New("bookmark not found or not owned")

	// ErrTransient covers any failure talking to the backing store or identity source.
	ErrTransient = errors.New("transient network error")

	// ErrUnauthenticated means there is no active session to scope the request to.
	ErrUnauthenticated = errors.New("no active session")
)

// Kind returns a stable name for the error kind wrapped in err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrNotFoundOrForbidden):
		return "not_found_or_forbidden"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "internal"
	}
}
