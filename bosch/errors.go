package bosch

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain-specific errors for gateway operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrPathNotFound is returned when the gateway does not expose a path.
	ErrPathNotFound = errors.New("bosch: path not found")

	// ErrForbidden is returned when the gateway refuses access to a path.
	ErrForbidden = errors.New("bosch: path forbidden")

	// ErrRequestFailed is returned for any other non-success reply.
	ErrRequestFailed = errors.New("bosch: request failed")

	// ErrDecrypt is returned when a payload cannot be decrypted, usually
	// because of a wrong token or password.
	ErrDecrypt = errors.New("bosch: cannot decrypt payload")

	// ErrNoKeyMaterial is returned for a family without built-in magic
	// when none was supplied.
	ErrNoKeyMaterial = errors.New("bosch: no key material for device, pass --magic")

	// ErrConnectionClosed is returned when the transport went away while
	// a request was in flight.
	ErrConnectionClosed = errors.New("bosch: connection closed")
)

// statusError maps an HTTP-style status code to an error, nil for 200.
func statusError(code int, path string) error {
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, path)
	default:
		return fmt.Errorf("%w: %s: status %d", ErrRequestFailed, path, code)
	}
}
