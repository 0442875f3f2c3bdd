package truenas

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError carries the HTTP status of a failed backend call. It
// unwraps to ErrUnauthenticated for 401 and ErrUnexpectedStatus
// otherwise, so errors.Is works against the taxonomy sentinels.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return ErrUnexpectedStatus
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
