package trainer

import (
	"errors"
	"fmt"
)

// StatusError is returned when the trainer responds with a status
// other than 200 OK
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (s *StatusError) Error() string {
	if s.Body == "" {
		return fmt.Sprintf("%v %v: status %d", s.Method, s.Path, s.Code)
	}
	return fmt.Sprintf("%v %v: status %d: %v", s.Method, s.Path, s.Code,
		s.Body)
}

// IsStatus returns whether err was caused by an unexpected trainer
// status code
func IsStatus(err error) bool {
	var s *StatusError
	return errors.As(err, &s)
}
