package remote

import "fmt"

// TransportError is returned for every failed exchange with the service: a request that
// could not be sent, a non-2xx status, or a body that does not decode.
type TransportError struct {
	Op     string
	URL    string
	Status int // zero when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
