package tracker

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError means the tracking service could not be reached or the
// exchange was interrupted before a complete response arrived.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("tracker %s %s: network: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError means a response arrived but was not usable: a non-2xx
// status, or a body that is not the expected fish list.
type ProtocolError struct {
	Op         string
	URL        string
	StatusCode int // 0 when the status was fine but the body was not
	Err        error
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tracker %s %s: status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("tracker %s %s: bad body: %v", e.Op, e.URL, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsProtocol reports whether err is (or wraps) a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// Describe turns a fetch failure into the sentence shown in the error banner.
func Describe(err error) string {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return "Could not connect to the fish tracker API. Is the tracking service running? If so, you'd better go catch it."
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		if pe.StatusCode != 0 {
			return fmt.Sprintf("The fish tracker API answered with HTTP %d %s.", pe.StatusCode, http.StatusText(pe.StatusCode))
		}
		return "The fish tracker API returned data that could not be read as a fish list."
	}
	if err == nil {
		return ""
	}
	return "Fish data could not be refreshed: " + err.Error()
}
