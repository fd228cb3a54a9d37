package upstream

import "fmt"

// StatusError is returned by a Transport when the host answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// NotFoundError reports that the upstream resource does not exist. It is never retried.
type NotFoundError struct {
	Host     string
	Endpoint string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: resource not found: %s", e.Host, e.Endpoint)
}

// TransientError is a retryable failure: any non-404 status or a connection error.
type TransientError struct {
	Host       string
	Endpoint   string
	StatusCode int // 0 for connection and timeout errors
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d on %s", e.Host, e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("%s: request to %s failed: %v", e.Host, e.Endpoint, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ExhaustedRetriesError wraps the last transient failure once every attempt is spent.
type ExhaustedRetriesError struct {
	Host     string
	Endpoint string
	Attempts int
	Last     *TransientError
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Last
}
