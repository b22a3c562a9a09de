package httpclient

import (
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of an upstream error body is kept for logging.
const maxErrorBody = 4 << 10

// StatusError is returned when an upstream answers with a non-2xx status.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
	Header     http.Header
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// CheckStatus returns a *StatusError for non-2xx responses and nil otherwise.
// The response body is consumed on error.
func CheckStatus(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Body:       string(b),
		Header:     resp.Header.Clone(),
	}
}
