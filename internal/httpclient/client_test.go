package httpclient

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	calls    int
	failures int
	err      error
	bodies   []string
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		s.bodies = append(s.bodies, string(b))
	}
	if s.calls <= s.failures {
		return nil, s.err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Header: http.Header{}}, nil
}

func dialError() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: &net.AddrError{Err: "connection refused"}}
}

func TestRetryTransport_RetriesDialErrors(t *testing.T) {
	stub := &stubTransport{failures: 2, err: dialError()}
	rt := &retryTransport{next: stub, retries: 3}

	req, err := http.NewRequest(http.MethodPost, "http://example.test/x", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, stub.calls)
	assert.Equal(t, []string{`{"a":1}`, `{"a":1}`, `{"a":1}`}, stub.bodies)
}

func TestRetryTransport_GivesUpAfterLimit(t *testing.T) {
	stub := &stubTransport{failures: 10, err: dialError()}
	rt := &retryTransport{next: stub, retries: 3}

	req, err := http.NewRequest(http.MethodGet, "http://example.test/x", http.NoBody)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 4, stub.calls)
}

func TestRetryTransport_DoesNotRetryOtherErrors(t *testing.T) {
	stub := &stubTransport{failures: 1, err: io.ErrUnexpectedEOF}
	rt := &retryTransport{next: stub, retries: 3}

	req, err := http.NewRequest(http.MethodGet, "http://example.test/x", http.NoBody)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 1, stub.calls)
}

func TestRetryTransport_DoesNotRetryStatusCodes(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.True(t, strings.HasPrefix(r.UserAgent(), "slackqa/"))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	resp, err := New(DefaultRetries).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestShared_IsSingleton(t *testing.T) {
	t.Cleanup(Close)

	a := Shared()
	b := Shared()
	assert.Same(t, a, b)

	Close()
	c := Shared()
	assert.NotSame(t, a, c)
}

func TestCheckStatus(t *testing.T) {
	ok := &http.Response{StatusCode: http.StatusCreated, Body: http.NoBody}
	assert.NoError(t, CheckStatus("supabase", ok))

	bad := &http.Response{
		StatusCode: http.StatusBadGateway,
		Body:       io.NopCloser(strings.NewReader("boom")),
		Header:     http.Header{"Retry-After": []string{"3"}},
	}
	err := CheckStatus("supabase", bad)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "boom", statusErr.Body)
	assert.Equal(t, "3", statusErr.Header.Get("Retry-After"))
	assert.Contains(t, err.Error(), "supabase returned status 502")
}
