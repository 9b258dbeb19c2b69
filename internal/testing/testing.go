// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"
)

// MockRoundTripper returns the same canned HTTP response for every request.
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// ScriptedRoundTripper replays a fixed sequence of responses and records the
// requests it saw. Used to exercise retry behavior (e.g. 429 then 200).
type ScriptedRoundTripper struct {
	mu        sync.Mutex
	responses []*http.Response
	Requests  []*http.Request
}

func NewScriptedRoundTripper(responses ...*http.Response) *ScriptedRoundTripper {
	return &ScriptedRoundTripper{responses: responses}
}

func (s *ScriptedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)
	if len(s.responses) == 0 {
		return nil, errors.New("scripted round tripper exhausted")
	}

	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

// Calls returns how many requests the script has served.
func (s *ScriptedRoundTripper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}

// Response builds an *http.Response with the given status, headers and body.
func Response(status int, header http.Header, body string) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

// FWriter always returns an error on Write.
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
