package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vagledaren/vagledaren/internal/fault"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(testLogger(), HTTPConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})
}

func TestComplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.False(t, req.Stream)

		w.Write([]byte(`{"choices":[{"message":{"content":"Hej! Här är mitt råd."}}],
			"usage":{"prompt_tokens":50,"completion_tokens":10,"total_tokens":60}}`))
	})

	out, err := c.Complete(context.Background(), "test prompt")
	require.NoError(t, err)
	assert.Equal(t, "Hej! Här är mitt råd.", out)
}

func TestComplete_ErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		wantCode  fault.Code
		wantRetry bool
	}{
		{http.StatusTooManyRequests, fault.CodeRateLimited, true},
		{http.StatusServiceUnavailable, fault.CodeServiceOverloaded, true},
		{http.StatusUnauthorized, fault.CodeAuthentication, false},
		{http.StatusBadRequest, fault.CodeInput, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.Complete(context.Background(), "prompt")
			require.Error(t, err)
			assert.True(t, fault.IsCode(err, tt.wantCode))
			assert.Equal(t, tt.wantRetry, fault.CanRetry(err))
		})
	}
}

func TestComplete_EmptyResponseIsRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})
	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, fault.CanRetry(err))
}

func TestCompleteStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hej \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"du!\"}}]}\n\n")
		fmt.Fprint(w, ": keepalive comment\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := c.CompleteStream(context.Background(), "prompt")
	require.NoError(t, err)

	out, err := stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "Hej du!", out)
}

func TestStream_RecvAfterEOF(t *testing.T) {
	s := NewStream(func() (string, error) { return "", io.EOF }, nil)
	_, err := s.Recv()
	assert.Equal(t, io.EOF, err)
	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "double close is safe")
}

func TestSimulated(t *testing.T) {
	s := NewSimulated()

	first, err := s.Complete(context.Background(), "Berätta om gymnasievalet")
	require.NoError(t, err)
	second, err := s.Complete(context.Background(), "Berätta om gymnasievalet")
	require.NoError(t, err)
	assert.Equal(t, first, second, "simulated answers are deterministic")

	title, err := s.Complete(context.Background(), "Sammanfatta i en kort rubrik")
	require.NoError(t, err)
	assert.NotEmpty(t, title)
	assert.Less(t, len(title), 100)
}

func TestSimulatedStream_MatchesComplete(t *testing.T) {
	s := NewSimulated()
	prompt := "Vilka skolor finns i Stockholm?"

	whole, err := s.Complete(context.Background(), prompt)
	require.NoError(t, err)

	stream, err := s.CompleteStream(context.Background(), prompt)
	require.NoError(t, err)
	streamed, err := stream.Collect()
	require.NoError(t, err)

	assert.Equal(t, whole, streamed)
}

func TestSimulatedStream_Cancellation(t *testing.T) {
	s := NewSimulated()
	ctx, cancel := context.WithCancel(context.Background())

	stream, err := s.CompleteStream(ctx, "prompt")
	require.NoError(t, err)

	_, err = stream.Recv()
	require.NoError(t, err)

	cancel()
	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
}
