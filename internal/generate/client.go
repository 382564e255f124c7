// Package generate abstracts the external text-generation service behind a
// small client interface. The production client speaks an OpenAI-compatible
// HTTP API; the simulated client produces deterministic local text so the
// whole pipeline can run without network access. Neither implementation
// retries: classified errors bubble up to the resilience layer.
package generate

import (
	"context"
	"io"
)

// Client is a single external text-generation call, synchronous or
// streaming.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteStream(ctx context.Context, prompt string) (*Stream, error)
}

// Stream is a lazy, single-pass, forward-only sequence of text chunks.
// Recv returns io.EOF when the sequence ends; Close aborts the underlying
// upstream call and must always be called.
type Stream struct {
	recv    func() (string, error)
	closeFn func() error
	done    bool
}

// NewStream builds a Stream from a recv function and an optional closer.
func NewStream(recv func() (string, error), closeFn func() error) *Stream {
	return &Stream{recv: recv, closeFn: closeFn}
}

// Recv returns the next chunk. After an error (including io.EOF) every
// subsequent call returns io.EOF.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	chunk, err := s.recv()
	if err != nil {
		s.done = true
	}
	return chunk, err
}

// Close releases the upstream call. Safe to call multiple times.
func (s *Stream) Close() error {
	s.done = true
	if s.closeFn == nil {
		return nil
	}
	fn := s.closeFn
	s.closeFn = nil
	return fn()
}

// Collect drains the stream into one string, closing it afterwards.
func (s *Stream) Collect() (string, error) {
	defer s.Close()
	var out []byte
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			return string(out), nil
		}
		if err != nil {
			return string(out), err
		}
		out = append(out, chunk...)
	}
}
