package generate

import "io"

// StreamOfText returns a Stream that yields the given text as one chunk.
func StreamOfText(text string) *Stream {
	sent := false
	return NewStream(func() (string, error) {
		if sent {
			return "", io.EOF
		}
		sent = true
		return text, nil
	}, nil)
}

// AppendToStream yields every chunk of inner, then suffix as a final chunk.
// An error from inner, other than the end of the stream, suppresses the
// suffix. Closing the returned stream closes inner.
func AppendToStream(inner *Stream, suffix string) *Stream {
	appended := false
	return NewStream(func() (string, error) {
		if appended {
			return "", io.EOF
		}
		chunk, err := inner.Recv()
		if err == io.EOF {
			appended = true
			if suffix == "" {
				return "", io.EOF
			}
			return suffix, nil
		}
		return chunk, err
	}, inner.Close)
}
