package feed

import (
	"bytes"
	"io"
)

// NewMockSource replays canned line data, for tests and -dev fixture runs
// without instrument hardware attached.
func NewMockSource(data []byte) *ReaderSource {
	return NewReaderSource(io.NopCloser(bytes.NewReader(data)))
}
