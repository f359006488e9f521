package filtr

import (
	"strings"
	"sync"
)

// BufferedOutput captures program output for later retrieval.
type BufferedOutput struct {
	mu  sync.Mutex
	buf strings.Builder
}

// NewBufferedOutput creates an empty buffer.
func NewBufferedOutput() *BufferedOutput {
	return &BufferedOutput{}
}

// Write implements io.Writer.
func (b *BufferedOutput) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far.
func (b *BufferedOutput) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the complete lines written so far, without newlines.
func (b *BufferedOutput) Lines() []string {
	s := b.String()
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Reset clears the buffer.
func (b *BufferedOutput) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
