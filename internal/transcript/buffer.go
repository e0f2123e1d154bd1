// Package transcript turns the per-frame detection stream into committed
// characters and accumulates them into the user-visible transcript.
package transcript

import (
	"strings"
	"sync"
)

// Buffer is an append-only text accumulator with manual space insertion and
// clear. All operations are total and safe for concurrent use.
type Buffer struct {
	mu   sync.Mutex
	text strings.Builder
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds a committed label to the end of the transcript.
func (b *Buffer) Append(label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.WriteString(label)
}

// AppendSpace adds exactly one space.
func (b *Buffer) AppendSpace() {
	b.Append(" ")
}

// Clear empties the transcript.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.Reset()
}

// Read returns the current transcript.
func (b *Buffer) Read() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text.String()
}

// Len returns the transcript length in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text.Len()
}
