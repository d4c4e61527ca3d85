// Reusable buffers for rendering merged toolpaths
//
// A merged toolpath is rendered to text once per request and then thrown
// away, so the server draws its render and encode buffers from here.
//
// Usage:
//
//	buf := pool.GetByteBuffer()
//	defer pool.PutByteBuffer(buf)
//	buf.WriteLines(lines)
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pool

import (
	"sync"
)

// MaxPooledBuffer is the largest capacity returned to the pool. Bigger
// buffers are left to the GC so one huge job does not pin its memory.
const MaxPooledBuffer = 4 << 20

// ByteBuffer is an append-only byte buffer.
type ByteBuffer struct {
	buf []byte
}

var byteBufferPool = sync.Pool{
	New: func() any {
		return &ByteBuffer{buf: make([]byte, 0, 4096)}
	},
}

// GetByteBuffer gets an empty buffer from the pool.
func GetByteBuffer() *ByteBuffer {
	b := byteBufferPool.Get().(*ByteBuffer)
	b.buf = b.buf[:0]
	return b
}

// PutByteBuffer returns b to the pool. b must not be used afterwards.
func PutByteBuffer(b *ByteBuffer) {
	if b == nil || cap(b.buf) > MaxPooledBuffer {
		return
	}
	byteBufferPool.Put(b)
}

// Bytes returns the contents. The slice is only valid until the buffer
// is returned to the pool.
func (b *ByteBuffer) Bytes() []byte { return b.buf }

// String copies the contents out.
func (b *ByteBuffer) String() string { return string(b.buf) }

func (b *ByteBuffer) Len() int { return len(b.buf) }
func (b *ByteBuffer) Cap() int { return cap(b.buf) }

func (b *ByteBuffer) Reset() { b.buf = b.buf[:0] }

func (b *ByteBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *ByteBuffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

func (b *ByteBuffer) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}

// Grow ensures room for n more bytes.
func (b *ByteBuffer) Grow(n int) {
	if cap(b.buf)-len(b.buf) >= n {
		return
	}
	grown := make([]byte, len(b.buf), 2*cap(b.buf)+n)
	copy(grown, b.buf)
	b.buf = grown
}

// WriteLines appends each line followed by a newline.
func (b *ByteBuffer) WriteLines(lines []string) {
	n := 0
	for _, l := range lines {
		n += len(l) + 1
	}
	b.Grow(n)
	for _, l := range lines {
		b.buf = append(b.buf, l...)
		b.buf = append(b.buf, '\n')
	}
}

// JoinLines renders lines as newline-terminated text.
func JoinLines(lines []string) string {
	b := GetByteBuffer()
	defer PutByteBuffer(b)
	b.WriteLines(lines)
	return b.String()
}
