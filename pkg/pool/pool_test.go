// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pool

import (
	"strings"
	"sync"
	"testing"
)

func TestByteBufferReuse(t *testing.T) {
	b := GetByteBuffer()
	b.WriteString("G1 X1")
	b.WriteByte('\n')
	b.Write([]byte("G1 X2\n"))
	if got := b.String(); got != "G1 X1\nG1 X2\n" {
		t.Errorf("unexpected contents %q", got)
	}
	PutByteBuffer(b)

	b2 := GetByteBuffer()
	if b2.Len() != 0 {
		t.Errorf("pooled buffer should be empty, got %d bytes", b2.Len())
	}
	PutByteBuffer(b2)
	PutByteBuffer(nil)
}

func TestByteBufferGrow(t *testing.T) {
	b := &ByteBuffer{}
	b.WriteString("abc")
	b.Grow(1000)
	if b.Cap()-b.Len() < 1000 {
		t.Errorf("expected room for 1000 bytes, have %d", b.Cap()-b.Len())
	}
	if b.String() != "abc" {
		t.Error("grow must keep contents")
	}
	b.Reset()
	if b.Len() != 0 {
		t.Error("reset must empty the buffer")
	}
}

func TestOversizedBufferNotPooled(t *testing.T) {
	b := &ByteBuffer{}
	b.Grow(MaxPooledBuffer + 1)
	// Must not panic and must not hand the large buffer back out.
	PutByteBuffer(b)
	for i := 0; i < 4; i++ {
		if got := GetByteBuffer(); got == b {
			t.Fatal("oversized buffer was pooled")
		}
	}
}

func TestJoinLines(t *testing.T) {
	tests := []struct {
		lines []string
		want  string
	}{
		{nil, ""},
		{[]string{"M108 T1"}, "M108 T1\n"},
		{[]string{"(<layer> 0.2)", "", "G1 Z0.2"}, "(<layer> 0.2)\n\nG1 Z0.2\n"},
	}
	for _, tt := range tests {
		if got := JoinLines(tt.lines); got != tt.want {
			t.Errorf("JoinLines(%q) = %q, want %q", tt.lines, got, tt.want)
		}
	}
}

func TestJoinLinesConcurrent(t *testing.T) {
	lines := strings.Split(strings.Repeat("G1 X1 Y1\n", 500), "\n")
	want := strings.Join(lines, "\n") + "\n"
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := JoinLines(lines); got != want {
				t.Error("concurrent render mismatch")
			}
		}()
	}
	wg.Wait()
}
