package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		{},
		{0x42},
		[]byte("hello, world"),
		bytes.Repeat([]byte{0xab}, 65536),
	}

	for _, payload := range payloads {
		env := Envelope(payload)

		if len(env) != HeaderSize+len(payload) {
			t.Fatalf("envelope length = %d, want %d", len(env), HeaderSize+len(payload))
		}

		n := ParseHeader(env[:HeaderSize])
		if int(n) != len(payload) {
			t.Fatalf("parsed length = %d, want %d", n, len(payload))
		}
		if !bytes.Equal(env[HeaderSize:], payload) {
			t.Fatalf("payload bytes differ after round trip (len %d)", len(payload))
		}
	}
}

func TestHeaderBigEndian(t *testing.T) {
	var b [HeaderSize]byte
	PutHeader(b[:], 0x01020304)
	want := [HeaderSize]byte{0x01, 0x02, 0x03, 0x04}
	if b != want {
		t.Fatalf("header = %x, want %x", b, want)
	}
	if got := ParseHeader(b[:]); got != 0x01020304 {
		t.Fatalf("ParseHeader = %#x, want 0x01020304", got)
	}
}

func TestAppendHeader(t *testing.T) {
	got := AppendHeader([]byte{0xff}, 7)
	want := []byte{0xff, 0, 0, 0, 7}
	if !bytes.Equal(got, want) {
		t.Fatalf("AppendHeader = %x, want %x", got, want)
	}
}

func TestCheckLength(t *testing.T) {
	tests := []struct {
		name     string
		n, max   uint32
		oversize bool
	}{
		{"zero", 0, 1024, false},
		{"at max", 1024, 1024, false},
		{"over max", 1025, 1024, true},
		{"default max ok", DefaultMaxFrameSize, 0, false},
		{"default max exceeded", DefaultMaxFrameSize + 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLength(tt.n, tt.max)
			if tt.oversize && !errors.Is(err, ErrOversized) {
				t.Fatalf("CheckLength(%d, %d) = %v, want ErrOversized", tt.n, tt.max, err)
			}
			if !tt.oversize && err != nil {
				t.Fatalf("CheckLength(%d, %d) = %v, want nil", tt.n, tt.max, err)
			}
		})
	}
}
