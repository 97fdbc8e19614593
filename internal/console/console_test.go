package console_test

import (
	"bytes"
	"testing"

	"github.com/tinyrange/rvkernel/internal/console"
)

func TestWriteSelectsHighestPriority(t *testing.T) {
	var low, high bytes.Buffer
	c := console.New()
	c.AddBackend(console.Backend{Name: "early-uart", Priority: 1, WriteBytes: low.Write})
	c.AddBackend(console.Backend{Name: "framebuffer", Priority: 10, WriteBytes: high.Write})

	if _, err := c.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if high.String() != "hello" {
		t.Fatalf("high-priority backend got %q, want %q", high.String(), "hello")
	}
	if low.Len() != 0 {
		t.Fatalf("low-priority backend received %q, want nothing", low.String())
	}
}

func TestWriteSwitchesWhenHigherPriorityRegistered(t *testing.T) {
	var first, second bytes.Buffer
	c := console.New()
	c.AddBackend(console.Backend{Name: "a", Priority: 5, WriteBytes: first.Write})

	if _, err := c.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	c.AddBackend(console.Backend{Name: "b", Priority: 6, WriteBytes: second.Write})
	if _, err := c.Write([]byte("y")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if first.String() != "x" {
		t.Fatalf("first backend = %q, want %q", first.String(), "x")
	}
	if second.String() != "y" {
		t.Fatalf("second backend = %q, want %q", second.String(), "y")
	}
}

func TestWriteWithNoBackendFails(t *testing.T) {
	c := console.New()
	if _, err := c.Write([]byte("x")); err != console.ErrNoBackend {
		t.Fatalf("Write() with no backend = %v, want ErrNoBackend", err)
	}
}

func TestAddBackendReplacesSameName(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	c := console.New()
	c.AddBackend(console.Backend{Name: "uart", Priority: 1, WriteBytes: buf1.Write})
	c.AddBackend(console.Backend{Name: "uart", Priority: 1, WriteBytes: buf2.Write})

	if _, err := c.Write([]byte("z")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf1.Len() != 0 {
		t.Fatalf("stale backend received %q, want nothing", buf1.String())
	}
	if buf2.String() != "z" {
		t.Fatalf("replacement backend = %q, want %q", buf2.String(), "z")
	}
}

func TestRemoveBackendFallsBackToNext(t *testing.T) {
	var low, high bytes.Buffer
	c := console.New()
	c.AddBackend(console.Backend{Name: "low", Priority: 1, WriteBytes: low.Write})
	c.AddBackend(console.Backend{Name: "high", Priority: 9, WriteBytes: high.Write})

	c.RemoveBackend("high")
	if _, err := c.Write([]byte("w")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if low.String() != "w" {
		t.Fatalf("low backend = %q, want %q", low.String(), "w")
	}
}

func TestBackendsSortedByPriorityDescending(t *testing.T) {
	c := console.New()
	c.AddBackend(console.Backend{Name: "a", Priority: 1, WriteBytes: func(p []byte) (int, error) { return len(p), nil }})
	c.AddBackend(console.Backend{Name: "b", Priority: 9, WriteBytes: func(p []byte) (int, error) { return len(p), nil }})
	c.AddBackend(console.Backend{Name: "c", Priority: 5, WriteBytes: func(p []byte) (int, error) { return len(p), nil }})

	got := c.Backends()
	if len(got) != 3 || got[0].Name != "b" || got[1].Name != "c" || got[2].Name != "a" {
		t.Fatalf("Backends() order = %v, want [b c a]", got)
	}
}
