package main

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestBridge_EchoesThroughBothChannels(t *testing.T) {
	var out bytes.Buffer
	b := newBridge(16_000_000, 115200, 57600, &out)

	b.sim0.Deliver([]byte("hi")...)
	for b.step() > 0 {
	}

	if got := out.String(); got != "hi" {
		t.Fatalf("echo = %q, want %q", got, "hi")
	}
	if b.u0.Available() != 0 || b.u1.Available() != 0 {
		t.Fatalf("bytes left behind: %d, %d", b.u0.Available(), b.u1.Available())
	}
}

func TestBridge_Run(t *testing.T) {
	out := &syncBuffer{}
	b := newBridge(16_000_000, 9600, 9600, out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.run(ctx, 50*time.Microsecond)
	}()

	b.sim0.Deliver([]byte("abc")...)
	deadline := time.After(time.Second)
	for out.String() != "abc" {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("echo = %q, want %q", out.String(), "abc")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestCRLF(t *testing.T) {
	var buf bytes.Buffer
	n, err := crlf{&buf}.Write([]byte("a\rb\n"))
	if err != nil || n != 4 {
		t.Fatalf("Write = %d,%v; want 4,nil", n, err)
	}
	if got := buf.String(); got != "a\r\nb\r\n" {
		t.Fatalf("got %q", got)
	}
}
