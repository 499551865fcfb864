package hwserial

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReadByteBlocking_UnblocksOnReceive(t *testing.T) {
	u, sim := newTestUART(t)
	u.Begin(115200)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	var got byte
	var err error

	go func() {
		defer close(done)
		got, err = u.ReadByteBlocking(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	sim.Deliver('Z')

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for ReadByteBlocking")
	}

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 'Z' {
		t.Fatalf("got %q want %q", got, 'Z')
	}
}

func TestReadFullBlocking_ReadsExactLen(t *testing.T) {
	u, sim := newTestUART(t)
	u.Begin(115200)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	want := []byte("HELLO")
	got := make([]byte, len(want))

	done := make(chan struct{})
	var n int
	var err error

	go func() {
		defer close(done)
		n, err = u.ReadFullBlocking(ctx, got)
	}()

	for i := range want {
		time.Sleep(5 * time.Millisecond)
		sim.Deliver(want[i])
	}

	select {
	case <-done:
	case <-time.After(600 * time.Millisecond):
		t.Fatal("timeout waiting for ReadFullBlocking")
	}

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(want) || string(got) != string(want) {
		t.Fatalf("got %q (n=%d), want %q", string(got), n, string(want))
	}
}

func TestReadWithTimeout_ExpiresWithoutData(t *testing.T) {
	u, _ := newTestUART(t)
	u.Begin(115200)

	start := time.Now()
	n, err := u.ReadWithTimeout(make([]byte, 4), 30*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) || n != 0 {
		t.Fatalf("ReadWithTimeout = %d,%v; want 0,DeadlineExceeded", n, err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("ReadWithTimeout returned early")
	}
}

func TestWaitReadable_ImmediateWhenBuffered(t *testing.T) {
	u, sim := newTestUART(t)
	u.Begin(115200)
	sim.Deliver('x')

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := u.WaitReadable(ctx); err != nil {
		t.Fatalf("WaitReadable with data = %v, want nil", err)
	}
}

func TestPollTick(t *testing.T) {
	u, _ := newTestUART(t)
	if got := u.pollTick(); got != 50*time.Microsecond {
		t.Fatalf("pollTick() before Begin = %v, want 50µs", got)
	}
	u.Begin(9600)
	if got := u.pollTick(); got != 20*(time.Second/9600) {
		t.Fatalf("pollTick() at 9600 = %v, want %v", got, 20*(time.Second/9600))
	}
	u.Begin(2_000_000)
	if got := u.pollTick(); got != 20*time.Microsecond {
		t.Fatalf("pollTick() at 2M = %v, want 20µs", got)
	}
}
