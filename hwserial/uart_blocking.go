// hwserial/uart_blocking.go

package hwserial

import (
	"context"
	"time"
)

// The receive interrupt only touches the ring buffer, so blocking reads poll
// it. pollTick returns the polling interval: about two character times at 8N1
// for the configured baud, with a lower bound to avoid spinning.
func (u *UART) pollTick() time.Duration {
	if u.baud == 0 {
		return 50 * time.Microsecond
	}
	perBit := time.Second / time.Duration(u.baud)
	t := 2 * 10 * perBit
	if t < 20*time.Microsecond {
		t = 20 * time.Microsecond
	}
	return t
}

// WaitReadable blocks until at least one byte is buffered or ctx is done.
func (u *UART) WaitReadable(ctx context.Context) error {
	if u.Available() > 0 {
		return nil
	}
	tick := time.NewTicker(u.pollTick())
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if u.Available() > 0 {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ReadBlocking blocks until at least one byte is available, then reads up to len(p).
func (u *UART) ReadBlocking(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if n, _ := u.Read(p); n > 0 {
			return n, nil
		}
		if err := u.WaitReadable(ctx); err != nil {
			return 0, err
		}
	}
}

// ReadFullBlocking reads exactly len(p) bytes unless ctx ends first, in which
// case it returns the bytes read so far and the context error.
func (u *UART) ReadFullBlocking(ctx context.Context, p []byte) (int, error) {
	read := 0
	for read < len(p) {
		if n, _ := u.Read(p[read:]); n > 0 {
			read += n
			continue
		}
		if err := u.WaitReadable(ctx); err != nil {
			return read, err
		}
	}
	return read, nil
}

// ReadByteBlocking blocks for a single byte or until ctx is done.
func (u *UART) ReadByteBlocking(ctx context.Context) (byte, error) {
	for {
		if b, err := u.ReadByte(); err == nil {
			return b, nil
		}
		if err := u.WaitReadable(ctx); err != nil {
			return 0, err
		}
	}
}

// ReadWithTimeout is ReadBlocking bounded by d.
func (u *UART) ReadWithTimeout(p []byte, d time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return u.ReadBlocking(ctx, p)
}
