// cmd/integrity/main.go
// Receive-path integrity test for hwserial, run against the simulated USART.
// One goroutine plays the receive interrupt and delivers a deterministic
// pattern; the foreground drains it through the UART like application code
// would. The run passes when every received byte arrives in order and
// received + dropped == sent.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jangala-dev/tinygo-hwserial/hwserial"
	"github.com/jangala-dev/tinygo-hwserial/internal/logx"
)

/*** Tunables ***/
type config struct {
	baud     uint32        // rate passed to Begin (sets the read poll interval)
	clockHz  uint32        // simulated F_CPU
	total    int           // bytes delivered
	burst    int           // bytes per simulated interrupt burst
	pace     time.Duration // delay between bursts
	throttle bool          // hold the line while the ring is full (no drops expected)
	hold     time.Duration // foreground pause after each read, a busy application
	timeout  time.Duration // whole run
	recv     int           // bytes per ReadBlocking call
	radius   int           // surrounding bytes shown on mismatch
}

type result struct {
	sent     int
	received int
	dropped  uint32
	elapsed  time.Duration
}

/*** Pattern (deterministic) ***/
func pattern(i int) byte { return byte((i*31 + 0x55) & 0xFF) }

func main() {
	var cfg config
	baud := flag.Uint("baud", 115200, "baud rate passed to Begin")
	clock := flag.Uint("clock", 16_000_000, "simulated CPU clock in Hz")
	flag.IntVar(&cfg.total, "bytes", 64*1024, "bytes to deliver")
	flag.IntVar(&cfg.burst, "burst", 16, "bytes per simulated interrupt burst")
	flag.DurationVar(&cfg.pace, "pace", 50*time.Microsecond, "delay between bursts")
	flag.BoolVar(&cfg.throttle, "throttle", false, "stall delivery while the ring is full")
	flag.DurationVar(&cfg.hold, "hold", 0, "pause after each foreground read")
	flag.DurationVar(&cfg.timeout, "timeout", 30*time.Second, "overall time limit")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	cfg.baud = uint32(*baud)
	cfg.clockHz = uint32(*clock)
	cfg.recv = 64
	cfg.radius = 16

	if l, err := logx.ParseLevel(*level); err == nil {
		logx.SetLevel(l)
	}

	logx.Info(logx.ComponentIntegrity, "starting",
		"bytes", cfg.total, "burst", cfg.burst, "pace", cfg.pace, "throttle", cfg.throttle)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	res, err := run(ctx, cfg)
	logx.Info(logx.ComponentIntegrity, "summary",
		"sent", res.sent, "received", res.received, "dropped", res.dropped, "elapsed", res.elapsed)
	if err != nil {
		logx.Error(logx.ComponentIntegrity, "FAIL", "err", err)
		os.Exit(1)
	}
	logx.Info(logx.ComponentIntegrity, "PASS")
}

/*** Runner ***/

func run(ctx context.Context, cfg config) (result, error) {
	u, sim := hwserial.NewSimPort(cfg.clockHz)
	u.Begin(cfg.baud)
	defer u.End()

	start := time.Now()
	sentCh := make(chan int, 1)
	go func() { sentCh <- deliver(ctx, u, sim, cfg) }()

	var res result
	buf := make([]byte, cfg.recv)
	next := 0 // index in the pattern of the next candidate byte
	sent := -1
	for {
		if sent < 0 {
			select {
			case sent = <-sentCh:
			default:
			}
		}
		// Once delivery is over, everything sent is either buffered or dropped.
		if sent >= 0 && u.Available() == 0 {
			break
		}

		rctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		n, err := u.ReadBlocking(rctx, buf)
		cancel()
		if err != nil && ctx.Err() != nil {
			res.sent, res.dropped, res.elapsed = sent, u.Dropped(), time.Since(start)
			return res, fmt.Errorf("after %d bytes: %w", res.received, ctx.Err())
		}
		for _, b := range buf[:n] {
			j, ok := match(b, next, cfg.total)
			if !ok {
				res.sent, res.dropped, res.elapsed = sent, u.Dropped(), time.Since(start)
				return res, fmt.Errorf("byte %d (%#02x) out of order near pattern index %d: %s",
					res.received, b, next, window(next, cfg.radius, cfg.total))
			}
			next = j + 1
			res.received++
		}
		if n > 0 && cfg.hold > 0 {
			time.Sleep(cfg.hold)
		}
	}

	res.sent, res.dropped, res.elapsed = sent, u.Dropped(), time.Since(start)
	if res.received+int(res.dropped) != res.sent {
		return res, fmt.Errorf("accounting: received %d + dropped %d != sent %d",
			res.received, res.dropped, res.sent)
	}
	if cfg.throttle && res.dropped != 0 {
		return res, errors.New("drops with throttled delivery")
	}
	return res, nil
}

// deliver plays the line and the receive interrupt. It returns the number of
// bytes put on the line.
func deliver(ctx context.Context, u *hwserial.UART, sim *hwserial.SimUSART, cfg config) int {
	sent := 0
	burst := make([]byte, 0, cfg.burst)
	for sent < cfg.total {
		if ctx.Err() != nil {
			return sent
		}
		burst = burst[:0]
		for len(burst) < cap(burst) && sent+len(burst) < cfg.total {
			burst = append(burst, pattern(sent+len(burst)))
		}
		if cfg.throttle {
			// Never exceed the free space: deliver one byte at a time.
			for _, b := range burst {
				for u.Available() >= hwserial.BufferSize-1 {
					if ctx.Err() != nil {
						return sent
					}
					time.Sleep(cfg.pace + time.Microsecond)
				}
				sim.Deliver(b)
			}
		} else {
			sim.Deliver(burst...)
		}
		sent += len(burst)
		if cfg.pace > 0 {
			time.Sleep(cfg.pace)
		}
	}
	return sent
}

// match finds the first pattern index >= from holding b. Dropped bytes only
// ever remove elements, so the received stream must be a subsequence.
func match(b byte, from, total int) (int, bool) {
	for j := from; j < total; j++ {
		if pattern(j) == b {
			return j, true
		}
	}
	return 0, false
}

func window(pivot, radius, total int) string {
	lo, hi := pivot-radius, pivot+radius
	if lo < 0 {
		lo = 0
	}
	if hi > total {
		hi = total
	}
	s := ""
	for i := lo; i < hi; i++ {
		if i == pivot {
			s += "["
		}
		s += fmt.Sprintf("%02x", pattern(i))
		if i == pivot {
			s += "]"
		}
		s += " "
	}
	return s
}
