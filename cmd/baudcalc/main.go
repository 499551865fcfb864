// cmd/baudcalc/main.go
// Prints the UBRR divisor, speed mode and rate error hwserial.Begin would
// program for a list of baud rates on a given CPU clock.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jangala-dev/tinygo-hwserial/hwserial"
	"github.com/jangala-dev/tinygo-hwserial/internal/logx"
)

const defaultRates = "300,1200,2400,4800,9600,14400,19200,28800,38400,57600,76800,115200,230400,250000,500000,1000000"

func main() {
	clock := flag.Uint("clock", 16_000_000, "peripheral clock (F_CPU) in Hz")
	rates := flag.String("rates", defaultRates, "comma-separated baud rates")
	warn := flag.Int("warn", 20, "flag rates whose error exceeds this many parts per thousand")
	flag.Parse()

	list, err := parseRates(*rates)
	if err != nil {
		logx.Error(logx.ComponentBaud, "bad -rates", "err", err)
		os.Exit(2)
	}
	if err := writeTable(os.Stdout, uint32(*clock), list, *warn); err != nil {
		logx.Error(logx.ComponentBaud, "write table", "err", err)
		os.Exit(1)
	}
}

func parseRates(s string) ([]uint32, error) {
	var out []uint32
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("rate %q: %w", f, err)
		}
		if v == 0 {
			return nil, fmt.Errorf("rate %q: must be positive", f)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

func writeTable(w io.Writer, clock uint32, rates []uint32, warnPermille int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "baud\tUBRR\tU2X\tactual\terror‰\t\n")
	for _, r := range rates {
		s := hwserial.Divisor(clock, r)
		e := s.ErrorPermille(clock, r)
		mark := ""
		if e > warnPermille || e < -warnPermille {
			mark = "!"
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%+d%s\t\n", r, s.UBRR, b2i(s.DoubleSpeed), s.Rate(clock), e, mark)
	}
	return tw.Flush()
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
