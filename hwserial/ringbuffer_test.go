package hwserial

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

// advance moves head and tail of an empty ring forward by n slots.
func advance(rb *RingBuffer, n int) {
	p, c := rb.Producer(), rb.Consumer()
	for i := 0; i < n; i++ {
		p.Push(0)
		c.Pop()
	}
}

func TestRingBuffer_FIFOOrder(t *testing.T) {
	rb := NewRingBuffer()
	p, c := rb.Producer(), rb.Consumer()

	for i := 0; i < BufferSize-1; i++ {
		if !p.Push(byte(i)) {
			t.Fatalf("Push(%d) = false on a non-full ring", i)
		}
	}
	for i := 0; i < BufferSize-1; i++ {
		b, ok := c.Pop()
		if !ok || b != byte(i) {
			t.Fatalf("Pop() #%d = %d,%v; want %d,true", i, b, ok, i)
		}
	}
	if b, ok := c.Pop(); ok {
		t.Fatalf("Pop() on empty = %d,true; want false", b)
	}
}

func TestRingBuffer_FullDropsNewest(t *testing.T) {
	rb := NewRingBuffer()
	p, c := rb.Producer(), rb.Consumer()

	for i := 0; i < BufferSize-1; i++ {
		p.Push(byte(i))
	}
	if got := c.Count(); got != BufferSize-1 {
		t.Fatalf("Count() = %d, want %d", got, BufferSize-1)
	}

	if p.Push(0xEE) {
		t.Fatal("Push on a full ring reported success")
	}
	if p.Push(0xEF) {
		t.Fatal("second Push on a full ring reported success")
	}
	if got := c.Count(); got != BufferSize-1 {
		t.Fatalf("Count() after overflow = %d, want %d", got, BufferSize-1)
	}
	if got := rb.Dropped(); got != 2 {
		t.Fatalf("Dropped() = %d, want 2", got)
	}

	// The oldest bytes survive; the overflowing ones are gone.
	for i := 0; i < BufferSize-1; i++ {
		if b, _ := c.Pop(); b != byte(i) {
			t.Fatalf("Pop() #%d = %#x, want %#x", i, b, i)
		}
	}
	if _, ok := c.Pop(); ok {
		t.Fatal("dropped byte was stored")
	}
}

func TestRingBuffer_CountAcrossWrap(t *testing.T) {
	for start := 0; start < BufferSize; start++ {
		for n := 0; n < BufferSize; n++ {
			rb := NewRingBuffer()
			advance(rb, start)
			p := rb.Producer()
			for i := 0; i < n; i++ {
				p.Push(byte(i))
			}
			want := n
			if want > BufferSize-1 {
				want = BufferSize - 1
			}
			if got := rb.Consumer().Count(); got != want {
				t.Fatalf("start=%d n=%d: Count() = %d, want %d", start, n, got, want)
			}
		}
	}
}

func TestRingBuffer_WrapKeepsOrder(t *testing.T) {
	rb := NewRingBuffer()
	advance(rb, 100)
	p, c := rb.Producer(), rb.Consumer()

	// head wraps past zero while tail stays at 100.
	for i := 0; i < 60; i++ {
		p.Push(byte(0x80 + i))
	}
	if got := c.Count(); got != 60 {
		t.Fatalf("Count() = %d, want 60", got)
	}
	for i := 0; i < 60; i++ {
		if b, ok := c.Pop(); !ok || b != byte(0x80+i) {
			t.Fatalf("Pop() #%d = %#x,%v; want %#x,true", i, b, ok, 0x80+i)
		}
	}
}

func TestRingBuffer_PeekDoesNotConsume(t *testing.T) {
	rb := NewRingBuffer()
	p, c := rb.Producer(), rb.Consumer()

	if _, ok := c.Peek(); ok {
		t.Fatal("Peek() on empty reported data")
	}
	p.Push('a')
	p.Push('b')

	b1, ok1 := c.Peek()
	b2, ok2 := c.Peek()
	if !ok1 || !ok2 || b1 != 'a' || b2 != 'a' {
		t.Fatalf("Peek() twice = %q,%v %q,%v; want 'a' both times", b1, ok1, b2, ok2)
	}
	if got := c.Count(); got != 2 {
		t.Fatalf("Count() after Peek = %d, want 2", got)
	}
}

func TestRingBuffer_Clear(t *testing.T) {
	rb := NewRingBuffer()
	advance(rb, 120)
	p, c := rb.Producer(), rb.Consumer()
	for i := 0; i < 20; i++ {
		p.Push(byte(i))
	}

	c.Clear()
	if got := c.Count(); got != 0 {
		t.Fatalf("Count() after Clear = %d, want 0", got)
	}
	if _, ok := c.Pop(); ok {
		t.Fatal("Pop() after Clear returned data")
	}

	// The ring is usable again at full capacity.
	for i := 0; i < BufferSize-1; i++ {
		if !p.Push(byte(i)) {
			t.Fatalf("Push(%d) after Clear = false", i)
		}
	}
}

func TestRingBuffer_ConcurrentProducerConsumer(t *testing.T) {
	const total = 50000
	// A single P forces both sides to yield to each other, as producer and
	// consumer share one core on the target.
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(1))
	rb := NewRingBuffer()
	p, c := rb.Producer(), rb.Consumer()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			// Only the producer fills the ring, so once there is room the
			// Push cannot fail.
			for rb.Used() == BufferSize-1 {
				runtime.Gosched()
			}
			if !p.Push(byte(i * 7)) {
				t.Errorf("Push #%d dropped with room available", i)
				return
			}
		}
	}()

	deadline := time.Now().Add(10 * time.Second)
	for i := 0; i < total; {
		b, ok := c.Pop()
		if !ok {
			if time.Now().After(deadline) {
				t.Fatalf("timed out after %d bytes", i)
			}
			runtime.Gosched()
			continue
		}
		if b != byte(i*7) {
			t.Fatalf("byte #%d = %#x, want %#x", i, b, byte(i*7))
		}
		i++
	}
	wg.Wait()

	if got := rb.Dropped(); got != 0 {
		t.Fatalf("Dropped() = %d, want 0", got)
	}
}

func TestRingBuffer_IndicesFitInByte(t *testing.T) {
	rb := NewRingBuffer()
	p, c := rb.Producer(), rb.Consumer()
	for i := 0; i < 3*BufferSize; i++ {
		p.Push(byte(i))
		if i%3 == 0 {
			c.Pop()
		}
		if h, tl := rb.head.Load(), rb.tail.Load(); h >= BufferSize || tl >= BufferSize {
			t.Fatalf("after %d pushes head=%d tail=%d, want both < %d", i+1, h, tl, BufferSize)
		}
	}
	c.Clear()
	if rb.Used() != 0 {
		t.Fatalf("Used() after Clear = %d, want 0", rb.Used())
	}
}
