package ring

import (
	"bufio"
	"io"
	"sync"
	"sync/atomic"
)

// EventsOutTx wraps a bounded channel feeding a line-oriented JSONL sink.
// SendLine is non-blocking: on a full channel the line is dropped and the
// dropped counter is incremented. A write failure on the underlying
// writer is never fatal to the owning session.
type EventsOutTx struct {
	lines   chan string
	dropped uint64
	done    chan struct{}
	closeOn sync.Once
}

// NewEventsOutTx starts a background writer goroutine draining lines to w.
// bufSize is the channel capacity; once full, SendLine drops the line.
func NewEventsOutTx(w io.Writer, bufSize int) *EventsOutTx {
	if bufSize <= 0 {
		bufSize = 256
	}
	tx := &EventsOutTx{
		lines: make(chan string, bufSize),
		done:  make(chan struct{}),
	}
	go tx.run(w)
	return tx
}

func (tx *EventsOutTx) run(w io.Writer) {
	defer close(tx.done)
	bw := bufio.NewWriter(w)
	for line := range tx.lines {
		if _, err := bw.WriteString(line); err != nil {
			continue
		}
		_, _ = bw.WriteString("\n")
		_ = bw.Flush()
	}
}

// SendLine enqueues a line for writing. Non-blocking; drops on backpressure.
func (tx *EventsOutTx) SendLine(line string) {
	select {
	case tx.lines <- line:
	default:
		atomic.AddUint64(&tx.dropped, 1)
	}
}

// DroppedCount returns the number of lines dropped due to a full channel.
func (tx *EventsOutTx) DroppedCount() uint64 {
	return atomic.LoadUint64(&tx.dropped)
}

// Close stops accepting new lines and waits for the writer to drain.
func (tx *EventsOutTx) Close() {
	tx.closeOn.Do(func() {
		close(tx.lines)
	})
	<-tx.done
}
