package buffer

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrClosed is returned when operations are attempted on a closed LineWriter
var ErrClosed = errors.New("line writer is closed")

// Locker guards the underlying writer across processes. A file lock such as
// *flock.Flock satisfies it.
type Locker interface {
	Lock() error
	Unlock() error
}

// LineWriter accumulates formatted lines and writes them to the underlying
// writer in one go when a size or count limit is reached, or when the flush
// interval elapses after the first pending line.
type LineWriter struct {
	out           io.Writer
	locker        Locker
	mu            sync.Mutex
	pending       [][]byte // Lines waiting to be written
	pendingBytes  int      // Total size of pending lines
	maxBytes      int      // Flush once this many bytes are pending
	maxLines      int      // Flush once this many lines are pending
	flushInterval time.Duration
	flushTimer    *time.Timer
	onError       func(error) // Receives errors from timer driven flushes
	closed        bool
}

// LineWriterOption configures a LineWriter
type LineWriterOption func(*LineWriter)

// WithLocker wraps every physical write in Lock/Unlock.
func WithLocker(l Locker) LineWriterOption {
	return func(w *LineWriter) { w.locker = l }
}

// WithLimits sets the byte and line thresholds that trigger a flush.
func WithLimits(maxBytes, maxLines int) LineWriterOption {
	return func(w *LineWriter) {
		w.maxBytes = maxBytes
		w.maxLines = maxLines
	}
}

// WithFlushInterval sets how long a pending line may wait before it is
// written. Zero disables timed flushes.
func WithFlushInterval(d time.Duration) LineWriterOption {
	return func(w *LineWriter) { w.flushInterval = d }
}

// WithErrorHandler sets the callback for errors that happen on timed flushes,
// where there is no caller to return them to.
func WithErrorHandler(f func(error)) LineWriterOption {
	return func(w *LineWriter) { w.onError = f }
}

// NewLineWriter creates a LineWriter on top of out.
func NewLineWriter(out io.Writer, opts ...LineWriterOption) *LineWriter {
	w := &LineWriter{
		out:           out,
		maxBytes:      32 * 1024,
		maxLines:      100,
		flushInterval: time.Second,
		onError:       func(error) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write queues one line and flushes when a limit is reached.
func (w *LineWriter) Write(line []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	lineCopy := make([]byte, len(line))
	copy(lineCopy, line)
	w.pending = append(w.pending, lineCopy)
	w.pendingBytes += len(lineCopy)

	if w.pendingBytes >= w.maxBytes || len(w.pending) >= w.maxLines {
		return len(line), w.flushLocked()
	}

	if len(w.pending) == 1 && w.flushInterval > 0 {
		w.flushTimer = time.AfterFunc(w.flushInterval, w.timedFlush)
	}
	return len(line), nil
}

// Flush writes every pending line.
func (w *LineWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// flushLocked must be called with w.mu held.
func (w *LineWriter) flushLocked() error {
	if w.flushTimer != nil {
		w.flushTimer.Stop()
		w.flushTimer = nil
	}
	if len(w.pending) == 0 {
		return nil
	}

	lines := w.pending
	w.pending = nil
	w.pendingBytes = 0

	if w.locker != nil {
		if err := w.locker.Lock(); err != nil {
			return err
		}
		defer func() {
			_ = w.locker.Unlock() // Best effort unlock
		}()
	}

	for _, line := range lines {
		if _, err := w.out.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (w *LineWriter) timedFlush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if err := w.flushLocked(); err != nil {
		w.onError(err)
	}
}

// Close writes pending lines and rejects further writes.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.flushLocked()
}

// Stats returns current LineWriter statistics.
func (w *LineWriter) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Stats{
		PendingLines:  len(w.pending),
		PendingBytes:  w.pendingBytes,
		MaxLines:      w.maxLines,
		MaxBytes:      w.maxBytes,
		FlushInterval: w.flushInterval,
	}
}

// Stats contains statistics about a LineWriter.
type Stats struct {
	PendingLines  int           `json:"pending_lines"`
	PendingBytes  int           `json:"pending_bytes"`
	MaxLines      int           `json:"max_lines"`
	MaxBytes      int           `json:"max_bytes"`
	FlushInterval time.Duration `json:"flush_interval"`
}
