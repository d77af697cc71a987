package observers

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/wayneeseguin/logevents/internal/buffer"
	"github.com/wayneeseguin/logevents/pkg/formatters"
	"github.com/wayneeseguin/logevents/pkg/status"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// File appends formatted events to a file. Lines are buffered and written
// in batches under an advisory lock, so several processes may share one file.
type File struct {
	file      *os.File
	lock      *flock.Flock
	writer    *buffer.LineWriter
	formatter formatters.Formatter
	status    *status.Status
	path      string
}

// FileOption configures a File
type FileOption func(*fileConfig)

type fileConfig struct {
	formatter     formatters.Formatter
	status        *status.Status
	flushInterval time.Duration
}

// WithFileFormatter sets the formatter, text by default
func WithFileFormatter(f formatters.Formatter) FileOption {
	return func(c *fileConfig) { c.formatter = f }
}

// WithFileStatus sets the feed write failures are reported to
func WithFileStatus(s *status.Status) FileOption {
	return func(c *fileConfig) { c.status = s }
}

// WithFileFlushInterval bounds how long a line may stay buffered
func WithFileFlushInterval(d time.Duration) FileOption {
	return func(c *fileConfig) { c.flushInterval = d }
}

// NewFile opens path for appending, creating it and its directory if needed.
func NewFile(path string, opts ...FileOption) (*File, error) {
	cfg := fileConfig{
		formatter:     formatters.NewTextFormatter(),
		flushInterval: time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dir := filepath.Dir(path)
	// #nosec G301 - log directories need to be accessible by other processes
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create directory")
	}

	// Clean the path to prevent directory traversal
	cleanPath := filepath.Clean(path)

	file, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644) // #nosec G302 - log files need to be readable
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}

	f := &File{
		file:      file,
		lock:      flock.New(cleanPath),
		formatter: cfg.formatter,
		status:    cfg.status,
		path:      cleanPath,
	}
	f.writer = buffer.NewLineWriter(file,
		buffer.WithLocker(f.lock),
		buffer.WithFlushInterval(cfg.flushInterval),
		buffer.WithErrorHandler(func(err error) {
			statusOrDefault(f.status).AddError(f, "Failed to write "+f.path, err)
		}),
	)
	return f, nil
}

// LogEvent implements types.Observer
func (f *File) LogEvent(e *types.Event) {
	data, err := f.formatter.Format(e)
	if err != nil {
		statusOrDefault(f.status).AddError(f, "Failed to format event", err)
		return
	}
	if _, err := f.writer.Write(data); err != nil {
		statusOrDefault(f.status).AddError(f, "Failed to write "+f.path, err)
	}
}

// Flush writes buffered lines to the file
func (f *File) Flush() {
	if err := f.writer.Flush(); err != nil {
		statusOrDefault(f.status).AddError(f, "Failed to flush "+f.path, err)
	}
}

// Close writes buffered lines and closes the file. Every step runs; the
// first failure is returned.
func (f *File) Close() error {
	var first error
	keep := func(err error, step string) {
		if err != nil && first == nil {
			first = errors.Wrap(err, step)
		}
	}
	keep(f.writer.Close(), "flush")
	keep(f.lock.Close(), "unlock")
	keep(f.file.Close(), "close file")
	return first
}

// Path returns the file path
func (f *File) Path() string {
	return f.path
}
