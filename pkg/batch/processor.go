package batch

import "context"

// Processor delivers a batch downstream: a chat webhook, a message bus, a
// log shipper. It is called outside every lock and may block on I/O.
type Processor interface {
	ProcessBatch(ctx context.Context, b *Batch) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, b *Batch) error

// ProcessBatch calls f(ctx, b).
func (f ProcessorFunc) ProcessBatch(ctx context.Context, b *Batch) error {
	return f(ctx, b)
}

// ProcessError lets a processor choose the status message and severity its
// failure is reported with.
type ProcessError struct {
	Message string
	Fatal   bool
	Err     error
}

func (e *ProcessError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ProcessError) Unwrap() error {
	return e.Err
}
