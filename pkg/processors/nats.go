package processors

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/wayneeseguin/logevents/pkg/batch"
)

// Publisher is the part of *nats.Conn used to publish batches
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes every batch as one JSON Payload on a subject.
type NATS struct {
	conn    Publisher
	subject string
}

// NewNATS creates a processor publishing on subject through conn.
func NewNATS(conn Publisher, subject string) *NATS {
	return &NATS{conn: conn, subject: subject}
}

// ConnectNATS connects to a comma separated list of servers.
func ConnectNATS(servers string, opts ...nats.Option) (*nats.Conn, error) {
	if strings.TrimSpace(servers) == "" {
		servers = nats.DefaultURL
	}
	opts = append([]nats.Option{
		nats.Name("logevents"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
	}, opts...)
	conn, err := nats.Connect(servers, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to NATS %s", servers)
	}
	return conn, nil
}

// Subject returns the subject batches are published on
func (n *NATS) Subject() string {
	return n.subject
}

// ProcessBatch implements batch.Processor
func (n *NATS) ProcessBatch(ctx context.Context, b *batch.Batch) error {
	data, err := json.Marshal(NewPayload(b))
	if err != nil {
		return &batch.ProcessError{Message: "Runtime error generating NATS message", Fatal: true, Err: err}
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return &batch.ProcessError{Message: "Failed to publish NATS message", Err: errors.Wrapf(err, "publish to %s", n.subject)}
	}
	if f, ok := n.conn.(interface {
		FlushWithContext(ctx context.Context) error
	}); ok {
		if err := f.FlushWithContext(ctx); err != nil {
			return &batch.ProcessError{Message: "Failed to publish NATS message", Err: errors.Wrap(err, "flush")}
		}
	}
	return nil
}

// Close closes the connection when it is closable
func (n *NATS) Close() error {
	if c, ok := n.conn.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}
