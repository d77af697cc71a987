package processors

import (
	"context"
	"os"
	"time"

	lumberjack "github.com/elastic/go-lumber/client/v2"
	"github.com/pkg/errors"

	"github.com/wayneeseguin/logevents/pkg/batch"
	"github.com/wayneeseguin/logevents/pkg/formatters"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// Sender is the part of the lumberjack client used to ship events
type Sender interface {
	Send(events []interface{}) (int, error)
	Close() error
}

// Beats ships every event of a batch to a Logstash or Beats endpoint over
// the lumberjack v2 protocol.
type Beats struct {
	sink Sender
	host string
}

// DialBeats connects to a lumberjack endpoint ("logstash:5044").
func DialBeats(endpoint string, timeout time.Duration) (*Beats, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	client, err := lumberjack.SyncDial(endpoint,
		lumberjack.CompressionLevel(0),
		lumberjack.Timeout(timeout),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed connection to beats server %s", endpoint)
	}
	return NewBeats(client), nil
}

// NewBeats creates a processor sending through sink.
func NewBeats(sink Sender) *Beats {
	host, _ := os.Hostname()
	return &Beats{sink: sink, host: host}
}

// ProcessBatch implements batch.Processor
func (b *Beats) ProcessBatch(_ context.Context, bt *batch.Batch) error {
	events := make([]interface{}, 0, bt.Len())
	for _, g := range bt.Groups() {
		for _, e := range g.Events() {
			events = append(events, b.fields(e, g.Count()))
		}
	}

	sent, err := b.sink.Send(events)
	if err != nil {
		return &batch.ProcessError{Message: "Failed to send beats events", Err: err}
	}
	if sent < len(events) {
		return &batch.ProcessError{
			Message: "Failed to send beats events",
			Err:     errors.Errorf("sent %d of %d events", sent, len(events)),
		}
	}
	return nil
}

func (b *Beats) fields(e *types.Event, groupSize int) map[string]interface{} {
	host := e.Host
	if host == "" {
		host = b.host
	}
	fields := map[string]interface{}{
		"@timestamp": e.Time,
		"message":    e.Message(),
		"host": map[string]interface{}{
			"name":     host,
			"hostname": host,
		},
		"log": map[string]interface{}{
			"logger": e.Logger,
			"level":  e.Level.String(),
		},
		"agent": map[string]interface{}{
			"type": "logevents",
			"pid":  os.Getpid(),
		},
		"logevents": map[string]interface{}{
			"template":    e.Template,
			"group_count": groupSize,
		},
	}
	if e.Marker != "" {
		fields["tags"] = []string{e.Marker}
	}
	if e.Thread != "" {
		fields["process"] = map[string]interface{}{"thread": map[string]interface{}{"name": e.Thread}}
	}
	if e.Err != nil {
		fields["error"] = map[string]interface{}{
			"message":     e.Err.Error(),
			"stack_trace": formatters.FormatError(e.Err, true),
		}
	}
	return fields
}

// Close closes the connection
func (b *Beats) Close() error {
	return b.sink.Close()
}
