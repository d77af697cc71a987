package processors

import (
	"github.com/wayneeseguin/logevents/pkg/batch"
	"github.com/wayneeseguin/logevents/pkg/formatters"
)

// GroupPayload is the JSON form of one group of a batch.
type GroupPayload struct {
	Logger   string                   `json:"logger"`
	Level    string                   `json:"level"`
	Template string                   `json:"template"`
	Count    int                      `json:"count"`
	Events   []map[string]interface{} `json:"events"`
}

// Payload is the JSON form of a batch posted by webhooks and published on
// NATS.
type Payload struct {
	Count  int            `json:"count"`
	Groups []GroupPayload `json:"groups"`
}

var payloadFormatter = func() *formatters.JSONFormatter {
	f := formatters.NewJSONFormatter()
	f.Options.TimestampFormat = "2006-01-02T15:04:05.000Z07:00"
	return f
}()

// BatchPayload renders a batch as a Payload.
func BatchPayload(b *batch.Batch) (interface{}, error) {
	return NewPayload(b), nil
}

// NewPayload renders a batch, keeping groups in first seen order.
func NewPayload(b *batch.Batch) Payload {
	p := Payload{Count: b.Len()}
	for _, g := range b.Groups() {
		gp := GroupPayload{
			Logger:   g.Fingerprint.Logger,
			Level:    g.Fingerprint.Level.String(),
			Template: g.Fingerprint.Template,
			Count:    g.Count(),
		}
		for _, e := range g.Events() {
			gp.Events = append(gp.Events, payloadFormatter.Entry(e))
		}
		p.Groups = append(p.Groups, gp)
	}
	return p
}
