// Package processors deliver batches of events to downstream systems.
package processors

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/wayneeseguin/logevents/pkg/batch"
)

// Retry defaults for webhook posts
const (
	DefaultRetries = 2
	DefaultBackoff = 500 * time.Millisecond
)

// PayloadFunc builds the JSON document posted for a batch.
type PayloadFunc func(b *batch.Batch) (interface{}, error)

// Webhook posts every batch as one JSON document. Server errors and
// network failures are retried with exponential backoff; client errors are
// not.
type Webhook struct {
	url     string
	kind    string
	payload PayloadFunc
	client  *http.Client
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	indent  bool
}

// WebhookOption configures a Webhook
type WebhookOption func(*Webhook)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// WithRateLimit allows at most perSecond posts per second with the given burst.
func WithRateLimit(perSecond float64, burst int) WebhookOption {
	return func(w *Webhook) { w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithRetries sets how often a failed post is retried and the first backoff
func WithRetries(retries int, backoff time.Duration) WebhookOption {
	return func(w *Webhook) {
		w.retries = retries
		w.backoff = backoff
	}
}

// WithKind names the kind of message in status reports ("slack")
func WithKind(kind string) WebhookOption {
	return func(w *Webhook) { w.kind = kind }
}

// WithIndent posts indented JSON
func WithIndent() WebhookOption {
	return func(w *Webhook) { w.indent = true }
}

// NewWebhook creates a webhook processor posting payload(b) to url. Without
// a payload function the batch is posted with BatchPayload.
func NewWebhook(url string, payload PayloadFunc, opts ...WebhookOption) *Webhook {
	if payload == nil {
		payload = BatchPayload
	}
	w := &Webhook{
		url:     url,
		kind:    "webhook",
		payload: payload,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 0),
		retries: DefaultRetries,
		backoff: DefaultBackoff,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// URL returns the target URL
func (w *Webhook) URL() string {
	return w.url
}

// ProcessBatch implements batch.Processor
func (w *Webhook) ProcessBatch(ctx context.Context, b *batch.Batch) error {
	body, err := w.render(b)
	if err != nil {
		return &batch.ProcessError{Message: "Runtime error generating " + w.kind + " message", Fatal: true, Err: err}
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return &batch.ProcessError{Message: "Failed to send " + w.kind + " message", Err: err}
	}

	backoff := w.backoff
	for attempt := 0; ; attempt++ {
		retry, err := w.post(ctx, body)
		if err == nil {
			return nil
		}
		if !retry || attempt >= w.retries {
			return &batch.ProcessError{Message: "Failed to send " + w.kind + " message", Err: err}
		}

		select {
		case <-ctx.Done():
			return &batch.ProcessError{Message: "Failed to send " + w.kind + " message", Err: err}
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (w *Webhook) render(b *batch.Batch) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("payload panic: %v", r)
		}
	}()

	payload, err := w.payload(b)
	if err != nil {
		return nil, err
	}
	if w.indent {
		return json.MarshalIndent(payload, "", "  ")
	}
	return json.Marshal(payload)
}

// post sends one request. retry reports whether a failure may succeed on a
// later attempt.
func (w *Webhook) post(ctx context.Context, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return false, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, errors.Wrapf(err, "Failed to POST to %s", w.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err = errors.Errorf("Failed to POST to %s, status code: %d: %s", w.url, resp.StatusCode, bytes.TrimSpace(detail))
	return resp.StatusCode >= 500, err
}
