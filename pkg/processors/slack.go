package processors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/logevents/pkg/batch"
	"github.com/wayneeseguin/logevents/pkg/formatters"
	"github.com/wayneeseguin/logevents/pkg/types"
)

// SlackMessage is the payload of a Slack incoming webhook
type SlackMessage struct {
	Username    string            `json:"username,omitempty"`
	Channel     string            `json:"channel,omitempty"`
	Attachments []SlackAttachment `json:"attachments"`
	Text        string            `json:"text"`
}

// SlackAttachment shows one group of the batch
type SlackAttachment struct {
	Fallback string `json:"fallback"`
	Color    string `json:"color"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Footer   string `json:"footer,omitempty"`
	Ts       int64  `json:"ts,omitempty"`
}

// SlackFormatter turns a batch into a Slack message. The headline is the
// first message of the most severe group.
type SlackFormatter struct {
	Username string
	Channel  string
}

// Message builds the Slack message for a batch
func (f SlackFormatter) Message(b *batch.Batch) (*SlackMessage, error) {
	main := b.MainGroup()
	if main == nil {
		return nil, errors.New("empty batch")
	}

	msg := &SlackMessage{
		Username: f.Username,
		Channel:  f.Channel,
		Text:     headline(main),
	}
	for _, g := range b.Groups() {
		msg.Attachments = append(msg.Attachments, attachment(g))
	}
	return msg, nil
}

func headline(g *batch.Group) string {
	text := g.Head().Message()
	if g.Count() > 1 {
		text += fmt.Sprintf(" (%d times)", g.Count())
	}
	return text
}

func attachment(g *batch.Group) SlackAttachment {
	head := g.Head()
	var text strings.Builder
	text.WriteString(head.Message())
	if head.Err != nil {
		text.WriteString("\n```")
		text.WriteString(strings.TrimSuffix(formatters.FormatError(head.Err, false), "\n"))
		text.WriteString("```")
	}

	a := SlackAttachment{
		Fallback: fmt.Sprintf("%s %s: %s", head.Level, head.Logger, head.Message()),
		Color:    slackColor(head.Level),
		Title:    fmt.Sprintf("%s %s", head.Level, head.Logger),
		Text:     text.String(),
		Ts:       head.Time.Unix(),
	}
	if g.Count() > 1 {
		a.Footer = fmt.Sprintf("%d occurrences, last at %s", g.Count(), g.Last().Time.Format("15:04:05"))
	}
	if head.Time.IsZero() {
		a.Ts = 0
	}
	return a
}

func slackColor(level types.Level) string {
	switch level {
	case types.LevelError:
		return "danger"
	case types.LevelWarn:
		return "warning"
	case types.LevelInfo:
		return "good"
	}
	return "#cccccc"
}

// NewSlack creates a processor posting batches to a Slack incoming webhook.
func NewSlack(url string, f SlackFormatter, opts ...WebhookOption) *Webhook {
	payload := func(b *batch.Batch) (interface{}, error) {
		return f.Message(b)
	}
	opts = append([]WebhookOption{WithKind("slack"), WithIndent()}, opts...)
	return NewWebhook(url, payload, opts...)
}
