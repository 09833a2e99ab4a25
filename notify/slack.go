// Package notify mirrors employee notifications to external channels.
package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/warp/attendance-engine/generic"
)

// Slack posts every notification to one ops channel. It implements
// attendance.Sink.
type Slack struct {
	client    *slack.Client
	channelID string
}

// NewSlack creates the mirror. Extra client options (e.g. slack.OptionAPIURL)
// are passed through.
func NewSlack(token, channelID string, opts ...slack.Option) *Slack {
	return &Slack{client: slack.New(token, opts...), channelID: channelID}
}

func (s *Slack) Deliver(ctx context.Context, n generic.Notification) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slack.MsgOptionText(Format(n), false),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

// Format renders a notification as a single chat line.
func Format(n generic.Notification) string {
	return fmt.Sprintf("[%s] %s: %s", n.Type, n.EmployeeID, n.Message)
}
