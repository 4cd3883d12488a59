package status

import (
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// SlackWebhook forwards session updates to a Slack incoming webhook so the
// operator gets pairing codes and disconnect notices without watching the
// console.
type SlackWebhook struct {
	URL string
}

func (s SlackWebhook) PushState(state, detail string) {
	text := fmt.Sprintf("WaClaw connection: *%s*", state)
	if detail != "" {
		text += fmt.Sprintf(" (%s)", detail)
	}
	s.post(text)
}

func (s SlackWebhook) PushPairingCode(code string) {
	s.post(fmt.Sprintf("WaClaw pairing code: `%s` (valid for about 2 minutes)", code))
}

func (s SlackWebhook) post(text string) {
	if s.URL == "" {
		return
	}
	if err := slack.PostWebhook(s.URL, &slack.WebhookMessage{Text: text}); err != nil {
		slog.Warn("slack webhook post failed", "error", err)
	}
}
