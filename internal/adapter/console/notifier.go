// Package console implements a notifier.Notifier that writes to the
// process log. It is the default provider and the one demos run with.
package console

import (
	"context"
	"log/slog"

	"github.com/avely-dev/flowpulse/internal/port/notifier"
)

const providerName = "console"

func init() {
	notifier.Register(providerName, func(map[string]string) (notifier.Notifier, error) {
		return New(), nil
	})
}

// Notifier logs notifications instead of delivering them externally.
type Notifier struct{}

// New creates a console notifier.
func New() *Notifier { return &Notifier{} }

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{}
}

func (n *Notifier) Send(_ context.Context, notification notifier.Notification) error {
	slog.Info("notify",
		"channel", notification.Channel,
		"message", notification.Message,
		"mention", notification.Mention,
		"level", notification.Level,
		"source", notification.Source,
	)
	return nil
}
