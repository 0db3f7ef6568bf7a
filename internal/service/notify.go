package service

import (
	"context"
	"log/slog"

	"github.com/avely-dev/flowpulse/internal/port/notifier"
)

// NotificationService fans a notification out to every configured provider.
// A provider failure is logged and does not affect the others.
type NotificationService struct {
	providers []notifier.Notifier
	logger    *slog.Logger
}

// NewNotificationService creates a notification service over the given providers.
func NewNotificationService(providers []notifier.Notifier, logger *slog.Logger) *NotificationService {
	return &NotificationService{providers: providers, logger: logger}
}

// Notify sends n to all providers.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	for _, p := range s.providers {
		if err := p.Send(ctx, n); err != nil {
			s.logger.Warn("notification send failed",
				"provider", p.Name(), "channel", n.Channel, "error", err)
		}
	}
}

// Providers returns the names of all configured providers.
func (s *NotificationService) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}
