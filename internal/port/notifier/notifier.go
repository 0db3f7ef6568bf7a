// Package notifier defines the notification port (interface) and capabilities.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Notification is the payload sent through a Notifier.
type Notification struct {
	Channel string `json:"channel"` // logical channel, e.g. "security", "urgent", "general"
	Message string `json:"message"`
	Mention string `json:"mention,omitempty"` // e.g. "oncall"
	Level   string `json:"level"`             // "info", "warning", "error", "critical"
	Source  string `json:"source"`            // originating event type
}

// Capabilities declares which features a notifier supports.
type Capabilities struct {
	RichFormatting bool `json:"rich_formatting"`
	Mentions       bool `json:"mentions"`
}

// Notifier is the port interface for sending notifications.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "discord", "console").
	Name() string

	// Capabilities returns what this notifier supports.
	Capabilities() Capabilities

	// Send delivers a notification.
	Send(ctx context.Context, notification Notification) error
}
