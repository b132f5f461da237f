// Package notify delivers user-facing notifications. Delivery is fire and
// forget; sinks log their own failures and callers never depend on a result.
package notify

import (
	"context"
	"log"
)

// Notification is a single user-facing message.
type Notification struct {
	Title          string
	Body           string
	RelatedTaskIDs []string
}

// Sink delivers notifications.
type Sink interface {
	Show(ctx context.Context, n Notification)
}

// LogSink writes notifications to the process log. Used when no delivery
// transport is configured.
type LogSink struct{}

func (LogSink) Show(_ context.Context, n Notification) {
	if n.Body != "" {
		log.Printf("notify: %s: %s", n.Title, n.Body)
		return
	}
	log.Printf("notify: %s", n.Title)
}

// Multi fans a notification out to several sinks.
type Multi []Sink

func (m Multi) Show(ctx context.Context, n Notification) {
	for _, sink := range m {
		sink.Show(ctx, n)
	}
}
