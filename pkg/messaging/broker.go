package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channel names used across the api and worker processes.
const (
	ChannelNotifications = "notifications"
	ChannelEvents        = "events"
)
