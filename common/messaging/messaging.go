// Package messaging defines the broker-agnostic types services use to emit
// and consume messages.
package messaging

import (
	"context"
	"time"
)

// Message is a message received from or sent to a broker.
type Message struct {
	Subject string
	Data    []byte

	// Reply is set for request/reply exchanges.
	Reply string

	// Metadata is carried as message headers.
	Metadata map[string]string

	Timestamp time.Time
}

// MessageHandler processes a received message.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription is an active subscription to a subject.
type Subscription interface {
	Unsubscribe() error
	Subject() string
	IsValid() bool
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish is fire-and-forget.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishMsg sends a Message including its metadata as headers.
	PublishMsg(ctx context.Context, msg *Message) error

	Close() error
}

// Subscriber subscribes to messages on subjects.
type Subscriber interface {
	Subscribe(subject string, handler MessageHandler) (Subscription, error)
	QueueSubscribe(subject, queue string, handler MessageHandler) (Subscription, error)
	Close() error
}

// Client combines Publisher and Subscriber.
type Client interface {
	Publisher
	Subscriber

	// Drain closes the connection after in-flight messages complete.
	Drain() error
	IsConnected() bool
}

// PublishOption configures a single publish.
type PublishOption func(*PublishOptions)

// PublishOptions is the resolved set of publish options.
type PublishOptions struct {
	Headers map[string]string
}

// WithHeader adds a header to the published message.
func WithHeader(key, value string) PublishOption {
	return func(o *PublishOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// ApplyPublishOptions folds opts into a PublishOptions value.
func ApplyPublishOptions(opts ...PublishOption) PublishOptions {
	var o PublishOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
