// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/chronotrack-io/chronotrack/internal/logger"
	"github.com/chronotrack-io/chronotrack/internal/port/messagequeue"
)

const (
	streamName = "CHRONOTRACK"

	headerRequestID  = "X-Request-ID"
	headerRetryCount = "Retry-Count"

	// maxRetries is how many delivery attempts a message gets before it is
	// moved to the subject's DLQ.
	maxRetries = 3
)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream
// covering the organization lifecycle subjects exists.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"orgs.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js}, nil
}

// KeyValue opens (or creates) the named JetStream KV bucket. Used for the L2
// cache tier.
func (q *Queue) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := q.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("jetstream kv bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// Publish sends a message to the given subject. The request ID from ctx, if
// any, travels in a header so subscribers log under the same ID.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	if reqID := logger.RequestID(ctx); reqID != "" {
		msg.Header.Set(headerRequestID, reqID)
	}

	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject. Messages
// that fail schema validation, or whose handler keeps failing past the retry
// budget, are moved to "<subject>.dlq".
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		msgCtx := ctx
		if reqID := msg.Headers().Get(headerRequestID); reqID != "" {
			msgCtx = logger.WithRequestID(msgCtx, reqID)
		}

		if err := messagequeue.Validate(msg.Subject(), msg.Data()); err != nil {
			slog.Error("message failed validation", "subject", msg.Subject(), "error", err)
			q.moveToDLQ(msgCtx, msg)
			return
		}

		if err := handler(msgCtx, msg.Subject(), msg.Data()); err != nil {
			slog.Error("message handler failed", "subject", msg.Subject(), "error", err)
			attempts := retryCount(msg.Headers())
			if meta, metaErr := msg.Metadata(); metaErr == nil && int(meta.NumDelivered) > attempts {
				attempts = int(meta.NumDelivered)
			}
			if attempts >= maxRetries {
				q.moveToDLQ(msgCtx, msg)
				return
			}
			if nakErr := msg.Nak(); nakErr != nil {
				slog.Error("nats nak failed", "error", nakErr)
			}
			return
		}

		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// moveToDLQ republishes the message under "<subject>.dlq" and acks the
// original so it is not redelivered.
func (q *Queue) moveToDLQ(ctx context.Context, msg jetstream.Msg) {
	dlq := &nats.Msg{
		Subject: msg.Subject() + ".dlq",
		Data:    msg.Data(),
		Header:  msg.Headers(),
	}
	if dlq.Header == nil {
		dlq.Header = nats.Header{}
	}
	if _, err := q.js.PublishMsg(ctx, dlq); err != nil {
		slog.Error("nats dlq publish failed", "subject", dlq.Subject, "error", err)
		// Leave the original unacked so it is retried rather than lost.
		return
	}
	if err := msg.Ack(); err != nil {
		slog.Error("nats ack after dlq failed", "error", err)
	}
}

// retryCount reads how many delivery attempts the message has already used.
func retryCount(hdrs nats.Header) int {
	if hdrs == nil {
		return 0
	}
	n, err := strconv.Atoi(hdrs.Get(headerRetryCount))
	if err != nil {
		return 0
	}
	return n
}

// Drain processes pending messages, then closes the connection.
func (q *Queue) Drain() error {
	return q.nc.Drain()
}

// Close shuts down the NATS connection immediately.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

// IsConnected reports whether the NATS connection is up.
func (q *Queue) IsConnected() bool {
	return q.nc != nil && q.nc.IsConnected()
}
