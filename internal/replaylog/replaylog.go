// Package replaylog appends every frame a server hands to a
// connection to a Kafka topic, so a disconnected client (or an
// auditor) can later reconstruct exactly what was sent and when.
package replaylog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Record is one logged frame: which connection it went to, the raw
// wire bytes, and when it was produced.
type Record struct {
	ConnectionOwnerID uint64
	Bytes             []byte
	Timestamp         time.Time
}

// Config configures a Log's connection to Kafka.
type Config struct {
	Brokers []string
	Topic   string
	Logger  zerolog.Logger
}

// Log is an append-only, best-effort record of frames sent to
// connections. Production never blocks a connection's send path: a
// failed or slow produce is logged and dropped, never retried inline.
type Log struct {
	client *kgo.Client
	topic  string
	logger zerolog.Logger

	mu      sync.Mutex
	written uint64
	dropped uint64
}

// Open connects to the configured brokers and returns a ready Log.
func Open(cfg Config) (*Log, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchMaxBytes(1024*1024),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Log{
		client: client,
		topic:  cfg.Topic,
		logger: cfg.Logger.With().Str("component", "replaylog").Logger(),
	}, nil
}

// Append produces rec to the replay topic asynchronously. Ordering
// within a single connection's key is preserved by Kafka's
// per-partition guarantee; ordering across connections is not.
func (l *Log) Append(ctx context.Context, rec Record) {
	key := fmt.Sprintf("%d", rec.ConnectionOwnerID)
	msg := &kgo.Record{
		Key:       []byte(key),
		Value:     rec.Bytes,
		Topic:     l.topic,
		Timestamp: rec.Timestamp,
	}

	l.client.Produce(ctx, msg, func(_ *kgo.Record, err error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.dropped++
			l.logger.Error().Err(err).Msg("failed to append replay record")
			return
		}
		l.written++
	})
}

// Stats reports how many records have been durably written versus
// dropped since Open.
func (l *Log) Stats() (written, dropped uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written, l.dropped
}

// Close flushes any buffered records and closes the underlying
// client.
func (l *Log) Close(ctx context.Context) error {
	if err := l.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush replay log: %w", err)
	}
	l.client.Close()
	return nil
}
