// Package journal produces every applied chat mutation to a Kafka topic for
// downstream platform consumers. Writes are asynchronous and best-effort;
// the broadcast path never waits on the broker and a write failure never
// reaches a connection.
package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Journal struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func New(brokers []string, topic string, log *zap.Logger) *Journal {
	j := &Journal{log: log}
	j.writer = &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
		Async:    true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				j.log.Warn("journal write failed",
					zap.Int("events", len(messages)),
					zap.Error(err))
			}
		},
	}
	return j
}

// Record produces one applied mutation, keyed by channel id so a consumer
// reads each channel's events in order.
func (j *Journal) Record(channelID string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		j.log.Warn("marshal journal event", zap.Error(err))
		return
	}

	err = j.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(channelID),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		j.log.Warn("journal enqueue failed", zap.Error(err))
	}
}

func (j *Journal) Close() error {
	return j.writer.Close()
}
