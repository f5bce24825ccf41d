package mypubsub

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/MarcGrol/marketplace/lib/mylog"
)

type kafkaPubSub struct {
	writer *kafka.Writer
	logger mylog.Logger
}

func newKafkaPubSub(c context.Context, brokers []string) (PubSub, func(), error) {
	if len(brokers) == 0 {
		return nil, func() {}, fmt.Errorf("kafka pubsub requires at least one broker")
	}

	logger := mylog.New("pubsub")
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(format string, args ...any) {
			logger.Log(context.Background(), "", mylog.SeverityError, "kafka producer: "+format, args...)
		}),
	}

	ps := &kafkaPubSub{
		writer: writer,
		logger: logger,
	}
	return ps, func() {
		err := writer.Close()
		if err != nil {
			ps.logger.Log(c, "", mylog.SeverityError, "Failed to close kafka producer: %s", err)
		}
	}, nil
}

// CreateTopic relies on auto topic creation of the broker.
func (ps *kafkaPubSub) CreateTopic(c context.Context, topic string) error {
	return nil
}

func (ps *kafkaPubSub) Publish(c context.Context, topic string, key string, data string) error {
	err := ps.writer.WriteMessages(c, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: []byte(data),
	})
	if err != nil {
		return fmt.Errorf("failed to produce message on topic %s: %w", topic, err)
	}
	ps.logger.Log(c, key, mylog.SeverityDebug, "Produced message to topic %s", topic)
	return nil
}
