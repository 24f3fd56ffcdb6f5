package queue

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/emrgen/propagate/internal/compress"
	"github.com/emrgen/propagate/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var _ ChangeQueue = (*KafkaQueue)(nil)

// KafkaQueue is a change queue on a kafka topic. Changes are keyed by document path so
// the changes of one document stay ordered within a partition.
type KafkaQueue struct {
	brokers  string
	topic    string
	group    string
	codec    codec
	producer *kafka.Producer
}

func NewKafkaQueue(brokers, topic, group string, compress compress.Compress) (*KafkaQueue, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}

	return &KafkaQueue{
		brokers:  brokers,
		topic:    topic,
		group:    group,
		codec:    codec{compress: compress},
		producer: producer,
	}, nil
}

func (q *KafkaQueue) Publish(ctx context.Context, change *model.Change) error {
	payload, err := q.codec.encode(change)
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	err = q.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &q.topic, Partition: kafka.PartitionAny},
		Key:            []byte(change.Path),
		Value:          payload,
	}, delivery)
	if err != nil {
		return errors.Wrapf(err, "produce change %s", change.ID)
	}

	select {
	case event := <-delivery:
		msg, ok := event.(*kafka.Message)
		if !ok {
			return errors.Errorf("unexpected delivery event: %v", event)
		}
		return msg.TopicPartition.Error
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *KafkaQueue) Subscribe(ctx context.Context) (<-chan *model.Change, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": q.brokers,
		"group.id":          q.group,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, errors.Wrap(err, "create kafka consumer")
	}

	if err := consumer.SubscribeTopics([]string{q.topic}, nil); err != nil {
		_ = consumer.Close()
		return nil, errors.Wrapf(err, "subscribe %s", q.topic)
	}

	changes := make(chan *model.Change)
	go func() {
		defer close(changes)
		defer consumer.Close()

		for ctx.Err() == nil {
			msg, err := consumer.ReadMessage(time.Second)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				logrus.Errorf("error reading %s: %v", q.topic, err)
				continue
			}

			change, err := q.codec.decode(msg.Value)
			if err != nil {
				logrus.Errorf("dropping malformed change from %s at %v: %v", q.topic, msg.TopicPartition, err)
				continue
			}

			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		}
	}()

	return changes, nil
}

func (q *KafkaQueue) Close() error {
	q.producer.Flush(5000)
	q.producer.Close()
	return nil
}
