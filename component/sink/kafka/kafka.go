package kafka

import (
	"github.com/RuiFG/streaming/streaming-polling/element"
	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Config struct {
	SaramaConfig *sarama.Config
	Addresses    []string
	Topic        string
	// Key is attached to every message, a random run id when empty.
	Key string
}

// Sink submits every value as one message through a synchronous producer,
// so a failed delivery surfaces as a Submit error.
type Sink struct {
	producer sarama.SyncProducer
	topic    string
	key      sarama.Encoder
}

var _ element.Output[[]byte] = &Sink{}

func (s *Sink) Submit(value []byte) error {
	if _, _, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   s.key,
		Value: sarama.ByteEncoder(value),
	}); err != nil {
		return errors.WithMessagef(err, "failed to produce to %s", s.topic)
	}
	return nil
}

func (s *Sink) Close() error {
	return s.producer.Close()
}

// NewWithProducer wraps an existing producer; tests pass sarama/mocks here.
func NewWithProducer(producer sarama.SyncProducer, topic string, key string) (*Sink, error) {
	if producer == nil {
		return nil, errors.New("producer can't be nil")
	}
	if topic == "" {
		return nil, errors.New("topic can't be empty")
	}
	if key == "" {
		key = uuid.NewString()
	}
	return &Sink{producer: producer, topic: topic, key: sarama.StringEncoder(key)}, nil
}

func New(config Config) (*Sink, error) {
	saramaConfig := config.SaramaConfig
	if saramaConfig == nil {
		saramaConfig = sarama.NewConfig()
	}
	//required by the sync producer
	saramaConfig.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(config.Addresses, saramaConfig)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create kafka producer")
	}
	sink, err := NewWithProducer(producer, config.Topic, config.Key)
	if err != nil {
		_ = producer.Close()
		return nil, err
	}
	return sink, nil
}
