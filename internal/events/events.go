// Package events publishes order lifecycle events.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/xenking/inventory-offers/internal/domain/order"
	"github.com/xenking/inventory-offers/internal/wire"
)

// TypeOrderCreated is the event type of a committed order.
const TypeOrderCreated = "order.created"

// MessageWriter is the subset of *kafka.Writer used by Kafka.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ order.Publisher = (*Kafka)(nil)
	_ order.Publisher = Nop{}
)

// Kafka publishes order events to a Kafka topic, keyed by order ID.
type Kafka struct {
	w    MessageWriter
	prop propagation.TextMapPropagator
	now  func() time.Time
}

// KafkaConfig configures NewKafkaWriter.
type KafkaConfig struct {
	Brokers []string
	Topic   string

	// BatchTimeout bounds how long a write waits for a batch to fill.
	// Zero means DefaultBatchTimeout.
	BatchTimeout time.Duration
}

// DefaultBatchTimeout keeps synchronous order writes from waiting on the
// writer's one second default.
const DefaultBatchTimeout = 10 * time.Millisecond

// NewKafkaWriter returns a writer that waits for all in-sync replicas and
// hashes keys so events of one order land on one partition.
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           batchTimeout,
	}
}

// NewKafka wraps w. Trace context is injected into message headers with the
// global propagator.
func NewKafka(w MessageWriter) *Kafka {
	return &Kafka{
		w:    w,
		prop: otel.GetTextMapPropagator(),
		now:  time.Now,
	}
}

func (k *Kafka) OrderCreated(ctx context.Context, o *order.Order) error {
	msg := kafka.Message{
		Key:   []byte(o.ID),
		Value: EncodeOrderCreated(o),
		Time:  k.now(),
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(TypeOrderCreated)},
		},
	}
	k.prop.Inject(ctx, (*headerCarrier)(&msg.Headers))

	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "write order created")
	}
	zctx.From(ctx).Debug("Published order event", zap.String("order_id", o.ID))
	return nil
}

// Close flushes and closes the underlying writer.
func (k *Kafka) Close() error {
	return k.w.Close()
}

// EncodeOrderCreated returns the JSON event envelope for o.
func EncodeOrderCreated(o *order.Order) []byte {
	return wire.Encode(func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("type")
		e.Str(TypeOrderCreated)
		e.FieldStart("order")
		wire.EncodeOrder(e, o)
		e.ObjEnd()
	})
}

// DecodeOrderCreated parses an envelope written by EncodeOrderCreated.
func DecodeOrderCreated(data []byte) (*order.Order, error) {
	var (
		typ string
		o   *order.Order
	)
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "type":
			typ, err = d.Str()
		case "order":
			o, err = wire.DecodeOrder(d)
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode event")
	}
	if typ != TypeOrderCreated {
		return nil, errors.Errorf("unexpected event type %q", typ)
	}
	if o == nil {
		return nil, errors.New("event has no order")
	}
	return o, nil
}

// Nop discards events. It is used when no brokers are configured.
type Nop struct{}

func (Nop) OrderCreated(context.Context, *order.Order) error { return nil }

// headerCarrier adapts Kafka headers to propagation.TextMapCarrier.
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c))
	for i, h := range *c {
		keys[i] = h.Key
	}
	return keys
}
