package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const orderCreatedTopic = "storefront.order.created"

type OrderCreated struct {
	OrderID    string    `json:"order_id"`
	BuyerID    int64     `json:"buyer_id"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// Publisher writes order events to Kafka. An empty broker list disables it.
type Publisher struct {
	brokers []string
	writer  *kafka.Writer
}

func NewPublisher(brokersCSV string) *Publisher {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}

	p := &Publisher{brokers: brokers}
	if len(brokers) > 0 {
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        orderCreatedTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		}
	}
	return p
}

func (p *Publisher) Enabled() bool {
	return len(p.brokers) > 0
}

func (p *Publisher) PublishOrderCreated(ctx context.Context, evt OrderCreated) error {
	if !p.Enabled() {
		return nil
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: payload,
	})
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
