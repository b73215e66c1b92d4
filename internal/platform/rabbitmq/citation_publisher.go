package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"supportlens/internal/model"
)

// CitationBatch is the message body carried on the citation queue.
type CitationBatch struct {
	QueryLogID uint                  `json:"query_log_id"`
	Citations  []model.CitedDocument `json:"citations"`
}

// CitationPublisher hands citation rows to the persist worker instead of
// writing them on the request path.
type CitationPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewCitationPublisher(conn *amqp.Connection, queueName string) *CitationPublisher {
	return &CitationPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

// Persist publishes the batch; the rows are written once the worker consumes it.
func (p *CitationPublisher) Persist(ctx context.Context, queryLogID uint, docs []model.CitedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(CitationBatch{QueryLogID: queryLogID, Citations: docs})
	if err != nil {
		return fmt.Errorf("marshal citation batch failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish citation batch failed: %w", err)
	}
	return nil
}

// DeclareQueue declares the durable queue shared by publisher and worker.
func DeclareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}
	return nil
}
