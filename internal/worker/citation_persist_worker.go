package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"supportlens/internal/model"
	"supportlens/internal/platform/logger"
	"supportlens/internal/platform/rabbitmq"
)

// ErrMalformedBatch marks a message that can never be written.
var ErrMalformedBatch = errors.New("malformed citation batch")

type CitationWriter interface {
	Persist(ctx context.Context, queryLogID uint, docs []model.CitedDocument) error
}

// CitationPersistWorker drains the citation queue into the citation store.
type CitationPersistWorker struct {
	conn      *amqp.Connection
	writer    CitationWriter
	queueName string
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCitationPersistWorker(conn *amqp.Connection, writer CitationWriter, queueName string, log *logger.Logger) *CitationPersistWorker {
	if log == nil {
		log = logger.NewNop()
	}
	return &CitationPersistWorker{
		conn:      conn,
		writer:    writer,
		queueName: queueName,
		log:       log.With("worker", "citation_persist", "queue", queueName),
	}
}

func (w *CitationPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					requeue := shouldRequeue(err, d.Redelivered)
					w.log.Error("persist citation batch failed", "error", err, "requeue", requeue)
					_ = d.Nack(false, requeue)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.Info("citation worker started")
	return nil
}

// Handle decodes one message body and writes its rows.
func (w *CitationPersistWorker) Handle(ctx context.Context, body []byte) error {
	var batch rabbitmq.CitationBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return fmt.Errorf("%w: decode failed: %v", ErrMalformedBatch, err)
	}
	if batch.QueryLogID == 0 {
		return fmt.Errorf("%w: missing query log id", ErrMalformedBatch)
	}
	return w.writer.Persist(ctx, batch.QueryLogID, batch.Citations)
}

// shouldRequeue gives a failed write one more delivery. Malformed bodies and
// messages that already failed once are dropped.
func shouldRequeue(err error, redelivered bool) bool {
	return !errors.Is(err, ErrMalformedBatch) && !redelivered
}

func (w *CitationPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
