package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/GenJess/file-chat-sage/internal/model"
)

// TranscriptStore is where drained transcript entries land.
type TranscriptStore interface {
	Create(message *model.ArchivedMessage) error
}

// transcriptChannel is the slice of an AMQP channel the worker consumes
// through.
type transcriptChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// TranscriptPersistWorker drains the transcript queue into MySQL. Archival is
// supplemental durability for the in-memory session transcripts, so a bad
// payload is dropped rather than requeued.
type TranscriptPersistWorker struct {
	conn      *amqp.Connection
	store     TranscriptStore
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTranscriptPersistWorker(
	conn *amqp.Connection,
	store TranscriptStore,
	queueName string,
	logger *zap.Logger,
) *TranscriptPersistWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptPersistWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *TranscriptPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	return w.startConsuming(ctx, ch)
}

func (w *TranscriptPersistWorker) startConsuming(ctx context.Context, ch transcriptChannel) error {
	workerCtx, cancel := context.WithCancel(ctx)

	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.cancel = cancel
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
				w.handle(d)
			}
		}
	}()

	return nil
}

func (w *TranscriptPersistWorker) handle(d amqp.Delivery) {
	var msg model.ArchivedMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		w.logger.Warn("decode transcript entry failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := w.store.Create(&msg); err != nil {
		w.logger.Warn("persist transcript entry failed",
			zap.Uint("user_id", msg.UserID),
			zap.Error(err),
		)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *TranscriptPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
