package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GenJess/file-chat-sage/internal/model"
)

type mockTranscriptStore struct {
	mu       sync.Mutex
	createFn func(message *model.ArchivedMessage) error
	stored   []model.ArchivedMessage
}

func (m *mockTranscriptStore) Create(message *model.ArchivedMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFn != nil {
		if err := m.createFn(message); err != nil {
			return err
		}
	}
	m.stored = append(m.stored, *message)
	return nil
}

func (m *mockTranscriptStore) records() []model.ArchivedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ArchivedMessage, len(m.stored))
	copy(out, m.stored)
	return out
}

type mockChannel struct {
	declareFn func(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	consumeFn func(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	closed    chan struct{}
}

func (m *mockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if m.declareFn != nil {
		return m.declareFn(name, durable, autoDelete, exclusive, noWait, args)
	}
	return amqp.Queue{Name: name}, nil
}

func (m *mockChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return m.consumeFn(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
}

func (m *mockChannel) Close() error {
	close(m.closed)
	return nil
}

// ackRecorder satisfies amqp.Acknowledger and records the outcome of one
// delivery.
type ackRecorder struct {
	mu     sync.Mutex
	acked  bool
	nacked bool
	done   chan struct{}
}

func newAckRecorder() *ackRecorder {
	return &ackRecorder{done: make(chan struct{})}
}

func (a *ackRecorder) Ack(_ uint64, _ bool) error {
	a.mu.Lock()
	a.acked = true
	a.mu.Unlock()
	close(a.done)
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	a.nacked = true
	a.mu.Unlock()
	close(a.done)
	return nil
}

func (a *ackRecorder) Reject(_ uint64, _ bool) error {
	return a.Nack(0, false, false)
}

func (a *ackRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-a.done:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery was never settled")
	}
}

func startTestWorker(t *testing.T, store TranscriptStore) chan amqp.Delivery {
	t.Helper()
	deliveries := make(chan amqp.Delivery, 4)
	ch := &mockChannel{
		closed: make(chan struct{}),
		consumeFn: func(queue, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
			assert.Equal(t, "chat.transcript.persist", queue)
			return deliveries, nil
		},
	}

	w := NewTranscriptPersistWorker(nil, store, "chat.transcript.persist", nil)
	require.NoError(t, w.startConsuming(context.Background(), ch))
	t.Cleanup(func() {
		close(deliveries)
		w.Close()
	})
	return deliveries
}

func TestWorkerPersistsAndAcks(t *testing.T) {
	store := &mockTranscriptStore{}
	deliveries := startTestWorker(t, store)

	entry := model.ArchivedMessage{UserID: 1, MessageID: "1700000000000", Role: "user", Content: "hello"}
	body, err := json.Marshal(entry)
	require.NoError(t, err)

	ack := newAckRecorder()
	deliveries <- amqp.Delivery{Acknowledger: ack, Body: body}
	ack.wait(t)

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	records := store.records()
	require.Len(t, records, 1)
	assert.Equal(t, uint(1), records[0].UserID)
	assert.Equal(t, "hello", records[0].Content)
}

func TestWorkerNacksUndecodablePayload(t *testing.T) {
	store := &mockTranscriptStore{}
	deliveries := startTestWorker(t, store)

	ack := newAckRecorder()
	deliveries <- amqp.Delivery{Acknowledger: ack, Body: []byte("not json")}
	ack.wait(t)

	assert.True(t, ack.nacked)
	assert.Empty(t, store.records())
}

func TestWorkerNacksOnStoreFailure(t *testing.T) {
	store := &mockTranscriptStore{
		createFn: func(*model.ArchivedMessage) error { return fmt.Errorf("mysql down") },
	}
	deliveries := startTestWorker(t, store)

	body, err := json.Marshal(model.ArchivedMessage{UserID: 2, Content: "x"})
	require.NoError(t, err)

	ack := newAckRecorder()
	deliveries <- amqp.Delivery{Acknowledger: ack, Body: body}
	ack.wait(t)

	assert.True(t, ack.nacked)
	assert.False(t, ack.acked)
	assert.Empty(t, store.records())
}

func TestWorkerDeclareFailureClosesChannel(t *testing.T) {
	ch := &mockChannel{
		closed: make(chan struct{}),
		declareFn: func(string, bool, bool, bool, bool, amqp.Table) (amqp.Queue, error) {
			return amqp.Queue{}, fmt.Errorf("broker refused")
		},
	}

	w := NewTranscriptPersistWorker(nil, &mockTranscriptStore{}, "q", nil)
	err := w.startConsuming(context.Background(), ch)
	require.Error(t, err)

	select {
	case <-ch.closed:
	default:
		t.Fatal("channel was not closed")
	}
}

func TestWorkerStopsWhenDeliveriesClose(t *testing.T) {
	store := &mockTranscriptStore{}
	deliveries := make(chan amqp.Delivery)
	ch := &mockChannel{
		closed: make(chan struct{}),
		consumeFn: func(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
			return deliveries, nil
		},
	}

	w := NewTranscriptPersistWorker(nil, store, "q", nil)
	require.NoError(t, w.startConsuming(context.Background(), ch))

	close(deliveries)
	w.Close()

	select {
	case <-ch.closed:
	default:
		t.Fatal("channel was not closed after shutdown")
	}
}
