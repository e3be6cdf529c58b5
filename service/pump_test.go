package service

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/require"

	"github.com/soulgarden/topicbus/broker"
	"github.com/soulgarden/topicbus/dictionary"
)

type recordingTransport struct {
	mu      sync.Mutex
	events  []broker.DeliveryFrame
	emitErr error
	gotOne  chan struct{}
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{gotOne: make(chan struct{}, 1024)}
}

func (t *recordingTransport) EmitEvent(topic string, msg *broker.Message, ts string) error {
	if t.emitErr != nil {
		return t.emitErr
	}

	t.mu.Lock()
	t.events = append(t.events, broker.DeliveryFrame{Topic: topic, Message: msg, Ts: ts})
	t.mu.Unlock()

	t.gotOne <- struct{}{}

	return nil
}

func (t *recordingTransport) EmitInfo(string, string) error { return nil }

func (t *recordingTransport) EmitError(string, string) error { return nil }

func (t *recordingTransport) Close() {}

func (t *recordingTransport) snapshot() []broker.DeliveryFrame {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]broker.DeliveryFrame, len(t.events))
	copy(out, t.events)

	return out
}

func nopLogger() *zerolog.Logger {
	logger := zerolog.Nop()

	return &logger
}

func newFrame(topic, payload string) broker.DeliveryFrame {
	return broker.DeliveryFrame{
		Topic:   topic,
		Message: &broker.Message{ID: uuid.NewV4().String(), Payload: []byte(payload)},
		Ts:      "2026-01-02T03:04:05.000Z",
	}
}

func TestPump_DeliversInOrder(t *testing.T) {
	t.Parallel()

	tr := newRecordingTransport()
	sub := broker.NewSubscriber("c", tr, 10, true, nopLogger())

	frames := []broker.DeliveryFrame{
		newFrame("t", `{"i":1}`),
		newFrame("t", `{"i":2}`),
		newFrame("t", `{"i":3}`),
	}

	for _, f := range frames {
		require.Equal(t, broker.Delivered, sub.Enqueue(f))
	}

	done := make(chan struct{})

	go func() {
		NewPump("t", sub, nopLogger()).Run()
		close(done)
	}()

	for range frames {
		select {
		case <-tr.gotOne:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	got := tr.snapshot()
	require.Len(t, got, 3)

	for i, f := range frames {
		require.Equal(t, f.Message.ID, got[i].Message.ID)
		require.Equal(t, f.Ts, got[i].Ts)
	}

	sub.Deactivate()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop after deactivation")
	}
}

func TestPump_DrainsQueuedFramesOnDeactivate(t *testing.T) {
	t.Parallel()

	tr := newRecordingTransport()
	sub := broker.NewSubscriber("c", tr, 10, true, nopLogger())

	for i := 0; i < 5; i++ {
		require.Equal(t, broker.Delivered, sub.Enqueue(newFrame("t", `{}`)))
	}

	sub.Deactivate()

	done := make(chan struct{})

	go func() {
		NewPump("t", sub, nopLogger()).Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop")
	}

	require.Len(t, tr.snapshot(), 5)
	require.Equal(t, 0, sub.Len())
}

func TestPump_StopsOnEmitError(t *testing.T) {
	t.Parallel()

	tr := newRecordingTransport()
	tr.emitErr = dictionary.ErrWriteChannelClosed

	sub := broker.NewSubscriber("c", tr, 10, true, nopLogger())

	require.Equal(t, broker.Delivered, sub.Enqueue(newFrame("t", `{}`)))

	done := make(chan struct{})

	go func() {
		NewPump("t", sub, nopLogger()).Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop on emit error")
	}

	require.Empty(t, tr.snapshot())
}
