package broker

import (
	"encoding/json"
	"sync"

	uuid "github.com/satori/go.uuid"
)

type sentFrame struct {
	kind    string
	topic   string
	msg     *Message
	ts      string
	code    string
	infoMsg string
}

// stubTransport records emitted frames in place of a websocket connection.
type stubTransport struct {
	mu      sync.Mutex
	frames  []sentFrame
	closed  bool
	emitErr error
}

func (t *stubTransport) EmitEvent(topic string, msg *Message, ts string) error {
	if t.emitErr != nil {
		return t.emitErr
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.frames = append(t.frames, sentFrame{kind: "event", topic: topic, msg: msg, ts: ts})

	return nil
}

func (t *stubTransport) EmitInfo(topic, msg string) error {
	if t.emitErr != nil {
		return t.emitErr
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.frames = append(t.frames, sentFrame{kind: "info", topic: topic, infoMsg: msg})

	return nil
}

func (t *stubTransport) EmitError(code, message string) error {
	if t.emitErr != nil {
		return t.emitErr
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.frames = append(t.frames, sentFrame{kind: "error", code: code, infoMsg: message})

	return nil
}

func (t *stubTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
}

func (t *stubTransport) sent(kind string) []sentFrame {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]sentFrame, 0)

	for _, f := range t.frames {
		if f.kind == kind {
			out = append(out, f)
		}
	}

	return out
}

func (t *stubTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}

func newMessage(payload string) *Message {
	return &Message{ID: uuid.NewV4().String(), Payload: json.RawMessage(payload)}
}
