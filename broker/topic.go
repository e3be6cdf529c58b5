package broker

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/soulgarden/topicbus/dictionary"
)

// Topic owns its subscriber set and history ring. A single mutex serializes
// publishes, history reads and membership changes within the topic.
type Topic struct {
	name string

	mu          sync.Mutex
	subscribers map[string]*Subscriber
	history     *historyRing

	messageCount *atomic.Int64

	logger *zerolog.Logger
}

func newTopic(name string, historySize int, logger *zerolog.Logger) *Topic {
	return &Topic{
		name:         name,
		subscribers:  make(map[string]*Subscriber),
		history:      newHistoryRing(historySize),
		messageCount: atomic.NewInt64(0),
		logger:       logger,
	}
}

func (t *Topic) Name() string { return t.name }

// MessageCount is readable without the topic lock.
func (t *Topic) MessageCount() int64 { return t.messageCount.Load() }

func (t *Topic) SubscriberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.subscribers)
}

// Subscribe snapshots history before inserting the subscriber, under a
// single lock acquisition, so the returned entries form a strict prefix of
// the live stream and no publish lands in both.
func (t *Topic) Subscribe(sub *Subscriber, lastN int) ([]HistoryEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.subscribers[sub.ClientID()]; ok {
		return nil, dictionary.ErrDuplicateClientID
	}

	history := t.history.lastN(lastN)
	t.subscribers[sub.ClientID()] = sub

	t.logger.Info().
		Str("topic", t.name).
		Str("client_id", sub.ClientID()).
		Int("subscribers", len(t.subscribers)).
		Msg("subscriber added")

	return history, nil
}

// RemoveSubscriber deactivates and drops the subscriber if present.
func (t *Topic) RemoveSubscriber(clientID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub, ok := t.subscribers[clientID]
	if !ok {
		return false
	}

	sub.Deactivate()
	delete(t.subscribers, clientID)

	t.logger.Info().
		Str("topic", t.name).
		Str("client_id", clientID).
		Int("subscribers", len(t.subscribers)).
		Msg("subscriber removed")

	return true
}

// Publish appends to history, bumps the counter and fans out to active
// subscribers. Returns the number of subscribers that accepted the frame,
// with or without an eviction.
func (t *Topic) Publish(msg *Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts := time.Now().UTC().Format(dictionary.TsLayout)

	t.history.append(HistoryEntry{Message: msg, Ts: ts})
	t.messageCount.Inc()

	delivered := 0

	for _, sub := range t.subscribers {
		if !sub.IsActive() {
			continue
		}

		if res := sub.Enqueue(DeliveryFrame{Topic: t.name, Message: msg, Ts: ts}); res != Rejected {
			delivered++
		}
	}

	t.logger.Debug().
		Str("topic", t.name).
		Str("message_id", msg.ID).
		Int("delivered", delivered).
		Int("subscribers", len(t.subscribers)).
		Msg("published")

	return delivered
}

// History returns up to lastN retained entries, oldest first.
func (t *Topic) History(lastN int) []HistoryEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.history.lastN(lastN)
}

// Subscribers returns a point-in-time copy for notification paths.
func (t *Topic) Subscribers() []*Subscriber {
	t.mu.Lock()
	defer t.mu.Unlock()

	subs := make([]*Subscriber, 0, len(t.subscribers))
	for _, sub := range t.subscribers {
		subs = append(subs, sub)
	}

	return subs
}
