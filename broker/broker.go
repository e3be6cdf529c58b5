package broker

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tevino/abool"

	"github.com/soulgarden/topicbus/conf"
	"github.com/soulgarden/topicbus/dictionary"
)

type TopicInfo struct {
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
}

type TopicStats struct {
	Messages    int64 `json:"messages"`
	Subscribers int   `json:"subscribers"`
}

// Broker is the process-wide topic registry. The registry lock protects only
// the topic map; per-topic state lives behind each topic's own lock, always
// acquired after the registry lock, never before.
type Broker struct {
	cfg *conf.Server

	mu     sync.RWMutex
	topics map[string]*Topic

	startedAt    time.Time
	shuttingDown *abool.AtomicBool

	logger *zerolog.Logger
}

func New(cfg *conf.Server, logger *zerolog.Logger) *Broker {
	return &Broker{
		cfg:          cfg,
		topics:       make(map[string]*Topic),
		startedAt:    time.Now(),
		shuttingDown: abool.New(),
		logger:       logger,
	}
}

func (b *Broker) CreateTopic(name string) error {
	if b.shuttingDown.IsSet() {
		return dictionary.ErrShuttingDown
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.topics[name]; ok {
		return dictionary.ErrTopicExists
	}

	b.topics[name] = newTopic(name, b.cfg.TopicHistorySize, b.logger)

	b.logger.Info().Str("topic", name).Int("topics", len(b.topics)).Msg("topic created")

	return nil
}

// DeleteTopic removes the topic from the registry, then notifies and
// deactivates every subscriber it had. Notification failures are logged and
// never abort the deletion.
func (b *Broker) DeleteTopic(name string) error {
	b.mu.Lock()

	t, ok := b.topics[name]
	if !ok {
		b.mu.Unlock()

		return dictionary.ErrTopicNotFound
	}

	delete(b.topics, name)
	b.mu.Unlock()

	for _, sub := range t.Subscribers() {
		if err := sub.Transport().EmitInfo(name, dictionary.TopicDeletedMsg); err != nil {
			b.logger.Warn().
				Err(err).
				Str("topic", name).
				Str("client_id", sub.ClientID()).
				Msg("notify subscriber about topic deletion")
		}

		sub.Deactivate()
	}

	b.logger.Info().Str("topic", name).Msg("topic deleted")

	return nil
}

func (b *Broker) topic(name string) (*Topic, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.topics[name]
	if !ok {
		return nil, dictionary.ErrTopicNotFound
	}

	return t, nil
}

// Subscribe attaches a new subscriber to the topic and returns the history
// snapshot for lastN. The registry lock is held only for the topic lookup.
func (b *Broker) Subscribe(topicName, clientID string, tr Transport, lastN int) ([]HistoryEntry, *Subscriber, error) {
	if b.shuttingDown.IsSet() {
		return nil, nil, dictionary.ErrShuttingDown
	}

	t, err := b.topic(topicName)
	if err != nil {
		return nil, nil, err
	}

	sub := NewSubscriber(clientID, tr, b.cfg.MaxSubscriberQueueSize, !b.cfg.DisconnectSlowConsumer, b.logger)

	history, err := t.Subscribe(sub, lastN)
	if err != nil {
		return nil, nil, err
	}

	return history, sub, nil
}

// Unsubscribe is idempotent for the subscriber: removing an unknown
// client_id from an existing topic is not an error.
func (b *Broker) Unsubscribe(topicName, clientID string) error {
	t, err := b.topic(topicName)
	if err != nil {
		return err
	}

	t.RemoveSubscriber(clientID)

	return nil
}

func (b *Broker) Publish(topicName string, msg *Message) (int, error) {
	if b.shuttingDown.IsSet() {
		return 0, dictionary.ErrShuttingDown
	}

	t, err := b.topic(topicName)
	if err != nil {
		return 0, err
	}

	return t.Publish(msg), nil
}

func (b *Broker) List() []TopicInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]TopicInfo, 0, len(b.topics))
	for name, t := range b.topics {
		out = append(out, TopicInfo{Name: name, Subscribers: t.SubscriberCount()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

func (b *Broker) Stats() map[string]TopicStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]TopicStats, len(b.topics))
	for name, t := range b.topics {
		out[name] = TopicStats{Messages: t.MessageCount(), Subscribers: t.SubscriberCount()}
	}

	return out
}

// Topics returns a registry snapshot for notification paths.
func (b *Broker) Topics() []*Topic {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*Topic, 0, len(b.topics))
	for _, t := range b.topics {
		out = append(out, t)
	}

	return out
}

func (b *Broker) TopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.topics)
}

func (b *Broker) TotalSubscribers() int {
	total := 0
	for _, t := range b.Topics() {
		total += t.SubscriberCount()
	}

	return total
}

func (b *Broker) Uptime() int64 {
	return int64(time.Since(b.startedAt).Seconds())
}

// Quiesce rejects new subscribes and publishes; reads keep working so the
// control plane stays observable during the drain window.
func (b *Broker) Quiesce() {
	b.shuttingDown.Set()
}

func (b *Broker) IsShuttingDown() bool {
	return b.shuttingDown.IsSet()
}
