package broker

import (
	"github.com/rs/zerolog"
	"github.com/tevino/abool"

	"github.com/soulgarden/topicbus/dictionary"
)

type EnqueueResult int

const (
	Delivered EnqueueResult = iota
	DroppedOldest
	Rejected
)

// Transport is the connection-side surface a subscriber holds. Lifecycle
// notifications (EmitInfo, EmitError) bypass the delivery queue.
type Transport interface {
	EmitEvent(topic string, msg *Message, ts string) error
	EmitInfo(topic, msg string) error
	EmitError(code, message string) error
	Close()
}

// Subscriber is one consumer of one topic: a bounded FIFO delivery queue,
// an active flag and the transport handle events are emitted through.
type Subscriber struct {
	clientID   string
	transport  Transport
	queue      chan DeliveryFrame
	active     *abool.AtomicBool
	done       chan struct{}
	dropOldest bool
	logger     *zerolog.Logger
}

func NewSubscriber(clientID string, tr Transport, queueSize int, dropOldest bool, logger *zerolog.Logger) *Subscriber {
	if queueSize < 1 {
		queueSize = 1
	}

	return &Subscriber{
		clientID:   clientID,
		transport:  tr,
		queue:      make(chan DeliveryFrame, queueSize),
		active:     abool.NewBool(true),
		done:       make(chan struct{}),
		dropOldest: dropOldest,
		logger:     logger,
	}
}

func (s *Subscriber) ClientID() string { return s.clientID }

func (s *Subscriber) Transport() Transport { return s.transport }

// Queue is the pump's read side of the delivery queue.
func (s *Subscriber) Queue() <-chan DeliveryFrame { return s.queue }

// Done is closed by Deactivate and unblocks pump waiters.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) IsActive() bool { return s.active.IsSet() }

func (s *Subscriber) Len() int { return len(s.queue) }

// Enqueue is non-blocking; the topic lock serializes all producers, so the
// full/evict/insert sequence cannot interleave with another Enqueue.
func (s *Subscriber) Enqueue(frame DeliveryFrame) EnqueueResult {
	if s.active.IsNotSet() {
		return Rejected
	}

	select {
	case s.queue <- frame:
		return Delivered
	default:
	}

	if !s.dropOldest {
		s.logger.Warn().
			Str("client_id", s.clientID).
			Str("topic", frame.Topic).
			Msg("subscriber queue full, disconnecting slow consumer")

		if err := s.transport.EmitError(dictionary.SlowConsumerCode, dictionary.ErrQueueOverflowed.Error()); err != nil {
			s.logger.Err(err).Str("client_id", s.clientID).Msg("emit slow consumer error")
		}

		s.Deactivate()
		s.transport.Close()

		return Rejected
	}

	select {
	case old := <-s.queue:
		s.logger.Warn().
			Str("client_id", s.clientID).
			Str("topic", frame.Topic).
			Str("dropped_message_id", old.Message.ID).
			Msg("subscriber queue full, dropped oldest message")
	default:
	}

	select {
	case s.queue <- frame:
		return DroppedOldest
	default:
		return Rejected
	}
}

// Deactivate makes further Enqueue calls reject and wakes the pump. Safe to
// call more than once.
func (s *Subscriber) Deactivate() {
	if s.active.SetToIf(true, false) {
		close(s.done)
	}
}
