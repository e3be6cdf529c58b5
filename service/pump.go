package service

import (
	"github.com/rs/zerolog"

	"github.com/soulgarden/topicbus/broker"
)

// Pump drains one subscriber's delivery queue to its transport. One pump
// runs per subscription; it never touches topic state.
type Pump struct {
	topic  string
	sub    *broker.Subscriber
	logger *zerolog.Logger
}

func NewPump(topic string, sub *broker.Subscriber, logger *zerolog.Logger) *Pump {
	return &Pump{topic: topic, sub: sub, logger: logger}
}

// Run blocks until the subscriber is deactivated or the transport fails.
// After deactivation it drains frames already queued, then exits.
func (p *Pump) Run() {
	defer p.logger.Info().
		Str("topic", p.topic).
		Str("client_id", p.sub.ClientID()).
		Msg("delivery pump stopped")

	for {
		select {
		case frame := <-p.sub.Queue():
			if err := p.emit(frame); err != nil {
				return
			}
		case <-p.sub.Done():
			p.drain()

			return
		}
	}
}

func (p *Pump) drain() {
	for {
		select {
		case frame := <-p.sub.Queue():
			if err := p.emit(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (p *Pump) emit(frame broker.DeliveryFrame) error {
	if err := p.sub.Transport().EmitEvent(frame.Topic, frame.Message, frame.Ts); err != nil {
		p.logger.Err(err).
			Str("topic", frame.Topic).
			Str("client_id", p.sub.ClientID()).
			Str("message_id", frame.Message.ID).
			Msg("emit event")

		return err
	}

	return nil
}
