package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/soulgarden/topicbus/broker"
	"github.com/soulgarden/topicbus/conf"
	"github.com/soulgarden/topicbus/dictionary"
)

// Shutdown quiesces the broker, notifies every subscriber, grants the pumps
// a bounded drain window, then deactivates subscribers and closes their
// transports. Errors along the way are logged and never block progress.
type Shutdown struct {
	cfg    *conf.Server
	broker *broker.Broker
	logger *zerolog.Logger
}

func NewShutdown(cfg *conf.Server, b *broker.Broker, logger *zerolog.Logger) *Shutdown {
	return &Shutdown{cfg: cfg, broker: b, logger: logger}
}

func (s *Shutdown) Run() {
	s.broker.Quiesce()

	subs := make([]*broker.Subscriber, 0)

	for _, t := range s.broker.Topics() {
		for _, sub := range t.Subscribers() {
			if err := sub.Transport().EmitInfo(t.Name(), dictionary.ServerShutdownMsg); err != nil {
				s.logger.Warn().
					Err(err).
					Str("topic", t.Name()).
					Str("client_id", sub.ClientID()).
					Msg("notify subscriber about shutdown")
			}

			subs = append(subs, sub)
		}
	}

	s.logger.Info().
		Int("subscribers", len(subs)).
		Int("drain_sec", s.cfg.ShutdownDrainSec).
		Msg("shutdown notified subscribers, draining queues")

	time.Sleep(time.Duration(s.cfg.ShutdownDrainSec) * time.Second)

	for _, sub := range subs {
		sub.Deactivate()
	}

	for _, sub := range subs {
		sub.Transport().Close()
	}

	s.logger.Info().
		Int("topics", s.broker.TopicCount()).
		Int("subscribers", s.broker.TotalSubscribers()).
		Msg("graceful shutdown completed")
}
