package service

import (
	"time"

	"github.com/rs/zerolog"
	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/soulgarden/topicbus/conf"
	"github.com/soulgarden/topicbus/dictionary"
)

const sendDelay = time.Millisecond * 500
const queueSize = 256

// Telegram pushes operational notifications (startup, shutdown) to a chat.
type Telegram struct {
	cfg    *conf.Server
	logger *zerolog.Logger
	bot    *tb.Bot
	sendCh chan string
}

func NewTelegram(cfg *conf.Server, bot *tb.Bot, logger *zerolog.Logger) *Telegram {
	return &Telegram{
		cfg:    cfg,
		logger: logger,
		sendCh: make(chan string, queueSize),
		bot:    bot,
	}
}

func (s *Telegram) Start() {
	for msg := range s.sendCh {
		_ = s.send(msg)

		time.Sleep(sendDelay)
	}
}

func (s *Telegram) SendAsync(msg string) {
	if len(s.sendCh) == queueSize {
		s.logger.
			Err(dictionary.ErrChannelOverflowed).
			Str("msg", msg).
			Msg(dictionary.ErrChannelOverflowed.Error())

		return
	}

	s.sendCh <- msg
}

func (s *Telegram) SendSync(msg string) {
	_ = s.send(msg)
}

func (s *Telegram) send(msg string) error {
	_, err := s.bot.Send(&tb.Chat{ID: s.cfg.Telegram.ChatID}, msg)
	if err != nil {
		s.logger.Err(err).Str("msg", msg).Msg("send message")

		return err
	}

	return nil
}
