package conf

import (
	"os"

	"github.com/jinzhu/configor"
	"github.com/rs/zerolog/log"
)

type Server struct {
	Host string `json:"host" default:"0.0.0.0"`
	Port int    `json:"port" default:"8080"`

	MaxSubscriberQueueSize int `json:"max_subscriber_queue_size" default:"100"`
	TopicHistorySize       int `json:"topic_history_size"        default:"100"`

	ShutdownDrainSec int `json:"shutdown_drain_sec" default:"2"`
	PingIntervalSec  int `json:"ping_interval_sec"  default:"30"`

	// Overflow policy switch: drop-oldest by default, disconnect when set.
	DisconnectSlowConsumer bool `json:"disconnect_slow_consumer"`

	Telegram struct {
		Token  string `json:"token"`
		ChatID int64  `json:"chat_id"`
	} `json:"telegram"`

	Env   string `json:"env" default:"dev"`
	Debug bool   `json:"debug"`
}

func New() *Server {
	c := &Server{}

	loader := configor.New(&configor.Config{ENVPrefix: "PUBSUB"})

	if path := os.Getenv("CFG_PATH"); path != "" {
		if err := loader.Load(c, path); err != nil {
			log.Fatal().Err(err).Msg("conf validation errors")
		}

		return c
	}

	if err := loader.Load(c); err != nil {
		log.Fatal().Err(err).Msg("conf validation errors")
	}

	return c
}
