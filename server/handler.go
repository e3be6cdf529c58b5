package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/soulgarden/topicbus/broker"
	"github.com/soulgarden/topicbus/conf"
	"github.com/soulgarden/topicbus/dictionary"
	"github.com/soulgarden/topicbus/request"
	"github.com/soulgarden/topicbus/response"
	"github.com/soulgarden/topicbus/service"
)

// Handler accepts websocket connections and runs one session per connection.
type Handler struct {
	cfg      *conf.Server
	broker   *broker.Broker
	upgrader websocket.Upgrader
	logger   *zerolog.Logger
}

func NewHandler(cfg *conf.Server, b *broker.Broker, logger *zerolog.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		broker: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxFrameSize,
			WriteBufferSize: maxFrameSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Err(err).Msg("upgrade connection")

		return
	}

	if h.broker.IsShuttingDown() {
		_ = ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, dictionary.ErrShuttingDown.Error()),
			time.Now().Add(writeWait),
		)
		_ = ws.Close()

		h.logger.Warn().Msg("rejected ws connection, server shutting down")

		return
	}

	h.logger.Debug().Str("remote", ws.RemoteAddr().String()).Msg("ws connection established")

	newSession(h.cfg, h.broker, NewConn(h.cfg, ws, h.logger), h.logger).run()
}

type subKey struct {
	topic    string
	clientID string
}

// session dispatches inbound frames for one connection and tears down the
// connection's subscriptions when the read loop ends.
type session struct {
	cfg           *conf.Server
	broker        *broker.Broker
	conn          *Conn
	subscriptions map[subKey]struct{}
	logger        *zerolog.Logger
}

func newSession(cfg *conf.Server, b *broker.Broker, conn *Conn, logger *zerolog.Logger) *session {
	return &session{
		cfg:           cfg,
		broker:        b,
		conn:          conn,
		subscriptions: make(map[subKey]struct{}),
		logger:        logger,
	}
}

func (s *session) run() {
	defer s.cleanup()

	for payload := range s.conn.ReadCh {
		f := &request.Frame{}

		if err := json.Unmarshal(payload, f); err != nil {
			s.logger.Warn().Err(err).Bytes("payload", payload).Msg("unmarshal client frame")

			s.emit(response.Error("", dictionary.BadRequestCode, "invalid message format"))

			continue
		}

		if err := f.Validate(); err != nil {
			s.emit(response.Error(f.RequestID, dictionary.BadRequestCode, err.Error()))

			continue
		}

		s.dispatch(f)
	}
}

func (s *session) dispatch(f *request.Frame) {
	switch f.Type {
	case dictionary.SubscribeType:
		s.handleSubscribe(f)
	case dictionary.UnsubscribeType:
		s.handleUnsubscribe(f)
	case dictionary.PublishType:
		s.handlePublish(f)
	case dictionary.PingType:
		s.emit(response.Pong(f.RequestID))
	}
}

func (s *session) handleSubscribe(f *request.Frame) {
	history, sub, err := s.broker.Subscribe(f.Topic, f.ClientID, s.conn, f.LastN)
	if err != nil {
		s.emitErr(f.RequestID, err)

		return
	}

	s.subscriptions[subKey{topic: f.Topic, clientID: f.ClientID}] = struct{}{}

	s.emit(response.Ack(f.RequestID, f.Topic))

	for _, entry := range history {
		s.emit(response.Event(f.Topic, entry.Message, entry.Ts))
	}

	pump := service.NewPump(f.Topic, sub, s.logger)
	go pump.Run()
}

func (s *session) handleUnsubscribe(f *request.Frame) {
	if err := s.broker.Unsubscribe(f.Topic, f.ClientID); err != nil {
		s.emitErr(f.RequestID, err)

		return
	}

	delete(s.subscriptions, subKey{topic: f.Topic, clientID: f.ClientID})

	s.emit(response.Ack(f.RequestID, f.Topic))
}

func (s *session) handlePublish(f *request.Frame) {
	if _, err := s.broker.Publish(f.Topic, f.Message); err != nil {
		s.emitErr(f.RequestID, err)

		return
	}

	s.emit(response.Ack(f.RequestID, f.Topic))
}

func (s *session) emit(f *response.Frame) {
	if err := s.conn.EmitFrame(f); err != nil {
		s.logger.Warn().Err(err).Str("type", f.Type).Msg("emit frame")
	}
}

func (s *session) emitErr(requestID string, err error) {
	switch {
	case errors.Is(err, dictionary.ErrTopicNotFound):
		s.emit(response.Error(requestID, dictionary.TopicNotFoundCode, err.Error()))
	case errors.Is(err, dictionary.ErrDuplicateClientID), errors.Is(err, dictionary.ErrBadRequest):
		s.emit(response.Error(requestID, dictionary.BadRequestCode, err.Error()))
	case errors.Is(err, dictionary.ErrShuttingDown):
		s.emit(response.Error(requestID, dictionary.InternalCode, err.Error()))
	default:
		s.logger.Err(err).Msg("handle client frame")

		s.emit(response.Error(requestID, dictionary.InternalCode, err.Error()))
	}
}

// cleanup unsubscribes everything this connection subscribed; the pumps
// observe the deactivation and exit.
func (s *session) cleanup() {
	for key := range s.subscriptions {
		if err := s.broker.Unsubscribe(key.topic, key.clientID); err != nil &&
			!errors.Is(err, dictionary.ErrTopicNotFound) {
			s.logger.Warn().
				Err(err).
				Str("topic", key.topic).
				Str("client_id", key.clientID).
				Msg("unsubscribe on disconnect")
		}
	}

	s.conn.Close()

	s.logger.Debug().Int64("sent", s.conn.Sent()).Msg("ws connection terminated")
}
