package server

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"
	"github.com/rs/zerolog"
	"github.com/tevino/abool"
	"go.uber.org/atomic"

	"github.com/soulgarden/topicbus/broker"
	"github.com/soulgarden/topicbus/conf"
	"github.com/soulgarden/topicbus/dictionary"
	"github.com/soulgarden/topicbus/response"
)

const readChSize = 1024
const writeChSize = 1024
const maxFrameSize = 32768
const writeWait = 10 * time.Second
const pongWait = 10 * time.Second

type wsMsg struct {
	msgType int
	payload []byte
}

// Conn owns one accepted websocket connection: one reader goroutine feeding
// ReadCh, one writer goroutine draining sendCh, and an optional pinger.
// All outbound frames go through sendCh so the socket has a single writer.
type Conn struct {
	cfg      *conf.Server
	ws       *websocket.Conn
	sendCh   chan wsMsg
	ReadCh   chan []byte
	done     chan struct{}
	isClosed *abool.AtomicBool
	sent     *atomic.Int64
	logger   *zerolog.Logger
}

func NewConn(cfg *conf.Server, ws *websocket.Conn, logger *zerolog.Logger) *Conn {
	c := &Conn{
		cfg:      cfg,
		ws:       ws,
		sendCh:   make(chan wsMsg, writeChSize),
		ReadCh:   make(chan []byte, readChSize),
		done:     make(chan struct{}),
		isClosed: abool.New(),
		sent:     atomic.NewInt64(0),
		logger:   logger,
	}

	go c.read()
	go c.write()

	if cfg.PingIntervalSec > 0 {
		go c.pinger()
	}

	return c
}

func (c *Conn) read() {
	defer close(c.ReadCh)

	c.ws.SetReadLimit(maxFrameSize)

	if deadline := c.readDeadline(); deadline > 0 {
		if err := c.ws.SetReadDeadline(time.Now().Add(deadline)); err != nil {
			c.logger.Err(err).Msg("set read deadline")
		}

		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(deadline))
		})
	}

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				c.logger.Warn().Err(err).Msg("unexpected close error")
			}

			c.Close()

			return
		}

		select {
		case c.ReadCh <- payload:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) write() {
	for {
		select {
		case m := <-c.sendCh:
			if err := c.writeMessage(m); err != nil {
				c.logger.Warn().Err(err).Msg("write message")

				c.Close()
				_ = c.ws.Close()

				c.discard()

				return
			}
		case <-c.done:
			c.flush()

			_ = c.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			_ = c.ws.Close()

			return
		}
	}
}

func (c *Conn) writeMessage(m wsMsg) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.ws.WriteMessage(m.msgType, m.payload)
}

// flush drains frames already queued at close time so a graceful close still
// delivers what the pumps emitted during the drain window.
func (c *Conn) flush() {
	for {
		select {
		case m := <-c.sendCh:
			if err := c.writeMessage(m); err != nil {
				return
			}
		default:
			return
		}
	}
}

// discard drops frames left in sendCh after a failed socket until done is
// closed. It runs after Close, so it returns almost at once; producers are
// released by done and rejected by isClosed.
func (c *Conn) discard() {
	for {
		select {
		case <-c.sendCh:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) pinger() {
	ticker := time.NewTicker(time.Duration(c.cfg.PingIntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.enqueue(wsMsg{msgType: websocket.PingMessage})
		case <-c.done:
			return
		}
	}
}

func (c *Conn) readDeadline() time.Duration {
	if c.cfg.PingIntervalSec == 0 {
		return 0
	}

	return time.Duration(c.cfg.PingIntervalSec)*time.Second + pongWait
}

func (c *Conn) enqueue(m wsMsg) error {
	if c.isClosed.IsSet() {
		return dictionary.ErrWriteChannelClosed
	}

	select {
	case c.sendCh <- m:
		return nil
	case <-c.done:
		return dictionary.ErrWriteChannelClosed
	}
}

// EmitFrame marshals and queues one outbound frame.
func (c *Conn) EmitFrame(f *response.Frame) error {
	body, err := easyjson.Marshal(f)
	if err != nil {
		return err
	}

	if err := c.enqueue(wsMsg{msgType: websocket.TextMessage, payload: body}); err != nil {
		return err
	}

	c.sent.Inc()

	return nil
}

func (c *Conn) EmitEvent(topic string, msg *broker.Message, ts string) error {
	return c.EmitFrame(response.Event(topic, msg, ts))
}

func (c *Conn) EmitInfo(topic, msg string) error {
	return c.EmitFrame(response.Info(topic, msg))
}

func (c *Conn) EmitError(code, message string) error {
	return c.EmitFrame(response.Error("", code, message))
}

// Sent reports frames queued for emission over the connection's lifetime.
func (c *Conn) Sent() int64 { return c.sent.Load() }

// Close is idempotent; the writer goroutine flushes queued frames and sends
// the close frame.
func (c *Conn) Close() {
	if c.isClosed.SetToIf(false, true) {
		close(c.done)
	}
}
