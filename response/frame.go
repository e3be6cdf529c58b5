package response

import (
	"time"

	"github.com/soulgarden/topicbus/broker"
	"github.com/soulgarden/topicbus/dictionary"
)

type Err struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Frame is the server to client envelope, discriminated by Type. Ts is set
// at construction for ack/pong/error/info frames; event frames carry the
// publish timestamp instead.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Topic     string          `json:"topic,omitempty"`
	Message   *broker.Message `json:"message,omitempty"`
	Error     *Err            `json:"error,omitempty"`
	Status    string          `json:"status,omitempty"`
	Msg       string          `json:"msg,omitempty"`
	Ts        string          `json:"ts"`
}

func now() string {
	return time.Now().UTC().Format(dictionary.TsLayout)
}

func Ack(requestID, topic string) *Frame {
	return &Frame{
		Type:      dictionary.AckType,
		RequestID: requestID,
		Topic:     topic,
		Status:    dictionary.StatusOK,
		Ts:        now(),
	}
}

func Event(topic string, msg *broker.Message, ts string) *Frame {
	return &Frame{
		Type:    dictionary.EventType,
		Topic:   topic,
		Message: msg,
		Ts:      ts,
	}
}

func Error(requestID, code, message string) *Frame {
	return &Frame{
		Type:      dictionary.ErrorType,
		RequestID: requestID,
		Error:     &Err{Code: code, Message: message},
		Ts:        now(),
	}
}

func Pong(requestID string) *Frame {
	return &Frame{
		Type:      dictionary.PongType,
		RequestID: requestID,
		Ts:        now(),
	}
}

func Info(topic, msg string) *Frame {
	return &Frame{
		Type:  dictionary.InfoType,
		Topic: topic,
		Msg:   msg,
		Ts:    now(),
	}
}
