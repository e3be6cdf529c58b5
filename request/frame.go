package request

import (
	"fmt"

	uuid "github.com/satori/go.uuid"

	"github.com/soulgarden/topicbus/broker"
	"github.com/soulgarden/topicbus/dictionary"
)

// Frame is the client to server envelope, discriminated by Type.
type Frame struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	ClientID  string          `json:"client_id,omitempty"`
	Message   *broker.Message `json:"message,omitempty"`
	LastN     int             `json:"last_n,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// Validate checks the per-type required fields. Every returned error wraps
// dictionary.ErrBadRequest; the text is what goes out on the wire.
func (f *Frame) Validate() error {
	switch f.Type {
	case dictionary.SubscribeType:
		if f.Topic == "" {
			return fmt.Errorf("%w: topic is required", dictionary.ErrBadRequest)
		}

		if f.ClientID == "" {
			return fmt.Errorf("%w: client_id is required", dictionary.ErrBadRequest)
		}

		if f.LastN < 0 {
			return fmt.Errorf("%w: last_n must be non-negative", dictionary.ErrBadRequest)
		}
	case dictionary.UnsubscribeType:
		if f.Topic == "" {
			return fmt.Errorf("%w: topic is required", dictionary.ErrBadRequest)
		}

		if f.ClientID == "" {
			return fmt.Errorf("%w: client_id is required", dictionary.ErrBadRequest)
		}
	case dictionary.PublishType:
		if f.Topic == "" {
			return fmt.Errorf("%w: topic is required", dictionary.ErrBadRequest)
		}

		if f.Message == nil {
			return fmt.Errorf("%w: message is required", dictionary.ErrBadRequest)
		}

		if _, err := uuid.FromString(f.Message.ID); err != nil {
			return fmt.Errorf("%w: message.id must be a valid uuid", dictionary.ErrBadRequest)
		}
	case dictionary.PingType:
	default:
		return fmt.Errorf("%w: unknown message type %q", dictionary.ErrBadRequest, f.Type)
	}

	return nil
}
