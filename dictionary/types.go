package dictionary

import "time"

// Inbound frame types.
const (
	SubscribeType   = "subscribe"
	UnsubscribeType = "unsubscribe"
	PublishType     = "publish"
	PingType        = "ping"
)

// Outbound frame types.
const (
	AckType   = "ack"
	EventType = "event"
	ErrorType = "error"
	PongType  = "pong"
	InfoType  = "info"
)

// Wire error codes.
const (
	BadRequestCode    = "bad_request"
	TopicNotFoundCode = "topic_not_found"
	SlowConsumerCode  = "slow_consumer"
	InternalCode      = "internal"
)

const StatusOK = "ok"

// Info frame payloads.
const (
	TopicDeletedMsg   = "topic_deleted"
	ServerShutdownMsg = "server_shutdown"
)

// TsLayout renders UTC timestamps with millisecond precision and a trailing Z.
const TsLayout = "2006-01-02T15:04:05.000Z07:00"

const SignalChLen = 2
const ShutDownDuration = time.Second * 15
