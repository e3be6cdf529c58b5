package dictionary

import "errors"

var ErrBadRequest = errors.New("bad request")

var ErrTopicNotFound = errors.New("topic not found")

var ErrTopicExists = errors.New("topic already exists")

var ErrDuplicateClientID = errors.New("client_id already subscribed to topic")

var ErrShuttingDown = errors.New("server is shutting down")

var ErrQueueOverflowed = errors.New("subscriber queue overflowed")

var ErrWriteChannelClosed = errors.New("ws write channel closed")

var ErrChannelOverflowed = errors.New("channel is overflowed")
