package broker

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopic_Publish_AppendsHistoryAndCounts(t *testing.T) {
	t.Parallel()

	topic := newTopic("orders", 100, nopLogger())

	for i := 0; i < 3; i++ {
		topic.Publish(newMessage(fmt.Sprintf(`{"i":%d}`, i+1)))
	}

	require.Equal(t, int64(3), topic.MessageCount())

	history := topic.History(100)
	require.Len(t, history, 3)

	for i, entry := range history {
		require.JSONEq(t, fmt.Sprintf(`{"i":%d}`, i+1), string(entry.Message.Payload))
		require.NotEmpty(t, entry.Ts)
	}
}

func TestTopic_History_RingEviction(t *testing.T) {
	t.Parallel()

	topic := newTopic("t", 3, nopLogger())

	for i := 1; i <= 5; i++ {
		topic.Publish(newMessage(fmt.Sprintf(`{"i":%d}`, i)))
	}

	require.Equal(t, int64(5), topic.MessageCount())

	history := topic.History(10)
	require.Len(t, history, 3)

	for i, entry := range history {
		require.JSONEq(t, fmt.Sprintf(`{"i":%d}`, i+3), string(entry.Message.Payload))
	}
}

func TestTopic_History_LastN(t *testing.T) {
	t.Parallel()

	topic := newTopic("t", 100, nopLogger())

	for i := 1; i <= 3; i++ {
		topic.Publish(newMessage(fmt.Sprintf(`{"i":%d}`, i)))
	}

	require.Empty(t, topic.History(0))
	require.Empty(t, topic.History(-1))

	last2 := topic.History(2)
	require.Len(t, last2, 2)
	require.JSONEq(t, `{"i":2}`, string(last2[0].Message.Payload))
	require.JSONEq(t, `{"i":3}`, string(last2[1].Message.Payload))
}

func TestTopic_Subscribe_ReplayPrefix(t *testing.T) {
	t.Parallel()

	topic := newTopic("t", 100, nopLogger())

	for i := 1; i <= 3; i++ {
		topic.Publish(newMessage(fmt.Sprintf(`{"i":%d}`, i)))
	}

	sub := NewSubscriber("c", &stubTransport{}, 100, true, nopLogger())

	history, err := topic.Subscribe(sub, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.JSONEq(t, `{"i":2}`, string(history[0].Message.Payload))
	require.JSONEq(t, `{"i":3}`, string(history[1].Message.Payload))

	// Nothing published before the subscribe may reach the live queue.
	require.Equal(t, 0, sub.Len())

	topic.Publish(newMessage(`{"i":4}`))

	require.Equal(t, 1, sub.Len())

	frame := <-sub.Queue()
	require.JSONEq(t, `{"i":4}`, string(frame.Message.Payload))
}

func TestTopic_Subscribe_DuplicateClientID(t *testing.T) {
	t.Parallel()

	topic := newTopic("t", 100, nopLogger())

	first := NewSubscriber("c", &stubTransport{}, 100, true, nopLogger())

	_, err := topic.Subscribe(first, 0)
	require.NoError(t, err)

	second := NewSubscriber("c", &stubTransport{}, 100, true, nopLogger())

	_, err = topic.Subscribe(second, 0)
	require.Error(t, err)
	require.Equal(t, 1, topic.SubscriberCount())
	require.True(t, first.IsActive())
}

func TestTopic_RemoveSubscriber(t *testing.T) {
	t.Parallel()

	topic := newTopic("t", 100, nopLogger())

	sub := NewSubscriber("c", &stubTransport{}, 100, true, nopLogger())

	_, err := topic.Subscribe(sub, 0)
	require.NoError(t, err)

	require.True(t, topic.RemoveSubscriber("c"))
	require.False(t, sub.IsActive())
	require.Equal(t, 0, topic.SubscriberCount())

	require.False(t, topic.RemoveSubscriber("c"))
}

func TestTopic_Publish_SkipsInactive(t *testing.T) {
	t.Parallel()

	topic := newTopic("t", 100, nopLogger())

	active := NewSubscriber("a", &stubTransport{}, 100, true, nopLogger())
	inactive := NewSubscriber("b", &stubTransport{}, 100, true, nopLogger())

	_, err := topic.Subscribe(active, 0)
	require.NoError(t, err)
	_, err = topic.Subscribe(inactive, 0)
	require.NoError(t, err)

	inactive.Deactivate()

	delivered := topic.Publish(newMessage(`{"n":1}`))
	require.Equal(t, 1, delivered)
	require.Equal(t, 1, active.Len())
	require.Equal(t, 0, inactive.Len())
}

func TestTopic_ConcurrentPublish(t *testing.T) {
	t.Parallel()

	topic := newTopic("t", 50, nopLogger())

	sub := NewSubscriber("c", &stubTransport{}, 300, true, nopLogger())

	_, err := topic.Subscribe(sub, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 20; j++ {
				topic.Publish(newMessage(`{}`))
			}
		}()
	}

	wg.Wait()

	require.Equal(t, int64(200), topic.MessageCount())
	require.Len(t, topic.History(1000), 50)
	require.Equal(t, 200, sub.Len())
}
