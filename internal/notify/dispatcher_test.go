package notify

import (
	"sync"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(bufferSize int) *Dispatcher {
	return New(bufferSize, nil, logrus.New())
}

func TestDispatcher_Broadcast(t *testing.T) {
	d := newTestDispatcher(4)
	a := d.Register(1)
	b := d.Register(2)

	msg := Message{Type: TypeEventNotification, EventID: 7, Message: "hello"}
	assert.Equal(t, 2, d.Broadcast(msg))

	assert.Equal(t, msg, <-a.Outbox())
	assert.Equal(t, msg, <-b.Outbox())
}

func TestDispatcher_Publish(t *testing.T) {
	d := newTestDispatcher(4)
	subscribed := d.Register(1)
	other := d.Register(2)
	sameUser := d.Register(1)

	msg := Message{Type: TypeEventNotification, EventID: 7, Message: "hello"}
	assert.Equal(t, 2, d.Publish(msg, mapset.NewSet[int64](1)))

	assert.Equal(t, msg, <-subscribed.Outbox())
	assert.Equal(t, msg, <-sameUser.Outbox())
	assert.Empty(t, other.Outbox())

	assert.Equal(t, 0, d.Publish(msg, mapset.NewSet[int64]()))
	assert.Equal(t, 0, d.Publish(msg, nil))
}

func TestDispatcher_dropsOnFullOutbox(t *testing.T) {
	d := newTestDispatcher(1)
	slow := d.Register(1)

	msg := Message{Type: TypeEventNotification, EventID: 1}
	assert.Equal(t, 1, d.Broadcast(msg))
	assert.Equal(t, 0, d.Broadcast(msg))
	assert.Len(t, slow.Outbox(), 1)
}

func TestDispatcher_Unregister(t *testing.T) {
	d := newTestDispatcher(1)
	l := d.Register(1)
	require.Equal(t, 1, d.Count())

	d.Unregister(l)
	d.Unregister(l)
	assert.Equal(t, 0, d.Count())

	_, ok := <-l.Outbox()
	assert.False(t, ok)
	assert.Equal(t, 0, d.Broadcast(Message{Type: TypeEventNotification}))
}

func TestDispatcher_concurrent(t *testing.T) {
	d := newTestDispatcher(8)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(user int64) {
			defer wg.Done()
			l := d.Register(user)
			d.Unregister(l)
		}(int64(i))
		go func() {
			defer wg.Done()
			d.Broadcast(Message{Type: TypeEventNotification})
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, d.Count())
}
