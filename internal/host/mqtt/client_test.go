package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMessage struct {
	paho.Message
	payload []byte
}

func (m fakeMessage) Payload() []byte { return m.payload }

type published struct {
	topic   string
	payload []byte
}

// fakeBroker implements the parts of paho.Client the adapter uses.
type fakeBroker struct {
	paho.Client

	mu           sync.Mutex
	subs         map[string]paho.MessageHandler
	published    []published
	subscribeErr error
	disconnected bool
}

func (b *fakeBroker) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribeErr != nil {
		return newToken(b.subscribeErr)
	}
	b.subs[topic] = cb
	return newToken(nil)
}

func (b *fakeBroker) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{topic: topic, payload: payload.([]byte)})
	return newToken(nil)
}

func (b *fakeBroker) IsConnected() bool { return true }

func (b *fakeBroker) Disconnect(uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = true
}

func (b *fakeBroker) deliver(topic string, payload []byte) bool {
	b.mu.Lock()
	cb, ok := b.subs[topic]
	b.mu.Unlock()
	if ok {
		cb(b, fakeMessage{payload: payload})
	}
	return ok
}

func newTestClient(t *testing.T) (*Client, *fakeBroker) {
	t.Helper()
	broker := &fakeBroker{subs: map[string]paho.MessageHandler{}}
	c := newClient(Options{TopicBase: "home/voxspot/"}, zap.NewNop())
	c.client = broker
	t.Cleanup(c.Close)
	return c, broker
}

func TestTopic(t *testing.T) {
	c, _ := newTestClient(t)
	assert.Equal(t, "home/voxspot/play/query", c.Topic(TopicPlayQuery))

	c = newClient(Options{}, zap.NewNop())
	defer c.cancel()
	assert.Equal(t, "voxspot/speak", c.Topic(TopicSpeak))
}

func TestHandleDispatchesPayload(t *testing.T) {
	c, broker := newTestClient(t)

	var got Query
	require.NoError(t, c.Handle(TopicPlayQuery, func(_ context.Context, payload []byte) {
		require.NoError(t, json.Unmarshal(payload, &got))
	}))

	require.True(t, broker.deliver("home/voxspot/play/query", []byte(`{"id":"q1","phrase":"my jams"}`)))
	assert.Equal(t, Query{ID: "q1", Phrase: "my jams"}, got)
}

func TestHandleReplacesHandler(t *testing.T) {
	c, broker := newTestClient(t)

	calls := map[string]int{}
	require.NoError(t, c.Handle(TopicStop, func(context.Context, []byte) { calls["first"]++ }))
	require.NoError(t, c.Handle(TopicStop, func(context.Context, []byte) { calls["second"]++ }))

	broker.deliver("home/voxspot/audio/stop", nil)
	assert.Equal(t, map[string]int{"second": 1}, calls)
}

func TestHandleSubscribeError(t *testing.T) {
	c, broker := newTestClient(t)
	broker.subscribeErr = errors.New("not authorized")

	err := c.Handle(TopicNext, func(context.Context, []byte) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "home/voxspot/audio/next")
}

func TestResubscribeAfterReconnect(t *testing.T) {
	c, broker := newTestClient(t)
	require.NoError(t, c.Handle(TopicPause, func(context.Context, []byte) {}))
	require.NoError(t, c.Handle(TopicResume, func(context.Context, []byte) {}))

	broker.subs = map[string]paho.MessageHandler{}
	c.resubscribe()

	assert.Len(t, broker.subs, 2)
}

func TestPublishMarshalsJSON(t *testing.T) {
	c, broker := newTestClient(t)

	require.NoError(t, c.Publish(context.Background(), TopicSpeak, Speak{Utterance: "hello"}))

	require.Len(t, broker.published, 1)
	assert.Equal(t, "home/voxspot/speak", broker.published[0].topic)
	assert.JSONEq(t, `{"utterance":"hello"}`, string(broker.published[0].payload))
}

func TestCloseStopsDispatch(t *testing.T) {
	c, broker := newTestClient(t)

	calls := 0
	require.NoError(t, c.Handle(TopicNext, func(context.Context, []byte) { calls++ }))
	c.Close()

	broker.deliver("home/voxspot/audio/next", nil)
	assert.Zero(t, calls)
	assert.True(t, broker.disconnected)
}
