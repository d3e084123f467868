// Package mqtt connects the skill to the voice assistant's message bus.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Topics relative to the configured base.
const (
	TopicPlayQuery         = "play/query"
	TopicPlayQueryResponse = "play/query/response"
	TopicPlayStart         = "play/start"
	TopicNext              = "audio/next"
	TopicPrevious          = "audio/prev"
	TopicPause             = "audio/pause"
	TopicResume            = "audio/resume"
	TopicStop              = "audio/stop"
	TopicRecordBegin       = "recognizer/record_begin"
	TopicRecordEnd         = "recognizer/record_end"
	TopicListDevices       = "intent/list_devices"
	TopicTransfer          = "intent/transfer"
	TopicPlayOn            = "intent/play_on"
	TopicSettingsChanged   = "settings/changed"
	TopicSpeak             = "speak"
	TopicDisplayText       = "display/text"
	TopicDisplayReset      = "display/reset"
)

const defaultTimeout = 2 * time.Second

// Handler processes one inbound payload.
type Handler func(ctx context.Context, payload []byte)

// Options configures the MQTT client.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TopicBase string
	Timeout   time.Duration
}

// Client is the host bus adapter. Handlers run concurrently, one goroutine
// per message.
type Client struct {
	client    paho.Client
	topicBase string
	timeout   time.Duration
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	handlers map[string]Handler
}

// NewClient creates and connects an MQTT client.
func NewClient(opts Options, logger *zap.Logger) (*Client, error) {
	c := newClient(opts, logger)

	clientOpts := paho.NewClientOptions().AddBroker(opts.BrokerURL)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetConnectTimeout(c.timeout)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetOrderMatters(false)
	clientOpts.SetOnConnectHandler(func(paho.Client) {
		c.resubscribe()
	})
	clientOpts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.logger.Warn("MQTT connection lost", zap.Error(err))
	})
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	c.client = paho.NewClient(clientOpts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		c.cancel()
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.BrokerURL, token.Error())
	}
	c.logger.Info("Connected to MQTT broker", zap.String("broker", opts.BrokerURL))
	return c, nil
}

func newClient(opts Options, logger *zap.Logger) *Client {
	if opts.TopicBase == "" {
		opts.TopicBase = "voxspot"
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		topicBase: strings.TrimSuffix(opts.TopicBase, "/"),
		timeout:   opts.Timeout,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		handlers:  map[string]Handler{},
	}
}

// Topic returns the full topic name for a relative topic.
func (c *Client) Topic(name string) string {
	return c.topicBase + "/" + name
}

// Handle registers h for a relative topic and subscribes to it. Registering
// again replaces the handler.
func (c *Client) Handle(name string, h Handler) error {
	c.mu.Lock()
	c.handlers[name] = h
	c.mu.Unlock()
	return c.subscribe(name)
}

func (c *Client) subscribe(name string) error {
	topic := c.Topic(name)
	token := c.client.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		c.dispatch(name, msg.Payload())
	})
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("timeout subscribing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) resubscribe() {
	c.mu.Lock()
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	c.mu.Unlock()

	for _, name := range names {
		if err := c.subscribe(name); err != nil {
			c.logger.Warn("Failed to resubscribe", zap.String("topic", name), zap.Error(err))
		}
	}
}

func (c *Client) dispatch(name string, payload []byte) {
	c.mu.Lock()
	h, ok := c.handlers[name]
	c.mu.Unlock()
	if !ok {
		return
	}
	if c.ctx.Err() != nil {
		return
	}
	c.logger.Debug("Bus message", zap.String("topic", name), zap.Int("bytes", len(payload)))
	h(c.ctx, payload)
}

// Publish sends v as JSON to a relative topic.
func (c *Client) Publish(ctx context.Context, name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	token := c.client.Publish(c.Topic(name), 1, false, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	case <-time.After(c.timeout):
		return fmt.Errorf("timeout publishing to %s", c.Topic(name))
	}
}

// Close stops dispatching and disconnects from the broker.
func (c *Client) Close() {
	c.cancel()
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(uint(c.timeout / time.Millisecond))
	}
}
