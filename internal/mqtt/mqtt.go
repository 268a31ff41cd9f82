package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloudpico-aprs/internal/config"
	"cloudpico-aprs/internal/observation"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler receives every record that parses. Calls run on their own
// goroutines and may block; the caller serializes what must be ordered.
type Handler func(kind observation.Kind, rec observation.Record) error

// Client subscribes to the station's loop and archive topics and publishes
// the retained beacon status.
type Client struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	handlerMu sync.RWMutex
	handler   Handler

	stopCh   chan struct{}
	stopOnce sync.Once
}

// Topic returns the topic for kind under prefix, e.g. "weather/loop".
func Topic(prefix string, kind observation.Kind) string {
	return prefix + "/" + string(kind)
}

// StatusTopic is where the retained beacon status is published.
func StatusTopic(prefix string) string {
	return prefix + "/aprs/status"
}

func NewClient(cfg config.Config, logger *slog.Logger) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// A beacon blocks on the TNC and on the status publish token.
	opts.SetOrderMatters(false)

	// Subscriptions are lost with a clean session, so they are made again
	// on every connect, including automatic reconnects.
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		go func() {
			if err := c.subscribe(); err != nil {
				logger.Error("mqtt subscribe failed", "error", err)
			}
		}()
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// SetHandler sets the record handler. Records arriving with no handler set
// are dropped.
func (c *Client) SetHandler(h Handler) {
	c.handlerMu.Lock()
	c.handler = h
	c.handlerMu.Unlock()
}

// Connect waits for the initial connection, respecting ctx and Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			c.client.Disconnect(0)
			return ctx.Err()
		case <-c.stopCh:
			c.client.Disconnect(0)
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

func (c *Client) topics() map[string]byte {
	return map[string]byte{
		Topic(c.cfg.MQTTTopicPrefix, observation.KindLoop):    1,
		Topic(c.cfg.MQTTTopicPrefix, observation.KindArchive): 1,
	}
}

func (c *Client) subscribe() error {
	topics := c.topics()
	token := c.client.SubscribeMultiple(topics, func(_ mqtt.Client, msg mqtt.Message) {
		c.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for topic, qos := range topics {
		c.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	}
	return nil
}

func (c *Client) handleMessage(topic string, payload []byte) {
	c.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var kind observation.Kind
	switch topic {
	case Topic(c.cfg.MQTTTopicPrefix, observation.KindLoop):
		kind = observation.KindLoop
	case Topic(c.cfg.MQTTTopicPrefix, observation.KindArchive):
		kind = observation.KindArchive
	default:
		c.logger.Warn("message on unexpected topic", "topic", topic)
		return
	}

	rec, err := observation.Parse(payload)
	if err != nil {
		c.logger.Warn("failed to parse record",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return
	}

	c.handlerMu.RLock()
	h := c.handler
	c.handlerMu.RUnlock()
	if h == nil {
		return
	}

	if err := h(kind, rec); err != nil {
		c.logger.Error("record handler failed",
			"topic", topic,
			"date_time", rec.DateTime,
			"error", err,
		)
		return
	}
	c.logger.Debug("processed record", "kind", kind, "date_time", rec.DateTime)
}

// PublishStatus publishes v as retained JSON on the status topic.
func (c *Client) PublishStatus(v any) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := StatusTopic(c.cfg.MQTTTopicPrefix)
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	token := c.client.Publish(topic, 1, true, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}

	c.logger.Debug("published status", "topic", topic)
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil && c.IsConnected() {
		topics := make([]string, 0, 2)
		for topic := range c.topics() {
			topics = append(topics, topic)
		}
		token := c.client.Unsubscribe(topics...)
		token.WaitTimeout(2 * time.Second)
	}

	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
