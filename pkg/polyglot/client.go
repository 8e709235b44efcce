// Package polyglot talks to the home automation controller the way a
// Polyglot node server does: JSON messages over MQTT.
package polyglot

import (
	"crypto/tls"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	topicRoot  = "udi/pg3/ns"
	inboxSize  = 32
	publishQoS = 1
)

// Config holds MQTT client configuration
type Config struct {
	Broker     string // MQTT broker address (e.g., "tcp://localhost:1883")
	ClientID   string // Unique client ID
	Username   string // MQTT username (optional)
	Password   string // MQTT password (optional)
	UseTLS     bool   // Enable TLS connection
	NodeServer string // Node server id used in topics
}

// InputTopic is where the controller sends operations.
func (c Config) InputTopic() string {
	return topicRoot + "/clients/" + c.NodeServer
}

// OutputTopic is where node updates are published.
func (c Config) OutputTopic() string {
	return topicRoot + "/status/" + c.NodeServer
}

// Client is the node server's connection to the controller.
type Client struct {
	client mqtt.Client
	config Config
	logger *log.Logger
	inbox  chan Inbound
	queue  *fifo

	mu       sync.RWMutex
	isActive bool
	// done stops the dispatcher started by Connect.
	done chan struct{}
}

// New creates a client. It does not connect.
func New(cfg Config, logger *log.Logger) (*Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required")
	}
	if cfg.NodeServer == "" {
		return nil, fmt.Errorf("node server id is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("%s-%d", cfg.NodeServer, time.Now().Unix())
	}

	c := &Client{
		config: cfg,
		logger: logger,
		inbox:  make(chan Inbound, inboxSize),
		queue:  newFIFO(),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{})
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		c.logf("[MQTT] Connection lost: %v", err)
	})
	// Subscriptions do not survive a clean session reconnect.
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.logf("[MQTT] Connected to broker: %s", cfg.Broker)
		token := client.Subscribe(cfg.InputTopic(), publishQoS, c.handle)
		if token.Wait() && token.Error() != nil {
			c.logf("[MQTT] Failed to subscribe to %s: %v", cfg.InputTopic(), token.Error())
		}
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, options *mqtt.ClientOptions) {
		c.logf("[MQTT] Attempting to reconnect...")
	})

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	// The handler only queues, so it can run on the router goroutine
	// without holding up acknowledgements.
	opts.SetOrderMatters(true)

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// Inbound delivers controller operations in arrival order.
func (c *Client) Inbound() <-chan Inbound {
	return c.inbox
}

// Connect establishes connection to the broker and subscribes to the
// input topic.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isActive {
		return nil
	}
	c.logf("[MQTT] Connecting to broker: %s", c.config.Broker)
	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	c.isActive = true
	c.done = make(chan struct{})
	go c.queue.run(c.inbox, c.done)
	return nil
}

// Disconnect closes connection to MQTT broker
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isActive {
		return
	}
	c.client.Disconnect(250)
	close(c.done)
	c.isActive = false
	c.logf("[MQTT] Disconnected from broker")
}

func (c *Client) handle(_ mqtt.Client, msg mqtt.Message) {
	ops, unknown, err := DecodeInbound(msg.Payload())
	if err != nil {
		c.logf("[MQTT] Dropping message on %s: %v", msg.Topic(), err)
		return
	}
	for _, key := range unknown {
		c.logf("[MQTT] Ignoring unknown operation %q", key)
	}
	c.queue.push(ops...)
}

func (c *Client) publish(payload []byte, err error) error {
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.isActive {
		return fmt.Errorf("MQTT client is not connected")
	}
	token := c.client.Publish(c.config.OutputTopic(), publishQoS, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}
	return nil
}

func (c *Client) AddNode(n Node) error {
	return c.publish(EncodeAddNode(n))
}

func (c *Client) SetDriver(address, driver, value string, uom int) error {
	return c.publish(EncodeSet(DriverUpdate{address, driver, value, uom}))
}

func (c *Client) ReportCommand(address, cmd string) error {
	return c.publish(EncodeCommand(Command{address, cmd}))
}

func (c *Client) AddNotice(key, text string) error {
	return c.publish(EncodeAddNotice(Notice{key, text}))
}

func (c *Client) RemoveNotice(key string) error {
	return c.publish(EncodeRemoveNotice(key))
}

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
