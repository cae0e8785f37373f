// Package remote accepts console commands over MQTT. Command lines arrive on
// "<prefix>/command" and each result is published on "<prefix>/result".
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/internal/dispatch"
)

// Submitter runs one line of operator input.
type Submitter interface {
	Submit(text string) dispatch.Result
}

// Config holds the broker connection settings.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	User        string
	Password    string
}

// Request is the JSON form of a command message. Payloads that are not a
// JSON object are taken as the command line itself.
type Request struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
}

// Reply is published on the result topic for every command.
type Reply struct {
	ID      string `json:"id"`
	Input   string `json:"input"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client bridges an MQTT broker to the console.
type Client struct {
	cfg     Config
	console Submitter

	// console commands are applied one at a time in arrival order
	mu sync.Mutex

	client  mqtt.Client
	publish func(topic string, payload []byte)
}

// New creates a Client. Nothing connects until Start.
func New(cfg Config, console Submitter) *Client {
	cfg.TopicPrefix = strings.Trim(cfg.TopicPrefix, "/")
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "lacylights"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "lacylights-console"
	}
	return &Client{cfg: cfg, console: console}
}

// CommandTopic is where command lines are received.
func (c *Client) CommandTopic() string {
	return c.cfg.TopicPrefix + "/command"
}

// ResultTopic is where replies are published.
func (c *Client) ResultTopic() string {
	return c.cfg.TopicPrefix + "/result"
}

// Start connects to the broker. The subscription is renewed on every
// reconnect. If ctx ends before the first connection the client keeps
// retrying in the background and Start returns the context error.
func (c *Client) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.Broker).
		SetUsername(c.cfg.User).
		SetPassword(c.cfg.Password).
		SetClientID(c.cfg.ClientID).
		SetOnConnectHandler(c.connectHandler).
		SetConnectionLostHandler(c.connectLostHandler).
		SetOrderMatters(true).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(30 * time.Second).
		SetKeepAlive(30 * time.Second)

	c.client = mqtt.NewClient(opts)
	c.publish = func(topic string, payload []byte) {
		token := c.client.Publish(topic, 1, false, payload)
		go func() {
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				log.Warn().Err(token.Error()).Str("topic", topic).Msg("Failed to publish MQTT reply")
			}
		}()
	}

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	case <-ctx.Done():
		return fmt.Errorf("mqtt connect: %w", ctx.Err())
	}
	return nil
}

// Stop disconnects from the broker.
func (c *Client) Stop() {
	if c.client != nil && c.client.IsConnectionOpen() {
		c.client.Disconnect(500)
		log.Info().Msg("📡 MQTT remote disconnected")
	}
}

func (c *Client) connectHandler(client mqtt.Client) {
	log.Info().Str("broker", c.cfg.Broker).Str("topic", c.CommandTopic()).Msg("📡 MQTT remote connected")
	token := client.Subscribe(c.CommandTopic(), 1, c.messageHandler)
	go func() {
		if token.WaitTimeout(10*time.Second) && token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", c.CommandTopic()).Msg("MQTT subscription failed")
		}
	}()
}

func (c *Client) connectLostHandler(_ mqtt.Client, err error) {
	log.Warn().Err(err).Str("broker", c.cfg.Broker).Msg("MQTT connection lost")
}

func (c *Client) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	reply := c.execute(msg.Payload())
	payload, err := json.Marshal(reply)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode MQTT reply")
		return
	}
	if c.publish != nil {
		c.publish(c.ResultTopic(), payload)
	}
}

// execute runs the command carried by an MQTT payload.
func (c *Client) execute(payload []byte) Reply {
	req := parseRequest(payload)
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	log.Debug().Str("id", req.ID).Str("command", req.Command).Msg("MQTT command received")

	c.mu.Lock()
	res := c.console.Submit(req.Command)
	c.mu.Unlock()

	return Reply{ID: req.ID, Input: req.Command, Success: res.Success, Message: res.Message}
}

func parseRequest(payload []byte) Request {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		var req Request
		if err := json.Unmarshal([]byte(trimmed), &req); err == nil {
			return req
		}
	}
	return Request{Command: trimmed}
}
