package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	DefaultBroker      = "tcp://localhost:1883"
	DefaultTopicPrefix = "scenegrid/executions"
	publishTimeout     = 5 * time.Second
)

// mqttClient is the subset of paho.Client used for publishing.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// MQTT publishes events as JSON to "<prefix>/<request_id>/<type>".
type MQTT struct {
	client mqttClient
	prefix string
	mu     sync.Mutex
}

// NewMQTT wraps a connected paho client.
func NewMQTT(client mqttClient, topicPrefix string) *MQTT {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	return &MQTT{client: client, prefix: strings.TrimSuffix(topicPrefix, "/")}
}

// ConnectMQTT dials broker and returns a publisher on it.
func ConnectMQTT(broker, clientID, topicPrefix string) (*MQTT, func(), error) {
	if broker == "" {
		broker = DefaultBroker
	}
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)
	client := paho.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return NewMQTT(client, topicPrefix), func() { client.Disconnect(1000) }, nil
}

// Topic returns the topic an event is published on.
func (m *MQTT) Topic(e Event) string {
	return fmt.Sprintf("%s/%s/%s", m.prefix, e.RequestID, e.Type)
}

// Publish sends e with QoS 1 and waits for the broker to acknowledge it.
func (m *MQTT) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	m.mu.Lock()
	token := m.client.Publish(m.Topic(e), 1, false, payload)
	m.mu.Unlock()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publishing %s: %w", e.Type, ctx.Err())
	case <-time.After(publishTimeout):
		return fmt.Errorf("publishing %s: mqtt publish timeout", e.Type)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing %s: %w", e.Type, err)
	}
	return nil
}
