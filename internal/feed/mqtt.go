package feed

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig identifies a broker subscription carrying raw telemetry lines,
// for installations that bridge instrument feeds over MQTT instead of wiring
// every consumer to the serial network.
type MQTTConfig struct {
	Broker   string // e.g. "tcp://localhost:1883"
	Topic    string
	ClientID string
	QoS      byte
}

// MQTTSource subscribes to an MQTT topic and forwards each message payload
// as one or more lines.
type MQTTSource struct {
	cfg    MQTTConfig
	client mqtt.Client
}

// NewMQTTSource creates an MQTT line source. The connection is established
// by Run.
func NewMQTTSource(cfg MQTTConfig) *MQTTSource {
	if cfg.ClientID == "" {
		cfg.ClientID = "openrvdas-feed"
	}
	return &MQTTSource{cfg: cfg}
}

// Run connects to the broker, subscribes, and forwards message payloads
// until the context is cancelled.
func (s *MQTTSource) Run(ctx context.Context, lines chan<- string) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true)

	s.client = mqtt.NewClient(opts)
	if tok := s.client.Connect(); tok.Wait() && tok.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", s.cfg.Broker, tok.Error())
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		for _, line := range splitDatagram(string(msg.Payload())) {
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}
	if tok := s.client.Subscribe(s.cfg.Topic, s.cfg.QoS, handler); tok.Wait() && tok.Error() != nil {
		s.client.Disconnect(250)
		return fmt.Errorf("failed to subscribe to %s: %w", s.cfg.Topic, tok.Error())
	}

	<-ctx.Done()
	s.client.Disconnect(250)
	return ctx.Err()
}

// Close disconnects from the broker if connected.
func (s *MQTTSource) Close() error {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	return nil
}
