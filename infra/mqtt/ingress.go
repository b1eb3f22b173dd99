package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kerbrat/tripcast/core/events"
	"github.com/kerbrat/tripcast/core/model"
	"github.com/kerbrat/tripcast/infra/logger"
	"github.com/kerbrat/tripcast/internal/eventbus"
)

// Config defines the connection parameters for the order-event ingress.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "tripcast-engine"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "tripcast"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Enabled && c.Broker == "" {
		return fmt.Errorf("broker is required when mqtt is enabled")
	}
	return nil
}

// orderMessage is the wire form of an order write published by the order
// management system. Before is absent on creation, After on deletion.
type orderMessage struct {
	OrgID  string              `json:"organization_id"`
	Before *model.PendingOrder `json:"before,omitempty"`
	After  *model.PendingOrder `json:"after,omitempty"`
}

// tripMessage is the wire form of a trip write.
type tripMessage struct {
	OrgID string     `json:"organization_id"`
	Trip  model.Trip `json:"trip"`
}

// Ingress subscribes to order and trip write topics and republishes decoded
// events on the internal bus, feeding the recalc trigger.
type Ingress struct {
	cli paho.Client
	cfg Config
	bus *eventbus.Bus[events.Event]
	log logger.Logger
}

// NewIngress creates an Ingress publishing onto bus.
func NewIngress(cfg Config, bus *eventbus.Bus[events.Event], log logger.Logger) (*Ingress, error) {
	if bus == nil || log == nil {
		return nil, fmt.Errorf("mqtt: nil parameter provided to NewIngress")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	return &Ingress{cli: paho.NewClient(opts), cfg: cfg, bus: bus, log: log}, nil
}

// Start connects and subscribes to the write topics.
func (i *Ingress) Start() error {
	if token := i.cli.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	orderTopic := i.cfg.TopicPrefix + "/orders/events"
	if token := i.cli.Subscribe(orderTopic, i.cfg.QoS, i.handleOrder); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", orderTopic, token.Error())
	}
	tripTopic := i.cfg.TopicPrefix + "/trips/events"
	if token := i.cli.Subscribe(tripTopic, i.cfg.QoS, i.handleTrip); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", tripTopic, token.Error())
	}
	i.log.Infof("subscribed to %s and %s", orderTopic, tripTopic)
	return nil
}

// Close disconnects the client.
func (i *Ingress) Close() {
	i.cli.Disconnect(250)
}

func (i *Ingress) handleOrder(_ paho.Client, msg paho.Message) {
	var m orderMessage
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		i.log.Warnf("discarding malformed order event on %s: %v", msg.Topic(), err)
		return
	}
	if m.OrgID == "" || (m.Before == nil && m.After == nil) {
		i.log.Warnf("discarding incomplete order event on %s", msg.Topic())
		return
	}
	i.bus.Publish(events.OrderEvent{OrgID: m.OrgID, Before: m.Before, After: m.After})
}

func (i *Ingress) handleTrip(_ paho.Client, msg paho.Message) {
	var m tripMessage
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		i.log.Warnf("discarding malformed trip event on %s: %v", msg.Topic(), err)
		return
	}
	if m.OrgID == "" || m.Trip.VehicleID == "" {
		i.log.Warnf("discarding incomplete trip event on %s", msg.Topic())
		return
	}
	i.bus.Publish(events.TripEvent{OrgID: m.OrgID, Trip: m.Trip})
}
