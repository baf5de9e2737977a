// Package mirror publishes each sensor report to an MQTT broker alongside
// the SMS delivery. It is optional: the node runs the same without it.
package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"i4.energy/across/telenode/sensor"
)

// ErrConnectTimeout is returned by Dial when the broker does not accept the
// connection in time.
var ErrConnectTimeout = errors.New("mqtt connect timed out")

// Publisher is the part of mqtt.Client the mirror uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Identity supplies the customer identifier carried by every payload.
type Identity interface {
	CustomerID() string
}

// Payload is the JSON document published for a report.
type Payload struct {
	CustomerID string        `json:"customer_id"`
	Summary    string        `json:"summary"`
	Report     sensor.Report `json:"report"`
}

// Mirror publishes reports. Publish never waits for the broker; a failed
// delivery is logged on the following Publish.
type Mirror struct {
	client   Publisher
	topic    string
	identity Identity
	logger   *slog.Logger

	last mqtt.Token
}

// New returns a Mirror publishing to topic through client.
func New(client Publisher, topic string, identity Identity, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		client:   client,
		topic:    topic,
		identity: identity,
		logger:   logger,
	}
}

// Publish sends r. It has the signature of sensor.CycleConfig.OnReport.
func (m *Mirror) Publish(r sensor.Report) {
	m.checkLast()

	payload := Payload{Summary: r.String(), Report: r}
	if m.identity != nil {
		payload.CustomerID = m.identity.CustomerID()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("Failed to encode report", "error", err)
		return
	}

	m.last = m.client.Publish(m.topic, 1, false, body)
	m.logger.Debug("Report published", "topic", m.topic, "bytes", len(body))
}

func (m *Mirror) checkLast() {
	if m.last == nil {
		return
	}
	if m.last.WaitTimeout(0) {
		if err := m.last.Error(); err != nil {
			m.logger.Warn("Previous report was not delivered", "topic", m.topic, "error", err)
		}
	} else {
		m.logger.Warn("Previous report still in flight", "topic", m.topic)
	}
	m.last = nil
}

// Options configures a broker connection.
type Options struct {
	Broker         string
	ClientID       string
	Topic          string
	ConnectTimeout time.Duration
}

// Client is a connected Mirror together with its broker session.
type Client struct {
	*Mirror
	conn mqtt.Client
}

// Dial connects to the broker and returns a mirror publishing on o.Topic.
// paho keeps the session alive and reconnects on its own.
func Dial(o Options, identity Identity, logger *slog.Logger) (*Client, error) {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(o.ConnectTimeout).
		SetMaxReconnectInterval(time.Minute)

	conn := mqtt.NewClient(opts)
	token := conn.Connect()
	if !token.WaitTimeout(o.ConnectTimeout) {
		return nil, fmt.Errorf("%s: %w", o.Broker, ErrConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", o.Broker, err)
	}
	return &Client{Mirror: New(conn, o.Topic, identity, logger), conn: conn}, nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.conn.Disconnect(250)
}
