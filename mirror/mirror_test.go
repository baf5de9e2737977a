package mirror

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"i4.energy/across/telenode/sensor"
)

type fakeToken struct {
	err  error
	done bool
}

func (t fakeToken) Wait() bool                     { return t.done }
func (t fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	token fakeToken
	msgs  []published
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.msgs = append(p.msgs, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return p.token
}

type fixedIdentity string

func (f fixedIdentity) CustomerID() string { return string(f) }

func TestMirror_Publish(t *testing.T) {
	pub := &fakePublisher{token: fakeToken{done: true}}
	m := New(pub, "telenode/C001/report", fixedIdentity("C001"), nil)

	report := sensor.Report{
		Humidity:         sensor.Mean{Value: 50, Samples: 12},
		Temperature:      sensor.Mean{Value: 23, Samples: 12},
		ProbeTemperature: sensor.Mean{Value: 21, Samples: 11},
		Cycles:           12,
	}
	m.Publish(report)

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	require.Equal(t, "telenode/C001/report", msg.topic)
	require.Equal(t, byte(1), msg.qos)
	require.False(t, msg.retained)

	var got Payload
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	require.Equal(t, "C001", got.CustomerID)
	require.Equal(t, report, got.Report)
	require.Equal(t, "60min Avg - DHT H:50.0% T:23.0C; DS18B20 T:21.0C", got.Summary)
}

func TestMirror_PublishAfterFailedDelivery(t *testing.T) {
	pub := &fakePublisher{token: fakeToken{done: true, err: errors.New("not connected")}}
	m := New(pub, "telenode/report", nil, nil)

	m.Publish(sensor.Report{})
	m.Publish(sensor.Report{})

	require.Len(t, pub.msgs, 2)
}

func TestMirror_PublishWhileInFlight(t *testing.T) {
	pub := &fakePublisher{token: fakeToken{done: false}}
	m := New(pub, "telenode/report", nil, nil)

	m.Publish(sensor.Report{})
	m.Publish(sensor.Report{})

	require.Len(t, pub.msgs, 2)
}
