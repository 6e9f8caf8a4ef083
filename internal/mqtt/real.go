package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/waterfuse/internal/logic"
)

// bufferCapacity bounds how many transitions we hold while the broker
// is unreachable. Transitions are rare; a small buffer is plenty.
const bufferCapacity = 64

// RealPublisher publishes to an actual MQTT broker. Records that
// arrive while disconnected are buffered and replayed on reconnect so
// a broker outage does not lose the transition that caused it.
type RealPublisher struct {
	client paho.Client
	topic  string

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{
		topic: Topic,
		buf:   newRingBuffer(bufferCapacity),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("waterfuse-notify").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { p.replay() })

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a status transition to the broker. While
// disconnected the payload is buffered for replay instead of failing.
func (p *RealPublisher) Publish(rec logic.Record, at time.Time) error {
	payload, err := FormatPayload(rec, at)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	if !p.client.IsConnected() {
		p.mu.Lock()
		p.buf.push(payload)
		n := p.buf.len()
		p.mu.Unlock()
		return fmt.Errorf("broker unreachable, buffered (%d pending)", n)
	}

	return p.send(payload)
}

// send publishes one payload. QoS 1 and retained: the latest status
// must survive broker restarts and slow consumers.
func (p *RealPublisher) send(payload []byte) error {
	token := p.client.Publish(p.topic, 1, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// replay flushes buffered payloads after a (re)connect.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	for _, payload := range pending {
		if err := p.send(payload); err != nil {
			// Back into the buffer; the next reconnect tries again.
			p.mu.Lock()
			p.buf.push(payload)
			p.mu.Unlock()
		}
	}
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
