package mqttx

import (
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Handler func(topic string, payload []byte)

type Publisher interface {
	Publish(topic, payload string) error
}

type Subscriber interface {
	Subscribe(topic string, h Handler) error
}

type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
	Timeout  time.Duration
}

// Client is a paho client that restores its subscriptions on reconnect.
type Client struct {
	cfg Config
	c   mqtt.Client

	mu   sync.Mutex
	subs map[string]Handler
}

var ErrTimeout = errors.New("mqtt: operation timed out")

func Connect(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cl := &Client{cfg: cfg, subs: make(map[string]Handler)}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(fmt.Sprintf("%s-%d", cfg.ClientID, time.Now().UnixNano()%100000)).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetOnConnectHandler(cl.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("MQTT connection lost", "broker", cfg.Broker, "err", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	cl.c = mqtt.NewClient(opts)
	if err := wait(cl.c.Connect(), cfg.Timeout); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, err)
	}
	return cl, nil
}

func (cl *Client) onConnect(c mqtt.Client) {
	log.Info("Connected to MQTT broker", "broker", cl.cfg.Broker)

	cl.mu.Lock()
	defer cl.mu.Unlock()
	for topic, h := range cl.subs {
		c.Subscribe(topic, cl.cfg.QoS, wrap(h))
	}
}

func (cl *Client) Publish(topic, payload string) error {
	return wait(cl.c.Publish(topic, cl.cfg.QoS, false, payload), cl.cfg.Timeout)
}

func (cl *Client) Subscribe(topic string, h Handler) error {
	cl.mu.Lock()
	cl.subs[topic] = h
	cl.mu.Unlock()

	if err := wait(cl.c.Subscribe(topic, cl.cfg.QoS, wrap(h)), cl.cfg.Timeout); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	log.Debug("Subscribed", "topic", topic)
	return nil
}

func (cl *Client) Close() {
	cl.c.Disconnect(250)
}

func wrap(h Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		h(m.Topic(), m.Payload())
	}
}

func wait(t mqtt.Token, d time.Duration) error {
	if !t.WaitTimeout(d) {
		return ErrTimeout
	}
	return t.Error()
}
