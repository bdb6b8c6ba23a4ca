package events

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dfryer1193/postboard/api"
	"github.com/dfryer1193/postboard/blog/domain"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var _ domain.EventPublisher = (*MQTTPublisher)(nil)

const (
	// DefaultTopicPrefix is prepended to the event kind to form the publish topic.
	DefaultTopicPrefix = "postboard/events"

	connectTimeout = 30 * time.Second
	publishTimeout = 10 * time.Second
	writeTimeout   = 5 * time.Second

	publishQueueSize = 256
)

// MQTTConfig holds the broker connection settings for event publishing.
type MQTTConfig struct {
	// Broker is the MQTT broker URL (e.g., "tcp://broker.example.com:1883").
	Broker   string
	ClientID string
	Username string
	Password string
	UseTLS   bool
	// TopicPrefix defaults to DefaultTopicPrefix
	TopicPrefix string
	QoS         byte
}

// MQTTPublisher publishes JSON encoded events to "{prefix}/{kind}".
// Publish only enqueues; a single worker hands messages to the client in order
// and logs delivery failures. A full queue drops the event.
type MQTTPublisher struct {
	client paho.Client
	prefix string
	qos    byte

	mu     sync.Mutex
	closed bool
	queue  chan mqttMessage
	done   chan struct{}
}

type mqttMessage struct {
	topic   string
	postID  int
	payload []byte
}

// NewMQTTPublisher connects to the broker and returns a ready publisher.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("broker URL is required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid QoS %d", cfg.QoS)
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "postboard-" + uuid.NewString()
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(2 * time.Minute).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetWriteTimeout(writeTimeout).
		SetCleanSession(true).
		SetOnConnectHandler(func(_ paho.Client) {
			log.Info().Str("broker", cfg.Broker).Msg("Connected to MQTT broker")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Error().Err(err).Str("broker", cfg.Broker).Msg("MQTT connection lost")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
	}

	client := paho.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errors.New("connection timeout")
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("connecting to broker: %w", token.Error())
	}

	return newMQTTPublisher(client, cfg.TopicPrefix, cfg.QoS), nil
}

func newMQTTPublisher(client paho.Client, prefix string, qos byte) *MQTTPublisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	p := &MQTTPublisher{
		client: client,
		prefix: strings.TrimRight(prefix, "/"),
		qos:    qos,
		queue:  make(chan mqttMessage, publishQueueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Topic returns the topic events of the given kind are published to.
func (p *MQTTPublisher) Topic(kind domain.EventKind) string {
	return p.prefix + "/" + string(kind)
}

func (p *MQTTPublisher) Publish(evt domain.Event) {
	payload, err := json.Marshal(api.EventFromDomain(evt))
	if err != nil {
		log.Error().Err(err).Str("kind", string(evt.Kind)).Msg("Failed to encode event")
		return
	}

	msg := mqttMessage{topic: p.Topic(evt.Kind), postID: evt.PostID, payload: payload}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		log.Warn().Str("topic", msg.topic).Int("postID", msg.postID).Msg("Dropped event after MQTT publisher closed")
		return
	}

	select {
	case p.queue <- msg:
	default:
		log.Warn().Str("topic", msg.topic).Int("postID", msg.postID).Msg("Dropped event, MQTT publish queue full")
	}
}

func (p *MQTTPublisher) run() {
	defer close(p.done)

	for msg := range p.queue {
		token := p.client.Publish(msg.topic, p.qos, false, msg.payload)
		if !token.WaitTimeout(publishTimeout) {
			log.Error().Str("topic", msg.topic).Int("postID", msg.postID).Msg("Timeout publishing event to MQTT")
			continue
		}
		if err := token.Error(); err != nil {
			log.Error().Err(err).Str("topic", msg.topic).Int("postID", msg.postID).Msg("Failed to publish event to MQTT")
		}
	}
}

// Close drains queued events and disconnects from the broker. Later calls are no-ops.
func (p *MQTTPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	p.client.Disconnect(250)
}
