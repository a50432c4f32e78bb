// Package mqtt applies light commands published to per-channel MQTT topics.
package mqtt

import (
	"context"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/scheerer/companion-lights/internal/dispatch"
	"github.com/scheerer/companion-lights/internal/layout"
	"github.com/scheerer/companion-lights/internal/logging"
)

var logger = logging.New("mqtt")

const (
	qos             = 1
	disconnectQuiet = 250 // ms
)

type Source struct {
	broker string
	opts   *mqtt.ClientOptions
	target dispatch.Applier
	// topic -> channel
	topics map[string]string
}

func New(broker, clientID string, target dispatch.Applier, l layout.Layout) *Source {
	s := &Source{
		broker: broker,
		target: target,
		topics: make(map[string]string, len(l.Channels)),
	}
	for _, ch := range l.Channels {
		if ch.Topic != "" {
			s.topics[ch.Topic] = ch.Name
		}
	}
	s.opts = mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(s.subscribe).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.With(zap.String("broker", broker), zap.Error(err)).Warn("Lost MQTT connection")
		})
	return s
}

// Start connects and serves subscriptions until ctx is done.
func (s *Source) Start(ctx context.Context) {
	client := mqtt.NewClient(s.opts)
	token := client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			logger.With(zap.String("broker", s.broker), zap.Error(err)).Error("Failed to connect to MQTT broker")
			return
		}
	case <-ctx.Done():
	}
	<-ctx.Done()
	client.Disconnect(disconnectQuiet)
}

// subscribe runs on every (re)connect since subscriptions do not survive a
// clean session.
func (s *Source) subscribe(client mqtt.Client) {
	filters := make(map[string]byte, len(s.topics))
	for topic := range s.topics {
		filters[topic] = qos
	}
	token := client.SubscribeMultiple(filters, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		logger.With(zap.Error(err)).Error("Failed to subscribe to light topics")
		return
	}
	logger.With(zap.String("broker", s.broker), zap.Any("topics", s.topics)).Info("Listening for commands")
}

func (s *Source) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	channel, ok := s.topics[msg.Topic()]
	if !ok {
		return
	}
	command := strings.TrimSpace(string(msg.Payload()))
	if err := s.target.Apply(channel, command); err != nil {
		// The registry already logged the rejection.
		logger.With(zap.String("topic", msg.Topic()), zap.Error(err)).Debug("Dropped MQTT message")
	}
}
