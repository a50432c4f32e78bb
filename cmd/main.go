// Command lightctl publishes a light command to a channel's MQTT topic.
//
//	lightctl --broker tcp://localhost:1883 --topic /LightBase "Hex(FFB126) Brightness(100) Fade(0)"
//	lightctl --channel body rainbow
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/scheerer/companion-lights/internal/effect"
	"github.com/scheerer/companion-lights/internal/layout"
	"github.com/scheerer/companion-lights/internal/logging"
	"github.com/scheerer/companion-lights/internal/util"
)

var logger = logging.New("lightctl")

type options struct {
	broker      string
	clientID    string
	topic       string
	channel     string
	channelFile string
	timeout     time.Duration
	qos         int
	retain      bool
}

func main() {
	defer logger.Sync()

	opts, args, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	topic, payload, err := buildMessage(opts, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := publish(opts, topic, payload); err != nil {
		logger.With(zap.String("broker", opts.broker), zap.Error(err)).Fatal("Failed to publish light command")
	}
	logger.With(zap.String("topic", topic), zap.String("command", payload)).Info("Published light command")
}

func parseFlags(argv []string) (options, []string, error) {
	var opts options
	fs := pflag.NewFlagSet("lightctl", pflag.ContinueOnError)
	fs.StringVarP(&opts.broker, "broker", "b", util.Getenv("MQTT_BROKER", "tcp://localhost:1883"), "MQTT broker URL")
	fs.StringVar(&opts.clientID, "client-id", util.Getenv("MQTT_CLIENT_ID", "lightctl"), "MQTT client id")
	fs.StringVarP(&opts.topic, "topic", "t", "", "topic to publish to")
	fs.StringVarP(&opts.channel, "channel", "c", "", "channel name; its topic is looked up in the channel layout")
	fs.StringVar(&opts.channelFile, "channel-file", util.Getenv("CHANNEL_FILE", ""), "YAML channel layout (built-in layout when empty)")
	fs.DurationVar(&opts.timeout, "timeout", util.Getenv("LIGHTCTL_TIMEOUT", 5*time.Second), "connect and publish timeout")
	fs.IntVar(&opts.qos, "qos", util.Getenv("MQTT_QOS", 1), "MQTT quality of service (0-2)")
	fs.BoolVar(&opts.retain, "retain", util.Getenv("LIGHTCTL_RETAIN", false), "ask the broker to retain the command for late subscribers")
	if err := fs.Parse(argv); err != nil {
		return opts, nil, err
	}
	if opts.qos < 0 || opts.qos > 2 {
		return opts, nil, errors.Errorf("--qos must be 0, 1 or 2, got %d", opts.qos)
	}
	return opts, fs.Args(), nil
}

// buildMessage resolves the target topic and checks the command parses before
// anything is sent.
func buildMessage(opts options, args []string) (topic, payload string, err error) {
	payload = strings.TrimSpace(strings.Join(args, " "))
	if payload == "" {
		return "", "", errors.New("usage: lightctl [--topic TOPIC | --channel NAME] COMMAND")
	}
	if _, err := effect.ParseCommand(payload); err != nil {
		return "", "", errors.Wrapf(err, "%q", payload)
	}

	switch {
	case opts.topic != "" && opts.channel != "":
		return "", "", errors.New("--topic and --channel are mutually exclusive")
	case opts.topic != "":
		return opts.topic, payload, nil
	}

	l, err := layout.Load(opts.channelFile)
	if err != nil {
		return "", "", err
	}
	name := opts.channel
	if name == "" {
		name = l.Channels[0].Name
	}
	for _, ch := range l.Channels {
		if ch.Name == name {
			if ch.Topic == "" {
				return "", "", errors.Errorf("channel %q has no topic", name)
			}
			return ch.Topic, payload, nil
		}
	}
	return "", "", errors.Wrapf(effect.ErrUnknownChannel, "%q", name)
}

func publish(opts options, topic, payload string) error {
	client := mqtt.NewClient(mqtt.NewClientOptions().
		AddBroker(opts.broker).
		SetClientID(opts.clientID).
		SetConnectTimeout(opts.timeout))

	token := client.Connect()
	if !token.WaitTimeout(opts.timeout) {
		return errors.New("timed out connecting")
	}
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "connect")
	}
	defer client.Disconnect(250)

	token = client.Publish(topic, byte(opts.qos), opts.retain, payload)
	if !token.WaitTimeout(opts.timeout) {
		return errors.New("timed out publishing")
	}
	return errors.Wrap(token.Error(), "publish")
}
