// Package notify publishes export progress events.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
)

type Stage string

const (
	StageStarted  Stage = "started"
	StageProgress Stage = "progress"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

// Event is one progress update of an export.
type Event struct {
	CompositionID string    `json:"compositionId,omitempty"`
	Stage         Stage     `json:"stage"`
	Frame         int       `json:"frame"`
	TotalFrames   int       `json:"totalFrames"`
	Output        string    `json:"output,omitempty"`
	Error         string    `json:"error,omitempty"`
	Time          time.Time `json:"time"`
}

// Percent returns progress in [0,100].
func (e Event) Percent() float64 {
	if e.TotalFrames <= 0 {
		return 0
	}
	return 100 * float64(e.Frame) / float64(e.TotalFrames)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.Logger.Info("export progress",
		"composition_id", ev.CompositionID,
		"stage", ev.Stage,
		"frame", ev.Frame,
		"total_frames", ev.TotalFrames,
		"error", ev.Error,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
	Timeout  time.Duration
}

// MQTTPublisher sends events as JSON to a topic.
type MQTTPublisher struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
}

func NewMQTTPublisher(opts MQTTOptions) (*MQTTPublisher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	options := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true)
	client := mqtt.NewClient(options)

	token := client.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, err)
	}
	return newMQTTPublisher(client, opts), nil
}

func newMQTTPublisher(client mqtt.Client, opts MQTTOptions) *MQTTPublisher {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &MQTTPublisher{client: client, topic: opts.Topic, qos: opts.QoS, timeout: opts.Timeout}
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.topic, p.qos, false, b)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("mqtt publish to %s: timeout", p.topic)
	}
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
