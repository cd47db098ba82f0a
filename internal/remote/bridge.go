// Package remote exposes the robot over MQTT: robot events are published
// and run/stop commands are accepted on the robot's command topic.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/choreo-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/choreo-core/internal/robot"
)

const eventBuffer = 256

// Command names accepted on the command topic.
const (
	CommandRun  = "run"
	CommandStop = "stop"
)

var (
	// ErrInvalidCommand is returned for an unparseable or unknown command.
	ErrInvalidCommand = errors.New("remote: invalid command")
)

// Client is the MQTT surface the bridge uses.
type Client interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Controller executes commands.
type Controller interface {
	HandleRun(ctx context.Context, source []byte) error
	HandleStop()
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Request is a command message.
type Request struct {
	Command   string `json:"command"`
	Program   string `json:"program,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Result is published on the command result topic for every request.
type Result struct {
	RequestID string `json:"request_id,omitempty"`
	Command   string `json:"command"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Bridge connects a robot to MQTT. It is a robot.EventSink; events are
// queued and published by Run so Emit never blocks on the broker.
type Bridge struct {
	client Client
	topics mqtt.Topics
	qos    byte
	ctrl   Controller
	logger Logger
	events chan robot.Event
}

// NewBridge creates a bridge for the robot named by topics.
func NewBridge(client Client, topics mqtt.Topics, qos byte, ctrl Controller, logger Logger) *Bridge {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		client: client,
		topics: topics,
		qos:    qos,
		ctrl:   ctrl,
		logger: logger,
		events: make(chan robot.Event, eventBuffer),
	}
}

// Emit implements robot.EventSink.
func (b *Bridge) Emit(ev robot.Event) {
	select {
	case b.events <- ev:
	default:
		b.logger.Warn("mqtt event buffer full, dropping event", "type", ev.Type)
	}
}

// Run publishes queued events until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.events:
			b.publishEvent(ev)
		}
	}
}

func (b *Bridge) publishEvent(ev robot.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("encoding event", "type", ev.Type, "error", err)
		return
	}
	if err := b.client.Publish(b.topics.Event(ev.Type), payload, b.qos, false); err != nil {
		b.logger.Debug("publishing event", "type", ev.Type, "error", err)
	}
}

// Subscribe starts accepting commands on the command topic.
func (b *Bridge) Subscribe() error {
	if err := b.client.Subscribe(b.topics.Command(), b.qos, b.HandleCommand); err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.topics.Command(), err)
	}
	return nil
}

// HandleCommand executes one command message and publishes its result.
func (b *Bridge) HandleCommand(_ string, payload []byte) error {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		b.publishResult(Result{Command: "", Status: "error", Error: "invalid JSON"})
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	res := Result{RequestID: req.RequestID, Command: req.Command, Status: "ok"}
	var err error
	switch req.Command {
	case CommandRun:
		err = b.ctrl.HandleRun(context.Background(), []byte(req.Program))
	case CommandStop:
		b.ctrl.HandleStop()
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidCommand, req.Command)
	}
	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
	}
	b.publishResult(res)

	if errors.Is(err, ErrInvalidCommand) {
		return err
	}
	return nil
}

func (b *Bridge) publishResult(res Result) {
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := b.client.Publish(b.topics.CommandResult(), payload, b.qos, false); err != nil {
		b.logger.Warn("publishing command result", "error", err)
	}
}
