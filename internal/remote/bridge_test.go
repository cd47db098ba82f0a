package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/choreo-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/choreo-core/internal/robot"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

type published struct {
	topic   string
	payload []byte
}

type mockClient struct {
	mu        sync.Mutex
	published []published
	handlers  map[string]mqtt.MessageHandler
}

func newMockClient() *mockClient {
	return &mockClient{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockClient) Publish(topic string, payload []byte, _ byte, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{topic, payload})
	return nil
}

func (m *mockClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *mockClient) getPublished() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.published...)
}

func (m *mockClient) deliver(t *testing.T, topic string, payload string) error {
	t.Helper()
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	if h == nil {
		t.Fatalf("no handler for %s", topic)
	}
	return h(topic, []byte(payload))
}

type mockController struct {
	mu     sync.Mutex
	runs   []string
	stops  int
	runErr error
}

func (m *mockController) HandleRun(_ context.Context, src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, string(src))
	return m.runErr
}

func (m *mockController) HandleStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
}

func setupBridge(t *testing.T) (*Bridge, *mockClient, *mockController) {
	t.Helper()
	client := newMockClient()
	ctrl := &mockController{}
	b := NewBridge(client, mqtt.Topics{RobotID: "bot"}, 1, ctrl, nil)
	if err := b.Subscribe(); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	return b, client, ctrl
}

func lastResult(t *testing.T, client *mockClient) Result {
	t.Helper()
	pubs := client.getPublished()
	if len(pubs) == 0 {
		t.Fatal("nothing published")
	}
	last := pubs[len(pubs)-1]
	if last.topic != "choreo/bot/command/result" {
		t.Fatalf("last topic = %s", last.topic)
	}
	var res Result
	if err := json.Unmarshal(last.payload, &res); err != nil {
		t.Fatal(err)
	}
	return res
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestHandleCommand(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		runErr     error
		wantStatus string
		wantErr    bool
		wantRuns   int
		wantStops  int
	}{
		{"run", `{"command":"run","program":"robot.say('hi')","request_id":"r1"}`, nil, "ok", false, 1, 0},
		{"stop", `{"command":"stop"}`, nil, "ok", false, 0, 1},
		{"script error", `{"command":"run","program":"robot.say("}`, errors.New("routine:1: unexpected EOF"), "error", false, 1, 0},
		{"unknown", `{"command":"dance"}`, nil, "error", true, 0, 0},
		{"bad json", `{`, nil, "error", true, 0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, client, ctrl := setupBridge(t)
			ctrl.runErr = tt.runErr

			err := client.deliver(t, "choreo/bot/command", tt.payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("handler error = %v, wantErr %v", err, tt.wantErr)
			}
			res := lastResult(t, client)
			if res.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q (error %q)", res.Status, tt.wantStatus, res.Error)
			}
			if len(ctrl.runs) != tt.wantRuns || ctrl.stops != tt.wantStops {
				t.Errorf("runs = %d, stops = %d", len(ctrl.runs), ctrl.stops)
			}
		})
	}
}

func TestHandleCommand_EchoesRequestID(t *testing.T) {
	_, client, _ := setupBridge(t)

	if err := client.deliver(t, "choreo/bot/command", `{"command":"stop","request_id":"abc"}`); err != nil {
		t.Fatal(err)
	}
	if res := lastResult(t, client); res.RequestID != "abc" || res.Command != "stop" {
		t.Errorf("result = %+v", res)
	}
}

func TestEventsPublished(t *testing.T) {
	b, client, _ := setupBridge(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	b.Emit(robot.Event{Type: robot.EventRoutineLoaded, RoutineID: "rt-1"})

	deadline := time.Now().Add(2 * time.Second)
	for len(client.getPublished()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	pubs := client.getPublished()
	if len(pubs) != 1 || pubs[0].topic != "choreo/bot/event/routine.loaded" {
		t.Fatalf("published = %+v", pubs)
	}
	var ev robot.Event
	if err := json.Unmarshal(pubs[0].payload, &ev); err != nil || ev.RoutineID != "rt-1" {
		t.Errorf("event = %+v, %v", ev, err)
	}
}

func TestEmit_NeverBlocks(t *testing.T) {
	b, _, _ := setupBridge(t)

	done := make(chan struct{})
	go func() {
		for i := 0; i < eventBuffer*2; i++ {
			b.Emit(robot.Event{Type: robot.EventUnitStarted})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked without a running publisher")
	}
}
