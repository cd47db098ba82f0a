package input

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"
)

// Axis codes x, y and button codes b1..b4, start as a typical gamepad reports them.
var (
	testAxes    = []uint8{0x00, 0x01}
	testButtons = []uint16{0x130, 0x131, 0x132, 0x133, 0x139}
)

type recorder struct {
	mu      sync.Mutex
	buttons []string
	axes    []float64
}

func (r *recorder) button(name string, value int) {
	r.mu.Lock()
	r.buttons = append(r.buttons, name+"="+string(rune('0'+value)))
	r.mu.Unlock()
}

func (r *recorder) axis(_ string, value float64) {
	r.mu.Lock()
	r.axes = append(r.axes, value)
	r.mu.Unlock()
}

func (r *recorder) getButtons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.buttons...)
}

func TestReadEvent_KernelLayout(t *testing.T) {
	raw := []byte{0x10, 0x27, 0x00, 0x00, 0x01, 0x80, 0x02, 0x01} // t=10000 value=-32767 axis #1
	ev, err := ReadEvent(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadEvent() error = %v", err)
	}
	if ev.Time != 10000 || ev.Value != -32767 || !ev.IsAxis() || ev.Number != 1 {
		t.Errorf("event = %+v", ev)
	}
	if !bytes.Equal(ev.Bytes(), raw) {
		t.Errorf("Bytes() = %x, want %x", ev.Bytes(), raw)
	}
}

func TestReadEvent_ShortRead(t *testing.T) {
	if _, err := ReadEvent(bytes.NewReader([]byte{1, 2, 3})); err == nil {
		t.Error("ReadEvent() should fail on a truncated event")
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{AxisName(0x00), "x"},
		{AxisName(0x11), "hat0y"},
		{AxisName(0x3f), "unknown(0x3f)"},
		{ButtonName(0x130), "b1"},
		{ButtonName(0x133), "b4"},
		{ButtonName(0x139), "start"},
		{ButtonName(0x2c2), "dpad_up"},
		{ButtonName(0x1ff), "unknown(0x1ff)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("name = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestJoystick_DispatchButton(t *testing.T) {
	j := NewJoystick("pad", testAxes, testButtons, nil)
	rec := &recorder{}
	j.OnButton("start", rec.button)
	j.OnButton("b2", rec.button)

	j.Dispatch(Event{Type: TypeButton, Number: 4, Value: 1})
	j.Dispatch(Event{Type: TypeButton, Number: 4, Value: 0})
	j.Dispatch(Event{Type: TypeButton, Number: 1, Value: 1})
	j.Dispatch(Event{Type: TypeButton, Number: 0, Value: 1}) // b1 has no callback

	want := []string{"start=1", "start=0", "b2=1"}
	got := rec.getButtons()
	if len(got) != len(want) {
		t.Fatalf("callbacks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("callback %d = %q, want %q", i, got[i], want[i])
		}
	}
	if j.ButtonState("b1") != 1 {
		t.Error("b1 state should be tracked without a callback")
	}
}

func TestJoystick_DispatchAxisNormalises(t *testing.T) {
	j := NewJoystick("pad", testAxes, testButtons, nil)
	rec := &recorder{}
	j.OnAxis("y", rec.axis)

	j.Dispatch(Event{Type: TypeAxis, Number: 1, Value: -32767})
	j.Dispatch(Event{Type: TypeAxis, Number: 0, Value: 32767})

	if len(rec.axes) != 1 || rec.axes[0] != -1 {
		t.Errorf("y callbacks = %v, want [-1]", rec.axes)
	}
	if got := j.AxisState("x"); got != 1 {
		t.Errorf("AxisState(x) = %v, want 1", got)
	}
	if got := j.AxisState("rz"); got != 0 {
		t.Errorf("AxisState(unknown) = %v, want 0", got)
	}
}

func TestJoystick_InitEventsUpdateStateOnly(t *testing.T) {
	j := NewJoystick("pad", testAxes, testButtons, nil)
	rec := &recorder{}
	j.OnButton("b1", rec.button)

	j.Dispatch(Event{Type: TypeButton | TypeInit, Number: 0, Value: 1})

	if len(rec.getButtons()) != 0 {
		t.Error("init event should not invoke callbacks")
	}
	if j.ButtonState("b1") != 1 {
		t.Error("init event should update state")
	}
}

func TestJoystick_DispatchOutOfRange(t *testing.T) {
	j := NewJoystick("pad", testAxes, testButtons, nil)
	j.Dispatch(Event{Type: TypeButton, Number: 40, Value: 1})
	j.Dispatch(Event{Type: TypeAxis, Number: 9, Value: 1})
}

func TestJoystick_RunUntilEOF(t *testing.T) {
	j := NewJoystick("pad", testAxes, testButtons, nil)
	rec := &recorder{}
	j.OnButton("b3", rec.button)

	var stream bytes.Buffer
	stream.Write(Event{Type: TypeButton, Number: 2, Value: 1}.Bytes())
	stream.Write(Event{Type: TypeButton, Number: 2, Value: 0}.Bytes())

	if err := j.Run(context.Background(), &stream); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := rec.getButtons(); len(got) != 2 {
		t.Errorf("callbacks = %v, want 2", got)
	}
}

func TestJoystick_RunStopsOnCancel(t *testing.T) {
	j := NewJoystick("pad", testAxes, testButtons, nil)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx, pr) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
