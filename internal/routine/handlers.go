package routine

import (
	"context"
	"strconv"
)

// Handler is a registered start or button handler. Running it executes the
// build step and then drains the actions the build step enqueued.
type Handler struct {
	routine *Routine
	body    BuildFunc
}

// Run executes the handler's build step followed by its drain.
func (h *Handler) Run(ctx context.Context) error {
	batch, err := h.routine.build(ctx, h.body)
	if err != nil {
		return err
	}
	return h.routine.RunActions(ctx, batch)
}

// build runs body with exclusive access to the routine and returns what it
// enqueued. On error, whatever body enqueued is discarded.
func (r *Routine) build(ctx context.Context, body BuildFunc) ([]Action, error) {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.closed {
		return nil, ErrClosed
	}
	if err := body(ctx); err != nil {
		r.TakeQueue()
		return nil, err
	}
	return r.TakeQueue(), nil
}

// RegisterOnStarted appends a start handler and returns it.
func (r *Routine) RegisterOnStarted(body BuildFunc) *Handler {
	h := &Handler{routine: r, body: body}

	r.mu.Lock()
	r.onStarted = append(r.onStarted, h)
	r.mu.Unlock()
	return h
}

// RegisterOnButton appends a handler for button id (MinButton..MaxButton).
func (r *Routine) RegisterOnButton(id int, body BuildFunc) (*Handler, error) {
	if id < MinButton || id > MaxButton {
		return nil, invalid("button", strconv.Itoa(id))
	}
	h := &Handler{routine: r, body: body}

	r.mu.Lock()
	r.onButton[id] = append(r.onButton[id], h)
	r.mu.Unlock()
	return h, nil
}

// StartHandlers returns the number of registered start handlers.
func (r *Routine) StartHandlers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.onStarted)
}

// ButtonHandlers returns the number of handlers registered for button id.
func (r *Routine) ButtonHandlers(id int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.onButton[id])
}

// RunStartHandlers runs every start handler in registration order, each one
// completing before the next begins.
func (r *Routine) RunStartHandlers(ctx context.Context) error {
	r.mu.Lock()
	handlers := append([]*Handler(nil), r.onStarted...)
	r.mu.Unlock()

	return runHandlers(ctx, handlers)
}

// RunButtonHandlers runs the handlers registered for button id in
// registration order. It does nothing when none are registered.
func (r *Routine) RunButtonHandlers(ctx context.Context, id int) error {
	r.mu.Lock()
	handlers := append([]*Handler(nil), r.onButton[id]...)
	r.mu.Unlock()

	return runHandlers(ctx, handlers)
}

func runHandlers(ctx context.Context, handlers []*Handler) error {
	for _, h := range handlers {
		if err := h.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}
