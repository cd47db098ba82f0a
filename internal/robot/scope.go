package robot

import (
	"context"
	"sync"
	"time"
)

// ActiveAction is one independently running unit of work.
type ActiveAction struct {
	ID        uint64
	Name      string
	RoutineID string
	Started   time.Time

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Done is closed when the unit has finished or been cancelled.
func (a *ActiveAction) Done() <-chan struct{} {
	return a.done
}

// Err returns the unit's result once Done is closed.
func (a *ActiveAction) Err() error {
	<-a.done
	return a.err
}

// Cancel cancels this unit only.
func (a *ActiveAction) Cancel() {
	a.cancel()
}

// scope groups the ActiveActions started since the last STOP. Units remove
// themselves from the scope they were started in.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[uint64]*ActiveAction
}

func newScope() *scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &scope{
		ctx:    ctx,
		cancel: cancel,
		active: make(map[uint64]*ActiveAction),
	}
}

func (s *scope) add(a *ActiveAction) {
	s.mu.Lock()
	s.active[a.ID] = a
	s.mu.Unlock()
}

func (s *scope) remove(id uint64) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

func (s *scope) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// wait blocks until every unit in the scope has finished or ctx is done.
func (s *scope) wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		var next *ActiveAction
		for _, a := range s.active {
			next = a
			break
		}
		s.mu.Unlock()

		if next == nil {
			return nil
		}
		select {
		case <-next.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
