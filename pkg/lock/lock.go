// Package lock serializes builds of the same flow.
//
// Two builds of one flow must not interleave their connection writes, so
// every mutating pipeline operation holds the flow's lock for its duration.
// [Local] covers a single process; [Redis] covers several workers sharing a
// store.
//
//	unlock, err := locker.Acquire(ctx, flowID)
//	if err != nil {
//	    return err // FLOW_LOCKED when the wait timed out
//	}
//	defer unlock()
package lock

import (
	"context"
	"sync"

	"github.com/screenflow/screenflow/pkg/errors"
)

// Locker hands out per-flow exclusive locks.
type Locker interface {
	// Acquire blocks until the lock for flowID is held or ctx is done.
	// The returned function releases it and is safe to call more than once.
	Acquire(ctx context.Context, flowID string) (func(), error)
}

// Local is an in-process Locker. The zero value is ready to use.
type Local struct {
	mu    sync.Mutex
	flows map[string]*entry
}

type entry struct {
	ch   chan struct{} // buffered(1); holding the token means holding the lock
	refs int
}

// NewLocal creates an in-process locker.
func NewLocal() *Local { return &Local{} }

// Acquire implements Locker.
func (l *Local) Acquire(ctx context.Context, flowID string) (func(), error) {
	e := l.ref(flowID)
	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(flowID)
		return nil, errors.Wrap(errors.ErrCodeFlowLocked, ctx.Err(), "flow %s is being built", flowID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.unref(flowID)
		})
	}, nil
}

func (l *Local) ref(flowID string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.flows == nil {
		l.flows = make(map[string]*entry)
	}
	e, ok := l.flows[flowID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.flows[flowID] = e
	}
	e.refs++
	return e
}

func (l *Local) unref(flowID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.flows[flowID]
	e.refs--
	if e.refs == 0 {
		delete(l.flows, flowID)
	}
}

var _ Locker = (*Local)(nil)
