package interpreter

import (
	"fmt"
	"sync"
	"sync/atomic"

	"interpcore/pkg/execctx"
	"interpcore/pkg/thread"
)

// contextManager keeps one execution context per thread for an interpreter.
type contextManager struct {
	interp *Interpreter

	mu       sync.Mutex
	byThread map[int64]*execctx.Context

	// last context handed out; reused without locking when the guard allows
	previous atomic.Pointer[execctx.Context]
}

func newContextManager(interp *Interpreter) *contextManager {
	return &contextManager{
		interp:   interp,
		byThread: make(map[int64]*execctx.Context),
	}
}

func (m *contextManager) guard() thread.Guard {
	return m.interp.guard
}

// get returns the calling thread's context, creating it when create is set.
func (m *contextManager) get(create bool) (*execctx.Context, error) {
	if prev := m.previous.Load(); m.guard().CanUse(prev) {
		return prev, nil
	}

	id := m.guard().CurrentID()

	m.mu.Lock()
	defer m.mu.Unlock()

	// a detached context is never revived; the thread gets a new one
	ctx, ok := m.byThread[id]
	if !ok || ctx.Disposed() || ctx.ThreadID() == 0 {
		if !create {
			return nil, ErrNoContext
		}

		ctx = execctx.New(execctx.Options{
			Owner:        m.interp,
			ThreadID:     id,
			CallStack:    NewCallStack(),
			GlobalFrame:  m.interp.global,
			CurrentFrame: m.interp.global,
			TraceInfo:    execctx.NewTraceInfo(fmt.Sprintf("thread-%d", id)),
		})
		m.byThread[id] = ctx

		m.interp.logger.Debug("execution context created", "thread", id)
	}

	m.previous.Store(ctx)
	return ctx, nil
}

// release detaches and retires the calling thread's context. Shared global
// state is left alone.
func (m *contextManager) release() bool {
	id := m.guard().CurrentID()

	m.mu.Lock()
	ctx, ok := m.byThread[id]
	delete(m.byThread, id)
	m.mu.Unlock()

	if !ok {
		return false
	}

	m.previous.CompareAndSwap(ctx, nil)

	ctx.Free(false)
	ctx.Dispose()

	m.interp.logger.Debug("execution context released", "thread", id)
	return true
}

// purge frees and disposes every context, returning how many there were.
func (m *contextManager) purge(global bool) int {
	m.mu.Lock()
	contexts := make([]*execctx.Context, 0, len(m.byThread))
	for _, ctx := range m.byThread {
		contexts = append(contexts, ctx)
	}
	clear(m.byThread)
	m.mu.Unlock()

	m.previous.Store(nil)

	for _, ctx := range contexts {
		ctx.Free(global)
		thread.Dispose(ctx)
	}

	return len(contexts)
}

func (m *contextManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.byThread)
}

// Context returns the calling thread's execution context, creating it on
// first use.
func (i *Interpreter) Context() (*execctx.Context, error) {
	if i.disposed.Load() {
		return nil, ErrDisposed
	}

	return i.contexts.get(true)
}

// LookupContext returns the calling thread's context without creating one.
func (i *Interpreter) LookupContext() (*execctx.Context, error) {
	return i.contexts.get(false)
}

// ReleaseThread retires the calling thread's context, reporting whether it
// had one.
func (i *Interpreter) ReleaseThread() bool {
	return i.contexts.release()
}

// ContextCount returns how many threads hold a context.
func (i *Interpreter) ContextCount() int {
	return i.contexts.count()
}
