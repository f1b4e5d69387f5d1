package execctx

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Frame is a call frame as seen by the context. The context only holds frames
// and decides when they are freed; what a frame stores is its own business.
type Frame interface {
	Free(global bool)
	Dispose()
}

// Stack is the call stack collaborator, freed alongside the frames.
type Stack interface {
	Free(global bool)
	Dispose()
}

// Owner is the interpreter a context belongs to. The context never disposes it.
type Owner interface {
	ID() uuid.UUID
}

// TraceInfo is an optional diagnostic handle carried by a context.
type TraceInfo struct {
	ID      uuid.UUID
	Name    string
	Started time.Time
}

// NewTraceInfo creates a TraceInfo with a fresh id
func NewTraceInfo(name string) *TraceInfo {
	return &TraceInfo{ID: uuid.New(), Name: name, Started: time.Now()}
}

// State is where a context is in its lifecycle.
type State int

const (
	Active State = iota
	Detached
	Disposed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Detached:
		return "detached"
	default:
		return "disposed"
	}
}

// Options holds everything a Context starts with.
type Options struct {
	Owner            Owner
	ThreadID         int64
	CallStack        Stack
	GlobalFrame      Frame
	GlobalScopeFrame Frame
	CurrentFrame     Frame
	ProcedureFrame   Frame
	UplevelFrame     Frame
	TraceInfo        *TraceInfo
}

// Context is the per-thread bundle of frame slots an evaluation runs against.
//
// A Context is owned by one thread; it performs no affinity checks itself, so
// callers gate mutation with thread.CanUse.
type Context struct {
	owner Owner

	// read by affinity checks on other threads
	threadID atomic.Int64
	disposed atomic.Bool

	callStack        Stack
	globalFrame      Frame
	globalScopeFrame Frame
	currentFrame     Frame
	procedureFrame   Frame
	uplevelFrame     Frame
	traceInfo        *TraceInfo
}

// New creates a Context. The disposed policy is frozen from here on.
func New(opts Options) *Context {
	freezePolicy()

	c := &Context{
		owner:            opts.Owner,
		callStack:        opts.CallStack,
		globalFrame:      opts.GlobalFrame,
		globalScopeFrame: opts.GlobalScopeFrame,
		currentFrame:     opts.CurrentFrame,
		procedureFrame:   opts.ProcedureFrame,
		uplevelFrame:     opts.UplevelFrame,
		traceInfo:        opts.TraceInfo,
	}
	c.threadID.Store(opts.ThreadID)

	runtime.SetFinalizer(c, (*Context).finalize)
	return c
}

// ThreadID returns the owning thread, or 0 once freed. It never checks the
// disposed state so affinity checks keep working after teardown.
func (c *Context) ThreadID() int64 {
	if c == nil {
		return 0
	}

	return c.threadID.Load()
}

// Disposed reports whether Dispose has run. A nil Context counts as disposed.
func (c *Context) Disposed() bool {
	return c == nil || c.disposed.Load()
}

// State reports the lifecycle state.
func (c *Context) State() State {
	switch {
	case c.Disposed():
		return Disposed
	case c.threadID.Load() == 0:
		return Detached
	default:
		return Active
	}
}

func (c *Context) check(op string) {
	if c.disposed.Load() && CurrentPolicy() == Strict {
		panic(&DisposedError{Op: op})
	}
}

func (c *Context) Owner() Owner {
	c.check("Owner")
	return c.owner
}

func (c *Context) CallStack() Stack {
	c.check("CallStack")
	return c.callStack
}

func (c *Context) SetCallStack(s Stack) {
	c.check("SetCallStack")
	c.callStack = s
}

func (c *Context) GlobalFrame() Frame {
	c.check("GlobalFrame")
	return c.globalFrame
}

func (c *Context) SetGlobalFrame(f Frame) {
	c.check("SetGlobalFrame")
	c.globalFrame = f
}

func (c *Context) GlobalScopeFrame() Frame {
	c.check("GlobalScopeFrame")
	return c.globalScopeFrame
}

func (c *Context) SetGlobalScopeFrame(f Frame) {
	c.check("SetGlobalScopeFrame")
	c.globalScopeFrame = f
}

func (c *Context) CurrentFrame() Frame {
	c.check("CurrentFrame")
	return c.currentFrame
}

func (c *Context) SetCurrentFrame(f Frame) {
	c.check("SetCurrentFrame")
	c.currentFrame = f
}

func (c *Context) ProcedureFrame() Frame {
	c.check("ProcedureFrame")
	return c.procedureFrame
}

func (c *Context) SetProcedureFrame(f Frame) {
	c.check("SetProcedureFrame")
	c.procedureFrame = f
}

func (c *Context) UplevelFrame() Frame {
	c.check("UplevelFrame")
	return c.uplevelFrame
}

func (c *Context) SetUplevelFrame(f Frame) {
	c.check("SetUplevelFrame")
	c.uplevelFrame = f
}

// CurrentGlobalFrame is the global-scope frame when one is active, otherwise
// the global frame.
func (c *Context) CurrentGlobalFrame() Frame {
	c.check("CurrentGlobalFrame")
	if c.globalScopeFrame != nil {
		return c.globalScopeFrame
	}

	return c.globalFrame
}

func (c *Context) TraceInfo() *TraceInfo {
	c.check("TraceInfo")
	return c.traceInfo
}

func (c *Context) SetTraceInfo(t *TraceInfo) {
	c.check("SetTraceInfo")
	c.traceInfo = t
}

// Free detaches the context from its interpreter, thread, stack and frames.
//
// global says whether shared state may be released too; it is true only when
// the whole interpreter is going away. With global false the shared global
// frames survive for the next context. Frames are freed innermost first.
// Free is a no-op on a disposed context and must not race with itself.
func (c *Context) Free(global bool) {
	if c == nil || c.disposed.Load() {
		return
	}

	log.Debug("freeing execution context", "global", global, "thread", c.threadID.Load(), "trace", c.traceName())

	c.owner = nil
	c.threadID.Store(0)
	c.traceInfo = nil

	if c.callStack != nil {
		c.callStack.Free(global)
		c.callStack = nil
	}

	for _, slot := range []*Frame{
		&c.uplevelFrame,
		&c.procedureFrame,
		&c.currentFrame,
		&c.globalScopeFrame,
		&c.globalFrame,
	} {
		if *slot != nil {
			(*slot).Free(global)
			*slot = nil
		}
	}
}

// Dispose frees everything with global set and retires the context for good.
// Later calls do nothing.
func (c *Context) Dispose() {
	if c == nil {
		return
	}

	c.dispose(true)
	runtime.SetFinalizer(c, nil)
}

func (c *Context) dispose(disposing bool) {
	if c.disposed.Load() {
		return
	}

	if disposing {
		c.Free(true)
	}

	// nothing unmanaged is held here; a finalizer run only marks the context
	c.disposed.Store(true)
}

func (c *Context) finalize() {
	log.Debug("execution context finalized without Dispose", "thread", c.threadID.Load())
	c.dispose(false)
}

func (c *Context) traceName() string {
	if c.traceInfo == nil {
		return ""
	}

	return c.traceInfo.Name
}
