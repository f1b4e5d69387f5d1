package thread

// Affine is anything bound to the thread that created it.
//
// Implementations backed by pointers should report Disposed() == true on a
// nil receiver so that a typed nil fails the guard like an untyped one.
type Affine interface {
	ThreadID() int64
	Disposed() bool
}

// Disposer is the capability DisposeThread looks for.
type Disposer interface {
	Dispose()
}

// Guard checks thread affinity against an id Source.
type Guard struct {
	Source Source
}

// NewGuard creates a Guard over src, or over the process-wide registry when
// src is nil.
func NewGuard(src Source) Guard {
	if src == nil {
		src = defaultRegistry
	}

	return Guard{Source: src}
}

// CurrentID returns the calling thread's id.
func (g Guard) CurrentID() int64 {
	if g.Source == nil {
		return defaultRegistry.CurrentID()
	}

	return g.Source.CurrentID()
}

// CanUse is the gate every mutation of a thread-affine object must pass: it
// is false for nil or disposed objects and for objects owned by another
// thread.
func (g Guard) CanUse(a Affine) bool {
	if a == nil || a.Disposed() {
		return false
	}

	return a.ThreadID() == g.CurrentID()
}

// CanUse checks a against the process-wide registry.
func CanUse(a Affine) bool {
	return Guard{}.CanUse(a)
}

// Dispose disposes v when it can be disposed and reports whether it was.
func Dispose(v any) bool {
	d, ok := v.(Disposer)
	if !ok {
		return false
	}

	d.Dispose()
	return true
}
