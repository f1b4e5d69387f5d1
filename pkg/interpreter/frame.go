package interpreter

import (
	"slices"
	"sync"
)

type FrameFlags int

const (
	FrameGlobal FrameFlags = 1 << iota
	FrameProcedure
	FrameScope
)

// CallFrame is one scope of named variables.
//
// The global frame is shared by every context of an interpreter, so frames
// lock their variable map.
type CallFrame struct {
	Name  string     // procedure or scope name
	Flags FrameFlags // what kind of frame this is
	Level int        // nesting depth, 0 for the global frame

	mu       sync.RWMutex
	vars     map[string]Value
	disposed bool
}

// NewCallFrame creates an empty frame
func NewCallFrame(name string, flags FrameFlags, level int) *CallFrame {
	return &CallFrame{
		Name:  name,
		Flags: flags,
		Level: level,
		vars:  make(map[string]Value),
	}
}

// IsGlobal reports whether the frame is shared interpreter-wide.
func (f *CallFrame) IsGlobal() bool {
	return f.Flags&FrameGlobal != 0
}

// Get reads a variable.
func (f *CallFrame) Get(name string) (Value, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.vars[name]
	return v, ok
}

// Set writes a variable.
func (f *CallFrame) Set(name string, v Value) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.vars == nil {
		f.vars = make(map[string]Value)
	}
	f.vars[name] = v
}

// Update applies fn to a variable under the frame lock, so read-modify-write
// commands stay atomic on shared frames.
func (f *CallFrame) Update(name string, fn func(old Value, ok bool) (Value, error)) (Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	old, ok := f.vars[name]
	v, err := fn(old, ok)
	if err != nil {
		return Value{}, err
	}

	if f.vars == nil {
		f.vars = make(map[string]Value)
	}
	f.vars[name] = v
	return v, nil
}

// Unset removes a variable, reporting whether it existed.
func (f *CallFrame) Unset(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.vars[name]; !ok {
		return false
	}
	delete(f.vars, name)
	return true
}

// Names returns the sorted variable names.
func (f *CallFrame) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.vars))
	for name := range f.vars {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Free drops the frame's variables. A global frame keeps them unless global
// is set, since other contexts still use it.
func (f *CallFrame) Free(global bool) {
	if f == nil || (f.IsGlobal() && !global) {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	clear(f.vars)
}

// Dispose frees the frame for good.
func (f *CallFrame) Dispose() {
	if f == nil {
		return
	}

	f.Free(true)

	f.mu.Lock()
	f.disposed = true
	f.mu.Unlock()
}

// Disposed reports whether Dispose has run.
func (f *CallFrame) Disposed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.disposed
}

// CallStack holds the procedure frames of one context, innermost last.
type CallStack struct {
	frames []*CallFrame
}

// NewCallStack creates an empty CallStack
func NewCallStack() *CallStack {
	return &CallStack{frames: make([]*CallFrame, 0, 8)}
}

// Push adds a frame on top.
func (s *CallStack) Push(f *CallFrame) {
	s.frames = append(s.frames, f)
}

// Pop removes the top frame, or returns nil when empty.
func (s *CallStack) Pop() *CallFrame {
	if len(s.frames) == 0 {
		return nil
	}

	f := s.frames[len(s.frames)-1]
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

// Top returns the innermost frame, or nil.
func (s *CallStack) Top() *CallFrame {
	if len(s.frames) == 0 {
		return nil
	}

	return s.frames[len(s.frames)-1]
}

// Len returns the number of frames.
func (s *CallStack) Len() int {
	return len(s.frames)
}

// AtLevel returns the procedure frame at nesting depth level (1-based).
func (s *CallStack) AtLevel(level int) *CallFrame {
	if level < 1 || level > len(s.frames) {
		return nil
	}

	return s.frames[level-1]
}

// Free releases every frame innermost first and empties the stack.
func (s *CallStack) Free(global bool) {
	if s == nil {
		return
	}

	for i := len(s.frames) - 1; i >= 0; i-- {
		s.frames[i].Free(global)
		s.frames[i] = nil
	}
	s.frames = s.frames[:0]
}

// Dispose frees the stack with global set.
func (s *CallStack) Dispose() {
	s.Free(true)
}
