package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"interpcore/pkg/execctx"
	"interpcore/pkg/thread"
)

// Invocation is what a running command sees: the interpreter, the calling
// thread's context and the name it was invoked as.
type Invocation struct {
	Interp  *Interpreter
	Context *execctx.Context
	Name    string
}

// Invoke runs a command on the calling thread's context, creating the
// context on first use. The goroutine is locked to its OS thread for the
// whole call, so no other goroutine can reach the context mid-evaluation.
// Goroutines that evaluate more than once should be pinned with thread.Pin
// so they keep the same context between calls.
func (i *Interpreter) Invoke(name string, args ...Value) (Value, error) {
	if i.disposed.Load() {
		return Value{}, ErrDisposed
	}

	unpin := thread.Pin()
	defer unpin()

	ctx, err := i.contexts.get(true)
	if err != nil {
		return Value{}, err
	}

	return topLevel(i.invoke(ctx, name, args))
}

// InvokeIn runs a command against an explicit context. The context must
// belong to the calling thread.
func (i *Interpreter) InvokeIn(ctx *execctx.Context, name string, args ...Value) (Value, error) {
	if i.disposed.Load() {
		return Value{}, ErrDisposed
	}

	unpin := thread.Pin()
	defer unpin()

	return topLevel(i.invoke(ctx, name, args))
}

// topLevel turns a return that escaped every procedure into a script error.
func topLevel(v Value, err error) (Value, error) {
	var ret *returnSignal
	if errors.As(err, &ret) {
		return Value{}, scriptError("return", ErrNotInProcedure, "")
	}

	return v, err
}

func (i *Interpreter) invoke(ctx *execctx.Context, name string, args []Value) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(*execctx.DisposedError)
			if !ok {
				panic(r)
			}
			i.logger.Error("disposed execution context used", "command", name, "op", de.Op)
			result, err = Value{}, fmt.Errorf("%w: %w", ErrInternal, de)
		}
	}()

	if !i.guard.CanUse(ctx) {
		return Value{}, ErrWrongThread
	}

	cmd, err := i.resolve(name)
	if err != nil {
		return Value{}, err
	}

	return cmd.Execute(&Invocation{Interp: i, Context: ctx, Name: name}, args)
}

// resolve finds the command for name, consulting the cache first. Failed
// resolutions are cached as negative entries so repeated misses stay cheap.
func (i *Interpreter) resolve(name string) (Command, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if exec, found := i.cache.TryGet(name, false); found {
		if cmd, ok := exec.(Command); ok {
			return cmd, nil
		}
		return nil, scriptError("", ErrUnknownCommand, "%q", name)
	}

	cmd := i.lookupLocked(name)
	i.cache.AddOrUpdate(name, cmd, false)
	if cmd == nil {
		return nil, scriptError("", ErrUnknownCommand, "%q", name)
	}

	return cmd, nil
}

// lookupLocked is the full resolution path: the command table, then the
// unknown handler.
func (i *Interpreter) lookupLocked(name string) Command {
	if cmd, ok := i.commands[name]; ok {
		return cmd
	}

	if handler, ok := i.commands[UnknownCommand]; ok {
		return &unknownDispatch{handler: handler, name: name}
	}

	return nil
}

type unknownDispatch struct {
	handler Command
	name    string
}

func (u *unknownDispatch) Execute(inv *Invocation, args []Value) (Value, error) {
	return u.handler.Execute(inv, append([]Value{String(u.name)}, args...))
}

// Invoke dispatches a nested command on the same context.
func (inv *Invocation) Invoke(name string, args ...Value) (Value, error) {
	return inv.Interp.invoke(inv.Context, name, args)
}

// Frame returns the current call frame.
func (inv *Invocation) Frame() (*CallFrame, error) {
	return asCallFrame(inv.Context.CurrentFrame())
}

// GlobalFrame returns the frame "::" names resolve in.
func (inv *Invocation) GlobalFrame() (*CallFrame, error) {
	return asCallFrame(inv.Context.CurrentGlobalFrame())
}

func asCallFrame(f execctx.Frame) (*CallFrame, error) {
	cf, ok := f.(*CallFrame)
	if !ok || cf == nil {
		return nil, ErrNoFrame
	}

	return cf, nil
}

// varFrame picks the frame a variable name lives in and strips any "::"
// qualifier.
func (inv *Invocation) varFrame(name string) (*CallFrame, string, error) {
	if rest, ok := strings.CutPrefix(name, "::"); ok {
		f, err := inv.GlobalFrame()
		return f, rest, err
	}

	f, err := inv.Frame()
	return f, name, err
}

// SetVar writes a variable in the current frame, or the global frame for
// "::"-qualified names.
func (inv *Invocation) SetVar(name string, v Value) error {
	f, name, err := inv.varFrame(name)
	if err != nil {
		return err
	}

	f.Set(name, v)
	return nil
}

// GetVar reads a variable.
func (inv *Invocation) GetVar(name string) (Value, error) {
	f, local, err := inv.varFrame(name)
	if err != nil {
		return Value{}, err
	}

	v, ok := f.Get(local)
	if !ok {
		return Value{}, scriptError(inv.Name, ErrNoSuchVariable, "can't read %q", name)
	}

	return v, nil
}

// UnsetVar removes a variable.
func (inv *Invocation) UnsetVar(name string) error {
	f, local, err := inv.varFrame(name)
	if err != nil {
		return err
	}

	if !f.Unset(local) {
		return scriptError(inv.Name, ErrNoSuchVariable, "can't unset %q", name)
	}

	return nil
}

// UpdateVar applies fn to a variable atomically with respect to other threads
// sharing the frame.
func (inv *Invocation) UpdateVar(name string, fn func(old Value, ok bool) (Value, error)) (Value, error) {
	f, local, err := inv.varFrame(name)
	if err != nil {
		return Value{}, err
	}

	return f.Update(local, fn)
}

// Level returns the nesting depth of the current frame.
func (inv *Invocation) Level() (int, error) {
	f, err := inv.Frame()
	if err != nil {
		return 0, err
	}

	return f.Level, nil
}

// Uplevel runs fn with the current frame moved level frames up the stack,
// like Tcl's uplevel. Level 0 is the current frame.
func (inv *Invocation) Uplevel(level int, fn func(inv *Invocation) (Value, error)) (Value, error) {
	ctx := inv.Context

	current, err := inv.Frame()
	if err != nil {
		return Value{}, err
	}

	target := current.Level - level
	if level < 0 || target < 0 {
		return Value{}, scriptError(inv.Name, ErrBadLevel, "%d", level)
	}

	var frame execctx.Frame = ctx.CurrentGlobalFrame()
	if target > 0 {
		stack, ok := ctx.CallStack().(*CallStack)
		if !ok || stack.AtLevel(target) == nil {
			return Value{}, scriptError(inv.Name, ErrBadLevel, "%d", level)
		}
		frame = stack.AtLevel(target)
	}

	prevCurrent, prevUplevel := ctx.CurrentFrame(), ctx.UplevelFrame()
	ctx.SetCurrentFrame(frame)
	ctx.SetUplevelFrame(frame)
	defer func() {
		ctx.SetCurrentFrame(prevCurrent)
		ctx.SetUplevelFrame(prevUplevel)
	}()

	return fn(inv)
}

// InScope runs fn with scope standing in for the global frame, so "::" names
// and level-0 uplevels resolve in it.
func (inv *Invocation) InScope(scope *CallFrame, fn func(inv *Invocation) (Value, error)) (Value, error) {
	if scope == nil {
		return Value{}, ErrNoFrame
	}

	ctx := inv.Context
	prev := ctx.GlobalScopeFrame()
	ctx.SetGlobalScopeFrame(scope)
	defer ctx.SetGlobalScopeFrame(prev)

	return fn(inv)
}

// ProcBody is the Go implementation of a procedure.
type ProcBody func(inv *Invocation) (Value, error)

type procedure struct {
	name   string
	params []string
	body   ProcBody
}

// DefineProc defines a procedure: a command that runs body in a fresh call
// frame with params bound as local variables.
func (i *Interpreter) DefineProc(name string, params []string, body ProcBody) error {
	if body == nil {
		return ErrNilCommand
	}

	return i.Define(name, &procedure{name: name, params: append([]string(nil), params...), body: body})
}

func (p *procedure) Execute(inv *Invocation, args []Value) (Value, error) {
	if len(args) != len(p.params) {
		return Value{}, scriptError(inv.Name, ErrWrongArgs, "should be %q", strings.TrimSpace(inv.Name+" "+strings.Join(p.params, " ")))
	}

	ctx := inv.Context
	stack, ok := ctx.CallStack().(*CallStack)
	if !ok || stack == nil {
		return Value{}, ErrNoFrame
	}
	if stack.Len() >= inv.Interp.maxDepth {
		return Value{}, scriptError(inv.Name, ErrTooDeep, "limit %d", inv.Interp.maxDepth)
	}

	frame := NewCallFrame(p.name, FrameProcedure, stack.Len()+1)
	for n, param := range p.params {
		frame.Set(param, args[n])
	}

	prevCurrent, prevProcedure := ctx.CurrentFrame(), ctx.ProcedureFrame()
	stack.Push(frame)
	ctx.SetCurrentFrame(frame)
	ctx.SetProcedureFrame(frame)
	defer func() {
		stack.Pop()
		frame.Dispose()
		ctx.SetCurrentFrame(prevCurrent)
		ctx.SetProcedureFrame(prevProcedure)
	}()

	v, err := p.body(inv)
	var ret *returnSignal
	if errors.As(err, &ret) {
		return ret.value, nil
	}

	return v, err
}

// returnSignal carries a [return] value out of a procedure body.
type returnSignal struct {
	value Value
}

func (r *returnSignal) Error() string {
	return "return outside of a procedure"
}

// Return stops the enclosing procedure with v as its result.
func Return(v Value) error {
	return &returnSignal{value: v}
}
