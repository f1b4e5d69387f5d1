package interpreter

import (
	"io"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"interpcore/pkg/cache"
	"interpcore/pkg/thread"
)

// UnknownCommand names the handler consulted when a command is not defined.
// Changing it invalidates the whole command cache, since every cached miss
// may now resolve.
const UnknownCommand = "unknown"

const defaultMaxDepth = 1000

// Command is anything the interpreter can dispatch to.
type Command interface {
	Execute(inv *Invocation, args []Value) (Value, error)
}

// CommandFunc adapts a function to Command
type CommandFunc func(inv *Invocation, args []Value) (Value, error)

func (f CommandFunc) Execute(inv *Invocation, args []Value) (Value, error) {
	return f(inv, args)
}

// Interpreter owns a command table, its resolution cache, the shared global
// frame, and one execution context per thread that evaluates against it.
type Interpreter struct {
	id uuid.UUID

	// mu is the command table lock. Every cache access happens under it.
	mu       sync.Mutex
	commands map[string]Command
	cache    *cache.Cache

	global   *CallFrame
	contexts *contextManager
	guard    thread.Guard

	out      io.Writer
	logger   *log.Logger
	maxDepth int
	stats    bool

	disposed atomic.Bool
}

type Option func(*Interpreter)

// WithWriter sets the output writer for puts
func WithWriter(w io.Writer) Option {
	return func(i *Interpreter) { i.out = w }
}

// WithLogger sets the logger the interpreter derives its component logger from
func WithLogger(l *log.Logger) Option {
	return func(i *Interpreter) { i.logger = l }
}

// WithStatistics enables command cache counters
func WithStatistics() Option {
	return func(i *Interpreter) { i.stats = true }
}

// WithThreadGuard replaces the thread id source used for context affinity
func WithThreadGuard(g thread.Guard) Option {
	return func(i *Interpreter) { i.guard = g }
}

// WithMaxDepth limits procedure nesting
func WithMaxDepth(n int) Option {
	return func(i *Interpreter) { i.maxDepth = n }
}

// New creates an Interpreter with the builtin commands defined
func New(opts ...Option) *Interpreter {
	it := &Interpreter{
		id:       uuid.New(),
		commands: make(map[string]Command),
		global:   NewCallFrame("::", FrameGlobal, 0),
		guard:    thread.NewGuard(nil),
		maxDepth: defaultMaxDepth,
	}

	for _, o := range opts {
		o(it)
	}

	if it.out == nil {
		it.out = os.Stdout
	}

	if it.logger == nil {
		it.logger = log.Default()
	}
	it.logger = it.logger.With("component", "interpreter", "id", it.id.String()[:8])

	var cacheOpts []cache.Option
	if it.stats {
		cacheOpts = append(cacheOpts, cache.WithStatistics())
	}
	it.cache = cache.New(cacheOpts...)
	it.contexts = newContextManager(it)

	registerBuiltins(it)
	it.logger.Debug("interpreter created", "commands", len(it.commands))

	return it
}

// ID identifies the interpreter.
func (i *Interpreter) ID() uuid.UUID {
	return i.id
}

// Output returns the writer used by puts
func (i *Interpreter) Output() io.Writer {
	return i.out
}

// GlobalFrame returns the frame shared by every context.
func (i *Interpreter) GlobalFrame() *CallFrame {
	return i.global
}

// Define adds or replaces a command.
func (i *Interpreter) Define(name string, cmd Command) error {
	if cmd == nil {
		return ErrNilCommand
	}
	if i.disposed.Load() {
		return ErrDisposed
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	_, replaced := i.commands[name]
	i.commands[name] = cmd
	i.cache.AddOrUpdate(name, cmd, name == UnknownCommand)

	i.logger.Debug("command defined", "name", name, "replaced", replaced)
	return nil
}

// DefineFunc is Define for a plain function.
func (i *Interpreter) DefineFunc(name string, fn func(inv *Invocation, args []Value) (Value, error)) error {
	return i.Define(name, CommandFunc(fn))
}

// Delete removes a command.
func (i *Interpreter) Delete(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.deleteLocked(name)
}

func (i *Interpreter) deleteLocked(name string) error {
	if _, ok := i.commands[name]; !ok {
		return scriptError("rename", ErrUnknownCommand, "can't delete %q: command doesn't exist", name)
	}

	delete(i.commands, name)
	i.cache.Remove(name, name == UnknownCommand)

	i.logger.Debug("command deleted", "name", name)
	return nil
}

// Rename moves a command to a new name; an empty new name deletes it.
func (i *Interpreter) Rename(oldName, newName string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if newName == "" {
		return i.deleteLocked(oldName)
	}

	cmd, ok := i.commands[oldName]
	if !ok {
		return scriptError("rename", ErrUnknownCommand, "can't rename %q: command doesn't exist", oldName)
	}
	if _, exists := i.commands[newName]; exists {
		return scriptError("rename", ErrCommandExists, "can't rename to %q", newName)
	}

	delete(i.commands, oldName)
	i.commands[newName] = cmd
	i.cache.Rename(oldName, newName, cmd, oldName == UnknownCommand || newName == UnknownCommand)

	i.logger.Debug("command renamed", "from", oldName, "to", newName)
	return nil
}

// SetUnknown installs the handler for undefined commands. It receives the
// missing command name as its first argument.
func (i *Interpreter) SetUnknown(cmd Command) error {
	return i.Define(UnknownCommand, cmd)
}

// Commands returns the sorted command names.
func (i *Interpreter) Commands() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	names := make([]string, 0, len(i.commands))
	for name := range i.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CacheReport renders the command cache size and counters.
func (i *Interpreter) CacheReport(empty bool) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.cache.Report(empty)
}

// HaveCacheCounts reports whether the cache holds entries or has counted
// any event.
func (i *Interpreter) HaveCacheCounts() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.cache.HaveCounts()
}

// CacheStatistics returns the cache counters, or nil when disabled.
func (i *Interpreter) CacheStatistics() *cache.Statistics {
	return i.cache.Statistics()
}

// CacheCount returns the number of cached command names.
func (i *Interpreter) CacheCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.cache.Count()
}

// ClearCache drops every cached resolution.
func (i *Interpreter) ClearCache() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.cache.Clear()
}

// Dispose tears down every context with global set, then the command table.
// Evaluation on all threads must have stopped.
func (i *Interpreter) Dispose() {
	if i.disposed.Swap(true) {
		return
	}

	purged := i.contexts.purge(true)
	i.global.Dispose()

	i.mu.Lock()
	i.cache.Clear()
	clear(i.commands)
	i.mu.Unlock()

	i.logger.Info("interpreter disposed", "contexts", purged)
}

// Disposed reports whether Dispose has run.
func (i *Interpreter) Disposed() bool {
	return i.disposed.Load()
}
