package interpreter

import (
	"fmt"
	"strings"
)

func registerBuiltins(i *Interpreter) {
	builtins := map[string]CommandFunc{
		"set":    cmdSet,
		"unset":  cmdUnset,
		"incr":   cmdIncr,
		"append": cmdAppend,
		"puts":   cmdPuts,
		"rename": cmdRename,
		"return": cmdReturn,
		"info":   cmdInfo,
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	for name, fn := range builtins {
		i.commands[name] = fn
	}
}

func wrongArgs(inv *Invocation, usage string) error {
	return scriptError(inv.Name, ErrWrongArgs, "should be %q", strings.TrimSpace(inv.Name+" "+usage))
}

// set varName ?value?
func cmdSet(inv *Invocation, args []Value) (Value, error) {
	switch len(args) {
	case 1:
		return inv.GetVar(args[0].String())
	case 2:
		if err := inv.SetVar(args[0].String(), args[1]); err != nil {
			return Value{}, err
		}
		return args[1], nil
	default:
		return Value{}, wrongArgs(inv, "varName ?newValue?")
	}
}

// unset varName ?varName ...?
func cmdUnset(inv *Invocation, args []Value) (Value, error) {
	for _, arg := range args {
		if err := inv.UnsetVar(arg.String()); err != nil {
			return Value{}, err
		}
	}

	return Value{}, nil
}

// incr varName ?increment?
func cmdIncr(inv *Invocation, args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return Value{}, wrongArgs(inv, "varName ?increment?")
	}

	step := int64(1)
	if len(args) == 2 {
		n, err := args[1].AsInt64()
		if err != nil {
			return Value{}, scriptError(inv.Name, ErrWrongArgs, "%v", err)
		}
		step = n
	}

	return inv.UpdateVar(args[0].String(), func(old Value, ok bool) (Value, error) {
		if !ok {
			return Int(step), nil
		}

		n, err := old.AsInt64()
		if err != nil {
			return Value{}, scriptError(inv.Name, ErrWrongArgs, "%v", err)
		}
		return Int(n + step), nil
	})
}

// append varName ?value ...?
func cmdAppend(inv *Invocation, args []Value) (Value, error) {
	if len(args) < 1 {
		return Value{}, wrongArgs(inv, "varName ?value ...?")
	}

	return inv.UpdateVar(args[0].String(), func(old Value, ok bool) (Value, error) {
		var b strings.Builder
		if ok {
			b.WriteString(old.String())
		}
		for _, arg := range args[1:] {
			b.WriteString(arg.String())
		}
		return String(b.String()), nil
	})
}

// puts string
func cmdPuts(inv *Invocation, args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, wrongArgs(inv, "string")
	}

	if _, err := fmt.Fprintln(inv.Interp.out, args[0].String()); err != nil {
		return Value{}, scriptError(inv.Name, err, "")
	}

	return Value{}, nil
}

// rename oldName newName
func cmdRename(inv *Invocation, args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, wrongArgs(inv, "oldName newName")
	}

	return Value{}, inv.Interp.Rename(args[0].String(), args[1].String())
}

// return ?value?
func cmdReturn(inv *Invocation, args []Value) (Value, error) {
	switch len(args) {
	case 0:
		return Value{}, Return(Value{})
	case 1:
		return Value{}, Return(args[0])
	default:
		return Value{}, wrongArgs(inv, "?value?")
	}
}

// info commands | exists varName | level | cachecount | cached name
func cmdInfo(inv *Invocation, args []Value) (Value, error) {
	if len(args) < 1 {
		return Value{}, wrongArgs(inv, "subcommand ?arg ...?")
	}

	sub, rest := args[0].String(), args[1:]
	switch sub {
	case "commands":
		return String(strings.Join(inv.Interp.Commands(), " ")), nil

	case "exists":
		if len(rest) != 1 {
			return Value{}, wrongArgs(inv, "exists varName")
		}
		_, err := inv.GetVar(rest[0].String())
		return Bool(err == nil), nil

	case "level":
		level, err := inv.Level()
		if err != nil {
			return Value{}, err
		}
		return Int(int64(level)), nil

	case "cachecount":
		return Int(int64(inv.Interp.CacheCount())), nil

	case "cached":
		if len(rest) != 1 {
			return Value{}, wrongArgs(inv, "cached name")
		}
		return Bool(inv.Interp.isCached(rest[0].String())), nil

	default:
		return Value{}, scriptError(inv.Name, ErrWrongArgs, "unknown subcommand %q", sub)
	}
}

// isCached reports whether name has a usable cached resolution.
func (i *Interpreter) isCached(name string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	_, ok := i.cache.TryGet(name, true)
	return ok
}
