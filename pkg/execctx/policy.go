package execctx

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// Policy decides what accessors of a disposed Context do.
type Policy int32

const (
	// Strict accessors panic with a *DisposedError.
	Strict Policy = iota
	// Permissive accessors return whatever the slot still holds, usually nil.
	Permissive
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Permissive:
		return "permissive"
	default:
		return fmt.Sprintf("policy(%d)", int32(p))
	}
}

// ParsePolicy parses "strict" or "permissive".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "":
		return Strict, nil
	case "permissive":
		return Permissive, nil
	default:
		return Strict, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

var (
	policy       atomic.Int32
	policyFrozen atomic.Bool
)

// SetPolicy fixes the process-wide disposed policy. It must run before the
// first Context is created; afterwards only a call naming the policy already
// in force succeeds.
func SetPolicy(p Policy) error {
	if p != Strict && p != Permissive {
		return fmt.Errorf("%w: %v", ErrUnknownPolicy, p)
	}

	if policyFrozen.Load() {
		if CurrentPolicy() != p {
			return fmt.Errorf("%w: already %v", ErrPolicyFrozen, CurrentPolicy())
		}
		return nil
	}

	policy.Store(int32(p))
	return nil
}

// CurrentPolicy returns the process-wide disposed policy.
func CurrentPolicy() Policy {
	return Policy(policy.Load())
}

func freezePolicy() {
	policyFrozen.Store(true)
}

var (
	ErrDisposed      = errors.New("use of disposed execution context")
	ErrPolicyFrozen  = errors.New("disposed policy cannot change once contexts exist")
	ErrUnknownPolicy = errors.New("unknown disposed policy")
)

// DisposedError is the panic value raised by accessors of a disposed Context
// under the Strict policy.
type DisposedError struct {
	Op string
}

func (e *DisposedError) Error() string {
	return ErrDisposed.Error() + ": " + e.Op
}

// Is makes errors.Is(err, ErrDisposed) match.
func (e *DisposedError) Is(target error) bool {
	return target == ErrDisposed
}
