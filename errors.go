package minidi

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrModuleNotRegistered is matched by every ModuleNotRegisteredError.
	ErrModuleNotRegistered = errors.New("module is not registered")

	// ErrConstructorMissing is matched by every ConstructorMissingError.
	ErrConstructorMissing = errors.New("constructor is not registered")

	// ErrCircularDependency is matched by every CircularDependencyError.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrWrongType is returned by the typed getters when an instance is not a T.
	ErrWrongType = errors.New("instance has wrong type")

	// ErrArgument is matched by ArgumentError and ArityError.
	ErrArgument = errors.New("invalid constructor argument")

	// ErrConstructorPanic wraps a recovered constructor panic (see WithRecoverFromPanics).
	ErrConstructorPanic = errors.New("constructor panicked")
)

// ModuleNotRegisteredError reports a lookup of a name with no registration.
type ModuleNotRegisteredError struct {
	Name string
}

func (e *ModuleNotRegisteredError) Error() string {
	return "module[" + e.Name + "] is not registered"
}

func (e *ModuleNotRegisteredError) Is(target error) bool {
	return target == ErrModuleNotRegistered
}

// ConstructorMissingError reports a registration that holds a nil constructor.
type ConstructorMissingError struct {
	Name string
}

func (e *ConstructorMissingError) Error() string {
	return "constructor for module[" + e.Name + "] is not registered"
}

func (e *ConstructorMissingError) Is(target error) bool {
	return target == ErrConstructorMissing
}

// ConstructionError wraps an error returned (or a panic raised) by a constructor.
type ConstructionError struct {
	Name string
	Err  error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct module[%s]: %v", e.Name, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// CircularDependencyError carries the dependency path that loops back on itself.
// The first and last elements of Path are the same module.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency: " + strings.Join(e.Path, " -> ")
}

func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// WrongTypeError is returned by Get and GetNew when the instance does not hold the requested type.
type WrongTypeError struct {
	Name string
	Want string
	Got  string
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("module[%s]: instance has type %s, want %s", e.Name, e.Got, e.Want)
}

func (e *WrongTypeError) Is(target error) bool {
	return target == ErrWrongType
}

// ArgumentError reports a positional argument that cannot be passed to a Func constructor.
type ArgumentError struct {
	Index int
	Want  string
	Got   string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %d: cannot use %s as %s", e.Index, e.Got, e.Want)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrArgument
}

// ArityError reports a wrong number of arguments for a Func constructor.
type ArityError struct {
	Want     int
	Got      int
	Variadic bool
}

func (e *ArityError) Error() string {
	if e.Variadic {
		return fmt.Sprintf("expected at least %d arguments, got %d", e.Want, e.Got)
	}
	return fmt.Sprintf("expected %d arguments, got %d", e.Want, e.Got)
}

func (e *ArityError) Is(target error) bool {
	return target == ErrArgument
}
