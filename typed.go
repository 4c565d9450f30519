package minidi

import (
	"fmt"
	"reflect"
)

// Factory is a constructor with a concrete result type.
type Factory[T any] func(args ...any) (T, error)

// Typed adapts f to a Constructor. A nil factory yields a nil Constructor.
func Typed[T any](f Factory[T]) Constructor {
	if f == nil {
		return nil
	}
	return func(args ...any) (any, error) {
		v, err := f(args...)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Value returns a Constructor that ignores its arguments and always yields v.
func Value(v any) Constructor {
	return func(...any) (any, error) { return v, nil }
}

// Get returns the singleton instance of name as a T.
func Get[T any](r *Registry, name string) (T, error) {
	v, err := r.GetInstance(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](name, v)
}

// GetNew builds a new instance of name and returns it as a T. args behave as in
// GetNewInstance.
func GetNew[T any](r *Registry, name string, args ...any) (T, error) {
	v, err := r.GetNewInstance(name, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](name, v)
}

// MustGet is like Get but panics on error.
func MustGet[T any](r *Registry, name string) T {
	v, err := Get[T](r, name)
	if err != nil {
		panic(err)
	}
	return v
}

func as[T any](name string, v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}

	var zero T
	want := reflect.TypeFor[T]()
	if v == nil && nilable(want) {
		return zero, nil
	}
	return zero, &WrongTypeError{Name: name, Want: want.String(), Got: fmt.Sprintf("%T", v)}
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	default:
		return false
	}
}
