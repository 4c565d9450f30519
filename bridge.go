package minidi

import (
	"fmt"
	"reflect"

	"go.uber.org/dig"
)

// DigScope is the part of *dig.Container and *dig.Scope the bridge needs.
type DigScope interface {
	Provide(constructor any, opts ...dig.ProvideOption) error
	Invoke(function any, opts ...dig.InvokeOption) error
}

// Provide exposes the singleton of name to a dig container as a T under
// dig.Name(name). The registry is only asked for the instance the first time dig
// needs it.
//
//	minidi.Provide[*Users](r, cnt, "users")
//	cnt.Invoke(func(in struct {
//		dig.In
//		Users *Users `name:"users"`
//	}) { ... })
func Provide[T any](r *Registry, scope DigScope, name string, opts ...dig.ProvideOption) error {
	if !r.Has(name) {
		return &ModuleNotRegisteredError{Name: name}
	}

	options := append([]dig.ProvideOption{dig.Name(name)}, opts...)
	if err := scope.Provide(func() (T, error) { return Get[T](r, name) }, options...); err != nil {
		return fmt.Errorf("provide module[%s] to dig: %w", name, err)
	}
	return nil
}

// ProvideUnnamed is like Provide but registers the value by type only.
func ProvideUnnamed[T any](r *Registry, scope DigScope, name string, opts ...dig.ProvideOption) error {
	if !r.Has(name) {
		return &ModuleNotRegisteredError{Name: name}
	}

	if err := scope.Provide(func() (T, error) { return Get[T](r, name) }, opts...); err != nil {
		return fmt.Errorf("provide module[%s] to dig: %w", name, err)
	}
	return nil
}

// Import registers name as a module whose constructor resolves a T from the dig
// scope. dig caches the value itself, so both GetInstance and GetNewInstance
// return what dig provides; manual arguments are ignored.
func Import[T any](r *Registry, scope DigScope, name string) {
	r.register(name, Typed[T](func(...any) (T, error) {
		var out T
		err := scope.Invoke(func(v T) { out = v })
		if err != nil {
			return out, fmt.Errorf("invoke %s from dig: %w", reflect.TypeFor[T](), err)
		}
		return out, nil
	}), scope, nil)
}
