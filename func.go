package minidi

import (
	"fmt"
	"reflect"
	"strings"
)

// Func adapts an ordinary Go function into a Constructor. fn must return a value
// or (value, error). Positional arguments are checked for assignability to the
// parameter types; nil is accepted for nilable parameters.
//
//	ctor, err := minidi.Func(func(db *DB, log *Logger) *Users { ... })
func Func(fn any) (Constructor, error) {
	if err := validateConstructor(fn); err != nil {
		return nil, err
	}

	fv := reflect.ValueOf(fn)
	ft := fv.Type()

	return func(args ...any) (any, error) {
		in, err := buildArgs(ft, args)
		if err != nil {
			return nil, err
		}

		out := fv.Call(in)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error) //nolint:forcetypeassert // checked by validateConstructor
		}
		return out[0].Interface(), nil
	}, nil
}

// RegisterFunc registers fn, adapted with Func, under name.
func (r *Registry) RegisterFunc(name string, fn any, dependencies ...string) error {
	ctor, err := Func(fn)
	if err != nil {
		return fmt.Errorf("module %s: %w", name, err)
	}

	r.register(name, ctor, fn, dependencies)
	return nil
}

func validateConstructor(constructor any) error {
	funcType := reflect.TypeOf(constructor)
	if funcType == nil || funcType.Kind() != reflect.Func {
		return fmt.Errorf("constructor must be a function, got %T", constructor)
	}

	outTypes := make([]reflect.Type, 0, funcType.NumOut())
	for i := range funcType.NumOut() {
		outTypes = append(outTypes, funcType.Out(i))
	}

	// Allowed:
	// 1) func(...) T
	// 2) func(...) (T, error)
	isOutInvalid := len(outTypes) < 1 ||
		len(outTypes) > 2 ||
		len(outTypes) == 1 && outTypes[0].AssignableTo(reflect.TypeFor[error]()) ||
		len(outTypes) == 2 && outTypes[0].AssignableTo(reflect.TypeFor[error]()) ||
		len(outTypes) == 2 && outTypes[1] != reflect.TypeFor[error]()

	if isOutInvalid {
		formattedOutTypes := make([]string, 0, len(outTypes))
		for _, o := range outTypes {
			formattedOutTypes = append(formattedOutTypes, o.String())
		}
		return fmt.Errorf("constructor must return value or (value, error), returns (%s)", strings.Join(formattedOutTypes, ", "))
	}

	return nil
}

func buildArgs(ft reflect.Type, args []any) ([]reflect.Value, error) {
	n := ft.NumIn()
	variadic := ft.IsVariadic()

	switch {
	case variadic && len(args) < n-1:
		return nil, &ArityError{Want: n - 1, Got: len(args), Variadic: true}
	case !variadic && len(args) != n:
		return nil, &ArityError{Want: n, Got: len(args)}
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		want := paramType(ft, i)
		v, ok := argValue(arg, want)
		if !ok {
			return nil, &ArgumentError{Index: i, Want: want.String(), Got: fmt.Sprintf("%T", arg)}
		}
		in[i] = v
	}
	return in, nil
}

func paramType(ft reflect.Type, i int) reflect.Type {
	last := ft.NumIn() - 1
	if ft.IsVariadic() && i >= last {
		return ft.In(last).Elem()
	}
	return ft.In(i)
}

func argValue(arg any, want reflect.Type) (reflect.Value, bool) {
	if arg == nil {
		if nilable(want) {
			return reflect.Zero(want), true
		}
		return reflect.Value{}, false
	}

	v := reflect.ValueOf(arg)
	if !v.Type().AssignableTo(want) {
		return reflect.Value{}, false
	}
	return v, true
}
