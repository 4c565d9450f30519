package minidi_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assurrussa/minidi"
)

func TestRegisterFuncResolvesTypedParameters(t *testing.T) {
	t.Parallel()

	r := minidi.New()
	require.NoError(t, r.RegisterFunc("storage", func() *storage { return &storage{DSN: "mem://"} }))
	require.NoError(t, r.RegisterFunc("name", func() string { return "repo" }))
	require.NoError(t, r.RegisterFunc("repository", func(s *storage, name string) (*repository, error) {
		if name != "repo" {
			return nil, fmt.Errorf("unexpected name %q", name)
		}
		return &repository{Store: s}, nil
	}, "storage", "name"))

	repo, err := minidi.Get[*repository](r, "repository")
	require.NoError(t, err)
	assert.Equal(t, "mem://", repo.Store.DSN)
}

func TestRegisterFuncReturnsConstructorError(t *testing.T) {
	t.Parallel()

	errClosed := errors.New("closed")
	r := minidi.New()
	require.NoError(t, r.RegisterFunc("storage", func() (*storage, error) { return nil, errClosed }))

	_, err := r.GetInstance("storage")
	require.ErrorIs(t, err, errClosed)
}

func TestRegisterFuncRejectsInvalidConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   any
		want string
	}{
		{name: "not a function", fn: "ctor", want: "constructor must be a function, got string"},
		{name: "nil", fn: nil, want: "constructor must be a function, got <nil>"},
		{name: "no result", fn: func() {}, want: "returns ()"},
		{name: "only error", fn: func() error { return nil }, want: "returns (error)"},
		{name: "error first", fn: func() (error, error) { return nil, nil }, want: "returns (error, error)"},
		{name: "second not error", fn: func() (string, string) { return "", "" }, want: "returns (string, string)"},
		{name: "too many results", fn: func() (string, int, error) { return "", 0, nil }, want: "returns (string, int, error)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := minidi.New()
			err := r.RegisterFunc("bad", tc.fn)
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "module bad: "), err.Error())
			assert.Contains(t, err.Error(), tc.want)
			assert.False(t, r.Has("bad"))
		})
	}
}

func TestFuncArityMismatch(t *testing.T) {
	t.Parallel()

	ctor, err := minidi.Func(func(a, b string) string { return a + b })
	require.NoError(t, err)

	_, err = ctor("only")
	require.ErrorIs(t, err, minidi.ErrArgument)

	var arity *minidi.ArityError
	require.ErrorAs(t, err, &arity)
	assert.Equal(t, 2, arity.Want)
	assert.Equal(t, 1, arity.Got)
	assert.EqualError(t, err, "expected 2 arguments, got 1")
}

func TestFuncArgumentTypeMismatch(t *testing.T) {
	t.Parallel()

	ctor, err := minidi.Func(func(s *storage, n int) *repository { return &repository{Store: s} })
	require.NoError(t, err)

	_, err = ctor(&storage{}, "seven")
	require.ErrorIs(t, err, minidi.ErrArgument)

	var argErr *minidi.ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 1, argErr.Index)
	assert.Equal(t, "int", argErr.Want)
	assert.Equal(t, "string", argErr.Got)
}

func TestFuncAcceptsNilForNilableParameters(t *testing.T) {
	t.Parallel()

	ctor, err := minidi.Func(func(s *storage) *repository { return &repository{Store: s} })
	require.NoError(t, err)

	v, err := ctor(nil)
	require.NoError(t, err)
	assert.Nil(t, v.(*repository).Store)

	intCtor, err := minidi.Func(func(n int) int { return n })
	require.NoError(t, err)
	_, err = intCtor(nil)
	require.ErrorIs(t, err, minidi.ErrArgument)
}

func TestFuncVariadic(t *testing.T) {
	t.Parallel()

	ctor, err := minidi.Func(func(prefix string, parts ...string) string {
		return prefix + strings.Join(parts, ",")
	})
	require.NoError(t, err)

	v, err := ctor("fruits:", "Alma", "Korte")
	require.NoError(t, err)
	assert.Equal(t, "fruits:Alma,Korte", v)

	v, err = ctor("none:")
	require.NoError(t, err)
	assert.Equal(t, "none:", v)

	_, err = ctor()
	var arity *minidi.ArityError
	require.ErrorAs(t, err, &arity)
	assert.True(t, arity.Variadic)
	assert.EqualError(t, err, "expected at least 1 arguments, got 0")

	_, err = ctor("fruits:", "Alma", 3)
	var argErr *minidi.ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 2, argErr.Index)
}

func TestRegisterFuncWithManualArguments(t *testing.T) {
	t.Parallel()

	r := minidi.New()
	require.NoError(t, r.RegisterFunc("repository", func(s *storage) *repository {
		return &repository{Store: s}
	}, "storage"))

	stub := &storage{DSN: "stub://"}
	repo, err := minidi.GetNew[*repository](r, "repository", stub)
	require.NoError(t, err)
	assert.Same(t, stub, repo.Store)

	_, err = r.GetNewInstance("repository", "not a storage")
	require.ErrorIs(t, err, minidi.ErrArgument)

	var construction *minidi.ConstructionError
	require.ErrorAs(t, err, &construction)
	assert.Equal(t, "repository", construction.Name)
}
