// Package minidi is a small named-factory registry.
//
// A module is a constructor registered under a name together with the ordered
// names of the modules it depends on. GetInstance builds a module once and caches
// it, GetNewInstance always builds a fresh one. In both cases declared dependencies
// are resolved as singletons and passed to the constructor positionally.
//
//	r := minidi.New()
//	r.Register("db", newDB)
//	r.Register("users", newUsers, "db")
//	users, err := minidi.Get[*Users](r, "users")
//
// Dependency names are bound late: they only have to be registered by the time an
// instance is requested.
package minidi

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Constructor builds a module instance from positional arguments.
type Constructor func(args ...any) (any, error)

type registration struct {
	constructor  Constructor
	dependencies []string
	// source is what the caller handed in; used for diagnostics only.
	source any

	// guarded by Registry.mu
	instance    any
	hasInstance bool
}

// Registry maps module names to registrations. It is safe for concurrent use.
// Constructors run without any registry lock held, so they may call back into
// the registry for modules that are not currently being resolved.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*registration
	flight  singleflight.Group
	cfg     config
}

func New(opts ...Option) *Registry {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Registry{
		modules: map[string]*registration{},
		cfg:     cfg,
	}
}

// Register stores ctor under name, replacing any previous registration together
// with its cached instance.
func (r *Registry) Register(name string, ctor Constructor, dependencies ...string) {
	r.register(name, ctor, ctor, dependencies)
}

func (r *Registry) register(name string, ctor Constructor, source any, dependencies []string) {
	rec := &registration{
		constructor:  ctor,
		dependencies: slices.Clone(dependencies),
		source:       source,
	}

	r.mu.Lock()
	_, replaced := r.modules[name]
	r.modules[name] = rec
	r.mu.Unlock()

	r.cfg.logger.Debug().
		Str("module", name).
		Strs("deps", dependencies).
		Bool("replaced", replaced).
		Msg("module registered")
}

// GetConstructor returns the constructor registered under name.
func (r *Registry) GetConstructor(name string) (Constructor, error) {
	rec, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if rec.constructor == nil {
		return nil, &ConstructorMissingError{Name: name}
	}
	return rec.constructor, nil
}

// GetInstance returns the singleton instance of name, building it (and every
// dependency that is not built yet) on first use. Singletons built along the way
// are cached only when the whole resolution succeeds.
func (r *Registry) GetInstance(name string) (any, error) {
	rec, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if v, ok := r.cached(rec); ok {
		return v, nil
	}

	// The flight key includes the record address so a build started before a
	// Register or Reset is never joined by later callers.
	key := fmt.Sprintf("%s@%p", name, rec)
	v, err, _ := r.flight.Do(key, func() (any, error) {
		return r.resolve(name, func(res *resolution) (any, error) {
			return r.instance(name, res)
		})
	})
	if err != nil {
		r.cfg.logger.Warn().Err(err).Str("module", name).Msg("module resolution failed")
		return nil, err
	}
	return v, nil
}

// GetNewInstance builds a new, uncached instance of name.
//
// Without args every declared dependency is resolved through GetInstance and
// passed in declared order. With at least one arg the constructor receives exactly
// args and declared dependencies are ignored; use Construct to pass an explicit
// empty argument list.
func (r *Registry) GetNewInstance(name string, args ...any) (any, error) {
	if len(args) > 0 {
		return r.Construct(name, args)
	}

	v, err := r.resolve(name, func(res *resolution) (any, error) {
		rec, err := r.lookup(name)
		if err != nil {
			return nil, err
		}
		return r.build(name, rec, res)
	})
	if err != nil {
		r.cfg.logger.Warn().Err(err).Str("module", name).Msg("module resolution failed")
		return nil, err
	}
	return v, nil
}

// Construct calls the constructor of name with exactly args, skipping dependency
// resolution and the instance cache.
func (r *Registry) Construct(name string, args []any) (any, error) {
	ctor, err := r.GetConstructor(name)
	if err != nil {
		r.cfg.logger.Warn().Err(err).Str("module", name).Str("mode", "manual").Msg("module construction failed")
		return nil, err
	}

	r.cfg.logger.Debug().Str("module", name).Str("mode", "manual").Int("args", len(args)).Msg("constructing module")
	v, err := r.call(name, ctor, slices.Clone(args))
	if err != nil {
		r.cfg.logger.Warn().Err(err).Str("module", name).Str("mode", "manual").Msg("module construction failed")
		return nil, err
	}
	return v, nil
}

// Reset forgets every registration.
func (r *Registry) Reset() {
	r.mu.Lock()
	n := len(r.modules)
	r.modules = map[string]*registration{}
	r.mu.Unlock()

	r.cfg.logger.Debug().Int("modules", n).Msg("registry reset")
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[name]
	return ok
}

// Names returns the registered module names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dependencies returns the declared dependency names of name.
func (r *Registry) Dependencies(name string) ([]string, error) {
	rec, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(rec.dependencies), nil
}

func (r *Registry) lookup(name string) (*registration, error) {
	r.mu.RLock()
	rec, ok := r.modules[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &ModuleNotRegisteredError{Name: name}
	}
	return rec, nil
}

func (r *Registry) cached(rec *registration) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return rec.instance, rec.hasInstance
}

// resolution is the state of one automatic resolution: the names currently
// being built, innermost last, and the singletons built but not yet cached.
type resolution struct {
	chain   []string
	pending map[*registration]pendingInstance
}

type pendingInstance struct {
	name  string
	value any
}

// resolve runs build in a fresh resolution and caches its singletons. When a
// concurrent resolution cached one of the same modules first, the work is
// discarded and redone on top of the cached instances, so every dependent sees
// the instance that ends up in the cache.
func (r *Registry) resolve(name string, build func(res *resolution) (any, error)) (any, error) {
	for {
		res := &resolution{pending: map[*registration]pendingInstance{}}
		v, err := build(res)
		if err != nil {
			return nil, err
		}
		if r.commit(res) {
			return v, nil
		}
		r.cfg.logger.Debug().Str("module", name).Msg("resolution lost a race, retrying")
	}
}

func (r *Registry) commit(res *resolution) bool {
	r.mu.Lock()
	for rec := range res.pending {
		if rec.hasInstance {
			r.mu.Unlock()
			return false
		}
	}
	for rec, p := range res.pending {
		rec.instance = p.value
		rec.hasInstance = true
	}
	r.mu.Unlock()

	for _, p := range res.pending {
		r.cfg.logger.Debug().Str("module", p.name).Msg("singleton instance created")
	}
	return true
}

// instance is the recursive singleton path.
func (r *Registry) instance(name string, res *resolution) (any, error) {
	rec, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if v, ok := r.cached(rec); ok {
		return v, nil
	}
	if p, ok := res.pending[rec]; ok {
		return p.value, nil
	}

	v, err := r.build(name, rec, res)
	if err != nil {
		return nil, err
	}
	res.pending[rec] = pendingInstance{name: name, value: v}
	return v, nil
}

func (r *Registry) build(name string, rec *registration, res *resolution) (any, error) {
	if i := slices.Index(res.chain, name); i >= 0 {
		return nil, &CircularDependencyError{Path: append(slices.Clone(res.chain[i:]), name)}
	}
	if rec.constructor == nil {
		return nil, &ConstructorMissingError{Name: name}
	}

	res.chain = append(res.chain, name)
	defer func() { res.chain = res.chain[:len(res.chain)-1] }()

	args, err := r.resolveDependencies(name, rec, res)
	if err != nil {
		return nil, err
	}

	r.cfg.logger.Debug().Str("module", name).Str("mode", "auto").Strs("deps", rec.dependencies).Msg("constructing module")
	return r.call(name, rec.constructor, args)
}

func (r *Registry) resolveDependencies(name string, rec *registration, res *resolution) ([]any, error) {
	args := make([]any, 0, len(rec.dependencies))
	for _, dep := range rec.dependencies {
		v, err := r.instance(dep, res)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", name, err)
		}
		args = append(args, v)
	}
	return args, nil
}

func (r *Registry) call(name string, ctor Constructor, args []any) (v any, err error) {
	if r.cfg.recoverFromPanics {
		defer func() {
			if rec := recover(); rec != nil {
				v = nil
				err = &ConstructionError{Name: name, Err: fmt.Errorf("%w: %v", ErrConstructorPanic, rec)}
			}
		}()
	}

	v, err = ctor(args...)
	if err != nil {
		return nil, &ConstructionError{Name: name, Err: err}
	}
	return v, nil
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// findCycle runs a depth-first walk from start and returns the first cycle found,
// closed on both ends. Missing modules are skipped.
func findCycle(modules map[string]*registration, start string, state map[string]visitState) []string {
	var path []string

	var visit func(name string) []string
	visit = func(name string) []string {
		rec, ok := modules[name]
		if !ok {
			return nil
		}

		switch state[name] {
		case visiting:
			i := slices.Index(path, name)
			return append(slices.Clone(path[i:]), name)
		case visited:
			return nil
		case unvisited:
		}

		state[name] = visiting
		path = append(path, name)
		for _, dep := range rec.dependencies {
			if cycle := visit(dep); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		state[name] = visited
		return nil
	}

	return visit(start)
}
