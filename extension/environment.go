// Package extension implements the halcyon service-provider loader: an
// Environment holding the loader registry and class catalog, and a Loader
// per extension point offering named lookup, adaptive dispatch and
// rule-based activation.
package extension

import (
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/halcyon-dev/halcyon/errors"
	"github.com/halcyon-dev/halcyon/metric"
)

// Framework is the directory segment under META-INF that namespaces this
// loader's resource files.
const Framework = "halcyon"

// splitNames tokenizes alias lists and default names on commas, trimming
// surrounding whitespace and dropping empty tokens.
func splitNames(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' })
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// point describes a registered extension point.
type point struct {
	// typ is the loader-registry key: the interface type itself, or the
	// pointer type for struct-of-funcs points.
	typ reflect.Type

	// name is the fully-qualified resource name, e.g.
	// "github.com/halcyon-dev/halcyon/demo.Robot".
	name string

	// simple is the bare type name, used for name inference and derived
	// adaptive keys.
	simple string

	defaultName string
	funcStruct  bool
}

// Environment owns all process state of the loader: the per-interface
// loader registry, the class catalog, the shared raw-instance table and the
// resource scan roots. Hosts normally construct one Environment at startup;
// the package-level Default environment serves the common single-tenant
// case.
type Environment struct {
	id      string
	logger  *slog.Logger
	metrics *metric.Metrics

	mu      sync.RWMutex
	roots   []fs.FS
	points  map[reflect.Type]*point
	catalog map[string]*Class

	loaders   sync.Map // reflect.Type -> *Loader
	instances sync.Map // *Class -> any
}

// Option configures an Environment at construction time.
type Option func(*Environment)

// WithRoots appends resource scan roots. Roots are consulted in order; the
// built-in root carrying the internal factory bindings is always first.
func WithRoots(roots ...fs.FS) Option {
	return func(e *Environment) { e.roots = append(e.roots, roots...) }
}

// WithLogger sets the environment logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Environment) { e.logger = logger }
}

// WithMetrics attaches loader metrics. Without it the environment runs
// uninstrumented.
func WithMetrics(m *metric.Metrics) Option {
	return func(e *Environment) { e.metrics = m }
}

// NewEnvironment constructs an Environment with the built-in factory
// extensions registered and their internal resource bindings mounted.
func NewEnvironment(opts ...Option) *Environment {
	e := &Environment{
		id:      uuid.NewString(),
		points:  make(map[reflect.Type]*point),
		catalog: make(map[string]*Class),
		roots:   []fs.FS{builtinResources()},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("environment", e.id)
	e.registerBuiltins()
	return e
}

var defaultEnv = sync.OnceValue(func() *Environment {
	return NewEnvironment()
})

// Default returns the process-wide default Environment, created on first
// use.
func Default() *Environment {
	return defaultEnv()
}

// ID returns the environment's unique identifier, attached to every log
// record of the environment's logger.
func (e *Environment) ID() string { return e.id }

// AddRoot appends a resource scan root. Roots added after a point's
// resources have been scanned are not seen by that point; mount roots
// before requesting extensions.
func (e *Environment) AddRoot(root fs.FS) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roots = append(e.roots, root)
}

func (e *Environment) scanRoots() []fs.FS {
	e.mu.RLock()
	defer e.mu.RUnlock()
	roots := make([]fs.FS, len(e.roots))
	copy(roots, e.roots)
	return roots
}

// PointOption configures an extension point at registration time.
type PointOption func(*point)

// WithDefault declares the point's default extension name, resolved by
// Get("true") and used as the innermost fallback of adaptive name
// resolution. It must be a single token.
func WithDefault(name string) PointOption {
	return func(p *point) { p.defaultName = name }
}

// RegisterPoint declares an extension point. The prototype is a nil pointer
// to the point type: (*Robot)(nil) for an interface point, or
// (*Protocol)(nil) for a struct-of-funcs point whose exported func fields
// are the dispatchable methods.
func (e *Environment) RegisterPoint(prototype any, opts ...PointOption) error {
	p, err := newPoint(prototype, opts...)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.points[p.typ]; ok {
		if existing.defaultName == p.defaultName {
			return nil
		}
		return errors.WrapConfig(
			fmt.Errorf("extension point %s already registered with default %q", p.name, existing.defaultName),
			"Environment", "RegisterPoint", "duplicate point check")
	}
	e.points[p.typ] = p
	return nil
}

func newPoint(prototype any, opts ...PointOption) (*point, error) {
	if prototype == nil {
		return nil, errors.WrapInvalid(errors.ErrNilPrototype, "Environment", "RegisterPoint", "prototype validation")
	}
	t := reflect.TypeOf(prototype)
	if t.Kind() != reflect.Pointer {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: prototype must be a nil pointer to the point type, got %s", errors.ErrInvalidPoint, t),
			"Environment", "RegisterPoint", "prototype validation")
	}
	elem := t.Elem()
	if elem.PkgPath() == "" || elem.Name() == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s is not a named type", errors.ErrInvalidPoint, elem),
			"Environment", "RegisterPoint", "prototype validation")
	}

	p := &point{
		name:   elem.PkgPath() + "." + elem.Name(),
		simple: elem.Name(),
	}
	switch elem.Kind() {
	case reflect.Interface:
		p.typ = elem
	case reflect.Struct:
		if elem.NumField() == 0 {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: struct point %s has no fields", errors.ErrInvalidPoint, elem),
				"Environment", "RegisterPoint", "prototype validation")
		}
		for i := 0; i < elem.NumField(); i++ {
			f := elem.Field(i)
			if !f.IsExported() || f.Type.Kind() != reflect.Func {
				return nil, errors.WrapInvalid(
					fmt.Errorf("%w: field %s of struct point %s must be an exported func",
						errors.ErrInvalidPoint, f.Name, elem),
					"Environment", "RegisterPoint", "prototype validation")
			}
		}
		p.typ = t
		p.funcStruct = true
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s is neither an interface nor a struct of funcs", errors.ErrInvalidPoint, elem),
			"Environment", "RegisterPoint", "prototype validation")
	}

	for _, opt := range opts {
		opt(p)
	}
	if p.defaultName != "" {
		tokens := splitNames(p.defaultName)
		if len(tokens) > 1 {
			return nil, errors.WrapConfig(
				fmt.Errorf("%w on extension point %s: %q", errors.ErrMultipleDefaultNames, p.name, p.defaultName),
				"Environment", "RegisterPoint", "default name validation")
		}
		if len(tokens) == 1 {
			p.defaultName = tokens[0]
		}
	}
	return p, nil
}

// normalizePointType maps a prototype type to the loader-registry key:
// interface types key by the interface, struct points by the pointer.
func normalizePointType(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, errors.WrapInvalid(errors.ErrNilPrototype, "Environment", "loaderFor", "type validation")
	}
	if t.Kind() == reflect.Interface {
		return t, nil
	}
	if t.Kind() == reflect.Pointer {
		switch t.Elem().Kind() {
		case reflect.Interface:
			return t.Elem(), nil
		case reflect.Struct:
			return t, nil
		}
	}
	return nil, errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidPoint, t),
		"Environment", "loaderFor", "type validation")
}

func (e *Environment) pointFor(t reflect.Type) (*point, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.points[t]
	return p, ok
}

// RegisterClass adds an implementation class to the catalog under its
// fully-qualified literal. Resource lines resolve their class side against
// this catalog.
func (e *Environment) RegisterClass(literal string, ctor any, opts ...ClassOption) error {
	cls, err := newClass(literal, ctor, opts...)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.catalog[literal]; ok {
		return errors.WrapConfig(
			fmt.Errorf("class literal %q is already registered", literal),
			"Environment", "RegisterClass", "duplicate literal check")
	}
	e.catalog[literal] = cls
	return nil
}

func (e *Environment) classByLiteral(literal string) (*Class, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cls, ok := e.catalog[literal]
	return cls, ok
}

// rawInstanceFor returns the shared instance of cls, constructing it if
// absent. The table is shared across loaders: one class, one raw instance.
func (e *Environment) rawInstanceFor(cls *Class) (any, error) {
	if v, ok := e.instances.Load(cls); ok {
		return v, nil
	}
	inst, err := cls.newInstance()
	if err != nil {
		return nil, err
	}
	actual, _ := e.instances.LoadOrStore(cls, inst)
	return actual, nil
}

func (e *Environment) rawInstance(cls *Class) (any, bool) {
	return e.instances.Load(cls)
}

func (e *Environment) countLoad(pointName, name string) {
	if e.metrics != nil {
		e.metrics.ExtensionLoads.WithLabelValues(pointName, name).Inc()
	}
}

func (e *Environment) countLoadFailure(pointName string) {
	if e.metrics != nil {
		e.metrics.LoadFailures.WithLabelValues(pointName).Inc()
	}
}

func (e *Environment) countActivation(pointName, group string) {
	if e.metrics != nil {
		e.metrics.Activations.WithLabelValues(pointName, group).Inc()
	}
}

func (e *Environment) countSynthesis(pointName string) {
	if e.metrics != nil {
		e.metrics.AdaptiveSyntheses.WithLabelValues(pointName).Inc()
	}
}

func (e *Environment) countLoader() {
	if e.metrics != nil {
		e.metrics.LoadersActive.Inc()
	}
}
