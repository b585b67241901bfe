package extension

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/halcyon-dev/halcyon/errors"
)

// trueName resolves to the point's default extension.
const trueName = "true"

// Loader loads, caches and composes the extensions of one extension point.
// Loaders are obtained through For and live for the life of their
// Environment. All methods are safe for concurrent use.
type Loader struct {
	env     *Environment
	point   *point
	factory Factory // nil for the Factory point itself (bootstrap hole)

	classesMu sync.Mutex
	classes   atomic.Pointer[classSet]

	instances sync.Map // string -> *holder

	adaptiveMu    sync.Mutex
	adaptiveCls   atomic.Pointer[Class]
	adaptiveState atomic.Pointer[adaptiveState]
}

// holder publishes one named instance exactly once. Readers after
// publication never take the lock.
type holder struct {
	mu sync.Mutex
	v  atomic.Value
}

// adaptiveState records the outcome of the one adaptive construction
// attempt: the singleton on success, the terminal error on failure.
type adaptiveState struct {
	instance any
	err      error
}

// For returns the loader for the extension point identified by prototype,
// creating it on first request. The prototype follows the RegisterPoint
// convention: (*Robot)(nil) or (*Protocol)(nil). A nil env selects the
// Default environment.
func For(env *Environment, prototype any) (*Loader, error) {
	if env == nil {
		env = Default()
	}
	if prototype == nil {
		return nil, errors.WrapInvalid(errors.ErrNilPrototype, "Loader", "For", "prototype validation")
	}
	typ, err := normalizePointType(reflect.TypeOf(prototype))
	if err != nil {
		return nil, err
	}
	return forType(env, typ)
}

func forType(env *Environment, typ reflect.Type) (*Loader, error) {
	if l, ok := env.loaders.Load(typ); ok {
		return l.(*Loader), nil
	}
	p, ok := env.pointFor(typ)
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrNotExtensionPoint, typ),
			"Loader", "For", "extension point validation")
	}

	l := &Loader{env: env, point: p}
	if p.typ != factoryPointType {
		fl, err := forType(env, factoryPointType)
		if err != nil {
			return nil, errors.Wrap(err, "Loader", "For", "factory bootstrap")
		}
		adaptive, err := fl.Adaptive()
		if err != nil {
			return nil, errors.Wrap(err, "Loader", "For", "factory bootstrap")
		}
		l.factory = adaptive.(Factory)
	}

	actual, loaded := env.loaders.LoadOrStore(typ, l)
	if !loaded {
		env.countLoader()
	}
	return actual.(*Loader), nil
}

// PointName returns the fully-qualified extension-point name.
func (l *Loader) PointName() string { return l.point.name }

// String identifies the loader by its extension point.
func (l *Loader) String() string {
	return "extension.Loader[" + l.point.name + "]"
}

// Get returns the extension bound to name, constructing and caching it on
// first request. The literal "true" resolves to the default extension; if
// the point declares no usable default, Get("true") returns (nil, nil).
func (l *Loader) Get(name string) (any, error) {
	if name == "" {
		return nil, errors.WrapInvalid(errors.ErrEmptyName, "Loader", "Get", "name validation")
	}
	if name == trueName {
		return l.Default()
	}

	h := l.holderFor(name)
	if v := h.v.Load(); v != nil {
		return v, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if v := h.v.Load(); v != nil {
		return v, nil
	}
	instance, err := l.createExtension(name)
	if err != nil {
		l.env.countLoadFailure(l.point.name)
		return nil, err
	}
	h.v.Store(instance)
	l.env.countLoad(l.point.name, name)
	return instance, nil
}

// Default returns the default extension, or (nil, nil) when the point
// declares no usable default name.
func (l *Loader) Default() (any, error) {
	l.loadClasses()
	def := l.point.defaultName
	if def == "" || def == trueName {
		return nil, nil
	}
	return l.Get(def)
}

// DefaultName returns the point's declared default extension name, which
// may be empty.
func (l *Loader) DefaultName() string {
	return l.point.defaultName
}

// Has reports whether name is bound to a class, without constructing
// anything.
func (l *Loader) Has(name string) bool {
	if name == "" {
		return false
	}
	cs := l.loadClasses()
	_, ok := cs.names[name]
	return ok
}

// Loaded returns the instance bound to name if it has already been
// constructed, or nil. It never triggers construction.
func (l *Loader) Loaded(name string) any {
	if name == "" {
		return nil
	}
	if h, ok := l.instances.Load(name); ok {
		return h.(*holder).v.Load()
	}
	return nil
}

// Names returns all bound extension names, sorted.
func (l *Loader) Names() []string {
	cs := l.loadClasses()
	names := make([]string, 0, len(cs.names))
	for n := range cs.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadedNames returns the names whose instances have been constructed,
// sorted. Names that were merely queried, or whose construction failed,
// are not included.
func (l *Loader) LoadedNames() []string {
	var names []string
	l.instances.Range(func(k, v any) bool {
		if v.(*holder).v.Load() != nil {
			names = append(names, k.(string))
		}
		return true
	})
	sort.Strings(names)
	return names
}

// NameOf returns the canonical name of instance, or "" when the instance
// is not a known extension of this point. Wrapped instances are not
// resolvable: the wrapper class carries no name.
func (l *Loader) NameOf(instance any) string {
	if instance == nil {
		return ""
	}
	cs := l.loadClasses()
	t := reflect.TypeOf(instance)
	for cls, name := range cs.canonical {
		if cls.outType() == t {
			return name
		}
		if raw, ok := l.env.rawInstance(cls); ok && raw == instance {
			return name
		}
	}
	return ""
}

// NameOfClass returns the canonical name bound to the class literal, or ""
// when the literal names no ordinary extension of this point.
func (l *Loader) NameOfClass(literal string) string {
	cs := l.loadClasses()
	for cls, name := range cs.canonical {
		if cls.literal == literal {
			return name
		}
	}
	return ""
}

// Register binds name to a new class programmatically. Non-adaptive
// classes require a non-blank name and a niladic constructor; an adaptive
// class fills the adaptive slot instead and rejects a second occupant.
// Rebinding a name to the same literal is idempotent.
func (l *Loader) Register(name string, ctor any, opts ...ClassOption) error {
	return l.bind(name, ctor, false, opts...)
}

// Replace rebinds name to a new class and discards the cached instance
// (or, for an adaptive class, resets the adaptive singleton). Intended for
// tests only.
func (l *Loader) Replace(name string, ctor any, opts ...ClassOption) error {
	return l.bind(name, ctor, true, opts...)
}

func (l *Loader) bind(name string, ctor any, replace bool, opts ...ClassOption) error {
	op := "Register"
	if replace {
		op = "Replace"
	}
	if ctor == nil {
		return errors.WrapInvalid(errors.ErrNilConstructor, "Loader", op, "constructor validation")
	}
	ct := reflect.TypeOf(ctor)
	if ct.Kind() != reflect.Func || ct.NumOut() != 1 {
		return errors.WrapInvalid(
			fmt.Errorf("constructor must be a func returning one value, got %s", ct),
			"Loader", op, "constructor validation")
	}
	cls, err := newClass(literalFor(ct), ctor, opts...)
	if err != nil {
		return err
	}
	if !cls.outType().AssignableTo(l.point.typ) {
		return errors.WrapInvalid(
			fmt.Errorf("type %s does not implement extension point %s", cls.outType(), l.point.name),
			"Loader", op, "type validation")
	}
	if cls.outType().Kind() == reflect.Interface {
		return errors.WrapInvalid(
			fmt.Errorf("constructor result %s is an interface type, not an implementation", cls.outType()),
			"Loader", op, "type validation")
	}

	l.loadClasses()

	if cls.adaptive {
		l.adaptiveMu.Lock()
		defer l.adaptiveMu.Unlock()
		current := l.adaptiveCls.Load()
		if replace {
			if current == nil {
				return errors.WrapConfig(
					fmt.Errorf("adaptive class for %s does not exist", l.point.name),
					"Loader", op, "adaptive slot check")
			}
			l.adaptiveCls.Store(cls)
			l.adaptiveState.Store(nil)
			return nil
		}
		if current != nil {
			return errors.WrapConfig(
				fmt.Errorf("%w for extension point %s", errors.ErrDuplicateAdaptive, l.point.name),
				"Loader", op, "adaptive slot check")
		}
		l.adaptiveCls.Store(cls)
		return nil
	}

	if strings.TrimSpace(name) == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w for extension point %s", errors.ErrEmptyName, l.point.name),
			"Loader", op, "name validation")
	}

	l.classesMu.Lock()
	defer l.classesMu.Unlock()
	cs := l.classes.Load()
	existing := cs.names[name]
	if replace {
		if existing == nil {
			return errors.WrapConfig(
				fmt.Errorf("%w: %s for extension point %s", errors.ErrUnknownExtension, name, l.point.name),
				"Loader", op, "binding check")
		}
	} else if existing != nil {
		if existing.literal == cls.literal {
			return nil
		}
		return errors.WrapConfig(
			fmt.Errorf("%w: %s on %s and %s", errors.ErrDuplicateName, name, existing.literal, cls.literal),
			"Loader", op, "binding check")
	}

	next := cs.clone()
	next.names[name] = cls
	if _, ok := next.canonical[cls]; !ok {
		next.canonical[cls] = name
	}
	if cls.activate != nil {
		next.activates = append(next.activates, activateEntry{name: name, activate: *cls.activate})
	}
	l.classes.Store(next)
	if replace {
		l.instances.Delete(name)
	}
	return nil
}

func (l *Loader) holderFor(name string) *holder {
	if h, ok := l.instances.Load(name); ok {
		return h.(*holder)
	}
	h, _ := l.instances.LoadOrStore(name, &holder{})
	return h.(*holder)
}

// createExtension materializes the instance for name: shared raw instance,
// setter injection, then wrapper composition with re-injection of every
// layer.
func (l *Loader) createExtension(name string) (any, error) {
	cs := l.loadClasses()
	cls := cs.names[name]
	if cls == nil {
		return nil, l.notFound(name, cs)
	}

	instance, err := l.env.rawInstanceFor(cls)
	if err != nil {
		return nil, errors.WrapConstruction(
			fmt.Errorf("extension %q of point %s: %w", name, l.point.name, err),
			"Loader", "createExtension", "instance construction")
	}
	l.inject(instance)

	for _, w := range cs.wrappers {
		wrapped, err := w.newWrapper(instance)
		if err != nil {
			return nil, errors.WrapConstruction(
				fmt.Errorf("extension %q of point %s: %w", name, l.point.name, err),
				"Loader", "createExtension", "wrapper composition")
		}
		l.inject(wrapped)
		instance = wrapped
	}
	return instance, nil
}

// notFound composes the diagnostic for an unbound name: captured
// class-load failures whose keys contain the name are attached; with no
// match, every captured failure is listed as a possible cause.
func (l *Loader) notFound(name string, cs *classSet) error {
	base := fmt.Errorf("%w: %s by name %q", errors.ErrNoSuchExtension, l.point.name, name)

	var matched error
	lower := strings.ToLower(name)
	for key, ferr := range cs.failures {
		if strings.Contains(strings.ToLower(key), lower) {
			matched = multierr.Append(matched, ferr)
		}
	}
	if matched == nil {
		for _, ferr := range cs.failures {
			matched = multierr.Append(matched, ferr)
		}
		if matched != nil {
			matched = fmt.Errorf("possible causes: %w", matched)
		}
	}
	if matched != nil {
		return errors.WrapLoad(multierr.Append(base, matched), "Loader", "Get", "extension lookup")
	}
	return errors.WrapConfig(base, "Loader", "Get", "extension lookup")
}
