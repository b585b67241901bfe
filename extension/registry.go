package extension

import (
	"fmt"
	"maps"
	"reflect"
	"sort"
	"strings"

	"github.com/halcyon-dev/halcyon/errors"
)

// activateEntry pairs a canonical extension name with its activation
// metadata, in discovery order. The slice order breaks ties between equal
// Order values.
type activateEntry struct {
	name     string
	activate Activation
}

// classSet is the immutable per-loader view of the discovered classes.
// It is built once under the loader's registry lock and published
// atomically; programmatic Register calls replace it wholesale.
type classSet struct {
	names     map[string]*Class
	canonical map[*Class]string
	activates []activateEntry
	wrappers  []*Class
	failures  map[string]error
}

func newClassSet() *classSet {
	return &classSet{
		names:     make(map[string]*Class),
		canonical: make(map[*Class]string),
		failures:  make(map[string]error),
	}
}

func (cs *classSet) clone() *classSet {
	next := &classSet{
		names:     make(map[string]*Class, len(cs.names)),
		canonical: make(map[*Class]string, len(cs.canonical)),
		activates: make([]activateEntry, len(cs.activates)),
		wrappers:  make([]*Class, len(cs.wrappers)),
		failures:  make(map[string]error, len(cs.failures)),
	}
	maps.Copy(next.names, cs.names)
	maps.Copy(next.canonical, cs.canonical)
	copy(next.activates, cs.activates)
	copy(next.wrappers, cs.wrappers)
	maps.Copy(next.failures, cs.failures)
	return next
}

// loadClasses returns the published class set, scanning the resource files
// on first call. Double-checked under the registry lock; readers after
// publication never block.
func (l *Loader) loadClasses() *classSet {
	if cs := l.classes.Load(); cs != nil {
		return cs
	}
	l.classesMu.Lock()
	defer l.classesMu.Unlock()
	if cs := l.classes.Load(); cs != nil {
		return cs
	}
	cs := l.scanResources()
	sort.Slice(cs.wrappers, func(i, j int) bool {
		return cs.wrappers[i].literal < cs.wrappers[j].literal
	})
	l.classes.Store(cs)
	return cs
}

// registerClass classifies one resolved class into the set: adaptive slot,
// wrapper set, or the ordinary name maps with inference and alias
// handling. Violations become deferred failures keyed by the class
// literal, so one bad binding never aborts the scan.
func (l *Loader) registerClass(cs *classSet, cls *Class, name string) {
	if !cls.outType().AssignableTo(l.point.typ) {
		cs.failures[cls.literal] = errors.WrapLoad(
			fmt.Errorf("class %s does not implement extension point %s", cls.literal, l.point.name),
			"Loader", "registerClass", "subtype check")
		return
	}

	if cls.adaptive {
		current := l.adaptiveCls.Load()
		if current == nil {
			l.adaptiveCls.Store(cls)
		} else if current != cls {
			cs.failures[cls.literal] = errors.WrapConfig(
				fmt.Errorf("%w for extension point %s: %s and %s",
					errors.ErrDuplicateAdaptive, l.point.name, current.literal, cls.literal),
				"Loader", "registerClass", "adaptive slot check")
		}
		return
	}

	if cls.isWrapperFor(l.point.typ) {
		for _, w := range cs.wrappers {
			if w == cls {
				return
			}
		}
		cs.wrappers = append(cs.wrappers, cls)
		return
	}

	if cls.ctorType.NumIn() != 0 {
		cs.failures[cls.literal] = errors.WrapLoad(
			fmt.Errorf("%w: %s takes a parameter of type %s, which is not the point type %s",
				errors.ErrNoConstructor, cls.literal, cls.ctorType.In(0), l.point.typ),
			"Loader", "registerClass", "constructor check")
		return
	}

	if name == "" {
		name = l.inferName(cls)
		if name == "" {
			cs.failures[cls.literal] = errors.WrapLoad(
				fmt.Errorf("no usable extension name for class %s", cls.literal),
				"Loader", "registerClass", "name inference")
			return
		}
	}

	tokens := splitNames(name)
	if len(tokens) == 0 {
		cs.failures[cls.literal] = errors.WrapLoad(
			fmt.Errorf("no usable extension name for class %s", cls.literal),
			"Loader", "registerClass", "name tokenization")
		return
	}

	if cls.activate != nil {
		known := false
		for _, e := range cs.activates {
			if e.name == tokens[0] {
				known = true
				break
			}
		}
		if !known {
			cs.activates = append(cs.activates, activateEntry{name: tokens[0], activate: *cls.activate})
		}
	}

	for _, token := range tokens {
		if _, ok := cs.canonical[cls]; !ok {
			cs.canonical[cls] = token
		}
		existing := cs.names[token]
		switch {
		case existing == nil:
			cs.names[token] = cls
		case existing != cls:
			cs.failures[cls.literal] = errors.WrapConfig(
				fmt.Errorf("%w: duplicate extension %s name %q on %s and %s",
					errors.ErrDuplicateName, l.point.name, token, existing.literal, cls.literal),
				"Loader", "registerClass", "binding check")
		}
	}
}

// inferName derives an extension name for a class bound without one: the
// class's declared name if present, else its simple type name with a
// trailing occurrence of the point's simple name stripped, lowercased.
func (l *Loader) inferName(cls *Class) string {
	if cls.name != "" {
		return cls.name
	}
	t := cls.outType()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	simple := t.Name()
	simple = strings.TrimSuffix(simple, l.point.simple)
	return strings.ToLower(simple)
}
