package extension

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/halcyon-dev/halcyon/errors"
)

// Activation carries the rule-based selection metadata of an extension
// class: the groups it belongs to, the URL parameter keys that trigger it,
// and its position in the activated sequence.
type Activation struct {
	// Groups restricts activation to matching group labels. Empty matches
	// every group.
	Groups []string

	// Keys lists URL parameter keys that trigger activation. A key matches
	// a URL parameter whose key equals it or ends in "." followed by it,
	// with a non-empty value. Empty always triggers.
	Keys []string

	// Order positions the extension in the activated sequence, ascending.
	Order int
}

// Class describes a registered implementation: its fully-qualified
// registration literal, its constructor, and the metadata that resource
// lines cannot express (legacy name, adaptive marker, activation rules).
//
// A Class plays the role a loaded class object plays on a managed runtime:
// resource files bind short names to literals, and the catalog resolves
// literals to Class descriptors.
type Class struct {
	literal  string
	ctor     reflect.Value
	ctorType reflect.Type
	name     string
	adaptive bool
	activate *Activation
}

// ClassOption configures a Class at registration time.
type ClassOption func(*Class)

// WithName declares the class's own extension name, used when a resource
// line binds the class without naming it.
func WithName(name string) ClassOption {
	return func(c *Class) { c.name = name }
}

// AsAdaptive marks the class as the manual adaptive dispatcher for its
// extension point. At most one adaptive class may be registered per point.
func AsAdaptive() ClassOption {
	return func(c *Class) { c.adaptive = true }
}

// WithActivate attaches activation metadata to the class.
func WithActivate(act Activation) ClassOption {
	return func(c *Class) { c.activate = &act }
}

// newClass validates the constructor shape and builds the descriptor.
// Constructors take either no parameter (ordinary and adaptive classes) or
// exactly one (wrapper candidates), and return exactly one value.
func newClass(literal string, ctor any, opts ...ClassOption) (*Class, error) {
	if strings.TrimSpace(literal) == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("class literal is empty"), "Class", "newClass", "literal validation")
	}
	if ctor == nil {
		return nil, errors.WrapInvalid(errors.ErrNilConstructor, "Class", "newClass", "constructor validation")
	}
	cv := reflect.ValueOf(ctor)
	ct := cv.Type()
	if ct.Kind() != reflect.Func {
		return nil, errors.WrapInvalid(
			fmt.Errorf("constructor for %q is %s, not a func", literal, ct.Kind()),
			"Class", "newClass", "constructor validation")
	}
	if ct.NumOut() != 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("constructor for %q must return exactly one value, returns %d", literal, ct.NumOut()),
			"Class", "newClass", "constructor validation")
	}
	if ct.NumIn() > 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("constructor for %q takes %d parameters, at most one is allowed", literal, ct.NumIn()),
			"Class", "newClass", "constructor validation")
	}

	c := &Class{
		literal:  literal,
		ctor:     cv,
		ctorType: ct,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Literal returns the fully-qualified registration literal.
func (c *Class) Literal() string { return c.literal }

// outType returns the constructor's declared result type.
func (c *Class) outType() reflect.Type { return c.ctorType.Out(0) }

// isWrapperFor reports whether the constructor takes the extension-point
// type as its sole parameter.
func (c *Class) isWrapperFor(pointType reflect.Type) bool {
	return c.ctorType.NumIn() == 1 && c.ctorType.In(0) == pointType
}

// newInstance invokes the niladic constructor. Panics inside the
// constructor are captured as construction errors.
func (c *Class) newInstance() (instance any, err error) {
	if c.ctorType.NumIn() != 0 {
		return nil, errors.WrapConstruction(
			fmt.Errorf("%w: %s requires a wrapped instance", errors.ErrNoConstructor, c.literal),
			"Class", "newInstance", "constructor invocation")
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapConstruction(
				fmt.Errorf("constructor of %s panicked: %v", c.literal, r),
				"Class", "newInstance", "constructor invocation")
		}
	}()
	out := c.ctor.Call(nil)[0]
	if isNilValue(out) {
		return nil, errors.WrapConstruction(
			fmt.Errorf("constructor of %s returned nil", c.literal),
			"Class", "newInstance", "constructor invocation")
	}
	return out.Interface(), nil
}

// newWrapper invokes the single-parameter constructor around inner.
func (c *Class) newWrapper(inner any) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapConstruction(
				fmt.Errorf("wrapper constructor of %s panicked: %v", c.literal, r),
				"Class", "newWrapper", "constructor invocation")
		}
	}()
	out := c.ctor.Call([]reflect.Value{reflect.ValueOf(inner)})[0]
	if isNilValue(out) {
		return nil, errors.WrapConstruction(
			fmt.Errorf("wrapper constructor of %s returned nil", c.literal),
			"Class", "newWrapper", "constructor invocation")
	}
	return out.Interface(), nil
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// literalFor derives a registration literal from a constructor's result
// type, used by the programmatic Register path where no literal is given.
func literalFor(ct reflect.Type) string {
	t := ct.Out(0)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() != "" && t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
