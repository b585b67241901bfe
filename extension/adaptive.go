package extension

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/halcyon-dev/halcyon/common"
	"github.com/halcyon-dev/halcyon/errors"
)

var (
	urlType        = reflect.TypeOf((*common.URL)(nil))
	invocationType = reflect.TypeOf((*common.Invocation)(nil)).Elem()
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
)

// protocolKey is read from the URL's scheme rather than its parameter map.
const protocolKey = "protocol"

// Adaptive returns the extension point's adaptive dispatcher singleton: the
// manually registered adaptive class if one exists, otherwise a dispatcher
// synthesized from the point's adaptive method metadata. A construction
// failure is recorded and re-raised on every subsequent call.
func (l *Loader) Adaptive() (any, error) {
	if s := l.adaptiveState.Load(); s != nil {
		return s.instance, s.err
	}
	l.adaptiveMu.Lock()
	defer l.adaptiveMu.Unlock()
	if s := l.adaptiveState.Load(); s != nil {
		return s.instance, s.err
	}

	instance, err := l.createAdaptive()
	if err != nil {
		err = errors.Wrap(err, "Loader", "Adaptive", "adaptive instance creation")
	}
	l.adaptiveState.Store(&adaptiveState{instance: instance, err: err})
	return instance, err
}

func (l *Loader) createAdaptive() (any, error) {
	cls, err := l.adaptiveClass()
	if err != nil {
		return nil, err
	}
	instance, err := cls.newInstance()
	if err != nil {
		return nil, err
	}
	l.inject(instance)
	return instance, nil
}

// adaptiveClass returns the filled adaptive slot, synthesizing a dispatcher
// class when no manual adaptive class was discovered.
func (l *Loader) adaptiveClass() (*Class, error) {
	l.loadClasses()
	if c := l.adaptiveCls.Load(); c != nil {
		return c, nil
	}
	c, err := l.synthesize()
	if err != nil {
		return nil, err
	}
	l.adaptiveCls.Store(c)
	l.env.countSynthesis(l.point.name)
	return c, nil
}

// methodPlan is the per-method dispatch program derived from the point's
// metadata: where the URL comes from, whether an Invocation is in scope,
// and which keys resolve the extension name.
type methodPlan struct {
	field      int
	urlParam   int
	accessor   string
	invocation int
	keys       []string
}

// synthesize builds a dispatcher class for a struct-of-funcs point. Fields
// carrying the `adaptive` struct tag dispatch per call; untagged fields
// raise an unsupported-operation failure. Interface points cannot declare
// adaptive methods, so reaching here without a manual adaptive class is a
// configuration error.
func (l *Loader) synthesize() (*Class, error) {
	if !l.point.funcStruct {
		return nil, errors.WrapConfig(
			fmt.Errorf("%w %s: refusing to create the adaptive dispatcher",
				errors.ErrNoAdaptiveMethod, l.point.name),
			"Loader", "synthesize", "adaptive method discovery")
	}

	st := l.point.typ.Elem()
	plans := make(map[int]methodPlan)
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("adaptive")
		if !ok {
			continue
		}
		plan, err := l.planMethod(i, f, tag)
		if err != nil {
			return nil, err
		}
		plans[i] = plan
	}
	if len(plans) == 0 {
		return nil, errors.WrapConfig(
			fmt.Errorf("%w %s: refusing to create the adaptive dispatcher",
				errors.ErrNoAdaptiveMethod, l.point.name),
			"Loader", "synthesize", "adaptive method discovery")
	}

	return &Class{
		literal:  l.point.name + "$Adaptive",
		ctor:     reflect.ValueOf(func() any { return l.realize(st, plans) }),
		ctorType: reflect.TypeOf(func() any { return nil }),
	}, nil
}

// planMethod locates the URL argument, detects an Invocation parameter and
// fixes the key list for one adaptive method.
func (l *Loader) planMethod(field int, f reflect.StructField, tag string) (methodPlan, error) {
	ft := f.Type
	plan := methodPlan{field: field, urlParam: -1, invocation: -1}

	for i := 0; i < ft.NumIn(); i++ {
		if ft.In(i) == urlType {
			plan.urlParam = i
			break
		}
	}
	if plan.urlParam < 0 {
	search:
		for i := 0; i < ft.NumIn(); i++ {
			pt := ft.In(i)
			for j := 0; j < pt.NumMethod(); j++ {
				m := pt.Method(j)
				if accessorReturnsURL(pt, m) {
					plan.urlParam = i
					plan.accessor = m.Name
					break search
				}
			}
		}
	}
	if plan.urlParam < 0 {
		return plan, errors.WrapConfig(
			fmt.Errorf("%w: method %s of extension point %s",
				errors.ErrNoURLArgument, f.Name, l.point.name),
			"Loader", "planMethod", "url discovery")
	}

	for i := 0; i < ft.NumIn(); i++ {
		if ft.In(i) == invocationType {
			plan.invocation = i
			break
		}
	}

	plan.keys = splitNames(tag)
	if len(plan.keys) == 0 {
		plan.keys = []string{derivedKey(l.point.simple)}
	}
	return plan, nil
}

// accessorReturnsURL reports whether m is a zero-argument exported method
// returning *common.URL on the parameter type pt.
func accessorReturnsURL(pt reflect.Type, m reflect.Method) bool {
	mt := m.Type
	in := mt.NumIn()
	if pt.Kind() != reflect.Interface {
		// Concrete method signatures include the receiver.
		in--
	}
	return in == 0 && mt.NumOut() == 1 && mt.Out(0) == urlType
}

// derivedKey lowers a camel-case point name into its dotted key:
// "LoadBalance" becomes "load.balance".
func derivedKey(simple string) string {
	var b strings.Builder
	for i, r := range simple {
		if unicode.IsUpper(r) {
			if i != 0 {
				b.WriteString(".")
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// realize materializes the synthesized dispatcher: a fresh point struct
// whose planned fields route per call and whose remaining fields fail as
// unsupported operations.
func (l *Loader) realize(st reflect.Type, plans map[int]methodPlan) any {
	v := reflect.New(st)
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if plan, ok := plans[i]; ok {
			v.Elem().Field(i).Set(reflect.MakeFunc(f.Type, l.dispatchFunc(f, plan)))
		} else {
			v.Elem().Field(i).Set(reflect.MakeFunc(f.Type, l.unsupportedFunc(f)))
		}
	}
	return v.Interface()
}

func (l *Loader) unsupportedFunc(f reflect.StructField) func([]reflect.Value) []reflect.Value {
	err := errors.WrapConfig(
		fmt.Errorf("%w: method %s of extension point %s",
			errors.ErrUnsupportedOperation, f.Name, l.point.name),
		"Loader", "dispatch", "adaptive method check")
	return func([]reflect.Value) []reflect.Value {
		return failResults(f.Type, err)
	}
}

// dispatchFunc builds the call-time body of one adaptive method: bind the
// URL, resolve the extension name from the keys, load the extension, and
// forward the call to its matching method.
func (l *Loader) dispatchFunc(f reflect.StructField, plan methodPlan) func([]reflect.Value) []reflect.Value {
	ft := f.Type
	return func(args []reflect.Value) []reflect.Value {
		url, err := extractURL(args, plan)
		if err != nil {
			return failResults(ft, errors.WrapInvalid(err, "Loader", "dispatch", "url binding"))
		}

		methodName := ""
		if plan.invocation >= 0 {
			iv := args[plan.invocation]
			if iv.IsNil() {
				return failResults(ft, errors.WrapInvalid(
					fmt.Errorf("invocation == nil"), "Loader", "dispatch", "invocation binding"))
			}
			methodName = iv.Interface().(common.Invocation).MethodName()
		}

		name := resolveAdaptiveName(url, methodName, plan.keys, l.point.defaultName, plan.invocation >= 0)
		if name == "" {
			return failResults(ft, errors.WrapConfig(
				fmt.Errorf("%w: extension point %s, url %s, keys %v",
					errors.ErrNoExtensionName, l.point.name, url, plan.keys),
				"Loader", "dispatch", "extension name resolution"))
		}

		ext, err := l.Get(name)
		if err != nil {
			return failResults(ft, err)
		}
		if ext == nil {
			return failResults(ft, errors.WrapConfig(
				fmt.Errorf("%w: %s by name %q", errors.ErrNoSuchExtension, l.point.name, name),
				"Loader", "dispatch", "extension lookup"))
		}

		target := reflect.ValueOf(ext).Elem().Field(plan.field)
		if target.IsNil() {
			return failResults(ft, errors.WrapConfig(
				fmt.Errorf("extension %q of point %s does not provide method %s",
					name, l.point.name, f.Name),
				"Loader", "dispatch", "method binding"))
		}
		if ft.IsVariadic() {
			return target.CallSlice(args)
		}
		return target.Call(args)
	}
}

// extractURL binds the request URL from the planned argument: either the
// URL parameter itself or the URL returned by the recorded accessor.
func extractURL(args []reflect.Value, plan methodPlan) (*common.URL, error) {
	arg := args[plan.urlParam]
	if plan.accessor == "" {
		if arg.IsNil() {
			return nil, fmt.Errorf("url == nil")
		}
		return arg.Interface().(*common.URL), nil
	}

	if isNilValue(arg) {
		return nil, fmt.Errorf("%s argument == nil", arg.Type())
	}
	out := arg.MethodByName(plan.accessor).Call(nil)[0]
	if out.IsNil() {
		return nil, fmt.Errorf("%s argument %s() == nil", arg.Type(), plan.accessor)
	}
	return out.Interface().(*common.URL), nil
}

// resolveAdaptiveName evaluates the key list right to left, each key's
// fallback being the value resolved so far and the innermost fallback the
// point's default name. The "protocol" key reads the URL scheme and falls
// through to the inner value when the scheme is absent. With an Invocation
// in scope, non-protocol keys look up method-scoped parameters against the
// global default, so the leftmost key decides.
func resolveAdaptiveName(url *common.URL, methodName string, keys []string, def string, hasInvocation bool) string {
	value := def
	for i := len(keys) - 1; i >= 0; i-- {
		switch {
		case keys[i] == protocolKey:
			if p := url.Protocol(); p != "" {
				value = p
			}
		case hasInvocation:
			value = url.MethodParam(methodName, keys[i], def)
		default:
			value = url.Param(keys[i], value)
		}
	}
	return value
}

// failResults produces the failure result row for a dispatch that cannot
// proceed: the error return when the method declares one, a panic
// otherwise.
func failResults(ft reflect.Type, err error) []reflect.Value {
	n := ft.NumOut()
	if n == 0 || ft.Out(n-1) != errorType {
		panic(err)
	}
	results := make([]reflect.Value, n)
	for i := 0; i < n-1; i++ {
		results[i] = reflect.Zero(ft.Out(i))
	}
	ev := reflect.New(errorType).Elem()
	ev.Set(reflect.ValueOf(err))
	results[n-1] = ev
	return results
}
