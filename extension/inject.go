package extension

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// inject performs setter-style dependency injection: every exported
// single-parameter method whose name starts with "Set" is offered a
// dependency resolved from the object factory by (parameter type, property
// name). A nil factory result skips the setter; a failing setter is logged
// and skipped without aborting construction.
func (l *Loader) inject(instance any) {
	if l.factory == nil || instance == nil {
		return
	}
	v := reflect.ValueOf(instance)
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.HasPrefix(m.Name, "Set") {
			continue
		}
		// Method signature includes the receiver.
		if m.Type.NumIn() != 2 {
			continue
		}
		property := propertyName(m.Name)
		paramType := m.Type.In(1)

		dep := l.factory.Load(paramType, property)
		if dep == nil {
			continue
		}
		l.invokeSetter(v.Method(i), m.Name, paramType, dep)
	}
}

func (l *Loader) invokeSetter(setter reflect.Value, name string, paramType reflect.Type, dep any) {
	defer func() {
		if r := recover(); r != nil {
			l.env.logger.Error("failed to inject via setter",
				"point", l.point.name, "setter", name, "panic", r)
		}
	}()
	dv := reflect.ValueOf(dep)
	if !dv.Type().AssignableTo(paramType) {
		l.env.logger.Error("failed to inject via setter",
			"point", l.point.name, "setter", name,
			"want", paramType.String(), "got", dv.Type().String())
		return
	}
	setter.Call([]reflect.Value{dv})
}

// propertyName derives the injected property from a setter name:
// "SetTimeout" becomes "timeout". A bare "Set" yields "".
func propertyName(setter string) string {
	rest := strings.TrimPrefix(setter, "Set")
	if rest == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(rest)
	return string(unicode.ToLower(r)) + rest[size:]
}
