package extension

import (
	"reflect"
	"sync"
)

// Factory resolves a dependency for the injector: given a setter's
// parameter type and derived property name, it returns the object to
// inject, or nil to skip the setter.
type Factory interface {
	Load(t reflect.Type, name string) any
}

var factoryPointType = reflect.TypeOf((*Factory)(nil)).Elem()

// AdaptiveFactory is the manual adaptive dispatcher of the Factory point:
// it consults every bound factory in name order and returns the first
// non-nil result.
type AdaptiveFactory struct {
	env       *Environment
	once      sync.Once
	factories []Factory
}

// Load implements Factory by delegating to each discovered factory.
func (f *AdaptiveFactory) Load(t reflect.Type, name string) any {
	f.once.Do(f.discover)
	for _, factory := range f.factories {
		if v := factory.Load(t, name); v != nil {
			return v
		}
	}
	return nil
}

func (f *AdaptiveFactory) discover() {
	loader, err := forType(f.env, factoryPointType)
	if err != nil {
		f.env.logger.Error("failed to resolve factory loader", "error", err)
		return
	}
	for _, name := range loader.Names() {
		factory, err := loader.Get(name)
		if err != nil {
			f.env.logger.Error("failed to load extension factory", "factory", name, "error", err)
			continue
		}
		f.factories = append(f.factories, factory.(Factory))
	}
}

// SPIFactory resolves dependencies that are themselves extension points:
// it answers with the point's adaptive dispatcher when the requested type
// is a registered point with at least one bound extension.
type SPIFactory struct {
	env *Environment
}

// Load implements Factory.
func (f *SPIFactory) Load(t reflect.Type, _ string) any {
	typ, err := normalizePointType(t)
	if err != nil {
		return nil
	}
	if _, ok := f.env.pointFor(typ); !ok {
		return nil
	}
	loader, err := forType(f.env, typ)
	if err != nil {
		return nil
	}
	if len(loader.Names()) == 0 {
		return nil
	}
	adaptive, err := loader.Adaptive()
	if err != nil {
		return nil
	}
	return adaptive
}

// Built-in class literals bound by the embedded internal resources.
const (
	adaptiveFactoryLiteral = "halcyon.AdaptiveFactory"
	spiFactoryLiteral      = "halcyon.SPIFactory"
)

// registerBuiltins installs the Factory extension point and its built-in
// classes into a fresh environment. The name bindings live in the embedded
// internal resource file, scanned like any other root.
func (e *Environment) registerBuiltins() {
	if err := e.RegisterPoint((*Factory)(nil)); err != nil {
		e.logger.Error("failed to register factory point", "error", err)
	}
	if err := e.RegisterClass(adaptiveFactoryLiteral,
		func() Factory { return &AdaptiveFactory{env: e} }, AsAdaptive()); err != nil {
		e.logger.Error("failed to register adaptive factory class", "error", err)
	}
	if err := e.RegisterClass(spiFactoryLiteral,
		func() Factory { return &SPIFactory{env: e} }); err != nil {
		e.logger.Error("failed to register spi factory class", "error", err)
	}
}
