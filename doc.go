// Package halcyon is a service-provider / extension loader for Go hosts.
//
// A host declares an abstract service contract (an "extension point"),
// implementations register themselves under short names, and the loader
// discovers, instantiates, and composes them on demand:
//
//   - lookup by name, with cached singleton instances
//   - decorator ("wrapper") composition around every materialized instance
//   - setter-style dependency injection resolved through pluggable factories
//   - rule-based activation of an ordered extension subset per request URL
//   - adaptive dispatch that picks the concrete implementation at call time
//     from attributes of a request URL
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│           Environment               │  loader registry, class catalog,
//	│   (explicit, or package default)    │  scan roots, shared instances
//	└─────────────────────────────────────┘
//	           ↓ hands out
//	┌─────────────────────────────────────┐
//	│             Loader                  │  per extension point: name→class
//	│  (Get, Adaptive, Activate, ...)     │  registry, instance holders
//	└─────────────────────────────────────┘
//	           ↓ reads
//	┌─────────────────────────────────────┐
//	│         Resource files              │  META-INF/halcyon/internal/...
//	│      (name = literal lines)         │  META-INF/halcyon/...
//	└─────────────────────────────────────┘  META-INF/services/...
//
// Implementations are plain Go constructors registered in a class catalog
// under a fully-qualified literal; resource files bind short names to those
// literals. Three directories are scanned in decreasing precedence: a name
// bound by an earlier directory keeps its binding, and a later line that
// rebinds it to a different class is recorded as a load failure.
//
// # Packages
//
//   - extension: the loader core (Environment, Loader, Factory)
//   - common: the URL request descriptor and Invocation contract
//   - errors: classified error handling shared by all packages
//   - metric: optional prometheus instrumentation for loaders
//   - config: YAML environment configuration
//   - demo: a small extension set used by cmd/halcyon-demo
//
// See package extension for the full programmatic surface.
package halcyon
