// Package common defines the request descriptor types shared by the
// extension loader and its consumers: the URL carrying protocol and
// parameter attributes, and the Invocation call-site contract.
package common

import (
	"fmt"
	"maps"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/halcyon-dev/halcyon/errors"
)

// URL is an opaque request descriptor. It exposes a protocol string, a flat
// parameter map, and a per-method parameter lookup. Adaptive dispatchers and
// the activation filter read extension names and trigger keys from it.
//
// A URL is immutable after construction; WithParam returns a copy.
type URL struct {
	protocol string
	host     string
	port     int
	path     string
	params   map[string]string
}

// New creates a URL from its parts. The params map is copied.
func New(protocol, host string, port int, path string, params map[string]string) *URL {
	p := make(map[string]string, len(params))
	maps.Copy(p, params)
	return &URL{
		protocol: protocol,
		host:     host,
		port:     port,
		path:     path,
		params:   p,
	}
}

// Parse parses a textual URL of the form
// [protocol://][host[:port]][/path][?key=value&...].
// A missing scheme yields an empty protocol, which adaptive dispatch treats
// as "fall back to the default extension".
func Parse(raw string) (*URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("url is empty"), "URL", "Parse", "input validation")
	}

	u := &URL{params: make(map[string]string)}
	rest := raw

	if i := strings.Index(rest, "://"); i >= 0 {
		u.protocol = rest[:i]
		rest = rest[i+3:]
	}

	if i := strings.Index(rest, "?"); i >= 0 {
		values, err := url.ParseQuery(rest[i+1:])
		if err != nil {
			return nil, errors.WrapInvalid(err, "URL", "Parse", "query parsing")
		}
		for k := range values {
			u.params[k] = values.Get(k)
		}
		rest = rest[:i]
	}

	if strings.HasPrefix(rest, "/") {
		u.path = strings.TrimPrefix(rest, "/")
		return u, nil
	}

	authority := rest
	if i := strings.Index(rest, "/"); i >= 0 {
		authority = rest[:i]
		u.path = rest[i+1:]
	}
	if i := strings.LastIndex(authority, ":"); i >= 0 {
		port, err := strconv.Atoi(authority[i+1:])
		if err != nil {
			return nil, errors.WrapInvalid(err, "URL", "Parse", "port parsing")
		}
		u.port = port
		authority = authority[:i]
	}
	u.host = authority
	return u, nil
}

// Protocol returns the scheme part, or "" if the URL carried none.
func (u *URL) Protocol() string { return u.protocol }

// Host returns the host part.
func (u *URL) Host() string { return u.host }

// Port returns the port, or 0 if the URL carried none.
func (u *URL) Port() int { return u.port }

// Path returns the path without its leading slash.
func (u *URL) Path() string { return u.path }

// Param returns the value bound to key, or def when the key is absent or its
// value is empty.
func (u *URL) Param(key, def string) string {
	if v, ok := u.params[key]; ok && v != "" {
		return v
	}
	return def
}

// MethodParam returns the value bound to "<method>.<key>", falling back to
// Param(key, def) when the method-scoped key is absent or empty.
func (u *URL) MethodParam(method, key, def string) string {
	if v, ok := u.params[method+"."+key]; ok && v != "" {
		return v
	}
	return u.Param(key, def)
}

// Params returns a copy of the parameter map.
func (u *URL) Params() map[string]string {
	p := make(map[string]string, len(u.params))
	maps.Copy(p, u.params)
	return p
}

// WithParam returns a copy of the URL with key bound to value.
func (u *URL) WithParam(key, value string) *URL {
	c := New(u.protocol, u.host, u.port, u.path, u.params)
	c.params[key] = value
	return c
}

// String renders the URL in its parseable textual form, with parameters in
// sorted key order.
func (u *URL) String() string {
	var b strings.Builder
	if u.protocol != "" {
		b.WriteString(u.protocol)
		b.WriteString("://")
	}
	b.WriteString(u.host)
	if u.port != 0 {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(u.port))
	}
	if u.path != "" {
		b.WriteString("/")
		b.WriteString(u.path)
	}
	if len(u.params) > 0 {
		keys := make([]string, 0, len(u.params))
		for k := range u.params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sep := "?"
		for _, k := range keys {
			b.WriteString(sep)
			sep = "&"
			b.WriteString(url.QueryEscape(k))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(u.params[k]))
		}
	}
	return b.String()
}
