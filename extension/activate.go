package extension

import (
	"slices"
	"sort"
	"strings"

	"github.com/halcyon-dev/halcyon/common"
)

const (
	// removePrefix negates a requested name, filtering it out of the
	// activated sequence.
	removePrefix = "-"
	// defaultKey splices the user-requested prefix before the
	// automatically activated extensions.
	defaultKey = "default"
)

// Activate returns the ordered extensions selected for url: automatically
// activated entries matching group and the URL's trigger keys, merged with
// the explicitly requested names. Requested names prefixed with "-" are
// removed; the token "default" positions the names listed before it ahead
// of the automatic set.
func (l *Loader) Activate(url *common.URL, requested []string, group string) ([]any, error) {
	var exts []any
	names := requested
	if names == nil {
		names = []string{}
	}

	if !slices.Contains(names, removePrefix+defaultKey) {
		cs := l.loadClasses()
		type scored struct {
			ext   any
			order int
		}
		var auto []scored
		for _, entry := range cs.activates {
			if !matchGroup(group, entry.activate.Groups) {
				continue
			}
			if slices.Contains(names, entry.name) ||
				slices.Contains(names, removePrefix+entry.name) {
				continue
			}
			if !isActive(entry.activate, url) {
				continue
			}
			ext, err := l.Get(entry.name)
			if err != nil {
				return nil, err
			}
			auto = append(auto, scored{ext: ext, order: entry.activate.Order})
		}
		sort.SliceStable(auto, func(i, j int) bool { return auto[i].order < auto[j].order })
		for _, s := range auto {
			exts = append(exts, s.ext)
		}
	}

	var user []any
	for _, name := range names {
		if strings.HasPrefix(name, removePrefix) ||
			slices.Contains(names, removePrefix+name) {
			continue
		}
		if name == defaultKey {
			if len(user) > 0 {
				exts = append(user, exts...)
				user = nil
			}
			continue
		}
		ext, err := l.Get(name)
		if err != nil {
			return nil, err
		}
		user = append(user, ext)
	}
	if len(user) > 0 {
		exts = append(exts, user...)
	}

	l.env.countActivation(l.point.name, group)
	return exts, nil
}

// ActivateKey reads the requested names from the url parameter bound to
// key, split on commas.
func (l *Loader) ActivateKey(url *common.URL, key, group string) ([]any, error) {
	var names []string
	if v := url.Param(key, ""); v != "" {
		names = splitNames(v)
	}
	return l.Activate(url, names, group)
}

// ActivateValue is ActivateKey without a group predicate.
func (l *Loader) ActivateValue(url *common.URL, key string) ([]any, error) {
	return l.ActivateKey(url, key, "")
}

// matchGroup reports whether the requested group selects an entry with the
// given groups. An empty requested group matches everything, and an entry
// with no groups matches every request.
func matchGroup(group string, groups []string) bool {
	if group == "" || len(groups) == 0 {
		return true
	}
	return slices.Contains(groups, group)
}

// isActive reports whether the url triggers the activation: either no
// trigger keys, or some url parameter whose key equals a trigger key or
// ends in "."+key, with a non-empty value.
func isActive(act Activation, url *common.URL) bool {
	if len(act.Keys) == 0 {
		return true
	}
	for _, key := range act.Keys {
		for k, v := range url.Params() {
			if (k == key || strings.HasSuffix(k, "."+key)) && v != "" {
				return true
			}
		}
	}
	return false
}
