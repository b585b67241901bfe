package extension

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/halcyon-dev/halcyon/errors"
)

// resourceDirs lists the scanned directories in decreasing precedence.
// Internal framework bindings come first, then host bindings, then the
// generic services directory; a name bound by an earlier directory is not
// overridden by a later one.
func resourceDirs() []string {
	return []string{
		"META-INF/" + Framework + "/internal",
		"META-INF/" + Framework,
		"META-INF/services",
	}
}

// scanResources enumerates the point's resource files across every scan
// root and builds the class set. Resource-level IO failures are logged and
// skipped; line-level failures are captured into the set's failure table.
func (l *Loader) scanResources() *classSet {
	cs := newClassSet()
	for _, dir := range resourceDirs() {
		name := path.Join(dir, l.point.name)
		for _, root := range l.env.scanRoots() {
			data, err := fs.ReadFile(root, name)
			if err != nil {
				if !isNotExist(err) {
					l.env.logger.Warn("failed to read extension resource",
						"point", l.point.name, "resource", name, "error", err)
				}
				continue
			}
			l.parseResource(cs, name, string(data))
		}
	}
	return cs
}

func isNotExist(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist)
}

// parseResource processes one UTF-8 resource file line by line. The
// grammar: '#' starts a comment to end of line; effective lines are
// "NAME_LIST = LITERAL" or "LITERAL" alone; NAME_LIST is a comma-separated
// alias list.
func (l *Loader) parseResource(cs *classSet, resource, content string) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name := ""
		literal := line
		if i := strings.Index(line, "="); i > 0 {
			name = strings.TrimSpace(line[:i])
			literal = strings.TrimSpace(line[i+1:])
		}
		if literal == "" {
			continue
		}

		cls, ok := l.env.classByLiteral(literal)
		if !ok {
			cs.failures[literal] = errors.WrapLoad(
				fmt.Errorf("%w: %q bound in %s for extension point %s",
					errors.ErrClassNotRegistered, literal, resource, l.point.name),
				"Loader", "parseResource", "class resolution")
			continue
		}
		l.registerClass(cs, cls, name)
	}
}
