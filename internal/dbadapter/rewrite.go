package dbadapter

import (
	"fmt"
	"regexp"
	"strings"
)

var namedParamRe = regexp.MustCompile(`:([a-zA-Z_][a-zA-Z0-9_]*)`)

// rewritePositional rewrites every ":name" occurrence in query into the
// backend's positional placeholder (built by posPlaceholder, e.g. "?" or
// "$%d"), returning the rewritten SQL and the ordered argument slice. Used
// by backends (postgres, sqlite via database/sql's "?" form) whose driver
// does not accept repeated named parameters inline.
func rewritePositional(query string, named map[string]interface{}, posPlaceholder func(idx int) string) (string, []interface{}, error) {
	var missing []string
	args := make([]interface{}, 0, len(named))
	idx := 0

	rewritten := namedParamRe.ReplaceAllStringFunc(query, func(tok string) string {
		name := tok[1:]
		val, ok := named[name]
		if !ok {
			missing = append(missing, name)
			return tok
		}
		idx++
		args = append(args, val)
		return posPlaceholder(idx)
	})

	if len(missing) > 0 {
		return "", nil, fmt.Errorf("missing bind value(s) for %s", strings.Join(missing, ", "))
	}
	return rewritten, args, nil
}

func postgresPlaceholder(idx int) string { return fmt.Sprintf("$%d", idx) }
func qmarkPlaceholder(idx int) string    { return "?" }
