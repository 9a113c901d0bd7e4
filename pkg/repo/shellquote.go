package repo

import (
	"regexp"
	"strings"
)

// shellSafePattern matches ampm/repo/local.py's reliance on Python's
// shlex.quote: a string needs no quoting only if it consists solely
// of characters that are safe unquoted in POSIX shells.
var shellSafePattern = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// shellQuote returns s quoted for safe inclusion in a POSIX shell
// command line, mirroring Python's shlex.quote (used by
// ampm/repo/local.py's format_env_file to build `export K=V` lines).
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafePattern.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
