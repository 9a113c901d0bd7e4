package cmdutil

import (
	"fmt"
	"strings"

	"github.com/Wazzaps/ampm/pkg/apperr"
)

// ParseKV turns a repeated "-a key=value" flag's collected strings
// into a map, mirroring the CLI's `-a k=v` / `-e k=v` option pairs.
func ParseKV(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, &apperr.ValidationError{Field: "attribute", Reason: fmt.Sprintf("expected key=value, got: %s", p)}
		}
		out[key] = value
	}
	return out, nil
}
