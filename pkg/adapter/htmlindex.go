// Package adapter implements the surfaces ampm exposes beyond the
// artifact model itself: URI parsing for `file://`/`nfs://`
// repository identifiers, a path-traversal guard shared by every
// boundary that accepts a remote path, and an HTML index template
// renderer for `list -f index-webpage`/`search`.
package adapter

import (
	"fmt"
	"regexp"
	"strings"
)

// spanType distinguishes literal text from a `{{marker}}`.
type spanType int

const (
	spanText spanType = iota
	spanMarker
)

type span struct {
	contents string
	kind     spanType
}

// markerPattern matches ampm/webpage_template_formatter.py's
// `\{\{([a-zA-Z_][a-zA-Z0-9_ ]+)}}`.
var markerPattern = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_ ]+)}}`)

// Context is the lookup environment for template markers: plain
// string values, or slices of nested Contexts for `{{foreach key}}`
// blocks.
type Context map[string]any

// FormatPage renders template against context, mirroring
// format_page/_format_span_list: `{{key}}` substitutes a scalar value,
// and `{{foreach key}}...{{end foreach key}}` iterates a
// []Context value, merging each item's keys over the enclosing
// context for the nested render.
func FormatPage(template string, context Context) (string, error) {
	spans := tokenize(template)
	var b strings.Builder
	if err := formatSpanList(spans, context, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func tokenize(template string) []span {
	var spans []span
	lastEnd := 0
	for _, loc := range markerPattern.FindAllStringSubmatchIndex(template, -1) {
		start, end := loc[0], loc[1]
		groupStart, groupEnd := loc[2], loc[3]
		spans = append(spans, span{contents: template[lastEnd:start], kind: spanText})
		spans = append(spans, span{contents: template[groupStart:groupEnd], kind: spanMarker})
		lastEnd = end
	}
	spans = append(spans, span{contents: template[lastEnd:], kind: spanText})
	return spans
}

func formatSpanList(spans []span, context Context, out *strings.Builder) error {
	i := 0
	for i < len(spans) {
		s := spans[i]
		i++

		if s.kind == spanText {
			out.WriteString(s.contents)
			continue
		}

		switch {
		case strings.HasPrefix(s.contents, "foreach "):
			key := strings.TrimPrefix(s.contents, "foreach ")
			endMarker := "end " + s.contents

			var inner []span
			for {
				if i >= len(spans) {
					return fmt.Errorf("adapter: unterminated {{%s}} block", s.contents)
				}
				next := spans[i]
				i++
				if next.kind == spanMarker && next.contents == endMarker {
					break
				}
				inner = append(inner, next)
			}

			items, ok := context[key].([]Context)
			if !ok {
				return fmt.Errorf("adapter: {{foreach %s}} requires a []Context value in context", key)
			}
			for _, item := range items {
				merged := make(Context, len(context)+len(item))
				for k, v := range context {
					merged[k] = v
				}
				for k, v := range item {
					merged[k] = v
				}
				if err := formatSpanList(inner, merged, out); err != nil {
					return err
				}
			}

		case !strings.Contains(s.contents, " "):
			value, ok := context[s.contents]
			if !ok {
				return fmt.Errorf("adapter: undefined marker {{%s}}", s.contents)
			}
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("adapter: marker {{%s}} is not a string value", s.contents)
			}
			out.WriteString(str)

		default:
			return fmt.Errorf("adapter: invalid marker: `%s`", s.contents)
		}
	}
	return nil
}
