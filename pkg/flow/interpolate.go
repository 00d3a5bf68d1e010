package flow

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Interpolate substitutes {{key}} placeholders recursively through strings,
// maps, and slices. Keys use dotted paths into the context ("login.token").
// Unresolved placeholders pass through unchanged. A string that is exactly
// one placeholder resolves to the looked-up value itself, keeping its type.
func Interpolate(v any, ctx map[string]any) any {
	switch val := v.(type) {
	case string:
		return interpolateString(val, ctx)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Interpolate(item, ctx)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Interpolate(item, ctx)
		}
		return out
	default:
		return v
	}
}

// InterpolateHeaders applies placeholder substitution to each header value.
func InterpolateHeaders(headers map[string]string, ctx map[string]any) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = fmt.Sprint(interpolateString(v, ctx))
	}
	return out
}

func interpolateString(s string, ctx map[string]any) any {
	// Whole-string placeholder keeps the resolved value's type.
	if m := placeholderRe.FindStringSubmatch(s); m != nil && m[0] == s {
		if v, ok := lookup(m[1], ctx); ok {
			return v
		}
		return s
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(ph string) string {
		key := strings.TrimSpace(ph[2 : len(ph)-2])
		if v, ok := lookup(key, ctx); ok {
			return fmt.Sprint(v)
		}
		return ph
	})
}

// lookup walks a dotted path through nested maps.
func lookup(path string, ctx map[string]any) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = ctx
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
