package matching

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// IsLiteral reports whether the pattern contains no wildcards, params, or
// regex markers and can be matched by string equality.
func IsLiteral(pattern string) bool {
	return !strings.HasPrefix(pattern, "^") &&
		!strings.Contains(pattern, ":") &&
		!strings.Contains(pattern, "*")
}

// regexCache caches compiled regex patterns. Patterns come from test
// configuration, so the set is small and never evicted.
var regexCache sync.Map // pattern string -> *regexp.Regexp (nil for invalid)

func compileCached(pattern string) *regexp.Regexp {
	if cached, ok := regexCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}
	regexCache.Store(pattern, re)
	return re
}

// Match reports whether path matches pattern and returns any captured
// parameters: named :param segments, regex named groups, or positional
// wildcard captures keyed "0", "1", ...
func Match(pattern, path string) (bool, map[string]string) {
	// Exact match
	if pattern == path {
		return true, nil
	}

	// Regex pattern
	if strings.HasPrefix(pattern, "^") {
		return matchRegex(pattern, path)
	}

	// Named params and single-segment wildcards
	if strings.Contains(pattern, ":") {
		return matchNamedParams(pattern, path)
	}

	// Cross-segment glob
	if strings.Contains(pattern, "**") {
		ok, err := doublestar.Match(pattern, path)
		if err != nil || !ok {
			return false, nil
		}
		return true, nil
	}

	// Plain wildcard
	if strings.Contains(pattern, "*") {
		if matchWildcard(pattern, path) {
			return true, captureWildcards(pattern, path)
		}
		return false, nil
	}

	return false, nil
}

// matchRegex matches path against a compiled regex pattern. Invalid patterns
// gracefully yield no match. Named capture groups become params.
func matchRegex(pattern, path string) (bool, map[string]string) {
	re := compileCached(pattern)
	if re == nil {
		return false, nil
	}
	m := re.FindStringSubmatch(path)
	if m == nil {
		return false, nil
	}
	captures := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i > 0 && name != "" && i < len(m) {
			captures[name] = m[i]
		}
	}
	return true, captures
}

// matchNamedParams checks a pattern with :param segments.
// Example: "/users/:id" matches "/users/123" with {"id": "123"}.
// A "*" segment matches any single segment; a trailing "**" segment matches
// the rest of the path.
func matchNamedParams(pattern, path string) (bool, map[string]string) {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	params := make(map[string]string)
	wildcardIndex := 0

	for i, part := range patternParts {
		// Trailing ** swallows the remainder
		if part == "**" && i == len(patternParts)-1 {
			if i < len(pathParts) {
				params[strconv.Itoa(wildcardIndex)] = strings.Join(pathParts[i:], "/")
			}
			return true, params
		}

		if i >= len(pathParts) {
			return false, nil
		}

		switch {
		case strings.HasPrefix(part, ":"):
			params[part[1:]] = pathParts[i]
		case part == "*":
			params[strconv.Itoa(wildcardIndex)] = pathParts[i]
			wildcardIndex++
		default:
			if part != pathParts[i] {
				return false, nil
			}
		}
	}

	if len(patternParts) != len(pathParts) {
		return false, nil
	}
	return true, params
}

// matchWildcard performs simple wildcard pattern matching.
// * matches any sequence of characters.
func matchWildcard(pattern, path string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == path
	}

	// Anchor the first and last literal chunks, scan the middle ones.
	if !strings.HasPrefix(path, parts[0]) {
		return false
	}
	pos := len(parts[0])

	for i := 1; i < len(parts); i++ {
		part := parts[i]
		if part == "" {
			continue
		}
		if i == len(parts)-1 {
			return strings.HasSuffix(path[pos:], part)
		}
		idx := strings.Index(path[pos:], part)
		if idx == -1 {
			return false
		}
		pos += idx + len(part)
	}
	return true
}

// captureWildcards extracts the text matched by each * in the pattern,
// keyed positionally ("0", "1", ...). Conversion to a regex keeps capture
// extraction simple and correct for adjacent literals.
func captureWildcards(pattern, path string) map[string]string {
	var b strings.Builder
	b.WriteString("^")
	for i, part := range strings.Split(pattern, "*") {
		if i > 0 {
			b.WriteString("(.*)")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	b.WriteString("$")

	re := compileCached(b.String())
	if re == nil {
		return nil
	}
	m := re.FindStringSubmatch(path)
	if m == nil {
		return nil
	}
	captures := make(map[string]string, len(m)-1)
	for i := 1; i < len(m); i++ {
		captures[strconv.Itoa(i-1)] = m[i]
	}
	return captures
}
