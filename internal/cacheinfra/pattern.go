package cacheinfra

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher reports whether a key matches any of a set of compiled patterns.
//
// Patterns use the redis MATCH dialect: "*", "?", "[abc]", "[a-z]", "[^a]" for a
// negated class and "\" to escape. Braces and commas are literal. No separators are
// configured, so "*" also spans "/" and ":". A class holds either a set of
// characters or a single range; "[a-cx]" is rejected.
type Matcher []glob.Glob

// CompilePatterns compiles redis style patterns into a Matcher.
func CompilePatterns(patterns []string) (Matcher, error) {
	m := make(Matcher, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(redisToGlob(p))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		m = append(m, g)
	}
	return m, nil
}

// redisToGlob rewrites a redis pattern into the gobwas/glob syntax. gobwas reads
// "{a,b}" as alternatives and "[!a]" as negation, redis reads both literally and
// negates with "[^a]".
func redisToGlob(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern) + 4)

	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			b.WriteByte(c)
			i++
			b.WriteByte(pattern[i])
		case inClass:
			if c == ']' {
				inClass = false
			}
			b.WriteByte(c)
		case c == '[':
			inClass = true
			b.WriteByte(c)
			if i+1 < len(pattern) {
				switch pattern[i+1] {
				case '^':
					b.WriteByte('!')
					i++
				case '!':
					b.WriteString(`\!`)
					i++
				}
			}
		case c == '{' || c == '}' || c == ',':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Match reports whether key matches any pattern.
func (m Matcher) Match(key string) bool {
	for _, g := range m {
		if g.Match(key) {
			return true
		}
	}
	return false
}

// Filter returns the keys accepted by m, sorted.
func (m Matcher) Filter(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if m.Match(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
