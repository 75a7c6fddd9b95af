package dispatch

import "strings"

// maxExpandDepth bounds recursive substitution so a variable that refers
// to itself cannot loop forever.
const maxExpandDepth = 8

// Expand substitutes {name} placeholders in s from vars. Substituted
// values may themselves contain placeholders; expansion repeats until the
// text is stable or the depth bound is hit. Unknown placeholders are left
// as written.
func Expand(s string, vars map[string]string) string {
	for range maxExpandDepth {
		expanded := expandOnce(s, vars)
		if expanded == s {
			return expanded
		}
		s = expanded
	}
	return s
}

func expandOnce(s string, vars map[string]string) string {
	if !strings.ContainsRune(s, '{') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			b.WriteString(s)
			return b.String()
		}
		closing := strings.IndexByte(s[open:], '}')
		if closing < 0 {
			b.WriteString(s)
			return b.String()
		}
		closing += open

		name := s[open+1 : closing]
		value, ok := vars[name]
		if !ok {
			b.WriteString(s[:closing+1])
			s = s[closing+1:]
			continue
		}

		b.WriteString(s[:open])
		b.WriteString(value)
		s = s[closing+1:]
	}
}
