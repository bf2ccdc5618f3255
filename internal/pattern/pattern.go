package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Compile converts a glob-style file pattern into an anchored, case-insensitive
// regular expression. `*` matches any run of characters, `?` matches exactly
// one character, and `{a,b}` matches either alternative. Every other character
// is literal. Compile fails on unbalanced brace groups; callers treat a failed
// compile as "matches nothing" rather than aborting the watch.
func Compile(glob string) (*regexp.Regexp, error) {
	expr, err := translate(glob)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", glob, err)
	}
	return re, nil
}

// Matches reports whether filename matches the glob pattern. The match is
// case-insensitive and anchored to the whole filename. A malformed pattern
// returns false along with the compile error so the caller can log it.
func Matches(filename, glob string) (bool, error) {
	re, err := Compile(glob)
	if err != nil {
		return false, err
	}
	return re.MatchString(filename), nil
}

// FindMatch returns the index of the first glob in list order that matches
// filename. Malformed globs are skipped. Returns -1 when nothing matches.
func FindMatch(filename string, globs []string) int {
	for i, glob := range globs {
		ok, err := Matches(filename, glob)
		if err != nil {
			continue
		}
		if ok {
			return i
		}
	}
	return -1
}

func translate(glob string) (string, error) {
	var sb strings.Builder
	sb.WriteString("(?i)^")

	depth := 0
	for _, r := range glob {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteByte('.')
		case '{':
			depth++
			sb.WriteString("(?:")
		case '}':
			depth--
			if depth < 0 {
				return "", fmt.Errorf("pattern %q: unbalanced brace group", glob)
			}
			sb.WriteByte(')')
		case ',':
			if depth > 0 {
				sb.WriteByte('|')
			} else {
				sb.WriteString(regexp.QuoteMeta(string(r)))
			}
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if depth != 0 {
		return "", fmt.Errorf("pattern %q: unbalanced brace group", glob)
	}

	sb.WriteByte('$')
	return sb.String(), nil
}
