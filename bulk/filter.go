package bulk

import (
	"regexp"
	"time"

	"github.com/marcboeker/s3xfer/internal/fileutils"
	"github.com/marcboeker/s3xfer/internal/sliceutils"
)

// Filter selects which enumerated paths a bulk run actually transfers. A
// path is kept iff it matches no Exclude pattern AND (Only is empty or it
// matches at least one Only pattern), then, if any FileRule fields are
// set, iff it also satisfies the rule.
type Filter struct {
	Only    []string
	Exclude []string
	Rule    FileRule
}

// FileRule carries the teacher's size/extension/mtime/name-pattern
// predicates, adapted as an optional extra filter stage layered on top of
// the glob lists.
type FileRule struct {
	MaxFileSize        int64
	MinFileSize        int64
	ExtensionWhitelist []string
	ExtensionBlacklist []string
	ModifiedAfter      time.Time
	ModifiedBefore     time.Time
	FileNamePattern    *regexp.Regexp
}

// Candidate is the subset of file info a Filter needs to decide.
type Candidate struct {
	Path    string // slash-separated logical path relative to the transfer root
	Size    int64
	ModTime time.Time
}

// Keep reports whether c should be transferred.
func (f Filter) Keep(c Candidate) bool {
	for _, pat := range f.Exclude {
		if globMatch(pat, c.Path) {
			return false
		}
	}
	if len(f.Only) > 0 {
		matched := false
		for _, pat := range f.Only {
			if globMatch(pat, c.Path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return f.Rule.check(c)
}

// check applies the file-rule predicates, true (keep) unless a predicate
// is configured and fails.
func (r FileRule) check(c Candidate) bool {
	if r.MaxFileSize > 0 && c.Size > r.MaxFileSize {
		return false
	}
	if r.MinFileSize > 0 && c.Size < r.MinFileSize {
		return false
	}
	_, _, ext, err := fileutils.ExtractFileParts(c.Path)
	if err == nil {
		if len(r.ExtensionWhitelist) > 0 && !sliceutils.Contains(r.ExtensionWhitelist, ext) {
			return false
		}
		if len(r.ExtensionBlacklist) > 0 && sliceutils.Contains(r.ExtensionBlacklist, ext) {
			return false
		}
	}
	if !r.ModifiedAfter.IsZero() && c.ModTime.Before(r.ModifiedAfter) {
		return false
	}
	if !r.ModifiedBefore.IsZero() && c.ModTime.After(r.ModifiedBefore) {
		return false
	}
	if r.FileNamePattern != nil {
		_, name, ext, err := fileutils.ExtractFileParts(c.Path)
		if err == nil {
			base := name
			if ext != "" {
				base = name + "." + ext
			}
			if !r.FileNamePattern.MatchString(base) {
				return false
			}
		}
	}
	return true
}

// globMatch reports whether path matches pattern, where '?' matches one
// non-slash character, '*' matches zero or more non-slash characters, and
// '**' matches zero or more characters including slashes. Any other rune
// is literal.
func globMatch(pattern, path string) bool {
	return matchSegments(splitTokens(pattern), path)
}

type token struct {
	kind byte // 'l' literal rune, '?' single, '*' star, '+' doublestar
	lit  rune
}

func splitTokens(pattern string) []token {
	runes := []rune(pattern)
	tokens := make([]token, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				tokens = append(tokens, token{kind: '+'})
				i++
			} else {
				tokens = append(tokens, token{kind: '*'})
			}
		case '?':
			tokens = append(tokens, token{kind: '?'})
		default:
			tokens = append(tokens, token{kind: 'l', lit: runes[i]})
		}
	}
	return tokens
}

// matchSegments runs a standard backtracking glob match over tokens
// against s, the only state needed since '+' (the "**" token) is the one
// construct allowed to consume '/'.
func matchSegments(tokens []token, s string) bool {
	runes := []rune(s)
	return matchFrom(tokens, runes)
}

func matchFrom(tokens []token, s []rune) bool {
	if len(tokens) == 0 {
		return len(s) == 0
	}
	t := tokens[0]
	switch t.kind {
	case 'l':
		if len(s) == 0 || s[0] != t.lit {
			return false
		}
		return matchFrom(tokens[1:], s[1:])
	case '?':
		if len(s) == 0 || s[0] == '/' {
			return false
		}
		return matchFrom(tokens[1:], s[1:])
	case '*':
		for i := 0; i <= len(s); i++ {
			if i > 0 && s[i-1] == '/' {
				break
			}
			if matchFrom(tokens[1:], s[i:]) {
				return true
			}
		}
		return false
	case '+':
		for i := 0; i <= len(s); i++ {
			if matchFrom(tokens[1:], s[i:]) {
				return true
			}
		}
		return false
	}
	return false
}
