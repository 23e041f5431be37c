// Package luaparse provides the lexical helpers used to read game Lua scripts without
// executing them: comment stripping, balanced bracket matching, top-level splitting,
// call-site extraction and table-constructor parsing.
package luaparse

import "strings"

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

// longBracketLevel returns the number of '=' in a long bracket opener [=*[ at i, or -1.
func longBracketLevel(text string, i int) int {
	n := len(text)
	if i >= n || text[i] != '[' {
		return -1
	}
	j := i + 1
	for j < n && text[j] == '=' {
		j++
	}
	if j < n && text[j] == '[' {
		return j - i - 1
	}
	return -1
}

func skipLongBracket(text string, i, level int) int {
	start := i + 2 + level
	closer := "]" + strings.Repeat("=", level) + "]"
	if start > len(text) {
		return len(text)
	}
	end := strings.Index(text[start:], closer)
	if end == -1 {
		return len(text)
	}
	return start + end + len(closer)
}

func skipShortString(text string, i int, quote byte) int {
	n := len(text)
	i++
	for i < n {
		ch := text[i]
		if ch == '\\' {
			i += 2
			continue
		}
		if ch == quote {
			return i + 1
		}
		i++
	}
	return n
}

// skipComment expects text[i:] to start with "--" and returns the index after the
// line or block comment.
func skipComment(text string, i int) int {
	n := len(text)
	if !strings.HasPrefix(text[i:], "--") {
		return i
	}
	if i+2 < n && text[i+2] == '[' {
		if level := longBracketLevel(text, i+2); level >= 0 {
			return skipLongBracket(text, i+2, level)
		}
	}
	nl := strings.IndexByte(text[i+2:], '\n')
	if nl == -1 {
		return n
	}
	return i + 2 + nl + 1
}

// skipStringOrLongString returns the index after a string literal starting at i, or -1.
func skipStringOrLongString(text string, i int) int {
	if i >= len(text) {
		return -1
	}
	switch ch := text[i]; ch {
	case '\'', '"':
		return skipShortString(text, i, ch)
	case '[':
		if level := longBracketLevel(text, i); level >= 0 {
			return skipLongBracket(text, i, level)
		}
	}
	return -1
}

func isCommentStart(text string, i int) bool {
	return i+1 < len(text) && text[i] == '-' && text[i+1] == '-'
}

// StripComments removes line and block comments while keeping every newline so that
// line numbers stay stable. String literals are left untouched.
func StripComments(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	n := len(text)
	i := 0
	for i < n {
		if isCommentStart(text, i) {
			j := skipComment(text, i)
			b.WriteString(strings.Repeat("\n", strings.Count(text[i:j], "\n")))
			i = j
			continue
		}
		if next := skipStringOrLongString(text, i); next >= 0 {
			b.WriteString(text[i:next])
			i = next
			continue
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}
