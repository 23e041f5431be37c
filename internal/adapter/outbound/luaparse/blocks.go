package luaparse

import "strings"

// FunctionEnd returns the index just past the "end" that closes the function whose
// keyword starts at start, or -1.
func FunctionEnd(text string, start int) int {
	if start < 0 || !strings.HasPrefix(text[start:], "function") {
		return -1
	}
	n := len(text)
	blocks := []block{{kind: "function"}}
	i := start + len("function")
	for i < n && len(blocks) > 0 {
		if isCommentStart(text, i) {
			i = skipComment(text, i)
			continue
		}
		if next := skipStringOrLongString(text, i); next >= 0 {
			i = next
			continue
		}
		if !isIdentStart(text[i]) {
			i++
			continue
		}
		j := i + 1
		for j < n && isIdentChar(text[j]) {
			j++
		}
		word := text[i:j]
		if precededByMemberOp(text, i) {
			i = j
			continue
		}
		blocks = trackBlock(blocks, word)
		if len(blocks) == 0 && (word == "end" || word == "until") {
			return j
		}
		i = j
	}
	return -1
}

// NamedBlock is a top-level "name = { ... }" field of a table body.
type NamedBlock struct {
	Name string
	Body string
}

// NamedTableBlocks walks the inside of a table constructor and returns every top-level
// field whose value is itself a table constructor, in source order.
func NamedTableBlocks(body string) []NamedBlock {
	n := len(body)
	var out []NamedBlock
	depth := 0
	i := 0
	for i < n {
		if isCommentStart(body, i) {
			i = skipComment(body, i)
			continue
		}
		if next := skipStringOrLongString(body, i); next >= 0 {
			i = next
			continue
		}
		ch := body[i]
		switch {
		case ch == '{' || ch == '(':
			depth++
			i++
			continue
		case ch == '}' || ch == ')':
			if depth > 0 {
				depth--
			}
			i++
			continue
		case depth > 0 || !isIdentStart(ch):
			i++
			continue
		}

		j := i + 1
		for j < n && isIdentChar(body[j]) {
			j++
		}
		name := body[i:j]
		k := j
		for k < n && isSpace(body[k]) {
			k++
		}
		if k < n && body[k] == '=' && (k+1 >= n || body[k+1] != '=') {
			k++
			for k < n && isSpace(body[k]) {
				k++
			}
			if k < n && body[k] == '{' {
				if closeIdx := FindMatching(body, k, '{', '}'); closeIdx >= 0 {
					out = append(out, NamedBlock{Name: name, Body: body[k+1 : closeIdx]})
					i = closeIdx + 1
					continue
				}
			}
		}
		i = j
	}
	return out
}

// TableAfter returns the body of the table constructor whose opening brace is at openIdx.
func TableAfter(text string, openIdx int) (string, bool) {
	if openIdx < 0 {
		return "", false
	}
	closeIdx := FindMatching(text, openIdx, '{', '}')
	if closeIdx < 0 {
		return "", false
	}
	return text[openIdx+1 : closeIdx], true
}
