package luaparse

import "strings"

type block struct {
	kind       string
	awaitingDo bool
}

// SplitTopLevel splits text on sep where sep is outside brackets, strings, comments
// and Lua blocks (function/if/for/while/repeat/do ... end/until). Parts are trimmed and
// a trailing empty part is dropped.
func SplitTopLevel(text string, sep byte) []string {
	if text == "" {
		return nil
	}
	n := len(text)
	var parts []string
	var brackets []byte
	var blocks []block
	start, i := 0, 0

	for i < n {
		if isCommentStart(text, i) {
			i = skipComment(text, i)
			continue
		}
		if next := skipStringOrLongString(text, i); next >= 0 {
			i = next
			continue
		}
		ch := text[i]
		switch {
		case ch == '(' || ch == '{' || ch == '[':
			brackets = append(brackets, ch)
			i++
			continue
		case ch == ')' || ch == '}' || ch == ']':
			if len(brackets) > 0 && brackets[len(brackets)-1] == closerOf[ch] {
				brackets = brackets[:len(brackets)-1]
			}
			i++
			continue
		case isIdentStart(ch):
			j := i + 1
			for j < n && isIdentChar(text[j]) {
				j++
			}
			blocks = trackBlock(blocks, text[i:j])
			i = j
			continue
		case ch == sep && len(brackets) == 0 && len(blocks) == 0:
			parts = append(parts, strings.TrimSpace(text[start:i]))
			start = i + 1
		}
		i++
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

func trackBlock(blocks []block, word string) []block {
	switch word {
	case "function", "if", "repeat":
		return append(blocks, block{kind: word})
	case "for", "while":
		return append(blocks, block{kind: word, awaitingDo: true})
	case "do":
		if len(blocks) > 0 {
			top := &blocks[len(blocks)-1]
			if (top.kind == "for" || top.kind == "while") && top.awaitingDo {
				top.awaitingDo = false
				return blocks
			}
		}
		return append(blocks, block{kind: "do"})
	case "end":
		if len(blocks) > 0 {
			return blocks[:len(blocks)-1]
		}
	case "until":
		for idx := len(blocks) - 1; idx >= 0; idx-- {
			if blocks[idx].kind == "repeat" {
				return blocks[:idx]
			}
		}
	}
	return blocks
}
