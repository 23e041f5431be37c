package luaparse

var closerOf = map[byte]byte{')': '(', '}': '{', ']': '['}

// FindMatching returns the index of the bracket that closes the one at openIdx, or -1
// when text[openIdx] is not open or the bracket is never closed. Brackets inside
// strings, long strings and comments are ignored.
func FindMatching(text string, openIdx int, open, close byte) int {
	n := len(text)
	if openIdx < 0 || openIdx >= n || text[openIdx] != open {
		return -1
	}
	stack := []byte{open}
	i := openIdx + 1
	for i < n && len(stack) > 0 {
		if isCommentStart(text, i) {
			i = skipComment(text, i)
			continue
		}
		if next := skipStringOrLongString(text, i); next >= 0 {
			i = next
			continue
		}
		ch := text[i]
		switch ch {
		case '(', '{', '[':
			stack = append(stack, ch)
		case ')', '}', ']':
			if stack[len(stack)-1] == closerOf[ch] {
				stack = stack[:len(stack)-1]
			}
		}
		i++
	}
	if len(stack) > 0 {
		return -1
	}
	return i - 1
}
