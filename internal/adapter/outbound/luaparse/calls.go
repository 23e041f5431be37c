package luaparse

import "sort"

var luaKeywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true, "end": true,
	"false": true, "for": true, "function": true, "goto": true, "if": true, "in": true,
	"local": true, "nil": true, "not": true, "or": true, "repeat": true, "return": true,
	"then": true, "true": true, "until": true, "while": true,
}

// Call is one call site with balanced arguments.
type Call struct {
	Name     string
	FullName string
	Args     string
	ArgList  []string
	Start    int
	End      int
	Line     int
	Col      int
}

// CallOptions selects call sites. Names are matched against the last segment of a
// member chain unless FullName is set. MemberCalls enables a.f(...) and a:f(...) forms;
// without it only bare f(...) calls match.
type CallOptions struct {
	Names       []string
	MemberCalls bool
	FullName    bool
}

// Calls returns every matching call in text, in source order. The arguments of a
// matched call are not scanned for further matches; callers run Calls again on Args
// for nested helpers.
func Calls(text string, opts CallOptions) []Call {
	targets := make(map[string]bool, len(opts.Names))
	for _, name := range opts.Names {
		targets[name] = true
	}
	lines := newLineIndex(text)

	var out []Call
	n := len(text)
	i := 0
	for i < n {
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
		first := text[i:j]
		if luaKeywords[first] {
			i = j
			continue
		}

		full, last, k := first, first, j
		if opts.MemberCalls {
			full, last, k = memberChain(text, full, k)
		} else if precededByMemberOp(text, i) {
			i = j
			continue
		}

		hit := targets[last]
		if opts.FullName {
			hit = targets[full]
		}
		if hit {
			kk := k
			for kk < n && isSpace(text[kk]) {
				kk++
			}
			if kk < n && text[kk] == '(' {
				if closeIdx := FindMatching(text, kk, '(', ')'); closeIdx >= 0 {
					args := text[kk+1 : closeIdx]
					line, col := lines.position(i)
					out = append(out, Call{
						Name:     last,
						FullName: full,
						Args:     args,
						ArgList:  SplitArgs(args),
						Start:    i,
						End:      closeIdx + 1,
						Line:     line,
						Col:      col,
					})
					i = closeIdx + 1
					continue
				}
			}
		}
		i = k
	}
	return out
}

// memberChain extends an identifier with .ident and :ident segments.
func memberChain(text, full string, k int) (string, string, int) {
	n := len(text)
	last := full
	for {
		kk := k
		for kk < n && isSpace(text[kk]) {
			kk++
		}
		if kk >= n || (text[kk] != '.' && text[kk] != ':') {
			break
		}
		sep := text[kk]
		kk++
		for kk < n && isSpace(text[kk]) {
			kk++
		}
		if kk >= n || !isIdentStart(text[kk]) {
			break
		}
		jj := kk + 1
		for jj < n && isIdentChar(text[jj]) {
			jj++
		}
		last = text[kk:jj]
		full = full + string(sep) + last
		k = jj
	}
	return full, last, k
}

func precededByMemberOp(text string, i int) bool {
	for p := i - 1; p >= 0; p-- {
		if isSpace(text[p]) {
			continue
		}
		return text[p] == '.' || text[p] == ':'
	}
	return false
}

// SplitArgs splits a call argument list and drops empty entries.
func SplitArgs(args string) []string {
	parts := SplitTopLevel(args, ',')
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type lineIndex []int

func newLineIndex(text string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// position returns the 1-based line and column of pos.
func (l lineIndex) position(pos int) (int, int) {
	i := sort.Search(len(l), func(i int) bool { return l[i] > pos }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, pos - l[i] + 1
}

// LineOf returns the 1-based line number of pos in text.
func LineOf(text string, pos int) int {
	line, _ := newLineIndex(text).position(pos)
	return line
}
