package tuning

import (
	"math"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

// tokenize splits an arithmetic expression. It fails on anything outside numbers,
// dotted identifiers, parentheses, commas and + - * / % ^.
func tokenize(expr string) ([]token, bool) {
	var out []token
	i := 0
	for i < len(expr) {
		ch := expr[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch >= '0' && ch <= '9' || ch == '.' && i+1 < len(expr) && expr[i+1] >= '0' && expr[i+1] <= '9':
			j := i
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.') {
				j++
			}
			if j < len(expr) && (expr[j] == 'e' || expr[j] == 'E') {
				k := j + 1
				if k < len(expr) && (expr[k] == '+' || expr[k] == '-') {
					k++
				}
				if k < len(expr) && expr[k] >= '0' && expr[k] <= '9' {
					for k < len(expr) && expr[k] >= '0' && expr[k] <= '9' {
						k++
					}
					j = k
				}
			}
			f, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, false
			}
			out = append(out, token{kind: tokNumber, text: expr[i:j], num: f})
			i = j
		case ch == '_' || ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z':
			j := i + 1
			for j < len(expr) && (expr[j] == '_' || expr[j] == '.' ||
				expr[j] >= 'A' && expr[j] <= 'Z' || expr[j] >= 'a' && expr[j] <= 'z' || expr[j] >= '0' && expr[j] <= '9') {
				j++
			}
			out = append(out, token{kind: tokIdent, text: strings.TrimRight(expr[i:j], ".")})
			i = j
		case strings.IndexByte("+-*/%^(),", ch) >= 0:
			out = append(out, token{kind: tokOp, text: string(ch)})
			i++
		default:
			return nil, false
		}
	}
	return out, len(out) > 0
}

// evaluator is a recursive descent parser over Lua arithmetic precedence:
// + - below * / % below unary minus below ^ (right associative).
type evaluator struct {
	toks    []token
	pos     int
	resolve func(name string) (float64, bool)
}

func (e *evaluator) peek() (token, bool) {
	if e.pos >= len(e.toks) {
		return token{}, false
	}
	return e.toks[e.pos], true
}

func (e *evaluator) acceptOp(ops string) (string, bool) {
	t, ok := e.peek()
	if !ok || t.kind != tokOp || !strings.Contains(ops, t.text) {
		return "", false
	}
	e.pos++
	return t.text, true
}

func (e *evaluator) parseSum() (float64, bool) {
	left, ok := e.parseProduct()
	if !ok {
		return 0, false
	}
	for {
		op, ok := e.acceptOp("+-")
		if !ok {
			return left, true
		}
		right, ok := e.parseProduct()
		if !ok {
			return 0, false
		}
		if op == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

func (e *evaluator) parseProduct() (float64, bool) {
	left, ok := e.parseUnary()
	if !ok {
		return 0, false
	}
	for {
		op, ok := e.acceptOp("*/%")
		if !ok {
			return left, true
		}
		right, ok := e.parseUnary()
		if !ok {
			return 0, false
		}
		switch op {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, false
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, false
			}
			left -= math.Floor(left/right) * right
		}
	}
}

func (e *evaluator) parseUnary() (float64, bool) {
	if _, ok := e.acceptOp("-"); ok {
		v, ok := e.parseUnary()
		return -v, ok
	}
	if _, ok := e.acceptOp("+"); ok {
		return e.parseUnary()
	}
	return e.parsePower()
}

func (e *evaluator) parsePower() (float64, bool) {
	base, ok := e.parsePrimary()
	if !ok {
		return 0, false
	}
	if _, ok := e.acceptOp("^"); ok {
		exp, ok := e.parseUnary()
		if !ok {
			return 0, false
		}
		return math.Pow(base, exp), true
	}
	return base, true
}

func (e *evaluator) parsePrimary() (float64, bool) {
	t, ok := e.peek()
	if !ok {
		return 0, false
	}
	switch t.kind {
	case tokNumber:
		e.pos++
		return t.num, true
	case tokIdent:
		e.pos++
		if _, call := e.acceptOp("("); call {
			return e.parseCall(t.text)
		}
		return e.resolve(t.text)
	default:
		if t.text != "(" {
			return 0, false
		}
		e.pos++
		v, ok := e.parseSum()
		if !ok {
			return 0, false
		}
		if _, ok := e.acceptOp(")"); !ok {
			return 0, false
		}
		return v, true
	}
}

// parseCall evaluates the whitelisted math.* functions.
func (e *evaluator) parseCall(name string) (float64, bool) {
	var args []float64
	if _, ok := e.acceptOp(")"); !ok {
		for {
			v, ok := e.parseSum()
			if !ok {
				return 0, false
			}
			args = append(args, v)
			if _, ok := e.acceptOp(","); ok {
				continue
			}
			if _, ok := e.acceptOp(")"); ok {
				break
			}
			return 0, false
		}
	}
	return callMath(name, args)
}

func callMath(name string, args []float64) (float64, bool) {
	fn, ok := strings.CutPrefix(name, "math.")
	if !ok {
		return 0, false
	}
	fn = strings.ToLower(fn)
	switch fn {
	case "abs":
		if len(args) == 1 {
			return math.Abs(args[0]), true
		}
	case "floor":
		if len(args) == 1 {
			return math.Floor(args[0]), true
		}
	case "ceil":
		if len(args) == 1 {
			return math.Ceil(args[0]), true
		}
	case "sqrt":
		if len(args) == 1 && args[0] >= 0 {
			return math.Sqrt(args[0]), true
		}
	case "pow":
		if len(args) == 2 {
			return math.Pow(args[0], args[1]), true
		}
	case "max", "min":
		if len(args) == 0 {
			return 0, false
		}
		out := args[0]
		for _, a := range args[1:] {
			if fn == "max" && a > out || fn == "min" && a < out {
				out = a
			}
		}
		return out, true
	}
	return 0, false
}

// evaluate returns the value of expr, or false when any part cannot be proven numeric.
func evaluate(expr string, resolve func(string) (float64, bool)) (float64, bool) {
	toks, ok := tokenize(expr)
	if !ok {
		return 0, false
	}
	e := &evaluator{toks: toks, resolve: resolve}
	v, ok := e.parseSum()
	if !ok || e.pos != len(toks) || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
