// Package expr implements the small sandboxed expression language used
// by condition nodes. Expressions are parsed into an explicit AST of
// comparisons, boolean combinators, and field accesses evaluated
// against a data binding. There is deliberately no host-language eval,
// no function calls, and no assignment.
//
// Examples:
//
//	data.status == "active"
//	data.score >= 0.8 && data.retries < 3
//	!(data.tags contains "internal") || data.override
package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
)

// Value is the result of evaluating an expression: nil, bool, float64,
// string, or whatever the data binding holds at a referenced path.
type Value = any

// Expr is a parsed expression ready for repeated evaluation.
type Expr struct {
	root node
	src  string
}

// Parse compiles an expression string.
func Parse(src string) (*Expr, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("parse %q: unexpected token %q", src, p.peek().text)
	}
	return &Expr{root: root, src: src}, nil
}

// Eval evaluates the expression against a binding. Identifiers resolve
// into the binding map; dotted paths descend into nested maps.
func (e *Expr) Eval(binding map[string]any) (Value, error) {
	v, err := e.root.eval(binding)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", e.src, err)
	}
	return v, nil
}

// EvalBool evaluates the expression and coerces the result to a boolean
// using the language's truthiness rules.
func (e *Expr) EvalBool(binding map[string]any) (bool, error) {
	v, err := e.Eval(binding)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// String returns the source form.
func (e *Expr) String() string { return e.src }

// truthy maps a value to a boolean: false, nil, zero, and empty
// strings/slices/maps are false; everything else is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// ---------------------------------------------------------------------------
// AST
// ---------------------------------------------------------------------------

type node interface {
	eval(binding map[string]any) (any, error)
}

type literal struct{ val any }

func (n literal) eval(map[string]any) (any, error) { return n.val, nil }

type pathRef struct{ parts []string }

func (n pathRef) eval(binding map[string]any) (any, error) {
	var cur any = binding
	for _, part := range n.parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, nil
		}
		cur = m[part]
	}
	return cur, nil
}

type notExpr struct{ x node }

func (n notExpr) eval(binding map[string]any) (any, error) {
	v, err := n.x.eval(binding)
	if err != nil {
		return nil, err
	}
	return !truthy(v), nil
}

type boolExpr struct {
	op   string // "&&" or "||"
	l, r node
}

func (n boolExpr) eval(binding map[string]any) (any, error) {
	lv, err := n.l.eval(binding)
	if err != nil {
		return nil, err
	}
	// Short-circuit.
	if n.op == "&&" && !truthy(lv) {
		return false, nil
	}
	if n.op == "||" && truthy(lv) {
		return true, nil
	}
	rv, err := n.r.eval(binding)
	if err != nil {
		return nil, err
	}
	return truthy(rv), nil
}

type compareExpr struct {
	op   string
	l, r node
}

func (n compareExpr) eval(binding map[string]any) (any, error) {
	lv, err := n.l.eval(binding)
	if err != nil {
		return nil, err
	}
	rv, err := n.r.eval(binding)
	if err != nil {
		return nil, err
	}
	return compare(n.op, lv, rv)
}

func compare(op string, lv, rv any) (any, error) {
	switch op {
	case "==":
		return equals(lv, rv), nil
	case "!=":
		return !equals(lv, rv), nil
	case "contains":
		return contains(lv, rv)
	}

	// Ordering operators: numeric first, then lexicographic strings.
	ln, lok := toNumber(lv)
	rn, rok := toNumber(rv)
	if lok && rok {
		switch op {
		case ">":
			return ln > rn, nil
		case ">=":
			return ln >= rn, nil
		case "<":
			return ln < rn, nil
		case "<=":
			return ln <= rn, nil
		}
	}
	ls, lok := lv.(string)
	rs, rok := rv.(string)
	if lok && rok {
		switch op {
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		}
	}
	return nil, fmt.Errorf("cannot compare %T %s %T", lv, op, rv)
}

func equals(a, b any) bool {
	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			return an == bn
		}
	}
	if a == nil || b == nil {
		return a == b
	}
	// Slices and maps are not ==-comparable; interface equality on two
	// such values panics. Deep equality covers them.
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

func contains(container, item any) (any, error) {
	switch c := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("contains on string requires a string operand")
		}
		return strings.Contains(c, s), nil
	case []any:
		for _, v := range c {
			if equals(v, item) {
				return true, nil
			}
		}
		return false, nil
	default:
		return nil, fmt.Errorf("contains requires a string or list, got %T", container)
	}
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// ---------------------------------------------------------------------------
// Lexer
// ---------------------------------------------------------------------------

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case c == '"' || c == '\'':
			quote := c
			j := i + 1
			for j < len(src) && src[j] != quote {
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("unterminated string at offset %d", i)
			}
			tokens = append(tokens, token{tokString, src[i+1 : j]})
			i = j + 1
		case strings.ContainsRune("=!<>&|", rune(c)):
			j := i + 1
			for j < len(src) && strings.ContainsRune("=!<>&|", rune(src[j])) {
				j++
			}
			op := src[i:j]
			switch op {
			case "==", "!=", "<", "<=", ">", ">=", "&&", "||", "!":
				tokens = append(tokens, token{tokOp, op})
			default:
				return nil, fmt.Errorf("unknown operator %q", op)
			}
			i = j
		case c >= '0' && c <= '9' || c == '-' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9':
			j := i + 1
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, src[i:j]})
			i = j
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i + 1
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_' || src[j] == '.') {
				j++
			}
			word := src[i:j]
			switch word {
			case "and":
				tokens = append(tokens, token{tokOp, "&&"})
			case "or":
				tokens = append(tokens, token{tokOp, "||"})
			case "not":
				tokens = append(tokens, token{tokOp, "!"})
			case "contains":
				tokens = append(tokens, token{tokOp, "contains"})
			default:
				tokens = append(tokens, token{tokIdent, word})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}
	tokens = append(tokens, token{tokEOF, ""})
	return tokens, nil
}

// ---------------------------------------------------------------------------
// Parser (recursive descent, precedence: ! > comparison > && > ||)
// ---------------------------------------------------------------------------

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) atEnd() bool { return p.peek().kind == tokEOF }

func (p *parser) acceptOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.next()
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("||"); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = boolExpr{op: "||", l: left, r: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("&&"); !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = boolExpr{op: "&&", l: left, r: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if _, ok := p.acceptOp("!"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{x: x}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	op, ok := p.acceptOp("==", "!=", ">=", "<=", ">", "<", "contains")
	if !ok {
		return left, nil
	}
	right, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return compareExpr{op: op, l: left, r: right}, nil
}

func (p *parser) parseTerm() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", t.text)
		}
		return literal{val: n}, nil
	case tokString:
		p.next()
		return literal{val: t.text}, nil
	case tokIdent:
		p.next()
		switch t.text {
		case "true":
			return literal{val: true}, nil
		case "false":
			return literal{val: false}, nil
		case "null", "nil":
			return literal{val: nil}, nil
		}
		return pathRef{parts: strings.Split(t.text, ".")}, nil
	case tokLParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.next()
		return inner, nil
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}
