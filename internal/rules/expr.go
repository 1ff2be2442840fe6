package rules

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Conditions are evaluated by a small hand-written expression engine over
// a fixed variable binding. Only literals, bound variables, arithmetic,
// comparisons, and boolean connectives exist: there is no attribute
// access, no calls, and no way to reach ambient state, so "no arbitrary
// code execution" holds structurally. Both Python-style (and, or, not)
// and C-style (&&, ||, !) connectives are accepted.

// value is the runtime type of an expression: a number or a boolean.
type value struct {
	num    float64
	b      bool
	isBool bool
}

func numValue(n float64) value { return value{num: n} }
func boolValue(b bool) value   { return value{b: b, isBool: true} }

// expr is a compiled condition node.
type expr interface {
	eval(env map[string]float64) (value, error)
}

type numLit float64

func (n numLit) eval(map[string]float64) (value, error) {
	return numValue(float64(n)), nil
}

type boolLit bool

func (b boolLit) eval(map[string]float64) (value, error) {
	return boolValue(bool(b)), nil
}

type varRef string

func (v varRef) eval(env map[string]float64) (value, error) {
	n, ok := env[string(v)]
	if !ok {
		return value{}, fmt.Errorf("undefined name %q", string(v))
	}
	return numValue(n), nil
}

type unaryExpr struct {
	op      string
	operand expr
}

func (u unaryExpr) eval(env map[string]float64) (value, error) {
	v, err := u.operand.eval(env)
	if err != nil {
		return value{}, err
	}
	switch u.op {
	case "-":
		if v.isBool {
			return value{}, fmt.Errorf("cannot negate a boolean")
		}
		return numValue(-v.num), nil
	case "not":
		if !v.isBool {
			return value{}, fmt.Errorf("not requires a boolean")
		}
		return boolValue(!v.b), nil
	}
	return value{}, fmt.Errorf("unknown operator %q", u.op)
}

type binaryExpr struct {
	op    string
	left  expr
	right expr
}

func (b binaryExpr) eval(env map[string]float64) (value, error) {
	// Boolean connectives short-circuit.
	if b.op == "and" || b.op == "or" {
		l, err := b.left.eval(env)
		if err != nil {
			return value{}, err
		}
		if !l.isBool {
			return value{}, fmt.Errorf("%s requires booleans", b.op)
		}
		if b.op == "and" && !l.b {
			return boolValue(false), nil
		}
		if b.op == "or" && l.b {
			return boolValue(true), nil
		}
		r, err := b.right.eval(env)
		if err != nil {
			return value{}, err
		}
		if !r.isBool {
			return value{}, fmt.Errorf("%s requires booleans", b.op)
		}
		return boolValue(r.b), nil
	}

	l, err := b.left.eval(env)
	if err != nil {
		return value{}, err
	}
	r, err := b.right.eval(env)
	if err != nil {
		return value{}, err
	}

	switch b.op {
	case "==", "!=":
		if l.isBool != r.isBool {
			return value{}, fmt.Errorf("type mismatch in %s", b.op)
		}
		var eq bool
		if l.isBool {
			eq = l.b == r.b
		} else {
			eq = l.num == r.num
		}
		if b.op == "!=" {
			eq = !eq
		}
		return boolValue(eq), nil
	}

	if l.isBool || r.isBool {
		return value{}, fmt.Errorf("%s requires numbers", b.op)
	}

	switch b.op {
	case "<":
		return boolValue(l.num < r.num), nil
	case "<=":
		return boolValue(l.num <= r.num), nil
	case ">":
		return boolValue(l.num > r.num), nil
	case ">=":
		return boolValue(l.num >= r.num), nil
	case "+":
		return numValue(l.num + r.num), nil
	case "-":
		return numValue(l.num - r.num), nil
	case "*":
		return numValue(l.num * r.num), nil
	case "/":
		if r.num == 0 {
			return value{}, fmt.Errorf("division by zero")
		}
		return numValue(l.num / r.num), nil
	case "%":
		if r.num == 0 {
			return value{}, fmt.Errorf("modulo by zero")
		}
		return numValue(float64(int64(l.num) % int64(r.num))), nil
	}
	return value{}, fmt.Errorf("unknown operator %q", b.op)
}

// token kinds
const (
	tokNumber = iota
	tokIdent
	tokOp
	tokEOF
)

type token struct {
	kind int
	text string
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case unicode.IsDigit(rune(c)) || (c == '.' && i+1 < len(input) && unicode.IsDigit(rune(input[i+1]))):
			j := i
			for j < len(input) && (unicode.IsDigit(rune(input[j])) || input[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, input[i:j]})
			i = j
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i
			for j < len(input) && (unicode.IsLetter(rune(input[j])) || unicode.IsDigit(rune(input[j])) || input[j] == '_') {
				j++
			}
			toks = append(toks, token{tokIdent, input[i:j]})
			i = j
		case strings.HasPrefix(input[i:], "<=") || strings.HasPrefix(input[i:], ">=") ||
			strings.HasPrefix(input[i:], "==") || strings.HasPrefix(input[i:], "!=") ||
			strings.HasPrefix(input[i:], "&&") || strings.HasPrefix(input[i:], "||"):
			toks = append(toks, token{tokOp, input[i : i+2]})
			i += 2
		case strings.ContainsRune("<>+-*/%()!", rune(c)):
			toks = append(toks, token{tokOp, string(c)})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return append(toks, token{tokEOF, ""}), nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) accept(text string) bool {
	if p.peek().text == text && p.peek().kind != tokNumber {
		p.pos++
		return true
	}
	return false
}

// parseCondition compiles a condition string.
func parseCondition(input string) (expr, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected token %q", p.peek().text)
	}
	return e, nil
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("or") || p.accept("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{"or", left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.accept("and") || p.accept("&&") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{"and", left, right}
	}
	return left, nil
}

func (p *parser) parseNot() (expr, error) {
	if p.accept("not") || p.accept("!") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return unaryExpr{"not", operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	switch op := p.peek().text; op {
	case "<", "<=", ">", ">=", "==", "!=":
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return binaryExpr{op, left, right}, nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		switch op := p.peek().text; op {
		case "+", "-":
			p.next()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = binaryExpr{op, left, right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseMultiplicative() (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch op := p.peek().text; op {
		case "*", "/", "%":
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = binaryExpr{op, left, right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (expr, error) {
	if p.accept("-") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{"-", operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expr, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", tok.text)
		}
		return numLit(n), nil
	case tokIdent:
		switch tok.text {
		case "true", "True":
			return boolLit(true), nil
		case "false", "False":
			return boolLit(false), nil
		case "and", "or", "not":
			return nil, fmt.Errorf("unexpected keyword %q", tok.text)
		}
		return varRef(tok.text), nil
	case tokOp:
		if tok.text == "(" {
			e, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if !p.accept(")") {
				return nil, fmt.Errorf("missing closing parenthesis")
			}
			return e, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %q", tok.text)
}
