// Package expr evaluates the small expression language used by ignore
// conditions and output captures: comparisons (== != > < >= <=), logical
// operators (&& || !), and the functions len, has, and empty. Expressions
// are parsed by a fixed recursive-descent grammar and evaluated against
// an explicit variable source only — there are no ambient identifiers and
// no general-purpose code execution.
package expr

import (
	"fmt"
	"strings"

	"github.com/cgast/apiprobe/pkg/logging"
)

// VarSource resolves an identifier to its typed value.
type VarSource func(name string) (any, bool)

// BodyResolver resolves a body.<path> reference against the current
// response. A failed resolution yields nil, mirroring an absent field.
type BodyResolver func(path string) any

// expressionMarkers are the substrings whose presence classifies a string
// as an expression rather than a plain value or ${VAR} template.
var expressionMarkers = []string{
	"==", "!=", ">=", "<=", ">", "<", "&&", "||", "!",
	"len(", "has(", "empty(",
}

// IsExpression reports whether a string should be handled by the
// evaluator instead of the variable substitutor.
func IsExpression(s string) bool {
	for _, marker := range expressionMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// EvalBool evaluates an ignore expression. Any parse or evaluation
// failure is logged and yields false: a broken condition never skips a
// probe.
func EvalBool(expression string, vars VarSource) bool {
	result, err := eval(expression, vars, nil)
	if err != nil {
		logging.Warn("expr", "expression evaluation failed", "expression", expression, "reason", err)
		return false
	}
	return truthy(result)
}

// EvalValue evaluates an output-capture expression, which may reference
// response fragments as body.<path>. It returns the expression's value
// uncoerced, or nil on any failure.
func EvalValue(expression string, vars VarSource, body BodyResolver) any {
	result, err := eval(expression, vars, body)
	if err != nil {
		logging.Warn("expr", "output expression evaluation failed", "expression", expression, "reason", err)
		return nil
	}
	return result
}

func eval(expression string, vars VarSource, body BodyResolver) (any, error) {
	tokens, err := lex(expression)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens, vars: vars, body: body}
	result, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("unexpected %q", p.tokens[p.pos].text)
	}
	return result, nil
}

// truthy follows the language's value semantics: empty strings, empty
// collections, zero, and null are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokOp     // == != > < >= <= && || !
	tokLParen // (
	tokRParen // )
)

type token struct {
	kind  tokenKind
	text  string
	num   float64
	isInt bool
	intv  int64
}

func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		case strings.HasPrefix(input[i:], "==") || strings.HasPrefix(input[i:], "!=") ||
			strings.HasPrefix(input[i:], ">=") || strings.HasPrefix(input[i:], "<=") ||
			strings.HasPrefix(input[i:], "&&") || strings.HasPrefix(input[i:], "||"):
			tokens = append(tokens, token{kind: tokOp, text: input[i : i+2]})
			i += 2
		case c == '>' || c == '<' || c == '!':
			tokens = append(tokens, token{kind: tokOp, text: string(c)})
			i++
		case c == '\'' || c == '"':
			end := i + 1
			for end < len(input) && input[end] != c {
				end++
			}
			if end == len(input) {
				return nil, fmt.Errorf("unterminated string")
			}
			tokens = append(tokens, token{kind: tokString, text: input[i+1 : end]})
			i = end + 1
		case c >= '0' && c <= '9' || (c == '-' && i+1 < len(input) && input[i+1] >= '0' && input[i+1] <= '9'):
			end := i + 1
			isInt := true
			for end < len(input) && (input[end] >= '0' && input[end] <= '9' || input[end] == '.' || input[end] == 'e' || input[end] == 'E') {
				if input[end] == '.' || input[end] == 'e' || input[end] == 'E' {
					isInt = false
				}
				end++
			}
			text := input[i:end]
			tok := token{kind: tokNumber, text: text, isInt: isInt}
			if isInt {
				if _, err := fmt.Sscanf(text, "%d", &tok.intv); err != nil {
					return nil, fmt.Errorf("bad number %q", text)
				}
			} else {
				if _, err := fmt.Sscanf(text, "%g", &tok.num); err != nil {
					return nil, fmt.Errorf("bad number %q", text)
				}
			}
			tokens = append(tokens, tok)
			i = end
		case isIdentStart(c):
			end := i + 1
			// Identifiers may carry a dotted/indexed path for body
			// references such as body.items[0].id.
			for end < len(input) && isPathChar(input[end]) {
				end++
			}
			tokens = append(tokens, token{kind: tokIdent, text: input[i:end]})
			i = end
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isPathChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.' || c == '[' || c == ']'
}

type parser struct {
	tokens []token
	pos    int
	vars   VarSource
	body   BodyResolver
}

func (p *parser) peek() *token {
	if p.pos < len(p.tokens) {
		return &p.tokens[p.pos]
	}
	return nil
}

func (p *parser) acceptOp(op string) bool {
	if t := p.peek(); t != nil && t.kind == tokOp && t.text == op {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (any, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptOp("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = truthy(left) || truthy(right)
	}
	return left, nil
}

func (p *parser) parseAnd() (any, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.acceptOp("&&") {
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = truthy(left) && truthy(right)
	}
	return left, nil
}

func (p *parser) parseComparison() (any, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t == nil || t.kind != tokOp || t.text == "&&" || t.text == "||" {
		return left, nil
	}
	op := t.text
	p.pos++
	right, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return compare(left, right, op)
}

func (p *parser) parseUnary() (any, error) {
	if p.acceptOp("!") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return !truthy(operand), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (any, error) {
	t := p.peek()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	switch t.kind {
	case tokLParen:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := p.peek(); t == nil || t.kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	case tokNumber:
		p.pos++
		if t.isInt {
			return t.intv, nil
		}
		return t.num, nil
	case tokString:
		p.pos++
		return t.text, nil
	case tokIdent:
		p.pos++
		switch t.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		case "len", "has", "empty":
			return p.parseCall(t.text)
		}
		return p.resolve(t.text)
	default:
		return nil, fmt.Errorf("unexpected %q", t.text)
	}
}

func (p *parser) parseCall(name string) (any, error) {
	if t := p.peek(); t == nil || t.kind != tokLParen {
		return nil, fmt.Errorf("%s requires an argument", name)
	}
	p.pos++
	arg, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t == nil || t.kind != tokRParen {
		return nil, fmt.Errorf("missing closing parenthesis after %s(", name)
	}
	p.pos++

	switch name {
	case "len":
		return int64(valueLen(arg)), nil
	case "has":
		return valueHas(arg), nil
	default: // empty
		return !valueHas(arg), nil
	}
}

// resolve looks up an identifier: a body.<path> reference when a body
// resolver is available, otherwise a context variable.
func (p *parser) resolve(name string) (any, error) {
	if p.body != nil && strings.HasPrefix(name, "body.") {
		return p.body(strings.TrimPrefix(name, "body.")), nil
	}
	if value, ok := p.vars(name); ok {
		return value, nil
	}
	return nil, fmt.Errorf("unknown identifier %q", name)
}

func valueLen(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		return len(t)
	case []any:
		return len(t)
	case []string:
		return len(t)
	case map[string]any:
		return len(t)
	default:
		return 0
	}
}

func valueHas(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// compare applies a comparison operator. Equality across mismatched
// types is simply unequal; ordering across mismatched types is an error.
func compare(left, right any, op string) (any, error) {
	switch op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	}

	lf, lNum := asFloat(left)
	rf, rNum := asFloat(right)
	if lNum && rNum {
		switch op {
		case ">":
			return lf > rf, nil
		case "<":
			return lf < rf, nil
		case ">=":
			return lf >= rf, nil
		case "<=":
			return lf <= rf, nil
		}
	}

	ls, lStr := left.(string)
	rs, rStr := right.(string)
	if lStr && rStr {
		switch op {
		case ">":
			return ls > rs, nil
		case "<":
			return ls < rs, nil
		case ">=":
			return ls >= rs, nil
		case "<=":
			return ls <= rs, nil
		}
	}

	return nil, fmt.Errorf("cannot order %T and %T", left, right)
}

func equal(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if lf, ok := asFloat(left); ok {
		if rf, rok := asFloat(right); rok {
			return lf == rf
		}
		return false
	}
	switch l := left.(type) {
	case bool:
		r, ok := right.(bool)
		return ok && l == r
	case string:
		r, ok := right.(string)
		return ok && l == r
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return float64(t), true
	default:
		return 0, false
	}
}
