// Copyright (C) 2025 Alchemancy (dev@alchemancy.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package formula

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
)

// maxExpressionLen is the hard size guard on textual sub-equations.
// Anything longer evaluates to 0 without being parsed.
const maxExpressionLen = 1024

// maxCompiledEntries bounds the compiled-expression cache. When the cache
// grows past this size roughly half the entries are evicted.
const maxCompiledEntries = 256

// rejectedChars are single characters that immediately disqualify an
// expression: assignment, statement separators, blocks, comparisons, and
// anything else outside the arithmetic grammar.
const rejectedChars = "=;{}[]<>!&|?:%\"'`\\"

// rejectedWords are identifiers that disqualify an expression. These are
// control-flow and declaration keywords from common host languages; their
// presence means the text is code, not arithmetic.
var rejectedWords = map[string]struct{}{
	"if": {}, "else": {}, "for": {}, "while": {}, "do": {},
	"return": {}, "func": {}, "function": {}, "var": {}, "let": {},
	"const": {}, "new": {}, "switch": {}, "class": {}, "import": {},
	"eval": {}, "this": {},
}

// EvalExpression evaluates a textual arithmetic expression against a
// closed variable table.
//
// The grammar covers numbers, variables, + - * / (the unicode glyphs ×
// and ÷ are accepted as aliases), unary minus, parentheses, and the
// functions floor, ceil, round, min, max, and abs. Everything else is
// rejected.
//
// Failure is always the value 0, never an error:
//   - inputs longer than 1024 characters
//   - assignment or control-flow tokens
//   - malformed syntax or unknown functions
//   - division by zero (the division yields 0, not Inf)
//
// Unresolved variables resolve to 0. Compiled expressions are cached by
// source text, so repeated evaluation of catalog formulas skips the
// parser.
//
// Inputs:
//   - src: The expression text
//   - vars: Variable table; absent names resolve to 0
//
// Outputs:
//   - float64: The result, always finite; 0 on any rejection
func EvalExpression(src string, vars Vars) float64 {
	if len(src) > maxExpressionLen {
		return 0
	}
	if strings.ContainsAny(src, rejectedChars) {
		return 0
	}
	root := compile(src)
	if root == nil {
		return 0
	}
	return ClampFinite(evalNode(root, vars))
}

// =============================================================================
// Compiled-Expression Cache
// =============================================================================

// exprCache memoizes parse results keyed by source text. Invalid sources
// cache a nil tree so repeated bad input skips the parser too.
type exprCache struct {
	mu      sync.Mutex
	entries map[string]*exprNode
}

var compiledCache = &exprCache{entries: make(map[string]*exprNode)}

// compile returns the parsed tree for src, consulting the cache first.
// A nil return means the source is invalid.
func compile(src string) *exprNode {
	compiledCache.mu.Lock()
	if node, ok := compiledCache.entries[src]; ok {
		compiledCache.mu.Unlock()
		return node
	}
	compiledCache.mu.Unlock()

	node, err := parseExpression(src)
	if err != nil {
		slog.Debug("expression rejected", "source", truncate(src, 80), "error", err.Error())
		node = nil
	}

	compiledCache.mu.Lock()
	if len(compiledCache.entries) >= maxCompiledEntries {
		evictLocked(compiledCache)
	}
	compiledCache.entries[src] = node
	compiledCache.mu.Unlock()
	return node
}

// evictLocked drops roughly half the cache. Map iteration order makes the
// victim set arbitrary, which is fine for a recompilation cache.
func evictLocked(c *exprCache) {
	target := maxCompiledEntries / 2
	for key := range c.entries {
		if len(c.entries) <= target {
			break
		}
		delete(c.entries, key)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// =============================================================================
// Tokenizer
// =============================================================================

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

type exprError string

func (e exprError) Error() string { return string(e) }

// tokenize splits src into tokens, rejecting keywords and anything
// outside the arithmetic grammar.
func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	runes := []rune(src)
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i++
		case r >= '0' && r <= '9' || r == '.':
			start := i
			for i < len(runes) && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, exprError("bad number " + text)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: num})
		case isIdentRune(r):
			start := i
			for i < len(runes) && (isIdentRune(runes[i]) || runes[i] >= '0' && runes[i] <= '9') {
				i++
			}
			text := string(runes[start:i])
			if _, banned := rejectedWords[strings.ToLower(text)]; banned {
				return nil, exprError("disallowed keyword " + text)
			}
			toks = append(toks, token{kind: tokIdent, text: text})
		case r == '+' || r == '-' || r == '*' || r == '/':
			toks = append(toks, token{kind: tokOp, text: string(r)})
			i++
		case r == '×':
			toks = append(toks, token{kind: tokOp, text: "*"})
			i++
		case r == '÷':
			toks = append(toks, token{kind: tokOp, text: "/"})
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "("})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")"})
			i++
		case r == ',':
			toks = append(toks, token{kind: tokComma, text: ","})
			i++
		default:
			return nil, exprError("unexpected character " + string(r))
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

func isIdentRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

// =============================================================================
// Parser
// =============================================================================

type exprNodeKind int

const (
	nodeNumber exprNodeKind = iota
	nodeVar
	nodeUnary
	nodeBinary
	nodeCall
)

// exprNode is one node of a compiled expression tree. For nodeBinary the
// op field holds the operator; for nodeCall it holds the function name.
type exprNode struct {
	kind exprNodeKind
	num  float64
	name string
	op   string
	args []*exprNode
}

var callFuncs = map[string]struct{}{
	"floor": {}, "ceil": {}, "round": {}, "min": {}, "max": {}, "abs": {},
}

type exprParser struct {
	toks []token
	pos  int
}

func parseExpression(src string) (*exprNode, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	node, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, exprError("trailing input after expression")
	}
	return node, nil
}

func (p *exprParser) peek() token { return p.toks[p.pos] }

func (p *exprParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func bindingPower(op string) int {
	switch op {
	case "+", "-":
		return 10
	case "*", "/":
		return 20
	}
	return 0
}

// parseBinary is a Pratt loop: parse a primary, then fold in operators of
// at least minBP binding power.
func (p *exprParser) parseBinary(minBP int) (*exprNode, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return left, nil
		}
		bp := bindingPower(t.text)
		if bp < minBP {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(bp + 1)
		if err != nil {
			return nil, err
		}
		left = &exprNode{kind: nodeBinary, op: t.text, args: []*exprNode{left, right}}
	}
}

func (p *exprParser) parsePrimary() (*exprNode, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &exprNode{kind: nodeNumber, num: t.num}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(t.text)
		}
		return &exprNode{kind: nodeVar, name: t.text}, nil
	case tokOp:
		if t.text == "-" {
			operand, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			return &exprNode{kind: nodeUnary, args: []*exprNode{operand}}, nil
		}
		return nil, exprError("unexpected operator " + t.text)
	case tokLParen:
		inner, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, exprError("missing closing parenthesis")
		}
		return inner, nil
	}
	return nil, exprError("unexpected token")
}

func (p *exprParser) parseCall(name string) (*exprNode, error) {
	lower := strings.ToLower(name)
	if _, ok := callFuncs[lower]; !ok {
		return nil, exprError("unknown function " + name)
	}
	p.next() // consume '('
	var args []*exprNode
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseBinary(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if p.next().kind != tokRParen {
		return nil, exprError("missing closing parenthesis in call")
	}
	if len(args) == 0 {
		return nil, exprError("function " + name + " needs arguments")
	}
	switch lower {
	case "min", "max":
		// variadic
	default:
		if len(args) != 1 {
			return nil, exprError("function " + name + " takes one argument")
		}
	}
	return &exprNode{kind: nodeCall, name: lower, args: args}, nil
}

// =============================================================================
// Evaluation
// =============================================================================

func evalNode(n *exprNode, vars Vars) float64 {
	switch n.kind {
	case nodeNumber:
		return n.num
	case nodeVar:
		return vars.Get(n.name)
	case nodeUnary:
		return -evalNode(n.args[0], vars)
	case nodeBinary:
		left := evalNode(n.args[0], vars)
		right := evalNode(n.args[1], vars)
		switch n.op {
		case "+":
			return left + right
		case "-":
			return left - right
		case "*":
			return left * right
		case "/":
			if right == 0 {
				return 0
			}
			return left / right
		}
	case nodeCall:
		return evalCall(n, vars)
	}
	return 0
}

func evalCall(n *exprNode, vars Vars) float64 {
	first := evalNode(n.args[0], vars)
	switch n.name {
	case "floor":
		return math.Floor(first)
	case "ceil":
		return math.Ceil(first)
	case "round":
		return math.Round(first)
	case "abs":
		if first < 0 {
			return -first
		}
		return first
	case "min":
		out := first
		for _, arg := range n.args[1:] {
			if v := evalNode(arg, vars); v < out {
				out = v
			}
		}
		return out
	case "max":
		out := first
		for _, arg := range n.args[1:] {
			if v := evalNode(arg, vars); v > out {
				out = v
			}
		}
		return out
	}
	return 0
}
