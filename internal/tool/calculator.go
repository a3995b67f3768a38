package tool

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Calculator evaluates arithmetic expressions. It supports + - * / % ^,
// parentheses, and unary minus, with no access to anything outside the
// expression itself.
type Calculator struct{}

// NewCalculator creates the calculator tool.
func NewCalculator() *Calculator { return &Calculator{} }

func (c *Calculator) Name() string { return "calculator" }

func (c *Calculator) Description() string {
	return "Evaluate an arithmetic expression, e.g. (2 + 3) * 4 or 2^10"
}

func (c *Calculator) Validate(params map[string]any) error {
	if cfgString(params, "expression") == "" {
		return fmt.Errorf("expression is required")
	}
	return nil
}

func (c *Calculator) Execute(_ context.Context, params, _ map[string]any) (any, error) {
	expr := cfgString(params, "expression")
	value, err := evalExpression(expr)
	if err != nil {
		return nil, err
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return nil, fmt.Errorf("expression %q has no finite result", expr)
	}
	return map[string]any{
		"expression": expr,
		"result":     value,
	}, nil
}

// exprParser is a recursive-descent parser over a token-free byte scan.
// Grammar: expr := term (('+'|'-') term)* ; term := power (('*'|'/'|'%') power)* ;
// power := unary ('^' power)? ; unary := '-' unary | '(' expr ')' | number.
type exprParser struct {
	input string
	pos   int
}

func evalExpression(input string) (float64, error) {
	p := &exprParser{input: input}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	return value, nil
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case '%':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.peek() == '^' {
		p.pos++
		// Right-associative: 2^3^2 is 2^(3^2).
		exp, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parseUnary() (float64, error) {
	p.skipSpaces()
	switch {
	case p.peek() == '-':
		p.pos++
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	case p.peek() == '(':
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		p.pos++
		return value, nil
	default:
		return p.parseNumber()
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if (ch >= '0' && ch <= '9') || ch == '.' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		if p.pos >= len(p.input) {
			return 0, fmt.Errorf("unexpected end of expression")
		}
		return 0, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return value, nil
}

func (p *exprParser) peek() byte {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

func (p *exprParser) skipSpaces() {
	p.pos += len(p.input[p.pos:]) - len(strings.TrimLeft(p.input[p.pos:], " \t"))
}
