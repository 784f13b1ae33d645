package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CalculatorTool evaluates arithmetic expressions.
type CalculatorTool struct{}

// NewCalculatorTool creates a calculator tool.
func NewCalculatorTool() *CalculatorTool { return &CalculatorTool{} }

func (t *CalculatorTool) Name() string { return "calculator" }

func (t *CalculatorTool) Description() string {
	return "Evaluate an arithmetic expression with +, -, *, / and parentheses"
}

func (t *CalculatorTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "The expression to evaluate, e.g. '2 + 2 * 3'",
			},
		},
		"required": []string{"expression"},
	}
}

type calculatorArgs struct {
	Expression string `json:"expression"`
}

// Invoke parses and evaluates the expression.
func (t *CalculatorTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	var a calculatorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(a.Expression) == "" {
		return "", fmt.Errorf("expression cannot be empty")
	}
	p := &exprParser{input: a.Expression}
	value, err := p.parse()
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(value, 'f', -1, 64), nil
}

// exprParser is a recursive-descent evaluator over a flat byte scan.
// Grammar: expr := term (('+'|'-') term)*, term := factor (('*'|'/') factor)*,
// factor := number | '(' expr ')' | '-' factor.
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parse() (float64, error) {
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

func (p *exprParser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch {
		case p.peek() == '+':
			p.pos++
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			v += rhs
		case p.peek() == '-':
			p.pos++
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

func (p *exprParser) term() (float64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch {
		case p.peek() == '*':
			p.pos++
			rhs, err := p.factor()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case p.peek() == '/':
			p.pos++
			rhs, err := p.factor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= rhs
		default:
			return v, nil
		}
	}
}

func (p *exprParser) factor() (float64, error) {
	p.skipSpace()
	switch {
	case p.peek() == '(':
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case p.peek() == '-':
		p.pos++
		v, err := p.factor()
		if err != nil {
			return 0, err
		}
		return -v, nil
	default:
		return p.number()
	}
}

func (p *exprParser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected a number at position %d", start)
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", p.input[start:p.pos], err)
	}
	return v, nil
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}
