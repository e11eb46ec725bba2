package expr

import "fmt"

// parser is a small recursive-descent parser over the lexer's token stream.
// Precedence, low to high: or, and, comparison, additive, multiplicative,
// unary, power, atom.
type parser struct {
	lx   *lexer
	cur  token
	prev token
}

// Parse compiles a variable-expression string into an AST.
func Parse(src string) (Node, error) {
	p := &parser{lx: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tEOF {
		return nil, fmt.Errorf("unexpected trailing input near %q", tokenDesc(p.cur))
	}
	return node, nil
}

func (p *parser) advance() error {
	t, err := p.lx.next()
	if err != nil {
		return err
	}
	p.prev, p.cur = p.cur, t
	return nil
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Op: "or", L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Op: "and", L: left, R: right}
	}
	return left, nil
}

var comparisonOps = map[string]bool{">=": true, "<=": true, ">": true, "<": true, "==": true, "!=": true}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tOp && comparisonOps[p.cur.text] {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tOp && (p.cur.text == "+" || p.cur.text == "-") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tOp && (p.cur.text == "*" || p.cur.text == "/") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.cur.kind == tOp && p.cur.text == "-" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: "-", X: x}, nil
	}
	if p.cur.kind == tNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: "not", X: x}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Node, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.cur.kind == tOp && p.cur.text == "**" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary() // right-associative, allows -x exponents
		if err != nil {
			return nil, err
		}
		return &BinOp{Op: "**", L: left, R: right}, nil
	}
	return left, nil
}

func (p *parser) parseAtom() (Node, error) {
	switch p.cur.kind {
	case tNum:
		v := p.cur.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: v}, nil
	case tStr:
		s := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &StringLit{Value: s}, nil
	case tPerm:
		slot := p.cur.slot
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &PermutationSlot{Slot: slot}, nil
	case tLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tRParen {
			return nil, fmt.Errorf("expected ')' near %q", tokenDesc(p.cur))
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	case tWord:
		word := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind == tLParen {
			return p.parseCall(word)
		}
		if tok, ok := parseStandaloneXSToken(word); ok {
			return tok, nil
		}
		return parseWordAsColumnRef(word), nil
	default:
		return nil, fmt.Errorf("unexpected token %q", tokenDesc(p.cur))
	}
}

func (p *parser) parseCall(name string) (Node, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	var args []Node
	if p.cur.kind != tRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur.kind == tComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if p.cur.kind != tRParen {
		return nil, fmt.Errorf("expected ')' to close call to %q", name)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &Call{Name: name, Args: args}, nil
}

func tokenDesc(t token) string {
	switch t.kind {
	case tEOF:
		return "<eof>"
	case tWord:
		return t.text
	case tStr:
		return "'" + t.text + "'"
	case tOp:
		return t.text
	default:
		return fmt.Sprintf("%v", t)
	}
}
