package parser

import (
	"github.com/organic-audio/organic/internal/diag"
	"github.com/organic-audio/organic/internal/lang/ast"
	"github.com/organic-audio/organic/internal/lang/token"
)

// parseExpression is either a non-empty bracketed list or a term chain
// folded by operator precedence (§4.2).
func (fp *fileParser) parseExpression() (ast.Node, error) {
	if fp.at(token.LBracket) {
		return fp.parseList()
	}
	return fp.parseComparison()
}

func isComparisonTok(k token.Kind) bool {
	switch k {
	case token.Eq, token.Lt, token.Gt, token.Le, token.Ge:
		return true
	}
	return false
}

func binOpKind(k token.Kind) ast.Kind {
	switch k {
	case token.Eq:
		return ast.KindEqual
	case token.Lt:
		return ast.KindLess
	case token.Gt:
		return ast.KindGreater
	case token.Le:
		return ast.KindLessEqual
	case token.Ge:
		return ast.KindGreaterEqual
	case token.Plus:
		return ast.KindAdd
	case token.Minus:
		return ast.KindSubtract
	case token.Star:
		return ast.KindMultiply
	case token.Slash:
		return ast.KindDivide
	case token.Caret:
		return ast.KindPower
	}
	return ast.KindValue
}

// parseComparison folds the lowest-precedence, non-chaining comparison
// operators.
func (fp *fileParser) parseComparison() (ast.Node, error) {
	left, err := fp.parseAdditive()
	if err != nil {
		return nil, err
	}
	if !isComparisonTok(fp.cur().Kind) {
		return left, nil
	}
	op := fp.advance()
	right, err := fp.parseAdditive()
	if err != nil {
		return nil, err
	}
	result := ast.NewBinOp(binOpKind(op.Kind), op.Loc, left, right)
	if isComparisonTok(fp.cur().Kind) {
		return nil, diag.Parsef(fp.cur().Loc, "comparison operators do not chain")
	}
	return result, nil
}

func (fp *fileParser) parseAdditive() (ast.Node, error) {
	left, err := fp.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for fp.at(token.Plus) || fp.at(token.Minus) {
		op := fp.advance()
		right, err := fp.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinOp(binOpKind(op.Kind), op.Loc, left, right)
	}
	return left, nil
}

func (fp *fileParser) parseMultiplicative() (ast.Node, error) {
	left, err := fp.parsePower()
	if err != nil {
		return nil, err
	}
	for fp.at(token.Star) || fp.at(token.Slash) {
		op := fp.advance()
		right, err := fp.parsePower()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinOp(binOpKind(op.Kind), op.Loc, left, right)
	}
	return left, nil
}

func (fp *fileParser) parsePower() (ast.Node, error) {
	left, err := fp.parseTerm()
	if err != nil {
		return nil, err
	}
	for fp.at(token.Caret) {
		op := fp.advance()
		right, err := fp.parseTerm()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinOp(binOpKind(op.Kind), op.Loc, left, right)
	}
	return left, nil
}

func isEnumToken(k token.Kind) bool {
	switch k {
	case token.SequenceForwards, token.SequenceBackwards, token.SequencePingPong, token.SequenceRandom,
		token.RandomStep, token.RandomLinear, token.RoundNearest, token.RoundUp, token.RoundDown:
		return true
	}
	return false
}

func (fp *fileParser) parseTerm() (ast.Node, error) {
	tok := fp.cur()
	switch {
	case tok.Kind == token.LParen:
		fp.advance()
		inner, err := fp.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := fp.expect(token.RParen); err != nil {
			return nil, err
		}
		return &ast.Paren{Base: ast.Base{Loc: tok.Loc}, Inner: inner}, nil
	case tok.Kind == token.LBracket:
		return fp.parseList()
	case tok.Kind == token.Value:
		fp.advance()
		return &ast.Value{Base: ast.Base{Loc: tok.Loc}, Num: tok.Num}, nil
	case tok.Kind == token.StringLit:
		fp.advance()
		return &ast.StringLit{Base: ast.Base{Loc: tok.Loc}, Text: tok.Text}, nil
	case isEnumToken(tok.Kind):
		fp.advance()
		return &ast.EnumLit{Base: ast.Base{Loc: tok.Loc}, Name: tok.Text}, nil
	case tok.Kind == token.Identifier:
		return fp.parseIdentifierTerm()
	default:
		return nil, diag.Parsef(tok.Loc, "unexpected token %v", tok)
	}
}

func (fp *fileParser) parseList() (ast.Node, error) {
	loc := fp.cur().Loc
	if _, err := fp.expect(token.LBracket); err != nil {
		return nil, err
	}
	var values []ast.Node
	for {
		v, err := fp.parseExpression()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if fp.at(token.Comma) {
			fp.advance()
			continue
		}
		break
	}
	if _, err := fp.expect(token.RBracket); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, diag.Parsef(loc, "list must not be empty")
	}
	return &ast.List{Base: ast.Base{Loc: loc}, Values: values}, nil
}

func (fp *fileParser) parseIdentifierTerm() (ast.Node, error) {
	tok := fp.advance()
	if fp.at(token.LParen) {
		return fp.parseCall(tok)
	}
	switch fp.scope.Find(tok.Text) {
	case bindInput:
		return &ast.InputRef{Base: ast.Base{Loc: tok.Loc}, Name: tok.Text}, nil
	case bindVariable:
		return &ast.VariableRef{Base: ast.Base{Loc: tok.Loc}, Name: tok.Text}, nil
	case bindFunction:
		return &ast.FunctionRef{Base: ast.Base{Loc: tok.Loc}, Name: tok.Text}, nil
	default:
		return nil, diag.Parsef(tok.Loc, "unknown identifier %q", tok.Text)
	}
}

// peekIsColonAfterIdent reports whether the identifier at fp.pos is
// immediately followed by ':', marking a named argument.
func (fp *fileParser) peekIsColonAfterIdent() bool {
	return fp.pos+1 < len(fp.toks) && fp.toks[fp.pos+1].Kind == token.Colon
}

func (fp *fileParser) parseCall(nameTok token.Token) (ast.Node, error) {
	if nameTok.Text == "include" {
		return nil, diag.Parsef(nameTok.Loc, "include is only valid as a top-level instruction")
	}
	if _, err := fp.expect(token.LParen); err != nil {
		return nil, err
	}
	var args []*ast.Argument
	if !fp.at(token.RParen) {
		for {
			argLoc := fp.cur().Loc
			argName := ""
			if fp.at(token.Identifier) && fp.peekIsColonAfterIdent() {
				nt := fp.advance()
				argName = nt.Text
				if _, err := fp.expect(token.Colon); err != nil {
					return nil, err
				}
			}
			val, err := fp.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, &ast.Argument{Base: ast.Base{Loc: argLoc}, Name: argName, Value: val})
			if fp.at(token.Comma) {
				fp.advance()
				continue
			}
			break
		}
	}
	if _, err := fp.expect(token.RParen); err != nil {
		return nil, err
	}

	intrinsic := ast.Intrinsics[nameTok.Text]
	if !intrinsic {
		if _, ok := fp.scope.FunctionArity(nameTok.Text); !ok {
			return nil, diag.Parsef(nameTok.Loc, "unknown function %q", nameTok.Text)
		}
	}
	return &ast.Call{Base: ast.Base{Loc: nameTok.Loc}, Name: nameTok.Text, Intrinsic: intrinsic, Args: args}, nil
}
