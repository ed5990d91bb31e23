// Package parser turns a token stream into an Organic AST, resolving
// includes, scopes, and operator precedence. It is grounded on the
// teacher's single Parser/ParserConfig entry point (internal/mml/parser.go)
// generalized from MML's flat event stream to Organic's nested,
// scope-resolved call-expression grammar.
package parser

import (
	"github.com/organic-audio/organic/internal/diag"
	"github.com/organic-audio/organic/internal/lang/ast"
	"github.com/organic-audio/organic/internal/lang/token"
	"github.com/organic-audio/organic/internal/srcfile"
)

// Parser drives the whole-program parse, including every transitively
// included file. It carries state that must survive across files: the set
// of canonicalized included paths and any accumulated warnings.
type Parser struct {
	included map[string]bool
	Warnings []*diag.Error
}

// New creates a Parser ready to parse a root program file.
func New() *Parser {
	return &Parser{included: make(map[string]bool)}
}

// ParseFile reads and parses path as the root program.
func (p *Parser) ParseFile(path string) (*ast.Program, error) {
	src, err := srcfile.Read(path)
	if err != nil {
		return nil, diag.Filef("%v", err)
	}
	return p.parseSource(path, src, NewScope())
}

func (p *Parser) parseSource(path, src string, scope *Scope) (*ast.Program, error) {
	toks, err := token.NewLexer(path, src).Tokenize()
	if err != nil {
		return nil, diag.Parsef(token.Location{Path: path, Line: 1, Col: 1}, "%v", err)
	}
	fp := &fileParser{path: path, toks: toks, scope: scope, owner: p}
	return fp.parseProgram()
}

type fileParser struct {
	path  string
	toks  []token.Token
	pos   int
	scope *Scope
	owner *Parser
}

func (fp *fileParser) cur() token.Token { return fp.toks[fp.pos] }

func (fp *fileParser) at(k token.Kind) bool { return fp.cur().Kind == k }

func (fp *fileParser) advance() token.Token {
	t := fp.toks[fp.pos]
	if fp.pos < len(fp.toks)-1 {
		fp.pos++
	}
	return t
}

func (fp *fileParser) expect(k token.Kind) (token.Token, error) {
	if !fp.at(k) {
		return token.Token{}, diag.Parsef(fp.cur().Loc, "expected %v, found %v", k, fp.cur())
	}
	return fp.advance(), nil
}

// parseProgram implements §4.2's entry: leading include(...) calls, then
// instructions until EOF.
func (fp *fileParser) parseProgram() (*ast.Program, error) {
	loc := fp.cur().Loc
	prog := &ast.Program{}
	prog.Loc = loc

	seenNonInclude := false
	for !fp.at(token.EOF) {
		instLoc := fp.cur().Loc
		isInclude := fp.at(token.Identifier) && fp.cur().Text == "include" && fp.peekIsLParen()
		if isInclude {
			if seenNonInclude {
				return nil, diag.Parsef(instLoc, "include must precede all other instructions")
			}
			node, err := fp.parseInclude()
			if err != nil {
				return nil, err
			}
			if node != nil {
				prog.Instructions = append(prog.Instructions, node)
			}
			continue
		}
		seenNonInclude = true
		node, err := fp.parseInstruction()
		if err != nil {
			return nil, err
		}
		prog.Instructions = append(prog.Instructions, node)
	}
	return prog, nil
}

func (fp *fileParser) peekIsLParen() bool {
	return fp.pos+1 < len(fp.toks) && fp.toks[fp.pos+1].Kind == token.LParen
}

// parseInclude handles `include("path")`, resolving relative to the
// including file, deduplicating by canonical path across the whole parse.
func (fp *fileParser) parseInclude() (ast.Node, error) {
	loc := fp.cur().Loc
	fp.advance() // 'include'
	if _, err := fp.expect(token.LParen); err != nil {
		return nil, err
	}
	pathTok, err := fp.expect(token.StringLit)
	if err != nil {
		return nil, err
	}
	if _, err := fp.expect(token.RParen); err != nil {
		return nil, err
	}

	resolved := srcfile.ResolveInclude(fp.path, pathTok.Text)
	canon, err := srcfile.Canonical(resolved)
	if err != nil {
		return nil, diag.Includef(loc, "cannot resolve include %q: %v", pathTok.Text, err)
	}
	selfCanon, _ := srcfile.Canonical(fp.path)

	if canon == selfCanon || fp.owner.included[canon] {
		fp.owner.Warnings = append(fp.owner.Warnings, diag.Warningf(loc, "duplicate or self include %q ignored", pathTok.Text))
		return &ast.Include{Base: ast.Base{Loc: loc}, Path: resolved, Program: nil}, nil
	}
	fp.owner.included[canon] = true

	if !srcfile.Exists(resolved) {
		return nil, diag.Includef(loc, "include %q not found (resolved to %s)", pathTok.Text, resolved)
	}
	src, err := srcfile.Read(resolved)
	if err != nil {
		return nil, diag.Includef(loc, "%v", err)
	}

	childScope := fp.scope.Child("")
	childProg, err := fp.owner.parseSource(resolved, src, childScope)
	if err != nil {
		return nil, err
	}
	if err := fp.scope.MergeFrom(childScope); err != nil {
		return nil, diag.Includef(loc, "%v", err)
	}
	return &ast.Include{Base: ast.Base{Loc: loc}, Path: resolved, Program: childProg}, nil
}

// parseInstruction dispatches the three top-level instruction forms (§4.2).
func (fp *fileParser) parseInstruction() (ast.Node, error) {
	if fp.at(token.Identifier) && fp.peekIsAssignOrDefine() {
		return fp.parseAssignOrDefine()
	}
	expr, err := fp.parseExpression()
	if err != nil {
		return nil, err
	}
	if call, ok := expr.(*ast.Call); ok {
		call.TopLevel = true
		if call.Intrinsic && ast.IsAudioSource(call.Name) {
			return wrapPlay(call), nil
		}
	}
	return expr, nil
}

func wrapPlay(source *ast.Call) *ast.Call {
	arg := &ast.Argument{Base: ast.Base{Loc: source.Loc}, Value: source}
	return &ast.Call{Base: ast.Base{Loc: source.Loc}, Name: "play", Intrinsic: true, TopLevel: true, Args: []*ast.Argument{arg}}
}

// peekIsAssignOrDefine looks past a bare identifier for '=' (Assign) or '('
// followed eventually by ") =" (Define), without consuming tokens.
func (fp *fileParser) peekIsAssignOrDefine() bool {
	next := fp.pos + 1
	if next >= len(fp.toks) {
		return false
	}
	if fp.toks[next].Kind == token.Assign {
		return true
	}
	if fp.toks[next].Kind != token.LParen {
		return false
	}
	depth := 0
	i := next
	for i < len(fp.toks) {
		switch fp.toks[i].Kind {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
			if depth == 0 {
				return i+1 < len(fp.toks) && fp.toks[i+1].Kind == token.Assign
			}
		case token.EOF:
			return false
		}
		i++
	}
	return false
}

func (fp *fileParser) parseAssignOrDefine() (ast.Node, error) {
	nameTok := fp.advance()
	name := nameTok.Text
	if ast.Intrinsics[name] {
		return nil, diag.Parsef(nameTok.Loc, "%q is a reserved intrinsic name and cannot be assigned or defined", name)
	}

	if fp.at(token.Assign) {
		fp.advance()
		val, err := fp.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := fp.scope.DeclareVariable(name); err != nil {
			return nil, diag.Parsef(nameTok.Loc, "%v", err)
		}
		return &ast.Assign{Base: ast.Base{Loc: nameTok.Loc}, Name: name, Value: val}, nil
	}

	// Define: name(params) = { body }
	if _, err := fp.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []string
	if !fp.at(token.RParen) {
		for {
			p, err := fp.expect(token.Identifier)
			if err != nil {
				return nil, err
			}
			params = append(params, p.Text)
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
	if err := fp.scope.DeclareFunction(name, len(params)); err != nil {
		return nil, diag.Parsef(nameTok.Loc, "%v", err)
	}
	if _, err := fp.expect(token.Assign); err != nil {
		return nil, err
	}
	if _, err := fp.expect(token.LBrace); err != nil {
		return nil, err
	}

	bodyScope := fp.scope.Child(name)
	for _, param := range params {
		if err := bodyScope.DeclareInput(param); err != nil {
			return nil, diag.Parsef(nameTok.Loc, "%v", err)
		}
	}
	bodyParser := &fileParser{path: fp.path, toks: fp.toks, pos: fp.pos, scope: bodyScope, owner: fp.owner}
	var body []ast.Node
	for !bodyParser.at(token.RBrace) {
		if bodyParser.at(token.EOF) {
			return nil, diag.Parsef(nameTok.Loc, "unterminated function body for %q", name)
		}
		inst, err := bodyParser.parseInstruction()
		if err != nil {
			return nil, err
		}
		body = append(body, inst)
	}
	fp.pos = bodyParser.pos
	if _, err := fp.expect(token.RBrace); err != nil {
		return nil, err
	}
	return &ast.Define{Base: ast.Base{Loc: nameTok.Loc}, Name: name, Params: params, Body: body}, nil
}
