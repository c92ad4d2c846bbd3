// Package parser is the external parse-tree factory referenced by spec.md
// §1 ("a node allocator whose identity does not matter to the design").
// It is not part of the compiler's core and carries none of its semantic
// depth; it exists only so the core packages (symtab, linker, semantic,
// ir, target) have real *ast.Program values to operate on in their tests,
// and so `oblc parse`/`oblc lex` have something to show. It implements a
// small, deliberately uncomplicated recursive-descent grammar for the
// surface syntax spec.md's examples use (`class Hello { function : Main
// (args:System.String[]) ~ Nil { } }`), not a complete language grammar.
package parser

import (
	"fmt"
	"strconv"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/lexer"
	"github.com/sgzwiz/oblc/internal/token"
)

// Parser is a two-token look-ahead recursive-descent parser.
type Parser struct {
	l    *lexer.Lexer
	cur  token.Token
	peek token.Token
	errs []string

	// bundle is the bundle currently being populated, so an inline
	// anonymous-class body encountered mid-expression (parseNew) has
	// somewhere to register the synthesized class (spec.md §3's "Anonymous
	// class": "a class defined inline at a `new` call site").
	bundle *ast.Bundle
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.Next()
}

func (p *Parser) Errors() []string { return p.errs }

func (p *Parser) errorf(format string, args ...any) {
	p.errs = append(p.errs, fmt.Sprintf("%s: %s", p.cur.Pos, fmt.Sprintf(format, args...)))
}

func (p *Parser) expect(k token.Kind) token.Token {
	t := p.cur
	if p.cur.Kind != k {
		p.errorf("expected token kind %d, got %q", k, p.cur.Literal)
	}
	p.next()
	return t
}

// ParseProgram parses a full translation unit into a *ast.Program holding a
// single default bundle (bundle wrapping, when present, only renames it).
func (p *Parser) ParseProgram() *ast.Program {
	prog := ast.NewProgram()
	bundleName := ""

	for p.cur.Kind == token.USE {
		p.next()
		name := p.expect(token.IDENT).Literal
		for p.cur.Kind == token.DOT {
			p.next()
			name += "." + p.expect(token.IDENT).Literal
		}
		prog.Uses[name] = true
		if p.cur.Kind == token.SEMI {
			p.next()
		}
	}

	if p.cur.Kind == token.BUNDLE {
		p.next()
		bundleName = p.expect(token.IDENT).Literal
		p.expect(token.LBRACE)
	}

	bundle := ast.NewBundle(bundleName)
	p.bundle = bundle
	for p.cur.Kind != token.EOF && p.cur.Kind != token.RBRACE {
		switch p.cur.Kind {
		case token.CLASS:
			bundle.AddClass(p.parseClass(false))
		case token.INTERFACE:
			bundle.AddClass(p.parseClass(true))
		case token.ENUM:
			bundle.AddEnum(p.parseEnum())
		default:
			p.errorf("unexpected token %q at top level", p.cur.Literal)
			p.next()
		}
	}
	prog.Bundles = append(prog.Bundles, bundle)
	return prog
}

func (p *Parser) parseEnum() *ast.Enum {
	p.expect(token.ENUM)
	e := &ast.Enum{Name: p.expect(token.IDENT).Literal}
	p.expect(token.LBRACE)
	id := 0
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		name := p.expect(token.IDENT).Literal
		itemID := id
		if p.cur.Kind == token.ASSIGN {
			p.next()
			n, _ := strconv.ParseInt(p.expect(token.INT_LIT).Literal, 10, 64)
			itemID = int(n)
		}
		e.Items = append(e.Items, &ast.EnumItem{Name: name, ID: itemID})
		id = itemID + 1
		if p.cur.Kind == token.COMMA {
			p.next()
		}
	}
	p.expect(token.RBRACE)
	return e
}

func (p *Parser) parseClass(isInterface bool) *ast.Class {
	pos := p.cur.Pos
	p.next() // 'class' / 'interface'
	c := ast.NewClassDecl(p.expect(token.IDENT).Literal)
	c.IsInterface = isInterface
	c.File = pos.File
	c.Line = pos.Line

	if p.cur.Kind == token.FROM {
		p.next()
		c.ParentName = p.parseQualifiedName()
	}
	if p.cur.Kind == token.IMPLEMENTS {
		p.next()
		c.InterfaceNames = append(c.InterfaceNames, p.parseQualifiedName())
		for p.cur.Kind == token.COMMA {
			p.next()
			c.InterfaceNames = append(c.InterfaceNames, p.parseQualifiedName())
		}
	}

	p.expect(token.LBRACE)
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		switch p.cur.Kind {
		case token.METHOD, token.FUNCTION:
			c.AddMethod(p.parseMethod(c))
		case token.VIRTUAL:
			c.IsVirtual = true
			c.AddMethod(p.parseMethod(c))
		default:
			c.Fields = append(c.Fields, p.parseFieldDecl())
		}
	}
	p.expect(token.RBRACE)
	return c
}

func (p *Parser) parseQualifiedName() string {
	name := p.expect(token.IDENT).Literal
	for p.cur.Kind == token.DOT {
		p.next()
		name += "." + p.expect(token.IDENT).Literal
	}
	return name
}

func (p *Parser) parseFieldDecl() *ast.FieldDecl {
	static := false
	if p.cur.Kind == token.STATIC {
		static = true
		p.next()
	}
	pos := p.cur.Pos
	name := p.expect(token.IDENT).Literal
	p.expect(token.COLON)
	typ := p.parseType()
	if p.cur.Kind == token.SEMI {
		p.next()
	}
	return &ast.FieldDecl{Name: name, Type: typ, Static: static, Pos: pos}
}

// parseMethod handles both `method : kind [, modifiers] : Simple(params) ~
// Ret { stmts }` and the `function : Simple(params) ~ Ret { stmts }`
// shorthand for a static free function.
func (p *Parser) parseMethod(owner *ast.Class) *ast.Method {
	pos := p.cur.Pos
	isFunction := p.cur.Kind == token.FUNCTION
	startedVirtual := p.cur.Kind == token.VIRTUAL
	p.next() // 'method' / 'function' / 'virtual'

	m := &ast.Method{Pos: pos, Function: isFunction, Static: isFunction, Virtual: startedVirtual}

	if !isFunction {
		p.expect(token.COLON)
		m.Kind, m.Static, m.Native = p.parseMethodModifiers()
	}

	p.expect(token.COLON)
	simple := p.expect(token.IDENT).Literal
	m.SimpleName = simple
	m.ParsedName = owner.Name + ":" + simple

	p.expect(token.LPAREN)
	m.Declarations = p.parseParamList()
	p.expect(token.RPAREN)
	p.expect(token.TILDE)
	m.ReturnType = p.parseType()

	if p.cur.Kind == token.LBRACE {
		p.next()
		for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
			m.Statements = append(m.Statements, p.parseStatement())
		}
		p.expect(token.RBRACE)
	} else if p.cur.Kind == token.SEMI {
		p.next() // virtual/interface method, no body
	}
	return m
}

// parseMethodModifiers reads the comma-separated modifier list following
// `method :`, one of {public, private, new_public, new_private}, optionally
// joined with `, static` / `, native`.
func (p *Parser) parseMethodModifiers() (kind ast.MethodKind, static, native bool) {
	for {
		switch p.cur.Kind {
		case token.PUBLIC:
			kind = ast.MethodPublic
		case token.PRIVATE:
			kind = ast.MethodPrivate
		case token.NEW_PUBLIC:
			kind = ast.MethodNewPublic
		case token.NEW_PRIVATE:
			kind = ast.MethodNewPrivate
		case token.STATIC:
			static = true
		case token.NATIVE:
			native = true
		default:
			p.errorf("unexpected method modifier %q", p.cur.Literal)
		}
		p.next()
		if p.cur.Kind == token.COMMA {
			p.next()
			continue
		}
		break
	}
	return
}

func (p *Parser) parseParamList() []*ast.ParamDecl {
	var out []*ast.ParamDecl
	for p.cur.Kind != token.RPAREN && p.cur.Kind != token.EOF {
		pos := p.cur.Pos
		name := p.expect(token.IDENT).Literal
		p.expect(token.COLON)
		typ := p.parseType()
		var def ast.Expression
		if p.cur.Kind == token.WALRUS {
			p.next()
			def = p.parseExpression(precLowest)
		}
		out = append(out, &ast.ParamDecl{Name: name, Type: typ, Default: def, Pos: pos})
		if p.cur.Kind == token.COMMA {
			p.next()
		}
	}
	return out
}

func (p *Parser) parseType() *ast.Type {
	dim := 0
	switch p.cur.Kind {
	case token.IDENT:
		name := p.parseQualifiedName()
		for p.cur.Kind == token.LBRACKET {
			p.next()
			p.expect(token.RBRACKET)
			dim++
		}
		switch name {
		case "Bool":
			return ast.NewArray(ast.KindBool, dim)
		case "Byte":
			return ast.NewArray(ast.KindByte, dim)
		case "Char":
			return ast.NewArray(ast.KindChar, dim)
		case "Int":
			return ast.NewArray(ast.KindInt, dim)
		case "Float":
			return ast.NewArray(ast.KindFloat, dim)
		default:
			return ast.NewClass(name, dim)
		}
	case token.NIL:
		p.next()
		return ast.NewScalar(ast.KindNil)
	default:
		p.errorf("expected a type, got %q", p.cur.Literal)
		p.next()
		return ast.NewScalar(ast.KindNil)
	}
}
