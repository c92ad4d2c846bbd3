package parser

import (
	"strconv"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/token"
)

func (p *Parser) parseBlock() []ast.Statement {
	p.expect(token.LBRACE)
	var out []ast.Statement
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		out = append(out, p.parseStatement())
	}
	p.expect(token.RBRACE)
	return out
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Kind {
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoWhile()
	case token.FOR:
		return p.parseFor()
	case token.BREAK:
		pos := p.cur.Pos
		p.next()
		p.maybeSemi()
		s := &ast.BreakStatement{}
		s.Pos = pos
		return s
	case token.RETURN:
		pos := p.cur.Pos
		p.next()
		var val ast.Expression
		if p.cur.Kind != token.SEMI && p.cur.Kind != token.RBRACE {
			val = p.parseExpression(precLowest)
		}
		p.maybeSemi()
		s := &ast.ReturnStatement{Value: val}
		s.Pos = pos
		return s
	case token.SELECT:
		return p.parseSelect()
	case token.CRITICAL:
		return p.parseCritical()
	case token.SEMI:
		pos := p.cur.Pos
		p.next()
		s := &ast.EmptyStatement{}
		s.Pos = pos
		return s
	default:
		return p.parseSimpleOrDeclOrAssign()
	}
}

func (p *Parser) maybeSemi() {
	if p.cur.Kind == token.SEMI {
		p.next()
	}
}

func (p *Parser) parseIf() ast.Statement {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LPAREN)
	cond := p.parseExpression(precLowest)
	p.expect(token.RPAREN)
	then := p.parseBlock()
	stmt := &ast.IfStatement{Cond: cond, Then: then}
	stmt.Pos = pos
	for p.cur.Kind == token.ELSE {
		p.next()
		if p.cur.Kind == token.IF {
			p.next()
			p.expect(token.LPAREN)
			c := p.parseExpression(precLowest)
			p.expect(token.RPAREN)
			b := p.parseBlock()
			stmt.ElseIfs = append(stmt.ElseIfs, struct {
				Cond ast.Expression
				Body []ast.Statement
			}{c, b})
			continue
		}
		stmt.Else = p.parseBlock()
		break
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Statement {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LPAREN)
	cond := p.parseExpression(precLowest)
	p.expect(token.RPAREN)
	body := p.parseBlock()
	s := &ast.WhileStatement{Cond: cond, Body: body}
	s.Pos = pos
	return s
}

func (p *Parser) parseDoWhile() ast.Statement {
	pos := p.cur.Pos
	p.next()
	body := p.parseBlock()
	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	cond := p.parseExpression(precLowest)
	p.expect(token.RPAREN)
	p.maybeSemi()
	s := &ast.DoWhileStatement{Body: body, Cond: cond}
	s.Pos = pos
	return s
}

func (p *Parser) parseFor() ast.Statement {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LPAREN)
	var init ast.Statement
	if p.cur.Kind != token.SEMI {
		init = p.parseSimpleOrDeclOrAssign()
	} else {
		p.next()
	}
	var cond ast.Expression
	if p.cur.Kind != token.SEMI {
		cond = p.parseExpression(precLowest)
	}
	p.expect(token.SEMI)
	var step ast.Statement
	if p.cur.Kind != token.RPAREN {
		step = p.parseSimpleOrDeclOrAssignNoSemi()
	}
	p.expect(token.RPAREN)
	body := p.parseBlock()
	s := &ast.ForStatement{Init: init, Cond: cond, Step: step, Body: body}
	s.Pos = pos
	return s
}

func (p *Parser) parseSelect() ast.Statement {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LPAREN)
	disc := p.parseExpression(precLowest)
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)
	s := &ast.SelectStatement{Discriminant: disc}
	s.Pos = pos
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		c := &ast.SelectCase{}
		if p.cur.Kind == token.OTHER {
			c.IsOther = true
			p.next()
		} else {
			for {
				n, _ := strconv.ParseInt(p.expect(token.INT_LIT).Literal, 10, 64)
				c.Labels = append(c.Labels, n)
				if p.cur.Kind == token.COMMA {
					p.next()
					continue
				}
				break
			}
		}
		c.Body = p.parseBlock()
		s.Cases = append(s.Cases, c)
	}
	p.expect(token.RBRACE)
	return s
}

func (p *Parser) parseCritical() ast.Statement {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LPAREN)
	mutex := p.parseExpression(precLowest)
	p.expect(token.RPAREN)
	body := p.parseBlock()
	s := &ast.CriticalStatement{MutexVar: mutex, Body: body}
	s.Pos = pos
	return s
}

// parseSimpleOrDeclOrAssign handles `Name, Name2 : Type;` declarations,
// `target := expr;` / `target op= expr;` assignments, and bare expression
// statements, consuming a trailing `;` if present.
func (p *Parser) parseSimpleOrDeclOrAssign() ast.Statement {
	s := p.parseSimpleOrDeclOrAssignNoSemi()
	p.maybeSemi()
	return s
}

func (p *Parser) parseSimpleOrDeclOrAssignNoSemi() ast.Statement {
	pos := p.cur.Pos

	if p.cur.Kind == token.IDENT && p.peek.Kind == token.COLON {
		// could be a declaration list; look ahead isn't full backtracking so
		// we commit once we see `Name : Type` with no call/assign following.
		return p.parseDeclaration(pos)
	}

	expr := p.parseExpression(precLowest)

	switch p.cur.Kind {
	case token.WALRUS:
		p.next()
		val := p.parseExpression(precLowest)
		a := &ast.Assignment{Target: expr, Op: ast.AssignPlain, Value: val}
		a.Pos = pos
		return a
	case token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.MUL_ASSIGN, token.DIV_ASSIGN:
		op := compoundOp(p.cur.Kind)
		p.next()
		val := p.parseExpression(precLowest)
		a := &ast.Assignment{Target: expr, Op: op, Value: val}
		a.Pos = pos
		return a
	default:
		s := &ast.SimpleStatement{Expr: expr}
		s.Pos = pos
		return s
	}
}

func compoundOp(k token.Kind) ast.AssignOp {
	switch k {
	case token.PLUS_ASSIGN:
		return ast.AssignAdd
	case token.MINUS_ASSIGN:
		return ast.AssignSub
	case token.MUL_ASSIGN:
		return ast.AssignMul
	case token.DIV_ASSIGN:
		return ast.AssignDiv
	}
	return ast.AssignPlain
}

func (p *Parser) parseDeclaration(pos token.Position) ast.Statement {
	var names []string
	var namePositions []token.Position
	names = append(names, p.cur.Literal)
	namePositions = append(namePositions, p.cur.Pos)
	p.next()
	for p.cur.Kind == token.COMMA && p.peek.Kind == token.IDENT {
		p.next()
		names = append(names, p.cur.Literal)
		namePositions = append(namePositions, p.cur.Pos)
		p.next()
	}
	p.expect(token.COLON)
	typ := p.parseType()
	d := &ast.Declaration{}
	d.Pos = pos
	for i, n := range names {
		d.Decls = append(d.Decls, &ast.ParamDecl{Name: n, Type: typ, Pos: namePositions[i]})
	}
	return d
}
