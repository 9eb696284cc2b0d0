package ast

import "strings"

// FormatExpr renders e as C source. Parentheses are only emitted where they
// appear in the tree as Paren nodes, so transforms that build expressions must
// add them where precedence requires it.
func FormatExpr(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch e := e.(type) {
	case nil:
		return
	case *Ident:
		sb.WriteString(e.Name)
	case *Literal:
		sb.WriteString(e.Text)
	case *RawExpr:
		sb.WriteString(e.Text)
	case *Unary:
		if e.Postfix {
			writeExpr(sb, e.X)
			sb.WriteString(e.Op)
		} else {
			sb.WriteString(e.Op)
			writeExpr(sb, e.X)
		}
	case *Binary:
		writeExpr(sb, e.X)
		if e.Op == "," {
			sb.WriteString(", ")
		} else {
			sb.WriteString(" " + e.Op + " ")
		}
		writeExpr(sb, e.Y)
	case *Ternary:
		writeExpr(sb, e.Cond)
		sb.WriteString(" ? ")
		writeExpr(sb, e.Then)
		sb.WriteString(" : ")
		writeExpr(sb, e.Else)
	case *Call:
		writeExpr(sb, e.Fn)
		sb.WriteRune('(')
		for i, arg := range e.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpr(sb, arg)
		}
		sb.WriteRune(')')
	case *Subscript:
		writeExpr(sb, e.X)
		sb.WriteRune('[')
		writeExpr(sb, e.Index)
		sb.WriteRune(']')
	case *Member:
		writeExpr(sb, e.X)
		if e.Arrow {
			sb.WriteString("->")
		} else {
			sb.WriteRune('.')
		}
		sb.WriteString(e.Name)
	case *Cast:
		sb.WriteRune('(')
		sb.WriteString(e.Type.Declare(""))
		sb.WriteString(") ")
		writeExpr(sb, e.X)
	case *Sizeof:
		sb.WriteString("sizeof(")
		if e.Type != nil {
			sb.WriteString(e.Type.Declare(""))
		} else {
			writeExpr(sb, e.X)
		}
		sb.WriteRune(')')
	case *Paren:
		sb.WriteRune('(')
		writeExpr(sb, e.X)
		sb.WriteRune(')')
	case *InitList:
		sb.WriteRune('{')
		for i, el := range e.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpr(sb, el)
		}
		sb.WriteRune('}')
	}
}
