package ast

import (
	"fmt"
	"strings"
)

const (
	treeLevelEmpty               = "        "
	treeLevelOngoing             = "  |     "
	treeLevelPrefix              = "  |%s: "
	treeLevelPrefixLast          = `  \%s: `
	treeLevelPrefixNamePadChar   = '-'
	treeLevelPrefixNamePadAmount = 3
)

func makeTreeLevelPrefix(msg string, last bool) string {
	for len([]rune(msg)) < treeLevelPrefixNamePadAmount {
		msg = string(treeLevelPrefixNamePadChar) + msg
	}
	if last {
		return fmt.Sprintf(treeLevelPrefixLast, msg)
	}
	return fmt.Sprintf(treeLevelPrefix, msg)
}

// Dump returns a prettified representation of the tree rooted at s suitable
// for line-by-line comparison of tree structure. Two trees are structurally
// identical if they produce identical Dump output.
func Dump(s Statement) string {
	var sb strings.Builder
	sb.WriteString("(TREE)\n")
	sb.WriteString(leveledStr(s, makeTreeLevelPrefix("", true), treeLevelEmpty))
	return sb.String()
}

type labeledChild struct {
	label string
	stmt  Statement
}

func leveledStr(s Statement, firstPrefix, contPrefix string) string {
	var sb strings.Builder

	sb.WriteString(firstPrefix)
	sb.WriteString(nodeHeader(s))

	var children []labeledChild
	if f, ok := s.(*ForStatement); ok && f.Init != nil {
		children = append(children, labeledChild{"I", f.Init})
	}
	if c, ok := s.(Container); ok {
		for i := 0; i < c.Len(); i++ {
			children = append(children, labeledChild{fmt.Sprintf("%d", i), c.At(i)})
		}
	}

	for i, ch := range children {
		sb.WriteRune('\n')
		last := i+1 == len(children)
		next := treeLevelOngoing
		if last {
			next = treeLevelEmpty
		}
		sb.WriteString(leveledStr(ch.stmt, contPrefix+makeTreeLevelPrefix(ch.label, last), contPrefix+next))
	}

	return sb.String()
}

func nodeHeader(s Statement) string {
	var detail string

	switch st := s.(type) {
	case *PragmaStatement:
		detail = st.Text
	case *RawStatement:
		detail = st.Text
	case *ExprStatement:
		detail = FormatExpr(st.X)
	case *Declaration:
		parts := make([]string, len(st.Decls))
		for i, d := range st.Decls {
			parts[i] = d.Var.String()
			if d.Init != nil {
				parts[i] += " = " + FormatExpr(d.Init)
			}
		}
		detail = strings.Join(parts, ", ")
	case *TypeDeclStatement:
		if st.Struct != nil {
			detail = "struct " + st.Struct.Name
		}
		if st.Alias != "" {
			if detail != "" {
				detail += " "
			}
			detail += "alias " + st.Alias
		}
	case *FunctionDeclStatement:
		detail = st.Func.String()
	case *FunctionStatement:
		detail = st.Func.String()
	case *ReturnStatement:
		if st.Value != nil {
			detail = FormatExpr(st.Value)
		}
	case *CaseStatement:
		detail = FormatExpr(st.Value)
	case *IfStatement:
		detail = FormatExpr(st.Cond)
	case *ElifStatement:
		detail = FormatExpr(st.Cond)
	case *ForStatement:
		var cond, update string
		if st.Cond != nil {
			cond = FormatExpr(st.Cond)
		}
		if st.Update != nil {
			update = FormatExpr(st.Update)
		}
		detail = cond + "; " + update
	case *WhileStatement:
		detail = FormatExpr(st.Cond)
		if st.Do {
			detail = "do " + detail
		}
	case *SwitchStatement:
		detail = FormatExpr(st.Value)
	case *BlockStatement:
		if !st.Braces {
			detail = "braceless"
		}
	}

	out := "(" + strings.ToUpper(s.Kind().String())
	if detail != "" {
		out += fmt.Sprintf(" %q", detail)
	}
	if attrs := s.Attributes(); attrs.Len() > 0 {
		out += " " + attrs.String()
	}
	return out + ")"
}
