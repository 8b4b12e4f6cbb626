package core

import (
	"fmt"
	"sort"
	"strings"
)

// Render produces a readable source-like rendering of a term, used in
// diagnostics and by the CLI dump command. It is not a parseable surface
// syntax and makes no canonicalization promises; only the binary encoding
// does.
func Render(t Term) string {
	var sb strings.Builder
	render(&sb, t, false)
	return sb.String()
}

func render(sb *strings.Builder, t Term, nested bool) {
	openParen := func() {
		if nested {
			sb.WriteByte('(')
		}
	}
	closeParen := func() {
		if nested {
			sb.WriteByte(')')
		}
	}

	switch t := t.(type) {
	case Universe:
		sb.WriteString(t.String())
	case Builtin:
		sb.WriteString(string(t))
	case Var:
		sb.WriteString(t.Name)
		if t.Index > 0 {
			fmt.Fprintf(sb, "@%d", t.Index)
		}
	case Lambda:
		openParen()
		fmt.Fprintf(sb, "λ(%s : %s) → ", t.Label, Render(t.Type))
		render(sb, t.Body, false)
		closeParen()
	case Pi:
		openParen()
		if t.Label == "_" {
			render(sb, t.Domain, true)
			sb.WriteString(" → ")
		} else {
			fmt.Fprintf(sb, "∀(%s : %s) → ", t.Label, Render(t.Domain))
		}
		render(sb, t.Codomain, false)
		closeParen()
	case App:
		openParen()
		render(sb, t.Fn, false)
		sb.WriteByte(' ')
		render(sb, t.Arg, true)
		closeParen()
	case Let:
		openParen()
		fmt.Fprintf(sb, "let %s", t.Label)
		if t.Annotation != nil {
			fmt.Fprintf(sb, " : %s", Render(t.Annotation))
		}
		fmt.Fprintf(sb, " = %s in ", Render(t.Value))
		render(sb, t.Body, false)
		closeParen()
	case Annot:
		openParen()
		render(sb, t.Expr, true)
		sb.WriteString(" : ")
		render(sb, t.Annotation, false)
		closeParen()
	case BoolLit:
		if t {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case If:
		openParen()
		fmt.Fprintf(sb, "if %s then %s else %s", Render(t.Cond), Render(t.T), Render(t.F))
		closeParen()
	case NaturalLit:
		sb.WriteString(t.Value.String())
	case IntegerLit:
		if t.Value.Sign() >= 0 {
			sb.WriteByte('+')
		}
		sb.WriteString(t.Value.String())
	case DoubleLit:
		sb.WriteString(FormatDouble(float64(t)))
	case TextLit:
		sb.WriteByte('"')
		for _, c := range t.Chunks {
			sb.WriteString(escapeTextBody(c.Prefix))
			sb.WriteString("${")
			render(sb, c.Expr, false)
			sb.WriteByte('}')
		}
		sb.WriteString(escapeTextBody(t.Suffix))
		sb.WriteByte('"')
	case EmptyList:
		openParen()
		sb.WriteString("[] : ")
		render(sb, t.Type, false)
		closeParen()
	case NonEmptyList:
		sb.WriteByte('[')
		for i, e := range t.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			render(sb, e, false)
		}
		sb.WriteByte(']')
	case Some:
		openParen()
		sb.WriteString("Some ")
		render(sb, t.Value, true)
		closeParen()
	case RecordType:
		renderFields(sb, t, "{", ":", "}")
	case RecordLit:
		if len(t) == 0 {
			sb.WriteString("{=}")
			return
		}
		renderFields(sb, t, "{", "=", "}")
	case UnionType:
		labels := sortedLabels(t)
		sb.WriteString("< ")
		for i, l := range labels {
			if i > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(l)
			if t[l] != nil {
				sb.WriteString(" : ")
				render(sb, t[l], false)
			}
		}
		sb.WriteString(" >")
	case Field:
		render(sb, t.Record, true)
		sb.WriteByte('.')
		sb.WriteString(t.Label)
	case Project:
		render(sb, t.Record, true)
		sb.WriteString(".{")
		sb.WriteString(strings.Join(t.Labels, ", "))
		sb.WriteByte('}')
	case ProjectType:
		render(sb, t.Record, true)
		sb.WriteString(".(")
		render(sb, t.Selector, false)
		sb.WriteByte(')')
	case Merge:
		openParen()
		fmt.Fprintf(sb, "merge %s %s", renderNested(t.Handler), renderNested(t.Union))
		if t.Annotation != nil {
			fmt.Fprintf(sb, " : %s", Render(t.Annotation))
		}
		closeParen()
	case ToMap:
		openParen()
		fmt.Fprintf(sb, "toMap %s", renderNested(t.Record))
		if t.Annotation != nil {
			fmt.Fprintf(sb, " : %s", Render(t.Annotation))
		}
		closeParen()
	case With:
		openParen()
		fmt.Fprintf(sb, "%s with %s = %s",
			renderNested(t.Record), strings.Join(t.Path, "."), Render(t.Value))
		closeParen()
	case Assert:
		openParen()
		fmt.Fprintf(sb, "assert : %s", Render(t.Annotation))
		closeParen()
	case Op:
		openParen()
		render(sb, t.L, true)
		fmt.Fprintf(sb, " %s ", t.OpCode)
		render(sb, t.R, true)
		closeParen()
	case Note:
		render(sb, t.Expr, nested)
	case Import:
		sb.WriteString(t.String())
	default:
		sb.WriteString("<unknown>")
	}
}

func renderNested(t Term) string {
	var sb strings.Builder
	render(&sb, t, true)
	return sb.String()
}

func renderFields(sb *strings.Builder, m map[string]Term, openBrace, sep, closeBrace string) {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	sb.WriteString(openBrace)
	sb.WriteByte(' ')
	for i, l := range labels {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s %s ", l, sep)
		render(sb, m[l], false)
	}
	sb.WriteByte(' ')
	sb.WriteString(closeBrace)
}

func escapeTextBody(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "${", `\${`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
