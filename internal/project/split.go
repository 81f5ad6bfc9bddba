package project

import (
	"strings"

	"tyinc/internal/hir"
)

// splitTop splits s at commas outside of brackets.
func splitTop(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	parts := out[:0]
	for _, p := range out {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// leadingIdent returns the identifier s starts with and the rest.
func leadingIdent(s string) (string, string) {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return !isIdentContinue(r) })
	if end < 0 {
		return s, ""
	}
	return s[:end], strings.TrimSpace(s[end:])
}

// splitVariant splits "Some(T)" or "Point { x: i32 }" into the variant
// name, its shape and its field snippets.
func splitVariant(v string) (string, hir.VariantShape, []string) {
	name, rest := leadingIdent(v)
	switch {
	case strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")"):
		return name, hir.ShapeTuple, splitTop(rest[1 : len(rest)-1])
	case strings.HasPrefix(rest, "{") && strings.HasSuffix(rest, "}"):
		return name, hir.ShapeRecord, splitTop(rest[1 : len(rest)-1])
	}
	return name, hir.ShapeUnit, nil
}

// assocName returns the name of "Item", "Item: Bound" or "Item = Type".
func assocName(src string) string {
	name, _ := leadingIdent(src)
	return name
}

// parseParamType parses the type of a "pattern: Type" parameter, skipping
// the pattern.
func parseParamType(src string, sc *scope) (hir.TypeRef, error) {
	p, err := newParser(src, sc)
	if err != nil {
		return hir.TypeRef{}, err
	}
	depth := 0
	for p.err == nil {
		t := p.peek()
		if t.Kind == tokEOF {
			p.failf("expected \":\" after parameter pattern")
			break
		}
		if t.Kind == tokPunct {
			switch t.Text {
			case "(":
				depth++
			case ")":
				depth--
			case ":":
				if depth == 0 {
					p.next()
					ty := p.typeRef()
					return ty, p.done()
				}
			}
		}
		p.next()
	}
	return hir.TypeRef{}, p.err
}
