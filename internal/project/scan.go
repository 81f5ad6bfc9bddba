package project

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokFloat
	tokChar
	tokString
	tokLifetime
	tokPunct
)

func (k tokKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokInt:
		return "integer"
	case tokFloat:
		return "float"
	case tokChar:
		return "char"
	case tokString:
		return "string"
	case tokLifetime:
		return "lifetime"
	default:
		return "punctuation"
	}
}

// token is one lexeme of a fixture snippet. Suffix holds a numeric literal
// suffix such as "u8"; for char and string literals Text is the unescaped
// value.
type token struct {
	Kind   tokKind
	Text   string
	Suffix string
	Off    int
}

// puncts lists multi-byte punctuation, longest first.
var puncts = []string{"::", "->", "=>", "==", "!=", "<=", ">=", "&&", "||"}

// scanner splits a snippet into tokens. Snippets are NFC-normalized first so
// that identifiers compare by code points.
type scanner struct {
	src  string
	off  int
	toks []token
}

func scan(src string) ([]token, error) {
	s := &scanner{src: norm.NFC.String(src)}
	for {
		s.skipSpace()
		if s.off >= len(s.src) {
			s.toks = append(s.toks, token{Kind: tokEOF, Off: s.off})
			return s.toks, nil
		}
		if err := s.next(); err != nil {
			return nil, err
		}
	}
}

func (s *scanner) peekRune(off int) (rune, int) {
	if off >= len(s.src) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(s.src[off:])
}

func (s *scanner) skipSpace() {
	for s.off < len(s.src) {
		r, n := s.peekRune(s.off)
		switch {
		case unicode.IsSpace(r):
			s.off += n
		case strings.HasPrefix(s.src[s.off:], "//"):
			end := strings.IndexByte(s.src[s.off:], '\n')
			if end < 0 {
				s.off = len(s.src)
				return
			}
			s.off += end
		default:
			return
		}
	}
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isIdentContinue(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

func (s *scanner) ident(start int) string {
	off := start
	for off < len(s.src) {
		r, n := s.peekRune(off)
		if !isIdentContinue(r) {
			break
		}
		off += n
	}
	return s.src[start:off]
}

func (s *scanner) next() error {
	start := s.off
	r, n := s.peekRune(s.off)
	switch {
	case isIdentStart(r):
		text := s.ident(start)
		s.off += len(text)
		s.toks = append(s.toks, token{Kind: tokIdent, Text: text, Off: start})
		return nil
	case r >= '0' && r <= '9':
		return s.number()
	case r == '\'':
		return s.quote()
	case r == '"':
		return s.str()
	}
	for _, p := range puncts {
		if strings.HasPrefix(s.src[s.off:], p) {
			s.off += len(p)
			s.toks = append(s.toks, token{Kind: tokPunct, Text: p, Off: start})
			return nil
		}
	}
	if strings.ContainsRune("(){}[]<>,;:.=+-*/%!&|", r) {
		s.off += n
		s.toks = append(s.toks, token{Kind: tokPunct, Text: string(r), Off: start})
		return nil
	}
	return s.errorf(start, "unexpected character %q", r)
}

func (s *scanner) digits() {
	for s.off < len(s.src) {
		c := s.src[s.off]
		if (c < '0' || c > '9') && c != '_' {
			return
		}
		s.off++
	}
}

func (s *scanner) number() error {
	start := s.off
	s.digits()
	kind := tokInt
	if s.off+1 < len(s.src) && s.src[s.off] == '.' && s.src[s.off+1] >= '0' && s.src[s.off+1] <= '9' {
		kind = tokFloat
		s.off++
		s.digits()
	}
	text := strings.ReplaceAll(s.src[start:s.off], "_", "")
	suffix := ""
	if r, _ := s.peekRune(s.off); isIdentStart(r) {
		suffix = s.ident(s.off)
		s.off += len(suffix)
		switch suffix {
		case "i8", "i16", "i32", "i64", "i128", "isize",
			"u8", "u16", "u32", "u64", "u128", "usize":
		case "f32", "f64":
			kind = tokFloat
		default:
			return s.errorf(start, "invalid literal suffix %q", suffix)
		}
	}
	s.toks = append(s.toks, token{Kind: kind, Text: text, Suffix: suffix, Off: start})
	return nil
}

// quote scans a char literal or a lifetime.
func (s *scanner) quote() error {
	start := s.off
	s.off++
	if r, _ := s.peekRune(s.off); isIdentStart(r) {
		name := s.ident(s.off)
		if end := s.off + len(name); end >= len(s.src) || s.src[end] != '\'' {
			s.off = end
			s.toks = append(s.toks, token{Kind: tokLifetime, Text: name, Off: start})
			return nil
		}
	}
	r, err := s.escaped('\'')
	if err != nil {
		return err
	}
	if s.off >= len(s.src) || s.src[s.off] != '\'' {
		return s.errorf(start, "unterminated char literal")
	}
	s.off++
	s.toks = append(s.toks, token{Kind: tokChar, Text: string(r), Off: start})
	return nil
}

func (s *scanner) str() error {
	start := s.off
	s.off++
	var sb strings.Builder
	for {
		if s.off >= len(s.src) {
			return s.errorf(start, "unterminated string literal")
		}
		if s.src[s.off] == '"' {
			s.off++
			break
		}
		r, err := s.escaped('"')
		if err != nil {
			return err
		}
		sb.WriteRune(r)
	}
	s.toks = append(s.toks, token{Kind: tokString, Text: sb.String(), Off: start})
	return nil
}

// escaped reads one possibly escaped rune of a char or string literal.
func (s *scanner) escaped(quote rune) (rune, error) {
	r, n := s.peekRune(s.off)
	if n == 0 {
		return 0, s.errorf(s.off, "unterminated literal")
	}
	s.off += n
	if r != '\\' {
		return r, nil
	}
	e, n := s.peekRune(s.off)
	s.off += n
	switch e {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case '\\', '\'', '"':
		return e, nil
	}
	return 0, s.errorf(s.off-n-1, "unknown escape \\%c in %c-quoted literal", e, quote)
}

func (s *scanner) errorf(off int, format string, args ...any) error {
	return errors.Newf("%s: %s", position(s.src, off), fmt.Sprintf(format, args...))
}

// position renders a byte offset as line:column.
func position(src string, off int) string {
	if off > len(src) {
		off = len(src)
	}
	line := 1 + strings.Count(src[:off], "\n")
	col := off - strings.LastIndexByte(src[:off], '\n')
	return fmt.Sprintf("%d:%d", line, col)
}
