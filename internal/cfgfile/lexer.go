package cfgfile

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokEquals
	tokPlusEquals
	tokNewline
	tokKwImport
	tokKwIf
	tokKwElse
	tokKwAnd
	tokKwOr
	tokKwNot
)

type token struct {
	kind tokenKind
	text string
	line int
}

var keywords = map[string]tokenKind{
	"import": tokKwImport,
	"if":     tokKwIf,
	"else":   tokKwElse,
	"and":    tokKwAnd,
	"or":     tokKwOr,
	"not":    tokKwNot,
}

// lex tokenizes a restricted config source into a flat token stream,
// retaining newlines as statement separators (the grammar has no other way
// to tell one assignment from the next). Comments start with '#' and run
// to end of line.
func lex(src string) ([]token, error) {
	var toks []token
	line := 1
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == '\n':
			toks = append(toks, token{kind: tokNewline, line: line})
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '\'' || c == '"':
			quote := c
			start := i
			i++
			var b strings.Builder
			for i < n && src[i] != quote {
				if src[i] == '\\' && i+1 < n {
					i++
					switch src[i] {
					case 'n':
						b.WriteByte('\n')
					case 't':
						b.WriteByte('\t')
					default:
						b.WriteByte(src[i])
					}
					i++
					continue
				}
				b.WriteByte(src[i])
				i++
			}
			if i >= n {
				return nil, fmt.Errorf("line %d: unterminated string literal", line)
			}
			i++ // closing quote
			_ = start
			toks = append(toks, token{kind: tokString, text: b.String(), line: line})
		case c == '[':
			toks = append(toks, token{kind: tokLBracket, line: line})
			i++
		case c == ']':
			toks = append(toks, token{kind: tokRBracket, line: line})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, line: line})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, line: line})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, line: line})
			i++
		case c == '.':
			toks = append(toks, token{kind: tokDot, line: line})
			i++
		case c == '+' && i+1 < n && src[i+1] == '=':
			toks = append(toks, token{kind: tokPlusEquals, line: line})
			i += 2
		case c == '=':
			toks = append(toks, token{kind: tokEquals, line: line})
			i++
		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(src[i]) {
				i++
			}
			word := src[start:i]
			if kw, ok := keywords[word]; ok {
				toks = append(toks, token{kind: kw, text: word, line: line})
			} else {
				toks = append(toks, token{kind: tokIdent, text: word, line: line})
			}
		default:
			return nil, fmt.Errorf("line %d: unexpected character %q", line, c)
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line})
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
