package matsys

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// tokenType represents a type of a token.
type tokenType int

// token types.
const (
	tokEOF    tokenType = iota // End of file
	tokWord                    // Unquoted word
	tokString                  // Quoted string
	tokLBrace                  // Left brace
	tokRBrace                  // Right brace
)

// token represents a token in a definition document.
type token struct {
	Lit  string    // Literal value of the token
	Type tokenType // Type of the token
	Line int       // Line number of the token
	Col  int       // Column number of the token
}

// lexer splits a definition document into tokens.
type lexer struct {
	r   *bufio.Reader // Reader for the input
	pos position      // Position of the current character
	ch  rune          // Current character
	opt ParseOptions  // Options for the lexer
	eof bool          // End of file
}

// position represents a position in the input.
type position struct {
	line int // Line number
	col  int // Column number
}

// newLexer creates a new lexer over r.
func newLexer(r io.Reader, opt ParseOptions) *lexer {
	l := &lexer{r: bufio.NewReader(r), opt: opt, pos: position{line: 1, col: 0}}
	l.read()
	if l.ch == 0xFEFF {
		// Skip UTF-8 BOM if present.
		l.read()
	}

	return l
}

// next returns the next token.
func (l *lexer) next() (token, error) {
	l.skipWhitespace()
	if l.eof {
		return token{Type: tokEOF, Line: l.pos.line, Col: l.pos.col}, nil
	}

	startLine, startCol := l.pos.line, l.pos.col

	switch l.ch {
	case '{':
		l.read()
		return token{Type: tokLBrace, Lit: "{", Line: startLine, Col: startCol}, nil
	case '}':
		l.read()
		return token{Type: tokRBrace, Lit: "}", Line: startLine, Col: startCol}, nil
	case '"':
		lit, err := l.readString()
		return token{Type: tokString, Lit: lit, Line: startLine, Col: startCol}, err
	}

	if !isWordPart(l.ch) {
		return token{}, l.errorf("unexpected character '%c'", l.ch)
	}

	// Bare words cover keys like $basetexture, numbers, paths and
	// bracketed vectors written without spaces ("[1,1,1]").
	return token{Type: tokWord, Lit: l.readWord(), Line: startLine, Col: startCol}, nil
}

// read reads the next character.
func (l *lexer) read() {
	ch, _, err := l.r.ReadRune()
	if err != nil {
		l.eof = true
		l.ch = 0
		return
	}

	if ch == '\n' {
		l.pos.line++
		l.pos.col = 0
	} else {
		l.pos.col++
	}

	l.ch = ch
}

// peek returns the next character without consuming it.
func (l *lexer) peek() rune {
	ch, _, err := l.r.ReadRune()
	if err != nil {
		return 0
	}

	_ = l.r.UnreadRune()
	return ch
}

// skipWhitespace skips whitespace characters and comments.
func (l *lexer) skipWhitespace() {
	for {
		for unicode.IsSpace(l.ch) {
			l.read()
			if l.eof {
				return
			}
		}

		if !l.opt.DisableComments && l.ch == '/' {
			next := l.peek()
			if next == '/' {
				l.read()
				l.read()
				for l.ch != '\n' && !l.eof {
					l.read()
				}
				continue
			}

			if next == '*' {
				l.read()
				l.read()
				for {
					if l.eof {
						return
					}
					if l.ch == '*' && l.peek() == '/' {
						l.read()
						l.read()
						break
					}
					l.read()
				}
				continue
			}
		}
		break
	}
}

// readWord reads an unquoted word.
func (l *lexer) readWord() string {
	var b strings.Builder
	for isWordPart(l.ch) {
		// A comment directly after a word ends it.
		if !l.opt.DisableComments && l.ch == '/' {
			if next := l.peek(); next == '/' || next == '*' {
				break
			}
		}
		b.WriteRune(l.ch)
		l.read()
		if l.eof {
			break
		}
	}

	return b.String()
}

// readString reads a quoted string.
func (l *lexer) readString() (string, error) {
	l.read() // consume opening quote
	var b strings.Builder
	for {
		if l.eof {
			return "", l.errorf("unterminated string")
		}

		if l.ch == '"' {
			if l.peek() == '"' {
				// Doubled quotes are an escaped quote.
				l.read()
				l.read()
				b.WriteRune('"')
				continue
			}
			l.read()
			break
		}

		if l.ch == '\\' {
			next := l.peek()
			if next == '\\' || next == '"' {
				l.read()
				b.WriteRune(l.ch)
				l.read()
				continue
			}
		}
		b.WriteRune(l.ch)
		l.read()
	}

	return b.String(), nil
}

// errorf formats an error message and returns an error.
func (l *lexer) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at %d:%d: %s", ErrLex, l.pos.line, l.pos.col, fmt.Sprintf(format, args...))
}

// isWordPart checks if a character may appear in an unquoted word.
func isWordPart(r rune) bool {
	if unicode.IsSpace(r) || unicode.IsControl(r) {
		return false
	}

	switch r {
	case '{', '}', '"':
		return false
	}

	return true
}
