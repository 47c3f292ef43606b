package matsys

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Parse parses a definition document from bytes.
func Parse(data []byte, opt *ParseOptions) (*Node, error) {
	return Decode(bytes.NewReader(data), opt)
}

// Decode parses a definition document from reader.
// The document is a single root key followed by its section.
func Decode(r io.Reader, opt *ParseOptions) (*Node, error) {
	p := newParser(r, opt.normalize())
	return p.parseDocument()
}

// DecodeFile parses a definition document from a file.
func DecodeFile(path string, opt *ParseOptions) (*Node, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(b, opt)
}

// parser represents a parser for definition documents.
type parser struct {
	l   *lexer       // Lexer for the document
	buf token        // Buffered token
	has bool         // Has buffered token
	opt ParseOptions // Options for the parser
}

// newParser creates a new parser.
func newParser(r io.Reader, opt ParseOptions) *parser {
	return &parser{l: newLexer(r, opt), opt: opt}
}

// next returns the next token.
func (p *parser) next() (token, error) {
	if p.has {
		p.has = false
		return p.buf, nil
	}

	return p.l.next()
}

// peek returns the next token without consuming it.
func (p *parser) peek() (token, error) {
	if p.has {
		return p.buf, nil
	}

	tok, err := p.l.next()
	if err != nil {
		return tok, err
	}

	p.buf = tok
	p.has = true
	return tok, nil
}

// parseDocument parses the root key and its section.
func (p *parser) parseDocument() (*Node, error) {
	key, err := p.expectKey()
	if err != nil {
		return nil, err
	}

	root := NewSection(key.Lit)
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	if err := p.parseSectionBody(root); err != nil {
		return nil, err
	}

	// Anything after the root section is ignored by readers of this format,
	// but a stray token usually means a broken document.
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Type != tokEOF {
		return nil, p.errorf(tok, "unexpected %s after root section", tokenName(tok.Type))
	}

	return root, nil
}

// parseSectionBody parses entries until the closing brace.
func (p *parser) parseSectionBody(sec *Node) error {
	for {
		tok, err := p.peek()
		if err != nil {
			return err
		}

		switch tok.Type {
		case tokRBrace:
			_, _ = p.next()
			return nil
		case tokEOF:
			return p.errorf(tok, "unterminated section %q", sec.Name)
		}

		key, err := p.expectKey()
		if err != nil {
			return err
		}

		val, err := p.next()
		if err != nil {
			return err
		}

		switch val.Type {
		case tokLBrace:
			child := NewSection(key.Lit)
			if err := p.parseSectionBody(child); err != nil {
				return err
			}
			sec.Add(child)
		case tokWord, tokString:
			sec.Add(NewScalar(key.Lit, val.Lit))
		default:
			return p.errorf(val, "expected value or section for %q, got %s", key.Lit, tokenName(val.Type))
		}
	}
}

// expectKey expects a word or a quoted string.
func (p *parser) expectKey() (token, error) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}

	if tok.Type != tokWord && tok.Type != tokString {
		return tok, p.errorf(tok, "expected key, got %s", tokenName(tok.Type))
	}

	return tok, nil
}

// expect expects a token of a specific type.
func (p *parser) expect(tt tokenType) (token, error) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}

	if tok.Type != tt {
		return tok, p.errorf(tok, "expected %s", tokenName(tt))
	}

	return tok, nil
}

// errorf formats an error.
func (p *parser) errorf(tok token, format string, args ...any) error {
	return fmt.Errorf("%w at %d:%d: %s", ErrParse, tok.Line, tok.Col, fmt.Sprintf(format, args...))
}

// tokenName returns the name of a token.
func tokenName(tt tokenType) string {
	switch tt {
	case tokEOF:
		return "EOF"
	case tokWord:
		return "word"
	case tokString:
		return "string"
	case tokLBrace:
		return "{"
	case tokRBrace:
		return "}"
	default:
		return "token"
	}
}
