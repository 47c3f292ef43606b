package matsys

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
)

// Encode writes a Node tree as a definition document.
func Encode(w io.Writer, n *Node, opt *FormatOptions) error {
	fopt := opt.normalize()
	// Buffered writer reduces syscall overhead and short writes.
	bw := bufio.NewWriter(w)
	wr := &writer{w: bw, indent: fopt.Indent, quoteKeys: fopt.QuoteKeys}
	if err := wr.writeNode(n); err != nil {
		return err
	}

	return bw.Flush()
}

// EncodeFile writes a Node tree to a file.
func EncodeFile(path string, n *Node, opt *FormatOptions) error {
	b, err := Format(n, opt)
	if err != nil {
		return err
	}

	return os.WriteFile(path, b, 0o600)
}

// Format renders a Node tree to bytes.
func Format(n *Node, opt *FormatOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, n, opt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// writer writes a Node tree to a writer.
type writer struct {
	w         io.Writer // Writer to write to
	indent    string    // Indentation string
	cache     []string  // Cache of indentation strings
	level     int       // Current nesting level
	quoteKeys bool      // Quote every key
}

// writeNode writes a scalar line or a section block.
func (w *writer) writeNode(n *Node) error {
	if err := w.writeIndent(); err != nil {
		return err
	}
	if err := w.writeKey(n.Name); err != nil {
		return err
	}

	if !n.Section {
		if err := w.writeString(" "); err != nil {
			return err
		}
		if err := w.writeQuoted(n.Value); err != nil {
			return err
		}
		return w.writeString("\n")
	}

	if err := w.writeString("\n"); err != nil {
		return err
	}
	if err := w.writeIndent(); err != nil {
		return err
	}
	if err := w.writeString("{\n"); err != nil {
		return err
	}

	w.level++
	for _, c := range n.Children {
		if err := w.writeNode(c); err != nil {
			return err
		}
	}
	w.level--

	if err := w.writeIndent(); err != nil {
		return err
	}

	return w.writeString("}\n")
}

// writeKey writes a key, quoting it when required.
func (w *writer) writeKey(k string) error {
	if w.quoteKeys || needsQuote(k) {
		return w.writeQuoted(k)
	}

	return w.writeString(k)
}

// writeIndent writes the current indentation.
func (w *writer) writeIndent() error {
	if w.level == 0 {
		return nil
	}

	return w.writeString(w.indentFor(w.level))
}

// writeQuoted writes a quoted string, escaping quotes and backslashes.
func (w *writer) writeQuoted(s string) error {
	if err := w.writeString("\""); err != nil {
		return err
	}
	if strings.ContainsAny(s, "\"\\") {
		s = quoteEscaper.Replace(s)
	}
	if err := w.writeString(s); err != nil {
		return err
	}

	return w.writeString("\"")
}

// writeString writes a string to the writer.
func (w *writer) writeString(s string) error {
	_, err := io.WriteString(w.w, s)
	return err
}

// indentFor returns the indentation string for a level.
func (w *writer) indentFor(level int) string {
	if level <= 0 {
		return ""
	}

	if len(w.cache) <= level {
		w.cache = append(w.cache, make([]string, level-len(w.cache)+1)...)
	}
	if w.cache[level] == "" {
		// Cache computed indentation for this level.
		w.cache[level] = strings.Repeat(w.indent, level)
	}

	return w.cache[level]
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// needsQuote reports whether a key cannot be written as a bare word.
func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if !isWordPart(r) {
			return true
		}
	}

	// A key starting a comment would be swallowed by the lexer.
	return strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/*")
}
