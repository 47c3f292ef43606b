package matsys

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// FileReader returns raw definition documents by logical material name.
// A missing document is reported with an error wrapping fs.ErrNotExist
// or ErrDefinitionNotFound.
type FileReader interface {
	ReadFile(name string) ([]byte, error)
}

// FSReader reads definition documents from a file system.
type FSReader struct {
	FS  fs.FS  // File system rooted at the material directory
	Ext string // Document extension (default ".vmt")
}

const defaultExtension = ".vmt"

// ReadFile implements FileReader.
func (r FSReader) ReadFile(name string) ([]byte, error) {
	ext := r.Ext
	if ext == "" {
		ext = defaultExtension
	}

	b, err := fs.ReadFile(r.FS, NormalizeName(name)+ext)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, name)
	}

	return b, err
}

// NormalizeName turns a material reference into its logical name:
// lower case, forward slashes, no leading "materials/" and no extension.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Clean("/" + name)[1:]
	name = strings.TrimPrefix(name, "materials/")
	name = strings.TrimSuffix(name, defaultExtension)

	return name
}

// Definition is a loaded material document with its patch chain applied.
type Definition struct {
	Name     string   // Logical name that was requested
	Root     *Node    // Document with the accumulated patch applied
	Patch    *Node    // Accumulated patch sections, nil when name is not a patch
	Includes []string // Documents read through $include, outermost first
}

// ShaderName returns the root key of the document.
func (d *Definition) ShaderName() string {
	if d == nil || d.Root == nil {
		return ""
	}

	return d.Root.Name
}

// Loader reads definition documents and resolves patch include chains.
type Loader struct {
	Files           FileReader
	Parse           ParseOptions
	MaxIncludeDepth int // Default 10
}

// patch document keys.
const (
	patchRoot       = "patch"
	patchInclude    = "$include"
	patchIncludeAlt = "include"
	patchInsert     = "insert"
	patchReplace    = "replace"
)

// LoadDefinition reads name and, when it is a patch document, follows its
// include chain to the first non-patch document and applies the accumulated
// insert and replace sections to it.
//
// On ErrCyclicInclude the returned Definition still lists what was read so far,
// and its Root is the error definition with the patches accumulated up to the
// point the chain was stopped.
func (l *Loader) LoadDefinition(name string) (*Definition, error) {
	name = NormalizeName(name)
	doc, err := l.read(name)
	if err != nil {
		return &Definition{Name: name}, err
	}

	return l.resolvePatches(name, doc)
}

// LoadDocument resolves an in-memory document the way LoadDefinition resolves
// one read from the file reader. doc is not modified.
func (l *Loader) LoadDocument(name string, doc *Node) (*Definition, error) {
	return l.resolvePatches(NormalizeName(name), doc.Clone())
}

func (l *Loader) resolvePatches(name string, doc *Node) (*Definition, error) {
	def := &Definition{Name: name}

	maxDepth := l.MaxIncludeDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxIncludeDepth
	}

	visited := map[string]struct{}{name: {}}
	cur := name
	var acc *Node

	for {
		if !strings.EqualFold(doc.Name, patchRoot) {
			if acc != nil {
				ApplyPatch(doc, acc)
			}
			def.Root = doc
			def.Patch = acc
			return def, nil
		}

		if acc == nil {
			acc = NewSection(patchRoot)
		}
		accumulatePatch(acc, doc)

		next := doc.String(patchInclude, "")
		if next == "" {
			next = doc.String(patchIncludeAlt, "")
		}
		if next == "" {
			return def, fmt.Errorf("%w: patch %s has no %s", ErrMalformedDefinition, cur, patchInclude)
		}
		next = NormalizeName(next)

		if len(def.Includes) >= maxDepth {
			return stopChain(def, acc), fmt.Errorf("%w: include chain from %s exceeds %d hops", ErrCyclicInclude, name, maxDepth)
		}
		if _, ok := visited[next]; ok {
			return stopChain(def, acc), fmt.Errorf("%w: %s includes %s again", ErrCyclicInclude, cur, next)
		}
		visited[next] = struct{}{}
		def.Includes = append(def.Includes, next)
		cur = next

		var err error
		if doc, err = l.read(cur); err != nil {
			return def, err
		}
	}
}

// stopChain roots def at the error definition with acc applied.
func stopChain(def *Definition, acc *Node) *Definition {
	root := ErrorDefinition()
	ApplyPatch(root, acc)
	def.Root = root
	def.Patch = acc
	return def
}

// read reads and parses one document.
func (l *Loader) read(name string) (*Node, error) {
	if l.Files == nil {
		return nil, fmt.Errorf("%w: %s (no file reader)", ErrDefinitionNotFound, name)
	}

	b, err := l.Files.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrDefinitionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, name)
		}
		return nil, err
	}

	doc, err := Parse(b, &l.Parse)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDefinition, name, err)
	}

	return doc, nil
}

// ErrorDefinitionShader is the shader named by the built-in error definition.
const ErrorDefinitionShader = DebugShaderName

// ErrorDefinition returns the minimal document used when a definition cannot be loaded.
func ErrorDefinition() *Node {
	root := NewSection(ErrorDefinitionShader)
	root.Set("$basetexture", "error")
	return root
}
