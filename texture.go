package matsys

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Texture is a reference-counted texture handle owned by a TextureProvider.
type Texture interface {
	Name() string
	IncRef()
	DecRef()
}

// TextureProvider resolves texture references to handles.
// FindTexture returns a handle with one reference taken for the caller.
type TextureProvider interface {
	FindTexture(ref TextureRef, group string) (Texture, error)
	// ErrorTexture returns the well-known texture used when a lookup fails.
	// It carries no reference for the caller.
	ErrorTexture() Texture
}

// TextureKind indicates texture reference type.
type TextureKind string

const (
	// TextureKindPath represents a texture file reference.
	TextureKindPath TextureKind = "path"
	// TextureKindProcedural represents a procedural texture reference.
	TextureKindProcedural TextureKind = "procedural"
)

// TextureRef represents a texture reference string.
type TextureRef struct {
	Procedural *ProceduralTexture `json:"procedural,omitempty" yaml:"procedural,omitempty"` // Parsed procedural texture expression
	Raw        string             `json:"raw,omitempty" yaml:"raw,omitempty"`               // Normalized texture reference string
	Kind       TextureKind        `json:"kind,omitempty" yaml:"kind,omitempty"`             // Texture reference type
	ParsedOK   bool               `json:"parsedOk,omitempty" yaml:"parsedOk,omitempty"`     // Whether a procedural expression parsed
}

// ProceduralTexture is a procedural texture expression.
//
// Example: "#(rgba,8,8,1)color(0.5,0.5,0.5,1.0)"
// - Format/Width/Height/Mip come from the header "#(rgba,8,8,1)".
// - Func/Args come from "color(...)".
type ProceduralTexture struct {
	// Color is set for color(r,g,b,a) expressions.
	Color *ProceduralColor `json:"color,omitempty" yaml:"color,omitempty"`

	Format string   `json:"format,omitempty" yaml:"format,omitempty"` // Texel format
	Func   string   `json:"func,omitempty" yaml:"func,omitempty"`     // Generator function name
	Args   []string `json:"args,omitempty" yaml:"args,omitempty"`     // Generator arguments
	Width  int      `json:"width,omitempty" yaml:"width,omitempty"`   // Texture width
	Height int      `json:"height,omitempty" yaml:"height,omitempty"` // Texture height
	Mip    int      `json:"mip,omitempty" yaml:"mip,omitempty"`       // Mip level count
}

// ProceduralColor is a procedural color(r,g,b,a) texture.
type ProceduralColor struct {
	R float64 `json:"r,omitempty" yaml:"r,omitempty"` // Red color component
	G float64 `json:"g,omitempty" yaml:"g,omitempty"` // Green color component
	B float64 `json:"b,omitempty" yaml:"b,omitempty"` // Blue color component
	A float64 `json:"a,omitempty" yaml:"a,omitempty"` // Alpha color component
}

// NewProcedural creates a procedural texture reference from parts.
// Args can be strings or numbers; numeric args are formatted consistently.
func NewProcedural(format string, width, height, mip int, fn string, args ...any) TextureRef {
	raw := buildProceduralRaw(format, width, height, mip, fn, formatProceduralArgs(args...))
	return ParseTextureRef(raw)
}

// NewProceduralColor creates a color(...) procedural texture reference.
func NewProceduralColor(format string, width, height, mip int, r, g, b, a float64) TextureRef {
	return NewProcedural(format, width, height, mip, "color", r, g, b, a)
}

// ParseTextureRef parses a texture reference string.
func ParseTextureRef(raw string) TextureRef {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "#(") {
		tr := TextureRef{Raw: raw, Kind: TextureKindProcedural}
		if pt, ok := parseProcedural(raw); ok {
			tr.Procedural = pt
			tr.ParsedOK = true
		}

		return tr
	}

	return TextureRef{Raw: NormalizeTextureName(raw), Kind: TextureKindPath}
}

// NormalizeTextureName lower-cases a texture path, uses forward slashes and
// strips a leading "materials/" and the ".vtf" extension.
func NormalizeTextureName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, `\`, "/")
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimPrefix(s, "materials/")
	s = strings.TrimSuffix(s, ".vtf")

	return s
}

// IsProcedural reports whether the texture is procedural.
func (t TextureRef) IsProcedural() bool { return t.Kind == TextureKindProcedural }

// IsPath reports whether the texture is a file reference.
func (t TextureRef) IsPath() bool { return t.Kind == TextureKindPath }

// String returns the raw reference.
func (t TextureRef) String() string { return t.Raw }

// Validate returns issues for this texture reference.
func (t TextureRef) Validate() []Issue {
	var out []Issue
	switch {
	case t.Raw == "":
		out = append(out, Issue{Level: IssueWarning, Code: "texture_empty", Message: "empty texture reference"})
	case t.IsProcedural():
		if !t.ParsedOK {
			out = append(out, Issue{Level: IssueError, Code: "texture_procedural", Message: "malformed procedural texture", Path: t.Raw})
		} else if strings.EqualFold(t.Procedural.Func, "color") && t.Procedural.Color == nil {
			out = append(out, Issue{Level: IssueError, Code: "texture_procedural_args", Message: "color() expects 4 numeric arguments", Path: t.Raw})
		}
	default:
		if strings.Contains(t.Raw, "..") {
			out = append(out, Issue{Level: IssueWarning, Code: "texture_dotdot", Message: "texture path contains '..'", Path: t.Raw})
		}
		if ext := path.Ext(t.Raw); ext != "" && !strings.Contains(ext, "/") {
			out = append(out, Issue{Level: IssueWarning, Code: "texture_ext", Message: fmt.Sprintf("texture reference has extension %q", ext), Path: t.Raw})
		}
	}

	return out
}

// parseProcedural parses "#(format,w,h,mip)func(args...)".
func parseProcedural(raw string) (*ProceduralTexture, bool) {
	rest, ok := strings.CutPrefix(raw, "#(")
	if !ok {
		return nil, false
	}
	header, call, ok := strings.Cut(rest, ")")
	if !ok {
		return nil, false
	}

	head := splitArgs(header)
	if len(head) < 4 {
		return nil, false
	}
	var dims [3]int
	for i := range dims {
		n, err := strconv.Atoi(head[i+1])
		if err != nil {
			return nil, false
		}
		dims[i] = n
	}

	call = strings.TrimSpace(call)
	open, end := strings.IndexByte(call, '('), strings.LastIndexByte(call, ')')
	if open <= 0 || end <= open {
		return nil, false
	}

	pt := &ProceduralTexture{
		Format: head[0],
		Width:  dims[0],
		Height: dims[1],
		Mip:    dims[2],
		Func:   strings.TrimSpace(call[:open]),
		Args:   splitArgs(call[open+1 : end]),
	}
	if strings.EqualFold(pt.Func, "color") {
		pt.Color = proceduralColor(pt.Args)
	}

	return pt, true
}

// splitArgs splits a comma separated list into trimmed fields.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	out := strings.Split(s, ",")
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}

	return out
}

// proceduralColor returns the color of color(r,g,b,a) arguments, or nil.
func proceduralColor(args []string) *ProceduralColor {
	if len(args) != 4 {
		return nil
	}

	var c [4]float64
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil
		}
		c[i] = f
	}

	return &ProceduralColor{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// formatProceduralArgs renders generator arguments; floats use the shortest form.
func formatProceduralArgs(args ...any) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case float64:
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
		case float32:
			out[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		default:
			out[i] = fmt.Sprint(v)
		}
	}

	return out
}

// buildProceduralRaw joins procedural parts into a reference string.
func buildProceduralRaw(format string, width, height, mip int, fn string, args []string) string {
	return fmt.Sprintf("#(%s,%d,%d,%d)%s(%s)", format, width, height, mip, fn, strings.Join(args, ","))
}
