package matsys

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// ParamType is the declared type of a shader parameter.
type ParamType uint8

// Parameter types.
const (
	ParamString ParamType = iota
	ParamFloat
	ParamInt
	ParamBool
	ParamColor
	ParamVec2
	ParamVec3
	ParamVec4
	ParamMatrix
	ParamTexture
	ParamMaterial
	ParamFourCC
)

var paramTypeNames = [...]string{
	ParamString:   "string",
	ParamFloat:    "float",
	ParamInt:      "int",
	ParamBool:     "bool",
	ParamColor:    "color",
	ParamVec2:     "vec2",
	ParamVec3:     "vec3",
	ParamVec4:     "vec4",
	ParamMatrix:   "matrix",
	ParamTexture:  "texture",
	ParamMaterial: "material",
	ParamFourCC:   "fourcc",
}

func (t ParamType) String() string {
	if int(t) < len(paramTypeNames) {
		return paramTypeNames[t]
	}

	return "ParamType(" + strconv.Itoa(int(t)) + ")"
}

// Param declares one shader parameter.
type Param struct {
	Name    string    `json:"name" yaml:"name"`
	Type    ParamType `json:"type" yaml:"type"`
	Default string    `json:"default,omitempty" yaml:"default,omitempty"` // Document text; empty leaves the variable undefined
	Help    string    `json:"help,omitempty" yaml:"help,omitempty"`
}

// ParseParam parses document text as a value of type t.
func ParseParam(text string, t ParamType) (Value, error) {
	s := strings.TrimSpace(text)
	switch t {
	case ParamString:
		return String(text), nil
	case ParamFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			if v, ok := ParseVector(s, 4); ok && strings.ContainsAny(s, "[{") {
				return Float(v.V[0]), nil
			}
			return nil, fmt.Errorf("float %q: %w", text, err)
		}
		return Float(f), nil
	case ParamInt:
		if i, err := strconv.ParseInt(s, 10, 32); err == nil {
			return Int(i), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("int %q: %w", text, err)
		}
		return Int(int32(f)), nil
	case ParamBool:
		return Int(boolInt(parseFlagValue(s))), nil
	case ParamColor, ParamVec3:
		return parseVectorN(s, 3)
	case ParamVec2:
		return parseVectorN(s, 2)
	case ParamVec4:
		return parseVectorN(s, 4)
	case ParamMatrix:
		m, ok := ParseMatrix(s)
		if !ok {
			return nil, fmt.Errorf("matrix %q: malformed", text)
		}
		return m, nil
	case ParamTexture:
		if s == "" {
			return Undefined{}, nil
		}
		return TextureValue{Ref: ParseTextureRef(s)}, nil
	case ParamMaterial:
		if s == "" {
			return Undefined{}, nil
		}
		return String(NormalizeName(s)), nil
	case ParamFourCC:
		if len(s) != 4 {
			return nil, fmt.Errorf("fourcc %q: want 4 characters", text)
		}
		return NewFourCC(s, nil), nil
	default:
		return nil, fmt.Errorf("unknown parameter type %d", t)
	}
}

func parseVectorN(s string, n int) (Value, error) {
	v, ok := ParseVector(s, n)
	if !ok {
		return nil, fmt.Errorf("vector %q: malformed", s)
	}
	v.N = n

	return v, nil
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}

	return 0
}

// Shader describes a registered shader: its parameters and the hooks the
// runtime calls while resolving, compiling and drawing a material.
type Shader struct {
	Name   string
	Params []Param

	// Fallback returns the shader to use instead for these variables and
	// capabilities, or "" to accept them.
	Fallback func(vars *VarSet, caps Capabilities) string
	// InitParams derives defaults and $flags2 bits after parsing.
	InitParams func(vars *VarSet, caps Capabilities)
	// InitInstance loads resources beyond the declared texture and material
	// parameters, which are loaded automatically.
	InitInstance func(vars *VarSet, res ResourceLoader)
	// Snapshot records the passes of rec.Modulation(). Required.
	Snapshot func(rec *Recorder, vars *VarSet)
	// ModulationIndex maps the legal draw flags to the modulation drawn.
	// A modulation with no compiled passes draws nothing. Nil draws the
	// legal flags unchanged.
	ModulationIndex func(vars *VarSet, external Modulation) Modulation
	// Dynamic issues per-draw state for one pass.
	Dynamic func(cmd CommandBuffer, vars *VarSet, mod Modulation, pass int)
}

// ResourceLoader loads textures and materials for a variable.
type ResourceLoader interface {
	LoadTexture(v *Variable)
	LoadMaterial(v *Variable)
}

// Param returns the declared parameter named name, standard ones included.
func (sh *Shader) Param(name string) (Param, bool) {
	if p, ok := standardParam(name); ok {
		return p, true
	}
	for _, p := range sh.Params {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}

	return Param{}, false
}

// AllParams returns the standard parameters followed by the shader's own.
func (sh *Shader) AllParams() []Param {
	out := make([]Param, 0, len(StandardParams)+len(sh.Params))
	out = append(out, StandardParams[:]...)
	for _, p := range sh.Params {
		if _, std := standardParam(p.Name); !std {
			out = append(out, p)
		}
	}

	return out
}

func standardParam(name string) (Param, bool) {
	for _, p := range StandardParams {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}

	return Param{}, false
}

// DebugShaderName is the universal fallback shader.
const DebugShaderName = "Debug"

// DebugShader draws every legal modulation as one unlit wireframe pass.
// It is the substitute for unknown shaders and failed compiles.
var DebugShader = &Shader{
	Name: DebugShaderName,
	Snapshot: func(rec *Recorder, vars *VarSet) {
		rec.Pass(PipelineDesc{
			VertexShader: "debug_vs",
			PixelShader:  "debug_ps",
			Depth:        DepthState{Test: true, Write: true},
			Cull:         CullNone,
			Wireframe:    true,
			VertexFormat: VFPosition | VFColor,
		})
	},
	Dynamic: func(cmd CommandBuffer, vars *VarSet, mod Modulation, pass int) {
		cmd.SetConstant(0, mgl32.Vec4{1, 0, 1, 1})
	},
}

// Registry maps shader names to descriptors. Names compare case-insensitively.
type Registry struct {
	mu      sync.RWMutex
	shaders map[string]*Shader
}

// NewRegistry returns a registry holding only the debug shader.
func NewRegistry() *Registry {
	r := &Registry{shaders: make(map[string]*Shader)}
	r.shaders[strings.ToLower(DebugShaderName)] = DebugShader

	return r
}

// Register adds or replaces a shader.
func (r *Registry) Register(sh *Shader) error {
	if sh == nil || sh.Name == "" {
		return fmt.Errorf("register shader: empty name")
	}
	if sh.Snapshot == nil {
		return fmt.Errorf("register shader %s: no snapshot hook", sh.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.shaders[strings.ToLower(sh.Name)] = sh

	return nil
}

// Lookup returns the shader registered under name.
func (r *Registry) Lookup(name string) (*Shader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sh, ok := r.shaders[strings.ToLower(name)]
	return sh, ok
}

// Names returns every registered shader name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.shaders))
	for _, sh := range r.shaders {
		out = append(out, sh.Name)
	}
	slices.Sort(out)

	return out
}
