package matsys

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Snapshot is an opaque handle to one fully resolved pipeline configuration
// for one render pass. The zero value is never a valid snapshot.
type Snapshot uint64

// PassList is the ordered snapshots recorded for one modulation.
type PassList []Snapshot

// Backend creates and classifies snapshots. It is implemented by the
// graphics layer; see package nullgfx for a reference implementation.
type Backend interface {
	// CreateSnapshot returns the snapshot for desc. Equal descriptions may
	// share one snapshot.
	CreateSnapshot(desc *PipelineDesc) (Snapshot, error)
	// ReleaseSnapshot drops a snapshot returned by CreateSnapshot.
	ReleaseSnapshot(s Snapshot)
	// IsTranslucent reports whether a snapshot blends with the frame buffer.
	IsTranslucent(s Snapshot) bool
	// IsAlphaTested reports whether a snapshot discards by alpha.
	IsAlphaTested(s Snapshot) bool
	// VertexFormat derives the vertex attributes a set of snapshots reads.
	VertexFormat(passes []Snapshot) VertexFormat
}

// CommandBuffer receives per-draw commands.
type CommandBuffer interface {
	BindSnapshot(s Snapshot)
	SetConstant(slot int, v mgl32.Vec4)
	BindTexture(unit int, tex Texture)
	Draw()
}

// CullMode is the type of cull modes.
type CullMode int

// Cull modes.
const (
	CullBack CullMode = iota
	CullNone
	CullFront
)

// CmpFunc is the type of comparison functions.
type CmpFunc int

// Comparison functions.
const (
	CmpLessEqual CmpFunc = iota
	CmpNever
	CmpLess
	CmpEqual
	CmpGreater
	CmpNotEqual
	CmpGreaterEqual
	CmpAlways
)

// BlendFac is the type of blend factors.
type BlendFac int

// Blend factors.
const (
	BlendZero BlendFac = iota
	BlendOne
	BlendSrcColor
	BlendInvSrcColor
	BlendSrcAlpha
	BlendInvSrcAlpha
	BlendDstColor
	BlendInvDstColor
	BlendDstAlpha
	BlendInvDstAlpha
)

// BlendState defines color blending for a pass.
type BlendState struct {
	// Blend enables blending.
	Blend  bool
	SrcFac BlendFac
	DstFac BlendFac
}

// DepthState defines the depth test of a pass.
type DepthState struct {
	// Test enables the depth test.
	Test bool
	// Write enables depth writes.
	Write bool
	Cmp   CmpFunc
}

// AlphaTestState defines alpha testing for a pass.
type AlphaTestState struct {
	Enable bool
	Ref    float32
	Cmp    CmpFunc
}

// PipelineDesc is a declarative description of one render pass.
// Shaders fill it through a Recorder; the backend turns it into a Snapshot.
type PipelineDesc struct {
	VertexShader string
	PixelShader  string
	// StaticCombo selects a precompiled shader variant.
	StaticCombo int

	Blend     BlendState
	Depth     DepthState
	AlphaTest AlphaTestState
	Cull      CullMode
	Wireframe bool
	SRGBWrite bool
	Fog       bool
	// Samplers lists the enabled texture units.
	Samplers []int

	VertexFormat VertexFormat
	// Modulation is the combination the pass was recorded for.
	Modulation Modulation
}

// Translucent reports whether the description blends with the frame buffer.
func (d *PipelineDesc) Translucent() bool {
	return d.Blend.Blend && !(d.Blend.SrcFac == BlendOne && d.Blend.DstFac == BlendZero)
}

// VertexFormat is a bitmask of the vertex attributes a pass reads.
//
// Bits 0-7 are attribute flags, bits 8-10 the bone weight count and bits 16-39
// the dimension (0-4) of each of the eight texcoord units, three bits per unit.
type VertexFormat uint64

// Vertex attribute flags.
const (
	VFPosition VertexFormat = 1 << iota
	VFNormal
	VFColor
	VFSpecular
	VFTangentS
	VFTangentT
	VFWrinkle
	VFBoneIndex
)

// Vertex format layout.
const (
	MaxTexCoordUnits = 8

	vfFlagMask      VertexFormat = 0xff
	vfBoneShift                  = 8
	vfBoneMask      VertexFormat = 0x7 << vfBoneShift
	vfTexCoordShift              = 16
	vfTexCoordBits               = 3
	vfTexCoordMask  VertexFormat = 0x7
)

// WithBoneWeights returns f with n bone weights per vertex (0-7).
func (f VertexFormat) WithBoneWeights(n int) VertexFormat {
	n = min(max(n, 0), 7)
	return f&^vfBoneMask | VertexFormat(n)<<vfBoneShift
}

// BoneWeights returns the bone weight count.
func (f VertexFormat) BoneWeights() int {
	return int(f&vfBoneMask) >> vfBoneShift
}

// WithTexCoord returns f with texcoord unit set to dims components (0-4).
func (f VertexFormat) WithTexCoord(unit, dims int) VertexFormat {
	if unit < 0 || unit >= MaxTexCoordUnits {
		return f
	}
	dims = min(max(dims, 0), 4)
	shift := vfTexCoordShift + unit*vfTexCoordBits

	return f&^(vfTexCoordMask<<shift) | VertexFormat(dims)<<shift
}

// TexCoordDims returns the component count of a texcoord unit.
func (f VertexFormat) TexCoordDims(unit int) int {
	if unit < 0 || unit >= MaxTexCoordUnits {
		return 0
	}

	return int(f >> (vfTexCoordShift + unit*vfTexCoordBits) & vfTexCoordMask)
}

// TexCoordCount returns one past the highest used texcoord unit.
func (f VertexFormat) TexCoordCount() int {
	n := 0
	for u := 0; u < MaxTexCoordUnits; u++ {
		if f.TexCoordDims(u) > 0 {
			n = u + 1
		}
	}

	return n
}

// Flags returns the attribute flags.
func (f VertexFormat) Flags() VertexFormat { return f & vfFlagMask }

// Union returns a format that satisfies both f and g.
func (f VertexFormat) Union(g VertexFormat) VertexFormat {
	out := f.Flags() | g.Flags()
	out = out.WithBoneWeights(max(f.BoneWeights(), g.BoneWeights()))
	for u := 0; u < MaxTexCoordUnits; u++ {
		out = out.WithTexCoord(u, max(f.TexCoordDims(u), g.TexCoordDims(u)))
	}

	return out
}

// SubsetOf reports whether every requirement of f is met by g.
func (f VertexFormat) SubsetOf(g VertexFormat) bool {
	if f.Flags()&^g.Flags() != 0 || f.BoneWeights() > g.BoneWeights() {
		return false
	}
	for u := 0; u < MaxTexCoordUnits; u++ {
		if f.TexCoordDims(u) > g.TexCoordDims(u) {
			return false
		}
	}

	return true
}

var vertexFlagNames = [...]string{"position", "normal", "color", "specular", "tangent_s", "tangent_t", "wrinkle", "bone_index"}

func (f VertexFormat) String() string {
	var parts []string
	for i, name := range vertexFlagNames {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	if b := f.BoneWeights(); b > 0 {
		parts = append(parts, "bones:"+strconv.Itoa(b))
	}
	for u := 0; u < MaxTexCoordUnits; u++ {
		if d := f.TexCoordDims(u); d > 0 {
			parts = append(parts, "tc"+strconv.Itoa(u)+":"+strconv.Itoa(d))
		}
	}

	return strings.Join(parts, " ")
}
