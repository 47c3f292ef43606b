package matsys

import (
	"fmt"
	"strings"
)

// Modulation is a combination of dynamic rendering toggles. Each legal
// combination gets its own pass list.
type Modulation uint8

// Modulation bits.
const (
	ModFlashlight Modulation = 1 << iota
	ModEditor
	ModPaint
	ModGBuffer0
	ModGBuffer1

	// NumModulations is the number of modulation combinations.
	NumModulations = 1 << 5
	// ModBaseline is the combination with no toggles.
	ModBaseline Modulation = 0
	modAll      Modulation = NumModulations - 1
	modGBuffer             = ModGBuffer0 | ModGBuffer1
)

// MaxRenderPasses bounds the passes one modulation may record.
const MaxRenderPasses = 8

// Allowed reports whether m is a legal combination under caps.
func (m Modulation) Allowed(caps Capabilities) bool {
	switch {
	case m&^modAll != 0:
		return false
	case m&ModFlashlight != 0 && !caps.Flashlight:
		return false
	case m&ModEditor != 0 && !caps.Editor:
		return false
	case m&ModPaint != 0 && !caps.Paint:
		return false
	case m&modGBuffer != 0 && !caps.Deferred:
		return false
	case m&modGBuffer == modGBuffer:
		return false
	case m&ModFlashlight != 0 && m&modGBuffer != 0:
		return false
	case m&ModEditor != 0 && m&modGBuffer != 0:
		return false
	}

	return true
}

// Legal returns m with the bits caps disallows removed.
func (m Modulation) Legal(caps Capabilities) Modulation {
	m &= modAll
	if m.Allowed(caps) {
		return m
	}
	if !caps.Flashlight {
		m &^= ModFlashlight
	}
	if !caps.Editor {
		m &^= ModEditor
	}
	if !caps.Paint {
		m &^= ModPaint
	}
	if !caps.Deferred {
		m &^= modGBuffer
	}
	if m&modGBuffer == modGBuffer {
		m &^= ModGBuffer1
	}
	if m&modGBuffer != 0 {
		m &^= ModFlashlight | ModEditor
	}

	return m
}

func (m Modulation) String() string {
	if m == ModBaseline {
		return "baseline"
	}

	var parts []string
	for _, b := range [...]struct {
		bit  Modulation
		name string
	}{
		{ModFlashlight, "flashlight"},
		{ModEditor, "editor"},
		{ModPaint, "paint"},
		{ModGBuffer0, "gbuffer0"},
		{ModGBuffer1, "gbuffer1"},
	} {
		if m&b.bit != 0 {
			parts = append(parts, b.name)
		}
	}

	return strings.Join(parts, "+")
}

// Recorder collects the passes a shader records for one modulation.
type Recorder struct {
	backend Backend
	mod     Modulation
	caps    Capabilities
	passes  PassList
	descs   []PipelineDesc
	err     error
}

// Modulation returns the combination being recorded.
func (r *Recorder) Modulation() Modulation { return r.mod }

// Has reports whether every bit of m is part of the combination being recorded.
func (r *Recorder) Has(m Modulation) bool { return r.mod&m == m }

// Capabilities returns the runtime the passes are recorded for.
func (r *Recorder) Capabilities() Capabilities { return r.caps }

// Pass records one pass. Errors are kept and reported after the shader returns.
func (r *Recorder) Pass(desc PipelineDesc) {
	if r.err != nil {
		return
	}
	if len(r.passes) >= MaxRenderPasses {
		r.err = fmt.Errorf("%w: %s records more than %d", ErrTooManyPasses, r.mod, MaxRenderPasses)
		return
	}

	desc.Modulation = r.mod
	s, err := r.backend.CreateSnapshot(&desc)
	if err != nil {
		r.err = fmt.Errorf("create snapshot for %s pass %d: %w", r.mod, len(r.passes), err)
		return
	}
	r.passes = append(r.passes, s)
	r.descs = append(r.descs, desc)
}

// RenderState is the compiled snapshot table of a material.
type RenderState struct {
	Passes [NumModulations]PassList
	// Descs holds the descriptions the passes were created from.
	Descs        [NumModulations][]PipelineDesc
	Translucent  bool
	AlphaTested  bool
	VertexFormat VertexFormat
}

// PassCount returns the number of passes recorded for m.
func (rs *RenderState) PassCount(m Modulation) int {
	if rs == nil || int(m) >= NumModulations {
		return 0
	}

	return len(rs.Passes[m])
}

// release returns every snapshot to the backend.
func (rs *RenderState) release(b Backend) {
	if rs == nil {
		return
	}
	for i, pl := range rs.Passes {
		for _, s := range pl {
			b.ReleaseSnapshot(s)
		}
		rs.Passes[i] = nil
		rs.Descs[i] = nil
	}
}

// compileRenderState records the passes of every legal modulation and derives
// the material classification and merged vertex format from them.
// On failure every recorded snapshot is released.
func compileRenderState(b Backend, sh *Shader, vars *VarSet, caps Capabilities) (rs *RenderState, err error) {
	rs = &RenderState{}
	defer func() {
		if err != nil {
			rs.release(b)
			rs = nil
		}
	}()

	for m := Modulation(0); m < NumModulations; m++ {
		if !m.Allowed(caps) {
			continue
		}

		rec := &Recorder{backend: b, mod: m, caps: caps}
		sh.Snapshot(rec, vars)
		rs.Passes[m] = rec.passes
		rs.Descs[m] = rec.descs
		if rec.err != nil {
			return rs, rec.err
		}
		if len(rec.passes) == 0 {
			if m == ModBaseline {
				return rs, fmt.Errorf("%w: shader %s", ErrEmptyBaselineSnapshot, sh.Name)
			}
			return rs, fmt.Errorf("%w: shader %s, modulation %s", ErrEmptySnapshot, sh.Name, m)
		}
	}

	base := rs.Passes[ModBaseline]
	rs.Translucent = b.IsTranslucent(base[0]) || vars.HasFlag(FlagAlphaModifiedByProxy)
	rs.AlphaTested = b.IsAlphaTested(base[0])

	vf := b.VertexFormat(base)
	for _, m := range [...]Modulation{ModFlashlight, ModPaint, ModEditor} {
		if m.Allowed(caps) {
			vf = vf.Union(b.VertexFormat(rs.Passes[m]))
		}
	}
	if vf.TexCoordCount() > caps.MaxTexCoords || vf.BoneWeights() > caps.MaxBoneWeights {
		return rs, fmt.Errorf("%w: shader %s needs %d texcoords and %d bone weights",
			ErrUnsupportedVertexLayout, sh.Name, vf.TexCoordCount(), vf.BoneWeights())
	}
	rs.VertexFormat = vf

	if debugAssertions {
		for m := Modulation(0); m < NumModulations; m++ {
			if len(rs.Passes[m]) == 0 {
				continue
			}
			if got := b.VertexFormat(rs.Passes[m]); !got.SubsetOf(vf) {
				return rs, fmt.Errorf("%w: shader %s modulation %s reads attributes outside the merged format",
					ErrUnsupportedVertexLayout, sh.Name, m)
			}
		}
	}

	return rs, nil
}
