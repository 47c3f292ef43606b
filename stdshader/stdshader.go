// Package stdshader provides the stock shaders: UnlitGeneric, VertexLitGeneric
// and LightmappedGeneric. Each records a base pass and adds passes for the
// flashlight and paint modulations.
package stdshader

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/woozymasta/matsys"
)

// Shader names.
const (
	UnlitGenericName       = "UnlitGeneric"
	VertexLitGenericName   = "VertexLitGeneric"
	LightmappedGenericName = "LightmappedGeneric"
)

// Constant slots set by the dynamic hooks.
const (
	SlotColor = iota
	SlotFlashlight
	SlotTransformU
	SlotTransformV
	SlotAlphaTest
)

// Texture units bound by the dynamic hooks.
const (
	UnitBase = iota
	UnitDetail
	UnitBump
	UnitEnvMap
	UnitLightmap
	UnitFlashlight
)

// All returns the stock shader descriptors.
func All() []*matsys.Shader {
	return []*matsys.Shader{UnlitGeneric(), VertexLitGeneric(), LightmappedGeneric()}
}

// Register registers every stock shader.
func Register(reg *matsys.Registry) error {
	var errs []error
	for _, sh := range All() {
		errs = append(errs, reg.Register(sh))
	}

	return errors.Join(errs...)
}

// commonParams are declared by every stock shader.
var commonParams = []matsys.Param{
	{Name: "$detail", Type: matsys.ParamTexture, Help: "detail texture"},
	{Name: "$detailscale", Type: matsys.ParamFloat, Default: "4", Help: "detail texture scale"},
	{Name: "$envmap", Type: matsys.ParamTexture, Help: "environment map"},
	{Name: "$envmaptint", Type: matsys.ParamColor, Default: "[1 1 1]", Help: "environment map tint"},
	{Name: "$alphatestreference", Type: matsys.ParamFloat, Default: "0.5", Help: "alpha test threshold"},
}

// baseDesc fills the state every stock shader derives from material flags.
func baseDesc(vars *matsys.VarSet, vs, ps string, vf matsys.VertexFormat) matsys.PipelineDesc {
	d := matsys.PipelineDesc{
		VertexShader: vs,
		PixelShader:  ps,
		Depth:        matsys.DepthState{Test: true, Write: true, Cmp: matsys.CmpLessEqual},
		Cull:         matsys.CullBack,
		Fog:          !vars.HasFlag(matsys.FlagNoFog),
		SRGBWrite:    true,
		Samplers:     []int{UnitBase},
		VertexFormat: vf,
	}

	if vars.HasFlag(matsys.FlagVertexColor) || vars.HasFlag(matsys.FlagVertexAlpha) {
		d.VertexFormat |= matsys.VFColor
	}
	if vars.IsDefined("$detail") {
		d.Samplers = append(d.Samplers, UnitDetail)
	}
	if vars.IsDefined("$envmap") {
		d.Samplers = append(d.Samplers, UnitEnvMap)
		d.VertexFormat |= matsys.VFNormal
	}

	switch {
	case vars.HasFlag(matsys.FlagAdditive):
		d.Blend = matsys.BlendState{Blend: true, SrcFac: matsys.BlendSrcAlpha, DstFac: matsys.BlendOne}
		d.Depth.Write = false
	case vars.HasFlag(matsys.FlagTranslucent), vars.HasFlag(matsys.FlagVertexAlpha):
		d.Blend = matsys.BlendState{Blend: true, SrcFac: matsys.BlendSrcAlpha, DstFac: matsys.BlendInvSrcAlpha}
		d.Depth.Write = false
	}
	if vars.HasFlag(matsys.FlagAlphaTest) {
		d.AlphaTest = matsys.AlphaTestState{
			Enable: true,
			Ref:    vars.Var("$alphatestreference").GetFloat(),
			Cmp:    matsys.CmpGreaterEqual,
		}
	}
	if vars.HasFlag(matsys.FlagNoCull) {
		d.Cull = matsys.CullNone
	}
	if vars.HasFlag(matsys.FlagIgnoreZ) {
		d.Depth.Test, d.Depth.Write = false, false
	}
	if vars.HasFlag(matsys.FlagWireframe) {
		d.Wireframe = true
	}

	return d
}

// recordPasses records the passes of rec's modulation around base.
//
// The g-buffer modulations replace the base pass with a single fill pass.
// The editor modulation selects an editor combo of the base pass. The
// flashlight and paint modulations each add one additive pass.
func recordPasses(rec *matsys.Recorder, base matsys.PipelineDesc) {
	switch {
	case rec.Has(matsys.ModGBuffer0):
		rec.Pass(gbufferPass(base, "gbuffer0_ps"))
	case rec.Has(matsys.ModGBuffer1):
		rec.Pass(gbufferPass(base, "gbuffer1_ps"))
	default:
		if rec.Has(matsys.ModEditor) {
			base.StaticCombo |= 1
		}
		rec.Pass(base)
	}

	if rec.Has(matsys.ModFlashlight) {
		fl := base
		fl.PixelShader = base.PixelShader + "_flashlight"
		fl.Blend = matsys.BlendState{Blend: true, SrcFac: matsys.BlendOne, DstFac: matsys.BlendOne}
		fl.Depth = matsys.DepthState{Test: true, Cmp: matsys.CmpEqual}
		fl.Samplers = append([]int{UnitFlashlight}, base.Samplers...)
		fl.VertexFormat |= matsys.VFNormal
		rec.Pass(fl)
	}
	if rec.Has(matsys.ModPaint) {
		p := base
		p.PixelShader = "paint_ps"
		p.Blend = matsys.BlendState{Blend: true, SrcFac: matsys.BlendDstColor, DstFac: matsys.BlendZero}
		p.Depth = matsys.DepthState{Test: true, Cmp: matsys.CmpEqual}
		p.VertexFormat = p.VertexFormat.WithTexCoord(1, 2)
		rec.Pass(p)
	}
}

func gbufferPass(base matsys.PipelineDesc, ps string) matsys.PipelineDesc {
	g := base
	g.PixelShader = ps
	g.Blend = matsys.BlendState{}
	g.Fog = false
	g.SRGBWrite = false

	return g
}

// modulationIndex drops the paint pass of blended materials; paint is
// multiplied onto opaque surfaces only.
func modulationIndex(vars *matsys.VarSet, legal matsys.Modulation) matsys.Modulation {
	if vars.HasFlag(matsys.FlagTranslucent) || vars.HasFlag(matsys.FlagAdditive) {
		return legal &^ matsys.ModPaint
	}

	return legal
}

// dynamic binds the base texture and color constants for every pass.
func dynamic(cmd matsys.CommandBuffer, vars *matsys.VarSet, mod matsys.Modulation, pass int) {
	cmd.BindTexture(UnitBase, vars.Var(matsys.VarBaseTexture).GetTexture())
	if t := vars.Var("$detail").GetTexture(); t != nil {
		cmd.BindTexture(UnitDetail, t)
	}

	color := vars.Var(matsys.VarColor).GetVec()
	color[3] = vars.Var(matsys.VarAlpha).GetFloat()
	cmd.SetConstant(SlotColor, color)

	xf := vars.Var(matsys.VarBaseTextureXform).GetMatrix()
	cmd.SetConstant(SlotTransformU, xf.Row(0))
	cmd.SetConstant(SlotTransformV, xf.Row(1))

	if vars.HasFlag(matsys.FlagAlphaTest) {
		ref := vars.Var("$alphatestreference").GetFloat()
		cmd.SetConstant(SlotAlphaTest, mgl32.Vec4{ref, 0, 0, 0})
	}
	if mod&matsys.ModFlashlight != 0 && pass > 0 {
		cmd.SetConstant(SlotFlashlight, mgl32.Vec4{1, 1, 1, 1})
	}
}

// initCommon sets the shader-derived flags every stock shader shares.
func initCommon(vars *matsys.VarSet, caps matsys.Capabilities) {
	if caps.Flashlight {
		vars.SetFlag2(matsys.Flag2SupportsFlashlight, true)
	}
	if caps.Editor {
		vars.SetFlag2(matsys.Flag2UseEditor, true)
	}
	if caps.Deferred {
		vars.SetFlag2(matsys.Flag2UseGBuffer0|matsys.Flag2UseGBuffer1, true)
	}
	if vars.IsDefined("$envmap") {
		vars.SetFlag2(matsys.Flag2UsesEnvCubemap, true)
	}
}
