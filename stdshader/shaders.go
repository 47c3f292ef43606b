package stdshader

import (
	"slices"

	"github.com/woozymasta/matsys"
)

// UnlitGeneric returns a shader that draws the base texture without lighting.
func UnlitGeneric() *matsys.Shader {
	return &matsys.Shader{
		Name:   UnlitGenericName,
		Params: slices.Clone(commonParams),
		InitParams: func(vars *matsys.VarSet, caps matsys.Capabilities) {
			vars.SetFlag2(matsys.Flag2LightingUnlit, true)
			initCommon(vars, caps)
		},
		Snapshot: func(rec *matsys.Recorder, vars *matsys.VarSet) {
			vf := matsys.VFPosition.WithTexCoord(0, 2)
			recordPasses(rec, baseDesc(vars, "unlitgeneric_vs", "unlitgeneric_ps", vf))
		},
		ModulationIndex: modulationIndex,
		Dynamic:         dynamic,
	}
}

// VertexLitGeneric returns a per-vertex lit shader for models. Below
// feature level 90 it falls back to UnlitGeneric.
func VertexLitGeneric() *matsys.Shader {
	params := append(slices.Clone(commonParams),
		matsys.Param{Name: "$bumpmap", Type: matsys.ParamTexture, Help: "normal map"},
		matsys.Param{Name: "$phong", Type: matsys.ParamBool, Default: "0", Help: "enable phong specular"},
		matsys.Param{Name: "$phongexponent", Type: matsys.ParamFloat, Default: "5", Help: "phong exponent"},
		matsys.Param{Name: "$selfillumtint", Type: matsys.ParamColor, Default: "[1 1 1]", Help: "self illumination tint"},
	)

	return &matsys.Shader{
		Name:   VertexLitGenericName,
		Params: params,
		Fallback: func(vars *matsys.VarSet, caps matsys.Capabilities) string {
			if caps.FeatureLevel < 90 {
				return UnlitGenericName
			}
			return ""
		},
		InitParams: func(vars *matsys.VarSet, caps matsys.Capabilities) {
			vars.SetFlag2(matsys.Flag2LightingVertexLit, true)
			vars.SetFlag2(matsys.Flag2SupportsHWSkinning, true)
			if vars.IsDefined("$bumpmap") {
				vars.SetFlag2(matsys.Flag2NeedsTangentSpaces|matsys.Flag2DiffuseBumpmappedModel, true)
			}
			initCommon(vars, caps)
		},
		Snapshot: func(rec *matsys.Recorder, vars *matsys.VarSet) {
			vf := (matsys.VFPosition | matsys.VFNormal).WithTexCoord(0, 2)
			if vars.HasFlag(matsys.FlagModel) {
				vf = (vf | matsys.VFBoneIndex).WithBoneWeights(min(3, rec.Capabilities().MaxBoneWeights))
			}
			base := baseDesc(vars, "vertexlitgeneric_vs", "vertexlitgeneric_ps", vf)
			if vars.IsDefined("$bumpmap") {
				base.VertexFormat |= matsys.VFTangentS | matsys.VFTangentT
				base.Samplers = append(base.Samplers, UnitBump)
				base.StaticCombo |= 2
			}
			if vars.Var("$phong").GetBool() {
				base.StaticCombo |= 4
			}
			recordPasses(rec, base)
		},
		ModulationIndex: modulationIndex,
		Dynamic: func(cmd matsys.CommandBuffer, vars *matsys.VarSet, mod matsys.Modulation, pass int) {
			dynamic(cmd, vars, mod, pass)
			if t := vars.Var("$bumpmap").GetTexture(); t != nil {
				cmd.BindTexture(UnitBump, t)
			}
		},
	}
}

// LightmappedGeneric returns a lightmapped shader for world geometry. Below
// feature level 80 it falls back to UnlitGeneric.
func LightmappedGeneric() *matsys.Shader {
	params := append(slices.Clone(commonParams),
		matsys.Param{Name: "$basetexture2", Type: matsys.ParamTexture, Help: "second blend texture"},
		matsys.Param{Name: "$bumpmap", Type: matsys.ParamTexture, Help: "normal map"},
		matsys.Param{Name: "$seamless_scale", Type: matsys.ParamFloat, Default: "0", Help: "planar mapping scale"},
	)

	return &matsys.Shader{
		Name:   LightmappedGenericName,
		Params: params,
		Fallback: func(vars *matsys.VarSet, caps matsys.Capabilities) string {
			if caps.FeatureLevel < 80 {
				return UnlitGenericName
			}
			return ""
		},
		InitParams: func(vars *matsys.VarSet, caps matsys.Capabilities) {
			if vars.IsDefined("$bumpmap") {
				vars.SetFlag2(matsys.Flag2LightingBumpedLightmap, true)
			} else {
				vars.SetFlag2(matsys.Flag2LightingLightmap, true)
			}
			initCommon(vars, caps)
		},
		Snapshot: func(rec *matsys.Recorder, vars *matsys.VarSet) {
			vf := (matsys.VFPosition|matsys.VFNormal).WithTexCoord(0, 2).WithTexCoord(1, 2)
			base := baseDesc(vars, "lightmappedgeneric_vs", "lightmappedgeneric_ps", vf)
			base.Samplers = append(base.Samplers, UnitLightmap)
			if vars.IsDefined("$basetexture2") {
				base.VertexFormat |= matsys.VFColor
				base.StaticCombo |= 2
			}
			if vars.IsDefined("$bumpmap") {
				base.VertexFormat = base.VertexFormat.WithTexCoord(2, 2) | matsys.VFTangentS | matsys.VFTangentT
				base.Samplers = append(base.Samplers, UnitBump)
				base.StaticCombo |= 4
			}
			if vars.Var("$seamless_scale").GetFloat() != 0 {
				base.StaticCombo |= 8
			}
			recordPasses(rec, base)
		},
		ModulationIndex: modulationIndex,
		Dynamic: func(cmd matsys.CommandBuffer, vars *matsys.VarSet, mod matsys.Modulation, pass int) {
			dynamic(cmd, vars, mod, pass)
			if t := vars.Var("$basetexture2").GetTexture(); t != nil {
				cmd.BindTexture(UnitDetail, t)
			}
		},
	}
}
