package matsys

import "strings"

// MaterialFlag is a bit of the $flags variable.
type MaterialFlag uint32

// Material flags settable from a definition document.
const (
	FlagDebug MaterialFlag = 1 << iota
	FlagNoDebugOverride
	FlagNoDraw
	FlagUseInFillrateMode
	FlagVertexColor
	FlagVertexAlpha
	FlagSelfIllum
	FlagAdditive
	FlagAlphaTest
	FlagMultipass
	FlagZNearer
	FlagModel
	FlagFlat
	FlagNoCull
	FlagNoFog
	FlagIgnoreZ
	FlagDecal
	FlagEnvMapSphere
	FlagNoAlphaMod
	FlagEnvMapCameraSpace
	FlagBaseAlphaEnvMapMask
	FlagTranslucent
	FlagNormalMapAlphaEnvMapMask
	FlagSoftwareSkin
	FlagOpaqueTexture
	FlagEnvMapMode
	FlagNoDecal
	FlagHalfLambert
	FlagWireframe
	FlagAllowAlphaToCoverage
	FlagAlphaModifiedByProxy
	FlagVertexFog
)

// MaterialFlag2 is a bit of the $flags2 variable. These are set by shaders.
type MaterialFlag2 uint32

// Shader-derived material flags.
const (
	Flag2LightingUnlit MaterialFlag2 = 1 << iota
	Flag2LightingVertexLit
	Flag2LightingLightmap
	Flag2LightingBumpedLightmap
	Flag2DiffuseBumpmappedModel
	Flag2UsesEnvCubemap
	Flag2NeedsTangentSpaces
	Flag2SupportsFlashlight
	Flag2UseFlashlight
	Flag2UseEditor
	Flag2UseGBuffer0
	Flag2UseGBuffer1
	Flag2NeedsFullFrameBuffer
	Flag2SupportsHWSkinning
)

// flagKeys maps document keys to material flags.
var flagKeys = map[string]MaterialFlag{
	"$debug":                    FlagDebug,
	"$no_debug_override":        FlagNoDebugOverride,
	"$no_draw":                  FlagNoDraw,
	"$use_in_fillrate_mode":     FlagUseInFillrateMode,
	"$vertexcolor":              FlagVertexColor,
	"$vertexalpha":              FlagVertexAlpha,
	"$selfillum":                FlagSelfIllum,
	"$additive":                 FlagAdditive,
	"$alphatest":                FlagAlphaTest,
	"$multipass":                FlagMultipass,
	"$znearer":                  FlagZNearer,
	"$model":                    FlagModel,
	"$flat":                     FlagFlat,
	"$nocull":                   FlagNoCull,
	"$nofog":                    FlagNoFog,
	"$ignorez":                  FlagIgnoreZ,
	"$decal":                    FlagDecal,
	"$envmapsphere":             FlagEnvMapSphere,
	"$noalphamod":               FlagNoAlphaMod,
	"$envmapcameraspace":        FlagEnvMapCameraSpace,
	"$basealphaenvmapmask":      FlagBaseAlphaEnvMapMask,
	"$translucent":              FlagTranslucent,
	"$normalmapalphaenvmapmask": FlagNormalMapAlphaEnvMapMask,
	"$softwareskin":             FlagSoftwareSkin,
	"$opaquetexture":            FlagOpaqueTexture,
	"$envmapmode":               FlagEnvMapMode,
	"$nodecal":                  FlagNoDecal,
	"$halflambert":              FlagHalfLambert,
	"$wireframe":                FlagWireframe,
	"$allowalphatocoverage":     FlagAllowAlphaToCoverage,
	"$alpha_modified_by_proxy":  FlagAlphaModifiedByProxy,
	"$vertexfog":                FlagVertexFog,
}

// LookupFlag returns the flag a document key sets.
func LookupFlag(key string) (MaterialFlag, bool) {
	f, ok := flagKeys[strings.ToLower(key)]
	return f, ok
}

// FlagName returns the document key of a single flag bit.
func FlagName(f MaterialFlag) string {
	for k, v := range flagKeys {
		if v == f {
			return k
		}
	}

	return ""
}

// parseFlagValue reads a flag key value. Any non-zero number enables it.
func parseFlagValue(s string) bool {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "0", "false", "no", "off":
		return false
	case "1", "true", "yes", "on":
		return true
	default:
		return asInt(String(v)) != 0
	}
}
