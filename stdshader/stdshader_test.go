package stdshader_test

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/matsys"
	"github.com/woozymasta/matsys/nullgfx"
	"github.com/woozymasta/matsys/stdshader"
)

type env struct {
	sys      *matsys.System
	backend  *nullgfx.Backend
	textures *nullgfx.TextureSet
}

func newEnv(t *testing.T, caps matsys.Capabilities) *env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := matsys.NewVariableStore(&matsys.StoreOptions{Logger: logger})
	t.Cleanup(func() { _ = store.Close() })

	e := &env{backend: nullgfx.NewBackend(), textures: nullgfx.NewTextureSet()}
	sys, err := matsys.NewSystem(store, matsys.Environment{
		Files:    matsys.FSReader{FS: os.DirFS("../testdata/materials")},
		Textures: e.textures,
		Backend:  e.backend,
	}, &matsys.SystemOptions{Capabilities: caps, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, stdshader.Register(sys.Registry()))
	t.Cleanup(sys.Close)
	e.sys = sys

	return e
}

func (e *env) precache(t *testing.T, name string) *matsys.Material {
	t.Helper()

	m := e.sys.FindMaterial(name, "")
	m.IncRef()
	m.Precache()
	require.True(t, m.IsPrecached())
	require.False(t, m.IsErrorMaterial(), "%s resolved to the error definition", name)

	return m
}

func withFeatureLevel(level int) matsys.Capabilities {
	caps := matsys.DefaultCapabilities()
	caps.FeatureLevel = level
	return caps
}

func TestRegister(t *testing.T) {
	reg := matsys.NewRegistry()
	require.NoError(t, stdshader.Register(reg))
	assert.Equal(t, []string{matsys.DebugShaderName, "LightmappedGeneric", "UnlitGeneric", "VertexLitGeneric"}, reg.Names(),
		"the debug shader is always registered")
}

func TestUnlitGenericPasses(t *testing.T) {
	e := newEnv(t, matsys.DefaultCapabilities())
	m := e.precache(t, "glass")

	assert.Equal(t, stdshader.UnlitGenericName, m.ShaderName())
	assert.True(t, m.IsTranslucent())
	assert.False(t, m.IsAlphaTested())

	assert.Equal(t, 1, m.PassCount(matsys.ModBaseline))
	assert.Equal(t, 2, m.PassCount(matsys.ModFlashlight))
	assert.Equal(t, 2, m.PassCount(matsys.ModPaint))
	assert.Equal(t, 3, m.PassCount(matsys.ModFlashlight|matsys.ModPaint))
	assert.Zero(t, m.PassCount(matsys.ModEditor), "editor passes are not compiled without editor support")

	vf := m.VertexFormat()
	assert.Equal(t, matsys.VFPosition|matsys.VFNormal, vf.Flags())
	assert.Equal(t, 2, vf.TexCoordDims(0))
	assert.Equal(t, 2, vf.TexCoordDims(1), "the paint pass reads the second texcoord")

	vars := m.Vars()
	assert.True(t, vars.HasFlag2(matsys.Flag2LightingUnlit))
	assert.True(t, vars.HasFlag2(matsys.Flag2SupportsFlashlight))
	assert.True(t, vars.HasFlag2(matsys.Flag2UsesEnvCubemap))

	assert.Contains(t, e.textures.Live(), "glass/window")
	assert.Contains(t, e.textures.Live(), "env_cubemap")
}

func TestDrawRecordsCommands(t *testing.T) {
	e := newEnv(t, matsys.DefaultCapabilities())
	m := e.precache(t, "glass")

	var cl nullgfx.CommandList
	require.Equal(t, 2, m.Draw(matsys.ModFlashlight, &cl))

	assert.Equal(t, 2, cl.Count(nullgfx.OpBindSnapshot))
	assert.Equal(t, 2, cl.Count(nullgfx.OpDraw))
	assert.Equal(t, 2, cl.Count(nullgfx.OpBindTexture))

	require.Equal(t, nullgfx.OpBindSnapshot, cl.Commands[0].Op)
	desc, ok := e.backend.Desc(cl.Commands[0].Snapshot)
	require.True(t, ok)
	assert.Equal(t, "unlitgeneric_ps", desc.PixelShader)
	assert.Equal(t, matsys.ModFlashlight, desc.Modulation)

	assert.Equal(t, "glass/window", cl.Commands[1].Texture)

	var color, flashlight int
	for _, c := range cl.Commands {
		if c.Op != nullgfx.OpSetConstant {
			continue
		}
		switch c.Slot {
		case stdshader.SlotColor:
			color++
			assert.InDelta(t, 0.5, c.Value[3], 1e-6, "alpha rides in the w component")
		case stdshader.SlotFlashlight:
			flashlight++
		}
	}
	assert.Equal(t, 2, color)
	assert.Equal(t, 1, flashlight, "only the additive pass sets the flashlight constant")

	cl.Reset()
	assert.Equal(t, 1, m.Draw(matsys.ModBaseline, &cl))
}

func TestPaintSkipsBlendedMaterials(t *testing.T) {
	e := newEnv(t, matsys.DefaultCapabilities())

	tests := []struct {
		name     string
		material string
		want     int
		paint    bool
	}{
		{"opaque", "crate", 3, true},
		{"translucent", "glass", 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := e.precache(t, tt.material)
			require.Equal(t, 3, m.PassCount(matsys.ModFlashlight|matsys.ModPaint))

			var cl nullgfx.CommandList
			assert.Equal(t, tt.want, m.Draw(matsys.ModFlashlight|matsys.ModPaint, &cl))
			assert.Equal(t, tt.want, cl.Count(nullgfx.OpDraw))

			paint := false
			for _, c := range cl.Commands {
				if c.Op != nullgfx.OpBindSnapshot {
					continue
				}
				desc, ok := e.backend.Desc(c.Snapshot)
				require.True(t, ok)
				paint = paint || desc.PixelShader == "paint_ps"
			}
			assert.Equal(t, tt.paint, paint)
		})
	}
}

func TestPatchedMaterial(t *testing.T) {
	e := newEnv(t, matsys.DefaultCapabilities())
	m := e.precache(t, "glass_tinted")

	assert.Equal(t, stdshader.UnlitGenericName, m.ShaderName())
	assert.InDelta(t, 0.25, m.GetFloat("$alpha"), 1e-6)
	assert.InDelta(t, 0.4, m.GetVec("$envmaptint")[1], 1e-6)
	assert.Equal(t, []string{"glass_tinted", "glass"}, m.Dependencies())
}

func TestVertexLitGenericModel(t *testing.T) {
	e := newEnv(t, matsys.DefaultCapabilities())
	m := e.precache(t, "crate")

	assert.Equal(t, stdshader.VertexLitGenericName, m.ShaderName())
	assert.True(t, m.IsOpaque())
	assert.InDelta(t, 0.9, m.GetVec("$color")[1], 1e-6)
	assert.InDelta(t, 8, m.GetFloat("$detailscale"), 1e-6)

	vf := m.VertexFormat()
	assert.NotZero(t, vf&matsys.VFBoneIndex)
	assert.Equal(t, 3, vf.BoneWeights())
	assert.NotZero(t, vf&matsys.VFTangentS, "a bump map needs tangents")

	vars := m.Vars()
	assert.True(t, vars.HasFlag(matsys.FlagModel))
	assert.True(t, vars.HasFlag2(matsys.Flag2LightingVertexLit))
	assert.True(t, vars.HasFlag2(matsys.Flag2SupportsHWSkinning))
	assert.True(t, vars.HasFlag2(matsys.Flag2NeedsTangentSpaces))

	desc, ok := e.backend.Desc(m.RenderState().Passes[matsys.ModBaseline][0])
	require.True(t, ok)
	assert.Equal(t, 2|4, desc.StaticCombo, "bump and phong combos")
}

func TestBoneWeightsFollowCapabilities(t *testing.T) {
	caps := matsys.DefaultCapabilities()
	caps.MaxBoneWeights = 2
	e := newEnv(t, caps)

	m := e.precache(t, "crate")
	assert.Equal(t, 2, m.VertexFormat().BoneWeights())
}

func TestShaderFallbackByFeatureLevel(t *testing.T) {
	tests := []struct {
		name     string
		material string
		level    int
		shader   string
	}{
		{"vertexlit at 95", "crate", 95, stdshader.VertexLitGenericName},
		{"vertexlit at 90", "crate", 90, stdshader.VertexLitGenericName},
		{"vertexlit below 90", "crate", 80, stdshader.UnlitGenericName},
		{"lightmapped at 80", "floor", 80, stdshader.LightmappedGenericName},
		{"lightmapped below 80", "floor", 70, stdshader.UnlitGenericName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, withFeatureLevel(tt.level))
			m := e.precache(t, tt.material)
			assert.Equal(t, tt.shader, m.ShaderName())
		})
	}
}

func TestFallbackUsesShaderSection(t *testing.T) {
	e := newEnv(t, withFeatureLevel(80))
	m := e.precache(t, "crate")

	require.Equal(t, stdshader.UnlitGenericName, m.ShaderName())
	assert.InDelta(t, 1, m.GetVec("$color")[1], 1e-6, "the UnlitGeneric section overrides the base color")
	assert.Zero(t, m.VertexFormat()&matsys.VFBoneIndex)
}

func TestLightmappedGeneric(t *testing.T) {
	e := newEnv(t, matsys.DefaultCapabilities())
	m := e.precache(t, "floor")

	assert.True(t, m.Vars().HasFlag2(matsys.Flag2LightingLightmap))
	assert.Equal(t, 2, m.VertexFormat().TexCoordDims(1), "lightmap coordinates")

	desc, ok := e.backend.Desc(m.RenderState().Passes[matsys.ModBaseline][0])
	require.True(t, ok)
	assert.Equal(t, 2|8, desc.StaticCombo, "blend and seamless combos")
	assert.Contains(t, desc.Samplers, stdshader.UnitLightmap)
	assert.NotZero(t, desc.VertexFormat&matsys.VFColor)
}

func TestDeferredAndEditorPasses(t *testing.T) {
	caps := matsys.DefaultCapabilities()
	caps.Deferred = true
	caps.Editor = true
	e := newEnv(t, caps)
	m := e.precache(t, "floor")

	vars := m.Vars()
	assert.True(t, vars.HasFlag2(matsys.Flag2UseGBuffer0|matsys.Flag2UseGBuffer1))
	assert.True(t, vars.HasFlag2(matsys.Flag2UseEditor))

	rs := m.RenderState()
	for mod, ps := range map[matsys.Modulation]string{
		matsys.ModGBuffer0: "gbuffer0_ps",
		matsys.ModGBuffer1: "gbuffer1_ps",
	} {
		require.Len(t, rs.Passes[mod], 1, mod.String())
		desc, ok := e.backend.Desc(rs.Passes[mod][0])
		require.True(t, ok)
		assert.Equal(t, ps, desc.PixelShader)
		assert.False(t, desc.Fog)
	}
	assert.Equal(t, 2, m.PassCount(matsys.ModGBuffer0|matsys.ModPaint))

	require.Len(t, rs.Passes[matsys.ModEditor], 1)
	desc, ok := e.backend.Desc(rs.Passes[matsys.ModEditor][0])
	require.True(t, ok)
	assert.Equal(t, 1, desc.StaticCombo&1, "editor combo")
}

func TestSnapshotsAreShared(t *testing.T) {
	e := newEnv(t, matsys.DefaultCapabilities())
	e.precache(t, "glass")
	before := e.backend.Stats().Live

	m := e.sys.CreateMaterial("glass_copy", e.sys.FindMaterial("glass", "").Config())
	m.IncRef()
	m.Precache()

	assert.Equal(t, before, e.backend.Stats().Live, "identical descriptions reuse snapshots")

	e.sys.UncacheAll()
	assert.Zero(t, e.backend.Stats().Live)
}
