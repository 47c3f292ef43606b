package matsys

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVars(t *testing.T, flags ...MaterialFlag) *VarSet {
	t.Helper()
	s := newTestStore(t, 4)
	vars := newVarSet(s, nil)
	for _, f := range flags {
		vars.SetFlag(f, true)
	}
	t.Cleanup(vars.free)
	return vars
}

func TestCompileRenderStatePassCounts(t *testing.T) {
	b := newFakeBackend()
	caps := DefaultCapabilities()

	rs, err := compileRenderState(b, testShader("X"), testVars(t), caps)
	require.NoError(t, err)

	assert.Equal(t, 1, rs.PassCount(ModBaseline))
	assert.Equal(t, 2, rs.PassCount(ModFlashlight))
	assert.Equal(t, 1, rs.PassCount(ModPaint))
	assert.Equal(t, 2, rs.PassCount(ModFlashlight|ModPaint))
	assert.Zero(t, rs.PassCount(ModEditor), "editor passes are disabled")
	assert.Zero(t, rs.PassCount(ModGBuffer0))
	assert.Equal(t, 6, b.live())

	require.Len(t, rs.Descs[ModFlashlight], 2)
	assert.Equal(t, "test_flashlight_ps", rs.Descs[ModFlashlight][1].PixelShader)
	assert.Equal(t, ModFlashlight, rs.Descs[ModFlashlight][1].Modulation)

	assert.False(t, rs.Translucent)
	assert.False(t, rs.AlphaTested)
	assert.NotZero(t, rs.VertexFormat.Flags()&VFNormal, "the flashlight pass contributes normals")
	assert.Equal(t, 2, rs.VertexFormat.TexCoordDims(0))

	rs.release(b)
	assert.Zero(t, b.live())
	assert.Zero(t, rs.PassCount(ModBaseline))
}

func TestCompileRenderStateWithoutFlashlight(t *testing.T) {
	b := newFakeBackend()
	caps := DefaultCapabilities()
	caps.Flashlight = false

	rs, err := compileRenderState(b, testShader("X"), testVars(t), caps)
	require.NoError(t, err)
	assert.Zero(t, rs.PassCount(ModFlashlight))
	assert.Zero(t, rs.VertexFormat.Flags()&VFNormal)
}

func TestCompileRenderStateClassification(t *testing.T) {
	rs, err := compileRenderState(newFakeBackend(), testShader("X"), testVars(t, FlagTranslucent), DefaultCapabilities())
	require.NoError(t, err)
	assert.True(t, rs.Translucent)
	assert.False(t, rs.AlphaTested)

	rs, err = compileRenderState(newFakeBackend(), testShader("X"), testVars(t, FlagAlphaTest), DefaultCapabilities())
	require.NoError(t, err)
	assert.False(t, rs.Translucent)
	assert.True(t, rs.AlphaTested)

	rs, err = compileRenderState(newFakeBackend(), testShader("X"), testVars(t, FlagAlphaModifiedByProxy), DefaultCapabilities())
	require.NoError(t, err)
	assert.True(t, rs.Translucent, "a proxy driving alpha makes the material translucent")
}

func TestCompileRenderStateErrors(t *testing.T) {
	desc := PipelineDesc{VertexShader: "vs", PixelShader: "ps", VertexFormat: VFPosition}
	shader := func(record func(rec *Recorder)) *Shader {
		return &Shader{Name: "S", Snapshot: func(rec *Recorder, vars *VarSet) { record(rec) }}
	}

	tests := []struct {
		name   string
		shader *Shader
		caps   func(c *Capabilities)
		want   error
	}{
		{
			name:   "empty baseline",
			shader: shader(func(rec *Recorder) {}),
			want:   ErrEmptyBaselineSnapshot,
		},
		{
			name: "empty allowed combination",
			shader: shader(func(rec *Recorder) {
				if !rec.Has(ModPaint) {
					rec.Pass(desc)
				}
			}),
			want: ErrEmptySnapshot,
		},
		{
			name: "too many passes",
			shader: shader(func(rec *Recorder) {
				for range MaxRenderPasses + 1 {
					rec.Pass(desc)
				}
			}),
			want: ErrTooManyPasses,
		},
		{
			name: "too many texcoords",
			shader: shader(func(rec *Recorder) {
				d := desc
				d.VertexFormat = d.VertexFormat.WithTexCoord(0, 2).WithTexCoord(1, 2)
				rec.Pass(d)
			}),
			caps: func(c *Capabilities) { c.MaxTexCoords = 1 },
			want: ErrUnsupportedVertexLayout,
		},
		{
			name: "too many bone weights",
			shader: shader(func(rec *Recorder) {
				d := desc
				d.VertexFormat = d.VertexFormat.WithBoneWeights(4)
				rec.Pass(d)
			}),
			caps: func(c *Capabilities) { c.MaxBoneWeights = 2 },
			want: ErrUnsupportedVertexLayout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			caps := DefaultCapabilities()
			if tt.caps != nil {
				tt.caps(&caps)
			}

			rs, err := compileRenderState(b, tt.shader, testVars(t), caps)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, rs)
			assert.Zero(t, b.live(), "every recorded snapshot is released")
		})
	}
}

func TestCompileRenderStateBackendFailure(t *testing.T) {
	errBoom := errors.New("boom")
	b := newFakeBackend()
	b.fail = func(desc *PipelineDesc) error {
		if desc.PixelShader == "test_flashlight_ps" {
			return errBoom
		}
		return nil
	}

	rs, err := compileRenderState(b, testShader("X"), testVars(t), DefaultCapabilities())
	require.ErrorIs(t, err, errBoom)
	assert.Nil(t, rs)
	assert.Zero(t, b.live())
}

func TestVertexFormat(t *testing.T) {
	a := VFPosition.WithTexCoord(0, 2).WithBoneWeights(2)
	b := (VFPosition|VFNormal).WithTexCoord(0, 3).WithTexCoord(2, 2)

	u := a.Union(b)
	assert.Equal(t, 3, u.TexCoordDims(0))
	assert.Equal(t, 2, u.TexCoordDims(2))
	assert.Equal(t, 3, u.TexCoordCount())
	assert.Equal(t, 2, u.BoneWeights())
	assert.True(t, a.SubsetOf(u))
	assert.True(t, b.SubsetOf(u))
	assert.False(t, u.SubsetOf(a))

	assert.Equal(t, "position normal bones:2 tc0:3 tc2:2", u.String())
}
