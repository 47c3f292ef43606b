package matsys

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVector(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want Vector
		ok   bool
	}{
		{"[1 .5 .5]", 3, Vector{V: mgl32.Vec4{1, .5, .5, 0}, N: 3}, true},
		{"[1, 2]", 4, Vector{V: mgl32.Vec4{1, 2, 0, 0}, N: 2}, true},
		{"{255 0 0}", 3, Vector{V: mgl32.Vec4{1, 0, 0, 0}, N: 3}, true},
		{"0.5", 3, Vector{V: mgl32.Vec4{.5, .5, .5, 0}, N: 3}, true},
		{"2", 1, Vector{V: mgl32.Vec4{2, 2, 0, 0}, N: 2}, true},
		{"[1]", 4, Vector{V: mgl32.Vec4{1, 0, 0, 0}, N: 2}, true},
		{"[1 2 3 4 5]", 4, Vector{}, false},
		{"[a b]", 2, Vector{}, false},
		{"[1 2", 2, Vector{}, false},
		{"", 3, Vector{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseVector(tt.in, tt.n)
		require.Equal(t, tt.ok, ok, tt.in)
		if ok {
			assert.Equal(t, tt.want.N, got.N, tt.in)
			assert.True(t, got.V.ApproxEqual(tt.want.V), "%s: got %v", tt.in, got.V)
		}
	}
}

func TestParseMatrix(t *testing.T) {
	m, ok := ParseMatrix("center .5 .5 scale 2 2 rotate 0 translate 0 0")
	require.True(t, ok)
	got := mgl32.Mat4(m).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.True(t, got.ApproxEqual(mgl32.Vec4{-.5, -.5, 0, 1}), "scaled about center: %v", got)

	m, ok = ParseMatrix("rotate 90")
	require.True(t, ok)
	got = mgl32.Mat4(m).Mul4x1(mgl32.Vec4{1, .5, 0, 1})
	assert.True(t, got.ApproxEqualThreshold(mgl32.Vec4{.5, 1, 0, 1}, 1e-5), "rotated about center: %v", got)

	m, ok = ParseMatrix("translate .25 0")
	require.True(t, ok)
	got = mgl32.Mat4(m).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.True(t, got.ApproxEqual(mgl32.Vec4{.25, 0, 0, 1}), "translated: %v", got)

	m, ok = ParseMatrix("[1 0 0 0 0 1 0 0 0 0 1 0 5 6 7 1]")
	require.True(t, ok)
	assert.Equal(t, float32(5), mgl32.Mat4(m).At(3, 0))
	assert.Equal(t, float32(7), mgl32.Mat4(m).At(3, 2))

	for _, bad := range []string{"", "scale 2", "bogus 1 2", "rotate x", "[1 2 3]"} {
		_, ok := ParseMatrix(bad)
		assert.False(t, ok, bad)
	}
}

func TestTextureTransformIdentity(t *testing.T) {
	m := TextureTransform(mgl32.Vec2{.5, .5}, mgl32.Vec2{1, 1}, 0, mgl32.Vec2{})
	assert.True(t, m.ApproxEqual(mgl32.Ident4()), "got %v", m)
}

func TestInferValue(t *testing.T) {
	tests := []struct {
		in   string
		want VarType
	}{
		{"5", TypeInt},
		{"-3", TypeInt},
		{"1.5", TypeFloat},
		{".25", TypeFloat},
		{"[1 2 3]", TypeVector},
		{"{128 128 128}", TypeVector},
		{"center .5 .5 scale 1 1 rotate 0 translate 0 0", TypeMatrix},
		{"[1 0 0 0 0 1 0 0 0 0 1 0 0 0 0 1]", TypeMatrix},
		{"models/props/crate", TypeString},
		{"[a b]", TypeString},
		{"", TypeString},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferValue(tt.in).Type(), "%q", tt.in)
	}

	assert.Equal(t, Int(5), inferValue(" 5 "))
	assert.Equal(t, String("hello world"), inferValue("hello world"))
}

func TestParseParam(t *testing.T) {
	tests := []struct {
		text    string
		typ     ParamType
		want    Value
		wantErr bool
	}{
		{"0.75", ParamFloat, Float(.75), false},
		{"[0.25 1 1]", ParamFloat, Float(.25), false},
		{"abc", ParamFloat, nil, true},
		{"7", ParamInt, Int(7), false},
		{"2.7", ParamInt, Int(2), false},
		{"x", ParamInt, nil, true},
		{"yes", ParamBool, Int(1), false},
		{"0", ParamBool, Int(0), false},
		{" keep spaces ", ParamString, String(" keep spaces "), false},
		{"[1 2]", ParamVec2, NewVector(1, 2), false},
		{"1", ParamColor, Vector{V: mgl32.Vec4{1, 1, 1, 0}, N: 3}, false},
		{"[1 2 3 4]", ParamVec4, NewVector(1, 2, 3, 4), false},
		{"[1 2", ParamVec3, nil, true},
		{"", ParamTexture, Undefined{}, false},
		{"", ParamMaterial, Undefined{}, false},
		{`Materials\Props\Other.vmt`, ParamMaterial, String("props/other"), false},
		{"DXT5", ParamFourCC, NewFourCC("DXT5", nil), false},
		{"DXT", ParamFourCC, nil, true},
		{"scale", ParamMatrix, nil, true},
	}
	for _, tt := range tests {
		got, err := ParseParam(tt.text, tt.typ)
		if tt.wantErr {
			assert.Error(t, err, "%s %q", tt.typ, tt.text)
			continue
		}
		require.NoError(t, err, "%s %q", tt.typ, tt.text)
		assert.Equal(t, tt.want, got, "%s %q", tt.typ, tt.text)
	}

	v, err := ParseParam(`Models\Crate.VTF`, ParamTexture)
	require.NoError(t, err)
	tv, ok := v.(TextureValue)
	require.True(t, ok)
	assert.Equal(t, "models/crate", tv.Ref.Raw)
	assert.Nil(t, tv.Tex, "parsing never loads the texture")
}

func TestValueConversions(t *testing.T) {
	assert.Equal(t, 2, asInt(Float(2.9)))
	assert.Equal(t, float32(3), asFloat(String(" 3 ")))
	assert.Equal(t, 4, asInt(String("4.5")))
	assert.Equal(t, mgl32.Vec4{2, 2, 2, 2}, asVector(Int(2)))
	assert.Equal(t, mgl32.Vec4{1, 2, 0, 0}, asVector(String("[1 2]")))
	assert.Equal(t, mgl32.Ident4(), asMatrix(Float(1)))
	assert.Equal(t, float32(0), asFloat(Undefined{}))

	assert.True(t, valueEqual(Float(1), Float(1)))
	assert.False(t, valueEqual(Float(1), Int(1)), "equality is typed")
	assert.False(t, valueEqual(NewVector(1, 2), NewVector(1, 2, 0)), "component count matters")
	assert.True(t, valueEqual(Undefined{}, Undefined{}))
}

func TestValueStrings(t *testing.T) {
	assert.Equal(t, "1.5", Float(1.5).String())
	assert.Equal(t, "-2", Int(-2).String())
	assert.Equal(t, "", Undefined{}.String())
	assert.Equal(t, "DXT1", NewFourCC("DXT1", nil).String())
	assert.Equal(t, "vector", TypeVector.String())
	assert.Equal(t, "texture", ParamTexture.String())
}

func TestParseTextureRef(t *testing.T) {
	ref := ParseTextureRef(`Materials\Props\Crate.vtf`)
	assert.True(t, ref.IsPath())
	assert.Equal(t, "props/crate", ref.Raw)
	assert.Empty(t, ref.Validate())

	ref = ParseTextureRef("#(argb,8,8,3)color(0.5,0.5,0.5,1.0)")
	require.True(t, ref.IsProcedural())
	require.True(t, ref.ParsedOK)
	require.NotNil(t, ref.Procedural.Color)
	assert.Equal(t, 0.5, ref.Procedural.Color.R)
	assert.Equal(t, 3, ref.Procedural.Mip)
	assert.Empty(t, ref.Validate())

	assert.Equal(t, "#(rgba,4,4,1)color(1,0,0,1)", NewProceduralColor("rgba", 4, 4, 1, 1, 0, 0, 1).Raw)

	tests := map[string]string{
		"":                          "texture_empty",
		"#(argb,8,8)color(1,1,1,1)": "texture_procedural",
		"#(argb,8,8,1)color(1,1)":   "texture_procedural_args",
		"props/../crate":            "texture_dotdot",
		"props/crate.tga":           "texture_ext",
	}
	for raw, code := range tests {
		issues := ParseTextureRef(raw).Validate()
		require.Len(t, issues, 1, raw)
		assert.Equal(t, code, issues[0].Code, raw)
	}
}
