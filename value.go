package matsys

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// VarType is the type tag of a variable value.
type VarType uint8

// Variable types.
const (
	TypeUndefined VarType = iota
	TypeFloat
	TypeInt
	TypeVector
	TypeMatrix
	TypeString
	TypeTexture
	TypeMaterial
	TypeFourCC
)

var varTypeNames = [...]string{
	TypeUndefined: "undefined",
	TypeFloat:     "float",
	TypeInt:       "int",
	TypeVector:    "vector",
	TypeMatrix:    "matrix",
	TypeString:    "string",
	TypeTexture:   "texture",
	TypeMaterial:  "material",
	TypeFourCC:    "fourcc",
}

func (t VarType) String() string {
	if int(t) < len(varTypeNames) {
		return varTypeNames[t]
	}

	return "VarType(" + strconv.Itoa(int(t)) + ")"
}

// Value is the payload of a variable. The set of implementations is closed:
// Undefined, Float, Int, Vector, Matrix, String, TextureValue, MaterialValue
// and FourCC.
type Value interface {
	Type() VarType
	String() string
	isValue()
}

// Undefined is the value of a variable that was never set.
type Undefined struct{}

// Float is a scalar float value.
type Float float32

// Int is a scalar integer value.
type Int int32

// Vector is a 2 to 4 component float vector. Unused components are zero.
type Vector struct {
	V mgl32.Vec4
	N int
}

// Matrix is a 4x4 float matrix.
type Matrix mgl32.Mat4

// String is a string value.
type String string

// TextureValue is a texture reference and the handle it resolved to.
// Tex may be nil for a reference that was not loaded yet.
type TextureValue struct {
	Ref TextureRef
	Tex Texture
}

// MaterialValue references another material.
type MaterialValue struct {
	Mat *Material
}

// FourCC is a four character code with an opaque payload. Payloads of a
// type that is not comparable never compare equal, so setting one always
// counts as a change.
type FourCC struct {
	Code [4]byte
	Data any
}

func (Undefined) Type() VarType     { return TypeUndefined }
func (Float) Type() VarType         { return TypeFloat }
func (Int) Type() VarType           { return TypeInt }
func (Vector) Type() VarType        { return TypeVector }
func (Matrix) Type() VarType        { return TypeMatrix }
func (String) Type() VarType        { return TypeString }
func (TextureValue) Type() VarType  { return TypeTexture }
func (MaterialValue) Type() VarType { return TypeMaterial }
func (FourCC) Type() VarType        { return TypeFourCC }

func (Undefined) isValue()     {}
func (Float) isValue()         {}
func (Int) isValue()           {}
func (Vector) isValue()        {}
func (Matrix) isValue()        {}
func (String) isValue()        {}
func (TextureValue) isValue()  {}
func (MaterialValue) isValue() {}
func (FourCC) isValue()        {}

func (Undefined) String() string { return "" }
func (v Float) String() string   { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
func (v Int) String() string     { return strconv.Itoa(int(v)) }
func (v String) String() string  { return string(v) }

func (v Vector) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < v.N; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(float64(v.V[i]), 'g', -1, 32))
	}
	b.WriteByte(']')

	return b.String()
}

// String writes the matrix row by row.
func (v Matrix) String() string {
	m := mgl32.Mat4(v)
	var b strings.Builder
	b.WriteByte('[')
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if r+c > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatFloat(float64(m.At(r, c)), 'g', -1, 32))
		}
	}
	b.WriteByte(']')

	return b.String()
}

func (v TextureValue) String() string {
	if v.Ref.Raw == "" && v.Tex != nil {
		return v.Tex.Name()
	}

	return v.Ref.Raw
}

func (v MaterialValue) String() string {
	if v.Mat == nil {
		return ""
	}

	return v.Mat.Name()
}

func (v FourCC) String() string { return string(v.Code[:]) }

// NewVector returns an n component vector from the leading values of c.
func NewVector(c ...float32) Vector {
	n := min(max(len(c), 2), 4)
	var v Vector
	v.N = n
	copy(v.V[:n], c)

	return v
}

// NewFourCC packs a four character code.
func NewFourCC(code string, data any) FourCC {
	var f FourCC
	copy(f.Code[:], code)
	f.Data = data

	return f
}

// valueEqual reports whether a and b hold the same type and payload.
func valueEqual(a, b Value) bool {
	switch x := a.(type) {
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	case Float:
		y, ok := b.(Float)
		return ok && x == y
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Vector:
		y, ok := b.(Vector)
		return ok && x.N == y.N && x.V == y.V
	case Matrix:
		y, ok := b.(Matrix)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case TextureValue:
		y, ok := b.(TextureValue)
		return ok && x.Tex == y.Tex && x.Ref.Raw == y.Ref.Raw
	case MaterialValue:
		y, ok := b.(MaterialValue)
		return ok && x.Mat == y.Mat
	case FourCC:
		y, ok := b.(FourCC)
		return ok && x.Code == y.Code && payloadEqual(x.Data, y.Data)
	default:
		panic(fmt.Sprintf("matsys: unknown value type %T", a))
	}
}

// payloadEqual compares FourCC payloads. Payloads of a non-comparable type
// are never equal.
func payloadEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}

	return a == b
}

// asFloat converts any value to a float.
func asFloat(v Value) float32 {
	switch x := v.(type) {
	case Float:
		return float32(x)
	case Int:
		return float32(x)
	case Vector:
		return x.V[0]
	case String:
		f, _ := strconv.ParseFloat(strings.TrimSpace(string(x)), 32)
		return float32(f)
	case Undefined, Matrix, TextureValue, MaterialValue, FourCC:
		return 0
	default:
		panic(fmt.Sprintf("matsys: unknown value type %T", v))
	}
}

// asInt converts any value to an integer.
func asInt(v Value) int {
	switch x := v.(type) {
	case Float:
		return int(x)
	case Int:
		return int(x)
	case Vector:
		return int(x.V[0])
	case String:
		s := strings.TrimSpace(string(x))
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(s, 64)
		return int(f)
	case Undefined, Matrix, TextureValue, MaterialValue, FourCC:
		return 0
	default:
		panic(fmt.Sprintf("matsys: unknown value type %T", v))
	}
}

// asVector converts any value to a 4 component vector. Scalars broadcast.
func asVector(v Value) mgl32.Vec4 {
	switch x := v.(type) {
	case Float:
		f := float32(x)
		return mgl32.Vec4{f, f, f, f}
	case Int:
		f := float32(x)
		return mgl32.Vec4{f, f, f, f}
	case Vector:
		return x.V
	case String:
		if vec, ok := ParseVector(string(x), 4); ok {
			return vec.V
		}
		return mgl32.Vec4{}
	case Undefined, Matrix, TextureValue, MaterialValue, FourCC:
		return mgl32.Vec4{}
	default:
		panic(fmt.Sprintf("matsys: unknown value type %T", v))
	}
}

// asMatrix converts any value to a matrix. Non-matrix values give identity.
func asMatrix(v Value) mgl32.Mat4 {
	switch x := v.(type) {
	case Matrix:
		return mgl32.Mat4(x)
	case String:
		if m, ok := ParseMatrix(string(x)); ok {
			return mgl32.Mat4(m)
		}
		return mgl32.Ident4()
	case Undefined, Float, Int, Vector, TextureValue, MaterialValue, FourCC:
		return mgl32.Ident4()
	default:
		panic(fmt.Sprintf("matsys: unknown value type %T", v))
	}
}

// ParseVector parses "[x y z]" floats, "{r g b}" bytes scaled to 0..1,
// or a bare number broadcast to n components.
func ParseVector(s string, n int) (Vector, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Vector{}, false
	}

	scale := float32(1)
	switch s[0] {
	case '[':
		if !strings.HasSuffix(s, "]") {
			return Vector{}, false
		}
	case '{':
		if !strings.HasSuffix(s, "}") {
			return Vector{}, false
		}
		scale = 1.0 / 255
	default:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Vector{}, false
		}
		n = min(max(n, 2), 4)
		v := Vector{N: n}
		for i := 0; i < n; i++ {
			v.V[i] = float32(f)
		}
		return v, true
	}

	fields := splitVectorFields(s[1 : len(s)-1])
	if len(fields) < 1 || len(fields) > 4 {
		return Vector{}, false
	}

	var v Vector
	for i, fs := range fields {
		f, err := strconv.ParseFloat(fs, 32)
		if err != nil {
			return Vector{}, false
		}
		v.V[i] = float32(f) * scale
	}
	v.N = max(len(fields), 2)

	return v, true
}

// ParseMatrix parses "center u v scale u v rotate r translate u v" with the
// rotation in degrees, or 16 floats in row order.
func ParseMatrix(s string) (Matrix, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		fields := splitVectorFields(s[1 : len(s)-1])
		if len(fields) != 16 {
			return Matrix{}, false
		}
		var m mgl32.Mat4
		for i, fs := range fields {
			f, err := strconv.ParseFloat(fs, 32)
			if err != nil {
				return Matrix{}, false
			}
			m.Set(i/4, i%4, float32(f))
		}
		return Matrix(m), true
	}

	fields := strings.Fields(s)
	center := mgl32.Vec2{0.5, 0.5}
	scale := mgl32.Vec2{1, 1}
	translate := mgl32.Vec2{}
	var rotate float32
	seen := false

	for i := 0; i < len(fields); {
		key := strings.ToLower(fields[i])
		want := 2
		if key == "rotate" {
			want = 1
		}
		if i+want >= len(fields) {
			return Matrix{}, false
		}
		var args [2]float32
		for j := 0; j < want; j++ {
			f, err := strconv.ParseFloat(fields[i+1+j], 32)
			if err != nil {
				return Matrix{}, false
			}
			args[j] = float32(f)
		}

		switch key {
		case "center":
			center = mgl32.Vec2{args[0], args[1]}
		case "scale":
			scale = mgl32.Vec2{args[0], args[1]}
		case "rotate":
			rotate = args[0]
		case "translate":
			translate = mgl32.Vec2{args[0], args[1]}
		default:
			return Matrix{}, false
		}
		seen = true
		i += 1 + want
	}
	if !seen {
		return Matrix{}, false
	}

	return Matrix(TextureTransform(center, scale, rotate, translate)), true
}

// TextureTransform builds a 2D texture coordinate transform: scale and rotate
// (degrees) about center, then translate.
func TextureTransform(center, scale mgl32.Vec2, rotate float32, translate mgl32.Vec2) mgl32.Mat4 {
	m := mgl32.Translate3D(-center[0], -center[1], 0)
	m = mgl32.Scale3D(scale[0], scale[1], 1).Mul4(m)
	m = mgl32.HomogRotate3DZ(mgl32.DegToRad(rotate)).Mul4(m)
	m = mgl32.Translate3D(center[0]+translate[0], center[1]+translate[1], 0).Mul4(m)

	return m
}

// splitVectorFields splits on spaces and commas.
func splitVectorFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
}

// inferValue types an undeclared parameter from its text.
func inferValue(s string) Value {
	t := strings.TrimSpace(s)
	if t != "" && (t[0] == '[' || t[0] == '{') {
		if m, ok := ParseMatrix(t); ok {
			return m
		}
		if v, ok := ParseVector(t, 4); ok {
			return v
		}
		return String(s)
	}
	if strings.HasPrefix(strings.ToLower(t), "center ") {
		if m, ok := ParseMatrix(t); ok {
			return m
		}
	}
	if i, err := strconv.ParseInt(t, 10, 32); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(t, 32); err == nil {
		return Float(f)
	}

	return String(s)
}
