package matsys

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"unique"

	"github.com/go-gl/mathgl/mgl32"
)

// Variable is a named, typed value cell owned by one Material.
//
// Variables are allocated from the VariableStore pool; pointers are valid
// until the owning material frees its variables or the store compacts.
// Getters and direct setters belong to the owning goroutine. While the store is
// in threaded access, setters from any goroutine are staged and replayed by
// VariableStore.Drain.
type Variable struct {
	name    unique.Handle[string] // Lower-cased name symbol
	display string                // Name as first written
	val     Value
	owner   *Material
	index   int // Position in owner's variable array
	store   *VariableStore
	dummy   bool
	pending atomic.Pointer[staged]
}

// staged is a value written during threaded access and not yet replayed.
type staged struct {
	val Value
}

// varSymbol returns the name symbol for a variable name.
func varSymbol(name string) unique.Handle[string] {
	return unique.Make(strings.ToLower(name))
}

// Name returns the variable name as it was first written.
func (v *Variable) Name() string { return v.display }

// Symbol returns the interned lower-case name.
func (v *Variable) Symbol() unique.Handle[string] { return v.name }

// Owner returns the owning material, or nil for the shared dummy variable.
func (v *Variable) Owner() *Material { return v.owner }

// Index returns the position of the variable in its owner's array.
func (v *Variable) Index() int { return v.index }

// Type returns the type tag of the committed value.
func (v *Variable) Type() VarType { return v.val.Type() }

// Value returns the committed value.
func (v *Variable) Value() Value { return v.val }

// IsDefined reports whether the variable holds a value.
func (v *Variable) IsDefined() bool { return v.val.Type() != TypeUndefined }

// IsTexture reports whether the variable holds a texture.
func (v *Variable) IsTexture() bool { return v.val.Type() == TypeTexture }

// Pending returns the value staged during threaded access, if any.
// It is safe to call from any goroutine and gives producers read-your-writes.
func (v *Variable) Pending() (Value, bool) {
	if s := v.pending.Load(); s != nil {
		return s.val, true
	}

	return nil, false
}

// GetFloat returns the value as a float.
func (v *Variable) GetFloat() float32 { return asFloat(v.val) }

// GetInt returns the value as an integer.
func (v *Variable) GetInt() int { return asInt(v.val) }

// GetBool returns whether the integer value is non-zero.
func (v *Variable) GetBool() bool { return asInt(v.val) != 0 }

// GetVec returns the value as a 4 component vector; scalars broadcast.
func (v *Variable) GetVec() mgl32.Vec4 { return asVector(v.val) }

// GetVec3 returns the first three vector components.
func (v *Variable) GetVec3() mgl32.Vec3 { return asVector(v.val).Vec3() }

// VectorSize returns the component count of a vector value, 0 otherwise.
func (v *Variable) VectorSize() int {
	if vec, ok := v.val.(Vector); ok {
		return vec.N
	}

	return 0
}

// GetMatrix returns the value as a matrix; non-matrix values give identity.
func (v *Variable) GetMatrix() mgl32.Mat4 { return asMatrix(v.val) }

// GetString formats the value as a string.
func (v *Variable) GetString() string { return v.val.String() }

// GetTexture returns the texture handle, or nil.
func (v *Variable) GetTexture() Texture {
	if t, ok := v.val.(TextureValue); ok {
		return t.Tex
	}

	return nil
}

// GetMaterial returns the referenced material, or nil.
func (v *Variable) GetMaterial() *Material {
	if m, ok := v.val.(MaterialValue); ok {
		return m.Mat
	}

	return nil
}

// GetFourCC returns the code and payload of a FourCC value.
func (v *Variable) GetFourCC() ([4]byte, any) {
	if f, ok := v.val.(FourCC); ok {
		return f.Code, f.Data
	}

	return [4]byte{}, nil
}

// SetFloat sets a float value.
func (v *Variable) SetFloat(f float32) { v.Set(Float(f)) }

// SetInt sets an integer value.
func (v *Variable) SetInt(i int) { v.Set(Int(int32(i))) }

// SetVec sets a vector of len(c) components (2 to 4).
func (v *Variable) SetVec(c ...float32) { v.Set(NewVector(c...)) }

// SetVec3 sets a 3 component vector.
func (v *Variable) SetVec3(c mgl32.Vec3) { v.Set(Vector{V: c.Vec4(0), N: 3}) }

// SetVec4 sets a 4 component vector.
func (v *Variable) SetVec4(c mgl32.Vec4) { v.Set(Vector{V: c, N: 4}) }

// SetMatrix sets a matrix value.
func (v *Variable) SetMatrix(m mgl32.Mat4) { v.Set(Matrix(m)) }

// SetString sets a string value.
func (v *Variable) SetString(s string) { v.Set(String(s)) }

// SetTexture sets a texture value and takes a reference on tex.
func (v *Variable) SetTexture(tex Texture) {
	var ref TextureRef
	if tex != nil {
		ref = ParseTextureRef(tex.Name())
	}
	v.Set(TextureValue{Ref: ref, Tex: tex})
}

// SetMaterial sets a material reference and takes a reference on m.
func (v *Variable) SetMaterial(m *Material) { v.Set(MaterialValue{Mat: m}) }

// SetFourCC sets a FourCC value.
func (v *Variable) SetFourCC(code string, data any) { v.Set(NewFourCC(code, data)) }

// SetUndefined clears the value.
func (v *Variable) SetUndefined() { v.Set(Undefined{}) }

// CopyFrom sets the committed value of src.
func (v *Variable) CopyFrom(src *Variable) { v.Set(src.val) }

// Set sets any value. During threaded access the write is staged and queued;
// otherwise it is applied immediately.
func (v *Variable) Set(val Value) {
	if val == nil {
		val = Undefined{}
	}
	if v.dummy {
		assertf(v.logger(), "write of %q to the undefined variable placeholder", val.String())
		return
	}
	if v.store != nil && v.store.InThreadedAccess() {
		v.store.stage(v, val)
		return
	}

	v.apply(val)
}

// apply commits val on the owning goroutine. Setting the held value is a no-op.
func (v *Variable) apply(val Value) {
	if valueEqual(v.val, val) {
		return
	}

	// Acquire before release so self-assignment of a shared handle survives.
	acquireValue(val)
	releaseValue(v.val)
	v.val = val

	if v.owner != nil {
		v.owner.varChanged(v)
	}
}

// reset releases the held value without notifying the owner.
func (v *Variable) reset() {
	releaseValue(v.val)
	v.val = Undefined{}
	v.pending.Store(nil)
}

func (v *Variable) logger() *slog.Logger {
	if v.store != nil {
		return v.store.logger
	}

	return slog.Default()
}

// acquireValue takes the references a value owns.
func acquireValue(val Value) {
	switch x := val.(type) {
	case TextureValue:
		if x.Tex != nil {
			x.Tex.IncRef()
		}
	case MaterialValue:
		if x.Mat != nil {
			x.Mat.IncRef()
		}
	case Undefined, Float, Int, Vector, Matrix, String, FourCC:
	}
}

// releaseValue drops the references a value owns.
func releaseValue(val Value) {
	switch x := val.(type) {
	case TextureValue:
		if x.Tex != nil {
			x.Tex.DecRef()
		}
	case MaterialValue:
		if x.Mat != nil {
			x.Mat.DecRef()
		}
	case nil, Undefined, Float, Int, Vector, Matrix, String, FourCC:
	}
}
