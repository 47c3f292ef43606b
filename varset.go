package matsys

import (
	"unique"
)

// Standard variable names every shader has, in array order.
const (
	VarFlags              = "$flags"
	VarFlagsDefined       = "$flags_defined"
	VarFlags2             = "$flags2"
	VarFlagsDefined2      = "$flags_defined2"
	VarColor              = "$color"
	VarAlpha              = "$alpha"
	VarBaseTexture        = "$basetexture"
	VarFrame              = "$frame"
	VarBaseTextureXform   = "$basetexturetransform"
	VarSRGBTint           = "$srgbtint"
	VarFallbackMaterial   = "$fallbackmaterial"
	numStandardParameters = 10
)

// StandardParams are declared ahead of every shader's own parameters.
var StandardParams = [numStandardParameters]Param{
	{Name: VarFlags, Type: ParamInt, Default: "0", Help: "material flags"},
	{Name: VarFlagsDefined, Type: ParamInt, Default: "0", Help: "flags set by the document"},
	{Name: VarFlags2, Type: ParamInt, Default: "0", Help: "shader-derived flags"},
	{Name: VarFlagsDefined2, Type: ParamInt, Default: "0", Help: "shader-derived flags set"},
	{Name: VarColor, Type: ParamColor, Default: "[1 1 1]", Help: "color modulation"},
	{Name: VarAlpha, Type: ParamFloat, Default: "1", Help: "alpha modulation"},
	{Name: VarBaseTexture, Type: ParamTexture, Help: "base texture"},
	{Name: VarFrame, Type: ParamInt, Default: "0", Help: "animation frame of the base texture"},
	{Name: VarBaseTextureXform, Type: ParamMatrix, Default: "center .5 .5 scale 1 1 rotate 0 translate 0 0", Help: "base texture transform"},
	{Name: VarSRGBTint, Type: ParamColor, Default: "[1 1 1]", Help: "tint in sRGB space"},
}

// VarSet is the ordered variable array of a material with by-name lookup.
type VarSet struct {
	list   []*Variable
	byName map[unique.Handle[string]]int
	store  *VariableStore
	owner  *Material
}

func newVarSet(store *VariableStore, owner *Material) *VarSet {
	return &VarSet{store: store, owner: owner, byName: make(map[unique.Handle[string]]int)}
}

// Len returns the number of variables.
func (s *VarSet) Len() int { return len(s.list) }

// At returns the variable at index i.
func (s *VarSet) At(i int) *Variable { return s.list[i] }

// All returns the variables in array order.
func (s *VarSet) All() []*Variable { return s.list }

// Find returns the named variable.
func (s *VarSet) Find(name string) (*Variable, bool) {
	i, ok := s.byName[varSymbol(name)]
	if !ok {
		return nil, false
	}

	return s.list[i], true
}

// Var returns the named variable, or the shared dummy if there is none.
func (s *VarSet) Var(name string) *Variable {
	if v, ok := s.Find(name); ok {
		return v
	}

	return s.store.Dummy()
}

// IsDefined reports whether the named variable exists and holds a value.
func (s *VarSet) IsDefined(name string) bool {
	v, ok := s.Find(name)
	return ok && v.IsDefined()
}

// Material returns the owning material, nil while a shader is being resolved.
func (s *VarSet) Material() *Material { return s.owner }

// add appends a variable, or sets the existing one of the same name.
func (s *VarSet) add(name string, val Value) *Variable {
	sym := varSymbol(name)
	if i, ok := s.byName[sym]; ok {
		v := s.list[i]
		v.apply(val)
		return v
	}

	v := s.store.newVariable(s.owner, len(s.list), name, val)
	s.byName[sym] = len(s.list)
	s.list = append(s.list, v)

	return v
}

// adopt sets the owner of every variable.
func (s *VarSet) adopt(m *Material) {
	s.owner = m
	for _, v := range s.list {
		v.owner = m
	}
}

// free releases every variable back to the store.
func (s *VarSet) free() {
	for _, v := range s.list {
		s.store.freeVariable(v)
	}
	s.list = nil
	clear(s.byName)
}

// Flags returns $flags.
func (s *VarSet) Flags() MaterialFlag { return MaterialFlag(s.Var(VarFlags).GetInt()) }

// FlagsDefined returns $flags_defined.
func (s *VarSet) FlagsDefined() MaterialFlag {
	return MaterialFlag(s.Var(VarFlagsDefined).GetInt())
}

// HasFlag reports whether every bit of f is set.
func (s *VarSet) HasFlag(f MaterialFlag) bool { return s.Flags()&f == f }

// IsFlagDefined reports whether the document set f explicitly.
func (s *VarSet) IsFlagDefined(f MaterialFlag) bool { return s.FlagsDefined()&f == f }

// SetFlag sets or clears f and marks it defined.
func (s *VarSet) SetFlag(f MaterialFlag, on bool) {
	flags := s.Flags()
	if on {
		flags |= f
	} else {
		flags &^= f
	}
	s.setInt(VarFlags, int(int32(flags)))
	s.setInt(VarFlagsDefined, int(int32(s.FlagsDefined()|f)))
}

// Flags2 returns $flags2.
func (s *VarSet) Flags2() MaterialFlag2 { return MaterialFlag2(s.Var(VarFlags2).GetInt()) }

// HasFlag2 reports whether every bit of f is set.
func (s *VarSet) HasFlag2(f MaterialFlag2) bool { return s.Flags2()&f == f }

// SetFlag2 sets or clears f.
func (s *VarSet) SetFlag2(f MaterialFlag2, on bool) {
	flags := s.Flags2()
	if on {
		flags |= f
	} else {
		flags &^= f
	}
	s.setInt(VarFlags2, int(int32(flags)))
	defined := MaterialFlag2(s.Var(VarFlagsDefined2).GetInt())
	s.setInt(VarFlagsDefined2, int(int32(defined|f)))
}

// setInt writes directly so flag updates made while compiling are not staged.
func (s *VarSet) setInt(name string, i int) {
	if v, ok := s.Find(name); ok {
		v.apply(Int(int32(i)))
		return
	}
	s.add(name, Int(int32(i)))
}
