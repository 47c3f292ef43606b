package matsys

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialState is the cache state of a material.
type MaterialState uint8

// Material states.
const (
	StateUncached MaterialState = iota
	StateVarsPrecached
	StatePrecached
)

func (s MaterialState) String() string {
	switch s {
	case StateVarsPrecached:
		return "vars-precached"
	case StatePrecached:
		return "precached"
	default:
		return "uncached"
	}
}

// material state bits.
const (
	flagPrecached uint8 = 1 << iota
	flagVarsPrecached
	flagManual
	flagPreloaded
	flagErrorDefinition
)

// preloadResult is a definition read ahead of binding by System.Preload.
type preloadResult struct {
	def *Definition
	err error
}

// Material is a named, shader-bound bundle of variables with its compiled
// snapshot tables. A material belongs to the goroutine that owns its System;
// only variable setters may be called elsewhere, during threaded access.
type Material struct {
	sys    *System
	name   string
	group  string
	source *Node          // Definition of a manually created material
	pre    *preloadResult // Definition read by Preload, consumed on first resolve

	shader   *Shader
	vars     *VarSet
	config   *Node
	deps     []string
	render   *RenderState
	state    uint8
	refs     int
	pins     int
	changeID uint64
	repTex   Texture
}

// Name returns the logical material name.
func (m *Material) Name() string { return m.name }

// TextureGroup returns the texture group tag the material loads textures with.
func (m *Material) TextureGroup() string { return m.group }

// State returns the cache state.
func (m *Material) State() MaterialState {
	switch {
	case m.state&flagPrecached != 0:
		return StatePrecached
	case m.state&flagVarsPrecached != 0:
		return StateVarsPrecached
	default:
		return StateUncached
	}
}

// IsPrecached reports whether the snapshot tables are compiled.
func (m *Material) IsPrecached() bool { return m.state&flagPrecached != 0 }

// IsManual reports whether the material was created from an in-memory definition.
func (m *Material) IsManual() bool { return m.state&flagManual != 0 }

// IsErrorMaterial reports whether the definition could not be used and the
// built-in error definition was substituted.
func (m *Material) IsErrorMaterial() bool { return m.state&flagErrorDefinition != 0 }

// ShaderName returns the name of the bound shader, resolving the material if
// needed. It is "" only when resolution was refused during threaded access.
func (m *Material) ShaderName() string {
	m.PrecacheVars()
	if m.shader == nil {
		return ""
	}

	return m.shader.Name
}

// Config returns the merged configuration the variables were parsed from.
func (m *Material) Config() *Node { return m.config }

// Dependencies returns the documents the resolved material was built from.
func (m *Material) Dependencies() []string { return m.deps }

// Vars returns the variable array, resolving it if needed.
func (m *Material) Vars() *VarSet {
	m.PrecacheVars()
	return m.vars
}

// RenderState returns the compiled snapshot tables, or nil when not precached.
func (m *Material) RenderState() *RenderState { return m.render }

// PrecacheVars resolves the definition, parses the variables and loads the
// textures and materials they reference. It is a no-op when already done.
func (m *Material) PrecacheVars() {
	if m.state&flagVarsPrecached != 0 {
		return
	}
	if m.sys.store.InThreadedAccess() {
		m.sys.limiter.warn(m.sys.logger, "variable precache refused during threaded access", m.name, "material", m.name)
		return
	}

	res := m.sys.resolve(m)
	m.shader, m.vars, m.config, m.deps = res.shader, res.vars, res.config, res.deps
	m.vars.adopt(m)
	if res.isError {
		m.state |= flagErrorDefinition
	} else {
		m.state &^= flagErrorDefinition
	}

	caps := m.sys.opt.Capabilities
	if m.shader.InitParams != nil {
		m.shader.InitParams(m.vars, caps)
	}
	m.loadResources()
	if m.shader.InitInstance != nil {
		m.shader.InitInstance(m.vars, m)
	}

	m.state |= flagVarsPrecached
}

// Precache compiles the snapshot tables, resolving variables first if needed.
// A compile failure rebinds the debug shader; the material is precached either way.
func (m *Material) Precache() {
	if m.state&flagPrecached != 0 {
		return
	}
	if m.sys.store.InThreadedAccess() {
		m.sys.limiter.warn(m.sys.logger, "precache refused during threaded access", m.name, "material", m.name)
		return
	}

	m.PrecacheVars()

	rs, err := m.sys.compile(m.shader, m.vars)
	if err != nil {
		m.sys.logger.Warn("material compile failed, using debug shader",
			"material", m.name, "shader", m.shader.Name, "err", err)
		m.shader = DebugShader
		if rs, err = m.sys.compile(DebugShader, m.vars); err != nil {
			m.sys.logger.Error("debug shader compile failed", "material", m.name, "err", err)
			rs = &RenderState{}
		}
	}
	m.sys.logger.Debug("material precached", "material", m.name, "shader", m.shader.Name,
		"translucent", rs.Translucent, "vertexFormat", rs.VertexFormat)

	m.render = rs
	m.state |= flagPrecached
}

// Uncache releases the snapshot tables. Unless preserveVars is set it also
// frees the variables and the shader binding, forcing a re-parse.
func (m *Material) Uncache(preserveVars bool) {
	if m.sys.store.InThreadedAccess() {
		m.sys.limiter.warn(m.sys.logger, "uncache refused during threaded access", m.name, "material", m.name)
		return
	}

	if m.render != nil {
		m.render.release(m.sys.env.Backend)
		m.render = nil
	}
	m.state &^= flagPrecached

	if preserveVars || m.vars == nil {
		return
	}

	// Queued commands may point at the variables about to be freed.
	m.sys.store.Drain()
	m.vars.free()
	m.vars = nil
	m.shader = nil
	m.config = nil
	m.repTex = nil
	m.state &^= flagVarsPrecached
}

// Refresh re-reads the definition and recompiles.
func (m *Material) Refresh() {
	m.Uncache(false)
	m.Precache()
}

// RefreshPreservingVars recompiles from the current variables.
func (m *Material) RefreshPreservingVars() {
	m.Uncache(true)
	m.Precache()
}

// IncRef takes a reference.
func (m *Material) IncRef() { m.refs++ }

// DecRef drops a reference. The material is destroyed by
// System.CollectUnreferenced once no references or pins remain.
func (m *Material) DecRef() { m.refs-- }

// RefCount returns the reference count.
func (m *Material) RefCount() int { return m.refs }

// Pin keeps the material alive regardless of its reference count.
func (m *Material) Pin() { m.pins++ }

// Unpin drops a pin.
func (m *Material) Unpin() {
	if m.pins > 0 {
		m.pins--
	}
}

// IsPinned reports whether the material is pinned.
func (m *Material) IsPinned() bool { return m.pins > 0 }

// ChangeID returns a counter bumped whenever a variable value changes.
func (m *Material) ChangeID() uint64 { return m.changeID }

// varChanged is called by variables after a committed value change.
func (m *Material) varChanged(v *Variable) {
	m.changeID++
	if v.name == varSymbol(VarBaseTexture) {
		m.repTex = nil
	}
}

// IsTranslucent reports whether the baseline pass blends.
func (m *Material) IsTranslucent() bool {
	m.Precache()
	return m.render != nil && m.render.Translucent
}

// IsAlphaTested reports whether the baseline pass discards by alpha.
func (m *Material) IsAlphaTested() bool {
	m.Precache()
	return m.render != nil && m.render.AlphaTested
}

// IsOpaque reports whether the material neither blends nor alpha tests.
func (m *Material) IsOpaque() bool {
	return !m.IsTranslucent() && !m.IsAlphaTested()
}

// VertexFormat returns the merged vertex format of the material.
func (m *Material) VertexFormat() VertexFormat {
	m.Precache()
	if m.render == nil {
		return 0
	}

	return m.render.VertexFormat
}

// PassCount returns the number of passes compiled for mod.
func (m *Material) PassCount(mod Modulation) int {
	m.Precache()
	return m.render.PassCount(mod)
}

// Draw binds and draws every pass of the modulation selected for the
// external flags mod. It returns the number of passes drawn; zero-pass
// combinations and $no_draw materials draw nothing.
func (m *Material) Draw(mod Modulation, cmd CommandBuffer) int {
	m.Precache()
	if m.render == nil || m.vars.HasFlag(FlagNoDraw) {
		return 0
	}

	idx := mod.Legal(m.sys.opt.Capabilities)
	if m.shader.ModulationIndex != nil {
		idx = m.shader.ModulationIndex(m.vars, idx)
	}
	passes := m.render.Passes[idx&modAll]
	for i, s := range passes {
		cmd.BindSnapshot(s)
		if m.shader.Dynamic != nil {
			m.shader.Dynamic(cmd, m.vars, idx, i)
		}
		cmd.Draw()
	}

	return len(passes)
}

// RepresentativeTexture returns the texture that stands for the material in
// tools and light bouncing: the base texture, or the provider's error texture.
func (m *Material) RepresentativeTexture() Texture {
	if m.repTex != nil {
		return m.repTex
	}

	m.PrecacheVars()
	if m.vars != nil {
		if v, ok := m.vars.Find(VarBaseTexture); ok {
			m.repTex = v.GetTexture()
		}
	}
	if m.repTex == nil && m.sys.env.Textures != nil {
		m.repTex = m.sys.env.Textures.ErrorTexture()
	}

	return m.repTex
}

// FindVar returns the named variable, resolving variables first if needed.
// The pointer has the same lifetime as one returned by Var.
func (m *Material) FindVar(name string) (*Variable, bool) {
	m.PrecacheVars()
	if m.vars == nil {
		return nil, false
	}

	return m.vars.Find(name)
}

// Var returns the named variable or, with a rate-limited warning, the shared
// undefined placeholder. Writes to the placeholder are programmer errors.
// The pointer is valid until the material is uncached or the store is
// compacted.
func (m *Material) Var(name string) *Variable {
	if v, ok := m.FindVar(name); ok {
		return v
	}

	m.sys.limiter.warn(m.sys.logger, "undefined material variable", m.name+"\x00"+name,
		"material", m.name, "var", name, "err", ErrUndefinedVariable)

	return m.sys.store.Dummy()
}

// AddVar appends a variable holding val, or sets the existing one of that
// name. During threaded access the append is queued for the owning goroutine
// and nil is returned.
func (m *Material) AddVar(name string, val Value) *Variable {
	if val == nil {
		val = Undefined{}
	}
	if m.sys.store.InThreadedAccess() {
		m.sys.store.Enqueue(func() { m.AddVar(name, val) })
		return nil
	}

	m.PrecacheVars()
	if m.vars == nil {
		return nil
	}
	if v, ok := m.vars.Find(name); ok {
		v.Set(val)
		return v
	}

	v := m.vars.add(name, val)
	m.changeID++

	return v
}

// set writes val to the named variable, adding it when missing.
func (m *Material) set(name string, val Value) {
	if m.vars != nil {
		if v, ok := m.vars.Find(name); ok {
			v.Set(val)
			return
		}
	}
	m.AddVar(name, val)
}

// GetFloat returns the named variable as a float.
func (m *Material) GetFloat(name string) float32 { return m.Var(name).GetFloat() }

// GetInt returns the named variable as an integer.
func (m *Material) GetInt(name string) int { return m.Var(name).GetInt() }

// GetString returns the named variable formatted as a string.
func (m *Material) GetString(name string) string { return m.Var(name).GetString() }

// GetVec returns the named variable as a 4 component vector.
func (m *Material) GetVec(name string) mgl32.Vec4 { return m.Var(name).GetVec() }

// GetMatrix returns the named variable as a matrix.
func (m *Material) GetMatrix(name string) mgl32.Mat4 { return m.Var(name).GetMatrix() }

// GetTexture returns the texture held by the named variable.
func (m *Material) GetTexture(name string) Texture { return m.Var(name).GetTexture() }

// SetFloat sets the named variable, adding it when missing.
func (m *Material) SetFloat(name string, f float32) { m.set(name, Float(f)) }

// SetInt sets the named variable, adding it when missing.
func (m *Material) SetInt(name string, i int) { m.set(name, Int(int32(i))) }

// SetString sets the named variable, adding it when missing.
func (m *Material) SetString(name, s string) { m.set(name, String(s)) }

// SetVec sets the named variable to a vector of len(c) components.
func (m *Material) SetVec(name string, c ...float32) { m.set(name, NewVector(c...)) }

// SetMatrix sets the named variable, adding it when missing.
func (m *Material) SetMatrix(name string, mat mgl32.Mat4) { m.set(name, Matrix(mat)) }

// LoadTexture implements ResourceLoader. It binds the texture named by v,
// substituting the provider's error texture when the lookup fails.
func (m *Material) LoadTexture(v *Variable) {
	textures := m.sys.env.Textures
	if textures == nil {
		return
	}

	var ref TextureRef
	switch x := v.Value().(type) {
	case TextureValue:
		if x.Tex != nil {
			return
		}
		ref = x.Ref
	case String:
		ref = ParseTextureRef(string(x))
	default:
		return
	}
	if ref.Raw == "" {
		return
	}

	tex, err := textures.FindTexture(ref, m.group)
	if err != nil || tex == nil {
		m.sys.limiter.warn(m.sys.logger, "texture not found, using error texture", ref.Raw,
			"material", m.name, "var", v.Name(), "texture", ref.Raw, "err", err)
		v.apply(TextureValue{Ref: ref, Tex: textures.ErrorTexture()})
		return
	}

	v.apply(TextureValue{Ref: ref, Tex: tex})
	// The variable holds its own reference now.
	tex.DecRef()
}

// LoadMaterial implements ResourceLoader. It binds the material named by v.
func (m *Material) LoadMaterial(v *Variable) {
	name, ok := v.Value().(String)
	if !ok || name == "" {
		return
	}

	v.apply(MaterialValue{Mat: m.sys.FindMaterial(string(name), m.group)})
}

// loadResources loads every declared texture and material parameter.
func (m *Material) loadResources() {
	for _, p := range m.shader.AllParams() {
		v, ok := m.vars.Find(p.Name)
		if !ok {
			continue
		}
		switch p.Type {
		case ParamTexture:
			m.LoadTexture(v)
		case ParamMaterial:
			m.LoadMaterial(v)
		}
	}
}
