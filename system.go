package matsys

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Environment holds the collaborators a System consumes.
type Environment struct {
	// Files reads definition documents. It must be safe for concurrent use
	// when Preload is used.
	Files FileReader
	// Textures resolves texture references. Nil leaves textures unloaded.
	Textures TextureProvider
	// Backend creates snapshots. Required.
	Backend Backend
}

// SystemStats reports system activity counters.
type SystemStats struct {
	Materials       int        `json:"materials" yaml:"materials"`
	Precached       int        `json:"precached" yaml:"precached"`
	Loads           uint64     `json:"loads" yaml:"loads"`
	Parses          uint64     `json:"parses" yaml:"parses"`
	Compiles        uint64     `json:"compiles" yaml:"compiles"`
	CompileFailures uint64     `json:"compileFailures" yaml:"compileFailures"`
	Store           StoreStats `json:"store" yaml:"store"`
}

// System creates, caches and reloads materials. Every method except
// MarkDirty, Preload's reads and Stats belongs to the owning goroutine.
type System struct {
	store    *VariableStore
	env      Environment
	opt      SystemOptions
	registry *Registry
	loader   *Loader
	logger   *slog.Logger
	limiter  *logLimiter

	materials map[string]*Material

	dirtyMu sync.Mutex
	dirty   map[string]struct{}

	loads           atomic.Uint64
	parses          atomic.Uint64
	compiles        atomic.Uint64
	compileFailures atomic.Uint64
}

// NewSystem creates a material system over store and env.
func NewSystem(store *VariableStore, env Environment, opt *SystemOptions) (*System, error) {
	if store == nil {
		return nil, errors.New("new system: nil variable store")
	}
	if env.Backend == nil {
		return nil, errors.New("new system: nil backend")
	}

	o := opt.normalize()
	s := &System{
		store:     store,
		env:       env,
		opt:       o,
		registry:  NewRegistry(),
		logger:    o.Logger,
		limiter:   newLogLimiter(o.LogInterval),
		materials: make(map[string]*Material),
		dirty:     make(map[string]struct{}),
	}
	s.loader = &Loader{Files: env.Files, Parse: o.Parse, MaxIncludeDepth: o.MaxIncludeDepth}

	return s, nil
}

// Registry returns the shader registry.
func (s *System) Registry() *Registry { return s.registry }

// Store returns the variable store.
func (s *System) Store() *VariableStore { return s.store }

// Loader returns the definition loader.
func (s *System) Loader() *Loader { return s.loader }

// Capabilities returns the runtime capabilities materials are resolved for.
func (s *System) Capabilities() Capabilities { return s.opt.Capabilities }

// SetCapabilities changes the runtime capabilities and re-resolves every
// material that was already resolved.
func (s *System) SetCapabilities(caps Capabilities) {
	s.opt.Capabilities = caps.normalize()
	for _, m := range s.Materials() {
		if m.state&flagVarsPrecached == 0 {
			continue
		}
		precached := m.IsPrecached()
		m.Uncache(false)
		if precached {
			m.Precache()
		}
	}
}

// RegisterShader registers a shader descriptor.
func (s *System) RegisterShader(sh *Shader) error {
	return s.registry.Register(sh)
}

// FindMaterial returns the material named name, creating an uncached one on
// first use. It never fails; unusable definitions resolve to the error
// definition on precache. The reference count is not changed.
func (s *System) FindMaterial(name, group string) *Material {
	key := NormalizeName(name)
	if m, ok := s.materials[key]; ok {
		return m
	}

	m := &Material{sys: s, name: key, group: group}
	s.materials[key] = m

	return m
}

// Lookup returns an existing material.
func (s *System) Lookup(name string) (*Material, bool) {
	m, ok := s.materials[NormalizeName(name)]
	return m, ok
}

// CreateMaterial creates a material from an in-memory definition. An
// existing material of the same name takes the new definition and is
// re-resolved on its next precache.
func (s *System) CreateMaterial(name string, cfg *Node) *Material {
	m := s.FindMaterial(name, "")
	if m.state&flagVarsPrecached != 0 {
		m.Uncache(false)
	}
	m.source = cfg.Clone()
	m.pre = nil
	m.state |= flagManual

	return m
}

// Materials returns every material, sorted by name.
func (s *System) Materials() []*Material {
	out := make([]*Material, 0, len(s.materials))
	for _, m := range s.materials {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *Material) int {
		switch {
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})

	return out
}

// Preload reads and parses the named definitions concurrently, then binds
// them to materials on the calling goroutine. Read failures are not returned;
// they are handled when the material is precached. Only cancellation of ctx
// aborts the preload.
func (s *System) Preload(ctx context.Context, names []string) error {
	results := make([]preloadResult, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opt.PreloadWorkers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			def, err := s.load(name)
			results[i] = preloadResult{def: def, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, name := range names {
		m := s.FindMaterial(name, "")
		if m.state&(flagManual|flagVarsPrecached) != 0 {
			continue
		}
		m.pre = &results[i]
		m.state |= flagPreloaded
	}
	s.logger.Debug("materials preloaded", "count", len(names))

	return nil
}

// MarkDirty records that the named document changed. It may be called from
// any goroutine; ApplyReloads acts on it.
func (s *System) MarkDirty(name string) {
	s.dirtyMu.Lock()
	defer s.dirtyMu.Unlock()

	s.dirty[NormalizeName(name)] = struct{}{}
}

// ApplyReloads refreshes every material built from a document marked dirty
// and returns how many were refreshed.
func (s *System) ApplyReloads() int {
	s.dirtyMu.Lock()
	dirty := s.dirty
	s.dirty = make(map[string]struct{})
	s.dirtyMu.Unlock()

	if len(dirty) == 0 {
		return 0
	}

	n := 0
	for _, m := range s.Materials() {
		if m.state&flagVarsPrecached == 0 || !dependsOn(m.deps, dirty) {
			continue
		}
		precached := m.IsPrecached()
		m.Uncache(false)
		if precached {
			m.Precache()
		}
		n++
	}
	if n > 0 {
		s.logger.Info("materials reloaded", "count", n)
	}

	return n
}

func dependsOn(deps []string, dirty map[string]struct{}) bool {
	for _, d := range deps {
		if _, ok := dirty[d]; ok {
			return true
		}
	}

	return false
}

// PrecacheAll precaches every material.
func (s *System) PrecacheAll() {
	for _, m := range s.Materials() {
		m.Precache()
	}
}

// UncacheAll releases the snapshots and variables of every material.
func (s *System) UncacheAll() {
	for _, m := range s.Materials() {
		m.Uncache(false)
	}
}

// CollectUnreferenced destroys every material with no references and no
// pins, and returns how many were destroyed. Destroying a material releases
// the references its variables hold, so collection repeats until stable.
func (s *System) CollectUnreferenced() int {
	if s.store.InThreadedAccess() {
		s.limiter.warn(s.logger, "collection refused during threaded access", "")
		return 0
	}

	total := 0
	for {
		n := 0
		for _, m := range s.Materials() {
			if m.refs > 0 || m.pins > 0 {
				continue
			}
			m.Uncache(false)
			delete(s.materials, m.name)
			n++
		}
		if n == 0 {
			break
		}
		total += n
	}
	if total > 0 {
		s.logger.Debug("unreferenced materials collected", "count", total)
	}

	return total
}

// Validate checks the named definition document without binding it.
// The error reports a document that could not be read at all.
func (s *System) Validate(name string) ([]Issue, error) {
	name = NormalizeName(name)
	opt := &ValidateOptions{Capabilities: &s.opt.Capabilities}

	raw, err := s.loader.read(name)
	if err != nil {
		return nil, err
	}
	issues := Validate(name, raw, s.registry, opt)
	if !raw.IsSection() || !equalFoldASCII(raw.Name, patchRoot) {
		return issues, nil
	}

	def, err := s.loader.LoadDefinition(name)
	if err != nil {
		issues = append(issues, Issue{
			Level:   IssueError,
			Code:    CodeIncludeChain,
			Message: err.Error(),
		})
		return issues, nil
	}

	return append(issues, Validate(name, def.Root, s.registry, opt)...), nil
}

// Stats reports activity counters.
func (s *System) Stats() SystemStats {
	st := SystemStats{
		Materials:       len(s.materials),
		Loads:           s.loads.Load(),
		Parses:          s.parses.Load(),
		Compiles:        s.compiles.Load(),
		CompileFailures: s.compileFailures.Load(),
		Store:           s.store.Stats(),
	}
	for _, m := range s.materials {
		if m.IsPrecached() {
			st.Precached++
		}
	}

	return st
}

// Close destroys every material. The variable store stays open.
func (s *System) Close() {
	s.store.Drain()
	for _, m := range s.Materials() {
		m.Uncache(false)
	}
	clear(s.materials)
}

// load reads one definition through the loader.
func (s *System) load(name string) (*Definition, error) {
	s.loads.Add(1)
	return s.loader.LoadDefinition(name)
}

// resolve produces the shader binding and variables of m.
func (s *System) resolve(m *Material) resolution {
	var def *Definition
	var err error
	switch {
	case m.source != nil:
		def, err = s.loader.LoadDocument(m.name, m.source)
	case m.pre != nil:
		def, err = m.pre.def, m.pre.err
		m.pre = nil
		m.state &^= flagPreloaded
	default:
		def, err = s.load(m.name)
	}
	s.parses.Add(1)

	return s.resolveDefinition(m.name, def, err)
}

// compile compiles the snapshot tables of sh for vars.
func (s *System) compile(sh *Shader, vars *VarSet) (*RenderState, error) {
	s.compiles.Add(1)
	rs, err := compileRenderState(s.env.Backend, sh, vars, s.opt.Capabilities)
	if err != nil {
		s.compileFailures.Add(1)
	}

	return rs, err
}
