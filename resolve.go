package matsys

import (
	"errors"
	"strings"
)

// resolution is the outcome of resolving one material definition.
type resolution struct {
	shader  *Shader
	vars    *VarSet
	config  *Node
	deps    []string // Documents read, the material's own name first
	isError bool     // The built-in error definition was substituted
}

// resolveDefinition turns a loaded definition into a bound shader and parsed
// variables. loadErr is the error LoadDefinition returned for def, if any.
// Failures are logged here, once each, and recovered by substitution.
func (s *System) resolveDefinition(name string, def *Definition, loadErr error) resolution {
	res := resolution{deps: []string{name}}

	doc, isError := s.definitionRoot(name, def, loadErr)
	res.isError = isError
	if def != nil {
		res.deps = append(res.deps, def.Includes...)
	}

	visited := map[string]struct{}{name: {}}
	cur := name
	ignoreRedirect := false

	for {
		if !ignoreRedirect {
			target := s.fallbackMaterial(doc)
			switch {
			case target == "":
			case target == cur:
				s.logger.Warn("material redirects to itself, using error definition",
					"material", name, "document", cur, "err", ErrSelfFallbackMaterial)
				doc, res.isError = ErrorDefinition(), true
				continue
			default:
				if _, seen := visited[target]; seen {
					s.logger.Warn("fallback material cycle, keeping current document",
						"material", name, "document", cur, "target", target, "err", ErrCyclicFallbackMaterial)
					ignoreRedirect = true
					continue
				}
				visited[target] = struct{}{}
				res.deps = append(res.deps, target)

				next, err := s.load(target)
				if next != nil {
					res.deps = append(res.deps, next.Includes...)
				}
				doc, res.isError = s.definitionRoot(target, next, err)
				cur = target
				continue
			}
		}

		res.shader, res.vars, res.config = s.resolveShader(name, doc)
		return res
	}
}

// fallbackMaterial returns the normalized $fallbackmaterial of doc's
// effective configuration, or "".
func (s *System) fallbackMaterial(doc *Node) string {
	merged, _ := mergeConfig(doc, s.opt.Capabilities, doc.Name, s.isShaderName)
	fm := merged.Find(VarFallbackMaterial)
	if fm == nil || fm.Section || strings.TrimSpace(fm.Value) == "" {
		return ""
	}

	return NormalizeName(fm.Value)
}

// definitionRoot returns the document to bind for a loaded definition and
// whether it is an error substitute. A stopped include chain keeps the error
// definition carrying the patches read before the stop.
func (s *System) definitionRoot(name string, def *Definition, err error) (*Node, bool) {
	switch {
	case err == nil && def != nil && def.Root != nil:
		return def.Root, false
	case errors.Is(err, ErrCyclicInclude) && def != nil && def.Root != nil:
		s.logLoadFailure(name, def, err)
		return def.Root, true
	default:
		s.logLoadFailure(name, def, err)
		return ErrorDefinition(), true
	}
}

// logLoadFailure reports a definition that could not be used.
func (s *System) logLoadFailure(name string, def *Definition, err error) {
	switch {
	case errors.Is(err, ErrCyclicInclude):
		var chain []string
		if def != nil {
			chain = def.Includes
		}
		s.logger.Warn("include chain stopped, keeping accumulated patches", "material", name, "includes", chain, "err", err)
	case err == nil:
		s.logger.Warn("empty definition, using error definition", "material", name)
	default:
		s.logger.Warn("cannot load definition, using error definition", "material", name, "err", err)
	}
}

// resolveShader binds doc to a shader, following shader fallbacks, and parses
// the variables of the winning configuration.
func (s *System) resolveShader(material string, doc *Node) (*Shader, *VarSet, *Node) {
	caps := s.opt.Capabilities
	visited := make(map[string]struct{})
	name := doc.Name

	for first := true; ; first = false {
		sh, ok := s.registry.Lookup(name)
		if !ok {
			s.limiter.warn(s.logger, "unknown shader, using debug shader", name,
				"material", material, "shader", name, "err", ErrUnknownShader)
			sh = DebugShader
		}
		visited[strings.ToLower(sh.Name)] = struct{}{}

		merged, issues := mergeConfig(doc, caps, sh.Name, s.isShaderName)
		if first {
			for _, is := range issues {
				s.logger.Warn("duplicate flag definition, last value wins",
					"material", material, "section", is.Section, "key", is.Key)
			}
		}

		vars := s.parseVars(material, sh, merged)
		if sh.Fallback == nil {
			return sh, vars, merged
		}

		next := sh.Fallback(vars, caps)
		if next == "" {
			return sh, vars, merged
		}
		if _, seen := visited[strings.ToLower(next)]; seen {
			s.limiter.warn(s.logger, "shader fallback cycle, keeping current shader", sh.Name,
				"material", material, "shader", sh.Name, "fallback", next)
			return sh, vars, merged
		}

		s.logger.Debug("shader fallback", "material", material, "shader", sh.Name, "fallback", next)
		vars.free()
		name = next
	}
}

// parseVars builds the variable array of a material: standard parameters,
// then the shader's declared parameters, then undeclared extras.
func (s *System) parseVars(material string, sh *Shader, merged *Node) *VarSet {
	vars := newVarSet(s.store, nil)

	for _, p := range sh.AllParams() {
		text, set := scalarValue(merged, p.Name)
		if !set {
			text = p.Default
		}

		var val Value = Undefined{}
		if set || text != "" {
			v, err := ParseParam(text, p.Type)
			if err != nil {
				s.limiter.warn(s.logger, "bad parameter value, using default", material+"\x00"+p.Name,
					"material", material, "param", p.Name, "type", p.Type, "err", err)
				if v, err = ParseParam(p.Default, p.Type); err != nil || p.Default == "" {
					v = Undefined{}
				}
			}
			val = v
		}
		vars.add(p.Name, val)
	}

	for _, c := range merged.Children {
		if c.Section {
			continue
		}
		if f, ok := LookupFlag(c.Name); ok {
			vars.SetFlag(f, parseFlagValue(c.Value))
			continue
		}
		if strings.HasPrefix(c.Name, "%") {
			continue
		}
		if _, declared := sh.Param(c.Name); declared {
			continue
		}
		vars.add(c.Name, inferValue(c.Value))
	}

	return vars
}

// scalarValue returns the value of the scalar key name in sec.
func scalarValue(sec *Node, name string) (string, bool) {
	c := sec.Find(name)
	if c == nil || c.Section {
		return "", false
	}

	return c.Value, true
}

// isShaderName reports whether name is a registered shader, so a subsection
// with that name is a per-shader section.
func (s *System) isShaderName(name string) bool {
	_, ok := s.registry.Lookup(name)
	return ok
}
