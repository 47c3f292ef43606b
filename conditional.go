package matsys

import "strings"

// Conditional is a document section merged over the base section when its
// predicate holds for the runtime capabilities.
type Conditional struct {
	Section string
	Match   func(c Capabilities) bool
}

// Conditionals lists the builtin conditional sections in merge order.
// Later matches override earlier ones.
var Conditionals = []Conditional{
	{"<dx90", func(c Capabilities) bool { return c.FeatureLevel < 90 }},
	{">=dx90", func(c Capabilities) bool { return c.FeatureLevel >= 90 }},
	{"<dx95", func(c Capabilities) bool { return c.FeatureLevel < 95 }},
	{">=dx95", func(c Capabilities) bool { return c.FeatureLevel >= 95 }},
	{"ldr", func(c Capabilities) bool { return !c.HDR }},
	{"hdr", func(c Capabilities) bool { return c.HDR }},
	{"!srgb", func(c Capabilities) bool { return !c.SRGB }},
	{"srgb", func(c Capabilities) bool { return c.SRGB }},
	{"!gameconsole", func(c Capabilities) bool { return !c.Console }},
	{"gameconsole", func(c Capabilities) bool { return c.Console }},
	{"GPU<1", func(c Capabilities) bool { return c.GPULevel < 1 }},
	{"GPU>=1", func(c Capabilities) bool { return c.GPULevel >= 1 }},
	{"GPU<2", func(c Capabilities) bool { return c.GPULevel < 2 }},
	{"GPU>=2", func(c Capabilities) bool { return c.GPULevel >= 2 }},
	{"GPU<3", func(c Capabilities) bool { return c.GPULevel < 3 }},
	{"GPU>=3", func(c Capabilities) bool { return c.GPULevel >= 3 }},
}

// IsConditionalSection reports whether name is a builtin conditional section.
func IsConditionalSection(name string) bool {
	for _, c := range Conditionals {
		if strings.EqualFold(c.Section, name) {
			return true
		}
	}

	return false
}

// MatchingConditionals returns the section names that apply to caps, in merge order.
func MatchingConditionals(caps Capabilities) []string {
	var out []string
	for _, c := range Conditionals {
		if c.Match(caps) {
			out = append(out, c.Section)
		}
	}

	return out
}

// mergeIssue reports a problem found while merging sections.
type mergeIssue struct {
	Section string
	Key     string
}

// mergeConfig builds the effective configuration of doc for caps and the
// given shader: the base section, then every matching conditional section in
// order, then the section named like the shader. Within one section a
// repeated key keeps its last value; repeated flag keys are reported.
// isShader tells which subsections are per-shader sections.
func mergeConfig(doc *Node, caps Capabilities, shader string, isShader func(string) bool) (*Node, []mergeIssue) {
	merged := NewSection(doc.Name)
	var issues []mergeIssue

	overlay := func(sec *Node, skipSpecial bool) {
		seenFlags := make(map[string]struct{})
		for _, c := range sec.Children {
			if c.Section && skipSpecial && (IsConditionalSection(c.Name) || isShader(c.Name)) {
				continue
			}
			if !c.Section {
				if _, ok := LookupFlag(c.Name); ok {
					key := strings.ToLower(c.Name)
					if _, dup := seenFlags[key]; dup {
						issues = append(issues, mergeIssue{Section: sec.Name, Key: c.Name})
					}
					seenFlags[key] = struct{}{}
				}
			}

			dst := merged.Find(c.Name)
			switch {
			case dst == nil:
				merged.Add(c.Clone())
			case c.Section && dst.Section:
				dst.merge(c)
			default:
				*dst = *c.Clone()
			}
		}
	}

	overlay(doc, true)
	for _, name := range MatchingConditionals(caps) {
		if sec := doc.FindSection(name); sec != nil {
			overlay(sec, false)
		}
	}
	if sec := doc.FindSection(shader); sec != nil && !strings.EqualFold(shader, doc.Name) {
		overlay(sec, false)
	}

	return merged, issues
}
