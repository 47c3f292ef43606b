package matsys

import (
	"fmt"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// IssueLevel represents severity of validation issue.
type IssueLevel string

const (
	// IssueError indicates a validation error.
	IssueError IssueLevel = "error"
	// IssueWarning indicates a validation warning.
	IssueWarning IssueLevel = "warning"
)

// Issue represents a validation issue.
type Issue struct {
	Level   IssueLevel `json:"level" yaml:"level"`                   // Severity level
	Code    string     `json:"code,omitempty" yaml:"code,omitempty"` // Machine-readable code
	Message string     `json:"message" yaml:"message"`               // Issue message
	Path    string     `json:"path,omitempty" yaml:"path,omitempty"` // Section path and key of the affected entry
}

// Issue codes.
const (
	CodeEmptyDocument   = "empty_document"
	CodeIncludeMissing  = "include_missing"
	CodeIncludeChain    = "include_chain"
	CodePatchSection    = "patch_section"
	CodeUnknownShader   = "unknown_shader"
	CodeUnknownSection  = "unknown_section"
	CodeUndeclaredParam = "undeclared_param"
	CodeBadValue        = "bad_value"
	CodeDuplicateFlag   = "duplicate_flag"
	CodeSelfFallback    = "self_fallback"
)

// suggestThreshold is the minimum similarity for a "did you mean" hint.
const suggestThreshold = 0.6

// dataSections are subsections read by the runtime rather than merged.
var dataSections = []string{"Proxies"}

// Validate checks a definition document and returns issues. name is the
// logical name of the document, used to detect a self redirect. A nil
// registry skips every check that needs shader declarations.
func Validate(name string, doc *Node, reg *Registry, opt *ValidateOptions) []Issue {
	vopt := opt.normalize()
	if doc == nil || !doc.IsSection() {
		return []Issue{{Level: IssueError, Code: CodeEmptyDocument, Message: "document has no root section"}}
	}

	if equalFoldASCII(doc.Name, patchRoot) {
		return validatePatch(doc)
	}

	var out []Issue
	var sh *Shader
	if reg != nil {
		var ok bool
		sh, ok = reg.Lookup(doc.Name)
		if !ok && !vopt.DisableShaderNameCheck {
			out = append(out, Issue{
				Level:   IssueError,
				Code:    CodeUnknownShader,
				Message: "unknown shader" + suggest(doc.Name, reg.Names()),
				Path:    doc.Name,
			})
		}
	}

	isShader := func(s string) bool {
		if reg == nil {
			return false
		}
		_, ok := reg.Lookup(s)
		return ok
	}

	out = append(out, validateSection(name, "", doc, sh, vopt)...)
	for _, sec := range doc.Children {
		if !sec.Section {
			continue
		}
		if isDataSection(sec.Name) {
			continue
		}
		if !IsConditionalSection(sec.Name) && !isShader(sec.Name) {
			out = append(out, Issue{
				Level:   IssueWarning,
				Code:    CodeUnknownSection,
				Message: "section is neither a conditional nor a shader name" + suggest(sec.Name, append(conditionalNames(), dataSections...)),
				Path:    sec.Name,
			})
			continue
		}
		if vopt.Capabilities != nil && IsConditionalSection(sec.Name) && !sectionApplies(sec.Name, *vopt.Capabilities) {
			continue
		}
		out = append(out, validateSection(name, sec.Name, sec, sh, vopt)...)
	}

	return out
}

// validatePatch checks the shape of a patch document.
func validatePatch(doc *Node) []Issue {
	var out []Issue
	if doc.String(patchInclude, "") == "" && doc.String(patchIncludeAlt, "") == "" {
		out = append(out, Issue{
			Level:   IssueError,
			Code:    CodeIncludeMissing,
			Message: "patch document has no " + patchInclude,
		})
	}
	for _, c := range doc.Children {
		switch {
		case !c.Section && (equalFoldASCII(c.Name, patchInclude) || equalFoldASCII(c.Name, patchIncludeAlt)):
		case c.Section && (equalFoldASCII(c.Name, patchInsert) || equalFoldASCII(c.Name, patchReplace)):
		default:
			out = append(out, Issue{
				Level:   IssueWarning,
				Code:    CodePatchSection,
				Message: "patch entry is ignored; expected insert or replace",
				Path:    c.Name,
			})
		}
	}

	return out
}

// validateSection checks the scalar keys of one section.
func validateSection(name, section string, sec *Node, sh *Shader, vopt ValidateOptions) []Issue {
	var out []Issue
	seenFlags := make(map[string]struct{})

	for _, c := range sec.Children {
		if c.Section {
			continue
		}
		p := keyPath(section, c.Name)

		if _, ok := LookupFlag(c.Name); ok {
			key := strings.ToLower(c.Name)
			if _, dup := seenFlags[key]; dup {
				out = append(out, Issue{Level: IssueWarning, Code: CodeDuplicateFlag, Message: "flag set twice; the last value wins", Path: p})
			}
			seenFlags[key] = struct{}{}
			continue
		}
		if strings.HasPrefix(c.Name, "%") {
			continue
		}
		if equalFoldASCII(c.Name, VarFallbackMaterial) {
			if name != "" && NormalizeName(c.Value) == NormalizeName(name) {
				out = append(out, Issue{Level: IssueError, Code: CodeSelfFallback, Message: "material falls back to itself", Path: p})
			}
			continue
		}
		if sh == nil {
			continue
		}

		param, declared := sh.Param(c.Name)
		if !declared {
			if !vopt.DisableUndeclaredCheck {
				out = append(out, Issue{
					Level:   IssueWarning,
					Code:    CodeUndeclaredParam,
					Message: fmt.Sprintf("%s does not declare this parameter%s", sh.Name, suggest(c.Name, paramNames(sh))),
					Path:    p,
				})
			}
			continue
		}

		val, err := ParseParam(c.Value, param.Type)
		if err != nil {
			out = append(out, Issue{
				Level:   IssueError,
				Code:    CodeBadValue,
				Message: fmt.Sprintf("value is not a valid %s: %v", param.Type, err),
				Path:    p,
			})
			continue
		}
		if tv, ok := val.(TextureValue); ok && !vopt.DisableTextureCheck {
			for _, is := range tv.Ref.Validate() {
				is.Path = keyPath(p, is.Path)
				out = append(out, is)
			}
		}
	}

	return out
}

// suggest returns a " (did you mean X?)" hint for the candidate closest to s.
func suggest(s string, candidates []string) string {
	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = false

	best, score := "", 0.0
	for _, c := range candidates {
		if sim := strutil.Similarity(s, c, lev); sim > score {
			best, score = c, sim
		}
	}
	if score < suggestThreshold || strings.EqualFold(best, s) {
		return ""
	}

	return fmt.Sprintf(" (did you mean %s?)", best)
}

func conditionalNames() []string {
	out := make([]string, len(Conditionals))
	for i, c := range Conditionals {
		out[i] = c.Section
	}

	return out
}

func isDataSection(name string) bool {
	for _, s := range dataSections {
		if strings.EqualFold(s, name) {
			return true
		}
	}

	return false
}

func paramNames(sh *Shader) []string {
	params := sh.AllParams()
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name
	}

	return out
}

func sectionApplies(section string, caps Capabilities) bool {
	for _, c := range Conditionals {
		if strings.EqualFold(c.Section, section) {
			return c.Match(caps)
		}
	}

	return false
}

func keyPath(section, key string) string {
	switch {
	case section == "":
		return key
	case key == "":
		return section
	default:
		return section + "/" + key
	}
}
