package matsys

// ApplyPatch applies the insert and then the replace section of patch to doc.
func ApplyPatch(doc, patch *Node) {
	if doc == nil || patch == nil {
		return
	}

	for _, c := range patch.Children {
		if !c.Section {
			continue
		}
		if equalFoldASCII(c.Name, patchInsert) {
			PatchInsert(doc, c)
		}
	}
	for _, c := range patch.Children {
		if !c.Section {
			continue
		}
		if equalFoldASCII(c.Name, patchReplace) {
			PatchReplace(doc, c)
		}
	}
}

// PatchInsert copies every key of src that dst lacks.
// It recurses into subsections dst already has and never creates a
// subsection dst does not have.
func PatchInsert(dst, src *Node) {
	for _, c := range src.Children {
		d := dst.Find(c.Name)
		switch {
		case d == nil && !c.Section:
			dst.Add(c.Clone())
		case d != nil && c.Section && d.Section:
			PatchInsert(d, c)
		}
	}
}

// PatchReplace overwrites every key of src that dst already has,
// recursing under matching subsection names.
func PatchReplace(dst, src *Node) {
	for _, c := range src.Children {
		d := dst.Find(c.Name)
		switch {
		case d == nil:
		case c.Section && d.Section:
			PatchReplace(d, c)
		default:
			*d = *c.Clone()
		}
	}
}

// accumulatePatch folds the insert and replace sections of an inner patch
// document into acc. Keys acc already holds from an outer patch win.
func accumulatePatch(acc, doc *Node) {
	for _, sec := range []string{patchInsert, patchReplace} {
		src := doc.FindSection(sec)
		if src == nil {
			continue
		}
		dst := acc.FindSection(sec)
		if dst == nil {
			dst = NewSection(sec)
			acc.Add(dst)
		}
		mergeMissing(dst, src)
	}
}

// mergeMissing copies keys of src missing from dst, creating subsections as needed.
func mergeMissing(dst, src *Node) {
	for _, c := range src.Children {
		d := dst.Find(c.Name)
		switch {
		case d == nil:
			dst.Add(c.Clone())
		case c.Section && d.Section:
			mergeMissing(d, c)
		}
	}
}

// equalFoldASCII compares two ASCII keys case-insensitively.
func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}

	return true
}
