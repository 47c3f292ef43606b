// Package nullgfx implements the matsys backend contracts without a GPU.
// Snapshots are deduplicated descriptions, command buffers record commands
// and textures are named reference counters. It backs tests and the CLI.
package nullgfx

import (
	"fmt"
	"sync"

	"github.com/woozymasta/matsys"
)

// Backend creates snapshots from pipeline descriptions. Equal descriptions
// share one snapshot, which lives until every creation is released.
type Backend struct {
	mu      sync.Mutex
	next    matsys.Snapshot
	byKey   map[string]matsys.Snapshot
	entries map[matsys.Snapshot]*entry

	created  int
	released int
}

type entry struct {
	desc matsys.PipelineDesc
	key  string
	refs int
}

// Stats reports snapshot counters.
type Stats struct {
	Live     int `json:"live" yaml:"live"`         // Distinct snapshots alive
	Refs     int `json:"refs" yaml:"refs"`         // Outstanding creations
	Created  int `json:"created" yaml:"created"`   // CreateSnapshot calls
	Released int `json:"released" yaml:"released"` // ReleaseSnapshot calls
}

// NewBackend returns an empty backend.
func NewBackend() *Backend {
	return &Backend{
		byKey:   make(map[string]matsys.Snapshot),
		entries: make(map[matsys.Snapshot]*entry),
	}
}

// CreateSnapshot implements matsys.Backend.
func (b *Backend) CreateSnapshot(desc *matsys.PipelineDesc) (matsys.Snapshot, error) {
	if desc.VertexShader == "" || desc.PixelShader == "" {
		return 0, fmt.Errorf("nullgfx: pass without shaders (vs %q, ps %q)", desc.VertexShader, desc.PixelShader)
	}

	key := descKey(desc)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.created++
	if s, ok := b.byKey[key]; ok {
		b.entries[s].refs++
		return s, nil
	}

	b.next++
	s := b.next
	d := *desc
	d.Samplers = append([]int(nil), desc.Samplers...)
	b.entries[s] = &entry{desc: d, key: key, refs: 1}
	b.byKey[key] = s

	return s, nil
}

// ReleaseSnapshot implements matsys.Backend. Releasing an unknown snapshot
// is ignored.
func (b *Backend) ReleaseSnapshot(s matsys.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[s]
	if !ok {
		return
	}
	b.released++
	if e.refs--; e.refs == 0 {
		delete(b.entries, s)
		delete(b.byKey, e.key)
	}
}

// IsTranslucent implements matsys.Backend.
func (b *Backend) IsTranslucent(s matsys.Snapshot) bool {
	d, ok := b.Desc(s)
	return ok && d.Translucent()
}

// IsAlphaTested implements matsys.Backend.
func (b *Backend) IsAlphaTested(s matsys.Snapshot) bool {
	d, ok := b.Desc(s)
	return ok && d.AlphaTest.Enable
}

// VertexFormat implements matsys.Backend.
func (b *Backend) VertexFormat(passes []matsys.Snapshot) matsys.VertexFormat {
	var vf matsys.VertexFormat
	for _, s := range passes {
		if d, ok := b.Desc(s); ok {
			vf = vf.Union(d.VertexFormat)
		}
	}

	return vf
}

// Desc returns the description a snapshot was created from.
func (b *Backend) Desc(s matsys.Snapshot) (matsys.PipelineDesc, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[s]
	if !ok {
		return matsys.PipelineDesc{}, false
	}

	return e.desc, true
}

// Stats reports snapshot counters.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := Stats{Live: len(b.entries), Created: b.created, Released: b.released}
	for _, e := range b.entries {
		st.Refs += e.refs
	}

	return st
}

// descKey identifies a description for deduplication. The modulation is
// part of the key so classification queries stay per combination.
func descKey(d *matsys.PipelineDesc) string {
	return fmt.Sprintf("%s|%s|%d|%v|%v|%v|%d|%t|%t|%t|%v|%x|%d",
		d.VertexShader, d.PixelShader, d.StaticCombo,
		d.Blend, d.Depth, d.AlphaTest, d.Cull,
		d.Wireframe, d.SRGBWrite, d.Fog, d.Samplers,
		uint64(d.VertexFormat), d.Modulation)
}
